package competition

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/engsoc/core/upload"
)

func TestDeadline_Rule(t *testing.T) {
	dl := Deadline{Formats: []string{"PDF", "DOCX"}, MaxSizeMB: 20}
	rule := dl.Rule()
	assert.NoError(t, rule.Check(upload.File{Name: "report.pdf", Size: 2 << 20}))
	assert.Error(t, rule.Check(upload.File{Name: "cad.dwg", Size: 2 << 20}))
}

func TestDeadline_AcceptsAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, Deadline{Status: DeadlineOpen, DueAt: now.Add(time.Hour)}.AcceptsAt(now))
	assert.False(t, Deadline{Status: DeadlineOpen, DueAt: now.Add(-time.Hour)}.AcceptsAt(now))
	assert.False(t, Deadline{Status: DeadlineCompleted, DueAt: now.Add(time.Hour)}.AcceptsAt(now))
}

func TestGroupByStatus(t *testing.T) {
	subs := []Submission{
		{ID: "1", Status: StatusPending},
		{ID: "2", Status: StatusApproved},
		{ID: "3", Status: StatusPending},
	}
	groups := GroupByStatus(subs)
	assert.Len(t, groups, len(AllStatuses))
	assert.Len(t, groups[StatusPending], 2)
	assert.Len(t, groups[StatusApproved], 1)
	assert.Empty(t, groups[StatusRejected])
	assert.NotNil(t, groups[StatusDraft])
}
