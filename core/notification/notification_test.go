package notification

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/engsoc/core"
)

func TestTabTypes(t *testing.T) {
	tests := []struct {
		tab     string
		want    []Type
		wantErr bool
	}{
		{tab: ""},
		{tab: TabAll},
		{tab: TabDeadlines, want: []Type{TypeDeadline, TypeReminder}},
		{tab: TabAnnouncements, want: []Type{TypeAnnouncement, TypeFeedback}},
		{tab: "spam", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.tab, func(t *testing.T) {
			got, err := TabTypes(tt.tab)
			if tt.wantErr {
				var vErr *core.ValidationError
				if assert.True(t, errors.As(err, &vErr)) {
					assert.Equal(t, map[string]string{"tab": "tab must be one of [all deadlines announcements]"}, vErr.FieldsMap())
				}
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
