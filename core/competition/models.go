package competition

import (
	"strings"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/engsoc/core/upload"
)

type Competition struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"` // eg: BAJA SAE India 2026
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"created_at"`
	Deadlines   []Deadline `json:"deadlines"`
}

type DeadlineStatus string

const (
	DeadlineUpcoming  DeadlineStatus = "upcoming"
	DeadlineOpen      DeadlineStatus = "open"
	DeadlineCompleted DeadlineStatus = "completed"
)

// Deadline is one deliverable of a competition (eg: Technical Report) and the files it accepts.
type Deadline struct {
	ID            string         `json:"id"`
	CompetitionID string         `json:"competition_id"`
	Title         string         `json:"title"`
	DueAt         time.Time      `json:"due_at"`
	Status        DeadlineStatus `json:"status"`
	Formats       []string       `json:"formats"` // eg: PDF, DOCX
	MaxSizeMB     int            `json:"max_size_mb"`
}

func (d Deadline) Rule() upload.Rule {
	return upload.Rule{Formats: d.Formats, MaxSizeMB: d.MaxSizeMB}
}

// AcceptsAt tells whether submissions are accepted at `now`.
func (d Deadline) AcceptsAt(now time.Time) bool {
	return d.Status != DeadlineCompleted && now.Before(d.DueAt)
}

type SubmissionStatus string

const (
	StatusDraft    SubmissionStatus = "draft"
	StatusPending  SubmissionStatus = "pending"
	StatusApproved SubmissionStatus = "approved"
	StatusRejected SubmissionStatus = "rejected"
)

var AllStatuses = []SubmissionStatus{StatusPending, StatusApproved, StatusRejected, StatusDraft}

type Submission struct {
	ID              string           `json:"id"`
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	CompetitionID   string           `json:"competition_id"`
	CompetitionName string           `json:"competition_name"`
	DeadlineID      string           `json:"deadline_id"`
	DeadlineTitle   string           `json:"deadline_title"` // the submission type, eg: Technical Report
	MemberID        string           `json:"member_id"`
	TeamID          null.String      `json:"team_id"`
	TeamName        null.String      `json:"team_name"`
	Status          SubmissionStatus `json:"status"`
	Feedback        null.String      `json:"feedback"`
	SubmittedAt     null.Time        `json:"submitted_at"`
	CreatedAt       time.Time        `json:"created_at"`
	Files           []File           `json:"files"`
}

// File is an uploaded file attached to a submission.
type File struct {
	ID           string `json:"id"`
	SubmissionID string `json:"submission_id"`
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	Type         string `json:"type"`
	ContentID    string `json:"content_id"`
}

type QueryFilter struct {
	MemberID string
	Search   string // title, competition, team or deadline title
	Status   SubmissionStatus
}

func (f *QueryFilter) Clean() {
	f.Search = strings.ToLower(strings.TrimSpace(f.Search))
}

// GroupByStatus splits submissions by status; every status has an entry.
func GroupByStatus(subs []Submission) map[SubmissionStatus][]Submission {
	groups := make(map[SubmissionStatus][]Submission, len(AllStatuses))
	for _, s := range AllStatuses {
		groups[s] = []Submission{}
	}
	for _, sub := range subs {
		groups[sub.Status] = append(groups[sub.Status], sub)
	}
	return groups
}
