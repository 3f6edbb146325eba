package competition

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/engsoc/core"
	"github.com/trezcool/engsoc/core/upload"
)

var (
	ErrNotFound           = errors.New("competition not found")
	ErrDeadlineNotFound   = errors.New("deadline not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrDeadlinePassed     = errors.New("this deadline no longer accepts submissions")
	ErrNoFiles            = errors.New("a submission needs at least one file")
)

var orderingColumns = map[string]string{
	"submitted_at": "s.submitted_at",
	"created_at":   "s.created_at",
	"title":        "s.title",
}

// NewSubmission is a submission composed on the submission screen.
type NewSubmission struct {
	DeadlineID  string
	MemberID    string
	TeamID      string
	Title       string
	Description string
	Files       []upload.Task // completed uploads
}

type (
	Repository interface {
		CreateCompetition(ctx context.Context, c Competition) (Competition, error)
		GetCompetition(ctx context.Context, id string) (Competition, error)
		GetDeadline(ctx context.Context, id string) (Deadline, error)
		CreateSubmission(ctx context.Context, sub Submission) (Submission, error)
		GetSubmission(ctx context.Context, id string) (Submission, error)
		QuerySubmissions(ctx context.Context, filter QueryFilter, page core.Page, ordering []core.DBOrdering) ([]Submission, int, error)
		CountSubmissions(ctx context.Context, memberID string) (map[SubmissionStatus]int, error)
		ReviewSubmission(ctx context.Context, id string, status SubmissionStatus, feedback null.String) (Submission, error)
	}

	Service interface {
		Create(ctx context.Context, c Competition) (Competition, error)
		Get(ctx context.Context, id string) (Competition, error)
		GetDeadline(ctx context.Context, id string) (Deadline, error)
		Submit(ctx context.Context, ns NewSubmission) (Submission, error)
		GetSubmission(ctx context.Context, id string) (Submission, error)
		ListSubmissions(ctx context.Context, filter QueryFilter, page core.Page, ordering ...core.DBOrdering) ([]Submission, int, error)
		CountByStatus(ctx context.Context, memberID string) (map[SubmissionStatus]int, error)
		Review(ctx context.Context, id string, status SubmissionStatus, feedback string) (Submission, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Create(ctx context.Context, c Competition) (Competition, error) {
	c.Name = core.CleanString(c.Name)
	c.CreatedAt = core.Now()
	for i := range c.Deadlines {
		d := &c.Deadlines[i]
		d.Title = core.CleanString(d.Title)
		d.Formats = core.CleanStrings(d.Formats)
		for j, f := range d.Formats {
			d.Formats[j] = strings.ToUpper(strings.TrimPrefix(f, "."))
		}
		if d.Status == "" {
			d.Status = DeadlineUpcoming
		}
	}
	return svc.repo.CreateCompetition(ctx, c)
}

func (svc *service) Get(ctx context.Context, id string) (Competition, error) {
	return svc.repo.GetCompetition(ctx, id)
}

func (svc *service) GetDeadline(ctx context.Context, id string) (Deadline, error) {
	return svc.repo.GetDeadline(ctx, id)
}

// Submit records a pending submission made of completed uploads.
func (svc *service) Submit(ctx context.Context, ns NewSubmission) (Submission, error) {
	dl, err := svc.repo.GetDeadline(ctx, ns.DeadlineID)
	if err != nil {
		return Submission{}, err
	}
	now := core.Now()
	if !dl.AcceptsAt(now) {
		return Submission{}, ErrDeadlinePassed
	}

	sub := Submission{
		Title:         core.CleanString(ns.Title),
		Description:   core.CleanString(ns.Description),
		CompetitionID: dl.CompetitionID,
		DeadlineID:    dl.ID,
		DeadlineTitle: dl.Title,
		MemberID:      ns.MemberID,
		TeamID:        null.NewString(ns.TeamID, ns.TeamID != ""),
		Status:        StatusPending,
		SubmittedAt:   null.TimeFrom(now),
		CreatedAt:     now,
	}
	for _, task := range ns.Files {
		if task.Status != upload.StatusComplete {
			continue
		}
		sub.Files = append(sub.Files, File{Name: task.Name, Size: task.Size, Type: task.Type, ContentID: task.ContentID})
	}
	if len(sub.Files) == 0 {
		return Submission{}, ErrNoFiles
	}
	return svc.repo.CreateSubmission(ctx, sub)
}

func (svc *service) GetSubmission(ctx context.Context, id string) (Submission, error) {
	return svc.repo.GetSubmission(ctx, id)
}

// ListSubmissions returns a page of matching submissions, latest submitted first by default.
func (svc *service) ListSubmissions(ctx context.Context, filter QueryFilter, page core.Page, ordering ...core.DBOrdering) ([]Submission, int, error) {
	filter.Clean()
	page.Clean()
	cols := core.Columns(ordering, orderingColumns)
	if len(cols) == 0 {
		cols = []core.DBOrdering{{Field: "s.created_at"}}
	}
	subs, total, err := svc.repo.QuerySubmissions(ctx, filter, page, cols)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying submissions")
	}
	return subs, total, nil
}

// CountByStatus counts a member's submissions; every status has an entry.
func (svc *service) CountByStatus(ctx context.Context, memberID string) (map[SubmissionStatus]int, error) {
	counts, err := svc.repo.CountSubmissions(ctx, memberID)
	if err != nil {
		return nil, errors.Wrap(err, "counting submissions")
	}
	for _, s := range AllStatuses {
		if _, ok := counts[s]; !ok {
			counts[s] = 0
		}
	}
	return counts, nil
}

// Review sets the outcome of a pending submission.
func (svc *service) Review(ctx context.Context, id string, status SubmissionStatus, feedback string) (Submission, error) {
	if status != StatusApproved && status != StatusRejected {
		return Submission{}, core.NewValidationError(core.ErrInvalidInput, core.FieldError{Field: "status", Error: "status must be one of [approved rejected]"})
	}
	feedback = core.CleanString(feedback)
	return svc.repo.ReviewSubmission(ctx, id, status, null.NewString(feedback, feedback != ""))
}
