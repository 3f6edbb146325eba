package event

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/engsoc/core"
)

var (
	ErrNotFound           = errors.New("event not found")
	ErrAlreadyRegistered  = errors.New("already registered to this event")
	ErrRegistrationClosed = errors.New("registration is closed for this event")
)

// orderings allowed on listings
var orderingColumns = map[string]string{
	"starts_at":  "starts_at",
	"title":      "title",
	"created_at": "created_at",
	"fee":        "fee",
}

type (
	Repository interface {
		QueryEvents(ctx context.Context, filter QueryFilter, page core.Page, ordering []core.DBOrdering) ([]Event, int, error)
		GetEvent(ctx context.Context, id, viewer string) (Event, error)
		CreateEvent(ctx context.Context, e Event) (Event, error)
		CreateRegistration(ctx context.Context, reg Registration) (Registration, error)
		QueryRegistrations(ctx context.Context, memberID string) ([]Registration, error)
	}

	Service interface {
		List(ctx context.Context, filter QueryFilter, page core.Page, ordering ...core.DBOrdering) ([]Event, int, error)
		Get(ctx context.Context, id, viewer string) (Event, error)
		Create(ctx context.Context, e Event) (Event, error)
		Register(ctx context.Context, reg Registration) (Registration, error)
		Registrations(ctx context.Context, memberID string) ([]Registration, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// List returns a page of the events matching `filter` and the total number of matches.
// Upcoming listings default to the soonest first.
func (svc *service) List(ctx context.Context, filter QueryFilter, page core.Page, ordering ...core.DBOrdering) ([]Event, int, error) {
	filter.Clean()
	page.Clean()
	cols := core.Columns(ordering, orderingColumns)
	if len(cols) == 0 {
		cols = []core.DBOrdering{{Field: "starts_at", Ascending: filter.Upcoming}}
	}
	events, total, err := svc.repo.QueryEvents(ctx, filter, page, cols)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying events")
	}
	return events, total, nil
}

func (svc *service) Get(ctx context.Context, id, viewer string) (Event, error) {
	return svc.repo.GetEvent(ctx, id, viewer)
}

func (svc *service) Create(ctx context.Context, e Event) (Event, error) {
	e.Title = core.CleanString(e.Title)
	e.Topics = core.CleanStrings(e.Topics)
	e.Tags = core.CleanStrings(e.Tags)
	e.Requirements = core.CleanStrings(e.Requirements)
	if e.Status == "" {
		e.Status = StatusComingSoon
	}
	e.CreatedAt = core.Now()
	return svc.repo.CreateEvent(ctx, e)
}

// Register records a registration of reg.MemberID to reg.EventID, charging the event fee.
func (svc *service) Register(ctx context.Context, reg Registration) (Registration, error) {
	evt, err := svc.repo.GetEvent(ctx, reg.EventID, reg.MemberID)
	if err != nil {
		return Registration{}, err
	}
	if evt.Registered {
		return Registration{}, ErrAlreadyRegistered
	}
	now := core.Now()
	if !evt.RegistrationOpen(now) {
		return Registration{}, ErrRegistrationClosed
	}

	reg.Amount = evt.Fee
	reg.CreatedAt = now
	return svc.repo.CreateRegistration(ctx, reg)
}

func (svc *service) Registrations(ctx context.Context, memberID string) ([]Registration, error) {
	return svc.repo.QueryRegistrations(ctx, memberID)
}
