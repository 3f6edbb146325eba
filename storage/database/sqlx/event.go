package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/engsoc/core"
	"github.com/trezcool/engsoc/core/event"
)

type eventRow struct {
	ID                   string     `db:"id"`
	Title                string     `db:"title"`
	Category             string     `db:"category"`
	Status               string     `db:"status"`
	Phase                string     `db:"phase"`
	Level                string     `db:"level"`
	Location             string     `db:"location"`
	Online               bool       `db:"online"`
	Instructor           string     `db:"instructor"`
	Topics               stringList `db:"topics"`
	Schedule             string     `db:"schedule"`
	StartsAt             int64      `db:"starts_at"`
	RegistrationDeadline int64      `db:"registration_deadline"`
	Fee                  float64    `db:"fee"`
	Currency             string     `db:"currency"`
	Capacity             int        `db:"capacity"`
	Description          string     `db:"description"`
	Requirements         stringList `db:"requirements"`
	Tags                 stringList `db:"tags"`
	Priority             string     `db:"priority"`
	CreatedAt            int64      `db:"created_at"`
	Registered           bool       `db:"registered"`
}

func toEventRow(e event.Event) eventRow {
	return eventRow{
		ID:                   e.ID,
		Title:                e.Title,
		Category:             string(e.Category),
		Status:               string(e.Status),
		Phase:                e.Phase,
		Level:                e.Level,
		Location:             e.Location,
		Online:               e.Online,
		Instructor:           e.Instructor,
		Topics:               e.Topics,
		Schedule:             e.Schedule,
		StartsAt:             millis(e.StartsAt),
		RegistrationDeadline: millis(e.RegistrationDeadline),
		Fee:                  e.Fee,
		Currency:             e.Currency,
		Capacity:             e.Capacity,
		Description:          e.Description,
		Requirements:         e.Requirements,
		Tags:                 e.Tags,
		Priority:             e.Priority,
		CreatedAt:            millis(e.CreatedAt),
	}
}

func (r eventRow) event() event.Event {
	return event.Event{
		ID:                   r.ID,
		Title:                r.Title,
		Category:             event.Category(r.Category),
		Status:               event.Status(r.Status),
		Phase:                r.Phase,
		Level:                r.Level,
		Location:             r.Location,
		Online:               r.Online,
		Instructor:           r.Instructor,
		Topics:               r.Topics,
		Schedule:             r.Schedule,
		StartsAt:             fromMillis(r.StartsAt),
		RegistrationDeadline: fromMillis(r.RegistrationDeadline),
		Fee:                  r.Fee,
		Currency:             r.Currency,
		Capacity:             r.Capacity,
		Description:          r.Description,
		Requirements:         r.Requirements,
		Tags:                 r.Tags,
		Priority:             r.Priority,
		CreatedAt:            fromMillis(r.CreatedAt),
		Registered:           r.Registered,
	}
}

type registrationRow struct {
	ID            string      `db:"id"`
	EventID       string      `db:"event_id"`
	MemberID      string      `db:"member_id"`
	FullName      string      `db:"full_name"`
	Email         string      `db:"email"`
	Phone         string      `db:"phone"`
	Institution   string      `db:"institution"`
	SaeID         string      `db:"sae_id"`
	TeamName      null.String `db:"team_name"`
	TeamSize      null.Int    `db:"team_size"`
	PaymentMethod string      `db:"payment_method"`
	Amount        float64     `db:"amount"`
	CreatedAt     int64       `db:"created_at"`
}

func (r registrationRow) registration() event.Registration {
	return event.Registration{
		ID:            r.ID,
		EventID:       r.EventID,
		MemberID:      r.MemberID,
		FullName:      r.FullName,
		Email:         r.Email,
		Phone:         r.Phone,
		Institution:   r.Institution,
		SaeID:         r.SaeID,
		TeamName:      r.TeamName,
		TeamSize:      r.TeamSize,
		PaymentMethod: r.PaymentMethod,
		Amount:        r.Amount,
		CreatedAt:     fromMillis(r.CreatedAt),
	}
}

type eventRepository struct {
	db *sqlx.DB
}

var _ event.Repository = (*eventRepository)(nil) // interface compliance check

func NewEventRepository(db *sqlx.DB) *eventRepository {
	return &eventRepository{db: db}
}

const registeredCol = "EXISTS(SELECT 1 FROM registrations r WHERE r.event_id = e.id AND r.member_id = ?) AS registered"

func (repo eventRepository) QueryEvents(
	ctx context.Context,
	filter event.QueryFilter,
	page core.Page,
	ordering []core.DBOrdering,
) ([]event.Event, int, error) {
	var w where
	w.search(filter.Search, "e.title", "e.location", "e.instructor", "e.topics")
	if len(filter.Categories) > 0 {
		cats := make([]string, 0, len(filter.Categories))
		for _, c := range filter.Categories {
			cats = append(cats, string(c))
		}
		w.add("e.category IN (?)", cats)
	}
	if filter.Status != "" {
		w.add("e.status = ?", string(filter.Status))
	}
	if filter.Online != nil {
		w.add("e.online = ?", *filter.Online)
	}
	if filter.RegisteredBy != "" {
		w.add("e.id IN (SELECT event_id FROM registrations WHERE member_id = ?)", filter.RegisteredBy)
	}
	if filter.Upcoming {
		w.add("e.starts_at > ?", millis(core.Now()))
	}

	var rows []eventRow
	args := append([]interface{}{filter.Viewer}, w.args...)
	total, err := selectPage(
		ctx, repo.db, &rows,
		"SELECT COUNT(*) FROM events e"+w.String(), w.args,
		"SELECT e.*, "+registeredCol+" FROM events e"+w.String()+orderBy(ordering, "e.id"), args,
		page,
	)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying events")
	}

	events := make([]event.Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, row.event())
	}
	return events, total, nil
}

func (repo eventRepository) GetEvent(ctx context.Context, id, viewer string) (event.Event, error) {
	var row eventRow
	q := repo.db.Rebind("SELECT e.*, " + registeredCol + " FROM events e WHERE e.id = ?")
	if err := repo.db.GetContext(ctx, &row, q, viewer, id); err != nil {
		return event.Event{}, trapNoRowsErr(err, event.ErrNotFound, "getting event")
	}
	return row.event(), nil
}

func (repo eventRepository) CreateEvent(ctx context.Context, e event.Event) (event.Event, error) {
	e.ID = newID()
	q := `INSERT INTO events
		(id, title, category, status, phase, level, location, online, instructor, topics, schedule, starts_at,
		 registration_deadline, fee, currency, capacity, description, requirements, tags, priority, created_at)
		VALUES (:id, :title, :category, :status, :phase, :level, :location, :online, :instructor, :topics, :schedule,
		 :starts_at, :registration_deadline, :fee, :currency, :capacity, :description, :requirements, :tags, :priority,
		 :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, toEventRow(e)); err != nil {
		return event.Event{}, errors.Wrap(err, "inserting event")
	}
	return e, nil
}

func (repo eventRepository) CreateRegistration(ctx context.Context, reg event.Registration) (event.Registration, error) {
	reg.ID = newID()
	row := registrationRow{
		ID:            reg.ID,
		EventID:       reg.EventID,
		MemberID:      reg.MemberID,
		FullName:      reg.FullName,
		Email:         reg.Email,
		Phone:         reg.Phone,
		Institution:   reg.Institution,
		SaeID:         reg.SaeID,
		TeamName:      reg.TeamName,
		TeamSize:      reg.TeamSize,
		PaymentMethod: reg.PaymentMethod,
		Amount:        reg.Amount,
		CreatedAt:     millis(reg.CreatedAt),
	}

	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		var count int
		q := tx.Rebind("SELECT COUNT(*) FROM registrations WHERE event_id = ? AND member_id = ?")
		if err := tx.GetContext(ctx, &count, q, reg.EventID, reg.MemberID); err != nil {
			return errors.Wrap(err, "checking registration")
		}
		if count > 0 {
			return event.ErrAlreadyRegistered
		}
		_, err := tx.NamedExecContext(ctx, `INSERT INTO registrations
			(id, event_id, member_id, full_name, email, phone, institution, sae_id, team_name, team_size,
			 payment_method, amount, created_at)
			VALUES (:id, :event_id, :member_id, :full_name, :email, :phone, :institution, :sae_id, :team_name,
			 :team_size, :payment_method, :amount, :created_at)`, row)
		return errors.Wrap(err, "inserting registration")
	})
	if err != nil {
		return event.Registration{}, err
	}
	return reg, nil
}

func (repo eventRepository) QueryRegistrations(ctx context.Context, memberID string) ([]event.Registration, error) {
	var rows []registrationRow
	q := repo.db.Rebind("SELECT * FROM registrations WHERE member_id = ? ORDER BY created_at DESC, id ASC")
	if err := repo.db.SelectContext(ctx, &rows, q, memberID); err != nil {
		return nil, errors.Wrap(err, "querying registrations")
	}
	regs := make([]event.Registration, 0, len(rows))
	for _, row := range rows {
		regs = append(regs, row.registration())
	}
	return regs, nil
}
