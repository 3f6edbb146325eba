package event

import (
	"strings"
	"time"

	"github.com/volatiletech/null/v8"
)

type Category string

const (
	CategoryCompetition Category = "Competition"
	CategoryWorkshop    Category = "Workshop"
	CategoryMasterclass Category = "Masterclass"
	CategoryConference  Category = "Conference"
)

var AllCategories = []Category{CategoryCompetition, CategoryWorkshop, CategoryMasterclass, CategoryConference}

type Status string

const (
	StatusOpen       Status = "open"
	StatusComingSoon Status = "coming_soon"
	StatusClosed     Status = "closed"
)

// Payment methods accepted on the registration screen.
const (
	PaymentCredit     = "credit"
	PaymentUPI        = "upi"
	PaymentNetbanking = "netbanking"
)

var PaymentMethods = []string{PaymentCredit, PaymentUPI, PaymentNetbanking}

type Event struct {
	ID                   string    `json:"id"`
	Title                string    `json:"title"`
	Category             Category  `json:"category"`
	Status               Status    `json:"status"`
	Phase                string    `json:"phase"`
	Level                string    `json:"level"`
	Location             string    `json:"location"`
	Online               bool      `json:"online"`
	Instructor           string    `json:"instructor"`
	Topics               []string  `json:"topics"`
	Schedule             string    `json:"schedule"`
	StartsAt             time.Time `json:"starts_at"`             // UTC
	RegistrationDeadline time.Time `json:"registration_deadline"` // UTC, zero: until it starts
	Fee                  float64   `json:"fee"`
	Currency             string    `json:"currency"`
	Capacity             int       `json:"capacity"`
	Description          string    `json:"description"`
	Requirements         []string  `json:"requirements"`
	Tags                 []string  `json:"tags"`
	Priority             string    `json:"priority"`
	CreatedAt            time.Time `json:"created_at"`

	// Registered tells whether the requesting member is registered. Not stored.
	Registered bool `json:"registered"`
}

// RegistrationOpen tells whether members may still register at `now`.
func (e Event) RegistrationOpen(now time.Time) bool {
	if e.Status != StatusOpen {
		return false
	}
	deadline := e.RegistrationDeadline
	if deadline.IsZero() {
		deadline = e.StartsAt
	}
	return deadline.IsZero() || now.Before(deadline)
}

// Registration is a member's completed registration to an event.
type Registration struct {
	ID            string      `json:"id"`
	EventID       string      `json:"event_id"`
	MemberID      string      `json:"member_id"`
	FullName      string      `json:"full_name"`
	Email         string      `json:"email"`
	Phone         string      `json:"phone"`
	Institution   string      `json:"institution"`
	SaeID         string      `json:"sae_id"`
	TeamName      null.String `json:"team_name"`
	TeamSize      null.Int    `json:"team_size"`
	PaymentMethod string      `json:"payment_method"`
	Amount        float64     `json:"amount"`
	CreatedAt     time.Time   `json:"created_at"`
}

// QueryFilter narrows a listing of events. Empty fields do not filter.
type QueryFilter struct {
	Search       string // title, location, instructor or topics
	Categories   []Category
	Status       Status
	Online       *bool
	RegisteredBy string // member ID
	Upcoming     bool   // not started yet, soonest first

	// Viewer is the member whose registrations set Event.Registered.
	Viewer string
}

func (f *QueryFilter) Clean() {
	f.Search = strings.ToLower(strings.TrimSpace(f.Search))
	cats := f.Categories[:0]
	for _, c := range f.Categories {
		for _, known := range AllCategories {
			if strings.EqualFold(string(c), string(known)) {
				cats = append(cats, known)
				break
			}
		}
	}
	f.Categories = cats
}
