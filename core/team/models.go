package team

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/engsoc/core"
)

const LeaderRole = "Team Leader"

type MemberStatus string

const (
	MemberActive   MemberStatus = "active"
	MemberInactive MemberStatus = "inactive"
)

type InviteStatus string

const (
	InvitePending  InviteStatus = "pending"
	InviteAccepted InviteStatus = "accepted"
	InviteDeclined InviteStatus = "declined"
	InviteExpired  InviteStatus = "expired"
)

type Team struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	CompetitionID string    `json:"competition_id"`
	Description   string    `json:"description"`
	LeaderID      string    `json:"leader_id"`
	CreatedAt     time.Time `json:"created_at"`
	Members       []Member  `json:"members"`
	Invites       []Invite  `json:"invites"`
}

// Member is a society member's membership of a team.
type Member struct {
	TeamID   string       `json:"team_id"`
	MemberID string       `json:"member_id"`
	Name     string       `json:"name"`
	Email    string       `json:"email"`
	Role     string       `json:"role"` // eg: Design Engineer
	Status   MemberStatus `json:"status"`
	JoinedAt time.Time    `json:"joined_at"`
}

type Invite struct {
	ID        string       `json:"id"`
	TeamID    string       `json:"team_id"`
	Name      string       `json:"name"`
	Email     string       `json:"email"`
	Role      string       `json:"role"`
	Status    InviteStatus `json:"status"`
	InvitedBy string       `json:"invited_by"`
	CreatedAt time.Time    `json:"created_at"`
}

func (t Team) IsLeader(memberID string) bool {
	return t.LeaderID == memberID
}

func (t Team) HasMember(memberID string) bool {
	for _, m := range t.Members {
		if m.MemberID == memberID {
			return true
		}
	}
	return false
}

func (t Team) PendingInvite(email string) (Invite, bool) {
	for _, inv := range t.Invites {
		if inv.Status == InvitePending && inv.Email == email {
			return inv, true
		}
	}
	return Invite{}, false
}

// NewInvite is the team invitation form.
type NewInvite struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,basic_email"`
	Role  string `json:"role" validate:"required"`
}

func (ni *NewInvite) Validate(validate *validator.Validate) error {
	ni.Name = core.CleanString(ni.Name)
	ni.Email = core.CleanString(ni.Email, true /* lower */)
	ni.Role = core.CleanString(ni.Role)
	return validate.Struct(ni)
}

type UpdateRole struct {
	Role string `json:"role" validate:"required"`
}

func (ur *UpdateRole) Validate(validate *validator.Validate) error {
	ur.Role = core.CleanString(ur.Role)
	return validate.Struct(ur)
}
