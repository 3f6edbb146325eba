package member

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/engsoc/core"
)

// Roles
const (
	RoleMember = "member:"
	RoleAdmin  = "admin:"
)

var AllRoles = []string{RoleMember, RoleAdmin}

type Member struct {
	ID           string    `json:"id"`
	MemberID     string    `json:"member_id"` // society membership ID, eg: M100
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Institution  string    `json:"institution"`
	Roles        []string  `json:"roles"`
	IsActive     bool      `json:"is_active"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

var _ core.Person = Member{}

func (m Member) LogIdentity() (id, username, email string) {
	return m.ID, m.MemberID, m.Email
}

func (m *Member) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	m.PasswordHash = hash
	return nil
}

func (m *Member) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(m.PasswordHash, []byte(pwd))
}

func (m *Member) HasRole(role string) bool {
	for _, r := range m.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (m *Member) IsAdmin() bool {
	return m.HasRole(RoleAdmin)
}

// NewMember contains information needed to create a new Member.
type NewMember struct {
	MemberID        string   `json:"member_id" validate:"required,alphanum,max=20"`
	Name            string   `json:"name" validate:"required"`
	Email           string   `json:"email" validate:"required,basic_email"`
	Institution     string   `json:"institution"`
	Password        string   `json:"password" validate:"required"`
	PasswordConfirm string   `json:"password_confirm" validate:"required,eqfield=Password"`
	Roles           []string `json:"roles" validate:"omitempty,allroles"`
}

func (nm *NewMember) Validate(validate *validator.Validate, svc Service) error {
	nm.MemberID = core.CleanString(nm.MemberID)
	nm.Name = core.CleanString(nm.Name)
	nm.Email = core.CleanString(nm.Email, true /* lower */)
	nm.Institution = core.CleanString(nm.Institution)

	if err := validate.Struct(nm); err != nil {
		return err
	}
	return svc.CheckUniqueness(nm.MemberID, nm.Email)
}

// UpdateMember defines what a member may change on their profile.
type UpdateMember struct {
	Name            string `json:"name"`
	Institution     string `json:"institution"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (um *UpdateMember) Validate(orig Member, validate *validator.Validate) error {
	if name := core.CleanString(um.Name); name != "" {
		um.Name = name
	} else {
		um.Name = orig.Name
	}
	if inst := core.CleanString(um.Institution); inst != "" {
		um.Institution = inst
	} else {
		um.Institution = orig.Institution
	}
	return validate.Struct(um)
}
