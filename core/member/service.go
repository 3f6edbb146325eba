package member

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/engsoc/core"
)

var (
	// errors
	ErrNotFound             = errors.New("member not found")
	ErrEmailExists          = errors.New("a member with this email already exists")
	ErrMemberIDExists       = errors.New("a member with this member ID already exists")
	ErrAuthenticationFailed = errors.New("invalid member ID or password")
	ErrAccountDeactivated   = errors.New("account deactivated")
)

type (
	// GetFilter selects one member; the first non-empty field is used.
	GetFilter struct {
		ID              string
		MemberIDOrEmail string
	}

	Repository interface {
		CheckUniqueness(ctx context.Context, memberID, email string, excluded ...Member) error
		CreateMember(ctx context.Context, m Member) (Member, error)
		GetMember(ctx context.Context, filter GetFilter) (Member, error)
		UpdateMember(ctx context.Context, m Member) (Member, error)
	}

	Service interface {
		CheckUniqueness(memberID, email string, excluded ...Member) error
		Create(ctx context.Context, nm NewMember) (Member, error)
		GetByID(ctx context.Context, id string) (Member, error)
		GetByLogin(ctx context.Context, memberIDOrEmail string) (Member, error)
		Authenticate(ctx context.Context, memberIDOrEmail, pwd string) (Member, error)
		Update(ctx context.Context, m Member, um UpdateMember) (Member, error)
		SetPassword(ctx context.Context, m Member, pwd string) (Member, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) CheckUniqueness(memberID, email string, excluded ...Member) error {
	if err := svc.repo.CheckUniqueness(context.Background(), memberID, email, excluded...); err != nil {
		var field string
		switch err {
		case ErrMemberIDExists:
			field = "member_id"
		case ErrEmailExists:
			field = "email"
		default:
			return errors.Wrap(err, "checking uniqueness")
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *service) Create(ctx context.Context, nm NewMember) (Member, error) {
	now := core.Now()
	roles := nm.Roles
	if len(roles) == 0 {
		roles = []string{RoleMember}
	}
	m := Member{
		MemberID:    nm.MemberID,
		Name:        nm.Name,
		Email:       nm.Email,
		Institution: nm.Institution,
		Roles:       roles,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := m.SetPassword(nm.Password); err != nil {
		return Member{}, errors.Wrap(err, "setting password")
	}
	return svc.repo.CreateMember(ctx, m)
}

func (svc *service) GetByID(ctx context.Context, id string) (Member, error) {
	return svc.repo.GetMember(ctx, GetFilter{ID: id})
}

func (svc *service) GetByLogin(ctx context.Context, memberIDOrEmail string) (Member, error) {
	return svc.repo.GetMember(ctx, GetFilter{MemberIDOrEmail: core.CleanString(memberIDOrEmail)})
}

// Authenticate checks the credentials of an active member and records the login.
func (svc *service) Authenticate(ctx context.Context, memberIDOrEmail, pwd string) (Member, error) {
	m, err := svc.GetByLogin(ctx, memberIDOrEmail)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Member{}, ErrAuthenticationFailed
		}
		return Member{}, errors.Wrap(err, "finding member by member ID or email")
	}
	if err = m.CheckPassword(pwd); err != nil {
		return Member{}, ErrAuthenticationFailed
	}
	if !m.IsActive {
		return Member{}, ErrAccountDeactivated
	}

	m.LastLogin = core.Now()
	m, err = svc.repo.UpdateMember(ctx, m)
	if err != nil {
		return Member{}, errors.Wrap(err, "setting lastLogin")
	}
	return m, nil
}

func (svc *service) Update(ctx context.Context, m Member, um UpdateMember) (Member, error) {
	m.Name = um.Name
	m.Institution = um.Institution
	m.UpdatedAt = core.Now()
	if um.Password != "" {
		if err := m.SetPassword(um.Password); err != nil {
			return Member{}, errors.Wrap(err, "setting password")
		}
	}
	return svc.repo.UpdateMember(ctx, m)
}

func (svc *service) SetPassword(ctx context.Context, m Member, pwd string) (Member, error) {
	if err := m.SetPassword(pwd); err != nil {
		return Member{}, errors.Wrap(err, "setting password")
	}
	m.UpdatedAt = core.Now()
	return svc.repo.UpdateMember(ctx, m)
}
