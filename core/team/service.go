package team

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/engsoc/core"
)

var (
	ErrNotFound        = errors.New("team not found")
	ErrMemberNotFound  = errors.New("team member not found")
	ErrInviteNotFound  = errors.New("invite not found")
	ErrNotLeader       = errors.New("only the team leader can manage the team")
	ErrRemoveLeader    = errors.New("the team leader cannot be removed")
	ErrAlreadyInvited  = errors.New("this email already has a pending invite")
	ErrAlreadyInTeam   = errors.New("this member is already in the team")
	ErrInviteNotActive = errors.New("only pending invites can be cancelled")
)

type (
	Repository interface {
		QueryTeams(ctx context.Context, memberID string) ([]Team, error)
		GetTeam(ctx context.Context, id string) (Team, error)
		CreateTeam(ctx context.Context, t Team) (Team, error)
		AddMember(ctx context.Context, m Member) error
		UpdateMemberRole(ctx context.Context, teamID, memberID, role string) error
		DeleteMember(ctx context.Context, teamID, memberID string) error
		CreateInvite(ctx context.Context, inv Invite) (Invite, error)
		DeleteInvite(ctx context.Context, teamID, inviteID string) error
	}

	Service interface {
		ListForMember(ctx context.Context, memberID string) ([]Team, error)
		Get(ctx context.Context, id string) (Team, error)
		Create(ctx context.Context, t Team, leader Member) (Team, error)
		Invite(ctx context.Context, teamID, actorID string, ni NewInvite) (Invite, error)
		CancelInvite(ctx context.Context, teamID, actorID, inviteID string) error
		UpdateMemberRole(ctx context.Context, teamID, actorID, memberID, role string) (Team, error)
		RemoveMember(ctx context.Context, teamID, actorID, memberID string) (Team, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// ListForMember returns the teams `memberID` belongs to.
func (svc *service) ListForMember(ctx context.Context, memberID string) ([]Team, error) {
	teams, err := svc.repo.QueryTeams(ctx, memberID)
	if err != nil {
		return nil, errors.Wrap(err, "querying teams")
	}
	return teams, nil
}

func (svc *service) Get(ctx context.Context, id string) (Team, error) {
	return svc.repo.GetTeam(ctx, id)
}

// Create creates a team led by `leader`, who becomes its first member.
func (svc *service) Create(ctx context.Context, t Team, leader Member) (Team, error) {
	now := core.Now()
	t.Name = core.CleanString(t.Name)
	t.LeaderID = leader.MemberID
	t.CreatedAt = now

	t, err := svc.repo.CreateTeam(ctx, t)
	if err != nil {
		return Team{}, errors.Wrap(err, "creating team")
	}
	leader.TeamID = t.ID
	if leader.Role == "" {
		leader.Role = LeaderRole
	}
	leader.Status = MemberActive
	leader.JoinedAt = now
	if err = svc.repo.AddMember(ctx, leader); err != nil {
		return Team{}, errors.Wrap(err, "adding team leader")
	}
	return svc.repo.GetTeam(ctx, t.ID)
}

// leaderTeam returns the team if `actorID` leads it.
func (svc *service) leaderTeam(ctx context.Context, teamID, actorID string) (Team, error) {
	t, err := svc.repo.GetTeam(ctx, teamID)
	if err != nil {
		return Team{}, err
	}
	if !t.IsLeader(actorID) {
		return Team{}, ErrNotLeader
	}
	return t, nil
}

func (svc *service) Invite(ctx context.Context, teamID, actorID string, ni NewInvite) (Invite, error) {
	t, err := svc.leaderTeam(ctx, teamID, actorID)
	if err != nil {
		return Invite{}, err
	}
	if _, ok := t.PendingInvite(ni.Email); ok {
		return Invite{}, core.NewValidationError(ErrAlreadyInvited, core.FieldError{Field: "email", Error: ErrAlreadyInvited.Error()})
	}
	for _, m := range t.Members {
		if m.Email == ni.Email {
			return Invite{}, core.NewValidationError(ErrAlreadyInTeam, core.FieldError{Field: "email", Error: ErrAlreadyInTeam.Error()})
		}
	}

	return svc.repo.CreateInvite(ctx, Invite{
		TeamID:    t.ID,
		Name:      ni.Name,
		Email:     ni.Email,
		Role:      ni.Role,
		Status:    InvitePending,
		InvitedBy: actorID,
		CreatedAt: core.Now(),
	})
}

func (svc *service) CancelInvite(ctx context.Context, teamID, actorID, inviteID string) error {
	t, err := svc.leaderTeam(ctx, teamID, actorID)
	if err != nil {
		return err
	}
	for _, inv := range t.Invites {
		if inv.ID == inviteID {
			if inv.Status != InvitePending {
				return ErrInviteNotActive
			}
			return svc.repo.DeleteInvite(ctx, t.ID, inv.ID)
		}
	}
	return ErrInviteNotFound
}

func (svc *service) UpdateMemberRole(ctx context.Context, teamID, actorID, memberID, role string) (Team, error) {
	t, err := svc.leaderTeam(ctx, teamID, actorID)
	if err != nil {
		return Team{}, err
	}
	if !t.HasMember(memberID) {
		return Team{}, ErrMemberNotFound
	}
	if err = svc.repo.UpdateMemberRole(ctx, t.ID, memberID, role); err != nil {
		return Team{}, errors.Wrap(err, "updating member role")
	}
	return svc.repo.GetTeam(ctx, t.ID)
}

func (svc *service) RemoveMember(ctx context.Context, teamID, actorID, memberID string) (Team, error) {
	t, err := svc.leaderTeam(ctx, teamID, actorID)
	if err != nil {
		return Team{}, err
	}
	if t.IsLeader(memberID) {
		return Team{}, ErrRemoveLeader
	}
	if !t.HasMember(memberID) {
		return Team{}, ErrMemberNotFound
	}
	if err = svc.repo.DeleteMember(ctx, t.ID, memberID); err != nil {
		return Team{}, errors.Wrap(err, "removing member")
	}
	return svc.repo.GetTeam(ctx, t.ID)
}
