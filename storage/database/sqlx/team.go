package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/engsoc/core/team"
)

type teamRow struct {
	ID            string      `db:"id"`
	Name          string      `db:"name"`
	CompetitionID null.String `db:"competition_id"`
	Description   string      `db:"description"`
	LeaderID      string      `db:"leader_id"`
	CreatedAt     int64       `db:"created_at"`
}

type teamMemberRow struct {
	TeamID   string `db:"team_id"`
	MemberID string `db:"member_id"`
	Name     string `db:"name"`
	Email    string `db:"email"`
	Role     string `db:"role"`
	Status   string `db:"status"`
	JoinedAt int64  `db:"joined_at"`
}

type inviteRow struct {
	ID        string `db:"id"`
	TeamID    string `db:"team_id"`
	Name      string `db:"name"`
	Email     string `db:"email"`
	Role      string `db:"role"`
	Status    string `db:"status"`
	InvitedBy string `db:"invited_by"`
	CreatedAt int64  `db:"created_at"`
}

type teamRepository struct {
	db *sqlx.DB
}

var _ team.Repository = (*teamRepository)(nil) // interface compliance check

func NewTeamRepository(db *sqlx.DB) *teamRepository {
	return &teamRepository{db: db}
}

func (repo teamRepository) QueryTeams(ctx context.Context, memberID string) ([]team.Team, error) {
	var rows []teamRow
	q := repo.db.Rebind(`SELECT t.* FROM teams t
		WHERE t.id IN (SELECT team_id FROM team_members WHERE member_id = ?)
		ORDER BY t.created_at DESC, t.id ASC`)
	if err := repo.db.SelectContext(ctx, &rows, q, memberID); err != nil {
		return nil, errors.Wrap(err, "querying teams")
	}

	teams := make([]team.Team, 0, len(rows))
	for _, row := range rows {
		t, err := repo.load(ctx, row)
		if err != nil {
			return nil, err
		}
		teams = append(teams, t)
	}
	return teams, nil
}

func (repo teamRepository) GetTeam(ctx context.Context, id string) (team.Team, error) {
	var row teamRow
	if err := repo.db.GetContext(ctx, &row, repo.db.Rebind("SELECT * FROM teams WHERE id = ?"), id); err != nil {
		return team.Team{}, trapNoRowsErr(err, team.ErrNotFound, "getting team")
	}
	return repo.load(ctx, row)
}

// load converts the row and loads the team's members and invites.
func (repo teamRepository) load(ctx context.Context, row teamRow) (team.Team, error) {
	t := team.Team{
		ID:            row.ID,
		Name:          row.Name,
		CompetitionID: row.CompetitionID.String,
		Description:   row.Description,
		LeaderID:      row.LeaderID,
		CreatedAt:     fromMillis(row.CreatedAt),
	}

	var members []teamMemberRow
	q := repo.db.Rebind(`SELECT tm.team_id, tm.member_id, m.name, m.email, tm.role, tm.status, tm.joined_at
		FROM team_members tm JOIN members m ON m.id = tm.member_id
		WHERE tm.team_id = ? ORDER BY tm.joined_at ASC, tm.member_id ASC`)
	if err := repo.db.SelectContext(ctx, &members, q, row.ID); err != nil {
		return team.Team{}, errors.Wrap(err, "querying team members")
	}
	t.Members = make([]team.Member, 0, len(members))
	for _, m := range members {
		t.Members = append(t.Members, team.Member{
			TeamID:   m.TeamID,
			MemberID: m.MemberID,
			Name:     m.Name,
			Email:    m.Email,
			Role:     m.Role,
			Status:   team.MemberStatus(m.Status),
			JoinedAt: fromMillis(m.JoinedAt),
		})
	}

	var invites []inviteRow
	q = repo.db.Rebind("SELECT * FROM team_invites WHERE team_id = ? ORDER BY created_at ASC, id ASC")
	if err := repo.db.SelectContext(ctx, &invites, q, row.ID); err != nil {
		return team.Team{}, errors.Wrap(err, "querying team invites")
	}
	t.Invites = make([]team.Invite, 0, len(invites))
	for _, inv := range invites {
		t.Invites = append(t.Invites, team.Invite{
			ID:        inv.ID,
			TeamID:    inv.TeamID,
			Name:      inv.Name,
			Email:     inv.Email,
			Role:      inv.Role,
			Status:    team.InviteStatus(inv.Status),
			InvitedBy: inv.InvitedBy,
			CreatedAt: fromMillis(inv.CreatedAt),
		})
	}
	return t, nil
}

func (repo teamRepository) CreateTeam(ctx context.Context, t team.Team) (team.Team, error) {
	t.ID = newID()
	row := teamRow{
		ID:            t.ID,
		Name:          t.Name,
		CompetitionID: null.NewString(t.CompetitionID, t.CompetitionID != ""),
		Description:   t.Description,
		LeaderID:      t.LeaderID,
		CreatedAt:     millis(t.CreatedAt),
	}
	q := `INSERT INTO teams (id, name, competition_id, description, leader_id, created_at)
		VALUES (:id, :name, :competition_id, :description, :leader_id, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return team.Team{}, errors.Wrap(err, "inserting team")
	}
	return t, nil
}

func (repo teamRepository) AddMember(ctx context.Context, m team.Member) error {
	q := `INSERT INTO team_members (team_id, member_id, role, status, joined_at)
		VALUES (:team_id, :member_id, :role, :status, :joined_at)`
	row := teamMemberRow{
		TeamID:   m.TeamID,
		MemberID: m.MemberID,
		Role:     m.Role,
		Status:   string(m.Status),
		JoinedAt: millis(m.JoinedAt),
	}
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return errors.Wrap(err, "inserting team member")
	}
	return nil
}

func (repo teamRepository) UpdateMemberRole(ctx context.Context, teamID, memberID, role string) error {
	q := repo.db.Rebind("UPDATE team_members SET role = ? WHERE team_id = ? AND member_id = ?")
	res, err := repo.db.ExecContext(ctx, q, role, teamID, memberID)
	if err != nil {
		return errors.Wrap(err, "updating team member")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return team.ErrMemberNotFound
	}
	return nil
}

func (repo teamRepository) DeleteMember(ctx context.Context, teamID, memberID string) error {
	q := repo.db.Rebind("DELETE FROM team_members WHERE team_id = ? AND member_id = ?")
	res, err := repo.db.ExecContext(ctx, q, teamID, memberID)
	if err != nil {
		return errors.Wrap(err, "deleting team member")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return team.ErrMemberNotFound
	}
	return nil
}

func (repo teamRepository) CreateInvite(ctx context.Context, inv team.Invite) (team.Invite, error) {
	inv.ID = newID()
	row := inviteRow{
		ID:        inv.ID,
		TeamID:    inv.TeamID,
		Name:      inv.Name,
		Email:     inv.Email,
		Role:      inv.Role,
		Status:    string(inv.Status),
		InvitedBy: inv.InvitedBy,
		CreatedAt: millis(inv.CreatedAt),
	}
	q := `INSERT INTO team_invites (id, team_id, name, email, role, status, invited_by, created_at)
		VALUES (:id, :team_id, :name, :email, :role, :status, :invited_by, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return team.Invite{}, errors.Wrap(err, "inserting invite")
	}
	return inv, nil
}

func (repo teamRepository) DeleteInvite(ctx context.Context, teamID, inviteID string) error {
	q := repo.db.Rebind("DELETE FROM team_invites WHERE team_id = ? AND id = ?")
	res, err := repo.db.ExecContext(ctx, q, teamID, inviteID)
	if err != nil {
		return errors.Wrap(err, "deleting invite")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return team.ErrInviteNotFound
	}
	return nil
}
