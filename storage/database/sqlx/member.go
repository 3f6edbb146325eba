package sqlxrepos

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/engsoc/core/member"
)

type memberRow struct {
	ID           string     `db:"id"`
	MemberID     string     `db:"member_id"`
	Name         string     `db:"name"`
	Email        string     `db:"email"`
	Institution  string     `db:"institution"`
	Roles        stringList `db:"roles"`
	IsActive     bool       `db:"is_active"`
	PasswordHash string     `db:"password_hash"`
	CreatedAt    int64      `db:"created_at"`
	UpdatedAt    int64      `db:"updated_at"`
	LastLogin    int64      `db:"last_login"`
}

func toMemberRow(m member.Member) memberRow {
	return memberRow{
		ID:           m.ID,
		MemberID:     m.MemberID,
		Name:         m.Name,
		Email:        m.Email,
		Institution:  m.Institution,
		Roles:        m.Roles,
		IsActive:     m.IsActive,
		PasswordHash: string(m.PasswordHash),
		CreatedAt:    millis(m.CreatedAt),
		UpdatedAt:    millis(m.UpdatedAt),
		LastLogin:    millis(m.LastLogin),
	}
}

func (r memberRow) member() member.Member {
	m := member.Member{
		ID:           r.ID,
		MemberID:     r.MemberID,
		Name:         r.Name,
		Email:        r.Email,
		Institution:  r.Institution,
		Roles:        r.Roles,
		IsActive:     r.IsActive,
		CreatedAt:    fromMillis(r.CreatedAt),
		UpdatedAt:    fromMillis(r.UpdatedAt),
		LastLogin:    fromMillis(r.LastLogin),
	}
	if r.PasswordHash != "" {
		m.PasswordHash = []byte(r.PasswordHash)
	}
	return m
}

type memberRepository struct {
	db *sqlx.DB
}

var _ member.Repository = (*memberRepository)(nil) // interface compliance check

func NewMemberRepository(db *sqlx.DB) *memberRepository {
	return &memberRepository{db: db}
}

func (repo memberRepository) CheckUniqueness(ctx context.Context, memberID, email string, excluded ...member.Member) error {
	var w where
	w.add("(member_id = ? OR email = ?)", memberID, email)
	if len(excluded) > 0 {
		ids := make([]string, 0, len(excluded))
		for _, m := range excluded {
			ids = append(ids, m.ID)
		}
		w.add("id NOT IN (?)", ids)
	}

	q, args, err := sqlx.In("SELECT member_id, email FROM members"+w.String(), w.args...)
	if err != nil {
		return errors.Wrap(err, "expanding uniqueness query")
	}
	var rows []memberRow
	if err = repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "checking member uniqueness")
	}
	for _, row := range rows {
		if row.MemberID == memberID {
			return member.ErrMemberIDExists
		}
	}
	if len(rows) > 0 {
		return member.ErrEmailExists
	}
	return nil
}

func (repo memberRepository) CreateMember(ctx context.Context, m member.Member) (member.Member, error) {
	m.ID = newID()
	q := `INSERT INTO members
		(id, member_id, name, email, institution, roles, is_active, password_hash, created_at, updated_at, last_login)
		VALUES (:id, :member_id, :name, :email, :institution, :roles, :is_active, :password_hash, :created_at, :updated_at, :last_login)`
	if _, err := repo.db.NamedExecContext(ctx, q, toMemberRow(m)); err != nil {
		return member.Member{}, errors.Wrap(err, "inserting member")
	}
	return m, nil
}

func (repo memberRepository) GetMember(ctx context.Context, filter member.GetFilter) (member.Member, error) {
	var (
		row  memberRow
		q    = "SELECT * FROM members WHERE "
		args []interface{}
	)
	switch {
	case filter.ID != "":
		q += "id = ?"
		args = append(args, filter.ID)
	case filter.MemberIDOrEmail != "":
		q += "member_id = ? OR email = ?"
		args = append(args, filter.MemberIDOrEmail, strings.ToLower(filter.MemberIDOrEmail))
	default:
		return member.Member{}, member.ErrNotFound
	}

	if err := repo.db.GetContext(ctx, &row, repo.db.Rebind(q), args...); err != nil {
		return member.Member{}, trapNoRowsErr(err, member.ErrNotFound, "getting member")
	}
	return row.member(), nil
}

func (repo memberRepository) UpdateMember(ctx context.Context, m member.Member) (member.Member, error) {
	q := `UPDATE members SET
		name = :name, institution = :institution, roles = :roles, is_active = :is_active,
		password_hash = :password_hash, updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, toMemberRow(m))
	if err != nil {
		return member.Member{}, errors.Wrap(err, "updating member")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return member.Member{}, member.ErrNotFound
	}
	return m, nil
}
