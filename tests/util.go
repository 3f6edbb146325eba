package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/engsoc/core"
	"github.com/trezcool/engsoc/core/competition"
	"github.com/trezcool/engsoc/core/event"
	"github.com/trezcool/engsoc/core/member"
	"github.com/trezcool/engsoc/core/notification"
	"github.com/trezcool/engsoc/core/resource"
	"github.com/trezcool/engsoc/core/team"
	"github.com/trezcool/engsoc/storage/database"
	sqlxrepos "github.com/trezcool/engsoc/storage/database/sqlx"
)

// NopLogger discards everything.
type NopLogger struct{}

var _ core.Logger = NopLogger{}

func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}
func (NopLogger) Fatal(string, ...interface{}) {}

// PrepareDB opens a migrated sqlite database in the test's temp dir, closed on cleanup.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err = database.Migrate(db, NopLogger{}); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

// CreateMember inserts an active member with password `pwd` (bcrypt is skipped when empty).
func CreateMember(t *testing.T, repo member.Repository, memberID, name, email, pwd string, roles ...string) member.Member {
	t.Helper()
	if len(roles) == 0 {
		roles = []string{member.RoleMember}
	}
	now := core.Now()
	m := member.Member{
		MemberID:  memberID,
		Name:      name,
		Email:     email,
		Roles:     roles,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if pwd != "" {
		if err := m.SetPassword(pwd); err != nil {
			t.Fatalf("CreateMember() failed: %v", err)
		}
	}
	m, err := repo.CreateMember(context.Background(), m)
	if err != nil {
		t.Fatalf("CreateMember() failed: %v", err)
	}
	return m
}

// CreateEvent inserts an event starting `in` from now.
func CreateEvent(t *testing.T, repo event.Repository, title string, cat event.Category, status event.Status, in time.Duration) event.Event {
	t.Helper()
	e, err := repo.CreateEvent(context.Background(), event.Event{
		Title:     title,
		Category:  cat,
		Status:    status,
		StartsAt:  core.Now().Add(in),
		Fee:       500,
		Currency:  "INR",
		CreatedAt: core.Now(),
	})
	if err != nil {
		t.Fatalf("CreateEvent() failed: %v", err)
	}
	return e
}

// CreateCompetition inserts a competition with one open deadline accepting PDF and DOCX up to 20 MB.
func CreateCompetition(t *testing.T, repo competition.Repository, name string, dueIn time.Duration) competition.Competition {
	t.Helper()
	c, err := repo.CreateCompetition(context.Background(), competition.Competition{
		Name:      name,
		CreatedAt: core.Now(),
		Deadlines: []competition.Deadline{{
			Title:     "Technical Report",
			DueAt:     core.Now().Add(dueIn),
			Status:    competition.DeadlineOpen,
			Formats:   []string{"PDF", "DOCX"},
			MaxSizeMB: 20,
		}},
	})
	if err != nil {
		t.Fatalf("CreateCompetition() failed: %v", err)
	}
	return c
}

// CreateTeam inserts a team led by `leader`.
func CreateTeam(t *testing.T, repo team.Repository, name string, leader member.Member, others ...member.Member) team.Team {
	t.Helper()
	ctx := context.Background()
	tm, err := repo.CreateTeam(ctx, team.Team{Name: name, LeaderID: leader.ID, CreatedAt: core.Now()})
	if err != nil {
		t.Fatalf("CreateTeam() failed: %v", err)
	}
	joined := core.Now()
	add := func(m member.Member, role string) {
		joined = joined.Add(time.Millisecond) // keeps the members in order
		err := repo.AddMember(ctx, team.Member{
			TeamID: tm.ID, MemberID: m.ID, Role: role, Status: team.MemberActive, JoinedAt: joined,
		})
		if err != nil {
			t.Fatalf("CreateTeam() failed: %v", err)
		}
	}
	add(leader, team.LeaderRole)
	for _, m := range others {
		add(m, "Design Engineer")
	}
	tm, err = repo.GetTeam(ctx, tm.ID)
	if err != nil {
		t.Fatalf("CreateTeam() failed: %v", err)
	}
	return tm
}

func CreateNotification(t *testing.T, repo notification.Repository, memberID, title string, typ notification.Type) notification.Notification {
	t.Helper()
	n, err := repo.CreateNotification(context.Background(), notification.Notification{
		MemberID:  memberID,
		Title:     title,
		Type:      typ,
		CreatedAt: core.Now(),
	})
	if err != nil {
		t.Fatalf("CreateNotification() failed: %v", err)
	}
	return n
}

// Repositories returns the sqlx repositories over db.
func Repositories(db *sqlx.DB) Repos {
	return Repos{
		Member:       sqlxrepos.NewMemberRepository(db),
		Event:        sqlxrepos.NewEventRepository(db),
		Resource:     sqlxrepos.NewResourceRepository(db),
		Competition:  sqlxrepos.NewCompetitionRepository(db),
		Team:         sqlxrepos.NewTeamRepository(db),
		Notification: sqlxrepos.NewNotificationRepository(db),
	}
}

type Repos struct {
	Member       member.Repository
	Event        event.Repository
	Resource     resource.Repository
	Competition  competition.Repository
	Team         team.Repository
	Notification notification.Repository
}
