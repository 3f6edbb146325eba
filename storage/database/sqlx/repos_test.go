package sqlxrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/engsoc/core"
	"github.com/trezcool/engsoc/core/competition"
	"github.com/trezcool/engsoc/core/event"
	"github.com/trezcool/engsoc/core/member"
	"github.com/trezcool/engsoc/core/notification"
	"github.com/trezcool/engsoc/core/resource"
	"github.com/trezcool/engsoc/core/team"
	testutil "github.com/trezcool/engsoc/tests"
)

var firstPage = core.Page{Number: 1, Size: 20}

func TestMemberRepository(t *testing.T) {
	ctx := context.Background()
	repos := testutil.Repositories(testutil.PrepareDB(t))
	ada := testutil.CreateMember(t, repos.Member, "M100", "Ada Lovelace", "ada@test.io", "")

	t.Run("uniqueness", func(t *testing.T) {
		assert.Equal(t, member.ErrMemberIDExists, repos.Member.CheckUniqueness(ctx, "M100", "other@test.io"))
		assert.Equal(t, member.ErrEmailExists, repos.Member.CheckUniqueness(ctx, "M200", "ada@test.io"))
		assert.NoError(t, repos.Member.CheckUniqueness(ctx, "M200", "other@test.io"))
		assert.NoError(t, repos.Member.CheckUniqueness(ctx, "M100", "ada@test.io", ada))
	})

	t.Run("get", func(t *testing.T) {
		got, err := repos.Member.GetMember(ctx, member.GetFilter{ID: ada.ID})
		require.NoError(t, err)
		assert.Equal(t, ada, got)

		got, err = repos.Member.GetMember(ctx, member.GetFilter{MemberIDOrEmail: "ADA@test.io"})
		require.NoError(t, err)
		assert.Equal(t, ada.ID, got.ID)

		_, err = repos.Member.GetMember(ctx, member.GetFilter{MemberIDOrEmail: "M999"})
		assert.Equal(t, member.ErrNotFound, err)
	})

	t.Run("update", func(t *testing.T) {
		ada.Institution = "Analytical Engine Institute"
		ada.LastLogin = core.Now()
		_, err := repos.Member.UpdateMember(ctx, ada)
		require.NoError(t, err)
		got, err := repos.Member.GetMember(ctx, member.GetFilter{ID: ada.ID})
		require.NoError(t, err)
		assert.Equal(t, ada, got)

		_, err = repos.Member.UpdateMember(ctx, member.Member{ID: "missing"})
		assert.Equal(t, member.ErrNotFound, err)
	})
}

func TestEventRepository(t *testing.T) {
	ctx := context.Background()
	repos := testutil.Repositories(testutil.PrepareDB(t))
	ada := testutil.CreateMember(t, repos.Member, "M100", "Ada Lovelace", "ada@test.io", "")

	cad := testutil.CreateEvent(t, repos.Event, "Advanced CAD Design", event.CategoryWorkshop, event.StatusOpen, 48*time.Hour)
	fea := testutil.CreateEvent(t, repos.Event, "FEA Fundamentals", event.CategoryMasterclass, event.StatusOpen, 24*time.Hour)
	past := testutil.CreateEvent(t, repos.Event, "EV Conference", event.CategoryConference, event.StatusClosed, -24*time.Hour)

	_, err := repos.Event.CreateRegistration(ctx, event.Registration{
		EventID: cad.ID, MemberID: ada.ID, FullName: "Ada Lovelace", Email: "ada@test.io",
		Phone: "+91 9000000000", Institution: "AEI", SaeID: "SAE-1", TeamName: null.StringFrom("Engines"),
		PaymentMethod: event.PaymentUPI, Amount: 500, CreatedAt: core.Now(),
	})
	require.NoError(t, err)

	_, err = repos.Event.CreateRegistration(ctx, event.Registration{EventID: cad.ID, MemberID: ada.ID, CreatedAt: core.Now()})
	assert.Equal(t, event.ErrAlreadyRegistered, err)

	ids := func(events []event.Event) []string {
		out := make([]string, 0, len(events))
		for _, e := range events {
			out = append(out, e.ID)
		}
		return out
	}
	asc := []core.DBOrdering{{Field: "starts_at", Ascending: true}}

	tests := []struct {
		name   string
		filter event.QueryFilter
		want   []string
	}{
		{name: "all", filter: event.QueryFilter{}, want: []string{past.ID, fea.ID, cad.ID}},
		{name: "search title", filter: event.QueryFilter{Search: "cad"}, want: []string{cad.ID}},
		{name: "categories", filter: event.QueryFilter{Categories: []event.Category{event.CategoryWorkshop, event.CategoryConference}}, want: []string{past.ID, cad.ID}},
		{name: "status", filter: event.QueryFilter{Status: event.StatusClosed}, want: []string{past.ID}},
		{name: "upcoming", filter: event.QueryFilter{Upcoming: true}, want: []string{fea.ID, cad.ID}},
		{name: "registered", filter: event.QueryFilter{RegisteredBy: ada.ID}, want: []string{cad.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, total, err := repos.Event.QueryEvents(ctx, tt.filter, firstPage, asc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(events))
			assert.Equal(t, len(tt.want), total)
		})
	}

	t.Run("paginated", func(t *testing.T) {
		events, total, err := repos.Event.QueryEvents(ctx, event.QueryFilter{}, core.Page{Number: 2, Size: 2}, asc)
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		assert.Equal(t, []string{cad.ID}, ids(events))
	})

	t.Run("registered flag", func(t *testing.T) {
		got, err := repos.Event.GetEvent(ctx, cad.ID, ada.ID)
		require.NoError(t, err)
		assert.True(t, got.Registered)
		got, err = repos.Event.GetEvent(ctx, fea.ID, ada.ID)
		require.NoError(t, err)
		assert.False(t, got.Registered)
		_, err = repos.Event.GetEvent(ctx, "missing", ada.ID)
		assert.Equal(t, event.ErrNotFound, err)
	})

	t.Run("registrations", func(t *testing.T) {
		regs, err := repos.Event.QueryRegistrations(ctx, ada.ID)
		require.NoError(t, err)
		require.Len(t, regs, 1)
		assert.Equal(t, "Engines", regs[0].TeamName.String)
		assert.False(t, regs[0].TeamSize.Valid)
	})
}

func TestResourceRepository(t *testing.T) {
	ctx := context.Background()
	repos := testutil.Repositories(testutil.PrepareDB(t))

	create := func(title string, typ resource.Type, category string, featured bool, tags ...string) resource.Resource {
		r, err := repos.Resource.CreateResource(ctx, resource.Resource{
			Title: title, Type: typ, Category: category, Featured: featured, Tags: tags, UploadedAt: core.Now(),
		})
		require.NoError(t, err)
		return r
	}
	rules := create("BAJA Rulebook 2026", resource.TypeDocument, "Rules", true, "baja", "rules")
	create("Report Template", resource.TypeTemplate, "Templates", false)
	video := create("Suspension Tuning", resource.TypeVideo, "Design", false, "suspension")

	featured := true
	tests := []struct {
		name   string
		filter resource.QueryFilter
		want   int
	}{
		{name: "all", want: 3},
		{name: "search tags", filter: resource.QueryFilter{Search: "suspension"}, want: 1},
		{name: "category", filter: resource.QueryFilter{Category: "rules"}, want: 1},
		{name: "type", filter: resource.QueryFilter{Type: resource.TypeVideo}, want: 1},
		{name: "featured", filter: resource.QueryFilter{Featured: &featured}, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, total, err := repos.Resource.QueryResources(ctx, tt.filter, firstPage, []core.DBOrdering{{Field: "title", Ascending: true}})
			require.NoError(t, err)
			assert.Len(t, res, tt.want)
			assert.Equal(t, tt.want, total)
		})
	}

	got, err := repos.Resource.GetResource(ctx, rules.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"baja", "rules"}, got.Tags)
	got, err = repos.Resource.GetResource(ctx, video.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"suspension"}, got.Tags)
}

func TestCompetitionRepository(t *testing.T) {
	ctx := context.Background()
	repos := testutil.Repositories(testutil.PrepareDB(t))
	ada := testutil.CreateMember(t, repos.Member, "M100", "Ada Lovelace", "ada@test.io", "")
	comp := testutil.CreateCompetition(t, repos.Competition, "BAJA SAE India", 72*time.Hour)
	dl := comp.Deadlines[0]
	tm := testutil.CreateTeam(t, repos.Team, "Thunderbolts", ada)

	got, err := repos.Competition.GetCompetition(ctx, comp.ID)
	require.NoError(t, err)
	require.Len(t, got.Deadlines, 1)
	assert.Equal(t, []string{"PDF", "DOCX"}, got.Deadlines[0].Formats)

	sub, err := repos.Competition.CreateSubmission(ctx, competition.Submission{
		Title: "Chassis Design Report", CompetitionID: comp.ID, DeadlineID: dl.ID, MemberID: ada.ID,
		TeamID: null.StringFrom(tm.ID), Status: competition.StatusPending,
		SubmittedAt: null.TimeFrom(core.Now()), CreatedAt: core.Now(),
		Files: []competition.File{
			{Name: "report.pdf", Size: 2 << 20, Type: "application/pdf", ContentID: "c1"},
			{Name: "annex.docx", Size: 1 << 20, Type: "application/msword", ContentID: "c2"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "BAJA SAE India", sub.CompetitionName)
	assert.Equal(t, "Technical Report", sub.DeadlineTitle)
	assert.Equal(t, "Thunderbolts", sub.TeamName.String)
	require.Len(t, sub.Files, 2)
	assert.Equal(t, "annex.docx", sub.Files[0].Name)
	assert.True(t, sub.SubmittedAt.Valid)

	subs, total, err := repos.Competition.QuerySubmissions(ctx, competition.QueryFilter{MemberID: ada.ID, Search: "thunder"}, firstPage, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, subs, 1)
	assert.Len(t, subs[0].Files, 2)

	_, total, err = repos.Competition.QuerySubmissions(ctx, competition.QueryFilter{Status: competition.StatusApproved}, firstPage, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, total)

	reviewed, err := repos.Competition.ReviewSubmission(ctx, sub.ID, competition.StatusApproved, null.StringFrom("Great work"))
	require.NoError(t, err)
	assert.Equal(t, competition.StatusApproved, reviewed.Status)
	assert.Equal(t, "Great work", reviewed.Feedback.String)

	counts, err := repos.Competition.CountSubmissions(ctx, ada.ID)
	require.NoError(t, err)
	assert.Equal(t, map[competition.SubmissionStatus]int{competition.StatusApproved: 1}, counts)

	_, err = repos.Competition.GetDeadline(ctx, "missing")
	assert.Equal(t, competition.ErrDeadlineNotFound, err)
}

func TestTeamRepository(t *testing.T) {
	ctx := context.Background()
	repos := testutil.Repositories(testutil.PrepareDB(t))
	ada := testutil.CreateMember(t, repos.Member, "M100", "Ada Lovelace", "ada@test.io", "")
	alan := testutil.CreateMember(t, repos.Member, "M101", "Alan Turing", "alan@test.io", "")
	tm := testutil.CreateTeam(t, repos.Team, "Thunderbolts", ada, alan)

	require.Len(t, tm.Members, 2)
	assert.Equal(t, "Ada Lovelace", tm.Members[0].Name)

	teams, err := repos.Team.QueryTeams(ctx, alan.ID)
	require.NoError(t, err)
	require.Len(t, teams, 1)

	inv, err := repos.Team.CreateInvite(ctx, team.Invite{
		TeamID: tm.ID, Name: "Grace", Email: "grace@test.io", Role: "Electrical Lead",
		Status: team.InvitePending, InvitedBy: ada.ID, CreatedAt: core.Now(),
	})
	require.NoError(t, err)

	require.NoError(t, repos.Team.UpdateMemberRole(ctx, tm.ID, alan.ID, "Powertrain Lead"))
	got, err := repos.Team.GetTeam(ctx, tm.ID)
	require.NoError(t, err)
	assert.Equal(t, "Powertrain Lead", got.Members[1].Role)
	require.Len(t, got.Invites, 1)

	require.NoError(t, repos.Team.DeleteInvite(ctx, tm.ID, inv.ID))
	assert.Equal(t, team.ErrInviteNotFound, repos.Team.DeleteInvite(ctx, tm.ID, inv.ID))
	require.NoError(t, repos.Team.DeleteMember(ctx, tm.ID, alan.ID))
	assert.Equal(t, team.ErrMemberNotFound, repos.Team.DeleteMember(ctx, tm.ID, alan.ID))

	teams, err = repos.Team.QueryTeams(ctx, alan.ID)
	require.NoError(t, err)
	assert.Empty(t, teams)
}

func TestNotificationRepository(t *testing.T) {
	ctx := context.Background()
	repos := testutil.Repositories(testutil.PrepareDB(t))
	ada := testutil.CreateMember(t, repos.Member, "M100", "Ada Lovelace", "ada@test.io", "")

	first := testutil.CreateNotification(t, repos.Notification, ada.ID, "Report due", notification.TypeDeadline)
	testutil.CreateNotification(t, repos.Notification, ada.ID, "Results out", notification.TypeAnnouncement)
	last := testutil.CreateNotification(t, repos.Notification, ada.ID, "Feedback", notification.TypeFeedback)

	ns, total, err := repos.Notification.QueryNotifications(ctx, notification.QueryFilter{MemberID: ada.ID}, firstPage)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, last.ID, ns[0].ID, "newest first")

	ns, _, err = repos.Notification.QueryNotifications(ctx, notification.QueryFilter{
		MemberID: ada.ID, Types: []notification.Type{notification.TypeAnnouncement, notification.TypeFeedback},
	}, firstPage)
	require.NoError(t, err)
	assert.Len(t, ns, 2)

	n, err := repos.Notification.MarkRead(ctx, ada.ID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	count, err := repos.Notification.CountUnread(ctx, ada.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	n, err = repos.Notification.MarkRead(ctx, ada.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	count, err = repos.Notification.CountUnread(ctx, ada.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	n, err = repos.Notification.MarkRead(ctx, "someone-else", first.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, repos.Notification.DeleteNotification(ctx, ada.ID, first.ID))
	assert.Equal(t, notification.ErrNotFound, repos.Notification.DeleteNotification(ctx, ada.ID, first.ID))
}
