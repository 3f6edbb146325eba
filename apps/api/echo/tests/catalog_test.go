package tests

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/engsoc/core"
	"github.com/trezcool/engsoc/core/competition"
	"github.com/trezcool/engsoc/core/dashboard"
	"github.com/trezcool/engsoc/core/event"
	"github.com/trezcool/engsoc/core/member"
	"github.com/trezcool/engsoc/core/notification"
	"github.com/trezcool/engsoc/core/resource"
	"github.com/trezcool/engsoc/core/upload"
	"github.com/trezcool/engsoc/tests"
)

func register(t *testing.T, e *env, evt event.Event, m member.Member) {
	_, err := event.NewService(e.repos.Event).Register(context.Background(), event.Registration{
		EventID:       evt.ID,
		MemberID:      m.ID,
		FullName:      m.Name,
		Email:         m.Email,
		Phone:         "+91 98765 43210",
		Institution:   "IIT Bombay",
		SaeID:         "SAE-1",
		PaymentMethod: event.PaymentUPI,
	})
	require.NoError(t, err)
}

func eventIDs(events []event.Event) []string {
	ids := make([]string, 0, len(events))
	for _, evt := range events {
		ids = append(ids, evt.ID)
	}
	return ids
}

func Test_catalogApi_queryEvents(t *testing.T) {
	e := setup(t)
	ada := testutil.CreateMember(t, e.repos.Member, "M100", "Ada Lovelace", "ada@test.in", "")
	token := e.token(t, ada)

	workshop := testutil.CreateEvent(t, e.repos.Event, "Suspension Workshop", event.CategoryWorkshop, event.StatusOpen, 48*time.Hour)
	masterclass := testutil.CreateEvent(t, e.repos.Event, "CAD Masterclass", event.CategoryMasterclass, event.StatusOpen, 24*time.Hour)
	past := testutil.CreateEvent(t, e.repos.Event, "Past Conference", event.CategoryConference, event.StatusClosed, -24*time.Hour)
	register(t, e, masterclass, ada)

	path := func(params ...string) string {
		v := make(url.Values)
		for i := 0; i+1 < len(params); i += 2 {
			v.Add(params[i], params[i+1])
		}
		return "/v1/events?" + v.Encode()
	}

	tests := []struct {
		name    string
		path    string
		wantIDs []string
	}{
		{name: "latest first", path: path(), wantIDs: []string{workshop.ID, masterclass.ID, past.ID}},
		{name: "upcoming soonest first", path: path("upcoming", "true"), wantIDs: []string{masterclass.ID, workshop.ID}},
		{name: "category", path: path("category", "workshop"), wantIDs: []string{workshop.ID}},
		{name: "categories", path: path("category", "Workshop", "category", "Conference"), wantIDs: []string{workshop.ID, past.ID}},
		{name: "search", path: path("search", " cad "), wantIDs: []string{masterclass.ID}},
		{name: "status", path: path("status", "closed"), wantIDs: []string{past.ID}},
		{name: "registered", path: path("registered", "true"), wantIDs: []string{masterclass.ID}},
		{name: "ordering", path: path("ordering", "title"), wantIDs: []string{masterclass.ID, past.ID, workshop.ID}},
		{name: "page 2", path: path("page", "2", "page_size", "2"), wantIDs: []string{past.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.serve(http.MethodGet, tt.path, token)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var resp struct {
				Count   int           `json:"count"`
				Results []event.Event `json:"results"`
			}
			decode(t, rec, &resp)
			assert.Equal(t, tt.wantIDs, eventIDs(resp.Results))
		})
	}

	t.Run("invalid page", func(t *testing.T) {
		rec := e.serve(http.MethodGet, path("page", "two"), token)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"page": "page must be a number"}),
		}, rec)
	})

	t.Run("registered flag", func(t *testing.T) {
		rec := e.serve(http.MethodGet, "/v1/events/"+masterclass.ID, token)
		require.Equal(t, http.StatusOK, rec.Code)
		var evt event.Event
		decode(t, rec, &evt)
		assert.True(t, evt.Registered)

		rec = e.serve(http.MethodGet, "/v1/events/unknown", token)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "event not found"})}, rec)
	})

	t.Run("registrations", func(t *testing.T) {
		rec := e.serve(http.MethodGet, "/v1/registrations", token)
		require.Equal(t, http.StatusOK, rec.Code)
		var regs []event.Registration
		decode(t, rec, &regs)
		require.Len(t, regs, 1)
		assert.Equal(t, masterclass.ID, regs[0].EventID)
		assert.Equal(t, masterclass.Fee, regs[0].Amount)
	})
}

func Test_catalogApi_queryResources(t *testing.T) {
	e := setup(t)
	ada := testutil.CreateMember(t, e.repos.Member, "M100", "Ada Lovelace", "ada@test.in", "")
	token := e.token(t, ada)

	ctx := context.Background()
	create := func(title string, typ resource.Type, category string, featured bool) resource.Resource {
		r, err := resource.NewService(e.repos.Resource).Create(ctx, resource.Resource{
			Title: title, Type: typ, Category: category, Featured: featured, Tags: []string{"baja"},
		})
		require.NoError(t, err)
		return r
	}
	rulebook := create("BAJA Rulebook 2026", resource.TypeDocument, "Rules", true)
	sheet := create("Design Report Template", resource.TypeTemplate, "Reports", false)
	video := create("Suspension Basics", resource.TypeVideo, "Design", false)
	course := create("FEA Course", resource.TypeCourse, "Design", false)

	rec := e.serve(http.MethodGet, "/v1/resources?grouped=true", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var grouped struct {
		Count   int             `json:"count"`
		Results resource.Groups `json:"results"`
	}
	decode(t, rec, &grouped)
	assert.Equal(t, 4, grouped.Count)
	require.Len(t, grouped.Results.Documents, 1)
	assert.Equal(t, rulebook.ID, grouped.Results.Documents[0].ID)
	require.Len(t, grouped.Results.Templates, 1)
	assert.Equal(t, sheet.ID, grouped.Results.Templates[0].ID)
	assert.Len(t, grouped.Results.Videos, 2)
	assert.Empty(t, grouped.Results.Software)

	rec = e.serve(http.MethodGet, "/v1/resources?category=Design&ordering=title", token)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Results []resource.Resource `json:"results"`
	}
	decode(t, rec, &list)
	require.Len(t, list.Results, 2)
	assert.Equal(t, course.ID, list.Results[0].ID)
	assert.Equal(t, video.ID, list.Results[1].ID)

	rec = e.serve(http.MethodGet, "/v1/resources?featured=true&category=all", token)
	decode(t, rec, &list)
	require.Len(t, list.Results, 1)
	assert.Equal(t, rulebook.ID, list.Results[0].ID)
}

func Test_catalogApi_submissions(t *testing.T) {
	e := setup(t)
	ada := testutil.CreateMember(t, e.repos.Member, "M100", "Ada Lovelace", "ada@test.in", "")
	alan := testutil.CreateMember(t, e.repos.Member, "M200", "Alan Turing", "alan@test.in", "")
	admin := testutil.CreateMember(t, e.repos.Member, "A001", "Admin", "admin@test.in", "", member.RoleAdmin)
	comp := testutil.CreateCompetition(t, e.repos.Competition, "BAJA SAE India 2026", 24*time.Hour)

	sub, err := competition.NewService(e.repos.Competition).Submit(context.Background(), competition.NewSubmission{
		DeadlineID: comp.Deadlines[0].ID,
		MemberID:   ada.ID,
		Title:      "Chassis report",
		Files: []upload.Task{
			{Name: "report.pdf", Size: 1024, Type: "application/pdf", Status: upload.StatusComplete, ContentID: "c1"},
		},
	})
	require.NoError(t, err)

	t.Run("competition", func(t *testing.T) {
		rec := e.serve(http.MethodGet, "/v1/competitions/"+comp.ID, e.token(t, ada))
		require.Equal(t, http.StatusOK, rec.Code)
		var c competition.Competition
		decode(t, rec, &c)
		require.Len(t, c.Deadlines, 1)
		assert.Equal(t, []string{"PDF", "DOCX"}, c.Deadlines[0].Formats)
	})

	t.Run("grouped by status", func(t *testing.T) {
		rec := e.serve(http.MethodGet, "/v1/submissions?grouped=true", e.token(t, ada))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp struct {
			Count   int                                                       `json:"count"`
			Results map[competition.SubmissionStatus][]competition.Submission `json:"results"`
		}
		decode(t, rec, &resp)
		assert.Equal(t, 1, resp.Count)
		require.Len(t, resp.Results[competition.StatusPending], 1)
		assert.Equal(t, sub.ID, resp.Results[competition.StatusPending][0].ID)
		assert.Empty(t, resp.Results[competition.StatusApproved])
		assert.Contains(t, resp.Results, competition.StatusDraft)
	})

	tests := []httpTest{
		{
			name: "someone else's submission", method: http.MethodGet, path: "/v1/submissions/" + sub.ID, token: e.token(t, alan),
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "submission not found"}),
		},
		{name: "own submission", method: http.MethodGet, path: "/v1/submissions/" + sub.ID, token: e.token(t, ada), wantCode: http.StatusOK},
		{
			name: "review requires admin", method: http.MethodPut, path: "/v1/submissions/" + sub.ID + "/review", token: e.token(t, ada),
			body: []byte(`{"status": "approved"}`), wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "review status", method: http.MethodPut, path: "/v1/submissions/" + sub.ID + "/review", token: e.token(t, admin),
			body: []byte(`{"status": "maybe"}`), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"status": "status must be one of [approved rejected]"}),
		},
		{
			name: "reviewed", method: http.MethodPut, path: "/v1/submissions/" + sub.ID + "/review", token: e.token(t, admin),
			body: []byte(`{"status": "approved", "feedback": " Solid analysis. "}`), wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.serve(tt.method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}

	got, err := competition.NewService(e.repos.Competition).GetSubmission(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, competition.StatusApproved, got.Status)
	assert.Equal(t, "Solid analysis.", got.Feedback.String)

	// the author is told about the review
	ns, _, err := notification.NewService(e.repos.Notification).List(context.Background(), ada.ID, notification.TabAnnouncements, core.Page{})
	require.NoError(t, err)
	require.Len(t, ns, 1)
	assert.Equal(t, notification.TypeFeedback, ns[0].Type)
	assert.Equal(t, "/dashboard/submissions/"+sub.ID, ns[0].Link)
}

func Test_catalogApi_dashboard(t *testing.T) {
	e := setup(t)
	ada := testutil.CreateMember(t, e.repos.Member, "M100", "Ada Lovelace", "ada@test.in", "")
	alan := testutil.CreateMember(t, e.repos.Member, "M200", "Alan Turing", "alan@test.in", "")

	soon := testutil.CreateEvent(t, e.repos.Event, "CAD Masterclass", event.CategoryMasterclass, event.StatusOpen, 24*time.Hour)
	testutil.CreateEvent(t, e.repos.Event, "Suspension Workshop", event.CategoryWorkshop, event.StatusOpen, 48*time.Hour)
	register(t, e, soon, ada)
	for _, title := range []string{"One", "Two", "Three", "Four"} {
		testutil.CreateNotification(t, e.repos.Notification, ada.ID, title, notification.TypeReminder)
	}
	testutil.CreateTeam(t, e.repos.Team, "Team Velocity", ada, alan)

	rec := e.serve(http.MethodGet, "/v1/dashboard", e.token(t, ada))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var sum dashboard.Summary
	decode(t, rec, &sum)

	require.Len(t, sum.UpcomingEvents, 1)
	assert.Equal(t, soon.ID, sum.UpcomingEvents[0].ID)
	assert.Equal(t, 4, sum.UnreadNotifications)
	assert.Len(t, sum.Notifications, notification.PreviewSize)
	assert.Equal(t, 1, sum.Teams)
	assert.Equal(t, 0, sum.Submissions[competition.StatusPending])
	assert.Len(t, sum.Submissions, len(competition.AllStatuses))

	rec = e.serve(http.MethodGet, "/v1/dashboard", "")
	checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)}, rec)
}
