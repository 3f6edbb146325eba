package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/engsoc/core"
	"github.com/trezcool/engsoc/core/competition"
	"github.com/trezcool/engsoc/core/event"
	"github.com/trezcool/engsoc/core/notification"
	"github.com/trezcool/engsoc/core/portal"
	"github.com/trezcool/engsoc/core/upload"
	"github.com/trezcool/engsoc/core/wizard"
	"github.com/trezcool/engsoc/tests"
)

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) portal.View {
	t.Helper()
	var v portal.View
	decode(t, rec, &v)
	return v
}

func Test_screenApi_registration(t *testing.T) {
	e := setup(t)
	ada := testutil.CreateMember(t, e.repos.Member, "M100", "Ada Lovelace", "ada@test.in", "")
	alan := testutil.CreateMember(t, e.repos.Member, "M200", "Alan Turing", "alan@test.in", "")
	token := e.token(t, ada)
	evt := testutil.CreateEvent(t, e.repos.Event, "Robotics Workshop", event.CategoryWorkshop, event.StatusOpen, 48*time.Hour)
	closed := testutil.CreateEvent(t, e.repos.Event, "Past Summit", event.CategoryConference, event.StatusClosed, 48*time.Hour)

	rec := e.serve(http.MethodPost, "/v1/screens/registrations", token, marshalObj(t, map[string]string{"event_id": closed.ID}))
	checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: marshalObj(t, httpErr{Error: "registration is closed for this event"})}, rec)

	rec = e.serve(http.MethodPost, "/v1/screens/registrations", token, marshalObj(t, map[string]string{"event_id": evt.ID}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	v := decodeView(t, rec)
	assert.Equal(t, portal.KindRegistration, v.Kind)
	assert.Equal(t, "details", v.Step)
	assert.Equal(t, "Ada Lovelace", v.Values["full_name"])
	assert.Equal(t, "credit", v.Values["payment_method"])

	base := "/v1/screens/" + v.ID
	tests := []httpTest{
		{
			name: "someone else's screen", method: http.MethodGet, path: base, token: e.token(t, alan),
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "screen not found"}),
		},
		{
			name: "no files", method: http.MethodPost, path: base + "/files", token: token,
			body:     marshalObj(t, map[string]interface{}{"name": "report.pdf", "size": 10}),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, httpErr{Error: "screen does not accept files"}),
		},
		{name: "details", method: http.MethodPost, path: base + "/advance", token: token, wantCode: http.StatusOK},
		{
			name: "missing fields", method: http.MethodPost, path: base + "/advance", token: token, wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{
				"phone":          "Phone number is required",
				"institution":    "Institution name is required",
				"sae_id":         "SAE Membership ID is required",
				"agree_to_terms": "You must agree to the terms and conditions",
			}),
		},
		{
			name: "invalid fields", method: http.MethodPut, path: base + "/fields", token: token, body: []byte(`[1, 2]`),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, httpErr{Error: "fields must be a JSON object"}),
		},
		{
			name: "fields set", method: http.MethodPut, path: base + "/fields", token: token, wantCode: http.StatusOK,
			body: marshalObj(t, map[string]interface{}{
				"phone":          "+91 98765 43210",
				"institution":    "IIT Bombay",
				"sae_id":         "SAE-2024-001",
				"team_size":      4,
				"agree_to_terms": true,
			}),
		},
		{name: "form", method: http.MethodPost, path: base + "/advance", token: token, wantCode: http.StatusOK},
		{name: "back", method: http.MethodPost, path: base + "/retreat", token: token, wantCode: http.StatusOK},
		{name: "form again", method: http.MethodPost, path: base + "/advance", token: token, wantCode: http.StatusOK},
		{name: "payment", method: http.MethodPost, path: base + "/advance?wait=true", token: token, wantCode: http.StatusOK},
		{
			name: "complete", method: http.MethodPut, path: base + "/fields", token: token, body: []byte(`{"phone": "0"}`),
			wantCode: http.StatusConflict, wantData: marshalObj(t, httpErr{Error: "flow is complete"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.serve(tt.method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}

	rec = e.serve(http.MethodGet, base, token)
	require.Equal(t, http.StatusOK, rec.Code)
	v = decodeView(t, rec)
	assert.Equal(t, "confirmation", v.Step)
	assert.Equal(t, wizard.StatusCompleted, v.Status)
	result, ok := v.Result.(map[string]interface{})
	require.True(t, ok, "result: %v", v.Result)
	assert.Equal(t, evt.ID, result["event_id"])
	assert.Equal(t, float64(4), result["team_size"])

	got, err := e.repos.Event.GetEvent(context.Background(), evt.ID, ada.ID)
	require.NoError(t, err)
	assert.True(t, got.Registered)
	sent := e.mailer.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "Registration Confirmed: Robotics Workshop", sent[0].Subject)

	rec = e.serve(http.MethodPost, "/v1/screens/registrations", token, marshalObj(t, map[string]string{"event_id": evt.ID}))
	checkCodeAndData(t, httpTest{wantCode: http.StatusConflict, wantData: marshalObj(t, httpErr{Error: "already registered to this event"})}, rec)

	rec = e.serve(http.MethodDelete, base, token)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = e.serve(http.MethodGet, base, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_screenApi_submission(t *testing.T) {
	e := setup(t)
	ada := testutil.CreateMember(t, e.repos.Member, "M100", "Ada Lovelace", "ada@test.in", "")
	token := e.token(t, ada)
	comp := testutil.CreateCompetition(t, e.repos.Competition, "BAJA SAE India 2026", 48*time.Hour)
	past := testutil.CreateCompetition(t, e.repos.Competition, "BAJA SAE India 2024", -time.Hour)
	tm := testutil.CreateTeam(t, e.repos.Team, "Team Velocity", ada)

	rec := e.serve(http.MethodPost, "/v1/screens/submissions", token, marshalObj(t, map[string]string{"deadline_id": past.Deadlines[0].ID}))
	checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: marshalObj(t, httpErr{Error: "this deadline no longer accepts submissions"})}, rec)

	rec = e.serve(http.MethodPost, "/v1/screens/submissions", token, marshalObj(t, map[string]string{
		"deadline_id": comp.Deadlines[0].ID,
		"team_id":     tm.ID,
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	v := decodeView(t, rec)
	assert.Equal(t, "compose", v.Step)
	require.NotNil(t, v.Rule)
	assert.Equal(t, upload.Rule{Formats: []string{"PDF", "DOCX"}, MaxSizeMB: 20}, *v.Rule)

	base := "/v1/screens/" + v.ID
	file := func(name string, size int64) []byte {
		return marshalObj(t, map[string]interface{}{"name": name, "size": size, "type": "application/pdf"})
	}
	tests := []httpTest{
		{
			name: "nothing to submit", method: http.MethodPost, path: base + "/advance", token: token, wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{
				"title":       "Please enter a submission title",
				"description": "Please enter a submission description",
				"files":       "Please upload at least one file",
			}),
		},
		{
			name: "type not allowed", method: http.MethodPost, path: base + "/files", token: token, body: file("report.exe", 1024),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"files": "File type not allowed. Accepted formats: PDF, DOCX"}),
		},
		{
			name: "too large", method: http.MethodPost, path: base + "/files", token: token, body: file("report.pdf", 21*1024*1024),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"files": "File size exceeds the maximum allowed (20 MB)"}),
		},
		{
			name: "negative size", method: http.MethodPost, path: base + "/files", token: token, body: file("report.pdf", -1),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"files": "File size is invalid"}),
		},
		{name: "accepted", method: http.MethodPost, path: base + "/files", token: token, body: file(" report.pdf ", 1024), wantCode: http.StatusAccepted},
		{
			name: "unknown file", method: http.MethodDelete, path: base + "/files/unknown", token: token,
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "upload not found"}),
		},
		{
			name: "fields set", method: http.MethodPut, path: base + "/fields", token: token, wantCode: http.StatusOK,
			body: marshalObj(t, map[string]interface{}{"title": "Chassis report", "description": "Frame analysis"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.serve(tt.method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}

	// multipart upload
	multipartFile := func(name string, size int) *httptest.ResponseRecorder {
		var body bytes.Buffer
		w := multipart.NewWriter(&body)
		part, err := w.CreateFormFile("file", name)
		require.NoError(t, err)
		_, err = part.Write(bytes.Repeat([]byte("a"), size))
		require.NoError(t, err)
		require.NoError(t, w.Close())
		req := httptest.NewRequest(http.MethodPost, base+"/files", &body)
		req.Header.Set("Content-Type", w.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		e.app.ServeHTTP(rec, req)
		return rec
	}
	filesCount := func() int {
		rec := e.serve(http.MethodGet, base, token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		return len(decodeView(t, rec).Files)
	}

	rec = multipartFile("setup.exe", 1024)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusBadRequest,
		wantData: marshalObj(t, map[string]string{"files": "File type not allowed. Accepted formats: PDF, DOCX"}),
	}, rec)
	rec = multipartFile("huge.pdf", 4*1024*1024) // above the upload body limit
	checkCodeAndData(t, httpTest{wantCode: http.StatusRequestEntityTooLarge, wantData: marshalObj(t, httpErr{Error: "Request Entity Too Large"})}, rec)
	assert.Equal(t, 1, filesCount(), "rejected uploads leave the list unchanged")

	rec = multipartFile("appendix.docx", len("appendix"))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var task upload.Task
	decode(t, rec, &task)
	assert.Equal(t, "appendix.docx", task.Name)
	assert.Equal(t, int64(len("appendix")), task.Size)

	assert.Eventually(t, func() bool {
		rec := e.serve(http.MethodGet, base, token)
		var v portal.View
		if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil || len(v.Files) != 2 {
			return false
		}
		for _, f := range v.Files {
			if f.Status != upload.StatusComplete {
				return false
			}
		}
		return true
	}, 5*time.Second, 5*time.Millisecond)

	rec = e.serve(http.MethodDelete, base+"/files/"+task.ID, token)
	assert.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = e.serve(http.MethodPost, base+"/advance?wait=true", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	v = decodeView(t, rec)
	assert.Equal(t, "submitted", v.Step)
	assert.Equal(t, wizard.StatusCompleted, v.Status)
	result, ok := v.Result.(map[string]interface{})
	require.True(t, ok, "result: %v", v.Result)

	sub, err := competition.NewService(e.repos.Competition).GetSubmission(context.Background(), result["id"].(string))
	require.NoError(t, err)
	assert.Equal(t, "Chassis report", sub.Title)
	assert.Equal(t, competition.StatusPending, sub.Status)
	assert.Equal(t, tm.ID, sub.TeamID.String)
	require.Len(t, sub.Files, 1)
	assert.Equal(t, "report.pdf", sub.Files[0].Name)

	ns, _, err := notification.NewService(e.repos.Notification).List(context.Background(), ada.ID, notification.TabAll, core.Page{})
	require.NoError(t, err)
	require.Len(t, ns, 1)
	assert.Equal(t, "Submission Received", ns[0].Title)

	rec = e.serve(http.MethodPost, base+"/files", token, file("late.pdf", 1024))
	checkCodeAndData(t, httpTest{wantCode: http.StatusConflict, wantData: marshalObj(t, httpErr{Error: "flow is complete"})}, rec)
}
