package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/engsoc/core/team"
	"github.com/trezcool/engsoc/tests"
)

func Test_teamApi_create(t *testing.T) {
	e := setup(t)
	ada := testutil.CreateMember(t, e.repos.Member, "M100", "Ada Lovelace", "ada@test.in", "")
	token := e.token(t, ada)

	rec := e.serve(http.MethodPost, "/v1/teams", token, []byte(`{"name": "   "}`))
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusBadRequest,
		wantData: marshalObj(t, map[string]string{"name": "this field is required"}),
	}, rec)

	rec = e.serve(http.MethodPost, "/v1/teams", token, []byte(`{"name": " Team Velocity ", "description": "BAJA 2026"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var tm team.Team
	decode(t, rec, &tm)
	assert.Equal(t, "Team Velocity", tm.Name)
	assert.Equal(t, ada.ID, tm.LeaderID)
	require.Len(t, tm.Members, 1)
	assert.Equal(t, team.LeaderRole, tm.Members[0].Role)

	rec = e.serve(http.MethodGet, "/v1/teams", token)
	require.Equal(t, http.StatusOK, rec.Code)
	var teams []team.Team
	decode(t, rec, &teams)
	require.Len(t, teams, 1)
	assert.Equal(t, tm.ID, teams[0].ID)
}

func Test_teamApi_manage(t *testing.T) {
	e := setup(t)
	ada := testutil.CreateMember(t, e.repos.Member, "M100", "Ada Lovelace", "ada@test.in", "")
	alan := testutil.CreateMember(t, e.repos.Member, "M200", "Alan Turing", "alan@test.in", "")
	grace := testutil.CreateMember(t, e.repos.Member, "M300", "Grace Hopper", "grace@test.in", "")
	tm := testutil.CreateTeam(t, e.repos.Team, "Team Velocity", ada, alan)
	leader, follower, outsider := e.token(t, ada), e.token(t, alan), e.token(t, grace)

	base := "/v1/teams/" + tm.ID
	invite := []byte(`{"name": "Grace Hopper", "email": " Grace@Test.in ", "role": "Powertrain Engineer"}`)

	tests := []httpTest{
		{name: "outsiders don't see the team", method: http.MethodGet, path: base, token: outsider, wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "team not found"})},
		{name: "members see the team", method: http.MethodGet, path: base, token: follower, wantCode: http.StatusOK},
		{
			name: "only the leader invites", method: http.MethodPost, path: base + "/invites", token: follower, body: invite,
			wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "only the team leader can manage the team"}),
		},
		{
			name: "invalid invite", method: http.MethodPost, path: base + "/invites", token: leader, body: []byte(`{"name": "Grace", "email": "grace"}`),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"email": "email is invalid", "role": "this field is required"}),
		},
		{name: "invited", method: http.MethodPost, path: base + "/invites", token: leader, body: invite, wantCode: http.StatusCreated},
		{
			name: "invited twice", method: http.MethodPost, path: base + "/invites", token: leader, body: invite,
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"email": "this email already has a pending invite"}),
		},
		{
			name: "already in team", method: http.MethodPost, path: base + "/invites", token: leader,
			body:     []byte(`{"name": "Alan", "email": "alan@test.in", "role": "Design Engineer"}`),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"email": "this member is already in the team"}),
		},
		{
			name: "unknown invite", method: http.MethodDelete, path: base + "/invites/unknown", token: leader,
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "invite not found"}),
		},
		{
			name: "role required", method: http.MethodPut, path: base + "/members/" + alan.ID, token: leader, body: []byte(`{"role": ""}`),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"role": "this field is required"}),
		},
		{name: "role updated", method: http.MethodPut, path: base + "/members/" + alan.ID, token: leader, body: []byte(`{"role": "Chassis Lead"}`), wantCode: http.StatusOK},
		{
			name: "unknown member", method: http.MethodPut, path: base + "/members/" + grace.ID, token: leader, body: []byte(`{"role": "Chassis Lead"}`),
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "team member not found"}),
		},
		{
			name: "the leader stays", method: http.MethodDelete, path: base + "/members/" + ada.ID, token: leader,
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, httpErr{Error: "the team leader cannot be removed"}),
		},
		{
			name: "only the leader removes", method: http.MethodDelete, path: base + "/members/" + alan.ID, token: follower,
			wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "only the team leader can manage the team"}),
		},
		{name: "removed", method: http.MethodDelete, path: base + "/members/" + alan.ID, token: leader, wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.serve(tt.method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}

	rec := e.serve(http.MethodGet, base, leader)
	require.Equal(t, http.StatusOK, rec.Code)
	var got team.Team
	decode(t, rec, &got)
	require.Len(t, got.Members, 1)
	assert.Equal(t, ada.ID, got.Members[0].MemberID)
	require.Len(t, got.Invites, 1)
	assert.Equal(t, "grace@test.in", got.Invites[0].Email)
	assert.Equal(t, team.InvitePending, got.Invites[0].Status)

	rec = e.serve(http.MethodDelete, base+"/invites/"+got.Invites[0].ID, leader)
	assert.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	got, err := e.repos.Team.GetTeam(context.Background(), tm.ID)
	if assert.NoError(t, err) {
		assert.Empty(t, got.Invites)
	}
}
