package team

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTeam_membership(t *testing.T) {
	tm := Team{
		LeaderID: "1",
		Members:  []Member{{MemberID: "1", Role: LeaderRole}, {MemberID: "2", Role: "Design Engineer"}},
		Invites: []Invite{
			{ID: "i1", Email: "grace@test.in", Status: InviteDeclined},
			{ID: "i2", Email: "alan@test.in", Status: InvitePending},
		},
	}

	assert.True(t, tm.IsLeader("1"))
	assert.False(t, tm.IsLeader("2"))
	assert.True(t, tm.HasMember("2"))
	assert.False(t, tm.HasMember("3"))

	inv, ok := tm.PendingInvite("alan@test.in")
	assert.True(t, ok)
	assert.Equal(t, "i2", inv.ID)

	_, ok = tm.PendingInvite("grace@test.in")
	assert.False(t, ok, "declined invites are not pending")
}
