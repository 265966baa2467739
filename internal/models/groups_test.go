package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTeam(t *testing.T, participants ...string) *GroupChat {
	t.Helper()
	name, err := NewChatName("Team")
	require.NoError(t, err)
	chat, err := NewGroupChat(name, "alice", participants)
	require.NoError(t, err)
	return chat
}

func Test_NewGroupChat_CreatorFirstAdminActive(t *testing.T) {
	chat := newTeam(t, "bob", "carol")

	participants := chat.Participants()
	require.Len(t, participants, 3)
	assert.Equal(t, "alice", participants[0].UserID)
	assert.True(t, participants[0].IsAdmin)
	assert.True(t, participants[0].IsActive())
	assert.False(t, participants[1].IsAdmin)
	assert.True(t, chat.IsAdmin("alice"))
	assert.False(t, chat.IsAdmin("bob"))
	assert.Equal(t, "Team", chat.Name().String())
}

func Test_NewGroupChat_Duplicates(t *testing.T) {
	name, err := NewChatName("Team")
	require.NoError(t, err)

	_, err = NewGroupChat(name, "alice", []string{"bob", "bob"})
	assert.ErrorIs(t, err, ErrDuplicateParticipant)

	_, err = NewGroupChat(name, "alice", []string{"alice"})
	assert.ErrorIs(t, err, ErrDuplicateParticipant)
}

func Test_NewGroupChat_OnlyCreator(t *testing.T) {
	chat := newTeam(t)
	assert.Len(t, chat.Participants(), 1)
	assert.True(t, chat.ContainsUser("alice"))
}

func Test_GroupChat_AddParticipant(t *testing.T) {
	chat := newTeam(t, "bob")

	assert.ErrorIs(t, chat.AddParticipant("dave", "bob"), ErrAdminRequired)
	assert.ErrorIs(t, chat.AddParticipant("bob", "alice"), ErrAlreadyParticipant)

	require.NoError(t, chat.AddParticipant("dave", "alice"))
	assert.True(t, chat.ContainsUser("dave"))
	assert.Len(t, chat.Participants(), 3)
}

func Test_GroupChat_ReAddReactivatesSlot(t *testing.T) {
	chat := newTeam(t, "bob")
	require.NoError(t, chat.MakeAdmin("bob", "alice"))
	joinedAt := chat.Participants()[1].JoinedAt

	require.NoError(t, chat.RemoveParticipant("bob", "alice"))
	assert.False(t, chat.ContainsUser("bob"))

	require.NoError(t, chat.AddParticipant("bob", "alice"))
	participants := chat.Participants()
	require.Len(t, participants, 2)
	assert.True(t, participants[1].IsActive())
	assert.False(t, participants[1].IsAdmin)
	assert.Equal(t, joinedAt, participants[1].JoinedAt)
}

func Test_GroupChat_RemoveParticipant(t *testing.T) {
	chat := newTeam(t, "bob", "carol")

	assert.ErrorIs(t, chat.RemoveParticipant("carol", "bob"), ErrAdminRequired)
	require.NoError(t, chat.RemoveParticipant("carol", "alice"))
	assert.False(t, chat.ContainsUser("carol"))
	assert.Len(t, chat.Participants(), 3)

	assert.ErrorIs(t, chat.RemoveParticipant("carol", "alice"), ErrNotParticipant)
}

func Test_GroupChat_SoleAdminCantBeRemovedOrDemoted(t *testing.T) {
	chat := newTeam(t, "bob")

	assert.ErrorIs(t, chat.RemoveParticipant("alice", "alice"), ErrLastAdmin)
	assert.ErrorIs(t, chat.RemoveAdmin("alice", "alice"), ErrLastAdmin)
	assert.ErrorIs(t, chat.Leave("alice"), ErrLastAdmin)
	assert.True(t, chat.IsAdmin("alice"))
}

func Test_GroupChat_TwoAdminsAllowRemoval(t *testing.T) {
	chat := newTeam(t, "bob", "carol")
	require.NoError(t, chat.MakeAdmin("bob", "alice"))

	require.NoError(t, chat.RemoveAdmin("alice", "bob"))
	assert.False(t, chat.IsAdmin("alice"))
	assert.True(t, chat.ContainsUser("alice"))

	require.NoError(t, chat.MakeAdmin("carol", "bob"))
	require.NoError(t, chat.RemoveParticipant("carol", "bob"))
	assert.False(t, chat.IsAdmin("carol"))
	assert.False(t, chat.ContainsUser("carol"))
}

func Test_GroupChat_RemovedAdminIsNotAnAdmin(t *testing.T) {
	chat := newTeam(t, "bob")
	require.NoError(t, chat.MakeAdmin("bob", "alice"))
	require.NoError(t, chat.RemoveParticipant("bob", "alice"))

	assert.False(t, chat.IsAdmin("bob"))
	assert.ErrorIs(t, chat.AddParticipant("dave", "bob"), ErrAdminRequired)
	assert.ErrorIs(t, chat.RemoveAdmin("alice", "alice"), ErrLastAdmin)
}

func Test_GroupChat_MakeAdminRules(t *testing.T) {
	chat := newTeam(t, "bob", "carol")

	assert.ErrorIs(t, chat.MakeAdmin("carol", "bob"), ErrAdminRequired)
	assert.ErrorIs(t, chat.MakeAdmin("dave", "alice"), ErrNotParticipant)

	require.NoError(t, chat.RemoveParticipant("carol", "alice"))
	assert.ErrorIs(t, chat.MakeAdmin("carol", "alice"), ErrInactiveParticipant)
	assert.ErrorIs(t, chat.RemoveAdmin("bob", "alice"), ErrNotAdmin)
}

func Test_GroupChat_UpdateName(t *testing.T) {
	chat := newTeam(t, "bob")
	name, err := NewChatName("Renamed")
	require.NoError(t, err)

	assert.ErrorIs(t, chat.UpdateName(name, "bob"), ErrAdminRequired)
	require.NoError(t, chat.UpdateName(name, "alice"))
	assert.Equal(t, "Renamed", chat.Name().String())
	assert.ErrorIs(t, chat.UpdateName(ChatName{}, "alice"), ErrEmptyChatName)
}

func Test_GroupChat_Leave(t *testing.T) {
	chat := newTeam(t, "bob")

	require.NoError(t, chat.Leave("bob"))
	assert.False(t, chat.ContainsUser("bob"))
	assert.ErrorIs(t, chat.Leave("bob"), ErrNotParticipant)
}

func Test_GroupChat_CloneIsIndependent(t *testing.T) {
	chat := newTeam(t, "bob")
	clone := chat.Clone()

	require.NoError(t, clone.RemoveParticipant("bob", "alice"))
	assert.True(t, chat.ContainsUser("bob"))
	assert.False(t, clone.ContainsUser("bob"))
}
