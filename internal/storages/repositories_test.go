package storage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/practice-sem-2/chat-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// registryFactory returns an empty registry that knows the given users.
type registryFactory func(t *testing.T, users ...string) Registry

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func restoreMessage(t *testing.T, sender string, ref models.ChatRef, text string, offset time.Duration) *models.Message {
	t.Helper()
	content, err := models.NewMessageContent(text)
	require.NoError(t, err)
	ts := baseTime.Add(offset)
	msg, err := models.RestoreMessage(uuid.NewString(), sender, ref, content, ts, ts)
	require.NoError(t, err)
	return msg
}

func testRepositories(t *testing.T, newRegistry registryFactory) {
	t.Run("private chats", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		r := newRegistry(t, "alice", "bob", "carol")
		store := r.GetPrivateChatsStore()

		chat, err := models.NewPrivateChat("alice", "bob")
		require.NoError(t, err)
		require.NoError(t, store.Save(ctx, chat))

		found, err := store.FindByID(ctx, chat.ID())
		require.NoError(t, err)
		assert.Equal(t, []string{"alice", "bob"}, found.ParticipantIDs())
		assert.True(t, found.AllParticipantsActive())

		byPair, err := store.FindByParticipants(ctx, "bob", "alice")
		require.NoError(t, err)
		assert.Equal(t, chat.ID(), byPair.ID())

		_, err = store.FindByParticipants(ctx, "alice", "carol")
		assert.ErrorIs(t, err, models.ErrChatNotFound)

		duplicate, err := models.NewPrivateChat("bob", "alice")
		require.NoError(t, err)
		err = r.Atomic(ctx, func(r Registry) error {
			return r.GetPrivateChatsStore().Save(ctx, duplicate)
		})
		assert.ErrorIs(t, err, models.ErrPrivateChatExists)
		_, err = store.FindByID(ctx, duplicate.ID())
		assert.ErrorIs(t, err, models.ErrChatNotFound)

		require.NoError(t, found.DeactivateParticipant("bob"))
		require.NoError(t, store.Save(ctx, found))

		byUser, err := store.FindByUserID(ctx, "bob")
		require.NoError(t, err)
		require.Len(t, byUser, 1)
		assert.False(t, byUser[0].ContainsUser("bob"))
		assert.WithinDuration(t, chat.Participants()[1].JoinedAt, byUser[0].Participants()[1].JoinedAt, time.Millisecond)

		none, err := store.FindByUserID(ctx, "carol")
		require.NoError(t, err)
		assert.Empty(t, none)

		require.NoError(t, store.Delete(ctx, chat.ID()))
		_, err = store.FindByID(ctx, chat.ID())
		assert.ErrorIs(t, err, models.ErrChatNotFound)
		assert.ErrorIs(t, store.Delete(ctx, chat.ID()), models.ErrChatNotFound)
	})

	t.Run("private chat with unknown user", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		r := newRegistry(t, "alice")
		chat, err := models.NewPrivateChat("alice", "ghost")
		require.NoError(t, err)

		err = r.Atomic(ctx, func(r Registry) error {
			return r.GetPrivateChatsStore().Save(ctx, chat)
		})
		assert.ErrorIs(t, err, models.ErrUserNotFound)
	})

	t.Run("group chats", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		r := newRegistry(t, "alice", "bob", "carol", "dave")
		name, err := models.NewChatName("Team")
		require.NoError(t, err)
		chat, err := models.NewGroupChat(name, "alice", []string{"bob", "carol"})
		require.NoError(t, err)
		require.NoError(t, r.GetGroupChatsStore().Save(ctx, chat))

		err = r.Atomic(ctx, func(r Registry) error {
			store := r.GetGroupChatsStore()
			locked, err := store.FindByIDForUpdate(ctx, chat.ID())
			if err != nil {
				return err
			}
			renamed, err := models.NewChatName("Core team")
			if err != nil {
				return err
			}
			if err = locked.UpdateName(renamed, "alice"); err != nil {
				return err
			}
			if err = locked.MakeAdmin("bob", "alice"); err != nil {
				return err
			}
			if err = locked.RemoveParticipant("carol", "alice"); err != nil {
				return err
			}
			if err = locked.AddParticipant("dave", "bob"); err != nil {
				return err
			}
			return store.Save(ctx, locked)
		})
		require.NoError(t, err)

		found, err := r.GetGroupChatsStore().FindByID(ctx, chat.ID())
		require.NoError(t, err)
		assert.Equal(t, "Core team", found.Name().String())
		assert.Equal(t, []string{"alice", "bob", "carol", "dave"}, found.ParticipantIDs())
		assert.True(t, found.IsAdmin("bob"))
		assert.False(t, found.ContainsUser("carol"))
		assert.True(t, found.ContainsUser("dave"))

		byUser, err := r.GetGroupChatsStore().FindByUserID(ctx, "carol")
		require.NoError(t, err)
		require.Len(t, byUser, 1)
		assert.Equal(t, chat.ID(), byUser[0].ID())

		require.NoError(t, r.GetGroupChatsStore().Delete(ctx, chat.ID()))
		_, err = r.GetGroupChatsStore().FindByIDForUpdate(ctx, chat.ID())
		assert.ErrorIs(t, err, models.ErrChatNotFound)
	})

	t.Run("messages", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		r := newRegistry(t, "alice", "bob")
		chat, err := models.NewPrivateChat("alice", "bob")
		require.NoError(t, err)
		require.NoError(t, r.GetPrivateChatsStore().Save(ctx, chat))

		store := r.GetMessagesStore()
		ref := models.PrivateChatRef(chat.ID())
		first := restoreMessage(t, "bob", ref, "first", 0)
		second := restoreMessage(t, "alice", ref, "second", time.Second)
		third := restoreMessage(t, "bob", ref, "third", 2*time.Second)
		for _, msg := range []*models.Message{second, first, third} {
			require.NoError(t, store.Save(ctx, msg))
		}

		found, err := store.FindByID(ctx, first.ID())
		require.NoError(t, err)
		assert.Equal(t, "first", found.Content().String())
		assert.True(t, found.IsPrivateChat())
		assert.Equal(t, chat.ID(), found.PrivateChatID())

		page, err := store.FindByChatID(ctx, chat.ID(), models.MessagesSelect{Limit: 2})
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, third.ID(), page[0].ID())
		assert.Equal(t, second.ID(), page[1].ID())

		older, err := store.FindByChatID(ctx, chat.ID(), models.MessagesSelect{Limit: 10, BeforeMessageID: second.ID()})
		require.NoError(t, err)
		require.Len(t, older, 1)
		assert.Equal(t, first.ID(), older[0].ID())

		skipped, err := store.FindByChatID(ctx, chat.ID(), models.MessagesSelect{Limit: 10, Offset: 2})
		require.NoError(t, err)
		require.Len(t, skipped, 1)
		assert.Equal(t, first.ID(), skipped[0].ID())

		unread, err := store.CountUnreadByChatIDAndUserID(ctx, chat.ID(), "alice")
		require.NoError(t, err)
		assert.Equal(t, uint64(2), unread)

		status, err := models.NewMessageReadStatus(first.ID(), "alice")
		require.NoError(t, err)
		require.NoError(t, store.SaveReadStatus(ctx, status))
		status.ReadAt = status.ReadAt.Add(time.Minute)
		require.NoError(t, store.SaveReadStatus(ctx, status))

		unread, err = store.CountUnreadByChatIDAndUserID(ctx, chat.ID(), "alice")
		require.NoError(t, err)
		assert.Equal(t, uint64(1), unread)

		readers, err := store.FindReaders(ctx, []string{first.ID(), second.ID()})
		require.NoError(t, err)
		assert.Equal(t, []string{"alice"}, readers[first.ID()])
		assert.Empty(t, readers[second.ID()])

		require.NoError(t, store.Delete(ctx, third.ID()))
		_, err = store.FindByID(ctx, third.ID())
		assert.ErrorIs(t, err, models.ErrMessageNotFound)

		unread, err = store.CountUnreadByChatIDAndUserID(ctx, chat.ID(), "alice")
		require.NoError(t, err)
		assert.Equal(t, uint64(0), unread)
	})

	t.Run("message in missing chat", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		r := newRegistry(t, "alice")
		msg := restoreMessage(t, "alice", models.GroupChatRef(uuid.NewString()), "hello", 0)

		err := r.Atomic(ctx, func(r Registry) error {
			return r.GetMessagesStore().Save(ctx, msg)
		})
		assert.ErrorIs(t, err, models.ErrChatNotFound)
	})

	t.Run("users", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		r := newRegistry(t, "alice")
		user, err := r.GetUsersStore().FindByID(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "alice", user.ID)

		_, err = r.GetUsersStore().FindByID(ctx, "ghost")
		assert.ErrorIs(t, err, models.ErrUserNotFound)
	})
}
