package storage

import (
	"context"

	"github.com/practice-sem-2/chat-service/internal/models"
)

// Lookups return models.ErrChatNotFound, models.ErrMessageNotFound or
// models.ErrUserNotFound when nothing matches.

type PrivateChatRepository interface {
	FindByID(ctx context.Context, chatID string) (*models.PrivateChat, error)
	// FindByParticipants finds the chat of an unordered pair of users.
	FindByParticipants(ctx context.Context, userA, userB string) (*models.PrivateChat, error)
	// FindByUserID returns every chat the user holds a slot in, active or not.
	FindByUserID(ctx context.Context, userID string) ([]*models.PrivateChat, error)
	Save(ctx context.Context, chat *models.PrivateChat) error
	Delete(ctx context.Context, chatID string) error
}

type GroupChatRepository interface {
	FindByID(ctx context.Context, chatID string) (*models.GroupChat, error)
	// FindByIDForUpdate locks the chat until the surrounding Atomic call ends.
	FindByIDForUpdate(ctx context.Context, chatID string) (*models.GroupChat, error)
	FindByUserID(ctx context.Context, userID string) ([]*models.GroupChat, error)
	Save(ctx context.Context, chat *models.GroupChat) error
	Delete(ctx context.Context, chatID string) error
}

type MessageRepository interface {
	FindByID(ctx context.Context, messageID string) (*models.Message, error)
	// FindByChatID returns messages of a chat of any kind, newest first.
	FindByChatID(ctx context.Context, chatID string, sel models.MessagesSelect) ([]*models.Message, error)
	// FindReaders maps message ids to the users that have read them.
	FindReaders(ctx context.Context, messageIDs []string) (map[string][]string, error)
	CountUnreadByChatIDAndUserID(ctx context.Context, chatID, userID string) (uint64, error)
	Save(ctx context.Context, msg *models.Message) error
	// SaveReadStatus inserts the status or refreshes ReadAt of an existing one.
	SaveReadStatus(ctx context.Context, status *models.MessageReadStatus) error
	Delete(ctx context.Context, messageID string) error
}

type UserRepository interface {
	FindByID(ctx context.Context, userID string) (*models.User, error)
}
