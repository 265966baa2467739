package usecases

import (
	"context"
	"errors"
	"fmt"

	"github.com/practice-sem-2/chat-service/internal/auth"
	"github.com/practice-sem-2/chat-service/internal/models"
	storage "github.com/practice-sem-2/chat-service/internal/storages"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

var (
	ErrAuthenticationRequired = fmt.Errorf("%w: authentication required", models.ErrPermissionDenied)
	ErrUnauthorizedChatAccess = fmt.Errorf("%w: user is not a chat member", models.ErrPermissionDenied)
)

// UpdatesPublisher receives updates after the change they describe is stored.
type UpdatesPublisher interface {
	Publish(ctx context.Context, update models.Update) error
}

type ChatsUsecase struct {
	registry  storage.Registry
	publisher UpdatesPublisher
	lookup    ChatLookup
	logger    logrus.FieldLogger
}

type Option func(u *ChatsUsecase)

// WithConcealedChats makes chats the user is not a member of look nonexistent.
func WithConcealedChats(conceal bool) Option {
	return func(u *ChatsUsecase) {
		u.lookup.concealForeign = conceal
	}
}

func NewChatsUsecase(r storage.Registry, p UpdatesPublisher, logger logrus.FieldLogger, opts ...Option) *ChatsUsecase {
	u := &ChatsUsecase{
		registry:  r,
		publisher: p,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *ChatsUsecase) CreatePrivateChat(ctx context.Context, claims *auth.UserClaims, participantID string) (chat *models.PrivateChat, err error) {
	if claims == nil {
		return nil, ErrAuthenticationRequired
	}

	initiatorID := claims.UserID()
	if participantID == "" {
		return nil, models.ErrEmptyUserID
	}
	if initiatorID == participantID {
		return nil, models.ErrSameParticipant
	}

	var created *models.PrivateChatCreated
	chat, created, err = u.openPrivateChat(ctx, initiatorID, participantID)
	if errors.Is(err, models.ErrPrivateChatExists) {
		// A concurrent request stored the chat first.
		chat, created, err = u.openPrivateChat(ctx, initiatorID, participantID)
	}

	if err != nil {
		return nil, err
	}

	if created != nil {
		u.publish(ctx, created)
	}
	return chat, nil
}

// openPrivateChat returns the chat of the pair, reactivating its participants,
// or stores a new one. The event is set only when the chat is new.
func (u *ChatsUsecase) openPrivateChat(ctx context.Context, initiatorID, participantID string) (chat *models.PrivateChat, created *models.PrivateChatCreated, err error) {
	err = u.registry.Atomic(ctx, func(r storage.Registry) error {
		if err := ensureUsersExist(ctx, r, initiatorID, participantID); err != nil {
			return err
		}

		store := r.GetPrivateChatsStore()
		existing, err := store.FindByParticipants(ctx, initiatorID, participantID)
		if err == nil {
			chat = existing
			if existing.AllParticipantsActive() {
				return nil
			}
			for _, p := range existing.Participants() {
				if !p.IsActive() {
					if err = existing.ReactivateParticipant(p.UserID); err != nil {
						return err
					}
				}
			}
			return store.Save(ctx, existing)
		} else if !errors.Is(err, models.ErrChatNotFound) {
			return err
		}

		chat, err = models.NewPrivateChat(initiatorID, participantID)
		if err != nil {
			return err
		}
		created = models.NewPrivateChatCreated(chat)
		return store.Save(ctx, chat)
	})

	if err != nil {
		return nil, nil, err
	}
	return chat, created, nil
}

func (u *ChatsUsecase) CreateGroupChat(ctx context.Context, claims *auth.UserClaims, rawName string, participantIDs []string) (chat *models.GroupChat, err error) {
	if claims == nil {
		return nil, ErrAuthenticationRequired
	}

	name, err := models.NewChatName(rawName)
	if err != nil {
		return nil, err
	}

	creatorID := claims.UserID()
	others := lo.Without(lo.Uniq(participantIDs), creatorID)

	var created *models.GroupChatCreated
	err = u.registry.Atomic(ctx, func(r storage.Registry) error {
		if err := ensureUsersExist(ctx, r, append([]string{creatorID}, others...)...); err != nil {
			return err
		}

		chat, err = models.NewGroupChat(name, creatorID, others)
		if err != nil {
			return err
		}
		created = models.NewGroupChatCreated(chat, creatorID)
		return r.GetGroupChatsStore().Save(ctx, chat)
	})

	if err != nil {
		return nil, err
	}

	u.publish(ctx, created)
	return chat, nil
}

// LeavePrivateChat deactivates the caller's slot. Creating the chat again
// brings the caller back.
func (u *ChatsUsecase) LeavePrivateChat(ctx context.Context, claims *auth.UserClaims, chatID string) (chat *models.PrivateChat, err error) {
	if claims == nil {
		return nil, ErrAuthenticationRequired
	}
	if !ValidateUUID(chatID) {
		return nil, models.ErrChatNotFound
	}

	userID := claims.UserID()
	err = u.registry.Atomic(ctx, func(r storage.Registry) error {
		store := r.GetPrivateChatsStore()
		chat, err = store.FindByID(ctx, chatID)
		if err != nil {
			return err
		}
		if !chat.ContainsUser(userID) {
			return u.lookup.denied()
		}
		if err = chat.DeactivateParticipant(userID); err != nil {
			return err
		}
		return store.Save(ctx, chat)
	})

	if err != nil {
		return nil, err
	}
	return chat, nil
}

func (u *ChatsUsecase) publish(ctx context.Context, update models.Update) {
	if err := u.publisher.Publish(ctx, update); err != nil {
		u.logger.
			WithError(err).
			WithField("update_type", update.UpdateType()).
			WithField("chat_id", update.ChatKey()).
			Error("failed to publish update")
	}
}

func ensureUsersExist(ctx context.Context, r storage.Registry, ids ...string) error {
	users := r.GetUsersStore()
	for _, id := range ids {
		if _, err := users.FindByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
