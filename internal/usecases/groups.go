package usecases

import (
	"context"

	"github.com/practice-sem-2/chat-service/internal/auth"
	"github.com/practice-sem-2/chat-service/internal/models"
	storage "github.com/practice-sem-2/chat-service/internal/storages"
)

type groupMutation func(r storage.Registry, chat *models.GroupChat, actorID string) (models.Update, error)

// mutateGroup locks the group for the duration of the mutation so concurrent
// membership changes can't overwrite each other.
func (u *ChatsUsecase) mutateGroup(ctx context.Context, claims *auth.UserClaims, chatID string, mutate groupMutation) (*models.GroupChat, error) {
	if claims == nil {
		return nil, ErrAuthenticationRequired
	}
	if !ValidateUUID(chatID) {
		return nil, models.ErrChatNotFound
	}

	actorID := claims.UserID()
	var chat *models.GroupChat
	var update models.Update

	err := u.registry.Atomic(ctx, func(r storage.Registry) error {
		store := r.GetGroupChatsStore()

		var err error
		chat, err = store.FindByIDForUpdate(ctx, chatID)
		if err != nil {
			return err
		}
		if !chat.ContainsUser(actorID) {
			return u.lookup.denied()
		}

		update, err = mutate(r, chat, actorID)
		if err != nil {
			return err
		}
		return store.Save(ctx, chat)
	})

	if err != nil {
		return nil, err
	}

	if update != nil {
		u.publish(ctx, update)
	}
	return chat, nil
}

func (u *ChatsUsecase) AddGroupMember(ctx context.Context, claims *auth.UserClaims, chatID, userID string) (*models.GroupChat, error) {
	return u.mutateGroup(ctx, claims, chatID, func(r storage.Registry, chat *models.GroupChat, actorID string) (models.Update, error) {
		if err := ensureUsersExist(ctx, r, userID); err != nil {
			return nil, err
		}
		if err := chat.AddParticipant(userID, actorID); err != nil {
			return nil, err
		}
		return models.NewUserAddedToGroup(chat.ID(), userID, actorID), nil
	})
}

func (u *ChatsUsecase) RemoveGroupMember(ctx context.Context, claims *auth.UserClaims, chatID, userID string) (*models.GroupChat, error) {
	return u.mutateGroup(ctx, claims, chatID, func(_ storage.Registry, chat *models.GroupChat, actorID string) (models.Update, error) {
		return nil, chat.RemoveParticipant(userID, actorID)
	})
}

func (u *ChatsUsecase) PromoteGroupAdmin(ctx context.Context, claims *auth.UserClaims, chatID, userID string) (*models.GroupChat, error) {
	return u.mutateGroup(ctx, claims, chatID, func(_ storage.Registry, chat *models.GroupChat, actorID string) (models.Update, error) {
		return nil, chat.MakeAdmin(userID, actorID)
	})
}

func (u *ChatsUsecase) DemoteGroupAdmin(ctx context.Context, claims *auth.UserClaims, chatID, userID string) (*models.GroupChat, error) {
	return u.mutateGroup(ctx, claims, chatID, func(_ storage.Registry, chat *models.GroupChat, actorID string) (models.Update, error) {
		return nil, chat.RemoveAdmin(userID, actorID)
	})
}

func (u *ChatsUsecase) RenameGroupChat(ctx context.Context, claims *auth.UserClaims, chatID, rawName string) (*models.GroupChat, error) {
	name, err := models.NewChatName(rawName)
	if err != nil {
		return nil, err
	}

	return u.mutateGroup(ctx, claims, chatID, func(_ storage.Registry, chat *models.GroupChat, actorID string) (models.Update, error) {
		return nil, chat.UpdateName(name, actorID)
	})
}

func (u *ChatsUsecase) LeaveGroupChat(ctx context.Context, claims *auth.UserClaims, chatID string) (*models.GroupChat, error) {
	return u.mutateGroup(ctx, claims, chatID, func(_ storage.Registry, chat *models.GroupChat, actorID string) (models.Update, error) {
		return nil, chat.Leave(actorID)
	})
}
