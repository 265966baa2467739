package usecases

import (
	"context"

	"github.com/practice-sem-2/chat-service/internal/auth"
	"github.com/practice-sem-2/chat-service/internal/models"
	storage "github.com/practice-sem-2/chat-service/internal/storages"
)

func (u *ChatsUsecase) SendMessage(ctx context.Context, sender *auth.UserClaims, chatID, rawContent string) (msg *models.Message, err error) {
	if sender == nil {
		return nil, ErrAuthenticationRequired
	}

	content, err := models.NewMessageContent(rawContent)
	if err != nil {
		return nil, err
	}

	senderID := sender.UserID()
	var sent *models.MessageSent
	err = u.registry.Atomic(ctx, func(r storage.Registry) error {
		chat, err := u.lookup.ResolveForMember(ctx, r, chatID, senderID)
		if err != nil {
			return err
		}

		msg, err = models.NewMessage(senderID, chat.Ref(), content)
		if err != nil {
			return err
		}
		sent = models.NewMessageSent(msg, sender.Username)
		return r.GetMessagesStore().Save(ctx, msg)
	})

	if err != nil {
		return nil, err
	}

	u.publish(ctx, sent)
	return msg, nil
}

// MarkMessageRead records that the user has read the message. Marking it
// again only refreshes the read time.
func (u *ChatsUsecase) MarkMessageRead(ctx context.Context, claims *auth.UserClaims, messageID string) (status *models.MessageReadStatus, err error) {
	if claims == nil {
		return nil, ErrAuthenticationRequired
	}
	if !ValidateUUID(messageID) {
		return nil, models.ErrMessageNotFound
	}

	userID := claims.UserID()
	err = u.registry.Atomic(ctx, func(r storage.Registry) error {
		store := r.GetMessagesStore()
		msg, err := store.FindByID(ctx, messageID)
		if err != nil {
			return err
		}

		chat, err := u.lookup.ResolveRef(ctx, r, msg.Chat())
		if err != nil {
			return err
		}
		if !chat.ContainsUser(userID) {
			if u.lookup.concealForeign {
				return models.ErrMessageNotFound
			}
			return ErrUnauthorizedChatAccess
		}

		status, err = models.NewMessageReadStatus(msg.ID(), userID)
		if err != nil {
			return err
		}
		return store.SaveReadStatus(ctx, status)
	})

	if err != nil {
		return nil, err
	}
	return status, nil
}
