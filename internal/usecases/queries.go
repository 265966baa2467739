package usecases

import (
	"context"

	"github.com/practice-sem-2/chat-service/internal/auth"
	"github.com/practice-sem-2/chat-service/internal/models"
	storage "github.com/practice-sem-2/chat-service/internal/storages"
	"github.com/samber/lo"
)

const (
	DefaultMessagesLimit = 20
	MaxMessagesLimit     = 100
)

// GetUserChats lists chats the user is an active member of.
func (u *ChatsUsecase) GetUserChats(ctx context.Context, claims *auth.UserClaims) (*models.UserChats, error) {
	if claims == nil {
		return nil, ErrAuthenticationRequired
	}

	userID := claims.UserID()
	result := &models.UserChats{
		PrivateChats: []models.ChatSummary{},
		GroupChats:   []models.ChatSummary{},
	}

	err := u.registry.Atomic(ctx, func(r storage.Registry) error {
		private, err := r.GetPrivateChatsStore().FindByUserID(ctx, userID)
		if err != nil {
			return err
		}
		for _, chat := range private {
			if !chat.ContainsUser(userID) {
				continue
			}
			summary, err := summarize(ctx, r, ResolvedChat{Kind: models.PrivateChatKind, Private: chat}, userID)
			if err != nil {
				return err
			}
			result.PrivateChats = append(result.PrivateChats, summary)
		}

		groups, err := r.GetGroupChatsStore().FindByUserID(ctx, userID)
		if err != nil {
			return err
		}
		for _, chat := range groups {
			if !chat.ContainsUser(userID) {
				continue
			}
			summary, err := summarize(ctx, r, ResolvedChat{Kind: models.GroupChatKind, Group: chat}, userID)
			if err != nil {
				return err
			}
			result.GroupChats = append(result.GroupChats, summary)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return result, nil
}

func (u *ChatsUsecase) GetChatDetails(ctx context.Context, claims *auth.UserClaims, chatID string) (summary models.ChatSummary, err error) {
	if claims == nil {
		return summary, ErrAuthenticationRequired
	}

	userID := claims.UserID()
	err = u.registry.Atomic(ctx, func(r storage.Registry) error {
		chat, err := u.lookup.ResolveForMember(ctx, r, chatID, userID)
		if err != nil {
			return err
		}
		summary, err = summarize(ctx, r, chat, userID)
		return err
	})

	return summary, err
}

// GetChatMessages returns a page of messages, newest first. A zero limit
// means DefaultMessagesLimit and larger limits are capped at MaxMessagesLimit.
func (u *ChatsUsecase) GetChatMessages(ctx context.Context, claims *auth.UserClaims, chatID string, sel models.MessagesSelect) ([]models.MessageView, error) {
	if claims == nil {
		return nil, ErrAuthenticationRequired
	}

	sel, err := normalizeSelect(sel)
	if err != nil {
		return nil, err
	}

	userID := claims.UserID()
	var views []models.MessageView

	err = u.registry.Atomic(ctx, func(r storage.Registry) error {
		if _, err := u.lookup.ResolveForMember(ctx, r, chatID, userID); err != nil {
			return err
		}

		store := r.GetMessagesStore()
		if sel.BeforeMessageID != "" {
			cursor, err := store.FindByID(ctx, sel.BeforeMessageID)
			if err != nil {
				return err
			}
			if cursor.ChatID() != chatID {
				return models.ErrMessageNotFound
			}
		}

		messages, err := store.FindByChatID(ctx, chatID, sel)
		if err != nil {
			return err
		}

		readers, err := store.FindReaders(ctx, lo.Map(messages, func(m *models.Message, _ int) string {
			return m.ID()
		}))
		if err != nil {
			return err
		}

		names := make(map[string]string)
		users := r.GetUsersStore()
		for _, senderID := range lo.Uniq(lo.Map(messages, func(m *models.Message, _ int) string {
			return m.SenderID()
		})) {
			user, err := users.FindByID(ctx, senderID)
			if err != nil {
				return err
			}
			names[senderID] = user.Username
		}

		views = lo.Map(messages, func(m *models.Message, _ int) models.MessageView {
			return models.MessageView{
				Message:    m,
				SenderName: names[m.SenderID()],
				ReadBy:     readers[m.ID()],
			}
		})
		return nil
	})

	if err != nil {
		return nil, err
	}
	return views, nil
}

func summarize(ctx context.Context, r storage.Registry, chat ResolvedChat, userID string) (models.ChatSummary, error) {
	store := r.GetMessagesStore()

	summary := models.ChatSummary{
		Kind:    chat.Kind,
		Private: chat.Private,
		Group:   chat.Group,
	}

	last, err := store.FindByChatID(ctx, chat.ID(), models.MessagesSelect{Limit: 1})
	if err != nil {
		return summary, err
	}
	if len(last) > 0 {
		summary.LastMessage = last[0]
	}

	summary.UnreadCount, err = store.CountUnreadByChatIDAndUserID(ctx, chat.ID(), userID)
	return summary, err
}
