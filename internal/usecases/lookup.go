package usecases

import (
	"context"
	"errors"

	"github.com/practice-sem-2/chat-service/internal/models"
	storage "github.com/practice-sem-2/chat-service/internal/storages"
)

// ResolvedChat holds exactly one of Private and Group, as told by Kind.
type ResolvedChat struct {
	Kind    models.ChatKind
	Private *models.PrivateChat
	Group   *models.GroupChat
}

func (c ResolvedChat) ID() string {
	if c.Kind == models.PrivateChatKind {
		return c.Private.ID()
	}
	return c.Group.ID()
}

func (c ResolvedChat) Ref() models.ChatRef {
	return models.ChatRef{Kind: c.Kind, ID: c.ID()}
}

func (c ResolvedChat) ContainsUser(userID string) bool {
	if c.Kind == models.PrivateChatKind {
		return c.Private.ContainsUser(userID)
	}
	return c.Group.ContainsUser(userID)
}

// ChatLookup resolves chat ids of either kind, private chats first.
type ChatLookup struct {
	concealForeign bool
}

func (l ChatLookup) Resolve(ctx context.Context, r storage.Registry, chatID string) (ResolvedChat, error) {
	if !ValidateUUID(chatID) {
		return ResolvedChat{}, models.ErrChatNotFound
	}

	private, err := r.GetPrivateChatsStore().FindByID(ctx, chatID)
	if err == nil {
		return ResolvedChat{Kind: models.PrivateChatKind, Private: private}, nil
	} else if !errors.Is(err, models.ErrChatNotFound) {
		return ResolvedChat{}, err
	}

	group, err := r.GetGroupChatsStore().FindByID(ctx, chatID)
	if err != nil {
		return ResolvedChat{}, err
	}
	return ResolvedChat{Kind: models.GroupChatKind, Group: group}, nil
}

// ResolveRef loads the chat of a known kind.
func (l ChatLookup) ResolveRef(ctx context.Context, r storage.Registry, ref models.ChatRef) (ResolvedChat, error) {
	switch ref.Kind {
	case models.PrivateChatKind:
		chat, err := r.GetPrivateChatsStore().FindByID(ctx, ref.ID)
		if err != nil {
			return ResolvedChat{}, err
		}
		return ResolvedChat{Kind: ref.Kind, Private: chat}, nil
	case models.GroupChatKind:
		chat, err := r.GetGroupChatsStore().FindByID(ctx, ref.ID)
		if err != nil {
			return ResolvedChat{}, err
		}
		return ResolvedChat{Kind: ref.Kind, Group: chat}, nil
	default:
		return ResolvedChat{}, models.ErrChatNotFound
	}
}

// ResolveForMember resolves the chat and checks that the user is its active member.
func (l ChatLookup) ResolveForMember(ctx context.Context, r storage.Registry, chatID, userID string) (ResolvedChat, error) {
	chat, err := l.Resolve(ctx, r, chatID)
	if err != nil {
		return ResolvedChat{}, err
	}
	if !chat.ContainsUser(userID) {
		return ResolvedChat{}, l.denied()
	}
	return chat, nil
}

func (l ChatLookup) denied() error {
	if l.concealForeign {
		return models.ErrChatNotFound
	}
	return ErrUnauthorizedChatAccess
}
