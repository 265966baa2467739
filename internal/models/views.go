package models

type User struct {
	ID       string `db:"user_id"`
	Username string `db:"username"`
}

// ChatSummary is a chat as seen by one of its members.
type ChatSummary struct {
	Kind        ChatKind
	Private     *PrivateChat
	Group       *GroupChat
	LastMessage *Message
	UnreadCount uint64
}

func (s ChatSummary) ChatID() string {
	if s.Kind == PrivateChatKind {
		return s.Private.ID()
	}
	return s.Group.ID()
}

type UserChats struct {
	PrivateChats []ChatSummary
	GroupChats   []ChatSummary
}

// MessageView is a message enriched with read state for presentation.
type MessageView struct {
	Message    *Message
	SenderName string
	ReadBy     []string
}
