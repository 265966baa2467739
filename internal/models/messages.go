package models

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const MessageContentMaxLength = 2000

type MessageContent struct {
	value string
}

func NewMessageContent(raw string) (MessageContent, error) {
	content := strings.TrimSpace(raw)
	length := utf8.RuneCountInString(content)

	if length == 0 {
		return MessageContent{}, ErrEmptyMessage
	}
	if length > MessageContentMaxLength {
		return MessageContent{}, ErrMessageTooLong
	}

	return MessageContent{value: content}, nil
}

func (c MessageContent) String() string {
	return c.value
}

func (c MessageContent) IsZero() bool {
	return c.value == ""
}

// ChatRef points to the chat a message belongs to. A message belongs to
// exactly one chat of exactly one kind.
type ChatRef struct {
	Kind ChatKind
	ID   string
}

func PrivateChatRef(id string) ChatRef {
	return ChatRef{Kind: PrivateChatKind, ID: id}
}

func GroupChatRef(id string) ChatRef {
	return ChatRef{Kind: GroupChatKind, ID: id}
}

func (r ChatRef) Validate() error {
	if r.ID == "" {
		return ErrMessageWithoutChat
	}
	if r.Kind != PrivateChatKind && r.Kind != GroupChatKind {
		return ErrMessageWithoutChat
	}
	return nil
}

type Message struct {
	id        string
	content   MessageContent
	senderID  string
	chat      ChatRef
	createdAt time.Time
	updatedAt time.Time
}

func NewMessage(senderID string, chat ChatRef, content MessageContent) (*Message, error) {
	if senderID == "" {
		return nil, ErrEmptyUserID
	}
	if err := chat.Validate(); err != nil {
		return nil, err
	}
	if content.IsZero() {
		return nil, ErrEmptyMessage
	}

	ts := now()
	return &Message{
		id:        uuid.NewString(),
		content:   content,
		senderID:  senderID,
		chat:      chat,
		createdAt: ts,
		updatedAt: ts,
	}, nil
}

// RestoreMessage rebuilds a persisted message. It is meant for repositories only.
func RestoreMessage(id, senderID string, chat ChatRef, content MessageContent, createdAt, updatedAt time.Time) (*Message, error) {
	if err := chat.Validate(); err != nil {
		return nil, err
	}
	if content.IsZero() {
		return nil, ErrEmptyMessage
	}

	return &Message{
		id:        id,
		content:   content,
		senderID:  senderID,
		chat:      chat,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}, nil
}

func (m *Message) ID() string {
	return m.id
}

func (m *Message) Content() MessageContent {
	return m.content
}

func (m *Message) SenderID() string {
	return m.senderID
}

func (m *Message) ChatID() string {
	return m.chat.ID
}

func (m *Message) Chat() ChatRef {
	return m.chat
}

func (m *Message) IsPrivateChat() bool {
	return m.chat.Kind == PrivateChatKind
}

// PrivateChatID returns the owning private chat id or an empty string.
func (m *Message) PrivateChatID() string {
	if m.IsPrivateChat() {
		return m.chat.ID
	}
	return ""
}

// GroupChatID returns the owning group chat id or an empty string.
func (m *Message) GroupChatID() string {
	if m.chat.Kind == GroupChatKind {
		return m.chat.ID
	}
	return ""
}

func (m *Message) CreatedAt() time.Time {
	return m.createdAt
}

func (m *Message) UpdatedAt() time.Time {
	return m.updatedAt
}

func (m *Message) UpdateContent(content MessageContent) error {
	if content.IsZero() {
		return ErrEmptyMessage
	}
	m.content = content
	m.updatedAt = now()
	return nil
}

func (m *Message) Clone() *Message {
	clone := *m
	return &clone
}

type MessageReadStatus struct {
	MessageID string    `db:"message_id"`
	UserID    string    `db:"user_id"`
	ReadAt    time.Time `db:"read_at"`
}

func NewMessageReadStatus(messageID, userID string) (*MessageReadStatus, error) {
	if messageID == "" {
		return nil, ErrEmptyMessageID
	}
	if userID == "" {
		return nil, ErrEmptyUserID
	}

	return &MessageReadStatus{
		MessageID: messageID,
		UserID:    userID,
		ReadAt:    now(),
	}, nil
}

func (s MessageReadStatus) Key() string {
	return s.MessageID + ":" + s.UserID
}

// MessagesSelect describes a page of chat messages, newest first.
type MessagesSelect struct {
	Limit           uint64
	Offset          uint64
	BeforeMessageID string
}
