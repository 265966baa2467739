package models

import "time"

type UpdateType string

const (
	MessageSentType        UpdateType = "message_sent"
	PrivateChatCreatedType UpdateType = "private_chat_created"
	GroupChatCreatedType   UpdateType = "group_chat_created"
	UserAddedToGroupType   UpdateType = "user_added_to_group"
)

// Update is an immutable fact emitted by use cases after a state change.
type Update interface {
	UpdateType() UpdateType
	// ChatKey is the id of the chat the update belongs to.
	ChatKey() string
	OccurredAt() time.Time
}

type UpdateMeta struct {
	Timestamp time.Time `validate:"required"`
}

func (m UpdateMeta) OccurredAt() time.Time {
	return m.Timestamp
}

func newUpdateMeta(timestamp []time.Time) UpdateMeta {
	if len(timestamp) > 0 && !timestamp[0].IsZero() {
		return UpdateMeta{Timestamp: timestamp[0].UTC()}
	}
	return UpdateMeta{Timestamp: now()}
}

type MessageSent struct {
	UpdateMeta
	MessageID     string `validate:"required,uuid"`
	ChatID        string `validate:"required,uuid"`
	SenderID      string `validate:"required"`
	SenderName    string
	IsPrivateChat bool
	Content       string    `validate:"required,max=2000"`
	CreatedAt     time.Time `validate:"required"`
}

func NewMessageSent(msg *Message, senderName string, timestamp ...time.Time) *MessageSent {
	return &MessageSent{
		UpdateMeta:    newUpdateMeta(timestamp),
		MessageID:     msg.ID(),
		ChatID:        msg.ChatID(),
		SenderID:      msg.SenderID(),
		SenderName:    senderName,
		IsPrivateChat: msg.IsPrivateChat(),
		Content:       msg.Content().String(),
		CreatedAt:     msg.CreatedAt(),
	}
}

func (u *MessageSent) UpdateType() UpdateType { return MessageSentType }
func (u *MessageSent) ChatKey() string        { return u.ChatID }

type PrivateChatCreated struct {
	UpdateMeta
	ChatID       string   `validate:"required,uuid"`
	Participants []string `validate:"len=2,dive,required"`
}

func NewPrivateChatCreated(chat *PrivateChat, timestamp ...time.Time) *PrivateChatCreated {
	return &PrivateChatCreated{
		UpdateMeta:   newUpdateMeta(timestamp),
		ChatID:       chat.ID(),
		Participants: chat.ParticipantIDs(),
	}
}

func (u *PrivateChatCreated) UpdateType() UpdateType { return PrivateChatCreatedType }
func (u *PrivateChatCreated) ChatKey() string        { return u.ChatID }

type GroupChatCreated struct {
	UpdateMeta
	ChatID       string   `validate:"required,uuid"`
	Name         string   `validate:"required,min=3,max=50"`
	CreatorID    string   `validate:"required"`
	Participants []string `validate:"min=1,dive,required"`
}

func NewGroupChatCreated(chat *GroupChat, creatorID string, timestamp ...time.Time) *GroupChatCreated {
	return &GroupChatCreated{
		UpdateMeta:   newUpdateMeta(timestamp),
		ChatID:       chat.ID(),
		Name:         chat.Name().String(),
		CreatorID:    creatorID,
		Participants: chat.ParticipantIDs(),
	}
}

func (u *GroupChatCreated) UpdateType() UpdateType { return GroupChatCreatedType }
func (u *GroupChatCreated) ChatKey() string        { return u.ChatID }

type UserAddedToGroup struct {
	UpdateMeta
	ChatID  string `validate:"required,uuid"`
	UserID  string `validate:"required"`
	AddedBy string `validate:"required"`
}

func NewUserAddedToGroup(chatID, userID, addedBy string, timestamp ...time.Time) *UserAddedToGroup {
	return &UserAddedToGroup{
		UpdateMeta: newUpdateMeta(timestamp),
		ChatID:     chatID,
		UserID:     userID,
		AddedBy:    addedBy,
	}
}

func (u *UserAddedToGroup) UpdateType() UpdateType { return UserAddedToGroupType }
func (u *UserAddedToGroup) ChatKey() string        { return u.ChatID }
