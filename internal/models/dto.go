package models

import (
	"time"

	"github.com/samber/lo"
)

type MessageDTO struct {
	ID            string    `json:"id"`
	Content       string    `json:"content"`
	SenderID      string    `json:"senderId"`
	SenderName    string    `json:"senderName"`
	ChatID        string    `json:"chatId"`
	IsPrivateChat bool      `json:"isPrivateChat"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
	IsRead        bool      `json:"isRead"`
	ReadBy        []string  `json:"readBy"`
}

type LastMessageDTO struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	SenderID  string    `json:"senderId"`
	CreatedAt time.Time `json:"createdAt"`
}

type PrivateParticipantDTO struct {
	UserID   string    `json:"userId"`
	IsActive bool      `json:"isActive"`
	JoinedAt time.Time `json:"joinedAt"`
}

type PrivateChatDTO struct {
	ID           string                  `json:"id"`
	Type         ChatKind                `json:"type"`
	Participants []PrivateParticipantDTO `json:"participants"`
	CreatedAt    time.Time               `json:"createdAt"`
	UpdatedAt    time.Time               `json:"updatedAt"`
	LastMessage  *LastMessageDTO         `json:"lastMessage,omitempty"`
	UnreadCount  uint64                  `json:"unreadCount"`
}

type GroupParticipantDTO struct {
	UserID   string    `json:"userId"`
	IsAdmin  bool      `json:"isAdmin"`
	IsActive bool      `json:"isActive"`
	JoinedAt time.Time `json:"joinedAt"`
}

type GroupChatDTO struct {
	ID           string                `json:"id"`
	Type         ChatKind              `json:"type"`
	Name         string                `json:"name"`
	Participants []GroupParticipantDTO `json:"participants"`
	CreatedAt    time.Time             `json:"createdAt"`
	UpdatedAt    time.Time             `json:"updatedAt"`
	LastMessage  *LastMessageDTO       `json:"lastMessage,omitempty"`
	UnreadCount  uint64                `json:"unreadCount"`
}

type UserChatsDTO struct {
	PrivateChats []PrivateChatDTO `json:"privateChats"`
	GroupChats   []GroupChatDTO   `json:"groupChats"`
}

type ChatCreatedDTO struct {
	Type         ChatKind  `json:"type"`
	ID           string    `json:"id"`
	Participants []string  `json:"participants"`
	Name         string    `json:"name,omitempty"`
	CreatorID    string    `json:"creatorId,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

type AddedToGroupDTO struct {
	ChatID    string    `json:"chatId"`
	AddedBy   string    `json:"addedBy"`
	Timestamp time.Time `json:"timestamp"`
}

func MessageToDTO(msg *Message) MessageDTO {
	return MessageDTO{
		ID:            msg.ID(),
		Content:       msg.Content().String(),
		SenderID:      msg.SenderID(),
		ChatID:        msg.ChatID(),
		IsPrivateChat: msg.IsPrivateChat(),
		CreatedAt:     msg.CreatedAt(),
		UpdatedAt:     msg.UpdatedAt(),
		ReadBy:        []string{},
	}
}

func MessageViewToDTO(view MessageView) MessageDTO {
	dto := MessageToDTO(view.Message)
	dto.SenderName = view.SenderName
	if len(view.ReadBy) > 0 {
		dto.IsRead = true
		dto.ReadBy = view.ReadBy
	}
	return dto
}

// MessageSentToDTO builds the realtime representation of a freshly sent message.
func MessageSentToDTO(u *MessageSent) MessageDTO {
	return MessageDTO{
		ID:            u.MessageID,
		Content:       u.Content,
		SenderID:      u.SenderID,
		SenderName:    u.SenderName,
		ChatID:        u.ChatID,
		IsPrivateChat: u.IsPrivateChat,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.CreatedAt,
		ReadBy:        []string{},
	}
}

func lastMessageToDTO(msg *Message) *LastMessageDTO {
	if msg == nil {
		return nil
	}
	return &LastMessageDTO{
		ID:        msg.ID(),
		Content:   msg.Content().String(),
		SenderID:  msg.SenderID(),
		CreatedAt: msg.CreatedAt(),
	}
}

func PrivateChatToDTO(chat *PrivateChat, last *Message, unread uint64) PrivateChatDTO {
	return PrivateChatDTO{
		ID:   chat.ID(),
		Type: PrivateChatKind,
		Participants: lo.Map(chat.Participants(), func(p PrivateParticipant, _ int) PrivateParticipantDTO {
			return PrivateParticipantDTO{
				UserID:   p.UserID,
				IsActive: p.IsActive(),
				JoinedAt: p.JoinedAt,
			}
		}),
		CreatedAt:   chat.CreatedAt(),
		UpdatedAt:   chat.UpdatedAt(),
		LastMessage: lastMessageToDTO(last),
		UnreadCount: unread,
	}
}

func GroupChatToDTO(chat *GroupChat, last *Message, unread uint64) GroupChatDTO {
	return GroupChatDTO{
		ID:   chat.ID(),
		Type: GroupChatKind,
		Name: chat.Name().String(),
		Participants: lo.Map(chat.Participants(), func(p GroupParticipant, _ int) GroupParticipantDTO {
			return GroupParticipantDTO{
				UserID:   p.UserID,
				IsAdmin:  p.IsAdmin,
				IsActive: p.IsActive(),
				JoinedAt: p.JoinedAt,
			}
		}),
		CreatedAt:   chat.CreatedAt(),
		UpdatedAt:   chat.UpdatedAt(),
		LastMessage: lastMessageToDTO(last),
		UnreadCount: unread,
	}
}

// SummaryToDTO returns either a PrivateChatDTO or a GroupChatDTO.
func SummaryToDTO(s ChatSummary) any {
	if s.Kind == PrivateChatKind {
		return PrivateChatToDTO(s.Private, s.LastMessage, s.UnreadCount)
	}
	return GroupChatToDTO(s.Group, s.LastMessage, s.UnreadCount)
}

func UserChatsToDTO(chats *UserChats) UserChatsDTO {
	return UserChatsDTO{
		PrivateChats: lo.Map(chats.PrivateChats, func(s ChatSummary, _ int) PrivateChatDTO {
			return PrivateChatToDTO(s.Private, s.LastMessage, s.UnreadCount)
		}),
		GroupChats: lo.Map(chats.GroupChats, func(s ChatSummary, _ int) GroupChatDTO {
			return GroupChatToDTO(s.Group, s.LastMessage, s.UnreadCount)
		}),
	}
}

func PrivateChatCreatedToDTO(u *PrivateChatCreated) ChatCreatedDTO {
	return ChatCreatedDTO{
		Type:         PrivateChatKind,
		ID:           u.ChatID,
		Participants: u.Participants,
		Timestamp:    u.Timestamp,
	}
}

func GroupChatCreatedToDTO(u *GroupChatCreated) ChatCreatedDTO {
	return ChatCreatedDTO{
		Type:         GroupChatKind,
		ID:           u.ChatID,
		Participants: u.Participants,
		Name:         u.Name,
		CreatorID:    u.CreatorID,
		Timestamp:    u.Timestamp,
	}
}

func UserAddedToGroupToDTO(u *UserAddedToGroup) AddedToGroupDTO {
	return AddedToGroupDTO{
		ChatID:    u.ChatID,
		AddedBy:   u.AddedBy,
		Timestamp: u.Timestamp,
	}
}
