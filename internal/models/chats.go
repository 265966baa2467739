package models

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

type ChatKind string

const (
	PrivateChatKind ChatKind = "private"
	GroupChatKind   ChatKind = "group"
)

type ParticipantStatus string

const (
	ParticipantActive   ParticipantStatus = "active"
	ParticipantInactive ParticipantStatus = "inactive"
)

func (s ParticipantStatus) IsActive() bool {
	return s == ParticipantActive
}

const (
	ChatNameMinLength = 3
	ChatNameMaxLength = 50
)

// ChatName is a trimmed group chat name of 3 to 50 characters.
type ChatName struct {
	value string
}

func NewChatName(raw string) (ChatName, error) {
	name := strings.TrimSpace(raw)
	length := utf8.RuneCountInString(name)

	switch {
	case length == 0:
		return ChatName{}, ErrEmptyChatName
	case length < ChatNameMinLength:
		return ChatName{}, ErrChatNameTooShort
	case length > ChatNameMaxLength:
		return ChatName{}, ErrChatNameTooLong
	}

	return ChatName{value: name}, nil
}

func (n ChatName) String() string {
	return n.value
}

func (n ChatName) IsZero() bool {
	return n.value == ""
}

func now() time.Time {
	return time.Now().UTC()
}

type PrivateParticipant struct {
	UserID   string
	JoinedAt time.Time
	Status   ParticipantStatus
}

func (p PrivateParticipant) IsActive() bool {
	return p.Status.IsActive()
}

// PrivateChat is a conversation between exactly two distinct users.
// Participants are deactivated instead of removed, so both slots live for the
// whole lifetime of the chat.
type PrivateChat struct {
	id           string
	participants [2]PrivateParticipant
	createdAt    time.Time
	updatedAt    time.Time
}

func NewPrivateChat(initiatorID, participantID string) (*PrivateChat, error) {
	if initiatorID == "" || participantID == "" {
		return nil, ErrEmptyUserID
	}
	if initiatorID == participantID {
		return nil, ErrSameParticipant
	}

	ts := now()
	return &PrivateChat{
		id: uuid.NewString(),
		participants: [2]PrivateParticipant{
			{UserID: initiatorID, JoinedAt: ts, Status: ParticipantActive},
			{UserID: participantID, JoinedAt: ts, Status: ParticipantActive},
		},
		createdAt: ts,
		updatedAt: ts,
	}, nil
}

// RestorePrivateChat rebuilds a persisted chat. It is meant for repositories only.
func RestorePrivateChat(id string, participants []PrivateParticipant, createdAt, updatedAt time.Time) (*PrivateChat, error) {
	if len(participants) != 2 {
		return nil, ErrMalformedChat
	}
	if participants[0].UserID == "" || participants[1].UserID == "" {
		return nil, ErrEmptyUserID
	}
	if participants[0].UserID == participants[1].UserID {
		return nil, ErrSameParticipant
	}

	chat := &PrivateChat{
		id:        id,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
	copy(chat.participants[:], participants)
	return chat, nil
}

func (c *PrivateChat) ID() string {
	return c.id
}

func (c *PrivateChat) Participants() []PrivateParticipant {
	participants := make([]PrivateParticipant, len(c.participants))
	copy(participants, c.participants[:])
	return participants
}

func (c *PrivateChat) ParticipantIDs() []string {
	return []string{c.participants[0].UserID, c.participants[1].UserID}
}

func (c *PrivateChat) CreatedAt() time.Time {
	return c.createdAt
}

func (c *PrivateChat) UpdatedAt() time.Time {
	return c.updatedAt
}

// ContainsUser reports whether the user holds an active slot in the chat.
func (c *PrivateChat) ContainsUser(userID string) bool {
	p := c.participant(userID)
	return p != nil && p.IsActive()
}

func (c *PrivateChat) AllParticipantsActive() bool {
	return c.participants[0].IsActive() && c.participants[1].IsActive()
}

func (c *PrivateChat) DeactivateParticipant(userID string) error {
	return c.setStatus(userID, ParticipantInactive)
}

func (c *PrivateChat) ReactivateParticipant(userID string) error {
	return c.setStatus(userID, ParticipantActive)
}

func (c *PrivateChat) Clone() *PrivateChat {
	clone := *c
	return &clone
}

func (c *PrivateChat) setStatus(userID string, status ParticipantStatus) error {
	p := c.participant(userID)
	if p == nil {
		return ErrNotParticipant
	}

	p.Status = status
	c.updatedAt = now()
	return nil
}

func (c *PrivateChat) participant(userID string) *PrivateParticipant {
	for i := range c.participants {
		if c.participants[i].UserID == userID {
			return &c.participants[i]
		}
	}
	return nil
}
