package models

import (
	"time"

	"github.com/google/uuid"
)

type GroupParticipant struct {
	UserID   string
	JoinedAt time.Time
	IsAdmin  bool
	Status   ParticipantStatus
}

func (p GroupParticipant) IsActive() bool {
	return p.Status.IsActive()
}

// GroupChat is a named conversation between any number of users.
// The creator is always the first participant. There is at least one active
// admin at any time and removed participants keep their slot as inactive.
type GroupChat struct {
	id           string
	name         ChatName
	participants []GroupParticipant
	createdAt    time.Time
	updatedAt    time.Time
}

func NewGroupChat(name ChatName, creatorID string, participantIDs []string) (*GroupChat, error) {
	if name.IsZero() {
		return nil, ErrEmptyChatName
	}
	if creatorID == "" {
		return nil, ErrEmptyUserID
	}

	ts := now()
	participants := make([]GroupParticipant, 0, len(participantIDs)+1)
	participants = append(participants, GroupParticipant{
		UserID:   creatorID,
		JoinedAt: ts,
		IsAdmin:  true,
		Status:   ParticipantActive,
	})

	seen := map[string]struct{}{creatorID: {}}
	for _, id := range participantIDs {
		if id == "" {
			return nil, ErrEmptyUserID
		}
		if _, ok := seen[id]; ok {
			return nil, ErrDuplicateParticipant
		}
		seen[id] = struct{}{}
		participants = append(participants, GroupParticipant{
			UserID:   id,
			JoinedAt: ts,
			Status:   ParticipantActive,
		})
	}

	return &GroupChat{
		id:           uuid.NewString(),
		name:         name,
		participants: participants,
		createdAt:    ts,
		updatedAt:    ts,
	}, nil
}

// RestoreGroupChat rebuilds a persisted chat. It is meant for repositories only.
func RestoreGroupChat(id string, name ChatName, participants []GroupParticipant, createdAt, updatedAt time.Time) (*GroupChat, error) {
	if name.IsZero() {
		return nil, ErrEmptyChatName
	}

	seen := make(map[string]struct{}, len(participants))
	for _, p := range participants {
		if p.UserID == "" {
			return nil, ErrEmptyUserID
		}
		if _, ok := seen[p.UserID]; ok {
			return nil, ErrDuplicateParticipant
		}
		seen[p.UserID] = struct{}{}
	}

	restored := make([]GroupParticipant, len(participants))
	copy(restored, participants)

	return &GroupChat{
		id:           id,
		name:         name,
		participants: restored,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
	}, nil
}

func (c *GroupChat) ID() string {
	return c.id
}

func (c *GroupChat) Name() ChatName {
	return c.name
}

func (c *GroupChat) Participants() []GroupParticipant {
	participants := make([]GroupParticipant, len(c.participants))
	copy(participants, c.participants)
	return participants
}

// ParticipantIDs returns ids of all participants, including inactive ones.
func (c *GroupChat) ParticipantIDs() []string {
	ids := make([]string, len(c.participants))
	for i, p := range c.participants {
		ids[i] = p.UserID
	}
	return ids
}

func (c *GroupChat) CreatedAt() time.Time {
	return c.createdAt
}

func (c *GroupChat) UpdatedAt() time.Time {
	return c.updatedAt
}

func (c *GroupChat) ContainsUser(userID string) bool {
	p := c.participant(userID)
	return p != nil && p.IsActive()
}

func (c *GroupChat) IsAdmin(userID string) bool {
	p := c.participant(userID)
	return p != nil && p.IsActive() && p.IsAdmin
}

func (c *GroupChat) AddParticipant(userID, addedBy string) error {
	if userID == "" {
		return ErrEmptyUserID
	}
	if !c.IsAdmin(addedBy) {
		return ErrAdminRequired
	}

	ts := now()
	if p := c.participant(userID); p != nil {
		if p.IsActive() {
			return ErrAlreadyParticipant
		}
		p.Status = ParticipantActive
		p.IsAdmin = false
		c.updatedAt = ts
		return nil
	}

	c.participants = append(c.participants, GroupParticipant{
		UserID:   userID,
		JoinedAt: ts,
		Status:   ParticipantActive,
	})
	c.updatedAt = ts
	return nil
}

func (c *GroupChat) RemoveParticipant(userID, removedBy string) error {
	if !c.IsAdmin(removedBy) {
		return ErrAdminRequired
	}

	p := c.participant(userID)
	if p == nil || !p.IsActive() {
		return ErrNotParticipant
	}
	if p.IsAdmin && c.activeAdmins() == 1 {
		return ErrLastAdmin
	}

	p.Status = ParticipantInactive
	c.updatedAt = now()
	return nil
}

func (c *GroupChat) MakeAdmin(userID, promotedBy string) error {
	if !c.IsAdmin(promotedBy) {
		return ErrAdminRequired
	}

	p := c.participant(userID)
	if p == nil {
		return ErrNotParticipant
	}
	if !p.IsActive() {
		return ErrInactiveParticipant
	}

	p.IsAdmin = true
	c.updatedAt = now()
	return nil
}

func (c *GroupChat) RemoveAdmin(userID, demotedBy string) error {
	if !c.IsAdmin(demotedBy) {
		return ErrAdminRequired
	}

	p := c.participant(userID)
	if p == nil || !p.IsActive() {
		return ErrNotParticipant
	}
	if !p.IsAdmin {
		return ErrNotAdmin
	}
	if c.activeAdmins() == 1 {
		return ErrLastAdmin
	}

	p.IsAdmin = false
	c.updatedAt = now()
	return nil
}

func (c *GroupChat) UpdateName(name ChatName, updatedBy string) error {
	if name.IsZero() {
		return ErrEmptyChatName
	}
	if !c.IsAdmin(updatedBy) {
		return ErrAdminRequired
	}

	c.name = name
	c.updatedAt = now()
	return nil
}

// Leave deactivates the caller's own slot. The only active admin can't leave.
func (c *GroupChat) Leave(userID string) error {
	p := c.participant(userID)
	if p == nil || !p.IsActive() {
		return ErrNotParticipant
	}
	if p.IsAdmin && c.activeAdmins() == 1 {
		return ErrLastAdmin
	}

	p.Status = ParticipantInactive
	c.updatedAt = now()
	return nil
}

func (c *GroupChat) Clone() *GroupChat {
	clone := *c
	clone.participants = c.Participants()
	return &clone
}

func (c *GroupChat) activeAdmins() int {
	count := 0
	for _, p := range c.participants {
		if p.IsActive() && p.IsAdmin {
			count++
		}
	}
	return count
}

func (c *GroupChat) participant(userID string) *GroupParticipant {
	for i := range c.participants {
		if c.participants[i].UserID == userID {
			return &c.participants[i]
		}
	}
	return nil
}
