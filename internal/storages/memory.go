package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/practice-sem-2/chat-service/internal/models"
)

type storedMessage struct {
	msg *models.Message
	seq uint64
}

// before reports whether m is older than other.
func (m storedMessage) before(other storedMessage) bool {
	if !m.msg.CreatedAt().Equal(other.msg.CreatedAt()) {
		return m.msg.CreatedAt().Before(other.msg.CreatedAt())
	}
	return m.seq < other.seq
}

type memoryState struct {
	mu       sync.RWMutex
	users    map[string]models.User
	private  map[string]*models.PrivateChat
	groups   map[string]*models.GroupChat
	messages map[string]storedMessage
	reads    map[string]models.MessageReadStatus
	seq      uint64
}

// MemoryRegistry keeps everything in process memory. Atomic calls are
// serialized but not rolled back on error.
type MemoryRegistry struct {
	state  *memoryState
	atomic *sync.Mutex
	inTx   bool
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		state: &memoryState{
			users:    make(map[string]models.User),
			private:  make(map[string]*models.PrivateChat),
			groups:   make(map[string]*models.GroupChat),
			messages: make(map[string]storedMessage),
			reads:    make(map[string]models.MessageReadStatus),
		},
		atomic: &sync.Mutex{},
	}
}

// AddUser registers a user so chats can reference it.
func (r *MemoryRegistry) AddUser(user models.User) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	r.state.users[user.ID] = user
}

func (r *MemoryRegistry) Atomic(ctx context.Context, fn AtomicFunc) error {
	if r.inTx {
		return fn(r)
	}

	r.atomic.Lock()
	defer r.atomic.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	return fn(&MemoryRegistry{
		state:  r.state,
		atomic: r.atomic,
		inTx:   true,
	})
}

func (r *MemoryRegistry) GetPrivateChatsStore() PrivateChatRepository {
	return (*memoryPrivateChats)(r.state)
}

func (r *MemoryRegistry) GetGroupChatsStore() GroupChatRepository {
	return (*memoryGroupChats)(r.state)
}

func (r *MemoryRegistry) GetMessagesStore() MessageRepository {
	return (*memoryMessages)(r.state)
}

func (r *MemoryRegistry) GetUsersStore() UserRepository {
	return (*memoryUsers)(r.state)
}

type memoryUsers memoryState

func (s *memoryUsers) FindByID(_ context.Context, userID string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[userID]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	return &user, nil
}

type memoryPrivateChats memoryState

func (s *memoryPrivateChats) FindByID(_ context.Context, chatID string) (*models.PrivateChat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chat, ok := s.private[chatID]
	if !ok {
		return nil, models.ErrChatNotFound
	}
	return chat.Clone(), nil
}

func (s *memoryPrivateChats) FindByParticipants(_ context.Context, userA, userB string) (*models.PrivateChat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, chat := range s.private {
		ids := chat.ParticipantIDs()
		if (ids[0] == userA && ids[1] == userB) || (ids[0] == userB && ids[1] == userA) {
			return chat.Clone(), nil
		}
	}
	return nil, models.ErrChatNotFound
}

func (s *memoryPrivateChats) FindByUserID(_ context.Context, userID string) ([]*models.PrivateChat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chats := make([]*models.PrivateChat, 0)
	for _, chat := range s.private {
		for _, id := range chat.ParticipantIDs() {
			if id == userID {
				chats = append(chats, chat.Clone())
				break
			}
		}
	}

	sort.Slice(chats, func(i, j int) bool {
		return chats[i].UpdatedAt().After(chats[j].UpdatedAt())
	})
	return chats, nil
}

func (s *memoryPrivateChats) Save(_ context.Context, chat *models.PrivateChat) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range chat.ParticipantIDs() {
		if _, ok := s.users[id]; !ok {
			return models.ErrUserNotFound
		}
	}

	low, high := orderedPair(chat.ParticipantIDs())
	for id, other := range s.private {
		if id == chat.ID() {
			continue
		}
		if l, h := orderedPair(other.ParticipantIDs()); l == low && h == high {
			return models.ErrPrivateChatExists
		}
	}
	s.private[chat.ID()] = chat.Clone()
	return nil
}

func (s *memoryPrivateChats) Delete(_ context.Context, chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.private[chatID]; !ok {
		return models.ErrChatNotFound
	}
	delete(s.private, chatID)
	(*memoryState)(s).deleteChatMessages(chatID)
	return nil
}

type memoryGroupChats memoryState

func (s *memoryGroupChats) FindByID(_ context.Context, chatID string) (*models.GroupChat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chat, ok := s.groups[chatID]
	if !ok {
		return nil, models.ErrChatNotFound
	}
	return chat.Clone(), nil
}

// FindByIDForUpdate relies on Atomic calls being serialized.
func (s *memoryGroupChats) FindByIDForUpdate(ctx context.Context, chatID string) (*models.GroupChat, error) {
	return s.FindByID(ctx, chatID)
}

func (s *memoryGroupChats) FindByUserID(_ context.Context, userID string) ([]*models.GroupChat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chats := make([]*models.GroupChat, 0)
	for _, chat := range s.groups {
		for _, id := range chat.ParticipantIDs() {
			if id == userID {
				chats = append(chats, chat.Clone())
				break
			}
		}
	}

	sort.Slice(chats, func(i, j int) bool {
		return chats[i].UpdatedAt().After(chats[j].UpdatedAt())
	})
	return chats, nil
}

func (s *memoryGroupChats) Save(_ context.Context, chat *models.GroupChat) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range chat.ParticipantIDs() {
		if _, ok := s.users[id]; !ok {
			return models.ErrUserNotFound
		}
	}
	s.groups[chat.ID()] = chat.Clone()
	return nil
}

func (s *memoryGroupChats) Delete(_ context.Context, chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[chatID]; !ok {
		return models.ErrChatNotFound
	}
	delete(s.groups, chatID)
	(*memoryState)(s).deleteChatMessages(chatID)
	return nil
}

type memoryMessages memoryState

func (s *memoryMessages) FindByID(_ context.Context, messageID string) (*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.messages[messageID]
	if !ok {
		return nil, models.ErrMessageNotFound
	}
	return stored.msg.Clone(), nil
}

func (s *memoryMessages) FindByChatID(_ context.Context, chatID string, sel models.MessagesSelect) ([]*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var cursor *storedMessage
	if sel.BeforeMessageID != "" {
		stored, ok := s.messages[sel.BeforeMessageID]
		if !ok {
			return []*models.Message{}, nil
		}
		cursor = &stored
	}

	page := make([]storedMessage, 0)
	for _, stored := range s.messages {
		if stored.msg.ChatID() != chatID {
			continue
		}
		if cursor != nil && !stored.before(*cursor) {
			continue
		}
		page = append(page, stored)
	}

	sort.Slice(page, func(i, j int) bool {
		return page[j].before(page[i])
	})

	if sel.Offset >= uint64(len(page)) {
		return []*models.Message{}, nil
	}
	page = page[sel.Offset:]
	if sel.Limit > 0 && sel.Limit < uint64(len(page)) {
		page = page[:sel.Limit]
	}

	messages := make([]*models.Message, len(page))
	for i, stored := range page {
		messages[i] = stored.msg.Clone()
	}
	return messages, nil
}

func (s *memoryMessages) FindReaders(_ context.Context, messageIDs []string) (map[string][]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]struct{}, len(messageIDs))
	for _, id := range messageIDs {
		wanted[id] = struct{}{}
	}

	statuses := make([]models.MessageReadStatus, 0)
	for _, st := range s.reads {
		if _, ok := wanted[st.MessageID]; ok {
			statuses = append(statuses, st)
		}
	}
	sort.Slice(statuses, func(i, j int) bool {
		if !statuses[i].ReadAt.Equal(statuses[j].ReadAt) {
			return statuses[i].ReadAt.Before(statuses[j].ReadAt)
		}
		return statuses[i].UserID < statuses[j].UserID
	})

	readers := make(map[string][]string, len(messageIDs))
	for _, st := range statuses {
		readers[st.MessageID] = append(readers[st.MessageID], st.UserID)
	}
	return readers, nil
}

func (s *memoryMessages) CountUnreadByChatIDAndUserID(_ context.Context, chatID, userID string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count uint64
	for id, stored := range s.messages {
		if stored.msg.ChatID() != chatID || stored.msg.SenderID() == userID {
			continue
		}
		if _, read := s.reads[id+":"+userID]; !read {
			count++
		}
	}
	return count, nil
}

func (s *memoryMessages) Save(_ context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[msg.SenderID()]; !ok {
		return models.ErrUserNotFound
	}
	if msg.IsPrivateChat() {
		if _, ok := s.private[msg.ChatID()]; !ok {
			return models.ErrChatNotFound
		}
	} else if _, ok := s.groups[msg.ChatID()]; !ok {
		return models.ErrChatNotFound
	}

	stored, exists := s.messages[msg.ID()]
	if !exists {
		s.seq++
		stored.seq = s.seq
	}
	stored.msg = msg.Clone()
	s.messages[msg.ID()] = stored
	return nil
}

func (s *memoryMessages) SaveReadStatus(_ context.Context, status *models.MessageReadStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.messages[status.MessageID]; !ok {
		return models.ErrMessageNotFound
	}
	if _, ok := s.users[status.UserID]; !ok {
		return models.ErrUserNotFound
	}
	s.reads[status.Key()] = *status
	return nil
}

func (s *memoryMessages) Delete(_ context.Context, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.messages[messageID]; !ok {
		return models.ErrMessageNotFound
	}
	(*memoryState)(s).deleteMessage(messageID)
	return nil
}

// deleteChatMessages must be called with mu held.
func (s *memoryState) deleteChatMessages(chatID string) {
	for id, stored := range s.messages {
		if stored.msg.ChatID() == chatID {
			s.deleteMessage(id)
		}
	}
}

func (s *memoryState) deleteMessage(messageID string) {
	delete(s.messages, messageID)
	for key, st := range s.reads {
		if st.MessageID == messageID {
			delete(s.reads, key)
		}
	}
}
