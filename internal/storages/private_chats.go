package storage

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/practice-sem-2/chat-service/internal/models"
)

type privateChatRow struct {
	ChatID    string    `db:"chat_id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type privateMemberRow struct {
	ChatID   string    `db:"chat_id"`
	UserID   string    `db:"user_id"`
	Slot     int       `db:"slot"`
	JoinedAt time.Time `db:"joined_at"`
	Status   string    `db:"status"`
}

type PrivateChatsStorage struct {
	db Scope
}

func NewPrivateChatsStorage(db Scope) *PrivateChatsStorage {
	return &PrivateChatsStorage{
		db: db,
	}
}

func (s *PrivateChatsStorage) FindByID(ctx context.Context, chatID string) (*models.PrivateChat, error) {
	chats, err := s.find(ctx, sq.Eq{"chat_id": chatID})
	if err != nil {
		return nil, err
	}
	if len(chats) == 0 {
		return nil, models.ErrChatNotFound
	}
	return chats[0], nil
}

func (s *PrivateChatsStorage) FindByParticipants(ctx context.Context, userA, userB string) (*models.PrivateChat, error) {
	low, high := orderedPair([]string{userA, userB})
	chats, err := s.find(ctx, sq.Eq{"user_low": low, "user_high": high})
	if err != nil {
		return nil, err
	}
	if len(chats) == 0 {
		return nil, models.ErrChatNotFound
	}
	return chats[0], nil
}

func (s *PrivateChatsStorage) FindByUserID(ctx context.Context, userID string) ([]*models.PrivateChat, error) {
	members := sq.Select("chat_id").
		From("private_chat_members").
		Where(sq.Eq{"user_id": userID})

	sub, args, err := members.ToSql()
	if err != nil {
		return nil, err
	}

	return s.find(ctx, sq.Expr("chat_id IN ("+sub+")", args...))
}

func (s *PrivateChatsStorage) Save(ctx context.Context, chat *models.PrivateChat) error {
	low, high := orderedPair(chat.ParticipantIDs())
	query, args, err := sq.Insert("private_chats").
		Columns("chat_id", "user_low", "user_high", "created_at", "updated_at").
		Values(chat.ID(), low, high, chat.CreatedAt(), chat.UpdatedAt()).
		Suffix("ON CONFLICT (chat_id) DO UPDATE SET updated_at = EXCLUDED.updated_at").
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, query, args...)
	switch GetPgxConstraintName(err) {
	case PrivateChatsUsersUnique:
		return models.ErrPrivateChatExists
	case PrivateChatsLowUserForeign, PrivateChatsHighUserForeign:
		return models.ErrUserNotFound
	}
	if err != nil {
		return err
	}

	builder := sq.Insert("private_chat_members").
		Columns("chat_id", "user_id", "slot", "joined_at", "status").
		Suffix("ON CONFLICT (chat_id, user_id) DO UPDATE SET status = EXCLUDED.status").
		PlaceholderFormat(sq.Dollar)

	for slot, p := range chat.Participants() {
		builder = builder.Values(chat.ID(), p.UserID, slot, p.JoinedAt, string(p.Status))
	}

	query, args, err = builder.ToSql()
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, query, args...)
	if GetPgxConstraintName(err) == PrivateChatMembersUserForeign {
		return models.ErrUserNotFound
	}
	return err
}

func (s *PrivateChatsStorage) Delete(ctx context.Context, chatID string) error {
	query, args, err := sq.Delete("private_chats").
		Where(sq.Eq{"chat_id": chatID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return err
	}

	return execExpectingRows(ctx, s.db, models.ErrChatNotFound, query, args...)
}

func (s *PrivateChatsStorage) find(ctx context.Context, selector sq.Sqlizer) ([]*models.PrivateChat, error) {
	query, args, err := sq.Select("chat_id", "created_at", "updated_at").
		From("private_chats").
		Where(selector).
		OrderBy("updated_at DESC").
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return nil, err
	}

	rows := make([]privateChatRow, 0)
	if err = s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []*models.PrivateChat{}, nil
	}

	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ChatID
	}

	query, args, err = sq.Select("chat_id", "user_id", "slot", "joined_at", "status").
		From("private_chat_members").
		Where(sq.Eq{"chat_id": ids}).
		OrderBy("chat_id", "slot").
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return nil, err
	}

	members := make([]privateMemberRow, 0)
	if err = s.db.SelectContext(ctx, &members, query, args...); err != nil {
		return nil, err
	}

	participants := make(map[string][]models.PrivateParticipant, len(rows))
	for _, m := range members {
		participants[m.ChatID] = append(participants[m.ChatID], models.PrivateParticipant{
			UserID:   m.UserID,
			JoinedAt: m.JoinedAt.UTC(),
			Status:   models.ParticipantStatus(m.Status),
		})
	}

	chats := make([]*models.PrivateChat, 0, len(rows))
	for _, row := range rows {
		chat, err := models.RestorePrivateChat(row.ChatID, participants[row.ChatID], row.CreatedAt.UTC(), row.UpdatedAt.UTC())
		if err != nil {
			return nil, err
		}
		chats = append(chats, chat)
	}

	return chats, nil
}

// orderedPair returns the participants of a private chat in ascending order.
func orderedPair(ids []string) (string, string) {
	if ids[1] < ids[0] {
		return ids[1], ids[0]
	}
	return ids[0], ids[1]
}

func execExpectingRows(ctx context.Context, db Scope, notFound error, query string, args ...interface{}) error {
	res, err := db.ExecContext(ctx, query, args...)

	if err != nil {
		return err
	}

	count, err := res.RowsAffected()

	if err != nil {
		return err
	}

	if count == 0 {
		return notFound
	}

	return nil
}
