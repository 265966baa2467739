package storage

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/practice-sem-2/chat-service/internal/models"
)

type groupChatRow struct {
	ChatID    string    `db:"chat_id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type groupMemberRow struct {
	ChatID   string    `db:"chat_id"`
	UserID   string    `db:"user_id"`
	Position int       `db:"position"`
	IsAdmin  bool      `db:"is_admin"`
	JoinedAt time.Time `db:"joined_at"`
	Status   string    `db:"status"`
}

type GroupChatsStorage struct {
	db Scope
}

func NewGroupChatsStorage(db Scope) *GroupChatsStorage {
	return &GroupChatsStorage{
		db: db,
	}
}

func (s *GroupChatsStorage) FindByID(ctx context.Context, chatID string) (*models.GroupChat, error) {
	return s.findOne(ctx, chatID, "")
}

func (s *GroupChatsStorage) FindByIDForUpdate(ctx context.Context, chatID string) (*models.GroupChat, error) {
	return s.findOne(ctx, chatID, "FOR UPDATE")
}

func (s *GroupChatsStorage) FindByUserID(ctx context.Context, userID string) ([]*models.GroupChat, error) {
	sub, args, err := sq.Select("chat_id").
		From("group_chat_members").
		Where(sq.Eq{"user_id": userID}).
		ToSql()

	if err != nil {
		return nil, err
	}

	return s.find(ctx, sq.Expr("chat_id IN ("+sub+")", args...), "")
}

func (s *GroupChatsStorage) Save(ctx context.Context, chat *models.GroupChat) error {
	query, args, err := sq.Insert("group_chats").
		Columns("chat_id", "name", "created_at", "updated_at").
		Values(chat.ID(), chat.Name().String(), chat.CreatedAt(), chat.UpdatedAt()).
		Suffix("ON CONFLICT (chat_id) DO UPDATE SET name = EXCLUDED.name, updated_at = EXCLUDED.updated_at").
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return err
	}

	if _, err = s.db.ExecContext(ctx, query, args...); err != nil {
		return err
	}

	builder := sq.Insert("group_chat_members").
		Columns("chat_id", "user_id", "position", "is_admin", "joined_at", "status").
		Suffix("ON CONFLICT (chat_id, user_id) DO UPDATE SET is_admin = EXCLUDED.is_admin, status = EXCLUDED.status").
		PlaceholderFormat(sq.Dollar)

	for position, p := range chat.Participants() {
		builder = builder.Values(chat.ID(), p.UserID, position, p.IsAdmin, p.JoinedAt, string(p.Status))
	}

	query, args, err = builder.ToSql()
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, query, args...)
	if GetPgxConstraintName(err) == GroupChatMembersUserForeign {
		return models.ErrUserNotFound
	}
	return err
}

func (s *GroupChatsStorage) Delete(ctx context.Context, chatID string) error {
	query, args, err := sq.Delete("group_chats").
		Where(sq.Eq{"chat_id": chatID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return err
	}

	return execExpectingRows(ctx, s.db, models.ErrChatNotFound, query, args...)
}

func (s *GroupChatsStorage) findOne(ctx context.Context, chatID string, lock string) (*models.GroupChat, error) {
	chats, err := s.find(ctx, sq.Eq{"chat_id": chatID}, lock)
	if err != nil {
		return nil, err
	}
	if len(chats) == 0 {
		return nil, models.ErrChatNotFound
	}
	return chats[0], nil
}

func (s *GroupChatsStorage) find(ctx context.Context, selector sq.Sqlizer, lock string) ([]*models.GroupChat, error) {
	builder := sq.Select("chat_id", "name", "created_at", "updated_at").
		From("group_chats").
		Where(selector).
		OrderBy("updated_at DESC").
		PlaceholderFormat(sq.Dollar)

	if lock != "" {
		builder = builder.Suffix(lock)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	rows := make([]groupChatRow, 0)
	if err = s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []*models.GroupChat{}, nil
	}

	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ChatID
	}

	query, args, err = sq.Select("chat_id", "user_id", "position", "is_admin", "joined_at", "status").
		From("group_chat_members").
		Where(sq.Eq{"chat_id": ids}).
		OrderBy("chat_id", "position").
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return nil, err
	}

	members := make([]groupMemberRow, 0)
	if err = s.db.SelectContext(ctx, &members, query, args...); err != nil {
		return nil, err
	}

	participants := make(map[string][]models.GroupParticipant, len(rows))
	for _, m := range members {
		participants[m.ChatID] = append(participants[m.ChatID], models.GroupParticipant{
			UserID:   m.UserID,
			JoinedAt: m.JoinedAt.UTC(),
			IsAdmin:  m.IsAdmin,
			Status:   models.ParticipantStatus(m.Status),
		})
	}

	chats := make([]*models.GroupChat, 0, len(rows))
	for _, row := range rows {
		name, err := models.NewChatName(row.Name)
		if err != nil {
			return nil, err
		}
		chat, err := models.RestoreGroupChat(row.ChatID, name, participants[row.ChatID], row.CreatedAt.UTC(), row.UpdatedAt.UTC())
		if err != nil {
			return nil, err
		}
		chats = append(chats, chat)
	}

	return chats, nil
}
