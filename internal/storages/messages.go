package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/practice-sem-2/chat-service/internal/models"
)

type messageRow struct {
	MessageID     string         `db:"message_id"`
	SenderID      string         `db:"sender_id"`
	PrivateChatID sql.NullString `db:"private_chat_id"`
	GroupChatID   sql.NullString `db:"group_chat_id"`
	Content       string         `db:"content"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

func (r *messageRow) toModel() (*models.Message, error) {
	var ref models.ChatRef
	switch {
	case r.PrivateChatID.Valid:
		ref = models.PrivateChatRef(r.PrivateChatID.String)
	case r.GroupChatID.Valid:
		ref = models.GroupChatRef(r.GroupChatID.String)
	}

	content, err := models.NewMessageContent(r.Content)
	if err != nil {
		return nil, err
	}

	return models.RestoreMessage(r.MessageID, r.SenderID, ref, content, r.CreatedAt.UTC(), r.UpdatedAt.UTC())
}

var messageColumns = []string{
	"message_id", "sender_id", "private_chat_id", "group_chat_id", "content", "created_at", "updated_at",
}

type MessagesStorage struct {
	db Scope
}

func NewMessagesStorage(db Scope) *MessagesStorage {
	return &MessagesStorage{
		db: db,
	}
}

func chatSelector(chatID string) sq.Sqlizer {
	return sq.Or{
		sq.Eq{"private_chat_id": chatID},
		sq.Eq{"group_chat_id": chatID},
	}
}

func (s *MessagesStorage) FindByID(ctx context.Context, messageID string) (*models.Message, error) {
	query, args, err := sq.Select(messageColumns...).
		From("messages").
		Where(sq.Eq{"message_id": messageID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return nil, err
	}

	row := messageRow{}
	err = s.db.GetContext(ctx, &row, query, args...)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrMessageNotFound
	} else if err != nil {
		return nil, err
	}

	return row.toModel()
}

func (s *MessagesStorage) FindByChatID(ctx context.Context, chatID string, sel models.MessagesSelect) ([]*models.Message, error) {
	selector := sq.And{chatSelector(chatID)}

	if sel.BeforeMessageID != "" {
		selector = append(selector, sq.Expr(
			"(created_at, message_id) < (SELECT created_at, message_id FROM messages WHERE message_id = ?)",
			sel.BeforeMessageID,
		))
	}

	builder := sq.Select(messageColumns...).
		From("messages").
		Where(selector).
		OrderBy("created_at DESC", "message_id DESC").
		PlaceholderFormat(sq.Dollar)

	if sel.Limit > 0 {
		builder = builder.Limit(sel.Limit)
	}
	if sel.Offset > 0 {
		builder = builder.Offset(sel.Offset)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	rows := make([]messageRow, 0)
	if err = s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	messages := make([]*models.Message, 0, len(rows))
	for i := range rows {
		msg, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	return messages, nil
}

func (s *MessagesStorage) FindReaders(ctx context.Context, messageIDs []string) (map[string][]string, error) {
	readers := make(map[string][]string, len(messageIDs))
	if len(messageIDs) == 0 {
		return readers, nil
	}

	query, args, err := sq.Select("message_id", "user_id", "read_at").
		From("message_read_status").
		Where(sq.Eq{"message_id": messageIDs}).
		OrderBy("read_at", "user_id").
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return nil, err
	}

	statuses := make([]models.MessageReadStatus, 0)
	if err = s.db.SelectContext(ctx, &statuses, query, args...); err != nil {
		return nil, err
	}

	for _, st := range statuses {
		readers[st.MessageID] = append(readers[st.MessageID], st.UserID)
	}
	return readers, nil
}

func (s *MessagesStorage) CountUnreadByChatIDAndUserID(ctx context.Context, chatID, userID string) (uint64, error) {
	query, args, err := sq.Select("count(*)").
		From("messages m").
		Where(sq.And{
			chatSelector(chatID),
			sq.NotEq{"m.sender_id": userID},
			sq.Expr("NOT EXISTS (SELECT 1 FROM message_read_status r WHERE r.message_id = m.message_id AND r.user_id = ?)", userID),
		}).
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return 0, err
	}

	var count uint64
	err = s.db.GetContext(ctx, &count, query, args...)
	return count, err
}

func (s *MessagesStorage) Save(ctx context.Context, msg *models.Message) error {
	var privateChatID, groupChatID *string
	if msg.IsPrivateChat() {
		id := msg.PrivateChatID()
		privateChatID = &id
	} else {
		id := msg.GroupChatID()
		groupChatID = &id
	}

	query, args, err := sq.Insert("messages").
		Columns(messageColumns...).
		Values(msg.ID(), msg.SenderID(), privateChatID, groupChatID, msg.Content().String(), msg.CreatedAt(), msg.UpdatedAt()).
		Suffix("ON CONFLICT (message_id) DO UPDATE SET content = EXCLUDED.content, updated_at = EXCLUDED.updated_at").
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, query, args...)

	switch GetPgxConstraintName(err) {
	case MessagesPrivateChatForeignKey, MessagesGroupChatForeignKey:
		return models.ErrChatNotFound
	case MessagesSenderForeignKey:
		return models.ErrUserNotFound
	}
	return err
}

func (s *MessagesStorage) SaveReadStatus(ctx context.Context, status *models.MessageReadStatus) error {
	query, args, err := sq.Insert("message_read_status").
		Columns("message_id", "user_id", "read_at").
		Values(status.MessageID, status.UserID, status.ReadAt).
		Suffix("ON CONFLICT (message_id, user_id) DO UPDATE SET read_at = EXCLUDED.read_at").
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, query, args...)

	switch GetPgxConstraintName(err) {
	case ReadStatusMessageForeignKey:
		return models.ErrMessageNotFound
	case ReadStatusUserForeignKey:
		return models.ErrUserNotFound
	}
	return err
}

func (s *MessagesStorage) Delete(ctx context.Context, messageID string) error {
	query, args, err := sq.Delete("messages").
		Where(sq.Eq{"message_id": messageID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return err
	}

	return execExpectingRows(ctx, s.db, models.ErrMessageNotFound, query, args...)
}
