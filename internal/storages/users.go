package storage

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/practice-sem-2/chat-service/internal/models"
)

// UsersStorage reads the users table owned by the user-management service.
type UsersStorage struct {
	db Scope
}

func NewUsersStorage(db Scope) *UsersStorage {
	return &UsersStorage{
		db: db,
	}
}

func (s *UsersStorage) FindByID(ctx context.Context, userID string) (*models.User, error) {
	query, args, err := sq.Select("user_id", "username").
		From("users").
		Where(sq.Eq{"user_id": userID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return nil, err
	}

	user := models.User{}
	err = s.db.GetContext(ctx, &user, query, args...)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrUserNotFound
	} else if err != nil {
		return nil, err
	}

	return &user, nil
}
