package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type AtomicFunc func(Registry) error

// Registry gives access to chat repositories. Repositories obtained from the
// registry passed to an AtomicFunc share a single transaction.
type Registry interface {
	Atomic(ctx context.Context, fn AtomicFunc) error
	GetPrivateChatsStore() PrivateChatRepository
	GetGroupChatsStore() GroupChatRepository
	GetMessagesStore() MessageRepository
	GetUsersStore() UserRepository
}

type DefaultRegistry struct {
	db    *sqlx.DB
	scope Scope
}

type Scope interface {
	sqlx.QueryerContext
	sqlx.ExecerContext
	sqlx.Execer
	sqlx.Queryer
	Get(dest interface{}, query string, args ...interface{}) error
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	Select(dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	NamedExec(query string, arg interface{}) (sql.Result, error)
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
	NamedQuery(query string, arg interface{}) (*sqlx.Rows, error)
}

func NewRegistry(db *sqlx.DB) *DefaultRegistry {
	return &DefaultRegistry{
		db:    db,
		scope: db,
	}
}

func (r *DefaultRegistry) Atomic(ctx context.Context, fn AtomicFunc) (err error) {
	if _, nested := r.scope.(*sqlx.Tx); nested {
		return fn(r)
	}

	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("rollback caused by error: \"%v\" failed: %v", err, rbErr)
			}
		} else {
			err = tx.Commit()
		}
	}()

	storage := DefaultRegistry{
		db:    r.db,
		scope: tx,
	}
	err = fn(&storage)
	return err
}

func (r *DefaultRegistry) GetPrivateChatsStore() PrivateChatRepository {
	return NewPrivateChatsStorage(r.scope)
}

func (r *DefaultRegistry) GetGroupChatsStore() GroupChatRepository {
	return NewGroupChatsStorage(r.scope)
}

func (r *DefaultRegistry) GetMessagesStore() MessageRepository {
	return NewMessagesStorage(r.scope)
}

func (r *DefaultRegistry) GetUsersStore() UserRepository {
	return NewUsersStorage(r.scope)
}
