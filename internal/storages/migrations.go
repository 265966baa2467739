package storage

import (
	"errors"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// MigrationsDSN turns a postgres connection string into one understood by the
// migrate pgx driver.
func MigrationsDSN(dsn string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "pgx://" + strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}

// Migrate applies all pending migrations from dir, e.g. "file://migrations".
func Migrate(dir, dsn string) error {
	m, err := migrate.New(dir, MigrationsDSN(dsn))
	if err != nil {
		return err
	}
	defer m.Close()

	if err = m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
