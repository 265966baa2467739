package storage

import (
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v4/stdlib"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// PostgresTestSuite migrates the database from DB_DSN and is skipped when the
// variable is not set.
type PostgresTestSuite struct {
	suite.Suite
	db *sqlx.DB
	m  *migrate.Migrate
}

func (s *PostgresTestSuite) SetupSuite() {
	var err error
	viper.AutomaticEnv()
	dbDsn := viper.GetString("DB_DSN")
	if dbDsn == "" {
		s.T().Skip("DB_DSN is not set")
	}

	migrationsDsn := viper.GetString("MIGRATIONS_DSN")
	if migrationsDsn == "" {
		migrationsDsn = MigrationsDSN(dbDsn)
	}
	migrationsDir := viper.GetString("MIGRATIONS_DIR")
	if migrationsDir == "" {
		migrationsDir = "file://../../migrations"
	}

	s.db, err = sqlx.Connect("pgx", dbDsn)
	require.NoError(s.T(), err, "failed to connect to database")

	s.m, err = migrate.New(migrationsDir, migrationsDsn)

	require.NoError(s.T(), err, "failed to open migrations")

	err = s.m.Up()
	if err != migrate.ErrNoChange {
		require.NoError(s.T(), err, "failed to migrate database")
	}
}

func (s *PostgresTestSuite) TearDownSuite() {
	if s.m != nil {
		_ = s.m.Down()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
}

func (s *PostgresTestSuite) truncate() {
	_, err := s.db.Exec("TRUNCATE message_read_status, messages, group_chat_members, group_chats, private_chat_members, private_chats, users")
	require.NoError(s.T(), err, "can't truncate tables")
}
