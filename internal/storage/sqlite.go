package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/smartdevs17/hackathon-platform/pkg/utils"
)

// SQLiteStorage implements Storage using SQLite
type SQLiteStorage struct {
	sqlStore
}

var _ Storage = (*SQLiteStorage)(nil)

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(config *StorageConfig) *SQLiteStorage {
	return &SQLiteStorage{
		sqlStore: sqlStore{
			config:      config,
			storageType: "SQLite",
			migrations:  GetSQLiteMigrations(),
			logger:      utils.GetLogger().WithField("component", "storage"),
			kindsClause: sqliteKindsClause,
		},
	}
}

// Connect opens the database file, creating its directory if needed
func (s *SQLiteStorage) Connect() error {
	path := s.config.ConnectionString
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return utils.WrapError(utils.ErrCodeDatabase, "Failed to create database directory", err)
			}
		}
	}

	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return utils.WrapError(utils.ErrCodeDatabase, "Failed to open SQLite database", err)
	}

	maxConns := s.config.MaxConnections
	if maxConns <= 0 {
		maxConns = 1
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)
	if s.config.MaxIdleTime > 0 {
		db.SetConnMaxIdleTime(s.config.MaxIdleTime)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return utils.WrapError(utils.ErrCodeDatabase, "Failed to open SQLite database", err)
	}

	s.db = db
	s.logger.WithField("path", path).Info("SQLite database connected")
	return nil
}

// sqliteDSN applies per-connection pragmas: WAL journaling and a busy
// timeout so concurrent writers wait instead of failing.
func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
}

func sqliteKindsClause(kinds []string) (string, []interface{}) {
	args := make([]interface{}, len(kinds))
	for i, k := range kinds {
		args[i] = k
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(kinds)), ", ")
	return fmt.Sprintf("kind IN (%s)", placeholders), args
}
