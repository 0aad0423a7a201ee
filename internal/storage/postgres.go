package storage

import (
	"database/sql"

	"github.com/lib/pq"

	"github.com/smartdevs17/hackathon-platform/pkg/utils"
)

// PostgreSQLStorage implements Storage using PostgreSQL
type PostgreSQLStorage struct {
	sqlStore
}

var _ Storage = (*PostgreSQLStorage)(nil)

// NewPostgreSQLStorage creates a new PostgreSQL storage instance
func NewPostgreSQLStorage(config *StorageConfig) *PostgreSQLStorage {
	return &PostgreSQLStorage{
		sqlStore: sqlStore{
			config:      config,
			storageType: "PostgreSQL",
			migrations:  GetPostgresMigrations(),
			logger:      utils.GetLogger().WithField("component", "storage"),
			numbered:    true,
			kindsClause: postgresKindsClause,
		},
	}
}

// Connect establishes database connection
func (p *PostgreSQLStorage) Connect() error {
	db, err := sql.Open("postgres", p.config.ConnectionString)
	if err != nil {
		return utils.WrapError(utils.ErrCodeDatabase, "Failed to open PostgreSQL database", err)
	}

	if p.config.MaxConnections > 0 {
		db.SetMaxOpenConns(p.config.MaxConnections)
		db.SetMaxIdleConns(p.config.MaxConnections / 2)
	}
	if p.config.MaxIdleTime > 0 {
		db.SetConnMaxLifetime(p.config.MaxIdleTime)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return utils.WrapError(utils.ErrCodeDatabase, "Failed to ping PostgreSQL database", describePQError(err))
	}

	p.db = db
	p.logger.Info("PostgreSQL database connected")
	return nil
}

func postgresKindsClause(kinds []string) (string, []interface{}) {
	return "kind = ANY(?)", []interface{}{pq.Array(kinds)}
}

// describePQError keeps the server's error code and detail in the chain
func describePQError(err error) error {
	if pqErr, ok := err.(*pq.Error); ok {
		return utils.WrapError(utils.ErrCodeDatabase,
			string(pqErr.Code)+" "+pqErr.Code.Name()+": "+pqErr.Detail, err)
	}
	return err
}
