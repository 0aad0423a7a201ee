package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/hackathon-platform/internal/models"
	"github.com/smartdevs17/hackathon-platform/pkg/utils"
)

// sqlStore holds the queries shared by the SQLite and PostgreSQL backends.
// Queries are written with ? placeholders and rebound per dialect.
type sqlStore struct {
	db          *sql.DB
	config      *StorageConfig
	storageType string
	migrations  []*Migration
	logger      *logrus.Entry

	// numbered placeholders ($1, $2, ...) instead of ?
	numbered bool
	// kindsClause renders the "kind in list" condition for the dialect
	kindsClause func(kinds []string) (string, []interface{})
}

func (s *sqlStore) rebind(query string) string {
	if !s.numbered {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Close closes the database connection
func (s *sqlStore) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		s.logger.Info("Database connection closed")
		return err
	}
	return nil
}

// Ping checks database connectivity
func (s *sqlStore) Ping() error {
	if s.db == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}
	return s.db.Ping()
}

// Migrate runs database migrations
func (s *sqlStore) Migrate() error {
	if s.db == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}

	s.logger.Info("Starting database migrations")

	for _, migration := range s.migrations {
		s.logger.WithFields(logrus.Fields{
			"version":     migration.Version,
			"description": migration.Description,
		}).Debug("Applying migration")

		if _, err := s.db.Exec(migration.SQL); err != nil {
			return utils.WrapError(utils.ErrCodeDatabase,
				fmt.Sprintf("Migration %s failed", migration.Version), err)
		}
	}

	s.logger.Info("Database migrations completed")
	return nil
}

// SaveHackathons replaces the list snapshot, keeping the given order
func (s *sqlStore) SaveHackathons(ctx context.Context, hackathons []*models.Hackathon) error {
	if s.db == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return utils.WrapError(utils.ErrCodeDatabase, "Failed to begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM hackathon_snapshots"); err != nil {
		return utils.WrapError(utils.ErrCodeDatabase, "Failed to clear hackathon snapshot", err)
	}

	stmt, err := tx.PrepareContext(ctx, s.rebind(
		"INSERT INTO hackathon_snapshots (id, position, data, refreshed_at) VALUES (?, ?, ?, ?)"))
	if err != nil {
		return utils.WrapError(utils.ErrCodeDatabase, "Failed to prepare statement", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i, h := range hackathons {
		data, err := json.Marshal(h)
		if err != nil {
			return utils.WrapError(utils.ErrCodeDatabase, "Failed to marshal hackathon", err)
		}
		if _, err := stmt.ExecContext(ctx, h.ID, i, string(data), now); err != nil {
			return utils.WrapError(utils.ErrCodeDatabase, "Failed to save hackathon "+h.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return utils.WrapError(utils.ErrCodeDatabase, "Failed to commit hackathon snapshot", err)
	}

	s.logger.WithField("count", len(hackathons)).Debug("Hackathon snapshot saved")
	return nil
}

// GetHackathons returns the list snapshot in its saved order
func (s *sqlStore) GetHackathons(ctx context.Context) ([]*models.Hackathon, error) {
	if s.db == nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}

	rows, err := s.db.QueryContext(ctx, "SELECT data FROM hackathon_snapshots ORDER BY position")
	if err != nil {
		return nil, utils.WrapError(utils.ErrCodeDatabase, "Failed to query hackathons", err)
	}
	defer rows.Close()

	hackathons := make([]*models.Hackathon, 0)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, utils.WrapError(utils.ErrCodeDatabase, "Failed to scan hackathon", err)
		}

		var h models.Hackathon
		if err := json.Unmarshal([]byte(data), &h); err != nil {
			return nil, utils.WrapError(utils.ErrCodeDatabase, "Failed to unmarshal hackathon", err)
		}
		hackathons = append(hackathons, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, utils.WrapError(utils.ErrCodeDatabase, "Failed to iterate hackathons", err)
	}

	return hackathons, nil
}

// SaveHackathonDetail stores a hackathon with its projects. When the
// hackathon is also in the list snapshot, that entry is refreshed too.
func (s *sqlStore) SaveHackathonDetail(ctx context.Context, detail *models.HackathonDetail) error {
	if s.db == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}
	if detail == nil || detail.Hackathon == nil {
		return utils.NewAppError(utils.ErrCodeInvalidInput, "Hackathon detail is empty")
	}

	data, err := json.Marshal(detail)
	if err != nil {
		return utils.WrapError(utils.ErrCodeDatabase, "Failed to marshal hackathon detail", err)
	}
	summary, err := json.Marshal(detail.Hackathon)
	if err != nil {
		return utils.WrapError(utils.ErrCodeDatabase, "Failed to marshal hackathon", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return utils.WrapError(utils.ErrCodeDatabase, "Failed to begin transaction", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, s.rebind(`
		INSERT INTO hackathon_details (id, data, refreshed_at) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET data = excluded.data, refreshed_at = excluded.refreshed_at
	`), detail.ID, string(data), now)
	if err != nil {
		return utils.WrapError(utils.ErrCodeDatabase, "Failed to save hackathon detail", err)
	}

	_, err = tx.ExecContext(ctx, s.rebind(
		"UPDATE hackathon_snapshots SET data = ?, refreshed_at = ? WHERE id = ?"),
		string(summary), now, detail.ID)
	if err != nil {
		return utils.WrapError(utils.ErrCodeDatabase, "Failed to refresh hackathon snapshot", err)
	}

	if err := tx.Commit(); err != nil {
		return utils.WrapError(utils.ErrCodeDatabase, "Failed to commit hackathon detail", err)
	}
	return nil
}

// GetHackathonDetail returns a stored detail or a NOT_FOUND error
func (s *sqlStore) GetHackathonDetail(ctx context.Context, id string) (*models.HackathonDetail, error) {
	if s.db == nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}

	var data string
	err := s.db.QueryRowContext(ctx, s.rebind("SELECT data FROM hackathon_details WHERE id = ?"), id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.NewAppError(utils.ErrCodeNotFound, "Hackathon detail not cached", id)
	}
	if err != nil {
		return nil, utils.WrapError(utils.ErrCodeDatabase, "Failed to get hackathon detail", err)
	}

	detail := &models.HackathonDetail{Hackathon: &models.Hackathon{}}
	if err := json.Unmarshal([]byte(data), detail); err != nil {
		return nil, utils.WrapError(utils.ErrCodeDatabase, "Failed to unmarshal hackathon detail", err)
	}
	if detail.Projects == nil {
		detail.Projects = []*models.Project{}
	}
	return detail, nil
}

// SaveTransaction records a submitted write
func (s *sqlStore) SaveTransaction(ctx context.Context, record *models.TransactionRecord) error {
	if s.db == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}

	if record.ID == "" {
		record.ID = utils.GenerateID()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	params, err := marshalParams(record.Params)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO transactions
		(id, kind, tx_hash, account, status, params, block_number, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), record.ID, record.Kind, nullString(record.TxHash), record.Account, string(record.Status),
		params, nullUint(record.BlockNumber), nullStringPtr(record.Error), record.CreatedAt, record.UpdatedAt)
	if err != nil {
		return utils.WrapError(utils.ErrCodeDatabase, "Failed to save transaction", err)
	}
	return nil
}

// UpdateTransaction updates the mutable fields of a recorded write
func (s *sqlStore) UpdateTransaction(ctx context.Context, record *models.TransactionRecord) error {
	if s.db == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}

	record.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE transactions
		SET tx_hash = ?, status = ?, block_number = ?, error = ?, updated_at = ?
		WHERE id = ?
	`), nullString(record.TxHash), string(record.Status), nullUint(record.BlockNumber),
		nullStringPtr(record.Error), record.UpdatedAt, record.ID)
	if err != nil {
		return utils.WrapError(utils.ErrCodeDatabase, "Failed to update transaction", err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return utils.NewAppError(utils.ErrCodeNotFound, "Transaction not found", record.ID)
	}
	return nil
}

// GetTransactions lists recorded writes, newest first
func (s *sqlStore) GetTransactions(ctx context.Context, filter TransactionFilter) ([]*models.TransactionRecord, error) {
	if s.db == nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}

	query := `
		SELECT id, kind, tx_hash, account, status, params, block_number, error, created_at, updated_at
		FROM transactions WHERE 1=1
	`
	var args []interface{}

	if filter.Account != "" {
		query += " AND account = ?"
		args = append(args, filter.Account)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	if len(filter.Kinds) > 0 {
		clause, kindArgs := s.kindsClause(filter.Kinds)
		query += " AND " + clause
		args = append(args, kindArgs...)
	}

	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, utils.WrapError(utils.ErrCodeDatabase, "Failed to query transactions", err)
	}
	defer rows.Close()

	records := make([]*models.TransactionRecord, 0)
	for rows.Next() {
		record, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, utils.WrapError(utils.ErrCodeDatabase, "Failed to iterate transactions", err)
	}

	return records, nil
}

// GetStats returns storage statistics
func (s *sqlStore) GetStats() (*StorageStats, error) {
	if s.db == nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}

	stats := &StorageStats{StorageType: s.storageType}

	counts := []struct {
		query string
		dest  *int64
	}{
		{"SELECT COUNT(*) FROM hackathon_snapshots", &stats.TotalHackathons},
		{"SELECT COUNT(*) FROM hackathon_details", &stats.TotalDetails},
		{"SELECT COUNT(*) FROM transactions", &stats.TotalTransactions},
		{"SELECT COUNT(*) FROM transactions WHERE status = 'pending'", &stats.PendingTxs},
		{"SELECT COUNT(*) FROM transactions WHERE status = 'failed'", &stats.FailedTxs},
	}
	for _, c := range counts {
		if err := s.db.QueryRow(c.query).Scan(c.dest); err != nil {
			return nil, utils.WrapError(utils.ErrCodeDatabase, "Failed to collect storage stats", err)
		}
	}

	var err error
	if stats.LastListRefresh, err = s.latest("SELECT refreshed_at FROM hackathon_snapshots ORDER BY refreshed_at DESC LIMIT 1"); err != nil {
		return nil, err
	}
	if stats.LatestTransaction, err = s.latest("SELECT created_at FROM transactions ORDER BY created_at DESC LIMIT 1"); err != nil {
		return nil, err
	}

	return stats, nil
}

// GetHealth reports whether the database answers a ping
func (s *sqlStore) GetHealth() *StorageHealth {
	health := &StorageHealth{
		StorageType: s.storageType,
		Healthy:     s.Ping() == nil,
		LastPing:    time.Now(),
	}
	if s.storageType == "SQLite" {
		health.Details = map[string]string{"path": s.config.ConnectionString}
	}
	return health
}

func (s *sqlStore) latest(query string) (*time.Time, error) {
	var t time.Time
	err := s.db.QueryRow(query).Scan(&t)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, utils.WrapError(utils.ErrCodeDatabase, "Failed to collect storage stats", err)
	}
	return &t, nil
}

func scanTransaction(rows *sql.Rows) (*models.TransactionRecord, error) {
	var (
		record      models.TransactionRecord
		status      string
		txHash      sql.NullString
		params      sql.NullString
		blockNumber sql.NullInt64
		errMsg      sql.NullString
	)

	err := rows.Scan(&record.ID, &record.Kind, &txHash, &record.Account, &status,
		&params, &blockNumber, &errMsg, &record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		return nil, utils.WrapError(utils.ErrCodeDatabase, "Failed to scan transaction", err)
	}

	record.Status = models.TransactionStatus(status)
	record.TxHash = txHash.String
	if params.Valid && params.String != "" {
		if err := json.Unmarshal([]byte(params.String), &record.Params); err != nil {
			return nil, utils.WrapError(utils.ErrCodeDatabase, "Failed to unmarshal transaction params", err)
		}
	}
	if blockNumber.Valid {
		n := uint64(blockNumber.Int64)
		record.BlockNumber = &n
	}
	if errMsg.Valid {
		msg := errMsg.String
		record.Error = &msg
	}

	return &record, nil
}

func marshalParams(params map[string]string) (interface{}, error) {
	if len(params) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(params)
	if err != nil {
		return nil, utils.WrapError(utils.ErrCodeDatabase, "Failed to marshal transaction params", err)
	}
	return string(data), nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullUint(n *uint64) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}
