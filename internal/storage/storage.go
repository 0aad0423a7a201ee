package storage

import (
	"context"
	"time"

	"github.com/smartdevs17/hackathon-platform/internal/models"
)

// Storage keeps the shell's last-seen read model and the local history of
// submitted transactions. Snapshots hold records exactly as the API served
// them; derived fields such as the phase are never stored.
type Storage interface {
	// Connection management
	Connect() error
	Close() error
	Ping() error
	Migrate() error

	// Snapshot operations
	SaveHackathons(ctx context.Context, hackathons []*models.Hackathon) error
	GetHackathons(ctx context.Context) ([]*models.Hackathon, error)
	SaveHackathonDetail(ctx context.Context, detail *models.HackathonDetail) error
	GetHackathonDetail(ctx context.Context, id string) (*models.HackathonDetail, error)

	// Transaction history
	SaveTransaction(ctx context.Context, tx *models.TransactionRecord) error
	UpdateTransaction(ctx context.Context, tx *models.TransactionRecord) error
	GetTransactions(ctx context.Context, filter TransactionFilter) ([]*models.TransactionRecord, error)

	// Statistics and monitoring
	GetStats() (*StorageStats, error)
	GetHealth() *StorageHealth
}

// TransactionFilter narrows GetTransactions. Zero values match everything.
type TransactionFilter struct {
	Account string                   `json:"account,omitempty"`
	Kinds   []string                 `json:"kinds,omitempty"`
	Status  models.TransactionStatus `json:"status,omitempty"`
	Limit   int                      `json:"limit,omitempty"`
}

// StorageStats provides storage statistics
type StorageStats struct {
	TotalHackathons   int64      `json:"total_hackathons"`
	TotalDetails      int64      `json:"total_details"`
	TotalTransactions int64      `json:"total_transactions"`
	PendingTxs        int64      `json:"pending_transactions"`
	FailedTxs         int64      `json:"failed_transactions"`
	LastListRefresh   *time.Time `json:"last_list_refresh,omitempty"`
	LatestTransaction *time.Time `json:"latest_transaction,omitempty"`
	StorageType       string     `json:"storage_type"`
}

// StorageHealth reports whether the database answers
type StorageHealth struct {
	StorageType string            `json:"storage_type"`
	Healthy     bool              `json:"healthy"`
	Details     map[string]string `json:"details,omitempty"`
	LastPing    time.Time         `json:"last_ping"`
}

// StorageConfig holds storage configuration
type StorageConfig struct {
	Type             string        `json:"type"`
	ConnectionString string        `json:"connection_string"`
	MaxConnections   int           `json:"max_connections"`
	MaxIdleTime      time.Duration `json:"max_idle_time"`
}
