package storage

import (
	"context"
	"time"

	"github.com/smartdevs17/hackathon-platform/internal/metrics"
	"github.com/smartdevs17/hackathon-platform/internal/models"
)

// StorageWithMetrics wraps a storage implementation with metrics
type StorageWithMetrics struct {
	Storage
	metricsManager *metrics.Manager
}

// NewStorageWithMetrics creates a storage wrapper with metrics
func NewStorageWithMetrics(storage Storage, metricsManager *metrics.Manager) *StorageWithMetrics {
	return &StorageWithMetrics{
		Storage:        storage,
		metricsManager: metricsManager,
	}
}

// SaveHackathons saves the list snapshot and records metrics
func (s *StorageWithMetrics) SaveHackathons(ctx context.Context, hackathons []*models.Hackathon) error {
	start := time.Now()
	err := s.Storage.SaveHackathons(ctx, hackathons)
	s.record("replace", "hackathon_snapshots", err, start)
	return err
}

// GetHackathons reads the list snapshot and records metrics
func (s *StorageWithMetrics) GetHackathons(ctx context.Context) ([]*models.Hackathon, error) {
	start := time.Now()
	hackathons, err := s.Storage.GetHackathons(ctx)
	s.record("select", "hackathon_snapshots", err, start)
	return hackathons, err
}

// SaveHackathonDetail saves a detail snapshot and records metrics
func (s *StorageWithMetrics) SaveHackathonDetail(ctx context.Context, detail *models.HackathonDetail) error {
	start := time.Now()
	err := s.Storage.SaveHackathonDetail(ctx, detail)
	s.record("upsert", "hackathon_details", err, start)
	return err
}

// GetHackathonDetail reads a detail snapshot and records metrics
func (s *StorageWithMetrics) GetHackathonDetail(ctx context.Context, id string) (*models.HackathonDetail, error) {
	start := time.Now()
	detail, err := s.Storage.GetHackathonDetail(ctx, id)
	s.record("select", "hackathon_details", err, start)
	return detail, err
}

// SaveTransaction saves a transaction record and records metrics
func (s *StorageWithMetrics) SaveTransaction(ctx context.Context, tx *models.TransactionRecord) error {
	start := time.Now()
	err := s.Storage.SaveTransaction(ctx, tx)
	s.record("insert", "transactions", err, start)
	return err
}

// UpdateTransaction updates a transaction record and records metrics
func (s *StorageWithMetrics) UpdateTransaction(ctx context.Context, tx *models.TransactionRecord) error {
	start := time.Now()
	err := s.Storage.UpdateTransaction(ctx, tx)
	s.record("update", "transactions", err, start)
	return err
}

// GetTransactions lists transaction records and records metrics
func (s *StorageWithMetrics) GetTransactions(ctx context.Context, filter TransactionFilter) ([]*models.TransactionRecord, error) {
	start := time.Now()
	records, err := s.Storage.GetTransactions(ctx, filter)
	s.record("select", "transactions", err, start)
	return records, err
}

func (s *StorageWithMetrics) record(operation, table string, err error, start time.Time) {
	if s.metricsManager == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "error"
	}

	s.metricsManager.GetPrometheusMetrics().RecordDatabaseOperation(
		operation,
		table,
		status,
		time.Since(start),
	)
}
