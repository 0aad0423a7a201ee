package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartdevs17/hackathon-platform/internal/config"
	"github.com/smartdevs17/hackathon-platform/internal/metrics"
	"github.com/smartdevs17/hackathon-platform/internal/models"
	"github.com/smartdevs17/hackathon-platform/pkg/utils"
)

func newTestStorage(t *testing.T) Storage {
	t.Helper()

	cfg := &config.StorageConfig{
		Type:             "sqlite",
		ConnectionString: filepath.Join(t.TempDir(), "hackathons.db"),
		MaxConnections:   1,
		MaxIdleTime:      time.Minute,
	}

	store, err := Open(cfg, metrics.NewManager())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func hackathon(id, title string) *models.Hackathon {
	return &models.Hackathon{
		ID:          id,
		Title:       title,
		Description: "A hackathon",
		Organizer:   "0x1111111111111111111111111111111111111111",
		PrizePool:   "1.5",
		Deadline:    "2023-11-14T22:13:20.000Z",
		IsActive:    true,
		TotalVotes:  "3",
	}
}

func TestSQLiteStorage(t *testing.T) {
	store := newTestStorage(t)
	require.NoError(t, store.Ping())

	t.Run("Hackathon snapshot", func(t *testing.T) { testHackathonSnapshot(t, store) })
	t.Run("Hackathon detail", func(t *testing.T) { testHackathonDetail(t, store) })
	t.Run("Transactions", func(t *testing.T) { testTransactions(t, store) })
	t.Run("Statistics", func(t *testing.T) { testStatistics(t, store) })
}

func testHackathonSnapshot(t *testing.T, store Storage) {
	ctx := context.Background()

	empty, err := store.GetHackathons(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	list := []*models.Hackathon{hackathon("3", "Third"), hackathon("1", "First"), hackathon("2", "Second")}
	require.NoError(t, store.SaveHackathons(ctx, list))

	got, err := store.GetHackathons(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, list[0], got[0])
	assert.Equal(t, "1", got[1].ID)
	assert.Equal(t, "2", got[2].ID)

	// A second save replaces the snapshot
	require.NoError(t, store.SaveHackathons(ctx, list[:1]))
	got, err = store.GetHackathons(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "3", got[0].ID)
}

func testHackathonDetail(t *testing.T, store Storage) {
	ctx := context.Background()

	_, err := store.GetHackathonDetail(ctx, "99")
	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrNotFound))

	updated := hackathon("3", "Third, renamed")
	updated.TotalVotes = "4"
	detail := &models.HackathonDetail{
		Hackathon: updated,
		Projects: []*models.Project{{
			ID:          "7",
			HackathonID: "3",
			Title:       "Project",
			Description: "Builds things",
			RepoURL:     "https://github.com/example/repo",
			DemoURL:     "https://demo.example.com",
			TeamLead:    "0x2222222222222222222222222222222222222222",
			Votes:       "4",
		}},
	}
	require.NoError(t, store.SaveHackathonDetail(ctx, detail))

	got, err := store.GetHackathonDetail(ctx, "3")
	require.NoError(t, err)
	assert.Equal(t, detail.Hackathon, got.Hackathon)
	assert.Equal(t, detail.Projects, got.Projects)

	// The list entry follows the detail
	list, err := store.GetHackathons(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Third, renamed", list[0].Title)
	assert.Equal(t, "4", list[0].TotalVotes)

	noProjects := &models.HackathonDetail{Hackathon: hackathon("5", "Empty"), Projects: []*models.Project{}}
	require.NoError(t, store.SaveHackathonDetail(ctx, noProjects))
	got, err = store.GetHackathonDetail(ctx, "5")
	require.NoError(t, err)
	assert.NotNil(t, got.Projects)
	assert.Empty(t, got.Projects)
}

func testTransactions(t *testing.T, store Storage) {
	ctx := context.Background()
	account := "0x3333333333333333333333333333333333333333"

	record := &models.TransactionRecord{
		Kind:    "vote",
		Account: account,
		Status:  models.TxStatusPending,
		Params:  map[string]string{"projectId": "7"},
	}
	require.NoError(t, store.SaveTransaction(ctx, record))
	assert.NotEmpty(t, record.ID)

	other := &models.TransactionRecord{
		Kind:    "create_hackathon",
		Account: account,
		Status:  models.TxStatusPending,
	}
	require.NoError(t, store.SaveTransaction(ctx, other))

	block := uint64(1234)
	record.TxHash = "0xabc"
	record.Status = models.TxStatusConfirmed
	record.BlockNumber = &block
	require.NoError(t, store.UpdateTransaction(ctx, record))

	msg := "execution reverted"
	other.Status = models.TxStatusFailed
	other.Error = &msg
	require.NoError(t, store.UpdateTransaction(ctx, other))

	all, err := store.GetTransactions(ctx, TransactionFilter{Account: account})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	votes, err := store.GetTransactions(ctx, TransactionFilter{Kinds: []string{"vote"}})
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.Equal(t, "0xabc", votes[0].TxHash)
	assert.Equal(t, models.TxStatusConfirmed, votes[0].Status)
	require.NotNil(t, votes[0].BlockNumber)
	assert.Equal(t, uint64(1234), *votes[0].BlockNumber)
	assert.Equal(t, "7", votes[0].Params["projectId"])
	assert.Nil(t, votes[0].Error)

	failed, err := store.GetTransactions(ctx, TransactionFilter{Status: models.TxStatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	require.NotNil(t, failed[0].Error)
	assert.Equal(t, msg, *failed[0].Error)

	limited, err := store.GetTransactions(ctx, TransactionFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	err = store.UpdateTransaction(ctx, &models.TransactionRecord{ID: "missing", Status: models.TxStatusFailed})
	assert.True(t, errors.Is(err, utils.ErrNotFound))
}

func testStatistics(t *testing.T, store Storage) {
	stats, err := store.GetStats()
	require.NoError(t, err)

	assert.Equal(t, "SQLite", stats.StorageType)
	assert.Equal(t, int64(1), stats.TotalHackathons)
	assert.Equal(t, int64(2), stats.TotalDetails)
	assert.Equal(t, int64(2), stats.TotalTransactions)
	assert.Equal(t, int64(1), stats.FailedTxs)
	assert.Equal(t, int64(0), stats.PendingTxs)
	assert.NotNil(t, stats.LastListRefresh)
	assert.NotNil(t, stats.LatestTransaction)

	health := store.GetHealth()
	assert.True(t, health.Healthy)
	assert.Equal(t, "SQLite", health.StorageType)
}

func TestNewStorageRejectsUnknownType(t *testing.T) {
	_, err := NewStorage(&config.StorageConfig{Type: "mongodb", ConnectionString: "x"})
	require.Error(t, err)

	_, err = NewStorage(&config.StorageConfig{Type: "sqlite"})
	require.Error(t, err)
}

func TestPostgresRebind(t *testing.T) {
	store := NewPostgreSQLStorage(&StorageConfig{})

	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", store.rebind("SELECT * FROM t WHERE a = ? AND b = ?"))

	clause, args := store.kindsClause([]string{"vote", "submit_project"})
	assert.Equal(t, "kind = ANY(?)", clause)
	assert.Len(t, args, 1)
}

func TestStorageNotConnected(t *testing.T) {
	store := NewSQLiteStorage(&StorageConfig{ConnectionString: "unused.db"})

	assert.Error(t, store.Ping())
	_, err := store.GetHackathons(context.Background())
	assert.Error(t, err)
	assert.False(t, store.GetHealth().Healthy)
}
