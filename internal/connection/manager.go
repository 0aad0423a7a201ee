package connection

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/hackathon-platform/internal/config"
	"github.com/smartdevs17/hackathon-platform/internal/metrics"
	"github.com/smartdevs17/hackathon-platform/pkg/utils"
)

// Manager defines the connection manager interface
type Manager interface {
	GetClient(ctx context.Context) (*ethclient.Client, error)
	HealthCheck(ctx context.Context) error
	ChainID(ctx context.Context) (*big.Int, error)
	LatestBlockNumber(ctx context.Context) (uint64, error)
	IsConnected() bool
	Close() error
	Stats() ConnectionStats
}

// ConnectionManager keeps one live ethclient and fails over between the
// primary RPC endpoint and its backups.
type ConnectionManager struct {
	config          *config.LedgerConfig
	urls            []string
	currentIndex    int
	client          *ethclient.Client
	mu              sync.RWMutex
	logger          *logrus.Entry
	stats           ConnectionStats
	lastHealthCheck time.Time
	isHealthy       bool
	metricsManager  *metrics.Manager

	dial func(ctx context.Context, url string) (*ethclient.Client, error)
}

// ConnectionStats holds connection statistics
type ConnectionStats struct {
	TotalRequests   uint64    `json:"total_requests"`
	FailedRequests  uint64    `json:"failed_requests"`
	Reconnects      uint64    `json:"reconnects"`
	CurrentURL      string    `json:"current_url"`
	LastConnectedAt time.Time `json:"last_connected_at"`
	LastHealthCheck time.Time `json:"last_health_check"`
	IsHealthy       bool      `json:"is_healthy"`
	ChainID         uint64    `json:"chain_id"`
	LatestBlock     uint64    `json:"latest_block"`
}

// NewConnectionManager creates a new connection manager
func NewConnectionManager(cfg *config.LedgerConfig) *ConnectionManager {
	urls := []string{cfg.RPCURL}
	urls = append(urls, cfg.BackupURLs...)

	return &ConnectionManager{
		config: cfg,
		urls:   urls,
		logger: utils.GetLogger().WithField("component", "connection"),
		stats: ConnectionStats{
			CurrentURL: cfg.RPCURL,
		},
		dial: ethclient.DialContext,
	}
}

// SetMetricsManager sets the metrics manager
func (cm *ConnectionManager) SetMetricsManager(manager *metrics.Manager) {
	cm.metricsManager = manager
}

// GetClient returns the current client, connecting first if needed
func (cm *ConnectionManager) GetClient(ctx context.Context) (*ethclient.Client, error) {
	cm.mu.RLock()
	client := cm.client
	lastCheck := cm.lastHealthCheck
	cm.mu.RUnlock()

	if client == nil {
		return cm.connect(ctx)
	}

	// Re-verify a connection that has been idle for a while
	if time.Since(lastCheck) > time.Minute {
		if err := cm.quickHealthCheck(ctx, client); err != nil {
			cm.logger.WithError(err).Warn("Client health check failed, reconnecting")
			return cm.reconnect(ctx)
		}
		cm.mu.Lock()
		cm.lastHealthCheck = time.Now()
		cm.mu.Unlock()
	}

	cm.mu.Lock()
	cm.stats.TotalRequests++
	cm.mu.Unlock()
	return client, nil
}

// connect establishes a new connection
func (cm *ConnectionManager) connect(ctx context.Context) (*ethclient.Client, error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	// Another caller may have connected while we waited for the lock
	if cm.client != nil {
		return cm.client, nil
	}

	attempts := cm.config.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}
	urls := cm.rotatedURLs()

	for attempt := 0; attempt < attempts; attempt++ {
		for _, url := range urls {
			log := cm.logger.WithFields(logrus.Fields{"url": url, "attempt": attempt + 1})
			log.Debug("Attempting connection")

			client, err := cm.dialWithTimeout(ctx, url)
			if err != nil {
				log.WithError(err).Warn("Connection failed")
				cm.stats.FailedRequests++
				cm.recordError(url, "dial_failed")
				continue
			}

			if err := cm.quickHealthCheck(ctx, client); err != nil {
				client.Close()
				log.WithError(err).Warn("Health check failed after connection")
				cm.stats.FailedRequests++
				cm.recordError(url, "health_check_failed")
				continue
			}

			cm.client = client
			cm.currentIndex = cm.indexOf(url)
			cm.stats.CurrentURL = url
			cm.stats.LastConnectedAt = time.Now()
			cm.isHealthy = true
			cm.lastHealthCheck = time.Now()

			log.Info("Connected to ledger node")
			return client, nil
		}

		if attempt < attempts-1 {
			select {
			case <-ctx.Done():
				return nil, utils.WrapError(utils.ErrCodeUpstreamUnavailable, "Connection aborted", ctx.Err())
			case <-time.After(cm.config.RetryDelay):
			}
		}
	}

	return nil, utils.NewAppError(utils.ErrCodeUpstreamUnavailable,
		"Failed to connect to any ledger node", "All connection attempts exhausted")
}

// reconnect drops the current client and connects again
func (cm *ConnectionManager) reconnect(ctx context.Context) (*ethclient.Client, error) {
	cm.mu.Lock()
	if cm.client != nil {
		cm.client.Close()
		cm.client = nil
	}
	cm.isHealthy = false
	cm.stats.Reconnects++
	cm.mu.Unlock()

	return cm.connect(ctx)
}

// MarkFailed drops the current client after an RPC error so the next call
// goes through failover.
func (cm *ConnectionManager) MarkFailed(err error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.stats.FailedRequests++
	cm.isHealthy = false
	cm.recordError(cm.stats.CurrentURL, "rpc_failed")
	if cm.client != nil {
		cm.logger.WithError(err).Debug("Dropping ledger client after RPC failure")
		cm.client.Close()
		cm.client = nil
	}
}

func (cm *ConnectionManager) dialWithTimeout(ctx context.Context, url string) (*ethclient.Client, error) {
	timeout := cm.config.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return cm.dial(dialCtx, url)
}

func (cm *ConnectionManager) quickHealthCheck(ctx context.Context, client *ethclient.Client) error {
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := client.ChainID(checkCtx)
	return err
}

// HealthCheck verifies chain id and block height of the current node
func (cm *ConnectionManager) HealthCheck(ctx context.Context) error {
	client, err := cm.GetClient(ctx)
	if err != nil {
		cm.setHealthy(false)
		return err
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		cm.setHealthy(false)
		return utils.WrapError(utils.ErrCodeUpstreamUnavailable, "Failed to get chain ID", err)
	}

	if cm.config.ChainID > 0 && chainID.Cmp(big.NewInt(cm.config.ChainID)) != 0 {
		cm.setHealthy(false)
		return utils.NewAppError(utils.ErrCodeConnection, "Chain ID mismatch",
			fmt.Sprintf("expected %d, got %s", cm.config.ChainID, chainID))
	}

	blockNumber, err := client.BlockNumber(ctx)
	if err != nil {
		cm.setHealthy(false)
		return utils.WrapError(utils.ErrCodeUpstreamUnavailable, "Failed to get latest block", err)
	}

	cm.mu.Lock()
	cm.stats.ChainID = chainID.Uint64()
	cm.stats.LatestBlock = blockNumber
	cm.stats.LastHealthCheck = time.Now()
	cm.stats.IsHealthy = true
	cm.lastHealthCheck = time.Now()
	cm.isHealthy = true
	url := cm.stats.CurrentURL
	cm.mu.Unlock()

	cm.logger.WithFields(logrus.Fields{
		"chain_id":     chainID.Uint64(),
		"latest_block": blockNumber,
		"url":          url,
	}).Info("Health check passed")

	return nil
}

// ChainID returns the chain id reported by the node
func (cm *ConnectionManager) ChainID(ctx context.Context) (*big.Int, error) {
	client, err := cm.GetClient(ctx)
	if err != nil {
		return nil, err
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		cm.MarkFailed(err)
		return nil, utils.WrapError(utils.ErrCodeUpstreamUnavailable, "Failed to get chain ID", err)
	}
	return chainID, nil
}

// LatestBlockNumber returns the latest block number
func (cm *ConnectionManager) LatestBlockNumber(ctx context.Context) (uint64, error) {
	client, err := cm.GetClient(ctx)
	if err != nil {
		return 0, err
	}

	blockNumber, err := client.BlockNumber(ctx)
	if err != nil {
		cm.MarkFailed(err)
		return 0, utils.WrapError(utils.ErrCodeUpstreamUnavailable, "Failed to get latest block", err)
	}

	cm.mu.Lock()
	cm.stats.LatestBlock = blockNumber
	cm.mu.Unlock()

	return blockNumber, nil
}

// IsConnected returns whether the manager holds a healthy client
func (cm *ConnectionManager) IsConnected() bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.client != nil && cm.isHealthy
}

// Close closes the connection
func (cm *ConnectionManager) Close() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.client != nil {
		cm.client.Close()
		cm.client = nil
	}

	cm.isHealthy = false
	cm.logger.Info("Connection manager closed")
	return nil
}

// Stats returns connection statistics
func (cm *ConnectionManager) Stats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	stats := cm.stats
	stats.IsHealthy = cm.isHealthy
	return stats
}

func (cm *ConnectionManager) setHealthy(healthy bool) {
	cm.mu.Lock()
	cm.isHealthy = healthy
	cm.stats.IsHealthy = healthy
	cm.mu.Unlock()
}

// rotatedURLs returns all endpoints starting from the last one that worked
func (cm *ConnectionManager) rotatedURLs() []string {
	if cm.currentIndex <= 0 || cm.currentIndex >= len(cm.urls) {
		return append([]string(nil), cm.urls...)
	}

	rotated := make([]string, 0, len(cm.urls))
	rotated = append(rotated, cm.urls[cm.currentIndex:]...)
	rotated = append(rotated, cm.urls[:cm.currentIndex]...)
	return rotated
}

func (cm *ConnectionManager) indexOf(url string) int {
	for i, u := range cm.urls {
		if u == url {
			return i
		}
	}
	return 0
}

// recordError must be called with mu held or from a single goroutine
func (cm *ConnectionManager) recordError(endpoint, errorType string) {
	if cm.metricsManager != nil {
		cm.metricsManager.GetPrometheusMetrics().RecordConnectionError(endpoint, errorType)
	}
}
