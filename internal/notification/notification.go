package notification

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/hackathon-platform/internal/metrics"
	"github.com/smartdevs17/hackathon-platform/internal/models"
	"github.com/smartdevs17/hackathon-platform/pkg/utils"
)

// Notifier delivers user-facing notifications
type Notifier interface {
	Notify(ctx context.Context, n *models.Notification) error
}

// Channel is one delivery target
type Channel interface {
	Name() string
	Send(ctx context.Context, n *models.Notification) error
}

// NotificationManager fans notifications out to its channels and keeps the
// most recent ones for display.
type NotificationManager struct {
	config *NotificationManagerConfig
	logger *logrus.Entry

	mu       sync.RWMutex
	running  bool
	channels []Channel
	recent   []*models.Notification

	metricsManager *metrics.Manager
	stats          *NotificationStats
}

// NotificationManagerConfig holds notification manager configuration
type NotificationManagerConfig struct {
	NotificationTimeout time.Duration `json:"notification_timeout"`
	RetryAttempts       int           `json:"retry_attempts"`
	RetryDelay          time.Duration `json:"retry_delay"`
	WebhookURL          string        `json:"webhook_url,omitempty"`
	HistorySize         int           `json:"history_size"`
}

// NotificationStats provides notification statistics
type NotificationStats struct {
	TotalNotificationsSent   uint64        `json:"total_notifications_sent"`
	TotalWebhooksSent        uint64        `json:"total_webhooks_sent"`
	TotalNotificationsFailed uint64        `json:"total_notifications_failed"`
	AverageResponseTime      time.Duration `json:"average_response_time"`
	ActiveChannels           int           `json:"active_channels"`
	LastError                *string       `json:"last_error,omitempty"`
	LastErrorTime            *time.Time    `json:"last_error_time,omitempty"`
}

// NotificationHealth reports whether notifications are being delivered
type NotificationHealth struct {
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

var _ Notifier = (*NotificationManager)(nil)

// NewNotificationManager creates a manager with a log channel and, when a
// webhook URL is configured, a webhook channel.
func NewNotificationManager(config *NotificationManagerConfig) *NotificationManager {
	if config.HistorySize <= 0 {
		config.HistorySize = 50
	}

	nm := &NotificationManager{
		config:   config,
		logger:   utils.GetLogger().WithField("component", "notification"),
		channels: []Channel{NewLogChannel()},
		stats:    &NotificationStats{},
	}
	if config.WebhookURL != "" {
		nm.channels = append(nm.channels, NewWebhookSender(config))
	}
	return nm
}

// SetMetricsManager sets the metrics manager
func (nm *NotificationManager) SetMetricsManager(manager *metrics.Manager) {
	nm.metricsManager = manager
}

// AddChannel registers another delivery target
func (nm *NotificationManager) AddChannel(channel Channel) {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	nm.channels = append(nm.channels, channel)
	nm.logger.WithField("channel", channel.Name()).Info("Notification channel added")
}

// Start starts the notification manager
func (nm *NotificationManager) Start(ctx context.Context) error {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	if nm.running {
		return utils.NewAppError(utils.ErrCodeInternal, "Notification manager already running", "")
	}
	nm.running = true
	nm.logger.WithField("channels", len(nm.channels)).Info("Notification manager started")
	return nil
}

// Stop stops the notification manager
func (nm *NotificationManager) Stop() error {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	if !nm.running {
		return nil
	}
	nm.running = false
	nm.logger.Info("Notification manager stopped")
	return nil
}

// IsHealthy returns whether the notification manager is running
func (nm *NotificationManager) IsHealthy() bool {
	nm.mu.RLock()
	defer nm.mu.RUnlock()
	return nm.running
}

// Notify records n and delivers it on every channel. Delivery failures are
// joined into the returned error; the notification is kept regardless.
func (nm *NotificationManager) Notify(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = utils.GenerateID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	nm.mu.Lock()
	nm.recent = append(nm.recent, n)
	if len(nm.recent) > nm.config.HistorySize {
		nm.recent = nm.recent[len(nm.recent)-nm.config.HistorySize:]
	}
	channels := append([]Channel(nil), nm.channels...)
	nm.mu.Unlock()

	var errs []error
	for _, channel := range channels {
		start := time.Now()
		err := channel.Send(ctx, n)
		nm.updateNotificationStats(channel.Name(), start, err)

		if err != nil {
			nm.logger.WithFields(logrus.Fields{
				"notification_id": n.ID,
				"channel":         channel.Name(),
				"error":           err,
			}).Warn("Failed to deliver notification")
			errs = append(errs, err)
			nm.record(channel.Name(), string(n.Level), err)
			continue
		}
		nm.record(channel.Name(), string(n.Level), nil)
	}

	return errors.Join(errs...)
}

// Recent returns up to limit of the latest notifications, newest first
func (nm *NotificationManager) Recent(limit int) []*models.Notification {
	nm.mu.RLock()
	defer nm.mu.RUnlock()

	if limit <= 0 || limit > len(nm.recent) {
		limit = len(nm.recent)
	}
	out := make([]*models.Notification, 0, limit)
	for i := len(nm.recent) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, nm.recent[i])
	}
	return out
}

// GetStats returns notification statistics
func (nm *NotificationManager) GetStats() *NotificationStats {
	nm.mu.RLock()
	defer nm.mu.RUnlock()

	stats := *nm.stats
	stats.ActiveChannels = len(nm.channels)
	return &stats
}

// GetHealth reports the manager state and the last delivery error
func (nm *NotificationManager) GetHealth() *NotificationHealth {
	nm.mu.RLock()
	defer nm.mu.RUnlock()

	health := &NotificationHealth{Healthy: nm.running}
	if nm.stats.LastError != nil {
		health.Error = *nm.stats.LastError
	}
	return health
}

func (nm *NotificationManager) updateNotificationStats(channel string, startTime time.Time, err error) {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	nm.stats.TotalNotificationsSent++
	if channel == webhookChannelName && err == nil {
		nm.stats.TotalWebhooksSent++
	}

	if err != nil {
		nm.stats.TotalNotificationsFailed++
		errorStr := err.Error()
		nm.stats.LastError = &errorStr
		now := time.Now()
		nm.stats.LastErrorTime = &now
	}

	responseTime := time.Since(startTime)
	if nm.stats.TotalNotificationsSent == 1 {
		nm.stats.AverageResponseTime = responseTime
	} else {
		nm.stats.AverageResponseTime = (nm.stats.AverageResponseTime + responseTime) / 2
	}
}

func (nm *NotificationManager) record(channel, level string, err error) {
	if nm.metricsManager == nil {
		return
	}
	if err != nil {
		nm.metricsManager.GetPrometheusMetrics().RecordNotificationFailure(channel)
		return
	}
	nm.metricsManager.GetPrometheusMetrics().RecordNotificationSent(channel, level)
}

// Success builds a success notification
func Success(title, message string) *models.Notification {
	return newNotification(models.NotificationSuccess, title, message)
}

// Warning builds a warning notification
func Warning(title, message string) *models.Notification {
	return newNotification(models.NotificationWarning, title, message)
}

// Error builds an error notification
func Error(title, message string) *models.Notification {
	return newNotification(models.NotificationError, title, message)
}

func newNotification(level models.NotificationLevel, title, message string) *models.Notification {
	return &models.Notification{
		ID:        utils.GenerateID(),
		Level:     level,
		Title:     title,
		Message:   message,
		CreatedAt: time.Now(),
	}
}
