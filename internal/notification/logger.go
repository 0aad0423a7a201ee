package notification

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/hackathon-platform/internal/models"
	"github.com/smartdevs17/hackathon-platform/pkg/utils"
)

const logChannelName = "log"

// LogChannel writes notifications to the application log, at a level that
// matches their severity.
type LogChannel struct {
	logger *logrus.Entry
}

// NewLogChannel creates a log channel on the shared logger
func NewLogChannel() *LogChannel {
	return &LogChannel{
		logger: utils.GetLogger().WithField("component", "notification"),
	}
}

// Name returns the channel name
func (lc *LogChannel) Name() string {
	return logChannelName
}

// Send logs the notification
func (lc *LogChannel) Send(ctx context.Context, n *models.Notification) error {
	fields := logrus.Fields{
		"notification_id": n.ID,
		"level":           n.Level,
		"title":           n.Title,
	}
	if n.TxHash != "" {
		fields["tx_hash"] = n.TxHash
	}
	for k, v := range n.Data {
		fields["data_"+k] = v
	}

	entry := lc.logger.WithFields(fields)
	switch n.Level {
	case models.NotificationError:
		entry.Error(n.Message)
	case models.NotificationWarning:
		entry.Warn(n.Message)
	default:
		entry.Info(n.Message)
	}
	return nil
}
