package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/hackathon-platform/internal/models"
	"github.com/smartdevs17/hackathon-platform/pkg/utils"
)

const webhookChannelName = "webhook"

// WebhookSender posts notifications to an HTTP endpoint
type WebhookSender struct {
	url        string
	config     *NotificationManagerConfig
	logger     *logrus.Entry
	httpClient *http.Client
}

// WebhookPayload defines the webhook payload structure
type WebhookPayload struct {
	Notification *models.Notification `json:"notification"`
	Timestamp    time.Time            `json:"timestamp"`
	Source       string               `json:"source"`
	Type         string               `json:"type"`
	Version      string               `json:"version"`
}

// WebhookRetryConfig defines retry configuration for webhooks
type WebhookRetryConfig struct {
	MaxAttempts int           `json:"max_attempts"`
	BaseDelay   time.Duration `json:"base_delay"`
	MaxDelay    time.Duration `json:"max_delay"`
	Backoff     string        `json:"backoff"` // linear, exponential
}

// WebhookResponse represents a webhook response
type WebhookResponse struct {
	StatusCode   int           `json:"status_code"`
	ResponseTime time.Duration `json:"response_time"`
	Success      bool          `json:"success"`
	Error        error         `json:"-"`
	Body         string        `json:"body,omitempty"`
}

// NewWebhookSender creates a new webhook sender for config.WebhookURL
func NewWebhookSender(config *NotificationManagerConfig) *WebhookSender {
	timeout := config.NotificationTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &WebhookSender{
		url:    config.WebhookURL,
		config: config,
		logger: utils.GetLogger().WithField("component", "webhook_sender"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     30 * time.Second,
			},
		},
	}
}

// Name returns the channel name
func (ws *WebhookSender) Name() string {
	return webhookChannelName
}

// Send posts the notification, retrying failed attempts
func (ws *WebhookSender) Send(ctx context.Context, n *models.Notification) error {
	payload := &WebhookPayload{
		Notification: n,
		Timestamp:    time.Now(),
		Source:       "hackathon-platform",
		Type:         "user_notification",
		Version:      "1.0",
	}

	response := ws.sendWebhookWithRetry(ctx, payload)

	log := ws.logger.WithFields(logrus.Fields{
		"url":           ws.url,
		"status_code":   response.StatusCode,
		"response_time": response.ResponseTime,
	})
	if response.Success {
		log.Debug("Webhook sent successfully")
	} else {
		log.WithError(response.Error).Error("Webhook failed")
	}

	return response.Error
}

func (ws *WebhookSender) sendWebhookWithRetry(ctx context.Context, payload *WebhookPayload) *WebhookResponse {
	retryConfig := &WebhookRetryConfig{
		MaxAttempts: ws.config.RetryAttempts,
		BaseDelay:   ws.config.RetryDelay,
		MaxDelay:    30 * time.Second,
		Backoff:     "exponential",
	}
	if retryConfig.MaxAttempts <= 0 {
		retryConfig.MaxAttempts = 1
	}

	var lastResponse *WebhookResponse

	for attempt := 1; attempt <= retryConfig.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := calculateRetryDelay(retryConfig, attempt)
			ws.logger.WithFields(logrus.Fields{
				"attempt":      attempt,
				"max_attempts": retryConfig.MaxAttempts,
				"delay":        delay,
			}).Debug("Retrying webhook")

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return &WebhookResponse{Error: ctx.Err()}
			}
		}

		response := ws.sendSingleWebhook(ctx, payload)
		lastResponse = response
		if response.Success {
			return response
		}
	}

	return lastResponse
}

func (ws *WebhookSender) sendSingleWebhook(ctx context.Context, payload *WebhookPayload) *WebhookResponse {
	startTime := time.Now()
	response := &WebhookResponse{}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		response.Error = utils.WrapError(utils.ErrCodeInternal, "Failed to marshal webhook payload", err)
		return response
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ws.url, bytes.NewReader(jsonData))
	if err != nil {
		response.Error = utils.WrapError(utils.ErrCodeInternal, "Failed to create webhook request", err)
		return response
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Hackathon-Platform/1.0")
	req.Header.Set("X-Timestamp", fmt.Sprintf("%d", time.Now().Unix()))
	req.Header.Set("X-Request-ID", utils.GenerateID())

	resp, err := ws.httpClient.Do(req)
	response.ResponseTime = time.Since(startTime)
	if err != nil {
		response.Error = utils.WrapError(utils.ErrCodeConnection, "Failed to send webhook", err)
		return response
	}
	defer resp.Body.Close()

	response.StatusCode = resp.StatusCode
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	response.Body = string(body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		response.Success = true
	} else {
		response.Error = utils.NewAppError(utils.ErrCodeConnection,
			"Webhook returned non-success status",
			fmt.Sprintf("status: %d, body: %s", resp.StatusCode, response.Body))
	}

	return response
}

// calculateRetryDelay returns the wait before the given attempt (2 or later)
func calculateRetryDelay(config *WebhookRetryConfig, attempt int) time.Duration {
	var delay time.Duration

	switch config.Backoff {
	case "exponential":
		delay = config.BaseDelay << uint(attempt-2)
	case "linear":
		delay = config.BaseDelay * time.Duration(attempt-1)
	default:
		delay = config.BaseDelay
	}

	if delay > config.MaxDelay {
		delay = config.MaxDelay
	}
	return delay
}
