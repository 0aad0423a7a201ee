// Package apiclient is the HTTP client of the query API
package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/hackathon-platform/internal/models"
	"github.com/smartdevs17/hackathon-platform/pkg/utils"
)

// DefaultBaseURL is where a locally started API listens
const DefaultBaseURL = "http://localhost:5000/api"

// Client reads hackathons, projects and winners from the query API
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Entry
}

type errorBody struct {
	Error string `json:"error"`
}

// New creates a client for baseURL, e.g. http://localhost:5000/api
func New(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     utils.GetLogger().WithField("component", "api_client"),
	}
}

// BaseURL returns the API root the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListHackathons calls GET /hackathons
func (c *Client) ListHackathons(ctx context.Context) ([]*models.Hackathon, error) {
	var hackathons []*models.Hackathon
	if err := c.get(ctx, "/hackathons", &hackathons); err != nil {
		return nil, err
	}
	if hackathons == nil {
		hackathons = []*models.Hackathon{}
	}
	return hackathons, nil
}

// GetHackathon calls GET /hackathons/{id}
func (c *Client) GetHackathon(ctx context.Context, id string) (*models.HackathonDetail, error) {
	detail := &models.HackathonDetail{Hackathon: &models.Hackathon{}}
	if err := c.get(ctx, "/hackathons/"+url.PathEscape(id), detail); err != nil {
		return nil, err
	}
	if detail.Projects == nil {
		detail.Projects = []*models.Project{}
	}
	return detail, nil
}

// GetProject calls GET /projects/{id}
func (c *Client) GetProject(ctx context.Context, id string) (*models.Project, error) {
	var project models.Project
	if err := c.get(ctx, "/projects/"+url.PathEscape(id), &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// GetWinner calls GET /hackathons/{id}/winner
func (c *Client) GetWinner(ctx context.Context, hackathonID string) (*models.Winner, error) {
	var winner models.Winner
	if err := c.get(ctx, "/hackathons/"+url.PathEscape(hackathonID)+"/winner", &winner); err != nil {
		return nil, err
	}
	return &winner, nil
}

// Health calls GET /health
func (c *Client) Health(ctx context.Context) (*models.Health, error) {
	var health models.Health
	if err := c.get(ctx, "/health", &health); err != nil {
		return nil, err
	}
	return &health, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	endpoint := c.baseURL + path
	log := c.logger.WithField("url", endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return utils.WrapError(utils.ErrCodeInvalidInput, "Failed to build request", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.WithError(err).Debug("API request failed")
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return utils.WrapError(utils.ErrCodeUpstreamTimeout, "API request timed out", err)
		}
		return utils.WrapError(utils.ErrCodeUpstreamUnavailable, "API request failed", err)
	}
	defer resp.Body.Close()

	log.WithFields(logrus.Fields{
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	}).Debug("API request completed")

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return utils.WrapError(utils.ErrCodeUpstreamUnavailable, "Failed to read API response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return utils.WrapError(utils.ErrCodeUpstreamMalformed, "Failed to decode API response", err)
	}
	return nil
}

// statusError turns an {"error": ...} reply into an error of the matching kind
func statusError(status int, body []byte) error {
	var payload errorBody
	message := http.StatusText(status)
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		message = payload.Error
	}
	details := fmt.Sprintf("status %d", status)

	switch status {
	case http.StatusNotFound:
		return utils.NewAppError(utils.ErrCodeNotFound, message, details)
	case http.StatusBadRequest:
		return utils.NewAppError(utils.ErrCodeInvalidInput, message, details)
	case http.StatusGatewayTimeout:
		return utils.NewAppError(utils.ErrCodeUpstreamTimeout, message, details)
	default:
		return utils.NewAppError(utils.ErrCodeUpstreamUnavailable, message, details)
	}
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
