// Package query serves the read model: it calls the contract, projects the
// raw tuples and assembles the records the HTTP API returns.
package query

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/smartdevs17/hackathon-platform/internal/contract"
	"github.com/smartdevs17/hackathon-platform/internal/metrics"
	"github.com/smartdevs17/hackathon-platform/internal/models"
	"github.com/smartdevs17/hackathon-platform/internal/projection"
	"github.com/smartdevs17/hackathon-platform/pkg/utils"
)

// Config tunes the query service
type Config struct {
	CallTimeout      time.Duration
	FetchConcurrency int
}

// Service answers read requests against the contract
type Service struct {
	reader         contract.Reader
	config         Config
	metricsManager *metrics.Manager
	logger         *logrus.Entry
	now            func() time.Time
}

// NewService creates a query service over reader
func NewService(reader contract.Reader, cfg Config) *Service {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 10 * time.Second
	}
	if cfg.FetchConcurrency <= 0 {
		cfg.FetchConcurrency = 4
	}

	return &Service{
		reader: reader,
		config: cfg,
		logger: utils.GetLogger().WithField("component", "query"),
		now:    time.Now,
	}
}

// SetMetricsManager sets the metrics manager
func (s *Service) SetMetricsManager(manager *metrics.Manager) {
	s.metricsManager = manager
}

// ListHackathons returns every hackathon in contract order, without projects.
// A single malformed entry fails the whole list.
func (s *Service) ListHackathons(ctx context.Context) (result []*models.Hackathon, err error) {
	defer s.observe("list_hackathons", time.Now(), &err)

	var raw []contract.HackathonTuple
	err = s.withTimeout(ctx, func(ctx context.Context) error {
		var callErr error
		raw, callErr = s.reader.GetAllHackathons(ctx)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	result = make([]*models.Hackathon, 0, len(raw))
	for i, tuple := range raw {
		h, perr := projection.Hackathon(tuple)
		if perr != nil {
			s.projectionFailed("hackathon", perr)
			return nil, utils.WrapError(utils.ErrCodeUpstreamMalformed, "Malformed hackathon in list", perr)
		}
		s.logger.WithFields(logrus.Fields{"index": i, "id": h.ID}).Trace("Projected hackathon")
		result = append(result, h)
	}

	return result, nil
}

// GetHackathon returns one hackathon with its projects in the order the
// contract lists them.
func (s *Service) GetHackathon(ctx context.Context, id string) (detail *models.HackathonDetail, err error) {
	defer s.observe("get_hackathon", time.Now(), &err)

	hackathonID, err := projection.ParseID(id)
	if err != nil {
		return nil, err
	}

	hackathon, err := s.fetchHackathon(ctx, hackathonID)
	if err != nil {
		return nil, err
	}

	var ids []*big.Int
	err = s.withTimeout(ctx, func(ctx context.Context) error {
		var callErr error
		ids, callErr = s.reader.HackathonProjects(ctx, hackathonID)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	projects, err := s.fetchProjects(ctx, ids)
	if err != nil {
		return nil, err
	}

	return &models.HackathonDetail{Hackathon: hackathon, Projects: projects}, nil
}

// GetProject returns one project
func (s *Service) GetProject(ctx context.Context, id string) (project *models.Project, err error) {
	defer s.observe("get_project", time.Now(), &err)

	projectID, err := projection.ParseID(id)
	if err != nil {
		return nil, err
	}
	return s.fetchProject(ctx, projectID)
}

// GetWinner returns the contract's winner for a hackathon together with the
// winning project's display fields.
func (s *Service) GetWinner(ctx context.Context, hackathonID string) (winner *models.Winner, err error) {
	defer s.observe("get_winner", time.Now(), &err)

	id, err := projection.ParseID(hackathonID)
	if err != nil {
		return nil, err
	}

	var raw contract.WinnerTuple
	err = s.withTimeout(ctx, func(ctx context.Context) error {
		var callErr error
		raw, callErr = s.reader.Winner(ctx, id)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	if raw.ProjectId == nil {
		return nil, utils.WrapError(utils.ErrCodeUpstreamMalformed, "Malformed winner",
			utils.NewAppError(utils.ErrCodeMalformedTuple, "Missing numeric field", "projectId"))
	}

	var project contract.ProjectTuple
	err = s.withTimeout(ctx, func(ctx context.Context) error {
		var callErr error
		project, callErr = s.reader.Project(ctx, raw.ProjectId)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	// A hackathon without projects reports project 0, which does not exist
	if !project.Exists {
		return nil, utils.NewAppError(utils.ErrCodeNotFound, "Winner not found", id.String())
	}

	winner, err = projection.Winner(raw, project)
	if err != nil {
		s.projectionFailed("winner", err)
		return nil, utils.WrapError(utils.ErrCodeUpstreamMalformed, "Malformed winner", err)
	}
	return winner, nil
}

// Health reports liveness. It does not touch the ledger.
func (s *Service) Health() models.Health {
	return models.Health{
		Status:    "OK",
		Timestamp: s.now().UTC().Format(models.DeadlineLayout),
	}
}

func (s *Service) fetchHackathon(ctx context.Context, id *big.Int) (*models.Hackathon, error) {
	var raw contract.HackathonTuple
	err := s.withTimeout(ctx, func(ctx context.Context) error {
		var callErr error
		raw, callErr = s.reader.Hackathon(ctx, id)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	// Unknown ids read back as the zero tuple
	if raw.Organizer == (common.Address{}) {
		return nil, utils.NewAppError(utils.ErrCodeNotFound, "Hackathon not found", id.String())
	}

	h, err := projection.Hackathon(raw)
	if err != nil {
		s.projectionFailed("hackathon", err)
		return nil, utils.WrapError(utils.ErrCodeUpstreamMalformed, "Malformed hackathon", err)
	}
	return h, nil
}

func (s *Service) fetchProject(ctx context.Context, id *big.Int) (*models.Project, error) {
	var raw contract.ProjectTuple
	err := s.withTimeout(ctx, func(ctx context.Context) error {
		var callErr error
		raw, callErr = s.reader.Project(ctx, id)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	if !raw.Exists {
		return nil, utils.NewAppError(utils.ErrCodeNotFound, "Project not found", id.String())
	}

	p, err := projection.Project(raw)
	if err != nil {
		s.projectionFailed("project", err)
		return nil, utils.WrapError(utils.ErrCodeUpstreamMalformed, "Malformed project", err)
	}
	return p, nil
}

// fetchProjects loads projects with bounded concurrency. Each goroutine writes
// its own slot, so the result keeps the order of ids.
func (s *Service) fetchProjects(ctx context.Context, ids []*big.Int) ([]*models.Project, error) {
	projects := make([]*models.Project, len(ids))
	if len(ids) == 0 {
		return projects, nil
	}

	for _, id := range ids {
		if id == nil {
			return nil, utils.WrapError(utils.ErrCodeUpstreamMalformed, "Malformed project id list",
				utils.NewAppError(utils.ErrCodeMalformedTuple, "Missing project id"))
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.FetchConcurrency)

	for i, id := range ids {
		g.Go(func() error {
			p, err := s.fetchProject(gctx, id)
			if err != nil {
				return err
			}
			projects[i] = p
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return projects, nil
}

// withTimeout runs one contract call under its own deadline
func (s *Service) withTimeout(ctx context.Context, call func(context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, s.config.CallTimeout)
	defer cancel()

	err := call(callCtx)
	if err == nil {
		return nil
	}

	if errors.Is(callCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, utils.ErrUpstreamTimeout) {
		return utils.WrapError(utils.ErrCodeUpstreamTimeout, "Contract call timed out", err)
	}
	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return utils.WrapError(utils.ErrCodeUpstreamUnavailable, "Contract call failed", err)
}

func (s *Service) projectionFailed(entity string, err error) {
	s.logger.WithFields(logrus.Fields{
		"entity": entity,
		"error":  err,
	}).Warn("Failed to project contract tuple")

	if s.metricsManager != nil {
		s.metricsManager.GetPrometheusMetrics().RecordProjectionFailure(entity)
	}
}

func (s *Service) observe(operation string, start time.Time, err *error) {
	if s.metricsManager == nil {
		return
	}
	status := "success"
	if *err != nil {
		status = "error"
	}
	s.metricsManager.GetPrometheusMetrics().RecordQuery(operation, status, time.Since(start))
}
