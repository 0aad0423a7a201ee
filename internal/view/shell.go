// Package view holds the client-side view state: the connected account, the
// active tab, the last fetched hackathon list and the selected hackathon.
package view

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/hackathon-platform/internal/models"
	"github.com/smartdevs17/hackathon-platform/pkg/utils"
)

// Tab is one of the shell's screens
type Tab string

const (
	TabHackathons Tab = "hackathons"
	TabCreate     Tab = "create"
	TabDetails    Tab = "details"
)

// Source reads the read model, normally the API client
type Source interface {
	ListHackathons(ctx context.Context) ([]*models.Hackathon, error)
	GetHackathon(ctx context.Context, id string) (*models.HackathonDetail, error)
}

// SnapshotStore caches what the shell last saw
type SnapshotStore interface {
	SaveHackathons(ctx context.Context, hackathons []*models.Hackathon) error
	GetHackathons(ctx context.Context) ([]*models.Hackathon, error)
	SaveHackathonDetail(ctx context.Context, detail *models.HackathonDetail) error
	GetHackathonDetail(ctx context.Context, id string) (*models.HackathonDetail, error)
}

// State is a point-in-time copy of the view state
type State struct {
	Account       string
	ActiveTab     Tab
	Hackathons    []*models.Hackathon
	Selected      *models.HackathonDetail
	LastRefreshed time.Time
}

// Shell owns the view state. Fetches run without the lock held; results are
// applied only if no newer fetch of the same kind has been applied already.
type Shell struct {
	source Source
	cache  SnapshotStore
	logger *logrus.Entry
	now    func() time.Time

	mu          sync.RWMutex
	state       State
	listSeq     uint64
	listApplied uint64
	detailSeq   uint64
	detailDone  uint64
}

// NewShell creates a shell reading from source. cache may be nil.
func NewShell(source Source, cache SnapshotStore) *Shell {
	return &Shell{
		source: source,
		cache:  cache,
		logger: utils.GetLogger().WithField("component", "view"),
		now:    time.Now,
		state: State{
			ActiveTab:  TabHackathons,
			Hackathons: []*models.Hackathon{},
		},
	}
}

// RefreshHackathons reloads the hackathon list. On failure the previous list
// stays in place.
func (s *Shell) RefreshHackathons(ctx context.Context) error {
	seq := s.nextListSeq()

	hackathons, err := s.source.ListHackathons(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to refresh hackathons")
		return err
	}

	s.mu.Lock()
	applied := seq > s.listApplied
	if applied {
		s.listApplied = seq
		s.state.Hackathons = hackathons
		s.state.LastRefreshed = s.now()
	}
	s.mu.Unlock()

	if applied && s.cache != nil {
		if err := s.cache.SaveHackathons(ctx, hackathons); err != nil {
			s.logger.WithError(err).Warn("Failed to cache hackathons")
		}
	}

	s.logger.WithField("count", len(hackathons)).Debug("Hackathons refreshed")
	return nil
}

// SelectHackathon loads a hackathon with its projects and switches to the
// details tab
func (s *Shell) SelectHackathon(ctx context.Context, id string) error {
	seq := s.nextDetailSeq()

	detail, err := s.fetchDetail(ctx, id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if seq > s.detailDone {
		s.detailDone = seq
		s.state.Selected = detail
		s.state.ActiveTab = TabDetails
	}
	s.mergeListEntry(detail.Hackathon)
	s.mu.Unlock()

	return nil
}

// RefreshHackathon reloads one hackathon. The selection is replaced only when
// it is the same hackathon; the list entry is updated either way.
func (s *Shell) RefreshHackathon(ctx context.Context, id string) error {
	seq := s.nextDetailSeq()

	detail, err := s.fetchDetail(ctx, id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if seq > s.detailDone && s.state.Selected != nil && s.state.Selected.ID == detail.ID {
		s.detailDone = seq
		s.state.Selected = detail
	}
	s.mergeListEntry(detail.Hackathon)
	s.mu.Unlock()

	return nil
}

// RequirePhase fails with InvalidInput unless the selected hackathon is in
// phase want. Submissions close at the deadline and voting opens after it.
func (s *Shell) RequirePhase(want models.Phase) error {
	s.mu.RLock()
	selected := s.state.Selected
	s.mu.RUnlock()

	if selected == nil || selected.Hackathon == nil {
		return utils.NewAppError(utils.ErrCodeInvalidInput, "No hackathon selected")
	}
	return CheckPhase(selected.Hackathon, want, s.now())
}

// CheckPhase fails with InvalidInput unless h is in phase want at now
func CheckPhase(h *models.Hackathon, want models.Phase, now time.Time) error {
	switch got := h.Phase(now); {
	case got == want:
		return nil
	case want == models.PhaseSubmission:
		return utils.NewAppError(utils.ErrCodeInvalidInput, "Submissions are closed", "hackathon "+h.ID)
	default:
		return utils.NewAppError(utils.ErrCodeInvalidInput, "Voting has not started", "hackathon "+h.ID)
	}
}

// SetTab switches screens. The details tab needs a selection.
func (s *Shell) SetTab(tab Tab) error {
	switch tab {
	case TabHackathons, TabCreate, TabDetails:
	default:
		return utils.NewAppError(utils.ErrCodeInvalidInput, "Unknown tab", string(tab))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if tab == TabDetails && s.state.Selected == nil {
		return utils.NewAppError(utils.ErrCodeInvalidInput, "No hackathon selected")
	}
	s.state.ActiveTab = tab
	return nil
}

// SetAccount records the connected account; empty means disconnected
func (s *Shell) SetAccount(account string) {
	s.mu.Lock()
	s.state.Account = account
	s.mu.Unlock()
}

// Snapshot returns a copy of the current state
func (s *Shell) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.state
	out.Hackathons = make([]*models.Hackathon, len(s.state.Hackathons))
	for i, h := range s.state.Hackathons {
		c := *h
		out.Hackathons[i] = &c
	}
	if s.state.Selected != nil {
		out.Selected = copyDetail(s.state.Selected)
	}
	return out
}

// LoadCached fills the list from the snapshot store without touching the API
func (s *Shell) LoadCached(ctx context.Context) error {
	if s.cache == nil {
		return utils.NewAppError(utils.ErrCodeConfiguration, "No snapshot store configured")
	}

	hackathons, err := s.cache.GetHackathons(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.state.Hackathons = hackathons
	s.mu.Unlock()
	return nil
}

// SelectCached selects a hackathon from the snapshot store
func (s *Shell) SelectCached(ctx context.Context, id string) error {
	if s.cache == nil {
		return utils.NewAppError(utils.ErrCodeConfiguration, "No snapshot store configured")
	}

	detail, err := s.cache.GetHackathonDetail(ctx, id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.state.Selected = detail
	s.state.ActiveTab = TabDetails
	s.mu.Unlock()
	return nil
}

func (s *Shell) nextListSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listSeq++
	return s.listSeq
}

func (s *Shell) nextDetailSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detailSeq++
	return s.detailSeq
}

func (s *Shell) fetchDetail(ctx context.Context, id string) (*models.HackathonDetail, error) {
	detail, err := s.source.GetHackathon(ctx, id)
	if err != nil {
		s.logger.WithError(err).WithField("hackathon_id", id).Warn("Failed to load hackathon")
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SaveHackathonDetail(ctx, detail); err != nil {
			s.logger.WithError(err).WithField("hackathon_id", id).Warn("Failed to cache hackathon")
		}
	}
	return detail, nil
}

// mergeListEntry replaces the list entry with the same id. Caller holds mu.
func (s *Shell) mergeListEntry(h *models.Hackathon) {
	if h == nil {
		return
	}
	for i, existing := range s.state.Hackathons {
		if existing.ID == h.ID {
			// Copy on write; the old slice may still be held by a caller
			list := make([]*models.Hackathon, len(s.state.Hackathons))
			copy(list, s.state.Hackathons)
			updated := *h
			list[i] = &updated
			s.state.Hackathons = list
			return
		}
	}
}

func copyDetail(d *models.HackathonDetail) *models.HackathonDetail {
	out := &models.HackathonDetail{Projects: make([]*models.Project, len(d.Projects))}
	if d.Hackathon != nil {
		h := *d.Hackathon
		out.Hackathon = &h
	}
	for i, p := range d.Projects {
		c := *p
		out.Projects[i] = &c
	}
	return out
}
