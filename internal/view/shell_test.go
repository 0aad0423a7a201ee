package view

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartdevs17/hackathon-platform/internal/models"
	"github.com/smartdevs17/hackathon-platform/pkg/utils"
)

type fakeSource struct {
	mu         sync.Mutex
	hackathons []*models.Hackathon
	details    map[string]*models.HackathonDetail
	err        error
	listCalls  int
	// gate, when set, blocks the next ListHackathons until closed
	gate chan struct{}
}

func (f *fakeSource) ListHackathons(ctx context.Context) ([]*models.Hackathon, error) {
	f.mu.Lock()
	f.listCalls++
	gate := f.gate
	f.gate = nil
	list := f.hackathons
	err := f.err
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return list, err
}

func (f *fakeSource) GetHackathon(ctx context.Context, id string) (*models.HackathonDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	d, ok := f.details[id]
	if !ok {
		return nil, utils.NewAppError(utils.ErrCodeNotFound, "Hackathon not found")
	}
	return d, nil
}

type fakeCache struct {
	hackathons []*models.Hackathon
	details    map[string]*models.HackathonDetail
	err        error
}

func (c *fakeCache) SaveHackathons(ctx context.Context, hackathons []*models.Hackathon) error {
	if c.err != nil {
		return c.err
	}
	c.hackathons = hackathons
	return nil
}

func (c *fakeCache) GetHackathons(ctx context.Context) ([]*models.Hackathon, error) {
	return c.hackathons, nil
}

func (c *fakeCache) SaveHackathonDetail(ctx context.Context, detail *models.HackathonDetail) error {
	if c.err != nil {
		return c.err
	}
	if c.details == nil {
		c.details = map[string]*models.HackathonDetail{}
	}
	c.details[detail.ID] = detail
	return nil
}

func (c *fakeCache) GetHackathonDetail(ctx context.Context, id string) (*models.HackathonDetail, error) {
	d, ok := c.details[id]
	if !ok {
		return nil, utils.NewAppError(utils.ErrCodeNotFound, "Hackathon not cached")
	}
	return d, nil
}

func hackathon(id, title, votes string) *models.Hackathon {
	return &models.Hackathon{
		ID:         id,
		Title:      title,
		Organizer:  "0x1234567890abcdef1234567890abcdef12345678",
		PrizePool:  "1.0",
		Deadline:   "2030-01-01T00:00:00.000Z",
		IsActive:   true,
		TotalVotes: votes,
	}
}

func newSource() *fakeSource {
	return &fakeSource{
		hackathons: []*models.Hackathon{hackathon("0", "Alpha", "0"), hackathon("1", "Beta", "2")},
		details: map[string]*models.HackathonDetail{
			"1": {
				Hackathon: hackathon("1", "Beta", "2"),
				Projects:  []*models.Project{{ID: "4", HackathonID: "1", Title: "Relay", Votes: "2"}},
			},
		},
	}
}

func TestNewShellDefaults(t *testing.T) {
	s := NewShell(newSource(), nil)
	state := s.Snapshot()

	assert.Equal(t, TabHackathons, state.ActiveTab)
	assert.NotNil(t, state.Hackathons)
	assert.Empty(t, state.Hackathons)
	assert.Nil(t, state.Selected)
	assert.Empty(t, state.Account)
}

func TestRefreshHackathons(t *testing.T) {
	cache := &fakeCache{}
	s := NewShell(newSource(), cache)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	require.NoError(t, s.RefreshHackathons(context.Background()))

	state := s.Snapshot()
	require.Len(t, state.Hackathons, 2)
	assert.Equal(t, "Alpha", state.Hackathons[0].Title)
	assert.Equal(t, fixed, state.LastRefreshed)
	assert.Len(t, cache.hackathons, 2)
}

func TestRefreshFailureKeepsPreviousList(t *testing.T) {
	src := newSource()
	s := NewShell(src, nil)
	require.NoError(t, s.RefreshHackathons(context.Background()))

	src.err = utils.NewAppError(utils.ErrCodeUpstreamUnavailable, "Failed to fetch hackathons")
	err := s.RefreshHackathons(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrUpstreamUnavailable))
	assert.Len(t, s.Snapshot().Hackathons, 2)
}

func TestCacheFailureDoesNotFailRefresh(t *testing.T) {
	s := NewShell(newSource(), &fakeCache{err: errors.New("disk full")})

	require.NoError(t, s.RefreshHackathons(context.Background()))
	require.NoError(t, s.SelectHackathon(context.Background(), "1"))
}

func TestSelectHackathonSwitchesTab(t *testing.T) {
	s := NewShell(newSource(), nil)
	require.NoError(t, s.RefreshHackathons(context.Background()))

	require.NoError(t, s.SelectHackathon(context.Background(), "1"))

	state := s.Snapshot()
	assert.Equal(t, TabDetails, state.ActiveTab)
	require.NotNil(t, state.Selected)
	assert.Equal(t, "Beta", state.Selected.Title)
	require.Len(t, state.Selected.Projects, 1)
	assert.Equal(t, "Relay", state.Selected.Projects[0].Title)
}

func TestRequirePhase(t *testing.T) {
	s := NewShell(newSource(), nil)

	err := s.RequirePhase(models.PhaseSubmission)
	assert.True(t, errors.Is(err, utils.ErrInvalidInput))

	require.NoError(t, s.SelectHackathon(context.Background(), "1"))

	// Deadline is 2030-01-01T00:00:00Z
	s.now = func() time.Time { return time.Date(2029, 12, 31, 23, 59, 59, 0, time.UTC) }
	require.NoError(t, s.RequirePhase(models.PhaseSubmission))
	err = s.RequirePhase(models.PhaseVoting)
	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrInvalidInput))
	assert.Contains(t, err.Error(), "Voting has not started")

	s.now = func() time.Time { return time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC) }
	require.NoError(t, s.RequirePhase(models.PhaseSubmission))

	s.now = func() time.Time { return time.Date(2030, 1, 1, 0, 0, 1, 0, time.UTC) }
	require.NoError(t, s.RequirePhase(models.PhaseVoting))
	err = s.RequirePhase(models.PhaseSubmission)
	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrInvalidInput))
	assert.Contains(t, err.Error(), "Submissions are closed")
}

func TestSelectUnknownHackathonLeavesState(t *testing.T) {
	s := NewShell(newSource(), nil)

	err := s.SelectHackathon(context.Background(), "9")
	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrNotFound))

	state := s.Snapshot()
	assert.Equal(t, TabHackathons, state.ActiveTab)
	assert.Nil(t, state.Selected)
}

func TestRefreshHackathonUpdatesSelectionAndList(t *testing.T) {
	src := newSource()
	s := NewShell(src, nil)
	ctx := context.Background()
	require.NoError(t, s.RefreshHackathons(ctx))
	require.NoError(t, s.SelectHackathon(ctx, "1"))

	// A vote lands on the ledger
	src.mu.Lock()
	src.details["1"] = &models.HackathonDetail{
		Hackathon: hackathon("1", "Beta", "3"),
		Projects:  []*models.Project{{ID: "4", HackathonID: "1", Title: "Relay", Votes: "3"}},
	}
	src.mu.Unlock()

	require.NoError(t, s.RefreshHackathon(ctx, "1"))

	state := s.Snapshot()
	assert.Equal(t, "3", state.Selected.TotalVotes)
	assert.Equal(t, "3", state.Selected.Projects[0].Votes)
	assert.Equal(t, "3", state.Hackathons[1].TotalVotes)
	assert.Equal(t, "0", state.Hackathons[0].TotalVotes)
}

func TestRefreshOtherHackathonKeepsSelection(t *testing.T) {
	src := newSource()
	src.details["0"] = &models.HackathonDetail{Hackathon: hackathon("0", "Alpha v2", "0"), Projects: []*models.Project{}}
	s := NewShell(src, nil)
	ctx := context.Background()
	require.NoError(t, s.RefreshHackathons(ctx))
	require.NoError(t, s.SelectHackathon(ctx, "1"))

	require.NoError(t, s.RefreshHackathon(ctx, "0"))

	state := s.Snapshot()
	assert.Equal(t, "1", state.Selected.ID)
	assert.Equal(t, "Alpha v2", state.Hackathons[0].Title)
}

func TestStaleListRefreshIsDropped(t *testing.T) {
	src := newSource()
	gate := make(chan struct{})
	src.gate = gate
	s := NewShell(src, nil)
	ctx := context.Background()

	slowDone := make(chan error, 1)
	go func() { slowDone <- s.RefreshHackathons(ctx) }()

	// Wait until the slow fetch is in flight
	require.Eventually(t, func() bool {
		src.mu.Lock()
		defer src.mu.Unlock()
		return src.listCalls == 1
	}, time.Second, 5*time.Millisecond)

	src.mu.Lock()
	src.hackathons = []*models.Hackathon{hackathon("0", "Alpha", "0"), hackathon("1", "Beta", "2"), hackathon("2", "Gamma", "0")}
	src.mu.Unlock()
	require.NoError(t, s.RefreshHackathons(ctx))

	close(gate)
	require.NoError(t, <-slowDone)

	assert.Len(t, s.Snapshot().Hackathons, 3)
}

func TestSetTab(t *testing.T) {
	s := NewShell(newSource(), nil)

	require.NoError(t, s.SetTab(TabCreate))
	assert.Equal(t, TabCreate, s.Snapshot().ActiveTab)

	err := s.SetTab(TabDetails)
	assert.True(t, errors.Is(err, utils.ErrInvalidInput))

	err = s.SetTab(Tab("settings"))
	assert.True(t, errors.Is(err, utils.ErrInvalidInput))
	assert.Equal(t, TabCreate, s.Snapshot().ActiveTab)

	require.NoError(t, s.SelectHackathon(context.Background(), "1"))
	require.NoError(t, s.SetTab(TabHackathons))
	require.NoError(t, s.SetTab(TabDetails))
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewShell(newSource(), nil)
	require.NoError(t, s.RefreshHackathons(context.Background()))
	require.NoError(t, s.SelectHackathon(context.Background(), "1"))
	s.SetAccount("0xabc")

	snap := s.Snapshot()
	snap.Hackathons[0].Title = "changed"
	snap.Selected.Projects[0].Votes = "100"
	snap.Account = ""

	again := s.Snapshot()
	assert.Equal(t, "Alpha", again.Hackathons[0].Title)
	assert.Equal(t, "2", again.Selected.Projects[0].Votes)
	assert.Equal(t, "0xabc", again.Account)
}

func TestCachedReads(t *testing.T) {
	cache := &fakeCache{}
	online := NewShell(newSource(), cache)
	require.NoError(t, online.RefreshHackathons(context.Background()))
	require.NoError(t, online.SelectHackathon(context.Background(), "1"))

	down := &fakeSource{err: utils.NewAppError(utils.ErrCodeUpstreamUnavailable, "offline")}
	offline := NewShell(down, cache)
	require.NoError(t, offline.LoadCached(context.Background()))
	require.NoError(t, offline.SelectCached(context.Background(), "1"))

	state := offline.Snapshot()
	assert.Len(t, state.Hackathons, 2)
	assert.Equal(t, "Beta", state.Selected.Title)
	assert.Equal(t, TabDetails, state.ActiveTab)

	err := offline.SelectCached(context.Background(), "7")
	assert.True(t, errors.Is(err, utils.ErrNotFound))

	noCache := NewShell(down, nil)
	assert.Error(t, noCache.LoadCached(context.Background()))
}

func TestRenderHackathonsShowsPhase(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	past := hackathon("2", "Closed", "5")
	past.Deadline = "2025-06-01T00:00:00.000Z"

	var buf bytes.Buffer
	require.NoError(t, RenderHackathons(&buf, []*models.Hackathon{hackathon("0", "Alpha", "0"), past}, now))

	out := buf.String()
	assert.Contains(t, out, "Submission open")
	assert.Contains(t, out, "Voting")
	assert.Contains(t, out, "0x1234...5678")
	assert.Contains(t, out, "1.0 ETH")
}

func TestRenderEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderHackathons(&buf, nil, time.Now()))
	assert.Equal(t, "No hackathons yet.\n", buf.String())

	buf.Reset()
	require.NoError(t, RenderDetail(&buf, &models.HackathonDetail{Hackathon: hackathon("0", "Alpha", "0"), Projects: []*models.Project{}}, time.Now()))
	assert.Contains(t, buf.String(), "No projects submitted.")

	buf.Reset()
	require.NoError(t, RenderHeader(&buf, ""))
	assert.Equal(t, "Wallet: not connected\n", buf.String())
}
