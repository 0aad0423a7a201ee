package submission

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartdevs17/hackathon-platform/internal/metrics"
	"github.com/smartdevs17/hackathon-platform/internal/models"
	"github.com/smartdevs17/hackathon-platform/internal/session"
	"github.com/smartdevs17/hackathon-platform/pkg/utils"
)

const testKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

type writeCall struct {
	method string
	value  *big.Int
	args   []interface{}
}

type fakeWriter struct {
	mu    sync.Mutex
	calls []writeCall
	err   error
	nonce uint64
}

func (w *fakeWriter) send(opts *bind.TransactOpts, method string, args ...interface{}) (*types.Transaction, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var value *big.Int
	if opts.Value != nil {
		value = new(big.Int).Set(opts.Value)
	}
	w.calls = append(w.calls, writeCall{method: method, value: value, args: args})
	if w.err != nil {
		return nil, w.err
	}
	w.nonce++
	return types.NewTx(&types.LegacyTx{Nonce: w.nonce, Gas: 21000, GasPrice: big.NewInt(1)}), nil
}

func (w *fakeWriter) CreateHackathon(opts *bind.TransactOpts, title, description string, durationDays *big.Int) (*types.Transaction, error) {
	return w.send(opts, "createHackathon", title, description, durationDays)
}

func (w *fakeWriter) SubmitProject(opts *bind.TransactOpts, hackathonID *big.Int, title, description, repoURL, demoURL string) (*types.Transaction, error) {
	return w.send(opts, "submitProject", hackathonID, title, description, repoURL, demoURL)
}

func (w *fakeWriter) VoteForProject(opts *bind.TransactOpts, projectID *big.Int) (*types.Transaction, error) {
	return w.send(opts, "voteForProject", projectID)
}

func (w *fakeWriter) ClaimPrize(opts *bind.TransactOpts, hackathonID *big.Int) (*types.Transaction, error) {
	return w.send(opts, "claimPrize", hackathonID)
}

type fakeWaiter struct {
	status uint64
	err    error
	hang   bool
	calls  int
}

func (w *fakeWaiter) WaitForReceipt(ctx context.Context, txHash common.Hash, confirmations int) (*types.Receipt, error) {
	w.calls++
	if w.hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if w.err != nil {
		return nil, w.err
	}
	return &types.Receipt{
		Status:      w.status,
		TxHash:      txHash,
		BlockNumber: big.NewInt(42),
		GasUsed:     50000,
	}, nil
}

type fakeRefresher struct {
	lists   int
	details []string
	err     error
}

func (r *fakeRefresher) RefreshHackathons(ctx context.Context) error {
	r.lists++
	return r.err
}

func (r *fakeRefresher) RefreshHackathon(ctx context.Context, id string) error {
	r.details = append(r.details, id)
	return r.err
}

type fakeNotifier struct {
	sent []*models.Notification
}

func (n *fakeNotifier) Notify(ctx context.Context, notification *models.Notification) error {
	n.sent = append(n.sent, notification)
	return nil
}

func (n *fakeNotifier) levels() []models.NotificationLevel {
	levels := make([]models.NotificationLevel, 0, len(n.sent))
	for _, s := range n.sent {
		levels = append(levels, s.Level)
	}
	return levels
}

type fakeStore struct {
	records map[string]models.TransactionRecord
}

func (s *fakeStore) SaveTransaction(ctx context.Context, tx *models.TransactionRecord) error {
	tx.ID = utils.GenerateID()
	s.records[tx.ID] = *tx
	return nil
}

func (s *fakeStore) UpdateTransaction(ctx context.Context, tx *models.TransactionRecord) error {
	s.records[tx.ID] = *tx
	return nil
}

type chainID struct{}

func (chainID) ChainID(ctx context.Context) (*big.Int, error) { return big.NewInt(31337), nil }

type harness struct {
	flow      *Flow
	writer    *fakeWriter
	waiter    *fakeWaiter
	refresher *fakeRefresher
	notifier  *fakeNotifier
	store     *fakeStore
	session   *session.Session
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		writer:    &fakeWriter{},
		waiter:    &fakeWaiter{status: types.ReceiptStatusSuccessful},
		refresher: &fakeRefresher{},
		notifier:  &fakeNotifier{},
		store:     &fakeStore{records: map[string]models.TransactionRecord{}},
	}
	h.flow = NewFlow(h.writer, h.waiter, h.refresher, h.notifier, h.store, Config{})
	h.flow.SetMetricsManager(metrics.NewManager())

	sess, err := session.NewManager(chainID{}).Connect(context.Background(), testKey)
	require.NoError(t, err)
	h.session = sess
	return h
}

func (h *harness) onlyRecord(t *testing.T) models.TransactionRecord {
	t.Helper()
	require.Len(t, h.store.records, 1)
	for _, r := range h.store.records {
		return r
	}
	return models.TransactionRecord{}
}

func TestCreateHackathon(t *testing.T) {
	h := newHarness(t)

	receipt, err := h.flow.CreateHackathon(context.Background(), h.session, CreateHackathonInput{
		Title:        "ETH Global",
		Description:  "Build on-chain",
		DurationDays: 7,
		Prize:        "0.5",
	})
	require.NoError(t, err)

	require.Len(t, h.writer.calls, 1)
	call := h.writer.calls[0]
	assert.Equal(t, "createHackathon", call.method)
	assert.Equal(t, "500000000000000000", call.value.String())
	assert.Equal(t, big.NewInt(7), call.args[2])

	assert.Equal(t, uint64(42), receipt.BlockNumber)
	assert.Equal(t, h.session.Account().Hex(), receipt.Account)
	assert.True(t, receipt.Refreshed)
	assert.Equal(t, 1, h.refresher.lists)

	assert.Equal(t, []models.NotificationLevel{models.NotificationSuccess}, h.notifier.levels())
	assert.Equal(t, receipt.TxHash, h.notifier.sent[0].TxHash)

	record := h.onlyRecord(t)
	assert.Equal(t, models.TxStatusConfirmed, record.Status)
	assert.Equal(t, KindCreateHackathon, record.Kind)
	require.NotNil(t, record.BlockNumber)
	assert.Equal(t, uint64(42), *record.BlockNumber)
}

func TestCreateHackathonRejectsInvalidInputBeforeSending(t *testing.T) {
	cases := map[string]CreateHackathonInput{
		"zero duration":     {Title: "T", DurationDays: 0, Prize: "1"},
		"negative duration": {Title: "T", DurationDays: -3, Prize: "1"},
		"zero prize":        {Title: "T", DurationDays: 1, Prize: "0"},
		"negative prize":    {Title: "T", DurationDays: 1, Prize: "-1"},
		"unparsable prize":  {Title: "T", DurationDays: 1, Prize: "lots"},
		"missing title":     {Title: " ", DurationDays: 1, Prize: "1"},
	}

	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)

			_, err := h.flow.CreateHackathon(context.Background(), h.session, in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, utils.ErrInvalidInput))

			assert.Empty(t, h.writer.calls)
			assert.Equal(t, 0, h.waiter.calls)
			assert.Empty(t, h.store.records)
			assert.Equal(t, []models.NotificationLevel{models.NotificationError}, h.notifier.levels())
		})
	}
}

func TestCreateHackathonInputValidate(t *testing.T) {
	wei, err := CreateHackathonInput{Title: "DeFi Sprint", DurationDays: 7, Prize: "0.25"}.Validate()
	require.NoError(t, err)
	assert.Equal(t, "250000000000000000", wei.String())

	_, err = CreateHackathonInput{Title: "DeFi Sprint", DurationDays: 0, Prize: "0.25"}.Validate()
	assert.True(t, errors.Is(err, utils.ErrInvalidInput))

	_, err = CreateHackathonInput{Title: "DeFi Sprint", DurationDays: 7, Prize: "abc"}.Validate()
	assert.True(t, errors.Is(err, utils.ErrInvalidInput))
}

func TestVoteWithoutSessionIssuesNoTransaction(t *testing.T) {
	h := newHarness(t)

	_, err := h.flow.VoteForProject(context.Background(), nil, "3", "1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrNotConnected))
	assert.Empty(t, h.writer.calls)
	assert.Empty(t, h.store.records)
}

func TestVoteWithDisconnectedSession(t *testing.T) {
	h := newHarness(t)
	manager := session.NewManager(chainID{})
	sess, err := manager.Connect(context.Background(), testKey)
	require.NoError(t, err)
	manager.Disconnect()

	_, err = h.flow.VoteForProject(context.Background(), sess, "3", "1")
	assert.True(t, errors.Is(err, utils.ErrNotConnected))
	assert.Empty(t, h.writer.calls)
}

func TestVoteRefreshesHackathon(t *testing.T) {
	h := newHarness(t)

	_, err := h.flow.VoteForProject(context.Background(), h.session, "3", "1")
	require.NoError(t, err)

	require.Len(t, h.writer.calls, 1)
	assert.Equal(t, big.NewInt(3), h.writer.calls[0].args[0])
	assert.Equal(t, []string{"1"}, h.refresher.details)
	assert.Equal(t, 0, h.refresher.lists)

	// Without a hackathon the list is refreshed
	_, err = h.flow.VoteForProject(context.Background(), h.session, "3", "")
	require.NoError(t, err)
	assert.Equal(t, 1, h.refresher.lists)
}

func TestSubmitProject(t *testing.T) {
	h := newHarness(t)

	_, err := h.flow.SubmitProject(context.Background(), h.session, SubmitProjectInput{
		HackathonID: "2",
		Title:       "Indexer",
		Description: "Indexes things",
		RepoURL:     "https://github.com/example/indexer",
	})
	require.NoError(t, err)

	call := h.writer.calls[0]
	assert.Equal(t, "submitProject", call.method)
	assert.Nil(t, call.value)
	assert.Equal(t, big.NewInt(2), call.args[0])
	assert.Equal(t, "", call.args[4])
	assert.Equal(t, []string{"2"}, h.refresher.details)

	_, err = h.flow.SubmitProject(context.Background(), h.session, SubmitProjectInput{HackathonID: "x", Title: "t", RepoURL: "r"})
	assert.True(t, errors.Is(err, utils.ErrInvalidInput))
	assert.Len(t, h.writer.calls, 1)
}

func TestSendFailureWrapsCauseWithoutRetry(t *testing.T) {
	h := newHarness(t)
	cause := errors.New("insufficient funds for gas * price + value")
	h.writer.err = cause

	_, err := h.flow.VoteForProject(context.Background(), h.session, "3", "1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrTransactionFailed))
	assert.True(t, errors.Is(err, cause))

	assert.Len(t, h.writer.calls, 1)
	assert.Equal(t, 0, h.waiter.calls)
	assert.Empty(t, h.refresher.details)

	record := h.onlyRecord(t)
	assert.Equal(t, models.TxStatusFailed, record.Status)
	require.NotNil(t, record.Error)
	assert.Contains(t, *record.Error, "insufficient funds")
	assert.Equal(t, []models.NotificationLevel{models.NotificationError}, h.notifier.levels())
}

func TestRevertedReceipt(t *testing.T) {
	h := newHarness(t)
	h.waiter.status = types.ReceiptStatusFailed

	_, err := h.flow.VoteForProject(context.Background(), h.session, "3", "1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrTransactionFailed))
	assert.Empty(t, h.refresher.details)

	record := h.onlyRecord(t)
	assert.Equal(t, models.TxStatusFailed, record.Status)
	assert.NotEmpty(t, record.TxHash)
	require.NotNil(t, record.BlockNumber)
}

func TestReceiptTimeout(t *testing.T) {
	h := newHarness(t)
	h.waiter.hang = true
	h.flow.config.ReceiptTimeout = 20 * time.Millisecond

	_, err := h.flow.VoteForProject(context.Background(), h.session, "3", "1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrTransactionFailed))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestRefreshFailureIsAWarning(t *testing.T) {
	h := newHarness(t)
	h.refresher.err = errors.New("api down")

	receipt, err := h.flow.VoteForProject(context.Background(), h.session, "3", "1")
	require.NoError(t, err)
	assert.False(t, receipt.Refreshed)
	assert.Equal(t,
		[]models.NotificationLevel{models.NotificationWarning, models.NotificationSuccess},
		h.notifier.levels())
}

func TestFlowWithoutOptionalCollaborators(t *testing.T) {
	h := newHarness(t)
	flow := NewFlow(h.writer, h.waiter, nil, nil, nil, Config{Confirmations: 2})

	receipt, err := flow.VoteForProject(context.Background(), h.session, "3", "1")
	require.NoError(t, err)
	assert.True(t, receipt.Refreshed)
}
