// Package submission sends the write transactions of the platform: creating
// a hackathon, submitting a project and voting. Each operation validates its
// input, signs with the connected session, waits for the receipt and then
// refreshes the read model the write affected.
package submission

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/hackathon-platform/internal/contract"
	"github.com/smartdevs17/hackathon-platform/internal/metrics"
	"github.com/smartdevs17/hackathon-platform/internal/models"
	"github.com/smartdevs17/hackathon-platform/internal/notification"
	"github.com/smartdevs17/hackathon-platform/internal/projection"
	"github.com/smartdevs17/hackathon-platform/internal/session"
	"github.com/smartdevs17/hackathon-platform/pkg/utils"
)

// Transaction kinds
const (
	KindCreateHackathon = "create_hackathon"
	KindSubmitProject   = "submit_project"
	KindVote            = "vote"
)

// Refresher re-reads the part of the read model a write changed
type Refresher interface {
	RefreshHackathons(ctx context.Context) error
	RefreshHackathon(ctx context.Context, id string) error
}

// ReceiptWaiter blocks until a transaction is mined
type ReceiptWaiter interface {
	WaitForReceipt(ctx context.Context, txHash common.Hash, confirmations int) (*types.Receipt, error)
}

// TransactionStore keeps the local history of submitted writes
type TransactionStore interface {
	SaveTransaction(ctx context.Context, tx *models.TransactionRecord) error
	UpdateTransaction(ctx context.Context, tx *models.TransactionRecord) error
}

// Config tunes the flow
type Config struct {
	Confirmations  int
	ReceiptTimeout time.Duration
}

// CreateHackathonInput holds the create form
type CreateHackathonInput struct {
	Title        string
	Description  string
	DurationDays int64
	// Prize is the attached amount in whole tokens, e.g. "0.5"
	Prize string
}

// SubmitProjectInput holds the project form. DemoURL is optional.
type SubmitProjectInput struct {
	HackathonID string
	Title       string
	Description string
	RepoURL     string
	DemoURL     string
}

// Receipt describes a confirmed write
type Receipt struct {
	Kind        string `json:"kind"`
	TxHash      string `json:"tx_hash"`
	BlockNumber uint64 `json:"block_number"`
	GasUsed     uint64 `json:"gas_used"`
	Account     string `json:"account"`
	// Refreshed is false when the write succeeded but re-reading failed
	Refreshed bool `json:"refreshed"`
}

// Flow runs write operations
type Flow struct {
	writer    contract.Writer
	waiter    ReceiptWaiter
	refresher Refresher
	notifier  notification.Notifier
	store     TransactionStore
	config    Config

	metricsManager *metrics.Manager
	logger         *logrus.Entry
}

// NewFlow creates a submission flow. refresher, notifier and store may be nil.
func NewFlow(writer contract.Writer, waiter ReceiptWaiter, refresher Refresher, notifier notification.Notifier, store TransactionStore, cfg Config) *Flow {
	if cfg.Confirmations <= 0 {
		cfg.Confirmations = 1
	}
	return &Flow{
		writer:    writer,
		waiter:    waiter,
		refresher: refresher,
		notifier:  notifier,
		store:     store,
		config:    cfg,
		logger:    utils.GetLogger().WithField("component", "submission"),
	}
}

// SetMetricsManager sets the metrics manager
func (f *Flow) SetMetricsManager(manager *metrics.Manager) {
	f.metricsManager = manager
}

// Validate checks the input and returns the prize in wei
func (in CreateHackathonInput) Validate() (*big.Int, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, invalid("Title is required")
	}
	if in.DurationDays <= 0 {
		return nil, invalid("Duration must be at least one day")
	}
	wei, err := projection.ParseEther(in.Prize)
	if err != nil {
		return nil, err
	}
	if wei.Sign() <= 0 {
		return nil, invalid("Prize amount must be positive")
	}
	return wei, nil
}

// CreateHackathon creates a hackathon funded with in.Prize and refreshes the
// hackathon list.
func (f *Flow) CreateHackathon(ctx context.Context, sess *session.Session, in CreateHackathonInput) (*Receipt, error) {
	op := operation{
		kind:    KindCreateHackathon,
		title:   "Hackathon created",
		failure: "Error creating hackathon",
		params: map[string]string{
			"title":        in.Title,
			"durationDays": fmt.Sprintf("%d", in.DurationDays),
			"prize":        in.Prize,
		},
	}

	var prize *big.Int
	validate := func() error {
		wei, err := in.Validate()
		if err != nil {
			return err
		}
		prize = wei
		return nil
	}
	send := func(opts *bind.TransactOpts) (*types.Transaction, error) {
		opts.Value = prize
		return f.writer.CreateHackathon(opts, in.Title, in.Description, big.NewInt(in.DurationDays))
	}
	refresh := func(ctx context.Context) error {
		return f.refresher.RefreshHackathons(ctx)
	}

	return f.run(ctx, sess, op, validate, send, refresh)
}

// SubmitProject submits a project and refreshes its hackathon
func (f *Flow) SubmitProject(ctx context.Context, sess *session.Session, in SubmitProjectInput) (*Receipt, error) {
	op := operation{
		kind:    KindSubmitProject,
		title:   "Project submitted",
		failure: "Error submitting project",
		params: map[string]string{
			"hackathonId": in.HackathonID,
			"title":       in.Title,
			"repoUrl":     in.RepoURL,
		},
	}

	var hackathonID *big.Int
	validate := func() error {
		id, err := projection.ParseID(in.HackathonID)
		if err != nil {
			return err
		}
		if strings.TrimSpace(in.Title) == "" {
			return invalid("Title is required")
		}
		if strings.TrimSpace(in.RepoURL) == "" {
			return invalid("Repository URL is required")
		}
		hackathonID = id
		return nil
	}
	send := func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return f.writer.SubmitProject(opts, hackathonID, in.Title, in.Description, in.RepoURL, in.DemoURL)
	}
	refresh := func(ctx context.Context) error {
		return f.refresher.RefreshHackathon(ctx, hackathonID.String())
	}

	return f.run(ctx, sess, op, validate, send, refresh)
}

// VoteForProject votes for a project. hackathonID names the hackathon to
// refresh afterwards; when empty the hackathon list is refreshed instead.
func (f *Flow) VoteForProject(ctx context.Context, sess *session.Session, projectID, hackathonID string) (*Receipt, error) {
	op := operation{
		kind:    KindVote,
		title:   "Vote recorded",
		failure: "Error voting",
		params: map[string]string{
			"projectId":   projectID,
			"hackathonId": hackathonID,
		},
	}

	var id *big.Int
	validate := func() error {
		parsed, err := projection.ParseID(projectID)
		if err != nil {
			return err
		}
		if hackathonID != "" {
			if _, err := projection.ParseID(hackathonID); err != nil {
				return err
			}
		}
		id = parsed
		return nil
	}
	send := func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return f.writer.VoteForProject(opts, id)
	}
	refresh := func(ctx context.Context) error {
		if hackathonID == "" {
			return f.refresher.RefreshHackathons(ctx)
		}
		return f.refresher.RefreshHackathon(ctx, hackathonID)
	}

	return f.run(ctx, sess, op, validate, send, refresh)
}

type operation struct {
	kind    string
	title   string
	failure string
	params  map[string]string
}

// run is the shared sequence: session check, validation, send, wait for the
// receipt, refresh, notify. Nothing reaches the ledger before the first two
// steps pass.
func (f *Flow) run(
	ctx context.Context,
	sess *session.Session,
	op operation,
	validate func() error,
	send func(*bind.TransactOpts) (*types.Transaction, error),
	refresh func(context.Context) error,
) (*Receipt, error) {
	log := f.logger.WithField("kind", op.kind)

	if !sess.Connected() {
		err := utils.NewAppError(utils.ErrCodeNotConnected, "Please connect your wallet")
		f.notifyFailure(ctx, op, "", err)
		return nil, err
	}
	if err := validate(); err != nil {
		f.notifyFailure(ctx, op, "", err)
		return nil, err
	}

	record := &models.TransactionRecord{
		Kind:    op.kind,
		Account: sess.Account().Hex(),
		Status:  models.TxStatusPending,
		Params:  op.params,
	}
	f.saveRecord(ctx, record)

	opts, err := sess.TransactOpts(ctx, nil)
	if err != nil {
		f.finishRecord(ctx, record, nil, err)
		f.notifyFailure(ctx, op, "", err)
		return nil, err
	}

	start := time.Now()
	tx, err := send(opts)
	if err != nil {
		if !errors.Is(err, utils.ErrTransactionFailed) {
			err = failed("Transaction was not sent", err)
		}
		f.recordTx(op.kind, "failed")
		f.finishRecord(ctx, record, nil, err)
		f.notifyFailure(ctx, op, "", err)
		return nil, err
	}
	f.recordTx(op.kind, "submitted")
	record.TxHash = tx.Hash().Hex()
	log = log.WithField("tx_hash", record.TxHash)
	log.Info("Transaction submitted, waiting for receipt")

	receipt, err := f.waitForReceipt(ctx, tx.Hash())
	if err == nil && receipt.Status != types.ReceiptStatusSuccessful {
		err = failed("Transaction reverted", fmt.Errorf("receipt status %d in block %v", receipt.Status, receipt.BlockNumber))
	}
	if err != nil {
		if !errors.Is(err, utils.ErrTransactionFailed) {
			err = failed("Transaction was not confirmed", err)
		}
		f.recordTx(op.kind, "failed")
		f.finishRecord(ctx, record, receipt, err)
		f.notifyFailure(ctx, op, record.TxHash, err)
		return nil, err
	}

	f.recordTx(op.kind, "confirmed")
	if f.metricsManager != nil {
		f.metricsManager.GetPrometheusMetrics().RecordTransactionConfirmed(op.kind, time.Since(start))
	}
	f.finishRecord(ctx, record, receipt, nil)

	result := &Receipt{
		Kind:        op.kind,
		TxHash:      record.TxHash,
		BlockNumber: receipt.BlockNumber.Uint64(),
		GasUsed:     receipt.GasUsed,
		Account:     record.Account,
		Refreshed:   true,
	}
	log.WithField("block_number", result.BlockNumber).Info("Transaction confirmed")

	if f.refresher != nil {
		if err := refresh(ctx); err != nil {
			result.Refreshed = false
			log.WithError(err).Warn("Failed to refresh after confirmed transaction")
			f.notify(ctx, withTx(notification.Warning(op.title,
				"Transaction confirmed, but refreshing the view failed: "+err.Error()), record.TxHash))
		}
	}

	f.notify(ctx, withTx(notification.Success(op.title, "Transaction confirmed in block "+receipt.BlockNumber.String()), record.TxHash))
	return result, nil
}

func (f *Flow) waitForReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	if f.config.ReceiptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.config.ReceiptTimeout)
		defer cancel()
	}
	return f.waiter.WaitForReceipt(ctx, hash, f.config.Confirmations)
}

func (f *Flow) saveRecord(ctx context.Context, record *models.TransactionRecord) {
	if f.store == nil {
		return
	}
	if err := f.store.SaveTransaction(ctx, record); err != nil {
		f.logger.WithError(err).Warn("Failed to save transaction record")
	}
}

func (f *Flow) finishRecord(ctx context.Context, record *models.TransactionRecord, receipt *types.Receipt, err error) {
	if f.store == nil || record.ID == "" {
		return
	}

	record.Status = models.TxStatusConfirmed
	if err != nil {
		record.Status = models.TxStatusFailed
		msg := err.Error()
		record.Error = &msg
	}
	if receipt != nil && receipt.BlockNumber != nil {
		block := receipt.BlockNumber.Uint64()
		record.BlockNumber = &block
	}

	if uerr := f.store.UpdateTransaction(ctx, record); uerr != nil {
		f.logger.WithError(uerr).Warn("Failed to update transaction record")
	}
}

func (f *Flow) notifyFailure(ctx context.Context, op operation, txHash string, err error) {
	f.logger.WithFields(logrus.Fields{
		"kind":  op.kind,
		"error": err,
	}).Warn(op.failure)
	f.notify(ctx, withTx(notification.Error(op.failure, userMessage(err)), txHash))
}

func (f *Flow) notify(ctx context.Context, n *models.Notification) {
	if f.notifier == nil {
		return
	}
	if err := f.notifier.Notify(ctx, n); err != nil {
		f.logger.WithError(err).Debug("Notification delivery failed")
	}
}

func (f *Flow) recordTx(kind, status string) {
	if f.metricsManager != nil {
		f.metricsManager.GetPrometheusMetrics().RecordTransaction(kind, status)
	}
}

func withTx(n *models.Notification, txHash string) *models.Notification {
	n.TxHash = txHash
	return n
}

// userMessage returns the innermost human-readable part of err
func userMessage(err error) string {
	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		if appErr.Cause != nil {
			return appErr.Message + ": " + appErr.Cause.Error()
		}
		if appErr.Details != "" {
			return appErr.Message + " (" + appErr.Details + ")"
		}
		return appErr.Message
	}
	return err.Error()
}

func invalid(message string) error {
	return utils.NewAppError(utils.ErrCodeInvalidInput, message)
}

func failed(message string, cause error) error {
	return utils.WrapError(utils.ErrCodeTransactionFailed, message, cause)
}
