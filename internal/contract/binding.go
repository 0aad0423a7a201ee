package contract

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/hackathon-platform/internal/metrics"
	"github.com/smartdevs17/hackathon-platform/pkg/utils"
)

// Reader is the read half of the contract interface
type Reader interface {
	GetAllHackathons(ctx context.Context) ([]HackathonTuple, error)
	Hackathon(ctx context.Context, id *big.Int) (HackathonTuple, error)
	HackathonProjects(ctx context.Context, id *big.Int) ([]*big.Int, error)
	Project(ctx context.Context, id *big.Int) (ProjectTuple, error)
	Winner(ctx context.Context, hackathonID *big.Int) (WinnerTuple, error)
}

// Writer is the transaction half of the contract interface
type Writer interface {
	CreateHackathon(opts *bind.TransactOpts, title, description string, durationDays *big.Int) (*types.Transaction, error)
	SubmitProject(opts *bind.TransactOpts, hackathonID *big.Int, title, description, repoURL, demoURL string) (*types.Transaction, error)
	VoteForProject(opts *bind.TransactOpts, projectID *big.Int) (*types.Transaction, error)
	ClaimPrize(opts *bind.TransactOpts, hackathonID *big.Int) (*types.Transaction, error)
}

// Binding talks to a deployed HackathonPlatform contract
type Binding struct {
	address        common.Address
	abi            abi.ABI
	contract       *bind.BoundContract
	metricsManager *metrics.Manager
	logger         *logrus.Entry
}

var (
	_ Reader = (*Binding)(nil)
	_ Writer = (*Binding)(nil)
)

// ParseABI parses the embedded contract ABI
func ParseABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(HackathonPlatformABI))
}

// NewBinding binds the contract at address. transactor may be nil for
// read-only use.
func NewBinding(address common.Address, caller bind.ContractCaller, transactor bind.ContractTransactor) (*Binding, error) {
	parsed, err := ParseABI()
	if err != nil {
		return nil, utils.WrapError(utils.ErrCodeConfiguration, "Failed to parse contract ABI", err)
	}

	return &Binding{
		address:  address,
		abi:      parsed,
		contract: bind.NewBoundContract(address, parsed, caller, transactor, nil),
		logger:   utils.GetLogger().WithField("component", "contract"),
	}, nil
}

// SetMetricsManager sets the metrics manager
func (b *Binding) SetMetricsManager(manager *metrics.Manager) {
	b.metricsManager = manager
}

// Address returns the bound contract address
func (b *Binding) Address() common.Address {
	return b.address
}

// GetAllHackathons calls getAllHackathons()
func (b *Binding) GetAllHackathons(ctx context.Context) ([]HackathonTuple, error) {
	out, err := b.call(ctx, MethodGetAllHackathons)
	if err != nil {
		return nil, err
	}
	return DecodeHackathonList(out)
}

// Hackathon calls the hackathons(uint256) getter
func (b *Binding) Hackathon(ctx context.Context, id *big.Int) (HackathonTuple, error) {
	out, err := b.call(ctx, MethodHackathons, id)
	if err != nil {
		return HackathonTuple{}, err
	}
	return DecodeHackathon(out)
}

// HackathonProjects calls getHackathonProjects(uint256)
func (b *Binding) HackathonProjects(ctx context.Context, id *big.Int) ([]*big.Int, error) {
	out, err := b.call(ctx, MethodGetHackathonProjects, id)
	if err != nil {
		return nil, err
	}
	return DecodeIDList(out)
}

// Project calls the projects(uint256) getter
func (b *Binding) Project(ctx context.Context, id *big.Int) (ProjectTuple, error) {
	out, err := b.call(ctx, MethodProjects, id)
	if err != nil {
		return ProjectTuple{}, err
	}
	return DecodeProject(out)
}

// Winner calls getWinner(uint256)
func (b *Binding) Winner(ctx context.Context, hackathonID *big.Int) (WinnerTuple, error) {
	out, err := b.call(ctx, MethodGetWinner, hackathonID)
	if err != nil {
		return WinnerTuple{}, err
	}
	return DecodeWinner(out)
}

// CreateHackathon sends createHackathon; opts.Value carries the prize pool
func (b *Binding) CreateHackathon(opts *bind.TransactOpts, title, description string, durationDays *big.Int) (*types.Transaction, error) {
	return b.transact(opts, MethodCreateHackathon, title, description, durationDays)
}

// SubmitProject sends submitProject
func (b *Binding) SubmitProject(opts *bind.TransactOpts, hackathonID *big.Int, title, description, repoURL, demoURL string) (*types.Transaction, error) {
	return b.transact(opts, MethodSubmitProject, hackathonID, title, description, repoURL, demoURL)
}

// VoteForProject sends voteForProject
func (b *Binding) VoteForProject(opts *bind.TransactOpts, projectID *big.Int) (*types.Transaction, error) {
	return b.transact(opts, MethodVoteForProject, projectID)
}

// ClaimPrize sends claimPrize
func (b *Binding) ClaimPrize(opts *bind.TransactOpts, hackathonID *big.Int) (*types.Transaction, error) {
	return b.transact(opts, MethodClaimPrize, hackathonID)
}

func (b *Binding) call(ctx context.Context, method string, params ...interface{}) ([]interface{}, error) {
	start := time.Now()

	var out []interface{}
	err := b.contract.Call(&bind.CallOpts{Context: ctx}, &out, method, params...)
	b.record(method, err, time.Since(start))
	if err != nil {
		b.logger.WithFields(logrus.Fields{
			"method": method,
			"error":  err,
		}).Debug("Contract call failed")
		return nil, upstreamError(ctx, "Contract call "+method+" failed", err)
	}
	return out, nil
}

func (b *Binding) transact(opts *bind.TransactOpts, method string, params ...interface{}) (*types.Transaction, error) {
	start := time.Now()

	tx, err := b.contract.Transact(opts, method, params...)
	b.record(method, err, time.Since(start))
	if err != nil {
		return nil, utils.WrapError(utils.ErrCodeTransactionFailed, "Failed to send "+method, err)
	}

	b.logger.WithFields(logrus.Fields{
		"method":  method,
		"tx_hash": tx.Hash().Hex(),
	}).Info("Transaction sent")
	return tx, nil
}

func (b *Binding) record(method string, err error, duration time.Duration) {
	if b.metricsManager == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	b.metricsManager.GetPrometheusMetrics().RecordContractCall(method, status, duration)
}

// upstreamError classifies a failed call as a timeout or an unavailable ledger
func upstreamError(ctx context.Context, message string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return utils.WrapError(utils.ErrCodeUpstreamTimeout, message, err)
	}
	return utils.WrapError(utils.ErrCodeUpstreamUnavailable, message, err)
}
