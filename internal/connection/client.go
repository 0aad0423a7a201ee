package connection

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/hackathon-platform/pkg/utils"
)

// Backend routes contract calls and transactions through the connection
// manager, so every RPC uses the live client and transport failures trigger
// failover on the next call. It satisfies bind.ContractCaller and
// bind.ContractTransactor.
type Backend struct {
	manager      *ConnectionManager
	pollInterval time.Duration
	logger       *logrus.Entry
}

// NewBackend creates a backend over manager. pollInterval paces receipt polling.
func NewBackend(manager *ConnectionManager, pollInterval time.Duration) *Backend {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &Backend{
		manager:      manager,
		pollInterval: pollInterval,
		logger:       utils.GetLogger().WithField("component", "ledger_backend"),
	}
}

// CodeAt returns the contract code at the given block
func (b *Backend) CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error) {
	client, err := b.manager.GetClient(ctx)
	if err != nil {
		return nil, err
	}
	code, err := client.CodeAt(ctx, contract, blockNumber)
	return code, b.observe(ctx, err)
}

// CallContract executes a read-only message call
func (b *Backend) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	client, err := b.manager.GetClient(ctx)
	if err != nil {
		return nil, err
	}
	out, err := client.CallContract(ctx, call, blockNumber)
	return out, b.observe(ctx, err)
}

// HeaderByNumber returns a block header; nil means latest
func (b *Backend) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	client, err := b.manager.GetClient(ctx)
	if err != nil {
		return nil, err
	}
	header, err := client.HeaderByNumber(ctx, number)
	return header, b.observe(ctx, err)
}

// PendingCodeAt returns the code of account in the pending state
func (b *Backend) PendingCodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	client, err := b.manager.GetClient(ctx)
	if err != nil {
		return nil, err
	}
	code, err := client.PendingCodeAt(ctx, account)
	return code, b.observe(ctx, err)
}

// PendingNonceAt returns the pending nonce of account
func (b *Backend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	client, err := b.manager.GetClient(ctx)
	if err != nil {
		return 0, err
	}
	nonce, err := client.PendingNonceAt(ctx, account)
	return nonce, b.observe(ctx, err)
}

// SuggestGasPrice returns the node's legacy gas price suggestion
func (b *Backend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	client, err := b.manager.GetClient(ctx)
	if err != nil {
		return nil, err
	}
	price, err := client.SuggestGasPrice(ctx)
	return price, b.observe(ctx, err)
}

// SuggestGasTipCap returns the node's priority fee suggestion
func (b *Backend) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	client, err := b.manager.GetClient(ctx)
	if err != nil {
		return nil, err
	}
	tip, err := client.SuggestGasTipCap(ctx)
	return tip, b.observe(ctx, err)
}

// EstimateGas estimates the gas needed for call
func (b *Backend) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	client, err := b.manager.GetClient(ctx)
	if err != nil {
		return 0, err
	}
	gas, err := client.EstimateGas(ctx, call)
	return gas, b.observe(ctx, err)
}

// SendTransaction broadcasts a signed transaction
func (b *Backend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	client, err := b.manager.GetClient(ctx)
	if err != nil {
		return err
	}
	return b.observe(ctx, client.SendTransaction(ctx, tx))
}

// ChainID returns the chain id of the connected node
func (b *Backend) ChainID(ctx context.Context) (*big.Int, error) {
	return b.manager.ChainID(ctx)
}

// WaitForReceipt polls until txHash is mined and, when confirmations > 1,
// until enough blocks are built on top of it. It returns the receipt whatever
// its status; callers decide what a reverted receipt means.
func (b *Backend) WaitForReceipt(ctx context.Context, txHash common.Hash, confirmations int) (*types.Receipt, error) {
	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()

	log := b.logger.WithField("tx_hash", txHash.Hex())

	var receipt *types.Receipt
	for receipt == nil {
		client, err := b.manager.GetClient(ctx)
		if err == nil {
			r, rerr := client.TransactionReceipt(ctx, txHash)
			switch {
			case rerr == nil:
				receipt = r
				continue
			case errors.Is(rerr, ethereum.NotFound):
				log.Debug("Transaction not yet mined")
			default:
				log.WithError(rerr).Warn("Failed to get transaction receipt")
				_ = b.observe(ctx, rerr)
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	if confirmations <= 1 || receipt.BlockNumber == nil {
		return receipt, nil
	}

	target := receipt.BlockNumber.Uint64() + uint64(confirmations) - 1
	for {
		current, err := b.manager.LatestBlockNumber(ctx)
		if err != nil {
			log.WithError(err).Warn("Failed to get latest block number")
		} else if current >= target {
			log.WithFields(logrus.Fields{
				"confirmations": confirmations,
				"current_block": current,
				"tx_block":      receipt.BlockNumber.Uint64(),
			}).Info("Transaction confirmed")
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// observe hands transport failures to the manager. A JSON-RPC error reply
// (for example a revert during gas estimation) means the node is reachable
// and leaves the connection alone.
func (b *Backend) observe(ctx context.Context, err error) error {
	if err == nil || ctx.Err() != nil {
		return err
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return err
	}
	b.manager.MarkFailed(err)
	return err
}
