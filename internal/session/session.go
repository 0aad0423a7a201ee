// Package session holds the wallet connection used by write operations.
// A session is opened explicitly with a signing key and stays valid until
// it is disconnected.
package session

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/hackathon-platform/pkg/utils"
)

// ChainIDSource reports the chain id of the connected ledger
type ChainIDSource interface {
	ChainID(ctx context.Context) (*big.Int, error)
}

// Session is a connected wallet
type Session struct {
	account     common.Address
	chainID     *big.Int
	signer      bind.SignerFn
	connectedAt time.Time

	mu     sync.RWMutex
	closed bool
}

// Account returns the connected account address
func (s *Session) Account() common.Address {
	return s.account
}

// ChainID returns the chain id the session signs for
func (s *Session) ChainID() *big.Int {
	return new(big.Int).Set(s.chainID)
}

// ConnectedAt returns when the session was opened
func (s *Session) ConnectedAt() time.Time {
	return s.connectedAt
}

// Connected reports whether the session can still sign. A nil session is
// never connected.
func (s *Session) Connected() bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.closed
}

// TransactOpts returns fresh transaction options for one write. value is the
// native amount attached to the call and may be nil.
func (s *Session) TransactOpts(ctx context.Context, value *big.Int) (*bind.TransactOpts, error) {
	if !s.Connected() {
		return nil, utils.NewAppError(utils.ErrCodeNotConnected, "Wallet is not connected")
	}

	opts := &bind.TransactOpts{
		From:    s.account,
		Signer:  s.signer,
		Context: ctx,
	}
	if value != nil {
		opts.Value = new(big.Int).Set(value)
	}
	return opts, nil
}

func (s *Session) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// Manager owns the current session
type Manager struct {
	chain   ChainIDSource
	current *Session
	mu      sync.Mutex
	logger  *logrus.Entry
}

// NewManager creates a session manager that asks chain for the chain id
func NewManager(chain ChainIDSource) *Manager {
	return &Manager{
		chain:  chain,
		logger: utils.GetLogger().WithField("component", "session"),
	}
}

// Connect opens a session for the given hex private key, replacing any
// current session.
func (m *Manager) Connect(ctx context.Context, privateKeyHex string) (*Session, error) {
	key, err := ParsePrivateKey(privateKeyHex)
	if err != nil {
		return nil, err
	}

	chainID, err := m.chain.ChainID(ctx)
	if err != nil {
		return nil, utils.WrapError(utils.ErrCodeUpstreamUnavailable, "Failed to query chain id", err)
	}

	opts, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, utils.WrapError(utils.ErrCodeInvalidInput, "Failed to create transactor", err)
	}

	sess := &Session{
		account:     opts.From,
		chainID:     new(big.Int).Set(chainID),
		signer:      opts.Signer,
		connectedAt: time.Now(),
	}

	m.mu.Lock()
	previous := m.current
	m.current = sess
	m.mu.Unlock()

	if previous != nil {
		previous.close()
	}

	m.logger.WithFields(logrus.Fields{
		"account":  utils.ShortAddress(sess.account.Hex()),
		"chain_id": chainID.String(),
	}).Info("Wallet connected")

	return sess, nil
}

// Disconnect closes the current session. It is a no-op when disconnected.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	sess := m.current
	m.current = nil
	m.mu.Unlock()

	if sess == nil {
		return
	}
	sess.close()
	m.logger.WithField("account", utils.ShortAddress(sess.account.Hex())).Info("Wallet disconnected")
}

// Current returns the open session or nil
func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// ParsePrivateKey parses a secp256k1 key given as hex, with or without 0x
func ParsePrivateKey(privateKeyHex string) (*ecdsa.PrivateKey, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x")
	if trimmed == "" {
		return nil, utils.NewAppError(utils.ErrCodeInvalidInput, "Private key is required")
	}

	key, err := crypto.HexToECDSA(trimmed)
	if err != nil {
		return nil, utils.WrapError(utils.ErrCodeInvalidInput, "Invalid private key", err)
	}
	return key, nil
}
