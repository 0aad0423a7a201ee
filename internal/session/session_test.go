package session

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartdevs17/hackathon-platform/pkg/utils"
)

// Well-known development key; never holds real funds
const testKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

type staticChain struct {
	id  *big.Int
	err error
}

func (c staticChain) ChainID(ctx context.Context) (*big.Int, error) {
	return c.id, c.err
}

func TestConnectDerivesAccount(t *testing.T) {
	m := NewManager(staticChain{id: big.NewInt(11155111)})

	sess, err := m.Connect(context.Background(), "0x"+testKey)
	require.NoError(t, err)

	key, err := crypto.HexToECDSA(testKey)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), sess.Account())
	assert.Equal(t, int64(11155111), sess.ChainID().Int64())
	assert.True(t, sess.Connected())
	assert.Same(t, sess, m.Current())
}

func TestTransactOptsSignsForChain(t *testing.T) {
	m := NewManager(staticChain{id: big.NewInt(31337)})
	sess, err := m.Connect(context.Background(), testKey)
	require.NoError(t, err)

	value := big.NewInt(1000)
	opts, err := sess.TransactOpts(context.Background(), value)
	require.NoError(t, err)
	assert.Equal(t, sess.Account(), opts.From)
	assert.Equal(t, int64(1000), opts.Value.Int64())

	// The options carry a copy of the value
	value.SetInt64(1)
	assert.Equal(t, int64(1000), opts.Value.Int64())

	tx := types.NewTx(&types.LegacyTx{Nonce: 0, Gas: 21000, GasPrice: big.NewInt(1)})
	signed, err := opts.Signer(opts.From, tx)
	require.NoError(t, err)

	sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(31337)), signed)
	require.NoError(t, err)
	assert.Equal(t, sess.Account(), sender)
}

func TestDisconnect(t *testing.T) {
	m := NewManager(staticChain{id: big.NewInt(1)})
	sess, err := m.Connect(context.Background(), testKey)
	require.NoError(t, err)

	m.Disconnect()
	assert.Nil(t, m.Current())
	assert.False(t, sess.Connected())

	_, err = sess.TransactOpts(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrNotConnected))

	// Disconnecting twice is harmless
	m.Disconnect()
}

func TestReconnectClosesPreviousSession(t *testing.T) {
	m := NewManager(staticChain{id: big.NewInt(1)})
	first, err := m.Connect(context.Background(), testKey)
	require.NoError(t, err)
	second, err := m.Connect(context.Background(), testKey)
	require.NoError(t, err)

	assert.False(t, first.Connected())
	assert.True(t, second.Connected())
}

func TestNilSessionIsNotConnected(t *testing.T) {
	var sess *Session
	assert.False(t, sess.Connected())

	_, err := sess.TransactOpts(context.Background(), nil)
	assert.True(t, errors.Is(err, utils.ErrNotConnected))
}

func TestConnectErrors(t *testing.T) {
	m := NewManager(staticChain{id: big.NewInt(1)})

	for _, key := range []string{"", "0x", "not-hex", "abcd"} {
		_, err := m.Connect(context.Background(), key)
		require.Error(t, err, key)
		assert.True(t, errors.Is(err, utils.ErrInvalidInput), key)
	}

	down := NewManager(staticChain{err: errors.New("connection refused")})
	_, err := down.Connect(context.Background(), testKey)
	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrUpstreamUnavailable))
	assert.Nil(t, down.Current())
}
