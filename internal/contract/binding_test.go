package contract

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartdevs17/hackathon-platform/pkg/utils"
)

var testAddress = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")

// fakeLedger answers eth_call by packing canned outputs for each method
type fakeLedger struct {
	abi     abi.ABI
	outputs map[string][]interface{}
	callErr error
	calls   []string

	sent    []*types.Transaction
	sendErr error
}

func newFakeLedger(t *testing.T) *fakeLedger {
	parsed, err := ParseABI()
	require.NoError(t, err)
	return &fakeLedger{abi: parsed, outputs: map[string][]interface{}{}}
}

func (f *fakeLedger) CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error) {
	return []byte{0x60, 0x80}, nil
}

func (f *fakeLedger) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if f.callErr != nil {
		return nil, f.callErr
	}
	method, err := f.abi.MethodById(call.Data[:4])
	if err != nil {
		return nil, err
	}
	f.calls = append(f.calls, method.Name)

	values, ok := f.outputs[method.Name]
	if !ok {
		return nil, fmt.Errorf("no canned output for %s", method.Name)
	}
	return method.Outputs.Pack(values...)
}

func (f *fakeLedger) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(1), BaseFee: big.NewInt(1)}, nil
}

func (f *fakeLedger) PendingCodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	return []byte{0x60, 0x80}, nil
}

func (f *fakeLedger) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return 0, nil
}

func (f *fakeLedger) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1), nil
}

func (f *fakeLedger) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1), nil
}

func (f *fakeLedger) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	return 100000, nil
}

func (f *fakeLedger) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, tx)
	return nil
}

func newTestBinding(t *testing.T, ledger *fakeLedger) *Binding {
	require.NoError(t, utils.InitLogger("error", "text", "stderr", ""))
	b, err := NewBinding(testAddress, ledger, ledger)
	require.NoError(t, err)
	return b
}

func sampleHackathon(id int64) HackathonTuple {
	return HackathonTuple{
		Id:          big.NewInt(id),
		Title:       fmt.Sprintf("Hackathon %d", id),
		Description: "Ship something",
		Organizer:   common.HexToAddress("0x00000000000000000000000000000000000000aa"),
		PrizePool:   big.NewInt(1_000_000_000_000_000_000),
		Deadline:    big.NewInt(1700000000),
		IsActive:    true,
		TotalVotes:  big.NewInt(id * 2),
	}
}

func hackathonValues(h HackathonTuple) []interface{} {
	return []interface{}{h.Id, h.Title, h.Description, h.Organizer, h.PrizePool, h.Deadline, h.IsActive, h.TotalVotes}
}

func TestBindingGetAllHackathons(t *testing.T) {
	ledger := newFakeLedger(t)
	ledger.outputs[MethodGetAllHackathons] = []interface{}{[]HackathonTuple{sampleHackathon(0), sampleHackathon(1)}}
	b := newTestBinding(t, ledger)

	list, err := b.GetAllHackathons(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Hackathon 1", list[1].Title)
	assert.Equal(t, int64(2), list[1].TotalVotes.Int64())
	assert.Equal(t, sampleHackathon(0).Organizer, list[0].Organizer)
	assert.Equal(t, []string{MethodGetAllHackathons}, ledger.calls)
}

func TestBindingGetAllHackathonsEmpty(t *testing.T) {
	ledger := newFakeLedger(t)
	ledger.outputs[MethodGetAllHackathons] = []interface{}{[]HackathonTuple{}}
	b := newTestBinding(t, ledger)

	list, err := b.GetAllHackathons(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestBindingHackathon(t *testing.T) {
	ledger := newFakeLedger(t)
	ledger.outputs[MethodHackathons] = hackathonValues(sampleHackathon(4))
	b := newTestBinding(t, ledger)

	h, err := b.Hackathon(context.Background(), big.NewInt(4))
	require.NoError(t, err)
	assert.Equal(t, int64(4), h.Id.Int64())
	assert.Equal(t, "Ship something", h.Description)
	assert.True(t, h.IsActive)
}

func TestBindingProjectsAndWinner(t *testing.T) {
	ledger := newFakeLedger(t)
	lead := common.HexToAddress("0x1234567890abcdef1234567890abcdef12345678")
	ledger.outputs[MethodGetHackathonProjects] = []interface{}{[]*big.Int{big.NewInt(1), big.NewInt(2)}}
	ledger.outputs[MethodProjects] = []interface{}{
		big.NewInt(2), big.NewInt(4), "Relay", "Cross-chain relay",
		"https://github.com/example/relay", "", lead, big.NewInt(7), true,
	}
	ledger.outputs[MethodGetWinner] = []interface{}{big.NewInt(2), big.NewInt(7)}
	b := newTestBinding(t, ledger)
	ctx := context.Background()

	ids, err := b.HackathonProjects(ctx, big.NewInt(4))
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, int64(2), ids[1].Int64())

	p, err := b.Project(ctx, big.NewInt(2))
	require.NoError(t, err)
	assert.Equal(t, "Relay", p.Title)
	assert.Equal(t, lead, p.TeamLead)
	assert.True(t, p.Exists)
	assert.Equal(t, int64(7), p.Votes.Int64())

	w, err := b.Winner(ctx, big.NewInt(4))
	require.NoError(t, err)
	assert.Equal(t, int64(2), w.ProjectId.Int64())
	assert.Equal(t, int64(7), w.Votes.Int64())
}

func TestBindingCallErrors(t *testing.T) {
	ledger := newFakeLedger(t)
	b := newTestBinding(t, ledger)

	ledger.callErr = errors.New("connection refused")
	_, err := b.GetAllHackathons(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrUpstreamUnavailable))

	ledger.callErr = context.DeadlineExceeded
	_, err = b.Hackathon(context.Background(), big.NewInt(1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrUpstreamTimeout))
}

func TestDecodeHackathonRejectsMalformedTuples(t *testing.T) {
	good := hackathonValues(sampleHackathon(1))

	_, err := DecodeHackathon(good)
	require.NoError(t, err)

	_, err = DecodeHackathon(good[:7])
	assert.True(t, errors.Is(err, utils.ErrMalformedTuple))

	wrongType := append([]interface{}{}, good...)
	wrongType[1] = 42
	_, err = DecodeHackathon(wrongType)
	assert.True(t, errors.Is(err, utils.ErrMalformedTuple))
	assert.Contains(t, err.Error(), "title")

	nilInt := append([]interface{}{}, good...)
	nilInt[4] = (*big.Int)(nil)
	_, err = DecodeHackathon(nilInt)
	assert.True(t, errors.Is(err, utils.ErrMalformedTuple))
}

func TestDecodeOtherTuples(t *testing.T) {
	_, err := DecodeProject([]interface{}{big.NewInt(1)})
	assert.True(t, errors.Is(err, utils.ErrMalformedTuple))

	_, err = DecodeWinner([]interface{}{big.NewInt(1), "seven"})
	assert.True(t, errors.Is(err, utils.ErrMalformedTuple))

	_, err = DecodeIDList([]interface{}{[]string{"1"}})
	assert.True(t, errors.Is(err, utils.ErrMalformedTuple))

	_, err = DecodeHackathonList([]interface{}{"not a list"})
	assert.True(t, errors.Is(err, utils.ErrMalformedTuple))
}

func newTransactOpts(t *testing.T) *bind.TransactOpts {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	opts, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(31))
	require.NoError(t, err)
	opts.Context = context.Background()
	opts.GasLimit = 500000
	opts.GasPrice = big.NewInt(60000000)
	opts.Nonce = big.NewInt(3)
	return opts
}

func TestBindingCreateHackathon(t *testing.T) {
	ledger := newFakeLedger(t)
	b := newTestBinding(t, ledger)

	opts := newTransactOpts(t)
	opts.Value = big.NewInt(100_000_000_000_000_000)

	tx, err := b.CreateHackathon(opts, "DeFi Sprint", "Build lending tools", big.NewInt(7))
	require.NoError(t, err)
	require.Len(t, ledger.sent, 1)
	assert.Equal(t, tx.Hash(), ledger.sent[0].Hash())
	assert.Equal(t, testAddress, *tx.To())
	assert.Equal(t, opts.Value, tx.Value())
	assert.Equal(t, uint64(3), tx.Nonce())

	method := b.abi.Methods[MethodCreateHackathon]
	assert.Equal(t, method.ID, tx.Data()[:4])
	args, err := method.Inputs.Unpack(tx.Data()[4:])
	require.NoError(t, err)
	assert.Equal(t, "DeFi Sprint", args[0])
	assert.Equal(t, "Build lending tools", args[1])
	assert.Equal(t, int64(7), args[2].(*big.Int).Int64())
}

func TestBindingVoteAndSubmit(t *testing.T) {
	ledger := newFakeLedger(t)
	b := newTestBinding(t, ledger)

	_, err := b.SubmitProject(newTransactOpts(t), big.NewInt(1), "Relay", "desc", "https://repo", "")
	require.NoError(t, err)
	_, err = b.VoteForProject(newTransactOpts(t), big.NewInt(2))
	require.NoError(t, err)
	require.Len(t, ledger.sent, 2)

	vote := b.abi.Methods[MethodVoteForProject]
	assert.Equal(t, vote.ID, ledger.sent[1].Data()[:4])
}

func TestBindingTransactionFailure(t *testing.T) {
	ledger := newFakeLedger(t)
	ledger.sendErr = errors.New("insufficient funds for gas * price + value")
	b := newTestBinding(t, ledger)

	_, err := b.ClaimPrize(newTransactOpts(t), big.NewInt(1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrTransactionFailed))
	assert.Contains(t, err.Error(), "insufficient funds")
}
