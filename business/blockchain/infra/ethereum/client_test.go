package ethereum

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/dex-arb-monitor/business/blockchain/domain"
	"github.com/fd1az/dex-arb-monitor/internal/apperror"
	"github.com/fd1az/dex-arb-monitor/internal/ratelimit"
)

const testKey = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"

func newTestClient(t *testing.T, backend *fakeBackend, cfg ClientConfig) *Client {
	t.Helper()
	if cfg.ConfirmationTimeout == 0 {
		cfg.ConfirmationTimeout = time.Second
	}
	if cfg.ReceiptPollInterval == 0 {
		cfg.ReceiptPollInterval = 5 * time.Millisecond
	}
	c, err := NewClient(backend, cfg, ratelimit.New(0, 0), &mockLogger{})
	require.NoError(t, err)
	return c
}

func TestParsePrivateKey(t *testing.T) {
	k1, err := ParsePrivateKey(testKey)
	require.NoError(t, err)
	k2, err := ParsePrivateKey("0x" + testKey)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(k1.PublicKey), crypto.PubkeyToAddress(k2.PublicKey))

	_, err = ParsePrivateKey("not-hex")
	assert.Equal(t, apperror.CodeInvalidPrivateKey, apperror.GetCode(err))
}

func TestClient_CallContract(t *testing.T) {
	backend := &fakeBackend{callOut: []byte{0xaa}}
	c := newTestClient(t, backend, ClientConfig{ChainID: 8453})
	to := common.HexToAddress("0x2626664c2603336E57B271c5C0b26F421741e481")

	out, err := c.CallContract(context.Background(), to, []byte{0x01, 0x02})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xaa}, out)
	require.NotNil(t, backend.lastCall.To)
	assert.Equal(t, to, *backend.lastCall.To)
	assert.Equal(t, []byte{0x01, 0x02}, backend.lastCall.Data)
}

func TestClient_CallContractError(t *testing.T) {
	backend := &fakeBackend{callErr: errors.New("execution reverted")}
	c := newTestClient(t, backend, ClientConfig{ChainID: 8453})

	_, err := c.CallContract(context.Background(), common.Address{}, nil)
	require.Error(t, err)
	assert.Equal(t, apperror.CodeEthereumRPCError, apperror.GetCode(err))
}

func TestClient_ConnectResolvesChainID(t *testing.T) {
	backend := &fakeBackend{chainID: big.NewInt(84532)}
	c := newTestClient(t, backend, ClientConfig{})

	assert.Nil(t, c.ChainID())
	require.NoError(t, c.Connect(context.Background()))
	assert.Equal(t, int64(84532), c.ChainID().Int64())
}

func TestClient_SendWithoutKey(t *testing.T) {
	c := newTestClient(t, &fakeBackend{}, ClientConfig{ChainID: 8453})

	_, ok := c.Sender()
	assert.False(t, ok)

	_, err := c.Send(context.Background(), domain.TxRequest{GasPrice: big.NewInt(1)})
	assert.Equal(t, apperror.CodeSignerUnavailable, apperror.GetCode(err))
}

func TestClient_SendSignsLegacyTx(t *testing.T) {
	backend := &fakeBackend{nonce: 7, estimate: 100_000}
	c := newTestClient(t, backend, ClientConfig{ChainID: 8453, PrivateKeyHex: testKey, DefaultGasLimit: 500_000})

	to := common.HexToAddress("0x1111111111111111111111111111111111111111")
	hash, err := c.Send(context.Background(), domain.TxRequest{
		To:       to,
		Data:     []byte{0xde, 0xad},
		GasPrice: big.NewInt(15_000_000),
	})
	require.NoError(t, err)
	require.Len(t, backend.sent, 1)

	tx := backend.sent[0]
	assert.Equal(t, hash, tx.Hash())
	assert.Equal(t, uint8(types.LegacyTxType), tx.Type())
	assert.Equal(t, uint64(7), tx.Nonce())
	assert.Equal(t, uint64(110_000), tx.Gas(), "estimate plus 10%")
	assert.Equal(t, int64(15_000_000), tx.GasPrice().Int64())
	assert.Equal(t, to, *tx.To())

	from, err := types.Sender(types.LatestSignerForChainID(big.NewInt(8453)), tx)
	require.NoError(t, err)
	want, _ := c.Sender()
	assert.Equal(t, want, from)
}

func TestClient_SendFallsBackToDefaultGas(t *testing.T) {
	backend := &fakeBackend{estimateErr: errors.New("execution reverted")}
	c := newTestClient(t, backend, ClientConfig{ChainID: 8453, PrivateKeyHex: testKey, DefaultGasLimit: 500_000})

	_, err := c.Send(context.Background(), domain.TxRequest{GasPrice: big.NewInt(1)})
	require.NoError(t, err)
	assert.Equal(t, uint64(500_000), backend.sent[0].Gas())
}

func TestClient_SendBroadcastFailure(t *testing.T) {
	backend := &fakeBackend{estimate: 1, sendErr: errors.New("nonce too low")}
	c := newTestClient(t, backend, ClientConfig{ChainID: 8453, PrivateKeyHex: testKey})

	_, err := c.Send(context.Background(), domain.TxRequest{GasPrice: big.NewInt(1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nonce too low")
}

func TestClient_WaitReceiptPollsUntilMined(t *testing.T) {
	mined := &types.Receipt{Status: types.ReceiptStatusSuccessful, GasUsed: 150_000, BlockNumber: big.NewInt(99)}
	backend := &fakeBackend{receipts: []*types.Receipt{nil, nil, mined}}
	c := newTestClient(t, backend, ClientConfig{ChainID: 8453})

	r, err := c.WaitReceipt(context.Background(), common.HexToHash("0x01"))
	require.NoError(t, err)
	assert.True(t, r.Succeeded)
	assert.Equal(t, uint64(150_000), r.GasUsed)
	assert.Equal(t, 3, backend.receiptCalls)
}

func TestClient_WaitReceiptTimeout(t *testing.T) {
	backend := &fakeBackend{}
	c := newTestClient(t, backend, ClientConfig{ChainID: 8453, ConfirmationTimeout: 30 * time.Millisecond})

	_, err := c.WaitReceipt(context.Background(), common.HexToHash("0x02"))
	assert.Equal(t, apperror.CodeReceiptTimeout, apperror.GetCode(err))
	assert.Empty(t, backend.sent, "waiting must never resubmit")
}

func TestClient_WaitReceiptRPCError(t *testing.T) {
	backend := &fakeBackend{receiptErr: errors.New("connection refused")}
	c := newTestClient(t, backend, ClientConfig{ChainID: 8453})

	_, err := c.WaitReceipt(context.Background(), common.HexToHash("0x03"))
	assert.Equal(t, apperror.CodeEthereumRPCError, apperror.GetCode(err))
}

func TestClient_BreakerOpensOnRepeatedFailures(t *testing.T) {
	backend := &fakeBackend{blockErr: errors.New("503")}
	c := newTestClient(t, backend, ClientConfig{ChainID: 8453})

	for i := 0; i < 5; i++ {
		_, err := c.BlockNumber(context.Background())
		require.Error(t, err)
	}

	_, err := c.BlockNumber(context.Background())
	assert.True(t, apperror.HasCode(err, apperror.CodeCircuitOpen), "got %v", err)
}

// codedError is a JSON-RPC error carrying a numeric code.
type codedError struct {
	code int
	msg  string
}

func (e codedError) Error() string  { return e.msg }
func (e codedError) ErrorCode() int { return e.code }

func TestClient_RevertsDoNotTripBreaker(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "revert message", err: errors.New("execution reverted")},
		{name: "revert code", err: codedError{code: 3, msg: "UniswapV2Library: INSUFFICIENT_LIQUIDITY"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{block: 42, callErr: tt.err}
			c := newTestClient(t, backend, ClientConfig{ChainID: 8453})

			for i := 0; i < 10; i++ {
				_, err := c.CallContract(context.Background(), common.Address{}, nil)
				require.Error(t, err)
				require.False(t, apperror.HasCode(err, apperror.CodeCircuitOpen), "call %d: %v", i, err)
			}

			n, err := c.BlockNumber(context.Background())
			require.NoError(t, err)
			assert.Equal(t, uint64(42), n)

			backend.mu.Lock()
			backend.callErr = nil
			backend.callOut = []byte{0x01}
			backend.mu.Unlock()

			out, err := c.CallContract(context.Background(), common.Address{}, nil)
			require.NoError(t, err)
			assert.Equal(t, []byte{0x01}, out)
		})
	}
}

func TestClient_CallFailuresDoNotBlockHeadReads(t *testing.T) {
	backend := &fakeBackend{block: 7, callErr: errors.New("502 bad gateway")}
	c := newTestClient(t, backend, ClientConfig{ChainID: 8453})

	for i := 0; i < 5; i++ {
		_, err := c.CallContract(context.Background(), common.Address{}, nil)
		require.Error(t, err)
	}

	_, err := c.CallContract(context.Background(), common.Address{}, nil)
	assert.True(t, apperror.HasCode(err, apperror.CodeCircuitOpen), "got %v", err)

	n, err := c.BlockNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(7), n)
}

func TestCallHealthy(t *testing.T) {
	assert.True(t, callHealthy(nil))
	assert.True(t, callHealthy(context.Canceled))
	assert.True(t, callHealthy(errors.New("execution reverted: K")))
	assert.True(t, callHealthy(codedError{code: 3, msg: "reverted"}))
	assert.False(t, callHealthy(codedError{code: -32005, msg: "limit exceeded"}))
	assert.False(t, callHealthy(context.DeadlineExceeded))
	assert.False(t, callHealthy(errors.New("connection refused")))
}

func TestWithMargin(t *testing.T) {
	assert.Equal(t, uint64(220_000), withMargin(200_000))
	assert.Equal(t, uint64(0), withMargin(0))
}
