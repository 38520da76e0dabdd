package erc20

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/dex-arb-monitor/internal/logger"
)

type mockLogger struct{}

var _ logger.LoggerInterface = (*mockLogger)(nil)

func (m *mockLogger) Debug(ctx context.Context, msg string, args ...any)             {}
func (m *mockLogger) Info(ctx context.Context, msg string, args ...any)              {}
func (m *mockLogger) Warn(ctx context.Context, msg string, args ...any)              {}
func (m *mockLogger) Error(ctx context.Context, msg string, args ...any)             {}
func (m *mockLogger) Debugc(ctx context.Context, caller int, msg string, args ...any) {}
func (m *mockLogger) Infoc(ctx context.Context, caller int, msg string, args ...any)  {}
func (m *mockLogger) Warnc(ctx context.Context, caller int, msg string, args ...any)  {}
func (m *mockLogger) Errorc(ctx context.Context, caller int, msg string, args ...any) {}

type fakeChain struct {
	out   []byte
	err   error
	calls int
}

func (f *fakeChain) BlockNumber(context.Context) (uint64, error) { return 1, nil }

func (f *fakeChain) CallContract(context.Context, common.Address, []byte) ([]byte, error) {
	f.calls++
	return f.out, f.err
}

var weth = common.HexToAddress("0x4200000000000000000000000000000000000006")

func packSymbol(t *testing.T, s string) []byte {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(symbolABI))
	require.NoError(t, err)
	out, err := parsed.Methods["symbol"].Outputs.Pack(s)
	require.NoError(t, err)
	return out
}

func TestSymbolResolver_CachesSuccess(t *testing.T) {
	chain := &fakeChain{out: packSymbol(t, "WETH")}
	r, err := NewSymbolResolver(chain, &mockLogger{})
	require.NoError(t, err)

	assert.Equal(t, "WETH", r.Symbol(context.Background(), weth))
	assert.Equal(t, "WETH", r.Symbol(context.Background(), weth))
	assert.Equal(t, 1, chain.calls)
}

func TestSymbolResolver_FallbackNotCached(t *testing.T) {
	chain := &fakeChain{err: errors.New("execution reverted")}
	r, err := NewSymbolResolver(chain, &mockLogger{})
	require.NoError(t, err)

	assert.Equal(t, "0x4200...", r.Symbol(context.Background(), weth))

	chain.err = nil
	chain.out = packSymbol(t, "WETH")
	assert.Equal(t, "WETH", r.Symbol(context.Background(), weth))
	assert.Equal(t, 2, chain.calls)
}

func TestSymbolResolver_EmptySymbolFallsBack(t *testing.T) {
	chain := &fakeChain{out: packSymbol(t, "  ")}
	r, err := NewSymbolResolver(chain, &mockLogger{})
	require.NoError(t, err)

	assert.Equal(t, Fallback(weth), r.Symbol(context.Background(), weth))
}
