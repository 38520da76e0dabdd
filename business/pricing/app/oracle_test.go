package app

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bcdomain "github.com/fd1az/dex-arb-monitor/business/blockchain/domain"
	"github.com/fd1az/dex-arb-monitor/business/pricing/domain"
	"github.com/fd1az/dex-arb-monitor/internal/apperror"
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

type fakeRouter struct {
	venue    domain.Venue
	amounts  []*big.Int
	err      error
	gotIn    *big.Int
	gotPath  []common.Address
	numCalls int
}

func (f *fakeRouter) Venue() domain.Venue { return f.venue }

func (f *fakeRouter) AmountsOut(_ context.Context, in *big.Int, path []common.Address) ([]*big.Int, error) {
	f.numCalls++
	f.gotIn = in
	f.gotPath = path
	return f.amounts, f.err
}

type fakeGas struct {
	wei *big.Int
	err error
}

func (f *fakeGas) GasPrice(context.Context) (*bcdomain.GasPrice, error) {
	if f.err != nil {
		return nil, f.err
	}
	return bcdomain.NewGasPrice(f.wei), nil
}

var (
	weth = common.HexToAddress("0x4200000000000000000000000000000000000006")
	usdc = common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
)

func eth(s string) *big.Int {
	raw, err := domain.ToRaw(decimal.RequireFromString(s), 18)
	if err != nil {
		panic(err)
	}
	return raw
}

func wethUSDC(t *testing.T) domain.PairConfig {
	t.Helper()
	p, err := domain.NewPairConfig("WETH/USDC", weth, usdc, decimal.RequireFromString("0.1"), 18, 0, decimal.NewFromInt(5))
	require.NoError(t, err)
	return p
}

func TestOracle_GetQuote(t *testing.T) {
	pair := wethUSDC(t)
	uni := &fakeRouter{venue: domain.VenueUni, amounts: []*big.Int{pair.InputAmount, eth("3000")}}
	sushi := &fakeRouter{venue: domain.VenueSushi, amounts: []*big.Int{pair.InputAmount, eth("3030")}}
	gas := &fakeGas{wei: big.NewInt(15_000_000)}

	o := NewOracle(uni, sushi, gas, &mockLogger{})
	q, err := o.GetQuote(context.Background(), pair)
	require.NoError(t, err)

	assert.True(t, q.UniPrice.Equal(decimal.NewFromInt(3000)), "uni = %s", q.UniPrice)
	assert.True(t, q.SushiPrice.Equal(decimal.NewFromInt(3030)), "sushi = %s", q.SushiPrice)
	assert.Equal(t, "0.015", q.GasPriceGwei.String())
	assert.Equal(t, int64(15_000_000), q.GasPriceWei.Int64())
	assert.Equal(t, pair.InputAmount.String(), q.RawAmount.String())
	assert.Equal(t, []common.Address{weth, usdc}, q.Path)
	assert.False(t, q.FetchedAt.IsZero())

	// Both routers see identical inputs.
	assert.Equal(t, uni.gotIn, sushi.gotIn)
	assert.Equal(t, uni.gotPath, sushi.gotPath)
}

func TestOracle_NormalisesWithQuoteDecimals(t *testing.T) {
	pair := wethUSDC(t)
	pair.QuoteDecimals = 6

	uni := &fakeRouter{venue: domain.VenueUni, amounts: []*big.Int{pair.InputAmount, big.NewInt(300_000_000)}}
	sushi := &fakeRouter{venue: domain.VenueSushi, amounts: []*big.Int{pair.InputAmount, big.NewInt(303_000_000)}}

	o := NewOracle(uni, sushi, &fakeGas{wei: big.NewInt(1)}, &mockLogger{})
	q, err := o.GetQuote(context.Background(), pair)
	require.NoError(t, err)

	assert.True(t, q.UniPrice.Equal(decimal.NewFromInt(300)))
	assert.True(t, q.SushiPrice.Equal(decimal.NewFromInt(303)))
}

func TestOracle_Failures(t *testing.T) {
	rpcErr := errors.New("execution reverted")

	tests := []struct {
		name       string
		uni        *fakeRouter
		sushi      *fakeRouter
		gas        *fakeGas
		wantSource domain.Venue
	}{
		{
			name:       "uni_reverts",
			uni:        &fakeRouter{venue: domain.VenueUni, err: rpcErr},
			sushi:      &fakeRouter{venue: domain.VenueSushi, amounts: []*big.Int{big.NewInt(1), big.NewInt(2)}},
			gas:        &fakeGas{wei: big.NewInt(1)},
			wantSource: domain.VenueUni,
		},
		{
			name:       "sushi_short_result",
			uni:        &fakeRouter{venue: domain.VenueUni, amounts: []*big.Int{big.NewInt(1), big.NewInt(2)}},
			sushi:      &fakeRouter{venue: domain.VenueSushi, amounts: []*big.Int{big.NewInt(1)}},
			gas:        &fakeGas{wei: big.NewInt(1)},
			wantSource: domain.VenueSushi,
		},
		{
			name:       "sushi_empty_result",
			uni:        &fakeRouter{venue: domain.VenueUni, amounts: []*big.Int{big.NewInt(1), big.NewInt(2)}},
			sushi:      &fakeRouter{venue: domain.VenueSushi, amounts: nil},
			gas:        &fakeGas{wei: big.NewInt(1)},
			wantSource: domain.VenueSushi,
		},
		{
			name:       "gas_price_unavailable",
			uni:        &fakeRouter{venue: domain.VenueUni, amounts: []*big.Int{big.NewInt(1), big.NewInt(2)}},
			sushi:      &fakeRouter{venue: domain.VenueSushi, amounts: []*big.Int{big.NewInt(1), big.NewInt(2)}},
			gas:        &fakeGas{err: rpcErr},
			wantSource: domain.VenueGas,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOracle(tt.uni, tt.sushi, tt.gas, &mockLogger{})
			q, err := o.GetQuote(context.Background(), wethUSDC(t))

			require.Error(t, err)
			assert.Nil(t, q)
			assert.Equal(t, apperror.CodeQuoteFailed, apperror.GetCode(err))

			var qf *domain.QuoteFailure
			require.ErrorAs(t, err, &qf)
			assert.Equal(t, tt.wantSource, qf.Source)
			assert.Equal(t, "WETH/USDC", qf.Pair)
		})
	}
}

func TestOracle_UniFailureSkipsSushi(t *testing.T) {
	uni := &fakeRouter{venue: domain.VenueUni, err: errors.New("timeout")}
	sushi := &fakeRouter{venue: domain.VenueSushi}

	o := NewOracle(uni, sushi, &fakeGas{wei: big.NewInt(1)}, &mockLogger{})
	_, err := o.GetQuote(context.Background(), wethUSDC(t))

	require.Error(t, err)
	assert.Equal(t, 0, sushi.numCalls)
}
