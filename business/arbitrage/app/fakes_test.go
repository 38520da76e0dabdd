package app

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/dex-arb-monitor/business/arbitrage/domain"
	bcdomain "github.com/fd1az/dex-arb-monitor/business/blockchain/domain"
	pricingDomain "github.com/fd1az/dex-arb-monitor/business/pricing/domain"
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

var (
	weth         = common.HexToAddress("0x4200000000000000000000000000000000000006")
	usdc         = common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
	cbeth        = common.HexToAddress("0x2Ae3F1Ec7F1F5012CFEab0185bfc7aa3cf0DEc22")
	dai          = common.HexToAddress("0x50c5725949A6F0c72E6C4a641F24049A917DB0Cb")
	usdbc        = common.HexToAddress("0xd9aAEc86B65D86f6A7B5B1b0c42FFA531710b6CA")
	contractAddr = common.HexToAddress("0x1111111111111111111111111111111111111111")
	txHash       = common.HexToHash("0xabc0000000000000000000000000000000000000000000000000000000000001")
)

func newPair(t *testing.T, name string, token, base common.Address, amount, minProfit string) pricingDomain.PairConfig {
	t.Helper()
	pair, err := pricingDomain.NewPairConfig(name, token, base,
		decimal.RequireFromString(amount), 18, 18, decimal.RequireFromString(minProfit))
	require.NoError(t, err)
	return pair
}

func newQuote(pair pricingDomain.PairConfig, uni, sushi string) *pricingDomain.PriceQuote {
	return &pricingDomain.PriceQuote{
		UniPrice:     decimal.RequireFromString(uni),
		SushiPrice:   decimal.RequireFromString(sushi),
		RawAmount:    new(big.Int).Set(pair.InputAmount),
		Path:         pair.Path(),
		GasPriceGwei: decimal.RequireFromString("0.01"),
		GasPriceWei:  big.NewInt(10_000_000),
	}
}

// fakeQuotes answers per pair name; each call pops the next response.
type fakeQuotes struct {
	mu        sync.Mutex
	responses map[string][]quoteResponse
	calls     []string
}

type quoteResponse struct {
	quote *pricingDomain.PriceQuote
	err   error
	panic bool
}

func newFakeQuotes() *fakeQuotes {
	return &fakeQuotes{responses: make(map[string][]quoteResponse)}
}

func (f *fakeQuotes) add(pair string, r ...quoteResponse) {
	f.responses[pair] = append(f.responses[pair], r...)
}

func (f *fakeQuotes) GetQuote(_ context.Context, pair pricingDomain.PairConfig) (*pricingDomain.PriceQuote, error) {
	f.mu.Lock()
	f.calls = append(f.calls, pair.Name)
	rs := f.responses[pair.Name]
	if len(rs) == 0 {
		f.mu.Unlock()
		return nil, errors.New("no quote configured")
	}
	r := rs[0]
	if len(rs) > 1 {
		f.responses[pair.Name] = rs[1:]
	}
	f.mu.Unlock()

	if r.panic {
		panic("router exploded")
	}
	return r.quote, r.err
}

type fakeChain struct {
	block uint64
	err   error
	calls int
}

func (f *fakeChain) BlockNumber(context.Context) (uint64, error) {
	f.calls++
	return f.block, f.err
}

type fakeExecutor struct {
	outcomes []domain.TradeOutcome
	calls    int
	quotes   []*pricingDomain.PriceQuote
}

func (f *fakeExecutor) Execute(_ context.Context, q *pricingDomain.PriceQuote, _ pricingDomain.PairConfig) domain.TradeOutcome {
	f.quotes = append(f.quotes, q)
	out := domain.TradeOutcome{Succeeded: true, ActualProfitUSD: decimal.NewFromInt(1)}
	if len(f.outcomes) > 0 {
		out = f.outcomes[f.calls%len(f.outcomes)]
	}
	f.calls++
	return out
}

type staticETH struct {
	usd decimal.Decimal
	err error
}

func (s staticETH) ETHUSD(context.Context) (decimal.Decimal, error) { return s.usd, s.err }

type fakeSymbols struct{}

func (fakeSymbols) Symbol(_ context.Context, token common.Address) string {
	switch token {
	case weth:
		return "WETH"
	case usdc:
		return "USDC"
	}
	return token.Hex()[:6] + "..."
}

type fakeSink struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (f *fakeSink) Append(_ context.Context, msg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msg)
	return f.err
}

func (f *fakeSink) all() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.messages...)
}

type fakeJournal struct {
	records []domain.TradeRecord
	ctxErrs []error
}

func (f *fakeJournal) Record(ctx context.Context, rec domain.TradeRecord) error {
	f.records = append(f.records, rec)
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	return nil
}

type fakeContract struct {
	event   domain.ArbitrageExecuted
	hasEvt  bool
	packErr error
}

func (f *fakeContract) Address() common.Address { return contractAddr }

func (f *fakeContract) PackExecute(path []common.Address, amount *big.Int) ([]byte, error) {
	if f.packErr != nil {
		return nil, f.packErr
	}
	return []byte{0xde, 0xad, 0xbe, 0xef}, nil
}

func (f *fakeContract) DecodeExecuted([]*types.Log) (domain.ArbitrageExecuted, bool) {
	return f.event, f.hasEvt
}

type fakeSender struct {
	sendErr   error
	receipt   *bcdomain.Receipt
	waitErr   error
	sent      []bcdomain.TxRequest
	waitCalls int
	// onWait runs while the receipt is pending.
	onWait func()
}

func (f *fakeSender) Send(_ context.Context, req bcdomain.TxRequest) (common.Hash, error) {
	if f.sendErr != nil {
		return common.Hash{}, f.sendErr
	}
	f.sent = append(f.sent, req)
	return txHash, nil
}

func (f *fakeSender) WaitReceipt(ctx context.Context, hash common.Hash) (*bcdomain.Receipt, error) {
	f.waitCalls++
	if f.onWait != nil {
		f.onWait()
	}
	if err := ctx.Err(); err != nil {
		return nil, apperror.New(apperror.CodeReceiptTimeout, apperror.WithCause(err), apperror.WithContext(hash.Hex()))
	}
	return f.receipt, f.waitErr
}
