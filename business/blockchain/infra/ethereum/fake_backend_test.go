package ethereum

import (
	"context"
	"math/big"
	"sync"

	goeth "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

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

type fakeBackend struct {
	mu sync.Mutex

	block       uint64
	blockErr    error
	chainID     *big.Int
	callOut     []byte
	callErr     error
	lastCall    goeth.CallMsg
	gasPrice    *big.Int
	gasPriceErr error
	gasCalls    int
	nonce       uint64
	estimate    uint64
	estimateErr error
	sendErr     error
	sent        []*types.Transaction

	// receipts are handed out in order; NotFound once exhausted.
	receipts     []*types.Receipt
	receiptErr   error
	receiptCalls int
}

var _ Backend = (*fakeBackend)(nil)

func (f *fakeBackend) BlockNumber(context.Context) (uint64, error) {
	return f.block, f.blockErr
}

func (f *fakeBackend) ChainID(context.Context) (*big.Int, error) {
	return f.chainID, nil
}

func (f *fakeBackend) CallContract(_ context.Context, msg goeth.CallMsg, _ *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastCall = msg
	return f.callOut, f.callErr
}

func (f *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gasCalls++
	if f.gasPriceErr != nil {
		return nil, f.gasPriceErr
	}
	return new(big.Int).Set(f.gasPrice), nil
}

func (f *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return f.nonce, nil
}

func (f *fakeBackend) EstimateGas(context.Context, goeth.CallMsg) (uint64, error) {
	return f.estimate, f.estimateErr
}

func (f *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, tx)
	return nil
}

func (f *fakeBackend) TransactionReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receiptCalls++
	if f.receiptErr != nil {
		return nil, f.receiptErr
	}
	if len(f.receipts) == 0 {
		return nil, goeth.NotFound
	}
	r := f.receipts[0]
	f.receipts = f.receipts[1:]
	if r == nil {
		return nil, goeth.NotFound
	}
	return r, nil
}
