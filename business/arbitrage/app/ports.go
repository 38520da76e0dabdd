// Package app contains application services and port definitions for the arbitrage context.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"

	"github.com/fd1az/dex-arb-monitor/business/arbitrage/domain"
	bcdomain "github.com/fd1az/dex-arb-monitor/business/blockchain/domain"
	pricingDomain "github.com/fd1az/dex-arb-monitor/business/pricing/domain"
)

// QuoteSource prices one pair on both routers.
type QuoteSource interface {
	GetQuote(ctx context.Context, pair pricingDomain.PairConfig) (*pricingDomain.PriceQuote, error)
}

// BlockReader reads the chain head for diagnostics.
type BlockReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
}

// TxSender submits a transaction and awaits its receipt once.
type TxSender interface {
	Send(ctx context.Context, req bcdomain.TxRequest) (common.Hash, error)
	WaitReceipt(ctx context.Context, hash common.Hash) (*bcdomain.Receipt, error)
}

// ArbitrageContract encodes the trade call and decodes its event.
type ArbitrageContract interface {
	Address() common.Address
	PackExecute(path []common.Address, amount *big.Int) ([]byte, error)
	DecodeExecuted(logs []*types.Log) (domain.ArbitrageExecuted, bool)
}

// TradeExecutor runs one trade. Failures are reported in the outcome.
type TradeExecutor interface {
	Execute(ctx context.Context, quote *pricingDomain.PriceQuote, pair pricingDomain.PairConfig) domain.TradeOutcome
}

// ETHPriceSource supplies the ETH/USD rate used to cost gas.
type ETHPriceSource interface {
	ETHUSD(ctx context.Context) (decimal.Decimal, error)
}

// SymbolResolver returns a display symbol for a token.
type SymbolResolver interface {
	Symbol(ctx context.Context, token common.Address) string
}

// LogSink is the append-only operator log.
type LogSink interface {
	Append(ctx context.Context, message string) error
}

// Journal persists every trade outcome for audit.
type Journal interface {
	Record(ctx context.Context, rec domain.TradeRecord) error
}
