// Package app contains application services and port definitions for the pricing context.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	bcdomain "github.com/fd1az/dex-arb-monitor/business/blockchain/domain"
	"github.com/fd1az/dex-arb-monitor/business/pricing/domain"
)

// AmountsQuoter is a V2-style router answering getAmountsOut.
type AmountsQuoter interface {
	Venue() domain.Venue
	// AmountsOut returns one amount per hop of path.
	AmountsOut(ctx context.Context, amountIn *big.Int, path []common.Address) ([]*big.Int, error)
}

// GasPriceReader reports the current network gas price.
type GasPriceReader interface {
	GasPrice(ctx context.Context) (*bcdomain.GasPrice, error)
}

// ETHPriceSource supplies the ETH/USD rate used to cost gas.
type ETHPriceSource interface {
	ETHUSD(ctx context.Context) (decimal.Decimal, error)
}

// SymbolResolver returns a display symbol for a token. It never fails.
type SymbolResolver interface {
	Symbol(ctx context.Context, token common.Address) string
}
