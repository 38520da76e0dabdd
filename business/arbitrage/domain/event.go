package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ArbitrageExecuted is emitted by the arbitrage contract after a trade.
type ArbitrageExecuted struct {
	Asset  common.Address
	Amount *big.Int
	Profit *big.Int // raw, scaled by profit_decimals
}
