package domain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// PairConfig is one monitored token pair. It is immutable after startup.
type PairConfig struct {
	Name        string
	Token       common.Address
	BaseToken   common.Address
	InputAmount *big.Int // raw, scaled by Decimals
	Decimals    uint8
	// QuoteDecimals normalises router output; usually equal to Decimals.
	QuoteDecimals uint8
	MinProfitUSD  decimal.Decimal
}

// NewPairConfig builds a pair from a human-readable amount.
func NewPairConfig(name string, token, baseToken common.Address, amount decimal.Decimal, decimals, quoteDecimals uint8, minProfitUSD decimal.Decimal) (PairConfig, error) {
	if !amount.IsPositive() {
		return PairConfig{}, fmt.Errorf("pair %s: amount must be positive", name)
	}
	raw, err := ToRaw(amount, decimals)
	if err != nil {
		return PairConfig{}, fmt.Errorf("pair %s: %w", name, err)
	}
	if quoteDecimals == 0 {
		quoteDecimals = decimals
	}
	return PairConfig{
		Name:          name,
		Token:         token,
		BaseToken:     baseToken,
		InputAmount:   raw,
		Decimals:      decimals,
		QuoteDecimals: quoteDecimals,
		MinProfitUSD:  minProfitUSD,
	}, nil
}

// Path is the two-hop swap path [Token, BaseToken].
func (p PairConfig) Path() []common.Address {
	return []common.Address{p.Token, p.BaseToken}
}

// DecimalAmount is InputAmount in whole tokens.
func (p PairConfig) DecimalAmount() decimal.Decimal {
	return ToDecimal(p.InputAmount, p.Decimals)
}

func (p PairConfig) String() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Token.Hex() + "/" + p.BaseToken.Hex()
}
