package domain

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// ToDecimal scales a raw integer token amount down by decimals.
func ToDecimal(raw *big.Int, decimals uint8) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -int32(decimals))
}

// ToRaw scales a human amount up by decimals. Amounts with more fractional
// digits than decimals are rejected rather than rounded.
func ToRaw(amount decimal.Decimal, decimals uint8) (*big.Int, error) {
	if -amount.Exponent() > int32(decimals) {
		return nil, fmt.Errorf("amount %s exceeds %d decimals", amount, decimals)
	}
	return amount.Shift(int32(decimals)).BigInt(), nil
}
