// Package domain contains the core domain types for the pricing context.
package domain

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Spread is the price gap between the two routers for the same input.
type Spread struct {
	UniPrice   decimal.Decimal
	SushiPrice decimal.Decimal
	Absolute   decimal.Decimal // |uni - sushi|
	Percent    decimal.Decimal // Absolute / uni * 100
	Direction  SpreadDirection
}

// SpreadDirection names the venue that pays more for the token.
type SpreadDirection string

const (
	SpreadSushiHigher SpreadDirection = "SUSHI_HIGHER" // Buy on uni, sell on sushi
	SpreadUniHigher   SpreadDirection = "UNI_HIGHER"   // Buy on sushi, sell on uni
	SpreadNone        SpreadDirection = "NONE"
)

// CalculateSpread compares uni and sushi quotes. A zero uni price yields a
// zero percent spread.
func CalculateSpread(uniPrice, sushiPrice decimal.Decimal) Spread {
	diff := sushiPrice.Sub(uniPrice)
	absolute := diff.Abs()

	percent := decimal.Zero
	if !uniPrice.IsZero() {
		percent = absolute.Div(uniPrice).Mul(hundred)
	}

	var direction SpreadDirection
	switch {
	case diff.IsPositive():
		direction = SpreadSushiHigher
	case diff.IsNegative():
		direction = SpreadUniHigher
	default:
		direction = SpreadNone
	}

	return Spread{
		UniPrice:   uniPrice,
		SushiPrice: sushiPrice,
		Absolute:   absolute,
		Percent:    percent,
		Direction:  direction,
	}
}
