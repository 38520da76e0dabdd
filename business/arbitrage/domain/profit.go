// Package domain contains the core domain types for the arbitrage context.
package domain

import (
	"math/big"

	"github.com/shopspring/decimal"

	pricingDomain "github.com/fd1az/dex-arb-monitor/business/pricing/domain"
)

var gweiPerETH = decimal.New(1, 9)

// EstimatorParams are the pluggable inputs of the profit estimate.
type EstimatorParams struct {
	GasUnits uint64
	ETHUSD   decimal.Decimal
}

// ProfitEstimate breaks the expected profit of one swap into its parts.
type ProfitEstimate struct {
	Spread     pricingDomain.Spread
	GrossUSD   decimal.Decimal // |uni - sushi| * amount
	GasCostUSD decimal.Decimal
	NetUSD     decimal.Decimal
}

// SpreadPercent is |uni - sushi| / uni * 100, or zero when uni is zero.
func SpreadPercent(q *pricingDomain.PriceQuote) decimal.Decimal {
	return pricingDomain.CalculateSpread(q.UniPrice, q.SushiPrice).Percent
}

// EstimatedGasCostUSD converts a gas price and unit count into USD.
func EstimatedGasCostUSD(gasPriceGwei decimal.Decimal, gasUnits uint64, ethUSD decimal.Decimal) decimal.Decimal {
	units := decimal.NewFromBigInt(new(big.Int).SetUint64(gasUnits), 0)
	return gasPriceGwei.Mul(units).Div(gweiPerETH).Mul(ethUSD)
}

// ExpectedProfitUSD is the price gap times the input amount, less gas.
func ExpectedProfitUSD(q *pricingDomain.PriceQuote, pair pricingDomain.PairConfig, params EstimatorParams) decimal.Decimal {
	return Estimate(q, pair, params).NetUSD
}

// Estimate computes the spread and every profit component for a quote.
func Estimate(q *pricingDomain.PriceQuote, pair pricingDomain.PairConfig, params EstimatorParams) ProfitEstimate {
	spread := pricingDomain.CalculateSpread(q.UniPrice, q.SushiPrice)
	gross := spread.Absolute.Mul(pair.DecimalAmount())
	gas := EstimatedGasCostUSD(q.GasPriceGwei, params.GasUnits, params.ETHUSD)

	return ProfitEstimate{
		Spread:     spread,
		GrossUSD:   gross,
		GasCostUSD: gas,
		NetUSD:     gross.Sub(gas),
	}
}
