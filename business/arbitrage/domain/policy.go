package domain

import (
	"github.com/shopspring/decimal"

	pricingDomain "github.com/fd1az/dex-arb-monitor/business/pricing/domain"
)

// Reason explains a policy decision.
type Reason string

const (
	ReasonSpreadBelowThreshold Reason = "spread_below_threshold"
	ReasonProfitBelowMinimum   Reason = "profit_below_minimum"
	ReasonProfitable           Reason = "profitable"
)

// Policy decides whether a quote is worth executing.
type Policy struct {
	// SpreadThresholdPercent applies to every pair; 0.5 means 0.5%.
	SpreadThresholdPercent decimal.Decimal
}

// Decision is the outcome of evaluating one quote.
type Decision struct {
	Estimate       ProfitEstimate
	Spread         decimal.Decimal
	ExpectedProfit decimal.Decimal
	Execute        bool
	Reason         Reason
}

// Evaluate triggers iff the spread is strictly above the global threshold and
// the expected profit reaches the pair's own minimum.
func (p Policy) Evaluate(q *pricingDomain.PriceQuote, pair pricingDomain.PairConfig, params EstimatorParams) Decision {
	est := Estimate(q, pair, params)
	d := Decision{
		Estimate:       est,
		Spread:         est.Spread.Percent,
		ExpectedProfit: est.NetUSD,
	}

	switch {
	case !est.Spread.Percent.GreaterThan(p.SpreadThresholdPercent):
		d.Reason = ReasonSpreadBelowThreshold
	case est.NetUSD.LessThan(pair.MinProfitUSD):
		d.Reason = ReasonProfitBelowMinimum
	default:
		d.Execute = true
		d.Reason = ReasonProfitable
	}
	return d
}
