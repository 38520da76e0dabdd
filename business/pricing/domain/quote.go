package domain

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Venue names a quote source.
type Venue string

const (
	VenueUni   Venue = "uni"
	VenueSushi Venue = "sushi"
	VenueGas   Venue = "gas"
)

// PriceQuote is a fresh per-cycle snapshot of both routers for one pair.
type PriceQuote struct {
	UniPrice     decimal.Decimal
	SushiPrice   decimal.Decimal
	RawAmount    *big.Int
	Path         []common.Address
	GasPriceGwei decimal.Decimal
	GasPriceWei  *big.Int
	FetchedAt    time.Time
}

// QuoteFailure explains which source broke a quote.
type QuoteFailure struct {
	Pair   string
	Source Venue
	Cause  error
}

func (e *QuoteFailure) Error() string {
	return fmt.Sprintf("quote %s from %s: %v", e.Pair, e.Source, e.Cause)
}

func (e *QuoteFailure) Unwrap() error {
	return e.Cause
}
