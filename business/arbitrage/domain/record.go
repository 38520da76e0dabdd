package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeRecord is one journal row: an outcome with the context it ran in.
type TradeRecord struct {
	Pair              string
	BlockNumber       uint64
	ExpectedProfitUSD decimal.Decimal
	Outcome           TradeOutcome
	RecordedAt        time.Time
}

// JournalSummary is the persisted total across every process run.
type JournalSummary struct {
	Trades           uint64
	SuccessfulTrades uint64
	FailedTrades     uint64
	TotalProfitUSD   decimal.Decimal
}
