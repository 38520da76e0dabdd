package domain

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// TradeOutcome is the result of one Trade Executor invocation.
type TradeOutcome struct {
	Succeeded       bool
	TxHash          common.Hash
	GasUsed         uint64
	ActualProfitUSD decimal.Decimal
	Err             error
}

// MonitorState holds the running totals of a process.
type MonitorState struct {
	TotalProfitUSD   decimal.Decimal
	SuccessfulTrades uint64
	FailedTrades     uint64
}

// Trades is the number of completed executions.
func (s MonitorState) Trades() uint64 {
	return s.SuccessfulTrades + s.FailedTrades
}

// Tracker folds trade outcomes into a MonitorState. It starts at zero.
type Tracker struct {
	mu    sync.Mutex
	state MonitorState
}

func NewTracker() *Tracker {
	return &Tracker{state: MonitorState{TotalProfitUSD: decimal.Zero}}
}

// RecordOutcome counts the outcome and adds its profit when it succeeded.
func (t *Tracker) RecordOutcome(o TradeOutcome) MonitorState {
	t.mu.Lock()
	defer t.mu.Unlock()

	if o.Succeeded {
		t.state.SuccessfulTrades++
		t.state.TotalProfitUSD = t.state.TotalProfitUSD.Add(o.ActualProfitUSD)
	} else {
		t.state.FailedTrades++
	}
	return t.state
}

// Snapshot returns a copy of the current totals.
func (t *Tracker) Snapshot() MonitorState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}
