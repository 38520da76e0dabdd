// Package di contains dependency injection tokens for the arbitrage context.
package di

import (
	"github.com/fd1az/dex-arb-monitor/business/arbitrage/app"
	"github.com/fd1az/dex-arb-monitor/business/arbitrage/domain"
	"github.com/fd1az/dex-arb-monitor/business/arbitrage/infra/contract"
	"github.com/fd1az/dex-arb-monitor/business/arbitrage/infra/journal"
	"github.com/fd1az/dex-arb-monitor/business/arbitrage/infra/logsink"
	"github.com/fd1az/dex-arb-monitor/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Monitor = di.NewToken[*app.Monitor]("arbitrage.Monitor")
	Tracker = di.NewToken[*domain.Tracker]("arbitrage.Tracker")
)

// Private dependency tokens - internal to arbitrage module
var (
	Contract = di.NewToken[*contract.Arbitrage]("arbitrage:contract")
	Executor = di.NewToken[*app.Executor]("arbitrage:executor")
	LogSink  = di.NewToken[*logsink.DailyFile]("arbitrage:logSink")
	// Journal resolves to nil when journal.path is empty.
	Journal = di.NewToken[*journal.SQLite]("arbitrage:journal")
)

// Helper functions for type-safe access
func GetMonitor(c di.ServiceRegistry) *app.Monitor {
	return di.GetToken(c, Monitor)
}

func GetTracker(c di.ServiceRegistry) *domain.Tracker {
	return di.GetToken(c, Tracker)
}

func GetContract(c di.ServiceRegistry) *contract.Arbitrage {
	return di.GetToken(c, Contract)
}

func GetExecutor(c di.ServiceRegistry) *app.Executor {
	return di.GetToken(c, Executor)
}

func GetLogSink(c di.ServiceRegistry) *logsink.DailyFile {
	return di.GetToken(c, LogSink)
}

func GetJournal(c di.ServiceRegistry) *journal.SQLite {
	return di.GetToken(c, Journal)
}
