// Package arbitrage implements the arbitrage bounded context: the opportunity
// loop, the decision policy and trade execution.
package arbitrage

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fd1az/dex-arb-monitor/business/arbitrage/app"
	arbitrageDI "github.com/fd1az/dex-arb-monitor/business/arbitrage/di"
	"github.com/fd1az/dex-arb-monitor/business/arbitrage/domain"
	"github.com/fd1az/dex-arb-monitor/business/arbitrage/infra/contract"
	"github.com/fd1az/dex-arb-monitor/business/arbitrage/infra/journal"
	"github.com/fd1az/dex-arb-monitor/business/arbitrage/infra/logsink"
	blockchainDI "github.com/fd1az/dex-arb-monitor/business/blockchain/di"
	pricingDI "github.com/fd1az/dex-arb-monitor/business/pricing/di"
	pricingDomain "github.com/fd1az/dex-arb-monitor/business/pricing/domain"
	"github.com/fd1az/dex-arb-monitor/internal/config"
	"github.com/fd1az/dex-arb-monitor/internal/di"
	"github.com/fd1az/dex-arb-monitor/internal/logger"
	"github.com/fd1az/dex-arb-monitor/internal/monolith"
)

// Module implements the arbitrage bounded context.
type Module struct{}

// RegisterServices registers all arbitrage services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, arbitrageDI.Tracker, func(sr di.ServiceRegistry) *domain.Tracker {
		return domain.NewTracker()
	})

	di.RegisterToken(c, arbitrageDI.Contract, func(sr di.ServiceRegistry) *contract.Arbitrage {
		cfg := sr.Get(monolith.ConfigService).(*config.Config)

		arb, err := contract.New(cfg.Contracts.ArbitrageAddress())
		if err != nil {
			panic("failed to create arbitrage contract binding: " + err.Error())
		}
		return arb
	})

	di.RegisterToken(c, arbitrageDI.Executor, func(sr di.ServiceRegistry) *app.Executor {
		cfg := sr.Get(monolith.ConfigService).(*config.Config)
		log := sr.Get(monolith.LoggerService).(logger.LoggerInterface)

		exec, err := app.NewExecutor(
			arbitrageDI.GetContract(sr),
			blockchainDI.GetBlockchainService(sr),
			app.ExecutorConfig{ProfitDecimals: cfg.Monitor.ProfitDecimals},
			log,
		)
		if err != nil {
			panic("failed to create trade executor: " + err.Error())
		}
		return exec
	})

	di.RegisterToken(c, arbitrageDI.LogSink, func(sr di.ServiceRegistry) *logsink.DailyFile {
		cfg := sr.Get(monolith.ConfigService).(*config.Config)
		log := sr.Get(monolith.LoggerService).(logger.LoggerInterface)

		sink, err := logsink.NewDailyFile(cfg.Monitor.LogDir, log)
		if err != nil {
			panic("failed to create log sink: " + err.Error())
		}
		return sink
	})

	di.RegisterToken(c, arbitrageDI.Journal, func(sr di.ServiceRegistry) *journal.SQLite {
		cfg := sr.Get(monolith.ConfigService).(*config.Config)
		if cfg.Journal.Path == "" {
			return nil
		}

		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			panic("failed to open trade journal: " + err.Error())
		}
		return j
	})

	// Register Monitor (public - exposed to other modules)
	di.RegisterToken(c, arbitrageDI.Monitor, func(sr di.ServiceRegistry) *app.Monitor {
		cfg := sr.Get(monolith.ConfigService).(*config.Config)
		log := sr.Get(monolith.LoggerService).(logger.LoggerInterface)

		pairs, err := Pairs(cfg)
		if err != nil {
			panic("invalid pair config: " + err.Error())
		}

		deps := app.MonitorDeps{
			Chain:    blockchainDI.GetBlockchainService(sr),
			Quotes:   pricingDI.GetOracle(sr),
			Executor: arbitrageDI.GetExecutor(sr),
			ETHPrice: pricingDI.GetETHPriceSource(sr),
			Symbols:  pricingDI.GetSymbolResolver(sr),
			Sink:     arbitrageDI.GetLogSink(sr),
		}
		if j := arbitrageDI.GetJournal(sr); j != nil {
			deps.Journal = j
		}

		mon, err := app.NewMonitor(app.MonitorConfig{
			Pairs:                  pairs,
			Policy:                 domain.Policy{SpreadThresholdPercent: cfg.Monitor.SpreadThresholdDecimal()},
			GasUnits:               cfg.Monitor.GasUnits,
			CycleDelay:             cfg.Monitor.CycleDelay,
			BackoffDelay:           cfg.Monitor.BackoffDelay,
			MaxConsecutiveFailures: cfg.Monitor.MaxConsecutiveFailures,
			RequoteBeforeSubmit:    cfg.Monitor.RequoteBeforeSubmit,
		}, deps, arbitrageDI.GetTracker(sr), log)
		if err != nil {
			panic("failed to create monitor: " + err.Error())
		}
		return mon
	})

	return nil
}

// Pairs converts the configured pairs into domain pairs, scaling amounts.
func Pairs(cfg *config.Config) ([]pricingDomain.PairConfig, error) {
	out := make([]pricingDomain.PairConfig, 0, len(cfg.Monitor.Pairs))
	for i, p := range cfg.Monitor.Pairs {
		amount, err := decimal.NewFromString(p.Amount)
		if err != nil {
			return nil, fmt.Errorf("pairs[%d] amount %q: %w", i, p.Amount, err)
		}
		pair, err := pricingDomain.NewPairConfig(
			p.Name,
			p.TokenAddress(),
			p.BaseTokenAddress(),
			amount,
			p.Decimals,
			p.QuoteDecimals,
			decimal.NewFromFloat(p.MinProfitUSD),
		)
		if err != nil {
			return nil, fmt.Errorf("pairs[%d]: %w", i, err)
		}
		out = append(out, pair)
	}
	return out, nil
}

// Startup builds the monitor and registers cleanup of its files.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()
	sr := mono.Services()

	mon := arbitrageDI.GetMonitor(sr)

	sink := arbitrageDI.GetLogSink(sr)
	mono.OnClose(sink.Close)

	if j := arbitrageDI.GetJournal(sr); j != nil {
		mono.OnClose(j.Close)
		if s, err := j.Summary(ctx); err != nil {
			log.Warn(ctx, "trade journal summary failed", "error", err)
		} else {
			log.Info(ctx, "trade journal opened",
				"path", cfg.Journal.Path,
				"trades", s.Trades,
				"successful", s.SuccessfulTrades,
				"failed", s.FailedTrades,
				"total_profit_usd", s.TotalProfitUSD.StringFixed(2))
		}
	}

	log.Info(ctx, "arbitrage module started",
		"contract", cfg.Contracts.Arbitrage,
		"pairs", len(cfg.Monitor.Pairs),
		"spread_threshold_pct", cfg.Monitor.SpreadThresholdPercent,
		"log_dir", cfg.Monitor.LogDir,
		"state", string(mon.State()))
	return nil
}
