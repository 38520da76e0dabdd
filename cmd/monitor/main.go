// Package main is the entry point for the DEX/DEX arbitrage monitor.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fd1az/dex-arb-monitor/business/arbitrage"
	arbitrageApp "github.com/fd1az/dex-arb-monitor/business/arbitrage/app"
	arbitrageDI "github.com/fd1az/dex-arb-monitor/business/arbitrage/di"
	"github.com/fd1az/dex-arb-monitor/business/blockchain"
	blockchainDI "github.com/fd1az/dex-arb-monitor/business/blockchain/di"
	"github.com/fd1az/dex-arb-monitor/business/pricing"
	"github.com/fd1az/dex-arb-monitor/internal/apm"
	"github.com/fd1az/dex-arb-monitor/internal/apperror"
	"github.com/fd1az/dex-arb-monitor/internal/config"
	"github.com/fd1az/dex-arb-monitor/internal/health"
	"github.com/fd1az/dex-arb-monitor/internal/logger"
	"github.com/fd1az/dex-arb-monitor/internal/metrics"
	"github.com/fd1az/dex-arb-monitor/internal/monolith"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

// Exit codes.
const (
	exitError       = 1
	exitCircuitOpen = 2
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	once := flag.Bool("once", false, "Run a single monitor cycle and exit")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("dex-arb-monitor %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, *once); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if apperror.HasCode(err, apperror.CodeCircuitOpen) {
			os.Exit(exitCircuitOpen)
		}
		os.Exit(exitError)
	}
}

func run(ctx context.Context, configPath string, once bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(os.Stderr, logger.ParseLevel(cfg.App.LogLevel), cfg.App.Name, nil)
	log.Info(ctx, "starting DEX/DEX arbitrage monitor",
		"version", version,
		"environment", cfg.App.Environment,
		"rpc_url", cfg.Ethereum.RPCURL,
	)

	stopTelemetry, err := startTelemetry(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer stopTelemetry()

	mono, err := monolith.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}
	defer func() {
		if err := mono.Close(); err != nil {
			log.Warn(context.Background(), "shutdown cleanup failed", "error", err)
		}
	}()

	// Dependency order: pricing quotes through blockchain, arbitrage drives both.
	modules := []monolith.Module{
		&blockchain.Module{},
		&pricing.Module{},
		&arbitrage.Module{},
	}

	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}
	if err := mono.StartModules(ctx, modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}

	mon := arbitrageDI.GetMonitor(mono.Services())

	if once {
		return mon.RunOnce(ctx)
	}

	if cfg.Health.Port > 0 {
		hs := newHealthServer(cfg, mono, mon)
		if err := hs.Start(); err != nil {
			log.Warn(ctx, "failed to start health server", "error", err)
		} else {
			log.Info(ctx, "health server started", "port", cfg.Health.Port)
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = hs.Stop(shutdownCtx)
			}()
		}
	}

	if err := mon.Run(ctx); err != nil {
		log.Error(ctx, "monitor stopped with error", apperror.Wrap(err, apperror.CodeUnknownError, "").ToLog()...)
		return err
	}

	log.Info(context.Background(), "shutdown complete")
	return nil
}

func startTelemetry(ctx context.Context, cfg *config.Config, log logger.LoggerInterface) (func(), error) {
	if !cfg.Telemetry.Enabled {
		return func() {}, nil
	}

	tp, err := apm.NewTraceProvider(ctx, log, apm.Config{
		Provider:    apm.Provider(cfg.Telemetry.TraceProvider),
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Headers:     cfg.Telemetry.Headers(),
		Insecure:    cfg.Telemetry.OTLPInsecure,
		ServiceName: cfg.Telemetry.ServiceName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start tracing: %w", err)
	}

	metricsCfg := metrics.Config{
		ServiceName: cfg.Telemetry.ServiceName,
		Prometheus:  cfg.Telemetry.PrometheusPort > 0,
	}
	if apm.Provider(cfg.Telemetry.TraceProvider) == apm.OTLPGRPCProvider {
		metricsCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
		metricsCfg.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	}

	mp, err := metrics.NewMetricProvider(ctx, metricsCfg)
	if err != nil {
		_ = tp.Stop()
		return nil, fmt.Errorf("failed to start metrics: %w", err)
	}

	var prom *metrics.PrometheusServer
	if metricsCfg.Prometheus {
		prom, err = metrics.ServePrometheusMetrics(cfg.Telemetry.PrometheusPort)
		if err != nil {
			log.Warn(ctx, "failed to start prometheus server", "error", err)
		} else {
			log.Info(ctx, "prometheus metrics server started", "addr", prom.Addr())
		}
	}

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if prom != nil {
			_ = prom.Stop(shutdownCtx)
		}
		if err := mp.Shutdown(shutdownCtx); err != nil {
			log.Warn(shutdownCtx, "metric provider shutdown failed", "error", err)
		}
		if err := tp.Stop(); err != nil {
			log.Warn(shutdownCtx, "trace provider shutdown failed", "error", err)
		}
	}, nil
}

func newHealthServer(cfg *config.Config, mono monolith.Monolith, mon *arbitrageApp.Monitor) *health.Server {
	hs := health.NewServer(cfg.Health.Port, version, mono.Logger())

	maxFailures := cfg.Monitor.MaxConsecutiveFailures
	hs.RegisterCheck("monitor", func(context.Context) (bool, string) {
		state := mon.State()
		failures := mon.ConsecutiveFailures()
		stats := mon.Stats()
		msg := fmt.Sprintf("state=%s consecutive_failures=%d successful=%d failed=%d",
			state, failures, stats.SuccessfulTrades, stats.FailedTrades)
		if maxFailures > 0 && failures >= maxFailures {
			return false, msg
		}
		return state == arbitrageApp.StatePolling, msg
	})

	// A head older than a few cycles means the node stopped answering.
	staleAfter := 10 * cfg.Monitor.CycleDelay
	if staleAfter < 30*time.Second {
		staleAfter = 30 * time.Second
	}
	chain := blockchainDI.GetBlockchainService(mono.Services())
	hs.RegisterCheck("rpc", func(context.Context) (bool, string) {
		head := chain.LastHead()
		if head.Number == 0 {
			return false, "no block observed yet"
		}
		age := head.Age(time.Now())
		msg := fmt.Sprintf("block=%d age=%s", head.Number, age.Truncate(time.Millisecond))
		return age <= staleAfter, msg
	})

	return hs
}
