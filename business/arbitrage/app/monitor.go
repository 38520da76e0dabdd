package app

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/dex-arb-monitor/business/arbitrage/domain"
	pricingDomain "github.com/fd1az/dex-arb-monitor/business/pricing/domain"
	"github.com/fd1az/dex-arb-monitor/internal/apperror"
	"github.com/fd1az/dex-arb-monitor/internal/logger"
)

// State is the loop's current phase.
type State string

const (
	StatePolling State = "polling"
	StateBackoff State = "backoff"
)

// MonitorConfig holds the loop's tunables.
type MonitorConfig struct {
	Pairs                  []pricingDomain.PairConfig
	Policy                 domain.Policy
	GasUnits               uint64
	CycleDelay             time.Duration
	BackoffDelay           time.Duration
	MaxConsecutiveFailures int // 0 disables the hard stop
	RequoteBeforeSubmit    bool
}

// MonitorDeps are the ports the loop drives.
type MonitorDeps struct {
	Chain    BlockReader
	Quotes   QuoteSource
	Executor TradeExecutor
	ETHPrice ETHPriceSource
	Symbols  SymbolResolver
	Sink     LogSink
	Journal  Journal // optional
}

type monitorMetrics struct {
	cycles        metric.Int64Counter
	cycleDuration metric.Float64Histogram
	quoteFailures metric.Int64Counter
	opportunities metric.Int64Counter
	spread        metric.Float64Histogram
}

// Monitor is the opportunity loop. One goroutine runs it; pairs are
// processed strictly in order.
type Monitor struct {
	config  MonitorConfig
	deps    MonitorDeps
	tracker *domain.Tracker
	logger  logger.LoggerInterface

	tracer  trace.Tracer
	metrics *monitorMetrics

	mu                  sync.RWMutex
	state               State
	consecutiveFailures int
	lastCycleAt         time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewMonitor(cfg MonitorConfig, deps MonitorDeps, tracker *domain.Tracker, log logger.LoggerInterface) (*Monitor, error) {
	m := &Monitor{
		config:  cfg,
		deps:    deps,
		tracker: tracker,
		logger:  log,
		tracer:  otel.Tracer(tracerName),
		state:   StatePolling,
		now:     time.Now,
		sleep:   sleepCtx,
	}
	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}
	return m, nil
}

func (m *Monitor) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	m.metrics = &monitorMetrics{}

	m.metrics.cycles, err = meter.Int64Counter(
		"arb_cycles_total",
		metric.WithDescription("Monitor cycles by result"),
	)
	if err != nil {
		return err
	}

	m.metrics.cycleDuration, err = meter.Float64Histogram(
		"arb_cycle_duration_seconds",
		metric.WithDescription("Wall time of one monitor cycle"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	m.metrics.quoteFailures, err = meter.Int64Counter(
		"arb_quote_failures_total",
		metric.WithDescription("Pairs skipped because a quote failed"),
	)
	if err != nil {
		return err
	}

	m.metrics.opportunities, err = meter.Int64Counter(
		"arb_opportunities_total",
		metric.WithDescription("Quotes that satisfied the decision policy"),
	)
	if err != nil {
		return err
	}

	m.metrics.spread, err = meter.Float64Histogram(
		"arb_spread_percent",
		metric.WithDescription("Observed uni/sushi spread per pair"),
		metric.WithUnit("%"),
	)
	if err != nil {
		return err
	}

	_, err = meter.Float64ObservableGauge(
		"arb_total_profit_usd",
		metric.WithDescription("Realised profit since process start"),
		metric.WithFloat64Callback(func(_ context.Context, o metric.Float64Observer) error {
			v, _ := m.tracker.Snapshot().TotalProfitUSD.Float64()
			o.Observe(v)
			return nil
		}),
	)
	return err
}

// State reports whether the loop is polling or backing off.
func (m *Monitor) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// ConsecutiveFailures is the number of cycle-level failures since the last
// successful cycle.
func (m *Monitor) ConsecutiveFailures() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.consecutiveFailures
}

// LastCycleAt is when the last successful cycle finished.
func (m *Monitor) LastCycleAt() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastCycleAt
}

func (m *Monitor) Stats() domain.MonitorState {
	return m.tracker.Snapshot()
}

// Run loops until ctx is cancelled, returning nil after a final stats record.
// It returns CodeCircuitOpen once MaxConsecutiveFailures cycles fail in a row.
func (m *Monitor) Run(ctx context.Context) error {
	m.banner(ctx)

	for {
		if ctx.Err() != nil {
			return m.shutdown(ctx)
		}

		err := m.RunOnce(ctx)
		if ctx.Err() != nil {
			return m.shutdown(ctx)
		}

		if err != nil {
			failures := m.recordFailure()
			m.logger.Error(ctx, "monitor cycle failed",
				append(apperror.Wrap(err, apperror.CodeCycleFailed, "").ToLog(), "consecutive_failures", failures)...)
			m.sinkf(ctx, "MONITOR ERROR: %v\n%s", err, errorDetail(err))

			if m.config.MaxConsecutiveFailures > 0 && failures >= m.config.MaxConsecutiveFailures {
				m.sinkf(ctx, "MONITOR STOPPED: %d consecutive failures", failures)
				return apperror.New(apperror.CodeCircuitOpen,
					apperror.WithCause(err),
					apperror.WithContext(fmt.Sprintf("%d consecutive cycle failures", failures)))
			}

			m.setState(StateBackoff)
			_ = m.sleep(ctx, m.config.BackoffDelay)
			m.setState(StatePolling)
			continue
		}

		m.recordSuccess()
		_ = m.sleep(ctx, m.config.CycleDelay)
	}
}

// RunOnce executes a single cycle. A panic inside the cycle is recovered and
// returned as CodeCycleFailed.
func (m *Monitor) RunOnce(ctx context.Context) (err error) {
	ctx, span := m.tracer.Start(ctx, "monitor.cycle")
	defer span.End()

	start := m.now()
	defer func() {
		if r := recover(); r != nil {
			err = apperror.New(apperror.CodeCycleFailed,
				apperror.WithContext(fmt.Sprintf("panic: %v\n%s", r, debug.Stack())))
		}

		result := "ok"
		if err != nil {
			result = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, "cycle failed")
		} else {
			span.SetStatus(codes.Ok, "cycle complete")
		}
		m.metrics.cycles.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
		m.metrics.cycleDuration.Record(ctx, m.now().Sub(start).Seconds())
	}()

	return m.cycle(ctx)
}

func (m *Monitor) cycle(ctx context.Context) error {
	block, err := m.deps.Chain.BlockNumber(ctx)
	if err != nil {
		return apperror.Wrap(err, apperror.CodeCycleFailed, "read block number")
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int64("block", int64(block)))

	m.sinkf(ctx, "\nChecking Block #%d", block)
	m.logger.Debug(ctx, "checking block", "block", block, "pairs", len(m.config.Pairs))

	for _, pair := range m.config.Pairs {
		if ctx.Err() != nil {
			return nil
		}
		m.processPair(ctx, block, pair)
	}
	return nil
}

func (m *Monitor) processPair(ctx context.Context, block uint64, pair pricingDomain.PairConfig) {
	ctx, span := m.tracer.Start(ctx, "monitor.pair",
		trace.WithAttributes(attribute.String("pair", pair.String())))
	defer span.End()

	quote, err := m.deps.Quotes.GetQuote(ctx, pair)
	if err != nil {
		m.metrics.quoteFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("pair", pair.String())))
		m.logger.Warn(ctx, "price fetch failed", "pair", pair.String(), "error", err)
		m.sinkf(ctx, "ERROR: Price fetch failed for %s:\n%v", pair.Token.Hex(), err)
		return
	}

	decision, err := m.evaluate(ctx, quote, pair)
	if err != nil {
		m.logger.Warn(ctx, "eth price unavailable, skipping pair", "pair", pair.String(), "error", err)
		m.sinkf(ctx, "ERROR: ETH price unavailable for %s:\n%v", pair.String(), err)
		return
	}

	spreadF, _ := decision.Spread.Float64()
	m.metrics.spread.Record(ctx, spreadF, metric.WithAttributes(attribute.String("pair", pair.String())))

	sym0 := m.deps.Symbols.Symbol(ctx, pair.Token)
	sym1 := m.deps.Symbols.Symbol(ctx, pair.BaseToken)

	m.sinkf(ctx, `
Gas Price: %s Gwei
Token Pair: %s -> %s
Amount In: %s
Uni Price: %s
Sushi Price: %s`,
		quote.GasPriceGwei, pair.Token.Hex(), pair.BaseToken.Hex(),
		pair.DecimalAmount(), quote.UniPrice, quote.SushiPrice)

	m.sinkf(ctx, `
Opportunity Details:
    Pair: %s/%s
    Input Amount: %s %s
    Uniswap Price: %s %s
    SushiSwap Price: %s %s
    Price Difference: %s%%
    Gas Price: %s Gwei
    Minimum Profit Required: $%s`,
		sym0, sym1,
		pair.DecimalAmount(), sym0,
		quote.UniPrice, sym1,
		quote.SushiPrice, sym1,
		decision.Spread.StringFixed(2),
		quote.GasPriceGwei,
		pair.MinProfitUSD)

	m.logger.Debug(ctx, "pair evaluated",
		"pair", pair.String(),
		"spread_pct", decision.Spread.StringFixed(4),
		"expected_profit_usd", decision.ExpectedProfit.StringFixed(2),
		"reason", string(decision.Reason))

	if !decision.Execute {
		return
	}

	m.metrics.opportunities.Add(ctx, 1, metric.WithAttributes(attribute.String("pair", pair.String())))
	m.sinkf(ctx, "\n!!! PROFITABLE OPPORTUNITY FOUND !!!\nExpected Profit: $%s", decision.ExpectedProfit.StringFixed(2))
	m.logger.Info(ctx, "profitable opportunity found",
		"pair", pair.String(),
		"block", block,
		"spread_pct", decision.Spread.StringFixed(4),
		"expected_profit_usd", decision.ExpectedProfit.StringFixed(2))

	if m.config.RequoteBeforeSubmit {
		quote, decision, err = m.requote(ctx, pair)
		if err != nil {
			m.logger.Warn(ctx, "re-quote failed, skipping trade", "pair", pair.String(), "error", err)
			m.sinkf(ctx, "ERROR: Re-quote failed for %s:\n%v", pair.String(), err)
			return
		}
		if !decision.Execute {
			m.logger.Info(ctx, "opportunity gone on re-quote",
				"pair", pair.String(), "reason", string(decision.Reason),
				"spread_pct", decision.Spread.StringFixed(4))
			m.sinkf(ctx, "Opportunity gone on re-quote for %s/%s (%s)", sym0, sym1, decision.Reason)
			return
		}
	}

	m.sinkf(ctx, `
=== EXECUTING ARBITRAGE TRADE ===
Pair: %s/%s
Input Amount: %s %s
Expected Profit: $%s
Gas Cost: %s Gwei`,
		sym0, sym1,
		pair.DecimalAmount(), sym0,
		decision.ExpectedProfit.StringFixed(2),
		quote.GasPriceGwei)

	// Shutdown waits for a submitted trade and its bookkeeping.
	ctx = context.WithoutCancel(ctx)
	outcome := m.deps.Executor.Execute(ctx, quote, pair)
	state := m.tracker.RecordOutcome(outcome)

	if outcome.Succeeded {
		m.sinkf(ctx, `
TRADE SUCCESSFUL
Transaction Hash: %s
Gas Used: %d
Actual Profit: $%s
Total Profits: $%s
Total Successful Trades: %d`,
			outcome.TxHash.Hex(), outcome.GasUsed,
			outcome.ActualProfitUSD.StringFixed(2),
			state.TotalProfitUSD.StringFixed(2),
			state.SuccessfulTrades)
		m.logger.Info(ctx, "trade successful",
			"pair", pair.String(),
			"tx_hash", outcome.TxHash.Hex(),
			"gas_used", outcome.GasUsed,
			"profit_usd", outcome.ActualProfitUSD.StringFixed(2))
	} else {
		m.sinkf(ctx, "\nTRADE FAILED\nError: %v\nTotal Failed Trades: %d", outcome.Err, state.FailedTrades)
		m.logger.Warn(ctx, "trade failed", "pair", pair.String(), "tx_hash", outcome.TxHash.Hex(), "error", outcome.Err)
	}

	m.journal(ctx, domain.TradeRecord{
		Pair:              pair.String(),
		BlockNumber:       block,
		ExpectedProfitUSD: decision.ExpectedProfit,
		Outcome:           outcome,
		RecordedAt:        m.now().UTC(),
	})
}

func (m *Monitor) evaluate(ctx context.Context, quote *pricingDomain.PriceQuote, pair pricingDomain.PairConfig) (domain.Decision, error) {
	ethUSD, err := m.deps.ETHPrice.ETHUSD(ctx)
	if err != nil {
		return domain.Decision{}, err
	}
	params := domain.EstimatorParams{GasUnits: m.config.GasUnits, ETHUSD: ethUSD}
	return m.config.Policy.Evaluate(quote, pair, params), nil
}

func (m *Monitor) requote(ctx context.Context, pair pricingDomain.PairConfig) (*pricingDomain.PriceQuote, domain.Decision, error) {
	quote, err := m.deps.Quotes.GetQuote(ctx, pair)
	if err != nil {
		return nil, domain.Decision{}, err
	}
	decision, err := m.evaluate(ctx, quote, pair)
	if err != nil {
		return nil, domain.Decision{}, err
	}
	return quote, decision, nil
}

func (m *Monitor) journal(ctx context.Context, rec domain.TradeRecord) {
	if m.deps.Journal == nil {
		return
	}
	if err := m.deps.Journal.Record(ctx, rec); err != nil {
		m.logger.Error(ctx, "trade journal write failed", "pair", rec.Pair, "error", err)
	}
}

func (m *Monitor) banner(ctx context.Context) {
	s := m.tracker.Snapshot()
	m.sinkf(ctx, `
=== Starting Arbitrage Monitoring ===
Total Profits: $%s
Successful Trades: %d
Failed Trades: %d`,
		s.TotalProfitUSD.StringFixed(2), s.SuccessfulTrades, s.FailedTrades)

	names := make([]string, 0, len(m.config.Pairs))
	for _, p := range m.config.Pairs {
		names = append(names, m.deps.Symbols.Symbol(ctx, p.Token)+"/"+m.deps.Symbols.Symbol(ctx, p.BaseToken))
	}

	m.logger.Info(ctx, "monitor started",
		"pairs", strings.Join(names, ","),
		"spread_threshold_pct", m.config.Policy.SpreadThresholdPercent.String(),
		"cycle_delay", m.config.CycleDelay.String(),
		"requote", m.config.RequoteBeforeSubmit)
}

func (m *Monitor) shutdown(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	s := m.tracker.Snapshot()
	m.sinkf(ctx, `
=== Monitoring Stopped ===
Total Profits: $%s
Successful Trades: %d
Failed Trades: %d`,
		s.TotalProfitUSD.StringFixed(2), s.SuccessfulTrades, s.FailedTrades)

	m.logger.Info(ctx, "monitor stopped",
		"total_profit_usd", s.TotalProfitUSD.StringFixed(2),
		"successful_trades", s.SuccessfulTrades,
		"failed_trades", s.FailedTrades)
	return nil
}

// sinkf writes to the Log Sink. Failures are logged and never propagate.
func (m *Monitor) sinkf(ctx context.Context, format string, args ...any) {
	if err := m.deps.Sink.Append(ctx, fmt.Sprintf(format, args...)); err != nil {
		m.logger.Error(ctx, "log sink write failed", "error", err)
	}
}

func (m *Monitor) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

func (m *Monitor) recordFailure() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.consecutiveFailures++
	return m.consecutiveFailures
}

func (m *Monitor) recordSuccess() {
	m.mu.Lock()
	m.consecutiveFailures = 0
	m.lastCycleAt = m.now()
	m.mu.Unlock()
}

func errorDetail(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Stack()
	}
	return ""
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
