package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/dex-arb-monitor/business/blockchain/app"
	"github.com/fd1az/dex-arb-monitor/business/blockchain/domain"
	"github.com/fd1az/dex-arb-monitor/internal/apperror"
	"github.com/fd1az/dex-arb-monitor/internal/cache"
	"github.com/fd1az/dex-arb-monitor/internal/circuitbreaker"
	"github.com/fd1az/dex-arb-monitor/internal/logger"
	"github.com/fd1az/dex-arb-monitor/internal/ratelimit"
)

// GasOracleConfig holds configuration for the gas oracle.
type GasOracleConfig struct {
	// CacheTTL of zero fetches on every call.
	CacheTTL    time.Duration
	MaxGasPrice *big.Int // Prices above this are rejected; nil disables
}

// DefaultGasOracleConfig disables caching and the price ceiling.
func DefaultGasOracleConfig() GasOracleConfig {
	return GasOracleConfig{}
}

type gasOracleMetrics struct {
	fetches   metric.Int64Counter
	gasPrice  metric.Float64Gauge
	cacheHits metric.Int64Counter
	rejected  metric.Int64Counter
}

// GasOracle reads eth_gasPrice through a breaker and an optional short cache.
type GasOracle struct {
	config  GasOracleConfig
	backend Backend
	logger  logger.LoggerInterface
	limiter *ratelimit.Limiter

	priceCache *cache.Cache[string, *domain.GasPrice]
	cb         *circuitbreaker.CircuitBreaker[*big.Int]

	tracer  trace.Tracer
	metrics *gasOracleMetrics
}

var _ app.GasOracle = (*GasOracle)(nil)

// NewGasOracle creates a new gas oracle instance.
func NewGasOracle(backend Backend, cfg GasOracleConfig, limiter *ratelimit.Limiter, log logger.LoggerInterface) (*GasOracle, error) {
	g := &GasOracle{
		config:  cfg,
		backend: backend,
		logger:  log,
		limiter: limiter,
		tracer:  otel.Tracer(tracerName),
	}

	if cfg.CacheTTL > 0 {
		g.priceCache = cache.New[string, *domain.GasPrice](cfg.CacheTTL, cache.WithSize(1))
	}

	if err := g.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	cbCfg := circuitbreaker.DefaultConfig("gas-oracle")
	cbCfg.OnStateChange = func(name string, from, to circuitbreaker.State) {
		log.Warn(context.Background(), "circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	}
	g.cb = circuitbreaker.New[*big.Int](cbCfg)

	return g, nil
}

func (g *GasOracle) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	g.metrics = &gasOracleMetrics{}

	g.metrics.fetches, err = meter.Int64Counter(
		"gas_price_fetches_total",
		metric.WithDescription("Gas price RPC fetches"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return err
	}

	g.metrics.gasPrice, err = meter.Float64Gauge(
		"gas_price_gwei",
		metric.WithDescription("Last observed gas price in gwei"),
		metric.WithUnit("gwei"),
	)
	if err != nil {
		return err
	}

	g.metrics.cacheHits, err = meter.Int64Counter(
		"gas_price_cache_hits_total",
		metric.WithDescription("Gas price cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return err
	}

	g.metrics.rejected, err = meter.Int64Counter(
		"gas_price_rejected_total",
		metric.WithDescription("Gas prices above the configured maximum"),
		metric.WithUnit("{event}"),
	)
	return err
}

// GasPrice returns the current legacy gas price.
func (g *GasOracle) GasPrice(ctx context.Context) (*domain.GasPrice, error) {
	ctx, span := g.tracer.Start(ctx, "gas.get_price")
	defer span.End()

	if g.priceCache != nil {
		if price, ok := g.priceCache.Get(ctx, "current"); ok {
			g.metrics.cacheHits.Add(ctx, 1)
			span.AddEvent("cache_hit")
			return price, nil
		}
	}

	if err := g.limiter.Wait(ctx); err != nil {
		span.RecordError(err)
		return nil, apperror.New(apperror.CodeRateLimitExceeded,
			apperror.WithCause(err),
			apperror.WithContext("gas price"))
	}

	g.metrics.fetches.Add(ctx, 1)

	wei, err := g.cb.Execute(func() (*big.Int, error) {
		return g.backend.SuggestGasPrice(ctx)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithCause(err),
			apperror.WithContext("failed to get gas price"))
	}

	price := domain.NewGasPrice(wei)
	g.metrics.gasPrice.Record(ctx, price.GweiFloat())

	// Prices above the ceiling fail the quote rather than being capped.
	if g.config.MaxGasPrice != nil && wei.Cmp(g.config.MaxGasPrice) > 0 {
		g.metrics.rejected.Add(ctx, 1)
		span.AddEvent("gas_price_exceeded_max",
			trace.WithAttributes(attribute.String("wei", wei.String())))
		g.logger.Warn(ctx, "gas price exceeds max",
			"wei", wei.String(), "max_wei", g.config.MaxGasPrice.String())
		err := apperror.New(apperror.CodeGasPriceAboveMax,
			apperror.WithContext(fmt.Sprintf("%s gwei > %s gwei", price.Gwei(), domain.NewGasPrice(g.config.MaxGasPrice).Gwei())))
		span.RecordError(err)
		span.SetStatus(codes.Error, "above max")
		return nil, err
	}

	if g.priceCache != nil {
		g.priceCache.Set(ctx, "current", price)
	}

	span.SetAttributes(attribute.Float64("gwei", price.GweiFloat()))
	span.SetStatus(codes.Ok, "fetched")

	return price, nil
}

// Close drops any cached price.
func (g *GasOracle) Close() error {
	if g.priceCache != nil {
		g.priceCache.Close()
	}
	return nil
}
