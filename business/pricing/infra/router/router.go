// Package router quotes V2-style DEX routers over eth_call.
package router

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	bcapp "github.com/fd1az/dex-arb-monitor/business/blockchain/app"
	"github.com/fd1az/dex-arb-monitor/business/pricing/app"
	"github.com/fd1az/dex-arb-monitor/business/pricing/domain"
	"github.com/fd1az/dex-arb-monitor/internal/apperror"
	"github.com/fd1az/dex-arb-monitor/internal/logger"
)

const (
	tracerName = "github.com/fd1az/dex-arb-monitor/business/pricing/infra/router"
	meterName  = "github.com/fd1az/dex-arb-monitor/business/pricing/infra/router"
)

var _ app.AmountsQuoter = (*Router)(nil)

type routerMetrics struct {
	quotesTotal  metric.Int64Counter
	quoteLatency metric.Float64Histogram
	quoteErrors  metric.Int64Counter
}

// Router quotes one deployed router contract.
type Router struct {
	venue   domain.Venue
	address common.Address
	abi     abi.ABI
	chain   bcapp.ChainReader
	logger  logger.LoggerInterface

	tracer  trace.Tracer
	metrics *routerMetrics
}

// New creates a router adapter for the contract at address.
func New(venue domain.Venue, address common.Address, chain bcapp.ChainReader, log logger.LoggerInterface) (*Router, error) {
	parsed, err := abi.JSON(strings.NewReader(RouterV2ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse router ABI: %w", err)
	}

	r := &Router{
		venue:   venue,
		address: address,
		abi:     parsed,
		chain:   chain,
		logger:  log,
		tracer:  otel.Tracer(tracerName),
	}

	if err := r.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	return r, nil
}

func (r *Router) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	r.metrics = &routerMetrics{}

	r.metrics.quotesTotal, err = meter.Int64Counter(
		"router_quotes_total",
		metric.WithDescription("getAmountsOut calls by venue"),
	)
	if err != nil {
		return err
	}

	r.metrics.quoteLatency, err = meter.Float64Histogram(
		"router_quote_latency_ms",
		metric.WithDescription("getAmountsOut latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	r.metrics.quoteErrors, err = meter.Int64Counter(
		"router_quote_errors_total",
		metric.WithDescription("Failed getAmountsOut calls by venue"),
	)
	return err
}

func (r *Router) Venue() domain.Venue {
	return r.venue
}

func (r *Router) Address() common.Address {
	return r.address
}

// AmountsOut calls getAmountsOut(amountIn, path) and returns the decoded amounts.
func (r *Router) AmountsOut(ctx context.Context, amountIn *big.Int, path []common.Address) ([]*big.Int, error) {
	ctx, span := r.tracer.Start(ctx, "router.get_amounts_out",
		trace.WithAttributes(
			attribute.String("venue", string(r.venue)),
			attribute.String("router", r.address.Hex()),
			attribute.String("amount_in", amountIn.String()),
			attribute.Int("hops", len(path)),
		),
	)
	defer span.End()

	venueAttr := metric.WithAttributes(attribute.String("venue", string(r.venue)))
	start := time.Now()
	r.metrics.quotesTotal.Add(ctx, 1, venueAttr)

	amounts, err := r.call(ctx, amountIn, path)

	r.metrics.quoteLatency.Record(ctx, float64(time.Since(start).Microseconds())/1000, venueAttr)

	if err != nil {
		r.metrics.quoteErrors.Add(ctx, 1, venueAttr)
		span.RecordError(err)
		span.SetStatus(codes.Error, "quote failed")
		return nil, err
	}

	span.SetAttributes(attribute.String("amount_out", amounts[len(amounts)-1].String()))
	span.SetStatus(codes.Ok, "quote received")

	return amounts, nil
}

func (r *Router) call(ctx context.Context, amountIn *big.Int, path []common.Address) ([]*big.Int, error) {
	data, err := r.abi.Pack(methodGetAmountsOut, amountIn, path)
	if err != nil {
		return nil, apperror.New(apperror.CodeInternalError,
			apperror.WithCause(err),
			apperror.WithContext("pack getAmountsOut"))
	}

	out, err := r.chain.CallContract(ctx, r.address, data)
	if err != nil {
		return nil, apperror.New(apperror.CodeRouterCallFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("%s router %s", r.venue, r.address.Hex())))
	}

	if len(out) == 0 {
		return nil, apperror.New(apperror.CodeInvalidQuote,
			apperror.WithContext(fmt.Sprintf("%s router returned no data", r.venue)))
	}

	values, err := r.abi.Unpack(methodGetAmountsOut, out)
	if err != nil {
		return nil, apperror.New(apperror.CodeInvalidQuote,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("decode %s getAmountsOut", r.venue)))
	}

	if len(values) != 1 {
		return nil, apperror.New(apperror.CodeInvalidQuote,
			apperror.WithContext(fmt.Sprintf("unexpected output count: %d", len(values))))
	}

	amounts, ok := values[0].([]*big.Int)
	if !ok || len(amounts) == 0 {
		return nil, apperror.New(apperror.CodeInvalidQuote,
			apperror.WithContext(fmt.Sprintf("%s router returned empty amounts", r.venue)))
	}

	return amounts, nil
}
