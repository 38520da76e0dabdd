package app

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/dex-arb-monitor/business/arbitrage/domain"
	bcdomain "github.com/fd1az/dex-arb-monitor/business/blockchain/domain"
	pricingDomain "github.com/fd1az/dex-arb-monitor/business/pricing/domain"
	"github.com/fd1az/dex-arb-monitor/internal/apperror"
	"github.com/fd1az/dex-arb-monitor/internal/logger"
)

const (
	tracerName = "github.com/fd1az/dex-arb-monitor/business/arbitrage/app"
	meterName  = "github.com/fd1az/dex-arb-monitor/business/arbitrage/app"
)

var _ TradeExecutor = (*Executor)(nil)

// ExecutorConfig configures trade submission.
type ExecutorConfig struct {
	// ProfitDecimals scales the event's raw profit; 18 reads it as ether.
	ProfitDecimals uint8
	// GasLimit of zero lets the chain client estimate.
	GasLimit uint64
}

type executorMetrics struct {
	submitted metric.Int64Counter
	outcomes  metric.Int64Counter
	duration  metric.Float64Histogram
}

// Executor submits executeArbitrage and reads the outcome from the receipt.
type Executor struct {
	contract ArbitrageContract
	sender   TxSender
	config   ExecutorConfig
	logger   logger.LoggerInterface

	tracer  trace.Tracer
	metrics *executorMetrics
}

func NewExecutor(contract ArbitrageContract, sender TxSender, cfg ExecutorConfig, log logger.LoggerInterface) (*Executor, error) {
	e := &Executor{
		contract: contract,
		sender:   sender,
		config:   cfg,
		logger:   log,
		tracer:   otel.Tracer(tracerName),
	}
	if err := e.initMetrics(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Executor) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	e.metrics = &executorMetrics{}

	e.metrics.submitted, err = meter.Int64Counter(
		"arb_trades_submitted_total",
		metric.WithDescription("Transactions broadcast to the arbitrage contract"),
	)
	if err != nil {
		return err
	}

	e.metrics.outcomes, err = meter.Int64Counter(
		"arb_trade_outcomes_total",
		metric.WithDescription("Completed trades by result"),
	)
	if err != nil {
		return err
	}

	e.metrics.duration, err = meter.Float64Histogram(
		"arb_trade_duration_seconds",
		metric.WithDescription("Time from submission to receipt"),
		metric.WithUnit("s"),
	)
	return err
}

// Execute submits one trade with the quote's gas price and awaits its
// receipt once. It never returns an error: failures land in the outcome.
// Cancelling ctx does not abandon a started trade; the wait is bounded by
// the sender's confirmation timeout.
func (e *Executor) Execute(ctx context.Context, quote *pricingDomain.PriceQuote, pair pricingDomain.PairConfig) domain.TradeOutcome {
	ctx = context.WithoutCancel(ctx)
	ctx, span := e.tracer.Start(ctx, "arbitrage.execute",
		trace.WithAttributes(
			attribute.String("pair", pair.String()),
			attribute.String("amount", quote.RawAmount.String()),
			attribute.String("gas_price_gwei", quote.GasPriceGwei.String()),
		),
	)
	defer span.End()

	start := time.Now()
	outcome := e.execute(ctx, quote, pair)
	e.metrics.duration.Record(ctx, time.Since(start).Seconds())

	result := "success"
	if !outcome.Succeeded {
		result = "failure"
		span.RecordError(outcome.Err)
		span.SetStatus(codes.Error, "trade failed")
	} else {
		span.SetStatus(codes.Ok, "trade mined")
	}
	span.SetAttributes(attribute.String("tx_hash", outcome.TxHash.Hex()))
	e.metrics.outcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("pair", pair.String()),
		attribute.String("result", result),
	))

	return outcome
}

func (e *Executor) execute(ctx context.Context, quote *pricingDomain.PriceQuote, pair pricingDomain.PairConfig) domain.TradeOutcome {
	data, err := e.contract.PackExecute(quote.Path, quote.RawAmount)
	if err != nil {
		return failed(apperror.New(apperror.CodeTradeSubmitFailed,
			apperror.WithCause(err),
			apperror.WithContext("pack executeArbitrage")))
	}

	hash, err := e.sender.Send(ctx, bcdomain.TxRequest{
		To:       e.contract.Address(),
		Data:     data,
		GasPrice: quote.GasPriceWei,
		GasLimit: e.config.GasLimit,
	})
	if err != nil {
		e.logger.Error(ctx, "trade submission failed", "pair", pair.String(), "error", err)
		return failed(apperror.Wrap(err, apperror.CodeTradeSubmitFailed, pair.String()))
	}
	e.metrics.submitted.Add(ctx, 1)

	e.logger.Info(ctx, "trade submitted", "pair", pair.String(), "tx_hash", hash.Hex())

	receipt, err := e.sender.WaitReceipt(ctx, hash)
	if err != nil {
		e.logger.Error(ctx, "trade confirmation failed", "tx_hash", hash.Hex(), "error", err)
		out := failed(err)
		out.TxHash = hash
		return out
	}

	if !receipt.Succeeded {
		e.logger.Warn(ctx, "trade reverted", "tx_hash", hash.Hex(), "gas_used", receipt.GasUsed)
		return domain.TradeOutcome{
			TxHash:          hash,
			GasUsed:         receipt.GasUsed,
			ActualProfitUSD: decimal.Zero,
			Err: apperror.New(apperror.CodeTradeReverted,
				apperror.WithContext(hash.Hex())),
		}
	}

	profit := decimal.Zero
	if ev, ok := e.contract.DecodeExecuted(receipt.Logs); ok {
		profit = pricingDomain.ToDecimal(ev.Profit, e.config.ProfitDecimals)
	} else {
		e.logger.Warn(ctx, "no ArbitrageExecuted event in receipt", "tx_hash", hash.Hex())
	}

	return domain.TradeOutcome{
		Succeeded:       true,
		TxHash:          hash,
		GasUsed:         receipt.GasUsed,
		ActualProfitUSD: profit,
	}
}

func failed(err error) domain.TradeOutcome {
	return domain.TradeOutcome{ActualProfitUSD: decimal.Zero, Err: err}
}
