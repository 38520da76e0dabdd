package ethereum

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	goeth "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/dex-arb-monitor/business/blockchain/app"
	"github.com/fd1az/dex-arb-monitor/business/blockchain/domain"
	"github.com/fd1az/dex-arb-monitor/internal/apperror"
	"github.com/fd1az/dex-arb-monitor/internal/circuitbreaker"
	"github.com/fd1az/dex-arb-monitor/internal/logger"
	"github.com/fd1az/dex-arb-monitor/internal/ratelimit"
)

// ClientConfig holds configuration for the chain client.
type ClientConfig struct {
	ChainID             uint64 // 0 resolves from the node on Connect
	PrivateKeyHex       string
	ConfirmationTimeout time.Duration
	ReceiptPollInterval time.Duration
	DefaultGasLimit     uint64 // used when estimation fails
}

type clientMetrics struct {
	rpcCalls     metric.Int64Counter
	rpcErrors    metric.Int64Counter
	rpcLatency   metric.Float64Histogram
	txSubmitted  metric.Int64Counter
	receiptWaits metric.Float64Histogram
}

// Client reads chain state and submits signed legacy transactions.
type Client struct {
	config  ClientConfig
	backend Backend
	logger  logger.LoggerInterface
	limiter *ratelimit.Limiter

	// headCB guards node-level reads, callCB guards eth_call.
	headCB *circuitbreaker.CircuitBreaker[any]
	callCB *circuitbreaker.CircuitBreaker[any]

	key  *ecdsa.PrivateKey
	from common.Address

	chainMu sync.RWMutex
	chainID *big.Int

	tracer  trace.Tracer
	metrics *clientMetrics
}

var (
	_ app.ChainReader = (*Client)(nil)
	_ app.TxSender    = (*Client)(nil)
)

// ParsePrivateKey accepts a hex key with or without the 0x prefix.
func ParsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, apperror.New(apperror.CodeInvalidPrivateKey, apperror.WithCause(err))
	}
	return key, nil
}

// NewClient creates a chain client. An empty private key yields a read-only
// client whose Send always fails.
func NewClient(backend Backend, cfg ClientConfig, limiter *ratelimit.Limiter, log logger.LoggerInterface) (*Client, error) {
	c := &Client{
		config:  cfg,
		backend: backend,
		logger:  log,
		limiter: limiter,
		tracer:  otel.Tracer(tracerName),
	}

	if cfg.ChainID != 0 {
		c.chainID = new(big.Int).SetUint64(cfg.ChainID)
	}

	if cfg.PrivateKeyHex != "" {
		key, err := ParsePrivateKey(cfg.PrivateKeyHex)
		if err != nil {
			return nil, err
		}
		c.key = key
		c.from = crypto.PubkeyToAddress(key.PublicKey)
	}

	if err := c.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	onChange := func(name string, from, to circuitbreaker.State) {
		log.Warn(context.Background(), "circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	}

	headCfg := circuitbreaker.DefaultConfig("chain-head")
	headCfg.OnStateChange = onChange
	c.headCB = circuitbreaker.New[any](headCfg)

	callCfg := circuitbreaker.DefaultConfig("chain-call")
	callCfg.IsSuccessful = callHealthy
	callCfg.OnStateChange = onChange
	c.callCB = circuitbreaker.New[any](callCfg)

	return c, nil
}

func (c *Client) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	c.metrics = &clientMetrics{}

	c.metrics.rpcCalls, err = meter.Int64Counter(
		"rpc_calls_total",
		metric.WithDescription("JSON-RPC calls by method"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return err
	}

	c.metrics.rpcErrors, err = meter.Int64Counter(
		"rpc_errors_total",
		metric.WithDescription("Failed JSON-RPC calls by method"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	c.metrics.rpcLatency, err = meter.Float64Histogram(
		"rpc_latency_ms",
		metric.WithDescription("JSON-RPC call latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	c.metrics.txSubmitted, err = meter.Int64Counter(
		"tx_submitted_total",
		metric.WithDescription("Signed transactions broadcast"),
		metric.WithUnit("{tx}"),
	)
	if err != nil {
		return err
	}

	c.metrics.receiptWaits, err = meter.Float64Histogram(
		"tx_confirmation_seconds",
		metric.WithDescription("Time from broadcast to receipt"),
		metric.WithUnit("s"),
	)
	return err
}

// Connect resolves the chain id when it was not configured.
func (c *Client) Connect(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, "chain.connect")
	defer span.End()

	c.chainMu.RLock()
	known := c.chainID != nil
	c.chainMu.RUnlock()
	if known {
		span.SetStatus(codes.Ok, "configured")
		return nil
	}

	id, err := readCall(ctx, c, c.headCB, "eth_chainId", func(ctx context.Context) (*big.Int, error) {
		return c.backend.ChainID(ctx)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "chain id failed")
		return apperror.New(apperror.CodeEthereumConnectionFailed,
			apperror.WithCause(err),
			apperror.WithContext("resolve chain id"))
	}

	c.chainMu.Lock()
	c.chainID = id
	c.chainMu.Unlock()

	span.SetAttributes(attribute.String("chain_id", id.String()))
	span.SetStatus(codes.Ok, "connected")
	c.logger.Info(ctx, "chain id resolved", "chain_id", id.String())

	return nil
}

// ChainID returns the chain id or nil before Connect.
func (c *Client) ChainID() *big.Int {
	c.chainMu.RLock()
	defer c.chainMu.RUnlock()
	if c.chainID == nil {
		return nil
	}
	return new(big.Int).Set(c.chainID)
}

// revertCode is the JSON-RPC error code nodes use for a reverted eth_call.
const revertCode = 3

// callHealthy reports whether an eth_call error still proves the endpoint
// is healthy. Reverts are the contract answering; caller cancellation says
// nothing about the node.
func callHealthy(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == revertCode {
		return true
	}
	return strings.Contains(err.Error(), "execution reverted")
}

// readCall paces, guards and instruments one read-only RPC.
func readCall[T any](ctx context.Context, c *Client, cb *circuitbreaker.CircuitBreaker[any], method string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	attrs := metric.WithAttributes(attribute.String("method", method))

	if err := c.limiter.Wait(ctx); err != nil {
		return zero, apperror.New(apperror.CodeRateLimitExceeded,
			apperror.WithCause(err),
			apperror.WithContext(method))
	}

	start := time.Now()
	c.metrics.rpcCalls.Add(ctx, 1, attrs)

	v, err := cb.Execute(func() (any, error) {
		return fn(ctx)
	})
	c.metrics.rpcLatency.Record(ctx, float64(time.Since(start).Microseconds())/1000, attrs)
	if err != nil {
		c.metrics.rpcErrors.Add(ctx, 1, attrs)
		return zero, err
	}

	out, ok := v.(T)
	if !ok {
		return zero, apperror.New(apperror.CodeInternalError,
			apperror.WithContext(fmt.Sprintf("%s returned %T", method, v)))
	}
	return out, nil
}

// BlockNumber returns the latest block number.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	ctx, span := c.tracer.Start(ctx, "chain.block_number")
	defer span.End()

	n, err := readCall(ctx, c, c.headCB, "eth_blockNumber", c.backend.BlockNumber)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "block number failed")
		return 0, apperror.Wrap(err, apperror.CodeEthereumRPCError, "eth_blockNumber")
	}

	span.SetAttributes(attribute.Int64("block", int64(n)))
	return n, nil
}

// CallContract executes a read-only call against the latest block.
func (c *Client) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "chain.call",
		trace.WithAttributes(
			attribute.String("to", to.Hex()),
			attribute.Int("data_len", len(data)),
		),
	)
	defer span.End()

	msg := goeth.CallMsg{To: &to, Data: data}
	out, err := readCall(ctx, c, c.callCB, "eth_call", func(ctx context.Context) ([]byte, error) {
		return c.backend.CallContract(ctx, msg, nil)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "call failed")
		return nil, apperror.Wrap(err, apperror.CodeEthereumRPCError, "eth_call "+to.Hex())
	}

	span.SetStatus(codes.Ok, "called")
	return out, nil
}

// Sender returns the signing address, if a key is configured.
func (c *Client) Sender() (common.Address, bool) {
	return c.from, c.key != nil
}

// Send signs req as a legacy transaction at req.GasPrice and broadcasts it.
func (c *Client) Send(ctx context.Context, req domain.TxRequest) (common.Hash, error) {
	ctx, span := c.tracer.Start(ctx, "chain.send",
		trace.WithAttributes(attribute.String("to", req.To.Hex())),
	)
	defer span.End()

	if c.key == nil {
		err := apperror.New(apperror.CodeSignerUnavailable)
		span.RecordError(err)
		return common.Hash{}, err
	}

	chainID := c.ChainID()
	if chainID == nil {
		err := apperror.New(apperror.CodeInvalidState, apperror.WithContext("chain id unknown, call Connect first"))
		span.RecordError(err)
		return common.Hash{}, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		span.RecordError(err)
		return common.Hash{}, apperror.New(apperror.CodeRateLimitExceeded, apperror.WithCause(err))
	}

	nonce, err := c.backend.PendingNonceAt(ctx, c.from)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "nonce failed")
		return common.Hash{}, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithCause(err),
			apperror.WithContext("pending nonce"))
	}

	gasLimit := req.GasLimit
	if gasLimit == 0 {
		gasLimit = c.estimateGas(ctx, req)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: req.GasPrice,
		Gas:      gasLimit,
		To:       &req.To,
		Value:    new(big.Int),
		Data:     req.Data,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), c.key)
	if err != nil {
		span.RecordError(err)
		return common.Hash{}, apperror.New(apperror.CodeInternalError,
			apperror.WithCause(err),
			apperror.WithContext("sign transaction"))
	}

	if err := c.backend.SendTransaction(ctx, signed); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "broadcast failed")
		return common.Hash{}, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithCause(err),
			apperror.WithContext("eth_sendRawTransaction"))
	}

	c.metrics.txSubmitted.Add(ctx, 1)
	span.SetAttributes(
		attribute.String("tx_hash", signed.Hash().Hex()),
		attribute.Int64("nonce", int64(nonce)),
		attribute.Int64("gas_limit", int64(gasLimit)),
	)
	span.SetStatus(codes.Ok, "sent")

	c.logger.Info(ctx, "transaction broadcast",
		"tx_hash", signed.Hash().Hex(),
		"nonce", nonce,
		"gas_limit", gasLimit,
		"gas_price_wei", req.GasPrice.String())

	return signed.Hash(), nil
}

// estimateGas adds a 10% margin to eth_estimateGas and falls back to the
// configured default when estimation fails.
func (c *Client) estimateGas(ctx context.Context, req domain.TxRequest) uint64 {
	gas, err := c.backend.EstimateGas(ctx, goeth.CallMsg{
		From:     c.from,
		To:       &req.To,
		GasPrice: req.GasPrice,
		Data:     req.Data,
	})
	if err != nil {
		c.logger.Warn(ctx, "gas estimation failed, using default",
			"error", err, "default_gas", c.config.DefaultGasLimit)
		return c.config.DefaultGasLimit
	}
	return withMargin(gas)
}

func withMargin(gas uint64) uint64 {
	return gas + gas/10
}

// WaitReceipt polls for the receipt of hash until it is mined or the
// confirmation timeout expires.
func (c *Client) WaitReceipt(ctx context.Context, hash common.Hash) (*domain.Receipt, error) {
	ctx, span := c.tracer.Start(ctx, "chain.wait_receipt",
		trace.WithAttributes(attribute.String("tx_hash", hash.Hex())),
	)
	defer span.End()

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.config.ConfirmationTimeout)
	defer cancel()

	ticker := time.NewTicker(c.config.ReceiptPollInterval)
	defer ticker.Stop()

	for {
		r, err := c.backend.TransactionReceipt(ctx, hash)
		switch {
		case err == nil:
			c.metrics.receiptWaits.Record(ctx, time.Since(start).Seconds())
			receipt := domain.ReceiptFromTypes(r)
			span.SetAttributes(
				attribute.Bool("succeeded", receipt.Succeeded),
				attribute.Int64("gas_used", int64(receipt.GasUsed)),
			)
			span.SetStatus(codes.Ok, "mined")
			return receipt, nil
		case errors.Is(err, goeth.NotFound):
		case ctx.Err() != nil:
		default:
			span.RecordError(err)
			span.SetStatus(codes.Error, "receipt failed")
			return nil, apperror.New(apperror.CodeEthereumRPCError,
				apperror.WithCause(err),
				apperror.WithContext("eth_getTransactionReceipt "+hash.Hex()))
		}

		select {
		case <-ctx.Done():
			err := apperror.New(apperror.CodeReceiptTimeout,
				apperror.WithCause(ctx.Err()),
				apperror.WithContext(hash.Hex()))
			span.RecordError(err)
			span.SetStatus(codes.Error, "timeout")
			return nil, err
		case <-ticker.C:
		}
	}
}
