// Package ethprice supplies the ETH/USD rate used to cost gas.
package ethprice

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	bcapp "github.com/fd1az/dex-arb-monitor/business/blockchain/app"
	"github.com/fd1az/dex-arb-monitor/business/pricing/app"
	"github.com/fd1az/dex-arb-monitor/internal/apperror"
	"github.com/fd1az/dex-arb-monitor/internal/cache"
	"github.com/fd1az/dex-arb-monitor/internal/logger"
)

const tracerName = "github.com/fd1az/dex-arb-monitor/business/pricing/infra/ethprice"

var (
	_ app.ETHPriceSource = (*Static)(nil)
	_ app.ETHPriceSource = (*Chainlink)(nil)
)

// Static returns a fixed rate.
type Static struct {
	usd decimal.Decimal
}

func NewStatic(usd decimal.Decimal) (*Static, error) {
	if !usd.IsPositive() {
		return nil, apperror.New(apperror.CodeInvalidInput,
			apperror.WithContext("static ETH/USD price must be positive"))
	}
	return &Static{usd: usd}, nil
}

func (s *Static) ETHUSD(context.Context) (decimal.Decimal, error) {
	return s.usd, nil
}

const aggregatorABI = `[
	{"inputs":[],"name":"decimals","outputs":[{"internalType":"uint8","name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"latestRoundData","outputs":[
		{"internalType":"uint80","name":"roundId","type":"uint80"},
		{"internalType":"int256","name":"answer","type":"int256"},
		{"internalType":"uint256","name":"startedAt","type":"uint256"},
		{"internalType":"uint256","name":"updatedAt","type":"uint256"},
		{"internalType":"uint80","name":"answeredInRound","type":"uint80"}
	],"stateMutability":"view","type":"function"}
]`

const priceKey = "ETH/USD"

// Chainlink reads an AggregatorV3 feed and caches the answer for ttl.
// Rounds older than maxAge are rejected; zero accepts any age.
type Chainlink struct {
	feed   common.Address
	maxAge time.Duration
	now    func() time.Time
	abi    abi.ABI
	chain  bcapp.ChainReader
	cache  *cache.Cache[string, decimal.Decimal]
	logger logger.LoggerInterface
	tracer trace.Tracer

	mu       sync.Mutex
	decimals *uint8
}

func NewChainlink(feed common.Address, ttl, maxAge time.Duration, chain bcapp.ChainReader, log logger.LoggerInterface) (*Chainlink, error) {
	parsed, err := abi.JSON(strings.NewReader(aggregatorABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse aggregator ABI: %w", err)
	}
	return &Chainlink{
		feed:   feed,
		maxAge: maxAge,
		now:    time.Now,
		abi:    parsed,
		chain:  chain,
		cache:  cache.New[string, decimal.Decimal](ttl, cache.WithSize(1)),
		logger: log,
		tracer: otel.Tracer(tracerName),
	}, nil
}

func (c *Chainlink) ETHUSD(ctx context.Context) (decimal.Decimal, error) {
	if v, ok := c.cache.Get(ctx, priceKey); ok {
		return v, nil
	}

	ctx, span := c.tracer.Start(ctx, "ethprice.chainlink",
		trace.WithAttributes(attribute.String("feed", c.feed.Hex())))
	defer span.End()

	price, err := c.read(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "feed read failed")
		return decimal.Zero, apperror.New(apperror.CodePriceFeedFailed,
			apperror.WithCause(err),
			apperror.WithContext(c.feed.Hex()))
	}

	span.SetAttributes(attribute.String("eth_usd", price.String()))
	span.SetStatus(codes.Ok, "price read")
	c.cache.Set(ctx, priceKey, price)

	c.logger.Debug(ctx, "eth price refreshed", "feed", c.feed.Hex(), "usd", price.String())
	return price, nil
}

func (c *Chainlink) read(ctx context.Context) (decimal.Decimal, error) {
	dec, err := c.feedDecimals(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	out, err := c.call(ctx, "latestRoundData")
	if err != nil {
		return decimal.Zero, err
	}
	if len(out) < 4 {
		return decimal.Zero, fmt.Errorf("latestRoundData: got %d values", len(out))
	}
	answer, ok := out[1].(*big.Int)
	if !ok || answer.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("latestRoundData: non-positive answer")
	}
	if c.maxAge > 0 {
		updatedAt, ok := out[3].(*big.Int)
		if !ok || !updatedAt.IsInt64() {
			return decimal.Zero, fmt.Errorf("latestRoundData: bad updatedAt")
		}
		age := c.now().Sub(time.Unix(updatedAt.Int64(), 0))
		if age > c.maxAge {
			return decimal.Zero, fmt.Errorf("latestRoundData: answer is %s old, max %s", age.Truncate(time.Second), c.maxAge)
		}
	}
	return decimal.NewFromBigInt(answer, -int32(dec)), nil
}

func (c *Chainlink) feedDecimals(ctx context.Context) (uint8, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.decimals != nil {
		return *c.decimals, nil
	}

	out, err := c.call(ctx, "decimals")
	if err != nil {
		return 0, err
	}
	if len(out) != 1 {
		return 0, fmt.Errorf("decimals: got %d values", len(out))
	}
	d, ok := out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("decimals: unexpected type %T", out[0])
	}
	c.decimals = &d
	return d, nil
}

func (c *Chainlink) call(ctx context.Context, method string) ([]any, error) {
	data, err := c.abi.Pack(method)
	if err != nil {
		return nil, err
	}
	raw, err := c.chain.CallContract(ctx, c.feed, data)
	if err != nil {
		return nil, err
	}
	return c.abi.Unpack(method, raw)
}
