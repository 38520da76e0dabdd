package app

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/dex-arb-monitor/business/pricing/domain"
	"github.com/fd1az/dex-arb-monitor/internal/apperror"
	"github.com/fd1az/dex-arb-monitor/internal/logger"
)

// Oracle quotes one pair on both routers plus the current gas price.
type Oracle struct {
	uni    AmountsQuoter
	sushi  AmountsQuoter
	gas    GasPriceReader
	logger logger.LoggerInterface
	now    func() time.Time
}

// NewOracle creates a new Oracle.
func NewOracle(uni, sushi AmountsQuoter, gas GasPriceReader, log logger.LoggerInterface) *Oracle {
	return &Oracle{
		uni:    uni,
		sushi:  sushi,
		gas:    gas,
		logger: log,
		now:    time.Now,
	}
}

// GetQuote fetches both router outputs for pair.InputAmount over pair.Path().
// Any failure is returned as CodeQuoteFailed wrapping a *domain.QuoteFailure.
func (o *Oracle) GetQuote(ctx context.Context, pair domain.PairConfig) (*domain.PriceQuote, error) {
	path := pair.Path()

	uniOut, err := o.lastAmount(ctx, o.uni, pair, path)
	if err != nil {
		return nil, o.fail(pair, o.uni.Venue(), err)
	}

	sushiOut, err := o.lastAmount(ctx, o.sushi, pair, path)
	if err != nil {
		return nil, o.fail(pair, o.sushi.Venue(), err)
	}

	gp, err := o.gas.GasPrice(ctx)
	if err != nil {
		return nil, o.fail(pair, domain.VenueGas, err)
	}

	q := &domain.PriceQuote{
		UniPrice:     domain.ToDecimal(uniOut, pair.QuoteDecimals),
		SushiPrice:   domain.ToDecimal(sushiOut, pair.QuoteDecimals),
		RawAmount:    new(big.Int).Set(pair.InputAmount),
		Path:         path,
		GasPriceGwei: gp.Gwei(),
		GasPriceWei:  new(big.Int).Set(gp.Wei),
		FetchedAt:    o.now(),
	}

	o.logger.Debug(ctx, "quote fetched",
		"pair", pair.String(),
		"uni_raw", uniOut.String(),
		"sushi_raw", sushiOut.String(),
		"gas_gwei", q.GasPriceGwei.String())

	return q, nil
}

func (o *Oracle) lastAmount(ctx context.Context, q AmountsQuoter, pair domain.PairConfig, path []common.Address) (*big.Int, error) {
	amounts, err := q.AmountsOut(ctx, pair.InputAmount, path)
	if err != nil {
		return nil, err
	}
	if len(amounts) < len(path) {
		return nil, apperror.New(apperror.CodeInvalidQuote,
			apperror.WithContext(fmt.Sprintf("got %d amounts for %d-hop path", len(amounts), len(path))))
	}
	last := amounts[len(amounts)-1]
	if last == nil || last.Sign() < 0 {
		return nil, apperror.New(apperror.CodeInvalidQuote, apperror.WithContext("missing output amount"))
	}
	return last, nil
}

func (o *Oracle) fail(pair domain.PairConfig, source domain.Venue, cause error) error {
	return apperror.New(apperror.CodeQuoteFailed,
		apperror.WithContext(pair.String()),
		apperror.WithCause(&domain.QuoteFailure{Pair: pair.String(), Source: source, Cause: cause}))
}
