// Package pricing implements the pricing bounded context: router quotes,
// gas price and the ETH/USD rate.
package pricing

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	blockchainDI "github.com/fd1az/dex-arb-monitor/business/blockchain/di"
	"github.com/fd1az/dex-arb-monitor/business/pricing/app"
	pricingDI "github.com/fd1az/dex-arb-monitor/business/pricing/di"
	"github.com/fd1az/dex-arb-monitor/business/pricing/domain"
	"github.com/fd1az/dex-arb-monitor/business/pricing/infra/erc20"
	"github.com/fd1az/dex-arb-monitor/business/pricing/infra/ethprice"
	"github.com/fd1az/dex-arb-monitor/business/pricing/infra/router"
	"github.com/fd1az/dex-arb-monitor/internal/config"
	"github.com/fd1az/dex-arb-monitor/internal/di"
	"github.com/fd1az/dex-arb-monitor/internal/logger"
	"github.com/fd1az/dex-arb-monitor/internal/monolith"
)

// Module implements the pricing bounded context.
type Module struct{}

// RegisterServices registers all pricing services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, pricingDI.UniRouter, func(sr di.ServiceRegistry) app.AmountsQuoter {
		return newRouter(sr, domain.VenueUni, func(cfg *config.Config) common.Address {
			return cfg.Contracts.UniRouterAddress()
		})
	})

	di.RegisterToken(c, pricingDI.SushiRouter, func(sr di.ServiceRegistry) app.AmountsQuoter {
		return newRouter(sr, domain.VenueSushi, func(cfg *config.Config) common.Address {
			return cfg.Contracts.SushiRouterAddress()
		})
	})

	di.RegisterToken(c, pricingDI.SymbolResolver, func(sr di.ServiceRegistry) app.SymbolResolver {
		log := sr.Get(monolith.LoggerService).(logger.LoggerInterface)

		resolver, err := erc20.NewSymbolResolver(blockchainDI.GetBlockchainService(sr), log)
		if err != nil {
			panic("failed to create symbol resolver: " + err.Error())
		}
		return resolver
	})

	di.RegisterToken(c, pricingDI.ETHPriceSource, func(sr di.ServiceRegistry) app.ETHPriceSource {
		cfg := sr.Get(monolith.ConfigService).(*config.Config)
		log := sr.Get(monolith.LoggerService).(logger.LoggerInterface)

		if cfg.ETHPrice.Source == "chainlink" {
			src, err := ethprice.NewChainlink(
				common.HexToAddress(cfg.ETHPrice.ChainlinkFeed),
				cfg.ETHPrice.CacheTTL,
				cfg.ETHPrice.MaxAge,
				blockchainDI.GetBlockchainService(sr),
				log,
			)
			if err != nil {
				panic("failed to create chainlink price source: " + err.Error())
			}
			return src
		}

		src, err := ethprice.NewStatic(decimal.NewFromFloat(cfg.ETHPrice.StaticUSD))
		if err != nil {
			panic("failed to create static price source: " + err.Error())
		}
		return src
	})

	// Register Oracle (public - exposed to other modules)
	di.RegisterToken(c, pricingDI.Oracle, func(sr di.ServiceRegistry) *app.Oracle {
		log := sr.Get(monolith.LoggerService).(logger.LoggerInterface)
		return app.NewOracle(
			pricingDI.GetUniRouter(sr),
			pricingDI.GetSushiRouter(sr),
			blockchainDI.GetBlockchainService(sr),
			log,
		)
	})

	return nil
}

func newRouter(sr di.ServiceRegistry, venue domain.Venue, addr func(*config.Config) common.Address) app.AmountsQuoter {
	cfg := sr.Get(monolith.ConfigService).(*config.Config)
	log := sr.Get(monolith.LoggerService).(logger.LoggerInterface)

	r, err := router.New(venue, addr(cfg), blockchainDI.GetBlockchainService(sr), log)
	if err != nil {
		panic("failed to create " + string(venue) + " router: " + err.Error())
	}
	return r
}

// Startup checks the ETH/USD source answers so a bad feed shows up early.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()

	usd, err := pricingDI.GetETHPriceSource(mono.Services()).ETHUSD(ctx)
	if err != nil {
		log.Warn(ctx, "eth price source unavailable", "source", cfg.ETHPrice.Source, "error", err)
	}

	log.Info(ctx, "pricing module started",
		"uni_router", cfg.Contracts.UniRouter,
		"sushi_router", cfg.Contracts.SushiRouter,
		"eth_price_source", cfg.ETHPrice.Source,
		"eth_usd", usd.String())
	return nil
}
