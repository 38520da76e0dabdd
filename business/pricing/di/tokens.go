// Package di contains dependency injection tokens for the pricing context.
package di

import (
	"github.com/fd1az/dex-arb-monitor/business/pricing/app"
	"github.com/fd1az/dex-arb-monitor/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Oracle         = di.NewToken[*app.Oracle]("pricing.Oracle")
	SymbolResolver = di.NewToken[app.SymbolResolver]("pricing.SymbolResolver")
	ETHPriceSource = di.NewToken[app.ETHPriceSource]("pricing.ETHPriceSource")
)

// Private dependency tokens - internal to pricing module
var (
	UniRouter   = di.NewToken[app.AmountsQuoter]("pricing:uniRouter")
	SushiRouter = di.NewToken[app.AmountsQuoter]("pricing:sushiRouter")
)

// Helper functions for type-safe access
func GetOracle(c di.ServiceRegistry) *app.Oracle {
	return di.GetToken(c, Oracle)
}

func GetSymbolResolver(c di.ServiceRegistry) app.SymbolResolver {
	return di.GetToken(c, SymbolResolver)
}

func GetETHPriceSource(c di.ServiceRegistry) app.ETHPriceSource {
	return di.GetToken(c, ETHPriceSource)
}

func GetUniRouter(c di.ServiceRegistry) app.AmountsQuoter {
	return di.GetToken(c, UniRouter)
}

func GetSushiRouter(c di.ServiceRegistry) app.AmountsQuoter {
	return di.GetToken(c, SushiRouter)
}
