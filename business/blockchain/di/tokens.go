// Package di contains dependency injection tokens for the blockchain context.
package di

import (
	"github.com/fd1az/dex-arb-monitor/business/blockchain/app"
	"github.com/fd1az/dex-arb-monitor/business/blockchain/infra/ethereum"
	"github.com/fd1az/dex-arb-monitor/internal/di"
	"github.com/fd1az/dex-arb-monitor/internal/ratelimit"
)

// Public service tokens - exposed to other modules
var (
	BlockchainService = di.NewToken[*app.BlockchainService]("blockchain.BlockchainService")
)

// Private dependency tokens - internal to blockchain module
var (
	RPCLimiter  = di.NewToken[*ratelimit.Limiter]("blockchain:rpcLimiter")
	ChainClient = di.NewToken[*ethereum.Client]("blockchain:chainClient")
	GasOracle   = di.NewToken[*ethereum.GasOracle]("blockchain:gasOracle")
)

func GetBlockchainService(c di.ServiceRegistry) *app.BlockchainService {
	return di.GetToken(c, BlockchainService)
}

func GetRPCLimiter(c di.ServiceRegistry) *ratelimit.Limiter {
	return di.GetToken(c, RPCLimiter)
}

func GetChainClient(c di.ServiceRegistry) *ethereum.Client {
	return di.GetToken(c, ChainClient)
}

func GetGasOracle(c di.ServiceRegistry) *ethereum.GasOracle {
	return di.GetToken(c, GasOracle)
}
