// Package blockchain implements the chain access bounded context.
package blockchain

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"

	"github.com/fd1az/dex-arb-monitor/business/blockchain/app"
	blockchainDI "github.com/fd1az/dex-arb-monitor/business/blockchain/di"
	"github.com/fd1az/dex-arb-monitor/business/blockchain/domain"
	"github.com/fd1az/dex-arb-monitor/business/blockchain/infra/ethereum"
	"github.com/fd1az/dex-arb-monitor/internal/config"
	"github.com/fd1az/dex-arb-monitor/internal/di"
	"github.com/fd1az/dex-arb-monitor/internal/logger"
	"github.com/fd1az/dex-arb-monitor/internal/monolith"
	"github.com/fd1az/dex-arb-monitor/internal/ratelimit"
)

// Module implements the blockchain bounded context.
type Module struct{}

// RegisterServices registers all blockchain services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// One limiter paces every RPC the process makes.
	di.RegisterToken(c, blockchainDI.RPCLimiter, func(sr di.ServiceRegistry) *ratelimit.Limiter {
		cfg := sr.Get(monolith.ConfigService).(*config.Config)
		return ratelimit.New(cfg.Ethereum.RequestsPerSecond, cfg.Ethereum.RequestBurst)
	})

	di.RegisterToken(c, blockchainDI.ChainClient, func(sr di.ServiceRegistry) *ethereum.Client {
		cfg := sr.Get(monolith.ConfigService).(*config.Config)
		log := sr.Get(monolith.LoggerService).(logger.LoggerInterface)
		eth := sr.Get(monolith.EthClientService).(*ethclient.Client)

		client, err := ethereum.NewClient(eth, ethereum.ClientConfig{
			ChainID:             cfg.Ethereum.ChainID,
			PrivateKeyHex:       cfg.Ethereum.PrivateKey,
			ConfirmationTimeout: cfg.Ethereum.ConfirmationTimeout,
			ReceiptPollInterval: cfg.Ethereum.ReceiptPollInterval,
			DefaultGasLimit:     cfg.Ethereum.GasLimit,
		}, blockchainDI.GetRPCLimiter(sr), log)
		if err != nil {
			panic("failed to create chain client: " + err.Error())
		}
		return client
	})

	di.RegisterToken(c, blockchainDI.GasOracle, func(sr di.ServiceRegistry) *ethereum.GasOracle {
		cfg := sr.Get(monolith.ConfigService).(*config.Config)
		log := sr.Get(monolith.LoggerService).(logger.LoggerInterface)
		eth := sr.Get(monolith.EthClientService).(*ethclient.Client)

		oracleCfg := ethereum.DefaultGasOracleConfig()
		oracleCfg.CacheTTL = cfg.Ethereum.GasPriceCacheTTL
		if cfg.Ethereum.MaxGasPriceGwei > 0 {
			oracleCfg.MaxGasPrice = domain.GweiToWei(decimal.NewFromFloat(cfg.Ethereum.MaxGasPriceGwei))
		}

		oracle, err := ethereum.NewGasOracle(eth, oracleCfg, blockchainDI.GetRPCLimiter(sr), log)
		if err != nil {
			panic("failed to create gas oracle: " + err.Error())
		}
		return oracle
	})

	// Register BlockchainService (public - exposed to other modules)
	di.RegisterToken(c, blockchainDI.BlockchainService, func(sr di.ServiceRegistry) *app.BlockchainService {
		client := blockchainDI.GetChainClient(sr)
		return app.NewBlockchainService(client, blockchainDI.GetGasOracle(sr), client)
	})

	return nil
}

// Startup resolves the chain id and checks the node answers.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	client := blockchainDI.GetChainClient(mono.Services())
	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("blockchain startup: %w", err)
	}

	svc := blockchainDI.GetBlockchainService(mono.Services())
	block, err := svc.BlockNumber(ctx)
	if err != nil {
		log.Warn(ctx, "initial block number read failed", "error", err)
	}

	sender, canSign := client.Sender()
	if !canSign {
		log.Warn(ctx, "no private key configured, trade submissions will fail")
	}

	log.Info(ctx, "blockchain module started",
		"chain_id", client.ChainID().String(),
		"block", block,
		"sender", sender.Hex(),
		"can_sign", canSign)
	return nil
}
