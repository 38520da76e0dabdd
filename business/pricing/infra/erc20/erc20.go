// Package erc20 resolves token display symbols for logging.
package erc20

import (
	"context"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	bcapp "github.com/fd1az/dex-arb-monitor/business/blockchain/app"
	"github.com/fd1az/dex-arb-monitor/business/pricing/app"
	"github.com/fd1az/dex-arb-monitor/internal/cache"
	"github.com/fd1az/dex-arb-monitor/internal/logger"
)

const symbolABI = `[{"inputs":[],"name":"symbol","outputs":[{"internalType":"string","name":"","type":"string"}],"stateMutability":"view","type":"function"}]`

var errEmptySymbol = errors.New("empty symbol")

var _ app.SymbolResolver = (*SymbolResolver)(nil)

// SymbolResolver calls symbol() once per token and remembers the answer.
type SymbolResolver struct {
	abi    abi.ABI
	chain  bcapp.ChainReader
	cache  *cache.Cache[common.Address, string]
	logger logger.LoggerInterface
}

func NewSymbolResolver(chain bcapp.ChainReader, log logger.LoggerInterface) (*SymbolResolver, error) {
	parsed, err := abi.JSON(strings.NewReader(symbolABI))
	if err != nil {
		return nil, err
	}
	return &SymbolResolver{
		abi:    parsed,
		chain:  chain,
		cache:  cache.New[common.Address, string](0, cache.WithSize(64)),
		logger: log,
	}, nil
}

// Symbol returns the token symbol, or a shortened address when the token
// does not answer. Fallbacks are not cached so a later call may succeed.
func (r *SymbolResolver) Symbol(ctx context.Context, token common.Address) string {
	if s, ok := r.cache.Get(ctx, token); ok {
		return s
	}

	s, err := r.fetch(ctx, token)
	if err != nil {
		r.logger.Debug(ctx, "symbol lookup failed", "token", token.Hex(), "error", err)
		return Fallback(token)
	}

	r.cache.Set(ctx, token, s)
	return s
}

func (r *SymbolResolver) fetch(ctx context.Context, token common.Address) (string, error) {
	data, err := r.abi.Pack("symbol")
	if err != nil {
		return "", err
	}
	out, err := r.chain.CallContract(ctx, token, data)
	if err != nil {
		return "", err
	}
	var symbol string
	if err := r.abi.UnpackIntoInterface(&symbol, "symbol", out); err != nil {
		return "", err
	}
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return "", errEmptySymbol
	}
	return symbol, nil
}

// Fallback is the display form used when symbol() is unavailable.
func Fallback(token common.Address) string {
	return token.Hex()[:6] + "..."
}
