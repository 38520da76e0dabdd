// Package app contains application services and port definitions for the blockchain context.
package app

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/dex-arb-monitor/business/blockchain/domain"
)

// ChainReader performs read-only JSON-RPC calls.
type ChainReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
	CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error)
}

// GasOracle reports the current network gas price.
type GasOracle interface {
	GasPrice(ctx context.Context) (*domain.GasPrice, error)
}

// TxSender signs, broadcasts and awaits transactions from the configured key.
type TxSender interface {
	Send(ctx context.Context, req domain.TxRequest) (common.Hash, error)
	// WaitReceipt blocks until the transaction is mined or the confirmation
	// timeout expires. It never resubmits.
	WaitReceipt(ctx context.Context, hash common.Hash) (*domain.Receipt, error)
	Sender() (common.Address, bool)
}
