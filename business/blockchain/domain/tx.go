package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// TxRequest describes a contract call to sign and broadcast.
type TxRequest struct {
	To       common.Address
	Data     []byte
	GasPrice *big.Int
	// GasLimit of zero means estimate.
	GasLimit uint64
}

// Receipt is the mined outcome of a transaction.
type Receipt struct {
	TxHash      common.Hash
	Succeeded   bool
	GasUsed     uint64
	BlockNumber uint64
	Logs        []*types.Log
}

// ReceiptFromTypes converts a go-ethereum receipt.
func ReceiptFromTypes(r *types.Receipt) *Receipt {
	out := &Receipt{
		TxHash:    r.TxHash,
		Succeeded: r.Status == types.ReceiptStatusSuccessful,
		GasUsed:   r.GasUsed,
		Logs:      r.Logs,
	}
	if r.BlockNumber != nil {
		out.BlockNumber = r.BlockNumber.Uint64()
	}
	return out
}
