// Package contract encodes calls to and decodes events from the arbitrage contract.
package contract

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/fd1az/dex-arb-monitor/business/arbitrage/domain"
)

// Arbitrage is the ABI binding for one deployed arbitrage contract.
type Arbitrage struct {
	address common.Address
	abi     abi.ABI
	eventID common.Hash
}

func New(address common.Address) (*Arbitrage, error) {
	parsed, err := abi.JSON(strings.NewReader(ArbitrageABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse arbitrage ABI: %w", err)
	}

	return &Arbitrage{
		address: address,
		abi:     parsed,
		eventID: parsed.Events[eventExecuted].ID,
	}, nil
}

func (a *Arbitrage) Address() common.Address {
	return a.address
}

// PackExecute encodes executeArbitrage(path, amount).
func (a *Arbitrage) PackExecute(path []common.Address, amount *big.Int) ([]byte, error) {
	return a.abi.Pack(methodExecute, path, amount)
}

// DecodeExecuted returns the first log that decodes as ArbitrageExecuted.
// Logs that do not match or fail to decode are skipped.
func (a *Arbitrage) DecodeExecuted(logs []*types.Log) (domain.ArbitrageExecuted, bool) {
	for _, l := range logs {
		if ev, ok := a.decode(l); ok {
			return ev, true
		}
	}
	return domain.ArbitrageExecuted{}, false
}

func (a *Arbitrage) decode(l *types.Log) (domain.ArbitrageExecuted, bool) {
	if l == nil || len(l.Topics) == 0 || l.Topics[0] != a.eventID {
		return domain.ArbitrageExecuted{}, false
	}

	values, err := a.abi.Unpack(eventExecuted, l.Data)
	if err != nil || len(values) != 3 {
		return domain.ArbitrageExecuted{}, false
	}

	asset, ok1 := values[0].(common.Address)
	amount, ok2 := values[1].(*big.Int)
	profit, ok3 := values[2].(*big.Int)
	if !ok1 || !ok2 || !ok3 {
		return domain.ArbitrageExecuted{}, false
	}

	return domain.ArbitrageExecuted{Asset: asset, Amount: amount, Profit: profit}, true
}
