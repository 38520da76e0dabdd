package app

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/dex-arb-monitor/business/blockchain/domain"
)

// BlockchainService is the public face of the context. It delegates to the
// adapters and remembers the last head it saw for health reporting.
type BlockchainService struct {
	reader ChainReader
	gas    GasOracle
	sender TxSender

	mu   sync.RWMutex
	head domain.Head
	now  func() time.Time
}

var (
	_ ChainReader = (*BlockchainService)(nil)
	_ GasOracle   = (*BlockchainService)(nil)
	_ TxSender    = (*BlockchainService)(nil)
)

// NewBlockchainService creates a new BlockchainService.
func NewBlockchainService(reader ChainReader, gas GasOracle, sender TxSender) *BlockchainService {
	return &BlockchainService{
		reader: reader,
		gas:    gas,
		sender: sender,
		now:    time.Now,
	}
}

// BlockNumber returns the latest block number and records it as the head.
func (s *BlockchainService) BlockNumber(ctx context.Context) (uint64, error) {
	n, err := s.reader.BlockNumber(ctx)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	s.head = domain.Head{Number: n, ObservedAt: s.now()}
	s.mu.Unlock()

	return n, nil
}

func (s *BlockchainService) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	return s.reader.CallContract(ctx, to, data)
}

func (s *BlockchainService) GasPrice(ctx context.Context) (*domain.GasPrice, error) {
	return s.gas.GasPrice(ctx)
}

func (s *BlockchainService) Send(ctx context.Context, req domain.TxRequest) (common.Hash, error) {
	return s.sender.Send(ctx, req)
}

func (s *BlockchainService) WaitReceipt(ctx context.Context, hash common.Hash) (*domain.Receipt, error) {
	return s.sender.WaitReceipt(ctx, hash)
}

func (s *BlockchainService) Sender() (common.Address, bool) {
	return s.sender.Sender()
}

// LastHead returns the most recently observed head.
func (s *BlockchainService) LastHead() domain.Head {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.head
}
