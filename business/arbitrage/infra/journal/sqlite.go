// Package journal persists trade outcomes to sqlite for audit.
package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/fd1az/dex-arb-monitor/business/arbitrage/app"
	"github.com/fd1az/dex-arb-monitor/business/arbitrage/domain"
	"github.com/fd1az/dex-arb-monitor/internal/apperror"
)

//go:embed schema.sql
var schema string

var _ app.Journal = (*SQLite)(nil)

// SQLite is an append-only trade journal. It is never read back into the
// monitor's counters.
type SQLite struct {
	db *sql.DB
}

func Open(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create journal dir: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal db: %w", err)
	}
	// One writer; sqlite serialises anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialise schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

// Record inserts one trade row.
func (j *SQLite) Record(ctx context.Context, rec domain.TradeRecord) error {
	var txHash, errText sql.NullString
	if rec.Outcome.TxHash != (common.Hash{}) {
		txHash = sql.NullString{String: rec.Outcome.TxHash.Hex(), Valid: true}
	}
	if rec.Outcome.Err != nil {
		errText = sql.NullString{String: rec.Outcome.Err.Error(), Valid: true}
	}

	recordedAt := rec.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO trades (id, pair, block_number, succeeded, tx_hash, gas_used, expected_usd, profit_usd, error, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(),
		rec.Pair,
		rec.BlockNumber,
		rec.Outcome.Succeeded,
		txHash,
		rec.Outcome.GasUsed,
		rec.ExpectedProfitUSD.String(),
		rec.Outcome.ActualProfitUSD.String(),
		errText,
		recordedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return apperror.New(apperror.CodeJournalFailed,
			apperror.WithCause(err),
			apperror.WithContext(rec.Pair))
	}
	return nil
}

// Summary totals every persisted trade across process runs.
func (j *SQLite) Summary(ctx context.Context) (domain.JournalSummary, error) {
	rows, err := j.db.QueryContext(ctx, "SELECT succeeded, profit_usd FROM trades")
	if err != nil {
		return domain.JournalSummary{}, apperror.New(apperror.CodeJournalFailed, apperror.WithCause(err))
	}
	defer rows.Close()

	s := domain.JournalSummary{TotalProfitUSD: decimal.Zero}
	for rows.Next() {
		var succeeded bool
		var profit string
		if err := rows.Scan(&succeeded, &profit); err != nil {
			return domain.JournalSummary{}, apperror.New(apperror.CodeJournalFailed, apperror.WithCause(err))
		}

		s.Trades++
		if !succeeded {
			s.FailedTrades++
			continue
		}
		s.SuccessfulTrades++
		d, err := decimal.NewFromString(profit)
		if err != nil {
			return domain.JournalSummary{}, apperror.New(apperror.CodeJournalFailed,
				apperror.WithCause(err),
				apperror.WithContext("bad profit value "+profit))
		}
		s.TotalProfitUSD = s.TotalProfitUSD.Add(d)
	}
	if err := rows.Err(); err != nil {
		return domain.JournalSummary{}, apperror.New(apperror.CodeJournalFailed, apperror.WithCause(err))
	}
	return s, nil
}
