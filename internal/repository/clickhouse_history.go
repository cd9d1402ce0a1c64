package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"SigPull/internal/domain/models"
	domsvc "SigPull/internal/domain/service"
)

// ClickHouseHistory mirrors closed signals into a ClickHouse table for
// offline analytics. The ledger's JSON files stay the source of truth.
type ClickHouseHistory struct {
	db    *sql.DB
	table string
}

func NewClickHouseHistory(db *sql.DB, table string) *ClickHouseHistory {
	return &ClickHouseHistory{db: db, table: table}
}

var _ domsvc.HistoryArchiver = (*ClickHouseHistory)(nil)

// Archive inserts history rows in one multi-row statement.
func (a *ClickHouseHistory) Archive(ctx context.Context, entries []*models.HistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}

	values := make([]string, 0, len(entries))
	args := make([]interface{}, 0, len(entries)*11)
	for _, e := range entries {
		if e == nil || e.ID == "" {
			continue
		}
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			e.ID,
			e.CoinSymbol,
			string(e.Direction),
			e.EntryPrice,
			e.ClosePrice,
			e.EntryTime,
			e.CloseTime,
			e.PnLPercent,
			e.PnLUSD,
			e.CloseReason,
			e.Confidence,
		)
	}
	if len(values) == 0 {
		return nil
	}

	q := fmt.Sprintf(
		"INSERT INTO %s (id, symbol, direction, entry_price, close_price, entry_time, close_time, pnl_percentage, pnl_usd, close_reason, confidence) VALUES %s",
		a.table, strings.Join(values, ","))
	if _, err := a.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("archive history: %w", err)
	}
	return nil
}

func (a *ClickHouseHistory) Close() error {
	return nil // connection pool managed by pkg
}

// NoopArchiver is used when ClickHouse is disabled.
type NoopArchiver struct{}

func (NoopArchiver) Archive(context.Context, []*models.HistoryEntry) error { return nil }
func (NoopArchiver) Close() error                                          { return nil }
