package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS signal_journal (
	id             UUID PRIMARY KEY,
	cycle_id       TEXT NOT NULL,
	checked_at     TIMESTAMPTZ NOT NULL,
	symbol         TEXT NOT NULL,
	kind           TEXT NOT NULL,
	price          DOUBLE PRECISION NOT NULL,
	adx            DOUBLE PRECISION NOT NULL,
	ema_fast_ltf   DOUBLE PRECISION NOT NULL,
	ema_slow_ltf   DOUBLE PRECISION NOT NULL,
	ema_fast_htf   DOUBLE PRECISION NOT NULL,
	ema_slow_htf   DOUBLE PRECISION NOT NULL,
	record         JSONB NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS signal_journal_symbol_ts ON signal_journal (symbol, checked_at DESC);`

const insertEntry = `
	INSERT INTO signal_journal (id, cycle_id, checked_at, symbol, kind, price, adx,
		ema_fast_ltf, ema_slow_ltf, ema_fast_htf, ema_slow_htf, record)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

// PostgresSink inserts entries into the signal_journal table.
type PostgresSink struct {
	db      *sqlx.DB
	timeout time.Duration
	newID   func() uuid.UUID
}

// NewPostgresSink connects with lib/pq and ensures the schema exists.
func NewPostgresSink(ctx context.Context, dsn string, timeout time.Duration) (*PostgresSink, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s := NewPostgresSinkFromDB(db, timeout)
	if err := s.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresSinkFromDB wraps an existing handle.
func NewPostgresSinkFromDB(db *sqlx.DB, timeout time.Duration) *PostgresSink {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &PostgresSink{db: db, timeout: timeout, newID: uuid.New}
}

// EnsureSchema creates the journal table when missing.
func (s *PostgresSink) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create signal_journal: %w", err)
	}
	return nil
}

// Append inserts one row; the full record is kept as JSONB.
func (s *PostgresSink) Append(ctx context.Context, e Entry) error {
	if s.db == nil {
		return ErrClosed
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	payload, err := json.Marshal(e.Record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	r := e.Record
	_, err = s.db.ExecContext(ctx, insertEntry,
		s.newID(), e.CycleID, r.CheckedAt.UTC(), r.Symbol, string(r.Kind), r.Price, r.ADX,
		r.EMAFastLTF, r.EMASlowLTF, r.EMAFastHTF, r.EMASlowHTF, payload)
	if err != nil {
		return fmt.Errorf("insert signal_journal: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresSink) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
