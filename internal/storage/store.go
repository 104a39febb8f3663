// Package storage persists the event log, the trade journal and account
// snapshots. SQLite in WAL mode keeps replay deterministic: a backtest is
// a replay of exactly what the live loop recorded.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/glebarez/go-sqlite"

	"github.com/alexe13/roboquant/internal/domain"
	"github.com/alexe13/roboquant/internal/event"
)

// EventStore handles persistent storage of events and trades in SQLite.
type EventStore struct {
	db *sql.DB
}

// NewEventStore creates a new SQLite store with WAL mode enabled.
func NewEventStore(dbPath string) (*EventStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size=-2000;", // 2MB cache
		"PRAGMA foreign_keys=ON;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY,
			type INTEGER NOT NULL,
			ts INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create events table: %w", err)
	}

	// Trade journal: the canonical audit trail, append-only.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			ts INTEGER NOT NULL,
			symbol TEXT NOT NULL,
			order_id TEXT NOT NULL,
			payload BLOB NOT NULL
		);
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create trades table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata table: %w", err)
	}

	return &EventStore{db: db}, nil
}

// SaveEvent stores an event keyed by its sequence number.
func (s *EventStore) SaveEvent(ctx context.Context, ev event.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO events (id, type, ts, payload) VALUES (?, ?, ?, ?)",
		ev.GetSeq(), ev.GetType(), ev.GetTs(), payload,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// AppendTrade journals one trade record.
func (s *EventStore) AppendTrade(ctx context.Context, tr domain.Trade) error {
	payload, err := json.Marshal(tr)
	if err != nil {
		return fmt.Errorf("failed to marshal trade: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO trades (ts, symbol, order_id, payload) VALUES (?, ?, ?, ?)",
		tr.Time, tr.Asset.Symbol, tr.OrderID, payload,
	)
	if err != nil {
		return fmt.Errorf("failed to insert trade: %w", err)
	}
	return nil
}

// LoadTrades returns the journaled trades in append order.
func (s *EventStore) LoadTrades(ctx context.Context) ([]domain.Trade, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT payload FROM trades ORDER BY seq ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		var tr domain.Trade
		if err := json.Unmarshal(payload, &tr); err != nil {
			return nil, fmt.Errorf("failed to unmarshal trade: %w", err)
		}
		trades = append(trades, tr)
	}
	return trades, rows.Err()
}

// GetLastSeq returns the highest event sequence number stored.
// Returns 0 if no events exist.
func (s *EventStore) GetLastSeq(ctx context.Context) (uint64, error) {
	var lastSeq sql.NullInt64
	err := s.db.QueryRowContext(ctx, "SELECT MAX(id) FROM events").Scan(&lastSeq)
	if err != nil {
		return 0, fmt.Errorf("failed to get last seq: %w", err)
	}
	if !lastSeq.Valid {
		return 0, nil // No events yet
	}
	return uint64(lastSeq.Int64), nil
}

// LoadEvents loads events starting from fromSeq (inclusive), in sequence
// order. Both live recovery and the backtest replayer feed these through
// the same dispatch path; skipping any event kind would break determinism.
func (s *EventStore) LoadEvents(ctx context.Context, fromSeq uint64) ([]event.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, type, payload FROM events WHERE id >= ? ORDER BY id ASC",
		fromSeq,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		var id int64
		var evType int
		var payload []byte

		if err := rows.Scan(&id, &evType, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}

		var ev event.Event
		switch event.Type(evType) {
		case event.EvMarket:
			var m event.MarketEvent
			if err := json.Unmarshal(payload, &m); err != nil {
				return nil, fmt.Errorf("failed to unmarshal event %d: %w", id, err)
			}
			ev = &m
		case event.EvSystemHalt:
			var h event.HaltEvent
			if err := json.Unmarshal(payload, &h); err != nil {
				return nil, fmt.Errorf("failed to unmarshal event %d: %w", id, err)
			}
			ev = &h
		default:
			return nil, fmt.Errorf("unknown event type %d at seq %d", evType, id)
		}
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return events, nil
}

// UpsertMetadata saves a key-value pair to the metadata table.
func (s *EventStore) UpsertMetadata(ctx context.Context, key, value string, ts int64) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO metadata (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at",
		key, value, ts,
	)
	return err
}

// GetMetadata retrieves a value from the metadata table.
func (s *EventStore) GetMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// Close closes the database connection.
func (s *EventStore) Close() error {
	return s.db.Close()
}
