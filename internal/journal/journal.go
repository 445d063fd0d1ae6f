// Package journal persists scheduler events to SQLite so that recent
// invocations and lifecycle transitions can be inspected after the fact.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"scriptd/internal/manager"
	"scriptd/pkg/types"

	_ "modernc.org/sqlite"
)

const createEventsTable = `
CREATE TABLE IF NOT EXISTS events (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    module     TEXT,
    entry      TEXT,
    mode       TEXT,
    outcome    TEXT,
    error      TEXT,
    created_ms INTEGER NOT NULL
)`

const createEventsIndex = `CREATE INDEX IF NOT EXISTS events_created ON events (created_ms)`

const defaultBuffer = 1024

// ErrNotFound is returned when a record is not found.
var ErrNotFound = errors.New("journal record not found")

// Compile-time interface satisfaction check.
var _ manager.EventPublisher = (*Journal)(nil)

// Journal is a manager.EventPublisher writing to SQLite. Publish never blocks:
// events are buffered and written by a background goroutine, and dropped when
// the buffer is full.
type Journal struct {
	db  *sql.DB
	log zerolog.Logger

	mu      sync.RWMutex
	closed  bool
	ch      chan types.InvocationRecord
	done    chan struct{}
	dropped atomic.Uint64
	pending atomic.Int64
}

// Open opens the SQLite database at path, runs migrations and starts the writer.
func Open(path string, log zerolog.Logger) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
		createEventsTable,
		createEventsIndex,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init journal (%s): %w", stmt, err)
		}
	}

	j := &Journal{
		db:   db,
		log:  log.With().Str("component", "journal").Logger(),
		ch:   make(chan types.InvocationRecord, defaultBuffer),
		done: make(chan struct{}),
	}
	go j.writer()
	return j, nil
}

// Publish implements manager.EventPublisher.
func (j *Journal) Publish(e manager.Event) {
	rec := Record(e, time.Now())
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return
	}
	j.pending.Add(1)
	select {
	case j.ch <- rec:
	default:
		j.pending.Add(-1)
		j.dropped.Add(1)
	}
}

// Record converts an event to its stored form.
func Record(e manager.Event, at time.Time) types.InvocationRecord {
	rec := types.InvocationRecord{
		ID:         ulid.Make().String(),
		Event:      e.Name,
		Module:     e.Module,
		Entry:      e.Entry,
		TimeUnixMS: at.UnixMilli(),
	}
	if s, ok := e.Fields["mode"].(string); ok {
		rec.Mode = s
	}
	if s, ok := e.Fields["outcome"].(string); ok {
		rec.Outcome = s
	}
	if s, ok := e.Fields["error"].(string); ok {
		rec.Error = s
	}
	if e.Name == manager.EventTaskDiscarded {
		rec.Outcome = "cancelled"
	}
	return rec
}

func (j *Journal) writer() {
	defer close(j.done)
	for rec := range j.ch {
		if err := j.insert(context.Background(), rec); err != nil {
			j.log.Warn().Err(err).Str("event", rec.Event).Msg("journal write failed")
		}
		j.pending.Add(-1)
	}
}

func (j *Journal) insert(ctx context.Context, r types.InvocationRecord) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO events (id, name, module, entry, mode, outcome, error, created_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Event, r.Module, r.Entry, r.Mode, r.Outcome, r.Error, r.TimeUnixMS,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Get retrieves a record by id.
func (j *Journal) Get(ctx context.Context, id string) (types.InvocationRecord, error) {
	var r types.InvocationRecord
	err := j.db.QueryRowContext(ctx,
		`SELECT id, name, module, entry, mode, outcome, error, created_ms
		FROM events WHERE id = ?`, id,
	).Scan(&r.ID, &r.Event, &r.Module, &r.Entry, &r.Mode, &r.Outcome, &r.Error, &r.TimeUnixMS)
	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrNotFound
	}
	if err != nil {
		return r, fmt.Errorf("get event: %w", err)
	}
	return r, nil
}

// List returns records newest first, optionally filtered by module, along with
// the total number of matching records.
func (j *Journal) List(ctx context.Context, module string, limit, offset int) ([]types.InvocationRecord, int, error) {
	if limit <= 0 {
		limit = 50
	}
	tx, err := j.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, 0, fmt.Errorf("begin read tx: %w", err)
	}
	defer tx.Rollback()

	where, args := "", []any{}
	if module != "" {
		where, args = " WHERE module = ?", append(args, module)
	}
	var total int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM events"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}
	rows, err := tx.QueryContext(ctx,
		`SELECT id, name, module, entry, mode, outcome, error, created_ms
		FROM events`+where+` ORDER BY id DESC LIMIT ? OFFSET ?`,
		append(args, limit, offset)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	out := []types.InvocationRecord{}
	for rows.Next() {
		var r types.InvocationRecord
		if err := rows.Scan(&r.ID, &r.Event, &r.Module, &r.Entry, &r.Mode, &r.Outcome, &r.Error, &r.TimeUnixMS); err != nil {
			return nil, 0, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate events: %w", err)
	}
	return out, total, nil
}

// Dropped returns how many events were dropped because the buffer was full.
func (j *Journal) Dropped() uint64 { return j.dropped.Load() }

// Flush waits until every buffered event has been written or ctx is done.
func (j *Journal) Flush(ctx context.Context) error {
	for j.pending.Load() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}
	return nil
}

// Close stops accepting events, writes what is buffered and closes the database.
func (j *Journal) Close() error {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return nil
	}
	j.closed = true
	close(j.ch)
	j.mu.Unlock()
	<-j.done
	return j.db.Close()
}
