// Package store persists tracker state, the intake log and daily totals in
// SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/theirongolddev/hydrate/internal/model"
	"github.com/theirongolddev/hydrate/internal/progress"

	_ "modernc.org/sqlite" // register sqlite driver
)

// Store is the SQLite database. It satisfies progress.Gateway,
// progress.Updater and progress.Recorder.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at the given path.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// querier is satisfied by *sql.DB and *sql.Conn.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// kvView reads and writes the kv table through one connection.
type kvView struct {
	ctx context.Context
	q   querier
}

func (v kvView) Load(key string) (string, bool, error) {
	var value string
	err := v.q.QueryRowContext(v.ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("loading %s: %w", key, err)
	}
	return value, true, nil
}

func (v kvView) Save(key, value string) error {
	_, err := v.q.ExecContext(v.ctx, `INSERT OR REPLACE INTO kv (key, value, updated_at) VALUES (?, ?, ?)`,
		key, value, nowStamp())
	if err != nil {
		return fmt.Errorf("saving %s: %w", key, err)
	}
	return nil
}

// Load returns the value stored under key.
func (s *Store) Load(key string) (string, bool, error) {
	return kvView{ctx: context.Background(), q: s.db}.Load(key)
}

// Save stores value under key, replacing any previous value.
func (s *Store) Save(key, value string) error {
	return kvView{ctx: context.Background(), q: s.db}.Save(key, value)
}

// Update runs fn inside an immediate transaction, so no other connection or
// process can write kv between fn's reads and its writes. The writes are
// committed when fn returns nil and rolled back otherwise. fn must not use
// the Store itself while it runs.
func (s *Store) Update(fn func(kv progress.Gateway) error) error {
	ctx := context.Background()
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquiring connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	// database/sql cannot ask for BEGIN IMMEDIATE, so the transaction is
	// driven by hand on a dedicated connection.
	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return fmt.Errorf("locking state: %w", err)
	}
	if err := fn(kvView{ctx: ctx, q: conn}); err != nil {
		_, _ = conn.ExecContext(ctx, "ROLLBACK")
		return err
	}
	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		_, _ = conn.ExecContext(ctx, "ROLLBACK")
		return fmt.Errorf("committing state: %w", err)
	}
	return nil
}

// SaveAll writes several keys in one transaction.
func (s *Store) SaveAll(values map[string]string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO kv (key, value, updated_at) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	now := nowStamp()
	for k, v := range values {
		if _, err := stmt.Exec(k, v, now); err != nil {
			return fmt.Errorf("saving %s: %w", k, err)
		}
	}
	return tx.Commit()
}

// All returns every stored key and value.
func (s *Store) All() (map[string]string, error) {
	rows, err := s.db.Query("SELECT key, value FROM kv")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	result := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		result[k] = v
	}
	return result, rows.Err()
}

// RecordIntake appends one entry to the intake log.
func (s *Store) RecordIntake(in model.Intake) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO intakes (id, day, at, amount_ml, kind)
		VALUES (?, ?, ?, ?, ?)`,
		in.ID, in.Day, in.At.UTC().Format(tsLayout), in.AmountML, string(in.Kind))
	return err
}

// RecordDay upserts the total for d.Date.
func (s *Store) RecordDay(d model.DayTotal) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO day_totals (date, total_ml, goal_ml, updated_at)
		VALUES (?, ?, ?, ?)`,
		d.Date, d.TotalML, d.GoalML, nowStamp())
	return err
}

// History returns up to limit day totals, newest first. Entries counts
// manual and preset intakes of each day. A non-positive limit returns all.
func (s *Store) History(limit int) ([]model.DayTotal, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`SELECT d.date, d.total_ml, d.goal_ml,
		(SELECT COUNT(*) FROM intakes i WHERE i.day = d.date AND i.kind != 'reset')
		FROM day_totals d
		ORDER BY d.date DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var days []model.DayTotal
	for rows.Next() {
		var d model.DayTotal
		if err := rows.Scan(&d.Date, &d.TotalML, &d.GoalML, &d.Entries); err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

// Intakes returns the log entries for one day in the order they happened.
func (s *Store) Intakes(day string) ([]model.Intake, error) {
	rows, err := s.db.Query(`SELECT id, day, at, amount_ml, kind
		FROM intakes WHERE day = ? ORDER BY at`, day)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var result []model.Intake
	for rows.Next() {
		var in model.Intake
		var at, kind string
		if err := rows.Scan(&in.ID, &in.Day, &at, &in.AmountML, &kind); err != nil {
			return nil, err
		}
		in.At, _ = time.Parse(tsLayout, at)
		in.Kind = model.IntakeKind(kind)
		result = append(result, in)
	}
	return result, rows.Err()
}

// IntakeCount returns the number of logged intakes.
func (s *Store) IntakeCount() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM intakes").Scan(&count)
	return count, err
}

// tsLayout sorts lexically, unlike RFC3339Nano which trims trailing zeros.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

func nowStamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
