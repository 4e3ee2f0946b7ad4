package statestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"realestate-watch/internal/crawljob"
)

// SQLiteStore keeps the scheduler state in a SQLite database. Save replaces
// the whole aggregate inside one transaction.
type SQLiteStore struct {
	fileLock
	db *sql.DB
}

var (
	_ crawljob.StateStore = (*SQLiteStore)(nil)
	_ crawljob.Locker     = (*SQLiteStore)(nil)
)

// NewSQLiteStore opens (or creates) the database at dbPath and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	s := &SQLiteStore{fileLock: newFileLock(dbPath), db: db}
	if err = s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS scheduler_state (
			id                INTEGER PRIMARY KEY CHECK (id = 1),
			initialized       INTEGER NOT NULL DEFAULT 0,
			initial_watermark INTEGER,
			last_watermark    INTEGER
		);
		CREATE TABLE IF NOT EXISTS work_items (
			position       INTEGER PRIMARY KEY,
			external_id    INTEGER NOT NULL,
			scheduled_time TEXT NOT NULL,
			completed      INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_work_items_external_id ON work_items(external_id);
	`)
	return err
}

func (s *SQLiteStore) Load(ctx context.Context) (crawljob.State, error) {
	var (
		state            crawljob.State
		initialized      bool
		initialWatermark sql.NullInt64
		lastWatermark    sql.NullInt64
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT initialized, initial_watermark, last_watermark FROM scheduler_state WHERE id = 1
	`).Scan(&initialized, &initialWatermark, &lastWatermark)
	if errors.Is(err, sql.ErrNoRows) {
		return crawljob.State{}, nil
	}
	if err != nil {
		return crawljob.State{}, fmt.Errorf("load scheduler state: %w", err)
	}

	state.Initialized = initialized
	if initialWatermark.Valid {
		v := initialWatermark.Int64
		state.InitialWatermark = &v
	}
	if lastWatermark.Valid {
		v := lastWatermark.Int64
		state.LastWatermark = &v
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT external_id, scheduled_time, completed FROM work_items ORDER BY position
	`)
	if err != nil {
		return crawljob.State{}, fmt.Errorf("load work items: %w", err)
	}
	defer rows.Close()

	state.Jobs = []crawljob.WorkItem{}
	for rows.Next() {
		var (
			item      crawljob.WorkItem
			scheduled string
		)
		if err := rows.Scan(&item.ExternalID, &scheduled, &item.Completed); err != nil {
			return crawljob.State{}, fmt.Errorf("scan work item: %w", err)
		}
		item.ScheduledTime, err = time.Parse(time.RFC3339Nano, scheduled)
		if err != nil {
			return crawljob.State{}, fmt.Errorf("%w: work item %d: %w", crawljob.ErrStoreCorrupt, item.ExternalID, err)
		}
		state.Jobs = append(state.Jobs, item)
	}
	if err := rows.Err(); err != nil {
		return crawljob.State{}, fmt.Errorf("iterate work items: %w", err)
	}
	return state, nil
}

func (s *SQLiteStore) Save(ctx context.Context, state crawljob.State) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO scheduler_state (id, initialized, initial_watermark, last_watermark)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			initialized = excluded.initialized,
			initial_watermark = excluded.initial_watermark,
			last_watermark = excluded.last_watermark
	`, state.Initialized, nullableInt64(state.InitialWatermark), nullableInt64(state.LastWatermark))
	if err != nil {
		return fmt.Errorf("save scheduler state: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM work_items`); err != nil {
		return fmt.Errorf("clear work items: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO work_items (position, external_id, scheduled_time, completed) VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare work item insert: %w", err)
	}
	defer stmt.Close()

	for i, item := range state.Jobs {
		if _, err := stmt.ExecContext(ctx, i, item.ExternalID, item.ScheduledTime.Format(time.RFC3339Nano), item.Completed); err != nil {
			return fmt.Errorf("insert work item %d: %w", item.ExternalID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit state: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func nullableInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
