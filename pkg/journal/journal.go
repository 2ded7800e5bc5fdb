package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"mercator-hq/ganymede/pkg/capacity"
	"mercator-hq/ganymede/pkg/config"
)

// Lifecycle event kinds.
const (
	KindStarted  = "started"
	KindReady    = "ready"
	KindTerminal = "terminal"
)

// Journal is the worker's history store, backed by a single SQLite file on
// the data volume. It implements capacity.Recorder and readiness.History.
type Journal struct {
	db     *sql.DB
	path   string
	logger *slog.Logger

	mu        sync.RWMutex
	closeOnce sync.Once

	// preparedStatements contains pre-compiled SQL statements for the two
	// write paths
	calibrationStmt *sql.Stmt
	lifecycleStmt   *sql.Stmt
}

// Open opens or creates the journal database at cfg.Path, creating parent
// directories as needed.
func Open(cfg config.JournalConfig) (*Journal, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("journal path cannot be empty")
	}
	busyTimeout := cfg.BusyTimeout
	if busyTimeout <= 0 {
		busyTimeout = 5 * time.Second
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	// Open database with WAL mode and busy timeout
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		cfg.Path, busyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite only supports single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	j := &Journal{
		db:     db,
		path:   cfg.Path,
		logger: slog.Default().With("component", "journal"),
	}

	if err := j.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	if err := j.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}

	j.logger.Info("journal opened", "path", cfg.Path)

	return j, nil
}

// initSchema creates the journal tables and records the schema version.
func (j *Journal) initSchema() error {
	if _, err := j.db.Exec(Schema); err != nil {
		return fmt.Errorf("failed to initialize journal schema: %w", err)
	}
	if _, err := j.db.Exec(insertSchemaVersion, SchemaVersion); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	return nil
}

// prepareStatements pre-compiles the insert statements.
func (j *Journal) prepareStatements() error {
	var err error

	j.calibrationStmt, err = j.db.Prepare(`
		INSERT INTO calibrations (id, benchmark, throughput, duration_ms, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare calibration statement: %w", err)
	}

	j.lifecycleStmt, err = j.db.Prepare(`
		INSERT INTO lifecycle (id, kind, detail, created_at)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare lifecycle statement: %w", err)
	}

	return nil
}

// RecordCalibration persists one calibration attempt. Implements
// capacity.Recorder.
func (j *Journal) RecordCalibration(ctx context.Context, rec capacity.CalibrationRecord) error {
	at := rec.At
	if at.IsZero() {
		at = time.Now()
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.calibrationStmt.ExecContext(ctx,
		uuid.NewString(),
		rec.Benchmark,
		rec.Throughput,
		rec.Elapsed.Milliseconds(),
		rec.Err,
		at.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to record calibration: %w", err)
	}

	return nil
}

// RecordStarted journals process start.
func (j *Journal) RecordStarted(ctx context.Context) error {
	return j.recordLifecycle(ctx, KindStarted, "")
}

// RecordReady journals the backend reaching ready. timeToReady is how long
// the model load took.
func (j *Journal) RecordReady(ctx context.Context, timeToReady time.Duration) error {
	return j.recordLifecycle(ctx, KindReady, timeToReady.Round(time.Millisecond).String())
}

// RecordTerminal journals a fatal exit with its error message.
func (j *Journal) RecordTerminal(ctx context.Context, errMsg string) error {
	return j.recordLifecycle(ctx, KindTerminal, errMsg)
}

func (j *Journal) recordLifecycle(ctx context.Context, kind, detail string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.lifecycleStmt.ExecContext(ctx, uuid.NewString(), kind, detail, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to record %s lifecycle event: %w", kind, err)
	}

	return nil
}

// WasReady reports whether a previous run on this volume reached ready.
// Implements readiness.History for start-mode auto-detection.
func (j *Journal) WasReady(ctx context.Context) (bool, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var n int64
	err := j.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM lifecycle WHERE kind = ?`, KindReady,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to query lifecycle history: %w", err)
	}

	return n > 0, nil
}

// CalibrationEntry is one persisted calibration attempt.
type CalibrationEntry struct {
	ID         string
	Benchmark  string
	Throughput float64
	Duration   time.Duration
	Err        string
	CreatedAt  time.Time
}

// RecentCalibrations returns up to limit calibration attempts, newest
// first. limit <= 0 returns all rows.
func (j *Journal) RecentCalibrations(ctx context.Context, limit int) ([]CalibrationEntry, error) {
	if limit <= 0 {
		limit = -1 // SQLite treats a negative LIMIT as unbounded
	}

	j.mu.RLock()
	defer j.mu.RUnlock()

	rows, err := j.db.QueryContext(ctx, `
		SELECT id, benchmark, throughput, duration_ms, error, created_at
		FROM calibrations
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query calibrations: %w", err)
	}
	defer rows.Close()

	var entries []CalibrationEntry
	for rows.Next() {
		var (
			entry      CalibrationEntry
			durationMS int64
			createdAt  int64
		)
		if err := rows.Scan(&entry.ID, &entry.Benchmark, &entry.Throughput, &durationMS, &entry.Err, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan calibration row: %w", err)
		}
		entry.Duration = time.Duration(durationMS) * time.Millisecond
		entry.CreatedAt = time.Unix(createdAt, 0)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read calibration rows: %w", err)
	}

	return entries, nil
}

// LifecycleEvent is one persisted lifecycle row.
type LifecycleEvent struct {
	ID        string
	Kind      string
	Detail    string
	CreatedAt time.Time
}

// LifecycleEvents returns up to limit lifecycle events, newest first.
// limit <= 0 returns all rows.
func (j *Journal) LifecycleEvents(ctx context.Context, limit int) ([]LifecycleEvent, error) {
	if limit <= 0 {
		limit = -1
	}

	j.mu.RLock()
	defer j.mu.RUnlock()

	rows, err := j.db.QueryContext(ctx, `
		SELECT id, kind, detail, created_at
		FROM lifecycle
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query lifecycle events: %w", err)
	}
	defer rows.Close()

	var events []LifecycleEvent
	for rows.Next() {
		var (
			event     LifecycleEvent
			createdAt int64
		)
		if err := rows.Scan(&event.ID, &event.Kind, &event.Detail, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan lifecycle row: %w", err)
		}
		event.CreatedAt = time.Unix(createdAt, 0)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read lifecycle rows: %w", err)
	}

	return events, nil
}

// Close checkpoints and closes the journal database. Safe to call more
// than once.
func (j *Journal) Close() error {
	var closeErr error
	j.closeOnce.Do(func() {
		j.mu.Lock()
		defer j.mu.Unlock()

		if j.calibrationStmt != nil {
			j.calibrationStmt.Close()
		}
		if j.lifecycleStmt != nil {
			j.lifecycleStmt.Close()
		}

		// Checkpoint WAL before closing
		if _, err := j.db.Exec(`PRAGMA wal_checkpoint(TRUNCATE)`); err != nil {
			j.logger.Warn("failed to checkpoint journal", "error", err)
		}

		closeErr = j.db.Close()
		j.logger.Debug("journal closed", "path", j.path)
	})

	return closeErr
}
