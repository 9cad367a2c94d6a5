package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the
// schema changes; mismatched databases must be deleted or pruned.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match
// the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Event outcomes.
const (
	OutcomeSent   = "sent"
	OutcomeFailed = "failed"
)

// Event sources.
const (
	SourceDaemon = "daemon"
	SourceWorker = "worker"
	SourceCLI    = "cli"
)

// Event is one journaled device command.
type Event struct {
	ID        int64
	SessionID string
	Command   string
	Outcome   string
	Detail    string
	Source    string
	CreatedAt time.Time
}

// Stats summarizes journal contents.
type Stats struct {
	Total      int
	Failed     int
	PerCommand map[string]int
}

// Journal manages event persistence backed by SQLite.
type Journal struct {
	db      *sql.DB
	path    string
	session string
}

// Open initializes or connects to the journal database in dir. Each
// Open starts a new session identifier that tags subsequent events.
func Open(dir string) (*Journal, error) {
	dbPath := filepath.Join(dir, "journal.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	j := &Journal{db: db, path: dbPath, session: uuid.NewString()}
	if err := j.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Path returns the journal database location.
func (j *Journal) Path() string {
	if j == nil {
		return ""
	}
	return j.path
}

// Session returns the identifier tagging events from this process.
func (j *Journal) Session() string {
	if j == nil {
		return ""
	}
	return j.session
}

func (j *Journal) initSchema(ctx context.Context) error {
	var tableExists int
	err := j.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return j.createSchema(ctx)
	}

	var version int
	if err := j.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to rebuild)",
			ErrSchemaMismatch, version, schemaVersion, j.path)
	}
	return nil
}

func (j *Journal) createSchema(ctx context.Context) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Append records one event. Missing session and timestamp fields are
// filled in from the journal's session and the current time.
func (j *Journal) Append(ctx context.Context, event Event) error {
	if j == nil || j.db == nil {
		return errors.New("journal is closed")
	}
	if strings.TrimSpace(event.Command) == "" {
		return errors.New("event command is required")
	}
	if event.SessionID == "" {
		event.SessionID = j.session
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if event.Source == "" {
		event.Source = SourceDaemon
	}

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO events (session_id, command, outcome, detail, source, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		event.SessionID,
		event.Command,
		event.Outcome,
		nullableString(event.Detail),
		event.Source,
		event.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Event, error) {
	if j == nil || j.db == nil {
		return nil, errors.New("journal is closed")
	}
	if limit < 1 {
		limit = 20
	}

	rows, err := j.db.QueryContext(ctx,
		`SELECT id, session_id, command, outcome, COALESCE(detail, ''), source, created_at
         FROM events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var event Event
		var createdAt string
		if err := rows.Scan(&event.ID, &event.SessionID, &event.Command, &event.Outcome,
			&event.Detail, &event.Source, &createdAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if parsed, parseErr := time.Parse(time.RFC3339Nano, createdAt); parseErr == nil {
			event.CreatedAt = parsed
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// CommandStats returns per-command totals plus the overall count of
// failed sends.
func (j *Journal) CommandStats(ctx context.Context) (Stats, error) {
	if j == nil || j.db == nil {
		return Stats{}, errors.New("journal is closed")
	}

	stats := Stats{PerCommand: map[string]int{}}
	rows, err := j.db.QueryContext(ctx,
		`SELECT command, COUNT(1), SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END)
         FROM events GROUP BY command`, OutcomeFailed)
	if err != nil {
		return Stats{}, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var command string
		var count, failed int
		if err := rows.Scan(&command, &count, &failed); err != nil {
			return Stats{}, fmt.Errorf("scan stats: %w", err)
		}
		stats.PerCommand[command] = count
		stats.Total += count
		stats.Failed += failed
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("iterate stats: %w", err)
	}
	return stats, nil
}

// Prune deletes all but the newest keep events.
func (j *Journal) Prune(ctx context.Context, keep int) (int64, error) {
	if j == nil || j.db == nil {
		return 0, errors.New("journal is closed")
	}
	if keep < 0 {
		keep = 0
	}

	res, err := j.db.ExecContext(ctx,
		`DELETE FROM events WHERE id NOT IN (SELECT id FROM events ORDER BY id DESC LIMIT ?)`,
		keep)
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return removed, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
