package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"rabc/internal/config"
)

// Store manages session persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the session database and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.SessionDBPath()
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

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Start records a newly accepted connection.
func (s *Store) Start(ctx context.Context, id, socketPath string) (*Session, error) {
	if id == "" {
		return nil, errors.New("session id is required")
	}
	now := time.Now().UTC()
	if _, err := s.db.ExecContext(
		ctx,
		`INSERT INTO sessions (id, socket_path, started_at, frames) VALUES (?, ?, ?, 0)`,
		id,
		socketPath,
		now.Format(timeLayout),
	); err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return &Session{ID: id, SocketPath: socketPath, StartedAt: now}, nil
}

// Finish closes a session with its frame count and end reason.
func (s *Store) Finish(ctx context.Context, id string, frames int, reason EndReason, cause error) error {
	var message any
	if cause != nil {
		message = cause.Error()
	}
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE sessions SET ended_at = ?, frames = ?, end_reason = ?, error_message = ?
         WHERE id = ? AND ended_at IS NULL`,
		time.Now().UTC().Format(timeLayout),
		frames,
		string(reason),
		message,
		id,
	)
	if err != nil {
		return fmt.Errorf("finish session %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("finish session %s: not found or already finished", id)
	}
	return nil
}

// Get fetches a session by id. It returns nil, nil when absent.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	return session, nil
}

// List returns up to limit sessions, most recent first. A limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Session, error) {
	query := selectColumns + ` ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, *session)
	}
	return out, rows.Err()
}

// MarkAbandoned ends every session still open, returning how many were touched.
func (s *Store) MarkAbandoned(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE sessions SET ended_at = ?, end_reason = ? WHERE ended_at IS NULL`,
		time.Now().UTC().Format(timeLayout),
		string(EndAbandoned),
	)
	if err != nil {
		return 0, fmt.Errorf("mark abandoned sessions: %w", err)
	}
	return res.RowsAffected()
}

// Prune deletes finished sessions that ended before cutoff.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`DELETE FROM sessions WHERE ended_at IS NOT NULL AND ended_at < ?`,
		cutoff.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	return res.RowsAffected()
}

// timeLayout is fixed width so text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const selectColumns = `SELECT id, socket_path, started_at, ended_at, frames, end_reason, error_message FROM sessions`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var (
		session   Session
		startedAt string
		endedAt   sql.NullString
		reason    sql.NullString
		message   sql.NullString
	)
	if err := row.Scan(&session.ID, &session.SocketPath, &startedAt, &endedAt, &session.Frames, &reason, &message); err != nil {
		return nil, err
	}
	var err error
	if session.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if endedAt.Valid {
		if session.EndedAt, err = time.Parse(timeLayout, endedAt.String); err != nil {
			return nil, fmt.Errorf("parse ended_at: %w", err)
		}
	}
	session.EndReason = EndReason(reason.String)
	session.Error = message.String
	return &session, nil
}
