// Package history archives finished tasks in a SQLite database so they
// outlive the in-memory registry.
package history

import (
	"context"
	"database/sql"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/ytget/yt-web/internal/model"
	"github.com/ytget/yt-web/internal/platform"
)

// List limits
const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// Store is a SQLite backed task archive
type Store struct {
	db *sql.DB
}

// Entry is one archived task
type Entry struct {
	ID         string           `json:"task_id"`
	URL        string           `json:"url"`
	Format     model.Format     `json:"format"`
	Quality    string           `json:"quality"`
	Status     model.TaskStatus `json:"status"`
	Title      string           `json:"title,omitempty"`
	Filename   string           `json:"filename,omitempty"`
	Error      string           `json:"error,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	FinishedAt time.Time        `json:"finished_at"`
}

// Open opens (and creates) the database at path
func Open(path string) (*Store, error) {
	if err := platform.CreateDirectoryIfNotExists(filepath.Dir(path)); err != nil {
		return nil, errors.Wrap(err, "create history dir")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open history db")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping history db")
	}

	// WAL and busy timeout let concurrent jobs append without SQLITE_BUSY
	if _, err := db.Exec(`
		PRAGMA busy_timeout = 5000;
		PRAGMA journal_mode = WAL;
	`); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "configure history db")
	}

	s := &Store{db: db}
	if err := s.initTable(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		format TEXT NOT NULL,
		quality TEXT NOT NULL,
		status TEXT NOT NULL,
		title TEXT,
		filename TEXT,
		error TEXT,
		created_at DATETIME,
		finished_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_finished_at ON tasks(finished_at);
	`
	_, err := s.db.Exec(query)
	return errors.Wrap(err, "create history table")
}

// Record stores a finished task. Active tasks are rejected.
func (s *Store) Record(ctx context.Context, task model.Task) error {
	if !task.Status.IsFinished() {
		return errors.Errorf("task %s is not finished: %s", task.ID, task.Status)
	}

	query := `INSERT OR REPLACE INTO tasks (id, url, format, quality, status, title, filename, error, created_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		task.ID, task.URL, string(task.Format), task.Quality, string(task.Status),
		task.Title, task.Filename, task.Error,
		task.CreatedAt.UTC(), task.FinishedAt.UTC(),
	)
	return errors.Wrapf(err, "record task %s", task.ID)
}

// List returns up to limit entries, newest first
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	query := `SELECT id, url, format, quality, status, title, filename, error, created_at, finished_at
		FROM tasks ORDER BY finished_at DESC, id LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query history")
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var (
			e                       Entry
			format, status          string
			title, filename, errMsg sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.URL, &format, &e.Quality, &status, &title, &filename, &errMsg, &e.CreatedAt, &e.FinishedAt); err != nil {
			return nil, errors.Wrap(err, "scan history row")
		}
		e.Format = model.Format(format)
		e.Status = model.TaskStatus(status)
		e.Title = title.String
		e.Filename = filename.String
		e.Error = errMsg.String
		entries = append(entries, e)
	}
	return entries, errors.Wrap(rows.Err(), "iterate history")
}
