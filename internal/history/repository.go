package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ytget/streamgrab/internal/model"
)

// Entry is one recorded download
type Entry struct {
	ID          int64
	TaskID      string
	URL         string
	Destination string
	Quality     model.Quality
	Codec       model.Codec
	State       model.State
	FilePath    string
	FailureKind model.FailureKind
	Error       string
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Succeeded reports whether the download produced a file
func (e Entry) Succeeded() bool {
	return e.State == model.StateSucceeded
}

// Repository handles download history persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db.DB}
}

// Record stores a finished task
func (r *Repository) Record(ctx context.Context, task model.DownloadTask) error {
	query := `
		INSERT INTO downloads
		(task_id, url, destination, quality, codec, state, file_path, failure_kind, error_message, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	finished := task.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}

	_, err := r.db.ExecContext(ctx, query,
		task.ID,
		task.Request.URL,
		task.Request.DestinationDir,
		string(task.Request.Quality),
		string(task.Request.Codec),
		task.State.String(),
		task.OutputPath,
		string(task.Failure),
		task.LastError,
		toUnix(task.StartedAt),
		toUnix(finished),
	)
	if err != nil {
		return fmt.Errorf("failed to record download: %w", err)
	}
	return nil
}

// Recent returns the latest limit entries, newest first
func (r *Repository) Recent(ctx context.Context, limit int) ([]Entry, error) {
	query := `
		SELECT id, task_id, url, destination, quality, codec, state,
			COALESCE(file_path, ''), COALESCE(failure_kind, ''), COALESCE(error_message, ''),
			COALESCE(started_at, 0), finished_at
		FROM downloads
		ORDER BY finished_at DESC, id DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent downloads: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                   Entry
			quality, codec      string
			state, failure      string
			startedAt, finished int64
		)
		if err := rows.Scan(&e.ID, &e.TaskID, &e.URL, &e.Destination, &quality, &codec, &state,
			&e.FilePath, &failure, &e.Error, &startedAt, &finished); err != nil {
			return nil, fmt.Errorf("failed to scan download: %w", err)
		}
		e.Quality = model.Quality(quality)
		e.Codec = model.Codec(codec)
		e.State = model.State(state)
		e.FailureKind = model.FailureKind(failure)
		e.StartedAt = fromUnix(startedAt)
		e.FinishedAt = fromUnix(finished)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of recorded downloads
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM downloads").Scan(&count)
	return count, err
}

func toUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromUnix(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
