// Package repo implements the recording repository over Supabase Postgres:
// recordings, transcripts, summaries, and profile feature flags. All writes
// that the pipeline repeats are upserts keyed on recording_id, so concurrent
// or retried runs converge instead of duplicating rows.
package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"voicemind/pkg/db"
	"voicemind/pkg/domain"
)

// ErrNotFound is returned when a referenced row does not exist.
var ErrNotFound = errors.New("repo: not found")

// Repository provides recording storage over a direct Postgres connection.
type Repository struct {
	pg db.DBProvider
}

// New creates a repository backed by the given database provider.
func New(pg db.DBProvider) *Repository {
	return &Repository{pg: pg}
}

// EnsureSchema creates the tables the repository needs if they do not exist.
// The embedding column uses pgvector, which Supabase ships by default.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if r.pg.DB() == nil {
		return fmt.Errorf("postgres DB not connected")
	}

	const ddl = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS profiles (
  id UUID PRIMARY KEY,
  transcription_enabled BOOLEAN,
  summarization_enabled BOOLEAN,
  expo_push_token TEXT
);

CREATE TABLE IF NOT EXISTS recordings (
  id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
  user_id UUID NOT NULL,
  title TEXT NOT NULL DEFAULT '',
  duration_seconds INT NOT NULL DEFAULT 0,
  audio_path TEXT,
  status TEXT NOT NULL DEFAULT 'processing',
  file_size_bytes BIGINT NOT NULL DEFAULT 0,
  is_hidden BOOLEAN NOT NULL DEFAULT false,
  location_lat DOUBLE PRECISION,
  location_lng DOUBLE PRECISION,
  location_name TEXT,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS transcripts (
  id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
  recording_id UUID NOT NULL UNIQUE REFERENCES recordings(id) ON DELETE CASCADE,
  full_text TEXT NOT NULL DEFAULT '',
  words JSONB NOT NULL DEFAULT '[]',
  language TEXT NOT NULL DEFAULT 'en',
  provider TEXT NOT NULL DEFAULT '',
  is_final BOOLEAN NOT NULL DEFAULT false,
  embedding vector(1536),
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS summaries (
  id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
  recording_id UUID NOT NULL UNIQUE REFERENCES recordings(id) ON DELETE CASCADE,
  content TEXT NOT NULL DEFAULT '',
  key_points JSONB NOT NULL DEFAULT '[]',
  model TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

	if _, err := r.pg.DB().ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create voicemind schema: %w", err)
	}
	return nil
}

// Qualified so the list stays valid in joins against transcripts.
const recordingColumns = `recordings.id, recordings.user_id, recordings.title,
  recordings.duration_seconds, recordings.audio_path, recordings.status,
  recordings.file_size_bytes, recordings.is_hidden, recordings.location_lat,
  recordings.location_lng, recordings.location_name,
  recordings.created_at, recordings.updated_at`

// CreateRecording inserts a new recording row. A missing ID is generated.
// New recordings start in processing status unless the caller set one.
func (r *Repository) CreateRecording(ctx context.Context, rec *domain.Recording) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Status == "" {
		rec.Status = domain.StatusProcessing
	}
	if !rec.Status.Valid() {
		return fmt.Errorf("invalid status %q", rec.Status)
	}

	const q = `
INSERT INTO recordings (id, user_id, title, duration_seconds, audio_path, status,
  file_size_bytes, is_hidden, location_lat, location_lng, location_name)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, $10, NULLIF($11, ''))`

	_, err := r.pg.DB().ExecContext(ctx, q,
		rec.ID, rec.UserID, rec.Title, rec.DurationSeconds, rec.AudioPath,
		string(rec.Status), rec.FileSizeBytes, rec.IsHidden,
		rec.LocationLat, rec.LocationLng, rec.LocationName,
	)
	if err != nil {
		return fmt.Errorf("insert recording: %w", err)
	}
	return nil
}

// GetRecording fetches a recording by id. Returns ErrNotFound when absent.
func (r *Repository) GetRecording(ctx context.Context, id string) (*domain.Recording, error) {
	q := `SELECT ` + recordingColumns + ` FROM recordings WHERE id = $1`
	rec, err := scanRecording(r.pg.DB().QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("recording %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch recording %s: %w", id, err)
	}
	return rec, nil
}

// UpdateStatus sets the recording's status as an absolute value and bumps
// updated_at. Concurrent runs are last-write-wins on this column.
func (r *Repository) UpdateStatus(ctx context.Context, id string, status domain.RecordingStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status %q", status)
	}
	const q = `UPDATE recordings SET status = $1, updated_at = now() WHERE id = $2`
	res, err := r.pg.DB().ExecContext(ctx, q, string(status), id)
	if err != nil {
		return fmt.Errorf("update status of %s: %w", id, err)
	}
	return requireRow(res, id)
}

// SetAudioPath records where the uploaded audio blob lives and moves the
// recording into processing. The path is set at most once: a second upload
// for the same recording is rejected.
func (r *Repository) SetAudioPath(ctx context.Context, id, path string, sizeBytes int64) error {
	const q = `
UPDATE recordings
SET audio_path = $1, file_size_bytes = $2, status = 'processing', updated_at = now()
WHERE id = $3 AND audio_path IS NULL`
	res, err := r.pg.DB().ExecContext(ctx, q, path, sizeBytes, id)
	if err != nil {
		return fmt.Errorf("set audio path of %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("recording %s: audio path already set or %w", id, ErrNotFound)
	}
	return nil
}

// RenameRecording updates the user-visible title.
func (r *Repository) RenameRecording(ctx context.Context, id, title string) error {
	const q = `UPDATE recordings SET title = $1, updated_at = now() WHERE id = $2`
	res, err := r.pg.DB().ExecContext(ctx, q, title, id)
	if err != nil {
		return fmt.Errorf("rename recording %s: %w", id, err)
	}
	return requireRow(res, id)
}

// SetHidden toggles the soft-archive flag.
func (r *Repository) SetHidden(ctx context.Context, id string, hidden bool) error {
	const q = `UPDATE recordings SET is_hidden = $1, updated_at = now() WHERE id = $2`
	res, err := r.pg.DB().ExecContext(ctx, q, hidden, id)
	if err != nil {
		return fmt.Errorf("set hidden on %s: %w", id, err)
	}
	return requireRow(res, id)
}

// DeleteRecording removes the recording row. The transcript and summary rows
// go with it via ON DELETE CASCADE; the caller is responsible for removing
// the stored audio object first.
func (r *Repository) DeleteRecording(ctx context.Context, id string) error {
	const q = `DELETE FROM recordings WHERE id = $1`
	res, err := r.pg.DB().ExecContext(ctx, q, id)
	if err != nil {
		return fmt.Errorf("delete recording %s: %w", id, err)
	}
	return requireRow(res, id)
}

// ListOptions controls library listing.
type ListOptions struct {
	IncludeHidden bool
	Limit         int
	Offset        int
}

// ListRecordings returns the user's recordings, newest first.
func (r *Repository) ListRecordings(ctx context.Context, userID string, opts ListOptions) ([]domain.Recording, error) {
	q := `SELECT ` + recordingColumns + ` FROM recordings WHERE user_id = $1`
	if !opts.IncludeHidden {
		q += ` AND NOT is_hidden`
	}
	q += ` ORDER BY created_at DESC`
	args := []any{userID}
	if opts.Limit > 0 {
		q += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
		args = append(args, opts.Limit)
	}
	if opts.Offset > 0 {
		q += fmt.Sprintf(` OFFSET $%d`, len(args)+1)
		args = append(args, opts.Offset)
	}

	rows, err := r.pg.DB().QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list recordings: %w", err)
	}
	defer rows.Close()
	return collectRecordings(rows)
}

// SearchRecordings finds the user's recordings whose final transcript matches
// the query, using Postgres full-text search, newest first.
func (r *Repository) SearchRecordings(ctx context.Context, userID, query string, limit int) ([]domain.Recording, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `
SELECT ` + recordingColumns + `
FROM recordings
JOIN transcripts ON transcripts.recording_id = recordings.id AND transcripts.is_final
WHERE recordings.user_id = $1
  AND to_tsvector('simple', transcripts.full_text) @@ websearch_to_tsquery('simple', $2)
ORDER BY recordings.created_at DESC
LIMIT $3`

	rows, err := r.pg.DB().QueryContext(ctx, q, userID, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search recordings: %w", err)
	}
	defer rows.Close()
	return collectRecordings(rows)
}

// SearchSemantic orders the user's recordings by embedding distance to the
// query vector. Recordings without an embedding are excluded.
func (r *Repository) SearchSemantic(ctx context.Context, userID string, vec []float32, limit int) ([]domain.Recording, error) {
	if len(vec) == 0 {
		return nil, fmt.Errorf("empty query vector")
	}
	if limit <= 0 {
		limit = 20
	}
	q := `
SELECT ` + recordingColumns + `
FROM recordings
JOIN transcripts ON transcripts.recording_id = recordings.id AND transcripts.is_final
WHERE recordings.user_id = $1 AND transcripts.embedding IS NOT NULL
ORDER BY transcripts.embedding <=> $2
LIMIT $3`

	rows, err := r.pg.DB().QueryContext(ctx, q, userID, vectorLiteral(vec), limit)
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}
	defer rows.Close()
	return collectRecordings(rows)
}

// ListRetryable returns IDs of recordings whose pipeline run needs another
// attempt: failed ones, and ones sitting in processing longer than stuckAfter
// (a crashed run that never wrote its terminal status). Only recordings with
// uploaded audio qualify.
func (r *Repository) ListRetryable(ctx context.Context, stuckAfter time.Duration, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `
SELECT id
FROM recordings
WHERE audio_path IS NOT NULL
  AND (status = $1 OR (status = $2 AND updated_at < now() - $3::interval))
ORDER BY updated_at ASC
LIMIT $4`

	interval := fmt.Sprintf("%d seconds", int(stuckAfter.Seconds()))
	rows, err := r.pg.DB().QueryContext(ctx, q,
		string(domain.StatusFailed), string(domain.StatusProcessing), interval, limit)
	if err != nil {
		return nil, fmt.Errorf("list retryable: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return ids, nil
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("recording %s: %w", id, ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecording(row rowScanner) (*domain.Recording, error) {
	var (
		rec       domain.Recording
		audioPath sql.NullString
		locName   sql.NullString
		status    string
	)
	err := row.Scan(
		&rec.ID, &rec.UserID, &rec.Title, &rec.DurationSeconds, &audioPath,
		&status, &rec.FileSizeBytes, &rec.IsHidden,
		&rec.LocationLat, &rec.LocationLng, &locName,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.AudioPath = audioPath.String
	rec.LocationName = locName.String
	rec.Status = domain.RecordingStatus(status)
	return &rec, nil
}

func collectRecordings(rows *sql.Rows) ([]domain.Recording, error) {
	var out []domain.Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recording: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
