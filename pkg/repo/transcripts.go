package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"voicemind/pkg/domain"
)

// UpsertTranscript inserts or replaces the transcript for a recording.
// The unique constraint on recording_id means a final transcript overwrites
// any draft captured live on device, and a repeated pipeline run overwrites
// its own earlier write instead of duplicating.
func (r *Repository) UpsertTranscript(ctx context.Context, t *domain.Transcript) error {
	if t.RecordingID == "" {
		return fmt.Errorf("transcript recording_id is required")
	}

	words := t.Words
	if words == nil {
		words = []domain.Word{}
	}
	wordsJSON, err := json.Marshal(words)
	if err != nil {
		return fmt.Errorf("marshal words: %w", err)
	}

	const q = `
INSERT INTO transcripts (recording_id, full_text, words, language, provider, is_final, embedding)
VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, '')::vector)
ON CONFLICT (recording_id) DO UPDATE SET
  full_text = EXCLUDED.full_text,
  words = EXCLUDED.words,
  language = EXCLUDED.language,
  provider = EXCLUDED.provider,
  is_final = EXCLUDED.is_final,
  embedding = COALESCE(EXCLUDED.embedding, transcripts.embedding),
  updated_at = now()`

	_, err = r.pg.DB().ExecContext(ctx, q,
		t.RecordingID, t.FullText, wordsJSON, t.Language, t.Provider, t.IsFinal,
		vectorLiteral(t.Embedding),
	)
	if err != nil {
		return fmt.Errorf("upsert transcript for %s: %w", t.RecordingID, err)
	}
	return nil
}

// GetFinalTranscript fetches the final transcript for a recording. Returns
// ErrNotFound when no final transcript exists (only a draft, or none at all).
func (r *Repository) GetFinalTranscript(ctx context.Context, recordingID string) (*domain.Transcript, error) {
	const q = `
SELECT id, recording_id, full_text, words, language, provider, is_final, created_at, updated_at
FROM transcripts
WHERE recording_id = $1 AND is_final`

	var (
		t         domain.Transcript
		wordsJSON []byte
	)
	err := r.pg.DB().QueryRowContext(ctx, q, recordingID).Scan(
		&t.ID, &t.RecordingID, &t.FullText, &wordsJSON,
		&t.Language, &t.Provider, &t.IsFinal, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("final transcript for %s: %w", recordingID, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch transcript for %s: %w", recordingID, err)
	}
	if err := json.Unmarshal(wordsJSON, &t.Words); err != nil {
		return nil, fmt.Errorf("unmarshal words for %s: %w", recordingID, err)
	}
	return &t, nil
}

// UpdateTranscriptText replaces the transcript's text after a user edit,
// optionally refreshing the embedding. Word timestamps are left untouched:
// they still describe the audio even if the text was corrected.
func (r *Repository) UpdateTranscriptText(ctx context.Context, recordingID, fullText string, embedding []float32) error {
	const q = `
UPDATE transcripts
SET full_text = $1,
    embedding = COALESCE(NULLIF($2, '')::vector, embedding),
    updated_at = now()
WHERE recording_id = $3`

	res, err := r.pg.DB().ExecContext(ctx, q, fullText, vectorLiteral(embedding), recordingID)
	if err != nil {
		return fmt.Errorf("update transcript text for %s: %w", recordingID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("transcript for %s: %w", recordingID, ErrNotFound)
	}
	return nil
}

// UpsertSummary inserts or replaces the summary for a recording, keyed on
// recording_id like the transcript upsert.
func (r *Repository) UpsertSummary(ctx context.Context, s *domain.Summary) error {
	if s.RecordingID == "" {
		return fmt.Errorf("summary recording_id is required")
	}

	keyPoints := s.KeyPoints
	if keyPoints == nil {
		keyPoints = []string{}
	}
	pointsJSON, err := json.Marshal(keyPoints)
	if err != nil {
		return fmt.Errorf("marshal key points: %w", err)
	}

	const q = `
INSERT INTO summaries (recording_id, content, key_points, model)
VALUES ($1, $2, $3, $4)
ON CONFLICT (recording_id) DO UPDATE SET
  content = EXCLUDED.content,
  key_points = EXCLUDED.key_points,
  model = EXCLUDED.model,
  updated_at = now()`

	_, err = r.pg.DB().ExecContext(ctx, q, s.RecordingID, s.Content, pointsJSON, s.Model)
	if err != nil {
		return fmt.Errorf("upsert summary for %s: %w", s.RecordingID, err)
	}
	return nil
}

// GetSummary fetches the summary for a recording. Returns ErrNotFound when
// none exists (summaries are best-effort; absence is normal).
func (r *Repository) GetSummary(ctx context.Context, recordingID string) (*domain.Summary, error) {
	const q = `
SELECT id, recording_id, content, key_points, model, created_at, updated_at
FROM summaries WHERE recording_id = $1`

	var (
		s          domain.Summary
		pointsJSON []byte
	)
	err := r.pg.DB().QueryRowContext(ctx, q, recordingID).Scan(
		&s.ID, &s.RecordingID, &s.Content, &pointsJSON, &s.Model, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("summary for %s: %w", recordingID, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch summary for %s: %w", recordingID, err)
	}
	if err := json.Unmarshal(pointsJSON, &s.KeyPoints); err != nil {
		return nil, fmt.Errorf("unmarshal key points for %s: %w", recordingID, err)
	}
	return &s, nil
}

// DeleteSummary removes the summary for a recording. Deleting a summary that
// does not exist is not an error.
func (r *Repository) DeleteSummary(ctx context.Context, recordingID string) error {
	_, err := r.pg.DB().ExecContext(ctx, `DELETE FROM summaries WHERE recording_id = $1`, recordingID)
	if err != nil {
		return fmt.Errorf("delete summary for %s: %w", recordingID, err)
	}
	return nil
}

// GetProfileFlags fetches the user's feature flags. A missing profile row or
// null columns fall back to defaults (everything enabled, no push token).
func (r *Repository) GetProfileFlags(ctx context.Context, userID string) (domain.ProfileFlags, error) {
	const q = `
SELECT transcription_enabled, summarization_enabled, expo_push_token
FROM profiles WHERE id = $1`

	flags := domain.DefaultProfileFlags()
	var (
		transcription sql.NullBool
		summarization sql.NullBool
		pushToken     sql.NullString
	)
	err := r.pg.DB().QueryRowContext(ctx, q, userID).Scan(&transcription, &summarization, &pushToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return flags, nil
		}
		return flags, fmt.Errorf("fetch profile flags for %s: %w", userID, err)
	}
	if transcription.Valid {
		flags.TranscriptionEnabled = transcription.Bool
	}
	if summarization.Valid {
		flags.SummarizationEnabled = summarization.Bool
	}
	flags.ExpoPushToken = pushToken.String
	return flags, nil
}

// vectorLiteral renders a float32 slice as a pgvector text literal like
// "[0.1,0.2,0.3]". Returns "" for an empty vector, which the SQL above maps
// to NULL via NULLIF.
func vectorLiteral(vec []float32) string {
	if len(vec) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
