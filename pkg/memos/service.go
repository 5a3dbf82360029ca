// Package memos is the recording library service: the operations the client
// app performs on a user's recordings outside of the processing pipeline.
package memos

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"voicemind/pkg/domain"
	"voicemind/pkg/embed"
	"voicemind/pkg/objectstore"
	"voicemind/pkg/repo"
)

// Repository is the slice of the recording repository the library needs.
type Repository interface {
	CreateRecording(ctx context.Context, rec *domain.Recording) error
	GetRecording(ctx context.Context, id string) (*domain.Recording, error)
	SetAudioPath(ctx context.Context, id, path string, sizeBytes int64) error
	RenameRecording(ctx context.Context, id, title string) error
	SetHidden(ctx context.Context, id string, hidden bool) error
	DeleteRecording(ctx context.Context, id string) error
	ListRecordings(ctx context.Context, userID string, opts repo.ListOptions) ([]domain.Recording, error)
	SearchRecordings(ctx context.Context, userID, query string, limit int) ([]domain.Recording, error)
	SearchSemantic(ctx context.Context, userID string, vec []float32, limit int) ([]domain.Recording, error)
}

// ObjectStore is the slice of the audio store the library needs.
type ObjectStore interface {
	Delete(ctx context.Context, path string) error
	SignedURL(ctx context.Context, path string, expiresIn time.Duration) (string, error)
}

// Dispatcher starts a background pipeline run for a recording.
type Dispatcher interface {
	Dispatch(recordingID string)
}

// PlaybackURLExpiry is how long a signed playback link stays valid.
const PlaybackURLExpiry = time.Hour

// Service implements the recording library operations.
type Service struct {
	repo       Repository
	store      ObjectStore
	embedder   embed.Embedder
	dispatcher Dispatcher
}

// New creates the library service. The embedder is optional: without one,
// Search falls back to full-text matching only. The dispatcher is optional
// for read-only deployments.
func New(r Repository, store ObjectStore, embedder embed.Embedder, dispatcher Dispatcher) *Service {
	return &Service{repo: r, store: store, embedder: embedder, dispatcher: dispatcher}
}

// Create inserts a new recording owned by userID. The row is created the
// moment capture stops, in processing status; the audio lands later via
// FinishUpload.
func (s *Service) Create(ctx context.Context, userID, title string, durationSeconds int) (*domain.Recording, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if durationSeconds < 0 || durationSeconds > domain.MaxRecordingDurationSeconds {
		return nil, fmt.Errorf("duration %d out of range", durationSeconds)
	}
	rec := &domain.Recording{
		UserID:          userID,
		Title:           strings.TrimSpace(title),
		DurationSeconds: durationSeconds,
		Status:          domain.StatusProcessing,
	}
	if rec.Title == "" {
		rec.Title = "New recording"
	}
	if err := s.repo.CreateRecording(ctx, rec); err != nil {
		return nil, fmt.Errorf("create recording: %w", err)
	}
	return rec, nil
}

// FinishUpload records where the audio landed and hands the recording to the
// pipeline. The audio path is set at most once; a repeat call for the same
// recording fails rather than silently rebinding the row to a new object.
func (s *Service) FinishUpload(ctx context.Context, recordingID, audioPath string, sizeBytes int64) error {
	if audioPath == "" {
		return fmt.Errorf("audio path is required")
	}
	if err := s.repo.SetAudioPath(ctx, recordingID, audioPath, sizeBytes); err != nil {
		return fmt.Errorf("set audio path: %w", err)
	}
	if s.dispatcher != nil {
		s.dispatcher.Dispatch(recordingID)
	}
	return nil
}

// List returns the user's recordings, newest first.
func (s *Service) List(ctx context.Context, userID string, opts repo.ListOptions) ([]domain.Recording, error) {
	return s.repo.ListRecordings(ctx, userID, opts)
}

// Search matches the user's recordings against the query, semantically when
// an embedder is available and by transcript full-text otherwise. A failed
// embedding degrades to the full-text path instead of failing the search.
func (s *Service) Search(ctx context.Context, userID, query string, limit int) ([]domain.Recording, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.repo.ListRecordings(ctx, userID, repo.ListOptions{Limit: limit})
	}

	if s.embedder != nil {
		vec, err := s.embedder.Embed(ctx, query)
		if err != nil {
			log.Printf("memos: embed query: %v (falling back to full-text)", err)
		} else {
			return s.repo.SearchSemantic(ctx, userID, vec, limit)
		}
	}
	return s.repo.SearchRecordings(ctx, userID, query, limit)
}

// Rename sets a recording's title.
func (s *Service) Rename(ctx context.Context, recordingID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("title is required")
	}
	return s.repo.RenameRecording(ctx, recordingID, title)
}

// SetHidden toggles a recording's hidden flag.
func (s *Service) SetHidden(ctx context.Context, recordingID string, hidden bool) error {
	return s.repo.SetHidden(ctx, recordingID, hidden)
}

// Delete removes a recording: the stored audio object first, then the rows.
// This order can leave a row pointing at deleted audio if the row delete
// fails, which a retry fixes; the reverse order would strand an orphan object
// nothing references. A missing object is treated as already deleted.
func (s *Service) Delete(ctx context.Context, recordingID string) error {
	rec, err := s.repo.GetRecording(ctx, recordingID)
	if err != nil {
		return fmt.Errorf("fetch recording: %w", err)
	}
	if rec.AudioPath != "" {
		if err := s.store.Delete(ctx, rec.AudioPath); err != nil {
			return fmt.Errorf("delete audio: %w", err)
		}
	}
	if err := s.repo.DeleteRecording(ctx, recordingID); err != nil {
		return fmt.Errorf("delete recording: %w", err)
	}
	return nil
}

// PlaybackURL returns a signed URL for the recording's audio.
func (s *Service) PlaybackURL(ctx context.Context, recordingID string) (string, error) {
	rec, err := s.repo.GetRecording(ctx, recordingID)
	if err != nil {
		return "", fmt.Errorf("fetch recording: %w", err)
	}
	if rec.AudioPath == "" {
		return "", fmt.Errorf("recording %s: %w", recordingID, objectstore.ErrNotFound)
	}
	url, err := s.store.SignedURL(ctx, rec.AudioPath, PlaybackURLExpiry)
	if err != nil {
		return "", fmt.Errorf("sign playback url: %w", err)
	}
	return url, nil
}
