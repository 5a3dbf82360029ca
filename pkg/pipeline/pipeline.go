// Package pipeline drives a recording from processing to a terminal status
// after its audio has been durably stored: download, transcription, best-effort
// embedding, transcript persistence, best-effort summarization, notification.
//
// Transcription is the critical path: any failure before a transcript exists
// marks the recording failed. Summarization and embedding are enrichment only;
// their failures are logged and swallowed, and the recording still reaches
// ready. Repeated runs are idempotent at the data level because transcript and
// summary writes are upserts keyed on recording_id.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"voicemind/pkg/domain"
	"voicemind/pkg/embed"
	"voicemind/pkg/summarize"
	"voicemind/pkg/transcribe"
)

// Repository is the slice of recording storage the pipeline consumes.
type Repository interface {
	GetRecording(ctx context.Context, id string) (*domain.Recording, error)
	UpdateStatus(ctx context.Context, id string, status domain.RecordingStatus) error
	UpsertTranscript(ctx context.Context, t *domain.Transcript) error
	GetFinalTranscript(ctx context.Context, recordingID string) (*domain.Transcript, error)
	UpdateTranscriptText(ctx context.Context, recordingID, fullText string, embedding []float32) error
	UpsertSummary(ctx context.Context, s *domain.Summary) error
	GetProfileFlags(ctx context.Context, userID string) (domain.ProfileFlags, error)
}

// ObjectStore is the slice of object storage the pipeline consumes.
type ObjectStore interface {
	Download(ctx context.Context, path string) ([]byte, error)
}

// Notifier sends best-effort push notifications.
type Notifier interface {
	Send(ctx context.Context, token, title, body string) error
}

// Config wires the pipeline dependencies. Repo, Store, and Transcriber are
// required; Summarizer, Embedder, and Notifier are optional enrichments.
type Config struct {
	Repo        Repository
	Store       ObjectStore
	Transcriber transcribe.Transcriber
	Summarizer  summarize.Summarizer
	Embedder    embed.Embedder
	Notifier    Notifier

	// RunTimeout bounds a single background run started by Dispatch.
	// Zero means the default of 15 minutes.
	RunTimeout time.Duration
}

const defaultRunTimeout = 15 * time.Minute

// pushTitle is the notification title shown on device.
const pushTitle = "VoiceMind"

// Processor orchestrates pipeline runs. Concurrent runs for the same
// recording are not deduplicated here: status writes are absolute values and
// transcript/summary writes are upserts, so racing runs converge
// (last-write-wins) instead of corrupting state.
type Processor struct {
	repo        Repository
	store       ObjectStore
	transcriber transcribe.Transcriber
	summarizer  summarize.Summarizer
	embedder    embed.Embedder
	notifier    Notifier
	runTimeout  time.Duration

	wg sync.WaitGroup
}

// New creates a Processor from the given config.
func New(cfg Config) (*Processor, error) {
	if cfg.Repo == nil {
		return nil, fmt.Errorf("pipeline: repository is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("pipeline: object store is required")
	}
	if cfg.Transcriber == nil {
		return nil, fmt.Errorf("pipeline: transcriber is required")
	}
	timeout := cfg.RunTimeout
	if timeout <= 0 {
		timeout = defaultRunTimeout
	}
	return &Processor{
		repo:        cfg.Repo,
		store:       cfg.Store,
		transcriber: cfg.Transcriber,
		summarizer:  cfg.Summarizer,
		embedder:    cfg.Embedder,
		notifier:    cfg.Notifier,
		runTimeout:  timeout,
	}, nil
}

// Dispatch starts a pipeline run in the background and returns immediately.
// The run carries its own timeout and guarantees the failed write-back on
// every exit path, including panics, so a recording can never be left stuck
// in processing by a crashed run.
func (p *Processor) Dispatch(recordingID string) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), p.runTimeout)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				log.Printf("pipeline: run for %s panicked: %v", recordingID, r)
				p.failUnlessReady(recordingID)
			}
		}()

		if err := p.Process(ctx, recordingID); err != nil {
			log.Printf("pipeline: run for %s: %v", recordingID, err)
		}
	}()
}

// Wait blocks until all background runs started by Dispatch have finished.
func (p *Processor) Wait() {
	p.wg.Wait()
}

// Process runs the pipeline synchronously for one recording.
//
// A missing recording aborts with the repository's not-found error and no
// mutation. Every fatal error after that point writes status=failed before
// returning. Returns nil once the recording reached a terminal status, even
// when enrichment steps were skipped or failed.
func (p *Processor) Process(ctx context.Context, recordingID string) error {
	if recordingID == "" {
		return fmt.Errorf("recording id is required")
	}

	rec, err := p.repo.GetRecording(ctx, recordingID)
	if err != nil {
		// The subject doesn't exist (or can't be read): nothing to mutate.
		return fmt.Errorf("fetch recording: %w", err)
	}

	// A manual retry re-enters here from failed; reflect that the recording
	// is being worked on again.
	if rec.Status == domain.StatusFailed {
		if err := p.repo.UpdateStatus(ctx, rec.ID, domain.StatusProcessing); err != nil {
			log.Printf("pipeline: reset %s to processing: %v", rec.ID, err)
		}
	}

	flags, err := p.repo.GetProfileFlags(ctx, rec.UserID)
	if err != nil {
		// Flags default to enabled; a read failure must not kill the run.
		log.Printf("pipeline: fetch flags for user %s: %v (using defaults)", rec.UserID, err)
		flags = domain.DefaultProfileFlags()
	}

	if !flags.TranscriptionEnabled {
		if err := p.repo.UpdateStatus(ctx, rec.ID, domain.StatusReady); err != nil {
			return fmt.Errorf("mark %s ready: %w", rec.ID, err)
		}
		log.Printf("pipeline: %s ready (transcription disabled by user)", rec.ID)
		p.push(ctx, flags.ExpoPushToken, "Your recording is ready.")
		return nil
	}

	if rec.AudioPath == "" {
		return p.fail(ctx, rec.ID, fmt.Errorf("no audio path on recording"))
	}

	audio, err := p.store.Download(ctx, rec.AudioPath)
	if err != nil {
		return p.fail(ctx, rec.ID, fmt.Errorf("download audio: %w", err))
	}

	result, err := p.transcriber.Transcribe(ctx, audio, domain.AudioContentType)
	if err != nil {
		return p.fail(ctx, rec.ID, fmt.Errorf("transcribe: %w", err))
	}

	// Embedding is purely additive: compute it before the upsert so the
	// transcript lands with its vector in one write, but never let a
	// failure block the pipeline.
	var vector []float32
	if p.embedder != nil && strings.TrimSpace(result.Text) != "" {
		vector, err = p.embedder.Embed(ctx, embed.Truncate(result.Text))
		if err != nil {
			log.Printf("pipeline: embed transcript for %s: %v (continuing without)", rec.ID, err)
			vector = nil
		}
	}

	transcript := &domain.Transcript{
		RecordingID: rec.ID,
		FullText:    result.Text,
		Words:       result.Words,
		Language:    result.Language,
		Provider:    p.transcriber.Provider(),
		IsFinal:     true,
		Embedding:   vector,
	}
	if err := p.repo.UpsertTranscript(ctx, transcript); err != nil {
		// No transcript was persisted, so nothing useful was produced.
		return p.fail(ctx, rec.ID, fmt.Errorf("persist transcript: %w", err))
	}

	// The transcript is durable: the recording is usable now, regardless of
	// how summarization goes. This is the last fatal-capable write.
	if err := p.repo.UpdateStatus(ctx, rec.ID, domain.StatusReady); err != nil {
		return fmt.Errorf("mark %s ready: %w", rec.ID, err)
	}
	log.Printf("pipeline: %s ready (%d words, language %s)", rec.ID, len(result.Words), result.Language)

	summarized := false
	if flags.SummarizationEnabled && p.summarizer != nil {
		summarized = p.runSummarization(ctx, rec.ID)
	}

	body := "Your recording is ready."
	if summarized {
		body = "Your summary is ready."
	}
	p.push(ctx, flags.ExpoPushToken, body)

	return nil
}

// runSummarization reads the persisted final transcript back and produces a
// summary from it. Persistence is a precondition, not a suggestion: racing
// runs may have replaced the in-memory text by now, and the summary must
// describe what is actually stored. All failures are swallowed.
func (p *Processor) runSummarization(ctx context.Context, recordingID string) bool {
	stored, err := p.repo.GetFinalTranscript(ctx, recordingID)
	if err != nil {
		log.Printf("pipeline: read transcript for summary of %s: %v (skipping summary)", recordingID, err)
		return false
	}
	if strings.TrimSpace(stored.FullText) == "" {
		log.Printf("pipeline: transcript for %s is empty, skipping summary", recordingID)
		return false
	}

	result, err := p.summarizer.Summarize(ctx, stored.FullText)
	if err != nil {
		log.Printf("pipeline: summarize %s: %v (skipping summary)", recordingID, err)
		return false
	}

	summary := &domain.Summary{
		RecordingID: recordingID,
		Content:     result.Summary,
		KeyPoints:   result.KeyPoints,
		Model:       p.summarizer.Model(),
	}
	if err := p.repo.UpsertSummary(ctx, summary); err != nil {
		log.Printf("pipeline: persist summary for %s: %v (skipping summary)", recordingID, err)
		return false
	}
	return true
}

// fail writes the failed status and returns the causing error. The write-back
// runs on a fresh context so a canceled or expired run context cannot drop it;
// losing this write would leave the recording stuck in processing forever.
func (p *Processor) fail(ctx context.Context, recordingID string, cause error) error {
	wbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	if err := p.repo.UpdateStatus(wbCtx, recordingID, domain.StatusFailed); err != nil {
		log.Printf("pipeline: CRITICAL: failed write-back for %s dropped: %v", recordingID, err)
		return errors.Join(cause, fmt.Errorf("write failed status: %w", err))
	}
	return cause
}

// failUnlessReady is the panic-path write-back. A panic after the recording
// already reached ready (i.e. during enrichment) must not flip it back.
func (p *Processor) failUnlessReady(recordingID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rec, err := p.repo.GetRecording(ctx, recordingID)
	if err == nil && rec.Status == domain.StatusReady {
		return
	}
	if err := p.repo.UpdateStatus(ctx, recordingID, domain.StatusFailed); err != nil {
		log.Printf("pipeline: CRITICAL: failed write-back for %s dropped: %v", recordingID, err)
	}
}

// push sends a best-effort notification. Token absence and delivery failures
// are swallowed; delivery is never part of the pipeline contract.
func (p *Processor) push(ctx context.Context, token, body string) {
	if p.notifier == nil || token == "" {
		return
	}
	if err := p.notifier.Send(ctx, token, pushTitle, body); err != nil {
		log.Printf("pipeline: push notification: %v (ignored)", err)
	}
}
