package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"voicemind/pkg/domain"
	"voicemind/pkg/summarize"
	"voicemind/pkg/transcribe"
)

var errNotFound = errors.New("not found")

// fakeRepo is an in-memory Repository recording every mutation.
type fakeRepo struct {
	mu          sync.Mutex
	recordings  map[string]*domain.Recording
	transcripts map[string]*domain.Transcript
	summaries   map[string]*domain.Summary
	flags       map[string]domain.ProfileFlags

	statusHistory   []domain.RecordingStatus
	transcriptSaves int
	summarySaves    int

	failUpsertTranscript bool
	failFlags            bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		recordings:  make(map[string]*domain.Recording),
		transcripts: make(map[string]*domain.Transcript),
		summaries:   make(map[string]*domain.Summary),
		flags:       make(map[string]domain.ProfileFlags),
	}
}

func (r *fakeRepo) GetRecording(ctx context.Context, id string) (*domain.Recording, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.recordings[id]
	if !ok {
		return nil, fmt.Errorf("recording %s: %w", id, errNotFound)
	}
	cp := *rec
	return &cp, nil
}

func (r *fakeRepo) UpdateStatus(ctx context.Context, id string, status domain.RecordingStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.recordings[id]
	if !ok {
		return fmt.Errorf("recording %s: %w", id, errNotFound)
	}
	rec.Status = status
	r.statusHistory = append(r.statusHistory, status)
	return nil
}

func (r *fakeRepo) UpsertTranscript(ctx context.Context, t *domain.Transcript) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUpsertTranscript {
		return errors.New("transcript write refused")
	}
	cp := *t
	r.transcripts[t.RecordingID] = &cp
	r.transcriptSaves++
	return nil
}

func (r *fakeRepo) GetFinalTranscript(ctx context.Context, recordingID string) (*domain.Transcript, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.transcripts[recordingID]
	if !ok || !t.IsFinal {
		return nil, fmt.Errorf("transcript for %s: %w", recordingID, errNotFound)
	}
	cp := *t
	return &cp, nil
}

func (r *fakeRepo) UpdateTranscriptText(ctx context.Context, recordingID, fullText string, embedding []float32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.transcripts[recordingID]
	if !ok {
		return fmt.Errorf("transcript for %s: %w", recordingID, errNotFound)
	}
	t.FullText = fullText
	if len(embedding) > 0 {
		t.Embedding = embedding
	}
	return nil
}

func (r *fakeRepo) UpsertSummary(ctx context.Context, s *domain.Summary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.summaries[s.RecordingID] = &cp
	r.summarySaves++
	return nil
}

func (r *fakeRepo) GetProfileFlags(ctx context.Context, userID string) (domain.ProfileFlags, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failFlags {
		return domain.ProfileFlags{}, errors.New("profile read refused")
	}
	if f, ok := r.flags[userID]; ok {
		return f, nil
	}
	return domain.DefaultProfileFlags(), nil
}

func (r *fakeRepo) status(id string) domain.RecordingStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recordings[id].Status
}

// fakeStore holds audio blobs by path.
type fakeStore struct {
	objects      map[string][]byte
	failDownload bool
}

func (s *fakeStore) Download(ctx context.Context, path string) ([]byte, error) {
	if s.failDownload {
		return nil, errors.New("storage unavailable")
	}
	data, ok := s.objects[path]
	if !ok {
		return nil, fmt.Errorf("object %s: %w", path, errNotFound)
	}
	return data, nil
}

type fakeTranscriber struct {
	result *transcribe.Result
	err    error
	panics bool
	calls  int
}

func (t *fakeTranscriber) Transcribe(ctx context.Context, audio []byte, mediaType string) (*transcribe.Result, error) {
	t.calls++
	if t.panics {
		panic("transcriber exploded")
	}
	if t.err != nil {
		return nil, t.err
	}
	return t.result, nil
}

func (t *fakeTranscriber) Provider() string { return "whisper" }

type fakeSummarizer struct {
	result   *summarize.Result
	err      error
	gotTexts []string
}

func (s *fakeSummarizer) Summarize(ctx context.Context, text string) (*summarize.Result, error) {
	s.gotTexts = append(s.gotTexts, text)
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *fakeSummarizer) Model() string { return "gpt-4o-mini" }

type fakeEmbedder struct {
	vec []float32
	err error
}

func (e *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.vec, nil
}

func (e *fakeEmbedder) Dimension() int { return len(e.vec) }
func (e *fakeEmbedder) Model() string  { return "test-embed" }

type fakeNotifier struct {
	mu     sync.Mutex
	bodies []string
}

func (n *fakeNotifier) Send(ctx context.Context, token, title, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.bodies = append(n.bodies, body)
	return nil
}

// helloResult is the transcription used across scenarios.
func helloResult() *transcribe.Result {
	return &transcribe.Result{
		Text: "hello world",
		Words: []domain.Word{
			{Word: "hello", Start: 0, End: 0.5, Confidence: 1},
			{Word: "world", Start: 0.6, End: 1.1, Confidence: 1},
		},
		Language: "en",
	}
}

type fixture struct {
	repo        *fakeRepo
	store       *fakeStore
	transcriber *fakeTranscriber
	summarizer  *fakeSummarizer
	embedder    *fakeEmbedder
	notifier    *fakeNotifier
	processor   *Processor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		repo:        newFakeRepo(),
		store:       &fakeStore{objects: map[string][]byte{"u1/r1.m4a": []byte("audio")}},
		transcriber: &fakeTranscriber{result: helloResult()},
		summarizer: &fakeSummarizer{
			result: &summarize.Result{Summary: "Greeting.", KeyPoints: []string{"says hello"}},
		},
		embedder: &fakeEmbedder{vec: []float32{0.1, 0.2}},
		notifier: &fakeNotifier{},
	}
	f.repo.recordings["r1"] = &domain.Recording{
		ID:        "r1",
		UserID:    "u1",
		AudioPath: "u1/r1.m4a",
		Status:    domain.StatusProcessing,
	}
	f.repo.flags["u1"] = domain.ProfileFlags{
		TranscriptionEnabled: true,
		SummarizationEnabled: true,
		ExpoPushToken:        "tok",
	}

	p, err := New(Config{
		Repo:        f.repo,
		Store:       f.store,
		Transcriber: f.transcriber,
		Summarizer:  f.summarizer,
		Embedder:    f.embedder,
		Notifier:    f.notifier,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.processor = p
	return f
}

func TestProcessSuccess(t *testing.T) {
	f := newFixture(t)

	if err := f.processor.Process(context.Background(), "r1"); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if got := f.repo.status("r1"); got != domain.StatusReady {
		t.Errorf("status = %s, want ready", got)
	}

	tr := f.repo.transcripts["r1"]
	if tr == nil {
		t.Fatal("no transcript persisted")
	}
	if tr.FullText != "hello world" {
		t.Errorf("FullText = %q, want %q", tr.FullText, "hello world")
	}
	if !tr.IsFinal {
		t.Error("transcript not final")
	}
	if tr.Provider != "whisper" {
		t.Errorf("Provider = %q, want whisper", tr.Provider)
	}
	if len(tr.Embedding) != 2 {
		t.Errorf("len(Embedding) = %d, want 2", len(tr.Embedding))
	}

	sum := f.repo.summaries["r1"]
	if sum == nil {
		t.Fatal("no summary persisted")
	}
	if sum.Content != "Greeting." {
		t.Errorf("summary Content = %q, want %q", sum.Content, "Greeting.")
	}
	if len(sum.KeyPoints) != 1 || sum.KeyPoints[0] != "says hello" {
		t.Errorf("KeyPoints = %v", sum.KeyPoints)
	}

	if len(f.notifier.bodies) != 1 || f.notifier.bodies[0] != "Your summary is ready." {
		t.Errorf("notifications = %v", f.notifier.bodies)
	}
}

func TestProcessTranscriptionDisabled(t *testing.T) {
	f := newFixture(t)
	f.repo.flags["u1"] = domain.ProfileFlags{
		TranscriptionEnabled: false,
		SummarizationEnabled: true,
	}

	if err := f.processor.Process(context.Background(), "r1"); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if f.transcriber.calls != 0 {
		t.Errorf("transcriber called %d times, want 0", f.transcriber.calls)
	}
	if got := f.repo.status("r1"); got != domain.StatusReady {
		t.Errorf("status = %s, want ready", got)
	}
	if len(f.repo.transcripts) != 0 {
		t.Error("transcript persisted despite transcription disabled")
	}
}

func TestProcessTranscriberFailure(t *testing.T) {
	f := newFixture(t)
	f.transcriber.err = errors.New("whisper API error: status 500")

	if err := f.processor.Process(context.Background(), "r1"); err == nil {
		t.Fatal("expected error")
	}

	if got := f.repo.status("r1"); got != domain.StatusFailed {
		t.Errorf("status = %s, want failed", got)
	}
	if len(f.repo.transcripts) != 0 {
		t.Error("partial transcript persisted after provider failure")
	}
	if len(f.repo.summaries) != 0 {
		t.Error("summary persisted after provider failure")
	}
}

func TestProcessDownloadFailure(t *testing.T) {
	f := newFixture(t)
	f.store.failDownload = true

	if err := f.processor.Process(context.Background(), "r1"); err == nil {
		t.Fatal("expected error")
	}
	if got := f.repo.status("r1"); got != domain.StatusFailed {
		t.Errorf("status = %s, want failed", got)
	}
	if f.transcriber.calls != 0 {
		t.Errorf("transcriber called %d times after download failure", f.transcriber.calls)
	}
}

func TestProcessMissingAudioPath(t *testing.T) {
	f := newFixture(t)
	f.repo.recordings["r1"].AudioPath = ""

	if err := f.processor.Process(context.Background(), "r1"); err == nil {
		t.Fatal("expected error")
	}
	if got := f.repo.status("r1"); got != domain.StatusFailed {
		t.Errorf("status = %s, want failed", got)
	}
}

func TestProcessSummarizerFailureIsNonFatal(t *testing.T) {
	f := newFixture(t)
	f.summarizer.err = errors.New("OpenAI API error")

	if err := f.processor.Process(context.Background(), "r1"); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if got := f.repo.status("r1"); got != domain.StatusReady {
		t.Errorf("status = %s, want ready (summary omission is non-fatal)", got)
	}
	tr := f.repo.transcripts["r1"]
	if tr == nil || !tr.IsFinal {
		t.Fatal("final transcript missing")
	}
	if len(f.repo.summaries) != 0 {
		t.Error("summary persisted despite summarizer failure")
	}
	if len(f.notifier.bodies) != 1 || f.notifier.bodies[0] != "Your recording is ready." {
		t.Errorf("notifications = %v", f.notifier.bodies)
	}
}

func TestProcessEmbeddingFailureIsNonFatal(t *testing.T) {
	f := newFixture(t)
	f.embedder.err = errors.New("embeddings unavailable")

	if err := f.processor.Process(context.Background(), "r1"); err != nil {
		t.Fatalf("Process: %v", err)
	}

	tr := f.repo.transcripts["r1"]
	if tr == nil {
		t.Fatal("no transcript persisted")
	}
	if len(tr.Embedding) != 0 {
		t.Errorf("Embedding = %v, want none", tr.Embedding)
	}
	if got := f.repo.status("r1"); got != domain.StatusReady {
		t.Errorf("status = %s, want ready", got)
	}
}

func TestProcessSummarizationDisabled(t *testing.T) {
	f := newFixture(t)
	f.repo.flags["u1"] = domain.ProfileFlags{
		TranscriptionEnabled: true,
		SummarizationEnabled: false,
	}

	if err := f.processor.Process(context.Background(), "r1"); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(f.summarizer.gotTexts) != 0 {
		t.Error("summarizer called despite summarization disabled")
	}
	if got := f.repo.status("r1"); got != domain.StatusReady {
		t.Errorf("status = %s, want ready", got)
	}
}

func TestProcessSummarizerReadsPersistedTranscript(t *testing.T) {
	f := newFixture(t)

	if err := f.processor.Process(context.Background(), "r1"); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if len(f.summarizer.gotTexts) != 1 {
		t.Fatalf("summarizer called %d times, want 1", len(f.summarizer.gotTexts))
	}
	if f.summarizer.gotTexts[0] != f.repo.transcripts["r1"].FullText {
		t.Errorf("summarizer got %q, want the persisted transcript text", f.summarizer.gotTexts[0])
	}
}

func TestProcessTranscriptPersistFailureIsFatal(t *testing.T) {
	f := newFixture(t)
	f.repo.failUpsertTranscript = true

	if err := f.processor.Process(context.Background(), "r1"); err == nil {
		t.Fatal("expected error")
	}
	if got := f.repo.status("r1"); got != domain.StatusFailed {
		t.Errorf("status = %s, want failed", got)
	}
}

func TestProcessMissingRecordingNoMutation(t *testing.T) {
	f := newFixture(t)

	err := f.processor.Process(context.Background(), "nope")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, errNotFound) {
		t.Errorf("error = %v, want not-found", err)
	}
	if len(f.repo.statusHistory) != 0 {
		t.Errorf("status writes = %v, want none", f.repo.statusHistory)
	}
}

func TestProcessFlagReadFailureUsesDefaults(t *testing.T) {
	f := newFixture(t)
	f.repo.failFlags = true

	if err := f.processor.Process(context.Background(), "r1"); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if got := f.repo.status("r1"); got != domain.StatusReady {
		t.Errorf("status = %s, want ready", got)
	}
	if f.transcriber.calls != 1 {
		t.Errorf("transcriber calls = %d, want 1 (defaults enable transcription)", f.transcriber.calls)
	}
}

func TestProcessIdempotentAcrossRuns(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.processor.Process(ctx, "r1"); err != nil {
		t.Fatalf("first Process: %v", err)
	}
	if err := f.processor.Process(ctx, "r1"); err != nil {
		t.Fatalf("second Process: %v", err)
	}

	if len(f.repo.transcripts) != 1 {
		t.Errorf("transcript rows = %d, want exactly 1", len(f.repo.transcripts))
	}
	if len(f.repo.summaries) != 1 {
		t.Errorf("summary rows = %d, want at most 1", len(f.repo.summaries))
	}
	if f.repo.transcriptSaves != 2 {
		t.Errorf("transcript saves = %d, want 2 upserts onto one row", f.repo.transcriptSaves)
	}
	if got := f.repo.status("r1"); got != domain.StatusReady {
		t.Errorf("status = %s, want ready", got)
	}
}

func TestProcessRetryFromFailed(t *testing.T) {
	f := newFixture(t)
	f.repo.recordings["r1"].Status = domain.StatusFailed

	if err := f.processor.Process(context.Background(), "r1"); err != nil {
		t.Fatalf("Process: %v", err)
	}

	// Retry re-enters the pipeline: failed -> processing -> ready.
	if len(f.repo.statusHistory) < 2 {
		t.Fatalf("status history = %v", f.repo.statusHistory)
	}
	if f.repo.statusHistory[0] != domain.StatusProcessing {
		t.Errorf("first transition = %s, want processing", f.repo.statusHistory[0])
	}
	if got := f.repo.status("r1"); got != domain.StatusReady {
		t.Errorf("final status = %s, want ready", got)
	}
}

func TestDispatchWritesFailedOnPanic(t *testing.T) {
	f := newFixture(t)
	f.transcriber.panics = true

	f.processor.Dispatch("r1")
	f.processor.Wait()

	if got := f.repo.status("r1"); got != domain.StatusFailed {
		t.Errorf("status after panicked run = %s, want failed", got)
	}
}

func TestDispatchBackgroundCompletion(t *testing.T) {
	f := newFixture(t)

	f.processor.Dispatch("r1")
	f.processor.Wait()

	if got := f.repo.status("r1"); got != domain.StatusReady {
		t.Errorf("status = %s, want ready", got)
	}
}

func TestUpdateTranscript(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.processor.Process(ctx, "r1"); err != nil {
		t.Fatalf("Process: %v", err)
	}

	f.embedder.vec = []float32{0.9}
	if err := f.processor.UpdateTranscript(ctx, "r1", "hello there"); err != nil {
		t.Fatalf("UpdateTranscript: %v", err)
	}

	tr := f.repo.transcripts["r1"]
	if tr.FullText != "hello there" {
		t.Errorf("FullText = %q, want %q", tr.FullText, "hello there")
	}
	if len(tr.Embedding) != 1 || tr.Embedding[0] != 0.9 {
		t.Errorf("Embedding = %v, want refreshed", tr.Embedding)
	}
}

func TestUpdateTranscriptMissingTranscript(t *testing.T) {
	f := newFixture(t)

	err := f.processor.UpdateTranscript(context.Background(), "r1", "text")
	if err == nil {
		t.Fatal("expected error when no transcript exists")
	}
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Config{})
	if err == nil {
		t.Fatal("expected error for missing dependencies")
	}
}
