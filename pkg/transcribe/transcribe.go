// Package transcribe wraps speech-to-text providers behind a fixed contract:
// audio bytes in, full text plus word-level timestamps out.
package transcribe

import (
	"context"

	"voicemind/pkg/domain"
)

// Result is the common transcription output from any provider.
type Result struct {
	Text     string
	Words    []domain.Word
	Language string
	Duration float64 // audio duration in seconds, 0 if not reported
}

// Transcriber converts raw audio into a transcript. Implementations surface
// provider failures as errors carrying the provider's status and message; the
// pipeline treats any error here as fatal for the run.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mediaType string) (*Result, error)

	// Provider returns the tag stored on transcript rows (e.g. "whisper").
	Provider() string
}
