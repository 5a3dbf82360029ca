// Package summarize wraps chat-completion providers behind a fixed contract:
// transcript text in, structured summary plus key points out.
package summarize

import (
	"context"
	"errors"
)

// Result is the structured summarization output.
type Result struct {
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"key_points"`
}

// Summarizer condenses a transcript. The adapter requests and parses a
// structured response so callers never deal with free-text parsing.
// Failures here are non-fatal to the pipeline: the caller logs and moves on.
type Summarizer interface {
	Summarize(ctx context.Context, transcriptText string) (*Result, error)

	// Model returns the tag stored on summary rows (e.g. "gpt-4o-mini").
	Model() string
}

// ErrEmptyTranscript is returned when there is nothing to summarize.
var ErrEmptyTranscript = errors.New("summarize: empty transcript")
