// Package embed wraps text-embedding providers behind a fixed contract:
// text in, fixed-length float vector out. Vectors power semantic search over
// transcripts; the pipeline treats embedding failures as non-fatal.
package embed

import (
	"context"
	"errors"
)

// MaxInputChars caps the text sent to the provider; longer transcripts are
// truncated by callers before embedding.
const MaxInputChars = 16000

// Embedder converts text into a dense float32 vector.
type Embedder interface {
	// Embed returns the embedding vector for the text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the dimensionality of the output vectors.
	Dimension() int

	// Model returns the provider model identifier.
	Model() string
}

// ErrEmptyInput is returned when the input text is empty.
var ErrEmptyInput = errors.New("embed: empty input")

// Truncate caps text at MaxInputChars.
func Truncate(text string) string {
	if len(text) > MaxInputChars {
		return text[:MaxInputChars]
	}
	return text
}
