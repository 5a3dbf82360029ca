package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"

	"voicemind/pkg/embed"
)

// UpdateTranscript replaces the transcript text after a user edit and
// refreshes the embedding so search keeps matching the corrected text.
/// Embedding failure is swallowed: the edit itself must never be lost to a
// provider hiccup. Word timestamps are kept as-is.
func (p *Processor) UpdateTranscript(ctx context.Context, recordingID, fullText string) error {
	if recordingID == "" {
		return fmt.Errorf("recording id is required")
	}

	if _, err := p.repo.GetRecording(ctx, recordingID); err != nil {
		return fmt.Errorf("fetch recording: %w", err)
	}
	if _, err := p.repo.GetFinalTranscript(ctx, recordingID); err != nil {
		return fmt.Errorf("fetch transcript: %w", err)
	}

	text := strings.TrimSpace(fullText)

	var vector []float32
	if p.embedder != nil && text != "" {
		var err error
		vector, err = p.embedder.Embed(ctx, embed.Truncate(text))
		if err != nil {
			log.Printf("pipeline: re-embed transcript for %s: %v (continuing without)", recordingID, err)
			vector = nil
		}
	}

	if err := p.repo.UpdateTranscriptText(ctx, recordingID, text, vector); err != nil {
		return fmt.Errorf("update transcript: %w", err)
	}
	return nil
}
