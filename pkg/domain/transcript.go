package domain

import "time"

// Word is a single timestamped word from a speech-to-text provider.
// Start and End are seconds from the beginning of the audio, Start <= End.
// Within a transcript, Start is non-decreasing across the word sequence.
type Word struct {
	Word       string  `json:"word"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
}

// Transcript is the speech-to-text output for a recording.
//
// A recording has at most one transcript row, keyed on RecordingID. A draft
// transcript (IsFinal=false) is captured live on device while recording; the
// authoritative provider result replaces it with IsFinal=true. Writes are
// upserts on RecordingID so repeated pipeline runs never duplicate rows.
type Transcript struct {
	ID          string    `json:"id"`
	RecordingID string    `json:"recording_id"`
	FullText    string    `json:"full_text"`
	Words       []Word    `json:"words"`
	Language    string    `json:"language"`
	Provider    string    `json:"provider"`
	IsFinal     bool      `json:"is_final"`
	Embedding   []float32 `json:"embedding,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
