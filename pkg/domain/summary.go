package domain

import "time"

// Summary is the generated condensation of a transcript: a short prose
// summary plus ordered key points. One row per recording, keyed on
// RecordingID, created or replaced only after a successful summarization call.
type Summary struct {
	ID          string    `json:"id"`
	RecordingID string    `json:"recording_id"`
	Content     string    `json:"content"`
	KeyPoints   []string  `json:"key_points"`
	Model       string    `json:"model"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
