package domain

import "time"

// RecordingStatus is the processing state of a recording.
type RecordingStatus string

const (
	// StatusRecording means audio capture is still in progress on device.
	StatusRecording RecordingStatus = "recording"

	// StatusProcessing means the recording was finalized and is moving
	// through the processing pipeline (upload, transcription, summary).
	StatusProcessing RecordingStatus = "processing"

	// StatusReady means a final transcript exists (or transcription was
	// disabled for the user) and the recording is fully usable.
	StatusReady RecordingStatus = "ready"

	// StatusFailed means the pipeline hit a fatal error before a transcript
	// existed. A manual retry moves the recording back to processing.
	StatusFailed RecordingStatus = "failed"
)

// Valid reports whether s is one of the known statuses.
func (s RecordingStatus) Valid() bool {
	switch s {
	case StatusRecording, StatusProcessing, StatusReady, StatusFailed:
		return true
	}
	return false
}

// Recording represents a single captured voice memo and its processing state.
//
// AudioPath is empty until the audio blob has been uploaded to object storage;
// it is set at most once and is required before transcription can start.
type Recording struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	Title           string          `json:"title"`
	DurationSeconds int             `json:"duration_seconds"`
	AudioPath       string          `json:"audio_path,omitempty"`
	Status          RecordingStatus `json:"status"`
	FileSizeBytes   int64           `json:"file_size_bytes"`
	IsHidden        bool            `json:"is_hidden,omitempty"`
	LocationLat     *float64        `json:"location_lat,omitempty"`
	LocationLng     *float64        `json:"location_lng,omitempty"`
	LocationName    string          `json:"location_name,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Storage and capture constants shared with the mobile client.
const (
	// StorageBucket is the object storage bucket holding raw audio files.
	StorageBucket = "recordings"

	// AudioFormat is the container format the recorder produces.
	AudioFormat = "m4a"

	// AudioContentType is the MIME type for uploaded audio.
	AudioContentType = "audio/m4a"

	// MaxRecordingDurationSeconds caps a single memo at one hour.
	MaxRecordingDurationSeconds = 3600
)
