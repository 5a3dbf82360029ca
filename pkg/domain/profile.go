package domain

// ProfileFlags holds the per-user feature switches the pipeline consults.
// Both transcription and summarization default to enabled when the profile
// row is missing or a column is null.
type ProfileFlags struct {
	TranscriptionEnabled bool
	SummarizationEnabled bool

	// ExpoPushToken is the user's registered push device token.
	// Empty when the user never registered for notifications.
	ExpoPushToken string
}

// DefaultProfileFlags returns the flags used when no profile row exists.
func DefaultProfileFlags() ProfileFlags {
	return ProfileFlags{
		TranscriptionEnabled: true,
		SummarizationEnabled: true,
	}
}
