// Package playback maps a continuously advancing playback position to the
// transcript word being spoken, so the client can highlight words in sync
// with audio. The mapping is a pure function of (words, position, playing):
// the Synchronizer holds only the word spans and recomputes the index on
// every position tick.
package playback

// NoWord is the index reported when no word contains the current position:
// playback is paused or stopped, the position falls in a gap between words,
// or no words are loaded.
const NoWord = -1

// DefaultSkipSeconds is the skip-forward/backward step the player uses.
const DefaultSkipSeconds = 15

// Span is a word's time interval in seconds. Spans come from the transcript
// word sequence: Start <= End, with Start non-decreasing across the slice.
type Span struct {
	Start float64
	End   float64
}

// WordIndex returns the index of the first span containing position, or
// NoWord if none does. Bounds are inclusive on both ends, so a position
// exactly on a boundary of two contiguous spans belongs to the earlier one.
// Providers deliver non-overlapping spans; if spans do overlap, first match
// in scan order wins.
func WordIndex(words []Span, position float64) int {
	for i, w := range words {
		if position >= w.Start && position <= w.End {
			return i
		}
	}
	return NoWord
}

// Synchronizer tracks the active word for a single loaded transcript.
// It is not safe for concurrent use; the client drives it from one
// position-update loop.
type Synchronizer struct {
	words   []Span
	current int
}

// NewSynchronizer returns a synchronizer with no words loaded.
func NewSynchronizer() *Synchronizer {
	return &Synchronizer{current: NoWord}
}

// SetWords replaces the active word sequence and invalidates any previously
// computed index. Called when a transcript loads or is replaced.
func (s *Synchronizer) SetWords(words []Span) {
	s.words = words
	s.current = NoWord
}

// Tick recomputes the active word index for the given position. While not
// playing the index is always NoWord regardless of position, so the UI never
// highlights a stale word during pause. Seeking needs no special handling:
// the next tick after a seek re-evaluates from the new position.
func (s *Synchronizer) Tick(position float64, playing bool) int {
	if !playing || len(s.words) == 0 {
		s.current = NoWord
		return s.current
	}
	s.current = WordIndex(s.words, position)
	return s.current
}

// Current returns the index computed by the last Tick.
func (s *Synchronizer) Current() int {
	return s.current
}

// ClampSeek clamps a requested seek position to [0, duration].
func ClampSeek(position, duration float64) float64 {
	if position < 0 {
		return 0
	}
	if position > duration {
		return duration
	}
	return position
}
