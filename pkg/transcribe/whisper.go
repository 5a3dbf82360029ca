package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"voicemind/pkg/domain"
)

const (
	defaultWhisperBaseURL = "https://api.openai.com/v1"
	defaultWhisperModel   = "whisper-1"
	defaultWhisperTimeout = 10 * time.Minute
)

// Whisper transcribes audio through the OpenAI audio transcriptions API,
// requesting verbose JSON with word-level timestamp granularity.
type Whisper struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

var _ Transcriber = (*Whisper)(nil)

// WhisperOption customizes the Whisper adapter.
type WhisperOption func(*Whisper)

// WithModel overrides the transcription model.
func WithModel(model string) WhisperOption {
	return func(w *Whisper) { w.model = model }
}

// WithBaseURL points the adapter at a different API host (tests, proxies).
func WithBaseURL(url string) WhisperOption {
	return func(w *Whisper) { w.baseURL = url }
}

// WithHTTPClient overrides the HTTP client (and with it the call timeout).
func WithHTTPClient(c *http.Client) WhisperOption {
	return func(w *Whisper) { w.client = c }
}

// NewWhisper creates a Whisper transcription adapter.
func NewWhisper(apiKey string, opts ...WhisperOption) *Whisper {
	w := &Whisper{
		apiKey:  apiKey,
		model:   defaultWhisperModel,
		baseURL: defaultWhisperBaseURL,
		client:  &http.Client{Timeout: defaultWhisperTimeout},
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Provider returns the transcript provider tag.
func (w *Whisper) Provider() string {
	return "whisper"
}

// whisperResponse is the verbose_json response shape. Only the fields the
// adapter consumes are declared.
type whisperResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Words    []struct {
		Word  string  `json:"word"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"words"`
}

// Transcribe sends the audio bytes to the provider and converts the verbose
// response into the common Result. Words missing a confidence score (Whisper
// reports none) default to 1.0.
func (w *Whisper) Transcribe(ctx context.Context, audio []byte, mediaType string) (*Result, error) {
	if len(audio) == 0 {
		return nil, fmt.Errorf("transcribe: empty audio")
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := mw.WriteField("model", w.model); err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if err := mw.WriteField("response_format", "verbose_json"); err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if err := mw.WriteField("timestamp_granularities[]", "word"); err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	fw, err := mw.CreateFormFile("file", "audio."+domain.AudioFormat)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if _, err := fw.Write(audio); err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+"/audio/transcriptions", &body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+w.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call whisper: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("whisper API error: status %d: %s", resp.StatusCode, bytes.TrimSpace(b))
	}

	var wr whisperResponse
	if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
		return nil, fmt.Errorf("decode whisper response: %w", err)
	}

	words := make([]domain.Word, 0, len(wr.Words))
	for _, rw := range wr.Words {
		words = append(words, domain.Word{
			Word:       rw.Word,
			Start:      rw.Start,
			End:        rw.End,
			Confidence: 1.0,
		})
	}

	language := wr.Language
	if language == "" {
		language = "en"
	}

	return &Result{
		Text:     wr.Text,
		Words:    words,
		Language: language,
		Duration: wr.Duration,
	}, nil
}
