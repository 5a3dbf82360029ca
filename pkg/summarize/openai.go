package summarize

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
)

const defaultModel = openai.ChatModelGPT4oMini

// systemPrompt instructs the model to answer with the exact JSON shape the
// adapter decodes into Result.
const systemPrompt = `You are an AI assistant that summarizes voice memos. Given a transcript, provide:
1. A concise summary (2-4 sentences)
2. A list of key points (3-7 bullet points)

Respond in JSON format: { "summary": "...", "key_points": ["...", "..."] }`

// maxTranscriptChars caps the transcript sent to the provider. Longer
// transcripts are truncated rather than rejected.
const maxTranscriptChars = 48000

// OpenAI implements Summarizer on the OpenAI chat completions API with JSON
// response format.
type OpenAI struct {
	client *openai.Client
	model  string
}

var _ Summarizer = (*OpenAI)(nil)

// Option customizes the OpenAI summarizer.
type Option func(*config)

type config struct {
	model      string
	baseURL    string
	httpClient *http.Client
}

// WithModel overrides the chat model.
func WithModel(model string) Option {
	return func(c *config) { c.model = model }
}

// WithBaseURL points the adapter at a different API host (tests, proxies).
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *config) { c.httpClient = hc }
}

// NewOpenAI creates an OpenAI summarization adapter.
func NewOpenAI(apiKey string, opts ...Option) *OpenAI {
	cfg := config{
		model:      defaultModel,
		httpClient: http.DefaultClient,
	}
	for _, o := range opts {
		o(&cfg)
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(cfg.httpClient),
	}
	if cfg.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.baseURL))
	}
	client := openai.NewClient(clientOpts...)

	return &OpenAI{client: &client, model: cfg.model}
}

// Model returns the configured chat model identifier.
func (o *OpenAI) Model() string {
	return o.model
}

// Summarize sends the transcript to the chat model and decodes the JSON
// response into a Result.
func (o *OpenAI) Summarize(ctx context.Context, transcriptText string) (*Result, error) {
	text := strings.TrimSpace(transcriptText)
	if text == "" {
		return nil, ErrEmptyTranscript
	}
	if len(text) > maxTranscriptChars {
		text = text[:maxTranscriptChars]
	}

	params := openai.ChatCompletionNewParams{
		Model: o.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(text),
		},
		Temperature: param.NewOpt(0.3),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		},
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("call chat completions: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in completion response")
	}
	choice := resp.Choices[0]
	if choice.Message.Refusal != "" {
		return nil, fmt.Errorf("completion refused: %s", choice.Message.Refusal)
	}

	var result Result
	if err := json.Unmarshal([]byte(choice.Message.Content), &result); err != nil {
		return nil, fmt.Errorf("decode summary JSON: %w", err)
	}
	if strings.TrimSpace(result.Summary) == "" {
		return nil, fmt.Errorf("summary missing from completion response")
	}
	return &result, nil
}
