package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultExpoBaseURL = "https://exp.host/--/api/v2"
	defaultExpoTimeout = 10 * time.Second
)

// Expo implements Notifier on the Expo push service.
type Expo struct {
	baseURL string
	client  *http.Client
}

var _ Notifier = (*Expo)(nil)

// ExpoOption customizes the Expo notifier.
type ExpoOption func(*Expo)

// WithBaseURL points the notifier at a different push host (tests).
func WithBaseURL(url string) ExpoOption {
	return func(e *Expo) { e.baseURL = url }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) ExpoOption {
	return func(e *Expo) { e.client = c }
}

// NewExpo creates an Expo push notifier.
func NewExpo(opts ...ExpoOption) *Expo {
	e := &Expo{
		baseURL: defaultExpoBaseURL,
		client:  &http.Client{Timeout: defaultExpoTimeout},
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

type expoPushMessage struct {
	To    string `json:"to"`
	Title string `json:"title"`
	Body  string `json:"body"`
	Sound string `json:"sound"`
}

// Send delivers a single push message. An empty or blank token is a no-op.
func (e *Expo) Send(ctx context.Context, token, title, body string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}

	payload, err := json.Marshal(expoPushMessage{
		To:    token,
		Title: title,
		Body:  body,
		Sound: "default",
	})
	if err != nil {
		return fmt.Errorf("marshal push message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/push/send", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("push service error: status %d: %s", resp.StatusCode, bytes.TrimSpace(b))
	}
	return nil
}
