package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExpoSend(t *testing.T) {
	var got expoPushMessage
	called := false

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if r.URL.Path != "/push/send" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"data":{"status":"ok"}}`))
	}))
	defer server.Close()

	e := NewExpo(WithBaseURL(server.URL))
	err := e.Send(context.Background(), "ExponentPushToken[abc]", "VoiceMind", "Your recording is ready.")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !called {
		t.Fatal("push endpoint not called")
	}
	if got.To != "ExponentPushToken[abc]" {
		t.Errorf("To = %q", got.To)
	}
	if got.Title != "VoiceMind" || got.Body != "Your recording is ready." {
		t.Errorf("message = %+v", got)
	}
	if got.Sound != "default" {
		t.Errorf("Sound = %q, want default", got.Sound)
	}
}

func TestExpoSendEmptyTokenIsNoop(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("push endpoint called for empty token")
	}))
	defer server.Close()

	e := NewExpo(WithBaseURL(server.URL))
	for _, token := range []string{"", "   "} {
		if err := e.Send(context.Background(), token, "t", "b"); err != nil {
			t.Errorf("Send(%q): %v", token, err)
		}
	}
}

func TestExpoSendServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	e := NewExpo(WithBaseURL(server.URL))
	if err := e.Send(context.Background(), "tok", "t", "b"); err == nil {
		t.Fatal("expected error for service failure")
	}
}
