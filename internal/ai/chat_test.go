package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestChatGenerator_Generate(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"[{\"title\":\"A\"}]"}}],"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`))
	}))
	defer server.Close()

	g := NewChatGenerator("key", server.URL+"/", "llama-3.1-8b-instant", time.Second)
	text, err := g.Generate(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if text != `[{"title":"A"}]` {
		t.Errorf("Generate() = %q", text)
	}
	if got.Model != "llama-3.1-8b-instant" || len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "user" {
		t.Errorf("unexpected request %+v", got)
	}
}

func TestChatGenerator_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantLimit bool
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{}`, wantLimit: true},
		{name: "api error", status: http.StatusBadRequest, body: `{"error":{"message":"bad model"}}`},
		{name: "no choices", status: http.StatusOK, body: `{"choices":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			g := NewChatGenerator("key", server.URL, "m", time.Second)
			_, err := g.Generate(context.Background(), "sys", "user")
			if err == nil {
				t.Fatal("Generate() should fail")
			}
			if errors.Is(err, ErrRateLimited) != tt.wantLimit {
				t.Errorf("errors.Is(ErrRateLimited) = %v, want %v (err %v)", !tt.wantLimit, tt.wantLimit, err)
			}
		})
	}
}

func TestChatGenerator_OversizedResponseIsCapped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"`))
		w.Write([]byte(strings.Repeat("a", maxChatResponseBytes+1024)))
		w.Write([]byte(`"}}]}`))
	}))
	defer server.Close()

	g := NewChatGenerator("key", server.URL, "m", 5*time.Second)
	_, err := g.Generate(context.Background(), "sys", "user")
	if err == nil {
		t.Fatal("Generate() should fail when the body exceeds the read cap")
	}
	if !strings.Contains(err.Error(), "decode response") {
		t.Errorf("Generate() error = %v, want decode failure", err)
	}
}

func TestChatGenerator_NoKey(t *testing.T) {
	g := NewChatGenerator("", "", "m", 0)
	if _, err := g.Generate(context.Background(), "s", "u"); !errors.Is(err, ErrNoCredentials) {
		t.Errorf("Generate() error = %v, want ErrNoCredentials", err)
	}
}
