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

	"github.com/keshon/accountability-bot/internal/config"
	"github.com/keshon/accountability-bot/pkg/retrylimit"
)

func chatServer(t *testing.T, status int, content string, check func(r *http.Request, body map[string]any)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if check != nil {
			check(r, body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":"nope"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": content}}},
		})
	}))
}

func TestOpenAIGenerate(t *testing.T) {
	srv := chatServer(t, http.StatusOK, `"<think>hmm</think> Keep going, one rep at a time."`, func(r *http.Request, body map[string]any) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected auth header %q", got)
		}
		if body["model"] != "test-model" {
			t.Errorf("unexpected model %v", body["model"])
		}
		msgs, _ := body["messages"].([]any)
		if len(msgs) != 2 {
			t.Errorf("expected 2 messages, got %d", len(msgs))
		}
	})
	defer srv.Close()

	c := NewOpenAI(srv.URL+"/v1", "secret", "test-model", time.Second, nil)
	reply, err := c.Generate(context.Background(), []Message{
		{Role: RoleSystem, Content: "You are a coach."},
		{Role: RoleUser, Content: "did legs today"},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if reply != "Keep going, one rep at a time." {
		t.Fatalf("unexpected reply %q", reply)
	}
}

func TestPollinationsMarksRequestsPrivate(t *testing.T) {
	srv := chatServer(t, http.StatusOK, "Blessings on your week.", func(r *http.Request, body map[string]any) {
		if r.URL.Path != "/openai" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if body["private"] != true {
			t.Errorf("expected private flag, got %v", body["private"])
		}
		if r.Header.Get("Authorization") != "" {
			t.Errorf("pollinations requests carry no key")
		}
	})
	defer srv.Close()

	p := NewPollinations("", time.Second, nil)
	p.baseURL = srv.URL
	if _, err := p.Generate(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if p.Name() != "pollinations" {
		t.Fatalf("unexpected name %q", p.Name())
	}
}

func TestGenerateOverloadSlowsLimiter(t *testing.T) {
	srv := chatServer(t, http.StatusTooManyRequests, "", nil)
	defer srv.Close()

	lim := retrylimit.NewAdaptiveLimiter(4, 1, 8, 1, 0.5)
	c := NewOpenAI(srv.URL, "", "", time.Second, lim)
	_, err := c.Generate(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if !retrylimit.IsOverload(err) {
		t.Fatalf("expected overload error, got %v", err)
	}
	if got := lim.CurrentLimit(); got != 2 {
		t.Fatalf("expected limiter to halve to 2, got %v", got)
	}
}

func TestGenerateEmptyReply(t *testing.T) {
	srv := chatServer(t, http.StatusOK, "   ", nil)
	defer srv.Close()

	c := NewOpenAI(srv.URL, "", "", time.Second, nil)
	if _, err := c.Generate(context.Background(), nil); !errors.Is(err, ErrEmptyReply) {
		t.Fatalf("expected ErrEmptyReply, got %v", err)
	}
}

func TestCleanReply(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  plain  ", "plain"},
		{`"quoted"`, "quoted"},
		{"“curly”", "curly"},
		{"<think>\nplan\n</think>\nanswer", "answer"},
	}
	for _, tt := range tests {
		if got := cleanReply(tt.in); got != tt.want {
			t.Errorf("cleanReply(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	long := cleanReply(strings.Repeat("a", maxReplyLen+50))
	if n := len([]rune(long)); n != maxReplyLen+1 {
		t.Fatalf("expected truncation to %d runes, got %d", maxReplyLen+1, n)
	}
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(&config.Config{AIProvider: "openai", AIRPS: 2})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if c, ok := p.(*ChatClient); !ok || c.Name() != "openai" {
		t.Fatalf("expected openai client, got %#v", p)
	}
	if _, err := NewProvider(&config.Config{AIProvider: "g4f", AIRPS: 2}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
