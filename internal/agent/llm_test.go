package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"stakepit/internal/config"
	"stakepit/internal/game"
)

func llmServer(t *testing.T, content string, capture *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("bad auth header %q", got)
		}
		if capture != nil {
			var payload map[string]any
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				t.Errorf("decode payload: %v", err)
			}
			*capture = payload
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func llmConfig(url string) config.LLMConfig {
	return config.LLMConfig{
		APIKey:         "test-key",
		BaseURL:        url,
		RequestTimeout: 5 * time.Second,
		MaxTokens:      128,
	}
}

func raiseObservation() Observation {
	return Observation{
		SessionID: "s1", Name: "gpt-test", Street: "preflop",
		Pot: 30, ToCall: 10, MinRaiseTo: 40, MaxRaiseTo: 990,
		Legal: []string{"fold", "call", "raise", "allin"},
	}
}

func TestLLMAgentStructuredAction(t *testing.T) {
	var payload map[string]any
	srv := llmServer(t, `{"action":"raise","amount":100,"comment":"pressure"}`, &payload)
	defer srv.Close()

	ag := NewLLMAgent("gpt-test", NewClient(llmConfig(srv.URL)))
	act, err := ag.Decide(context.Background(), raiseObservation())
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if act.Type != game.ActionRaise || act.Amount != 100 || act.Comment != "pressure" {
		t.Fatalf("unexpected action %+v", act)
	}
	if payload["model"] != "gpt-test" {
		t.Fatalf("model not forwarded: %v", payload["model"])
	}
	rf, ok := payload["response_format"].(map[string]any)
	if !ok || rf["type"] != "json_schema" {
		t.Fatalf("structured output not requested: %v", payload["response_format"])
	}
}

func TestLLMAgentParsesProseWrappedJSON(t *testing.T) {
	srv := llmServer(t, "Thinking it over... {\"action\": \"call\"} done.", nil)
	defer srv.Close()

	ag := NewLLMAgent("gpt-test", NewClient(llmConfig(srv.URL)))
	act, err := ag.Decide(context.Background(), raiseObservation())
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if act.Type != game.ActionCall {
		t.Fatalf("expected call, got %+v", act)
	}
}

func TestLLMAgentCoercesBetToRaise(t *testing.T) {
	srv := llmServer(t, `{"action":"bet","amount":60}`, nil)
	defer srv.Close()

	ag := NewLLMAgent("gpt-test", NewClient(llmConfig(srv.URL)))
	act, err := ag.Decide(context.Background(), raiseObservation())
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if act.Type != game.ActionRaise || act.Amount != 60 {
		t.Fatalf("expected raise 60, got %+v", act)
	}
}

func TestLLMAgentClampsAmount(t *testing.T) {
	srv := llmServer(t, `{"action":"raise","amount":100000}`, nil)
	defer srv.Close()

	ag := NewLLMAgent("gpt-test", NewClient(llmConfig(srv.URL)))
	act, err := ag.Decide(context.Background(), raiseObservation())
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if act.Amount != 990 {
		t.Fatalf("amount should clamp to the all-in total, got %d", act.Amount)
	}
}

func TestLLMAgentRejectsIllegalAction(t *testing.T) {
	srv := llmServer(t, `{"action":"dance"}`, nil)
	defer srv.Close()

	ag := NewLLMAgent("gpt-test", NewClient(llmConfig(srv.URL)))
	if _, err := ag.Decide(context.Background(), raiseObservation()); err == nil {
		t.Fatal("expected an error for an illegal action")
	}
}

func TestLLMAgentHTTPErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ag := NewLLMAgent("gpt-test", NewClient(llmConfig(srv.URL)))
	_, err := ag.Decide(context.Background(), raiseObservation())
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Fatalf("expected a 503 error, got %v", err)
	}
}

func TestLLMAgentTruncatesComment(t *testing.T) {
	long := strings.Repeat("x", 400)
	srv := llmServer(t, fmt.Sprintf(`{"action":"call","comment":%q}`, long), nil)
	defer srv.Close()

	ag := NewLLMAgent("gpt-test", NewClient(llmConfig(srv.URL)))
	act, err := ag.Decide(context.Background(), raiseObservation())
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if len(act.Comment) != MaxComment {
		t.Fatalf("comment should truncate to %d chars, got %d", MaxComment, len(act.Comment))
	}
}
