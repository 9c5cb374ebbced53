package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"stakepit/internal/config"
	"stakepit/internal/game"
)

const systemPrompt = `You are %q, an AI agent playing no-limit Texas hold'em for real stakes against other AI agents. ` +
	`You receive the table state as JSON and must answer with a single JSON object: ` +
	`{"action": one of the legal_actions, "amount": raise-to total for the street when betting or raising, "comment": optional short table talk}. ` +
	`Answer with JSON only.`

// Client talks to an OpenAI-compatible chat completions endpoint.
// One client is shared by every seat in a session.
type Client struct {
	cfg   config.LLMConfig
	inner *http.Client
}

func NewClient(cfg config.LLMConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:   cfg,
		inner: &http.Client{Timeout: cfg.RequestTimeout},
	}
}

// chooseAction asks the model for a structured action. The response
// schema pins the action to the legal set and bounds the amount.
func (c *Client) chooseAction(ctx context.Context, model, system, user string, legal []string, minTo, maxTo int64) (string, int64, string, error) {
	schema := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"action": map[string]any{
				"type": "string",
				"enum": legal,
			},
			"amount": map[string]any{
				"type":    []any{"integer", "null"},
				"minimum": minTo,
				"maximum": maxTo,
			},
			"comment": map[string]any{
				"type":      []any{"string", "null"},
				"maxLength": MaxComment,
			},
		},
		"required": []string{"action"},
	}
	payload := map[string]any{
		"model": model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
		"max_tokens":  c.cfg.MaxTokens,
		"temperature": c.cfg.Temperature,
		"response_format": map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   "poker_action",
				"strict": true,
				"schema": schema,
			},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", 0, "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.inner.Do(req)
	if err != nil {
		return "", 0, "", err
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", 0, "", fmt.Errorf("llm http %d: %s", resp.StatusCode, truncate(string(raw), 400))
	}
	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return "", 0, "", err
	}
	if len(cc.Choices) == 0 {
		return "", 0, "", errors.New("llm returned no choices")
	}
	return parseActionContent(cc.Choices[0].Message.Content, legal, minTo, maxTo)
}

// parseActionContent reads the model output, tolerating prose around
// the JSON object and a few common shapes of sloppiness.
func parseActionContent(content string, legal []string, minTo, maxTo int64) (string, int64, string, error) {
	text := strings.TrimSpace(content)
	if text == "" {
		return "", 0, "", errors.New("llm returned empty content")
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		cleaned := extractJSONObject(text)
		if cleaned == "" {
			return "", 0, "", fmt.Errorf("llm content is not JSON: %s", truncate(text, 200))
		}
		if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
			return "", 0, "", fmt.Errorf("llm content is not JSON: %s", truncate(text, 200))
		}
	}
	act, _ := parsed["action"].(string)
	act = strings.ToLower(strings.TrimSpace(act))
	act = coerceAction(act, legal)
	if act == "" {
		return "", 0, "", fmt.Errorf("llm picked no legal action: %s", truncate(text, 200))
	}
	amount := coerceAmount(parsed["amount"])
	if act == string(game.ActionBet) || act == string(game.ActionRaise) {
		if amount <= 0 {
			amount = minTo
		}
		if amount < minTo {
			amount = minTo
		}
		if amount > maxTo {
			amount = maxTo
		}
	} else {
		amount = 0
	}
	comment, _ := parsed["comment"].(string)
	return act, amount, ClampComment(comment), nil
}

// coerceAction maps near-miss action names onto the legal set; models
// often answer "bet" for an opening raise or vice versa.
func coerceAction(act string, legal []string) string {
	has := func(a string) bool {
		for _, l := range legal {
			if l == a {
				return true
			}
		}
		return false
	}
	if has(act) {
		return act
	}
	switch act {
	case string(game.ActionBet):
		if has(string(game.ActionRaise)) {
			return string(game.ActionRaise)
		}
	case string(game.ActionRaise):
		if has(string(game.ActionBet)) {
			return string(game.ActionBet)
		}
	case string(game.ActionCheck):
		if has(string(game.ActionCall)) {
			return string(game.ActionCall)
		}
	case string(game.ActionCall):
		if has(string(game.ActionCheck)) {
			return string(game.ActionCheck)
		}
	}
	return ""
}

func coerceAmount(raw any) int64 {
	switch t := raw.(type) {
	case float64:
		return int64(t)
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64); err == nil {
			return n
		}
	}
	return 0
}

func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}
	end := strings.LastIndex(s, "}")
	if end < start {
		return ""
	}
	return strings.TrimSpace(s[start : end+1])
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

// LLMAgent is one seat backed by a model on the shared client. The
// model name doubles as the seat name.
type LLMAgent struct {
	model  string
	client *Client
}

func NewLLMAgent(model string, client *Client) *LLMAgent {
	return &LLMAgent{model: model, client: client}
}

func (a *LLMAgent) Name() string { return a.model }

func (a *LLMAgent) Decide(ctx context.Context, obs Observation) (Action, error) {
	user, err := json.Marshal(obs)
	if err != nil {
		return Action{}, err
	}
	system := fmt.Sprintf(systemPrompt, a.model)
	act, amount, comment, err := a.client.chooseAction(ctx, a.model, system, string(user), obs.Legal, obs.MinRaiseTo, obs.MaxRaiseTo)
	if err != nil {
		return Action{}, err
	}
	return Action{Type: game.ActionType(act), Amount: amount, Comment: comment}, nil
}
