package settlement

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

// Receipt is the gateway's proof of one value movement.
type Receipt struct {
	Signature string `json:"signature"`
	Recipient string `json:"recipient"`
	Amount    int64  `json:"amount"`
}

// GatewayError is a definitive rejection from the settlement gateway
// (HTTP 4xx). Transport failures and 5xx responses stay plain errors
// so stage policy can decide whether to retry.
type GatewayError struct {
	Status int
	Code   string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway rejected request: status %d code %s", e.Status, e.Code)
}

// SessionParams mirrors the lobby configuration the gateway registers.
type SessionParams struct {
	ModelNames    []string `json:"model_names"`
	StartingChips int64    `json:"starting_chips"`
	SmallBlind    int64    `json:"small_blind"`
	BigBlind      int64    `json:"big_blind"`
	MaxHands      int      `json:"max_hands"`
}

// GatewayClient talks JSON to the settlement gateway.
type GatewayClient struct {
	baseURL string
	apiKey  string
	inner   *http.Client
}

func NewGatewayClient(baseURL, apiKey string, timeout time.Duration) *GatewayClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GatewayClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		inner:   &http.Client{Timeout: timeout},
	}
}

// Fund moves totalAmount from the escrow into the agents' wallets.
func (c *GatewayClient) Fund(ctx context.Context, sessionID string, agents []string, totalAmount int64) ([]Receipt, error) {
	var out struct {
		Receipts []Receipt `json:"receipts"`
	}
	err := c.postJSON(ctx, "/v1/funds", map[string]any{
		"session_id":   sessionID,
		"agents":       agents,
		"total_amount": totalAmount,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Receipts, nil
}

// Register announces the session lobby to the gateway and returns its
// registration reference.
func (c *GatewayClient) Register(ctx context.Context, sessionID string, params SessionParams) (string, error) {
	var out struct {
		RegistrationRef string `json:"registration_ref"`
	}
	err := c.postJSON(ctx, "/v1/lobbies", map[string]any{
		"session_id":     sessionID,
		"model_names":    params.ModelNames,
		"starting_chips": params.StartingChips,
		"small_blind":    params.SmallBlind,
		"big_blind":      params.BigBlind,
		"max_hands":      params.MaxHands,
	}, &out)
	if err != nil {
		return "", err
	}
	return out.RegistrationRef, nil
}

// Distribute pays the session's escrow out to the winner.
func (c *GatewayClient) Distribute(ctx context.Context, sessionID, winner string) ([]Receipt, error) {
	var out struct {
		Receipts []Receipt `json:"receipts"`
	}
	err := c.postJSON(ctx, "/v1/distributions", map[string]any{
		"session_id": sessionID,
		"winner":     winner,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Receipts, nil
}

func (c *GatewayClient) postJSON(ctx context.Context, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.inner.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	respRaw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil || len(respRaw) == 0 {
			return nil
		}
		return json.Unmarshal(respRaw, out)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(respRaw, &payload)
		if payload.Error == "" {
			payload.Error = http.StatusText(resp.StatusCode)
		}
		return &GatewayError{Status: resp.StatusCode, Code: payload.Error}
	default:
		return fmt.Errorf("gateway status %d on %s", resp.StatusCode, path)
	}
}
