package store

import (
	"encoding/json"
	"time"
)

// Lobby is the durable record of a session's configuration and
// lifecycle status.
type Lobby struct {
	SessionID       string    `json:"session_id"`
	ModelNames      []string  `json:"model_names"`
	StartingChips   int64     `json:"starting_chips"`
	SmallBlind      int64     `json:"small_blind"`
	BigBlind        int64     `json:"big_blind"`
	MaxHands        int       `json:"max_hands"`
	Status          string    `json:"status"`
	RegistrationRef string    `json:"registration_ref,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// SessionSnapshot holds the latest serialized game state for a session,
// one row per session.
type SessionSnapshot struct {
	SessionID  string          `json:"session_id"`
	Status     string          `json:"status"`
	HandNumber int             `json:"hand_number"`
	State      json.RawMessage `json:"state"`
	LastError  string          `json:"last_error,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Transaction is one money movement. Rows are never deleted; status
// moves pending -> processing -> completed/failed, and failed rows may
// re-enter pending on retry.
type Transaction struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	HandNumber  int       `json:"hand_number,omitempty"`
	FromAgent   string    `json:"from_agent"`
	ToAgent     string    `json:"to_agent"`
	AmountChips int64     `json:"amount_chips"`
	AmountValue int64     `json:"amount_value,omitempty"`
	Kind        string    `json:"kind"`
	Signature   string    `json:"signature,omitempty"`
	Status      string    `json:"status"`
	FailReason  string    `json:"fail_reason,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PaymentAccount is the escrow account a session pays into. The address
// is fixed by configuration, one account per session.
type PaymentAccount struct {
	SessionID   string    `json:"session_id"`
	Address     string    `json:"address"`
	TotalAmount int64     `json:"total_amount"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
