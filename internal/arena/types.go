package arena

import (
	"fmt"
	"strings"
	"time"

	"stakepit/internal/game"
)

// Session lifecycle statuses, shared with the lobby row.
const (
	StatusWaiting = "waiting"
	StatusRunning = "running"
	StatusStopped = "stopped"
)

const maxSessionIDLen = 64

// Config is the immutable session configuration supplied at start.
type Config struct {
	ModelNames    []string `json:"model_names"`
	StartingChips int64    `json:"starting_chips"`
	SmallBlind    int64    `json:"small_blind"`
	BigBlind      int64    `json:"big_blind"`
	MaxHands      int      `json:"max_hands"`
}

// Validate rejects configs the hand loop cannot run.
func (c Config) Validate() error {
	if len(c.ModelNames) < 2 {
		return &ValidationError{Field: "model_names", Reason: "need at least 2 agents"}
	}
	if len(c.ModelNames) > game.MaxSeats {
		return &ValidationError{Field: "model_names", Reason: fmt.Sprintf("at most %d agents", game.MaxSeats)}
	}
	seen := make(map[string]struct{}, len(c.ModelNames))
	for _, name := range c.ModelNames {
		if strings.TrimSpace(name) == "" {
			return &ValidationError{Field: "model_names", Reason: "empty model name"}
		}
		if _, dup := seen[name]; dup {
			return &ValidationError{Field: "model_names", Reason: "duplicate model name " + name}
		}
		seen[name] = struct{}{}
	}
	if c.StartingChips <= 0 {
		return &ValidationError{Field: "starting_chips", Reason: "must be positive"}
	}
	if c.SmallBlind <= 0 {
		return &ValidationError{Field: "small_blind", Reason: "must be positive"}
	}
	if c.BigBlind < c.SmallBlind {
		return &ValidationError{Field: "big_blind", Reason: "must be at least the small blind"}
	}
	if c.MaxHands <= 0 {
		return &ValidationError{Field: "max_hands", Reason: "must be positive"}
	}
	return nil
}

func validateSessionID(id string) error {
	if strings.TrimSpace(id) == "" {
		return &ValidationError{Field: "session_id", Reason: "must not be empty"}
	}
	if len(id) > maxSessionIDLen {
		return &ValidationError{Field: "session_id", Reason: fmt.Sprintf("longer than %d chars", maxSessionIDLen)}
	}
	return nil
}

// SeatState is one agent's public standing at a hand boundary.
type SeatState struct {
	Seat       int    `json:"seat"`
	Name       string `json:"name"`
	Chips      int64  `json:"chips"`
	Eliminated bool   `json:"eliminated,omitempty"`
}

// Ranking orders agents chips-descending; agents still holding chips
// outrank eliminated ones, and among the eliminated a later bust ranks
// higher.
type Ranking struct {
	Rank           int    `json:"rank"`
	Name           string `json:"name"`
	Chips          int64  `json:"chips"`
	EliminatedHand int    `json:"eliminated_hand,omitempty"`
}

// Stats accumulates over the whole session.
type Stats struct {
	HandsPlayed   int   `json:"hands_played"`
	TotalPot      int64 `json:"total_pot"`
	AgentTimeouts int   `json:"agent_timeouts"`
}

// ChatMessage is one line of agent table talk.
type ChatMessage struct {
	HandNumber int    `json:"hand_number"`
	Name       string `json:"name"`
	Text       string `json:"text"`
}

// Snapshot is the immutable read model published at hand boundaries.
// Readers see a whole old snapshot or a whole new one, never a mix.
type Snapshot struct {
	SessionID  string        `json:"session_id"`
	Status     string        `json:"status"`
	HandNumber int           `json:"hand_number"`
	Config     Config        `json:"config"`
	Button     int           `json:"button"`
	Seats      []SeatState   `json:"seats"`
	Rankings   []Ranking     `json:"rankings"`
	Stats      Stats         `json:"stats"`
	LastHand   *game.Result  `json:"last_hand,omitempty"`
	ChatLog    []ChatMessage `json:"chat_log,omitempty"`
	LastError  string        `json:"last_error,omitempty"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// StateView is the read surface served to transports.
type StateView struct {
	IsRunning bool          `json:"is_running"`
	SessionID string        `json:"session_id,omitempty"`
	GameState *Snapshot     `json:"game_state,omitempty"`
	Stats     Stats         `json:"stats"`
	Rankings  []Ranking     `json:"rankings,omitempty"`
	ChatLog   []ChatMessage `json:"chat_log,omitempty"`
	LastError string        `json:"last_error,omitempty"`
}

// StartResult reports how a start request landed.
type StartResult struct {
	SessionID      string `json:"session_id"`
	AlreadyRunning bool   `json:"already_running"`
}
