package agent

import (
	"context"
	"strings"

	"stakepit/internal/game"
)

// Action is one decision returned by an agent. Amount is the raise-to
// total for the street when Type is bet or raise and is ignored for
// everything else. Comment is optional table talk.
type Action struct {
	Type    game.ActionType `json:"action"`
	Amount  int64           `json:"amount,omitempty"`
	Comment string          `json:"comment,omitempty"`
}

// Agent decides actions for one seat across a session. Decide must
// honor ctx; a late or failed decision is folded by the arena.
type Agent interface {
	Name() string
	Decide(ctx context.Context, obs Observation) (Action, error)
}

// SeatInfo is the public view of one seat.
type SeatInfo struct {
	Seat      int    `json:"seat"`
	Name      string `json:"name"`
	Stack     int64  `json:"stack"`
	Committed int64  `json:"committed"`
	Folded    bool   `json:"folded"`
	AllIn     bool   `json:"all_in"`
}

// Observation is everything a seat may know when deciding: its own
// hole cards, the public table state, the betting bounds and the
// recent action log. Other seats' hole cards are never included.
type Observation struct {
	SessionID  string             `json:"session_id"`
	HandNumber int                `json:"hand_number"`
	Seat       int                `json:"seat"`
	Name       string             `json:"name"`
	Street     string             `json:"street"`
	HoleCards  []string           `json:"hole_cards"`
	Board      []string           `json:"board"`
	Pot        int64              `json:"pot"`
	ToCall     int64              `json:"to_call"`
	MinRaiseTo int64              `json:"min_raise_to"`
	MaxRaiseTo int64              `json:"max_raise_to"`
	SmallBlind int64              `json:"small_blind"`
	BigBlind   int64              `json:"big_blind"`
	Legal      []string           `json:"legal_actions"`
	Seats      []SeatInfo         `json:"seats"`
	Recent     []game.ActionRecord `json:"recent_actions,omitempty"`
	TableTalk  []string           `json:"table_talk,omitempty"`
}

// MaxComment caps table talk length; longer comments are cut.
const MaxComment = 120

func ClampComment(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > MaxComment {
		s = s[:MaxComment]
	}
	return s
}

// BuildObservation assembles the decision input for the hand's current
// actor. recentActions bounds how much of the hand log is included.
func BuildObservation(sessionID string, h *game.Hand, recentActions int, tableTalk []string) Observation {
	seat := h.ToAct
	legal := h.LegalActions()
	legalStrs := make([]string, 0, len(legal))
	for _, a := range legal {
		legalStrs = append(legalStrs, string(a))
	}
	seats := make([]SeatInfo, 0, len(h.Seats))
	for i, s := range h.Seats {
		seats = append(seats, SeatInfo{
			Seat:      i,
			Name:      s.Name,
			Stack:     s.Stack,
			Committed: s.Committed,
			Folded:    s.Folded,
			AllIn:     s.AllIn,
		})
	}
	recent := h.Log
	if recentActions > 0 && len(recent) > recentActions {
		recent = recent[len(recent)-recentActions:]
	}
	return Observation{
		SessionID:  sessionID,
		HandNumber: h.Number,
		Seat:       seat,
		Name:       h.Seats[seat].Name,
		Street:     string(h.Street),
		HoleCards:  game.CardStrings(h.Seats[seat].Hole),
		Board:      game.CardStrings(h.Board),
		Pot:        h.Pot,
		ToCall:     h.CallAmount(),
		MinRaiseTo: h.MinRaiseTo(),
		MaxRaiseTo: h.MaxRaiseTo(),
		SmallBlind: h.SmallBlind,
		BigBlind:   h.BigBlind,
		Legal:      legalStrs,
		Seats:      seats,
		Recent:     recent,
		TableTalk:  tableTalk,
	}
}
