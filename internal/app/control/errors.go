package control

import "errors"

var (
	// ErrSessionRunning rejects settlement actions against a session
	// that is still playing hands.
	ErrSessionRunning = errors.New("session_running")
	// ErrUnknownSession means neither the ledger, the orchestrator nor
	// the store has heard of the session.
	ErrUnknownSession = errors.New("session_not_found")
	// ErrNoWinner means the session has no standings to resolve a
	// payout recipient from.
	ErrNoWinner = errors.New("winner_unresolved")
)
