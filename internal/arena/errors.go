package arena

import "fmt"

// ValidationError rejects a session config before anything is claimed
// or funded.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ConflictError reports a start attempt while a different session is
// running. The orchestrator never pre-empts the active session.
type ConflictError struct {
	RunningSessionID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("session %s is already running", e.RunningSessionID)
}
