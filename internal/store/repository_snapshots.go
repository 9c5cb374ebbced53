package store

import (
	"context"
	"encoding/json"
)

func (s *Store) UpsertSnapshot(ctx context.Context, sessionID, status string, handNumber int, state json.RawMessage, lastError string) error {
	if !s.Enabled() {
		return ErrNotConfigured
	}
	if len(state) == 0 {
		state = json.RawMessage(`{}`)
	}
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO session_snapshots (session_id, status, hand_number, state, last_error)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (session_id) DO UPDATE SET
			status = EXCLUDED.status,
			hand_number = EXCLUDED.hand_number,
			state = EXCLUDED.state,
			last_error = EXCLUDED.last_error,
			updated_at = now()
	`, sessionID, status, handNumber, state, lastError)
	return err
}

func (s *Store) GetSnapshot(ctx context.Context, sessionID string) (*SessionSnapshot, error) {
	if !s.Enabled() {
		return nil, ErrNotConfigured
	}
	row := s.Pool.QueryRow(ctx, `
		SELECT session_id, status, hand_number, state, last_error, created_at, updated_at
		FROM session_snapshots WHERE session_id = $1
	`, sessionID)
	var snap SessionSnapshot
	if err := row.Scan(&snap.SessionID, &snap.Status, &snap.HandNumber, &snap.State, &snap.LastError, &snap.CreatedAt, &snap.UpdatedAt); err != nil {
		return nil, mapNotFound(err)
	}
	return &snap, nil
}
