package store

import "context"

func (s *Store) UpsertLobby(ctx context.Context, l Lobby) error {
	if !s.Enabled() {
		return ErrNotConfigured
	}
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO lobbies (session_id, model_names, starting_chips, small_blind, big_blind, max_hands, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (session_id) DO UPDATE SET
			model_names = EXCLUDED.model_names,
			starting_chips = EXCLUDED.starting_chips,
			small_blind = EXCLUDED.small_blind,
			big_blind = EXCLUDED.big_blind,
			max_hands = EXCLUDED.max_hands,
			status = EXCLUDED.status,
			updated_at = now()
	`, l.SessionID, l.ModelNames, l.StartingChips, l.SmallBlind, l.BigBlind, l.MaxHands, l.Status)
	return err
}

func (s *Store) SetLobbyStatus(ctx context.Context, sessionID, status string) error {
	if !s.Enabled() {
		return ErrNotConfigured
	}
	tag, err := s.Pool.Exec(ctx, `UPDATE lobbies SET status = $2, updated_at = now() WHERE session_id = $1`, sessionID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) SetLobbyRegistration(ctx context.Context, sessionID, registrationRef string) error {
	if !s.Enabled() {
		return ErrNotConfigured
	}
	tag, err := s.Pool.Exec(ctx, `UPDATE lobbies SET registration_ref = $2, updated_at = now() WHERE session_id = $1`, sessionID, registrationRef)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) GetLobby(ctx context.Context, sessionID string) (*Lobby, error) {
	if !s.Enabled() {
		return nil, ErrNotConfigured
	}
	row := s.Pool.QueryRow(ctx, `
		SELECT session_id, model_names, starting_chips, small_blind, big_blind, max_hands, status, registration_ref, created_at, updated_at
		FROM lobbies WHERE session_id = $1
	`, sessionID)
	var l Lobby
	if err := row.Scan(&l.SessionID, &l.ModelNames, &l.StartingChips, &l.SmallBlind, &l.BigBlind, &l.MaxHands, &l.Status, &l.RegistrationRef, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, mapNotFound(err)
	}
	return &l, nil
}

func (s *Store) ListLobbies(ctx context.Context, limit, offset int) ([]Lobby, error) {
	if !s.Enabled() {
		return nil, ErrNotConfigured
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT session_id, model_names, starting_chips, small_blind, big_blind, max_hands, status, registration_ref, created_at, updated_at
		FROM lobbies ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Lobby, 0, limit)
	for rows.Next() {
		var l Lobby
		if err := rows.Scan(&l.SessionID, &l.ModelNames, &l.StartingChips, &l.SmallBlind, &l.BigBlind, &l.MaxHands, &l.Status, &l.RegistrationRef, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Store) CountLobbies(ctx context.Context) (int, error) {
	if !s.Enabled() {
		return 0, ErrNotConfigured
	}
	var c int
	err := s.Pool.QueryRow(ctx, `SELECT COUNT(1) FROM lobbies`).Scan(&c)
	return c, err
}
