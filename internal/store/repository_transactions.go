package store

import "context"

func (s *Store) InsertTransaction(ctx context.Context, tx Transaction) error {
	if !s.Enabled() {
		return ErrNotConfigured
	}
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO transactions (id, session_id, hand_number, from_agent, to_agent, amount_chips, amount_value, kind, signature, status, fail_reason)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, tx.ID, tx.SessionID, tx.HandNumber, tx.FromAgent, tx.ToAgent, tx.AmountChips, tx.AmountValue, tx.Kind, tx.Signature, tx.Status, tx.FailReason)
	return err
}

func (s *Store) UpdateTransactionStatus(ctx context.Context, id, status, signature, failReason string) error {
	if !s.Enabled() {
		return ErrNotConfigured
	}
	tag, err := s.Pool.Exec(ctx, `
		UPDATE transactions
		SET status = $2,
		    signature = CASE WHEN $3 <> '' THEN $3 ELSE signature END,
		    fail_reason = $4,
		    updated_at = now()
		WHERE id = $1
	`, id, status, signature, failReason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListTransactionsBySession(ctx context.Context, sessionID string, limit int) ([]Transaction, error) {
	if !s.Enabled() {
		return nil, ErrNotConfigured
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT id, session_id, hand_number, from_agent, to_agent, amount_chips, amount_value, kind, signature, status, fail_reason, created_at, updated_at
		FROM transactions WHERE session_id = $1
		ORDER BY created_at DESC, id DESC LIMIT $2
	`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Transaction, 0, limit)
	for rows.Next() {
		var tx Transaction
		if err := rows.Scan(&tx.ID, &tx.SessionID, &tx.HandNumber, &tx.FromAgent, &tx.ToAgent, &tx.AmountChips, &tx.AmountValue, &tx.Kind, &tx.Signature, &tx.Status, &tx.FailReason, &tx.CreatedAt, &tx.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (s *Store) GetTransaction(ctx context.Context, id string) (*Transaction, error) {
	if !s.Enabled() {
		return nil, ErrNotConfigured
	}
	row := s.Pool.QueryRow(ctx, `
		SELECT id, session_id, hand_number, from_agent, to_agent, amount_chips, amount_value, kind, signature, status, fail_reason, created_at, updated_at
		FROM transactions WHERE id = $1
	`, id)
	var tx Transaction
	if err := row.Scan(&tx.ID, &tx.SessionID, &tx.HandNumber, &tx.FromAgent, &tx.ToAgent, &tx.AmountChips, &tx.AmountValue, &tx.Kind, &tx.Signature, &tx.Status, &tx.FailReason, &tx.CreatedAt, &tx.UpdatedAt); err != nil {
		return nil, mapNotFound(err)
	}
	return &tx, nil
}
