package store

import "context"

func (s *Store) UpsertPaymentAccount(ctx context.Context, a PaymentAccount) error {
	if !s.Enabled() {
		return ErrNotConfigured
	}
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO payment_accounts (session_id, address, total_amount, status)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (session_id) DO UPDATE SET
			address = EXCLUDED.address,
			total_amount = EXCLUDED.total_amount,
			status = EXCLUDED.status,
			updated_at = now()
	`, a.SessionID, a.Address, a.TotalAmount, a.Status)
	return err
}

func (s *Store) GetPaymentAccount(ctx context.Context, sessionID string) (*PaymentAccount, error) {
	if !s.Enabled() {
		return nil, ErrNotConfigured
	}
	row := s.Pool.QueryRow(ctx, `
		SELECT session_id, address, total_amount, status, created_at, updated_at
		FROM payment_accounts WHERE session_id = $1
	`, sessionID)
	var a PaymentAccount
	if err := row.Scan(&a.SessionID, &a.Address, &a.TotalAmount, &a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, mapNotFound(err)
	}
	return &a, nil
}

func (s *Store) SetPaymentAccountStatus(ctx context.Context, sessionID, status string) error {
	if !s.Enabled() {
		return ErrNotConfigured
	}
	tag, err := s.Pool.Exec(ctx, `UPDATE payment_accounts SET status = $2, updated_at = now() WHERE session_id = $1`, sessionID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
