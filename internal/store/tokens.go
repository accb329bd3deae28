package store

import (
	"context"
	"fmt"
)

// CreateToken keeps an audit trail of issued access tokens.
func (s *Store) CreateToken(ctx context.Context, token *Token) (int64, error) {
	query := `INSERT INTO token (user_id, access_token, creation_time)
		VALUES ($1, $2, $3) RETURNING id`

	var id int64
	err := s.db.QueryRowContext(ctx, query,
		token.UserID, token.AccessToken, token.CreationTime).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create token: %w", err)
	}
	return id, nil
}
