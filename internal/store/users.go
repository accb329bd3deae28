package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const userColumns = `id, open_id, project_id, wallet_address, creation_time`

func (s *Store) CreateUser(ctx context.Context, user *User) (int64, error) {
	query := `INSERT INTO "user" (open_id, project_id, wallet_address, creation_time)
		VALUES ($1, $2, $3, $4) RETURNING id`

	var id int64
	err := s.db.QueryRowContext(ctx, query,
		user.OpenID, user.ProjectID, user.WalletAddress, user.CreationTime).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user created", zap.Int64("id", id), zap.String("wallet", user.WalletAddress))
	return id, nil
}

func (s *Store) scanUser(row *sql.Row) (*User, error) {
	var user User
	err := row.Scan(&user.ID, &user.OpenID, &user.ProjectID, &user.WalletAddress, &user.CreationTime)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (s *Store) UserByWalletAddress(ctx context.Context, walletAddress string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM "user" WHERE wallet_address = $1`
	return s.scanUser(s.db.QueryRowContext(ctx, query, walletAddress))
}

func (s *Store) UserByOpenID(ctx context.Context, openID uuid.UUID) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM "user" WHERE open_id = $1`
	return s.scanUser(s.db.QueryRowContext(ctx, query, openID))
}

func (s *Store) UserByProjectID(ctx context.Context, projectID string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM "user" WHERE project_id = $1`
	return s.scanUser(s.db.QueryRowContext(ctx, query, projectID))
}
