package store

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

const transportColumns = `id, user_id, type, chat_id, username, connected, creation_time`

func (s *Store) CreateTransport(ctx context.Context, transport *Transport) (int64, error) {
	query := `INSERT INTO transport (user_id, type, chat_id, username, connected, creation_time)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`

	var id int64
	err := s.db.QueryRowContext(ctx, query,
		transport.UserID, transport.Type, transport.ChatID, transport.Username,
		transport.Connected, transport.CreationTime).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create transport: %w", err)
	}

	s.logger.Info("transport created",
		zap.Int64("id", id),
		zap.Int64("user_id", transport.UserID),
		zap.String("type", transport.Type))
	return id, nil
}

func scanTransport(scan func(dest ...any) error) (*Transport, error) {
	var transport Transport
	err := scan(&transport.ID, &transport.UserID, &transport.Type, &transport.ChatID,
		&transport.Username, &transport.Connected, &transport.CreationTime)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transport: %w", err)
	}
	return &transport, nil
}

func (s *Store) TransportsByUserID(ctx context.Context, userID int64) ([]*Transport, error) {
	query := `SELECT ` + transportColumns + ` FROM transport WHERE user_id = $1 ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transports: %w", err)
	}
	defer rows.Close()

	var transports []*Transport
	for rows.Next() {
		transport, err := scanTransport(rows.Scan)
		if err != nil {
			return nil, err
		}
		transports = append(transports, transport)
	}
	return transports, rows.Err()
}

// DeliverableTransportsByUserID returns the transports that can actually
// receive a push: connected with a bound chat id.
func (s *Store) DeliverableTransportsByUserID(ctx context.Context, userID int64) ([]*Transport, error) {
	query := `SELECT ` + transportColumns + ` FROM transport
		WHERE user_id = $1 AND connected AND chat_id IS NOT NULL ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list deliverable transports: %w", err)
	}
	defer rows.Close()

	var transports []*Transport
	for rows.Next() {
		transport, err := scanTransport(rows.Scan)
		if err != nil {
			return nil, err
		}
		transports = append(transports, transport)
	}
	return transports, rows.Err()
}

func (s *Store) TransportByUserIDAndType(ctx context.Context, userID int64, transportType string) (*Transport, error) {
	query := `SELECT ` + transportColumns + ` FROM transport WHERE user_id = $1 AND type = $2`
	row := s.db.QueryRowContext(ctx, query, userID, transportType)
	return scanTransport(row.Scan)
}

// BindTransportChat points an existing transport at a new chat and marks it
// connected. Used by the inbound /start flow to rebind in place.
func (s *Store) BindTransportChat(ctx context.Context, userID int64, transportType, chatID string, username *string) error {
	query := `UPDATE transport SET chat_id = $3, username = $4, connected = TRUE
		WHERE user_id = $1 AND type = $2`

	res, err := s.db.ExecContext(ctx, query, userID, transportType, chatID, username)
	if err != nil {
		return fmt.Errorf("failed to bind transport chat: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	s.logger.Info("transport chat bound",
		zap.Int64("user_id", userID),
		zap.String("type", transportType),
		zap.String("chat_id", chatID))
	return nil
}
