package store

import (
	"context"
	"database/sql"
	"fmt"
)

const messageColumns = `id, user_id, title, content, creation_time`

func (s *Store) CreateMessage(ctx context.Context, message *Message) (int64, error) {
	query := `INSERT INTO message (user_id, title, content, creation_time)
		VALUES ($1, $2, $3, $4) RETURNING id`

	var id int64
	err := s.db.QueryRowContext(ctx, query,
		message.UserID, message.Title, message.Content, message.CreationTime).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create message: %w", err)
	}
	return id, nil
}

func (s *Store) MessageByID(ctx context.Context, id int64) (*Message, error) {
	query := `SELECT ` + messageColumns + ` FROM message WHERE id = $1`

	var message Message
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&message.ID, &message.UserID, &message.Title, &message.Content, &message.CreationTime)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return &message, nil
}

func (s *Store) MessagesByUserID(ctx context.Context, userID int64) ([]*Message, error) {
	query := `SELECT ` + messageColumns + ` FROM message WHERE user_id = $1 ORDER BY id DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		var message Message
		err := rows.Scan(&message.ID, &message.UserID, &message.Title, &message.Content, &message.CreationTime)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, &message)
	}
	return messages, rows.Err()
}
