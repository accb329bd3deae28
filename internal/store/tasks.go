package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const taskColumns = `id, message_id, user_id, transport, transport_type, chat_id, state, retry_count, reason, creation_time`

func (s *Store) TaskByID(ctx context.Context, id int64) (*Task, error) {
	query := `SELECT ` + taskColumns + ` FROM task WHERE id = $1`

	var task Task
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&task.ID, &task.MessageID, &task.UserID, &task.TransportID, &task.TransportType,
		&task.ChatID, &task.State, &task.RetryCount, &task.Reason, &task.CreationTime)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return &task, nil
}

func (s *Store) SetTaskDone(ctx context.Context, id int64) error {
	query := `UPDATE task SET state = $2 WHERE id = $1`
	if _, err := s.db.ExecContext(ctx, query, id, TaskDone); err != nil {
		return fmt.Errorf("failed to mark task done: %w", err)
	}
	return nil
}

// MarkTaskRetrying records a failed attempt: state becomes retrying, the
// retry counter advances and the last error is kept for inspection.
func (s *Store) MarkTaskRetrying(ctx context.Context, id int64, reason string) error {
	query := `UPDATE task SET state = $2, retry_count = retry_count + 1, reason = $3 WHERE id = $1`
	if _, err := s.db.ExecContext(ctx, query, id, TaskRetrying, reason); err != nil {
		return fmt.Errorf("failed to mark task retrying: %w", err)
	}
	return nil
}

func (s *Store) SetTaskFailed(ctx context.Context, id int64, reason string) error {
	query := `UPDATE task SET state = $2, reason = $3 WHERE id = $1`
	if _, err := s.db.ExecContext(ctx, query, id, TaskFail, reason); err != nil {
		return fmt.Errorf("failed to mark task failed: %w", err)
	}
	return nil
}

// EnqueueMessage inserts one message row plus one pending task per
// deliverable transport inside a single transaction, snapshotting chat_id
// and transport type onto each task. Task ids come back in transport order.
// Either everything commits or nothing does.
func (s *Store) EnqueueMessage(ctx context.Context, userID int64, title, content string, transports []*Transport) ([]int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	var messageID int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO message (user_id, title, content, creation_time) VALUES ($1, $2, $3, $4) RETURNING id`,
		userID, title, content, now).Scan(&messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}

	taskIDs := make([]int64, 0, len(transports))
	for _, transport := range transports {
		if transport.ChatID == nil {
			return nil, fmt.Errorf("transport %d has no chat id", transport.ID)
		}

		var taskID int64
		err = tx.QueryRowContext(ctx,
			`INSERT INTO task (message_id, user_id, transport, transport_type, chat_id, state, retry_count, creation_time)
				VALUES ($1, $2, $3, $4, $5, $6, 0, $7) RETURNING id`,
			messageID, userID, transport.ID, transport.Type, *transport.ChatID, TaskPending, now).Scan(&taskID)
		if err != nil {
			return nil, fmt.Errorf("failed to insert task: %w", err)
		}
		taskIDs = append(taskIDs, taskID)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit enqueue: %w", err)
	}

	s.logger.Info("message enqueued",
		zap.Int64("message_id", messageID),
		zap.Int64("user_id", userID),
		zap.Int("tasks", len(taskIDs)))
	return taskIDs, nil
}
