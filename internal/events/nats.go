package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const SubjectTaskDLQ = "push.task.dlq"

// DeadLetterEvent is published when a task reaches the terminal fail state,
// so operators can inspect undeliverable work without polling the database.
type DeadLetterEvent struct {
	TaskID    int64     `json:"task_id"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

type Publisher struct {
	conn   *nats.Conn
	logger *zap.Logger
}

func NewPublisher(natsURL string, logger *zap.Logger) (*Publisher, error) {
	opts := []nats.Option{
		nats.Name("push-service"),
		nats.Timeout(10 * time.Second),
		nats.ReconnectWait(5 * time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Error("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}

	conn, err := nats.Connect(natsURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Info("connected to NATS", zap.String("url", conn.ConnectedUrl()))
	return &Publisher{conn: conn, logger: logger}, nil
}

func (p *Publisher) Close() {
	p.conn.Close()
}

func (p *Publisher) PublishDeadLetter(ctx context.Context, taskID int64, reason string) error {
	event := DeadLetterEvent{
		TaskID:    taskID,
		Reason:    reason,
		Timestamp: time.Now().UTC(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal dead letter: %w", err)
	}
	if err := p.conn.Publish(SubjectTaskDLQ, data); err != nil {
		return fmt.Errorf("failed to publish dead letter: %w", err)
	}

	p.logger.Debug("published dead letter",
		zap.Int64("task_id", taskID), zap.String("reason", reason))
	return nil
}

// SubscribeDeadLetters wires a handler for ops tooling and tests.
func (p *Publisher) SubscribeDeadLetters(handler func(event *DeadLetterEvent)) (*nats.Subscription, error) {
	return p.conn.Subscribe(SubjectTaskDLQ, func(msg *nats.Msg) {
		var event DeadLetterEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			p.logger.Warn("dropping malformed dead letter", zap.Error(err))
			return
		}
		handler(&event)
	})
}
