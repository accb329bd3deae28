package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"push-service/internal/observability"
	"push-service/internal/store"
	"push-service/internal/transport"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// TaskStore is the slice of the repository the workers need.
type TaskStore interface {
	TaskByID(ctx context.Context, id int64) (*store.Task, error)
	MessageByID(ctx context.Context, id int64) (*store.Message, error)
	SetTaskDone(ctx context.Context, id int64) error
	MarkTaskRetrying(ctx context.Context, id int64, reason string) error
	SetTaskFailed(ctx context.Context, id int64, reason string) error
}

// Scheduler is the delay-queue surface the workers and dispatcher use.
type Scheduler interface {
	Add(ctx context.Context, taskID int64, fireAt int64) error
	PopDue(ctx context.Context, now int64) ([]int64, error)
}

// DeadLetter announces tasks that reached a terminal fail state.
type DeadLetter interface {
	PublishDeadLetter(ctx context.Context, taskID int64, reason string) error
}

type worker struct {
	id          int
	store       TaskStore
	queue       Scheduler
	drivers     transport.Registry
	dlq         DeadLetter // nil disables dead-letter events
	maxAttempts int        // 0 retries forever
	metrics     *observability.Metrics
	duration    metric.Float64Histogram
	logger      *zap.Logger
}

func (w *worker) run(ctx context.Context, tasks <-chan int64, wg *sync.WaitGroup) {
	defer wg.Done()

	w.logger.Info("worker started", zap.Int("worker_id", w.id))
	for taskID := range tasks {
		w.process(ctx, taskID)
	}
	w.logger.Info("worker stopped", zap.Int("worker_id", w.id))
}

func (w *worker) process(ctx context.Context, taskID int64) {
	task, err := w.store.TaskByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			w.logger.Warn("task row missing, dropping",
				zap.Int("worker_id", w.id), zap.Int64("task_id", taskID))
			return
		}
		// Transient lookup failure: the row is still durable, so put the id
		// back instead of losing the task.
		w.logger.Error("task load failed, re-queueing",
			zap.Int("worker_id", w.id), zap.Int64("task_id", taskID), zap.Error(err))
		if err := w.queue.Add(ctx, taskID, time.Now().Unix()+int64(RetryDelay(0)/time.Second)); err != nil {
			w.logger.Error("failed to re-queue task", zap.Int64("task_id", taskID), zap.Error(err))
		}
		return
	}

	if task.State == store.TaskDone || task.State == store.TaskFail {
		// Redelivered after a crash between push and state update.
		return
	}

	message, err := w.store.MessageByID(ctx, task.MessageID)
	if err != nil {
		w.retryTask(ctx, task, err.Error())
		return
	}

	driver, err := w.drivers.Driver(task.TransportType)
	if err != nil {
		// No driver will ever exist for this task; fail it permanently.
		w.logger.Warn("transport not found",
			zap.Int64("task_id", task.ID), zap.String("transport_type", task.TransportType))
		w.failTask(ctx, task, transport.ErrUnknownType.Error())
		return
	}

	start := time.Now()
	err = driver.Push(ctx, task.ChatID, message.Title, message.Content)
	w.observe(ctx, task.TransportType, time.Since(start), err == nil)

	if err != nil {
		w.logger.Warn("delivery failed",
			zap.Int64("task_id", task.ID),
			zap.Int("retry_count", task.RetryCount),
			zap.Error(err))
		w.retryTask(ctx, task, err.Error())
		return
	}

	if err := w.store.SetTaskDone(ctx, task.ID); err != nil {
		w.logger.Error("failed to mark task done", zap.Int64("task_id", task.ID), zap.Error(err))
		return
	}

	w.logger.Info("task delivered",
		zap.Int64("task_id", task.ID),
		zap.Int64("message_id", task.MessageID),
		zap.String("transport_type", task.TransportType))
}

// retryTask schedules the next attempt with jittered back-off, or moves the
// task to fail once the attempt cap is crossed.
func (w *worker) retryTask(ctx context.Context, task *store.Task, reason string) {
	if w.maxAttempts > 0 && task.RetryCount+1 >= w.maxAttempts {
		w.failTask(ctx, task, reason)
		return
	}

	fireAt := time.Now().Add(RetryDelay(task.RetryCount)).Unix()
	if err := w.queue.Add(ctx, task.ID, fireAt); err != nil {
		w.logger.Error("failed to schedule retry", zap.Int64("task_id", task.ID), zap.Error(err))
		return
	}
	if err := w.store.MarkTaskRetrying(ctx, task.ID, reason); err != nil {
		w.logger.Error("failed to record retry state", zap.Int64("task_id", task.ID), zap.Error(err))
	}
	if w.metrics != nil {
		w.metrics.RetriesScheduled.Inc()
	}
}

func (w *worker) failTask(ctx context.Context, task *store.Task, reason string) {
	if err := w.store.SetTaskFailed(ctx, task.ID, reason); err != nil {
		w.logger.Error("failed to mark task failed", zap.Int64("task_id", task.ID), zap.Error(err))
		return
	}
	if w.metrics != nil {
		w.metrics.TasksFailedTotal.Inc()
	}
	if w.dlq != nil {
		if err := w.dlq.PublishDeadLetter(ctx, task.ID, reason); err != nil {
			w.logger.Error("failed to publish dead letter", zap.Int64("task_id", task.ID), zap.Error(err))
		}
	}
}

func (w *worker) observe(ctx context.Context, transportType string, elapsed time.Duration, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	if w.metrics != nil {
		w.metrics.DeliveriesTotal.WithLabelValues(result).Inc()
	}
	if w.duration != nil {
		w.duration.Record(ctx, elapsed.Seconds(),
			metric.WithAttributes(
				attribute.String("transport_type", transportType),
				attribute.String("result", result),
			))
	}
}

func newDeliveryHistogram() metric.Float64Histogram {
	meter := otel.Meter("push-service/worker")
	histogram, err := meter.Float64Histogram("push.delivery.duration",
		metric.WithDescription("Outbound delivery latency."),
		metric.WithUnit("s"))
	if err != nil {
		return nil
	}
	return histogram
}
