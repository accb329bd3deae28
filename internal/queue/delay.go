package queue

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// popDueScript reads and removes every member with score <= now in one
// server-side step, so an id added with a later score between the read and
// the remove can never be dropped.
var popDueScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], 0, ARGV[1])
if #due > 0 then
    redis.call('ZREMRANGEBYSCORE', KEYS[1], 0, ARGV[1])
end
return due
`)

// DelayQueue is a persistent sorted set over task ids, scored by the Unix
// second at which each task becomes eligible for delivery. The sorted set is
// authoritative for scheduling only; task rows in Postgres are authoritative
// for existence.
type DelayQueue struct {
	client redis.UniversalClient
	key    string
	logger *zap.Logger
}

func NewDelayQueue(client redis.UniversalClient, key string, logger *zap.Logger) *DelayQueue {
	return &DelayQueue{client: client, key: key, logger: logger}
}

// Add schedules a task. Re-adding an id replaces its previous score.
func (q *DelayQueue) Add(ctx context.Context, taskID int64, fireAt int64) error {
	err := q.client.ZAdd(ctx, q.key, redis.Z{
		Score:  float64(fireAt),
		Member: strconv.FormatInt(taskID, 10),
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to add task to delay queue: %w", err)
	}
	return nil
}

// AddMany schedules a batch of tasks at the same fire-at.
func (q *DelayQueue) AddMany(ctx context.Context, taskIDs []int64, fireAt int64) error {
	if len(taskIDs) == 0 {
		return nil
	}

	members := make([]redis.Z, 0, len(taskIDs))
	for _, taskID := range taskIDs {
		members = append(members, redis.Z{
			Score:  float64(fireAt),
			Member: strconv.FormatInt(taskID, 10),
		})
	}

	if err := q.client.ZAdd(ctx, q.key, members...).Err(); err != nil {
		return fmt.Errorf("failed to add tasks to delay queue: %w", err)
	}
	return nil
}

// PopDue atomically extracts every task id due at or before now.
func (q *DelayQueue) PopDue(ctx context.Context, now int64) ([]int64, error) {
	raw, err := popDueScript.Run(ctx, q.client, []string{q.key}, now).StringSlice()
	if err != nil {
		return nil, fmt.Errorf("failed to pop due tasks: %w", err)
	}

	taskIDs := make([]int64, 0, len(raw))
	for _, member := range raw {
		taskID, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			q.logger.Warn("skipping malformed queue member", zap.String("member", member))
			continue
		}
		taskIDs = append(taskIDs, taskID)
	}
	return taskIDs, nil
}

// Size reports the number of scheduled tasks.
func (q *DelayQueue) Size(ctx context.Context) (int64, error) {
	n, err := q.client.ZCard(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read delay queue size: %w", err)
	}
	return n, nil
}
