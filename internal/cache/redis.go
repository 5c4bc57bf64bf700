// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultQueueName is the Redis list (queue) name for match action logs.
const DefaultQueueName = "oldskool_actions"

// ActionMatchEnd is the last record of every match. The historian closes the match row on it.
const ActionMatchEnd = "match_end"

// MatchActionRecord holds the minimal info needed by the historian to persist one action.
type MatchActionRecord struct {
	MatchID       uuid.UUID              `json:"match_id"`
	ActionIndex   int                    `json:"action_index"`
	ActorUserID   uuid.UUID              `json:"actor_user_id"`
	ActionType    string                 `json:"action_type"`
	ActionPayload map[string]interface{} `json:"action_payload"`
	Timestamp     int64                  `json:"timestamp"`
}

// ConnectRedis opens a client against addr and verifies it with a PING.
func ConnectRedis(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// ActionLog pushes match actions onto a Redis list for the historian to drain.
type ActionLog struct {
	rdb   *redis.Client
	queue string
}

// NewActionLog returns an ActionLog writing to queue, or DefaultQueueName if queue is empty.
func NewActionLog(rdb *redis.Client, queue string) *ActionLog {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &ActionLog{rdb: rdb, queue: queue}
}

// Queue returns the list name records are pushed to.
func (l *ActionLog) Queue() string {
	return l.queue
}

// PublishMatchAction serializes the given record to JSON, then pushes it to the Redis queue.
func (l *ActionLog) PublishMatchAction(ctx context.Context, record MatchActionRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal MatchActionRecord: %w", err)
	}
	if err := l.rdb.RPush(ctx, l.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", l.queue, err)
	}
	return nil
}

// PopBatch blocks up to timeout for the first record, then drains up to max-1 more
// without blocking. Malformed entries are returned in bad rather than failing the batch.
func (l *ActionLog) PopBatch(ctx context.Context, max int, timeout time.Duration) (records []MatchActionRecord, bad int, err error) {
	res, err := l.rdb.BLPop(ctx, timeout, l.queue).Result()
	if err == redis.Nil {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("BLPOP %s: %w", l.queue, err)
	}
	raw := []string{res[1]}
	if max > 1 {
		more, err := l.rdb.LPopCount(ctx, l.queue, max-1).Result()
		if err != nil && err != redis.Nil {
			return nil, 0, fmt.Errorf("LPOP %s: %w", l.queue, err)
		}
		raw = append(raw, more...)
	}
	for _, s := range raw {
		var rec MatchActionRecord
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			bad++
			continue
		}
		records = append(records, rec)
	}
	return records, bad, nil
}
