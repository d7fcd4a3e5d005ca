// Package history persists completed-match records. The engine process
// pushes finished matches onto a Redis queue; the historian process drains
// the queue into Postgres. Keeping the write path a single RPush means a
// game ending never blocks on the database.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jmrtn/partybot/internal/config"
)

// Rdb is the global Redis client. Connect it once at application startup.
var Rdb *redis.Client

// DefaultQueueName is the Redis list the engine journals finished matches to.
var DefaultQueueName = "partybot_matches"

// PlayerResult is one player's line in a finished match.
type PlayerResult struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Score       int    `json:"score"`
	Won         bool   `json:"won"`
}

// MatchRecord holds everything the historian needs to persist one match.
type MatchRecord struct {
	MatchID   uuid.UUID      `json:"match_id"`
	ChannelID string         `json:"channel_id"`
	GuildID   string         `json:"guild_id"`
	Game      string         `json:"game"`
	Outcome   string         `json:"outcome"` // "completed" or a forced-close reason
	Rounds    int            `json:"rounds"`
	Results   []PlayerResult `json:"results"`
	StartedAt int64          `json:"started_at"`
	EndedAt   int64          `json:"ended_at"`
}

// ConnectRedis initializes the global Redis client from the environment:
//   - REDIS_ADDR (default "localhost:6379")
//   - REDIS_DB (optional, default 0)
func ConnectRedis() error {
	addr := config.GetEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := config.GetEnvInt("REDIS_DB", 0)

	Rdb = redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return nil
}

// PublishMatch serializes the record and pushes it onto the historian queue.
func PublishMatch(ctx context.Context, record MatchRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal MatchRecord: %w", err)
	}

	queueName := config.GetEnv("HISTORIAN_QUEUE_NAME", DefaultQueueName)
	if err := Rdb.RPush(ctx, queueName, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", queueName, err)
	}
	return nil
}
