package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"github.com/jmrtn/partybot/internal/config"
)

// Historian drains finished-match records from the Redis queue and persists
// them to Postgres in batches.
type Historian struct {
	redisClient *redis.Client
	batchSize   int
	flushDelay  time.Duration

	batchMu  sync.Mutex
	batch    []MatchRecord
	ctx      context.Context
	cancelFn context.CancelFunc
}

// NewHistorian constructs a Historian from environment variables or
// defaults.
func NewHistorian() *Historian {
	batchSize := config.GetEnvInt("HISTORIAN_BATCH_SIZE", 20)
	flushMs := config.GetEnvInt("HISTORIAN_FLUSH_MS", 500)

	redisAddr := config.GetEnv("REDIS_ADDR", "localhost:6379")
	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	ctx, cancel := context.WithCancel(context.Background())
	return &Historian{
		redisClient: rdb,
		batchSize:   batchSize,
		flushDelay:  time.Duration(flushMs) * time.Millisecond,
		batch:       make([]MatchRecord, 0, batchSize),
		ctx:         ctx,
		cancelFn:    cancel,
	}
}

// Run connects to the database and drains the queue until Stop is called.
func (h *Historian) Run() {
	ConnectDB()

	go h.readRedisLoop()

	log.Println("partybot-historian service started.")
	<-h.ctx.Done()
	log.Println("partybot-historian shutting down.")
}

// Stop gracefully stops the historian.
func (h *Historian) Stop() {
	h.cancelFn()
}

// readRedisLoop pops records with BLPop, accumulating them into a batch
// that flushes on size or on the flush ticker.
func (h *Historian) readRedisLoop() {
	ticker := time.NewTicker(h.flushDelay)
	defer ticker.Stop()

	queueName := config.GetEnv("HISTORIAN_QUEUE_NAME", DefaultQueueName)

	for {
		select {
		case <-h.ctx.Done():
			h.flushBatchToDB()
			return

		case <-ticker.C:
			h.flushBatchToDB()

		default:
			// BLPop with a short timeout so cancellation is handled.
			res, err := h.redisClient.BLPop(h.ctx, 3*time.Second, queueName).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				log.Printf("[ERROR] BLPop: %v\n", err)
				continue
			}
			if len(res) < 2 {
				continue
			}

			var record MatchRecord
			if err := json.Unmarshal([]byte(res[1]), &record); err != nil {
				log.Printf("invalid match record: %v\n", err)
				continue
			}
			h.appendToBatch(record)
		}
	}
}

func (h *Historian) appendToBatch(record MatchRecord) {
	h.batchMu.Lock()
	defer h.batchMu.Unlock()

	h.batch = append(h.batch, record)
	if len(h.batch) >= h.batchSize {
		h.flushBatchLocked()
	}
}

func (h *Historian) flushBatchToDB() {
	h.batchMu.Lock()
	defer h.batchMu.Unlock()
	h.flushBatchLocked()
}

func (h *Historian) flushBatchLocked() {
	if len(h.batch) == 0 {
		return
	}
	batchCopy := make([]MatchRecord, len(h.batch))
	copy(batchCopy, h.batch)
	h.batch = h.batch[:0]

	ctx := context.Background()
	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range batchCopy {
			if err := InsertMatchTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("insert match %v: %w", rec.MatchID, err)
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("[ERROR] flush batch: %v\n", err)
	} else {
		log.Printf("Flushed %d matches to DB.\n", len(batchCopy))
	}
}
