package rating

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/smashladder/backend/internal/config"
)

const settlementRetryKey = "settlement_retry"

// EnqueueRetry schedules a failed settlement for another attempt. The member
// is the full settlement payload so the worker needs no DB lookup to retry.
func EnqueueRetry(ctx context.Context, rdb *redis.Client, p SettleParams, delay time.Duration) {
	b, err := json.Marshal(p)
	if err != nil {
		log.Printf("[SETTLE] failed to marshal retry payload for room %s: %v", p.RoomCode, err)
		return
	}
	score := float64(time.Now().Add(delay).Unix())
	if err := rdb.ZAdd(ctx, settlementRetryKey, redis.Z{Score: score, Member: string(b)}).Err(); err != nil {
		log.Printf("[SETTLE] failed to enqueue retry for room %s: %v", p.RoomCode, err)
	}
}

// StartSettlementWorker retries settlements that failed at match completion.
// Settlement is the only economically meaningful side effect of a match, so
// failures are queued in a Redis sorted set and retried until they stick.
func StartSettlementWorker(ctx context.Context, rdb *redis.Client, settler *Settler, cfg *config.Config) {
	go func() {
		ticker := time.NewTicker(time.Duration(cfg.SettlementWorkerSeconds) * time.Second)
		defer ticker.Stop()

		log.Printf("[SETTLE] Settlement retry worker started (poll every %ds)", cfg.SettlementWorkerSeconds)

		for {
			select {
			case <-ctx.Done():
				log.Printf("[SETTLE] Settlement retry worker stopped")
				return
			case <-ticker.C:
				processRetries(ctx, rdb, settler, cfg)
			}
		}
	}()
}

func processRetries(ctx context.Context, rdb *redis.Client, settler *Settler, cfg *config.Config) {
	now := time.Now().Unix()
	members, err := rdb.ZRangeByScore(ctx, settlementRetryKey, &redis.ZRangeBy{
		Min: "-inf", Max: fmt.Sprintf("%d", now),
	}).Result()
	if err != nil {
		log.Printf("[SETTLE] failed to fetch retry queue: %v", err)
		return
	}

	for _, m := range members {
		// Claim the member before acting so two instances never double-run.
		removed, _ := rdb.ZRem(ctx, settlementRetryKey, m).Result()
		if removed == 0 {
			continue
		}

		var p SettleParams
		if err := json.Unmarshal([]byte(m), &p); err != nil {
			log.Printf("[SETTLE] dropping malformed retry payload: %v", err)
			continue
		}

		if err := settler.SettleMatch(ctx, p); err != nil {
			log.Printf("[SETTLE] retry failed for room %s: %v", p.RoomCode, err)
			EnqueueRetry(ctx, rdb, p, time.Duration(cfg.SettlementRetrySeconds)*time.Second)
			continue
		}
		log.Printf("[SETTLE] retry succeeded for room %s", p.RoomCode)
	}
}
