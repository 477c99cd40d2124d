package queue

import (
	"context"
	"log"
	"time"

	"github.com/smashladder/backend/internal/config"
)

// StartExpirySweeper periodically cancels waiting entries nobody paired
// with, so stale rows never accumulate or get matched against a player who
// gave up long ago.
func StartExpirySweeper(ctx context.Context, store *Store, cfg *config.Config) {
	go func() {
		ticker := time.NewTicker(time.Duration(cfg.QueueSweepSeconds) * time.Second)
		defer ticker.Stop()

		log.Printf("[QUEUE] Expiry sweeper started (sweep every %ds, entries expire after %dm)",
			cfg.QueueSweepSeconds, cfg.QueueExpiryMinutes)

		for {
			select {
			case <-ctx.Done():
				log.Printf("[QUEUE] Expiry sweeper stopped")
				return
			case <-ticker.C:
				cutoff := time.Now().Add(-time.Duration(cfg.QueueExpiryMinutes) * time.Minute)
				n, err := store.ExpireBefore(ctx, cutoff)
				if err != nil {
					log.Printf("[QUEUE] Sweep failed: %v", err)
					continue
				}
				if n > 0 {
					log.Printf("[QUEUE] Expired %d stale entries", n)
				}
			}
		}
	}()
}
