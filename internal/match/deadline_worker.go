package match

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/smashladder/backend/internal/config"
)

// StartDeadlineWorker forfeits sessions whose active phase ran out the
// clock, so a player who walks away cannot leave the opponent waiting
// forever. Deadlines live in a Redis sorted set keyed by room code; every
// applied intent re-arms the room's deadline, so only genuinely idle rooms
// ever come due.
func StartDeadlineWorker(ctx context.Context, m *Machine, rdb *redis.Client, cfg *config.Config) {
	go func() {
		ticker := time.NewTicker(time.Duration(cfg.DeadlinePollSeconds) * time.Second)
		defer ticker.Stop()

		log.Printf("[DEADLINE] Deadline worker started (poll every %ds, phase deadline %ds)",
			cfg.DeadlinePollSeconds, cfg.PhaseDeadlineSeconds)

		for {
			select {
			case <-ctx.Done():
				log.Printf("[DEADLINE] Deadline worker stopped")
				return
			case <-ticker.C:
				processDeadlines(ctx, m, rdb)
			}
		}
	}()
}

func processDeadlines(ctx context.Context, m *Machine, rdb *redis.Client) {
	now := time.Now().Unix()
	rooms, err := rdb.ZRangeByScore(ctx, phaseDeadlineKey, &redis.ZRangeBy{
		Min: "-inf", Max: fmt.Sprintf("%d", now),
	}).Result()
	if err != nil {
		log.Printf("[DEADLINE] failed to fetch due deadlines: %v", err)
		return
	}

	for _, room := range rooms {
		// Claim before acting so concurrent workers never double-forfeit.
		removed, _ := rdb.ZRem(ctx, phaseDeadlineKey, room).Result()
		if removed == 0 {
			continue
		}

		s, err := m.ForfeitExpired(ctx, room)
		switch {
		case err == nil:
			winner := "nobody"
			if s.MatchWinner != nil {
				winner = *s.MatchWinner
			}
			log.Printf("[DEADLINE] room %s forfeited on deadline, winner=%s", room, winner)
		case deadlineSpent(err):
			// Already terminal or gone; nothing to do.
		default:
			// Transient failure: the claim removed the deadline, so put it
			// back or the room would hang with no clock forever.
			if err := rdb.ZAdd(ctx, phaseDeadlineKey, redis.Z{Score: float64(now), Member: room}).Err(); err != nil {
				log.Printf("[DEADLINE] failed to re-arm room %s: %v", room, err)
			}
			log.Printf("[DEADLINE] forfeit failed for room %s, re-armed for next sweep: %v", room, err)
		}
	}
}

// deadlineSpent reports whether a forfeit failure means the worker must not
// put the deadline back: the session already terminated, never existed, or
// a concurrent intent beat the forfeit and armed a fresh deadline of its
// own. Any other failure is transient and the deadline must survive it.
func deadlineSpent(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict)
}
