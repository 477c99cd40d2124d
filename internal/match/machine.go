package match

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/smashladder/backend/internal/config"
	"github.com/smashladder/backend/internal/notify"
	"github.com/smashladder/backend/internal/rating"
)

const phaseDeadlineKey = "phase_deadline"

// Machine is the authoritative coordinator for session state. Every mutating
// intent runs inside one transaction that locks the session row, so per room
// exactly one intent is applied at a time and there is no client-side
// read-then-write window to race through. Committed updates are published on
// the room's notification channel, re-arm the phase deadline, and trigger
// settlement when the match reaches a terminal status.
type Machine struct {
	db       *sqlx.DB
	rdb      *redis.Client
	store    *Store
	notifier *notify.Publisher
	settler  *rating.Settler
	cfg      *config.Config
	rules    Ruleset
}

func NewMachine(db *sqlx.DB, rdb *redis.Client, notifier *notify.Publisher, settler *rating.Settler, cfg *config.Config) *Machine {
	return &Machine{
		db:       db,
		rdb:      rdb,
		store:    NewStore(db),
		notifier: notifier,
		settler:  settler,
		cfg:      cfg,
		rules: Ruleset{
			Game1Player2Bans: cfg.Game1Player2Bans,
			CounterpickBans:  cfg.CounterpickBans,
		},
	}
}

// Store exposes read access for handlers.
func (m *Machine) Store() *Store {
	return m.store
}

// CreateSession creates the room's session record and arms its first
// deadline. Duplicate creation surfaces as ErrConflict from the store.
func (m *Machine) CreateSession(ctx context.Context, p CreateParams) (*Session, error) {
	s, err := m.store.Create(ctx, p)
	if err != nil {
		return nil, err
	}
	log.Printf("[SESSION] created room=%s player1=%s player2=%s", s.RoomCode, s.Player1ID, s.Player2ID)
	ctx = postCommitContext(ctx)
	m.publish(ctx, s)
	m.armDeadline(ctx, s.RoomCode)
	return s, nil
}

// Join seats the caller as player 2 in a host-created room.
func (m *Machine) Join(ctx context.Context, roomCode, userID, username string, fighter *string) (*Session, error) {
	return m.apply(ctx, roomCode, 0, func(s *Session) error {
		return applyJoin(s, userID, username, fighter)
	})
}

// SelectFighter records the caller's fighter pick. Picking a different
// fighter invalidates the opponent's confirmation.
func (m *Machine) SelectFighter(ctx context.Context, roomCode, userID, fighter string) (*Session, error) {
	return m.apply(ctx, roomCode, 0, func(s *Session) error {
		slot, err := m.slotOf(s, userID)
		if err != nil {
			return err
		}
		return applySelectFighter(s, slot, fighter)
	})
}

// SetWantsChange declares (or withdraws) the caller's wish to re-pick.
func (m *Machine) SetWantsChange(ctx context.Context, roomCode, userID string, wants bool) (*Session, error) {
	return m.apply(ctx, roomCode, 0, func(s *Session) error {
		slot, err := m.slotOf(s, userID)
		if err != nil {
			return err
		}
		return applyWantsChange(s, slot, wants)
	})
}

// ConfirmFighter accepts the current pairing. When both sides are confirmed
// with no open change request, the session advances to stage selection.
func (m *Machine) ConfirmFighter(ctx context.Context, roomCode, userID string) (*Session, error) {
	return m.apply(ctx, roomCode, 0, func(s *Session) error {
		slot, err := m.slotOf(s, userID)
		if err != nil {
			return err
		}
		return applyConfirmFighter(s, slot)
	})
}

// BanStages applies the current ban step for the caller.
func (m *Machine) BanStages(ctx context.Context, roomCode, userID string, stages []string, expectedVersion int64) (*Session, error) {
	return m.apply(ctx, roomCode, expectedVersion, func(s *Session) error {
		slot, err := m.slotOf(s, userID)
		if err != nil {
			return err
		}
		return applyBanStages(s, slot, stages, m.rules)
	})
}

// SelectStage applies the current pick step for the caller.
func (m *Machine) SelectStage(ctx context.Context, roomCode, userID, stage string, expectedVersion int64) (*Session, error) {
	return m.apply(ctx, roomCode, expectedVersion, func(s *Session) error {
		slot, err := m.slotOf(s, userID)
		if err != nil {
			return err
		}
		return applySelectStage(s, slot, stage)
	})
}

// ReportResult records the caller's view of the current game's winner and
// returns what the report did: pending, finalized, or mismatched.
func (m *Machine) ReportResult(ctx context.Context, roomCode, userID string, reported PlayerSlot, expectedVersion int64) (*Session, ReportOutcome, error) {
	var out ReportOutcome
	s, err := m.apply(ctx, roomCode, expectedVersion, func(s *Session) error {
		slot, err := m.slotOf(s, userID)
		if err != nil {
			return err
		}
		out, err = applyReportResult(s, slot, reported)
		return err
	})
	return s, out, err
}

// ResetReports clears both report slots of the current game so the players
// can resubmit after a mismatch.
func (m *Machine) ResetReports(ctx context.Context, roomCode, userID string, game int) (*Session, error) {
	return m.apply(ctx, roomCode, 0, func(s *Session) error {
		if _, err := m.slotOf(s, userID); err != nil {
			return err
		}
		return applyResetReports(s, game)
	})
}

// Forfeit concedes the match on behalf of the caller.
func (m *Machine) Forfeit(ctx context.Context, roomCode, userID string) (*Session, error) {
	return m.apply(ctx, roomCode, 0, func(s *Session) error {
		slot, err := m.slotOf(s, userID)
		if err != nil {
			return err
		}
		return applyForfeit(s, slot)
	})
}

// ForfeitExpired terminates a session whose phase deadline lapsed, against
// whichever side was on the clock. Called by the deadline worker.
func (m *Machine) ForfeitExpired(ctx context.Context, roomCode string) (*Session, error) {
	return m.apply(ctx, roomCode, 0, func(s *Session) error {
		return applyForfeit(s, s.NextActor())
	})
}

func (m *Machine) slotOf(s *Session, userID string) (PlayerSlot, error) {
	slot := s.SlotOf(userID)
	if slot == "" {
		return "", validationf("user %s is not a participant of room %s", userID, s.RoomCode)
	}
	return slot, nil
}

// apply is the single write path: lock the row, check the caller's expected
// version if they sent one, run the reducer, save with a version bump, then
// publish and re-arm the deadline.
func (m *Machine) apply(ctx context.Context, roomCode string, expectedVersion int64, fn func(*Session) error) (*Session, error) {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin intent tx: %w", err)
	}
	defer tx.Rollback()

	s, err := m.store.getForUpdate(ctx, tx, roomCode)
	if err != nil {
		return nil, err
	}
	if expectedVersion > 0 && s.Version != expectedVersion {
		return nil, fmt.Errorf("%w: room %s is at version %d, intent expected %d",
			ErrConflict, roomCode, s.Version, expectedVersion)
	}

	wasTerminal := s.Status.Terminal()
	if err := fn(s); err != nil {
		return nil, err
	}

	if err := m.store.save(ctx, tx, s); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit intent: %w", err)
	}

	// The intent is durable now; its side effects must not die with the
	// request. A client that disconnects right after the deciding report
	// still gets the publish, the deadline update, and the settlement.
	ctx = postCommitContext(ctx)

	m.publish(ctx, s)

	if s.Status.Terminal() {
		m.disarmDeadline(ctx, s.RoomCode)
		if !wasTerminal {
			m.settle(ctx, s)
		}
	} else {
		m.armDeadline(ctx, s.RoomCode)
	}
	return s, nil
}

// postCommitContext detaches committed work from the request's lifetime.
// Cancellation of the incoming request must not cancel settlement or the
// retry enqueue, or a completed match could end up permanently unsettled.
func postCommitContext(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

func (m *Machine) publish(ctx context.Context, s *Session) {
	payload, err := json.Marshal(s)
	if err != nil {
		log.Printf("[SESSION] failed to marshal room %s for publish: %v", s.RoomCode, err)
		return
	}
	if err := m.notifier.Publish(ctx, s.RoomCode, payload); err != nil {
		log.Printf("[SESSION] publish failed for room %s: %v", s.RoomCode, err)
	}
}

// settle fires rating settlement for a match that just terminated with a
// winner. Failures are queued for the retry worker; settlement itself is
// idempotent, so at-least-once delivery is safe.
func (m *Machine) settle(ctx context.Context, s *Session) {
	if s.MatchWinner == nil {
		log.Printf("[SESSION] room %s terminated without a winner, no settlement", s.RoomCode)
		return
	}

	winner := PlayerSlot(*s.MatchWinner)
	params := rating.SettleParams{
		RoomCode: s.RoomCode,
		WinnerID: s.UserID(winner),
		LoserID:  s.UserID(winner.Opponent()),
	}
	if err := m.settler.SettleMatch(ctx, params); err != nil {
		log.Printf("[SESSION] settlement failed for room %s, queueing retry: %v", s.RoomCode, err)
		rating.EnqueueRetry(ctx, m.rdb, params, time.Duration(m.cfg.SettlementRetrySeconds)*time.Second)
	}
}

func (m *Machine) armDeadline(ctx context.Context, roomCode string) {
	score := float64(time.Now().Add(time.Duration(m.cfg.PhaseDeadlineSeconds) * time.Second).Unix())
	if err := m.rdb.ZAdd(ctx, phaseDeadlineKey, redis.Z{Score: score, Member: roomCode}).Err(); err != nil {
		log.Printf("[SESSION] failed to arm deadline for room %s: %v", roomCode, err)
	}
}

func (m *Machine) disarmDeadline(ctx context.Context, roomCode string) {
	if err := m.rdb.ZRem(ctx, phaseDeadlineKey, roomCode).Err(); err != nil {
		log.Printf("[SESSION] failed to disarm deadline for room %s: %v", roomCode, err)
	}
}
