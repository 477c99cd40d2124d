package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	// ErrNotFound means no queue entry matched the lookup.
	ErrNotFound = errors.New("queue entry not found")
	// ErrConflict means another writer got to the entry first. Pairing is
	// first writer wins; the loser re-scans or keeps waiting.
	ErrConflict = errors.New("queue entry already taken")
	// ErrValidation marks a malformed enqueue request.
	ErrValidation = errors.New("invalid queue request")
)

// Entry statuses.
const (
	StatusWaiting   = "waiting"
	StatusMatched   = "matched"
	StatusCancelled = "cancelled"
	StatusExpired   = "expired"
)

// Entry is one player's spot in the shared waiting list.
type Entry struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	UserID      string     `db:"user_id" json:"user_id"`
	Username    string     `db:"username" json:"username"`
	Rating      int        `db:"rating" json:"rating"`
	MainFighter *string    `db:"main_fighter" json:"main_fighter"`
	MinRating   int        `db:"min_rating" json:"min_rating"`
	MaxRating   int        `db:"max_rating" json:"max_rating"`
	Status      string     `db:"status" json:"status"`
	MatchedWith *uuid.UUID `db:"matched_with" json:"matched_with"`
	RoomCode    *string    `db:"room_code" json:"room_code"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// Store persists the matchmaking queue.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// EnqueueParams enrolls a player. RoomCode is the room the player is ready
// to host if a later arrival pairs with them.
type EnqueueParams struct {
	UserID      string
	Username    string
	Rating      int
	MainFighter *string
	MinRating   int
	MaxRating   int
	RoomCode    string
}

// Enqueue enrolls the caller, cancelling any prior waiting entry of theirs
// in the same transaction. The partial unique index on (user_id) WHERE
// status='waiting' backstops the race where two tabs enqueue at once.
func (st *Store) Enqueue(ctx context.Context, p EnqueueParams) (*Entry, error) {
	if p.UserID == "" || p.RoomCode == "" {
		return nil, fmt.Errorf("%w: user and room code are required", ErrValidation)
	}
	if p.MinRating > p.MaxRating {
		return nil, fmt.Errorf("%w: min rating %d exceeds max rating %d", ErrValidation, p.MinRating, p.MaxRating)
	}
	if p.Rating < p.MinRating || p.Rating > p.MaxRating {
		return nil, fmt.Errorf("%w: own rating %d outside declared range [%d, %d]",
			ErrValidation, p.Rating, p.MinRating, p.MaxRating)
	}

	tx, err := st.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin enqueue tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE matching_queue SET status = $1, updated_at = NOW()
		WHERE user_id = $2 AND status = $3
	`, StatusCancelled, p.UserID, StatusWaiting)
	if err != nil {
		return nil, fmt.Errorf("cancel prior entries: %w", err)
	}

	id := uuid.New()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO matching_queue
			(id, user_id, username, rating, main_fighter, min_rating, max_rating, status, room_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, id, p.UserID, p.Username, p.Rating, p.MainFighter, p.MinRating, p.MaxRating, StatusWaiting, p.RoomCode)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return nil, fmt.Errorf("%w: user %s is already waiting", ErrConflict, p.UserID)
		}
		return nil, fmt.Errorf("insert queue entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit enqueue: %w", err)
	}
	return st.Get(ctx, id)
}

// Get loads an entry by id.
func (st *Store) Get(ctx context.Context, id uuid.UUID) (*Entry, error) {
	var e Entry
	err := st.db.GetContext(ctx, &e, `SELECT * FROM matching_queue WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: id %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get queue entry: %w", err)
	}
	return &e, nil
}

// Latest returns the caller's most recent entry, whatever its status. Clients
// poll this to learn they were paired while waiting.
func (st *Store) Latest(ctx context.Context, userID string) (*Entry, error) {
	var e Entry
	err := st.db.GetContext(ctx, &e, `
		SELECT * FROM matching_queue
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, userID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: user %s has no queue entry", ErrNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup queue entry: %w", err)
	}
	return &e, nil
}

// Compatible reports whether two entries may pair. The rule is symmetric:
// each player's rating must sit inside the other's declared range. One-way
// containment is not a pairing.
func Compatible(a, b *Entry) bool {
	return a.Rating >= b.MinRating && a.Rating <= b.MaxRating &&
		b.Rating >= a.MinRating && b.Rating <= a.MaxRating
}

// FindCandidate scans for the earliest waiting entry the caller can pair
// with, per Compatible. Selection is FIFO, no weighting by rating
// closeness. The SQL filter applies the same predicate; Compatible
// re-checks the scanned row so the pairing rule has one definition.
func (st *Store) FindCandidate(ctx context.Context, e *Entry) (*Entry, error) {
	var c Entry
	err := st.db.GetContext(ctx, &c, `
		SELECT * FROM matching_queue
		WHERE status = $1
		  AND user_id <> $2
		  AND room_code IS NOT NULL AND room_code <> ''
		  AND rating BETWEEN $3 AND $4
		  AND $5 BETWEEN min_rating AND max_rating
		ORDER BY created_at
		LIMIT 1
	`, StatusWaiting, e.UserID, e.MinRating, e.MaxRating, e.Rating)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan for candidate: %w", err)
	}
	if !Compatible(e, &c) {
		return nil, nil
	}
	return &c, nil
}

// ConfirmPairing marks both entries matched in one transaction, each update
// guarded by "status must still be waiting". If either side was taken in
// the meantime the whole pairing rolls back and ErrConflict is returned, so
// an entry is never left half-matched. The caller inherits the candidate's
// room code; the candidate's room hosts the session.
func (st *Store) ConfirmPairing(ctx context.Context, mine, candidate uuid.UUID) (*Entry, error) {
	tx, err := st.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin pairing tx: %w", err)
	}
	defer tx.Rollback()

	claimCandidate := func() error {
		res, err := tx.ExecContext(ctx, `
			UPDATE matching_queue SET status = $1, matched_with = $2, updated_at = NOW()
			WHERE id = $3 AND status = $4
		`, StatusMatched, mine, candidate, StatusWaiting)
		if err != nil {
			return pairingError("claim candidate", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: candidate %s", ErrConflict, candidate)
		}
		return nil
	}
	claimMine := func() error {
		res, err := tx.ExecContext(ctx, `
			UPDATE matching_queue SET
				status = $1,
				matched_with = $2,
				room_code = (SELECT room_code FROM matching_queue WHERE id = $2),
				updated_at = NOW()
			WHERE id = $3 AND status = $4
		`, StatusMatched, candidate, mine, StatusWaiting)
		if err != nil {
			return pairingError("mark own entry matched", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: own entry %s", ErrConflict, mine)
		}
		return nil
	}

	// Crossed pairings (A claiming B while B claims A) touch the same two
	// rows; claiming in id order makes both sides queue on the same row
	// first instead of deadlocking.
	first, second := claimCandidate, claimMine
	if claimsFirst(mine, candidate) {
		first, second = claimMine, claimCandidate
	}
	if err := first(); err != nil {
		return nil, err
	}
	if err := second(); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, pairingError("commit pairing", err)
	}
	return st.Get(ctx, candidate)
}

// claimsFirst gives every pairing the same global row-claim order.
func claimsFirst(a, b uuid.UUID) bool {
	return a.String() < b.String()
}

// pairingError maps a deadlock loss onto ErrConflict: like losing a
// status-guarded claim, the right response is a rescan, not a 500.
func pairingError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "deadlock_detected" {
		return fmt.Errorf("%w: %s lost a crossed pairing", ErrConflict, op)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Leave cancels the caller's waiting entry, if any.
func (st *Store) Leave(ctx context.Context, userID string) error {
	res, err := st.db.ExecContext(ctx, `
		UPDATE matching_queue SET status = $1, updated_at = NOW()
		WHERE user_id = $2 AND status = $3
	`, StatusCancelled, userID, StatusWaiting)
	if err != nil {
		return fmt.Errorf("leave queue: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: user %s is not waiting", ErrNotFound, userID)
	}
	return nil
}

// ExpireBefore cancels waiting entries created before the cutoff. Returns
// how many were expired.
func (st *Store) ExpireBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := st.db.ExecContext(ctx, `
		UPDATE matching_queue SET status = $1, updated_at = NOW()
		WHERE status = $2 AND created_at < $3
	`, StatusExpired, StatusWaiting, cutoff)
	if err != nil {
		return 0, fmt.Errorf("expire queue entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}
