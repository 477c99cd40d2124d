package rating

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/smashladder/backend/internal/config"
)

// PlayerRating is a player's ladder standing.
type PlayerRating struct {
	UserID    string    `db:"user_id" json:"user_id"`
	Rating    int       `db:"rating" json:"rating"`
	Wins      int       `db:"wins" json:"wins"`
	Losses    int       `db:"losses" json:"losses"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// HistoryEntry is an immutable record of one settled match for one player.
type HistoryEntry struct {
	ID             int64     `db:"id" json:"id"`
	SessionRoom    string    `db:"session_room" json:"session_room"`
	UserID         string    `db:"user_id" json:"user_id"`
	OpponentID     string    `db:"opponent_id" json:"opponent_id"`
	Result         string    `db:"result" json:"result"`
	RatingChange   int       `db:"rating_change" json:"rating_change"`
	OldRating      int       `db:"old_rating" json:"old_rating"`
	NewRating      int       `db:"new_rating" json:"new_rating"`
	OpponentRating int       `db:"opponent_rating" json:"opponent_rating"`
	PlayedAt       time.Time `db:"played_at" json:"played_at"`
}

// SettleParams identifies a completed match for settlement.
type SettleParams struct {
	RoomCode string `json:"room_code"`
	WinnerID string `json:"winner_id"`
	LoserID  string `json:"loser_id"`
}

// Settler applies rating settlement for completed matches. Settlement is
// idempotent: the unique (session_room, user_id) key on match_history gates
// the ratings update, so settling the same match twice is a no-op.
type Settler struct {
	db  *sqlx.DB
	cfg *config.Config
}

func NewSettler(db *sqlx.DB, cfg *config.Config) *Settler {
	return &Settler{db: db, cfg: cfg}
}

// SettleMatch settles both players of a completed match in one transaction.
func (s *Settler) SettleMatch(ctx context.Context, p SettleParams) error {
	if p.RoomCode == "" || p.WinnerID == "" || p.LoserID == "" {
		return fmt.Errorf("settlement params incomplete: %+v", p)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin settlement tx: %w", err)
	}
	defer tx.Rollback()

	winnerRating, err := s.ratingForUpdate(ctx, tx, p.WinnerID)
	if err != nil {
		return err
	}
	loserRating, err := s.ratingForUpdate(ctx, tx, p.LoserID)
	if err != nil {
		return err
	}

	winnerPlan, loserPlan := planSettlement(winnerRating, loserRating, s.cfg.EloKFactor)

	settledWinner, err := s.settlePlayer(ctx, tx, p.RoomCode, p.WinnerID, p.LoserID, winnerPlan)
	if err != nil {
		return err
	}
	settledLoser, err := s.settlePlayer(ctx, tx, p.RoomCode, p.LoserID, p.WinnerID, loserPlan)
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit settlement: %w", err)
	}

	if settledWinner || settledLoser {
		log.Printf("[SETTLE] room=%s winner=%s %d->%d loser=%s %d->%d",
			p.RoomCode, p.WinnerID, winnerPlan.OldRating, winnerPlan.NewRating,
			p.LoserID, loserPlan.OldRating, loserPlan.NewRating)
	} else {
		log.Printf("[SETTLE] room=%s already settled, skipping", p.RoomCode)
	}
	return nil
}

// playerSettlement is everything one player's settlement writes, fixed from
// the pre-settlement snapshot before any row changes.
type playerSettlement struct {
	Result         string
	OldRating      int
	NewRating      int
	OpponentRating int
	WinInc         int
	LossInc        int
}

// planSettlement computes both sides' settlements from the same snapshot,
// so neither side's update sees the other's.
func planSettlement(winnerRating, loserRating, k int) (winner, loser playerSettlement) {
	winner = playerSettlement{
		Result:         "win",
		OldRating:      winnerRating,
		NewRating:      ComputeNewRating(winnerRating, loserRating, true, k),
		OpponentRating: loserRating,
		WinInc:         1,
	}
	loser = playerSettlement{
		Result:         "loss",
		OldRating:      loserRating,
		NewRating:      ComputeNewRating(loserRating, winnerRating, false, k),
		OpponentRating: winnerRating,
		LossInc:        1,
	}
	return winner, loser
}

// firstSettlement is the idempotency gate: the history insert carries ON
// CONFLICT (session_room, user_id) DO NOTHING, so zero inserted rows means
// an earlier settlement already recorded this player and the rating update
// must be skipped.
func firstSettlement(inserted int64) bool {
	return inserted > 0
}

// ratingForUpdate reads a player's current rating, creating the default row
// first so the subsequent update has something to lock.
func (s *Settler) ratingForUpdate(ctx context.Context, tx *sqlx.Tx, userID string) (int, error) {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO player_ratings (user_id, rating)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, s.cfg.DefaultRating)
	if err != nil {
		return 0, fmt.Errorf("ensure rating row for %s: %w", userID, err)
	}

	var rating int
	err = tx.QueryRowContext(ctx, `
		SELECT rating FROM player_ratings WHERE user_id = $1 FOR UPDATE
	`, userID).Scan(&rating)
	if err != nil {
		return 0, fmt.Errorf("read rating for %s: %w", userID, err)
	}
	return rating, nil
}

// settlePlayer inserts the history row and, only if it was actually inserted,
// applies the rating change. Returns whether this call did the settlement.
func (s *Settler) settlePlayer(ctx context.Context, tx *sqlx.Tx, roomCode, userID, opponentID string,
	plan playerSettlement) (bool, error) {

	res, err := tx.ExecContext(ctx, `
		INSERT INTO match_history
			(session_room, user_id, opponent_id, result, rating_change, old_rating, new_rating, opponent_rating, played_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (session_room, user_id) DO NOTHING
	`, roomCode, userID, opponentID, plan.Result, plan.NewRating-plan.OldRating,
		plan.OldRating, plan.NewRating, plan.OpponentRating)
	if err != nil {
		return false, fmt.Errorf("insert history for %s: %w", userID, err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if !firstSettlement(inserted) {
		// Already settled for this player; leave the rating alone.
		return false, nil
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE player_ratings
		SET rating = $1, wins = wins + $2, losses = losses + $3, updated_at = NOW()
		WHERE user_id = $4
	`, plan.NewRating, plan.WinInc, plan.LossInc, userID)
	if err != nil {
		return false, fmt.Errorf("update rating for %s: %w", userID, err)
	}
	return true, nil
}

// Ranking returns the ladder ordered by rating.
func (s *Settler) Ranking(ctx context.Context, limit int) ([]PlayerRating, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []PlayerRating
	err := s.db.SelectContext(ctx, &out, `
		SELECT * FROM player_ratings ORDER BY rating DESC, user_id LIMIT $1
	`, limit)
	return out, err
}

// History returns a player's settled matches, most recent first.
func (s *Settler) History(ctx context.Context, userID string, limit int) ([]HistoryEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	var out []HistoryEntry
	err := s.db.SelectContext(ctx, &out, `
		SELECT * FROM match_history
		WHERE user_id = $1
		ORDER BY played_at DESC
		LIMIT $2
	`, userID, limit)
	return out, err
}

// CurrentRating returns a player's rating, or the configured default when
// the player has never been rated.
func (s *Settler) CurrentRating(ctx context.Context, userID string) (int, error) {
	var rating int
	err := s.db.QueryRowContext(ctx, `
		SELECT rating FROM player_ratings WHERE user_id = $1
	`, userID).Scan(&rating)
	if err == sql.ErrNoRows {
		return s.cfg.DefaultRating, nil
	}
	if err != nil {
		return 0, err
	}
	return rating, nil
}
