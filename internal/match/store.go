package match

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Store persists session records. Reads are plain selects; every write goes
// through save, which bumps the version and refuses to overwrite a row that
// moved since it was read.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// CreateParams seeds a new session. Player2 fields may be empty when the
// host creates the room before the opponent arrives.
type CreateParams struct {
	RoomCode        string
	Player1ID       string
	Player1Username string
	Player1Fighter  *string
	Player2ID       string
	Player2Username string
	Player2Fighter  *string
}

// Create inserts the session for a room. Creating a room that already
// exists returns ErrConflict; callers are expected to Get and join instead.
func (st *Store) Create(ctx context.Context, p CreateParams) (*Session, error) {
	if p.RoomCode == "" || p.Player1ID == "" {
		return nil, validationf("room code and host are required")
	}

	_, err := st.db.ExecContext(ctx, `
		INSERT INTO match_sessions
			(room_code, player1_id, player1_username, player1_fighter,
			 player2_id, player2_username, player2_fighter, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, p.RoomCode, p.Player1ID, p.Player1Username, p.Player1Fighter,
		p.Player2ID, p.Player2Username, p.Player2Fighter, StatusFighterSelection)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return nil, fmt.Errorf("%w: room %s already exists", ErrConflict, p.RoomCode)
		}
		return nil, fmt.Errorf("create session: %w", err)
	}

	return st.Get(ctx, p.RoomCode)
}

// Get loads the session for a room.
func (st *Store) Get(ctx context.Context, roomCode string) (*Session, error) {
	var s Session
	err := st.db.GetContext(ctx, &s, `SELECT * FROM match_sessions WHERE room_code = $1`, roomCode)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, roomCode)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &s, nil
}

// getForUpdate loads the session inside tx with a row lock, serializing all
// intents for the room behind one writer.
func (st *Store) getForUpdate(ctx context.Context, tx *sqlx.Tx, roomCode string) (*Session, error) {
	var s Session
	err := tx.GetContext(ctx, &s, `SELECT * FROM match_sessions WHERE room_code = $1 FOR UPDATE`, roomCode)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, roomCode)
	}
	if err != nil {
		return nil, fmt.Errorf("lock session: %w", err)
	}
	return &s, nil
}

// save writes the whole mutable state back, guarded by the version the row
// had when it was read. Zero rows updated means a concurrent writer got
// there first.
func (st *Store) save(ctx context.Context, tx *sqlx.Tx, s *Session) error {
	res, err := tx.NamedExecContext(ctx, `
		UPDATE match_sessions SET
			player1_fighter        = :player1_fighter,
			player1_wants_change   = :player1_wants_change,
			player1_confirmed      = :player1_confirmed,
			player1_banned_stage   = :player1_banned_stage,
			player1_selected_stage = :player1_selected_stage,
			player2_id             = :player2_id,
			player2_username       = :player2_username,
			player2_fighter        = :player2_fighter,
			player2_wants_change   = :player2_wants_change,
			player2_confirmed      = :player2_confirmed,
			player2_banned_stages  = :player2_banned_stages,
			stage_selection_phase  = :stage_selection_phase,
			current_game           = :current_game,
			player1_wins           = :player1_wins,
			player2_wins           = :player2_wins,
			game1_winner           = :game1_winner,
			game1_stage            = :game1_stage,
			game1_player1_report   = :game1_player1_report,
			game1_player2_report   = :game1_player2_report,
			game2_winner           = :game2_winner,
			game2_stage            = :game2_stage,
			game2_banned_stages    = :game2_banned_stages,
			game2_player1_report   = :game2_player1_report,
			game2_player2_report   = :game2_player2_report,
			game3_winner           = :game3_winner,
			game3_stage            = :game3_stage,
			game3_banned_stages    = :game3_banned_stages,
			game3_player1_report   = :game3_player1_report,
			game3_player2_report   = :game3_player2_report,
			match_winner           = :match_winner,
			status                 = :status,
			version                = version + 1,
			updated_at             = NOW()
		WHERE room_code = :room_code AND version = :version
	`, s)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: session %s changed under us", ErrConflict, s.RoomCode)
	}
	s.Version++
	return nil
}
