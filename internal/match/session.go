package match

import (
	"time"

	"github.com/lib/pq"
)

// PlayerSlot identifies one side of the session record.
type PlayerSlot string

const (
	SlotPlayer1 PlayerSlot = "player1"
	SlotPlayer2 PlayerSlot = "player2"
)

// Opponent returns the other slot.
func (s PlayerSlot) Opponent() PlayerSlot {
	if s == SlotPlayer1 {
		return SlotPlayer2
	}
	return SlotPlayer1
}

// SessionStatus is the aggregate state of the match.
type SessionStatus string

const (
	StatusFighterSelection SessionStatus = "fighter_selection"
	StatusWaitingResponse  SessionStatus = "waiting_opponent_response"
	StatusStageSelection   SessionStatus = "stage_selection"
	StatusInProgress       SessionStatus = "in_progress"
	StatusCompleted        SessionStatus = "completed"
	StatusForfeited        SessionStatus = "forfeited"
)

// Terminal reports whether no further intents may mutate the session.
func (s SessionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusForfeited
}

// StagePhase sequences the per-game ban/pick sub-protocol. For game 1 the
// labels are literal. For games 2 and 3 the labels are reused: player1_ban
// means "previous winner bans" and player2_ban means "loser picks".
type StagePhase string

const (
	PhasePlayer1Ban    StagePhase = "player1_ban"
	PhasePlayer2Ban    StagePhase = "player2_ban"
	PhasePlayer1Select StagePhase = "player1_select"
	PhaseCompleted     StagePhase = "completed"
)

// Session is the single shared record both players' intents mutate. All
// mutation goes through the Machine, which serializes writes per room with a
// row lock and stamps Version on every update.
type Session struct {
	RoomCode string `db:"room_code" json:"room_code"`

	Player1ID       string `db:"player1_id" json:"player1_id"`
	Player1Username string `db:"player1_username" json:"player1_username"`
	Player2ID       string `db:"player2_id" json:"player2_id"`
	Player2Username string `db:"player2_username" json:"player2_username"`

	Player1Fighter     *string `db:"player1_fighter" json:"player1_fighter"`
	Player1WantsChange bool    `db:"player1_wants_change" json:"player1_wants_change"`
	Player1Confirmed   bool    `db:"player1_confirmed" json:"player1_confirmed"`
	Player2Fighter     *string `db:"player2_fighter" json:"player2_fighter"`
	Player2WantsChange bool    `db:"player2_wants_change" json:"player2_wants_change"`
	Player2Confirmed   bool    `db:"player2_confirmed" json:"player2_confirmed"`

	Player1BannedStage   *string        `db:"player1_banned_stage" json:"player1_banned_stage"`
	Player2BannedStages  pq.StringArray `db:"player2_banned_stages" json:"player2_banned_stages"`
	Player1SelectedStage *string        `db:"player1_selected_stage" json:"player1_selected_stage"`

	StagePhase  StagePhase `db:"stage_selection_phase" json:"stage_selection_phase"`
	CurrentGame int        `db:"current_game" json:"current_game"`
	Player1Wins int        `db:"player1_wins" json:"player1_wins"`
	Player2Wins int        `db:"player2_wins" json:"player2_wins"`

	Game1Winner        *string `db:"game1_winner" json:"game1_winner"`
	Game1Stage         *string `db:"game1_stage" json:"game1_stage"`
	Game1Player1Report *string `db:"game1_player1_report" json:"game1_player1_report"`
	Game1Player2Report *string `db:"game1_player2_report" json:"game1_player2_report"`

	Game2Winner        *string        `db:"game2_winner" json:"game2_winner"`
	Game2Stage         *string        `db:"game2_stage" json:"game2_stage"`
	Game2BannedStages  pq.StringArray `db:"game2_banned_stages" json:"game2_banned_stages"`
	Game2Player1Report *string        `db:"game2_player1_report" json:"game2_player1_report"`
	Game2Player2Report *string        `db:"game2_player2_report" json:"game2_player2_report"`

	Game3Winner        *string        `db:"game3_winner" json:"game3_winner"`
	Game3Stage         *string        `db:"game3_stage" json:"game3_stage"`
	Game3BannedStages  pq.StringArray `db:"game3_banned_stages" json:"game3_banned_stages"`
	Game3Player1Report *string        `db:"game3_player1_report" json:"game3_player1_report"`
	Game3Player2Report *string        `db:"game3_player2_report" json:"game3_player2_report"`

	MatchWinner *string       `db:"match_winner" json:"match_winner"`
	Status      SessionStatus `db:"status" json:"status"`
	Version     int64         `db:"version" json:"version"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
}

// SlotOf maps a user to their slot, or "" if they are not a participant.
func (s *Session) SlotOf(userID string) PlayerSlot {
	switch userID {
	case s.Player1ID:
		return SlotPlayer1
	case s.Player2ID:
		if userID != "" {
			return SlotPlayer2
		}
	}
	return ""
}

// UserID returns the user occupying the given slot.
func (s *Session) UserID(slot PlayerSlot) string {
	if slot == SlotPlayer1 {
		return s.Player1ID
	}
	return s.Player2ID
}

func (s *Session) fighter(slot PlayerSlot) *string {
	if slot == SlotPlayer1 {
		return s.Player1Fighter
	}
	return s.Player2Fighter
}

func (s *Session) confirmed(slot PlayerSlot) bool {
	if slot == SlotPlayer1 {
		return s.Player1Confirmed
	}
	return s.Player2Confirmed
}

func (s *Session) wantsChange(slot PlayerSlot) bool {
	if slot == SlotPlayer1 {
		return s.Player1WantsChange
	}
	return s.Player2WantsChange
}

func (s *Session) setFighter(slot PlayerSlot, fighter string) {
	if slot == SlotPlayer1 {
		s.Player1Fighter = &fighter
	} else {
		s.Player2Fighter = &fighter
	}
}

func (s *Session) setConfirmed(slot PlayerSlot, v bool) {
	if slot == SlotPlayer1 {
		s.Player1Confirmed = v
	} else {
		s.Player2Confirmed = v
	}
}

func (s *Session) setWantsChange(slot PlayerSlot, v bool) {
	if slot == SlotPlayer1 {
		s.Player1WantsChange = v
	} else {
		s.Player2WantsChange = v
	}
}

// GameWinner returns the finalized winner slot of game n, or "".
func (s *Session) GameWinner(n int) PlayerSlot {
	var w *string
	switch n {
	case 1:
		w = s.Game1Winner
	case 2:
		w = s.Game2Winner
	case 3:
		w = s.Game3Winner
	}
	if w == nil {
		return ""
	}
	return PlayerSlot(*w)
}

func (s *Session) setGameWinner(n int, slot PlayerSlot) {
	v := string(slot)
	switch n {
	case 1:
		s.Game1Winner = &v
	case 2:
		s.Game2Winner = &v
	case 3:
		s.Game3Winner = &v
	}
}

// Report returns the report slot of the given player for game n.
func (s *Session) Report(n int, slot PlayerSlot) *string {
	switch n {
	case 1:
		if slot == SlotPlayer1 {
			return s.Game1Player1Report
		}
		return s.Game1Player2Report
	case 2:
		if slot == SlotPlayer1 {
			return s.Game2Player1Report
		}
		return s.Game2Player2Report
	case 3:
		if slot == SlotPlayer1 {
			return s.Game3Player1Report
		}
		return s.Game3Player2Report
	}
	return nil
}

func (s *Session) setReport(n int, slot PlayerSlot, winner *string) {
	switch n {
	case 1:
		if slot == SlotPlayer1 {
			s.Game1Player1Report = winner
		} else {
			s.Game1Player2Report = winner
		}
	case 2:
		if slot == SlotPlayer1 {
			s.Game2Player1Report = winner
		} else {
			s.Game2Player2Report = winner
		}
	case 3:
		if slot == SlotPlayer1 {
			s.Game3Player1Report = winner
		} else {
			s.Game3Player2Report = winner
		}
	}
}

func (s *Session) setGameStage(n int, stage string) {
	switch n {
	case 1:
		s.Game1Stage = &stage
	case 2:
		s.Game2Stage = &stage
	case 3:
		s.Game3Stage = &stage
	}
}

func (s *Session) gameBans(n int) []string {
	switch n {
	case 2:
		return s.Game2BannedStages
	case 3:
		return s.Game3BannedStages
	}
	return nil
}

func (s *Session) setGameBans(n int, stages []string) {
	switch n {
	case 2:
		s.Game2BannedStages = stages
	case 3:
		s.Game3BannedStages = stages
	}
}

// BannedStages returns every stage struck for game n.
func (s *Session) BannedStages(n int) []string {
	if n == 1 {
		var out []string
		if s.Player1BannedStage != nil {
			out = append(out, *s.Player1BannedStage)
		}
		out = append(out, s.Player2BannedStages...)
		return out
	}
	return s.gameBans(n)
}

// prevGameWinner is the winner of the game before CurrentGame; it is the
// side that bans in games 2 and 3.
func (s *Session) prevGameWinner() PlayerSlot {
	if s.CurrentGame < 2 {
		return ""
	}
	return s.GameWinner(s.CurrentGame - 1)
}

// NextActor derives who must act for the session to progress. Returns ""
// when both players may act (or neither, on a terminal status). The Machine
// rejects mutating intents from the wrong actor, and the deadline worker
// forfeits the actor who let the phase expire.
func (s *Session) NextActor() PlayerSlot {
	switch s.Status {
	case StatusFighterSelection, StatusWaitingResponse:
		p1Ready := s.Player1Confirmed && !s.Player1WantsChange
		p2Ready := s.Player2Confirmed && !s.Player2WantsChange
		switch {
		case p1Ready && !p2Ready:
			return SlotPlayer2
		case p2Ready && !p1Ready:
			return SlotPlayer1
		}
		return ""

	case StatusStageSelection:
		switch s.StagePhase {
		case PhasePlayer1Ban:
			return SlotPlayer1
		case PhasePlayer2Ban:
			return SlotPlayer2
		case PhasePlayer1Select:
			return SlotPlayer1
		}
		return ""

	case StatusInProgress:
		if s.StagePhase != PhaseCompleted {
			// Counterpick sequencing: the previous winner bans, the loser picks.
			switch s.StagePhase {
			case PhasePlayer1Ban:
				return s.prevGameWinner()
			case PhasePlayer2Ban:
				return s.prevGameWinner().Opponent()
			}
			return ""
		}
		// Reporting: whoever has not reported the current game yet.
		p1 := s.Report(s.CurrentGame, SlotPlayer1)
		p2 := s.Report(s.CurrentGame, SlotPlayer2)
		switch {
		case p1 != nil && p2 == nil:
			return SlotPlayer2
		case p2 != nil && p1 == nil:
			return SlotPlayer1
		}
		return ""
	}
	return ""
}
