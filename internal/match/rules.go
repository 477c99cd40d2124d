package match

import (
	"github.com/smashladder/backend/internal/refdata"
)

// Ruleset carries the tournament-configurable ban counts. The opening ban of
// game 1 is a single stage by the shape of the intent; the "ban two" steps
// take their counts from here.
type Ruleset struct {
	Game1Player2Bans int
	CounterpickBans  int
}

// DefaultRuleset matches the standard counterpick/banning format:
// 1-then-2 strikes for game 1, 2 winner bans for games 2 and 3.
func DefaultRuleset() Ruleset {
	return Ruleset{Game1Player2Bans: 2, CounterpickBans: 2}
}

// ReportOutcome describes what a result report did to the session.
type ReportOutcome struct {
	// Matched: both reports agree, the game winner is finalized.
	Matched bool
	// Mismatch: both reports are in and disagree; the game winner stays
	// unset until the reports are reset and resubmitted.
	Mismatch bool
	GameWinner PlayerSlot
	MatchOver  bool
}

// The apply* functions below are the pure reducer: they validate an intent
// against the current session and mutate the in-memory copy, or leave it
// untouched and return ErrValidation. The Machine runs them under a row
// lock so each session only ever advances one intent at a time.

func applySelectFighter(s *Session, slot PlayerSlot, fighter string) error {
	if err := requireFighterPhase(s); err != nil {
		return err
	}
	if !refdata.IsKnownFighter(fighter) {
		return validationf("unknown fighter %q", fighter)
	}

	changed := s.fighter(slot) == nil || *s.fighter(slot) != fighter
	s.setFighter(slot, fighter)
	s.setWantsChange(slot, false)
	s.setConfirmed(slot, false)
	if changed {
		// The opponent confirmed against the previous pick; that
		// confirmation is stale now.
		s.setConfirmed(slot.Opponent(), false)
	}
	refreshFighterStatus(s)
	return nil
}

func applyWantsChange(s *Session, slot PlayerSlot, wants bool) error {
	if err := requireFighterPhase(s); err != nil {
		return err
	}

	s.setWantsChange(slot, wants)
	if wants {
		s.setConfirmed(slot, false)
		s.setConfirmed(slot.Opponent(), false)
	}
	refreshFighterStatus(s)
	return nil
}

func applyConfirmFighter(s *Session, slot PlayerSlot) error {
	if err := requireFighterPhase(s); err != nil {
		return err
	}
	if s.fighter(slot) == nil {
		return validationf("cannot confirm before selecting a fighter")
	}

	s.setConfirmed(slot, true)
	s.setWantsChange(slot, false)
	refreshFighterStatus(s)

	// Exit guard: both confirmed AND neither wants a change. A lone
	// confirmation must not advance the match.
	if s.Player1Confirmed && s.Player2Confirmed &&
		!s.Player1WantsChange && !s.Player2WantsChange {
		s.Status = StatusStageSelection
		s.StagePhase = PhasePlayer1Ban
		s.CurrentGame = 1
	}
	return nil
}

func applyBanStages(s *Session, slot PlayerSlot, stages []string, rules Ruleset) error {
	if s.Status.Terminal() {
		return validationf("match is over")
	}
	if actor := s.NextActor(); actor != slot {
		return validationf("not %s's turn to ban", slot)
	}
	if err := requireDistinctKnown(stages); err != nil {
		return err
	}

	switch {
	case s.Status == StatusStageSelection && s.CurrentGame == 1 && s.StagePhase == PhasePlayer1Ban:
		if len(stages) != 1 {
			return validationf("opening ban takes exactly 1 stage, got %d", len(stages))
		}
		if !contains(refdata.LegalStageIDs(), stages[0]) {
			return validationf("stage %q is not in the starter pool", stages[0])
		}
		s.Player1BannedStage = &stages[0]
		s.StagePhase = PhasePlayer2Ban
		return nil

	case s.Status == StatusStageSelection && s.CurrentGame == 1 && s.StagePhase == PhasePlayer2Ban:
		if len(stages) != rules.Game1Player2Bans {
			return validationf("this step takes exactly %d stages, got %d", rules.Game1Player2Bans, len(stages))
		}
		for _, st := range stages {
			if !contains(refdata.LegalStageIDs(), st) {
				return validationf("stage %q is not in the starter pool", st)
			}
			if s.Player1BannedStage != nil && st == *s.Player1BannedStage {
				return validationf("stage %q is already banned", st)
			}
		}
		s.Player2BannedStages = stages
		s.StagePhase = PhasePlayer1Select
		return nil

	case s.Status == StatusInProgress && s.CurrentGame >= 2 && s.StagePhase == PhasePlayer1Ban:
		if len(stages) != rules.CounterpickBans {
			return validationf("this step takes exactly %d stages, got %d", rules.CounterpickBans, len(stages))
		}
		for _, st := range stages {
			if !contains(refdata.CounterpickPoolIDs(), st) {
				return validationf("stage %q is not in the counterpick pool", st)
			}
		}
		s.setGameBans(s.CurrentGame, stages)
		s.StagePhase = PhasePlayer2Ban
		return nil
	}

	return validationf("no ban step is open (status=%s phase=%s)", s.Status, s.StagePhase)
}

func applySelectStage(s *Session, slot PlayerSlot, stage string) error {
	if s.Status.Terminal() {
		return validationf("match is over")
	}
	if actor := s.NextActor(); actor != slot {
		return validationf("not %s's turn to pick", slot)
	}

	switch {
	case s.Status == StatusStageSelection && s.CurrentGame == 1 && s.StagePhase == PhasePlayer1Select:
		if !contains(refdata.LegalStageIDs(), stage) {
			return validationf("stage %q is not in the starter pool", stage)
		}
		if contains(s.BannedStages(1), stage) {
			return validationf("stage %q was banned", stage)
		}
		s.Player1SelectedStage = &stage
		s.StagePhase = PhaseCompleted
		s.Status = StatusInProgress
		return nil

	case s.Status == StatusInProgress && s.CurrentGame >= 2 && s.StagePhase == PhasePlayer2Ban:
		if !contains(refdata.CounterpickPoolIDs(), stage) {
			return validationf("stage %q is not in the counterpick pool", stage)
		}
		if contains(s.gameBans(s.CurrentGame), stage) {
			return validationf("stage %q was banned", stage)
		}
		s.setGameStage(s.CurrentGame, stage)
		s.StagePhase = PhaseCompleted
		return nil
	}

	return validationf("no stage pick is open (status=%s phase=%s)", s.Status, s.StagePhase)
}

func applyReportResult(s *Session, slot PlayerSlot, reported PlayerSlot) (ReportOutcome, error) {
	var out ReportOutcome

	if reported != SlotPlayer1 && reported != SlotPlayer2 {
		return out, validationf("reported winner must be player1 or player2")
	}
	if s.Status != StatusInProgress || s.StagePhase != PhaseCompleted {
		return out, validationf("game %d is not being played (status=%s phase=%s)", s.CurrentGame, s.Status, s.StagePhase)
	}
	n := s.CurrentGame
	if s.GameWinner(n) != "" {
		return out, validationf("game %d is already scored", n)
	}

	v := string(reported)
	s.setReport(n, slot, &v)

	other := s.Report(n, slot.Opponent())
	if other == nil {
		return out, nil // waiting for the opponent's report
	}
	if *other != v {
		// Both reports are in and disagree. The winner stays unset; the
		// only way forward is a reset and resubmission.
		out.Mismatch = true
		return out, nil
	}

	// Mutual confirmation reached: finalize the game, and the match if this
	// was the deciding game, in the same update.
	s.setGameWinner(n, reported)
	if n == 1 && s.Player1SelectedStage != nil {
		s.Game1Stage = s.Player1SelectedStage
	}
	if reported == SlotPlayer1 {
		s.Player1Wins++
	} else {
		s.Player2Wins++
	}

	out.Matched = true
	out.GameWinner = reported

	if s.Player1Wins == 2 || s.Player2Wins == 2 {
		w := string(SlotPlayer1)
		if s.Player2Wins == 2 {
			w = string(SlotPlayer2)
		}
		s.MatchWinner = &w
		s.Status = StatusCompleted
		out.MatchOver = true
	} else {
		s.CurrentGame = n + 1
		s.StagePhase = PhasePlayer1Ban // previous winner bans first
	}
	return out, nil
}

func applyResetReports(s *Session, n int) error {
	if s.Status != StatusInProgress {
		return validationf("no game to reset (status=%s)", s.Status)
	}
	if n != s.CurrentGame {
		return validationf("can only reset the current game (%d), got %d", s.CurrentGame, n)
	}
	if s.GameWinner(n) != "" {
		return validationf("game %d is already scored", n)
	}

	// Clears both report slots for this game only.
	s.setReport(n, SlotPlayer1, nil)
	s.setReport(n, SlotPlayer2, nil)
	return nil
}

// applyForfeit terminates the session against the given slot. A forfeit with
// no identifiable offender (both sides idle) terminates with no winner, and
// no ratings change.
func applyForfeit(s *Session, loser PlayerSlot) error {
	if s.Status.Terminal() {
		return validationf("match is over")
	}

	s.Status = StatusForfeited
	if loser != "" {
		w := string(loser.Opponent())
		s.MatchWinner = &w
	}
	return nil
}

// applyJoin fills the second seat of a session created with only the host
// present. Joining an already-full session is idempotent for the seated
// player and a conflict for anyone else.
func applyJoin(s *Session, userID, username string, fighter *string) error {
	if s.SlotOf(userID) != "" {
		return nil // already seated
	}
	if s.Player2ID != "" {
		return ErrConflict
	}
	if s.Status.Terminal() {
		return validationf("match is over")
	}

	s.Player2ID = userID
	s.Player2Username = username
	if fighter != nil {
		s.Player2Fighter = fighter
	}
	return nil
}

func requireFighterPhase(s *Session) error {
	if s.Status != StatusFighterSelection && s.Status != StatusWaitingResponse {
		return validationf("fighter selection is closed (status=%s)", s.Status)
	}
	return nil
}

// refreshFighterStatus keeps the stored status in step with the
// wants-change flags: any open change request puts the session in
// waiting_opponent_response.
func refreshFighterStatus(s *Session) {
	if s.Player1WantsChange || s.Player2WantsChange {
		s.Status = StatusWaitingResponse
	} else if s.Status == StatusWaitingResponse {
		s.Status = StatusFighterSelection
	}
}

func requireDistinctKnown(stages []string) error {
	seen := make(map[string]bool, len(stages))
	for _, st := range stages {
		if !refdata.IsKnownStage(st) {
			return validationf("unknown stage %q", st)
		}
		if seen[st] {
			return validationf("stage %q listed twice", st)
		}
		seen[st] = true
	}
	return nil
}

// StageChoices returns the stages the next actor may act on in the current
// ban/pick step, with struck stages already excluded. Empty when no stage
// step is open.
func (s *Session) StageChoices() []string {
	switch {
	case s.Status == StatusStageSelection && s.CurrentGame == 1:
		switch s.StagePhase {
		case PhasePlayer1Ban:
			return refdata.LegalStageIDs()
		case PhasePlayer2Ban, PhasePlayer1Select:
			return exclude(refdata.LegalStageIDs(), s.BannedStages(1))
		}
	case s.Status == StatusInProgress && s.CurrentGame >= 2:
		switch s.StagePhase {
		case PhasePlayer1Ban:
			return refdata.CounterpickPoolIDs()
		case PhasePlayer2Ban:
			return exclude(refdata.CounterpickPoolIDs(), s.gameBans(s.CurrentGame))
		}
	}
	return nil
}

func exclude(ids, banned []string) []string {
	var out []string
	for _, id := range ids {
		if !contains(banned, id) {
			out = append(out, id)
		}
	}
	return out
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
