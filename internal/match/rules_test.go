package match

import (
	"errors"
	"reflect"
	"sort"
	"testing"
)

func testSession() *Session {
	f1, f2 := "fox", "marth"
	return &Session{
		RoomCode:        "ROOM1",
		Player1ID:       "u1",
		Player1Username: "alice",
		Player2ID:       "u2",
		Player2Username: "bob",
		Player1Fighter:  &f1,
		Player2Fighter:  &f2,
		Status:          StatusFighterSelection,
		StagePhase:      PhasePlayer1Ban,
		CurrentGame:     1,
		Version:         1,
	}
}

func confirmBoth(t *testing.T, s *Session) {
	t.Helper()
	if err := applyConfirmFighter(s, SlotPlayer1); err != nil {
		t.Fatalf("player1 confirm: %v", err)
	}
	if err := applyConfirmFighter(s, SlotPlayer2); err != nil {
		t.Fatalf("player2 confirm: %v", err)
	}
	if s.Status != StatusStageSelection {
		t.Fatalf("expected stage_selection after both confirmed, got %s", s.Status)
	}
}

// strikeGame1 runs the standard game 1 striking: player1 bans battlefield,
// player2 bans final-destination and small-battlefield, player1 picks.
func strikeGame1(t *testing.T, s *Session, pick string) {
	t.Helper()
	rules := DefaultRuleset()
	if err := applyBanStages(s, SlotPlayer1, []string{"battlefield"}, rules); err != nil {
		t.Fatalf("player1 ban: %v", err)
	}
	if err := applyBanStages(s, SlotPlayer2, []string{"final-destination", "small-battlefield"}, rules); err != nil {
		t.Fatalf("player2 bans: %v", err)
	}
	if err := applySelectStage(s, SlotPlayer1, pick); err != nil {
		t.Fatalf("player1 pick: %v", err)
	}
}

// reportBoth submits matching reports from both players for the current game.
func reportBoth(t *testing.T, s *Session, winner PlayerSlot) ReportOutcome {
	t.Helper()
	out, err := applyReportResult(s, SlotPlayer1, winner)
	if err != nil {
		t.Fatalf("player1 report: %v", err)
	}
	if out.Matched {
		t.Fatalf("first report alone should not finalize the game")
	}
	out, err = applyReportResult(s, SlotPlayer2, winner)
	if err != nil {
		t.Fatalf("player2 report: %v", err)
	}
	if !out.Matched {
		t.Fatalf("agreeing reports should finalize the game")
	}
	return out
}

func TestFighterChangeInvalidatesOpponentConfirmation(t *testing.T) {
	s := testSession()
	s.Player2Confirmed = true

	if err := applySelectFighter(s, SlotPlayer1, "pikachu"); err != nil {
		t.Fatalf("select fighter: %v", err)
	}

	if s.Player2Confirmed {
		t.Error("opponent confirmation must be invalidated by a fighter change")
	}
	if s.Player1Confirmed {
		t.Error("changing fighter must not leave the changer confirmed")
	}
	if *s.Player1Fighter != "pikachu" {
		t.Errorf("fighter = %s, want pikachu", *s.Player1Fighter)
	}
}

func TestReselectingSameFighterKeepsOpponentConfirmation(t *testing.T) {
	s := testSession()
	s.Player2Confirmed = true

	if err := applySelectFighter(s, SlotPlayer1, "fox"); err != nil {
		t.Fatalf("select fighter: %v", err)
	}
	if !s.Player2Confirmed {
		t.Error("re-submitting the same fighter should not unconfirm the opponent")
	}
}

func TestWantsChangeClearsBothConfirmations(t *testing.T) {
	s := testSession()
	s.Player1Confirmed = true
	s.Player2Confirmed = true

	if err := applyWantsChange(s, SlotPlayer2, true); err != nil {
		t.Fatalf("wants change: %v", err)
	}

	if s.Player1Confirmed || s.Player2Confirmed {
		t.Error("a change request must clear both confirmations")
	}
	if s.Status != StatusWaitingResponse {
		t.Errorf("status = %s, want %s", s.Status, StatusWaitingResponse)
	}

	if err := applyWantsChange(s, SlotPlayer2, false); err != nil {
		t.Fatalf("withdraw change: %v", err)
	}
	if s.Status != StatusFighterSelection {
		t.Errorf("status = %s, want %s after withdrawal", s.Status, StatusFighterSelection)
	}
}

func TestFighterExitRequiresConjunction(t *testing.T) {
	s := testSession()

	if err := applyConfirmFighter(s, SlotPlayer1); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if s.Status != StatusFighterSelection {
		t.Fatalf("one confirmation alone advanced the session to %s", s.Status)
	}

	// An open change request must hold the exit even if a confirm races in.
	s.Player1WantsChange = true
	if err := applyConfirmFighter(s, SlotPlayer2); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if s.Status == StatusStageSelection {
		t.Fatal("session advanced while a change request was open")
	}

	s.Player1WantsChange = false
	if err := applyConfirmFighter(s, SlotPlayer1); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if s.Status != StatusStageSelection {
		t.Fatalf("both sides ready, expected stage_selection, got %s", s.Status)
	}
	if s.StagePhase != PhasePlayer1Ban || s.CurrentGame != 1 {
		t.Errorf("stage selection should open at game 1 player1_ban, got game %d phase %s", s.CurrentGame, s.StagePhase)
	}
}

func TestConfirmWithoutFighterRejected(t *testing.T) {
	s := testSession()
	s.Player1Fighter = nil

	err := applyConfirmFighter(s, SlotPlayer1)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("confirm without a fighter: err = %v, want validation error", err)
	}
}

func TestGame1StrikingExcludesBannedStages(t *testing.T) {
	s := testSession()
	confirmBoth(t, s)
	rules := DefaultRuleset()

	if err := applyBanStages(s, SlotPlayer1, []string{"battlefield"}, rules); err != nil {
		t.Fatalf("player1 ban: %v", err)
	}
	if s.StagePhase != PhasePlayer2Ban {
		t.Fatalf("phase = %s, want player2_ban", s.StagePhase)
	}

	if err := applyBanStages(s, SlotPlayer2, []string{"final-destination", "small-battlefield"}, rules); err != nil {
		t.Fatalf("player2 bans: %v", err)
	}
	if s.StagePhase != PhasePlayer1Select {
		t.Fatalf("phase = %s, want player1_select", s.StagePhase)
	}

	choices := s.StageChoices()
	sort.Strings(choices)
	want := []string{"pokemon-stadium-2", "town-and-city"}
	if !reflect.DeepEqual(choices, want) {
		t.Errorf("selectable set = %v, want %v", choices, want)
	}

	// Picking any struck stage must be rejected.
	for _, banned := range []string{"battlefield", "final-destination", "small-battlefield"} {
		if err := applySelectStage(s, SlotPlayer1, banned); !errors.Is(err, ErrValidation) {
			t.Errorf("picking banned stage %s: err = %v, want validation error", banned, err)
		}
	}

	if err := applySelectStage(s, SlotPlayer1, "pokemon-stadium-2"); err != nil {
		t.Fatalf("pick: %v", err)
	}
	if s.StagePhase != PhaseCompleted || s.Status != StatusInProgress {
		t.Errorf("after pick: phase=%s status=%s, want completed/in_progress", s.StagePhase, s.Status)
	}
}

func TestBanCountValidated(t *testing.T) {
	s := testSession()
	confirmBoth(t, s)
	rules := DefaultRuleset()

	// Opening ban takes exactly one stage.
	if err := applyBanStages(s, SlotPlayer1, []string{"battlefield", "town-and-city"}, rules); !errors.Is(err, ErrValidation) {
		t.Errorf("two-stage opening ban: err = %v, want validation error", err)
	}
	if err := applyBanStages(s, SlotPlayer1, []string{"battlefield"}, rules); err != nil {
		t.Fatalf("opening ban: %v", err)
	}

	// The ban-two step takes exactly two; fewer or more is rejected, never
	// truncated or padded.
	for _, bad := range [][]string{
		{"final-destination"},
		{"final-destination", "small-battlefield", "town-and-city"},
		{"final-destination", "final-destination"},
	} {
		if err := applyBanStages(s, SlotPlayer2, bad, rules); !errors.Is(err, ErrValidation) {
			t.Errorf("ban %v: err = %v, want validation error", bad, err)
		}
	}
	if s.StagePhase != PhasePlayer2Ban {
		t.Errorf("rejected bans must not advance the phase, got %s", s.StagePhase)
	}
}

func TestOutOfTurnActionsRejected(t *testing.T) {
	s := testSession()
	confirmBoth(t, s)
	rules := DefaultRuleset()

	// It is player1's opening ban; player2 may not act.
	if err := applyBanStages(s, SlotPlayer2, []string{"battlefield"}, rules); !errors.Is(err, ErrValidation) {
		t.Errorf("out-of-turn ban: err = %v, want validation error", err)
	}
	if err := applySelectStage(s, SlotPlayer1, "battlefield"); !errors.Is(err, ErrValidation) {
		t.Errorf("select during ban phase: err = %v, want validation error", err)
	}
}

func TestReportBeforeStageLockedRejected(t *testing.T) {
	s := testSession()
	confirmBoth(t, s)

	if _, err := applyReportResult(s, SlotPlayer1, SlotPlayer1); !errors.Is(err, ErrValidation) {
		t.Errorf("report during stage selection: err = %v, want validation error", err)
	}
}

func TestReportFlowFinalizesOnAgreement(t *testing.T) {
	s := testSession()
	confirmBoth(t, s)
	strikeGame1(t, s, "pokemon-stadium-2")

	out := reportBoth(t, s, SlotPlayer1)
	if out.GameWinner != SlotPlayer1 || out.MatchOver {
		t.Errorf("outcome = %+v, want game winner player1, match not over", out)
	}
	if s.GameWinner(1) != SlotPlayer1 {
		t.Error("game 1 winner not finalized")
	}
	if s.Game1Stage == nil || *s.Game1Stage != "pokemon-stadium-2" {
		t.Error("game 1 stage should be copied from the locked pick")
	}
	if s.Player1Wins != 1 || s.Player2Wins != 0 {
		t.Errorf("wins = %d-%d, want 1-0", s.Player1Wins, s.Player2Wins)
	}
	if s.CurrentGame != 2 || s.StagePhase != PhasePlayer1Ban {
		t.Errorf("expected game 2 winner-ban phase, got game %d phase %s", s.CurrentGame, s.StagePhase)
	}
}

func TestReportMismatchLeavesWinnerUnset(t *testing.T) {
	s := testSession()
	confirmBoth(t, s)
	strikeGame1(t, s, "town-and-city")

	if _, err := applyReportResult(s, SlotPlayer1, SlotPlayer1); err != nil {
		t.Fatalf("player1 report: %v", err)
	}
	out, err := applyReportResult(s, SlotPlayer2, SlotPlayer2)
	if err != nil {
		t.Fatalf("player2 report: %v", err)
	}

	if !out.Mismatch || out.Matched {
		t.Fatalf("outcome = %+v, want mismatch", out)
	}
	if s.GameWinner(1) != "" {
		t.Error("winner must stay unset while reports disagree")
	}
	if s.Player1Wins != 0 || s.Player2Wins != 0 {
		t.Error("mismatched reports must not move the win counters")
	}

	// The only way forward: reset this game's slots and resubmit.
	if err := applyResetReports(s, 1); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if s.Report(1, SlotPlayer1) != nil || s.Report(1, SlotPlayer2) != nil {
		t.Error("reset must clear both report slots")
	}

	reportBoth(t, s, SlotPlayer2)
	if s.GameWinner(1) != SlotPlayer2 {
		t.Error("resubmitted agreeing reports should finalize")
	}
}

func TestResetOnlyTouchesCurrentGame(t *testing.T) {
	s := testSession()
	confirmBoth(t, s)
	strikeGame1(t, s, "pokemon-stadium-2")
	reportBoth(t, s, SlotPlayer1)

	if err := applyResetReports(s, 1); !errors.Is(err, ErrValidation) {
		t.Errorf("resetting a scored game: err = %v, want validation error", err)
	}
	if s.GameWinner(1) != SlotPlayer1 {
		t.Error("reset must not disturb a finalized game")
	}
}

func TestCounterpickSequencing(t *testing.T) {
	s := testSession()
	confirmBoth(t, s)
	strikeGame1(t, s, "pokemon-stadium-2")
	reportBoth(t, s, SlotPlayer1) // player1 takes game 1
	rules := DefaultRuleset()

	// Game 2: the previous winner bans two from the full pool.
	if actor := s.NextActor(); actor != SlotPlayer1 {
		t.Fatalf("game 2 ban actor = %s, want previous winner player1", actor)
	}
	if err := applyBanStages(s, SlotPlayer2, []string{"smashville", "lylat-cruise"}, rules); !errors.Is(err, ErrValidation) {
		t.Errorf("loser banning in winner's step: err = %v, want validation error", err)
	}
	if err := applyBanStages(s, SlotPlayer1, []string{"smashville", "lylat-cruise"}, rules); err != nil {
		t.Fatalf("winner bans: %v", err)
	}

	// The loser's selectable set excludes exactly the two bans.
	choices := s.StageChoices()
	if len(choices) != 7 {
		t.Fatalf("selectable set size = %d, want 7 (9-stage pool minus 2 bans)", len(choices))
	}
	for _, banned := range []string{"smashville", "lylat-cruise"} {
		for _, c := range choices {
			if c == banned {
				t.Errorf("banned stage %s still selectable", banned)
			}
		}
	}

	if actor := s.NextActor(); actor != SlotPlayer2 {
		t.Fatalf("game 2 pick actor = %s, want loser player2", actor)
	}
	if err := applySelectStage(s, SlotPlayer2, "yoshis-story"); err != nil {
		t.Fatalf("loser pick: %v", err)
	}
	if s.Game2Stage == nil || *s.Game2Stage != "yoshis-story" {
		t.Error("game 2 stage not recorded")
	}
	if s.StagePhase != PhaseCompleted {
		t.Errorf("phase = %s, want completed", s.StagePhase)
	}
}

func TestBestOfThreeCompletion(t *testing.T) {
	s := testSession()
	confirmBoth(t, s)
	strikeGame1(t, s, "pokemon-stadium-2")
	reportBoth(t, s, SlotPlayer1)
	rules := DefaultRuleset()

	// Game 2: player2 evens the set.
	if err := applyBanStages(s, SlotPlayer1, []string{"battlefield", "smashville"}, rules); err != nil {
		t.Fatalf("game 2 bans: %v", err)
	}
	if err := applySelectStage(s, SlotPlayer2, "final-destination"); err != nil {
		t.Fatalf("game 2 pick: %v", err)
	}
	out := reportBoth(t, s, SlotPlayer2)
	if out.MatchOver {
		t.Fatal("1-1 must not end the match")
	}
	if s.CurrentGame != 3 || s.StagePhase != PhasePlayer1Ban {
		t.Fatalf("expected game 3 winner-ban phase, got game %d phase %s", s.CurrentGame, s.StagePhase)
	}

	// Game 3: player2 won game 2, so player2 bans now.
	if actor := s.NextActor(); actor != SlotPlayer2 {
		t.Fatalf("game 3 ban actor = %s, want player2", actor)
	}
	if err := applyBanStages(s, SlotPlayer2, []string{"town-and-city", "kalos-pokemon-league"}, rules); err != nil {
		t.Fatalf("game 3 bans: %v", err)
	}
	if err := applySelectStage(s, SlotPlayer1, "battlefield"); err != nil {
		t.Fatalf("game 3 pick: %v", err)
	}

	out = reportBoth(t, s, SlotPlayer2)
	if !out.MatchOver {
		t.Fatal("second win must end the match")
	}

	// Terminal invariants: the deciding game's winner and the match winner
	// land in the same state, exactly one counter reaches 2.
	if s.GameWinner(3) != SlotPlayer2 {
		t.Error("deciding game winner not finalized")
	}
	if s.MatchWinner == nil || *s.MatchWinner != string(SlotPlayer2) {
		t.Error("match winner not set with the deciding game")
	}
	if s.Status != StatusCompleted {
		t.Errorf("status = %s, want completed", s.Status)
	}
	if s.Player2Wins != 2 || s.Player1Wins > 1 {
		t.Errorf("wins = %d-%d, want player2 at exactly 2 and player1 at most 1", s.Player1Wins, s.Player2Wins)
	}

	// Nothing mutates a terminal session.
	if _, err := applyReportResult(s, SlotPlayer1, SlotPlayer1); !errors.Is(err, ErrValidation) {
		t.Errorf("report after completion: err = %v, want validation error", err)
	}
	if err := applyBanStages(s, SlotPlayer1, []string{"battlefield"}, rules); !errors.Is(err, ErrValidation) {
		t.Errorf("ban after completion: err = %v, want validation error", err)
	}
}

func TestSweepCompletesInTwoGames(t *testing.T) {
	s := testSession()
	confirmBoth(t, s)
	strikeGame1(t, s, "town-and-city")
	reportBoth(t, s, SlotPlayer2)
	rules := DefaultRuleset()

	if err := applyBanStages(s, SlotPlayer2, []string{"smashville", "yoshis-story"}, rules); err != nil {
		t.Fatalf("game 2 bans: %v", err)
	}
	if err := applySelectStage(s, SlotPlayer1, "battlefield"); err != nil {
		t.Fatalf("game 2 pick: %v", err)
	}
	out := reportBoth(t, s, SlotPlayer2)

	if !out.MatchOver {
		t.Fatal("2-0 must end the match")
	}
	if s.Player2Wins != 2 || s.Player1Wins != 0 {
		t.Errorf("wins = %d-%d, want 0-2", s.Player1Wins, s.Player2Wins)
	}
	if s.Game3Winner != nil {
		t.Error("game 3 must remain unplayed after a sweep")
	}
}

func TestForfeitAwardsOpponent(t *testing.T) {
	s := testSession()
	confirmBoth(t, s)

	if err := applyForfeit(s, SlotPlayer1); err != nil {
		t.Fatalf("forfeit: %v", err)
	}
	if s.Status != StatusForfeited {
		t.Errorf("status = %s, want forfeited", s.Status)
	}
	if s.MatchWinner == nil || *s.MatchWinner != string(SlotPlayer2) {
		t.Error("forfeit must award the opponent")
	}

	if err := applyForfeit(s, SlotPlayer2); !errors.Is(err, ErrValidation) {
		t.Errorf("double forfeit: err = %v, want validation error", err)
	}
}

func TestForfeitWithNoActorHasNoWinner(t *testing.T) {
	s := testSession()

	// Neither side has acted; there is no offender to pin the forfeit on.
	if err := applyForfeit(s, s.NextActor()); err != nil {
		t.Fatalf("forfeit: %v", err)
	}
	if s.Status != StatusForfeited {
		t.Errorf("status = %s, want forfeited", s.Status)
	}
	if s.MatchWinner != nil {
		t.Error("a no-actor forfeit must not invent a winner")
	}
}

func TestJoinSeatsSecondPlayerOnce(t *testing.T) {
	s := testSession()
	s.Player2ID = ""
	s.Player2Username = ""
	s.Player2Fighter = nil

	f := "kirby"
	if err := applyJoin(s, "u2", "bob", &f); err != nil {
		t.Fatalf("join: %v", err)
	}
	if s.Player2ID != "u2" || s.Player2Fighter == nil || *s.Player2Fighter != "kirby" {
		t.Errorf("join did not seat player2: %+v", s)
	}

	// Rejoining is a no-op; a third party is a conflict.
	if err := applyJoin(s, "u2", "bob", nil); err != nil {
		t.Errorf("rejoin should be idempotent, got %v", err)
	}
	if err := applyJoin(s, "u3", "carol", nil); !errors.Is(err, ErrConflict) {
		t.Errorf("third participant: err = %v, want conflict", err)
	}
}

func TestNextActorDuringReporting(t *testing.T) {
	s := testSession()
	confirmBoth(t, s)
	strikeGame1(t, s, "pokemon-stadium-2")

	if actor := s.NextActor(); actor != "" {
		t.Errorf("both may report first, actor = %s, want none", actor)
	}
	if _, err := applyReportResult(s, SlotPlayer1, SlotPlayer1); err != nil {
		t.Fatalf("report: %v", err)
	}
	if actor := s.NextActor(); actor != SlotPlayer2 {
		t.Errorf("actor = %s, want the missing reporter player2", actor)
	}
}
