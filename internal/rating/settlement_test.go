package rating

import "testing"

func TestPlanSettlementUsesOneSnapshot(t *testing.T) {
	winner, loser := planSettlement(1500, 1500, 32)

	if winner.OldRating != 1500 || winner.NewRating != 1516 {
		t.Errorf("winner plan %d->%d, want 1500->1516", winner.OldRating, winner.NewRating)
	}
	if loser.OldRating != 1500 || loser.NewRating != 1484 {
		t.Errorf("loser plan %d->%d, want 1500->1484", loser.OldRating, loser.NewRating)
	}
	if winner.OpponentRating != 1500 || loser.OpponentRating != 1500 {
		t.Error("both plans must record the opponent's pre-settlement rating")
	}
}

func TestPlanSettlementResultsAndCounters(t *testing.T) {
	winner, loser := planSettlement(1600, 1400, 32)

	if winner.Result != "win" || winner.WinInc != 1 || winner.LossInc != 0 {
		t.Errorf("winner plan wrong: %+v", winner)
	}
	if loser.Result != "loss" || loser.WinInc != 0 || loser.LossInc != 1 {
		t.Errorf("loser plan wrong: %+v", loser)
	}
	if winner.NewRating <= winner.OldRating {
		t.Error("winner must gain rating")
	}
	if loser.NewRating >= loser.OldRating {
		t.Error("loser must lose rating")
	}
}

func TestRepeatSettlementLeavesRatingAlone(t *testing.T) {
	// The history insert is the gate: the second settlement of the same
	// room conflicts on (session_room, user_id), inserts zero rows, and
	// must skip the rating update entirely.
	if !firstSettlement(1) {
		t.Error("an inserted history row means this settlement applies")
	}
	if firstSettlement(0) {
		t.Error("zero inserted rows means already settled, rating must not move again")
	}
}
