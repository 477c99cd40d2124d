package rating

import "testing"

func TestEqualRatingsSplitSixteen(t *testing.T) {
	// At 1500 vs 1500 the expected score is exactly 0.5, so K=32 moves
	// the winner up 16 and the loser down 16.
	if d := ComputeDelta(1500, 1500, true, 32); d != 16 {
		t.Errorf("win delta = %d, want +16", d)
	}
	if d := ComputeDelta(1500, 1500, false, 32); d != -16 {
		t.Errorf("loss delta = %d, want -16", d)
	}
	if r := ComputeNewRating(1500, 1500, true, 32); r != 1516 {
		t.Errorf("new rating after win = %d, want 1516", r)
	}
	if r := ComputeNewRating(1500, 1500, false, 32); r != 1484 {
		t.Errorf("new rating after loss = %d, want 1484", r)
	}
}

func TestUnderdogGainsMoreThanFavorite(t *testing.T) {
	underdogWin := ComputeDelta(1400, 1600, true, 32)
	favoriteWin := ComputeDelta(1600, 1400, true, 32)

	if underdogWin <= favoriteWin {
		t.Errorf("underdog win (%d) should exceed favorite win (%d)", underdogWin, favoriteWin)
	}
	if underdogWin <= 16 {
		t.Errorf("underdog win = %d, expected more than the even-odds 16", underdogWin)
	}
}

func TestDeltaSymmetry(t *testing.T) {
	// Winner's gain equals loser's loss at any rating gap.
	for _, gap := range []int{0, 50, 200, 400} {
		a, b := 1500+gap, 1500
		winDelta := ComputeDelta(a, b, true, 32)
		lossDelta := ComputeDelta(b, a, false, 32)
		if winDelta != -lossDelta {
			t.Errorf("gap %d: win delta %d != -loss delta %d", gap, winDelta, lossDelta)
		}
	}
}

func TestRatingFloor(t *testing.T) {
	if r := ComputeNewRating(105, 1500, false, 32); r != MinRating {
		t.Errorf("rating below floor: got %d, want %d", r, MinRating)
	}
}

func TestZeroKFactorFallsBackToDefault(t *testing.T) {
	if d := ComputeDelta(1500, 1500, true, 0); d != 16 {
		t.Errorf("delta with k=0 = %d, want default-K 16", d)
	}
}
