package rating

import "math"

// DefaultKFactor caps the rating swing of a single match.
const DefaultKFactor = 32

// MinRating is the floor below which a player can never fall.
const MinRating = 100

// ComputeDelta returns the signed rating change for a player with
// selfRating who played against opponentRating and won or lost.
func ComputeDelta(selfRating, opponentRating int, won bool, kFactor int) int {
	if kFactor <= 0 {
		kFactor = DefaultKFactor
	}
	expected := 1 / (1 + math.Pow(10, float64(opponentRating-selfRating)/400))
	actual := 0.0
	if won {
		actual = 1.0
	}
	return int(math.Round(float64(kFactor) * (actual - expected)))
}

// ComputeNewRating returns the player's rating after the match,
// clamped to MinRating.
func ComputeNewRating(selfRating, opponentRating int, won bool, kFactor int) int {
	newRating := selfRating + ComputeDelta(selfRating, opponentRating, won, kFactor)
	if newRating < MinRating {
		return MinRating
	}
	return newRating
}
