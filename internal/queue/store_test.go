package queue

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

func entryAt(rating, min, max int) *Entry {
	return &Entry{Rating: rating, MinRating: min, MaxRating: max}
}

func TestCompatibleIsSymmetric(t *testing.T) {
	a := entryAt(1500, 1400, 1600)
	b := entryAt(1550, 1450, 1650)

	if !Compatible(a, b) {
		t.Error("overlapping ranges with mutual containment must pair")
	}
	if !Compatible(b, a) {
		t.Error("compatibility must not depend on argument order")
	}
}

func TestCompatibleRejectsOneWayContainment(t *testing.T) {
	// Narrow accepts wide's rating, but wide's range excludes narrow's
	// rating. The ranges even overlap; the pairing is still off.
	narrow := entryAt(1500, 1400, 1700)
	wide := entryAt(1650, 1600, 1900)

	if Compatible(narrow, wide) {
		t.Error("narrow player sits outside wide player's range, must not pair")
	}
	if Compatible(wide, narrow) {
		t.Error("one-way containment must not pair in either order")
	}
}

func TestCompatibleRejectsDisjointRanges(t *testing.T) {
	low := entryAt(1200, 1100, 1300)
	high := entryAt(1800, 1700, 1900)

	if Compatible(low, high) || Compatible(high, low) {
		t.Error("disjoint ranges must never pair")
	}
}

func TestCompatibleIncludesRangeEndpoints(t *testing.T) {
	a := entryAt(1600, 1500, 1700)
	b := entryAt(1500, 1400, 1600)

	if !Compatible(a, b) {
		t.Error("ratings sitting exactly on the range bounds must pair")
	}
}

func TestClaimsFirstIsAStrictTotalOrder(t *testing.T) {
	a := uuid.New()
	b := uuid.New()

	if claimsFirst(a, b) == claimsFirst(b, a) {
		t.Error("exactly one of the two ids must claim first")
	}
	if claimsFirst(a, a) {
		t.Error("an id must not order before itself")
	}
}

func TestPairingErrorMapsDeadlockToConflict(t *testing.T) {
	// 40P01 is deadlock_detected. Losing the deadlock means the crossed
	// pairing won; callers rescan, exactly as they do on a lost claim.
	err := pairingError("claim candidate", &pq.Error{Code: "40P01"})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("deadlock loss must surface as ErrConflict, got %v", err)
	}

	for _, cause := range []error{
		&pq.Error{Code: "23505"},
		errors.New("driver: bad connection"),
		fmt.Errorf("wrapped: %w", errors.New("connection refused")),
	} {
		if errors.Is(pairingError("claim candidate", cause), ErrConflict) {
			t.Errorf("pairingError(%v) must not be ErrConflict", cause)
		}
	}
}
