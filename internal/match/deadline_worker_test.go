package match

import (
	"errors"
	"fmt"
	"testing"
)

func TestDeadlineSurvivesTransientForfeitFailure(t *testing.T) {
	// Terminal, gone, or outraced by a live intent: the deadline is not
	// put back (a racing intent arms its own fresh deadline, which a
	// re-arm at "now" would clobber into an instant wrongful forfeit).
	for _, err := range []error{
		validationf("match is over"),
		fmt.Errorf("%w: session GONE", ErrNotFound),
		fmt.Errorf("%w: session R changed under us", ErrConflict),
	} {
		if !deadlineSpent(err) {
			t.Errorf("deadlineSpent(%v) = false, want true", err)
		}
	}

	// Anything else (a database hiccup, a lost connection) must keep the
	// room on the clock for the next sweep.
	for _, err := range []error{
		errors.New("driver: bad connection"),
		fmt.Errorf("begin intent tx: %w", errors.New("connection refused")),
	} {
		if deadlineSpent(err) {
			t.Errorf("deadlineSpent(%v) = true, want false", err)
		}
	}
}
