package match

import (
	"errors"
	"fmt"
)

// Error taxonomy. Handlers map these to HTTP status codes; everything here
// is recoverable at the client boundary.
var (
	// ErrNotFound: no session (or queue entry) for the given key.
	ErrNotFound = errors.New("not found")

	// ErrConflict: a precondition no longer holds, such as a stale version, duplicate
	// create, or the opponent progressed first. Clients should refetch and retry.
	ErrConflict = errors.New("conflict")

	// ErrValidation: malformed or out-of-turn intent, rejected before any
	// shared state was touched.
	ErrValidation = errors.New("invalid intent")
)

func validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrValidation}, args...)...)
}
