package closure

import "errors"

var (
	// ErrNotOwned covers both "no such account" and "not your account".
	// The two are deliberately indistinguishable to callers.
	ErrNotOwned = errors.New("access denied")

	// ErrAlreadyClosing guards initiate against records that are already
	// pending or closed.
	ErrAlreadyClosing = errors.New("account closure already in progress or completed")

	// ErrNotPending guards the terminal close against any record whose
	// status is not exactly pending_closure.
	ErrNotPending = errors.New("account must be pending closure")
)

// ValidationError is a caller-correctable request problem; each field gets
// its own instance so error messages never conflate fields.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}
