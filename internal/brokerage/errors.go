package brokerage

import (
	"errors"
	"fmt"
)

// ErrUpstream marks backend 5xx and transport failures that survived the
// retry budget. The HTTP layer answers these with 502, never the backend's
// own status.
var ErrUpstream = errors.New("brokerage backend unavailable")

// StatusError preserves a backend 4xx so it can be passed through to the
// caller with its original status.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("brokerage backend returned %d: %s", e.Code, e.Message)
}
