package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the split-venue fill poll.
var (
	ErrEntryPriceNotFound   = errors.New("entry price not found for position")
	ErrPositionSizeNotFound = errors.New("position size not found")
)

// PartialExecutionError marks the most severe trade outcome: the entry
// order filled but the protective orders could not be placed or
// confirmed, leaving the position exposed. It must never be collapsed
// into a plain rejection.
type PartialExecutionError struct {
	Venue  string
	Symbol string
	Cause  error
}

func (e *PartialExecutionError) Error() string {
	return fmt.Sprintf("%s %s: position opened but unprotected: %v", e.Venue, e.Symbol, e.Cause)
}

func (e *PartialExecutionError) Unwrap() error { return e.Cause }

// IsPartialExecution reports whether err carries real unprotected exposure.
func IsPartialExecution(err error) bool {
	var pe *PartialExecutionError
	return errors.As(err, &pe)
}

// SizingError means the notional is too small to express as at least
// the venue's minimum lot count.
type SizingError struct {
	Symbol  string
	Lots    int64
	MinLots int64
}

func (e *SizingError) Error() string {
	return fmt.Sprintf("%s: computed size %d below venue minimum %d lots", e.Symbol, e.Lots, e.MinLots)
}

// RateLimitError is surfaced after the client has already waited the
// server-suggested reset interval. There is no silent retry.
type RateLimitError struct {
	Venue   string
	ResetIn time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: rate limited (reset after %s)", e.Venue, e.ResetIn)
}
