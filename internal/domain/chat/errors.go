package chat

import "fmt"

// TimeoutError marks a turn whose remote call exceeded its deadline or was
// cancelled. It is a distinct kind so callers can tell "slow/cancelled"
// apart from "broken".
type TimeoutError struct {
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("completion timed out or was cancelled: %v", e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// ValidationError rejects malformed caller input before any persistence or
// remote call is attempted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
