package limiter

import "errors"

var (
	// ErrStoreUnavailable wraps every store or transport failure. A rejected
	// attempt is never reported through it.
	ErrStoreUnavailable = errors.New("limiter: store unavailable")

	// ErrUnexpectedReply is returned when a routine answers with something
	// other than an integer.
	ErrUnexpectedReply = errors.New("limiter: unexpected routine reply")

	// ErrInvalidPolicy is returned for parameters no routine can run with,
	// such as a zero refill period or an unknown algorithm.
	ErrInvalidPolicy = errors.New("limiter: invalid policy")
)
