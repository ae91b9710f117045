package ddbiface

import "errors"

var (
	// ErrItemNotFound is returned by GetItem when no item has the key.
	ErrItemNotFound = errors.New("item not found")

	// ErrConditionFailed is returned when a write's condition does not hold.
	// Nothing was written.
	ErrConditionFailed = errors.New("conditional check failed")

	// ErrTimeout is returned when the backend reports a timeout of its own,
	// as distinct from the caller's context expiring.
	ErrTimeout = errors.New("storage timeout")

	// ErrContention is returned when concurrent writers to the same item
	// kept a write from committing. Nothing was written.
	ErrContention = errors.New("write contention")

	// ErrUnavailable marks transient backend failures: throttling, server
	// errors, an open circuit breaker. The call may be retried with backoff.
	ErrUnavailable = errors.New("storage unavailable")
)
