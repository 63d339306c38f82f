package reconcile

// RejectedError marks a mutation the server refused for reasons other than
// duplicate-action semantics. The optimistic patch has already been rolled
// back by the time callers see this; it exists to drive a user-visible
// failure message, never an automatic retry.
type RejectedError struct {
	Cause error
}

func (e *RejectedError) Error() string {
	return "mutation rejected: " + e.Cause.Error()
}

func (e *RejectedError) Unwrap() error { return e.Cause }
