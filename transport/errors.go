package transport

import (
	"errors"
	"fmt"
)

// ErrUnauthorized marks a 401 response: the server no longer accepts the
// session's credentials. Never retried silently; the session manager is
// signalled through the gateway's unauthorized hook.
var ErrUnauthorized = errors.New("unauthorized")

// NetworkError is a transport-level failure: no response, refused
// connection, timeout. The server state is unknown, so callers treat the
// attempted operation as not applied.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// APIError is a non-2xx response from the server, carrying the status and
// the server-supplied error code string when one was present in the body.
type APIError struct {
	Status int
	Code   string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error: status %d (%s)", e.Status, e.Code)
}

// AsAPIError unwraps err to an *APIError when one is in the chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
