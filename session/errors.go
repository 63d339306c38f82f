package session

import "errors"

var (
	ErrMalformedToken = errors.New("malformed token")
	ErrTokenExpired   = errors.New("token expired")
	ErrNoSession      = errors.New("no active session")
)
