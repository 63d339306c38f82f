// Package tokenstore persists the client's bearer token between process runs.
// The token occupies a single well-known slot: writes happen only through
// login and logout, reads are idempotent and safe from any goroutine.
package tokenstore

import "errors"

// ErrNoToken is returned by Load when no token has been persisted.
var ErrNoToken = errors.New("no persisted token")

// Store is the persisted token slot. Implementations: File (survives process
// restarts) and Memory (tests, ephemeral processes).
type Store interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}
