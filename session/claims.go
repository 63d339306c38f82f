package session

import (
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Identity is the set of claims the client derives from the bearer token.
// The token is issued and signed by the API; the client has no verification
// key, so claims are decoded unverified and treated as untrusted input. The
// server re-validates the signature on every request.
type Identity struct {
	SubjectID   int64
	DisplayName string
	ExpiresAt   time.Time
}

// Valid reports whether the identity's validity window covers now.
// Expiry is evaluated against local wall-clock time; clock skew is not
// compensated.
func (id Identity) Valid(now time.Time) bool {
	return id.ExpiresAt.After(now)
}

// decodeIdentity parses the raw token into an Identity. Any token that cannot
// be decoded into the expected claim shape fails with ErrMalformedToken; it is
// never a panic or an unchecked cast.
func decodeIdentity(rawToken string) (*Identity, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, errors.Wrap(ErrMalformedToken, "[decodeIdentity] empty token")
	}

	token, _, err := jwtlib.NewParser().ParseUnverified(rawToken, jwtlib.MapClaims{})
	if err != nil {
		return nil, errors.Wrap(ErrMalformedToken, err.Error())
	}

	claims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, errors.Wrap(ErrMalformedToken, "[decodeIdentity] error extracting claims")
	}

	subjectID, ok := numericClaim(claims["user_id"])
	if !ok {
		return nil, errors.Wrap(ErrMalformedToken, "[decodeIdentity] missing user_id claim")
	}

	exp, ok := numericClaim(claims["exp"])
	if !ok {
		return nil, errors.Wrap(ErrMalformedToken, "[decodeIdentity] missing exp claim")
	}

	identity := &Identity{
		SubjectID: subjectID,
		ExpiresAt: time.Unix(exp, 0),
	}
	if name, ok := claims["name"].(string); ok {
		identity.DisplayName = name
	}
	return identity, nil
}

// numericClaim converts the loosely-typed numeric claims a JSON decode
// produces into an int64.
func numericClaim(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}
