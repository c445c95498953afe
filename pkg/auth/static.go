package auth

import (
	"context"
	"crypto/subtle"
)

// StaticAuthenticator accepts the API tokens listed in the configuration.
// Tokens are compared in constant time and a blank token never matches.
type StaticAuthenticator struct {
	AllowedTokens []string
}

func (a *StaticAuthenticator) Authenticate(ctx context.Context, token string) error {
	if token == "" {
		return ErrNotAuthorized
	}
	for _, t := range a.AllowedTokens {
		if subtle.ConstantTimeCompare([]byte(token), []byte(t)) == 1 {
			return nil
		}
	}
	return ErrNotAuthorized
}

func Static(tokens ...string) *StaticAuthenticator {
	return &StaticAuthenticator{
		AllowedTokens: tokens,
	}
}
