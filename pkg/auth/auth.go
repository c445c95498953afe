// Package auth guards the users and measurements API with bearer tokens.
// The scale endpoints are never authenticated.
package auth

import (
	"context"
	"errors"
)

// ErrNotAuthorized is returned for a missing or unknown API token
var ErrNotAuthorized = errors.New("not authorized")

// Authenticator decides whether a bearer token may use the JSON API
type Authenticator interface {
	Authenticate(ctx context.Context, token string) error
}

// AlwaysAllowAuthenticator is used when server.token is empty
type AlwaysAllowAuthenticator struct {
}

func (a *AlwaysAllowAuthenticator) Authenticate(ctx context.Context, token string) error {
	return nil
}

func AlwaysAllow() *AlwaysAllowAuthenticator {
	return &AlwaysAllowAuthenticator{}
}

// FromTokens builds the authenticator for the configured server.token list.
// Blank entries are skipped and an empty list leaves the API open.
func FromTokens(tokens []string) Authenticator {
	var nonEmpty []string
	for _, t := range tokens {
		if t != "" {
			nonEmpty = append(nonEmpty, t)
		}
	}
	if len(nonEmpty) == 0 {
		return AlwaysAllow()
	}
	return Static(nonEmpty...)
}
