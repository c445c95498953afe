package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStaticAuthenticator_Authenticate(t *testing.T) {
	t.Parallel()

	a := Static("api_tkn_5e1c2", "api_tkn_7d0f9")
	t.Run("Authenticated", func(t *testing.T) {
		t.Parallel()

		assert.NoError(t, a.Authenticate(context.Background(), "api_tkn_5e1c2"))
		assert.NoError(t, a.Authenticate(context.Background(), "api_tkn_7d0f9"))
	})
	t.Run("Unauthenticated", func(t *testing.T) {
		t.Parallel()

		err := a.Authenticate(context.Background(), "another_tkn_cf7a6")
		assert.ErrorIs(t, err, ErrNotAuthorized)
	})
	t.Run("Empty token", func(t *testing.T) {
		t.Parallel()

		err := a.Authenticate(context.Background(), "")
		assert.ErrorIs(t, err, ErrNotAuthorized)
	})
}
