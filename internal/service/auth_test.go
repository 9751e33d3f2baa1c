package service

import (
	"testing"

	"github.com/rocketscienceinc/xoxo-backend/internal/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService(t *testing.T) {
	auth := NewAuthService("test-secret-key")

	t.Run("Sign-in mints a verifiable identity", func(t *testing.T) {
		// Given: a fresh anonymous sign-in
		uid, token, err := auth.SignInAnonymously()
		require.NoError(t, err)
		require.NotEmpty(t, uid)
		require.NotEmpty(t, token)

		// When: verifying the issued token
		got, err := auth.VerifyToken(token)

		// Then: it resolves to the same uid
		require.NoError(t, err)
		assert.Equal(t, uid, got)
	})

	t.Run("Two sign-ins mint distinct identities", func(t *testing.T) {
		first, _, err := auth.SignInAnonymously()
		require.NoError(t, err)

		second, _, err := auth.SignInAnonymously()
		require.NoError(t, err)

		assert.NotEqual(t, first, second)
	})

	t.Run("Garbage token is rejected", func(t *testing.T) {
		_, err := auth.VerifyToken("not-a-token")

		require.ErrorIs(t, err, apperror.ErrNotAuthenticated)
	})

	t.Run("Token signed with another key is rejected", func(t *testing.T) {
		// Given: a token minted under a different secret
		other := NewAuthService("some-other-key")
		_, token, err := other.SignInAnonymously()
		require.NoError(t, err)

		// When: verifying it against this service
		_, err = auth.VerifyToken(token)

		// Then: the signature does not check out
		require.ErrorIs(t, err, apperror.ErrNotAuthenticated)
	})
}
