package cryptox_test

import (
	"strings"
	"testing"

	"github.com/gatehouse-io/gatehouse/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	t.Parallel()

	hash, err := cryptox.HashPassword("correct horse battery staple")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"))

	require.NoError(t, cryptox.VerifyPassword("correct horse battery staple", hash))
	require.ErrorIs(t, cryptox.VerifyPassword("wrong", hash), cryptox.ErrPasswordMismatch)
}

func TestHashesAreSalted(t *testing.T) {
	t.Parallel()

	a, err := cryptox.HashPassword("same-password")
	require.NoError(t, err)
	b, err := cryptox.HashPassword("same-password")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestVerifyPasswordRejectsMalformedHash(t *testing.T) {
	t.Parallel()

	for _, hash := range []string{
		"",
		"plaintext",
		"$bcrypt$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=65536,t=3,p=2$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=3,p=2$!!!$aGFzaA",
	} {
		err := cryptox.VerifyPassword("anything", hash)
		require.Error(t, err)
		require.NotErrorIs(t, err, cryptox.ErrPasswordMismatch)
	}
}

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	a, err := cryptox.GenerateToken(cryptox.TokenSize256)
	require.NoError(t, err)
	require.Len(t, a, 43)

	b, err := cryptox.GenerateToken(cryptox.TokenSize256)
	require.NoError(t, err)
	require.NotEqual(t, a, b)

	_, err = cryptox.GenerateToken(0)
	require.Error(t, err)
}
