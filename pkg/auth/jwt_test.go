package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anfisaforfriends/anfisa/config"
)

func TestTokenRoundTrip(t *testing.T) {
	config.Set("JWT_SECRET", "test-secret")

	tok, err := GenerateToken(12, "staff")
	require.NoError(t, err)

	claims, err := ValidateToken(tok)
	require.NoError(t, err)
	assert.Equal(t, uint(12), claims.UserID)
	assert.Equal(t, "staff", claims.Role)
	assert.Equal(t, "12", claims.Subject)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	config.Set("JWT_SECRET", "one")
	tok, err := GenerateToken(1, "admin")
	require.NoError(t, err)

	config.Set("JWT_SECRET", "two")
	_, err = ValidateToken(tok)
	assert.Error(t, err)
}

func TestValidateToken_Expired(t *testing.T) {
	config.Set("JWT_SECRET", "test-secret")
	old := TokenTTL
	TokenTTL = -time.Minute
	t.Cleanup(func() { TokenTTL = old })

	tok, err := GenerateToken(1, "admin")
	require.NoError(t, err)

	_, err = ValidateToken(tok)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("waffle-cone")
	require.NoError(t, err)

	assert.True(t, CheckPassword(hash, "waffle-cone"))
	assert.False(t, CheckPassword(hash, "sugar-cone"))

	_, err = HashPassword(strings.Repeat("x", 73))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}
