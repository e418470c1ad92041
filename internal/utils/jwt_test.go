package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken("secret", "42", "cashier", "main", []string{"pos:view"}, time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.Exp, 5*time.Second)

	c, err := ParseAccessToken("secret", tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "42", c.Subject)
	assert.Equal(t, "cashier", c.Role)
	assert.Equal(t, "main", c.Branch)
	assert.Equal(t, []string{"pos:view"}, c.Permissions)
}

func TestParseRejects(t *testing.T) {
	good, err := NewAccessToken("secret", "1", "waiter", "main", nil, time.Hour)
	require.NoError(t, err)
	_, err = ParseAccessToken("other", good.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := NewAccessToken("secret", "1", "waiter", "main", nil, -time.Minute)
	require.NoError(t, err)
	_, err = ParseAccessToken("secret", expired.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noSub, err := NewAccessToken("secret", "", "waiter", "main", nil, time.Hour)
	require.NoError(t, err)
	_, err = ParseAccessToken("secret", noSub.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "1", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ParseAccessToken("secret", unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseAccessToken("secret", "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifierUserID(t *testing.T) {
	tok, err := NewAccessToken("k", "9", "admin", "main", nil, time.Minute)
	require.NoError(t, err)
	id, err := Verifier{Secret: "k"}.UserID(tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "9", id)
}
