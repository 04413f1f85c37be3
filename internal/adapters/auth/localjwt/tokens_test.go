package localjwt

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestTokens_IssueAndVerify(t *testing.T) {
	tok, err := New(secret, time.Hour)
	require.NoError(t, err)
	now := time.Date(2023, 11, 10, 8, 0, 0, 0, time.UTC)
	tok.now = func() time.Time { return now }

	signed, exp, err := tok.Issue("u-1", "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), exp)

	claims, err := tok.Verify(context.Background(), signed)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "ana@example.com", claims.Email)

	now = now.Add(2 * time.Hour)
	_, err = tok.Verify(context.Background(), signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokens_RejectsForeignTokens(t *testing.T) {
	tok, err := New(secret, time.Hour)
	require.NoError(t, err)

	other, err := New("ffffffffffffffffffffffffffffffff", time.Hour)
	require.NoError(t, err)
	signed, _, _ := other.Issue("u-1", "")
	_, err = tok.Verify(context.Background(), signed)
	assert.ErrorIs(t, err, ErrInvalidToken, "wrong secret")

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "u-1",
		Issuer:    issuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = tok.Verify(context.Background(), none)
	assert.ErrorIs(t, err, ErrInvalidToken, "alg none")

	_, err = New("short", time.Hour)
	assert.Error(t, err)
}
