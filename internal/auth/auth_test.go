package auth

import (
	"strings"
	"testing"
	"time"

	"bookstore-backend/internal/apperr"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)
	tok, exp, err := m.Issue("64b000000000000000000001", "a@b.io", "user")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := m.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "64b000000000000000000001", claims.UserID)
	assert.Equal(t, "user", claims.Role)
}

func TestVerifyRejects(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)

	other, _, err := NewTokenManager("other", time.Hour).Issue("u1", "", "user")
	require.NoError(t, err)
	_, err = m.Verify(other)
	assert.ErrorIs(t, err, apperr.ErrInvalidToken)

	expired, _, err := NewTokenManager("secret", -time.Minute).Issue("u1", "", "user")
	require.NoError(t, err)
	_, err = m.Verify(expired)
	assert.ErrorIs(t, err, apperr.ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "u1"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.Verify(unsigned)
	assert.ErrorIs(t, err, apperr.ErrInvalidToken)

	_, err = m.Verify("")
	assert.ErrorIs(t, err, apperr.ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	h, err := HashPassword("Str0ng!Pass9")
	require.NoError(t, err)
	assert.True(t, CheckPassword(h, "Str0ng!Pass9"))
	assert.False(t, CheckPassword(h, "wrong"))
}

func TestPasswordHashingLongInput(t *testing.T) {
	long := "Aa#12" + strings.Repeat("x", 75)
	require.Empty(t, PasswordProblems(long))

	h, err := HashPassword(long)
	require.NoError(t, err)
	assert.True(t, CheckPassword(h, long))
	// differs only after byte 72
	assert.False(t, CheckPassword(h, long[:79]+"y"))

	multi := "Éé#12" + strings.Repeat("ü", 40)
	require.Greater(t, len(multi), 72)
	h, err = HashPassword(multi)
	require.NoError(t, err)
	assert.True(t, CheckPassword(h, multi))
}

func TestPasswordProblems(t *testing.T) {
	assert.Empty(t, PasswordProblems("Str0ng!Pass9"))

	got := PasswordProblems("abc")
	assert.Contains(t, got, "Password must be at least 8 characters long")
	assert.Contains(t, got, "Password must contain at least one uppercase letter")
	assert.Contains(t, got, "Password must contain at least 2 numbers")
	assert.Contains(t, got, "Password must contain at least 1 special character")

	assert.Contains(t, PasswordProblems("Has Space12!x"), "Password cannot contain spaces")
	assert.Equal(t, []string{"Password must contain at least 2 numbers"}, PasswordProblems("Abcdefg1!"))
}
