package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/campus-match/internal/auth"
)

func TestIssueValidate(t *testing.T) {
	m := auth.NewManager("secret", time.Hour)

	token, err := m.Issue(42, true)
	require.NoError(t, err)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), claims.UserID)
	assert.True(t, claims.Admin)
}

func TestValidateRejects(t *testing.T) {
	m := auth.NewManager("secret", time.Hour)

	other, err := auth.NewManager("other", time.Hour).Issue(1, false)
	require.NoError(t, err)
	_, err = m.Validate(other)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	expired, err := auth.NewManager("secret", -time.Minute).Issue(1, false)
	require.NoError(t, err)
	_, err = m.Validate(expired)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	_, err = m.Validate("garbage")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	// non-numeric subject
	raw := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "bob"})
	signed, err := raw.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = m.Validate(signed)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}
