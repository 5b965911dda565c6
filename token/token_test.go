package token

import (
	"testing"
	"time"

	"table-reservation-api/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	m := NewManager("test-secret", time.Hour)

	signed, err := m.Issue("alice", models.RoleOwner)
	require.NoError(t, err)

	claims, err := m.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, models.RoleOwner, claims.Role)
	assert.WithinDuration(t, claims.IssuedAt.Add(time.Hour), claims.ExpiresAt.Time, time.Second)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	issuedAt := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	issuer := NewManager("test-secret", time.Hour).WithClock(func() time.Time { return issuedAt })
	signed, err := issuer.Issue("bob", models.RoleCustomer)
	require.NoError(t, err)

	later := NewManager("test-secret", time.Hour).WithClock(func() time.Time { return issuedAt.Add(61 * time.Minute) })
	_, err = later.Parse(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	stillValid := NewManager("test-secret", time.Hour).WithClock(func() time.Time { return issuedAt.Add(59 * time.Minute) })
	_, err = stillValid.Parse(signed)
	assert.NoError(t, err)
}

func TestParseRejectsForeignSignature(t *testing.T) {
	signed, err := NewManager("secret-a", time.Hour).Issue("carol", models.RoleAdmin)
	require.NoError(t, err)

	_, err = NewManager("secret-b", time.Hour).Parse(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsOtherAlgorithms(t *testing.T) {
	claims := Claims{
		Role:     models.RoleAdmin,
		Username: "mallory",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "mallory",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = NewManager("test-secret", time.Hour).Parse(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := NewManager("test-secret", time.Hour).Parse("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
