package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain/model"
)

func TestJWTIssuer_IssueAndParse(t *testing.T) {
	issuer := NewJWTIssuer("secret", 15*time.Minute)
	now := time.Now()

	raw, exp, err := issuer.Issue(42, model.RoleUser, 3, now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(15*time.Minute), exp)

	claims, err := issuer.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, model.RoleUser, claims.Role)
	assert.Equal(t, 3, claims.TokenVersion)
}

func TestJWTIssuer_Parse_Rejects(t *testing.T) {
	issuer := NewJWTIssuer("secret", 15*time.Minute)

	expired, _, err := issuer.Issue(1, model.RoleUser, 0, time.Now().Add(-time.Hour))
	require.NoError(t, err)

	otherKey, _, err := NewJWTIssuer("other", time.Minute).Issue(1, model.RoleUser, 0, time.Now())
	require.NoError(t, err)

	noSub := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": "USER",
		"tv":   0,
		"exp":  time.Now().Add(time.Minute).Unix(),
	})
	noSubRaw, err := noSub.SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := []struct {
		name string
		raw  string
	}{
		{"garbage", "not-a-jwt"},
		{"expired", expired},
		{"wrong key", otherKey},
		{"missing sub", noSubRaw},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := issuer.Parse(tt.raw)
			assert.ErrorIs(t, err, ErrInvalidAccessToken)
		})
	}
}
