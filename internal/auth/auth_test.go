package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kirinyoku/resto-go/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestIssueAndParse(t *testing.T) {
	iss := NewIssuer("secret", time.Hour)

	tok, err := iss.Issue(domain.Employee{ID: 42, FullName: "Olga", Role: domain.RoleWaiter})
	require.NoError(t, err)
	assert.NotEmpty(t, tok.Token)

	actor, err := iss.Parse(tok.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), actor.StaffID)
	assert.Equal(t, "Olga", actor.Name)
	assert.Equal(t, domain.RoleWaiter, actor.Role)
	assert.True(t, actor.Can(domain.CapTakeOrders))
	assert.False(t, actor.Can(domain.CapViewReports))
}

func TestParseRejects(t *testing.T) {
	iss := NewIssuer("secret", time.Hour)
	tok, err := iss.Issue(domain.Employee{ID: 1, Role: domain.RoleAdministrator})
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := NewIssuer("other", time.Hour).Parse(tok.Token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		late := NewIssuer("secret", time.Hour)
		late.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := late.Parse(tok.Token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := iss.Parse("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("non numeric subject", func(t *testing.T) {
		claims := Claims{
			Role: domain.RoleAdministrator,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "admin",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
		require.NoError(t, err)

		_, err = iss.Parse(raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("hunter2", bcrypt.MinCost)
	require.NoError(t, err)

	assert.True(t, VerifyPassword(hash, "hunter2"))
	assert.False(t, VerifyPassword(hash, "hunter3"))
	assert.False(t, VerifyPassword("", "hunter2"))
}
