package jwt

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := New("secret", time.Hour, "https://id.example.com")

	token, err := svc.GenerateToken("user_1", Claims{Email: "a@example.com", FirstName: "Ada"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user_1", claims.Subject)
	assert.Equal(t, "a@example.com", claims.Email)
	assert.Equal(t, "Ada", claims.FirstName)
}

func TestValidateToken_Rejects(t *testing.T) {
	svc := New("secret", time.Hour, "https://id.example.com")

	t.Run("wrong secret", func(t *testing.T) {
		token, err := New("other", time.Hour, "https://id.example.com").GenerateToken("user_1", Claims{})
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := New("secret", -time.Minute, "https://id.example.com").GenerateToken("user_1", Claims{})
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		token, err := New("secret", time.Hour, "https://evil.example.com").GenerateToken("user_1", Claims{})
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing subject", func(t *testing.T) {
		token, err := svc.GenerateToken("", Claims{})
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("alg none", func(t *testing.T) {
		token := jwtlib.NewWithClaims(jwtlib.SigningMethodNone, jwtlib.RegisteredClaims{
			Subject:   "user_1",
			ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(time.Hour)),
		})
		s, err := token.SignedString(jwtlib.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = svc.ValidateToken(s)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.ValidateToken("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestValidateToken_NoIssuerCheck(t *testing.T) {
	token, err := New("secret", time.Hour, "anyone").GenerateToken("user_1", Claims{})
	require.NoError(t, err)

	_, err = New("secret", time.Hour, "").ValidateToken(token)
	assert.NoError(t, err)
}
