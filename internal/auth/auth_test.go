package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	req := require.New(t)
	tokens := NewTokens("test-secret", time.Hour)

	signed, err := tokens.Generate("u1", "alice", "admin")
	req.NoError(err)

	claims, err := tokens.Verify(signed)
	req.NoError(err)
	req.Equal("u1", claims.UserID)
	req.Equal("alice", claims.Username)
	req.Equal("admin", claims.Role)
	req.Equal("portal-productos", claims.Issuer)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	req := require.New(t)
	tokens := NewTokens("test-secret", -time.Minute)

	signed, err := tokens.Generate("u1", "alice", "user")
	req.NoError(err)

	_, err = tokens.Verify(signed)
	req.ErrorIs(err, ErrTokenExpired)
}

func TestVerifyRejectsWrongSecretAndGarbage(t *testing.T) {
	req := require.New(t)

	signed, err := NewTokens("secret-a", time.Hour).Generate("u1", "alice", "user")
	req.NoError(err)

	_, err = NewTokens("secret-b", time.Hour).Verify(signed)
	req.ErrorIs(err, ErrTokenInvalid)

	_, err = NewTokens("secret-a", time.Hour).Verify("not.a.token")
	req.ErrorIs(err, ErrTokenInvalid)
}

func TestPasswordHashAndCompare(t *testing.T) {
	req := require.New(t)

	hash, err := HashPassword("hunter22")
	req.NoError(err)
	req.NotEqual("hunter22", hash)

	req.True(ComparePassword("hunter22", hash))
	req.False(ComparePassword("wrong", hash))
}

func TestValidateRegister(t *testing.T) {
	valid := RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "secret1"}
	require.NoError(t, ValidateRegister(valid))

	cases := map[string]RegisterRequest{
		"short username": {Username: "ab", Email: "a@b.com", Password: "secret1"},
		"bad email":      {Username: "alice", Email: "not-an-email", Password: "secret1"},
		"short password": {Username: "alice", Email: "a@b.com", Password: "12345"},
		"missing fields": {},
	}
	for name, bad := range cases {
		t.Run(name, func(t *testing.T) {
			require.Error(t, ValidateRegister(bad))
		})
	}
}

func TestValidateLogin(t *testing.T) {
	require.NoError(t, ValidateLogin(LoginRequest{Email: "a@b.com", Password: "x"}))
	require.Error(t, ValidateLogin(LoginRequest{Email: "a@b.com"}))
	require.Error(t, ValidateLogin(LoginRequest{Password: "x"}))
}
