package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJWTConfig() *JWTConfig {
	return &JWTConfig{
		Secret:   []byte("test-secret-change-me"),
		Issuer:   "wirechat",
		Audience: "wirechat-web",
		TTL:      time.Hour,
	}
}

func TestVerifyRoundTrip(t *testing.T) {
	cfg := testJWTConfig()

	token, err := GenerateToken(cfg, 42, "Alice Doe", "alice@example.com")
	require.NoError(t, err)

	identity, err := NewVerifier(cfg).Verify(token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), identity.UserID)
	assert.Equal(t, "Alice Doe", identity.Fullname)
	assert.Equal(t, "alice@example.com", identity.Email)
}

func TestVerifyRejectsGarbageToken(t *testing.T) {
	_, err := NewVerifier(testJWTConfig()).Verify("not.a.token")
	assert.Error(t, err)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	cfg := testJWTConfig()
	token, err := GenerateToken(cfg, 1, "Bob", "bob@example.com")
	require.NoError(t, err)

	other := testJWTConfig()
	other.Secret = []byte("different-secret")
	_, err = NewVerifier(other).Verify(token)
	assert.Error(t, err)
}

func TestVerifyRejectsWrongIssuerOrAudience(t *testing.T) {
	cfg := testJWTConfig()
	token, err := GenerateToken(cfg, 1, "Bob", "bob@example.com")
	require.NoError(t, err)

	badIssuer := testJWTConfig()
	badIssuer.Issuer = "someone-else"
	_, err = NewVerifier(badIssuer).Verify(token)
	assert.Error(t, err)

	badAudience := testJWTConfig()
	badAudience.Audience = "other-app"
	_, err = NewVerifier(badAudience).Verify(token)
	assert.Error(t, err)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	cfg := testJWTConfig()
	cfg.TTL = -time.Minute

	token, err := GenerateToken(cfg, 1, "Bob", "bob@example.com")
	require.NoError(t, err)

	_, err = NewVerifier(cfg).Verify(token)
	assert.Error(t, err)
}
