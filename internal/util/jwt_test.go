package util

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signHS256(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func validClaims(sub string) Claims {
	return Claims{
		Email: "owner@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestTokenVerifier_HMAC(t *testing.T) {
	v, err := NewTokenVerifier("super-secret")
	require.NoError(t, err)

	claims, err := v.Validate(signHS256(t, "super-secret", validClaims("user-1")))
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "owner@example.com", claims.Email)
}

func TestTokenVerifier_Rejects(t *testing.T) {
	v, err := NewTokenVerifier("super-secret")
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := v.Validate(signHS256(t, "other", validClaims("user-1")))
		assert.Error(t, err)
	})
	t.Run("expired", func(t *testing.T) {
		c := validClaims("user-1")
		c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
		_, err := v.Validate(signHS256(t, "super-secret", c))
		assert.Error(t, err)
	})
	t.Run("no expiry", func(t *testing.T) {
		c := validClaims("user-1")
		c.ExpiresAt = nil
		_, err := v.Validate(signHS256(t, "super-secret", c))
		assert.Error(t, err)
	})
	t.Run("no subject", func(t *testing.T) {
		_, err := v.Validate(signHS256(t, "super-secret", validClaims("")))
		assert.Error(t, err)
	})
	t.Run("garbage", func(t *testing.T) {
		_, err := v.Validate("not-a-token")
		assert.Error(t, err)
	})
}

func TestTokenVerifier_ECDSA(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pemKey := string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))

	v, err := NewTokenVerifier(pemKey)
	require.NoError(t, err)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodES256, validClaims("user-2")).SignedString(key)
	require.NoError(t, err)
	claims, err := v.Validate(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-2", claims.Subject)

	// An HMAC token must not verify against a public key verifier.
	_, err = v.Validate(signHS256(t, pemKey, validClaims("user-2")))
	assert.Error(t, err)
}

func TestNewTokenVerifier_BadPEM(t *testing.T) {
	_, err := NewTokenVerifier("-----BEGIN PUBLIC KEY-----\nnope\n-----END PUBLIC KEY-----")
	assert.Error(t, err)
	_, err = NewTokenVerifier("")
	assert.Error(t, err)
}
