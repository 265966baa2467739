package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func validClaims(subject string) *UserClaims {
	return &UserClaims{
		Username: "alice",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func Test_HMACVerifier_Valid(t *testing.T) {
	v, err := NewHMACVerifier(secret)
	require.NoError(t, err)

	claims, err := v.Verify(sign(t, jwt.SigningMethodHS256, secret, validClaims("user-1")))
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID())
	assert.Equal(t, "alice", claims.Username)
}

func Test_HMACVerifier_Rejects(t *testing.T) {
	v, err := NewHMACVerifier(secret)
	require.NoError(t, err)

	_, err = v.Verify("")
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = v.Verify("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = v.Verify(sign(t, jwt.SigningMethodHS256, []byte("other"), validClaims("user-1")))
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := validClaims("user-1")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	_, err = v.Verify(sign(t, jwt.SigningMethodHS256, secret, expired))
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = v.Verify(sign(t, jwt.SigningMethodHS256, secret, validClaims("")))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func Test_VerifierFromFile(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "jwt.pub")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), 0o600))

	v, err := NewVerifierFromFile(path)
	require.NoError(t, err)

	claims := validClaims("")
	claims.UID = "user-2"
	verified, err := v.Verify(sign(t, jwt.SigningMethodRS256, key, claims))
	require.NoError(t, err)
	assert.Equal(t, "user-2", verified.UserID())

	_, err = v.Verify(sign(t, jwt.SigningMethodHS256, secret, validClaims("user-1")))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func Test_BearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer  abc "))
	assert.Empty(t, BearerToken("Basic abc"))
	assert.Empty(t, BearerToken(""))
}
