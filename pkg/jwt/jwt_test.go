// Package jwt — тесты валидатора JWT токенов.
// RSA ключи генерируются прямо в тестах.
package jwt

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

// testKeyPair содержит тестовые RSA ключи.
type testKeyPair struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
}

// generateTestKeyPair генерирует пару RSA ключей для тестов.
func generateTestKeyPair(t *testing.T) *testKeyPair {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err, "не удалось сгенерировать RSA ключ")

	return &testKeyPair{
		privateKey: privateKey,
		publicKey:  &privateKey.PublicKey,
	}
}

// createTestValidator создаёт Validator напрямую с ключом (без загрузки из файлов).
func createTestValidator(t *testing.T, keys *testKeyPair) *Validator {
	t.Helper()

	return &Validator{
		publicKey: keys.publicKey,
		issuer:    "test-issuer",
	}
}

// signTestToken подписывает токен тестовым приватным ключом.
func signTestToken(t *testing.T, keys *testKeyPair, claims Claims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(keys.privateKey)
	require.NoError(t, err, "не удалось подписать токен")
	return signed
}

// validClaims возвращает claims валидного токена.
func validClaims(issuer string) Claims {
	now := time.Now()
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   "42",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(15 * time.Minute)),
		},
		UserID: "42",
		Role:   "admin",
	}
}

func TestValidator_ValidateToken_Success(t *testing.T) {
	keys := generateTestKeyPair(t)
	v := createTestValidator(t, keys)

	tokenString := signTestToken(t, keys, validClaims("test-issuer"))

	claims, err := v.ValidateToken(tokenString)

	require.NoError(t, err)
	assert.Equal(t, "42", claims.UserID)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "test-issuer", claims.Issuer)
}

func TestValidator_ValidateToken_Expired(t *testing.T) {
	keys := generateTestKeyPair(t)
	v := createTestValidator(t, keys)

	claims := validClaims("test-issuer")
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	tokenString := signTestToken(t, keys, claims)

	_, err := v.ValidateToken(tokenString)

	assert.Error(t, err, "просроченный токен должен отклоняться")
}

func TestValidator_ValidateToken_WrongKey(t *testing.T) {
	keys := generateTestKeyPair(t)
	otherKeys := generateTestKeyPair(t)
	v := createTestValidator(t, keys)

	// Токен подписан чужим ключом
	tokenString := signTestToken(t, otherKeys, validClaims("test-issuer"))

	_, err := v.ValidateToken(tokenString)

	assert.Error(t, err, "токен с чужой подписью должен отклоняться")
}

func TestValidator_ValidateToken_WrongIssuer(t *testing.T) {
	keys := generateTestKeyPair(t)
	v := createTestValidator(t, keys)

	tokenString := signTestToken(t, keys, validClaims("other-issuer"))

	_, err := v.ValidateToken(tokenString)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "издатель")
}

func TestValidator_ValidateToken_WrongAlgorithm(t *testing.T) {
	keys := generateTestKeyPair(t)
	v := createTestValidator(t, keys)

	// Токен подписан HMAC вместо RSA — классическая атака подмены алгоритма
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims("test-issuer"))
	signed, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = v.ValidateToken(signed)

	assert.Error(t, err, "токен с HMAC подписью должен отклоняться")
}

func TestValidator_ValidateToken_Garbage(t *testing.T) {
	keys := generateTestKeyPair(t)
	v := createTestValidator(t, keys)

	_, err := v.ValidateToken("not.a.token")

	assert.Error(t, err)
}

func TestLoadPublicKey_PKIX(t *testing.T) {
	keys := generateTestKeyPair(t)

	// Записываем публичный ключ в PKIX PEM формате
	pubBytes, err := x509.MarshalPKIXPublicKey(keys.publicKey)
	require.NoError(t, err)

	pemData := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})
	path := filepath.Join(t.TempDir(), "public.pem")
	require.NoError(t, os.WriteFile(path, pemData, 0600))

	loaded, err := LoadPublicKey(path)

	require.NoError(t, err)
	assert.True(t, keys.publicKey.Equal(loaded))
}

func TestLoadPublicKey_FileNotFound(t *testing.T) {
	_, err := LoadPublicKey("/nonexistent/public.pem")
	assert.Error(t, err)
}

func TestNewValidator_LoadsKeyFromFile(t *testing.T) {
	keys := generateTestKeyPair(t)

	pubBytes, err := x509.MarshalPKIXPublicKey(keys.publicKey)
	require.NoError(t, err)

	pemData := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})
	path := filepath.Join(t.TempDir(), "public.pem")
	require.NoError(t, os.WriteFile(path, pemData, 0600))

	v, err := NewValidator(Config{PublicKeyPath: path, Issuer: "test-issuer"})
	require.NoError(t, err)

	tokenString := signTestToken(t, keys, validClaims("test-issuer"))
	claims, err := v.ValidateToken(tokenString)

	require.NoError(t, err)
	assert.Equal(t, "42", claims.UserID)
}
