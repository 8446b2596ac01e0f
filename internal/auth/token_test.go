package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKid = "test-key-1"

// newJWKSServer 返回托管测试公钥的 JWKS 服务
func newJWKSServer(t *testing.T, pub *rsa.PublicKey) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"keys": []map[string]string{{
				"kid": testKid,
				"kty": "RSA",
				"use": "sig",
				"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
			}},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

// signToken 用测试私钥签发 token
func signToken(t *testing.T, key *rsa.PrivateKey, issuer string, expiresAt time.Time) string {
	t.Helper()

	claims := Claims{
		Sub:               "user-1",
		PreferredUsername: "tester",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = testKid

	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

// TestNewTokenValidator_DerivesJWKSURL 测试 JWKS URL 按 OIDC 约定推导
func TestNewTokenValidator_DerivesJWKSURL(t *testing.T) {
	v := NewTokenValidator("https://auth.example.com/realms/app", "")
	assert.Equal(t, "https://auth.example.com/realms/app/protocol/openid-connect/certs", v.jwksURL)

	explicit := NewTokenValidator("https://auth.example.com", "https://keys.example.com/jwks")
	assert.Equal(t, "https://keys.example.com/jwks", explicit.jwksURL)
}

// TestValidateToken_Valid 测试合法 token 通过验证
func TestValidateToken_Valid(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	server := newJWKSServer(t, &key.PublicKey)

	issuer := "https://auth.example.com/realms/app"
	v := NewTokenValidator(issuer, server.URL)

	claims, err := v.ValidateToken(signToken(t, key, issuer, time.Now().Add(time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Sub)
	assert.Equal(t, "tester", claims.PreferredUsername)
}

// TestValidateToken_WrongIssuer 测试 issuer 不匹配被拒绝
func TestValidateToken_WrongIssuer(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	server := newJWKSServer(t, &key.PublicKey)

	v := NewTokenValidator("https://auth.example.com/realms/app", server.URL)

	_, err = v.ValidateToken(signToken(t, key, "https://evil.example.com", time.Now().Add(time.Hour)))
	assert.Error(t, err)
}

// TestValidateToken_Expired 测试过期 token 被拒绝
func TestValidateToken_Expired(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	server := newJWKSServer(t, &key.PublicKey)

	issuer := "https://auth.example.com/realms/app"
	v := NewTokenValidator(issuer, server.URL)

	_, err = v.ValidateToken(signToken(t, key, issuer, time.Now().Add(-time.Hour)))
	assert.Error(t, err)
}

// TestValidateToken_WrongKey 测试签名不匹配被拒绝
func TestValidateToken_WrongKey(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	server := newJWKSServer(t, &key.PublicKey)
	issuer := "https://auth.example.com/realms/app"
	v := NewTokenValidator(issuer, server.URL)

	_, err = v.ValidateToken(signToken(t, otherKey, issuer, time.Now().Add(time.Hour)))
	assert.Error(t, err)
}

// TestValidateToken_Garbage 测试非法 token 串被拒绝
func TestValidateToken_Garbage(t *testing.T) {
	v := NewTokenValidator("https://auth.example.com", "https://auth.example.com/jwks")

	_, err := v.ValidateToken("not-a-jwt")
	assert.Error(t, err)
}

// TestGetPublicKey_CachesByKid 测试公钥按 kid 缓存
func TestGetPublicKey_CachesByKid(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		json.NewEncoder(w).Encode(map[string]interface{}{
			"keys": []map[string]string{{
				"kid": testKid,
				"kty": "RSA",
				"n":   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.PublicKey.E)).Bytes()),
			}},
		})
	}))
	defer server.Close()

	v := NewTokenValidator("https://auth.example.com", server.URL)

	_, err = v.GetPublicKey(testKid)
	require.NoError(t, err)
	_, err = v.GetPublicKey(testKid)
	require.NoError(t, err)
	assert.Equal(t, 1, hits)

	_, err = v.GetPublicKey("unknown-kid")
	assert.Error(t, err)
}

// TestAuthMiddleware 测试认证中间件
func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	server := newJWKSServer(t, &key.PublicKey)

	issuer := "https://auth.example.com/realms/app"
	v := NewTokenValidator(issuer, server.URL)

	router := gin.New()
	router.Use(AuthMiddleware(v))
	router.GET("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString("user_id")})
	})

	// 缺少认证头
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// 非法 token
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// 合法 token
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, key, issuer, time.Now().Add(time.Hour)))
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "user-1")
}
