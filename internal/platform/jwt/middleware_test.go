package jwtmw

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

const testSecret = "test-secret-key"

// TestMain はテスト実行前にGinをテストモードに設定します。
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func run(secret, authHeader string) (*httptest.ResponseRecorder, *gin.Context) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/admin/batches", nil)
	if authHeader != "" {
		c.Request.Header.Set("Authorization", authHeader)
	}
	AuthRequired(secret, ScopeAdmin)(c)
	return w, c
}

func signed(secret string, claims jwt.MapClaims) string {
	s, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	return s
}

// TestAuthRequired_Rejects は認証に失敗するケースのステータスを検証します。
func TestAuthRequired_Rejects(t *testing.T) {
	valid := func(scope string, ttl time.Duration) jwt.MapClaims {
		return jwt.MapClaims{"sub": "ops", "scope": scope, "exp": time.Now().Add(ttl).Unix()}
	}

	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, valid(ScopeAdmin, time.Hour)).
		SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name       string
		secret     string
		authHeader string
		wantStatus int
	}{
		{"no header", testSecret, "", http.StatusUnauthorized},
		{"basic auth", testSecret, "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"bearer lowercase", testSecret, "bearer token123", http.StatusUnauthorized},
		{"secret not configured", "", "Bearer sometoken", http.StatusInternalServerError},
		{"malformed token", testSecret, "Bearer not.a.valid.token", http.StatusUnauthorized},
		{"wrong secret", testSecret, "Bearer " + signed("wrong-secret", valid(ScopeAdmin, time.Hour)), http.StatusUnauthorized},
		{"expired token", testSecret, "Bearer " + signed(testSecret, valid(ScopeAdmin, -time.Hour)), http.StatusUnauthorized},
		{"unsigned token", testSecret, "Bearer " + none, http.StatusUnauthorized},
		{"missing scope", testSecret, "Bearer " + signed(testSecret, valid("", time.Hour)), http.StatusForbidden},
		{"other scope", testSecret, "Bearer " + signed(testSecret, valid("read", time.Hour)), http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, c := run(tt.secret, tt.authHeader)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.True(t, c.IsAborted())
		})
	}
}

// TestAuthRequired_ValidToken は有効なトークンで通過し、subjectが設定されることを検証します。
func TestAuthRequired_ValidToken(t *testing.T) {
	token, err := NewGenerator(testSecret, time.Hour).GenerateToken("ops-oncall", ScopeAdmin)
	assert.NoError(t, err)

	w, c := run(testSecret, "Bearer "+token)

	assert.False(t, c.IsAborted(), "response: %s", w.Body.String())
	sub, ok := c.Get(ContextSubject)
	assert.True(t, ok)
	assert.Equal(t, "ops-oncall", sub)
}
