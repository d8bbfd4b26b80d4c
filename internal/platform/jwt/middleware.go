package jwtmw

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// ContextSubject はトークンの sub をコンテキストに格納するキー
	ContextSubject = "subject"
	// ScopeAdmin は管理APIに必要なスコープ
	ScopeAdmin = "admin"
)

// AuthRequired returns a Gin middleware that accepts only HMAC-signed bearer tokens
// carrying the given scope.
func AuthRequired(secret, scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. Authorizationヘッダー取得
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tokenStr := strings.TrimPrefix(auth, "Bearer ")

		if secret == "" {
			// jwt.secret 未設定
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "server misconfigured"})
			return
		}

		// 2. 署名検証（HMACのみ許可）
		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		// 3. スコープ確認
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || claims["scope"] != scope {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient scope"})
			return
		}
		if sub, ok := claims["sub"].(string); ok {
			c.Set(ContextSubject, sub)
		}
		c.Next()
	}
}
