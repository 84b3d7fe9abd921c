package middleware

import (
	"errors"
	"net/http"
	"strings"

	"Lee_Library/internal/pkg"

	"github.com/gin-gonic/gin"
)

const ContextUserIDKey = "user_id"

// AuthMiddleware 校验账号服务签发的 access token，通过后注入 user_id
func AuthMiddleware(verifier *pkg.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": 1, "msg": "missing authorization header"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": 1, "msg": "invalid authorization format"})
			return
		}

		claims, err := verifier.ParseAccess(parts[1])
		if err != nil {
			msg := "invalid or expired token"
			if errors.Is(err, pkg.ErrTokenExpired) {
				msg = "token expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": 1, "msg": msg})
			return
		}

		c.Set(ContextUserIDKey, claims.UserID)
		c.Next()
	}
}

// UserID 取出鉴权后注入的用户 id
func UserID(c *gin.Context) uint64 {
	return c.GetUint64(ContextUserIDKey)
}
