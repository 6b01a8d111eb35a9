package auth

import (
	"net/http"

	"github.com/NissimBet/meetmylog-back/internal/config"
	"github.com/gin-gonic/gin"
)

const claimsKey = "authClaims"

// Middleware 认证闸门：提取 Bearer token、校验并把声明挂到请求上下文。
// 缺失凭证和无效凭证一律视为同一种认证失败，不泄露区别。
// 只做判定，不签发也不续期 token。
func Middleware(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := ExtractBearer(c.GetHeader("Authorization"))
		claims, ok := DecodeClaims(tokenStr, cfg.JWTSecret)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user unauthenticated"})
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// GetClaims 取出认证中间件挂载的声明，未认证时返回 nil。
func GetClaims(c *gin.Context) *Claims {
	if v, ok := c.Get(claimsKey); ok {
		if claims, ok2 := v.(*Claims); ok2 {
			return claims
		}
	}
	return nil
}

// GetUserID 返回当前调用者的 userId，未认证时为空串。
func GetUserID(c *gin.Context) string {
	if claims := GetClaims(c); claims != nil {
		return claims.UserID
	}
	return ""
}
