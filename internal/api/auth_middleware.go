// internal/api/auth_middleware.go
package api

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/prisken/content-sub000/internal/models"
	"github.com/prisken/content-sub000/internal/services"
)

// tokenFromRequest 读取 Bearer 令牌；浏览器的 WebSocket 无法带请求头，允许 access_token 查询参数
func tokenFromRequest(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return strings.TrimSpace(c.Query("access_token"))
}

// AuthMiddleware 要求有效令牌，把当前用户写入上下文
func AuthMiddleware(authService *services.AuthService, rh *ResponseHelper) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := authService.Authenticate(tokenFromRequest(c))
		if err != nil {
			rh.Fail(c, err)
			return
		}
		setCurrentUser(c, user)
		c.Next()
	}
}

// OptionalAuthMiddleware 有令牌时解析用户，没有或无效时按游客继续
func OptionalAuthMiddleware(authService *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := tokenFromRequest(c); token != "" {
			if user, err := authService.Authenticate(token); err == nil {
				setCurrentUser(c, user)
			}
		}
		c.Next()
	}
}

// RequireAdmin 管理后台入口，必须放在 AuthMiddleware 之后
func RequireAdmin(rh *ResponseHelper) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			rh.Unauthorized(c, "")
			return
		}
		if !user.IsAdmin() {
			rh.Forbidden(c)
			return
		}
		c.Next()
	}
}

func setCurrentUser(c *gin.Context, user *models.User) {
	c.Set(ctxUserKey, user)
	if user.PreferredLanguage.Valid() {
		c.Set(ctxLanguageKey, string(user.PreferredLanguage))
	}
}

// CurrentUser 取当前登录用户
func CurrentUser(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get(ctxUserKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*models.User)
	return user, ok && user != nil
}
