// internal/api/auth_handlers.go
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/prisken/content-sub000/internal/services"
)

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register 注册并直接登录
func (h *Handler) Register(c *gin.Context) {
	var req services.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "invalid registration data")
		return
	}
	if req.PreferredLanguage == "" {
		req.PreferredLanguage = c.GetString(ctxLanguageKey)
	}

	session, err := h.Auth.Register(c.Request.Context(), req)
	if err != nil {
		h.Response.Fail(c, err)
		return
	}
	c.Set(ctxLanguageKey, string(session.User.PreferredLanguage))
	h.Response.Created(c, session, "auth.register_success")
}

// Login 登录
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "email and password are required")
		return
	}

	session, err := h.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.Response.Fail(c, err)
		return
	}
	c.Set(ctxLanguageKey, string(session.User.PreferredLanguage))
	h.Response.Success(c, session, "auth.login_success")
}

// Me 当前登录用户
func (h *Handler) Me(c *gin.Context) {
	user, _ := CurrentUser(c)
	h.Response.Success(c, user.Public())
}
