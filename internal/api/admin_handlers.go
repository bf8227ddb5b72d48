// internal/api/admin_handlers.go
package api

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/prisken/content-sub000/internal/config"
	"github.com/prisken/content-sub000/internal/errors"
	"github.com/prisken/content-sub000/internal/models"
	"github.com/prisken/content-sub000/internal/services"
)

// ListUsers 管理后台用户列表，q 匹配邮箱或姓名
func (h *Handler) ListUsers(c *gin.Context) {
	page, err := h.Users.ListUsers(services.UserListQuery{
		PageQuery: pageQuery(c),
		Search:    c.Query("q"),
	})
	if err != nil {
		h.Response.Fail(c, err)
		return
	}
	h.Response.Success(c, page)
}

// UpdateUser 修改姓名、角色或状态
func (h *Handler) UpdateUser(c *gin.Context) {
	var update models.UserUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		h.Response.BadRequest(c, "invalid user update")
		return
	}

	admin, _ := CurrentUser(c)
	target := c.Param("id")
	if target == admin.ID && ((update.Role != nil && *update.Role != models.RoleAdmin) ||
		(update.Status != nil && *update.Status != models.UserActive)) {
		// 防止管理员把自己锁在后台之外
		h.Response.Fail(c, errors.NewConflictError("cannot demote or disable yourself", nil))
		return
	}

	user, err := h.Users.UpdateUser(target, update)
	if err != nil {
		h.Response.Fail(c, err)
		return
	}
	h.logger.Info("管理员修改用户", map[string]interface{}{"admin_id": admin.ID, "user_id": target})
	h.Response.Success(c, user.Public(), "admin.user_updated")
}

// DeleteUser 删除用户及其内容库
func (h *Handler) DeleteUser(c *gin.Context) {
	admin, _ := CurrentUser(c)
	target := c.Param("id")
	if target == admin.ID {
		h.Response.Fail(c, errors.NewConflictError("cannot delete yourself", nil))
		return
	}

	if err := h.Users.DeleteUser(target); err != nil {
		h.Response.Fail(c, err)
		return
	}
	if err := h.Library.DeleteAll(target); err != nil {
		h.logger.Warn("删除用户内容库失败", map[string]interface{}{"user_id": target, "error": err})
	}
	h.logger.Info("管理员删除用户", map[string]interface{}{"admin_id": admin.ID, "user_id": target})
	h.Response.Success(c, gin.H{"deleted": target}, "admin.user_deleted")
}

// GetSettings 翻译配置（不含密钥）与最近的修改记录
func (h *Handler) GetSettings(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("history", "20"))
	h.Response.Success(c, gin.H{
		"translator": h.Settings.GetTranslatorSettings(),
		"history":    h.Settings.GetChangeHistory(limit),
	})
}

// UpdateSettings 修改翻译配置，立即重建远程翻译器
func (h *Handler) UpdateSettings(c *gin.Context) {
	var req config.TranslatorSettings
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "invalid settings")
		return
	}

	admin, _ := CurrentUser(c)
	if err := h.Settings.UpdateTranslator(req, admin.Email); err != nil {
		h.Response.Fail(c, err)
		return
	}
	h.Response.Success(c, h.Settings.GetTranslatorSettings(), "admin.settings_saved")
}
