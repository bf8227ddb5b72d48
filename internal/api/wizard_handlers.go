// internal/api/wizard_handlers.go
package api

import (
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/prisken/content-sub000/internal/models"
	"github.com/prisken/content-sub000/internal/services"
	"github.com/prisken/content-sub000/internal/wizard"
)

// CreateWizardRequest 新建会话
type CreateWizardRequest struct {
	Flow     string `json:"flow,omitempty"` // classic | guided
	Language string `json:"language,omitempty"`
}

// UpdateFieldsRequest 批量设置字段，空字符串表示清空
type UpdateFieldsRequest struct {
	Fields map[string]string `json:"fields" binding:"required"`
}

// GenerateRequest 生成请求
type GenerateRequest struct {
	Mode           string `json:"mode,omitempty"` // local | backend
	GenerateImages bool   `json:"generate_images,omitempty"`
}

// bindOptionalJSON 允许空请求体
func bindOptionalJSON(c *gin.Context, v interface{}) error {
	if err := c.ShouldBindJSON(v); err != nil && err != io.EOF {
		return err
	}
	return nil
}

// CreateWizardSession 新建向导会话
func (h *Handler) CreateWizardSession(c *gin.Context) {
	var req CreateWizardRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		h.Response.BadRequest(c, "invalid request body")
		return
	}
	lang := req.Language
	if lang == "" {
		lang = c.GetString(ctxLanguageKey)
	}

	user, _ := CurrentUser(c)
	view, err := h.Wizard.CreateSession(user.ID, req.Flow, models.NormalizeLanguage(lang))
	if err != nil {
		h.Response.Fail(c, err)
		return
	}
	h.Response.Created(c, view)
}

// ListWizardSessions 当前用户的会话，最近使用的在前
func (h *Handler) ListWizardSessions(c *gin.Context) {
	user, _ := CurrentUser(c)
	h.Response.Success(c, h.Wizard.ListSessions(user.ID))
}

// GetWizardSession 查看会话
func (h *Handler) GetWizardSession(c *gin.Context) {
	user, _ := CurrentUser(c)
	view, err := h.Wizard.GetSession(user.ID, c.Param("id"))
	if err != nil {
		h.Response.Fail(c, err)
		return
	}
	h.Response.Success(c, view)
}

// UpdateWizardFields 设置字段；任一字段非法时整体不生效
func (h *Handler) UpdateWizardFields(c *gin.Context) {
	var req UpdateFieldsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "fields are required")
		return
	}
	values := make(map[wizard.Field]string, len(req.Fields))
	for k, v := range req.Fields {
		values[wizard.Field(k)] = v
	}

	user, _ := CurrentUser(c)
	view, err := h.Wizard.UpdateFields(user.ID, c.Param("id"), values)
	if err != nil {
		h.Response.Fail(c, err)
		return
	}
	h.Response.Success(c, view)
}

// AdvanceWizard 前进一步；缺字段时 moved=false 并带回本地化提示
func (h *Handler) AdvanceWizard(c *gin.Context) {
	user, _ := CurrentUser(c)
	result, view, err := h.Wizard.Advance(user.ID, c.Param("id"))
	if err != nil {
		h.Response.Fail(c, err)
		return
	}
	h.Response.Success(c, gin.H{"result": result, "session": view}, result.MessageKey)
}

// RetreatWizard 后退一步
func (h *Handler) RetreatWizard(c *gin.Context) {
	user, _ := CurrentUser(c)
	moved, view, err := h.Wizard.Retreat(user.ID, c.Param("id"))
	if err != nil {
		h.Response.Fail(c, err)
		return
	}
	data := gin.H{"moved": moved, "session": view}
	if !moved {
		h.Response.Success(c, data, "wizard.first_step")
		return
	}
	h.Response.Success(c, data)
}

// ResetWizard 回到第一步并清空选择和内容
func (h *Handler) ResetWizard(c *gin.Context) {
	user, _ := CurrentUser(c)
	view, err := h.Wizard.Reset(user.ID, c.Param("id"))
	if err != nil {
		h.Response.Fail(c, err)
		return
	}
	h.Response.Success(c, view)
}

// GenerateWizardContent 生成内容；同一会话重复提交会取消上一次
func (h *Handler) GenerateWizardContent(c *gin.Context) {
	var req GenerateRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		h.Response.BadRequest(c, "invalid request body")
		return
	}

	mode := services.GenerateMode(req.Mode)
	switch mode {
	case "":
		mode = services.ModeLocal
	case services.ModeLocal, services.ModeBackend:
	default:
		h.Response.BadRequest(c, "unknown mode "+strconv.Quote(req.Mode))
		return
	}

	user, _ := CurrentUser(c)
	outcome, err := h.Wizard.Generate(c.Request.Context(), user.ID, c.Param("id"), services.GenerateOptions{
		Mode:           mode,
		GenerateImages: req.GenerateImages,
		RemoteToken:    h.Auth.RemoteToken(user.ID),
	})
	if err != nil {
		h.Response.Fail(c, err)
		return
	}
	h.Response.Success(c, outcome, "generate.success")
}

// DeleteWizardSession 删除会话，正在进行的生成一并取消
func (h *Handler) DeleteWizardSession(c *gin.Context) {
	user, _ := CurrentUser(c)
	if err := h.Wizard.DeleteSession(user.ID, c.Param("id")); err != nil {
		h.Response.Fail(c, err)
		return
	}
	h.Response.Success(c, gin.H{"deleted": c.Param("id")})
}
