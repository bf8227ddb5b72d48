// internal/api/library_handlers.go
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/prisken/content-sub000/internal/errors"
	"github.com/prisken/content-sub000/internal/models"
	"github.com/prisken/content-sub000/internal/services"
)

// SavePostRequest 保存内容：给 session_id 时取会话当前内容，否则使用请求中的选择和内容
type SavePostRequest struct {
	SessionID string                   `json:"session_id,omitempty"`
	Selection *models.WizardSelection  `json:"selection,omitempty"`
	Content   *models.GeneratedContent `json:"content,omitempty"`
}

// ListPosts 分页列出内容库，可按平台过滤
func (h *Handler) ListPosts(c *gin.Context) {
	user, _ := CurrentUser(c)
	page, err := h.Library.ListPosts(user.ID, services.PostListQuery{
		PageQuery: pageQuery(c),
		Platform:  models.Platform(c.Query("platform")),
	})
	if err != nil {
		h.Response.Fail(c, err)
		return
	}
	if page.Total == 0 {
		h.Response.Success(c, page, "library.empty")
		return
	}
	h.Response.Success(c, page)
}

// SavePost 保存到内容库
func (h *Handler) SavePost(c *gin.Context) {
	var req SavePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "invalid request body")
		return
	}
	user, _ := CurrentUser(c)

	var (
		sel     models.WizardSelection
		content models.GeneratedContent
	)
	switch {
	case req.SessionID != "":
		view, err := h.Wizard.GetSession(user.ID, req.SessionID)
		if err != nil {
			h.Response.Fail(c, err)
			return
		}
		if view.Content == nil {
			h.Response.Fail(c, errors.NewValidationError("session has no generated content", nil))
			return
		}
		sel, content = view.Selection, *view.Content
	case req.Selection != nil && req.Content != nil:
		sel, content = *req.Selection, *req.Content
	default:
		h.Response.BadRequest(c, "session_id or selection and content are required")
		return
	}

	post, err := h.Library.SavePost(user.ID, sel, content)
	if err != nil {
		h.Response.Fail(c, err)
		return
	}
	h.Response.Created(c, post, "library.saved")
}

// GetPost 查看一条内容
func (h *Handler) GetPost(c *gin.Context) {
	user, _ := CurrentUser(c)
	post, err := h.Library.GetPost(user.ID, c.Param("id"))
	if err != nil {
		h.Response.Fail(c, err)
		return
	}
	h.Response.Success(c, post)
}

// DeletePost 删除一条内容
func (h *Handler) DeletePost(c *gin.Context) {
	user, _ := CurrentUser(c)
	if err := h.Library.DeletePost(user.ID, c.Param("id")); err != nil {
		h.Response.Fail(c, err)
		return
	}
	h.Response.Success(c, gin.H{"deleted": c.Param("id")}, "library.deleted")
}

// ExportPost 以附件形式下载 markdown / html / txt / json
func (h *Handler) ExportPost(c *gin.Context) {
	format, err := services.ParseExportFormat(c.Query("format"))
	if err != nil {
		h.Response.Fail(c, err)
		return
	}

	user, _ := CurrentUser(c)
	result, err := h.Library.ExportPost(user.ID, c.Param("id"), format, h.Response.Localizer(c))
	if err != nil {
		h.Response.Fail(c, err)
		return
	}
	h.Response.FileResponse(c, result)
}
