// internal/api/response_helpers.go
package api

import (
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/prisken/content-sub000/internal/errors"
	"github.com/prisken/content-sub000/internal/i18n"
	"github.com/prisken/content-sub000/internal/models"
	"github.com/prisken/content-sub000/internal/utils"
)

// APIResponse 标准API响应格式
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"` // 用于调试和追踪
}

// APIError 标准错误格式；Message 已按请求语言本地化
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ResponseHelper 响应助手类
type ResponseHelper struct {
	catalog *i18n.Catalog
}

// NewResponseHelper 创建响应助手
func NewResponseHelper(catalog *i18n.Catalog) *ResponseHelper {
	return &ResponseHelper{catalog: catalog}
}

// Localizer 当前请求使用的语言
func (rh *ResponseHelper) Localizer(c *gin.Context) *i18n.Localizer {
	return rh.catalog.Localizer(c.GetString(ctxLanguageKey))
}

// Success 成功响应；messageKey 可选，为 i18n 键
func (rh *ResponseHelper) Success(c *gin.Context, data interface{}, messageKey ...string) {
	rh.respond(c, http.StatusOK, data, messageKey...)
}

// Created 创建成功响应
func (rh *ResponseHelper) Created(c *gin.Context, data interface{}, messageKey ...string) {
	rh.respond(c, http.StatusCreated, data, messageKey...)
}

func (rh *ResponseHelper) respond(c *gin.Context, status int, data interface{}, messageKey ...string) {
	c.JSON(status, rh.envelope(c, data, messageKey...))
}

// envelope 组装成功响应的公共部分
func (rh *ResponseHelper) envelope(c *gin.Context, data interface{}, messageKey ...string) *APIResponse {
	response := &APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
		RequestID: rh.getRequestID(c),
	}
	if len(messageKey) > 0 && messageKey[0] != "" {
		response.Message = rh.Localizer(c).T(messageKey[0])
	}
	return response
}

// Fail 输出错误响应，状态码、错误代码和本地化消息都由错误类型决定
func (rh *ResponseHelper) Fail(c *gin.Context, err error) {
	status := errors.HTTPStatus(err)
	code := ErrorInternal
	key := "error.internal"

	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		code = appErr.Code
		if appErr.MessageKey != "" {
			key = appErr.MessageKey
		}
	}

	fields := map[string]interface{}{
		"request_id": rh.getRequestID(c),
		"path":       c.FullPath(),
		"status":     status,
		"error":      err.Error(),
	}
	if status >= http.StatusInternalServerError {
		utils.GetLogger().Error("请求处理失败", fields)
	} else {
		utils.GetLogger().Debug("请求被拒绝", fields)
	}

	details := ""
	if status < http.StatusInternalServerError && appErr != nil {
		details = sanitizeErrorMessage(appErr.Message)
	}
	rh.Error(c, status, code, key, details)
}

// sanitizeErrorMessage 去掉可能泄露密钥或路径的细节
func sanitizeErrorMessage(message string) string {
	lower := strings.ToLower(message)
	for _, pattern := range []string{"api_key", "apikey", "secret", "token", "password"} {
		if strings.Contains(lower, pattern) {
			return ""
		}
	}
	if strings.ContainsAny(message, `/\`) {
		return ""
	}
	return message
}

// Error 错误响应；messageKey 为 i18n 键
func (rh *ResponseHelper) Error(c *gin.Context, statusCode int, errorCode, messageKey string, details ...string) {
	apiError := &APIError{
		Code:    errorCode,
		Message: rh.Localizer(c).T(messageKey),
	}
	if len(details) > 0 {
		apiError.Details = details[0]
	}

	c.AbortWithStatusJSON(statusCode, &APIResponse{
		Success:   false,
		Error:     apiError,
		Timestamp: time.Now(),
		RequestID: rh.getRequestID(c),
	})
}

// BadRequest 400错误响应
func (rh *ResponseHelper) BadRequest(c *gin.Context, details string) {
	rh.Error(c, http.StatusBadRequest, ErrorBadRequest, "error.validation", details)
}

// NotFound 404错误响应
func (rh *ResponseHelper) NotFound(c *gin.Context) {
	rh.Error(c, http.StatusNotFound, ErrorNotFound, "error.not_found")
}

// Unauthorized 401错误响应
func (rh *ResponseHelper) Unauthorized(c *gin.Context, messageKey string) {
	if messageKey == "" {
		messageKey = "error.unauthorized"
	}
	rh.Error(c, http.StatusUnauthorized, ErrorUnauthorized, messageKey)
}

// Forbidden 403错误响应
func (rh *ResponseHelper) Forbidden(c *gin.Context) {
	rh.Error(c, http.StatusForbidden, ErrorForbidden, "error.forbidden")
}

// FileResponse 导出文件下载
func (rh *ResponseHelper) FileResponse(c *gin.Context, result *models.ExportResult) {
	c.Header("Content-Disposition", `attachment; filename="`+result.FileName+`"`)
	c.Header("X-Request-ID", rh.getRequestID(c))
	c.Data(http.StatusOK, result.Format.ContentType(), []byte(result.Content))
}

// getRequestID 获取请求ID
func (rh *ResponseHelper) getRequestID(c *gin.Context) string {
	return c.GetString(ctxRequestIDKey)
}
