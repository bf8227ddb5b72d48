// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType 定义错误类型
type ErrorType string

const (
	ErrorTypeValidation          ErrorType = "validation_error"
	ErrorTypeNotFound            ErrorType = "not_found"
	ErrorTypeError               ErrorType = "processing_error"
	ErrorTypeUnauthorized        ErrorType = "unauthorized"
	ErrorTypeForbidden           ErrorType = "forbidden"
	ErrorTypeConflict            ErrorType = "conflict"
	ErrorTypeTimeout             ErrorType = "timeout"
	ErrorTypeUpstream            ErrorType = "upstream_error"
	ErrorTypeUnsupportedPlatform ErrorType = "unsupported_platform"
)

// AppError 应用程序错误结构
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
	Code    string // 用户友好的错误代码
	// MessageKey 对应 i18n 词典中的键，由 API 层翻译后返回给前端
	MessageKey string
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap 实现错误链接
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithKey 设置本地化消息键
func (e *AppError) WithKey(key string) *AppError {
	e.MessageKey = key
	return e
}

// NewAppError 创建新的 AppError
func NewAppError(errType ErrorType, message string, originalError error) *AppError {
	return &AppError{
		Type:       errType,
		Message:    message,
		Err:        originalError,
		Code:       generateErrorCode(errType),
		MessageKey: defaultMessageKey(errType),
	}
}

func NewValidationError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeValidation, message, originalError)
}

func NewNotFoundError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeNotFound, message, originalError)
}

func NewProcessingError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeError, message, originalError)
}

func NewUnauthorizedError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeUnauthorized, message, originalError)
}

func NewForbiddenError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeForbidden, message, originalError)
}

func NewConflictError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeConflict, message, originalError)
}

func NewTimeoutError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeTimeout, message, originalError)
}

// NewUpstreamError 外部后端调用失败（网络错误、非 2xx 或 success:false）
func NewUpstreamError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeUpstream, message, originalError)
}

// NewUnsupportedPlatformError 模板生成器不认识的平台
func NewUnsupportedPlatformError(platform string) *AppError {
	return NewAppError(ErrorTypeUnsupportedPlatform, fmt.Sprintf("unsupported platform %q", platform), nil)
}

// TypeOf 返回错误链中第一个 AppError 的类型，不是 AppError 时返回空串
func TypeOf(err error) ErrorType {
	var appError *AppError
	if errors.As(err, &appError) {
		return appError.Type
	}
	return ""
}

func IsValidationError(err error) bool   { return TypeOf(err) == ErrorTypeValidation }
func IsNotFoundError(err error) bool     { return TypeOf(err) == ErrorTypeNotFound }
func IsUnauthorizedError(err error) bool { return TypeOf(err) == ErrorTypeUnauthorized }
func IsForbiddenError(err error) bool    { return TypeOf(err) == ErrorTypeForbidden }
func IsConflictError(err error) bool     { return TypeOf(err) == ErrorTypeConflict }
func IsUpstreamError(err error) bool     { return TypeOf(err) == ErrorTypeUpstream }

// HTTPStatus 把错误类型映射为 HTTP 状态码
func HTTPStatus(err error) int {
	switch TypeOf(err) {
	case ErrorTypeValidation, ErrorTypeUnsupportedPlatform:
		return http.StatusBadRequest
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	case ErrorTypeForbidden:
		return http.StatusForbidden
	case ErrorTypeConflict:
		return http.StatusConflict
	case ErrorTypeTimeout:
		return http.StatusGatewayTimeout
	case ErrorTypeUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// generateErrorCode 根据错误类型生成错误代码
func generateErrorCode(errType ErrorType) string {
	switch errType {
	case ErrorTypeValidation:
		return "VALIDATION_ERROR"
	case ErrorTypeNotFound:
		return "NOT_FOUND"
	case ErrorTypeError:
		return "PROCESSING_ERROR"
	case ErrorTypeUnauthorized:
		return "UNAUTHORIZED"
	case ErrorTypeForbidden:
		return "FORBIDDEN"
	case ErrorTypeConflict:
		return "CONFLICT"
	case ErrorTypeTimeout:
		return "TIMEOUT"
	case ErrorTypeUpstream:
		return "UPSTREAM_ERROR"
	case ErrorTypeUnsupportedPlatform:
		return "UNSUPPORTED_PLATFORM"
	default:
		return "UNKNOWN_ERROR"
	}
}

func defaultMessageKey(errType ErrorType) string {
	switch errType {
	case ErrorTypeValidation:
		return "error.validation"
	case ErrorTypeNotFound:
		return "error.not_found"
	case ErrorTypeUnauthorized:
		return "error.unauthorized"
	case ErrorTypeForbidden:
		return "error.forbidden"
	case ErrorTypeConflict:
		return "error.conflict"
	case ErrorTypeTimeout:
		return "error.timeout"
	case ErrorTypeUpstream:
		return "error.upstream"
	case ErrorTypeUnsupportedPlatform:
		return "error.unsupported_platform"
	default:
		return "error.internal"
	}
}

// WrapError 包装现有错误
func WrapError(err error, message string, errType ErrorType) error {
	if err == nil {
		return nil
	}

	var appError *AppError
	if errors.As(err, &appError) {
		// 如果已经是 AppError，只更新消息
		return &AppError{
			Type:       appError.Type,
			Message:    fmt.Sprintf("%s: %s", message, appError.Message),
			Err:        appError,
			Code:       appError.Code,
			MessageKey: appError.MessageKey,
		}
	}

	return NewAppError(errType, message, err)
}
