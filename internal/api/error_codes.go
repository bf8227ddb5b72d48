// internal/api/error_codes.go
package api

// API层自己产生的错误代码；业务错误的代码来自 errors.AppError.Code
const (
	// 通用错误
	ErrorBadRequest   = "BAD_REQUEST"
	ErrorNotFound     = "NOT_FOUND"
	ErrorUnauthorized = "UNAUTHORIZED"
	ErrorForbidden    = "FORBIDDEN"
	ErrorInternal     = "INTERNAL_ERROR"

	// 限流
	ErrorRateLimited = "RATE_LIMIT_EXCEEDED"
)
