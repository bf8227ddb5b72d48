// internal/api/middleware.go
package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/prisken/content-sub000/internal/models"
	"github.com/prisken/content-sub000/internal/utils"
)

const (
	ctxRequestIDKey = "request_id"
	ctxLanguageKey  = "language"
	ctxUserKey      = "user"

	requestIDHeader = "X-Request-ID"
	languageCookie  = "lang"
)

// RequestIDMiddleware 为每个请求分配ID；客户端传入的ID原样沿用
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(ctxRequestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// AccessLogMiddleware 结构化访问日志 + 请求耗时指标
func AccessLogMiddleware(metrics *utils.MetricsCollector) gin.HandlerFunc {
	logger := utils.GetLogger()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		elapsed := time.Since(start)
		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.ObserveRequest(c.Request.Method, route, strconv.Itoa(status), elapsed)

		fields := map[string]interface{}{
			"request_id": c.GetString(ctxRequestIDKey),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     status,
			"latency_ms": elapsed.Milliseconds(),
			"client_ip":  c.ClientIP(),
		}
		if status >= http.StatusInternalServerError {
			logger.Warn("HTTP请求", fields)
		} else {
			logger.Debug("HTTP请求", fields)
		}
	}
}

// LanguageMiddleware 按 cookie、Accept-Language、默认语言的顺序决定响应语言；
// 已登录用户的偏好语言由认证中间件覆盖
func LanguageMiddleware(defaultLang string) gin.HandlerFunc {
	fallback := models.NormalizeLanguage(defaultLang)
	return func(c *gin.Context) {
		lang := fallback
		if cookie, err := c.Cookie(languageCookie); err == nil && models.Language(cookie).Valid() {
			lang = models.Language(cookie)
		} else if accepted, ok := parseAcceptLanguage(c.GetHeader("Accept-Language")); ok {
			lang = accepted
		}
		c.Set(ctxLanguageKey, string(lang))
		c.Next()
	}
}

// parseAcceptLanguage 取第一个受支持的语言；不看 q 值，浏览器已按偏好排序
func parseAcceptLanguage(header string) (models.Language, bool) {
	for _, part := range strings.Split(header, ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if len(tag) < 2 {
			continue
		}
		if lang := models.Language(strings.ToLower(tag[:2])); lang.Valid() {
			return lang, true
		}
	}
	return "", false
}

// RateLimiter 按调用方维护令牌桶，桶容量为 limit，每个 window 补满
type RateLimiter struct {
	visitors map[string]*visitorEntry
	mu       sync.Mutex
	now      func() time.Time
}

type visitorEntry struct {
	limiter *rate.Limiter
	burst   int
}

// Visitor 单个调用方的额度快照，用于响应头
type Visitor struct {
	Limit     int
	Remaining int
	Reset     time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitorEntry),
		now:      time.Now,
	}
}

// Allow 检查并消耗一次额度，返回是否放行以及当前额度
func (rl *RateLimiter) Allow(key string, limit int, window time.Duration) (bool, Visitor) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	entry, exists := rl.visitors[key]
	if !exists || entry.burst != limit {
		entry = &visitorEntry{
			limiter: rate.NewLimiter(rate.Every(window/time.Duration(limit)), limit),
			burst:   limit,
		}
		rl.visitors[key] = entry
	}

	allowed := entry.limiter.AllowN(now, 1)
	tokens := entry.limiter.TokensAt(now)
	missing := float64(limit) - tokens
	reset := now
	if missing > 0 {
		reset = now.Add(time.Duration(missing / float64(entry.limiter.Limit()) * float64(time.Second)))
	}
	return allowed, Visitor{Limit: limit, Remaining: int(tokens), Reset: reset}
}

// Sweep 删除令牌桶已补满的记录，由后台维护任务定期调用
func (rl *RateLimiter) Sweep() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	removed := 0
	for key, entry := range rl.visitors {
		if entry.limiter.TokensAt(now) >= float64(entry.burst) {
			delete(rl.visitors, key)
			removed++
		}
	}
	return removed
}

// RateLimitMiddleware 超出额度返回 429；limit <= 0 时不限流
func RateLimitMiddleware(rl *RateLimiter, rh *ResponseHelper, limit int, window time.Duration, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit <= 0 {
			c.Next()
			return
		}

		allowed, v := rl.Allow(keyFunc(c), limit, window)
		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", v.Limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", v.Remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", v.Reset.Unix()))

		if !allowed {
			rh.Error(c, http.StatusTooManyRequests, ErrorRateLimited, "error.rate_limited")
			return
		}
		c.Next()
	}
}

// RateLimitByUser 按登录用户限流，未登录时退回客户端IP
func RateLimitByUser(rl *RateLimiter, rh *ResponseHelper, limit int, window time.Duration) gin.HandlerFunc {
	return RateLimitMiddleware(rl, rh, limit, window, func(c *gin.Context) string {
		if user, ok := CurrentUser(c); ok {
			return "user:" + user.ID
		}
		return "ip:" + c.ClientIP()
	})
}
