package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prisken/content-sub000/internal/i18n"
	"github.com/prisken/content-sub000/internal/models"
)

func TestParseAcceptLanguage(t *testing.T) {
	cases := []struct {
		header string
		want   models.Language
		ok     bool
	}{
		{"zh-CN,zh;q=0.9,en;q=0.8", models.LanguageZH, true},
		{"en-US,en;q=0.9", models.LanguageEN, true},
		{"fr-FR, de;q=0.8, zh-TW;q=0.5", models.LanguageZH, true},
		{"fr, de", "", false},
		{"", "", false},
		{"*", "", false},
	}
	for _, tc := range cases {
		got, ok := parseAcceptLanguage(tc.header)
		assert.Equal(t, tc.ok, ok, tc.header)
		assert.Equal(t, tc.want, got, tc.header)
	}
}

func TestRateLimiterWindow(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter()
	rl.now = func() time.Time { return now }

	ok, v := rl.Allow("user:1", 2, time.Minute)
	assert.True(t, ok)
	assert.Equal(t, 1, v.Remaining)
	ok, v = rl.Allow("user:1", 2, time.Minute)
	assert.True(t, ok)
	assert.Equal(t, 0, v.Remaining)
	ok, _ = rl.Allow("user:1", 2, time.Minute)
	assert.False(t, ok)

	// 其他调用方不受影响
	ok, _ = rl.Allow("user:2", 2, time.Minute)
	assert.True(t, ok)

	// 一个窗口后额度补满
	now = now.Add(time.Minute + time.Second)
	ok, v = rl.Allow("user:1", 2, time.Minute)
	assert.True(t, ok)
	assert.Equal(t, 1, v.Remaining)

	// user:2 的令牌桶已补满，user:1 刚消耗过一次
	assert.Equal(t, 1, rl.Sweep())
	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, rl.Sweep())
	assert.Equal(t, 0, rl.Sweep())
}

func TestRateLimitMiddlewareDisabled(t *testing.T) {
	rh := NewResponseHelper(i18n.MustLoad())
	r := gin.New()
	r.GET("/x", RateLimitMiddleware(NewRateLimiter(), rh, 0, time.Minute, func(*gin.Context) string { return "k" }),
		func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		require.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(ctxRequestIDKey)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	generated := w.Body.String()
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Header().Get(requestIDHeader))

	// 过长的ID不沿用
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(requestIDHeader, strings.Repeat("a", 65))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Len(t, w.Body.String(), 36)
}

func TestSanitizeErrorMessage(t *testing.T) {
	assert.Equal(t, "invalid email", sanitizeErrorMessage("invalid email"))
	assert.Empty(t, sanitizeErrorMessage("bad API_KEY value"))
	assert.Empty(t, sanitizeErrorMessage("open /var/data/users/x.json: denied"))
	assert.Empty(t, sanitizeErrorMessage("token expired"))
}

func TestCORSConfig(t *testing.T) {
	open := corsConfig(nil)
	assert.True(t, open.AllowAllOrigins)
	assert.False(t, open.AllowCredentials)

	wildcard := corsConfig([]string{"https://app.example.com", "*"})
	assert.True(t, wildcard.AllowAllOrigins)

	strict := corsConfig([]string{"https://app.example.com"})
	assert.False(t, strict.AllowAllOrigins)
	assert.True(t, strict.AllowCredentials)
	assert.Equal(t, []string{"https://app.example.com"}, strict.AllowOrigins)
	assert.True(t, strict.AllowWebSockets)
}
