package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/prisken/content-sub000/internal/config"
	"github.com/prisken/content-sub000/internal/di"
	"github.com/prisken/content-sub000/internal/services"
)

const (
	testAdminEmail    = "admin@example.com"
	testAdminPassword = "admin-pass-123"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// testEnv 一套完整的路由和服务，数据写在临时目录
type testEnv struct {
	t         *testing.T
	router    *gin.Engine
	handler   *Handler
	container *di.Container
}

type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     *APIError       `json:"error"`
	Message   string          `json:"message"`
	RequestID string          `json:"request_id"`
}

func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	return &config.AppConfig{
		Port:               "0",
		DataDir:            t.TempDir(),
		LogDir:             t.TempDir(),
		BackendTimeout:     time.Second,
		AuthMode:           config.AuthModeLocal,
		AuthSecret:         "unit-test-secret-0123456789abcdef",
		TokenTTL:           time.Hour,
		AdminEmail:         testAdminEmail,
		AdminPassword:      testAdminPassword,
		Translator:         config.TranslatorFallback,
		DefaultLanguage:    "en",
		RateLimitPerMinute: 100,
	}
}

func newTestEnv(t *testing.T, mutate ...func(*config.AppConfig)) *testEnv {
	t.Helper()
	cfg := testConfig(t)
	for _, m := range mutate {
		m(cfg)
	}

	container, err := di.New(cfg)
	require.NoError(t, err)
	require.NoError(t, container.Users.EnsureAdmin(cfg.AdminEmail, cfg.AdminPassword))

	handler := NewHandler(container)
	t.Cleanup(func() {
		handler.Close()
		container.Close()
	})

	return &testEnv{
		t:         t,
		router:    SetupRouter(handler, cfg, container.Metrics),
		handler:   handler,
		container: container,
	}
}

// do 发送请求；body 为 nil 时不带请求体，否则编码为 JSON
func (e *testEnv) do(method, path string, body interface{}, token string, headers ...string) *httptest.ResponseRecorder {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// decode 解析统一响应，data 写入 out（可为 nil）
func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if out != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, out))
	}
	return env
}

// register 注册一个普通用户并返回令牌和用户ID
func (e *testEnv) register(email string) (string, string) {
	e.t.Helper()
	w := e.do(http.MethodPost, "/api/auth/register", map[string]string{
		"email":    email,
		"name":     "Test User",
		"password": "password-123",
	}, "")
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())

	var session services.Session
	decode(e.t, w, &session)
	require.NotEmpty(e.t, session.Token)
	return session.Token, session.User.ID
}

func (e *testEnv) loginAdmin() (string, string) {
	e.t.Helper()
	w := e.do(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    testAdminEmail,
		"password": testAdminPassword,
	}, "")
	require.Equal(e.t, http.StatusOK, w.Code, w.Body.String())

	var session services.Session
	decode(e.t, w, &session)
	return session.Token, session.User.ID
}

// tr 按语言取词典文本，断言不依赖具体文案
func (e *testEnv) tr(lang, key string) string {
	return e.container.Catalog.Localizer(lang).T(key)
}

func completeWizardFields() map[string]string {
	return map[string]string{
		"direction":     "technology",
		"platform":      "twitter",
		"postType":      "tweets",
		"source":        "news",
		"selectedTopic": "AI at work",
		"tone":          "professional",
	}
}
