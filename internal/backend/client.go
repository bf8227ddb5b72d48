// internal/backend/client.go
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"

	"github.com/prisken/content-sub000/internal/errors"
	"github.com/prisken/content-sub000/internal/models"
	"github.com/prisken/content-sub000/internal/utils"
)

const maxResponseBytes = 4 << 20

// Client 外部内容后端的 HTTP 客户端。所有响应都是
// {success, error?, data|...} 信封；success:false 与非 2xx 同等处理。
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *utils.Logger
	newBackOff func() backoff.BackOff
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 500 * time.Millisecond
	b.MaxElapsedTime = 2 * time.Second
	return b
}

// NewClient 创建客户端；baseURL 为空时 Enabled 返回 false
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     utils.GetLogger(),
		newBackOff: defaultBackOff,
	}
}

// Enabled 是否配置了后端地址
func (c *Client) Enabled() bool {
	return c != nil && c.baseURL != ""
}

type tokenKey struct{}

// WithToken 让本次调用携带用户的 Bearer token
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func tokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// envelope 通用响应信封
type envelope struct {
	Success *bool           `json:"success"`
	Error   string          `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// response 一次调用的原始结果
type response struct {
	status int
	body   []byte
}

func (c *Client) do(ctx context.Context, method, path string, payload interface{}) (*response, error) {
	if !c.Enabled() {
		return nil, errors.NewUpstreamError("backend not configured", nil)
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.NewProcessingError("encode backend request", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, errors.NewProcessingError("build backend request", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	if token := tokenFrom(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if stderrors.Is(err, context.Canceled) {
			return nil, err
		}
		if stderrors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, errors.NewTimeoutError(fmt.Sprintf("backend %s %s timed out", method, path), err)
		}
		return nil, errors.NewUpstreamError(fmt.Sprintf("backend %s %s failed", method, path), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, errors.NewUpstreamError("read backend response", err)
	}

	c.logger.Debug("backend call", map[string]interface{}{
		"method":   method,
		"path":     path,
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
	})
	return &response{status: resp.StatusCode, body: raw}, nil
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return stderrors.As(err, &te) && te.Timeout()
}

// decode 检查状态码与 success 字段，把完整 body 解到 out
func decode(path string, resp *response, out interface{}) error {
	var env envelope
	_ = json.Unmarshal(resp.body, &env)

	msg := env.Error
	if msg == "" {
		msg = env.Message
	}

	switch {
	case resp.status == http.StatusUnauthorized:
		return errors.NewUnauthorizedError(fmt.Sprintf("backend %s: %s", path, orDefault(msg, "unauthorized")), nil)
	case resp.status < 200 || resp.status > 299:
		return errors.NewUpstreamError(
			fmt.Sprintf("backend %s returned %d: %s", path, resp.status, orDefault(msg, http.StatusText(resp.status))), nil)
	case env.Success != nil && !*env.Success:
		return errors.NewUpstreamError(fmt.Sprintf("backend %s: %s", path, orDefault(msg, "request unsuccessful")), nil)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return errors.NewUpstreamError(fmt.Sprintf("backend %s: malformed response", path), err)
	}
	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func (c *Client) call(ctx context.Context, method, path string, payload, out interface{}) error {
	resp, err := c.do(ctx, method, path, payload)
	if err != nil {
		return err
	}
	return decode(path, resp, out)
}

// callIdempotent 与 call 相同，但对网络错误和 502/503/504 做指数退避重试。
// 只用于重复执行无副作用的接口
func (c *Client) callIdempotent(ctx context.Context, method, path string, payload, out interface{}) error {
	if !c.Enabled() {
		return errors.NewUpstreamError("backend not configured", nil)
	}

	attempt := 0
	op := func() error {
		attempt++
		resp, err := c.do(ctx, method, path, payload)
		if err != nil {
			if errors.IsUpstreamError(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		err = decode(path, resp, out)
		switch resp.status {
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Warn("backend call retry", map[string]interface{}{
			"path":    path,
			"attempt": attempt,
			"wait":    wait.String(),
			"error":   err.Error(),
		})
	}
	return backoff.RetryNotify(op, backoff.WithContext(c.newBackOff(), ctx), notify)
}

// Translate POST /api/translate
func (c *Client) Translate(ctx context.Context, content, targetLang, sourceLang string) (string, error) {
	req := map[string]string{"content": content, "target_lang": targetLang}
	if sourceLang != "" {
		req["source_lang"] = sourceLang
	}

	var out struct {
		TranslatedContent string `json:"translated_content"`
		Data              struct {
			TranslatedContent string `json:"translated_content"`
		} `json:"data"`
	}
	if err := c.callIdempotent(ctx, http.MethodPost, "/api/translate", req, &out); err != nil {
		return "", err
	}

	text := out.TranslatedContent
	if text == "" {
		text = out.Data.TranslatedContent
	}
	if text == "" {
		return "", errors.NewUpstreamError("backend /api/translate: empty translation", nil)
	}
	return text, nil
}

// GenerateRequest /api/generate 的请求体
type GenerateRequest struct {
	Direction      models.Direction  `json:"direction"`
	Platform       models.Platform   `json:"platform"`
	PostType       models.PostType   `json:"postType"`
	Source         models.Source     `json:"source"`
	SourceDetails  string            `json:"sourceDetails"`
	SelectedTopic  string            `json:"selectedTopic"`
	Tone           models.Tone       `json:"tone"`
	Language       models.Language   `json:"language"`
	ImageStyle     models.ImageStyle `json:"imageStyle"`
	GenerateImages bool              `json:"generate_images"`
}

// NewGenerateRequest 由向导选择构造请求
func NewGenerateRequest(sel models.WizardSelection, images bool) GenerateRequest {
	return GenerateRequest{
		Direction:      sel.Direction,
		Platform:       sel.Platform,
		PostType:       sel.PostType,
		Source:         sel.Source,
		SourceDetails:  sel.SourceDetails,
		SelectedTopic:  sel.SelectedTopic,
		Tone:           sel.Tone,
		Language:       sel.Language,
		ImageStyle:     sel.ImageStyle,
		GenerateImages: images,
	}
}

// GenerateResult 后端生成结果
type GenerateResult struct {
	Text      string                 `json:"text"`
	Hashtags  []string               `json:"hashtags,omitempty"`
	Images    []models.ImageRef      `json:"images,omitempty"`
	Analytics map[string]interface{} `json:"analytics,omitempty"`
}

// Generate POST /api/generate
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	var out struct {
		Data struct {
			Content struct {
				Text     string   `json:"text"`
				Hashtags []string `json:"hashtags"`
			} `json:"content"`
			Images    []models.ImageRef      `json:"images"`
			Analytics map[string]interface{} `json:"analytics"`
		} `json:"data"`
	}
	if err := c.call(ctx, http.MethodPost, "/api/generate", req, &out); err != nil {
		return nil, err
	}
	if out.Data.Content.Text == "" {
		return nil, errors.NewUpstreamError("backend /api/generate: empty content", nil)
	}
	return &GenerateResult{
		Text:      out.Data.Content.Text,
		Hashtags:  out.Data.Content.Hashtags,
		Images:    out.Data.Images,
		Analytics: out.Data.Analytics,
	}, nil
}

// GenerateTopics POST /api/topics/generate
func (c *Client) GenerateTopics(ctx context.Context, direction models.Direction, source models.Source, details string) ([]models.Topic, error) {
	req := map[string]string{
		"direction":     string(direction),
		"source":        string(source),
		"sourceDetails": details,
	}
	var out struct {
		Topics []models.Topic `json:"topics"`
		Data   struct {
			Topics []models.Topic `json:"topics"`
		} `json:"data"`
	}
	if err := c.callIdempotent(ctx, http.MethodPost, "/api/topics/generate", req, &out); err != nil {
		return nil, err
	}
	if len(out.Topics) > 0 {
		return out.Topics, nil
	}
	return out.Data.Topics, nil
}

// RemoteUser 后端返回的用户；id 可能是数字也可能是字符串
type RemoteUser struct {
	ID                flexID `json:"id"`
	Email             string `json:"email"`
	Name              string `json:"name"`
	Role              string `json:"role,omitempty"`
	PreferredLanguage string `json:"preferred_language,omitempty"`
}

type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

func (f flexID) String() string { return string(f) }

// AuthResult 登录/注册结果；Token 在 {user} 形态下为空
type AuthResult struct {
	Token string
	User  RemoteUser
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Email             string `json:"email"`
	Name              string `json:"name"`
	Password          string `json:"password"`
	PreferredLanguage string `json:"preferred_language,omitempty"`
}

// Login 先请求 /api/auth/login，404 时回退到 /auth/login
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	req := map[string]string{"email": email, "password": password}
	return c.authCall(ctx, []string{"/api/auth/login", "/auth/login"}, req)
}

// Register 先请求 /api/auth/register，404 时回退到 /auth/register
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	return c.authCall(ctx, []string{"/api/auth/register", "/auth/register"}, req)
}

func (c *Client) authCall(ctx context.Context, paths []string, payload interface{}) (*AuthResult, error) {
	var (
		resp *response
		path string
		err  error
	)
	for _, path = range paths {
		resp, err = c.do(ctx, http.MethodPost, path, payload)
		if err != nil {
			return nil, err
		}
		if resp.status != http.StatusNotFound {
			break
		}
	}

	// 兼容 {data:{token,user}} 与 {user} 两种形态
	var out struct {
		Token string      `json:"token"`
		User  *RemoteUser `json:"user"`
		Data  struct {
			Token string      `json:"token"`
			User  *RemoteUser `json:"user"`
		} `json:"data"`
	}
	if err := decode(path, resp, &out); err != nil {
		return nil, err
	}

	result := &AuthResult{Token: out.Data.Token}
	if result.Token == "" {
		result.Token = out.Token
	}
	switch {
	case out.Data.User != nil:
		result.User = *out.Data.User
	case out.User != nil:
		result.User = *out.User
	default:
		return nil, errors.NewUpstreamError(fmt.Sprintf("backend %s: response has no user", path), nil)
	}
	return result, nil
}

// SetLanguage GET /language/{lang}
func (c *Client) SetLanguage(ctx context.Context, lang models.Language) error {
	return c.callIdempotent(ctx, http.MethodGet, "/language/"+string(lang), nil, nil)
}

