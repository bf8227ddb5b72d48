// internal/api/handlers.go
package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/prisken/content-sub000/internal/backend"
	"github.com/prisken/content-sub000/internal/di"
	"github.com/prisken/content-sub000/internal/errors"
	"github.com/prisken/content-sub000/internal/generator"
	"github.com/prisken/content-sub000/internal/i18n"
	"github.com/prisken/content-sub000/internal/models"
	"github.com/prisken/content-sub000/internal/services"
	"github.com/prisken/content-sub000/internal/translator"
	"github.com/prisken/content-sub000/internal/utils"
)

// Handler 处理API请求
type Handler struct {
	// 核心服务
	Wizard     *services.WizardService  // 向导会话与生成
	Topics     *services.TopicService   // 选题候选
	Library    *services.LibraryService // 内容库
	Users      *services.UserService    // 用户
	Auth       *services.AuthService    // 认证
	Stats      *services.StatsService   // 统计
	Settings   *services.ConfigService  // 运行时配置
	Translator *translator.Service      // 翻译
	Backend    *backend.Client          // 外部后端
	Catalog    *i18n.Catalog            // 词典

	Response *ResponseHelper // 响应助手
	Limiter  *RateLimiter    // 生成类接口限流

	hub       *WebSocketHub
	startedAt time.Time
	logger    *utils.Logger
}

// NewHandler 从容器取出服务创建处理器
func NewHandler(c *di.Container) *Handler {
	return &Handler{
		Wizard:     c.Wizard,
		Topics:     c.Topics,
		Library:    c.Library,
		Users:      c.Users,
		Auth:       c.Auth,
		Stats:      c.Stats,
		Settings:   c.Settings,
		Translator: c.Translator,
		Backend:    c.Backend,
		Catalog:    c.Catalog,
		Response:   NewResponseHelper(c.Catalog),
		Limiter:    NewRateLimiter(),
		hub:        NewWebSocketHub(c.Config.CORSOrigins, c.Metrics),
		startedAt:  time.Now(),
		logger:     utils.GetLogger(),
	}
}

// Close 断开所有 WebSocket 连接
func (h *Handler) Close() {
	h.hub.Close()
}

// pageQuery 解析 page / per_page 查询参数
func pageQuery(c *gin.Context) services.PageQuery {
	page, _ := strconv.Atoi(c.Query("page"))
	perPage, _ := strconv.Atoi(c.Query("per_page"))
	return services.PageQuery{Page: page, PerPage: perPage}
}

// remoteContext 后端认证模式下把远端令牌带给外部后端
func (h *Handler) remoteContext(c *gin.Context) context.Context {
	ctx := c.Request.Context()
	if user, ok := CurrentUser(c); ok {
		if token := h.Auth.RemoteToken(user.ID); token != "" {
			ctx = backend.WithToken(ctx, token)
		}
	}
	return ctx
}

// dropRemoteOnUnauthorized 远端判定会话失效时清掉缓存的远端令牌
func (h *Handler) dropRemoteOnUnauthorized(c *gin.Context, err error) {
	if !errors.IsUnauthorizedError(err) {
		return
	}
	if user, ok := CurrentUser(c); ok {
		h.Auth.ForgetRemoteToken(user.ID)
	}
}

// Health 存活检查
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"uptime_seconds":  int(time.Since(h.startedAt).Seconds()),
		"active_sessions": h.Wizard.ActiveSessions(),
		"ws_clients":      h.hub.ClientCount(),
		"backend":         h.Backend.Enabled(),
	})
}

// GetDictionary 返回某语言的完整词典
func (h *Handler) GetDictionary(c *gin.Context) {
	lang := models.NormalizeLanguage(c.Param("lang"))
	h.Response.Success(c, gin.H{
		"language":   lang,
		"dictionary": h.Catalog.Dictionary(string(lang)),
	})
}

// SetLanguage 切换界面语言：写 cookie，已登录时同步到用户资料和外部后端
func (h *Handler) SetLanguage(c *gin.Context) {
	raw := strings.ToLower(strings.TrimSpace(c.Param("lang")))
	lang := models.Language(raw)
	if !lang.Valid() {
		h.Response.BadRequest(c, "unsupported language "+strconv.Quote(raw))
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(languageCookie, string(lang), int((365 * 24 * time.Hour).Seconds()), "/", "", false, false)

	if user, ok := CurrentUser(c); ok {
		if err := h.Users.SetPreferredLanguage(user.ID, lang); err != nil {
			h.Response.Fail(c, err)
			return
		}
		if h.Backend.Enabled() {
			if err := h.Backend.SetLanguage(h.remoteContext(c), lang); err != nil {
				h.dropRemoteOnUnauthorized(c, err)
				// 外部后端不可用不影响本地切换
				h.logger.Warn("同步语言到后端失败", map[string]interface{}{"user_id": user.ID, "error": err})
			}
		}
	}

	c.Set(ctxLanguageKey, string(lang))
	h.Response.Success(c, gin.H{"language": lang}, "language.switched")
}

type catalogOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type catalogDirection struct {
	catalogOption
	Focus    string   `json:"focus"`
	Keywords []string `json:"keywords"`
}

type catalogPlatform struct {
	catalogOption
	PostTypes []catalogOption `json:"post_types"`
	Limit     *int            `json:"limit"`
}

// GetCatalog 向导所需的全部选项，标签按请求语言本地化
func (h *Handler) GetCatalog(c *gin.Context) {
	loc := h.Response.Localizer(c)
	option := func(prefix, id string) catalogOption {
		return catalogOption{ID: id, Label: loc.T(prefix + "." + id)}
	}

	directions := make([]catalogDirection, 0, len(models.Directions()))
	for _, d := range models.Directions() {
		dc, _ := generator.ContentFor(d)
		directions = append(directions, catalogDirection{
			catalogOption: option("direction", string(d)),
			Focus:         dc.Focus,
			Keywords:      dc.Keywords,
		})
	}

	platforms := make([]catalogPlatform, 0, len(models.Platforms()))
	for _, p := range models.Platforms() {
		entry := catalogPlatform{catalogOption: option("platform", string(p))}
		for _, pt := range models.PostTypesFor(p) {
			entry.PostTypes = append(entry.PostTypes, option("post_type", string(pt)))
		}
		if limit, ok := generator.Limit(p); ok {
			entry.Limit = &limit
		}
		platforms = append(platforms, entry)
	}

	sources := make([]catalogOption, 0, len(models.Sources()))
	for _, s := range models.Sources() {
		sources = append(sources, option("source", string(s)))
	}
	tones := make([]catalogOption, 0, len(models.Tones()))
	for _, t := range models.Tones() {
		tones = append(tones, option("tone", string(t)))
	}
	styles := make([]catalogOption, 0, len(models.ImageStyles()))
	for _, s := range models.ImageStyles() {
		styles = append(styles, option("image_style", string(s)))
	}

	h.Response.Success(c, gin.H{
		"language":     loc.Lang(),
		"directions":   directions,
		"platforms":    platforms,
		"sources":      sources,
		"tones":        tones,
		"image_styles": styles,
		"languages":    []models.Language{models.LanguageEN, models.LanguageZH},
	})
}

// PreviewContent 无状态的本地生成 + 字数分类
func (h *Handler) PreviewContent(c *gin.Context) {
	var sel models.WizardSelection
	if err := c.ShouldBindJSON(&sel); err != nil {
		h.Response.BadRequest(c, "invalid selection")
		return
	}
	if sel.Language == "" {
		sel.Language = models.Language(c.GetString(ctxLanguageKey))
	}

	outcome, err := h.Wizard.Preview(c.Request.Context(), sel)
	if err != nil {
		h.Response.Fail(c, err)
		return
	}
	h.Response.Success(c, outcome, "generate.success")
}

// TranslateRequest 翻译请求；target_language/source_language 为旧字段名，仍然接受
type TranslateRequest struct {
	Content    string `json:"content"`
	TargetLang string `json:"target_lang,omitempty"`
	SourceLang string `json:"source_lang,omitempty"`

	TargetLanguage string `json:"target_language,omitempty"`
	SourceLanguage string `json:"source_language,omitempty"`
}

func (r TranslateRequest) target() string {
	return firstNonEmpty(r.TargetLang, r.TargetLanguage)
}

func (r TranslateRequest) source() string {
	return firstNonEmpty(r.SourceLang, r.SourceLanguage)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// translateResponse 标准响应之外在顶层带上 translated_content
type translateResponse struct {
	*APIResponse
	TranslatedContent string `json:"translated_content"`
}

// Translate 翻译任意文本；远程不可用时使用离线替换并标记 fallback
func (h *Handler) Translate(c *gin.Context) {
	var req TranslateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Content == "" || req.target() == "" {
		h.Response.BadRequest(c, "content and target_lang are required")
		return
	}

	var source models.Language
	if raw := req.source(); raw != "" {
		source = models.NormalizeLanguage(raw)
	}
	res := h.Translator.Translate(h.remoteContext(c), req.Content, models.NormalizeLanguage(req.target()), source)
	h.Stats.RecordTranslation(res.Path, res.Fallback)

	messageKey := "translate.success"
	if res.Fallback {
		messageKey = "translate.fallback"
	}
	c.JSON(http.StatusOK, translateResponse{
		APIResponse:       h.Response.envelope(c, res, messageKey),
		TranslatedContent: res.Content,
	})
}

// TopicsRequest 选题请求
type TopicsRequest struct {
	Direction     models.Direction `json:"direction" binding:"required"`
	Source        models.Source    `json:"source" binding:"required"`
	SourceDetails string           `json:"sourceDetails,omitempty"`
}

// GenerateTopics 生成候选选题
func (h *Handler) GenerateTopics(c *gin.Context) {
	var req TopicsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "direction and source are required")
		return
	}

	res, err := h.Topics.Generate(h.remoteContext(c), services.TopicRequest{
		Direction:     req.Direction,
		Source:        req.Source,
		SourceDetails: req.SourceDetails,
	})
	if err != nil {
		h.dropRemoteOnUnauthorized(c, err)
		h.Response.Fail(c, err)
		return
	}
	h.Response.Success(c, res)
}

// GetDashboardStats 当前用户的内容库汇总；管理员额外看到全局用量
func (h *Handler) GetDashboardStats(c *gin.Context) {
	user, _ := CurrentUser(c)
	summary, err := h.Library.Summary(user.ID)
	if err != nil {
		h.Response.Fail(c, err)
		return
	}

	data := gin.H{"library": summary}
	if user.IsAdmin() {
		total, err := h.Library.CountAll()
		if err != nil {
			h.Response.Fail(c, err)
			return
		}
		data["usage"] = h.Stats.GetStats()
		data["total_posts"] = total
		data["active_sessions"] = h.Wizard.ActiveSessions()
	}
	h.Response.Success(c, data)
}
