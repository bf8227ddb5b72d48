// internal/services/wizard_service.go
package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prisken/content-sub000/internal/backend"
	"github.com/prisken/content-sub000/internal/errors"
	"github.com/prisken/content-sub000/internal/generator"
	"github.com/prisken/content-sub000/internal/models"
	"github.com/prisken/content-sub000/internal/translator"
	"github.com/prisken/content-sub000/internal/utils"
	"github.com/prisken/content-sub000/internal/wizard"
)

// GenerateMode 生成方式
type GenerateMode string

const (
	// ModeLocal 旧版页面：本地模板生成
	ModeLocal GenerateMode = "local"
	// ModeBackend React 版：交给外部后端 /api/generate
	ModeBackend GenerateMode = "backend"
)

// DefaultMaxSessionsPerUser 每个用户最多保留的会话数，超出时淘汰最久未使用的
const DefaultMaxSessionsPerUser = 20

// ContentBackend 外部内容生成接口，backend.Client 满足
type ContentBackend interface {
	Enabled() bool
	Generate(ctx context.Context, req backend.GenerateRequest) (*backend.GenerateResult, error)
}

// GenerateOptions 一次生成请求的参数
type GenerateOptions struct {
	Mode           GenerateMode
	GenerateImages bool
	// RemoteToken 后端认证模式下转发给外部后端的令牌
	RemoteToken string
}

// SessionView 会话对外视图
type SessionView struct {
	wizard.Snapshot
	Content    *models.GeneratedContent `json:"content,omitempty"`
	Length     *models.LengthReport     `json:"length,omitempty"`
	Generating bool                     `json:"generating"`
	UpdatedAt  time.Time                `json:"updated_at"`
}

// GenerateOutcome 生成成功后的结果
type GenerateOutcome struct {
	SessionID           string                  `json:"session_id"`
	Content             models.GeneratedContent `json:"content"`
	Length              models.LengthReport     `json:"length"`
	TranslationFallback bool                    `json:"translation_fallback"`
}

type wizardEntry struct {
	mu         sync.Mutex
	owner      string
	session    *wizard.Session
	content    *models.GeneratedContent
	generation uint64
	cancel     context.CancelFunc
	updatedAt  time.Time
}

// WizardService 管理所有向导会话以及生成任务
type WizardService struct {
	mu       sync.RWMutex
	sessions map[string]*wizardEntry

	backend    ContentBackend
	translator *translator.Service
	progress   *ProgressService
	stats      *StatsService
	metrics    *utils.MetricsCollector
	logger     *utils.Logger

	maxPerUser int
	now        func() time.Time
}

// NewWizardService 创建向导服务；backend 可以为 nil
func NewWizardService(cb ContentBackend, tr *translator.Service, progress *ProgressService, stats *StatsService) *WizardService {
	if tr == nil {
		tr = translator.NewService(nil, 0)
	}
	if progress == nil {
		progress = NewProgressService()
	}
	return &WizardService{
		sessions:   make(map[string]*wizardEntry),
		backend:    cb,
		translator: tr,
		progress:   progress,
		stats:      stats,
		metrics:    utils.GetMetricsCollector(),
		logger:     utils.GetLogger(),
		maxPerUser: DefaultMaxSessionsPerUser,
		now:        time.Now,
	}
}

// Progress 返回进度服务（websocket 订阅用）
func (s *WizardService) Progress() *ProgressService {
	return s.progress
}

// CreateSession 为用户新建一个会话
func (s *WizardService) CreateSession(userID, flowName string, lang models.Language) (SessionView, error) {
	flow, err := wizard.ParseFlow(flowName)
	if err != nil {
		return SessionView{}, err
	}

	entry := &wizardEntry{
		owner:     userID,
		session:   wizard.NewSession(uuid.NewString(), flow, lang),
		updatedAt: s.now(),
	}

	s.mu.Lock()
	s.sessions[entry.session.ID] = entry
	evicted := s.evictLocked(userID, entry.session.ID)
	count := len(s.sessions)
	s.mu.Unlock()

	for _, old := range evicted {
		s.dispose(old)
	}
	s.metrics.SetActiveSessions(count)

	s.logger.Debug("创建向导会话", map[string]interface{}{
		"session_id": entry.session.ID,
		"user_id":    userID,
		"flow":       flow,
	})

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.viewLocked(), nil
}

// evictLocked 超过每用户上限时淘汰最久未使用的会话（keepID 除外），调用方持有 s.mu
func (s *WizardService) evictLocked(userID, keepID string) []*wizardEntry {
	var owned []*wizardEntry
	for id, e := range s.sessions {
		if e.owner == userID && id != keepID {
			owned = append(owned, e)
		}
	}
	keep := s.maxPerUser - 1
	if len(owned) <= keep {
		return nil
	}

	sort.Slice(owned, func(i, j int) bool {
		return owned[i].lastUsed().Before(owned[j].lastUsed())
	})
	evicted := owned[:len(owned)-keep]
	for _, e := range evicted {
		delete(s.sessions, e.session.ID)
	}
	return evicted
}

func (e *wizardEntry) lastUsed() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.updatedAt
}

// dispose 取消进行中的生成并关闭订阅
func (s *WizardService) dispose(e *wizardEntry) {
	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.generation++
	e.mu.Unlock()
	s.progress.Remove(e.session.ID)
}

// entry 查找会话并校验归属
func (s *WizardService) entry(userID, sessionID string) (*wizardEntry, error) {
	s.mu.RLock()
	e, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok || e.owner != userID {
		return nil, errors.NewNotFoundError("wizard session not found", nil)
	}
	return e, nil
}

// Authorize 确认会话属于该用户（websocket 订阅前调用）
func (s *WizardService) Authorize(userID, sessionID string) error {
	_, err := s.entry(userID, sessionID)
	return err
}

// GetSession 返回会话视图
func (s *WizardService) GetSession(userID, sessionID string) (SessionView, error) {
	e, err := s.entry(userID, sessionID)
	if err != nil {
		return SessionView{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.viewLocked(), nil
}

// ListSessions 列出用户的会话，最近使用的在前
func (s *WizardService) ListSessions(userID string) []SessionView {
	s.mu.RLock()
	var owned []*wizardEntry
	for _, e := range s.sessions {
		if e.owner == userID {
			owned = append(owned, e)
		}
	}
	s.mu.RUnlock()

	views := make([]SessionView, 0, len(owned))
	for _, e := range owned {
		e.mu.Lock()
		views = append(views, e.viewLocked())
		e.mu.Unlock()
	}
	sort.Slice(views, func(i, j int) bool {
		return views[i].UpdatedAt.After(views[j].UpdatedAt)
	})
	return views
}

// DeleteSession 删除会话，进行中的生成会被取消
func (s *WizardService) DeleteSession(userID, sessionID string) error {
	e, err := s.entry(userID, sessionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.sessions, sessionID)
	count := len(s.sessions)
	s.mu.Unlock()

	s.dispose(e)
	s.metrics.SetActiveSessions(count)
	return nil
}

// UpdateFields 批量写入字段，非法时整体不生效
func (s *WizardService) UpdateFields(userID, sessionID string, values map[wizard.Field]string) (SessionView, error) {
	return s.mutate(userID, sessionID, func(sess *wizard.Session) error {
		return sess.SetFields(values)
	})
}

// Advance 尝试前进一步
func (s *WizardService) Advance(userID, sessionID string) (wizard.AdvanceResult, SessionView, error) {
	var result wizard.AdvanceResult
	view, err := s.mutate(userID, sessionID, func(sess *wizard.Session) error {
		result = sess.Advance()
		return nil
	})
	return result, view, err
}

// Retreat 后退一步；第 1 步时不动
func (s *WizardService) Retreat(userID, sessionID string) (bool, SessionView, error) {
	var moved bool
	view, err := s.mutate(userID, sessionID, func(sess *wizard.Session) error {
		moved = sess.Retreat()
		return nil
	})
	return moved, view, err
}

// Reset 清空选择与已生成的内容，进行中的生成被取消
func (s *WizardService) Reset(userID, sessionID string) (SessionView, error) {
	e, err := s.entry(userID, sessionID)
	if err != nil {
		return SessionView{}, err
	}

	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.generation++
	gen := e.generation
	e.session.Reset()
	e.content = nil
	e.updatedAt = s.now()
	view := e.viewLocked()
	e.mu.Unlock()

	s.progress.Publish(ProgressUpdate{
		SessionID:  sessionID,
		Generation: gen,
		Status:     ProgressIdle,
	})
	return view, nil
}

func (s *WizardService) mutate(userID, sessionID string, fn func(sess *wizard.Session) error) (SessionView, error) {
	e, err := s.entry(userID, sessionID)
	if err != nil {
		return SessionView{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := fn(e.session); err != nil {
		return SessionView{}, err
	}
	e.updatedAt = s.now()
	return e.viewLocked(), nil
}

func (e *wizardEntry) viewLocked() SessionView {
	view := SessionView{
		Snapshot:   e.session.Snapshot(),
		Generating: e.cancel != nil,
		UpdatedAt:  e.updatedAt,
	}
	if e.content != nil {
		c := *e.content
		length := generator.Classify(c.Text, c.Platform)
		view.Content = &c
		view.Length = &length
	}
	return view
}

// Generate 根据当前选择生成内容。同一会话再次提交会取消上一次未完成的生成，
// 被取消或被新请求取代的结果直接丢弃，不会覆盖会话内容。
func (s *WizardService) Generate(ctx context.Context, userID, sessionID string, opts GenerateOptions) (*GenerateOutcome, error) {
	e, err := s.entry(userID, sessionID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	if !e.session.CanGenerate() {
		e.mu.Unlock()
		return nil, errors.NewValidationError("wizard selection is incomplete", nil).WithKey("wizard.incomplete")
	}
	if e.cancel != nil {
		e.cancel()
	}
	e.generation++
	gen := e.generation
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	sel := e.session.Selection()
	e.mu.Unlock()
	defer cancel()

	s.progress.Publish(ProgressUpdate{
		SessionID:  sessionID,
		Generation: gen,
		Progress:   10,
		Status:     ProgressRunning,
		MessageKey: "wizard.generating",
	})

	mode := opts.Mode
	if mode == ModeBackend && (s.backend == nil || !s.backend.Enabled()) {
		s.logger.Warn("未配置外部后端，改用本地模板生成", map[string]interface{}{"session_id": sessionID})
		mode = ModeLocal
	}

	var (
		content  models.GeneratedContent
		fallback bool
	)
	if mode == ModeBackend {
		content, err = s.generateRemote(runCtx, sel, opts)
	} else {
		content, fallback, err = s.generateLocal(runCtx, sessionID, gen, sel)
	}

	e.mu.Lock()
	superseded := e.generation != gen
	if !superseded && e.cancel != nil {
		e.cancel = nil
	}
	if err == nil && !superseded && runCtx.Err() == nil {
		content.CreatedAt = s.now()
		stored := content
		e.content = &stored
		e.updatedAt = s.now()
	}
	e.mu.Unlock()

	origin := string(models.OriginLocal)
	if mode == ModeBackend {
		origin = string(models.OriginBackend)
	}

	switch {
	case superseded || stderrors.Is(err, context.Canceled) || (err == nil && runCtx.Err() != nil):
		s.logger.Info("生成已取消", map[string]interface{}{"session_id": sessionID, "generation": gen})
		s.metrics.RecordGeneration(origin, string(sel.Platform), "cancelled")
		if !superseded {
			s.progress.Publish(ProgressUpdate{
				SessionID:  sessionID,
				Generation: gen,
				Status:     ProgressCancelled,
				MessageKey: "wizard.cancelled",
			})
		}
		return nil, errors.NewConflictError("generation was cancelled", context.Canceled).WithKey("wizard.cancelled")

	case err != nil:
		s.logger.Error("生成失败", map[string]interface{}{
			"session_id": sessionID,
			"platform":   sel.Platform,
			"error":      err,
		})
		s.metrics.RecordGeneration(origin, string(sel.Platform), "failed")
		if s.stats != nil {
			s.stats.RecordGeneration(origin, string(sel.Platform), string(sel.Direction), false)
		}
		s.progress.Publish(ProgressUpdate{
			SessionID:  sessionID,
			Generation: gen,
			Status:     ProgressFailed,
			MessageKey: "generate.failed",
			Error:      err.Error(),
		})
		return nil, err
	}

	s.metrics.RecordGeneration(origin, string(sel.Platform), "success")
	if s.stats != nil {
		s.stats.RecordGeneration(origin, string(sel.Platform), string(sel.Direction), true)
	}

	length := generator.Classify(content.Text, content.Platform)
	s.progress.Publish(ProgressUpdate{
		SessionID:  sessionID,
		Generation: gen,
		Progress:   100,
		Status:     ProgressCompleted,
		MessageKey: "generate.success",
		Content:    &content,
		Length:     &length,
	})

	return &GenerateOutcome{
		SessionID:           sessionID,
		Content:             content,
		Length:              length,
		TranslationFallback: fallback,
	}, nil
}

// generateLocal 模板生成；选择的语言不是英文时再翻译
func (s *WizardService) generateLocal(ctx context.Context, sessionID string, gen uint64, sel models.WizardSelection) (models.GeneratedContent, bool, error) {
	return s.composeLocal(ctx, sel, func() {
		s.progress.Publish(ProgressUpdate{
			SessionID:  sessionID,
			Generation: gen,
			Progress:   60,
			Status:     ProgressRunning,
			MessageKey: "wizard.generating",
		})
	})
}

func (s *WizardService) composeLocal(ctx context.Context, sel models.WizardSelection, beforeTranslate func()) (models.GeneratedContent, bool, error) {
	content, err := generator.Compose(sel)
	if err != nil {
		return models.GeneratedContent{}, false, err
	}

	lang := sel.Language
	if !lang.Valid() || lang == models.LanguageEN {
		return content, false, nil
	}
	if beforeTranslate != nil {
		beforeTranslate()
	}

	res := s.translator.Translate(ctx, content.Text, lang, models.LanguageEN)
	if err := ctx.Err(); err != nil {
		return models.GeneratedContent{}, false, err
	}
	if s.stats != nil {
		s.stats.RecordTranslation(res.Path, res.Fallback)
	}
	content.Text = res.Content
	content.LanguageTag = lang
	content.Hashtags = generator.ExtractHashtags(res.Content)
	return content, res.Fallback, nil
}

// Preview 不经过会话的本地生成，结果不保存
func (s *WizardService) Preview(ctx context.Context, sel models.WizardSelection) (*GenerateOutcome, error) {
	if !sel.Complete() {
		return nil, errors.NewValidationError("selection is incomplete", nil).WithKey("wizard.incomplete")
	}
	if sel.Platform.Valid() && !sel.PostType.ValidFor(sel.Platform) {
		return nil, errors.NewValidationError(fmt.Sprintf("post type %q is not available on %s", sel.PostType, sel.Platform), nil)
	}

	content, fallback, err := s.composeLocal(ctx, sel, nil)
	if err != nil {
		return nil, err
	}
	content.CreatedAt = s.now()
	return &GenerateOutcome{
		Content:             content,
		Length:              generator.Classify(content.Text, content.Platform),
		TranslationFallback: fallback,
	}, nil
}

func (s *WizardService) generateRemote(ctx context.Context, sel models.WizardSelection, opts GenerateOptions) (models.GeneratedContent, error) {
	if opts.RemoteToken != "" {
		ctx = backend.WithToken(ctx, opts.RemoteToken)
	}
	res, err := s.backend.Generate(ctx, backend.NewGenerateRequest(sel, opts.GenerateImages))
	if err != nil {
		switch ctx.Err() {
		case context.Canceled:
			return models.GeneratedContent{}, context.Canceled
		case context.DeadlineExceeded:
			return models.GeneratedContent{}, errors.NewTimeoutError("content generation timed out", err)
		}
		return models.GeneratedContent{}, err
	}

	hashtags := res.Hashtags
	if len(hashtags) == 0 {
		hashtags = generator.ExtractHashtags(res.Text)
	}
	lang := sel.Language
	if !lang.Valid() {
		lang = models.DefaultLanguage
	}
	return models.GeneratedContent{
		Text:        res.Text,
		Platform:    sel.Platform,
		LanguageTag: lang,
		Hashtags:    hashtags,
		Images:      res.Images,
		Origin:      models.OriginBackend,
	}, nil
}

// ActiveSessions 当前内存中的会话数
func (s *WizardService) ActiveSessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// CleanupIdle 删除超过 maxAge 未使用的会话
func (s *WizardService) CleanupIdle(maxAge time.Duration) int {
	cutoff := s.now().Add(-maxAge)

	s.mu.Lock()
	var stale []*wizardEntry
	for id, e := range s.sessions {
		if e.lastUsed().Before(cutoff) {
			stale = append(stale, e)
			delete(s.sessions, id)
		}
	}
	count := len(s.sessions)
	s.mu.Unlock()

	for _, e := range stale {
		s.dispose(e)
	}
	s.metrics.SetActiveSessions(count)
	return len(stale)
}
