// internal/translator/service.go
package translator

import (
	"context"
	"crypto/sha256"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/prisken/content-sub000/internal/models"
	"github.com/prisken/content-sub000/internal/utils"
)

const defaultCacheSize = 512

// Remote 远程翻译接口；backend.Client 与 LLMRemote 都满足
type Remote interface {
	Translate(ctx context.Context, content, targetLang, sourceLang string) (string, error)
}

// Result 一次翻译的结果。Fallback 为 true 表示远程不可用、使用了离线替换，
// 调用方据此决定提示文案。
type Result struct {
	Content  string          `json:"translated_content"`
	Language models.Language `json:"language"`
	Fallback bool            `json:"fallback"`
	Cached   bool            `json:"cached"`
	// Path 结果来源：identity、cache、remote、fallback
	Path string `json:"path"`
}

type cacheKey struct {
	target models.Language
	sum    [sha256.Size]byte
}

// Service 先走远程翻译，失败或未配置时退回 Fallback
type Service struct {
	mu       sync.RWMutex
	remote   Remote
	fallback *Fallback
	cache    *lru.Cache[cacheKey, string]
	logger   *utils.Logger
	metrics  *utils.MetricsCollector
}

// NewService remote 可以为 nil（只用离线替换）
func NewService(remote Remote, cacheSize int) *Service {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	cache, err := lru.New[cacheKey, string](cacheSize)
	if err != nil {
		panic(err)
	}
	return &Service{
		remote:   remote,
		fallback: NewFallback(),
		cache:    cache,
		logger:   utils.GetLogger(),
		metrics:  utils.GetMetricsCollector(),
	}
}

// SetRemote 替换远程翻译器并清空缓存（管理后台修改翻译设置时调用）
func (s *Service) SetRemote(remote Remote) {
	s.mu.Lock()
	s.remote = remote
	s.mu.Unlock()
	s.cache.Purge()
}

// HasRemote 是否配置了远程翻译
func (s *Service) HasRemote() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.remote != nil
}

// Translate 不返回错误：远程失败时降级为离线替换
func (s *Service) Translate(ctx context.Context, content string, target, source models.Language) Result {
	if !target.Valid() {
		target = models.DefaultLanguage
	}
	if content == "" || (source == target && source != "") {
		s.metrics.RecordTranslation("identity")
		return Result{Content: content, Language: target, Path: "identity"}
	}

	key := cacheKey{target: target, sum: sha256.Sum256([]byte(content))}
	if cached, ok := s.cache.Get(key); ok {
		s.metrics.RecordTranslation("cache")
		return Result{Content: cached, Language: target, Cached: true, Path: "cache"}
	}

	s.mu.RLock()
	remote := s.remote
	s.mu.RUnlock()

	if remote != nil {
		translated, err := remote.Translate(ctx, content, string(target), string(source))
		if err == nil {
			s.cache.Add(key, translated)
			s.metrics.RecordTranslation("remote")
			return Result{Content: translated, Language: target, Path: "remote"}
		}
		s.logger.Warn("远程翻译失败，使用离线替换", map[string]interface{}{
			"target": target,
			"error":  err,
		})
	}

	s.metrics.RecordTranslation("fallback")
	return Result{
		Content:  s.fallback.Translate(content, target),
		Language: target,
		Fallback: true,
		Path:     "fallback",
	}
}
