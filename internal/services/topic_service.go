// internal/services/topic_service.go
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/prisken/content-sub000/internal/errors"
	"github.com/prisken/content-sub000/internal/generator"
	"github.com/prisken/content-sub000/internal/models"
	"github.com/prisken/content-sub000/internal/utils"
)

const (
	topicCacheSize = 256
	topicCacheTTL  = 5 * time.Minute
)

// 选题来源
const (
	TopicsFromBackend = "backend"
	TopicsFromCache   = "cache"
	TopicsFromLocal   = "local"
)

// TopicBackend 外部选题接口，backend.Client 满足
type TopicBackend interface {
	Enabled() bool
	GenerateTopics(ctx context.Context, direction models.Direction, source models.Source, details string) ([]models.Topic, error)
}

// TopicRequest 选题请求
type TopicRequest struct {
	Direction     models.Direction `json:"direction"`
	Source        models.Source    `json:"source"`
	SourceDetails string           `json:"sourceDetails,omitempty"`
}

func (r TopicRequest) key() string {
	return strings.Join([]string{string(r.Direction), string(r.Source), strings.ToLower(r.SourceDetails)}, "|")
}

// TopicResult 选题结果；Fallback 表示后端失败后改用本地候选
type TopicResult struct {
	Topics   []models.Topic `json:"topics"`
	Origin   string         `json:"origin"`
	Fallback bool           `json:"fallback"`
}

type topicEntry struct {
	topics   []models.Topic
	storedAt time.Time
}

// TopicService 选题发现：相同的并发请求只发一次后端调用，结果短期缓存
type TopicService struct {
	backend TopicBackend
	group   singleflight.Group
	cache   *lru.Cache[string, topicEntry]
	ttl     time.Duration
	stats   *StatsService
	metrics *utils.MetricsCollector
	logger  *utils.Logger
	now     func() time.Time
}

// NewTopicService 创建选题服务；tb 为 nil 时只生成本地候选
func NewTopicService(tb TopicBackend, stats *StatsService) *TopicService {
	cache, err := lru.New[string, topicEntry](topicCacheSize)
	if err != nil {
		panic(err)
	}
	return &TopicService{
		backend: tb,
		cache:   cache,
		ttl:     topicCacheTTL,
		stats:   stats,
		metrics: utils.GetMetricsCollector(),
		logger:  utils.GetLogger(),
		now:     time.Now,
	}
}

// Generate 返回候选选题
func (s *TopicService) Generate(ctx context.Context, req TopicRequest) (*TopicResult, error) {
	req.SourceDetails = strings.TrimSpace(req.SourceDetails)
	if !req.Direction.Valid() {
		return nil, errors.NewValidationError(fmt.Sprintf("invalid direction %q", req.Direction), nil).
			WithKey("wizard.missing.direction")
	}
	if req.Source != "" && !req.Source.Valid() {
		return nil, errors.NewValidationError(fmt.Sprintf("invalid source %q", req.Source), nil)
	}
	if s.stats != nil {
		s.stats.RecordTopicRequest()
	}

	if s.backend == nil || !s.backend.Enabled() {
		s.metrics.RecordTopicRequest(TopicsFromLocal)
		return &TopicResult{Topics: LocalTopics(req), Origin: TopicsFromLocal}, nil
	}

	key := req.key()
	if e, ok := s.cache.Get(key); ok && s.now().Sub(e.storedAt) < s.ttl {
		s.metrics.RecordTopicRequest(TopicsFromCache)
		return &TopicResult{Topics: cloneTopics(e.topics), Origin: TopicsFromCache}, nil
	}

	// 共享的调用不随某一个调用方取消
	shared := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (interface{}, error) {
		// 上一轮共享调用可能刚刚写入缓存
		if e, ok := s.cache.Get(key); ok && s.now().Sub(e.storedAt) < s.ttl {
			return e.topics, nil
		}
		topics, err := s.backend.GenerateTopics(shared, req.Direction, req.Source, req.SourceDetails)
		if err != nil {
			return nil, err
		}
		s.cache.Add(key, topicEntry{topics: topics, storedAt: s.now()})
		return topics, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if errors.IsUnauthorizedError(res.Err) {
			// 远端会话失效，交给客户端重新登录
			return nil, res.Err
		}
		if res.Err != nil {
			s.logger.Warn("后端选题失败，使用本地候选", map[string]interface{}{
				"direction": req.Direction,
				"error":     res.Err,
			})
			s.metrics.RecordTopicRequest(TopicsFromLocal)
			return &TopicResult{Topics: LocalTopics(req), Origin: TopicsFromLocal, Fallback: true}, nil
		}
		s.metrics.RecordTopicRequest(TopicsFromBackend)
		return &TopicResult{Topics: cloneTopics(res.Val.([]models.Topic)), Origin: TopicsFromBackend}, nil
	}
}

// LocalTopics 根据方向词表确定性地生成候选选题
func LocalTopics(req TopicRequest) []models.Topic {
	dc, ok := generator.ContentFor(req.Direction)
	if !ok {
		return nil
	}

	from := ""
	if label, ok := generator.SourceLabel(req.Source); ok {
		from = " from " + label
		if req.SourceDetails != "" {
			from += " (" + req.SourceDetails + ")"
		}
	}

	titles := []string{
		"The future of %s",
		"How %s is reshaping " + dc.Focus,
		"5 things to know about %s",
		"%s: myths vs. reality",
		"Why everyone is talking about %s",
	}
	topics := make([]models.Topic, 0, len(dc.Keywords))
	for i, kw := range dc.Keywords {
		topics = append(topics, models.Topic{
			Title:       fmt.Sprintf(titles[i%len(titles)], kw),
			Description: fmt.Sprintf("Fresh angles on %s in %s%s.", kw, dc.Focus, from),
		})
	}
	return topics
}

func cloneTopics(in []models.Topic) []models.Topic {
	return append([]models.Topic(nil), in...)
}
