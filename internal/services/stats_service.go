// internal/services/stats_service.go
package services

import (
	"maps"
	"sync"
	"time"

	"github.com/prisken/content-sub000/internal/storage"
	"github.com/prisken/content-sub000/internal/utils"
)

const (
	statsDir  = "stats"
	statsFile = "usage_stats.json"
	// 只保留最近 30 天的按日统计
	dailyRetention = 30
)

// UsageStats 仪表盘使用统计
type UsageStats struct {
	TotalGenerations       int            `json:"total_generations"`
	FailedGenerations      int            `json:"failed_generations"`
	GenerationsByOrigin    map[string]int `json:"generations_by_origin"`
	GenerationsByPlatform  map[string]int `json:"generations_by_platform"`
	GenerationsByDirection map[string]int `json:"generations_by_direction"`
	Translations           map[string]int `json:"translations"`
	TranslationFallbacks   int            `json:"translation_fallbacks"`
	TopicRequests          int            `json:"topic_requests"`
	TodayGenerations       int            `json:"today_generations"`
	DailyStats             map[string]int `json:"daily_stats"`
	LastUpdated            time.Time      `json:"last_updated"`
}

func newUsageStats() *UsageStats {
	return &UsageStats{
		GenerationsByOrigin:    make(map[string]int),
		GenerationsByPlatform:  make(map[string]int),
		GenerationsByDirection: make(map[string]int),
		Translations:           make(map[string]int),
		DailyStats:             make(map[string]int),
	}
}

func (u *UsageStats) clone() UsageStats {
	c := *u
	c.GenerationsByOrigin = maps.Clone(u.GenerationsByOrigin)
	c.GenerationsByPlatform = maps.Clone(u.GenerationsByPlatform)
	c.GenerationsByDirection = maps.Clone(u.GenerationsByDirection)
	c.Translations = maps.Clone(u.Translations)
	c.DailyStats = maps.Clone(u.DailyStats)
	return c
}

// StatsService 记录生成、翻译、选题统计，批量落盘
type StatsService struct {
	storage *storage.FileStorage
	mutex   sync.Mutex
	stats   *UsageStats

	// 批量保存控制
	isDirty      bool
	lastSaveTime time.Time
	saveInterval time.Duration
	now          func() time.Time
}

// NewStatsService 创建统计服务实例；fs 为 nil 时只在内存中统计
func NewStatsService(fs *storage.FileStorage) *StatsService {
	s := &StatsService{
		storage:      fs,
		stats:        newUsageStats(),
		saveInterval: 30 * time.Second,
		now:          time.Now,
	}

	if fs != nil {
		loaded := newUsageStats()
		if err := fs.LoadJSONFile(statsDir, statsFile, loaded); err == nil {
			ensureMaps(loaded)
			s.stats = loaded
		}
	}
	s.lastSaveTime = s.now()
	return s
}

func ensureMaps(u *UsageStats) {
	fresh := newUsageStats()
	if u.GenerationsByOrigin == nil {
		u.GenerationsByOrigin = fresh.GenerationsByOrigin
	}
	if u.GenerationsByPlatform == nil {
		u.GenerationsByPlatform = fresh.GenerationsByPlatform
	}
	if u.GenerationsByDirection == nil {
		u.GenerationsByDirection = fresh.GenerationsByDirection
	}
	if u.Translations == nil {
		u.Translations = fresh.Translations
	}
	if u.DailyStats == nil {
		u.DailyStats = fresh.DailyStats
	}
}

// RecordGeneration 记录一次生成尝试
func (s *StatsService) RecordGeneration(origin, platform, direction string, ok bool) {
	s.update(func(u *UsageStats, today string) {
		if !ok {
			u.FailedGenerations++
			return
		}
		u.TotalGenerations++
		u.GenerationsByOrigin[origin]++
		u.GenerationsByPlatform[platform]++
		u.GenerationsByDirection[direction]++
		u.DailyStats[today]++
	})
}

// RecordTranslation 记录一次翻译及其路径（remote、cache、fallback、identity）
func (s *StatsService) RecordTranslation(path string, fallback bool) {
	s.update(func(u *UsageStats, _ string) {
		u.Translations[path]++
		if fallback {
			u.TranslationFallbacks++
		}
	})
}

// RecordTopicRequest 记录一次选题请求
func (s *StatsService) RecordTopicRequest() {
	s.update(func(u *UsageStats, _ string) {
		u.TopicRequests++
	})
}

func (s *StatsService) update(fn func(u *UsageStats, today string)) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.now()
	fn(s.stats, now.Format(time.DateOnly))
	s.stats.LastUpdated = now
	s.isDirty = true

	if now.Sub(s.lastSaveTime) >= s.saveInterval {
		s.saveUnlocked()
	}
}

// GetStats 返回统计快照
func (s *StatsService) GetStats() UsageStats {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	out := s.stats.clone()
	out.TodayGenerations = out.DailyStats[s.now().Format(time.DateOnly)]
	return out
}

// Flush 立即保存未落盘的统计（关闭服务时调用）
func (s *StatsService) Flush() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.saveUnlocked()
}

func (s *StatsService) saveUnlocked() {
	if !s.isDirty || s.storage == nil {
		return
	}
	s.pruneDailyUnlocked()
	if err := s.storage.SaveJSONFile(statsDir, statsFile, s.stats); err != nil {
		utils.GetLogger().Warn("保存统计数据失败", map[string]interface{}{"error": err})
		return
	}
	s.isDirty = false
	s.lastSaveTime = s.now()
}

func (s *StatsService) pruneDailyUnlocked() {
	cutoff := s.now().AddDate(0, 0, -dailyRetention).Format(time.DateOnly)
	for day := range s.stats.DailyStats {
		if day < cutoff {
			delete(s.stats.DailyStats, day)
		}
	}
}
