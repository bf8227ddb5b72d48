// internal/services/progress_service.go
package services

import (
	"sync"
	"time"

	"github.com/prisken/content-sub000/internal/models"
)

// 生成任务状态
const (
	ProgressIdle      = "idle"
	ProgressRunning   = "running"
	ProgressCompleted = "completed"
	ProgressFailed    = "failed"
	ProgressCancelled = "cancelled"
)

// ProgressUpdate 表示一次生成进度更新
type ProgressUpdate struct {
	SessionID  string                   `json:"session_id"`
	Generation uint64                   `json:"generation"`
	Progress   int                      `json:"progress"` // 进度百分比 (0-100)
	Status     string                   `json:"status"`
	MessageKey string                   `json:"message_key,omitempty"`
	Error      string                   `json:"error,omitempty"`
	Content    *models.GeneratedContent `json:"content,omitempty"`
	Length     *models.LengthReport     `json:"length,omitempty"`
	Timestamp  time.Time                `json:"timestamp"`
}

// Finished 是否为终态
func (u ProgressUpdate) Finished() bool {
	return u.Status == ProgressCompleted || u.Status == ProgressFailed || u.Status == ProgressCancelled
}

// ProgressTracker 跟踪单个向导会话的生成进度
type ProgressTracker struct {
	sessionID   string
	last        ProgressUpdate
	subscribers map[chan ProgressUpdate]struct{}
	mutex       sync.Mutex
}

// ProgressService 管理所有会话的进度跟踪器
type ProgressService struct {
	trackers map[string]*ProgressTracker
	mutex    sync.RWMutex
}

// subscriberBuffer 订阅通道缓冲区，写满后丢弃中间进度
const subscriberBuffer = 16

// NewProgressService 创建进度服务实例
func NewProgressService() *ProgressService {
	return &ProgressService{
		trackers: make(map[string]*ProgressTracker),
	}
}

// tracker 获取或创建会话的跟踪器
func (s *ProgressService) tracker(sessionID string) *ProgressTracker {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if t, exists := s.trackers[sessionID]; exists {
		return t
	}
	t := &ProgressTracker{
		sessionID: sessionID,
		last: ProgressUpdate{
			SessionID: sessionID,
			Status:    ProgressIdle,
			Timestamp: time.Now(),
		},
		subscribers: make(map[chan ProgressUpdate]struct{}),
	}
	s.trackers[sessionID] = t
	return t
}

// Publish 广播一次进度更新，并记为该会话的最新状态
func (s *ProgressService) Publish(update ProgressUpdate) {
	t := s.tracker(update.SessionID)
	if update.Timestamp.IsZero() {
		update.Timestamp = time.Now()
	}

	t.mutex.Lock()
	defer t.mutex.Unlock()

	// 旧一轮生成的迟到事件不覆盖新一轮
	if update.Generation < t.last.Generation {
		return
	}
	t.last = update

	for subscriber := range t.subscribers {
		// 非阻塞发送，如果通道已满则跳过
		select {
		case subscriber <- update:
		default:
		}
	}
}

// Last 返回会话的最新进度
func (s *ProgressService) Last(sessionID string) (ProgressUpdate, bool) {
	s.mutex.RLock()
	t, exists := s.trackers[sessionID]
	s.mutex.RUnlock()
	if !exists {
		return ProgressUpdate{}, false
	}

	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.last, true
}

// Subscribe 订阅会话进度；会立即收到当前状态。返回的函数用于取消订阅，可重复调用
func (s *ProgressService) Subscribe(sessionID string) (<-chan ProgressUpdate, func()) {
	t := s.tracker(sessionID)

	t.mutex.Lock()
	subscriber := make(chan ProgressUpdate, subscriberBuffer)
	t.subscribers[subscriber] = struct{}{}
	subscriber <- t.last
	t.mutex.Unlock()

	return subscriber, func() { t.unsubscribe(subscriber) }
}

func (t *ProgressTracker) unsubscribe(subscriber chan ProgressUpdate) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if _, ok := t.subscribers[subscriber]; ok {
		delete(t.subscribers, subscriber)
		close(subscriber)
	}
}

// Remove 删除会话跟踪器并关闭所有订阅通道
func (s *ProgressService) Remove(sessionID string) {
	s.mutex.Lock()
	t, exists := s.trackers[sessionID]
	delete(s.trackers, sessionID)
	s.mutex.Unlock()
	if !exists {
		return
	}

	t.mutex.Lock()
	defer t.mutex.Unlock()
	for subscriber := range t.subscribers {
		delete(t.subscribers, subscriber)
		close(subscriber)
	}
}

// SubscriberCount 当前订阅者数量（测试用）
func (s *ProgressService) SubscriberCount(sessionID string) int {
	s.mutex.RLock()
	t, exists := s.trackers[sessionID]
	s.mutex.RUnlock()
	if !exists {
		return 0
	}
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return len(t.subscribers)
}
