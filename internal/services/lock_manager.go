// internal/services/lock_manager.go
package services

import (
	"sync"
)

// LockManager 按键（用户 ID、邮箱等）分配互斥锁，引用归零即回收
type LockManager struct {
	globalLock sync.Mutex
	locks      map[string]*LockInfo
}

// LockInfo 包装锁和引用计数
type LockInfo struct {
	Mutex          sync.Mutex
	ReferenceCount int // 当前持有或等待该锁的协程数，受 globalLock 保护
}

// NewLockManager 创建锁管理器
func NewLockManager() *LockManager {
	return &LockManager{locks: make(map[string]*LockInfo)}
}

func (lm *LockManager) acquire(key string) *LockInfo {
	lm.globalLock.Lock()
	info, exists := lm.locks[key]
	if !exists {
		info = &LockInfo{}
		lm.locks[key] = info
	}
	info.ReferenceCount++
	lm.globalLock.Unlock()

	info.Mutex.Lock()
	return info
}

func (lm *LockManager) release(key string, info *LockInfo) {
	info.Mutex.Unlock()

	lm.globalLock.Lock()
	info.ReferenceCount--
	if info.ReferenceCount == 0 {
		delete(lm.locks, key)
	}
	lm.globalLock.Unlock()
}

// ExecuteWithLock 在 key 对应的锁保护下执行操作
func (lm *LockManager) ExecuteWithLock(key string, fn func() error) error {
	info := lm.acquire(key)
	defer lm.release(key, info)
	return fn()
}

// Size 当前持有的锁数量（测试用）
func (lm *LockManager) Size() int {
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()
	return len(lm.locks)
}
