// internal/services/lock_manager.go
package services

import (
	"context"
	"sync"
	"time"
)

// LockManager 按方案ID管理读写锁
type LockManager struct {
	planLocks  map[string]*LockInfo
	globalLock sync.RWMutex
	lockTTL    time.Duration
	maxLocks   int
}

// LockInfo 包装锁和相关信息
type LockInfo struct {
	Mutex    *sync.RWMutex
	LastUsed time.Time
	refs     int32 // 当前持有或等待该锁的调用数，非零时不会被清理
}

// NewLockManager 创建锁管理器
func NewLockManager() *LockManager {
	return &LockManager{
		planLocks: make(map[string]*LockInfo),
		lockTTL:   30 * time.Minute,
		maxLocks:  200,
	}
}

// acquire returns the lock info for planID with its reference count raised.
func (lm *LockManager) acquire(planID string) *LockInfo {
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()

	info, exists := lm.planLocks[planID]
	if !exists {
		info = &LockInfo{Mutex: &sync.RWMutex{}}
		lm.planLocks[planID] = info
	}
	info.refs++
	info.LastUsed = time.Now()
	return info
}

func (lm *LockManager) release(info *LockInfo) {
	lm.globalLock.Lock()
	info.refs--
	info.LastUsed = time.Now()
	lm.globalLock.Unlock()
}

// ExecuteWithPlanLock 在方案写锁保护下执行操作
func (lm *LockManager) ExecuteWithPlanLock(planID string, fn func() error) error {
	info := lm.acquire(planID)
	defer lm.release(info)

	info.Mutex.Lock()
	defer info.Mutex.Unlock()
	return fn()
}

// ExecuteWithPlanReadLock 在方案读锁保护下执行操作
func (lm *LockManager) ExecuteWithPlanReadLock(planID string, fn func() error) error {
	info := lm.acquire(planID)
	defer lm.release(info)

	info.Mutex.RLock()
	defer info.Mutex.RUnlock()
	return fn()
}

// LockCount reports how many plan locks are tracked.
func (lm *LockManager) LockCount() int {
	lm.globalLock.RLock()
	defer lm.globalLock.RUnlock()
	return len(lm.planLocks)
}

// StartCleanup 定期清理未使用的锁，直到 ctx 结束
func (lm *LockManager) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				lm.cleanupUnusedLocks(time.Now())
			}
		}
	}()
}

func (lm *LockManager) cleanupUnusedLocks(now time.Time) int {
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()

	// 只有在锁数量过多时才清理
	if len(lm.planLocks) <= lm.maxLocks {
		return 0
	}

	removed := 0
	for planID, info := range lm.planLocks {
		if info.refs == 0 && now.Sub(info.LastUsed) > lm.lockTTL {
			delete(lm.planLocks, planID)
			removed++
		}
	}
	return removed
}
