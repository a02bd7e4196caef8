package dispatcher

import (
	"sync"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v4"
	"github.com/weixiu/weixiu/pkg/model"
)

type lockKey struct {
	worker uuid.UUID
	date   model.Date
}

// KeyedMutex 按 (维修工, 日期) 串行化的进程内锁，不同维修工之间互不阻塞
type KeyedMutex struct {
	locks *xsync.Map[lockKey, *sync.Mutex]
}

// NewKeyedMutex 创建锁表
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{
		locks: xsync.NewMap[lockKey, *sync.Mutex](),
	}
}

// Lock 锁定 (维修工, 日期)，返回解锁函数
// 拿到锁后确认表中仍是同一把锁，期间被 Prune 移除时重试
func (k *KeyedMutex) Lock(workerID uuid.UUID, date model.Date) func() {
	key := lockKey{worker: workerID, date: date}
	for {
		mu, _ := k.locks.LoadOrStore(key, &sync.Mutex{})
		mu.Lock()
		if cur, ok := k.locks.Load(key); ok && cur == mu {
			return mu.Unlock
		}
		mu.Unlock()
	}
}

// Prune 清理早于 before 的日期的空闲锁，正被持有的锁保留
func (k *KeyedMutex) Prune(before model.Date) int {
	n := 0
	k.locks.Range(func(key lockKey, _ *sync.Mutex) bool {
		if !key.date.Before(before) {
			return true
		}
		var removed *sync.Mutex
		k.locks.Compute(key, func(mu *sync.Mutex, loaded bool) (*sync.Mutex, xsync.ComputeOp) {
			if !loaded || !mu.TryLock() {
				return mu, xsync.CancelOp
			}
			removed = mu
			return mu, xsync.DeleteOp
		})
		if removed != nil {
			// 唤醒可能在旧锁上等待的协程，它们会发现锁已被替换并重试
			removed.Unlock()
			n++
		}
		return true
	})
	return n
}

// Len 返回锁表大小
func (k *KeyedMutex) Len() int {
	return k.locks.Size()
}
