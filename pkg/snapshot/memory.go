package snapshot

import (
	"context"
	"sync"
	"time"

	"mockils/pkg/types"
)

// MemoryStore 是默认的进程内快照存储
type MemoryStore struct {
	mu    sync.Mutex
	items map[types.SnapshotID]memoryItem
	ttl   time.Duration
	now   func() time.Time
}

type memoryItem struct {
	snap      *Snapshot
	expiresAt time.Time
}

// NewMemoryStore 创建内存快照存储
// ttl <= 0 表示永不过期
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		items: make(map[types.SnapshotID]memoryItem),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (m *MemoryStore) Put(ctx context.Context, snap *Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	// 顺手清理过期条目，避免 map 无限增长
	m.pruneLocked(now)

	var expiresAt time.Time
	if m.ttl > 0 {
		expiresAt = now.Add(m.ttl)
	}
	m.items[snap.ID] = memoryItem{snap: snap, expiresAt: expiresAt}
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id types.SnapshotID) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[id]
	if !ok || item.expired(m.now()) {
		return nil, ErrSnapshotNotFound
	}
	return item.snap, nil
}

// Len 返回当前保存的快照数量 (包括尚未清理的过期条目)
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func (m *MemoryStore) pruneLocked(now time.Time) {
	for id, item := range m.items {
		if item.expired(now) {
			delete(m.items, id)
		}
	}
}

func (i memoryItem) expired(now time.Time) bool {
	return !i.expiresAt.IsZero() && !now.Before(i.expiresAt)
}
