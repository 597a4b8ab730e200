package idtable

import (
	"context"
	"sync"

	"github.com/treebridge/treebridge/internal/tree"
)

type memoryKey struct {
	prefix string
	key    string
}

// MemoryTable 是进程内映射表，进程重启后映射丢失，适合测试与临时部署。
type MemoryTable struct {
	mu      sync.RWMutex
	byKey   map[memoryKey]int
	entries []Entry
}

// NewMemoryTable 创建空的内存映射表。
func NewMemoryTable() *MemoryTable {
	return &MemoryTable{byKey: make(map[memoryKey]int)}
}

func (t *MemoryTable) GetID(_ context.Context, prefix, key string) (Entry, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	idx, ok := t.byKey[memoryKey{prefix, key}]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return t.entries[idx], nil
}

func (t *MemoryTable) GetKeys(_ context.Context, prefix string, id tree.ID) ([]Entry, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var result []Entry
	for _, e := range t.entries {
		if e.Prefix == prefix && e.ID == id {
			result = append(result, e)
		}
	}
	return result, nil
}

func (t *MemoryTable) Add(_ context.Context, entry Entry) error {
	if err := entry.validate(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	k := memoryKey{entry.Prefix, entry.Key}
	if _, exists := t.byKey[k]; exists {
		return ErrDuplicate
	}
	t.entries = append(t.entries, entry)
	t.byKey[k] = len(t.entries) - 1
	return nil
}

func (t *MemoryTable) List(_ context.Context, prefix string) ([]Entry, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var result []Entry
	for _, e := range t.entries {
		if e.Prefix == prefix {
			result = append(result, e)
		}
	}
	return result, nil
}

func (t *MemoryTable) Close() error { return nil }
