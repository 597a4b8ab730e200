package idtable

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/treebridge/treebridge/internal/tree"
)

// Minter 在映射表之上实现“查找或生成”语义，同一 (prefix, key) 的并发调用只会生成一个 ID。
type Minter struct {
	table Table
	newID func() tree.ID

	mu    sync.Mutex
	locks map[string]*entryLock
}

type entryLock struct {
	mu   sync.Mutex
	refs int
}

// NewMinter 基于 table 构建 Minter，整个进程应共享同一实例。
func NewMinter(table Table) *Minter {
	return &Minter{
		table: table,
		newID: tree.NewID,
		locks: make(map[string]*entryLock),
	}
}

// Table 返回底层映射表。
func (m *Minter) Table() Table {
	return m.table
}

// CreateOrGetID 返回 key 对应的 ID；首次出现时生成新 ID 并以 parentID 作为声明父节点写入。
func (m *Minter) CreateOrGetID(ctx context.Context, prefix, key string, parentID tree.ID) (tree.ID, error) {
	if prefix == "" || key == "" {
		return tree.NullID, ErrInvalidEntry
	}

	unlock := m.lockEntry(prefix, key)
	defer unlock()

	entry, err := m.table.GetID(ctx, prefix, key)
	switch {
	case err == nil:
		return entry.ID, nil
	case !errors.Is(err, ErrNotFound):
		return tree.NullID, fmt.Errorf("lookup %s/%s: %w", prefix, key, err)
	}

	id := m.newID()
	err = m.table.Add(ctx, Entry{
		Prefix:     prefix,
		Key:        key,
		ID:         id,
		ParentID:   parentID,
		CustomData: key,
	})
	if errors.Is(err, ErrDuplicate) {
		// 其他进程共享同一数据库时可能先写入，以已有条目为准。
		entry, err = m.table.GetID(ctx, prefix, key)
		if err != nil {
			return tree.NullID, fmt.Errorf("reload %s/%s: %w", prefix, key, err)
		}
		return entry.ID, nil
	}
	if err != nil {
		return tree.NullID, fmt.Errorf("add %s/%s: %w", prefix, key, err)
	}
	return id, nil
}

func (m *Minter) lockEntry(prefix, key string) func() {
	k := prefix + "::" + key
	m.mu.Lock()
	lock := m.locks[k]
	if lock == nil {
		lock = &entryLock{}
		m.locks[k] = lock
	}
	lock.refs++
	m.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		m.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(m.locks, k)
		}
		m.mu.Unlock()
	}
}
