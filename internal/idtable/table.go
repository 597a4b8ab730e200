// Package idtable 维护外部记录键与内容树节点 ID 之间的持久映射。
//
// 每条映射归属于一个前缀（通常等于 provider 的 KeyPrefix），在同一前缀内
// (prefix, key) 与 ID 一一对应。条目只增不改：首次看到某个键时写入，之后
// 始终返回同一个 ID。清理孤立条目属于管理操作，不由 provider 负责。
package idtable

import (
	"context"
	"errors"

	"github.com/treebridge/treebridge/internal/tree"
)

var (
	// ErrNotFound 表示前缀下不存在该键或 ID 的映射。
	ErrNotFound = errors.New("idtable: entry not found")

	// ErrDuplicate 表示 (prefix, key) 已经存在映射。
	ErrDuplicate = errors.New("idtable: entry already exists")

	// ErrInvalidEntry 表示条目缺少前缀、键或 ID。
	ErrInvalidEntry = errors.New("idtable: prefix, key and id are required")
)

// Entry 是一条映射记录。
type Entry struct {
	Prefix     string
	Key        string
	ID         tree.ID
	ParentID   tree.ID
	CustomData string
}

func (e Entry) validate() error {
	if e.Prefix == "" || e.Key == "" || e.ID == tree.NullID {
		return ErrInvalidEntry
	}
	return nil
}

// Table 是映射表的存储契约，实现必须并发安全。
type Table interface {
	// GetID 按键查找映射，不存在时返回 ErrNotFound。
	GetID(ctx context.Context, prefix, key string) (Entry, error)

	// GetKeys 返回某个 ID 在前缀下的全部映射，可能为空。
	GetKeys(ctx context.Context, prefix string, id tree.ID) ([]Entry, error)

	// Add 插入新映射；(prefix, key) 已存在时返回 ErrDuplicate 且不修改旧条目。
	Add(ctx context.Context, entry Entry) error

	// List 返回前缀下的全部映射，按插入顺序排列。
	List(ctx context.Context, prefix string) ([]Entry, error)

	Close() error
}
