package provider

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/treebridge/treebridge/internal/tree"
)

// ErrUnknownType 表示配置引用了未注册的 provider 类型。
var ErrUnknownType = errors.New("provider: unknown type")

// Factory 根据静态配置构造 provider 实例。
type Factory func(opts Options) (tree.Provider, error)

// Kind 描述一种可配置的 provider 类型。
type Kind struct {
	Key         string
	Description string
	Factory     Factory
}

var globalRegistry = newRegistry()

type registry struct {
	mu    sync.RWMutex
	kinds map[string]Kind
}

func newRegistry() *registry {
	return &registry{kinds: make(map[string]Kind)}
}

// Register 将类型加入全局注册表，重复键会返回错误。
func Register(kind Kind) error {
	return globalRegistry.register(kind)
}

// MustRegister 在注册失败时 panic，适合子包 init() 中调用。
func MustRegister(kind Kind) {
	if err := Register(kind); err != nil {
		panic(err)
	}
}

// Resolve 返回指定键的类型。
func Resolve(key string) (Kind, bool) {
	return globalRegistry.resolve(key)
}

// List 返回按键排序的类型列表。
func List() []Kind {
	return globalRegistry.list()
}

// Keys 返回所有已注册类型的键，供诊断使用。
func Keys() []string {
	items := List()
	result := make([]string, len(items))
	for i, kind := range items {
		result[i] = kind.Key
	}
	return result
}

// Build 按类型键构造 provider。
func Build(key string, opts Options) (tree.Provider, error) {
	kind, ok := Resolve(key)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, key)
	}
	p, err := kind.Factory(opts)
	if err != nil {
		return nil, fmt.Errorf("build provider %s (%s): %w", opts.Name, kind.Key, err)
	}
	return p, nil
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func (r *registry) register(kind Kind) error {
	key := normalizeKey(kind.Key)
	if key == "" {
		return fmt.Errorf("provider type key is required")
	}
	if kind.Factory == nil {
		return fmt.Errorf("provider type %s has no factory", key)
	}
	kind.Key = key

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.kinds[key]; exists {
		return fmt.Errorf("provider type %s already registered", key)
	}
	r.kinds[key] = kind
	return nil
}

func (r *registry) resolve(key string) (Kind, bool) {
	if key == "" {
		return Kind{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	kind, ok := r.kinds[normalizeKey(key)]
	return kind, ok
}

func (r *registry) list() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.kinds) == 0 {
		return nil
	}
	keys := make([]string, 0, len(r.kinds))
	for key := range r.kinds {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	result := make([]Kind, 0, len(keys))
	for _, key := range keys {
		result = append(result, r.kinds[key])
	}
	return result
}
