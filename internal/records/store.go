// Package records 以单个 JSON 文档持久化 Person 记录，供开发用的 people 服务使用。
//
// 文档是按插入顺序排列的记录数组，email 为唯一键。每次写入先落临时文件再
// rename 覆盖，读者永远看不到写了一半的文档。
package records

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/treebridge/treebridge/internal/remote"
)

var (
	// ErrNotFound 表示键对应的记录不存在。
	ErrNotFound = errors.New("records: person not found")
	// ErrExists 表示新增的键已经存在。
	ErrExists = errors.New("records: person already exists")
	// ErrEmptyKey 表示调用方没有提供键。
	ErrEmptyKey = errors.New("records: key is required")
)

// Store 是基于文件的记录仓库，同一进程内的读写由互斥锁串行化。
type Store struct {
	path string

	mu sync.Mutex
}

// Open 以 path 为文档路径构建 Store，文件不存在时写入空文档。
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("records path required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve records path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("create records dir: %w", err)
	}

	s := &Store{path: abs}
	if _, err := os.Stat(abs); errors.Is(err, fs.ErrNotExist) {
		if err := s.write([]remote.Person{}); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}
	// 提前读取一次，尽早暴露损坏的文档。
	if _, err := s.read(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path 返回文档的绝对路径。
func (s *Store) Path() string { return s.path }

// Exists 判断键是否存在。
func (s *Store) Exists(key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	people, err := s.read()
	if err != nil {
		return false, err
	}
	return indexOf(people, key) >= 0, nil
}

// All 返回全部记录，保持文档顺序。
func (s *Store) All() ([]remote.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// Get 按键返回记录。
func (s *Store) Get(key string) (remote.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	people, err := s.read()
	if err != nil {
		return remote.Person{}, err
	}
	idx := indexOf(people, key)
	if idx < 0 {
		return remote.Person{}, ErrNotFound
	}
	return people[idx], nil
}

// Add 追加一条记录，Email 被强制设为 key。
func (s *Store) Add(key string, p remote.Person) error {
	if strings.TrimSpace(key) == "" {
		return ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	people, err := s.read()
	if err != nil {
		return err
	}
	if indexOf(people, key) >= 0 {
		return ErrExists
	}
	p.Email = key
	return s.write(append(people, p))
}

// Update 合并更新记录：传入值为空的字段保留原值，键不可修改。
func (s *Store) Update(key string, p remote.Person) (remote.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	people, err := s.read()
	if err != nil {
		return remote.Person{}, err
	}
	idx := indexOf(people, key)
	if idx < 0 {
		return remote.Person{}, ErrNotFound
	}

	current := people[idx]
	current.FirstName = keep(current.FirstName, p.FirstName)
	current.LastName = keep(current.LastName, p.LastName)
	current.Description = keep(current.Description, p.Description)
	current.JobTitle = keep(current.JobTitle, p.JobTitle)
	people[idx] = current

	if err := s.write(people); err != nil {
		return remote.Person{}, err
	}
	return current, nil
}

// Delete 删除记录。
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	people, err := s.read()
	if err != nil {
		return err
	}
	idx := indexOf(people, key)
	if idx < 0 {
		return ErrNotFound
	}
	return s.write(append(people[:idx], people[idx+1:]...))
}

func keep(old, incoming string) string {
	if incoming == "" {
		return old
	}
	return incoming
}

func indexOf(people []remote.Person, key string) int {
	if key == "" {
		return -1
	}
	for i, p := range people {
		if p.Email == key {
			return i
		}
	}
	return -1
}

func (s *Store) read() ([]remote.Person, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	people := []remote.Person{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return people, nil
	}
	if err := json.Unmarshal(data, &people); err != nil {
		return nil, fmt.Errorf("decode records %s: %w", s.path, err)
	}
	return people, nil
}

func (s *Store) write(people []remote.Person) error {
	data, err := json.MarshalIndent(people, "", "  ")
	if err != nil {
		return err
	}

	tempFile, err := os.CreateTemp(filepath.Dir(s.path), ".records-*")
	if err != nil {
		return err
	}
	tempName := tempFile.Name()

	_, err = tempFile.Write(data)
	closeErr := tempFile.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempName)
		return err
	}

	if err := os.Rename(tempName, s.path); err != nil {
		os.Remove(tempName)
		return err
	}
	return nil
}
