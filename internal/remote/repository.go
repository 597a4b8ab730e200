package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/treebridge/treebridge/internal/cache"
)

const contentTypeJSON = "application/json; charset=utf-8"

// ErrUpdateRejected 表示远端未以 200/204 确认更新。
var ErrUpdateRejected = errors.New("remote: update rejected")

// StatusError 携带远端返回的非成功状态码。
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	if e.Method == http.MethodPut {
		return ErrUpdateRejected
	}
	return nil
}

// Repository 访问远端实体 API，并维护一个仅由 ListAll 填充的查找缓存。
type Repository struct {
	endpoint string
	client   *http.Client
	logger   *logrus.Logger
	lookup   *cache.Cache[string, Person]
}

// NewRepository 校验 endpoint 并创建仓库；client 为空时使用默认上游客户端。
func NewRepository(endpoint string, client *http.Client, logger *logrus.Logger) (*Repository, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("remote: endpoint required")
	}
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("remote: invalid endpoint: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("remote: endpoint must be http/https: %s", endpoint)
	}
	if client == nil {
		client = NewUpstreamClient(0)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Repository{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   client,
		logger:   logger,
		lookup:   cache.New[string, Person](),
	}, nil
}

// Endpoint 返回规范化后的基础地址。
func (r *Repository) Endpoint() string {
	return r.endpoint
}

// ListAll 通过一次 GET 读取全部记录并写入查找缓存。任何失败都记录日志并返回空切片。
func (r *Repository) ListAll(ctx context.Context) []Person {
	people, err := r.fetchAll(ctx)
	if err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"action":   "remote_list",
			"endpoint": r.endpoint,
		}).Error("remote list failed")
		return []Person{}
	}
	r.addToLookup(people)
	return people
}

func (r *Repository) fetchAll(ctx context.Context) ([]Person, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{Method: http.MethodGet, URL: r.endpoint, StatusCode: resp.StatusCode}
	}

	var people []Person
	if err := json.NewDecoder(resp.Body).Decode(&people); err != nil {
		return nil, fmt.Errorf("decode people: %w", err)
	}
	if people == nil {
		people = []Person{}
	}
	return people, nil
}

// addToLookup 以首次出现为准写入缓存，空键记录不可寻址，直接跳过。
func (r *Repository) addToLookup(people []Person) {
	for _, p := range people {
		if p.Key() == "" {
			continue
		}
		r.lookup.SetIfAbsent(p.Key(), p)
	}
}

// Get 只读查找缓存：缓存从未被 ListAll 填充或不含该键时返回 false。
func (r *Repository) Get(key string) (Person, bool) {
	if key == "" {
		return Person{}, false
	}
	return r.lookup.Get(key)
}

// Update 以 PUT {endpoint}/{key} 写回单条记录。仅 200/204 视为成功，不做重试。
// 成功后查找缓存中的该键替换为刚写入的记录；失败时缓存保持不变。
func (r *Repository) Update(ctx context.Context, key string, person Person) error {
	if key == "" {
		return errors.New("remote: update key required")
	}
	body, err := json.Marshal(person)
	if err != nil {
		return fmt.Errorf("encode person: %w", err)
	}

	target := r.endpoint + "/" + url.PathEscape(key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentTypeJSON)

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("put %s: %w", target, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if !isUpdateSuccess(resp.StatusCode) {
		return &StatusError{Method: http.MethodPut, URL: target, StatusCode: resp.StatusCode}
	}
	r.lookup.Set(key, person)
	return nil
}

func isUpdateSuccess(status int) bool {
	return status == http.StatusOK || status == http.StatusNoContent
}

// ClearCache 清空查找缓存，下一次 Get 在 ListAll 之前都会未命中。
func (r *Repository) ClearCache() {
	r.lookup.Clear()
}

// Cached 返回查找缓存中的记录数，供诊断使用。
func (r *Repository) Cached() int {
	return r.lookup.Len()
}
