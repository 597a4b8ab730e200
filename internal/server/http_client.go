package server

import (
	"net/http"

	"github.com/treebridge/treebridge/internal/config"
	"github.com/treebridge/treebridge/internal/remote"
)

// NewUpstreamClient 返回所有 provider 共享的 http.Client，超时取自全局 UpstreamTimeout。
func NewUpstreamClient(cfg *config.Config) *http.Client {
	if cfg == nil {
		return remote.NewUpstreamClient(0)
	}
	return remote.NewUpstreamClient(cfg.Global.UpstreamTimeout.DurationValue())
}
