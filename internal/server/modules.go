package server

import (
	// 注册内置 provider 类型。
	_ "github.com/treebridge/treebridge/internal/provider/people"
)
