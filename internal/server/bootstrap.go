package server

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/treebridge/treebridge/internal/config"
	"github.com/treebridge/treebridge/internal/host"
	"github.com/treebridge/treebridge/internal/idtable"
	"github.com/treebridge/treebridge/internal/tree"
)

// OpenMappingTable 按 MappingStore 打开映射表。
func OpenMappingTable(cfg *config.Config) (idtable.Table, error) {
	switch cfg.Global.MappingStore {
	case config.MappingStoreMemory:
		return idtable.NewMemoryTable(), nil
	case config.MappingStoreSQLite, "":
		table, err := idtable.OpenSQLite(cfg.Global.MappingPath)
		if err != nil {
			return nil, err
		}
		return table, nil
	default:
		return nil, fmt.Errorf("unsupported mapping store %q", cfg.Global.MappingStore)
	}
}

// BuildDatabase 组装宿主数据库：模板、原生节点、配置的 provider，原生节点 provider 排在链尾。
func BuildDatabase(cfg *config.Config, registry *ProviderRegistry, logger *logrus.Logger) (*host.Database, error) {
	templates := host.NewTemplateStore()
	for _, tc := range cfg.Templates {
		tpl, err := tc.Build()
		if err != nil {
			return nil, err
		}
		templates.Add(tpl)
	}

	native := tree.NewMemoryProvider("native")
	for _, nc := range cfg.Nodes {
		node, err := nc.MemoryNode(templates)
		if err != nil {
			return nil, err
		}
		native.AddNode(node)
	}

	providers := append(registry.Providers(), native)
	return host.New(host.Options{
		Name:      cfg.Global.Database,
		Languages: cfg.Global.TreeLanguages(),
		Templates: templates,
		Providers: providers,
		Logger:    logger,
	}), nil
}
