package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/treebridge/treebridge/internal/config"
	"github.com/treebridge/treebridge/internal/idtable"
	"github.com/treebridge/treebridge/internal/logging"
	"github.com/treebridge/treebridge/internal/provider"
	"github.com/treebridge/treebridge/internal/server"
	"github.com/treebridge/treebridge/internal/server/routes"
	"github.com/treebridge/treebridge/internal/version"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		// provider 类型只能在注册表中校验，这里用内存映射表试构建一次。
		if _, err := server.NewProviderRegistry(cfg, server.ProviderDeps{
			Minter: idtable.NewMinter(idtable.NewMemoryTable()),
			Client: server.NewUpstreamClient(cfg),
			Logger: logger,
		}); err != nil {
			fmt.Fprintf(stdErr, "构建 provider 注册表失败: %v\n", err)
			return 1
		}
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["providers"] = config.ProviderSummaries(cfg.Providers)
		fields["templates"] = len(cfg.Templates)
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	app, closeTable, err := buildApp(cfg, logger)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化服务失败: %v\n", err)
		return 1
	}
	defer closeTable()

	fields := logging.BaseFields("startup", opts.configPath)
	fields["providers"] = config.ProviderSummaries(cfg.Providers)
	fields["provider_types"] = provider.Keys()
	fields["listen_port"] = cfg.Global.ListenPort
	fields["mapping_store"] = cfg.Global.MappingStore
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	if err := startHTTPServer(app, cfg.Global.ListenPort, logger); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}

// buildApp 按“映射表 → provider 注册表 → 宿主数据库 → Fiber app”的顺序组装服务，
// 返回的 close 函数负责释放映射表。
func buildApp(cfg *config.Config, logger *logrus.Logger) (*fiber.App, func(), error) {
	table, err := server.OpenMappingTable(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("打开映射表失败: %w", err)
	}
	closeTable := func() {
		if err := table.Close(); err != nil {
			logger.WithError(err).Warn("关闭映射表失败")
		}
	}

	registry, err := server.NewProviderRegistry(cfg, server.ProviderDeps{
		Minter: idtable.NewMinter(table),
		Client: server.NewUpstreamClient(cfg),
		Logger: logger,
	})
	if err != nil {
		closeTable()
		return nil, nil, fmt.Errorf("构建 provider 注册表失败: %w", err)
	}

	db, err := server.BuildDatabase(cfg, registry, logger)
	if err != nil {
		closeTable()
		return nil, nil, fmt.Errorf("构建宿主数据库失败: %w", err)
	}

	app, err := server.NewApp(server.AppOptions{
		Logger:     logger,
		Database:   db,
		ListenPort: cfg.Global.ListenPort,
	})
	if err != nil {
		closeTable()
		return nil, nil, err
	}
	routes.RegisterDiagnosticsRoutes(app, registry, table)
	return app, closeTable, nil
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("treebridge", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 "+config.EnvConfigPath+" 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	return cliOptions{
		configPath:  config.ResolvePath(configFlag),
		checkOnly:   checkOnly,
		showVersion: showVer,
	}, nil
}

func startHTTPServer(app *fiber.App, port int, logger *logrus.Logger) error {
	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("Fiber 服务启动")

	return app.Listen(fmt.Sprintf(":%d", port))
}
