// Command peopled 运行开发用的 Person REST 服务，数据保存在本地 JSON 文档中。
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/treebridge/treebridge/internal/config"
	"github.com/treebridge/treebridge/internal/logging"
	"github.com/treebridge/treebridge/internal/peopleapi"
	"github.com/treebridge/treebridge/internal/records"
	"github.com/treebridge/treebridge/internal/remote"
	"github.com/treebridge/treebridge/internal/version"
)

type cliOptions struct {
	dataPath string
	port     int
	logLevel string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:           "peopled",
		Short:         "Serve the development Person REST API backed by a JSON file",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(*opts)
		},
	}
	root.PersistentFlags().StringVarP(&opts.dataPath, "data", "d", "people.json", "JSON 数据文件路径")
	root.Flags().IntVarP(&opts.port, "port", "p", 8080, "监听端口")
	root.Flags().StringVar(&opts.logLevel, "log-level", "info", "日志级别")

	root.AddCommand(newVersionCmd(), newSeedCmd(opts))
	return root
}

func (o cliOptions) validate() error {
	if o.port <= 0 || o.port > 65535 {
		return fmt.Errorf("无效端口: %d", o.port)
	}
	if _, err := logrus.ParseLevel(o.logLevel); err != nil {
		return fmt.Errorf("无法解析日志级别: %w", err)
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Full())
		},
	}
}

// newSeedCmd 向数据文件追加一条记录，已存在时报错。
func newSeedCmd(opts *cliOptions) *cobra.Command {
	var p remote.Person
	cmd := &cobra.Command{
		Use:   "seed <email>",
		Short: "Add a person record to the data file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := records.Open(opts.dataPath)
			if err != nil {
				return err
			}
			if err := store.Add(args[0], p); err != nil {
				return fmt.Errorf("添加 %s 失败: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %s added\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&p.FirstName, "first-name", "", "名")
	cmd.Flags().StringVar(&p.LastName, "last-name", "", "姓")
	cmd.Flags().StringVar(&p.JobTitle, "job-title", "", "职位")
	cmd.Flags().StringVar(&p.Description, "description", "", "简介")
	return cmd
}

func serve(opts cliOptions) error {
	logger, err := logging.InitLogger(config.GlobalConfig{LogLevel: opts.logLevel})
	if err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}

	store, err := records.Open(opts.dataPath)
	if err != nil {
		return fmt.Errorf("打开数据文件失败: %w", err)
	}

	app, err := peopleapi.NewApp(store, logger)
	if err != nil {
		return fmt.Errorf("初始化服务失败: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   opts.port,
		"data":   store.Path(),
	}).Info("people 服务启动")

	return app.Listen(fmt.Sprintf(":%d", opts.port))
}
