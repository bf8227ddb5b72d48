// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/prisken/content-sub000/internal/app"
	"github.com/prisken/content-sub000/internal/config"
	"github.com/prisken/content-sub000/internal/utils"
)

type serveOptions struct {
	port    string
	dataDir string
	debug   bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &serveOptions{}

	root := &cobra.Command{
		Use:           "server",
		Short:         "Content Creator Pro API server",
		SilenceUsage:  true,
		SilenceErrors: true,
		// 不带子命令时等同于 serve
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	root.PersistentFlags().StringVar(&opts.port, "port", "", "listen port (overrides PORT)")
	root.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "data directory (overrides DATA_DIR)")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and WebSocket server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	})
	return root
}

func runServe(parent context.Context, opts *serveOptions) error {
	if parent == nil {
		parent = context.Background()
	}

	// 1. 加载配置
	if err := config.InitConfig(opts.dataDir); err != nil {
		return fmt.Errorf("初始化配置失败: %w", err)
	}
	cfg := config.GetCurrentConfig()
	if opts.port != "" {
		cfg.Port = opts.port
	}
	if opts.debug {
		cfg.DebugMode = true
	}
	config.SetCurrentConfig(cfg)

	// 2. 日志
	if err := utils.InitLogger(filepath.Join(cfg.LogDir, "server.log"), cfg.DebugMode); err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}
	logger := utils.GetLogger()
	defer logger.Sync()

	logger.Info("启动 Content Creator Pro 服务器", map[string]interface{}{
		"port":       cfg.Port,
		"data_dir":   cfg.DataDir,
		"auth_mode":  cfg.AuthMode,
		"translator": cfg.Translator,
		"backend":    cfg.BackendURL != "",
	})

	// 3. 服务与路由
	application, err := app.New(cfg)
	if err != nil {
		return err
	}

	// 4. 运行到收到中断信号
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return application.Run(ctx)
}
