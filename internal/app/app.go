// internal/app/app.go
package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/prisken/content-sub000/internal/api"
	"github.com/prisken/content-sub000/internal/config"
	"github.com/prisken/content-sub000/internal/di"
	"github.com/prisken/content-sub000/internal/utils"
)

const (
	// SessionIdleTimeout 超过该时长未操作的向导会话会被回收
	SessionIdleTimeout = 2 * time.Hour
	maintenanceSpec    = "@every 1m"
	shutdownTimeout    = 30 * time.Second
)

// App 组装好的应用：服务容器、HTTP 处理器和路由
type App struct {
	Config    *config.AppConfig
	Container *di.Container
	Handler   *api.Handler
	Router    *gin.Engine

	server   *http.Server
	cron     *cron.Cron
	logger   *utils.Logger
	stopOnce sync.Once
	addrCh   chan net.Addr
}

// New 按依赖顺序初始化所有服务并配置路由
func New(cfg *config.AppConfig) (*App, error) {
	container, err := di.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("初始化服务失败: %w", err)
	}

	if err := container.Users.EnsureAdmin(cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return nil, fmt.Errorf("创建管理员账号失败: %w", err)
	}

	handler := api.NewHandler(container)
	router := api.SetupRouter(handler, cfg, container.Metrics)

	return &App{
		Config:    cfg,
		Container: container,
		Handler:   handler,
		Router:    router,
		server: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		cron:   cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger))),
		logger: utils.GetLogger(),
		addrCh: make(chan net.Addr, 1),
	}, nil
}

// Addr 阻塞到服务器开始监听，返回实际地址（端口为 0 时有用）
func (a *App) Addr() net.Addr {
	addr := <-a.addrCh
	a.addrCh <- addr
	return addr
}

// Run 启动 HTTP 服务和后台维护任务，ctx 取消后优雅关闭
func (a *App) Run(ctx context.Context) error {
	if _, err := a.cron.AddFunc(maintenanceSpec, a.runMaintenance); err != nil {
		return fmt.Errorf("注册维护任务失败: %w", err)
	}
	ln, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return fmt.Errorf("监听端口失败: %w", err)
	}
	a.addrCh <- ln.Addr()
	a.logger.Info("服务器已启动", map[string]interface{}{"addr": ln.Addr().String()})

	a.cron.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := a.server.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP 服务异常退出: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return a.Shutdown()
	})
	return g.Wait()
}

// runMaintenance 回收空闲会话和已补满的限流记录，并落盘统计
func (a *App) runMaintenance() {
	removed := a.Container.Wizard.CleanupIdle(SessionIdleTimeout)
	swept := a.Handler.Limiter.Sweep()
	a.Container.Stats.Flush()
	if removed > 0 || swept > 0 {
		a.logger.Debug("后台维护完成", map[string]interface{}{
			"idle_sessions_removed": removed,
			"rate_limit_swept":      swept,
		})
	}
}

// Shutdown 断开 WebSocket、停止 HTTP 服务并落盘，可重复调用
func (a *App) Shutdown() error {
	var err error
	a.stopOnce.Do(func() {
		a.logger.Info("正在关闭服务器...", nil)

		// 等正在执行的维护任务结束
		<-a.cron.Stop().Done()

		// 被劫持的 WebSocket 连接不受 http.Server.Shutdown 管理，先行关闭
		a.Handler.Close()

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if shutdownErr := a.server.Shutdown(ctx); shutdownErr != nil {
			err = fmt.Errorf("服务器强制关闭: %w", shutdownErr)
		}

		a.Container.Close()
		a.logger.Info("服务器已关闭", nil)
	})
	return err
}
