// internal/di/container.go
package di

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/prisken/content-sub000/internal/auth"
	"github.com/prisken/content-sub000/internal/backend"
	"github.com/prisken/content-sub000/internal/config"
	"github.com/prisken/content-sub000/internal/i18n"
	"github.com/prisken/content-sub000/internal/services"
	"github.com/prisken/content-sub000/internal/storage"
	"github.com/prisken/content-sub000/internal/translator"
	"github.com/prisken/content-sub000/internal/utils"
)

// Container 持有应用的全部服务，按依赖顺序构建
type Container struct {
	Config  *config.AppConfig
	Storage *storage.FileStorage
	Locks   *services.LockManager
	Catalog *i18n.Catalog
	Backend *backend.Client
	Tokens  *auth.TokenConfig

	Translator *translator.Service
	Progress   *services.ProgressService
	Stats      *services.StatsService
	Wizard     *services.WizardService
	Topics     *services.TopicService
	Export     *services.ExportService
	Library    *services.LibraryService
	Users      *services.UserService
	Auth       *services.AuthService
	Settings   *services.ConfigService

	Metrics *utils.MetricsCollector

	// 名称索引，健康检查和调试用
	mutex    sync.RWMutex
	services map[string]interface{}
}

// New 按配置创建容器；cfg 为 nil 时使用 config.GetCurrentConfig()
func New(cfg *config.AppConfig) (*Container, error) {
	if cfg == nil {
		cfg = config.GetCurrentConfig()
	}
	if cfg == nil {
		return nil, fmt.Errorf("配置未加载")
	}
	logger := utils.GetLogger()

	c := &Container{
		Config:   cfg,
		Metrics:  utils.GetMetricsCollector(),
		services: make(map[string]interface{}),
	}

	// 1. 基础设施
	fs, err := storage.NewFileStorage(filepath.Clean(cfg.DataDir))
	if err != nil {
		return nil, fmt.Errorf("初始化存储失败: %w", err)
	}
	c.Storage = fs
	c.Locks = services.NewLockManager()

	catalog, err := i18n.Load()
	if err != nil {
		return nil, fmt.Errorf("加载词典失败: %w", err)
	}
	c.Catalog = catalog

	c.Backend = backend.NewClient(cfg.BackendURL, cfg.BackendAPIKey, cfg.BackendTimeout)

	tokens, err := tokenConfig(cfg)
	if err != nil {
		return nil, err
	}
	c.Tokens = tokens

	// 2. 翻译
	remote, err := translator.NewRemote(cfg, c.Backend)
	if err != nil {
		logger.Warn("远程翻译器不可用，只使用离线替换", map[string]interface{}{"error": err})
		remote = nil
	}
	c.Translator = translator.NewService(remote, 0)

	// 3. 业务服务
	c.Progress = services.NewProgressService()
	c.Stats = services.NewStatsService(fs)
	c.Wizard = services.NewWizardService(c.Backend, c.Translator, c.Progress, c.Stats)
	c.Topics = services.NewTopicService(c.Backend, c.Stats)
	c.Export = services.NewExportService()
	c.Library = services.NewLibraryService(fs, c.Locks, c.Export)
	c.Users = services.NewUserService(fs, c.Locks)
	c.Auth = services.NewAuthService(cfg.AuthMode, c.Users, c.Backend, tokens)

	c.Settings = services.NewConfigService()
	c.Settings.SubscribeToChanges(&services.TranslatorReloader{Translator: c.Translator, Backend: c.Backend})

	for name, svc := range map[string]interface{}{
		"storage":    c.Storage,
		"backend":    c.Backend,
		"translator": c.Translator,
		"progress":   c.Progress,
		"stats":      c.Stats,
		"wizard":     c.Wizard,
		"topics":     c.Topics,
		"export":     c.Export,
		"library":    c.Library,
		"user":       c.Users,
		"auth":       c.Auth,
		"config":     c.Settings,
	} {
		c.Register(name, svc)
	}

	logger.Info("服务容器初始化完成", map[string]interface{}{
		"services":         len(c.services),
		"auth_mode":        c.Auth.Mode(),
		"backend_enabled":  c.Backend.Enabled(),
		"remote_translate": c.Translator.HasRemote(),
	})
	return c, nil
}

// tokenConfig 未配置 AUTH_SECRET_KEY 时生成进程内临时密钥，重启后旧令牌失效
func tokenConfig(cfg *config.AppConfig) (*auth.TokenConfig, error) {
	secret := []byte(cfg.AuthSecret)
	if len(secret) == 0 {
		key, err := utils.GenerateSecureKey(32)
		if err != nil {
			return nil, fmt.Errorf("生成认证密钥失败: %w", err)
		}
		secret = key
		utils.GetLogger().Warn("未设置 AUTH_SECRET_KEY，使用临时密钥；重启后需要重新登录", map[string]interface{}{
			"pid": os.Getpid(),
		})
	}
	return &auth.TokenConfig{Secret: secret, Expiration: cfg.TokenTTL}, nil
}

// Register 按名称登记服务实例
func (c *Container) Register(name string, service interface{}) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.services[name] = service
}

// Get 按名称取服务实例，不存在时返回 nil
func (c *Container) Get(name string) interface{} {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.services[name]
}

// Has 检查服务是否存在
func (c *Container) Has(name string) bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	_, ok := c.services[name]
	return ok
}

// GetNames 已登记的服务名（排序）
func (c *Container) GetNames() []string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	names := make([]string, 0, len(c.services))
	for name := range c.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close 落盘统计并关闭所有会话的进度订阅
func (c *Container) Close() {
	if c.Wizard != nil {
		c.Wizard.CleanupIdle(0)
	}
	if c.Stats != nil {
		c.Stats.Flush()
	}
}
