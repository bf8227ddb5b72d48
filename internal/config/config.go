// internal/config/config.go
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/prisken/content-sub000/internal/utils"
)

// 当前配置的单例实例
var (
	currentConfig *AppConfig
	configMutex   sync.RWMutex
	configFile    string
)

const encryptedPrefix = "enc:"

// 认证模式
const (
	AuthModeLocal   = "local"
	AuthModeBackend = "backend"
)

// 翻译提供者
const (
	TranslatorBackend  = "backend"
	TranslatorOpenAI   = "openai"
	TranslatorFallback = "fallback"
)

// AppConfig 包含应用程序的所有配置
type AppConfig struct {
	// 基础配置
	Port      string `json:"port"`
	DataDir   string `json:"data_dir"`
	LogDir    string `json:"log_dir"`
	DebugMode bool   `json:"debug_mode"`

	// 外部后端
	BackendURL     string        `json:"backend_url,omitempty"`
	BackendAPIKey  string        `json:"backend_api_key,omitempty"`
	BackendTimeout time.Duration `json:"backend_timeout"`

	// 认证
	AuthMode      string        `json:"auth_mode"`
	AuthSecret    string        `json:"-"`
	TokenTTL      time.Duration `json:"token_ttl"`
	AdminEmail    string        `json:"-"`
	AdminPassword string        `json:"-"`

	// 翻译
	Translator    string `json:"translator"`
	OpenAIAPIKey  string `json:"openai_api_key,omitempty"`
	OpenAIModel   string `json:"openai_model,omitempty"`
	OpenAIBaseURL string `json:"openai_base_url,omitempty"`

	DefaultLanguage    string   `json:"default_language"`
	CORSOrigins        []string `json:"cors_origins,omitempty"`
	RateLimitPerMinute int      `json:"rate_limit_per_minute"`
}

// TranslatorSettings 管理后台可在运行时修改的翻译配置
type TranslatorSettings struct {
	Provider string `json:"provider"`
	Model    string `json:"model,omitempty"`
	BaseURL  string `json:"base_url,omitempty"`
	APIKey   string `json:"api_key,omitempty"`
}

// persistedSettings 写入 data/config.json 的部分，密钥加密保存
type persistedSettings struct {
	BackendURL    string `json:"backend_url,omitempty"`
	BackendAPIKey string `json:"backend_api_key,omitempty"`
	Translator    string `json:"translator,omitempty"`
	OpenAIAPIKey  string `json:"openai_api_key,omitempty"`
	OpenAIModel   string `json:"openai_model,omitempty"`
	OpenAIBaseURL string `json:"openai_base_url,omitempty"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("port", "8080")
	v.SetDefault("data_dir", "data")
	v.SetDefault("log_dir", "logs")
	v.SetDefault("debug_mode", false)
	v.SetDefault("backend_timeout", "30s")
	v.SetDefault("auth_mode", AuthModeLocal)
	v.SetDefault("token_ttl", "24h")
	v.SetDefault("translator", TranslatorBackend)
	v.SetDefault("openai_model", "gpt-4o-mini")
	v.SetDefault("default_language", "en")
	v.SetDefault("cors_origins", "*")
	v.SetDefault("rate_limit_per_minute", 30)
	v.AutomaticEnv()
	return v
}

// Load 从 .env、环境变量以及 DATA_DIR/config.json 加载配置
func Load() (*AppConfig, error) {
	return loadFrom("")
}

func loadFrom(dataDir string) (*AppConfig, error) {
	// 尝试加载.env文件（可选）
	_ = godotenv.Load()

	v := newViper()
	if dataDir != "" {
		v.Set("data_dir", dataDir)
	}

	secret := v.GetString("auth_secret_key")
	path := filepath.Join(v.GetString("data_dir"), "config.json")
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	cfg := &AppConfig{
		Port:               v.GetString("port"),
		DataDir:            v.GetString("data_dir"),
		LogDir:             v.GetString("log_dir"),
		DebugMode:          v.GetBool("debug_mode"),
		BackendURL:         strings.TrimRight(v.GetString("backend_url"), "/"),
		BackendAPIKey:      decryptSetting(v.GetString("backend_api_key"), secret),
		BackendTimeout:     v.GetDuration("backend_timeout"),
		AuthMode:           strings.ToLower(v.GetString("auth_mode")),
		AuthSecret:         secret,
		TokenTTL:           v.GetDuration("token_ttl"),
		AdminEmail:         v.GetString("admin_email"),
		AdminPassword:      v.GetString("admin_password"),
		Translator:         strings.ToLower(v.GetString("translator")),
		OpenAIAPIKey:       decryptSetting(v.GetString("openai_api_key"), secret),
		OpenAIModel:        v.GetString("openai_model"),
		OpenAIBaseURL:      v.GetString("openai_base_url"),
		DefaultLanguage:    v.GetString("default_language"),
		CORSOrigins:        splitList(v.GetString("cors_origins")),
		RateLimitPerMinute: v.GetInt("rate_limit_per_minute"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 检查互相依赖的配置项
func (c *AppConfig) Validate() error {
	switch c.AuthMode {
	case AuthModeLocal, AuthModeBackend:
	default:
		return fmt.Errorf("未知的 AUTH_MODE: %s", c.AuthMode)
	}
	switch c.Translator {
	case TranslatorBackend, TranslatorOpenAI, TranslatorFallback:
	default:
		return fmt.Errorf("未知的 TRANSLATOR: %s", c.Translator)
	}
	if c.AuthMode == AuthModeBackend && c.BackendURL == "" {
		return errors.New("AUTH_MODE=backend 需要设置 BACKEND_URL")
	}
	if c.BackendTimeout <= 0 {
		c.BackendTimeout = 30 * time.Second
	}
	if c.TokenTTL <= 0 {
		c.TokenTTL = 24 * time.Hour
	}
	return nil
}

// splitList 解析逗号分隔的列表
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func decryptSetting(value, secret string) string {
	if !strings.HasPrefix(value, encryptedPrefix) {
		return value
	}
	plain, err := utils.Decrypt(strings.TrimPrefix(value, encryptedPrefix), secret)
	if err != nil {
		utils.GetLogger().Warn("无法解密已保存的密钥，已忽略", map[string]interface{}{"error": err})
		return ""
	}
	return plain
}

func encryptSetting(value, secret string) string {
	if value == "" || secret == "" {
		// 没有稳定的密钥时不落盘明文
		return ""
	}
	enc, err := utils.Encrypt(value, secret)
	if err != nil {
		return ""
	}
	return encryptedPrefix + enc
}

// InitConfig 初始化配置管理器
func InitConfig(dataDir string) error {
	baseConfig, err := loadFrom(dataDir)
	if err != nil {
		return err
	}
	configFile = filepath.Join(baseConfig.DataDir, "config.json")

	configMutex.Lock()
	defer configMutex.Unlock()
	currentConfig = baseConfig

	return saveConfigLocked()
}

// SetCurrentConfig 直接替换当前配置（测试与 demo 使用）
func SetCurrentConfig(cfg *AppConfig) {
	configMutex.Lock()
	defer configMutex.Unlock()
	currentConfig = cfg
}

// GetCurrentConfig 返回当前配置的副本
func GetCurrentConfig() *AppConfig {
	configMutex.RLock()
	defer configMutex.RUnlock()

	if currentConfig == nil {
		// 紧急情况，返回一个基本配置
		baseConfig, err := Load()
		if err != nil {
			baseConfig = &AppConfig{Port: "8080", DataDir: "data", LogDir: "logs",
				AuthMode: AuthModeLocal, Translator: TranslatorFallback, DefaultLanguage: "en"}
			_ = baseConfig.Validate()
		}
		return baseConfig
	}

	configCopy := *currentConfig
	configCopy.CORSOrigins = append([]string(nil), currentConfig.CORSOrigins...)
	return &configCopy
}

// GetTranslatorSettings 返回当前翻译配置（不含密钥）
func GetTranslatorSettings() TranslatorSettings {
	cfg := GetCurrentConfig()
	return TranslatorSettings{
		Provider: cfg.Translator,
		Model:    cfg.OpenAIModel,
		BaseURL:  cfg.OpenAIBaseURL,
	}
}

// UpdateTranslatorConfig 更新翻译配置并持久化
func UpdateTranslatorConfig(settings TranslatorSettings) error {
	configMutex.Lock()
	defer configMutex.Unlock()

	if currentConfig == nil {
		return fmt.Errorf("配置系统未初始化")
	}

	next := *currentConfig
	next.Translator = strings.ToLower(settings.Provider)
	if settings.Model != "" {
		next.OpenAIModel = settings.Model
	}
	next.OpenAIBaseURL = settings.BaseURL
	if settings.APIKey != "" {
		next.OpenAIAPIKey = settings.APIKey
	}
	if err := next.Validate(); err != nil {
		return err
	}
	currentConfig = &next

	return saveConfigLocked()
}

// SaveConfig 保存当前配置到文件
func SaveConfig() error {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return saveConfigLocked()
}

func saveConfigLocked() error {
	if currentConfig == nil {
		return fmt.Errorf("没有配置可保存")
	}
	if configFile == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(configFile), 0755); err != nil {
		return fmt.Errorf("创建配置目录失败: %w", err)
	}

	saved := persistedSettings{
		BackendURL:    currentConfig.BackendURL,
		BackendAPIKey: encryptSetting(currentConfig.BackendAPIKey, currentConfig.AuthSecret),
		Translator:    currentConfig.Translator,
		OpenAIAPIKey:  encryptSetting(currentConfig.OpenAIAPIKey, currentConfig.AuthSecret),
		OpenAIModel:   currentConfig.OpenAIModel,
		OpenAIBaseURL: currentConfig.OpenAIBaseURL,
	}

	data, err := json.MarshalIndent(saved, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	return os.WriteFile(configFile, data, 0600)
}
