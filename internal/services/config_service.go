// internal/services/config_service.go
package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/prisken/content-sub000/internal/backend"
	"github.com/prisken/content-sub000/internal/config"
	"github.com/prisken/content-sub000/internal/errors"
	"github.com/prisken/content-sub000/internal/translator"
	"github.com/prisken/content-sub000/internal/utils"
)

const maxChangeHistory = 1000

// ConfigService 管理后台可修改的运行时配置
type ConfigService struct {
	// 配置变更事件订阅者
	subscribers []ConfigChangeSubscriber

	// 配置历史记录
	changeHistory []ConfigChangeRecord

	// 互斥锁保护内部状态
	mu sync.RWMutex

	// update 串行化写配置
	update sync.Mutex
}

// ConfigChangeSubscriber 配置变更订阅者接口
type ConfigChangeSubscriber interface {
	OnConfigChanged(oldConfig, newConfig *config.AppConfig)
}

// ConfigChangeRecord 配置变更记录
type ConfigChangeRecord struct {
	Timestamp time.Time   `json:"timestamp"`
	ChangedBy string      `json:"changed_by"`
	Section   string      `json:"section"`
	OldValue  interface{} `json:"old_value"`
	NewValue  interface{} `json:"new_value"`
}

// TranslatorSettingsView 返回给管理后台的翻译配置，不含密钥
type TranslatorSettingsView struct {
	config.TranslatorSettings
	APIKeySet         bool     `json:"api_key_set"`
	BackendConfigured bool     `json:"backend_configured"`
	Providers         []string `json:"providers"`
}

// NewConfigService 创建配置服务实例
func NewConfigService() *ConfigService {
	return &ConfigService{
		subscribers:   make([]ConfigChangeSubscriber, 0),
		changeHistory: make([]ConfigChangeRecord, 0, 16),
	}
}

// GetTranslatorSettings 当前翻译配置
func (s *ConfigService) GetTranslatorSettings() TranslatorSettingsView {
	cfg := config.GetCurrentConfig()
	return TranslatorSettingsView{
		TranslatorSettings: config.GetTranslatorSettings(),
		APIKeySet:          cfg.OpenAIAPIKey != "",
		BackendConfigured:  cfg.BackendURL != "",
		Providers:          []string{config.TranslatorBackend, config.TranslatorOpenAI, config.TranslatorFallback},
	}
}

// UpdateTranslator 更新翻译配置、记录变更并通知订阅者
func (s *ConfigService) UpdateTranslator(settings config.TranslatorSettings, changedBy string) error {
	s.update.Lock()
	defer s.update.Unlock()

	oldConfig := config.GetCurrentConfig()
	if err := config.UpdateTranslatorConfig(settings); err != nil {
		return errors.NewValidationError(fmt.Sprintf("翻译配置无效: %v", err), err)
	}
	newConfig := config.GetCurrentConfig()

	s.recordChange("translator", oldConfig.Translator, newConfig.Translator, changedBy)
	if oldConfig.OpenAIModel != newConfig.OpenAIModel {
		s.recordChange("openai_model", oldConfig.OpenAIModel, newConfig.OpenAIModel, changedBy)
	}
	if settings.APIKey != "" {
		// 只记录发生了变更，不记录密钥本身
		s.recordChange("openai_api_key", "***", "***", changedBy)
	}

	utils.GetLogger().Info("翻译配置已更新", map[string]interface{}{
		"provider":   newConfig.Translator,
		"changed_by": changedBy,
	})

	s.notifySubscribers(oldConfig, newConfig)
	return nil
}

// SubscribeToChanges 订阅配置变更事件
func (s *ConfigService) SubscribeToChanges(subscriber ConfigChangeSubscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subscribers = append(s.subscribers, subscriber)
}

// notifySubscribers 通知所有订阅者配置已变更（同步调用，返回时新配置已生效）
func (s *ConfigService) notifySubscribers(oldConfig, newConfig *config.AppConfig) {
	s.mu.RLock()
	subscribers := make([]ConfigChangeSubscriber, len(s.subscribers))
	copy(subscribers, s.subscribers)
	s.mu.RUnlock()

	for _, subscriber := range subscribers {
		subscriber.OnConfigChanged(oldConfig, newConfig)
	}
}

// GetChangeHistory 获取最近的配置变更
func (s *ConfigService) GetChangeHistory(limit int) []ConfigChangeRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.changeHistory) {
		limit = len(s.changeHistory)
	}

	history := make([]ConfigChangeRecord, limit)
	startIdx := len(s.changeHistory) - limit
	copy(history, s.changeHistory[startIdx:])

	return history
}

// recordChange 记录配置变更
func (s *ConfigService) recordChange(section string, oldValue, newValue interface{}, changedBy string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := ConfigChangeRecord{
		Timestamp: time.Now(),
		ChangedBy: changedBy,
		Section:   section,
		OldValue:  oldValue,
		NewValue:  newValue,
	}

	// 限制历史记录数量，避免无限增长
	if len(s.changeHistory) >= maxChangeHistory {
		s.changeHistory = s.changeHistory[1:]
	}

	s.changeHistory = append(s.changeHistory, record)
}

// TranslatorReloader 翻译配置变更时重建远程翻译器
type TranslatorReloader struct {
	Translator *translator.Service
	Backend    *backend.Client
}

// OnConfigChanged 实现 ConfigChangeSubscriber
func (r *TranslatorReloader) OnConfigChanged(_, newConfig *config.AppConfig) {
	remote, err := translator.NewRemote(newConfig, r.Backend)
	if err != nil {
		utils.GetLogger().Warn("重建远程翻译器失败，只使用离线替换", map[string]interface{}{"error": err})
		remote = nil
	}
	r.Translator.SetRemote(remote)
}
