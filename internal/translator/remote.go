// internal/translator/remote.go
package translator

import (
	"context"
	"fmt"
	"strings"

	"github.com/prisken/content-sub000/internal/backend"
	"github.com/prisken/content-sub000/internal/config"
	"github.com/prisken/content-sub000/internal/llm"
	_ "github.com/prisken/content-sub000/internal/llm/providers/openai"
)

var languageNames = map[string]string{
	"en": "English",
	"zh": "Simplified Chinese",
}

const translatePrompt = "You translate social media posts. Keep emojis, hashtags, markdown and line breaks unchanged. " +
	"Reply with the translation only."

// LLMRemote 通过大模型提供者翻译
type LLMRemote struct {
	provider llm.Provider
}

func NewLLMRemote(p llm.Provider) *LLMRemote {
	return &LLMRemote{provider: p}
}

func (r *LLMRemote) Translate(ctx context.Context, content, targetLang, sourceLang string) (string, error) {
	name, ok := languageNames[targetLang]
	if !ok {
		name = targetLang
	}
	prompt := fmt.Sprintf("Translate into %s:\n\n%s", name, content)
	if from, ok := languageNames[sourceLang]; ok {
		prompt = fmt.Sprintf("Translate from %s into %s:\n\n%s", from, name, content)
	}

	resp, err := r.provider.CompleteText(ctx, llm.CompletionRequest{
		SystemPrompt: translatePrompt,
		Prompt:       prompt,
		Temperature:  0.2,
	})
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", fmt.Errorf("%s returned an empty translation", r.provider.GetName())
	}
	return text, nil
}

// NewRemote 按配置选择远程翻译器；返回 nil 表示只用离线替换
func NewRemote(cfg *config.AppConfig, client *backend.Client) (Remote, error) {
	switch cfg.Translator {
	case config.TranslatorBackend:
		if !client.Enabled() {
			return nil, nil
		}
		return client, nil
	case config.TranslatorOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, nil
		}
		p, err := llm.GetProvider("openai", map[string]string{
			"api_key":       cfg.OpenAIAPIKey,
			"default_model": cfg.OpenAIModel,
			"base_url":      cfg.OpenAIBaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("初始化 OpenAI 翻译失败: %w", err)
		}
		return NewLLMRemote(p), nil
	default:
		return nil, nil
	}
}
