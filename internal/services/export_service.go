// internal/services/export_service.go
package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"gopkg.in/yaml.v3"

	"github.com/prisken/content-sub000/internal/errors"
	"github.com/prisken/content-sub000/internal/generator"
	"github.com/prisken/content-sub000/internal/i18n"
	"github.com/prisken/content-sub000/internal/models"
)

// ExportService 把内容库中的帖子导出为 markdown、html、txt、json 或 yaml
type ExportService struct {
	markdown goldmark.Markdown
}

func NewExportService() *ExportService {
	return &ExportService{
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.Linkify),
			// 社交平台文案按行排版，换行需要保留
			goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
		),
	}
}

// ParseExportFormat 解析导出格式，空串为 markdown
func ParseExportFormat(raw string) (models.ExportFormat, error) {
	f := models.ExportFormat(strings.ToLower(strings.TrimSpace(raw)))
	switch f {
	case "", "md":
		return models.ExportMarkdown, nil
	case "yml":
		return models.ExportYAML, nil
	}
	for _, supported := range models.ExportFormats() {
		if f == supported {
			return f, nil
		}
	}
	return "", errors.NewValidationError(
		fmt.Sprintf("不支持的导出格式: %s，支持的格式: %v", raw, models.ExportFormats()), nil)
}

// ExportPost 导出单条帖子；loc 决定标签文字的语言
func (s *ExportService) ExportPost(post *models.Post, format models.ExportFormat, loc *i18n.Localizer) (*models.ExportResult, error) {
	if post == nil {
		return nil, errors.NewValidationError("post is required", nil)
	}

	title := exportTitle(post, loc)
	var (
		content string
		err     error
	)
	switch format {
	case models.ExportMarkdown:
		content = s.formatAsMarkdown(post, title, loc)
	case models.ExportHTML:
		content, err = s.formatAsHTML(post, title, loc)
	case models.ExportText:
		content = s.formatAsText(post, title, loc)
	case models.ExportJSON:
		content, err = s.formatAsJSON(post)
	case models.ExportYAML:
		content, err = s.formatAsYAML(post, title)
	default:
		return nil, errors.NewValidationError(fmt.Sprintf("不支持的导出格式: %s", format), nil)
	}
	if err != nil {
		return nil, errors.NewProcessingError("格式化导出内容失败", err)
	}

	return &models.ExportResult{
		PostID:      post.ID,
		Title:       title,
		Format:      format,
		Content:     content,
		FileName:    fmt.Sprintf("%s-%s%s", post.Content.Platform, shortID(post.ID), format.Extension()),
		GeneratedAt: time.Now(),
	}, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func exportTitle(post *models.Post, loc *i18n.Localizer) string {
	if topic := strings.TrimSpace(post.Selection.SelectedTopic); topic != "" {
		return topic
	}
	return loc.T("platform." + string(post.Content.Platform))
}

// metaLines 导出时附带的选择信息
func metaLines(post *models.Post, loc *i18n.Localizer) [][2]string {
	sel := post.Selection
	lines := [][2]string{
		{loc.T("label.platform"), loc.T("platform." + string(post.Content.Platform))},
	}
	if sel.Direction != "" {
		lines = append(lines, [2]string{loc.T("label.direction"), loc.T("direction." + string(sel.Direction))})
	}
	if sel.Tone != "" {
		lines = append(lines, [2]string{loc.T("label.tone"), loc.T("tone." + string(sel.Tone))})
	}
	length := generator.Classify(post.Content.Text, post.Content.Platform)
	lines = append(lines, [2]string{"", loc.Tf("limit.characters", length.Characters)})
	return lines
}

func (s *ExportService) formatAsMarkdown(post *models.Post, title string, loc *i18n.Localizer) string {
	var content strings.Builder

	content.WriteString("# " + title + "\n\n")
	for _, kv := range metaLines(post, loc) {
		if kv[0] == "" {
			content.WriteString("- " + kv[1] + "\n")
			continue
		}
		content.WriteString(fmt.Sprintf("- **%s:** %s\n", kv[0], kv[1]))
	}
	content.WriteString("\n---\n\n")
	content.WriteString(post.Content.Text)
	content.WriteString("\n")

	for _, img := range post.Content.Images {
		if img.URL != "" {
			content.WriteString(fmt.Sprintf("\n![%s](%s)\n", img.Prompt, img.URL))
		}
	}
	return content.String()
}

func (s *ExportService) formatAsHTML(post *models.Post, title string, loc *i18n.Localizer) (string, error) {
	var body bytes.Buffer
	if err := s.markdown.Convert([]byte(s.formatAsMarkdown(post, title, loc)), &body); err != nil {
		return "", err
	}

	var content strings.Builder
	content.WriteString("<!DOCTYPE html>\n<html lang=\"" + string(loc.Lang()) + "\">\n<head>\n")
	content.WriteString("<meta charset=\"UTF-8\">\n")
	content.WriteString("<title>" + html.EscapeString(title) + "</title>\n")
	content.WriteString("</head>\n<body>\n")
	content.Write(body.Bytes())
	content.WriteString("</body>\n</html>\n")
	return content.String(), nil
}

func (s *ExportService) formatAsText(post *models.Post, title string, loc *i18n.Localizer) string {
	var content strings.Builder

	content.WriteString(title + "\n")
	content.WriteString(strings.Repeat("=", 40) + "\n")
	for _, kv := range metaLines(post, loc) {
		if kv[0] == "" {
			content.WriteString(kv[1] + "\n")
			continue
		}
		content.WriteString(kv[0] + ": " + kv[1] + "\n")
	}
	content.WriteString("\n" + post.Content.Text + "\n")
	return content.String()
}

func (s *ExportService) formatAsJSON(post *models.Post) (string, error) {
	data, err := json.MarshalIndent(post, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// yamlPost 给排期工具用的扁平结构
type yamlPost struct {
	ID         string    `yaml:"id"`
	Title      string    `yaml:"title"`
	Platform   string    `yaml:"platform"`
	PostType   string    `yaml:"post_type,omitempty"`
	Direction  string    `yaml:"direction,omitempty"`
	Tone       string    `yaml:"tone,omitempty"`
	Language   string    `yaml:"language,omitempty"`
	Characters int       `yaml:"characters"`
	Text       string    `yaml:"text"`
	Hashtags   []string  `yaml:"hashtags,omitempty"`
	Images     []string  `yaml:"images,omitempty"`
	CreatedAt  time.Time `yaml:"created_at"`
}

func (s *ExportService) formatAsYAML(post *models.Post, title string) (string, error) {
	doc := yamlPost{
		ID:         post.ID,
		Title:      title,
		Platform:   string(post.Content.Platform),
		PostType:   string(post.Selection.PostType),
		Direction:  string(post.Selection.Direction),
		Tone:       string(post.Selection.Tone),
		Language:   string(post.Content.LanguageTag),
		Characters: generator.Classify(post.Content.Text, post.Content.Platform).Characters,
		Text:       post.Content.Text,
		Hashtags:   post.Content.Hashtags,
		CreatedAt:  post.CreatedAt,
	}
	for _, img := range post.Content.Images {
		if img.URL != "" {
			doc.Images = append(doc.Images, img.URL)
		}
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
