// internal/models/export.go
package models

import (
	"time"
)

// ExportFormat 内容库导出格式
type ExportFormat string

const (
	ExportMarkdown ExportFormat = "markdown"
	ExportHTML     ExportFormat = "html"
	ExportText     ExportFormat = "txt"
	ExportJSON     ExportFormat = "json"
	ExportYAML     ExportFormat = "yaml"
)

// ExportFormats 支持的导出格式
func ExportFormats() []ExportFormat {
	return []ExportFormat{ExportMarkdown, ExportHTML, ExportText, ExportJSON, ExportYAML}
}

// ContentType 对应的 HTTP Content-Type
func (f ExportFormat) ContentType() string {
	switch f {
	case ExportHTML:
		return "text/html; charset=utf-8"
	case ExportJSON:
		return "application/json; charset=utf-8"
	case ExportMarkdown:
		return "text/markdown; charset=utf-8"
	case ExportYAML:
		return "application/yaml; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Extension 导出文件扩展名
func (f ExportFormat) Extension() string {
	switch f {
	case ExportMarkdown:
		return ".md"
	case ExportHTML:
		return ".html"
	case ExportJSON:
		return ".json"
	case ExportYAML:
		return ".yaml"
	default:
		return ".txt"
	}
}

// ExportResult 导出结果
type ExportResult struct {
	PostID      string       `json:"post_id"`
	Title       string       `json:"title"`
	Format      ExportFormat `json:"format"`
	Content     string       `json:"content"`
	FileName    string       `json:"file_name"`
	GeneratedAt time.Time    `json:"generated_at"`
}
