// internal/models/content.go
package models

import "time"

// WizardSelection 一次生成会话中用户累积的选择
type WizardSelection struct {
	Direction     Direction  `json:"direction"`
	Platform      Platform   `json:"platform"`
	PostType      PostType   `json:"postType"`
	Source        Source     `json:"source"`
	SourceDetails string     `json:"sourceDetails,omitempty"`
	SelectedTopic string     `json:"selectedTopic"`
	Tone          Tone       `json:"tone"`
	ImageStyle    ImageStyle `json:"imageStyle"`
	Language      Language   `json:"language"`
}

// Complete 六个必填字段均非空时才允许生成
func (s WizardSelection) Complete() bool {
	return s.Direction != "" &&
		s.Platform != "" &&
		s.PostType != "" &&
		s.Source != "" &&
		s.SelectedTopic != "" &&
		s.Tone != ""
}

// ContentOrigin 内容产生方式
type ContentOrigin string

const (
	OriginLocal   ContentOrigin = "local"
	OriginBackend ContentOrigin = "backend"
)

// GeneratedContent 一次生成的结果，产出后不可修改，重新生成时整体替换
type GeneratedContent struct {
	Text        string        `json:"text"`
	Platform    Platform      `json:"platform"`
	LanguageTag Language      `json:"languageTag"`
	Hashtags    []string      `json:"hashtags,omitempty"`
	Images      []ImageRef    `json:"images,omitempty"`
	Origin      ContentOrigin `json:"origin"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// ImageRef 后端返回的配图
type ImageRef struct {
	URL    string `json:"url"`
	Prompt string `json:"prompt,omitempty"`
	Style  string `json:"style,omitempty"`
}

// LimitStatus 字数限制提示分类
type LimitStatus string

const (
	LimitUnder   LimitStatus = "under"
	LimitNear    LimitStatus = "near"
	LimitOver    LimitStatus = "over"
	LimitNoLimit LimitStatus = "no_limit"
)

// LengthReport 派生的长度信息，不落盘
type LengthReport struct {
	Characters int         `json:"characters"`
	Limit      *int        `json:"limit"`
	Status     LimitStatus `json:"status"`
}

// DirectionContent 模板生成器的输入：方向焦点与关键词
type DirectionContent struct {
	Focus    string   `json:"focus"`
	Keywords []string `json:"keywords"`
}

// Topic 候选选题
type Topic struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	TrendingScore *float64 `json:"trending_score,omitempty"`
}

// Post 用户内容库中保存的一条内容
type Post struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Selection WizardSelection  `json:"selection"`
	Content   GeneratedContent `json:"content"`
	CreatedAt time.Time        `json:"created_at"`
}
