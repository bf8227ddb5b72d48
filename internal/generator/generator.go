// internal/generator/generator.go
package generator

import (
	stderrors "errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/prisken/content-sub000/internal/errors"
	"github.com/prisken/content-sub000/internal/models"
)

// FailureNotice 未知平台时 Render 返回的固定提示
const FailureNotice = "Sorry, content generation is not available for this platform yet."

// ErrUnsupportedPlatform 模板表中没有该平台
var ErrUnsupportedPlatform = stderrors.New("unsupported platform")

// input 骨架函数的输入，Keywords 至少 MinKeywords 个
type input struct {
	Focus    string
	Keywords []string
	CTA      string
	Suffix   string
}

type skeleton struct {
	cta    string
	render func(in input) string
}

// 每个平台一个纯函数骨架
var skeletons = map[models.Platform]skeleton{
	models.PlatformLinkedIn: {
		cta:    "What's your experience? Share your thoughts in the comments below.",
		render: linkedIn,
	},
	models.PlatformFacebook: {
		cta:    "What do you think? Let me know in the comments! 💬",
		render: facebook,
	},
	models.PlatformInstagram: {
		cta:    "Save this post for later 📌",
		render: instagram,
	},
	models.PlatformTwitter: {
		cta:    "What's your take? 👇",
		render: twitter,
	},
	models.PlatformYouTubeShorts: {
		cta:    "Follow for more tips like this!",
		render: youtubeShorts,
	},
	models.PlatformBlog: {
		cta:    "Ready to get started? Share this guide with someone who needs it.",
		render: blog,
	},
}

// 语气只改写 CTA 一行
var toneCTA = map[models.Tone]string{
	models.ToneProfessional:  "What's your perspective? Share your insights in the comments.",
	models.ToneCasual:        "What do you think? Drop a comment below! 👇",
	models.ToneInspirational: "Your journey starts today. Take the first step! 🌟",
	models.ToneEducational:   "Save this post and share it with someone who's learning too. 📚",
	models.ToneEntertaining:  "Tag a friend who needs to see this! 😂",
	models.ToneSerious:       "This matters. Let's start an honest conversation.",
}

// Supported 平台是否有模板
func Supported(p models.Platform) bool {
	_, ok := skeletons[p]
	return ok
}

// Generate 按平台骨架生成正文，结果只取决于输入
func Generate(p models.Platform, dc models.DirectionContent, suffix string) (string, error) {
	return GenerateWithTone(p, dc, suffix, "")
}

// GenerateWithTone 与 Generate 相同，但按语气替换 CTA；空语气使用平台默认 CTA
func GenerateWithTone(p models.Platform, dc models.DirectionContent, suffix string, tone models.Tone) (string, error) {
	sk, ok := skeletons[p]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedPlatform, p)
	}
	if len(dc.Keywords) < MinKeywords {
		return "", errors.NewValidationError(
			fmt.Sprintf("need at least %d keywords, got %d", MinKeywords, len(dc.Keywords)), nil)
	}

	cta := sk.cta
	if line, ok := toneCTA[tone]; ok {
		cta = line
	}
	return sk.render(input{
		Focus:    dc.Focus,
		Keywords: dc.Keywords,
		CTA:      cta,
		Suffix:   suffix,
	}), nil
}

// Render 降级包装：未知平台返回 FailureNotice 而不是错误
func Render(p models.Platform, dc models.DirectionContent, suffix string) string {
	text, err := Generate(p, dc, suffix)
	if err != nil {
		return FailureNotice
	}
	return text
}

// Compose 根据完整的向导选择在本地生成内容；CreatedAt 由调用方填写
func Compose(sel models.WizardSelection) (models.GeneratedContent, error) {
	if !sel.Platform.Valid() || !Supported(sel.Platform) {
		return models.GeneratedContent{}, errors.NewUnsupportedPlatformError(string(sel.Platform))
	}
	dc, ok := ContentFor(sel.Direction)
	if !ok {
		return models.GeneratedContent{}, errors.NewValidationError(
			fmt.Sprintf("unknown direction %q", sel.Direction), nil)
	}

	text, err := GenerateWithTone(sel.Platform, dc, SourceSuffix(sel.Source, sel.SourceDetails), sel.Tone)
	if err != nil {
		return models.GeneratedContent{}, err
	}
	return models.GeneratedContent{
		Text:        text,
		Platform:    sel.Platform,
		LanguageTag: models.LanguageEN,
		Hashtags:    ExtractHashtags(text),
		Origin:      models.OriginLocal,
	}, nil
}

// Hashtags 取前 n 个关键词，去掉空白后加上 #
func Hashtags(keywords []string, n int) []string {
	if n > len(keywords) {
		n = len(keywords)
	}
	tags := make([]string, 0, n)
	for _, kw := range keywords[:n] {
		tags = append(tags, Hashtag(kw))
	}
	return tags
}

// Hashtag "Cloud Computing" → "#CloudComputing"
func Hashtag(keyword string) string {
	return "#" + strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, keyword)
}

var hashtagPattern = regexp.MustCompile(`#[\p{L}\p{N}_]+`)

// ExtractHashtags 按出现顺序返回正文中的话题标签（去重）
func ExtractHashtags(text string) []string {
	seen := make(map[string]bool)
	var tags []string
	for _, tag := range hashtagPattern.FindAllString(text, -1) {
		if !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	return tags
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func linkedIn(in input) string {
	k := in.Keywords
	var b strings.Builder
	fmt.Fprintf(&b, "🚀 %s: What Every Professional Should Know\n\n", capitalize(in.Focus))
	fmt.Fprintf(&b, "The landscape of %s is evolving faster than ever. Here are 3 key insights:\n\n", in.Focus)
	fmt.Fprintf(&b, "1️⃣ %s is reshaping how teams deliver value\n", k[0])
	fmt.Fprintf(&b, "2️⃣ %s and %s are becoming essential skills\n", k[1], k[2])
	fmt.Fprintf(&b, "3️⃣ Leaders who embrace %s gain a lasting advantage\n\n", k[3])
	b.WriteString(in.CTA + "\n\n")
	b.WriteString(strings.Join(Hashtags(k, 5), " "))
	b.WriteString(in.Suffix)
	return b.String()
}

func facebook(in input) string {
	k := in.Keywords
	var b strings.Builder
	b.WriteString("Hey friends! 👋\n\n")
	fmt.Fprintf(&b, "I've been diving deep into %s lately and wanted to share what I've learned.\n\n", in.Focus)
	fmt.Fprintf(&b, "💡 %s is more accessible than you think\n", k[0])
	fmt.Fprintf(&b, "💡 %s can make a real difference in everyday life\n", k[1])
	fmt.Fprintf(&b, "💡 Don't overlook %s!\n\n", k[2])
	b.WriteString(in.CTA + "\n\n")
	b.WriteString(strings.Join(Hashtags(k, 3), " "))
	b.WriteString(in.Suffix)
	return b.String()
}

func instagram(in input) string {
	k := in.Keywords
	var b strings.Builder
	fmt.Fprintf(&b, "✨ %s ✨\n\n", capitalize(in.Focus))
	b.WriteString("Swipe through for today's inspiration 👉\n\n")
	for _, kw := range k[:4] {
		fmt.Fprintf(&b, "🔹 %s\n", kw)
	}
	b.WriteString("\n" + in.CTA + "\n\n")
	b.WriteString("Double tap if you agree! ❤️\n\n")
	b.WriteString(strings.Join(Hashtags(k, 5), " "))
	b.WriteString(" #InstaDaily #Inspiration")
	b.WriteString(in.Suffix)
	return b.String()
}

func twitter(in input) string {
	k := in.Keywords
	var b strings.Builder
	fmt.Fprintf(&b, "🔥 %s is changing everything in %s!\n\n", k[0], in.Focus)
	fmt.Fprintf(&b, "%s + %s = the future 🚀\n\n", k[1], k[2])
	b.WriteString(in.CTA + "\n\n")
	b.WriteString(strings.Join(Hashtags(k, 2), " "))
	b.WriteString(" #Innovation #Trending")
	b.WriteString(in.Suffix)
	return b.String()
}

func youtubeShorts(in input) string {
	k := in.Keywords
	var b strings.Builder
	fmt.Fprintf(&b, "🎬 SHORT VIDEO SCRIPT: %s\n\n", capitalize(in.Focus))
	b.WriteString("[HOOK - 0:00-0:03]\n")
	fmt.Fprintf(&b, "\"Stop scrolling! This will change how you think about %s.\"\n\n", in.Focus)
	b.WriteString("[MAIN CONTENT - 0:03-0:45]\n")
	for i, kw := range k[:3] {
		fmt.Fprintf(&b, "• Point %d: %s\n", i+1, kw)
	}
	b.WriteString("\n[CALL TO ACTION - 0:45-0:60]\n")
	fmt.Fprintf(&b, "\"%s\"\n\n", in.CTA)
	b.WriteString(strings.Join(Hashtags(k, 3), " "))
	b.WriteString(" #Shorts")
	b.WriteString(in.Suffix)
	return b.String()
}

func blog(in input) string {
	k := in.Keywords
	focus := capitalize(in.Focus)
	var b strings.Builder
	fmt.Fprintf(&b, "# The Complete Guide to %s\n\n", focus)
	b.WriteString("## Introduction\n\n")
	fmt.Fprintf(&b, "%s is transforming the way we live and work. In this guide, we explore the key ideas you need to know.\n\n", focus)
	b.WriteString("## Key Insights\n\n")
	fmt.Fprintf(&b, "### 1. %s\n\nUnderstanding %s is the foundation of success in %s.\n\n", k[0], k[0], in.Focus)
	fmt.Fprintf(&b, "### 2. %s\n\n%s opens new opportunities for growth.\n\n", k[1], k[1])
	fmt.Fprintf(&b, "### 3. %s\n\nCombining %s with %s creates lasting impact.\n\n", k[2], k[2], k[3])
	b.WriteString("## Conclusion\n\n")
	b.WriteString(in.CTA + "\n\n")
	b.WriteString("Tags: " + strings.Join(Hashtags(k, 5), " "))
	b.WriteString(in.Suffix)
	return b.String()
}
