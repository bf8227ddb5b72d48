// internal/translator/fallback.go
package translator

import (
	"regexp"

	"github.com/prisken/content-sub000/internal/models"
)

// rule 一条替换规则；literal 规则的替换文本不做 $ 展开
type rule struct {
	pattern     *regexp.Regexp
	replacement string
	literal     bool
}

func literal(from, to string) rule {
	return rule{pattern: regexp.MustCompile(regexp.QuoteMeta(from)), replacement: to, literal: true}
}

func pattern(expr, to string) rule {
	return rule{pattern: regexp.MustCompile(expr), replacement: to}
}

func (r rule) apply(s string) string {
	if r.literal {
		return r.pattern.ReplaceAllLiteralString(s, r.replacement)
	}
	return r.pattern.ReplaceAllString(s, r.replacement)
}

// Fallback 远程翻译不可用时的离线替换器。只覆盖模板里固定的英文片段，
// 其他文本原样保留。规则按顺序各执行一次；重复执行不保证幂等。
type Fallback struct {
	rules []rule
}

// NewFallback 返回内置中文规则表的替换器
func NewFallback() *Fallback {
	return &Fallback{rules: zhRules}
}

// Translate en 为恒等；zh 依次应用规则；其他语言原样返回
func (f *Fallback) Translate(content string, lang models.Language) string {
	if lang != models.LanguageZH {
		return content
	}
	for _, r := range f.rules {
		content = r.apply(content)
	}
	return content
}

// 规则的替换文本均为中文，不会被后续英文规则再次匹配
var zhRules = []rule{
	// Facebook
	literal("Hey friends! ", "朋友们好！"),
	literal("I've been diving deep into ", "我最近一直在深入研究"),
	literal(" lately and wanted to share what I've learned.", "，想和大家分享我的收获。"),
	literal(" is more accessible than you think", "比你想象的更容易上手"),
	literal(" can make a real difference in everyday life", "能为日常生活带来真正的改变"),
	literal("Don't overlook ", "不要忽视"),

	// LinkedIn
	literal(": What Every Professional Should Know", "：每位职场人士都应该知道的事"),
	pattern(`The landscape of (.+?) is evolving faster than ever\. Here are 3 key insights:`,
		"${1}领域的变化比以往任何时候都快。以下是 3 个关键洞察："),
	literal(" is reshaping how teams deliver value", "正在重塑团队创造价值的方式"),
	literal(" are becoming essential skills", "正在成为必备技能"),
	literal("Leaders who embrace ", "拥抱"),
	literal(" gain a lasting advantage", "的领导者将获得持久优势"),

	// Instagram
	literal("Swipe through for today's inspiration 👉", "滑动查看今日灵感 👉"),
	literal("Double tap if you agree! ❤️", "同意就双击吧！❤️"),

	// Twitter / X
	literal(" is changing everything in ", "正在彻底改变"),
	literal(" = the future 🚀", " = 未来 🚀"),

	// 短视频脚本
	literal("🎬 SHORT VIDEO SCRIPT: ", "🎬 短视频脚本："),
	literal("[HOOK - ", "[开场 - "),
	literal("[MAIN CONTENT - ", "[主要内容 - "),
	literal("[CALL TO ACTION - ", "[行动号召 - "),
	pattern(`Stop scrolling! This will change how you think about (.+?)\.`, "别划走！这会改变你对${1}的看法。"),
	pattern(`Point (\d+): `, "要点 ${1}："),

	// 博客
	pattern(`(?m)^# The Complete Guide to (.+)$`, "# ${1}完全指南"),
	literal("## Introduction", "## 引言"),
	literal("## Key Insights", "## 关键洞察"),
	literal("## Conclusion", "## 结论"),
	literal(" is transforming the way we live and work. In this guide, we explore the key ideas you need to know.",
		"正在改变我们的生活和工作方式。在本指南中，我们将探讨你需要了解的关键理念。"),
	pattern(`Understanding (.+?) is the foundation of success in (.+?)\.`, "理解${1}是在${2}领域取得成功的基础。"),
	literal(" opens new opportunities for growth.", "为成长带来新的机遇。"),
	pattern(`Combining (.+?) with (.+?) creates lasting impact\.`, "将${1}与${2}结合能产生持久的影响。"),
	literal("Tags: ", "标签："),

	// 平台默认 CTA
	literal("What's your experience? Share your thoughts in the comments below.", "你有什么经验？欢迎在评论区分享你的想法。"),
	literal("What do you think? Let me know in the comments! 💬", "你怎么看？在评论区告诉我吧！💬"),
	literal("Save this post for later 📌", "收藏这篇帖子，稍后再看 📌"),
	literal("What's your take? 👇", "你怎么看？👇"),
	literal("Follow for more tips like this!", "关注我获取更多类似技巧！"),
	literal("Ready to get started? Share this guide with someone who needs it.", "准备好开始了吗？把这份指南分享给需要的人吧。"),

	// 语气 CTA
	literal("What's your perspective? Share your insights in the comments.", "你的观点是什么？欢迎在评论区分享你的见解。"),
	literal("What do you think? Drop a comment below! 👇", "你觉得呢？在下面留言吧！👇"),
	literal("Your journey starts today. Take the first step! 🌟", "你的旅程从今天开始，迈出第一步吧！🌟"),
	literal("Save this post and share it with someone who's learning too. 📚", "收藏这篇帖子，并分享给同样在学习的人。📚"),
	literal("Tag a friend who needs to see this! 😂", "快@一位需要看到这个的朋友！😂"),
	literal("This matters. Let's start an honest conversation.", "这很重要，让我们坦诚地聊一聊。"),

	// 来源说明
	literal("Source: latest news", "来源：最新新闻"),
	literal("Source: trending topics", "来源：热门趋势"),
	literal("Source: books", "来源：书籍"),
	literal("Source: videos", "来源：视频"),
	literal("Source: podcasts", "来源：播客"),
	literal("Source: AI discovery", "来源：AI 发现"),
	literal("Source: research papers", "来源：研究论文"),
	literal("Source: ", "来源："),

	// 方向焦点（标题中首字母大写）
	pattern(`(?i)business growth and financial strategy`, "商业增长与财务战略"),
	pattern(`(?i)emerging technology and digital innovation`, "新兴科技与数字创新"),
	pattern(`(?i)health and wellness`, "健康与养生"),
	pattern(`(?i)learning and education`, "学习与教育"),
	pattern(`(?i)entertainment and pop culture`, "娱乐与流行文化"),
	pattern(`(?i)travel and exploration`, "旅行与探索"),
	pattern(`(?i)food and cooking`, "美食与烹饪"),
	pattern(`(?i)fashion and beauty`, "时尚与美容"),
	pattern(`(?i)sports and fitness`, "运动与健身"),
	pattern(`(?i)modern lifestyle`, "现代生活方式"),
	pattern(`(?i)scientific discovery`, "科学发现"),
	pattern(`(?i)sustainability and the environment`, "可持续发展与环境"),
}
