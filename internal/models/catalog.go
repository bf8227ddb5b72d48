// internal/models/catalog.go
package models

import (
	"slices"
	"strings"
)

// Direction 内容方向（向导第一步）
type Direction string

const (
	DirectionBusinessFinance Direction = "business_finance"
	DirectionTechnology      Direction = "technology"
	DirectionHealthWellness  Direction = "health_wellness"
	DirectionEducation       Direction = "education"
	DirectionEntertainment   Direction = "entertainment"
	DirectionTravelTourism   Direction = "travel_tourism"
	DirectionFoodCooking     Direction = "food_cooking"
	DirectionFashionBeauty   Direction = "fashion_beauty"
	DirectionSportsFitness   Direction = "sports_fitness"
	DirectionLifestyle       Direction = "lifestyle"
	DirectionScience         Direction = "science"
	DirectionEnvironment     Direction = "environment"
)

// Platform 目标发布平台
type Platform string

const (
	PlatformLinkedIn      Platform = "linkedin"
	PlatformFacebook      Platform = "facebook"
	PlatformInstagram     Platform = "instagram"
	PlatformTwitter       Platform = "twitter"
	PlatformYouTubeShorts Platform = "youtube_shorts"
	PlatformBlog          Platform = "blog"
)

// PostType 平台内的内容形式，合法取值取决于 Platform
type PostType string

// Source 选题灵感来源
type Source string

const (
	SourceNews        Source = "news"
	SourceTrends      Source = "trends"
	SourceBooks       Source = "books"
	SourceVideos      Source = "videos"
	SourcePodcasts    Source = "podcasts"
	SourceAIDiscovery Source = "ai_discovery"
	SourceResearch    Source = "research"
)

// Tone 文案语气
type Tone string

const (
	ToneProfessional  Tone = "professional"
	ToneCasual        Tone = "casual"
	ToneInspirational Tone = "inspirational"
	ToneEducational   Tone = "educational"
	ToneEntertaining  Tone = "entertaining"
	ToneSerious       Tone = "serious"
)

// ImageStyle 配图风格
type ImageStyle string

const (
	ImageStyleModern         ImageStyle = "modern"
	ImageStyleMinimalist     ImageStyle = "minimalist"
	ImageStyleVibrant        ImageStyle = "vibrant"
	ImageStyleProfessional   ImageStyle = "professional"
	ImageStyleArtistic       ImageStyle = "artistic"
	ImageStylePhotorealistic ImageStyle = "photorealistic"

	DefaultImageStyle = ImageStyleModern
)

// Language 界面与译文语言
type Language string

const (
	LanguageEN Language = "en"
	LanguageZH Language = "zh"

	DefaultLanguage = LanguageEN
)

var (
	directions = []Direction{
		DirectionBusinessFinance, DirectionTechnology, DirectionHealthWellness,
		DirectionEducation, DirectionEntertainment, DirectionTravelTourism,
		DirectionFoodCooking, DirectionFashionBeauty, DirectionSportsFitness,
		DirectionLifestyle, DirectionScience, DirectionEnvironment,
	}

	platforms = []Platform{
		PlatformLinkedIn, PlatformFacebook, PlatformInstagram,
		PlatformTwitter, PlatformYouTubeShorts, PlatformBlog,
	}

	// 每个平台允许的内容形式，第一个为默认值
	postTypes = map[Platform][]PostType{
		PlatformLinkedIn:      {"posts", "articles"},
		PlatformFacebook:      {"posts", "stories"},
		PlatformInstagram:     {"posts", "reels", "stories"},
		PlatformTwitter:       {"tweets", "threads"},
		PlatformYouTubeShorts: {"scripts"},
		PlatformBlog:          {"articles"},
	}

	sources = []Source{
		SourceNews, SourceTrends, SourceBooks, SourceVideos,
		SourcePodcasts, SourceAIDiscovery, SourceResearch,
	}

	tones = []Tone{
		ToneProfessional, ToneCasual, ToneInspirational,
		ToneEducational, ToneEntertaining, ToneSerious,
	}

	imageStyles = []ImageStyle{
		ImageStyleModern, ImageStyleMinimalist, ImageStyleVibrant,
		ImageStyleProfessional, ImageStyleArtistic, ImageStylePhotorealistic,
	}
)

// Directions 返回所有内容方向
func Directions() []Direction { return slices.Clone(directions) }

// Platforms 返回所有平台
func Platforms() []Platform { return slices.Clone(platforms) }

// Sources 返回所有灵感来源
func Sources() []Source { return slices.Clone(sources) }

// Tones 返回所有语气
func Tones() []Tone { return slices.Clone(tones) }

// ImageStyles 返回所有配图风格
func ImageStyles() []ImageStyle { return slices.Clone(imageStyles) }

// PostTypesFor 返回平台允许的内容形式；未知平台返回 nil
func PostTypesFor(p Platform) []PostType {
	return slices.Clone(postTypes[p])
}

func (d Direction) Valid() bool  { return slices.Contains(directions, d) }
func (p Platform) Valid() bool   { return slices.Contains(platforms, p) }
func (s Source) Valid() bool     { return slices.Contains(sources, s) }
func (t Tone) Valid() bool       { return slices.Contains(tones, t) }
func (s ImageStyle) Valid() bool { return slices.Contains(imageStyles, s) }

// ValidFor 判断内容形式是否属于该平台
func (pt PostType) ValidFor(p Platform) bool {
	return slices.Contains(postTypes[p], pt)
}

// Valid reports whether l is one of the supported UI languages.
func (l Language) Valid() bool {
	return l == LanguageEN || l == LanguageZH
}

// NormalizeLanguage 把不支持的语言标记折叠为默认语言
func NormalizeLanguage(tag string) Language {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if len(tag) > 2 {
		// "zh-CN", "en_US" 之类
		tag = tag[:2]
	}
	l := Language(tag)
	if l.Valid() {
		return l
	}
	return DefaultLanguage
}
