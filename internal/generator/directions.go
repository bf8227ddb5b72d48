// internal/generator/directions.go
package generator

import (
	"fmt"

	"github.com/prisken/content-sub000/internal/models"
)

// MinKeywords 每个骨架最多引用前 5 个关键词
const MinKeywords = 5

// 每个内容方向固定的焦点与关键词
var directionContent = map[models.Direction]models.DirectionContent{
	models.DirectionBusinessFinance: {
		Focus:    "business growth and financial strategy",
		Keywords: []string{"Investment", "Entrepreneurship", "Leadership", "Finance", "Strategy"},
	},
	models.DirectionTechnology: {
		Focus:    "emerging technology and digital innovation",
		Keywords: []string{"AI", "Automation", "Cloud Computing", "Cybersecurity", "Data"},
	},
	models.DirectionHealthWellness: {
		Focus:    "health and wellness",
		Keywords: []string{"Mindfulness", "Nutrition", "Fitness", "Mental Health", "Self Care"},
	},
	models.DirectionEducation: {
		Focus:    "learning and education",
		Keywords: []string{"Online Learning", "Skills", "Teaching", "Growth Mindset", "EdTech"},
	},
	models.DirectionEntertainment: {
		Focus:    "entertainment and pop culture",
		Keywords: []string{"Streaming", "Movies", "Music", "Gaming", "Pop Culture"},
	},
	models.DirectionTravelTourism: {
		Focus:    "travel and exploration",
		Keywords: []string{"Adventure", "Destinations", "Travel Tips", "Culture", "Wanderlust"},
	},
	models.DirectionFoodCooking: {
		Focus:    "food and cooking",
		Keywords: []string{"Recipes", "Healthy Eating", "Home Cooking", "Food Trends", "Nutrition"},
	},
	models.DirectionFashionBeauty: {
		Focus:    "fashion and beauty",
		Keywords: []string{"Style", "Sustainable Fashion", "Skincare", "Trends", "Beauty"},
	},
	models.DirectionSportsFitness: {
		Focus:    "sports and fitness",
		Keywords: []string{"Training", "Athletes", "Workout", "Performance", "Recovery"},
	},
	models.DirectionLifestyle: {
		Focus:    "modern lifestyle",
		Keywords: []string{"Productivity", "Wellbeing", "Home", "Minimalism", "Habits"},
	},
	models.DirectionScience: {
		Focus:    "scientific discovery",
		Keywords: []string{"Research", "Space", "Biology", "Physics", "Discovery"},
	},
	models.DirectionEnvironment: {
		Focus:    "sustainability and the environment",
		Keywords: []string{"Climate", "Renewable Energy", "Sustainability", "Conservation", "Green Tech"},
	},
}

// ContentFor 返回方向对应的词表副本
func ContentFor(d models.Direction) (models.DirectionContent, bool) {
	dc, ok := directionContent[d]
	if !ok {
		return models.DirectionContent{}, false
	}
	return models.DirectionContent{
		Focus:    dc.Focus,
		Keywords: append([]string(nil), dc.Keywords...),
	}, true
}

var sourceLabels = map[models.Source]string{
	models.SourceNews:        "latest news",
	models.SourceTrends:      "trending topics",
	models.SourceBooks:       "books",
	models.SourceVideos:      "videos",
	models.SourcePodcasts:    "podcasts",
	models.SourceAIDiscovery: "AI discovery",
	models.SourceResearch:    "research papers",
}

// SourceLabel 来源的英文描述
func SourceLabel(source models.Source) (string, bool) {
	label, ok := sourceLabels[source]
	return label, ok
}

// SourceSuffix 生成附在正文末尾的来源说明；来源为空时返回空串
func SourceSuffix(source models.Source, details string) string {
	label, ok := sourceLabels[source]
	if !ok {
		return ""
	}
	if details == "" {
		return fmt.Sprintf("\n\nSource: %s", label)
	}
	return fmt.Sprintf("\n\nSource: %s (%s)", label, details)
}
