// internal/generator/limits.go
package generator

import (
	"unicode/utf8"

	"github.com/prisken/content-sub000/internal/models"
)

// 平台字数上限；不在表中的平台（短视频脚本、博客）没有上限
var platformLimits = map[models.Platform]int{
	models.PlatformLinkedIn:  1300,
	models.PlatformFacebook:  63206,
	models.PlatformInstagram: 2200,
	models.PlatformTwitter:   280,
}

// Limit 返回平台的字符上限
func Limit(p models.Platform) (int, bool) {
	l, ok := platformLimits[p]
	return l, ok
}

// Classify 按字符（rune）数给出提示，仅供展示，不阻止生成
func Classify(content string, p models.Platform) models.LengthReport {
	n := utf8.RuneCountInString(content)
	limit, ok := Limit(p)
	if !ok {
		return models.LengthReport{Characters: n, Status: models.LimitNoLimit}
	}

	report := models.LengthReport{Characters: n, Limit: &limit}
	switch {
	case n > limit:
		report.Status = models.LimitOver
	case n*10 > limit*9:
		report.Status = models.LimitNear
	default:
		report.Status = models.LimitUnder
	}
	return report
}
