package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prisken/content-sub000/internal/models"
)

func TestMissingKeyReturnsKey(t *testing.T) {
	c := MustLoad()
	for _, lang := range []string{"en", "zh"} {
		l := c.Localizer(lang)
		assert.Equal(t, "no.such.key", l.T("no.such.key"))
		assert.Equal(t, "", l.T(""))
	}

	var nilLocalizer *Localizer
	assert.Equal(t, "wizard.next", nilLocalizer.T("wizard.next"))
}

func TestLocalizerIsFullSwap(t *testing.T) {
	c := NewCatalog(map[models.Language]map[string]string{
		models.LanguageEN: {"greeting": "Hello", "only.en": "English only"},
		models.LanguageZH: {"greeting": "你好"},
	})

	en := c.Localizer("en")
	zh := c.Localizer("zh")

	assert.Equal(t, "Hello", en.T("greeting"))
	assert.Equal(t, "你好", zh.T("greeting"))
	// 切换语言后不会回退到英文词典
	assert.Equal(t, "only.en", zh.T("only.en"))
}

func TestUnsupportedLanguageUsesDefault(t *testing.T) {
	c := MustLoad()

	assert.Equal(t, models.LanguageEN, c.Localizer("fr").Lang())
	assert.Equal(t, models.LanguageZH, c.Localizer("zh-CN").Lang())
	assert.Equal(t, c.Localizer("en").T("wizard.next"), c.Localizer("").T("wizard.next"))
}

func TestTf(t *testing.T) {
	c := MustLoad()

	assert.Equal(t, "42 characters", c.Localizer("en").Tf("limit.characters", 42))
	assert.Equal(t, "42 个字符", c.Localizer("zh").Tf("limit.characters", 42))
	assert.Equal(t, "missing", c.Localizer("en").Tf("missing", 1))
}

func TestDictionaryIsCopy(t *testing.T) {
	c := MustLoad()

	dict := c.Dictionary("en")
	dict["wizard.next"] = "mutated"

	assert.Equal(t, "Next", c.Localizer("en").T("wizard.next"))
}

func TestLocalesHaveSameKeys(t *testing.T) {
	c := MustLoad()
	assert.Equal(t, c.Keys("en"), c.Keys("zh"))
}

func TestCatalogLabelsCoverEnums(t *testing.T) {
	c := MustLoad()
	dict := c.Dictionary("zh")

	var missing []string
	check := func(key string) {
		if _, ok := dict[key]; !ok {
			missing = append(missing, key)
		}
	}
	for _, d := range models.Directions() {
		check("direction." + string(d))
	}
	for _, p := range models.Platforms() {
		check("platform." + string(p))
		for _, pt := range models.PostTypesFor(p) {
			check("post_type." + string(pt))
		}
	}
	for _, s := range models.Sources() {
		check("source." + string(s))
	}
	for _, tone := range models.Tones() {
		check("tone." + string(tone))
	}
	for _, s := range models.ImageStyles() {
		check("image_style." + string(s))
	}
	require.Empty(t, missing)
}
