// internal/i18n/catalog.go
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/prisken/content-sub000/internal/models"
)

//go:embed locales/*.json
var localeFS embed.FS

// Catalog 是启动时加载一次的 (语言, 键) → 文本 词典，加载后只读
type Catalog struct {
	tables map[models.Language]map[string]string
}

// Load 读取内嵌的 locales/<lang>.json
func Load() (*Catalog, error) {
	tables := make(map[models.Language]map[string]string)
	for _, lang := range []models.Language{models.LanguageEN, models.LanguageZH} {
		raw, err := localeFS.ReadFile(path.Join("locales", string(lang)+".json"))
		if err != nil {
			return nil, fmt.Errorf("读取语言文件 %s 失败: %w", lang, err)
		}
		table := make(map[string]string)
		if err := json.Unmarshal(raw, &table); err != nil {
			return nil, fmt.Errorf("解析语言文件 %s 失败: %w", lang, err)
		}
		tables[lang] = table
	}
	return &Catalog{tables: tables}, nil
}

// MustLoad 与 Load 相同，失败时 panic（内嵌资源损坏属于构建错误）
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

// NewCatalog 用给定的表构建词典，表会被复制
func NewCatalog(tables map[models.Language]map[string]string) *Catalog {
	c := &Catalog{tables: make(map[models.Language]map[string]string, len(tables))}
	for lang, table := range tables {
		c.tables[lang] = copyTable(table)
	}
	return c
}

// Localizer 返回绑定到某一语言的查找器；切换语言就是换一个新的 Localizer
func (c *Catalog) Localizer(lang string) *Localizer {
	l := models.NormalizeLanguage(lang)
	return &Localizer{lang: l, table: c.tables[l]}
}

// Dictionary 返回该语言完整词典的副本
func (c *Catalog) Dictionary(lang string) map[string]string {
	return copyTable(c.tables[models.NormalizeLanguage(lang)])
}

// Keys 返回该语言已定义的键（排序）
func (c *Catalog) Keys(lang string) []string {
	table := c.tables[models.NormalizeLanguage(lang)]
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func copyTable(table map[string]string) map[string]string {
	out := make(map[string]string, len(table))
	for k, v := range table {
		out[k] = v
	}
	return out
}

// Localizer 单一语言的只读查找器
type Localizer struct {
	lang  models.Language
	table map[string]string
}

func (l *Localizer) Lang() models.Language {
	return l.lang
}

// T 返回本地化文本；缺失时原样返回 key
func (l *Localizer) T(key string) string {
	if l == nil {
		return key
	}
	if v, ok := l.table[key]; ok {
		return v
	}
	return key
}

// Tf 查找后把 {0} {1} ... 占位符替换为参数
func (l *Localizer) Tf(key string, args ...interface{}) string {
	text := l.T(key)
	if len(args) == 0 {
		return text
	}
	pairs := make([]string, 0, len(args)*2)
	for i, arg := range args {
		pairs = append(pairs, "{"+strconv.Itoa(i)+"}", fmt.Sprint(arg))
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
