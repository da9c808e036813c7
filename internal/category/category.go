package category

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed categories.yaml
var defaultYAML []byte

// Category 一个分类及其按语言划分的关键词集合
type Category struct {
	Label    string              `yaml:"label"`
	Keywords map[string][]string `yaml:"keywords"`
}

// Table 加载后即不可变；Categories 的顺序决定平局时的优先级
type Table struct {
	Default    string     `yaml:"default"`
	Categories []Category `yaml:"categories"`
}

func Default() (*Table, error) {
	return Parse(defaultYAML)
}

// LoadFile path 为空时使用内置关键词表
func LoadFile(path string) (*Table, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading categories: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing categories: %w", err)
	}
	if t.Default == "" {
		t.Default = "Geral"
	}

	seenLabel := make(map[string]struct{})
	for i := range t.Categories {
		c := &t.Categories[i]
		if c.Label == "" {
			return nil, fmt.Errorf("category %d without label", i)
		}
		if _, ok := seenLabel[c.Label]; ok {
			return nil, fmt.Errorf("category %q defined twice", c.Label)
		}
		seenLabel[c.Label] = struct{}{}

		// 小写并按语言去重，同一关键词最多计 1 分
		norm := make(map[string][]string, len(c.Keywords))
		for lang, kws := range c.Keywords {
			seen := make(map[string]struct{}, len(kws))
			clean := make([]string, 0, len(kws))
			for _, kw := range kws {
				kw = strings.ToLower(strings.TrimSpace(kw))
				if kw == "" {
					continue
				}
				if _, dup := seen[kw]; dup {
					continue
				}
				seen[kw] = struct{}{}
				clean = append(clean, kw)
			}
			lang = strings.ToLower(lang)
			norm[lang] = append(norm[lang], clean...)
		}
		c.Keywords = norm
	}
	return &t, nil
}

// Labels 对外展示的分类列表，默认分类排在最后
func (t *Table) Labels() []string {
	out := make([]string, 0, len(t.Categories)+1)
	for _, c := range t.Categories {
		out = append(out, c.Label)
	}
	return append(out, t.Default)
}

// Languages 关键词表覆盖的全部语言
func (t *Table) Languages() []string {
	var out []string
	seen := make(map[string]struct{})
	for _, c := range t.Categories {
		for lang := range c.Keywords {
			if _, ok := seen[lang]; !ok {
				seen[lang] = struct{}{}
				out = append(out, lang)
			}
		}
	}
	sort.Strings(out)
	return out
}

// Categorizer 基于关键词命中数的分类器
type Categorizer struct {
	table *Table
}

func NewCategorizer(t *Table) *Categorizer {
	return &Categorizer{table: t}
}

func (c *Categorizer) Table() *Table { return c.table }

// Classify 统计每个分类命中的关键词个数（同一关键词只计一次），
// 多语言表的分数相加；严格最高者胜，平局取先定义者，全为 0 时返回默认分类。
// langs 为空时使用所有语言的关键词表。
func (c *Categorizer) Classify(title, content string, langs ...string) string {
	text := strings.ToLower(title + " " + content)
	langs = normalizeLangs(langs)

	best, bestScore := c.table.Default, 0
	for _, cat := range c.table.Categories {
		score := 0
		if len(langs) == 0 {
			for _, kws := range cat.Keywords {
				score += countHits(text, kws)
			}
		} else {
			for _, lang := range langs {
				score += countHits(text, cat.Keywords[lang])
			}
		}
		if score > bestScore {
			best, bestScore = cat.Label, score
		}
	}
	return best
}

func countHits(text string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			n++
		}
	}
	return n
}

func normalizeLangs(langs []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, l := range langs {
		l = strings.ToLower(strings.TrimSpace(l))
		if l == "" {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}
