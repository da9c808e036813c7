package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed sources.yaml
var DefaultSourcesYAML []byte

// SourceConfig 描述一个新闻站点：抓取入口、选择器级联规则与质量阈值
type SourceConfig struct {
	Name     string `yaml:"name"`
	Kind     string `yaml:"kind"` // html / feed
	BaseURL  string `yaml:"base_url"`
	Homepage string `yaml:"homepage"`
	FeedURL  string `yaml:"feed_url"`
	// 第一个语言同时作为翻译源语言，其余仅参与分类打分
	Languages []string `yaml:"languages"`

	ArticleLimit   int `yaml:"article_limit"`
	CandidateLimit int `yaml:"candidate_limit"`

	LinkSelectors []string `yaml:"link_selectors"`
	// 链接必须包含其一（为空则不限制）
	IncludeMarkers []string `yaml:"include_markers"`
	SkipMarkers    []string `yaml:"skip_markers"`
	SkipSuffixes   []string `yaml:"skip_suffixes"`

	TitleSelectors   []string `yaml:"title_selectors"`
	ContentSelectors []string `yaml:"content_selectors"`
	ImageSelectors   []string `yaml:"image_selectors"`

	MinTitleLength     int      `yaml:"min_title_length"`
	MinParagraphLength int      `yaml:"min_paragraph_length"`
	MinContentLength   int      `yaml:"min_content_length"`
	MaxParagraphs      int      `yaml:"max_paragraphs"`
	PlaceholderMarkers []string `yaml:"placeholder_markers"`

	ReadabilityFallback bool `yaml:"readability_fallback"`
	Disabled            bool `yaml:"disabled"`
}

type sourcesFile struct {
	Defaults SourceConfig   `yaml:"defaults"`
	Sources  []SourceConfig `yaml:"sources"`
}

var defaultPlaceholderMarkers = []string{"placeholder", "logo", "sprite", "icon"}

// LoadSources 读取站点配置；path 为空时使用内置默认配置
func LoadSources(path string) ([]SourceConfig, error) {
	if path == "" {
		return parseSources(DefaultSourcesYAML)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sources: %w", err)
	}
	return parseSources(data)
}

func parseSources(data []byte) ([]SourceConfig, error) {
	var f sourcesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing sources: %w", err)
	}

	out := make([]SourceConfig, 0, len(f.Sources))
	seen := make(map[string]struct{})
	for _, sc := range f.Sources {
		if sc.Disabled {
			continue
		}
		sc = sc.withDefaults(f.Defaults)
		if err := sc.validate(); err != nil {
			return nil, err
		}
		if _, ok := seen[sc.Name]; ok {
			return nil, fmt.Errorf("source %q defined twice", sc.Name)
		}
		seen[sc.Name] = struct{}{}
		out = append(out, sc)
	}
	return out, nil
}

func (sc SourceConfig) withDefaults(d SourceConfig) SourceConfig {
	if sc.Kind == "" {
		sc.Kind = d.Kind
	}
	if sc.Kind == "" {
		sc.Kind = "html"
	}
	sc.BaseURL = strings.TrimRight(sc.BaseURL, "/")
	if sc.Homepage == "" {
		sc.Homepage = sc.BaseURL
	}
	if len(sc.Languages) == 0 {
		sc.Languages = d.Languages
	}
	if len(sc.Languages) == 0 {
		sc.Languages = []string{"en"}
	}
	sc.ArticleLimit = firstPositive(sc.ArticleLimit, d.ArticleLimit, 3)
	// 候选链接上限默认与文章上限一致
	sc.CandidateLimit = firstPositive(sc.CandidateLimit, d.CandidateLimit, sc.ArticleLimit)
	sc.MinTitleLength = firstPositive(sc.MinTitleLength, d.MinTitleLength, 10)
	sc.MinParagraphLength = firstPositive(sc.MinParagraphLength, d.MinParagraphLength, 30)
	sc.MinContentLength = firstPositive(sc.MinContentLength, d.MinContentLength, 100)
	sc.MaxParagraphs = firstPositive(sc.MaxParagraphs, d.MaxParagraphs, 20)
	if len(sc.PlaceholderMarkers) == 0 {
		sc.PlaceholderMarkers = d.PlaceholderMarkers
	}
	if len(sc.PlaceholderMarkers) == 0 {
		sc.PlaceholderMarkers = defaultPlaceholderMarkers
	}
	if len(sc.TitleSelectors) == 0 {
		sc.TitleSelectors = d.TitleSelectors
	}
	if len(sc.ContentSelectors) == 0 {
		sc.ContentSelectors = d.ContentSelectors
	}
	if len(sc.ImageSelectors) == 0 {
		sc.ImageSelectors = d.ImageSelectors
	}
	if !sc.ReadabilityFallback {
		sc.ReadabilityFallback = d.ReadabilityFallback
	}
	return sc
}

func (sc SourceConfig) validate() error {
	if sc.Name == "" {
		return fmt.Errorf("source without name")
	}
	if !strings.HasPrefix(sc.BaseURL, "http://") && !strings.HasPrefix(sc.BaseURL, "https://") {
		return fmt.Errorf("source %q: base_url must be absolute, got %q", sc.Name, sc.BaseURL)
	}
	switch sc.Kind {
	case "html":
		if len(sc.LinkSelectors) == 0 {
			return fmt.Errorf("source %q: link_selectors required for html sources", sc.Name)
		}
	case "feed":
		if sc.FeedURL == "" {
			return fmt.Errorf("source %q: feed_url required for feed sources", sc.Name)
		}
	default:
		return fmt.Errorf("source %q: unknown kind %q", sc.Name, sc.Kind)
	}
	if len(sc.TitleSelectors) == 0 || len(sc.ContentSelectors) == 0 {
		return fmt.Errorf("source %q: title_selectors and content_selectors required", sc.Name)
	}
	return nil
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}
