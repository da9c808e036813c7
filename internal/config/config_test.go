package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGetEnvWithDefault(t *testing.T) {
	const key = "TEST_APP_PORT"

	// 环境变量未设置时，应该返回默认值
	_ = os.Unsetenv(key)
	if got := getEnv(key, "9000"); got != "9000" {
		t.Fatalf("getEnv(%q) = %q, want %q", key, got, "9000")
	}

	t.Setenv(key, "8080")
	if got := getEnv(key, "9000"); got != "8080" {
		t.Fatalf("getEnv(%q) = %q, want %q", key, got, "8080")
	}
}

func TestLoadReadsPipelineSettings(t *testing.T) {
	t.Setenv("APP_PORT", "1234")
	t.Setenv("STORAGE_DRIVER", "SQLite")
	t.Setenv("TRANSLATE_DELAY", "50ms")
	t.Setenv("STARTUP_DELAY", "3")
	t.Setenv("TRANSLATE_CHUNK_SIZE", "oops")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")

	cfg := Load()
	if cfg.AppPort != "1234" {
		t.Fatalf("AppPort = %q, want %q", cfg.AppPort, "1234")
	}
	if cfg.StorageDriver != "sqlite" {
		t.Fatalf("StorageDriver = %q, want sqlite", cfg.StorageDriver)
	}
	if cfg.TranslateDelay != 50*time.Millisecond {
		t.Fatalf("TranslateDelay = %s", cfg.TranslateDelay)
	}
	if cfg.StartupDelay != 3*time.Second {
		t.Fatalf("StartupDelay = %s, want 3s", cfg.StartupDelay)
	}
	if cfg.TranslateChunkSize != 5000 {
		t.Fatalf("invalid chunk size should fall back to 5000, got %d", cfg.TranslateChunkSize)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Fatalf("KafkaBrokers = %v", cfg.KafkaBrokers)
	}
	if cfg.TargetLanguage != "pt" {
		t.Fatalf("TargetLanguage default = %q, want pt", cfg.TargetLanguage)
	}
}

func TestLoadSourcesDefaultEmbedded(t *testing.T) {
	sources, err := LoadSources("")
	if err != nil {
		t.Fatalf("LoadSources: %v", err)
	}
	if len(sources) == 0 {
		t.Fatalf("expected embedded sources")
	}

	var bbc *SourceConfig
	for i := range sources {
		if sources[i].Name == "bbc-world-feed" {
			t.Fatalf("disabled source should be skipped")
		}
		if sources[i].Name == "bbc" {
			bbc = &sources[i]
		}
	}
	if bbc == nil {
		t.Fatalf("bbc source missing")
	}
	if bbc.ArticleLimit != 3 || bbc.MaxParagraphs != 20 || bbc.MinContentLength != 100 {
		t.Fatalf("defaults not applied: %+v", bbc)
	}
	if bbc.CandidateLimit != 10 {
		t.Fatalf("CandidateLimit = %d, want 10", bbc.CandidateLimit)
	}
	if bbc.Languages[0] != "en" {
		t.Fatalf("Languages = %v", bbc.Languages)
	}
	if bbc.TitleSelectors[0] != `h1[data-testid="headline"]` {
		t.Fatalf("title cascade order changed: %v", bbc.TitleSelectors)
	}
}

func TestLoadSourcesFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sources.yaml")
	data := `
sources:
  - name: example
    base_url: https://example.com/
    link_selectors: ["a"]
    title_selectors: ["h1"]
    content_selectors: ["p"]
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	sources, err := LoadSources(path)
	if err != nil {
		t.Fatalf("LoadSources: %v", err)
	}
	if len(sources) != 1 {
		t.Fatalf("got %d sources", len(sources))
	}
	sc := sources[0]
	if sc.BaseURL != "https://example.com" || sc.Homepage != "https://example.com" {
		t.Fatalf("base/homepage = %q/%q", sc.BaseURL, sc.Homepage)
	}
	// 未配置候选上限时与文章上限一致
	if sc.CandidateLimit != sc.ArticleLimit {
		t.Fatalf("CandidateLimit = %d, ArticleLimit = %d", sc.CandidateLimit, sc.ArticleLimit)
	}
	if sc.MinTitleLength != 10 || sc.MinParagraphLength != 30 {
		t.Fatalf("thresholds = %d/%d", sc.MinTitleLength, sc.MinParagraphLength)
	}
	if len(sc.PlaceholderMarkers) == 0 {
		t.Fatalf("placeholder markers should default")
	}
}

func TestLoadSourcesValidation(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"relative base", "sources:\n  - name: a\n    base_url: example.com\n    link_selectors: [a]\n    title_selectors: [h1]\n    content_selectors: [p]\n"},
		{"missing links", "sources:\n  - name: a\n    base_url: https://a.com\n    title_selectors: [h1]\n    content_selectors: [p]\n"},
		{"feed without url", "sources:\n  - name: a\n    kind: feed\n    base_url: https://a.com\n    title_selectors: [h1]\n    content_selectors: [p]\n"},
		{"duplicate", "sources:\n  - name: a\n    base_url: https://a.com\n    link_selectors: [a]\n    title_selectors: [h1]\n    content_selectors: [p]\n  - name: a\n    base_url: https://b.com\n    link_selectors: [a]\n    title_selectors: [h1]\n    content_selectors: [p]\n"},
	}
	for _, tc := range cases {
		if _, err := parseSources([]byte(tc.yaml)); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}
