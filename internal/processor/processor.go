package processor

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/LJTian/TejoMag/internal/collector"
	"github.com/LJTian/TejoMag/internal/slug"
)

// EnrichedArticle 是写入存储层前的统一结构
type EnrichedArticle struct {
	collector.Article

	ID                string
	TitleTranslated   string
	ContentTranslated string
	Category          string
	Slug              string
	ScrapedAt         time.Time
}

// URLChecker 存储层的 URL 判重
type URLChecker interface {
	Exists(ctx context.Context, url string) (bool, error)
}

// SlugChecker 存储层的 slug 判重
type SlugChecker interface {
	ExistsSlug(ctx context.Context, slug string) (bool, error)
}

type TextTranslator interface {
	Translate(ctx context.Context, text, source string) string
}

type Classifier interface {
	Classify(title, content string, langs ...string) string
}

// Deduplicator 直接查询存储判断 URL 是否已入库，不做缓存
type Deduplicator struct {
	store URLChecker
}

func NewDeduplicator(store URLChecker) *Deduplicator {
	return &Deduplicator{store: store}
}

// FilterNew 返回尚未入库的 URL，保持输入顺序并去掉批内重复
func (d *Deduplicator) FilterNew(ctx context.Context, urls []string) ([]string, error) {
	out := make([]string, 0, len(urls))
	seen := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}

		exists, err := d.store.Exists(ctx, u)
		if err != nil {
			return nil, fmt.Errorf("check url %s: %w", u, err)
		}
		if !exists {
			out = append(out, u)
		}
	}
	return out, nil
}

// Enricher 翻译、分类并生成唯一 slug
type Enricher struct {
	translator TextTranslator
	classifier Classifier
	slugs      SlugChecker
	now        func() time.Time
}

func NewEnricher(t TextTranslator, c Classifier, slugs SlugChecker) *Enricher {
	return &Enricher{translator: t, classifier: c, slugs: slugs, now: time.Now}
}

// Enrich 仅在 slug 查询失败（存储异常）时返回错误；翻译失败会自动回退原文
func (e *Enricher) Enrich(ctx context.Context, art collector.Article, langs []string) (EnrichedArticle, error) {
	source := ""
	if len(langs) > 0 {
		source = langs[0]
	}

	titleT := e.translator.Translate(ctx, art.Title, source)
	if strings.TrimSpace(titleT) == "" {
		titleT = art.Title
	}
	contentT := e.translator.Translate(ctx, art.Content, source)
	if strings.TrimSpace(contentT) == "" {
		contentT = art.Content
	}

	category := e.classifier.Classify(art.Title, art.Content, langs...)

	s, err := slug.ResolveUnique(ctx, slug.Generate(titleT), e.slugs.ExistsSlug)
	if err != nil {
		return EnrichedArticle{}, err
	}

	return EnrichedArticle{
		Article:           art,
		ID:                hashURL(art.URL),
		TitleTranslated:   titleT,
		ContentTranslated: contentT,
		Category:          category,
		Slug:              s,
		ScrapedAt:         e.now().UTC(),
	}, nil
}

func hashURL(url string) string {
	h := sha1.New()
	h.Write([]byte(url))
	return hex.EncodeToString(h.Sum(nil))
}
