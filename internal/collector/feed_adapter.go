package collector

import (
	"bytes"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/LJTian/TejoMag/internal/config"
	"github.com/mmcdole/gofeed"
)

// FeedAdapter 通过 RSS/Atom 发现链接，文章页仍走 HTML 级联抽取
type FeedAdapter struct {
	*HTMLAdapter
	feedURL string

	mu sync.Mutex
	// 链接 -> feed 中声明的发布时间，页面未提供时使用
	published map[string]time.Time
}

func NewFeedAdapter(cfg config.SourceConfig) *FeedAdapter {
	return &FeedAdapter{
		HTMLAdapter: NewHTMLAdapter(cfg),
		feedURL:     cfg.FeedURL,
		published:   make(map[string]time.Time),
	}
}

func (a *FeedAdapter) HomepageURL() string { return a.feedURL }

func (a *FeedAdapter) ListCandidateLinks(feed []byte, seen func(string) bool) []string {
	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(feed))
	if err != nil {
		log.Printf("feed %s: parse error: %v", a.Name(), err)
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	// 只保留本次列出的链接
	clear(a.published)

	var out []string
	dedup := make(map[string]struct{})
	limit := a.cfg.CandidateLimit
	for _, item := range parsed.Items {
		link, ok := a.articleLink(strings.TrimSpace(item.Link))
		if !ok {
			continue
		}
		if _, dup := dedup[link]; dup {
			continue
		}
		dedup[link] = struct{}{}
		if seen != nil && seen(link) {
			continue
		}
		if item.PublishedParsed != nil {
			a.published[link] = item.PublishedParsed.UTC()
		}
		out = append(out, link)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

func (a *FeedAdapter) ExtractArticle(page []byte, pageURL string) (Article, bool) {
	a.mu.Lock()
	t, found := a.published[pageURL]
	delete(a.published, pageURL)
	a.mu.Unlock()

	art, ok := a.HTMLAdapter.ExtractArticle(page, pageURL)
	if !ok {
		return art, false
	}
	if art.PublishedDate == nil && found {
		art.PublishedDate = &t
	}
	return art, true
}
