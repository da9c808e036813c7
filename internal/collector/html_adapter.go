package collector

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/LJTian/TejoMag/internal/config"
	"github.com/PuerkitoBio/goquery"
)

// HTMLAdapter 通用站点适配器，所有站点差异都来自 SourceConfig 中的规则
type HTMLAdapter struct {
	cfg    config.SourceConfig
	origin string
	host   string
}

func NewHTMLAdapter(cfg config.SourceConfig) *HTMLAdapter {
	a := &HTMLAdapter{cfg: cfg, origin: originOf(cfg.BaseURL)}
	if u, err := url.Parse(cfg.BaseURL); err == nil {
		a.host = strings.ToLower(u.Hostname())
	}
	return a
}

func (a *HTMLAdapter) Name() string        { return a.cfg.Name }
func (a *HTMLAdapter) Languages() []string { return a.cfg.Languages }
func (a *HTMLAdapter) HomepageURL() string { return a.cfg.Homepage }
func (a *HTMLAdapter) ArticleLimit() int   { return a.cfg.ArticleLimit }

func (a *HTMLAdapter) ListCandidateLinks(homepage []byte, seen func(string) bool) []string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(homepage))
	if err != nil {
		return nil
	}

	var out []string
	dedup := make(map[string]struct{})
	limit := a.cfg.CandidateLimit

	for _, sel := range a.cfg.LinkSelectors {
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			link, ok := a.articleLink(s.AttrOr("href", ""))
			if !ok {
				return true
			}
			if _, dup := dedup[link]; dup {
				return true
			}
			dedup[link] = struct{}{}
			if seen != nil && seen(link) {
				return true
			}
			out = append(out, link)
			return limit <= 0 || len(out) < limit
		})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// articleLink 补全为绝对地址，过滤站外链接和非文章路径
func (a *HTMLAdapter) articleLink(href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
		return "", false
	}
	for _, m := range a.cfg.SkipMarkers {
		if strings.Contains(href, m) {
			return "", false
		}
	}

	base, err := url.Parse(a.cfg.Homepage)
	if err != nil {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	abs := base.ResolveReference(ref)
	abs.Fragment = ""
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	if a.host != "" && strings.ToLower(abs.Hostname()) != a.host {
		return "", false
	}

	path := strings.ToLower(abs.Path)
	for _, suf := range a.cfg.SkipSuffixes {
		if strings.HasSuffix(path, strings.ToLower(suf)) {
			return "", false
		}
	}
	if len(a.cfg.IncludeMarkers) > 0 {
		matched := false
		for _, m := range a.cfg.IncludeMarkers {
			if strings.Contains(abs.Path, m) {
				matched = true
				break
			}
		}
		if !matched {
			return "", false
		}
	}
	return abs.String(), true
}

func (a *HTMLAdapter) ExtractArticle(page []byte, pageURL string) (Article, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return Article{}, false
	}

	title := firstText(doc, a.cfg.TitleSelectors, a.cfg.MinTitleLength)
	if title == "" {
		return Article{}, false
	}

	paras := collectParagraphs(doc, a.cfg.ContentSelectors, a.cfg.MinParagraphLength, a.cfg.MaxParagraphs)
	var readabilityImage string
	if len(paras) == 0 && a.cfg.ReadabilityFallback {
		paras, readabilityImage = readabilityParagraphs(page, pageURL, a.cfg.MinParagraphLength, a.cfg.MaxParagraphs)
	}
	content := strings.Join(paras, " ")
	if content == "" || runeLen(content) < a.cfg.MinContentLength {
		return Article{}, false
	}

	images := collectImages(doc, a.cfg.ImageSelectors, a.origin, pageURL, a.cfg.PlaceholderMarkers)
	if len(images) == 0 {
		for _, raw := range []string{ogImage(doc), readabilityImage} {
			if img, ok := NormalizeImageURL(raw, a.origin, pageURL); ok && !isPlaceholder(img, a.cfg.PlaceholderMarkers) {
				images = []string{img}
				break
			}
		}
	}

	art := Article{
		Title:         title,
		Content:       content,
		Images:        images,
		URL:           pageURL,
		Source:        a.cfg.Name,
		PublishedDate: publishedDate(doc),
	}
	if len(images) > 0 {
		art.ImageURL = images[0]
	}
	return art, true
}
