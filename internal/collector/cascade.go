package collector

import (
	"bytes"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

// 选择器级联：按顺序尝试规则，第一个产出合格结果的规则生效

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func runeLen(s string) int {
	return len([]rune(s))
}

// firstText 返回第一个长度大于 minLen 的文本
func firstText(doc *goquery.Document, selectors []string, minLen int) string {
	for _, sel := range selectors {
		var found string
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := normalizeSpace(s.Text())
			if runeLen(text) > minLen {
				found = text
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	return ""
}

// collectParagraphs 取第一个有合格段落的规则，段落按首次出现去重并截断到 maxCount
func collectParagraphs(doc *goquery.Document, selectors []string, minLen, maxCount int) []string {
	for _, sel := range selectors {
		var texts []string
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			texts = append(texts, s.Text())
		})
		if paras := qualifyParagraphs(texts, minLen, maxCount); len(paras) > 0 {
			return paras
		}
	}
	return nil
}

func qualifyParagraphs(texts []string, minLen, maxCount int) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, raw := range texts {
		text := normalizeSpace(raw)
		if runeLen(text) <= minLen {
			continue
		}
		if _, ok := seen[text]; ok {
			continue
		}
		seen[text] = struct{}{}
		out = append(out, text)
		if maxCount > 0 && len(out) >= maxCount {
			break
		}
	}
	return out
}

// readabilityParagraphs 级联全部失败时用 readability 兜底
func readabilityParagraphs(page []byte, pageURL string, minLen, maxCount int) ([]string, string) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return nil, ""
	}
	article, err := readability.FromReader(bytes.NewReader(page), parsed)
	if err != nil {
		return nil, ""
	}

	// 按 <p> 元素取段落；压缩过的 HTML 中 TextContent 没有换行，各段会粘连成一段
	var texts []string
	if article.Node != nil {
		goquery.NewDocumentFromNode(article.Node).Find("p").Each(func(_ int, s *goquery.Selection) {
			texts = append(texts, s.Text())
		})
	}
	if len(texts) == 0 {
		texts = strings.Split(article.TextContent, "\n")
	}
	return qualifyParagraphs(texts, minLen, maxCount), article.Image
}

// collectImages 汇总所有规则命中的图片：补全地址、过滤占位图、按原字符串去重
func collectImages(doc *goquery.Document, selectors []string, origin, pageURL string, markers []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, sel := range selectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			raw := s.AttrOr("src", "")
			if raw == "" || strings.HasPrefix(raw, "data:") {
				raw = s.AttrOr("data-src", "")
			}
			img, ok := NormalizeImageURL(raw, origin, pageURL)
			if !ok || isPlaceholder(img, markers) {
				return
			}
			if _, dup := seen[img]; dup {
				return
			}
			seen[img] = struct{}{}
			out = append(out, img)
		})
	}
	return out
}

// NormalizeImageURL 将 //host/a.jpg 补为 https，/path 补为站点 origin，其它相对路径按页面地址解析
func NormalizeImageURL(raw, origin, pageURL string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "data:") {
		return "", false
	}
	switch {
	case strings.HasPrefix(raw, "//"):
		return "https:" + raw, true
	case strings.HasPrefix(raw, "/"):
		if origin == "" {
			return "", false
		}
		return strings.TrimRight(origin, "/") + raw, true
	case strings.HasPrefix(raw, "http://"), strings.HasPrefix(raw, "https://"):
		return raw, true
	}

	base, err := url.Parse(pageURL)
	if err != nil || !base.IsAbs() {
		return "", false
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	return base.ResolveReference(ref).String(), true
}

// isPlaceholder 只检查路径，站点域名中含有标记词（如 silicon 含 icon）不算占位图
func isPlaceholder(imgURL string, markers []string) bool {
	p := imgURL
	if u, err := url.Parse(imgURL); err == nil {
		p = u.Path
	}
	lower := strings.ToLower(p)
	for _, m := range markers {
		if m != "" && strings.Contains(lower, strings.ToLower(m)) {
			return true
		}
	}
	return false
}

func ogImage(doc *goquery.Document) string {
	for _, sel := range []string{`meta[property="og:image"]`, `meta[name="og:image"]`, `meta[name="twitter:image"]`} {
		if v := strings.TrimSpace(doc.Find(sel).First().AttrOr("content", "")); v != "" {
			return v
		}
	}
	return ""
}

var publishedLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// publishedDate 读取 article:published_time 或 time[datetime]
func publishedDate(doc *goquery.Document) *time.Time {
	candidates := []string{
		doc.Find(`meta[property="article:published_time"]`).First().AttrOr("content", ""),
		doc.Find(`time[datetime]`).First().AttrOr("datetime", ""),
	}
	for _, raw := range candidates {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		for _, layout := range publishedLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				t = t.UTC()
				return &t
			}
		}
	}
	return nil
}

func originOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
