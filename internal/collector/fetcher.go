package collector

import (
	"fmt"
	"time"
)

// Article 单篇文章抽取结果（源语言，尚未翻译/分类）
type Article struct {
	Title    string
	Content  string
	ImageURL string
	// 去重后的绝对地址，不含占位图；第一张即 ImageURL
	Images        []string
	URL           string
	Source        string
	PublishedDate *time.Time
}

// Adapter 抽象每一个新闻站点：从首页列出候选链接，从文章页抽取正文
type Adapter interface {
	Name() string
	// Languages 第一个元素为翻译源语言
	Languages() []string
	HomepageURL() string
	ArticleLimit() int
	// ListCandidateLinks 返回去重、截断后的绝对地址；seen 为本轮已见过的链接，可为 nil
	ListCandidateLinks(homepage []byte, seen func(string) bool) []string
	// ExtractArticle 质量不达标时返回 false，不报错
	ExtractArticle(page []byte, pageURL string) (Article, bool)
}

// FetchError 单个 URL 的网络错误、超时或非 2xx 响应
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
