package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
)

const (
	defaultUserAgent    = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	defaultFetchTimeout = 15 * time.Second
	maxPageBytes        = 4 << 20 // 4MB
)

var errEmptyBody = errors.New("empty response body")

// PageFetcher 抓取单个页面的原始 HTML / XML
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) ([]byte, error)
}

// CollyFetcher 基于 colly 的页面抓取：浏览器 UA + 常规请求头 + 超时，非 2xx 视为失败
type CollyFetcher struct {
	UserAgent      string
	AcceptLanguage string
	Timeout        time.Duration
}

func NewCollyFetcher(timeout time.Duration) *CollyFetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &CollyFetcher{
		UserAgent:      defaultUserAgent,
		AcceptLanguage: "en-US,en;q=0.9,fr;q=0.8",
		Timeout:        timeout,
	}
}

func (f *CollyFetcher) Fetch(ctx context.Context, pageURL string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}

	// 每次新建 collector，避免 colly 的 "already visited" 限制
	c := colly.NewCollector(
		colly.UserAgent(f.UserAgent),
		colly.MaxBodySize(maxPageBytes),
	)
	c.SetRequestTimeout(f.Timeout)
	// 由 OnResponse 自行判断状态码，colly 默认把 203-299 也当作错误
	c.ParseHTTPErrorResponse = true

	var (
		body   []byte
		status int
	)

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			return
		}
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", f.AcceptLanguage)
	})
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		if status/100 != 2 {
			return
		}
		body = append([]byte(nil), r.Body...)
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
	})

	if err := c.Visit(pageURL); err != nil {
		return nil, &FetchError{URL: pageURL, StatusCode: status, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}
	if status/100 != 2 {
		return nil, &FetchError{URL: pageURL, StatusCode: status, Err: fmt.Errorf("unexpected status %s", http.StatusText(status))}
	}
	if len(body) == 0 {
		return nil, &FetchError{URL: pageURL, StatusCode: status, Err: errEmptyBody}
	}
	return body, nil
}
