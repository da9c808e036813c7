package translator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	maxResponseBytes     = 256 * 1024
	defaultClientTimeout = 15 * time.Second

	defaultGoogleEndpoint   = "https://translate.googleapis.com/translate_a/single"
	defaultMyMemoryEndpoint = "https://api.mymemory.translated.net/get"
)

var errEmptyTranslation = errors.New("empty translation")

// Backend 单次翻译调用，失败时返回 error，由 Translator 决定回退
type Backend interface {
	Name() string
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// GoogleBackend 使用 Google Translate 公开接口（client=gtx，无需密钥）
type GoogleBackend struct {
	Endpoint string
	Client   *http.Client
}

func NewGoogleBackend(timeout time.Duration) *GoogleBackend {
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}
	return &GoogleBackend{Endpoint: defaultGoogleEndpoint, Client: &http.Client{Timeout: timeout}}
}

func (g *GoogleBackend) Name() string { return "google-gtx" }

func (g *GoogleBackend) Translate(ctx context.Context, text, source, target string) (string, error) {
	if source == "" {
		source = "auto"
	}
	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", source)
	q.Set("tl", target)
	q.Set("dt", "t")
	q.Set("q", text)

	body, err := get(ctx, g.Client, g.Endpoint+"?"+q.Encode())
	if err != nil {
		return "", err
	}

	// 响应格式: [[["译文","原文",...],...],...]
	var raw []any
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	if len(raw) == 0 {
		return "", errEmptyTranslation
	}
	outer, ok := raw[0].([]any)
	if !ok {
		return "", errEmptyTranslation
	}

	var result strings.Builder
	for _, seg := range outer {
		pair, ok := seg.([]any)
		if !ok || len(pair) < 1 {
			continue
		}
		if s, ok := pair[0].(string); ok {
			result.WriteString(s)
		}
	}
	out := strings.TrimSpace(result.String())
	if out == "" {
		return "", errEmptyTranslation
	}
	return out, nil
}

// MyMemoryBackend 备用翻译接口
type MyMemoryBackend struct {
	Endpoint string
	Client   *http.Client
}

func NewMyMemoryBackend(timeout time.Duration) *MyMemoryBackend {
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}
	return &MyMemoryBackend{Endpoint: defaultMyMemoryEndpoint, Client: &http.Client{Timeout: timeout}}
}

func (m *MyMemoryBackend) Name() string { return "mymemory" }

func (m *MyMemoryBackend) Translate(ctx context.Context, text, source, target string) (string, error) {
	if source == "" || source == "auto" {
		source = "en"
	}
	q := url.Values{}
	q.Set("langpair", source+"|"+target)
	q.Set("q", text)

	body, err := get(ctx, m.Client, m.Endpoint+"?"+q.Encode())
	if err != nil {
		return "", err
	}

	var out struct {
		ResponseData struct {
			TranslatedText string `json:"translatedText"`
		} `json:"responseData"`
		ResponseStatus any `json:"responseStatus"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	// 配额用尽时 responseStatus 为 403/429，译文字段是提示文字
	if code, ok := out.ResponseStatus.(float64); ok && code != http.StatusOK {
		return "", fmt.Errorf("response status %v", code)
	}
	text = strings.TrimSpace(out.ResponseData.TranslatedText)
	if text == "" {
		return "", errEmptyTranslation
	}
	return text, nil
}

// Chain 依次尝试各个后端，全部失败时返回最后一个错误
type Chain []Backend

func (c Chain) Name() string {
	names := make([]string, 0, len(c))
	for _, b := range c {
		names = append(names, b.Name())
	}
	return strings.Join(names, ",")
}

func (c Chain) Translate(ctx context.Context, text, source, target string) (string, error) {
	var lastErr error = errors.New("no translation backend")
	for _, b := range c {
		out, err := b.Translate(ctx, text, source, target)
		if err == nil {
			return out, nil
		}
		lastErr = fmt.Errorf("%s: %w", b.Name(), err)
	}
	return "", lastErr
}

func get(ctx context.Context, client *http.Client, apiURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
}
