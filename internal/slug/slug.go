package slug

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	MaxLength = 100
	// 标题为空或全是符号时的兜底
	Fallback = "artigo"
	// 冲突后缀上限，超过说明存储层异常
	maxAttempts = 10000
)

var (
	nonWord    = regexp.MustCompile(`[^\w\s-]`)
	dashSpaces = regexp.MustCompile(`[-\s]+`)
)

// Generate 由标题生成 URL 安全的 slug：去重音、仅保留 ASCII、小写、连字符连接
func Generate(title string) string {
	decomposed := norm.NFD.String(title)

	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if r <= unicode.MaxASCII {
			b.WriteRune(r)
		}
	}

	s := strings.ToLower(b.String())
	s = nonWord.ReplaceAllString(s, "")
	s = dashSpaces.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > MaxLength {
		s = strings.Trim(s[:MaxLength], "-")
	}
	if s == "" {
		return Fallback
	}
	return s
}

// ExistsFunc 查询 slug 是否已被占用
type ExistsFunc func(ctx context.Context, slug string) (bool, error)

// ResolveUnique 从候选开始依次尝试 x、x-1、x-2 …，返回第一个未被占用的 slug
func ResolveUnique(ctx context.Context, candidate string, exists ExistsFunc) (string, error) {
	if candidate == "" {
		candidate = Fallback
	}
	slug := candidate
	for i := 1; i <= maxAttempts; i++ {
		taken, err := exists(ctx, slug)
		if err != nil {
			return "", fmt.Errorf("check slug %q: %w", slug, err)
		}
		if !taken {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", candidate, i)
	}
	return "", fmt.Errorf("no free slug for %q after %d attempts", candidate, maxAttempts)
}
