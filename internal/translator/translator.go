package translator

import (
	"context"
	"log"
	"strings"
	"time"
)

const (
	DefaultChunkSize = 5000
	DefaultDelay     = 300 * time.Millisecond
)

// Translator 翻译服务：在 main 中构造一次后注入到 pipeline。
// 文本按字符数切块独立翻译，单块失败时保留原文，整体永不报错。
type Translator struct {
	backend   Backend
	target    string
	chunkSize int
	delay     time.Duration
	sleep     func(ctx context.Context, d time.Duration)
}

type Option func(*Translator)

func WithChunkSize(n int) Option {
	return func(t *Translator) {
		if n > 0 {
			t.chunkSize = n
		}
	}
}

func WithDelay(d time.Duration) Option {
	return func(t *Translator) {
		if d >= 0 {
			t.delay = d
		}
	}
}

func New(backend Backend, target string, opts ...Option) *Translator {
	t := &Translator{
		backend:   backend,
		target:    target,
		chunkSize: DefaultChunkSize,
		delay:     DefaultDelay,
		sleep:     sleepCtx,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

func (t *Translator) Target() string { return t.target }

// Translate 返回译文；任何失败都回退为对应块的原文
func (t *Translator) Translate(ctx context.Context, text, source string) string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" || t.backend == nil || strings.EqualFold(source, t.target) {
		return text
	}

	chunks := splitChunks(text, t.chunkSize)
	out := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		if i > 0 && t.delay > 0 {
			t.sleep(ctx, t.delay)
		}
		translated, err := t.backend.Translate(ctx, chunk, source, t.target)
		if err != nil || strings.TrimSpace(translated) == "" {
			log.Printf("translate (%s): chunk %d/%d kept original: %v", t.backend.Name(), i+1, len(chunks), err)
			out = append(out, chunk)
			continue
		}
		out = append(out, strings.TrimSpace(translated))
	}
	return strings.Join(out, " ")
}

// splitChunks 按 rune 切分，尽量在块内最后一个空格处断开，避免截断单词
func splitChunks(text string, size int) []string {
	rs := []rune(text)
	if size <= 0 || len(rs) <= size {
		return []string{text}
	}

	var chunks []string
	for len(rs) > 0 {
		if len(rs) <= size {
			chunks = append(chunks, string(rs))
			break
		}
		cut := size
		for i := size; i > size/2; i-- {
			if rs[i] == ' ' {
				cut = i
				break
			}
		}
		chunks = append(chunks, string(rs[:cut]))
		rs = rs[cut:]
		if len(rs) > 0 && rs[0] == ' ' {
			rs = rs[1:]
		}
	}
	return chunks
}

func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
