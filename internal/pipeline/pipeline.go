package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/LJTian/TejoMag/internal/collector"
	"github.com/LJTian/TejoMag/internal/processor"
	"github.com/LJTian/TejoMag/internal/storage"
	"github.com/google/uuid"
)

// ErrPersistence 存储异常：结束当前站点，其余站点继续
var ErrPersistence = errors.New("persistence error")

// Store pipeline 需要的最小存储能力
type Store interface {
	Exists(ctx context.Context, url string) (bool, error)
	ExistsSlug(ctx context.Context, slug string) (bool, error)
	Insert(ctx context.Context, a processor.EnrichedArticle) (string, error)
}

// Notifier 入库后的事件推送，失败只记日志
type Notifier interface {
	Notify(ctx context.Context, a processor.EnrichedArticle) error
}

// Archiver 入库后保存原始页面，失败只记日志
type Archiver interface {
	Archive(ctx context.Context, a processor.EnrichedArticle, page []byte) error
}

type Pipeline struct {
	adapters []collector.Adapter
	fetcher  collector.PageFetcher
	store    Store
	dedup    *processor.Deduplicator
	enricher *processor.Enricher
	notifier Notifier
	archiver Archiver
	now      func() time.Time
}

type Option func(*Pipeline)

func WithNotifier(n Notifier) Option { return func(p *Pipeline) { p.notifier = n } }
func WithArchiver(a Archiver) Option { return func(p *Pipeline) { p.archiver = a } }

func New(adapters []collector.Adapter, fetcher collector.PageFetcher, store Store, t processor.TextTranslator, c processor.Classifier, opts ...Option) *Pipeline {
	p := &Pipeline{
		adapters: adapters,
		fetcher:  fetcher,
		store:    store,
		dedup:    processor.NewDeduplicator(store),
		enricher: processor.NewEnricher(t, c, store),
		now:      time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *Pipeline) Adapters() []collector.Adapter { return p.adapters }

// Run 顺序处理所有站点
func (p *Pipeline) Run(ctx context.Context) RunSummary {
	return p.run(ctx, p.adapters)
}

// RunSources 只处理指定站点，名称未知时报错
func (p *Pipeline) RunSources(ctx context.Context, names ...string) (RunSummary, error) {
	if len(names) == 0 {
		return p.Run(ctx), nil
	}
	byName := make(map[string]collector.Adapter, len(p.adapters))
	for _, a := range p.adapters {
		byName[a.Name()] = a
	}
	selected := make([]collector.Adapter, 0, len(names))
	for _, n := range names {
		a, ok := byName[n]
		if !ok {
			return RunSummary{}, fmt.Errorf("unknown source %q", n)
		}
		selected = append(selected, a)
	}
	return p.run(ctx, selected), nil
}

func (p *Pipeline) run(ctx context.Context, adapters []collector.Adapter) RunSummary {
	sum := RunSummary{RunID: uuid.NewString(), StartedAt: p.now().UTC()}
	log.Printf("pipeline: run %s started (%d sources)", sum.RunID, len(adapters))

	// 本轮已见过的链接，跨站点共享
	seen := make(map[string]struct{})
	for _, a := range adapters {
		res := p.runSource(ctx, a, seen)
		sum.add(res)
		log.Printf("pipeline: %s done, discovered=%d persisted=%d skipped=%d discarded=%d failed=%d",
			res.Name, res.Discovered, res.Persisted, res.Skipped, res.Discarded, res.Failed)
	}

	sum.FinishedAt = p.now().UTC()
	log.Printf("pipeline: run %s finished in %s, persisted=%d skipped=%d discarded=%d failed=%d",
		sum.RunID, sum.FinishedAt.Sub(sum.StartedAt).Round(time.Millisecond), sum.Persisted, sum.Skipped, sum.Discarded, sum.Failed)
	return sum
}

func (p *Pipeline) runSource(ctx context.Context, a collector.Adapter, seen map[string]struct{}) SourceResult {
	res := SourceResult{Name: a.Name()}

	home, err := p.fetcher.Fetch(ctx, a.HomepageURL())
	if err != nil {
		log.Printf("pipeline: %s homepage: %v", a.Name(), err)
		res.Failed++
		res.Error = err.Error()
		return res
	}

	links := a.ListCandidateLinks(home, func(u string) bool {
		_, ok := seen[u]
		return ok
	})
	for _, l := range links {
		seen[l] = struct{}{}
	}
	res.Discovered = len(links)

	// 先判重，已入库的链接不再抓取、翻译
	fresh, err := p.dedup.FilterNew(ctx, links)
	if err != nil {
		return res.fail(fmt.Errorf("%w: %v", ErrPersistence, err))
	}
	res.Skipped += len(links) - len(fresh)

	limit := a.ArticleLimit()
	for _, link := range fresh {
		if limit > 0 && res.Persisted >= limit {
			break
		}
		if ctx.Err() != nil {
			return res.fail(ctx.Err())
		}
		if err := p.processLink(ctx, a, link, &res); err != nil {
			return res.fail(err)
		}
	}
	return res
}

// processLink 只在存储异常时返回错误；单篇文章的其它问题只影响该文章
func (p *Pipeline) processLink(ctx context.Context, a collector.Adapter, link string, res *SourceResult) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("pipeline: %s %s panic: %v", a.Name(), link, r)
			res.Failed++
			err = nil
		}
	}()

	page, err := p.fetcher.Fetch(ctx, link)
	if err != nil {
		log.Printf("pipeline: %s: %v", a.Name(), err)
		res.Failed++
		return nil
	}

	art, ok := a.ExtractArticle(page, link)
	if !ok {
		res.Discarded++
		return nil
	}

	enriched, err := p.enricher.Enrich(ctx, art, a.Languages())
	if err != nil {
		return fmt.Errorf("%w: enrich %s: %v", ErrPersistence, link, err)
	}

	id, err := p.store.Insert(ctx, enriched)
	if errors.Is(err, storage.ErrDuplicate) {
		res.Skipped++
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: insert %s: %v", ErrPersistence, link, err)
	}
	if id != "" {
		enriched.ID = id
	}
	res.Persisted++
	log.Printf("pipeline: %s persisted %s (%s, %s)", a.Name(), enriched.Slug, enriched.Category, link)

	p.afterPersist(ctx, enriched, page)
	return nil
}

func (p *Pipeline) afterPersist(ctx context.Context, a processor.EnrichedArticle, page []byte) {
	if p.archiver != nil {
		if err := p.archiver.Archive(ctx, a, page); err != nil {
			log.Printf("pipeline: archive %s: %v", a.URL, err)
		}
	}
	if p.notifier != nil {
		if err := p.notifier.Notify(ctx, a); err != nil {
			log.Printf("pipeline: notify %s: %v", a.URL, err)
		}
	}
}
