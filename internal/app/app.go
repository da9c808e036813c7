package app

import (
	"context"
	"fmt"
	"log"

	"github.com/LJTian/TejoMag/internal/api"
	"github.com/LJTian/TejoMag/internal/archive"
	"github.com/LJTian/TejoMag/internal/category"
	"github.com/LJTian/TejoMag/internal/collector"
	"github.com/LJTian/TejoMag/internal/config"
	"github.com/LJTian/TejoMag/internal/notify"
	"github.com/LJTian/TejoMag/internal/pipeline"
	"github.com/LJTian/TejoMag/internal/storage"
	"github.com/LJTian/TejoMag/internal/translator"
)

// Store 采集写入与 API 查询共用的存储
type Store interface {
	pipeline.Store
	api.Reader
	Close() error
}

// App cmd/api 与 cmd/collect 共用的组件集合
type App struct {
	Config     *config.Config
	Store      Store
	Categories *category.Table
	Pipeline   *pipeline.Pipeline

	closers []func() error
}

// New 按配置组装存储、翻译、分类、站点适配器以及可选的 Kafka / S3
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	a.Store = store
	a.closers = append(a.closers, store.Close)

	table, err := category.LoadFile(cfg.CategoriesFile)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("load categories: %w", err)
	}
	a.Categories = table

	sources, err := config.LoadSources(cfg.SourcesFile)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("load sources: %w", err)
	}
	adapters, err := collector.NewAdapters(sources)
	if err != nil {
		a.Close()
		return nil, err
	}

	backend := translator.Chain{
		translator.NewGoogleBackend(cfg.HTTPTimeout),
		translator.NewMyMemoryBackend(cfg.HTTPTimeout),
	}
	tr := translator.New(backend, cfg.TargetLanguage,
		translator.WithChunkSize(cfg.TranslateChunkSize),
		translator.WithDelay(cfg.TranslateDelay),
	)

	var opts []pipeline.Option
	if len(cfg.KafkaBrokers) > 0 {
		n, err := notify.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, n.Close)
		opts = append(opts, pipeline.WithNotifier(n))
		log.Printf("app: kafka notifier enabled, topic=%s", cfg.KafkaTopic)
	}
	if cfg.ArchiveBucket != "" {
		arc, err := archive.NewS3Archiver(ctx, cfg.ArchiveBucket, cfg.ArchiveRegion, cfg.ArchivePrefix)
		if err != nil {
			a.Close()
			return nil, err
		}
		opts = append(opts, pipeline.WithArchiver(arc))
		log.Printf("app: s3 archive enabled, bucket=%s", cfg.ArchiveBucket)
	}

	a.Pipeline = pipeline.New(adapters, collector.NewCollyFetcher(cfg.HTTPTimeout), store, tr,
		category.NewCategorizer(table), opts...)
	log.Printf("app: %d sources, %d categories, target=%s", len(adapters), len(table.Categories), tr.Target())
	return a, nil
}

func openStore(cfg *config.Config) (Store, error) {
	switch cfg.StorageDriver {
	case "sqlite":
		fs, err := storage.OpenFileStore(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return fs, nil
	case "postgres", "":
		s, err := storage.NewStore(cfg.PostgresDSN, cfg.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// Close 逆序释放资源
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Printf("app: close: %v", err)
		}
	}
	a.closers = nil
}
