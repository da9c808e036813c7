package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/LJTian/TejoMag/internal/processor"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// 列表缓存（5 分钟，写入后依赖短 TTL 自然过期）
const listCacheTTL = 5 * time.Minute

// Store Postgres 持久化 + Redis 读缓存
type Store struct {
	DB    *gorm.DB
	Redis *redis.Client
}

func NewStore(dsn, redisAddr string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&News{}); err != nil {
		return nil, err
	}

	var rdb *redis.Client
	if redisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr: redisAddr,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Printf("warn: redis ping failed: %v", err)
		}
	}

	return &Store{DB: db, Redis: rdb}, nil
}

func (s *Store) Close() error {
	if s.Redis != nil {
		_ = s.Redis.Close()
	}
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Exists(ctx context.Context, url string) (bool, error) {
	var n int64
	if err := s.DB.WithContext(ctx).Model(&News{}).Where("url = ?", url).Limit(1).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) ExistsSlug(ctx context.Context, slug string) (bool, error) {
	var n int64
	if err := s.DB.WithContext(ctx).Model(&News{}).Where("slug = ?", slug).Limit(1).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// Insert 写入一篇文章；url/slug 冲突时返回 ErrDuplicate
func (s *Store) Insert(ctx context.Context, a processor.EnrichedArticle) (string, error) {
	n := newsFromArticle(a)
	if err := s.DB.WithContext(ctx).Create(&n).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return "", ErrDuplicate
		}
		return "", err
	}
	return n.ID, nil
}

// ListRecent 按抓取时间倒序分页，结果缓存在 Redis
func (s *Store) ListRecent(ctx context.Context, limit, offset int) ([]News, error) {
	limit = clampLimit(limit, 20, 100)
	if offset < 0 {
		offset = 0
	}
	cacheKey := fmt.Sprintf("news:list:%d:%d", limit, offset)
	return s.cachedList(ctx, cacheKey, func(db *gorm.DB) *gorm.DB {
		return db.Order("scraped_at DESC").Limit(limit).Offset(offset)
	})
}

func (s *Store) GetByCategory(ctx context.Context, category string, limit int) ([]News, error) {
	limit = clampLimit(limit, 20, 100)
	cacheKey := fmt.Sprintf("news:category:%s:%d", category, limit)
	return s.cachedList(ctx, cacheKey, func(db *gorm.DB) *gorm.DB {
		return db.Where("category = ?", category).Order("scraped_at DESC").Limit(limit)
	})
}

// Search 在原文与译文标题、正文中做不区分大小写的匹配
func (s *Store) Search(ctx context.Context, q string, limit int) ([]News, error) {
	limit = clampLimit(limit, 20, 100)
	q = strings.TrimSpace(q)
	if q == "" {
		return []News{}, nil
	}
	like := "%" + escapeLike(q) + "%"
	var list []News
	err := s.DB.WithContext(ctx).Model(&News{}).
		Where("title ILIKE ? OR title_translated ILIKE ? OR content_translated ILIKE ?", like, like, like).
		Order("scraped_at DESC").Limit(limit).Find(&list).Error
	return list, err
}

func (s *Store) GetBySlug(ctx context.Context, slug string) (*News, error) {
	var n News
	err := s.DB.WithContext(ctx).Where("slug = ?", slug).First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&News{}).Count(&n).Error
	return n, err
}

func (s *Store) cachedList(ctx context.Context, cacheKey string, scope func(*gorm.DB) *gorm.DB) ([]News, error) {
	if s.Redis != nil {
		if bs, err := s.Redis.Get(ctx, cacheKey).Bytes(); err == nil {
			var cached []News
			if err := json.Unmarshal(bs, &cached); err == nil {
				return cached, nil
			}
		}
	}

	var list []News
	if err := scope(s.DB.WithContext(ctx).Model(&News{})).Find(&list).Error; err != nil {
		return nil, err
	}

	if s.Redis != nil && len(list) > 0 {
		if bs, err := json.Marshal(list); err == nil {
			_ = s.Redis.Set(ctx, cacheKey, bs, listCacheTTL).Err()
		}
	}
	return list, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
