package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/LJTian/TejoMag/internal/processor"
	_ "modernc.org/sqlite"
)

// 定长格式，保证按字符串排序即按时间排序
const tsLayout = "2006-01-02 15:04:05.000000"

// FileStore 单文件 SQLite 存储，适合本地运行与 cmd/collect
type FileStore struct {
	conn *sql.DB
	path string
}

func OpenFileStore(dbPath string) (*FileStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// 单连接，避免 SQLite 写锁竞争
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}
	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return &FileStore{conn: conn, path: dbPath}, nil
}

func (f *FileStore) Close() error { return f.conn.Close() }

func (f *FileStore) Path() string { return f.path }

func (f *FileStore) Exists(ctx context.Context, url string) (bool, error) {
	return f.exists(ctx, "SELECT 1 FROM articles WHERE url = ? LIMIT 1", url)
}

func (f *FileStore) ExistsSlug(ctx context.Context, slug string) (bool, error) {
	return f.exists(ctx, "SELECT 1 FROM articles WHERE slug = ? LIMIT 1", slug)
}

func (f *FileStore) exists(ctx context.Context, query, arg string) (bool, error) {
	var one int
	err := f.conn.QueryRowContext(ctx, query, arg).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (f *FileStore) Insert(ctx context.Context, a processor.EnrichedArticle) (string, error) {
	n := newsFromArticle(a)
	var published any
	if n.PublishedDate != nil {
		published = n.PublishedDate.Format(time.RFC3339)
	}
	_, err := f.conn.ExecContext(ctx, `INSERT INTO articles
		(id, title, title_translated, content, content_translated, image_url, images,
		 url, source, category, slug, published_date, scraped_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.Title, n.TitleTranslated, n.Content, n.ContentTranslated, n.ImageURL, string(n.Images),
		n.URL, n.Source, n.Category, n.Slug, published,
		n.ScrapedAt.UTC().Format(tsLayout), time.Now().UTC().Format(tsLayout))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return "", ErrDuplicate
		}
		return "", err
	}
	return n.ID, nil
}

const selectColumns = `SELECT id, title, title_translated, content, content_translated, image_url, images,
	url, source, category, slug, published_date, scraped_at, created_at FROM articles`

func (f *FileStore) ListRecent(ctx context.Context, limit, offset int) ([]News, error) {
	limit = clampLimit(limit, 20, 100)
	if offset < 0 {
		offset = 0
	}
	return f.query(ctx, selectColumns+" ORDER BY scraped_at DESC LIMIT ? OFFSET ?", limit, offset)
}

func (f *FileStore) GetByCategory(ctx context.Context, category string, limit int) ([]News, error) {
	limit = clampLimit(limit, 20, 100)
	return f.query(ctx, selectColumns+" WHERE category = ? ORDER BY scraped_at DESC LIMIT ?", category, limit)
}

func (f *FileStore) Search(ctx context.Context, q string, limit int) ([]News, error) {
	limit = clampLimit(limit, 20, 100)
	q = strings.TrimSpace(q)
	if q == "" {
		return []News{}, nil
	}
	like := "%" + escapeLike(q) + "%"
	return f.query(ctx, selectColumns+` WHERE title LIKE ? ESCAPE '\' OR title_translated LIKE ? ESCAPE '\'
		OR content_translated LIKE ? ESCAPE '\' ORDER BY scraped_at DESC LIMIT ?`, like, like, like, limit)
}

func (f *FileStore) GetBySlug(ctx context.Context, slug string) (*News, error) {
	list, err := f.query(ctx, selectColumns+" WHERE slug = ? LIMIT 1", slug)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return &list[0], nil
}

func (f *FileStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := f.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM articles").Scan(&n)
	return n, err
}

func (f *FileStore) query(ctx context.Context, query string, args ...any) ([]News, error) {
	rows, err := f.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []News{}
	for rows.Next() {
		var (
			n                    News
			images               string
			published            sql.NullString
			scrapedAt, createdAt string
		)
		if err := rows.Scan(&n.ID, &n.Title, &n.TitleTranslated, &n.Content, &n.ContentTranslated,
			&n.ImageURL, &images, &n.URL, &n.Source, &n.Category, &n.Slug, &published, &scrapedAt, &createdAt); err != nil {
			return nil, err
		}
		n.Images = []byte(images)
		if published.Valid && published.String != "" {
			if t, err := time.Parse(time.RFC3339, published.String); err == nil {
				n.PublishedDate = &t
			}
		}
		n.ScrapedAt, _ = time.Parse(tsLayout, scrapedAt)
		n.CreatedAt, _ = time.Parse(tsLayout, createdAt)
		list = append(list, n)
	}
	return list, rows.Err()
}
