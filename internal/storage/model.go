package storage

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/LJTian/TejoMag/internal/processor"
	"gorm.io/datatypes"
)

var (
	ErrNotFound = errors.New("article not found")
	// ErrDuplicate url 或 slug 唯一约束冲突
	ErrDuplicate = errors.New("duplicate article")
)

// News 持久化的文章记录，写入后不再修改
type News struct {
	ID                string         `gorm:"primaryKey;size:40" json:"id"`
	Title             string         `gorm:"type:text" json:"title"`
	TitleTranslated   string         `gorm:"type:text" json:"titleTranslated"`
	Content           string         `gorm:"type:text" json:"content"`
	ContentTranslated string         `gorm:"type:text" json:"contentTranslated"`
	ImageURL          string         `gorm:"size:1024" json:"imageUrl"`
	Images            datatypes.JSON `gorm:"type:jsonb" json:"images"`
	URL               string         `gorm:"size:1024;uniqueIndex" json:"url"`
	Source            string         `gorm:"size:64;index" json:"source"`
	Category          string         `gorm:"size:64;index" json:"category"`
	Slug              string         `gorm:"size:128;uniqueIndex" json:"slug"`
	PublishedDate     *time.Time     `json:"publishedDate"`
	ScrapedAt         time.Time      `gorm:"index" json:"scrapedAt"`

	CreatedAt time.Time `json:"createdAt"`
}

func (News) TableName() string { return "articles" }

// ImageList 解析 images 字段
func (n News) ImageList() []string {
	var out []string
	if len(n.Images) == 0 {
		return out
	}
	_ = json.Unmarshal(n.Images, &out)
	return out
}

func newsFromArticle(a processor.EnrichedArticle) News {
	images := a.Images
	if images == nil {
		images = []string{}
	}
	raw, _ := json.Marshal(images)

	var published *time.Time
	if a.PublishedDate != nil {
		t := a.PublishedDate.UTC()
		published = &t
	}

	return News{
		ID:                a.ID,
		Title:             toValidUTF8(a.Title),
		TitleTranslated:   toValidUTF8(a.TitleTranslated),
		Content:           toValidUTF8(a.Content),
		ContentTranslated: toValidUTF8(a.ContentTranslated),
		ImageURL:          truncateRunesDB(a.ImageURL, 1024),
		Images:            datatypes.JSON(raw),
		URL:               a.URL,
		Source:            a.Source,
		Category:          a.Category,
		Slug:              a.Slug,
		PublishedDate:     published,
		ScrapedAt:         a.ScrapedAt.UTC(),
	}
}

// toValidUTF8 将字符串规范为合法 UTF-8，避免 PostgreSQL invalid byte sequence 错误
func toValidUTF8(s string) string {
	return strings.ToValidUTF8(s, "\uFFFD")
}

// truncateRunesDB 按 rune 数截断字符串，确保不会超过数据库字段长度
func truncateRunesDB(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	s = strings.TrimSpace(s)
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit])
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 || limit > max {
		return def
	}
	return limit
}
