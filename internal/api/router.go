package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/LJTian/TejoMag/internal/pipeline"
	"github.com/LJTian/TejoMag/internal/scheduler"
	"github.com/LJTian/TejoMag/internal/storage"
	"github.com/gin-gonic/gin"
)

// Reader 只读查询，由 storage.Store 或 storage.FileStore 提供
type Reader interface {
	ListRecent(ctx context.Context, limit, offset int) ([]storage.News, error)
	Count(ctx context.Context) (int64, error)
	Search(ctx context.Context, q string, limit int) ([]storage.News, error)
	GetBySlug(ctx context.Context, slug string) (*storage.News, error)
	GetByCategory(ctx context.Context, category string, limit int) ([]storage.News, error)
}

// Runner 手动刷新与状态查询，由 scheduler.Scheduler 提供
type Runner interface {
	Trigger(ctx context.Context) (pipeline.RunSummary, error)
	Status() scheduler.Status
}

type Server struct {
	store      Reader
	runner     Runner
	categories []string
}

func NewServer(store Reader, runner Runner, categories []string) *Server {
	return &Server{store: store, runner: runner, categories: categories}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)

	g := r.Group("/api")
	{
		g.GET("/health", s.health)
		g.GET("/news", s.listNews)
		g.GET("/news/search", s.searchNews)
		g.GET("/news/categories", s.listCategories)
		g.GET("/news/category/:category", s.newsByCategory)
		g.GET("/news/slug/:slug", s.newsBySlug)
		g.POST("/news/refresh", s.refresh)
		g.GET("/scheduler/status", s.schedulerStatus)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listNews(c *gin.Context) {
	limit := queryInt(c, "limit", 20)
	offset := queryInt(c, "offset", 0)

	items, err := s.store.ListRecent(c.Request.Context(), limit, offset)
	if err != nil {
		internalError(c, err)
		return
	}
	total, err := s.store.Count(c.Request.Context())
	if err != nil {
		internalError(c, err)
		return
	}

	ok(c, gin.H{
		"items":  items,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

func (s *Server) searchNews(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		fail(c, http.StatusBadRequest, "bad_request", "missing query parameter q")
		return
	}
	items, err := s.store.Search(c.Request.Context(), q, queryInt(c, "limit", 20))
	if err != nil {
		internalError(c, err)
		return
	}
	ok(c, items)
}

func (s *Server) listCategories(c *gin.Context) {
	ok(c, s.categories)
}

func (s *Server) newsByCategory(c *gin.Context) {
	category := c.Param("category")
	if !s.knownCategory(category) {
		fail(c, http.StatusNotFound, "not_found", "unknown category")
		return
	}
	items, err := s.store.GetByCategory(c.Request.Context(), category, queryInt(c, "limit", 20))
	if err != nil {
		internalError(c, err)
		return
	}
	ok(c, items)
}

func (s *Server) newsBySlug(c *gin.Context) {
	n, err := s.store.GetBySlug(c.Request.Context(), c.Param("slug"))
	if errors.Is(err, storage.ErrNotFound) {
		fail(c, http.StatusNotFound, "not_found", "article not found")
		return
	}
	if err != nil {
		internalError(c, err)
		return
	}
	ok(c, n)
}

// refresh 同步执行一轮采集；已有任务在跑时返回 409
func (s *Server) refresh(c *gin.Context) {
	// 客户端断开也让本轮跑完
	sum, err := s.runner.Trigger(context.WithoutCancel(c.Request.Context()))
	if errors.Is(err, scheduler.ErrRunInProgress) {
		fail(c, http.StatusConflict, "run_in_progress", "run in progress")
		return
	}
	if errors.Is(err, scheduler.ErrStopped) {
		fail(c, http.StatusServiceUnavailable, "unavailable", "scheduler stopped")
		return
	}
	if err != nil {
		internalError(c, err)
		return
	}
	ok(c, sum)
}

func (s *Server) schedulerStatus(c *gin.Context) {
	ok(c, s.runner.Status())
}

func (s *Server) knownCategory(label string) bool {
	for _, l := range s.categories {
		if l == label {
			return true
		}
	}
	return false
}

func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.DefaultQuery(key, strconv.Itoa(def)))
	if err != nil || v < 0 {
		return def
	}
	return v
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    data,
	})
}

func fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"code":    code,
		"message": message,
	})
}

func internalError(c *gin.Context, err error) {
	log.Printf("api: %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	fail(c, http.StatusInternalServerError, "internal_error", "internal server error")
}
