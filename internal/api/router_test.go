package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/LJTian/TejoMag/internal/pipeline"
	"github.com/LJTian/TejoMag/internal/scheduler"
	"github.com/LJTian/TejoMag/internal/storage"
	"github.com/gin-gonic/gin"
)

type fakeReader struct {
	news []storage.News
}

func (f *fakeReader) ListRecent(_ context.Context, limit, offset int) ([]storage.News, error) {
	if offset >= len(f.news) {
		return []storage.News{}, nil
	}
	end := offset + limit
	if end > len(f.news) {
		end = len(f.news)
	}
	return f.news[offset:end], nil
}

func (f *fakeReader) Count(context.Context) (int64, error) { return int64(len(f.news)), nil }

func (f *fakeReader) Search(_ context.Context, q string, _ int) ([]storage.News, error) {
	var out []storage.News
	for _, n := range f.news {
		if n.TitleTranslated == q {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeReader) GetBySlug(_ context.Context, slug string) (*storage.News, error) {
	for i := range f.news {
		if f.news[i].Slug == slug {
			return &f.news[i], nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeReader) GetByCategory(_ context.Context, category string, _ int) ([]storage.News, error) {
	var out []storage.News
	for _, n := range f.news {
		if n.Category == category {
			out = append(out, n)
		}
	}
	return out, nil
}

type fakeRunner struct {
	busy    bool
	stopped bool
}

func (f *fakeRunner) Trigger(context.Context) (pipeline.RunSummary, error) {
	if f.stopped {
		return pipeline.RunSummary{}, scheduler.ErrStopped
	}
	if f.busy {
		return pipeline.RunSummary{}, scheduler.ErrRunInProgress
	}
	return pipeline.RunSummary{RunID: "r1", Persisted: 3, Skipped: 1}, nil
}

func (f *fakeRunner) Status() scheduler.Status {
	return scheduler.Status{Running: f.busy, CronSpec: "0 * * * *"}
}

type envelope struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func setup(t *testing.T, runner *fakeRunner) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	reader := &fakeReader{news: []storage.News{
		{ID: "1", Slug: "um", Category: "Política", TitleTranslated: "Um"},
		{ID: "2", Slug: "dois", Category: "Economia", TitleTranslated: "Dois"},
	}}
	r := gin.New()
	NewServer(reader, runner, []string{"Política", "Economia", "Geral"}).RegisterRoutes(r)
	return r
}

func do(t *testing.T, r *gin.Engine, method, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	r.ServeHTTP(w, req)
	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func TestListNewsPaginates(t *testing.T) {
	r := setup(t, &fakeRunner{})
	w, env := do(t, r, http.MethodGet, "/api/news?limit=1&offset=1")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var data struct {
		Items []storage.News `json:"items"`
		Total int64          `json:"total"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if data.Total != 2 || len(data.Items) != 1 || data.Items[0].Slug != "dois" {
		t.Fatalf("data = %+v", data)
	}
}

func TestNewsBySlugAndCategory(t *testing.T) {
	r := setup(t, &fakeRunner{})

	w, env := do(t, r, http.MethodGet, "/api/news/slug/um")
	if w.Code != http.StatusOK {
		t.Fatalf("slug status = %d", w.Code)
	}
	var n storage.News
	if err := json.Unmarshal(env.Data, &n); err != nil || n.ID != "1" {
		t.Fatalf("slug data = %s (%v)", env.Data, err)
	}

	if w, _ := do(t, r, http.MethodGet, "/api/news/slug/missing"); w.Code != http.StatusNotFound {
		t.Fatalf("missing slug status = %d", w.Code)
	}

	w, env = do(t, r, http.MethodGet, "/api/news/category/"+url.PathEscape("Política"))
	if w.Code != http.StatusOK {
		t.Fatalf("category status = %d", w.Code)
	}
	var items []storage.News
	if err := json.Unmarshal(env.Data, &items); err != nil || len(items) != 1 {
		t.Fatalf("category data = %s", env.Data)
	}
	if w, _ := do(t, r, http.MethodGet, "/api/news/category/Nope"); w.Code != http.StatusNotFound {
		t.Fatalf("unknown category status = %d", w.Code)
	}
}

func TestCategoriesAndSearch(t *testing.T) {
	r := setup(t, &fakeRunner{})

	_, env := do(t, r, http.MethodGet, "/api/news/categories")
	var labels []string
	if err := json.Unmarshal(env.Data, &labels); err != nil || len(labels) != 3 || labels[2] != "Geral" {
		t.Fatalf("categories = %s", env.Data)
	}

	if w, _ := do(t, r, http.MethodGet, "/api/news/search"); w.Code != http.StatusBadRequest {
		t.Fatalf("empty search status = %d", w.Code)
	}
	_, env = do(t, r, http.MethodGet, "/api/news/search?q=Dois")
	var items []storage.News
	if err := json.Unmarshal(env.Data, &items); err != nil || len(items) != 1 {
		t.Fatalf("search = %s", env.Data)
	}
}

func TestRefresh(t *testing.T) {
	runner := &fakeRunner{}
	r := setup(t, runner)

	w, env := do(t, r, http.MethodPost, "/api/news/refresh")
	if w.Code != http.StatusOK {
		t.Fatalf("refresh status = %d", w.Code)
	}
	var sum pipeline.RunSummary
	if err := json.Unmarshal(env.Data, &sum); err != nil || sum.Persisted != 3 || sum.Skipped != 1 {
		t.Fatalf("summary = %s", env.Data)
	}

	runner.busy = true
	w, env = do(t, r, http.MethodPost, "/api/news/refresh")
	if w.Code != http.StatusConflict || env.Code != "run_in_progress" {
		t.Fatalf("busy refresh = %d %+v", w.Code, env)
	}

	runner.stopped = true
	if w, _ := do(t, r, http.MethodPost, "/api/news/refresh"); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("refresh after stop = %d", w.Code)
	}

	w, env = do(t, r, http.MethodGet, "/api/scheduler/status")
	var st scheduler.Status
	if err := json.Unmarshal(env.Data, &st); err != nil || !st.Running || w.Code != http.StatusOK {
		t.Fatalf("status = %s", env.Data)
	}
}

func TestHealth(t *testing.T) {
	r := setup(t, &fakeRunner{})
	for _, p := range []string{"/health", "/api/health"} {
		if w, _ := do(t, r, http.MethodGet, p); w.Code != http.StatusOK {
			t.Fatalf("%s status = %d", p, w.Code)
		}
	}
}
