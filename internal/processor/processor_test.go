package processor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/LJTian/TejoMag/internal/category"
	"github.com/LJTian/TejoMag/internal/collector"
)

type fakeStore struct {
	urls  map[string]bool
	slugs map[string]bool
	err   error
	calls int
}

func (f *fakeStore) Exists(_ context.Context, url string) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	return f.urls[url], nil
}

func (f *fakeStore) ExistsSlug(_ context.Context, s string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.slugs[s], nil
}

type upperTranslator struct {
	sources []string
}

func (u *upperTranslator) Translate(_ context.Context, text, source string) string {
	u.sources = append(u.sources, source)
	return strings.ToUpper(text)
}

func TestHashURLDeterministicAndDistinct(t *testing.T) {
	url1 := "https://example.com/a"
	url2 := "https://example.com/b"

	h1a := hashURL(url1)
	h1b := hashURL(url1)
	h2 := hashURL(url2)

	if h1a != h1b {
		t.Fatalf("hashURL not deterministic: %q vs %q", h1a, h1b)
	}
	if h1a == h2 {
		t.Fatalf("hashURL should differ for different URLs: %q", h1a)
	}
	if len(h1a) != 40 {
		t.Fatalf("hashURL length = %d, want 40", len(h1a))
	}
}

func TestFilterNew(t *testing.T) {
	store := &fakeStore{urls: map[string]bool{"https://a.com/known": true}}
	d := NewDeduplicator(store)

	got, err := d.FilterNew(context.Background(), []string{
		"https://a.com/new1",
		"https://a.com/known",
		"https://a.com/new1",
		"https://a.com/new2",
	})
	if err != nil {
		t.Fatalf("FilterNew: %v", err)
	}
	if len(got) != 2 || got[0] != "https://a.com/new1" || got[1] != "https://a.com/new2" {
		t.Fatalf("FilterNew = %v", got)
	}
	if store.calls != 3 {
		t.Fatalf("store queried %d times, want 3", store.calls)
	}

	store.err = errors.New("db down")
	if _, err := d.FilterNew(context.Background(), []string{"https://a.com/x"}); !errors.Is(err, store.err) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestEnrich(t *testing.T) {
	table, err := category.Default()
	if err != nil {
		t.Fatalf("category.Default: %v", err)
	}
	store := &fakeStore{slugs: map[string]bool{"president-wins-election": true}}
	tr := &upperTranslator{}
	e := NewEnricher(tr, category.NewCategorizer(table), store)
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return fixed }

	art := collector.Article{
		Title:   "President wins election",
		Content: "The government confirmed the result.",
		URL:     "https://site.com/news/1",
		Source:  "site",
	}
	out, err := e.Enrich(context.Background(), art, []string{"en"})
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if out.TitleTranslated != "PRESIDENT WINS ELECTION" {
		t.Fatalf("TitleTranslated = %q", out.TitleTranslated)
	}
	if out.Category != "Política" {
		t.Fatalf("Category = %q", out.Category)
	}
	if out.Slug != "president-wins-election-1" {
		t.Fatalf("Slug = %q", out.Slug)
	}
	if out.ID != hashURL(art.URL) || !out.ScrapedAt.Equal(fixed) {
		t.Fatalf("ID/ScrapedAt not set: %+v", out)
	}
	if out.Title != art.Title || out.URL != art.URL {
		t.Fatalf("source fields lost: %+v", out.Article)
	}
	if len(tr.sources) != 2 || tr.sources[0] != "en" {
		t.Fatalf("translator sources = %v", tr.sources)
	}

	store.err = errors.New("db down")
	if _, err := e.Enrich(context.Background(), art, []string{"en"}); err == nil {
		t.Fatalf("slug lookup failure should be returned")
	}
}
