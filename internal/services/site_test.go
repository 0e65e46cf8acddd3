package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/inkwell/portfolio/internal/fallback"
	"github.com/inkwell/portfolio/internal/mocks"
	"github.com/inkwell/portfolio/internal/models"
	"github.com/inkwell/portfolio/pkg/markdown"
)

type fakePosts struct {
	list    fallback.Result[[]models.PostMetadata]
	listErr error
	posts   map[string]fallback.Result[*models.Post]
	forced  bool
}

func (f *fakePosts) LoadPosts(_ context.Context, force bool) (fallback.Result[[]models.PostMetadata], error) {
	f.forced = force
	return f.list, f.listErr
}

func (f *fakePosts) LoadPost(_ context.Context, slug string) (fallback.Result[*models.Post], error) {
	if res, ok := f.posts[slug]; ok {
		return res, nil
	}
	return fallback.Result[*models.Post]{}, fallback.ErrNoSource
}

type fakePages map[string]fallback.Result[string]

func (f fakePages) LoadPage(_ context.Context, name string) (fallback.Result[string], error) {
	if res, ok := f[name]; ok {
		return res, nil
	}
	return fallback.Result[string]{}, errors.New("missing page")
}

type fakePhotos struct {
	res fallback.Result[[]models.Photo]
}

func (f fakePhotos) LoadPhotos(context.Context) (fallback.Result[[]models.Photo], error) {
	return f.res, nil
}

func newTestSite(t *testing.T, posts *fakePosts) *Site {
	t.Helper()
	checker := new(mocks.HealthChecker)
	checker.On("Health", mock.Anything).Return(nil)
	monitor := fallback.NewHealthMonitor(checker, time.Minute, zerolog.Nop(), nil)

	pages := fakePages{
		"home":    {Data: "# Welcome", Source: fallback.SourceLocal},
		"project": {Data: "- go-recipe", Source: fallback.SourceRemote},
	}
	photos := fakePhotos{res: fallback.Result[[]models.Photo]{
		Data:   []models.Photo{{Src: "/photography_assets/2.jpg", Alt: "two"}},
		Source: fallback.SourceLocal,
	}}

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1.jpg"), []byte("jpeg"), 0o644))

	site, err := NewSite(posts, pages, photos, markdown.NewRenderer(), monitor, SiteOptions{
		Title:       "Inkwell",
		URL:         "https://example.com",
		PhotosDir:   dir,
		CommentsURL: "ws://comments.example.com",
		Version:     "1.2.3",
	}, zerolog.Nop())
	require.NoError(t, err)
	site.now = func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }
	return site
}

func defaultPosts() *fakePosts {
	return &fakePosts{
		list: fallback.Result[[]models.PostMetadata]{
			Data: []models.PostMetadata{
				{Title: "Newest", Slug: "newest", Date: "2024-04-01", Tags: []string{"go"}, Duration: "3min"},
				{Title: "Older", Slug: "older", Date: "2023-04-01", Tags: []string{}},
			},
			Source: fallback.SourceRemote,
		},
		posts: map[string]fallback.Result[*models.Post]{
			"newest": {
				Data: &models.Post{
					PostMetadata: models.PostMetadata{Title: "Newest", Slug: "newest", Lang: "en"},
					Content:      "## Hello\n\nBody text",
				},
				Source: fallback.SourceRemote,
			},
		},
	}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

// TestSite_Home verifies the home page renders page markdown and recent posts.
func TestSite_Home(t *testing.T) {
	h := newTestSite(t, defaultPosts()).Routes()

	rec := get(t, h, "/")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "local", rec.Header().Get(HeaderContentSource))
	assert.Contains(t, rec.Body.String(), "<h1 id=\"welcome\">Welcome</h1>")
	assert.Contains(t, rec.Body.String(), `href="/blog/newest"`)
}

// TestSite_BlogList verifies the list, its source header and the hero photo.
func TestSite_BlogList(t *testing.T) {
	posts := defaultPosts()
	h := newTestSite(t, posts).Routes()

	rec := get(t, h, "/blog?refresh=1")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "remote", rec.Header().Get(HeaderContentSource))
	assert.True(t, posts.forced)
	body := rec.Body.String()
	assert.Contains(t, body, "Newest")
	assert.Contains(t, body, "Older")
	assert.Contains(t, body, `src="/photography_assets/2.jpg"`)
}

// TestSite_BlogListFailure verifies a failing list renders an empty page.
func TestSite_BlogListFailure(t *testing.T) {
	posts := &fakePosts{listErr: fallback.ErrNoSource}
	h := newTestSite(t, posts).Routes()

	rec := get(t, h, "/blog")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "none", rec.Header().Get(HeaderContentSource))
	assert.Contains(t, rec.Body.String(), "No posts yet.")
}

// TestSite_Post verifies rendering and caching headers of a single post.
func TestSite_Post(t *testing.T) {
	h := newTestSite(t, defaultPosts()).Routes()

	rec := get(t, h, "/blog/newest")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "remote", rec.Header().Get(HeaderContentSource))
	assert.Equal(t, postCacheControl, rec.Header().Get("Cache-Control"))
	assert.Contains(t, rec.Body.String(), "<h2 id=\"hello\">Hello</h2>")
	assert.Contains(t, rec.Body.String(), `data-ws="ws://comments.example.com"`)
}

// TestSite_PostNotFound verifies an unknown slug renders the 404 page.
func TestSite_PostNotFound(t *testing.T) {
	h := newTestSite(t, defaultPosts()).Routes()

	rec := get(t, h, "/blog/missing")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Not found")
}

// TestSite_Project verifies the project page reports its tier.
func TestSite_Project(t *testing.T) {
	h := newTestSite(t, defaultPosts()).Routes()

	rec := get(t, h, "/project")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "remote", rec.Header().Get(HeaderContentSource))
	assert.Contains(t, rec.Body.String(), "go-recipe")
}

// TestSite_Photography verifies the gallery and static assets.
func TestSite_Photography(t *testing.T) {
	h := newTestSite(t, defaultPosts()).Routes()

	rec := get(t, h, "/photography")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `alt="two"`)

	rec = get(t, h, "/photography_assets/1.jpg")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "jpeg", rec.Body.String())
}

// TestSite_Feed verifies the RSS response headers and items.
func TestSite_Feed(t *testing.T) {
	h := newTestSite(t, defaultPosts()).Routes()

	rec := get(t, h, "/rss.xml")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/rss+xml; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, feedCacheControl, rec.Header().Get("Cache-Control"))
	assert.Contains(t, rec.Body.String(), "https://example.com/blog/newest")
}

// TestSite_Health verifies the health report.
func TestSite_Health(t *testing.T) {
	h := newTestSite(t, defaultPosts()).Routes()

	rec := get(t, h, "/healthz")

	require.Equal(t, http.StatusOK, rec.Code)
	var report models.HealthReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "ok", report.Status)
	assert.Equal(t, "unknown", report.Backend)
	assert.Equal(t, "1.2.3", report.Version)
}

// TestSite_UnknownRoute verifies unmatched paths get the 404 page.
func TestSite_UnknownRoute(t *testing.T) {
	h := newTestSite(t, defaultPosts()).Routes()

	rec := get(t, h, "/nope")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "none", rec.Header().Get(HeaderContentSource))
}

// TestSite_MetricsMounted verifies the optional handlers are routed.
func TestSite_MetricsMounted(t *testing.T) {
	site := newTestSite(t, defaultPosts())
	site.Metrics = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("metrics"))
	})

	rec := get(t, site.Routes(), "/metrics")

	assert.Equal(t, "metrics", rec.Body.String())
}
