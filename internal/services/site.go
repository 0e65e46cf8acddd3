package services

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/inkwell/portfolio/internal/constants"
	"github.com/inkwell/portfolio/internal/fallback"
	"github.com/inkwell/portfolio/internal/loaders"
	"github.com/inkwell/portfolio/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

// HeaderContentSource tells which tier served a page.
const HeaderContentSource = "X-Content-Source"

const (
	postCacheControl = "public, max-age=600, s-maxage=600, stale-while-revalidate=86400"
	feedCacheControl = "max-age=3600"
	recentPostsCount = 5
)

// PostLoader loads the blog list and single posts.
type PostLoader interface {
	LoadPosts(ctx context.Context, forceHealthCheck bool) (fallback.Result[[]models.PostMetadata], error)
	LoadPost(ctx context.Context, slug string) (fallback.Result[*models.Post], error)
}

// PageLoader loads editable pages.
type PageLoader interface {
	LoadPage(ctx context.Context, name string) (fallback.Result[string], error)
}

// PhotoLoader loads the gallery.
type PhotoLoader interface {
	LoadPhotos(ctx context.Context) (fallback.Result[[]models.Photo], error)
}

// MarkdownRenderer converts markdown to HTML.
type MarkdownRenderer interface {
	Render(source string) (template.HTML, error)
}

// SiteOptions configures a Site.
type SiteOptions struct {
	Title       string
	Description string
	URL         string
	FeedLang    string
	PhotosDir   string
	CommentsURL string
	Version     string
}

// Site serves the portfolio pages.
type Site struct {
	Posts    PostLoader
	Pages    PageLoader
	Photos   PhotoLoader
	Markdown MarkdownRenderer
	Health   *fallback.HealthMonitor
	Hub      http.Handler // optional, mounted at /ws
	Metrics  http.Handler // optional, mounted at /metrics
	Options  SiteOptions
	Logger   zerolog.Logger

	templates map[string]*template.Template
	started   time.Time
	now       func() time.Time
}

type viewData struct {
	Title       string
	SiteTitle   string
	Lang        string
	Source      fallback.Source
	Year        int
	PageName    string
	Body        template.HTML
	Posts       []models.PostMetadata
	Post        *models.Post
	Photos      []models.Photo
	Hero        string
	PhotoList   string
	CommentsURL string
}

// NewSite parses the embedded templates.
func NewSite(posts PostLoader, pages PageLoader, photos PhotoLoader, md MarkdownRenderer, health *fallback.HealthMonitor, opts SiteOptions, logger zerolog.Logger) (*Site, error) {
	views := []string{"page", "blog", "post", "photography", "notfound"}
	templates := make(map[string]*template.Template, len(views))
	for _, name := range views {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, err
		}
		templates[name] = t
	}
	if opts.FeedLang == "" {
		opts.FeedLang = constants.DefaultFeedLang
	}
	return &Site{
		Posts:     posts,
		Pages:     pages,
		Photos:    photos,
		Markdown:  md,
		Health:    health,
		Options:   opts,
		Logger:    logger,
		templates: templates,
		started:   time.Now(),
		now:       time.Now,
	}, nil
}

// Routes returns the site's handler.
func (s *Site) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /blog", s.handleBlog)
	mux.HandleFunc("GET /blog/{slug}", s.handlePost)
	mux.HandleFunc("GET /project", s.handleProject)
	mux.HandleFunc("GET /photography", s.handlePhotography)
	mux.HandleFunc("GET /rss.xml", s.handleFeed)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.Options.PhotosDir != "" {
		mux.Handle("GET /photography_assets/", http.StripPrefix("/photography_assets/", http.FileServer(http.Dir(s.Options.PhotosDir))))
	}
	if s.Hub != nil {
		mux.Handle("GET /ws", s.Hub)
	}
	if s.Metrics != nil {
		mux.Handle("GET /metrics", s.Metrics)
	}
	mux.HandleFunc("/", s.handleNotFound)
	return mux
}

func (s *Site) handleHome(w http.ResponseWriter, r *http.Request) {
	s.servePage(w, r, constants.PageHome, "", true)
}

func (s *Site) handleProject(w http.ResponseWriter, r *http.Request) {
	s.servePage(w, r, constants.PageProject, "Project", false)
}

func (s *Site) servePage(w http.ResponseWriter, r *http.Request, name, title string, withRecent bool) {
	data := s.view(title)
	data.PageName = name

	res, err := s.Pages.LoadPage(r.Context(), name)
	if err != nil {
		s.Logger.Error().Err(err).Str("page", name).Msg("Failed to load page")
	} else {
		data.Source = res.Source
		data.Body = s.render(res.Data)
	}

	if withRecent {
		if posts, err := s.Posts.LoadPosts(r.Context(), false); err == nil {
			data.Posts = posts.Data[:min(recentPostsCount, len(posts.Data))]
		}
	}
	s.writeView(w, http.StatusOK, "page", data)
}

func (s *Site) handleBlog(w http.ResponseWriter, r *http.Request) {
	data := s.view("Blog")

	res, err := s.Posts.LoadPosts(r.Context(), r.URL.Query().Has("refresh"))
	if err != nil {
		s.Logger.Error().Err(err).Msg("Failed to load blog list")
	} else {
		data.Source = res.Source
		data.Posts = res.Data
	}

	if photos, err := s.Photos.LoadPhotos(r.Context()); err == nil && len(photos.Data) > 0 {
		urls := loaders.PhotoURLs(photos.Data)
		data.Hero = urls[0]
		if encoded, err := json.Marshal(urls); err == nil {
			data.PhotoList = string(encoded)
		}
	}
	s.writeView(w, http.StatusOK, "blog", data)
}

func (s *Site) handlePost(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	res, err := s.Posts.LoadPost(r.Context(), slug)
	if err != nil {
		if !errors.Is(err, fallback.ErrNoSource) {
			s.Logger.Error().Err(err).Str("slug", slug).Msg("Failed to load post")
		}
		s.handleNotFound(w, r)
		return
	}

	data := s.view(res.Data.Title)
	data.Source = res.Source
	data.Lang = res.Data.Lang
	data.Post = res.Data
	data.Body = s.render(res.Data.Content)
	data.CommentsURL = s.Options.CommentsURL

	w.Header().Set("Cache-Control", postCacheControl)
	s.writeView(w, http.StatusOK, "post", data)
}

func (s *Site) handlePhotography(w http.ResponseWriter, r *http.Request) {
	data := s.view("Photography")
	res, err := s.Photos.LoadPhotos(r.Context())
	if err != nil {
		s.Logger.Error().Err(err).Msg("Failed to load photos")
	} else {
		data.Source = res.Source
		data.Photos = res.Data
	}
	s.writeView(w, http.StatusOK, "photography", data)
}

func (s *Site) handleFeed(w http.ResponseWriter, r *http.Request) {
	var posts []models.PostMetadata
	source := sourceNone
	if res, err := s.Posts.LoadPosts(r.Context(), false); err != nil {
		s.Logger.Error().Err(err).Msg("Failed to load posts for feed")
	} else {
		posts = res.Data
		source = res.Source
	}

	feed, err := loaders.BuildFeed(posts, loaders.FeedOptions{
		Title:       s.Options.Title,
		Description: s.Options.Description,
		SiteURL:     s.Options.URL,
		Language:    s.Options.FeedLang,
	}, s.now())
	if err != nil {
		s.Logger.Error().Err(err).Msg("Failed to build feed")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.Header().Set("Cache-Control", feedCacheControl)
	w.Header().Set(HeaderContentSource, string(source))
	_, _ = w.Write(feed)
}

func (s *Site) handleHealth(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	report := models.HealthReport{
		Status:        "ok",
		Backend:       s.Health.State().String(),
		LastCheck:     s.Health.LastCheck(),
		Timestamp:     now,
		UptimeSeconds: int64(now.Sub(s.started).Seconds()),
		Version:       s.Options.Version,
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(report); err != nil {
		s.Logger.Warn().Err(err).Msg("Failed to write health report")
	}
}

func (s *Site) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.writeView(w, http.StatusNotFound, "notfound", s.view("Not found"))
}

// sourceNone marks a page rendered without content from either tier.
const sourceNone fallback.Source = "none"

func (s *Site) view(title string) viewData {
	return viewData{
		Title:     title,
		SiteTitle: s.Options.Title,
		Lang:      constants.DefaultPostLang,
		Source:    sourceNone,
		Year:      s.now().Year(),
	}
}

func (s *Site) render(markdown string) template.HTML {
	html, err := s.Markdown.Render(markdown)
	if err != nil {
		s.Logger.Error().Err(err).Msg("Failed to render markdown")
		return ""
	}
	return html
}

// writeView renders into a buffer before any header is written.
func (s *Site) writeView(w http.ResponseWriter, status int, name string, data viewData) {
	var buf bytes.Buffer
	if err := s.templates[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		s.Logger.Error().Err(err).Str("template", name).Msg("Failed to render template")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set(HeaderContentSource, string(data.Source))
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
