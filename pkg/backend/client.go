package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/inkwell/portfolio/internal/constants"
	"github.com/inkwell/portfolio/internal/models"
	httpUtils "github.com/inkwell/portfolio/pkg/httpUtils"
)

// ErrNotFound is returned when the API answers 404 for a blog or page.
var ErrNotFound = errors.New("not found")

// BlogAPI is the read side of the backend consumed by the loaders.
type BlogAPI interface {
	FetchBlogs(ctx context.Context, query models.BlogQuery, timeout time.Duration) ([]models.BlogDetail, error)
	FetchBlogBySlug(ctx context.Context, slug string, timeout time.Duration) (*models.BlogDetail, error)
	FetchPageByName(ctx context.Context, name string, timeout time.Duration) (*models.PageData, error)
}

// Options configures a Client.
type Options struct {
	BaseURL       string        // Backend base URL, e.g. http://localhost:8080
	HealthTimeout time.Duration // Budget of a health probe
	WriteTimeout  time.Duration // Budget of batch sync calls
	MinVersion    string        // Optional minimum backend version reported by /health
	HTTPClient    *http.Client
}

// Client talks to the blog backend REST API.
type Client struct {
	baseURL       string
	healthTimeout time.Duration
	writeTimeout  time.Duration
	minVersion    *semver.Version
	httpClient    *http.Client
}

// NewClient validates the options and returns a Client.
func NewClient(opts Options) (*Client, error) {
	base := strings.TrimRight(opts.BaseURL, "/")
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid backend url %q: %w", opts.BaseURL, err)
	}

	c := &Client{
		baseURL:       base,
		healthTimeout: opts.HealthTimeout,
		writeTimeout:  opts.WriteTimeout,
		httpClient:    opts.HTTPClient,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.healthTimeout <= 0 {
		c.healthTimeout = constants.DefaultHealthCheckTimeout
	}
	if c.writeTimeout <= 0 {
		c.writeTimeout = constants.DefaultWriteTimeout
	}
	if opts.MinVersion != "" {
		v, err := semver.NewVersion(opts.MinVersion)
		if err != nil {
			return nil, fmt.Errorf("invalid minimum backend version %q: %w", opts.MinVersion, err)
		}
		c.minVersion = v
	}
	return c, nil
}

// BaseURL returns the normalized backend URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Health probes GET /health. Any 2xx is healthy unless a minimum version is configured
// and the body reports an older one.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to build health request: %w", err)
	}

	resp, err := httpUtils.FetchWithTimeout(ctx, c.httpClient, req, c.healthTimeout)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &httpUtils.StatusError{Method: http.MethodGet, URL: req.URL.Redacted(), StatusCode: resp.StatusCode}
	}
	if c.minVersion == nil {
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("failed to read health body: %w", err)
	}
	var health models.BackendHealth
	if err := json.Unmarshal(body, &health); err != nil || health.Version == "" {
		// Backends that do not report a version are accepted.
		return nil
	}
	version, err := semver.NewVersion(health.Version)
	if err != nil {
		return fmt.Errorf("backend reported unparsable version %q: %w", health.Version, err)
	}
	if version.LessThan(c.minVersion) {
		return fmt.Errorf("backend version %s is older than required %s", version, c.minVersion)
	}
	return nil
}

// FetchBlogs lists blogs matching query.
func (c *Client) FetchBlogs(ctx context.Context, query models.BlogQuery, timeout time.Duration) ([]models.BlogDetail, error) {
	params := url.Values{}
	if query.Limit > 0 {
		params.Set("limit", strconv.Itoa(query.Limit))
	}
	if query.Offset > 0 {
		params.Set("offset", strconv.Itoa(query.Offset))
	}
	if query.Tag != "" {
		params.Set("tag", query.Tag)
	}
	if query.Lang != "" {
		params.Set("lang", query.Lang)
	}
	if query.Published != nil {
		params.Set("published", strconv.FormatBool(*query.Published))
	}

	var out models.BlogListResponse
	if err := httpUtils.GetJSON(ctx, c.httpClient, c.baseURL+"/api/blogs?"+params.Encode(), timeout, &out); err != nil {
		return nil, fmt.Errorf("failed to fetch blogs: %w", err)
	}
	if out.Blogs == nil {
		return nil, errors.New("failed to fetch blogs: response has no blogs field")
	}
	return out.Blogs, nil
}

// FetchBlogBySlug fetches a single blog.
func (c *Client) FetchBlogBySlug(ctx context.Context, slug string, timeout time.Duration) (*models.BlogDetail, error) {
	var out models.BlogResponse
	err := httpUtils.GetJSON(ctx, c.httpClient, c.baseURL+"/api/blogs/"+url.PathEscape(slug), timeout, &out)
	if httpUtils.IsStatus(err, http.StatusNotFound) {
		return nil, fmt.Errorf("blog %q: %w", slug, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch blog %q: %w", slug, err)
	}
	if out.Blog.Slug == "" {
		return nil, fmt.Errorf("failed to fetch blog %q: empty blog in response", slug)
	}
	return &out.Blog, nil
}

// FetchPageByName fetches an editable page.
func (c *Client) FetchPageByName(ctx context.Context, name string, timeout time.Duration) (*models.PageData, error) {
	var out models.PageResponse
	err := httpUtils.GetJSON(ctx, c.httpClient, c.baseURL+"/api/pages/"+url.PathEscape(name), timeout, &out)
	if httpUtils.IsStatus(err, http.StatusNotFound) {
		return nil, fmt.Errorf("page %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page %q: %w", name, err)
	}
	return &out.Page, nil
}

// SyncBlogs upserts a batch of blogs in one call.
func (c *Client) SyncBlogs(ctx context.Context, blogs []models.CreateBlogRequest, token string) (*models.SyncResponse, error) {
	var out models.SyncResponse
	if err := httpUtils.SendJSON(ctx, c.httpClient, http.MethodPost, c.baseURL+"/api/sync-blogs", token, blogs, c.writeTimeout, &out); err != nil {
		return nil, fmt.Errorf("failed to sync blogs: %w", err)
	}
	return &out, nil
}
