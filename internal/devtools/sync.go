package devtools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math/rand"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/inkwell/portfolio/internal/constants"
	"github.com/inkwell/portfolio/internal/models"
	"github.com/inkwell/portfolio/internal/utils"
	"github.com/inkwell/portfolio/pkg/content"
	"github.com/inkwell/portfolio/pkg/file"
	httpUtils "github.com/inkwell/portfolio/pkg/httpUtils"
	"github.com/inkwell/portfolio/pkg/jwt"
)

// BlogSyncAPI is the write side of the backend used by the sync tool.
type BlogSyncAPI interface {
	SyncBlogs(ctx context.Context, blogs []models.CreateBlogRequest, token string) (*models.SyncResponse, error)
}

// SyncOptions controls a Sync run.
type SyncOptions struct {
	Dir           string        // Posts directory
	Token         string        // Bearer token, may be empty
	RetryAttempts int           // Retries after the first attempt
	BaseDelay     time.Duration // First retry delay
	MaxDelay      time.Duration // Cap of a single retry delay
}

// SyncReport is the outcome of a Sync run.
type SyncReport struct {
	Blogs      []models.CreateBlogRequest
	FileBySlug map[string]string
	FileErrors []error
	Warnings   []string
	Attempts   int
	Response   *models.SyncResponse
}

// BlogSyncer uploads local posts to the backend in one batch.
type BlogSyncer struct {
	api    BlogSyncAPI
	files  file.FileOperations
	tokens jwt.JWTManagerInterface
	logger zerolog.Logger
	rng    *rand.Rand
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewBlogSyncer creates a BlogSyncer.
func NewBlogSyncer(api BlogSyncAPI, files file.FileOperations, tokens jwt.JWTManagerInterface, logger zerolog.Logger) *BlogSyncer {
	return &BlogSyncer{
		api:    api,
		files:  files,
		tokens: tokens,
		logger: logger,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		now:    time.Now,
		sleep:  sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CollectPosts reads every post in dir as a sync request. Missing fields fall back to
// the file name, today's date and the usual post defaults. Files that cannot be parsed
// are reported and skipped.
func (s *BlogSyncer) CollectPosts(dir string) ([]models.CreateBlogRequest, map[string]string, []error, error) {
	names, err := s.files.ListFiles(dir, map[string]struct{}{".md": {}})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, nil, fmt.Errorf("posts directory %s not found", dir)
		}
		return nil, nil, nil, err
	}

	blogs := make([]models.CreateBlogRequest, 0, len(names))
	fileBySlug := make(map[string]string, len(names))
	var fileErrors []error
	for _, name := range names {
		raw, err := s.files.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fileErrors = append(fileErrors, fmt.Errorf("%s: %w", name, err))
			continue
		}
		fm, _, err := content.ParseFrontmatter(raw)
		if err != nil {
			fileErrors = append(fileErrors, fmt.Errorf("%s: %w", name, err))
			continue
		}

		base := strings.TrimSuffix(name, filepath.Ext(name))
		blog := models.CreateBlogRequest{
			Title:       utils.FirstNonEmpty(fm.Title, base),
			Slug:        utils.FirstNonEmpty(fm.Slug, base),
			Date:        utils.FirstNonEmpty(fm.Date, s.now().Format("2006-01-02")),
			Lang:        utils.FirstNonEmpty(fm.Lang, constants.DefaultPostLang),
			Duration:    utils.FirstNonEmpty(fm.Duration, constants.DefaultPostDuration),
			Tags:        fm.Tags,
			Description: fm.Description,
			IsPublished: true,
		}
		if blog.Tags == nil {
			blog.Tags = []string{}
		}
		s.logger.Debug().Str("file", name).Str("slug", blog.Slug).Msg("Prepared post for sync")
		blogs = append(blogs, blog)
		fileBySlug[blog.Slug] = name
	}
	return blogs, fileBySlug, fileErrors, nil
}

// Sync collects local posts and posts them as one batch, retrying transient failures
// with exponential backoff and jitter.
func (s *BlogSyncer) Sync(ctx context.Context, opts SyncOptions) (*SyncReport, error) {
	report := &SyncReport{}
	report.Warnings = s.checkToken(opts.Token)

	blogs, fileBySlug, fileErrors, err := s.CollectPosts(opts.Dir)
	if err != nil {
		return report, err
	}
	report.Blogs = blogs
	report.FileBySlug = fileBySlug
	report.FileErrors = fileErrors
	s.logger.Info().Int("posts", len(blogs)).Int("skipped", len(fileErrors)).Msg("Syncing posts to backend")

	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 500 * time.Millisecond
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 10 * time.Second
	}

	for attempt := 0; attempt <= opts.RetryAttempts; attempt++ {
		report.Attempts = attempt + 1
		resp, err := s.api.SyncBlogs(ctx, blogs, opts.Token)
		if err == nil {
			report.Response = resp
			return report, nil
		}
		if attempt == opts.RetryAttempts || !retryable(err) {
			return report, fmt.Errorf("sync failed after %d attempt(s): %w", attempt+1, err)
		}

		delay := s.backoff(attempt, opts.BaseDelay, opts.MaxDelay)
		s.logger.Warn().Err(err).Int("attempt", attempt+1).Dur("retry_in", delay).Msg("Sync failed, retrying")
		if err := s.sleep(ctx, delay); err != nil {
			return report, fmt.Errorf("sync cancelled: %w", err)
		}
	}
	return report, nil
}

func (s *BlogSyncer) backoff(attempt int, base, max time.Duration) time.Duration {
	delay := base * time.Duration(1<<uint(attempt))
	if delay > max {
		delay = max
	}
	jitter := time.Duration(float64(delay) * (0.5 + s.rng.Float64()*0.5))
	return time.Duration(float64(delay)*0.75) + jitter
}

// retryable reports whether err may succeed on a later attempt. Client errors other than
// 408 and 429 will not.
func retryable(err error) bool {
	var statusErr *httpUtils.StatusError
	if errors.As(err, &statusErr) {
		code := statusErr.StatusCode
		return code >= 500 || code == http.StatusRequestTimeout || code == http.StatusTooManyRequests
	}
	return !errors.Is(err, context.Canceled)
}

func (s *BlogSyncer) checkToken(token string) []string {
	if token == "" {
		return []string{"no authentication token provided; some operations may fail"}
	}
	info, err := s.tokens.Inspect(token)
	if err != nil {
		return []string{fmt.Sprintf("token could not be decoded: %v", err)}
	}
	if info.Expired(s.now()) {
		return []string{fmt.Sprintf("token expired at %s", info.ExpiresAt.UTC().Format(time.RFC3339))}
	}
	return nil
}

// Print writes a human readable summary.
func (r *SyncReport) Print(w io.Writer) {
	for _, warning := range r.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
	for _, err := range r.FileErrors {
		fmt.Fprintf(w, "skipped: %v\n", err)
	}
	if r.Response == nil {
		fmt.Fprintf(w, "prepared %d post(s), sync did not complete\n", len(r.Blogs))
		return
	}

	summary := r.Response.Summary
	fmt.Fprintf(w, "Total: %d\nSuccess: %d\nFailed: %d\n", summary.Total, summary.Success, summary.Failed)
	for _, res := range r.Response.Results {
		if res.Blog == nil {
			continue
		}
		name := r.FileBySlug[res.Blog.Slug]
		if name == "" {
			name = "unknown"
		}
		fmt.Fprintf(w, "  - %s (%s): %s\n", name, res.Action, res.Blog.Title)
	}
	for _, e := range r.Response.Errors {
		fmt.Fprintf(w, "  ! %s\n", e)
	}
}
