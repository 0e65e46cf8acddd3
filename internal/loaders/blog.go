package loaders

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/inkwell/portfolio/internal/constants"
	"github.com/inkwell/portfolio/internal/fallback"
	"github.com/inkwell/portfolio/internal/models"
	"github.com/inkwell/portfolio/pkg/backend"
)

// PostSource is the local post tier.
type PostSource interface {
	ListPosts(ctx context.Context) ([]models.PostMetadata, error)
	ReadPost(ctx context.Context, slug string) (*models.Post, error)
}

// BlogOptions configures a BlogLoader.
type BlogOptions struct {
	ListTimeout   time.Duration // Budget of the remote blog list
	FetchTimeout  time.Duration // Budget of a remote single post
	DevSampleData bool          // Serve fixed samples and skip both tiers
}

// BlogLoader loads the blog list with SmartLoad and single posts with RaceWithFallback.
type BlogLoader struct {
	fb     *fallback.Fallback
	api    backend.BlogAPI
	local  PostSource
	opts   BlogOptions
	logger zerolog.Logger
}

// NewBlogLoader creates a new BlogLoader.
func NewBlogLoader(fb *fallback.Fallback, api backend.BlogAPI, local PostSource, opts BlogOptions, logger zerolog.Logger) *BlogLoader {
	if opts.ListTimeout <= 0 {
		opts.ListTimeout = constants.DefaultListFetchTimeout
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = constants.DefaultFetchTimeout
	}
	return &BlogLoader{
		fb:     fb,
		api:    api,
		local:  local,
		opts:   opts,
		logger: logger,
	}
}

// LoadPosts returns published posts, newest first, from the API when the backend is
// healthy and from local markdown otherwise.
func (l *BlogLoader) LoadPosts(ctx context.Context, forceHealthCheck bool) (fallback.Result[[]models.PostMetadata], error) {
	if l.opts.DevSampleData {
		posts := SamplePosts()
		SortNewestFirst(posts)
		return fallback.Result[[]models.PostMetadata]{Data: posts, Source: fallback.SourceLocal}, nil
	}

	res, err := fallback.SmartLoad(ctx, l.fb, l.remotePosts, l.localPosts, l.opts.ListTimeout, forceHealthCheck)
	if err != nil {
		return res, err
	}
	SortNewestFirst(res.Data)

	l.logger.Debug().
		Int("count", len(res.Data)).
		Str("source", string(res.Source)).
		Msg("Loaded blog list")
	return res, nil
}

func (l *BlogLoader) remotePosts(ctx context.Context) ([]models.PostMetadata, error) {
	published := true
	blogs, err := l.api.FetchBlogs(ctx, models.BlogQuery{Limit: constants.PostListLimit, Published: &published}, l.opts.ListTimeout)
	if err != nil {
		return nil, err
	}
	posts := make([]models.PostMetadata, 0, len(blogs))
	for _, b := range blogs {
		posts = append(posts, MetadataFromBlog(b))
	}
	return posts, nil
}

func (l *BlogLoader) localPosts(ctx context.Context) ([]models.PostMetadata, error) {
	posts, err := l.local.ListPosts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.PostMetadata, 0, len(posts))
	for _, p := range posts {
		out = append(out, NormalizeMetadata(p))
	}
	return out, nil
}

// LoadPost returns one post. The API and the timer race; a slow or failing API loses to
// the local file. An error wrapping fallback.ErrNoSource means neither tier has it.
func (l *BlogLoader) LoadPost(ctx context.Context, slug string) (fallback.Result[*models.Post], error) {
	if l.opts.DevSampleData {
		return fallback.Result[*models.Post]{Data: SamplePost(slug), Source: fallback.SourceLocal}, nil
	}

	remote := func(ctx context.Context) (*models.Post, error) {
		blog, err := l.api.FetchBlogBySlug(ctx, slug, l.opts.FetchTimeout)
		if err != nil {
			return nil, err
		}
		return PostFromBlog(*blog), nil
	}
	local := func(ctx context.Context) (*models.Post, error) {
		post, err := l.local.ReadPost(ctx, slug)
		if err != nil {
			return nil, err
		}
		post.PostMetadata = NormalizeMetadata(post.PostMetadata)
		return post, nil
	}

	res, err := fallback.RaceWithFallback(ctx, l.fb, remote, local, l.opts.FetchTimeout)
	if err != nil {
		l.logger.Warn().Err(err).Str("slug", slug).Msg("Failed to load blog post")
		return res, err
	}
	return res, nil
}
