package loaders

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/inkwell/portfolio/internal/constants"
	"github.com/inkwell/portfolio/internal/fallback"
	"github.com/inkwell/portfolio/internal/models"
	"github.com/inkwell/portfolio/pkg/content"
)

// PhotoSource is the local gallery tier.
type PhotoSource interface {
	ListPhotos(ctx context.Context) ([]models.Photo, error)
}

// BucketPhotoSource lists photos kept in object storage.
type BucketPhotoSource interface {
	ListPhotos(ctx context.Context, bucket, prefix string) ([]models.Photo, error)
}

// PhotoOptions configures a PhotoLoader.
type PhotoOptions struct {
	Bucket  string
	Prefix  string
	Timeout time.Duration
}

// PhotoLoader lists gallery photos. With a bucket configured the bucket listing races
// the local directory; otherwise the local directory is used directly.
type PhotoLoader struct {
	fb     *fallback.Fallback
	local  PhotoSource
	bucket BucketPhotoSource
	opts   PhotoOptions
	logger zerolog.Logger
}

// NewPhotoLoader creates a new PhotoLoader. bucket may be nil.
func NewPhotoLoader(fb *fallback.Fallback, local PhotoSource, bucket BucketPhotoSource, opts PhotoOptions, logger zerolog.Logger) *PhotoLoader {
	if opts.Timeout <= 0 {
		opts.Timeout = constants.DefaultFetchTimeout
	}
	return &PhotoLoader{fb: fb, local: local, bucket: bucket, opts: opts, logger: logger}
}

// LoadPhotos returns the gallery, highest photo number first.
func (l *PhotoLoader) LoadPhotos(ctx context.Context) (fallback.Result[[]models.Photo], error) {
	if l.bucket == nil {
		photos, err := l.local.ListPhotos(ctx)
		if err != nil {
			return fallback.Result[[]models.Photo]{}, err
		}
		return fallback.Result[[]models.Photo]{Data: photos, Source: fallback.SourceLocal}, nil
	}

	remote := func(ctx context.Context) ([]models.Photo, error) {
		photos, err := l.bucket.ListPhotos(ctx, l.opts.Bucket, l.opts.Prefix)
		if err != nil {
			return nil, err
		}
		content.SortPhotos(photos)
		return photos, nil
	}
	return fallback.RaceWithFallback(ctx, l.fb, remote, l.local.ListPhotos, l.opts.Timeout)
}

// PhotoURLs returns just the image URLs, for pickers that only need sources.
func PhotoURLs(photos []models.Photo) []string {
	urls := make([]string, 0, len(photos))
	for _, p := range photos {
		urls = append(urls, p.Src)
	}
	return urls
}
