package content

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/inkwell/portfolio/internal/constants"
	"github.com/inkwell/portfolio/internal/models"
	"github.com/inkwell/portfolio/internal/utils"
	"github.com/inkwell/portfolio/pkg/file"
)

const postExt = ".md"

// ErrNotFound is returned when a post or page has no local file.
var ErrNotFound = errors.New("content not found")

var slugPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// Options locates the local content tree.
type Options struct {
	PostsDir       string // Markdown posts, one <slug>.md each
	PagesDir       string // Editable pages, one <name>.md each
	PhotosDir      string // Gallery images
	PhotoURLPrefix string // URL path the photos dir is served under
	Workers        int    // Parallel parsers for ListPosts
}

// Store is the local fallback tier: markdown posts, page files and the photo directory.
type Store struct {
	opts      Options
	files     file.FileOperations
	photoExts map[string]struct{}
	logger    zerolog.Logger
}

// NewStore returns a Store reading through files.
func NewStore(opts Options, files file.FileOperations, logger zerolog.Logger) *Store {
	if opts.PhotoURLPrefix == "" {
		opts.PhotoURLPrefix = "/photography_assets/"
	}
	return &Store{
		opts:      opts,
		files:     files,
		photoExts: utils.SliceToSet(constants.PhotoExtensions),
		logger:    logger,
	}
}

// PostsDir returns the directory posts are read from.
func (s *Store) PostsDir() string {
	return s.opts.PostsDir
}

// ListPosts returns the metadata of every local post that has a title, slug and date.
// Files that cannot be parsed are logged and skipped. A missing directory yields an
// empty list.
func (s *Store) ListPosts(ctx context.Context) ([]models.PostMetadata, error) {
	names, err := s.files.ListFiles(s.opts.PostsDir, map[string]struct{}{postExt: {}})
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn().Str("dir", s.opts.PostsDir).Msg("Posts directory does not exist")
		return []models.PostMetadata{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	type parsed struct {
		meta models.PostMetadata
		ok   bool
	}
	results := utils.ParallelMap(s.opts.Workers, names, func(name string) parsed {
		if ctx.Err() != nil {
			return parsed{}
		}
		meta, err := s.readMetadata(filepath.Join(s.opts.PostsDir, name))
		if err != nil {
			s.logger.Warn().Err(err).Str("file", name).Msg("Skipping unreadable post")
			return parsed{}
		}
		if meta.Slug == "" || meta.Title == "" || meta.Date == "" {
			s.logger.Debug().Str("file", name).Msg("Skipping post without title, slug or date")
			return parsed{}
		}
		return parsed{meta: meta, ok: true}
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	posts := make([]models.PostMetadata, 0, len(results))
	for _, r := range results {
		if r.ok {
			posts = append(posts, r.meta)
		}
	}
	return posts, nil
}

func (s *Store) readMetadata(filePath string) (models.PostMetadata, error) {
	raw, err := s.files.ReadFile(filePath)
	if err != nil {
		return models.PostMetadata{}, err
	}
	fm, _, err := ParseFrontmatter(raw)
	if err != nil {
		return models.PostMetadata{}, err
	}
	return metadataFrom(fm), nil
}

// ReadPost loads <PostsDir>/<slug>.md. The slug defaults to the file name when the
// frontmatter omits it.
func (s *Store) ReadPost(ctx context.Context, slug string) (*models.Post, error) {
	if !slugPattern.MatchString(slug) {
		return nil, fmt.Errorf("post %q: %w", slug, ErrNotFound)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := s.files.ReadFile(filepath.Join(s.opts.PostsDir, slug+postExt))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("post %q: %w", slug, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read post %q: %w", slug, err)
	}

	fm, body, err := ParseFrontmatter(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse post %q: %w", slug, err)
	}
	meta := metadataFrom(fm)
	if meta.Slug == "" {
		meta.Slug = slug
	}
	return &models.Post{PostMetadata: meta, Content: strings.TrimSpace(body)}, nil
}

// ReadPage loads <PagesDir>/<name>.md. A missing file is ErrNotFound.
func (s *Store) ReadPage(ctx context.Context, name string) (string, error) {
	if !slugPattern.MatchString(name) {
		return "", fmt.Errorf("page %q: %w", name, ErrNotFound)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	content, err := s.files.ReadFile(s.pagePath(name))
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("page %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read page %q: %w", name, err)
	}
	return content, nil
}

// WritePage replaces the local copy of a page.
func (s *Store) WritePage(name, content string) error {
	if !slugPattern.MatchString(name) {
		return fmt.Errorf("invalid page name %q", name)
	}
	if err := s.files.WriteFile(s.pagePath(name), content); err != nil {
		return fmt.Errorf("failed to write page %q: %w", name, err)
	}
	return nil
}

func (s *Store) pagePath(name string) string {
	return filepath.Join(s.opts.PagesDir, name+postExt)
}

// ListPhotos returns the gallery images in PhotosDir, ordered by SortPhotos.
func (s *Store) ListPhotos(ctx context.Context) ([]models.Photo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	names, err := s.files.ListFiles(s.opts.PhotosDir, s.photoExts)
	if errors.Is(err, fs.ErrNotExist) {
		return []models.Photo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}

	photos := make([]models.Photo, 0, len(names))
	for _, name := range names {
		photos = append(photos, models.Photo{
			Src:          path.Join(s.opts.PhotoURLPrefix, name),
			Alt:          "Photo " + name,
			OriginalPath: filepath.ToSlash(filepath.Join(s.opts.PhotosDir, name)),
		})
	}
	SortPhotos(photos)
	return photos, nil
}

var photoNumber = regexp.MustCompile(`(?:^|/)(\d+)\.\w+$`)

// SortPhotos orders photos by the number in their file name, highest first, then by
// path in reverse. Names without a number count as 0.
func SortPhotos(photos []models.Photo) {
	number := func(p models.Photo) int {
		m := photoNumber.FindStringSubmatch(p.OriginalPath)
		if m == nil {
			return 0
		}
		n, _ := strconv.Atoi(m[1])
		return n
	}
	sort.SliceStable(photos, func(i, j int) bool {
		ni, nj := number(photos[i]), number(photos[j])
		if ni != nj {
			return ni > nj
		}
		return photos[i].OriginalPath > photos[j].OriginalPath
	})
}

func metadataFrom(fm models.Frontmatter) models.PostMetadata {
	return models.PostMetadata{
		Title:       fm.Title,
		Date:        fm.Date,
		Slug:        fm.Slug,
		Description: fm.Description,
		Tags:        fm.Tags,
		Lang:        fm.Lang,
		Duration:    fm.Duration,
	}
}
