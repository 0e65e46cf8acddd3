package loaders

import (
	"sort"
	"time"

	"github.com/inkwell/portfolio/internal/constants"
	"github.com/inkwell/portfolio/internal/models"
	"github.com/inkwell/portfolio/pkg/content"
)

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC1123Z,
}

// ParseDate reads the date formats used in frontmatter and the API. ok is false when
// none match.
func ParseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// NormalizeMetadata fills the defaults for optional fields so every source yields the
// same shape.
func NormalizeMetadata(m models.PostMetadata) models.PostMetadata {
	if m.Tags == nil {
		m.Tags = []string{}
	}
	if m.Lang == "" {
		m.Lang = constants.DefaultPostLang
	}
	if m.Duration == "" {
		m.Duration = constants.DefaultPostDuration
	}
	return m
}

// MetadataFromBlog maps an API blog to the list-view shape.
func MetadataFromBlog(b models.BlogDetail) models.PostMetadata {
	return NormalizeMetadata(models.PostMetadata{
		Title:       b.Title,
		Date:        b.Date,
		Slug:        b.Slug,
		Description: b.Description,
		Tags:        b.Tags,
		Lang:        b.Lang,
		Duration:    b.Duration,
	})
}

// PostFromBlog maps an API blog to a full post, dropping any frontmatter the stored
// content still carries.
func PostFromBlog(b models.BlogDetail) *models.Post {
	return &models.Post{
		PostMetadata: MetadataFromBlog(b),
		Content:      content.StripFrontmatter(b.Content),
	}
}

// SortNewestFirst orders posts by date, newest first. Undated posts go last.
func SortNewestFirst(posts []models.PostMetadata) {
	sort.SliceStable(posts, func(i, j int) bool {
		ti, _ := ParseDate(posts[i].Date)
		tj, _ := ParseDate(posts[j].Date)
		return ti.After(tj)
	})
}
