package loaders

import (
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/feeds"

	"github.com/inkwell/portfolio/internal/constants"
	"github.com/inkwell/portfolio/internal/models"
)

// FeedOptions describes the RSS channel.
type FeedOptions struct {
	Title       string
	Description string
	SiteURL     string
	Language    string
}

// BuildFeed renders posts as an RSS 2.0 document. Posts are expected newest first.
// Undated posts carry no pubDate; tags become the item category.
func BuildFeed(posts []models.PostMetadata, opts FeedOptions, now time.Time) ([]byte, error) {
	site := strings.TrimRight(opts.SiteURL, "/")
	lang := opts.Language
	if lang == "" {
		lang = constants.DefaultFeedLang
	}

	feed := &feeds.Feed{
		Title:       opts.Title,
		Link:        &feeds.Link{Href: site},
		Description: opts.Description,
		Updated:     now.UTC(),
	}
	for _, p := range posts {
		link := site + "/blog/" + p.Slug
		desc := p.Description
		if desc == "" {
			desc = p.Title
		}
		item := &feeds.Item{
			Title:       p.Title,
			Link:        &feeds.Link{Href: link},
			Id:          link,
			Description: desc,
		}
		if t, ok := ParseDate(p.Date); ok {
			item.Created = t.UTC()
		}
		feed.Items = append(feed.Items, item)
	}

	channel := (&feeds.Rss{Feed: feed}).RssFeed()
	channel.Language = lang
	channel.LastBuildDate = now.UTC().Format(time.RFC1123Z)
	for i, p := range posts {
		if len(p.Tags) > 0 {
			channel.Items[i].Category = strings.Join(p.Tags, ", ")
		}
	}

	out, err := feeds.ToXML(channel)
	if err != nil {
		return nil, fmt.Errorf("failed to encode feed: %w", err)
	}
	return []byte(out), nil
}
