package loaders

import (
	"fmt"

	"github.com/inkwell/portfolio/internal/models"
)

// SamplePost is served for any slug when development sample data is enabled.
func SamplePost(slug string) *models.Post {
	return &models.Post{
		PostMetadata: models.PostMetadata{
			Title:       "Sample Post for Development",
			Date:        "2024-01-01",
			Slug:        slug,
			Description: "This is a sample post for development mode.",
			Tags:        []string{"sample", "dev"},
			Lang:        "en",
			Duration:    "5min",
		},
		Content: fmt.Sprintf("# Sample Post\n\nThis is a sample post for development mode.\n\nSlug: %s", slug),
	}
}

// SamplePosts is the development blog list.
func SamplePosts() []models.PostMetadata {
	return []models.PostMetadata{
		SamplePost("sample-post").PostMetadata,
		{
			Title:       "Another Sample Post",
			Date:        "2023-12-24",
			Slug:        "another-sample-post",
			Description: "A second entry so lists have something to sort.",
			Tags:        []string{"sample"},
			Lang:        "en",
			Duration:    "2min",
		},
	}
}
