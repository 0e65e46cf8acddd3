package models

// PostMetadata is the list-view shape of a blog post.
type PostMetadata struct {
	Title       string   `json:"title" yaml:"title"`
	Date        string   `json:"date" yaml:"date"`
	Slug        string   `json:"slug" yaml:"slug"`
	Description string   `json:"description" yaml:"description"`
	Tags        []string `json:"tags" yaml:"tags"`
	Lang        string   `json:"lang" yaml:"lang"`
	Duration    string   `json:"duration" yaml:"duration"`
}

// Post is a full blog post including its markdown body.
type Post struct {
	PostMetadata
	Content string `json:"content"`
}

// Frontmatter is the YAML header of a local markdown post. Every field is optional.
type Frontmatter struct {
	Title       string   `yaml:"title,omitempty"`
	Date        string   `yaml:"date,omitempty"`
	Slug        string   `yaml:"slug,omitempty"`
	Description string   `yaml:"description,omitempty"`
	Tags        []string `yaml:"tags,omitempty"`
	Lang        string   `yaml:"lang,omitempty"`
	Duration    string   `yaml:"duration,omitempty"`
}
