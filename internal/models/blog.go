package models

// BlogDetail is the blog representation returned by the backend API.
type BlogDetail struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Slug         string   `json:"slug"`
	Date         string   `json:"date"`
	Lang         string   `json:"lang"`
	Duration     string   `json:"duration"`
	Tags         []string `json:"tags"`
	Description  string   `json:"description,omitempty"`
	Content      string   `json:"content,omitempty"`
	IsPublished  bool     `json:"is_published"`
	CreatedAt    string   `json:"created_at"`
	UpdatedAt    string   `json:"updated_at"`
	MessageCount int      `json:"message_count,omitempty"`
}

// BlogListResponse wraps GET /api/blogs.
type BlogListResponse struct {
	Blogs []BlogDetail `json:"blogs"`
}

// BlogResponse wraps GET /api/blogs/{slug}.
type BlogResponse struct {
	Blog BlogDetail `json:"blog"`
}

// BlogQuery holds the optional filters of GET /api/blogs.
type BlogQuery struct {
	Limit     int
	Offset    int
	Tag       string
	Lang      string
	Published *bool
}

// CreateBlogRequest is the body sent when creating or syncing a blog.
type CreateBlogRequest struct {
	Title       string   `json:"title"`
	Slug        string   `json:"slug"`
	Date        string   `json:"date"`
	Lang        string   `json:"lang"`
	Duration    string   `json:"duration"`
	Tags        []string `json:"tags"`
	Description string   `json:"description"`
	Content     string   `json:"content,omitempty"`
	IsPublished bool     `json:"is_published"`
}
