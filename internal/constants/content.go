package constants

// Defaults applied when a post omits optional frontmatter or API fields.
const (
	DefaultPostDuration = "5min"
	DefaultPostLang     = "en"
	DefaultFeedLang     = "zh-tw"
)

// Page names served by the page loader.
const (
	PageHome    = "home"
	PageProject = "project"
)

// DefaultProjectContent is served when neither the API nor the local page file has content.
const DefaultProjectContent = "- **[go-recipe](https://github.com/Tomlord1122/go-recipe)**: A TUI app that can store commands you frequently use."

// Supported photo extensions for the gallery.
var PhotoExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp"}

// PostListLimit bounds the list request sent to the backend.
const PostListLimit = 100
