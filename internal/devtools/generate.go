package devtools

import (
	"fmt"
	"math/rand"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/inkwell/portfolio/internal/models"
	"github.com/inkwell/portfolio/pkg/content"
	"github.com/inkwell/portfolio/pkg/file"
)

var (
	englishTitleFragments = []string{
		"Reflections on", "Exploring", "Notes about", "Lessons from", "What I learned about",
		"A quick take on", "Building", "Rethinking", "Behind the scenes of",
	}
	englishSubjects = []string{
		"personal productivity", "web performance", "Go services", "API ergonomics",
		"content workflow", "project planning", "creative routines",
	}
	chineseTitleFragments = []string{"隨筆", "心得", "筆記", "想法", "觀察", "記錄"}
	chineseSubjects       = []string{"開發工作流", "學習計畫", "日常生活", "網站優化", "前端體驗", "寫作練習"}

	englishParagraphs = []string{
		"Today I sketched a tiny idea and iterated on it. It's surprising how much clarity you get by just writing things down.",
		"I tried a different approach to structuring content. Keeping the draft short helped me keep momentum without overthinking.",
		"Small, consistent steps compound over time. The trick is to make starting easy and stopping hard.",
		"Tools matter less than habits, yet the right defaults make good habits lighter to carry.",
		"Shipping something imperfect taught me more than waiting for the perfect moment ever did.",
	}
	chineseParagraphs = []string{
		"今天把一個小想法記錄下來並實作了一點點，寫下來之後思緒竟然變清楚了不少。",
		"嘗試用不同的方式來整理內容，先寫短一點、把節奏維持住，比起一次追求完美還有效。",
		"小小的累積會慢慢發酵，關鍵是讓開始變得容易、停下來有點可惜。",
		"工具固然重要，但好習慣更重要。不過如果預設值選得好，好的習慣也會輕鬆許多。",
		"先把不完美的版本推出去，比等待完美的時機更能學到東西。",
	}

	tagPool = []string{"Life", "Career", "Tech", "Notes", "Writing"}

	slugInvalid = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSpace   = regexp.MustCompile(`\s+`)
	slugDashes  = regexp.MustCompile(`-+`)
)

// GenerateOptions controls a Generate run.
type GenerateOptions struct {
	Count  int    // Posts to create, at least 1
	Lang   string // "en" or "zh-tw"
	Prefix string // Prepended to every title
	Dir    string // Posts directory
	DryRun bool   // Report paths without writing
}

// GeneratedPost describes one generated file.
type GeneratedPost struct {
	Path  string
	Slug  string
	Title string
}

// Generator writes random sample posts for local development.
type Generator struct {
	files  file.FileOperations
	logger zerolog.Logger
	rng    *rand.Rand
	now    func() time.Time
}

// NewGenerator creates a Generator. seed makes runs reproducible.
func NewGenerator(files file.FileOperations, seed int64, logger zerolog.Logger) *Generator {
	return &Generator{
		files:  files,
		logger: logger,
		rng:    rand.New(rand.NewSource(seed)),
		now:    time.Now,
	}
}

// Slugify lower-cases s, drops everything but ASCII letters, digits, spaces and dashes,
// and joins words with single dashes.
func Slugify(s string) string {
	s = slugInvalid.ReplaceAllString(strings.ToLower(s), "")
	s = slugSpace.ReplaceAllString(s, "-")
	s = slugDashes.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Generate creates opts.Count posts with frontmatter in opts.Dir.
func (g *Generator) Generate(opts GenerateOptions) ([]GeneratedPost, error) {
	if opts.Count < 1 {
		opts.Count = 1
	}
	if opts.Lang != "zh-tw" {
		opts.Lang = "en"
	}

	taken := map[string]struct{}{}
	posts := make([]GeneratedPost, 0, opts.Count)
	for i := 0; i < opts.Count; i++ {
		title := g.title(opts.Lang)
		if opts.Prefix != "" {
			title = opts.Prefix + " " + title
		}

		base := Slugify(title)
		if base == "" {
			base = fmt.Sprintf("post-%d", g.now().UnixMilli())
		}
		slug, err := g.uniqueSlug(base, opts.Dir, taken)
		if err != nil {
			return posts, err
		}
		taken[slug] = struct{}{}

		paragraphs := g.paragraphs(opts.Lang)
		body := g.body(opts.Lang, title, paragraphs)
		fm := models.Frontmatter{
			Title:       title,
			Date:        g.now().AddDate(0, 0, -g.rng.Intn(366)).Format("2006-01-02"),
			Slug:        slug,
			Description: paragraphs[0],
			Tags:        g.tags(),
			Lang:        opts.Lang,
			Duration:    fmt.Sprintf("%dmin", content.ReadingMinutes(body, opts.Lang)),
		}
		doc, err := content.RenderFrontmatter(fm, body)
		if err != nil {
			return posts, err
		}

		post := GeneratedPost{Path: filepath.Join(opts.Dir, slug+".md"), Slug: slug, Title: title}
		if opts.DryRun {
			g.logger.Info().Str("path", post.Path).Msg("Would write post")
		} else {
			if err := g.files.WriteFile(post.Path, doc); err != nil {
				return posts, fmt.Errorf("failed to write %s: %w", post.Path, err)
			}
			g.logger.Debug().Str("path", post.Path).Msg("Wrote post")
		}
		posts = append(posts, post)
	}
	return posts, nil
}

// uniqueSlug appends -1, -2, ... until neither a file nor this run uses the slug.
func (g *Generator) uniqueSlug(base, dir string, taken map[string]struct{}) (string, error) {
	slug := base
	for suffix := 1; ; suffix++ {
		if _, ok := taken[slug]; !ok {
			exists, err := g.files.IsFileExists(filepath.Join(dir, slug+".md"))
			if err != nil {
				return "", err
			}
			if !exists {
				return slug, nil
			}
		}
		slug = fmt.Sprintf("%s-%d", base, suffix)
	}
}

func (g *Generator) title(lang string) string {
	if lang == "zh-tw" {
		return g.choice(chineseTitleFragments) + "：" + g.choice(chineseSubjects)
	}
	return g.choice(englishTitleFragments) + " " + g.choice(englishSubjects)
}

func (g *Generator) paragraphs(lang string) []string {
	pool := englishParagraphs
	if lang == "zh-tw" {
		pool = chineseParagraphs
	}
	n := 2 + g.rng.Intn(3)
	out := make([]string, n)
	for i := range out {
		out[i] = g.choice(pool)
	}
	return out
}

func (g *Generator) body(lang, title string, paragraphs []string) string {
	var parts []string
	if lang == "en" {
		parts = append(parts, "## "+title)
		if g.rng.Float64() < 0.4 {
			parts = append(parts, "<div class=\"flex justify-center\">\n<img src=\"/photography_assets/2.webp\" alt=\"2.webp\" class=\"photo-post\">\n</div>")
		}
	}
	parts = append(parts, paragraphs...)
	return strings.Join(parts, "\n\n") + "\n"
}

// tags picks one or two distinct tags.
func (g *Generator) tags() []string {
	first := g.choice(tagPool)
	second := g.choice(tagPool)
	if second == first || g.rng.Intn(2) == 0 {
		return []string{first}
	}
	return []string{first, second}
}

func (g *Generator) choice(list []string) string {
	return list[g.rng.Intn(len(list))]
}
