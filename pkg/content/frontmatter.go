package content

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/inkwell/portfolio/internal/models"
)

const fence = "---"

// ErrNoFrontmatter is returned when a document does not start with a YAML block.
var ErrNoFrontmatter = errors.New("document has no frontmatter")

// splitFrontmatter separates a leading "---" delimited block from the body.
// ok is false when the document has no complete block.
func splitFrontmatter(doc string) (header, body string, ok bool) {
	doc = strings.ReplaceAll(doc, "\r\n", "\n")
	if !strings.HasPrefix(doc, fence+"\n") {
		return "", doc, false
	}
	rest := doc[len(fence)+1:]

	// An empty header closes immediately.
	if strings.HasPrefix(rest, fence+"\n") || rest == fence {
		return "", strings.TrimPrefix(strings.TrimPrefix(rest, fence), "\n"), true
	}

	end := strings.Index(rest, "\n"+fence+"\n")
	if end < 0 {
		if !strings.HasSuffix(rest, "\n"+fence) {
			return "", doc, false
		}
		return rest[:len(rest)-len(fence)-1], "", true
	}
	return rest[:end], rest[end+len(fence)+2:], true
}

// ParseFrontmatter decodes the YAML header of a markdown document and returns it with
// the remaining body.
func ParseFrontmatter(doc string) (models.Frontmatter, string, error) {
	var fm models.Frontmatter
	header, body, ok := splitFrontmatter(doc)
	if !ok {
		return fm, body, ErrNoFrontmatter
	}
	if err := yaml.Unmarshal([]byte(header), &fm); err != nil {
		return fm, body, fmt.Errorf("invalid frontmatter: %w", err)
	}
	return fm, body, nil
}

// StripFrontmatter drops a leading frontmatter block, if any, and trims the body.
// Documents without a block are returned unchanged.
func StripFrontmatter(doc string) string {
	_, body, ok := splitFrontmatter(doc)
	if !ok {
		return doc
	}
	return strings.TrimSpace(body)
}

// RenderFrontmatter encodes fm as a "---" delimited YAML block followed by body.
func RenderFrontmatter(fm models.Frontmatter, body string) (string, error) {
	header, err := yaml.Marshal(fm)
	if err != nil {
		return "", fmt.Errorf("failed to encode frontmatter: %w", err)
	}

	var b strings.Builder
	b.WriteString(fence + "\n")
	b.Write(header)
	b.WriteString(fence + "\n\n")
	b.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		b.WriteString("\n")
	}
	return b.String(), nil
}

// ReadingMinutes estimates reading time. Chinese text counts characters (300 per
// minute), everything else counts words (180 per minute). The result is at least 1.
func ReadingMinutes(text, lang string) int {
	text = strings.TrimSpace(text)
	if text == "" {
		return 1
	}

	var units, perMinute int
	if lang == "zh-tw" || containsHan(text) {
		for _, r := range text {
			if !unicode.IsSpace(r) && !unicode.IsPunct(r) {
				units++
			}
		}
	} else {
		units = len(strings.Fields(text))
	}

	perMinute = 180
	if lang == "zh-tw" {
		perMinute = 300
	}

	minutes := int(math.Ceil(float64(units) / float64(perMinute)))
	if minutes < 1 {
		return 1
	}
	return minutes
}

func containsHan(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}
