package article

import (
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// MaxTextLength is the number of characters kept from an extracted article.
const MaxTextLength = 5000

// removedElements never carry article content.
const removedElements = "script, style, nav, footer, iframe, img"

// Extractor turns article HTML into plain text.
type Extractor struct {
	logger *slog.Logger
}

// NewExtractor creates an Extractor.
func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger.With("component", "article_extractor")}
}

// Extract parses rawHTML, drops non-content elements, joins the remaining
// text nodes one per line without blank lines and keeps the first
// MaxTextLength characters. It reports false when parsing fails or no text
// is left.
func (e *Extractor) Extract(rawHTML string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		e.logger.Error("Failed to parse article HTML", "error", err)
		return "", false
	}

	doc.Find(removedElements).Remove()

	var lines []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			for _, line := range strings.Split(n.Data, "\n") {
				if line = strings.TrimSpace(line); line != "" {
					lines = append(lines, line)
				}
			}
			return
		}
		if n.Type == html.CommentNode {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}

	text := truncateRunes(strings.Join(lines, "\n"), MaxTextLength)
	if text == "" {
		e.logger.Warn("Article HTML contains no text")
		return "", false
	}
	return text, true
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
