package qa

import (
	"bytes"
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

var (
	blockTagRe   = regexp.MustCompile(`<br\s*/?>|</?p>|</?div>|</?pre>|</?h[1-6]>|</?[ou]l>|</?blockquote>`)
	listItemRe   = regexp.MustCompile(`<li>`)
	blankLinesRe = regexp.MustCompile(`\n\s*\n+`)
)

// plainText renders model output written in markdown as plain chat text.
type plainText struct {
	policy   *bluemonday.Policy
	markdown goldmark.Markdown
}

func newPlainText() *plainText {
	return &plainText{
		policy:   bluemonday.StrictPolicy(),
		markdown: goldmark.New(),
	}
}

// Render strips markdown and HTML from text. List items become bullet lines.
// Text that fails to parse is returned unchanged.
func (p *plainText) Render(text string) string {
	if text == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := p.markdown.Convert([]byte(text), &buf); err != nil {
		return text
	}

	out := listItemRe.ReplaceAllString(buf.String(), "• ")
	out = blockTagRe.ReplaceAllString(out, "\n")
	out = p.policy.Sanitize(out)
	out = blankLinesRe.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(html.UnescapeString(out))
}
