package extract

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"golang.org/x/net/html"
)

// extractHTML strips markup from an HTML file, discarding script and style
// subtrees and collapsing blank lines.
func extractHTML(path string) (string, error) {
	raw, err := extractText(path)
	if err != nil {
		return "", err
	}
	return htmlToText(raw)
}

// extractMarkdown renders Markdown to HTML with goldmark and then strips
// the markup, so formatting syntax never pollutes the content index.
func extractMarkdown(path string) (string, error) {
	raw, err := extractText(path)
	if err != nil {
		return "", err
	}

	var rendered strings.Builder
	if err := goldmark.Convert([]byte(raw), &rendered); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return htmlToText(rendered.String())
}

// htmlToText walks the parse tree collecting text nodes.
func htmlToText(src string) (string, error) {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		if n.Type == html.ElementNode && blockElement(n.Data) {
			b.WriteString("\n")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockElement(n.Data) {
			b.WriteString("\n")
		}
	}
	walk(doc)

	// Collapse runs of blank lines left behind by the markup.
	var lines []string
	for _, line := range strings.Split(b.String(), "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return strings.Join(lines, "\n"), nil
}

func blockElement(tag string) bool {
	switch tag {
	case "p", "div", "br", "li", "tr", "h1", "h2", "h3", "h4", "h5", "h6", "blockquote", "pre":
		return true
	}
	return false
}
