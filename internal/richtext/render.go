// Package richtext renders ProseMirror/TipTap documents to HTML.
package richtext

import (
	"encoding/json"
	"fmt"
	"html"
	"net/url"
	"strings"
)

// Node is a node in a ProseMirror document tree.
type Node struct {
	Type    string         `json:"type"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Content []Node         `json:"content,omitempty"`
	Text    string         `json:"text,omitempty"`
	Marks   []Mark         `json:"marks,omitempty"`
}

// Mark is inline formatting applied to a text node.
type Mark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// Render parses a JSON document and renders it to HTML.
// The root must be an object with a type.
func Render(doc json.RawMessage) (string, error) {
	var root Node
	if err := json.Unmarshal(doc, &root); err != nil {
		return "", fmt.Errorf("parse document: %w", err)
	}
	if root.Type == "" {
		return "", fmt.Errorf("parse document: missing root type")
	}
	var b strings.Builder
	renderNode(&b, root)
	return b.String(), nil
}

func renderNode(b *strings.Builder, n Node) {
	switch n.Type {
	case "doc":
		renderContent(b, n.Content)
	case "paragraph":
		wrap(b, "<p>", n.Content, "</p>\n")
	case "heading":
		level := headingLevel(n.Attrs)
		fmt.Fprintf(b, "<h%d>", level)
		renderContent(b, n.Content)
		fmt.Fprintf(b, "</h%d>\n", level)
	case "bulletList":
		wrap(b, "<ul>\n", n.Content, "</ul>\n")
	case "orderedList":
		wrap(b, "<ol>\n", n.Content, "</ol>\n")
	case "listItem":
		wrap(b, "<li>", n.Content, "</li>\n")
	case "blockquote":
		wrap(b, "<blockquote>\n", n.Content, "</blockquote>\n")
	case "codeBlock":
		b.WriteString("<pre><code>")
		for _, c := range n.Content {
			b.WriteString(html.EscapeString(c.Text))
		}
		b.WriteString("</code></pre>\n")
	case "text":
		b.WriteString(renderText(n.Text, n.Marks))
	case "hardBreak":
		b.WriteString("<br>")
	case "horizontalRule":
		b.WriteString("<hr>\n")
	case "table":
		wrap(b, "<table>\n", n.Content, "</table>\n")
	case "tableRow":
		wrap(b, "<tr>\n", n.Content, "</tr>\n")
	case "tableCell":
		wrap(b, "<td>", n.Content, "</td>\n")
	case "tableHeader":
		wrap(b, "<th>", n.Content, "</th>\n")
	default:
		// Unknown nodes contribute their children only.
		renderContent(b, n.Content)
	}
}

func wrap(b *strings.Builder, open string, content []Node, closing string) {
	b.WriteString(open)
	renderContent(b, content)
	b.WriteString(closing)
}

func renderContent(b *strings.Builder, content []Node) {
	for _, c := range content {
		renderNode(b, c)
	}
}

func headingLevel(attrs map[string]any) int {
	lvl, ok := attrs["level"].(float64)
	if !ok {
		return 1
	}
	return min(max(int(lvl), 1), 6)
}

func renderText(text string, marks []Mark) string {
	if text == "" {
		return ""
	}
	out := html.EscapeString(text)

	// Marks apply from the outside in.
	for i := len(marks) - 1; i >= 0; i-- {
		m := marks[i]
		switch m.Type {
		case "bold":
			out = "<strong>" + out + "</strong>"
		case "italic":
			out = "<em>" + out + "</em>"
		case "code":
			out = "<code>" + out + "</code>"
		case "strike":
			out = "<s>" + out + "</s>"
		case "underline":
			out = "<u>" + out + "</u>"
		case "link":
			href, _ := m.Attrs["href"].(string)
			if !SafeHref(href) {
				continue
			}
			out = `<a href="` + html.EscapeString(href) + `" rel="noopener noreferrer">` + out + "</a>"
		}
	}
	return out
}

// SafeHref reports whether href is an http, https, mailto or relative URL.
func SafeHref(href string) bool {
	href = strings.TrimSpace(href)
	if href == "" {
		return false
	}
	u, err := url.Parse(href)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "", "http", "https", "mailto":
	default:
		return false
	}
	// Scheme-less but with a colon before any slash could be an obfuscated scheme.
	if u.Scheme == "" && strings.Contains(strings.SplitN(href, "/", 2)[0], ":") {
		return false
	}
	return true
}
