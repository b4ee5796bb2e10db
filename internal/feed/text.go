package feed

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// blockElements start and end on their own line when rendered.
var blockElements = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Dd: true, atom.Div: true, atom.Dl: true, atom.Dt: true, atom.Figcaption: true,
	atom.Figure: true, atom.Footer: true, atom.Form: true, atom.H1: true, atom.H2: true,
	atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true, atom.Header: true,
	atom.Hr: true, atom.Li: true, atom.Main: true, atom.Nav: true, atom.Ol: true,
	atom.P: true, atom.Pre: true, atom.Section: true, atom.Table: true, atom.Tr: true,
	atom.Ul: true,
}

// textBuilder tracks the last byte written so block boundaries never stack
// blank lines.
type textBuilder struct {
	b    strings.Builder
	last byte
}

func (t *textBuilder) write(s string) {
	if s == "" {
		return
	}
	t.b.WriteString(s)
	t.last = s[len(s)-1]
}

func (t *textBuilder) lineBreak() {
	if t.b.Len() > 0 && t.last != '\n' {
		t.write("\n")
	}
}

// nodeText renders n the way a browser shows it: <br> and block boundaries
// become line breaks, whitespace runs inside a line collapse to one space and
// every line is trimmed.
func nodeText(n *html.Node) string {
	var t textBuilder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			t.write(strings.Map(func(r rune) rune {
				if unicode.IsSpace(r) {
					return ' '
				}
				return r
			}, n.Data))
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Br:
				t.write("\n")
				return
			case atom.Script, atom.Style, atom.Template:
				return
			}
		}

		block := n.Type == html.ElementNode && blockElements[n.DataAtom]
		if block {
			t.lineBreak()
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			t.lineBreak()
		}
	}
	walk(n)

	lines := strings.Split(t.b.String(), "\n")
	for i, l := range lines {
		lines[i] = strings.Join(strings.Fields(l), " ")
	}
	return strings.Trim(strings.Join(lines, "\n"), "\n")
}

// selectionText renders each node and joins them line by line.
func selectionText(nodes []*html.Node) string {
	parts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if s := nodeText(n); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}
