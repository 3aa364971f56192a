package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	lineBreak      = 1
	paragraphBreak = 2
)

var skippedTextTags = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Head:     true,
	atom.Svg:      true,
}

// textBreaks maps block elements to the break they force around their text.
var textBreaks = map[atom.Atom]int{
	atom.Body: lineBreak, atom.Div: lineBreak, atom.Li: lineBreak, atom.Tr: lineBreak,
	atom.Dt: lineBreak, atom.Dd: lineBreak, atom.Figcaption: lineBreak, atom.Summary: lineBreak,

	atom.P: paragraphBreak, atom.H1: paragraphBreak, atom.H2: paragraphBreak,
	atom.H3: paragraphBreak, atom.H4: paragraphBreak, atom.H5: paragraphBreak,
	atom.H6: paragraphBreak, atom.Pre: paragraphBreak, atom.Blockquote: paragraphBreak,
	atom.Table: paragraphBreak, atom.Ul: paragraphBreak, atom.Ol: paragraphBreak,
	atom.Dl: paragraphBreak, atom.Section: paragraphBreak, atom.Article: paragraphBreak,
	atom.Header: paragraphBreak, atom.Footer: paragraphBreak, atom.Main: paragraphBreak,
	atom.Nav: paragraphBreak, atom.Aside: paragraphBreak, atom.Figure: paragraphBreak,
	atom.Form: paragraphBreak, atom.Hr: paragraphBreak, atom.Details: paragraphBreak,
	atom.Address: paragraphBreak,
}

// mainContentMarkers identify containers that likely hold the page body.
var mainContentMarkers = []string{"content", "main", "article", "documentation", "docs"}

// mainContainer returns the largest main, article or div whose class names a
// content area, or nil.
func mainContainer(doc *goquery.Document) *html.Node {
	var (
		best    *html.Node
		bestLen int
	)
	doc.Find("main, article, div").Each(func(_ int, s *goquery.Selection) {
		class := strings.ToLower(s.AttrOr("class", ""))
		if !containsAny(class, mainContentMarkers) {
			return
		}
		if n := len(strings.TrimSpace(s.Text())); n > bestLen {
			best, bestLen = s.Get(0), n
		}
	})
	return best
}

// textWriter accumulates normalized text. Breaks requested between two runs
// of text collapse to the strongest one, so a page never carries more than
// one blank line in a row.
type textWriter struct {
	b       strings.Builder
	pending int
	space   bool
}

func (w *textWriter) brk(level int) {
	if level > w.pending {
		w.pending = level
	}
}

func (w *textWriter) write(s string) {
	words := strings.Fields(s)
	if len(words) == 0 {
		if s != "" {
			w.space = true
		}
		return
	}
	if w.b.Len() > 0 {
		switch {
		case w.pending >= paragraphBreak:
			w.b.WriteString("\n\n")
		case w.pending == lineBreak:
			w.b.WriteByte('\n')
		case w.space || startsWithSpace(s):
			w.b.WriteByte(' ')
		}
	}
	w.b.WriteString(strings.Join(words, " "))
	w.pending = 0
	w.space = endsWithSpace(s)
}

// writeVerbatim emits s as its own paragraph without collapsing whitespace.
func (w *textWriter) writeVerbatim(s string) {
	if s == "" {
		return
	}
	if w.b.Len() > 0 {
		w.b.WriteString("\n\n")
	}
	w.b.WriteString(s)
	w.pending = paragraphBreak
	w.space = false
}

func (w *textWriter) String() string {
	return w.b.String()
}

// visibleText renders the readable text under root. Nodes present in fences
// are replaced by their fenced rendering.
func visibleText(root *html.Node, fences map[*html.Node]string) string {
	w := &textWriter{}
	var walk func(n *html.Node, pre bool)
	walk = func(n *html.Node, pre bool) {
		switch n.Type {
		case html.TextNode:
			if !pre {
				w.write(n.Data)
				return
			}
			for i, line := range strings.Split(n.Data, "\n") {
				if i > 0 {
					w.brk(lineBreak)
				}
				w.write(line)
			}
			return
		case html.CommentNode, html.DoctypeNode:
			return
		case html.ElementNode:
			if skippedTextTags[n.DataAtom] {
				return
			}
			if fenced, ok := fences[n]; ok {
				w.writeVerbatim(fenced)
				return
			}
			switch n.DataAtom {
			case atom.Br:
				w.brk(lineBreak)
				return
			case atom.Td, atom.Th:
				w.space = true
			case atom.Pre:
				pre = true
			}
		}
		level := 0
		if n.Type == html.ElementNode {
			level = textBreaks[n.DataAtom]
		}
		w.brk(level)
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, pre)
		}
		w.brk(level)
	}
	walk(root, false)
	return w.String()
}

// fence renders a code block as a language-tagged Markdown fence.
func fence(language, code string) string {
	return "```" + language + "\n" + code + "\n```"
}

func startsWithSpace(s string) bool {
	return s != "" && strings.TrimLeft(s, " \t\r\n\f") != s
}

func endsWithSpace(s string) bool {
	return s != "" && strings.TrimRight(s, " \t\r\n\f") != s
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
