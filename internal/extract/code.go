package extract

import (
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/JakeFAU/codecrawler/internal/crawler"
)

// pageIndex records document order so context lookups avoid rescanning the tree.
type pageIndex struct {
	pos        map[*html.Node]int
	headings   []*html.Node
	headingPos []int
	captions   []*html.Node
	captionPos []int
}

func indexPage(root *html.Node) *pageIndex {
	idx := &pageIndex{pos: make(map[*html.Node]int)}
	i := 0
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		idx.pos[n] = i
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
				idx.headings = append(idx.headings, n)
				idx.headingPos = append(idx.headingPos, i)
			case atom.Figcaption:
				idx.captions = append(idx.captions, n)
				idx.captionPos = append(idx.captionPos, i)
			}
		}
		i++
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return idx
}

// context locates n relative to the nearest heading, section and caption.
func (idx *pageIndex) context(n *html.Node) crawler.CodeContext {
	p := idx.pos[n]
	var ctx crawler.CodeContext
	if i := sort.SearchInts(idx.headingPos, p) - 1; i >= 0 {
		ctx.Heading = collapsedText(idx.headings[i])
	}
	ctx.Section = sectionName(n)
	if j := sort.SearchInts(idx.captionPos, p+1); j < len(idx.captions) {
		ctx.Caption = collapsedText(idx.captions[j])
	} else if k := sort.SearchInts(idx.captionPos, p) - 1; k >= 0 {
		ctx.Caption = collapsedText(idx.captions[k])
	}
	return ctx
}

// sectionName returns the id, else the class list, of the nearest section or
// div ancestor that carries either.
func sectionName(n *html.Node) string {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type != html.ElementNode || (p.DataAtom != atom.Section && p.DataAtom != atom.Div) {
			continue
		}
		if id := strings.TrimSpace(attr(p, "id")); id != "" {
			return id
		}
		if classes := strings.Fields(attr(p, "class")); len(classes) > 0 {
			return strings.Join(classes, " ")
		}
	}
	return ""
}

// codeBlock runs one candidate node through the pipeline. ok is false when
// the node is too short or its content was already seen.
func (e *Extractor) codeBlock(n *html.Node, idx *pageIndex) (crawler.CodeBlock, bool) {
	content := formatCode(n)
	if utf8.RuneCountInString(strings.TrimSpace(content)) < e.cfg.MinCodeLength {
		return crawler.CodeBlock{}, false
	}
	hash := e.hasher.Sum(content)
	if !e.hashes.MarkIfNew(hash) {
		return crawler.CodeBlock{}, false
	}
	language := DetectLanguage(classSources(n), content)
	ctx := idx.context(n)
	return crawler.CodeBlock{
		Language:  language,
		Name:      BlockName(strings.TrimSpace(content), language, ctx),
		Content:   content,
		Context:   ctx,
		Hash:      hash,
		SizeBytes: len(content),
		Tag:       n.Data,
	}, true
}

func (e *Extractor) hasMarker(class string) bool {
	class = strings.ToLower(class)
	if class == "" {
		return false
	}
	for _, marker := range e.markers {
		if strings.Contains(class, marker) {
			return true
		}
	}
	return false
}

// classSources lists the class attributes consulted for language hints: the
// node, the code element nested in a pre, then the parent.
func classSources(n *html.Node) []string {
	sources := []string{attr(n, "class")}
	if n.DataAtom == atom.Pre {
		if code := firstDescendant(n, atom.Code); code != nil {
			sources = append(sources, attr(code, "class"))
		}
	}
	if n.Parent != nil && n.Parent.Type == html.ElementNode {
		sources = append(sources, attr(n.Parent, "class"))
	}
	return sources
}

// formatCode returns the code text of n. Block code keeps its line breaks
// and loses the indentation shared by every non-blank line; blank lines are
// left as they are. Inline code is only trimmed.
func formatCode(n *html.Node) string {
	target := n
	if n.DataAtom == atom.Pre {
		if code := firstDescendant(n, atom.Code); code != nil {
			target = code
		}
	}
	text := html.UnescapeString(nodeText(target))
	if !isBlockCode(n) {
		return strings.TrimSpace(text)
	}
	return dedent(text)
}

func isBlockCode(n *html.Node) bool {
	if n.DataAtom == atom.Pre {
		return true
	}
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.DataAtom == atom.Pre {
			return true
		}
	}
	return false
}

func dedent(text string) string {
	lines := strings.Split(text, "\n")
	indent := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		width := len(line) - len(strings.TrimLeft(line, " \t"))
		if indent < 0 || width < indent {
			indent = width
		}
	}
	if indent > 0 {
		for i, line := range lines {
			if strings.TrimSpace(line) != "" {
				lines[i] = line[indent:]
			}
		}
	}
	return strings.Trim(strings.Join(lines, "\n"), "\n")
}

// nodeText concatenates the text beneath n, turning <br> into newlines.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			if n.DataAtom == atom.Br {
				b.WriteByte('\n')
				return
			}
		case html.CommentNode:
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func collapsedText(n *html.Node) string {
	return strings.Join(strings.Fields(nodeText(n)), " ")
}

func firstDescendant(n *html.Node, a atom.Atom) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			return c
		}
		if found := firstDescendant(c, a); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
