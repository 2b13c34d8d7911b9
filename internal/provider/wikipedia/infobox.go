package wikipedia

import (
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// infoboxGenres returns the entries of the "Genre" row of the first infobox
// table on the page, or nil when there is no such row.
func infoboxGenres(r io.Reader) ([]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	box := find(doc, func(n *html.Node) bool {
		return n.DataAtom == atom.Table && hasClass(n, "infobox")
	})
	if box == nil {
		return nil, nil
	}

	for _, tr := range findAll(box, atom.Tr) {
		th := find(tr, isElement(atom.Th))
		if th == nil || !strings.Contains(strings.ToLower(text(th)), "genre") {
			continue
		}
		td := find(tr, isElement(atom.Td))
		if td == nil {
			return nil, nil
		}
		return cellItems(td), nil
	}
	return nil, nil
}

// cellItems prefers list entries; a plain cell is split on commas, pipes
// and element boundaries.
func cellItems(td *html.Node) []string {
	if lis := findAll(td, atom.Li); len(lis) > 0 {
		items := make([]string, 0, len(lis))
		for _, li := range lis {
			items = append(items, text(li))
		}
		return items
	}

	var items []string
	for _, frag := range fragments(td) {
		items = append(items, strings.FieldsFunc(frag, func(r rune) bool { return r == ',' || r == '|' })...)
	}
	return items
}

// skipped elements never contribute text: footnote markers and inline styles.
func skipped(n *html.Node) bool {
	return n.Type == html.ElementNode &&
		(n.DataAtom == atom.Sup || n.DataAtom == atom.Style || n.DataAtom == atom.Script)
}

// text returns the visible text of n with whitespace collapsed.
func text(n *html.Node) string {
	return strings.Join(strings.Fields(strings.Join(fragments(n), " ")), " ")
}

// fragments returns the trimmed, non-empty text nodes under n in document order.
func fragments(n *html.Node) []string {
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if skipped(n) {
			return
		}
		if n.Type == html.TextNode {
			if s := strings.TrimSpace(n.Data); s != "" {
				out = append(out, s)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func isElement(a atom.Atom) func(*html.Node) bool {
	return func(n *html.Node) bool { return n.Type == html.ElementNode && n.DataAtom == a }
}

// find returns the first descendant of n, in document order, matching match.
func find(n *html.Node, match func(*html.Node) bool) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if match(c) {
			return c
		}
		if found := find(c, match); found != nil {
			return found
		}
	}
	return nil
}

func findAll(n *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	match := isElement(a)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if match(c) {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

func hasClass(n *html.Node, class string) bool {
	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(attr.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}
