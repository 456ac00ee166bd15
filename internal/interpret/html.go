package interpret

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// visibleText returns the text content of a document with scripts and styles
// removed. Text nodes are separated by single spaces, so phrases split across
// inline elements still read as one sentence.
func visibleText(doc *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template:
				return
			}
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				if buf.Len() > 0 {
					buf.WriteByte(' ')
				}
				buf.WriteString(strings.Join(strings.Fields(text), " "))
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(doc)
	return buf.String()
}

// linkAttrs lists, per element, the attributes that can point at a data file
var linkAttrs = map[atom.Atom][]string{
	atom.A:      {"href"},
	atom.Link:   {"href"},
	atom.Area:   {"href"},
	atom.Embed:  {"src"},
	atom.Iframe: {"src"},
	atom.Object: {"data"},
}

// linkTargets returns every link target in document order, resolved against
// base when base is non-nil. Duplicates are kept.
func linkTargets(doc *html.Node, base *url.URL) []string {
	var targets []string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, key := range linkAttrs[n.DataAtom] {
				if val := getAttribute(n, key); val != "" {
					if resolved := resolveURL(base, val); resolved != "" {
						targets = append(targets, resolved)
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(doc)
	return targets
}

// getAttribute gets an attribute value from a node
func getAttribute(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return strings.TrimSpace(attr.Val)
		}
	}
	return ""
}

// resolveURL resolves href against base and keeps only http(s) targets.
// Without a base only absolute URLs survive.
func resolveURL(base *url.URL, href string) string {
	if strings.HasPrefix(href, "#") {
		return ""
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}

	if base != nil {
		parsed = base.ResolveReference(parsed)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ""
	}
	if parsed.Host == "" {
		return ""
	}

	return parsed.String()
}

// VisibleText returns the visible text of an HTML document, or the input
// unchanged when it cannot be parsed
func VisibleText(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return htmlContent
	}
	return visibleText(doc)
}
