// Package pages inspects the generated HTML pages a navigation tree points at.
package pages

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"golang.org/x/net/html"
)

// Page is what the checks need from one HTML page.
type Page struct {
	Title   string
	Anchors []string // sorted, unique
}

// HasAnchor reports whether id is declared by an id or name attribute.
func (p *Page) HasAnchor(id string) bool {
	i := sort.SearchStrings(p.Anchors, id)
	return i < len(p.Anchors) && p.Anchors[i] == id
}

// Extract parses r and collects the <title> text and every element id and
// <a name> anchor.
func Extract(r io.Reader) (*Page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	page := &Page{Title: findTitle(doc)}
	seen := make(map[string]bool)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, a := range n.Attr {
				if a.Namespace != "" || a.Val == "" {
					continue
				}
				if a.Key == "id" || (a.Key == "name" && n.Data == "a") {
					seen[a.Val] = true
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	page.Anchors = make([]string, 0, len(seen))
	for id := range seen {
		page.Anchors = append(page.Anchors, id)
	}
	sort.Strings(page.Anchors)
	return page, nil
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.Join(strings.Fields(buf.String()), " ")
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return textContent(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}
