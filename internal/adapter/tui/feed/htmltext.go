package feed

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"toolfeed/internal/adapter/tui/theme"
)

// Link is a reference from an entry to a content-store item.
type Link struct {
	Index int
	Lang  string
	Label string
}

// segment is a run of entry text with one presentation.
type segment struct {
	text  string
	class string // formatter span class, "" for none
	link  int    // index into the entry's links, -1 for plain text
}

// parseEntryHTML splits formatter markup into styled text segments and the
// content links it references. Unknown tags contribute their text only.
func parseEntryHTML(fragment string) ([]segment, []Link) {
	// An explicit body keeps leading whitespace, which merge suffixes rely on.
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + fragment + "</body>"))
	if err != nil {
		return []segment{{text: fragment, link: -1}}, nil
	}
	p := &htmlParser{}
	p.walk(doc.Find("body"), "")
	return p.segments, p.links
}

type htmlParser struct {
	segments []segment
	links    []Link
}

func (p *htmlParser) walk(sel *goquery.Selection, class string) {
	sel.Contents().Each(func(_ int, c *goquery.Selection) {
		switch goquery.NodeName(c) {
		case "#text":
			p.add(segment{text: c.Text(), class: class, link: -1})
		case "br":
			p.add(segment{text: "\n", class: class, link: -1})
		case "a":
			if c.HasClass("content-link") {
				if idx, err := strconv.Atoi(c.AttrOr("data-index", "")); err == nil {
					p.links = append(p.links, Link{Index: idx, Lang: c.AttrOr("data-lang", ""), Label: c.Text()})
					p.segments = append(p.segments, segment{text: c.Text(), class: class, link: len(p.links) - 1})
					return
				}
			}
			p.walk(c, class)
		default:
			p.walk(c, spanClass(c, class))
		}
	})
}

// add appends s, coalescing with the previous plain segment of equal class.
func (p *htmlParser) add(s segment) {
	if s.text == "" {
		return
	}
	if n := len(p.segments); n > 0 {
		last := &p.segments[n-1]
		if last.link < 0 && last.class == s.class {
			last.text += s.text
			return
		}
	}
	p.segments = append(p.segments, s)
}

func spanClass(sel *goquery.Selection, inherited string) string {
	for _, f := range strings.Fields(sel.AttrOr("class", "")) {
		if _, ok := theme.Span(f); ok {
			return f
		}
	}
	return inherited
}
