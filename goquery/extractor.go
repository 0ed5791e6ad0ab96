package goquery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/pagetext"
	"golang.org/x/net/html"
)

// Ensure Extractor implements pagetext.HTMLExtractor at compile time.
var _ pagetext.HTMLExtractor = (*Extractor)(nil)

// Ensure Node implements pagetext.Node at compile time.
var _ pagetext.Node = Node{}

// Extractor runs pagetext's extraction algorithm over static HTML.
type Extractor struct {
	extractor pagetext.Extractor
}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// NewExtractorWith creates an Extractor with custom traversal options.
func NewExtractorWith(e pagetext.Extractor) *Extractor {
	return &Extractor{extractor: e}
}

// Extract parses rawHTML and extracts the content of its body.
func (e *Extractor) Extract(rawHTML, url string) (*pagetext.ExtractionResult, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return nil, pagetext.Errorf(pagetext.EINVALID, "empty HTML input")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, pagetext.Errorf(pagetext.EEXTRACT, "failed to parse HTML: %v", err)
	}

	var body pagetext.Node
	if sel := doc.Find("body").First(); sel.Length() > 0 {
		body = NewNode(sel.Get(0))
	}
	return e.extractor.Extract(url, body), nil
}

// hidden lists elements whose contents are never rendered as text.
var hidden = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

// Node adapts a parsed *html.Node to pagetext.Node.
type Node struct {
	n *html.Node
}

// NewNode wraps n.
func NewNode(n *html.Node) Node {
	return Node{n: n}
}

// Tag returns the upper-cased element name, or "" for non-elements.
func (n Node) Tag() string {
	if n.n == nil || n.n.Type != html.ElementNode {
		return ""
	}
	return strings.ToUpper(n.n.Data)
}

// Text returns the text content of an element, skipping hidden elements,
// or the value of a text node.
func (n Node) Text() string {
	if n.n == nil {
		return ""
	}
	switch n.n.Type {
	case html.TextNode:
		return n.n.Data
	case html.ElementNode:
		return textContent(n.n)
	}
	return ""
}

// Children returns element and text children in document order. Hidden
// elements such as script and style are left out.
func (n Node) Children() []pagetext.Node {
	if n.n == nil || n.n.Type != html.ElementNode || hidden[n.n.Data] {
		return nil
	}
	var children []pagetext.Node
	for c := n.n.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case c.Type == html.TextNode:
			children = append(children, Node{n: c})
		case c.Type == html.ElementNode && !hidden[c.Data]:
			children = append(children, Node{n: c})
		}
	}
	return children
}

// textContent concatenates the text nodes under n in document order.
func textContent(n *html.Node) string {
	if hidden[n.Data] {
		return ""
	}
	var sb strings.Builder
	stack := []*html.Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch cur.Type {
		case html.TextNode:
			sb.WriteString(cur.Data)
			continue
		case html.ElementNode:
			if cur != n && hidden[cur.Data] {
				continue
			}
			if cur.Data == "br" {
				sb.WriteByte('\n')
			}
		default:
			continue
		}

		for c := cur.LastChild; c != nil; c = c.PrevSibling {
			stack = append(stack, c)
		}
	}
	return sb.String()
}
