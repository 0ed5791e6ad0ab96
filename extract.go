package pagetext

import (
	"iter"
	"slices"
	"strings"
)

// acceptedTags is the fixed set of element names whose rendered text is
// reported as content.
var acceptedTags = map[string]bool{
	"H1": true, "H2": true, "H3": true, "H4": true, "H5": true, "H6": true,
	"P": true, "LI": true, "SPAN": true, "DIV": true,
}

// IsAccepted reports whether tag is one of the element names whose text
// is reported as content. The comparison is case-insensitive.
func IsAccepted(tag string) bool {
	return acceptedTags[strings.ToUpper(tag)]
}

// Node is a read-only view of one node of a rendered document tree.
type Node interface {
	// Tag returns the element name, or "" for text and other non-element nodes.
	Tag() string

	// Text returns the rendered text of an element, or the raw value of a
	// text node.
	Text() string

	// Children returns the child nodes in document order.
	Children() []Node
}

// TreeNode is a concrete Node, decoded from the snapshot a rendering
// engine takes of its live DOM.
type TreeNode struct {
	Name  string      `json:"tag,omitempty"`
	Value string      `json:"text,omitempty"`
	Nodes []*TreeNode `json:"children,omitempty"`
}

// Tag returns the upper-cased element name.
func (n *TreeNode) Tag() string {
	if n == nil {
		return ""
	}
	return strings.ToUpper(n.Name)
}

// Text returns the node text.
func (n *TreeNode) Text() string {
	if n == nil {
		return ""
	}
	return n.Value
}

// Children returns the non-nil child nodes.
func (n *TreeNode) Children() []Node {
	if n == nil || len(n.Nodes) == 0 {
		return nil
	}
	children := make([]Node, 0, len(n.Nodes))
	for _, c := range n.Nodes {
		if c != nil {
			children = append(children, c)
		}
	}
	return children
}

// ExtractionResult holds the text extracted from one rendered page.
type ExtractionResult struct {
	// Title is the text of the first level-one heading, or nil.
	Title *string `json:"title"`

	// URL is the address of the page after navigation.
	URL string `json:"url"`

	// Content lists the trimmed text of every matching element in
	// document order.
	Content []string `json:"content"`
}

// Extractor walks a rendered document tree and collects its text.
// The zero value is ready to use.
type Extractor struct {
	// KeepWrappers reports an element even when its text is exactly the
	// text of a single matching descendant it wraps. By default such
	// wrappers are skipped so that <div><span>x</span></div> yields "x"
	// once. Containers with text of their own, or with several significant
	// children, are reported either way and overlap their descendants.
	KeepWrappers bool
}

// Extract runs the default Extractor over body.
func Extract(url string, body Node) *ExtractionResult {
	return Extractor{}.Extract(url, body)
}

// Walk runs the default Extractor's traversal over body.
func Walk(body Node) iter.Seq[string] {
	return Extractor{}.Walk(body)
}

// Extract collects the content of body and reads the page title.
// A nil body yields empty content and a nil title.
func (e Extractor) Extract(url string, body Node) *ExtractionResult {
	content := slices.Collect(e.Walk(body))
	if content == nil {
		content = []string{}
	}
	return &ExtractionResult{
		Title:   FirstHeading(body),
		URL:     url,
		Content: content,
	}
}

// Walk returns the trimmed text of every matching node under body in
// depth-first pre-order. Children are visited whether or not their parent
// matched. The traversal keeps an explicit stack, so document depth is
// bounded only by memory.
func (e Extractor) Walk(body Node) iter.Seq[string] {
	return func(yield func(string) bool) {
		if body == nil {
			return
		}
		stack := []Node{body}
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if IsAccepted(n.Tag()) {
				text := strings.TrimSpace(n.Text())
				if text != "" && (e.KeepWrappers || !wraps(n, text)) {
					if !yield(text) {
						return
					}
				}
			}

			children := n.Children()
			for i := len(children) - 1; i >= 0; i-- {
				if children[i] != nil {
					stack = append(stack, children[i])
				}
			}
		}
	}
}

// wraps reports whether n only wraps a matching descendant that reports
// the same text.
func wraps(n Node, text string) bool {
	for cur := soleChild(n); cur != nil; cur = soleChild(cur) {
		if IsAccepted(cur.Tag()) && strings.TrimSpace(cur.Text()) == text {
			return true
		}
	}
	return false
}

// soleChild returns the only element child of n, or nil when n has direct
// text or more than one element child.
func soleChild(n Node) Node {
	var only Node
	for _, c := range n.Children() {
		if c == nil {
			continue
		}
		if c.Tag() == "" {
			if strings.TrimSpace(c.Text()) != "" {
				return nil
			}
			continue
		}
		if only != nil {
			return nil
		}
		only = c
	}
	return only
}

// FirstHeading returns the trimmed text of the first H1 under body in
// document order, or nil when there is none or its text is blank.
func FirstHeading(body Node) *string {
	if body == nil {
		return nil
	}
	stack := []Node{body}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if strings.EqualFold(n.Tag(), "H1") {
			title := strings.TrimSpace(n.Text())
			if title == "" {
				return nil
			}
			return &title
		}

		children := n.Children()
		for i := len(children) - 1; i >= 0; i-- {
			if children[i] != nil {
				stack = append(stack, children[i])
			}
		}
	}
	return nil
}
