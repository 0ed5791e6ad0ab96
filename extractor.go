package pagetext

// HTMLExtractor runs the extraction algorithm over static HTML without a
// rendering engine. Text is the document's text content rather than
// layout-aware rendered text.
type HTMLExtractor interface {
	// Extract parses html and returns its content. url is reported as the
	// result URL. Returns EINVALID for empty input.
	Extract(html, url string) (*ExtractionResult, error)
}
