package mock

import "github.com/fwojciec/pagetext"

var _ pagetext.HTMLExtractor = (*HTMLExtractor)(nil)

// HTMLExtractor is a mock implementation of pagetext.HTMLExtractor.
type HTMLExtractor struct {
	ExtractFn func(html, url string) (*pagetext.ExtractionResult, error)
}

func (e *HTMLExtractor) Extract(html, url string) (*pagetext.ExtractionResult, error) {
	return e.ExtractFn(html, url)
}
