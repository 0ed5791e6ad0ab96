package goquery_test

import (
	"strings"
	"testing"

	"github.com/fwojciec/pagetext"
	"github.com/fwojciec/pagetext/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func TestExtractor_RejectsEmptyInput(t *testing.T) {
	t.Parallel()

	ext := goquery.NewExtractor()
	_, err := ext.Extract("  \n", "https://example.com/")

	require.Error(t, err)
	assert.Equal(t, pagetext.EINVALID, pagetext.ErrorCode(err))
}

func TestExtractor_Extract(t *testing.T) {
	t.Parallel()

	t.Run("extracts headings, paragraphs and spans in document order", func(t *testing.T) {
		t.Parallel()

		doc := `<!DOCTYPE html>
<html>
<head><title>Ignored</title></head>
<body><h1>Title</h1><p>Hello</p><div><span>World</span></div></body>
</html>`

		result, err := goquery.NewExtractor().Extract(doc, "https://example.com/page")

		require.NoError(t, err)
		assert.Equal(t, []string{"Title", "Hello", "World"}, result.Content)
		require.NotNil(t, result.Title)
		assert.Equal(t, "Title", *result.Title)
		assert.Equal(t, "https://example.com/page", result.URL)
	})

	t.Run("empty body yields empty content and no title", func(t *testing.T) {
		t.Parallel()

		result, err := goquery.NewExtractor().Extract(`<html><body></body></html>`, "u")

		require.NoError(t, err)
		assert.Empty(t, result.Content)
		assert.Nil(t, result.Title)
	})

	t.Run("ignores script and style contents", func(t *testing.T) {
		t.Parallel()

		doc := `<html><body>
<div><p>Visible</p><script>var hidden = "<p>no</p>";</script></div>
<style>p { color: red }</style>
</body></html>`

		result, err := goquery.NewExtractor().Extract(doc, "u")

		require.NoError(t, err)
		assert.Equal(t, []string{"Visible"}, result.Content)
	})

	t.Run("list items and whitespace formatting", func(t *testing.T) {
		t.Parallel()

		doc := `<html><body>
<ul>
  <li>  one </li>
  <li>

  </li>
  <li>two</li>
</ul>
</body></html>`

		result, err := goquery.NewExtractor().Extract(doc, "u")

		require.NoError(t, err)
		assert.Equal(t, []string{"one", "two"}, result.Content)
	})

	t.Run("KeepWrappers reports wrapping containers too", func(t *testing.T) {
		t.Parallel()

		doc := `<html><body><div><span>World</span></div></body></html>`

		result, err := goquery.NewExtractorWith(pagetext.Extractor{KeepWrappers: true}).Extract(doc, "u")

		require.NoError(t, err)
		assert.Equal(t, []string{"World", "World"}, result.Content)
	})
}

func TestNode(t *testing.T) {
	t.Parallel()

	root, err := html.Parse(strings.NewReader(`<html><body><p>a<br>b<!-- c --></p></body></html>`))
	require.NoError(t, err)

	var p *html.Node
	for n := range root.Descendants() {
		if n.Type == html.ElementNode && n.Data == "p" {
			p = n
			break
		}
	}
	require.NotNil(t, p)

	node := goquery.NewNode(p)

	assert.Equal(t, "P", node.Tag())
	assert.Equal(t, "a\nb", node.Text())

	children := node.Children()
	require.Len(t, children, 3)
	assert.Equal(t, "", children[0].Tag())
	assert.Equal(t, "a", children[0].Text())
	assert.Equal(t, "BR", children[1].Tag())
	assert.Equal(t, "b", children[2].Text())
}
