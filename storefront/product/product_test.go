package product

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestDetect_AnalyticsMetaWins(t *testing.T) {
	page := &Page{
		Globals: map[string]any{
			"analytics": map[string]any{
				"product": map[string]any{"id": float64(8675309)},
			},
			"runtime": map[string]any{
				"product": map[string]any{"id": "runtime-id"},
			},
		},
		Path: "/products/blue-shirt",
	}

	assert.Equal(t, "8675309", Detect(page))
}

func TestDetect_RuntimeObjectFallback(t *testing.T) {
	page := &Page{
		Globals: map[string]any{
			"runtime": map[string]any{
				"product": map[string]any{"id": "prod-42"},
			},
		},
	}

	assert.Equal(t, "prod-42", Detect(page))
}

func TestDetect_MetaTag(t *testing.T) {
	doc := parseDoc(t, `<html><head><meta property="product:id" content="meta-77"></head><body></body></html>`)
	page := &Page{Doc: doc}

	assert.Equal(t, "meta-77", Detect(page))
}

func TestDetect_CartFormField(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<form action="/cart/add" method="post">
			<input name="id" value="form-55">
			<button type="submit">Add to cart</button>
		</form>
	</body></html>`)
	page := &Page{Doc: doc}

	assert.Equal(t, "form-55", Detect(page))
}

func TestDetect_URLPathHandleLast(t *testing.T) {
	page := &Page{Path: "/collections/sale/products/red-mug?variant=3"}

	assert.Equal(t, "red-mug", Detect(page))
}

func TestDetect_NothingFound(t *testing.T) {
	doc := parseDoc(t, `<html><body><p>hi</p></body></html>`)
	page := &Page{Doc: doc, Path: "/pages/about"}

	assert.Equal(t, "", Detect(page))
}
