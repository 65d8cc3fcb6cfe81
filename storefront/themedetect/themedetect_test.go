package themedetect

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

const dawnGallery = `<html><body>
	<media-gallery id="MediaGallery-product">
		<ul>
			<li class="grid__item product__media-item">
				<div class="product__media"><img src="https://cdn.shopify.com/s/files/1/p1.jpg" width="800" height="800"></div>
			</li>
			<li class="grid__item product__media-item">
				<div class="product__media"><img src="https://cdn.shopify.com/s/files/1/p2.jpg" width="800" height="800"></div>
			</li>
		</ul>
	</media-gallery>
</body></html>`

func TestDetect_KnownProfileWins(t *testing.T) {
	doc := parseDoc(t, dawnGallery)

	r := Detect(doc)
	require.NotNil(t, r)
	assert.Equal(t, ModeProfile, r.Mode)
	assert.Equal(t, "dawn", r.Profile.Name)
	require.NotNil(t, r.Container)
	assert.Positive(t, r.Score)
}

func TestDetect_WildcardFallback(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<div class="bespoke-product-gallery-area">
			<img src="https://cdn.shopify.com/s/files/1/a.jpg" width="600" height="600">
			<img src="https://cdn.shopify.com/s/files/1/b.jpg" width="600" height="600">
		</div>
	</body></html>`)

	r := Detect(doc)
	require.NotNil(t, r)
	assert.Equal(t, ModeWildcard, r.Mode)
	assert.Equal(t, "adaptive", r.Profile.Name)
}

func TestDetect_WildcardPrefersRichestCandidate(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<div class="product-gallery-related">
			<img src="https://cdn.shopify.com/s/files/1/r1.jpg" width="600" height="600">
		</div>
		<div class="bespoke-product-gallery-area">
			<img src="https://cdn.shopify.com/s/files/1/a.jpg" width="600" height="600">
			<img src="https://cdn.shopify.com/s/files/1/b.jpg" width="600" height="600">
			<img src="icon.svg" width="16" height="16">
		</div>
	</body></html>`)

	r := Detect(doc)
	require.NotNil(t, r)
	assert.Equal(t, ModeWildcard, r.Mode)
	require.NotNil(t, r.Container)
	assert.True(t, r.Container.HasClass("bespoke-product-gallery-area"))
	// Only the two qualifying images count toward the score.
	assert.Equal(t, 2, r.Score)
}

func TestDetect_CommonAncestorFallback(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<div class="main-content">
			<div class="unnamed-wrapper">
				<figure><img src="https://cdn.shopify.com/s/files/1/x1.jpg" width="500" height="500"></figure>
				<figure><img src="https://cdn.shopify.com/s/files/1/x2.jpg" width="500" height="500"></figure>
				<figure><img src="https://cdn.shopify.com/s/files/1/x3.jpg" width="500" height="500"></figure>
				<figure><img src="https://cdn.shopify.com/s/files/1/x4.jpg" width="500" height="500"></figure>
			</div>
		</div>
	</body></html>`)

	r := Detect(doc)
	require.NotNil(t, r)
	assert.Equal(t, ModeAncestor, r.Mode)
	require.NotNil(t, r.Container)
	// The inferred container holds all four product images
	assert.Equal(t, 4, r.Container.Find("img").Length())
}

func TestDetect_NoGallery(t *testing.T) {
	doc := parseDoc(t, `<html><body><p>About us</p><img src="/assets/icon-cart.svg" width="24" height="24"></body></html>`)

	assert.Nil(t, Detect(doc))
}

func TestQualifiesAsProductImage(t *testing.T) {
	tests := []struct {
		name string
		html string
		want bool
	}{
		{
			name: "cdn image with size",
			html: `<img src="https://cdn.shopify.com/s/files/1/p.jpg" width="400" height="400">`,
			want: true,
		},
		{
			name: "icon rejected by hint",
			html: `<img src="https://cdn.shopify.com/s/files/1/icon-cart.png" width="400" height="400">`,
			want: false,
		},
		{
			name: "swatch rejected by size",
			html: `<img src="https://cdn.shopify.com/s/files/1/red.jpg" width="40" height="40">`,
			want: false,
		},
		{
			name: "non-cdn source rejected",
			html: `<img src="/assets/banner.jpg" width="900" height="300">`,
			want: false,
		},
		{
			name: "hidden lazy image falls back to natural size",
			html: `<img data-src="https://cdn.shopify.com/s/files/1/lazy.jpg" data-width="1200" data-height="1200">`,
			want: true,
		},
		{
			name: "unsized cdn image stays qualified",
			html: `<img src="https://cdn.shopify.com/s/files/1/css-sized.jpg">`,
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parseDoc(t, "<html><body>"+tt.html+"</body></html>")
			img := doc.Find("img").First()
			assert.Equal(t, tt.want, QualifiesAsProductImage(img))
		})
	}
}
