package themedetect

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopmorph/Kaleido/utils"
)

// cdnPathRe matches the content-delivery paths product imagery is served from
var cdnPathRe = regexp.MustCompile(`(?i)(cdn\.shopify\.com|/cdn/shop/|/(files|products)/.+\.(jpe?g|png|webp|avif))`)

// excludedHintRe rejects imagery that is never a product photo
var excludedHintRe = regexp.MustCompile(`(?i)(icon|swatch|sprite|logo|badge|thumb_|favicon)`)

// QualifiesAsProductImage reports whether an img element plausibly shows the
// product itself. The source must come from a known CDN path and the
// rendered (or natural, for currently hidden images) size must exceed the
// icon/swatch threshold.
func QualifiesAsProductImage(img *goquery.Selection) bool {
	src := imageSource(img)
	if src == "" {
		return false
	}
	if !cdnPathRe.MatchString(src) {
		return false
	}
	if excludedHintRe.MatchString(src) {
		return false
	}
	if class, ok := img.Attr("class"); ok && excludedHintRe.MatchString(class) {
		return false
	}

	w, h := imageDimensions(img)
	// Unsized images stay qualified: many themes size through CSS only
	if w == 0 && h == 0 {
		return true
	}
	return w >= utils.MinProductImageSize || h >= utils.MinProductImageSize
}

func imageSource(img *goquery.Selection) string {
	for _, attr := range []string{"src", "data-src", "data-photoswipe-src"} {
		if v, ok := img.Attr(attr); ok && v != "" {
			return v
		}
	}
	return ""
}

func imageDimensions(img *goquery.Selection) (int, int) {
	w := intAttr(img, "width")
	h := intAttr(img, "height")
	if w == 0 {
		w = intAttr(img, "data-width")
	}
	if h == 0 {
		h = intAttr(img, "data-height")
	}
	return w, h
}

func intAttr(s *goquery.Selection, name string) int {
	v, ok := s.Attr(name)
	if !ok {
		return 0
	}
	v = strings.TrimSuffix(strings.TrimSpace(v), "px")
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
