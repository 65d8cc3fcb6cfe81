// Package product derives the canonical product identifier for a page using
// an ordered chain of detection strategies. Later strategies are less precise
// (a URL handle instead of a canonical id) and only run when everything
// before them came up empty.
package product

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Page is the page-level context the detectors inspect. Globals carries the
// platform analytics metadata and the storefront runtime object as decoded
// JSON, keyed by their global names.
type Page struct {
	Globals map[string]any
	Doc     *goquery.Document
	Path    string
}

// Detector extracts a product id from the page, or "" when it cannot
type Detector func(p *Page) string

// Chain is the default detector ordering
func Chain() []Detector {
	return []Detector{
		FromAnalyticsMeta,
		FromRuntimeObject,
		FromMetaTag,
		FromCartForm,
		FromURLPath,
	}
}

// Detect runs the detectors in order and returns the first non-empty result
func Detect(p *Page) string {
	for _, d := range Chain() {
		if id := d(p); id != "" {
			return id
		}
	}
	return ""
}

// FromAnalyticsMeta reads the platform analytics global's product metadata
func FromAnalyticsMeta(p *Page) string {
	meta, ok := p.Globals["analytics"].(map[string]any)
	if !ok {
		return ""
	}
	prod, ok := meta["product"].(map[string]any)
	if !ok {
		return ""
	}
	return stringValue(prod["id"])
}

// FromRuntimeObject reads the storefront runtime JSON object
func FromRuntimeObject(p *Page) string {
	rt, ok := p.Globals["runtime"].(map[string]any)
	if !ok {
		return ""
	}
	prod, ok := rt["product"].(map[string]any)
	if !ok {
		return stringValue(rt["product_id"])
	}
	return stringValue(prod["id"])
}

// FromMetaTag reads a product id meta tag from the document head
func FromMetaTag(p *Page) string {
	if p.Doc == nil {
		return ""
	}
	var id string
	p.Doc.Find(`meta[property="product:id"], meta[name="product-id"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if v, ok := s.Attr("content"); ok && v != "" {
			id = v
			return false
		}
		return true
	})
	return id
}

// FromCartForm reads the product/variant id field of a visible add-to-cart form
func FromCartForm(p *Page) string {
	if p.Doc == nil {
		return ""
	}
	var id string
	p.Doc.Find(`form[action*="/cart/add"] input[name="product-id"], form[action*="/cart/add"] [name="id"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if v, ok := s.Attr("value"); ok && v != "" {
			id = v
			return false
		}
		return true
	})
	return id
}

// FromURLPath falls back to the product handle in the URL path
func FromURLPath(p *Page) string {
	const marker = "/products/"
	idx := strings.Index(p.Path, marker)
	if idx < 0 {
		return ""
	}
	handle := p.Path[idx+len(marker):]
	if cut := strings.IndexAny(handle, "?#/"); cut >= 0 {
		handle = handle[:cut]
	}
	return handle
}

func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		// JSON numbers decode to float64; product ids are integral
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}
