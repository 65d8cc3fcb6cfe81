// Package applier swaps the located gallery's images for the assigned
// variant list and keeps the swap in place while the page mutates.
package applier

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopmorph/Kaleido/storefront/gallery"
	"github.com/shopmorph/Kaleido/storefront/themedetect"
	"golang.org/x/net/html"
)

// OriginalSrcAttr preserves the pre-swap source so the swap stays recoverable
const OriginalSrcAttr = "data-kaleido-original-src"

const hiddenMarkerAttr = "data-kaleido-hidden"

// Applier applies one assignment's image list to a gallery. It is not
// goroutine-safe; one applier serves one page view.
type Applier struct {
	profile  *themedetect.Profile
	memo     map[string]bool
	applying bool
}

func New(profile *themedetect.Profile) *Applier {
	return &Applier{
		profile: profile,
		memo:    make(map[string]bool),
	}
}

// Apply replaces the first len(urls) gallery images with urls in order and
// hides the remainder. Returns false when nothing was done: an identical
// URL set was already applied, a reapply raced the first pass, or there was
// nothing to replace.
func (a *Applier) Apply(g *gallery.Gallery, urls []string) bool {
	if a.applying {
		// Re-entrancy guard: a mutation notification fired while we were
		// still mutating the DOM ourselves.
		return false
	}
	if g == nil || g.Len() == 0 || len(urls) == 0 {
		return false
	}

	key := strings.Join(urls, "\n")
	if a.memo[key] && a.stillApplied(g, urls) {
		return false
	}

	a.applying = true
	defer func() { a.applying = false }()

	n := len(urls)
	for i, img := range g.Images {
		if i < n {
			a.replace(img, urls[i])
			continue
		}
		a.hide(itemOrImage(g, i))
	}

	a.cleanupWrappers(g)

	a.memo[key] = true
	return true
}

// Restore undoes every replacement and unhides what Apply hid
func (a *Applier) Restore(g *gallery.Gallery) {
	if g == nil {
		return
	}
	for i, img := range g.Images {
		if orig, ok := img.Attr(OriginalSrcAttr); ok {
			img.SetAttr("src", orig)
			img.RemoveAttr(OriginalSrcAttr)
		}
		a.unhide(itemOrImage(g, i))
	}
	g.Container.Find("[" + hiddenMarkerAttr + "]").Each(func(_ int, s *goquery.Selection) {
		a.unhide(s)
	})
	a.memo = make(map[string]bool)
}

func (a *Applier) replace(img *goquery.Selection, url string) {
	if _, ok := img.Attr(OriginalSrcAttr); !ok {
		if orig, has := img.Attr("src"); has {
			img.SetAttr(OriginalSrcAttr, orig)
		}
	}
	img.SetAttr("src", url)
	// A surviving srcset would override the swapped src at render time
	img.RemoveAttr("srcset")
	img.RemoveAttr("data-srcset")
	img.SetAttr("loading", "eager")
}

// stillApplied reports whether a previous application is intact. Lazy-load
// scripts can rewrite src after us; in that case the memo must not suppress
// the reapply.
func (a *Applier) stillApplied(g *gallery.Gallery, urls []string) bool {
	for i, url := range urls {
		if i >= g.Len() {
			break
		}
		if src, _ := g.Images[i].Attr("src"); src != url {
			return false
		}
	}
	return true
}

func (a *Applier) hide(s *goquery.Selection) {
	if s == nil || s.Length() == 0 {
		return
	}
	s.SetAttr(hiddenMarkerAttr, "1")
	switch a.profile.Hide {
	case themedetect.HideVisibility:
		appendStyle(s, "visibility:hidden")
	default:
		appendStyle(s, "display:none")
	}
}

func (a *Applier) unhide(s *goquery.Selection) {
	if s == nil || s.Length() == 0 {
		return
	}
	s.RemoveAttr(hiddenMarkerAttr)
	style, _ := s.Attr("style")
	var kept []string
	for _, decl := range strings.Split(style, ";") {
		decl = strings.TrimSpace(decl)
		if decl == "" || decl == "display:none" || decl == "visibility:hidden" {
			continue
		}
		kept = append(kept, decl)
	}
	if len(kept) == 0 {
		s.RemoveAttr("style")
		return
	}
	s.SetAttr("style", strings.Join(kept, ";"))
}

// cleanupWrappers hides wrapper elements left without any visible image
func (a *Applier) cleanupWrappers(g *gallery.Gallery) {
	for _, sel := range a.profile.WrapperCleanup {
		g.Container.Find(sel).Each(func(_ int, wrapper *goquery.Selection) {
			if _, hidden := wrapper.Attr(hiddenMarkerAttr); hidden {
				return
			}
			if hasVisibleImage(wrapper) {
				return
			}
			if wrapper.Find("img").Length() == 0 {
				// No imagery at all: not a media wrapper, leave it alone
				return
			}
			a.hide(wrapper)
		})
	}
}

func hasVisibleImage(wrapper *goquery.Selection) bool {
	visible := false
	wrapper.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		if isHidden(img) {
			return true
		}
		// An image inside a hidden item does not count as visible
		if img.Closest("["+hiddenMarkerAttr+"]").Length() > 0 {
			return true
		}
		visible = true
		return false
	})
	return visible
}

func isHidden(s *goquery.Selection) bool {
	_, ok := s.Attr(hiddenMarkerAttr)
	return ok
}

func appendStyle(s *goquery.Selection, decl string) {
	style, _ := s.Attr("style")
	style = strings.TrimSpace(style)
	if style != "" && !strings.HasSuffix(style, ";") {
		style += ";"
	}
	s.SetAttr("style", style+decl)
}

// Snapshot serializes the mutated document back to HTML for delivery
func Snapshot(doc *goquery.Document) (string, error) {
	var buf bytes.Buffer
	for _, node := range doc.Nodes {
		if err := html.Render(&buf, node); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

func itemOrImage(g *gallery.Gallery, i int) *goquery.Selection {
	if i < len(g.Items) && g.Items[i] != nil && g.Items[i].Length() > 0 {
		return g.Items[i]
	}
	return g.Images[i]
}
