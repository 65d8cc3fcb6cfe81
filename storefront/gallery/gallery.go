// Package gallery turns a theme detection result into the ordered set of
// rendered product images and the elements that frame them.
package gallery

import (
	"github.com/PuerkitoBio/goquery"
	"github.com/shopmorph/Kaleido/storefront/themedetect"
)

// Gallery is the located product gallery of one page
type Gallery struct {
	Container *goquery.Selection
	// Items are the per-image wrapper elements, in document order. May be
	// empty for themes that place images directly in the container.
	Items []*goquery.Selection
	// Images are the qualified product images, in document order
	Images  []*goquery.Selection
	Profile *themedetect.Profile
}

// Len returns the number of located product images
func (g *Gallery) Len() int {
	return len(g.Images)
}

// Locate resolves the gallery for a detection result. A nil return means
// the detection produced no usable imagery; callers skip the page view.
func Locate(result *themedetect.Result) *Gallery {
	if result == nil || result.Container == nil || result.Profile == nil {
		return nil
	}

	images := collectImages(result)
	if len(images) == 0 {
		return nil
	}

	return &Gallery{
		Container: result.Container,
		Items:     collectItems(result, images),
		Images:    images,
		Profile:   result.Profile,
	}
}

// collectImages gathers qualified product images scoped to the container.
// Profile image selectors run first; the bare img fallback covers adaptive
// containers whose markup the profile never described.
func collectImages(result *themedetect.Result) []*goquery.Selection {
	var images []*goquery.Selection

	appendQualified := func(s *goquery.Selection) {
		s.Each(func(_ int, img *goquery.Selection) {
			if !themedetect.QualifiesAsProductImage(img) {
				return
			}
			images = append(images, img)
		})
	}

	for _, sel := range result.Profile.ImageSelectors {
		appendQualified(result.Container.Find(sel))
		if len(images) > 0 {
			return dedupeByNode(images)
		}
	}

	appendQualified(result.Container.Find("img"))
	return dedupeByNode(images)
}

// dedupeByNode drops selections that wrap an already-collected node
func dedupeByNode(images []*goquery.Selection) []*goquery.Selection {
	nodes := map[any]bool{}
	out := images[:0]
	for _, img := range images {
		n := img.Get(0)
		if nodes[n] {
			continue
		}
		nodes[n] = true
		out = append(out, img)
	}
	return out
}

// collectItems maps each image to its wrapper element per the profile's
// item selectors, falling back to the image's direct parent.
func collectItems(result *themedetect.Result, images []*goquery.Selection) []*goquery.Selection {
	items := make([]*goquery.Selection, 0, len(images))
	for _, img := range images {
		items = append(items, itemFor(result, img))
	}
	return items
}

func itemFor(result *themedetect.Result, img *goquery.Selection) *goquery.Selection {
	for _, sel := range result.Profile.ItemSelectors {
		if item := img.Closest(sel); item.Length() > 0 {
			return item
		}
	}
	return img.Parent()
}
