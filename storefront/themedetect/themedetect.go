// Package themedetect picks the gallery-location strategy for a storefront
// page. Known theme profiles are scored against the document; when none
// matches, an adaptive wildcard search and finally common-ancestor inference
// over the page's product images take over.
package themedetect

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopmorph/Kaleido/utils"
)

// Detection modes
type Mode string

const (
	ModeProfile  Mode = "profile"
	ModeWildcard Mode = "wildcard"
	ModeAncestor Mode = "ancestor"
)

// Scoring weights: structural selector matches dominate, bare class-name
// occurrences barely register.
const (
	scoreStructural = 5
	scoreAttribute  = 3
	scoreClassName  = 1
)

// Result is the outcome of theme detection for one document
type Result struct {
	Mode      Mode
	Profile   *Profile
	Container *goquery.Selection
	Score     int
}

var (
	attrNameRe  = regexp.MustCompile(`\[([a-zA-Z][a-zA-Z0-9-]*)`)
	classNameRe = regexp.MustCompile(`\.([a-zA-Z_][a-zA-Z0-9_-]*)`)

	// wildcardClassRe drives the adaptive fallback: any element whose class
	// couples "product" with a media-ish word is a gallery candidate.
	wildcardClassRe = regexp.MustCompile(`(?i)product[a-z0-9_-]*(media|gallery|photo|image|slideshow)|(media|gallery|photo|image|slideshow)[a-z0-9_-]*product`)
)

// Detect scores every registered profile against the document and returns
// the best strategy. A nil result means the page has no locatable gallery.
func Detect(doc *goquery.Document) *Result {
	var best *Result
	profiles := Registry()
	for i := range profiles {
		p := &profiles[i]
		score := scoreProfile(doc, p)
		if score <= 0 {
			continue
		}
		container := findFirst(doc, p.ContainerSelectors)
		if container == nil {
			continue
		}
		if best == nil || score > best.Score {
			best = &Result{
				Mode:      ModeProfile,
				Profile:   p,
				Container: container,
				Score:     score,
			}
		}
	}
	if best != nil {
		return best
	}

	if r := detectWildcard(doc); r != nil {
		return r
	}

	return detectCommonAncestor(doc)
}

// scoreProfile counts selector, attribute and class-name evidence for one profile
func scoreProfile(doc *goquery.Document, p *Profile) int {
	score := 0
	selectors := make([]string, 0, len(p.ContainerSelectors)+len(p.ItemSelectors)+len(p.ImageSelectors))
	selectors = append(selectors, p.ContainerSelectors...)
	selectors = append(selectors, p.ItemSelectors...)
	selectors = append(selectors, p.ImageSelectors...)

	seenAttrs := map[string]bool{}
	seenClasses := map[string]bool{}

	for _, sel := range selectors {
		if doc.Find(sel).Length() > 0 {
			score += scoreStructural
			continue
		}

		// Structural miss: look for weaker evidence inside the selector
		for _, attr := range attrNameRe.FindAllStringSubmatch(sel, -1) {
			name := attr[1]
			if seenAttrs[name] {
				continue
			}
			seenAttrs[name] = true
			if doc.Find("["+name+"]").Length() > 0 {
				score += scoreAttribute
			}
		}
		for _, cls := range classNameRe.FindAllStringSubmatch(sel, -1) {
			name := cls[1]
			if seenClasses[name] {
				continue
			}
			seenClasses[name] = true
			if classOccurs(doc, name) {
				score += scoreClassName
			}
		}
	}
	return score
}

func classOccurs(doc *goquery.Document, name string) bool {
	found := false
	doc.Find("[class]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		for _, token := range strings.Fields(class) {
			if strings.Contains(token, name) {
				found = true
				return false
			}
		}
		return true
	})
	return found
}

func findFirst(doc *goquery.Document, selectors []string) *goquery.Selection {
	for _, sel := range selectors {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			return s
		}
	}
	return nil
}

// detectWildcard looks for any element whose class or data attributes read
// like a product gallery and which actually holds product imagery.
func detectWildcard(doc *goquery.Document) *Result {
	var best *goquery.Selection
	bestImages := 0

	doc.Find("div, ul, section, media-gallery").Each(func(_ int, s *goquery.Selection) {
		if !wildcardMatches(s) {
			return
		}
		n := countProductImages(s)
		if n > bestImages {
			best = s
			bestImages = n
		}
	})

	if best == nil {
		return nil
	}
	return &Result{
		Mode:      ModeWildcard,
		Profile:   wildcardProfile(),
		Container: best,
		Score:     bestImages,
	}
}

func countProductImages(container *goquery.Selection) int {
	n := 0
	container.Find("img").Each(func(_ int, img *goquery.Selection) {
		if QualifiesAsProductImage(img) {
			n++
		}
	})
	return n
}

func wildcardMatches(s *goquery.Selection) bool {
	if class, ok := s.Attr("class"); ok && wildcardClassRe.MatchString(class) {
		return true
	}
	for _, attr := range s.Get(0).Attr {
		if strings.HasPrefix(attr.Key, "data-") && wildcardClassRe.MatchString(attr.Key+" "+attr.Val) {
			return true
		}
	}
	return false
}

// wildcardProfile is the synthetic profile used when no named theme matched
func wildcardProfile() *Profile {
	return &Profile{
		Name:           "adaptive",
		ItemSelectors:  []string{"li", "figure", "div"},
		ImageSelectors: []string{"img"},
		Hide:           HideRemoveLayout,
		WrapperCleanup: []string{"li", "figure"},
	}
}

// detectCommonAncestor collects the page's qualified product images and
// climbs until a single ancestor covers at least the coverage threshold.
func detectCommonAncestor(doc *goquery.Document) *Result {
	images := doc.Find("img").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return QualifiesAsProductImage(s)
	})
	total := images.Length()
	if total == 0 {
		return nil
	}

	// Walk up from the first product image; at each level check how many of
	// the qualified images that ancestor contains.
	for ancestor := images.First().Parent(); ancestor.Length() > 0; ancestor = ancestor.Parent() {
		if goquery.NodeName(ancestor) == "html" {
			break
		}
		contained := 0
		images.Each(func(_ int, img *goquery.Selection) {
			if containsNode(ancestor, img) {
				contained++
			}
		})
		if float64(contained) >= utils.AncestorCoverageThreshold*float64(total) {
			return &Result{
				Mode:      ModeAncestor,
				Profile:   wildcardProfile(),
				Container: ancestor,
				Score:     contained,
			}
		}
	}
	return nil
}

func containsNode(ancestor, candidate *goquery.Selection) bool {
	target := candidate.Get(0)
	for n := target.Parent; n != nil; n = n.Parent {
		if n == ancestor.Get(0) {
			return true
		}
	}
	return false
}
