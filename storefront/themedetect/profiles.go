package themedetect

// HideStrategy controls how surplus gallery items are hidden
type HideStrategy string

const (
	// HideRemoveLayout takes the element out of layout entirely
	HideRemoveLayout HideStrategy = "remove-layout"
	// HideVisibility keeps the element's box but makes it invisible
	HideVisibility HideStrategy = "visibility"
)

// Profile describes how one theme family lays out its product gallery
type Profile struct {
	Name               string
	ContainerSelectors []string
	ItemSelectors      []string
	ImageSelectors     []string
	Hide               HideStrategy
	// WrapperCleanup lists selectors for wrapper elements that may be left
	// empty after hiding, ordered from most to least specific.
	WrapperCleanup []string
}

// Registry returns the built-in theme profiles
func Registry() []Profile {
	return []Profile{
		{
			Name:               "dawn",
			ContainerSelectors: []string{"media-gallery", ".product__media-wrapper", "#MediaGallery-product"},
			ItemSelectors:      []string{".product__media-item", "li.grid__item.product__media-item"},
			ImageSelectors:     []string{".product__media img", ".product__media-item img"},
			Hide:               HideRemoveLayout,
			WrapperCleanup:     []string{".product__media-item", ".product__media"},
		},
		{
			Name:               "debut",
			ContainerSelectors: []string{".product-single__media-group", "#ProductPhotos"},
			ItemSelectors:      []string{".product-single__media-wrapper", ".product-single__media"},
			ImageSelectors:     []string{".product-single__media img", ".product-featured-media"},
			Hide:               HideRemoveLayout,
			WrapperCleanup:     []string{".product-single__media-wrapper"},
		},
		{
			Name:               "impulse",
			ContainerSelectors: []string{".product__photos", "[data-product-images]"},
			ItemSelectors:      []string{".product__main-photos .slick-slide", ".product-image-main"},
			ImageSelectors:     []string{".product__photos img", "[data-photoswipe-src]"},
			Hide:               HideVisibility,
			WrapperCleanup:     []string{".slick-slide", ".product__photos .image-wrap"},
		},
		{
			Name:               "prestige",
			ContainerSelectors: []string{".Product__SlideshowNav", ".Product__Slideshow"},
			ItemSelectors:      []string{".Product__SlideItem"},
			ImageSelectors:     []string{".Product__SlideItem img", ".Image--lazyLoaded"},
			Hide:               HideVisibility,
			WrapperCleanup:     []string{".Product__SlideItem"},
		},
		{
			Name:               "generic-slider",
			ContainerSelectors: []string{".product-gallery", ".product-images", "[data-product-gallery]"},
			ItemSelectors:      []string{".product-gallery__item", ".product-images li", ".swiper-slide"},
			ImageSelectors:     []string{".product-gallery img", ".product-images img"},
			Hide:               HideRemoveLayout,
			WrapperCleanup:     []string{".swiper-slide", ".product-gallery__item"},
		},
	}
}
