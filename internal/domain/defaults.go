package domain

// Built-in seeds for every homepage section the storefront renders. The
// section store starts from these and replaces whole values with whatever
// the content repository returns; a key absent remotely keeps its seed
// unchanged. Downstream code reads fully populated structures only; there
// are no read-site fallbacks.

// SectionKeys lists every known homepage section in render order.
func SectionKeys() []string {
	return []string{
		SectionHeroCarousel,
		SectionPromotionalCards,
		SectionCategoryHighlights,
		SectionCustomerFavorites,
		SectionStoreBenefits,
	}
}

// Known section keys.
const (
	SectionHeroCarousel       = "hero_carousel"
	SectionPromotionalCards   = "promotional_cards"
	SectionCategoryHighlights = "category_highlights"
	SectionCustomerFavorites  = "customer_favorites"
	SectionStoreBenefits      = "store_benefits"
)

// PlaceholderImage is the sentinel reference a deleted image field resets to.
const PlaceholderImage = "/assets/placeholder.png"

// DefaultSectionContent returns the built-in seed for the given section key
// and false when the key is unknown. Each call returns a fresh copy, so
// callers may mutate the result freely.
func DefaultSectionContent(key string) (any, bool) {
	switch key {
	case SectionHeroCarousel:
		return []CollectionItem{
			heroSlide(1, "Sleep better tonight", "Mattresses engineered for every sleeper", "/shop/mattresses"),
			heroSlide(2, "Bedroom, reimagined", "Solid oak frames with a 10-year warranty", "/shop/beds"),
			heroSlide(3, "Winter sale", "Up to 40% off sofas and armchairs", "/sale"),
		}, true
	case SectionPromotionalCards:
		return []CollectionItem{
			promoCard(1, "Free delivery", "On all orders over $499", PlaceholderImage),
			promoCard(2, "100-night trial", "Love it or return it", PlaceholderImage),
			promoCard(3, "0% financing", "Spread the cost over 12 months", PlaceholderImage),
		}, true
	case SectionCategoryHighlights:
		return []CollectionItem{
			categoryTile(1, "Mattresses", "mattresses", PlaceholderImage),
			categoryTile(2, "Beds", "beds", PlaceholderImage),
			categoryTile(3, "Sofas", "sofas", PlaceholderImage),
		}, true
	case SectionCustomerFavorites:
		return []CollectionItem{
			favorite(1, "Cloud Hybrid Mattress", PlaceholderImage),
			favorite(2, "Haven Oak Bed Frame", PlaceholderImage),
			favorite(3, "Nook Corner Sofa", PlaceholderImage),
		}, true
	case SectionStoreBenefits:
		return map[string]any{
			"heading":    "Why shop with us",
			"subheading": "Comfort guaranteed, from checkout to bedtime",
			"benefits": []CollectionItem{
				{"id": 1, "title": "10-year warranty", "icon": "shield"},
				{"id": 2, "title": "Free returns", "icon": "returns"},
				{"id": 3, "title": "Expert support", "icon": "chat"},
			},
		}, true
	default:
		return nil, false
	}
}

// DefaultSections materialises the full seed map for every known key.
func DefaultSections() map[string]any {
	out := make(map[string]any, len(SectionKeys()))
	for _, key := range SectionKeys() {
		content, _ := DefaultSectionContent(key)
		out[key] = content
	}
	return out
}

func heroSlide(id int, title, subtitle, link string) CollectionItem {
	return CollectionItem{
		"id":       id,
		"title":    title,
		"subtitle": subtitle,
		"link":     link,
		"image":    PlaceholderImage,
	}
}

func promoCard(id int, title, body, image string) CollectionItem {
	return CollectionItem{
		"id":    id,
		"title": title,
		"body":  body,
		"image": image,
	}
}

func categoryTile(id int, label, slug, image string) CollectionItem {
	return CollectionItem{
		"id":    id,
		"label": label,
		"slug":  slug,
		"image": image,
	}
}

func favorite(id int, name, image string) CollectionItem {
	return CollectionItem{
		"id":    id,
		"name":  name,
		"image": image,
	}
}
