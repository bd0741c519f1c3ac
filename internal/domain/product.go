package domain

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError reports the first failing pre-save check on an entity.
// It never reaches the persistence layer; callers surface it inline.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

// Dimensions carries the physical and construction attributes of a product.
type Dimensions struct {
	Height         string `json:"height" firestore:"height"`
	Length         string `json:"length" firestore:"length"`
	Width          string `json:"width" firestore:"width"`
	MattressSize   string `json:"mattress_size" firestore:"mattressSize"`
	MaxHeight      string `json:"max_height" firestore:"maxHeight"`
	WeightCapacity string `json:"weight_capacity" firestore:"weightCapacity"`
	PocketSprings  string `json:"pocket_springs" firestore:"pocketSprings"`
	ComfortLayer   string `json:"comfort_layer" firestore:"comfortLayer"`
	SupportLayer   string `json:"support_layer" firestore:"supportLayer"`
}

// ProductSpec is one row of the comparison/spec table rendered on product
// pages. Labels always holds three entries (low/mid/high scale captions).
type ProductSpec struct {
	Name   string    `json:"name" firestore:"name"`
	Value  float64   `json:"value" firestore:"value"`
	Min    float64   `json:"min" firestore:"min"`
	Max    float64   `json:"max" firestore:"max"`
	Labels [3]string `json:"labels" firestore:"labels"`
}

// ProductQuestion is one Q&A pair shown in the product FAQ block.
type ProductQuestion struct {
	Question string `json:"question" firestore:"question"`
	Answer   string `json:"answer" firestore:"answer"`
}

// Product is the catalog entity operators edit inline. Brand and category
// ids are foreign keys into the external catalog reference service.
type Product struct {
	ID         string `json:"id,omitempty" firestore:"id,omitempty"`
	Name       string `json:"name" firestore:"name"`
	Slug       string `json:"slug,omitempty" firestore:"slug,omitempty"`
	BrandID    string `json:"brand_id" firestore:"brandId"`
	CategoryID string `json:"category_id" firestore:"categoryId"`
	Category   string `json:"category,omitempty" firestore:"category,omitempty"`

	Description      string `json:"description,omitempty" firestore:"description,omitempty"`
	ShortDescription string `json:"short_description,omitempty" firestore:"shortDescription,omitempty"`

	CurrentPrice float64 `json:"current_price" firestore:"currentPrice"`
	OldPrice     float64 `json:"old_price,omitempty" firestore:"oldPrice,omitempty"`
	Discount     int     `json:"discount,omitempty" firestore:"discount,omitempty"`
	Currency     string  `json:"currency,omitempty" firestore:"currency,omitempty"`

	MainImage string   `json:"main_image" firestore:"mainImage"`
	Images    []string `json:"images" firestore:"images"`

	Sizes        []string `json:"sizes,omitempty" firestore:"sizes,omitempty"`
	Colors       []string `json:"colors,omitempty" firestore:"colors,omitempty"`
	Features     []string `json:"features,omitempty" firestore:"features,omitempty"`
	Materials    []string `json:"materials,omitempty" firestore:"materials,omitempty"`
	ReasonsToBuy []string `json:"reasons_to_buy,omitempty" firestore:"reasonsToBuy,omitempty"`

	Dimensions       Dimensions        `json:"dimensions" firestore:"dimensions"`
	ProductSpecs     []ProductSpec     `json:"product_specs,omitempty" firestore:"productSpecs,omitempty"`
	ProductQuestions []ProductQuestion `json:"product_questions,omitempty" firestore:"productQuestions,omitempty"`
	WarrantyInfo     string            `json:"warranty_info,omitempty" firestore:"warrantyInfo,omitempty"`

	DeliveryTime string  `json:"delivery_time,omitempty" firestore:"deliveryTime,omitempty"`
	InStock      bool    `json:"in_stock" firestore:"inStock"`
	StockCount   int     `json:"stock_count,omitempty" firestore:"stockCount,omitempty"`
	Rating       float64 `json:"rating,omitempty" firestore:"rating,omitempty"`
	ReviewCount  int     `json:"review_count,omitempty" firestore:"reviewCount,omitempty"`
	IsNew        bool    `json:"is_new,omitempty" firestore:"isNew,omitempty"`
	IsFeatured   bool    `json:"is_featured,omitempty" firestore:"isFeatured,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty" firestore:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty" firestore:"updatedAt,omitempty"`
}

// Validate runs the pre-save gate. Checks run in a fixed order and the
// first failure aborts the save; later checks are not evaluated.
func (p *Product) Validate() error {
	if p == nil {
		return &ValidationError{Field: "product", Message: "product is required"}
	}
	if strings.TrimSpace(p.Name) == "" {
		return &ValidationError{Field: "name", Message: "product name is required"}
	}
	if strings.TrimSpace(p.BrandID) == "" {
		return &ValidationError{Field: "brand_id", Message: "brand is required"}
	}
	if strings.TrimSpace(p.CategoryID) == "" {
		return &ValidationError{Field: "category_id", Message: "category is required"}
	}
	if p.CurrentPrice <= 0 {
		return &ValidationError{Field: "current_price", Message: "current price must be greater than zero"}
	}
	if strings.TrimSpace(p.MainImage) == "" {
		return &ValidationError{Field: "main_image", Message: "main image is required"}
	}
	if !hasNonBlankImage(p.Images) {
		return &ValidationError{Field: "images", Message: "at least one image is required"}
	}
	return nil
}

func hasNonBlankImage(images []string) bool {
	for _, img := range images {
		if strings.TrimSpace(img) != "" {
			return true
		}
	}
	return false
}
