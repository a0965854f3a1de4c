package domain

import (
	"fmt"
	"strings"
	"time"
)

// DefaultCurrency is the display currency of every amount in the catalog.
const DefaultCurrency = "FCFA"

// DefaultExchangeRate is the CNY to FCFA rate used when a product has none.
const DefaultExchangeRate = 85

// LowStockThreshold is the stock level at or below which a product is low.
const LowStockThreshold = 10

// =============================================================================
// Closed enumerations
// =============================================================================

// ProductCategory classifies catalog products.
type ProductCategory string

const (
	CategoryElectronics ProductCategory = "electronics"
	CategoryFashion     ProductCategory = "fashion"
	CategoryHomeGarden  ProductCategory = "home-garden"
	CategorySports      ProductCategory = "sports"
	CategoryAutomotive  ProductCategory = "automotive"
	CategoryBeauty      ProductCategory = "beauty"
	CategoryTools       ProductCategory = "tools"
	CategoryToys        ProductCategory = "toys"
	CategoryIndustrial  ProductCategory = "industrial"
	CategoryOther       ProductCategory = "other"
)

// AllProductCategories lists the categories in display order.
func AllProductCategories() []ProductCategory {
	return []ProductCategory{
		CategoryElectronics,
		CategoryFashion,
		CategoryHomeGarden,
		CategorySports,
		CategoryAutomotive,
		CategoryBeauty,
		CategoryTools,
		CategoryToys,
		CategoryIndustrial,
		CategoryOther,
	}
}

func (c ProductCategory) IsValid() bool {
	for _, v := range AllProductCategories() {
		if c == v {
			return true
		}
	}
	return false
}

func (c ProductCategory) Label() string {
	switch c {
	case CategoryElectronics:
		return "Électronique"
	case CategoryFashion:
		return "Mode"
	case CategoryHomeGarden:
		return "Maison & jardin"
	case CategorySports:
		return "Sports"
	case CategoryAutomotive:
		return "Automobile"
	case CategoryBeauty:
		return "Beauté"
	case CategoryTools:
		return "Outillage"
	case CategoryToys:
		return "Jouets"
	case CategoryIndustrial:
		return "Industriel"
	case CategoryOther:
		return "Autre"
	}
	return string(c)
}

// StockStatus is the availability shown on product cards.
type StockStatus string

const (
	StockInStock    StockStatus = "in-stock"
	StockLow        StockStatus = "low-stock"
	StockOutOfStock StockStatus = "out-of-stock"
	StockPreOrder   StockStatus = "pre-order"
)

func (s StockStatus) Label() string {
	switch s {
	case StockInStock:
		return "En stock"
	case StockLow:
		return "Stock limité"
	case StockOutOfStock:
		return "Rupture"
	case StockPreOrder:
		return "Précommande"
	}
	return string(s)
}

// SpecCategory groups product specifications.
type SpecCategory string

const (
	SpecDimension   SpecCategory = "dimension"
	SpecWeight      SpecCategory = "weight"
	SpecMaterial    SpecCategory = "material"
	SpecColor       SpecCategory = "color"
	SpecPerformance SpecCategory = "performance"
	SpecOther       SpecCategory = "other"
)

func (c SpecCategory) IsValid() bool {
	switch c {
	case SpecDimension, SpecWeight, SpecMaterial, SpecColor, SpecPerformance, SpecOther:
		return true
	}
	return false
}

// DimensionUnit is the unit of a product's dimensions.
type DimensionUnit string

const (
	UnitCentimeter DimensionUnit = "cm"
	UnitMeter      DimensionUnit = "m"
)

// ProductFilter selects a subset of the featured products.
type ProductFilter string

const (
	FilterAll      ProductFilter = "all"
	FilterPopular  ProductFilter = "popular"
	FilterTrending ProductFilter = "trending"
)

// ParseProductFilter maps a query value to a filter, defaulting to all.
func ParseProductFilter(s string) ProductFilter {
	switch ProductFilter(strings.ToLower(strings.TrimSpace(s))) {
	case FilterPopular:
		return FilterPopular
	case FilterTrending:
		return FilterTrending
	default:
		return FilterAll
	}
}

// Matches reports whether the product belongs to the filtered subset.
func (f ProductFilter) Matches(p *FeaturedProduct) bool {
	switch f {
	case FilterPopular:
		return p.IsPopular
	case FilterTrending:
		return p.IsTrending
	default:
		return true
	}
}

func (f ProductFilter) Label() string {
	switch f {
	case FilterPopular:
		return "Populaires"
	case FilterTrending:
		return "Tendances"
	default:
		return "Tous"
	}
}

// =============================================================================
// Pricing
// =============================================================================

// PricingTier is a quantity range with its discounted unit price.
// A nil MaxQuantity means the tier is unbounded above.
type PricingTier struct {
	MinQuantity       int      `json:"minQuantity"`
	MaxQuantity       *int     `json:"maxQuantity,omitempty"`
	UnitPrice         int64    `json:"unitPrice"`
	SavingsPercentage *float64 `json:"savingsPercentage,omitempty"`
}

// Contains reports whether q falls inside the tier range.
func (t PricingTier) Contains(q int) bool {
	return q >= t.MinQuantity && (t.MaxQuantity == nil || q <= *t.MaxQuantity)
}

// IsUnbounded reports whether the tier has no upper bound.
func (t PricingTier) IsUnbounded() bool {
	return t.MaxQuantity == nil
}

// Label renders the range, e.g. "5-9" or "20+".
func (t PricingTier) Label() string {
	if t.MaxQuantity == nil {
		return fmt.Sprintf("%d+", t.MinQuantity)
	}
	if *t.MaxQuantity == t.MinQuantity {
		return fmt.Sprintf("%d", t.MinQuantity)
	}
	return fmt.Sprintf("%d-%d", t.MinQuantity, *t.MaxQuantity)
}

// ProductPricing holds the per-unit cost components of a product.
// All FCFA amounts are integers in the smallest currency unit.
type ProductPricing struct {
	BasePrice     int64         `json:"basePrice"` // CNY
	BasePriceFCFA int64         `json:"basePriceFCFA"`
	ShippingCost  int64         `json:"shippingCost"`
	ServiceFee    int64         `json:"serviceFee"`
	CustomsFees   int64         `json:"customsFees"`
	TotalPrice    int64         `json:"totalPrice"` // reference price without discount
	Currency      string        `json:"currency"`
	ExchangeRate  int64         `json:"exchangeRate"`
	Tiers         []PricingTier `json:"tiers,omitempty"`
}

// =============================================================================
// Product
// =============================================================================

// Buyer is a recent verified purchase shown as social proof.
type Buyer struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Avatar       string `json:"avatar,omitempty"`
	Location     string `json:"location"`
	PurchaseDate string `json:"purchaseDate"` // YYYY-MM-DD
	Quantity     int    `json:"quantity"`
	IsVerified   bool   `json:"isVerified"`
}

// Initials returns up to two uppercase initials for avatar placeholders.
func (b Buyer) Initials() string {
	return Initials(b.Name)
}

// Specification is a named product attribute.
type Specification struct {
	Name     string       `json:"name"`
	Value    string       `json:"value"`
	Category SpecCategory `json:"category,omitempty"`
}

// Dimensions of a product.
type Dimensions struct {
	Length float64       `json:"length"`
	Width  float64       `json:"width"`
	Height float64       `json:"height"`
	Unit   DimensionUnit `json:"unit"`
}

// FeaturedProduct is a showcase product with its pricing and social proof.
type FeaturedProduct struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	ShortDescription  string          `json:"shortDescription"`
	Images            []string        `json:"images"`
	Pricing           ProductPricing  `json:"pricing"`
	Buyers            []Buyer         `json:"buyers"`
	Category          ProductCategory `json:"category"`
	Tags              []string        `json:"tags"`
	OriginalURL       string          `json:"originalUrl,omitempty"`
	Specifications    []Specification `json:"specifications"`
	InStock           bool            `json:"inStock"`
	PreOrder          bool            `json:"preOrder,omitempty"`
	StockQuantity     *int            `json:"stockQuantity,omitempty"`
	MinOrderQuantity  int             `json:"minOrderQuantity"`
	MaxOrderQuantity  *int            `json:"maxOrderQuantity,omitempty"`
	EstimatedDelivery string          `json:"estimatedDelivery"`
	Weight            *float64        `json:"weight,omitempty"` // kg
	Dimensions        *Dimensions     `json:"dimensions,omitempty"`
	IsPopular         bool            `json:"isPopular"`
	IsTrending        bool            `json:"isTrending"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// StockStatus derives the availability badge.
func (p *FeaturedProduct) StockStatus() StockStatus {
	if !p.InStock {
		if p.PreOrder {
			return StockPreOrder
		}
		return StockOutOfStock
	}
	if p.StockQuantity != nil && *p.StockQuantity <= LowStockThreshold {
		return StockLow
	}
	return StockInStock
}

// TotalBuyerQuantity sums the quantities bought by the listed buyers.
func (p *FeaturedProduct) TotalBuyerQuantity() int {
	total := 0
	for _, b := range p.Buyers {
		total += b.Quantity
	}
	return total
}

// SpecificationSummary joins the specifications as "name: value, ...".
func (p *FeaturedProduct) SpecificationSummary() string {
	parts := make([]string, 0, len(p.Specifications))
	for _, s := range p.Specifications {
		parts = append(parts, s.Name+": "+s.Value)
	}
	return strings.Join(parts, ", ")
}

// MaxOrderLabel renders the order ceiling, "illimité" when none is set.
func (p *FeaturedProduct) MaxOrderLabel() string {
	if p.MaxOrderQuantity == nil {
		return "illimité"
	}
	return fmt.Sprintf("%d", *p.MaxOrderQuantity)
}

// Validate checks the catalog invariants of a product.
func (p *FeaturedProduct) Validate() error {
	const op = "product.validate"

	if strings.TrimSpace(p.ID) == "" {
		return Invalid(op, "product id is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return Errorf(EINVALID, op, "product %s: name is required", p.ID)
	}
	if !p.Category.IsValid() {
		return Errorf(EINVALID, op, "product %s: unknown category %q", p.ID, p.Category)
	}
	if p.MinOrderQuantity < 1 {
		return Errorf(EINVALID, op, "product %s: minOrderQuantity must be at least 1", p.ID)
	}
	if p.MaxOrderQuantity != nil && *p.MaxOrderQuantity < p.MinOrderQuantity {
		return Errorf(EINVALID, op, "product %s: maxOrderQuantity %d below minOrderQuantity %d",
			p.ID, *p.MaxOrderQuantity, p.MinOrderQuantity)
	}
	pr := p.Pricing
	for name, v := range map[string]int64{
		"basePriceFCFA": pr.BasePriceFCFA,
		"shippingCost":  pr.ShippingCost,
		"serviceFee":    pr.ServiceFee,
		"customsFees":   pr.CustomsFees,
		"totalPrice":    pr.TotalPrice,
	} {
		if v < 0 {
			return Errorf(EINVALID, op, "product %s: %s must not be negative", p.ID, name)
		}
	}
	for _, s := range p.Specifications {
		if s.Category != "" && !s.Category.IsValid() {
			return Errorf(EINVALID, op, "product %s: unknown specification category %q", p.ID, s.Category)
		}
	}
	if p.Dimensions != nil && p.Dimensions.Unit != UnitCentimeter && p.Dimensions.Unit != UnitMeter {
		return Errorf(EINVALID, op, "product %s: unknown dimension unit %q", p.ID, p.Dimensions.Unit)
	}
	if err := ValidateTiers(pr.Tiers); err != nil {
		return Wrap(err, EINVALID, op, fmt.Sprintf("product %s: %s", p.ID, ErrorMessage(err)))
	}
	return nil
}

// Initials returns up to two uppercase initials of a name.
func Initials(name string) string {
	var out []rune
	for _, word := range strings.Fields(name) {
		r := []rune(word)
		if len(r) == 0 {
			continue
		}
		out = append(out, []rune(strings.ToUpper(string(r[0])))...)
		if len(out) >= 2 {
			break
		}
	}
	return string(out)
}

// CarouselConfig drives the featured products slider.
type CarouselConfig struct {
	SlidesMobile  int  `json:"slidesMobile"`
	SlidesTablet  int  `json:"slidesTablet"`
	SlidesDesktop int  `json:"slidesDesktop"`
	Autoplay      bool `json:"autoplay"`
	AutoplayDelay int  `json:"autoplayDelay"` // milliseconds
	Loop          bool `json:"loop"`
	DragFree      bool `json:"dragFree"`
}

// DefaultCarouselConfig is the slider configuration of the landing page.
func DefaultCarouselConfig() CarouselConfig {
	return CarouselConfig{
		SlidesMobile:  1,
		SlidesTablet:  2,
		SlidesDesktop: 3,
		Autoplay:      true,
		AutoplayDelay: 5000,
		Loop:          true,
	}
}
