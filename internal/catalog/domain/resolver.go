package domain

import "strings"

// Line is one purchased line item as reported by a payment provider,
// before it has been matched against the catalog.
type Line struct {
	PriceRef  string
	Slug      string
	WickType  string
	Scent     string
	Name      string
	Quantity  int64
	UnitCents int64
}

// Resolved is a Line matched to catalog data.
type Resolved struct {
	Product *Product
	Variant *Variant
}

func (r Resolved) StockRef() StockRef {
	ref := StockRef{}
	if r.Product != nil {
		ref.ProductID = r.Product.ID
	}
	if r.Variant != nil {
		ref.VariantID = r.Variant.ID
	}
	return ref
}

// Resolver is a point-in-time lookup table over the catalog, built once per
// webhook delivery so every line in the event sees the same product data.
type Resolver struct {
	byPriceRef map[string]*Product
	bySlug     map[string]*Product
	variants   map[variantKey]*Variant
}

type variantKey struct {
	productID int64
	wickType  string
	scent     string
}

func NewResolver(products []*Product, variants []*Variant) *Resolver {
	r := &Resolver{
		byPriceRef: map[string]*Product{},
		bySlug:     map[string]*Product{},
		variants:   map[variantKey]*Variant{},
	}
	for _, p := range products {
		if p == nil {
			continue
		}
		if ref := strings.TrimSpace(p.StripePriceID); ref != "" {
			r.byPriceRef[ref] = p
		}
		if ref := strings.TrimSpace(p.SquareCatalogID); ref != "" {
			r.byPriceRef[ref] = p
		}
		if slug := strings.TrimSpace(p.Slug); slug != "" {
			r.bySlug[slug] = p
		}
	}
	for _, v := range variants {
		if v == nil {
			continue
		}
		r.variants[variantKey{
			productID: int64(v.ProductID),
			wickType:  normalizeAttr(v.WickType),
			scent:     normalizeAttr(v.Scent),
		}] = v
	}
	return r
}

// Resolve matches a provider line to a product and, when the line carries
// variant metadata, to a variant. The second return is false for unmapped
// lines: those are still recorded on the order but never touch stock.
func (r *Resolver) Resolve(line Line) (Resolved, bool) {
	var product *Product
	if ref := strings.TrimSpace(line.PriceRef); ref != "" {
		product = r.byPriceRef[ref]
	}
	if product == nil {
		if slug := strings.TrimSpace(line.Slug); slug != "" {
			product = r.bySlug[slug]
		}
	}
	if product == nil {
		return Resolved{}, false
	}

	resolved := Resolved{Product: product}
	wick := normalizeAttr(line.WickType)
	scent := normalizeAttr(line.Scent)
	if wick != "" || scent != "" {
		variant := r.variants[variantKey{
			productID: int64(product.ID),
			wickType:  wick,
			scent:     scent,
		}]
		if variant == nil {
			// Variant metadata that matches nothing falls back to the
			// product-level counter.
			return resolved, true
		}
		resolved.Variant = variant
	}
	return resolved, true
}

func normalizeAttr(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
