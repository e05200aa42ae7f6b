package catalog

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
)

// AllProducts returns every cached product.
func (s *Store) AllProducts() []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneProducts(s.products)
}

// ActiveProducts returns the products flagged active.
func (s *Store) ActiveProducts() []Product {
	return s.filter(func(p Product) bool { return p.IsActive })
}

// ProductsSortedByOrder returns the products by ascending order; ties keep their cached order.
func (s *Store) ProductsSortedByOrder() []Product {
	out := s.AllProducts()
	slices.SortStableFunc(out, func(a, b Product) int {
		return cmp.Compare(a.Order, b.Order)
	})
	return out
}

// ProductByID returns the product with the given id.
func (s *Store) ProductByID(id int) (Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.products {
		if p.ID == id {
			return p.clone(), true
		}
	}
	return Product{}, false
}

// ProductByRawID coerces raw to an integer the way route parameters and form values
// arrive ("12", " 12", "12abc") and looks the product up.
func (s *Store) ProductByRawID(raw string) (Product, bool) {
	id, ok := ParseID(raw)
	if !ok {
		return Product{}, false
	}
	return s.ProductByID(id)
}

// ParseID reads the leading base-10 integer of raw, ignoring leading whitespace.
func ParseID(raw string) (int, bool) {
	raw = strings.TrimLeft(raw, " \t\n\r\v\f")
	end := 0
	if end < len(raw) && (raw[end] == '+' || raw[end] == '-') {
		end++
	}
	digits := end
	for end < len(raw) && raw[end] >= '0' && raw[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	id, err := strconv.Atoi(raw[:end])
	if err != nil {
		return 0, false
	}
	return id, true
}

// ProductBySlug returns the product with the exact slug.
func (s *Store) ProductBySlug(slug string) (Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.products {
		if p.Slug == slug {
			return p.clone(), true
		}
	}
	return Product{}, false
}

// ProductSpecifications maps the product's specifications to label/value pairs.
// Unknown products and products without specifications yield an empty slice.
func (s *Store) ProductSpecifications(id int) []SpecificationView {
	p, ok := s.ProductByID(id)
	if !ok || len(p.Specifications) == 0 {
		return []SpecificationView{}
	}
	out := make([]SpecificationView, 0, len(p.Specifications))
	for _, spec := range p.Specifications {
		out = append(out, SpecificationView{Label: spec.Name, Value: spec.DisplayValue()})
	}
	return out
}

// ProductDimensionsImage returns the first non-empty dimensions image found by the probes.
func (s *Store) ProductDimensionsImage(id int) (string, bool) {
	p, ok := s.ProductByID(id)
	if !ok {
		return "", false
	}
	if v, ok := firstDimensionImage(p, s.probes); ok {
		return v, true
	}
	if s.devMode {
		keys := make([]string, 0, len(p.Attributes))
		for k := range p.Attributes {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		s.logger.Warn("no dimensions image found for product",
			zap.Int("product_id", id),
			zap.Strings("available_keys", keys),
		)
	}
	return "", false
}

// ActiveComparisonImages returns the comparison images flagged active.
func (s *Store) ActiveComparisonImages() []ComparisonImage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ComparisonImage, 0, len(s.images))
	for _, img := range s.images {
		if img.IsActive {
			out = append(out, img)
		}
	}
	return out
}

// SearchProducts returns products whose title, description or initial text contains
// term, ignoring case. An empty term returns every product.
func (s *Store) SearchProducts(term string) []Product {
	if term == "" {
		return s.AllProducts()
	}
	folder := cases.Fold()
	needle := folder.String(term)
	return s.filter(func(p Product) bool {
		return strings.Contains(folder.String(p.Title), needle) ||
			strings.Contains(folder.String(p.Description), needle) ||
			strings.Contains(folder.String(p.InitialText), needle)
	})
}

// ProductsByPriceRange returns products priced within [minPrice, maxPrice]. Products whose
// price does not parse are excluded.
func (s *Store) ProductsByPriceRange(minPrice, maxPrice float64) []Product {
	return s.filter(func(p Product) bool {
		price, ok := p.Price.Float()
		return ok && price >= minPrice && price <= maxPrice
	})
}

func (s *Store) filter(keep func(Product) bool) []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		if keep(p) {
			out = append(out, p.clone())
		}
	}
	return out
}

// KeepIDs returns the products of base, in base order, whose ids appear in keep.
// Composing two views this way keeps the ordering of the first.
func KeepIDs(base, keep []Product) []Product {
	allowed := make(map[int]struct{}, len(keep))
	for _, p := range keep {
		allowed[p.ID] = struct{}{}
	}
	out := make([]Product, 0, len(base))
	for _, p := range base {
		if _, ok := allowed[p.ID]; ok {
			out = append(out, p)
		}
	}
	return out
}
