package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"regexp"
	"strconv"
	"strings"
)

// Product is a catalog item as served by the backend.
type Product struct {
	ID                 int             `json:"id"`
	Title              string          `json:"title"`
	Slug               string          `json:"slug"`
	InitialText        string          `json:"initial_text"`
	Description        string          `json:"description"`
	Price              Price           `json:"price"`
	MainImage          string          `json:"main_image,omitempty"`
	MainImageURL       string          `json:"main_image_url,omitempty"`
	DimensionsImage    string          `json:"dimensions_image,omitempty"`
	DimensionsImageURL string          `json:"dimensions_image_url,omitempty"`
	Order              int             `json:"order"`
	IsActive           bool            `json:"is_active"`
	CreatedAt          string          `json:"created_at,omitempty"`
	UpdatedAt          string          `json:"updated_at,omitempty"`
	Specifications     []Specification `json:"specifications,omitempty"`

	// Attributes holds every key of the decoded payload, known or not.
	Attributes map[string]json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the known fields and keeps the raw payload in Attributes.
// Null strings decode to "".
func (p *Product) UnmarshalJSON(data []byte) error {
	type wire struct {
		ID                 int             `json:"id"`
		Title              *string         `json:"title"`
		Slug               *string         `json:"slug"`
		InitialText        *string         `json:"initial_text"`
		Description        *string         `json:"description"`
		Price              Price           `json:"price"`
		MainImage          *string         `json:"main_image"`
		MainImageURL       *string         `json:"main_image_url"`
		DimensionsImage    *string         `json:"dimensions_image"`
		DimensionsImageURL *string         `json:"dimensions_image_url"`
		Order              int             `json:"order"`
		IsActive           bool            `json:"is_active"`
		CreatedAt          *string         `json:"created_at"`
		UpdatedAt          *string         `json:"updated_at"`
		Specifications     []Specification `json:"specifications"`
	}
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("catalog: decode product: %w", err)
	}
	var attrs map[string]json.RawMessage
	if err := json.Unmarshal(data, &attrs); err != nil {
		return fmt.Errorf("catalog: decode product attributes: %w", err)
	}

	*p = Product{
		ID:                 w.ID,
		Title:              deref(w.Title),
		Slug:               deref(w.Slug),
		InitialText:        deref(w.InitialText),
		Description:        deref(w.Description),
		Price:              w.Price,
		MainImage:          deref(w.MainImage),
		MainImageURL:       deref(w.MainImageURL),
		DimensionsImage:    deref(w.DimensionsImage),
		DimensionsImageURL: deref(w.DimensionsImageURL),
		Order:              w.Order,
		IsActive:           w.IsActive,
		CreatedAt:          deref(w.CreatedAt),
		UpdatedAt:          deref(w.UpdatedAt),
		Specifications:     w.Specifications,
		Attributes:         attrs,
	}
	return nil
}

// Attribute returns the string value of an arbitrary payload key.
func (p Product) Attribute(key string) (string, bool) {
	raw, ok := p.Attributes[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// clone returns a copy of p that shares no mutable state with it.
func (p Product) clone() Product {
	p.Attributes = maps.Clone(p.Attributes)
	if p.Specifications != nil {
		specs := make([]Specification, len(p.Specifications))
		for i, spec := range p.Specifications {
			if spec.Unit != nil {
				unit := *spec.Unit
				spec.Unit = &unit
			}
			specs[i] = spec
		}
		p.Specifications = specs
	}
	return p
}

func cloneProducts(products []Product) []Product {
	out := make([]Product, len(products))
	for i, p := range products {
		out[i] = p.clone()
	}
	return out
}

// Specification is a labelled attribute of a Product.
type Specification struct {
	Name  string  `json:"name"`
	Value string  `json:"value"`
	Unit  *string `json:"unit,omitempty"`
}

// DisplayValue joins value and unit with a space when a unit is present.
func (s Specification) DisplayValue() string {
	if s.Unit == nil || *s.Unit == "" {
		return s.Value
	}
	return s.Value + " " + *s.Unit
}

// SpecificationView is the label/value pair rendered for a specification.
type SpecificationView struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// ComparisonImage is a before/after visual asset.
type ComparisonImage struct {
	ID         int    `json:"id"`
	Name       string `json:"name,omitempty"`
	Image      string `json:"image,omitempty"`
	ImageURL   string `json:"image_url,omitempty"`
	IsActive   bool   `json:"is_active"`
	UploadedAt string `json:"uploaded_at,omitempty"`
}

// Price is a decimal amount kept in its transport form. The backend serialises
// decimals as strings, but plain JSON numbers are accepted too.
type Price string

var leadingFloat = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// UnmarshalJSON accepts a JSON string, number or null.
func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*p = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("catalog: decode price: %w", err)
		}
		*p = Price(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("catalog: decode price: %w", err)
		}
		*p = Price(n.String())
	}
	return nil
}

// Float parses the leading decimal of the price. ok is false when no number is present.
func (p Price) Float() (float64, bool) {
	match := leadingFloat.FindString(strings.TrimSpace(string(p)))
	if match == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// String returns the transport form.
func (p Price) String() string {
	return string(p)
}

type productsPayload struct {
	Products              []Product         `json:"products"`
	ComparisonImages      []ComparisonImage `json:"comparison_images"`
	TotalProducts         int               `json:"total_products"`
	TotalComparisonImages int               `json:"total_comparison_images"`
}
