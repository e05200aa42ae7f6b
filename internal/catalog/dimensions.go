package catalog

import "strings"

// DefaultDimensionKeys are the payload keys probed, in order, for a dimensions image.
var DefaultDimensionKeys = []string{
	"dimensions_image_url",
	"dimension_image_url",
	"dimensions_image",
	"dimension_image",
}

// DimensionProbe extracts a dimensions-image reference from a product, or "".
type DimensionProbe func(Product) string

// KeyProbe reads the named payload attribute. Products built in code without a raw
// payload fall back to the typed fields for the keys the backend documents.
func KeyProbe(key string) DimensionProbe {
	return func(p Product) string {
		if v, ok := p.Attribute(key); ok {
			return strings.TrimSpace(v)
		}
		switch key {
		case "dimensions_image_url":
			return strings.TrimSpace(p.DimensionsImageURL)
		case "dimensions_image":
			return strings.TrimSpace(p.DimensionsImage)
		}
		return ""
	}
}

// KeyProbes builds one KeyProbe per key, preserving order.
func KeyProbes(keys ...string) []DimensionProbe {
	probes := make([]DimensionProbe, 0, len(keys))
	for _, key := range keys {
		if key = strings.TrimSpace(key); key != "" {
			probes = append(probes, KeyProbe(key))
		}
	}
	return probes
}

func firstDimensionImage(p Product, probes []DimensionProbe) (string, bool) {
	for _, probe := range probes {
		if v := probe(p); v != "" {
			return v, true
		}
	}
	return "", false
}
