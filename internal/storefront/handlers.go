// Package storefront serves catalog views and contact submission over HTTP.
package storefront

import (
	"context"
	"encoding/json"
	"html/template"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/gustavop-dev/rainy-project/internal/catalog"
	"github.com/gustavop-dev/rainy-project/internal/contact"
	"github.com/gustavop-dev/rainy-project/internal/format"
	"github.com/gustavop-dev/rainy-project/internal/platform/observability"
)

const maxContactBody = 64 << 10

// Catalog is the catalog store surface the handlers read from.
type Catalog interface {
	Init(ctx context.Context) bool
	RefreshProducts(ctx context.Context) bool
	Initialized() bool
	Err() string
	AllProducts() []catalog.Product
	ActiveProducts() []catalog.Product
	ProductsSortedByOrder() []catalog.Product
	ProductByRawID(raw string) (catalog.Product, bool)
	ProductBySlug(slug string) (catalog.Product, bool)
	ProductSpecifications(id int) []catalog.SpecificationView
	ProductDimensionsImage(id int) (string, bool)
	ActiveComparisonImages() []catalog.ComparisonImage
	SearchProducts(term string) []catalog.Product
	ProductsByPriceRange(minPrice, maxPrice float64) []catalog.Product
}

// ContactSubmitter submits contact forms.
type ContactSubmitter interface {
	Submit(ctx context.Context, form contact.Submission) contact.Result
}

// Handlers bundles the storefront endpoints.
type Handlers struct {
	catalog  Catalog
	contact  ContactSubmitter
	currency string
}

// NewHandlers wires handlers over one shared catalog and contact service.
func NewHandlers(store Catalog, submitter ContactSubmitter, currency string) *Handlers {
	return &Handlers{catalog: store, contact: submitter, currency: currency}
}

// RouterOption customises NewRouter.
type RouterOption func(*routerOptions)

type routerOptions struct {
	logger     *zap.Logger
	cookieName string
}

// WithRouterLogger sets the base request logger.
func WithRouterLogger(logger *zap.Logger) RouterOption {
	return func(o *routerOptions) {
		o.logger = logger
	}
}

// WithCSRFCookieName sets the browser cookie forwarded as the CSRF token.
func WithCSRFCookieName(name string) RouterOption {
	return func(o *routerOptions) {
		if strings.TrimSpace(name) != "" {
			o.cookieName = name
		}
	}
}

// NewRouter mounts the handlers on a chi router with the storefront middleware stack.
func NewRouter(h *Handlers, opts ...RouterOption) http.Handler {
	options := routerOptions{logger: zap.NewNop(), cookieName: "csrftoken"}
	for _, opt := range opts {
		opt(&options)
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(TraceMiddleware)
	r.Use(RequestLogger(options.logger))
	r.Use(chimw.Recoverer)
	r.Use(ForwardCSRF(options.cookieName))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/catalog", func(r chi.Router) {
		r.Get("/products", h.listProducts)
		r.Get("/products/by-slug/{slug}", h.productBySlug)
		r.Get("/products/{id}", h.productByID)
		r.Get("/products/{id}/specifications", h.productSpecifications)
		r.Get("/products/{id}/dimensions-image", h.productDimensionsImage)
		r.Get("/comparison-images", h.comparisonImages)
		r.Post("/refresh", h.refresh)
	})
	r.Post("/contact", h.submitContact)

	return r
}

type productView struct {
	catalog.Product
	PriceDisplay       string                      `json:"price_display"`
	DescriptionHTML    template.HTML               `json:"description_html"`
	SpecificationViews []catalog.SpecificationView `json:"specification_views,omitempty"`
	ResolvedDimensions string                      `json:"dimensions_image_resolved,omitempty"`
}

func (h *Handlers) view(p catalog.Product) productView {
	display := p.Price.String()
	if amount, ok := p.Price.Float(); ok {
		display = format.Price(amount, h.currency)
	}
	return productView{
		Product:         p,
		PriceDisplay:    display,
		DescriptionHTML: format.Description(p.Description),
	}
}

// ensureLoaded initialises the catalog on first use and reports whether it is usable.
func (h *Handlers) ensureLoaded(w http.ResponseWriter, r *http.Request) bool {
	if h.catalog.Initialized() {
		return true
	}
	h.catalog.Init(r.Context())
	if h.catalog.Initialized() {
		return true
	}
	WriteError(r.Context(), w, NewError("catalog_unavailable", h.catalog.Err(), http.StatusBadGateway))
	return false
}

func (h *Handlers) listProducts(w http.ResponseWriter, r *http.Request) {
	if !h.ensureLoaded(w, r) {
		return
	}
	query := r.URL.Query()

	products := h.catalog.SearchProducts(query.Get("q"))

	if active, _ := strconv.ParseBool(query.Get("active")); active {
		products = catalog.KeepIDs(products, h.catalog.ActiveProducts())
	}

	minRaw, maxRaw := query.Get("min_price"), query.Get("max_price")
	if minRaw != "" || maxRaw != "" {
		minPrice, err := parseBound(minRaw, math.Inf(-1))
		if err != nil {
			WriteError(r.Context(), w, NewError("invalid_query", "min_price must be a number", http.StatusBadRequest))
			return
		}
		maxPrice, err := parseBound(maxRaw, math.Inf(1))
		if err != nil {
			WriteError(r.Context(), w, NewError("invalid_query", "max_price must be a number", http.StatusBadRequest))
			return
		}
		products = catalog.KeepIDs(products, h.catalog.ProductsByPriceRange(minPrice, maxPrice))
	}

	if query.Get("sort") == "order" {
		products = catalog.KeepIDs(h.catalog.ProductsSortedByOrder(), products)
	}

	items := make([]productView, 0, len(products))
	for _, p := range products {
		items = append(items, h.view(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"products": items,
		"total":    len(items),
	})
}

func (h *Handlers) productByID(w http.ResponseWriter, r *http.Request) {
	if !h.ensureLoaded(w, r) {
		return
	}
	p, ok := h.catalog.ProductByRawID(chi.URLParam(r, "id"))
	if !ok {
		writeNotFound(r.Context(), w, "product not found")
		return
	}
	h.writeProductDetail(w, p)
}

func (h *Handlers) productBySlug(w http.ResponseWriter, r *http.Request) {
	if !h.ensureLoaded(w, r) {
		return
	}
	p, ok := h.catalog.ProductBySlug(chi.URLParam(r, "slug"))
	if !ok {
		writeNotFound(r.Context(), w, "product not found")
		return
	}
	h.writeProductDetail(w, p)
}

func (h *Handlers) writeProductDetail(w http.ResponseWriter, p catalog.Product) {
	v := h.view(p)
	v.SpecificationViews = h.catalog.ProductSpecifications(p.ID)
	v.ResolvedDimensions, _ = h.catalog.ProductDimensionsImage(p.ID)
	writeJSON(w, http.StatusOK, v)
}

func (h *Handlers) productSpecifications(w http.ResponseWriter, r *http.Request) {
	if !h.ensureLoaded(w, r) {
		return
	}
	p, ok := h.catalog.ProductByRawID(chi.URLParam(r, "id"))
	if !ok {
		writeNotFound(r.Context(), w, "product not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"product_id":     p.ID,
		"specifications": h.catalog.ProductSpecifications(p.ID),
	})
}

func (h *Handlers) productDimensionsImage(w http.ResponseWriter, r *http.Request) {
	if !h.ensureLoaded(w, r) {
		return
	}
	p, ok := h.catalog.ProductByRawID(chi.URLParam(r, "id"))
	if !ok {
		writeNotFound(r.Context(), w, "product not found")
		return
	}
	image, ok := h.catalog.ProductDimensionsImage(p.ID)
	if !ok {
		writeNotFound(r.Context(), w, "dimensions image not available")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"product_id": p.ID,
		"url":        image,
	})
}

func (h *Handlers) comparisonImages(w http.ResponseWriter, r *http.Request) {
	if !h.ensureLoaded(w, r) {
		return
	}
	images := h.catalog.ActiveComparisonImages()
	writeJSON(w, http.StatusOK, map[string]any{
		"comparison_images": images,
		"total":             len(images),
	})
}

func (h *Handlers) refresh(w http.ResponseWriter, r *http.Request) {
	if !h.catalog.RefreshProducts(r.Context()) {
		WriteError(r.Context(), w, NewError("catalog_unavailable", h.catalog.Err(), http.StatusBadGateway))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"products":          len(h.catalog.AllProducts()),
		"comparison_images": len(h.catalog.ActiveComparisonImages()),
	})
}

func (h *Handlers) submitContact(w http.ResponseWriter, r *http.Request) {
	var form contact.Submission
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxContactBody))
	if err := dec.Decode(&form); err != nil {
		observability.FromContext(r.Context()).Debug("invalid contact payload", zap.Error(err))
		WriteError(r.Context(), w, NewError("invalid_payload", "request body must be a JSON contact form", http.StatusBadRequest))
		return
	}

	result := h.contact.Submit(r.Context(), form)
	writeJSON(w, result.Status, result)
}

func writeNotFound(ctx context.Context, w http.ResponseWriter, message string) {
	WriteError(ctx, w, NewError("not_found", message, http.StatusNotFound))
}

func parseBound(raw string, fallback float64) (float64, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(strings.TrimSpace(raw), 64)
}
