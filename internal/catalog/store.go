// Package catalog caches the storefront product catalog and derives read-only views from it.
package catalog

import (
	"context"
	"slices"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/gustavop-dev/rainy-project/internal/gateway"
	"github.com/gustavop-dev/rainy-project/internal/platform/requestctx"
)

const (
	// ErrLoadingProducts is stored when the backend supplies no message of its own.
	ErrLoadingProducts = "Error loading products"

	productsPath    = "products/"
	initFlightKey   = "init"
	instrumentation = "github.com/gustavop-dev/rainy-project/internal/catalog"
)

// Fetcher is the part of the gateway the store depends on.
type Fetcher interface {
	Fetch(ctx context.Context, path string, opts ...gateway.FetchOption) (*gateway.Response, error)
}

// State is a point-in-time copy of the cache.
type State struct {
	Products         []Product
	ComparisonImages []ComparisonImage
	Loading          bool
	Error            string
	Initialized      bool
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the fallback logger used when the context carries none.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDimensionProbes replaces the dimensions-image probes.
func WithDimensionProbes(probes ...DimensionProbe) Option {
	return func(s *Store) {
		if len(probes) > 0 {
			s.probes = probes
		}
	}
}

// WithDimensionKeys replaces the dimensions-image probes with one KeyProbe per key.
func WithDimensionKeys(keys ...string) Option {
	return func(s *Store) {
		if probes := KeyProbes(keys...); len(probes) > 0 {
			s.probes = probes
		}
	}
}

// WithDevMode enables development diagnostics.
func WithDevMode(enabled bool) Option {
	return func(s *Store) {
		s.devMode = enabled
	}
}

// WithTracer sets the tracer wrapping Init and RefreshProducts.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Store) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// Store owns the single in-memory copy of the catalog. Build one per process and
// share it; all consumers observe the same state.
type Store struct {
	fetcher Fetcher
	logger  *zap.Logger
	tracer  trace.Tracer
	probes  []DimensionProbe
	devMode bool

	flights singleflight.Group

	mu          sync.RWMutex
	generation  uint64 // bumped by RefreshProducts; stale loads do not commit
	products    []Product
	images      []ComparisonImage
	loading     bool
	err         string
	initialized bool
}

// New constructs an empty Store.
func New(fetcher Fetcher, opts ...Option) *Store {
	s := &Store{
		fetcher:  fetcher,
		logger:   zap.NewNop(),
		tracer:   otel.Tracer(instrumentation),
		probes:   KeyProbes(DefaultDimensionKeys...),
		products: []Product{},
		images:   []ComparisonImage{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init loads the catalog unless it is already initialized with products, in which
// case it returns false without I/O. It returns true when a fetch succeeded.
// Overlapping calls share one fetch and its result. A fetch overtaken by
// RefreshProducts is discarded and reports false.
func (s *Store) Init(ctx context.Context) bool {
	if s.cacheHit() {
		requestctx.LoggerOr(ctx, s.logger).Debug("catalog already loaded")
		return false
	}

	ctx, span := s.tracer.Start(ctx, "catalog.Init")
	defer span.End()

	// Joined callers share the flight; it ignores any one caller's cancellation.
	flightCtx := context.WithoutCancel(ctx)
	v, _, shared := s.flights.Do(initFlightKey, func() (any, error) {
		return s.load(flightCtx), nil
	})
	loaded, _ := v.(bool)

	span.SetAttributes(attribute.Bool("catalog.loaded", loaded), attribute.Bool("catalog.shared", shared))
	if !loaded {
		if msg := s.Err(); msg != "" {
			span.SetStatus(codes.Error, msg)
		}
	}
	return loaded
}

// RefreshProducts clears the cache and fetches it again unconditionally.
func (s *Store) RefreshProducts(ctx context.Context) bool {
	ctx, span := s.tracer.Start(ctx, "catalog.RefreshProducts")
	defer span.End()

	s.mu.Lock()
	s.generation++
	s.initialized = false
	s.products = []Product{}
	s.images = []ComparisonImage{}
	s.mu.Unlock()

	s.flights.Forget(initFlightKey)
	return s.Init(ctx)
}

func (s *Store) cacheHit() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized && len(s.products) > 0
}

func (s *Store) load(ctx context.Context) bool {
	logger := requestctx.LoggerOr(ctx, s.logger)

	// A caller that missed the previous flight by a hair must not fetch again.
	if s.cacheHit() {
		return false
	}

	s.mu.Lock()
	gen := s.generation
	s.loading = true
	s.err = ""
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		if s.generation == gen {
			s.loading = false
		}
		s.mu.Unlock()
	}()

	logger.Info("loading products from backend")
	resp, err := s.fetcher.Fetch(ctx, productsPath)
	if err != nil {
		return s.loadFailed(logger, gen, gateway.MessageOr(err, ErrLoadingProducts), err)
	}

	var payload productsPayload
	if err := resp.Decode(&payload); err != nil {
		return s.loadFailed(logger, gen, ErrLoadingProducts, err)
	}
	if payload.Products == nil {
		payload.Products = []Product{}
	}
	if payload.ComparisonImages == nil {
		payload.ComparisonImages = []ComparisonImage{}
	}

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		logger.Info("discarding products superseded by a refresh")
		return false
	}
	s.products = payload.Products
	s.images = payload.ComparisonImages
	s.initialized = true
	s.mu.Unlock()

	logger.Info("products loaded",
		zap.Int("products", len(payload.Products)),
		zap.Int("comparison_images", len(payload.ComparisonImages)),
	)
	return true
}

func (s *Store) loadFailed(logger *zap.Logger, gen uint64, msg string, err error) bool {
	s.mu.Lock()
	current := s.generation == gen
	if current {
		s.err = msg
	}
	s.mu.Unlock()
	if !current {
		logger.Info("ignoring failure of a load superseded by a refresh", zap.Error(err))
		return false
	}
	logger.Error("error loading products", zap.String("message", msg), zap.Error(err))
	return false
}

// Loading reports whether a fetch is in progress.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Err returns the message of the last failed load, or "".
func (s *Store) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Initialized reports whether a load has succeeded since the last refresh.
func (s *Store) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// Snapshot copies the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{
		Products:         cloneProducts(s.products),
		ComparisonImages: slices.Clone(s.images),
		Loading:          s.loading,
		Error:            s.err,
		Initialized:      s.initialized,
	}
}
