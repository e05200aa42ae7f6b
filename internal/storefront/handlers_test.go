package storefront_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/gustavop-dev/rainy-project/internal/catalog"
	"github.com/gustavop-dev/rainy-project/internal/contact"
	"github.com/gustavop-dev/rainy-project/internal/gateway"
	"github.com/gustavop-dev/rainy-project/internal/storefront"
)

const backendProducts = `{
	"products": [
		{"id": 1, "slug": "home", "title": "Home Filter", "description": "**Clean** rainwater",
		 "initial_text": "For houses", "order": 2, "is_active": true, "price": "150000.00",
		 "specifications": [{"name": "Capacity", "value": "20", "unit": "L"}],
		 "dimensions_image_url": "https://cdn.example.com/home.png"},
		{"id": 2, "slug": "garden", "title": "Garden Kit", "description": "Irrigation",
		 "initial_text": "", "order": 1, "is_active": false, "price": "80000.00"},
		{"id": 3, "slug": "travel", "title": "Travel Filter", "description": "Portable",
		 "initial_text": "", "order": 1, "is_active": true, "price": "45000.00"}
	],
	"comparison_images": [
		{"id": 5, "name": "Before", "is_active": true},
		{"id": 6, "name": "Old", "is_active": false}
	],
	"total_products": 3,
	"total_comparison_images": 2
}`

type backend struct {
	server       *httptest.Server
	failProducts atomic.Bool
	productHits  atomic.Int32
	lastCSRF     atomic.Value
	lastReqID    atomic.Value
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	b := &backend{}
	b.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.lastCSRF.Store(r.Header.Get(gateway.HeaderCSRFToken))
		b.lastReqID.Store(r.Header.Get(gateway.HeaderRequestID))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/products/":
			b.productHits.Add(1)
			if b.failProducts.Load() {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{}`))
				return
			}
			_, _ = w.Write([]byte(backendProducts))
		case "/api/contact/":
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["email"] == "bad" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"message": "Invalid email"}`))
				return
			}
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id": 11, "name": body["name"], "email": body["email"],
				"accept_privacy": body["accept_privacy"], "created_at": "2024-05-01T10:00:00Z",
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(b.server.Close)
	return b
}

func newRouter(t *testing.T, b *backend, opts ...storefront.RouterOption) http.Handler {
	t.Helper()
	client, err := gateway.New(b.server.URL, gateway.WithHTTPClient(b.server.Client()))
	require.NoError(t, err)
	store := catalog.New(client)
	svc := contact.NewService(client)
	return storefront.NewRouter(storefront.NewHandlers(store, svc, "COP"), opts...)
}

func do(t *testing.T, h http.Handler, method, target, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type listResponse struct {
	Products []struct {
		ID              int    `json:"id"`
		Slug            string `json:"slug"`
		PriceDisplay    string `json:"price_display"`
		DescriptionHTML string `json:"description_html"`
	} `json:"products"`
	Total int `json:"total"`
}

func decodeList(t *testing.T, rec *httptest.ResponseRecorder) ([]int, listResponse) {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	out := make([]int, 0, len(resp.Products))
	for _, p := range resp.Products {
		out = append(out, p.ID)
	}
	return out, resp
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	rec := do(t, newRouter(t, newBackend(t)), http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

func TestListProductsLoadsOnceAndFilters(t *testing.T) {
	t.Parallel()

	b := newBackend(t)
	router := newRouter(t, b)

	ids, resp := decodeList(t, do(t, router, http.MethodGet, "/catalog/products", ""))
	require.Equal(t, []int{1, 2, 3}, ids)
	require.Equal(t, 3, resp.Total)
	require.Equal(t, "COP $150,000", resp.Products[0].PriceDisplay)
	require.Contains(t, resp.Products[0].DescriptionHTML, "<strong>Clean</strong>")

	ids, _ = decodeList(t, do(t, router, http.MethodGet, "/catalog/products?active=true&sort=order", ""))
	require.Equal(t, []int{3, 1}, ids)

	ids, _ = decodeList(t, do(t, router, http.MethodGet, "/catalog/products?q=FILTER", ""))
	require.Equal(t, []int{1, 3}, ids)

	ids, _ = decodeList(t, do(t, router, http.MethodGet, "/catalog/products?min_price=45000&max_price=80000", ""))
	require.Equal(t, []int{2, 3}, ids)

	ids, _ = decodeList(t, do(t, router, http.MethodGet, "/catalog/products?min_price=100000", ""))
	require.Equal(t, []int{1}, ids)

	require.EqualValues(t, 1, b.productHits.Load())
}

func TestListProductsRejectsBadBounds(t *testing.T) {
	t.Parallel()

	rec := do(t, newRouter(t, newBackend(t)), http.MethodGet, "/catalog/products?max_price=cheap", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "invalid_query")
}

func TestListProductsBackendDown(t *testing.T) {
	t.Parallel()

	b := newBackend(t)
	b.failProducts.Store(true)

	rec := do(t, newRouter(t, b), http.MethodGet, "/catalog/products", "")
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, "catalog_unavailable", payload["error"])
	require.Equal(t, catalog.ErrLoadingProducts, payload["message"])
	require.NotEmpty(t, payload["request_id"])
}

func TestProductDetailRoutes(t *testing.T) {
	t.Parallel()

	router := newRouter(t, newBackend(t))

	rec := do(t, router, http.MethodGet, "/catalog/products/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var detail map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	require.Equal(t, "home", detail["slug"])
	require.Equal(t, "https://cdn.example.com/home.png", detail["dimensions_image_resolved"])
	views := detail["specification_views"].([]any)
	require.Equal(t, "20 L", views[0].(map[string]any)["value"])

	rec = do(t, router, http.MethodGet, "/catalog/products/by-slug/travel", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"id":3`)

	rec = do(t, router, http.MethodGet, "/catalog/products/by-slug/missing", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodGet, "/catalog/products/99", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProductSpecificationsAndDimensions(t *testing.T) {
	t.Parallel()

	router := newRouter(t, newBackend(t))

	rec := do(t, router, http.MethodGet, "/catalog/products/1/specifications", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"product_id":1,"specifications":[{"label":"Capacity","value":"20 L"}]}`, rec.Body.String())

	rec = do(t, router, http.MethodGet, "/catalog/products/3/specifications", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"product_id":3,"specifications":[]}`, rec.Body.String())

	rec = do(t, router, http.MethodGet, "/catalog/products/1/dimensions-image", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"product_id":1,"url":"https://cdn.example.com/home.png"}`, rec.Body.String())

	rec = do(t, router, http.MethodGet, "/catalog/products/3/dimensions-image", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestComparisonImagesActiveOnly(t *testing.T) {
	t.Parallel()

	rec := do(t, newRouter(t, newBackend(t)), http.MethodGet, "/catalog/comparison-images", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Images []catalog.ComparisonImage `json:"comparison_images"`
		Total  int                       `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, 1, payload.Total)
	require.Equal(t, 5, payload.Images[0].ID)
}

func TestRefresh(t *testing.T) {
	t.Parallel()

	b := newBackend(t)
	router := newRouter(t, b)

	_, _ = decodeList(t, do(t, router, http.MethodGet, "/catalog/products", ""))
	rec := do(t, router, http.MethodPost, "/catalog/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"products":3,"comparison_images":1}`, rec.Body.String())
	require.EqualValues(t, 2, b.productHits.Load())

	b.failProducts.Store(true)
	rec = do(t, router, http.MethodPost, "/catalog/refresh", "")
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.EqualValues(t, 3, b.productHits.Load())
}

func TestSubmitContactForwardsCSRFAndRequestID(t *testing.T) {
	t.Parallel()

	b := newBackend(t)
	core, logs := observer.New(zapcore.DebugLevel)
	router := newRouter(t, b, storefront.WithRouterLogger(zap.New(core)))

	body := `{"name":"Ana","phone":"300","email":"ana@example.com","message":"hi","acceptPrivacy":true}`
	rec := do(t, router, http.MethodPost, "/contact", body, &http.Cookie{Name: "csrftoken", Value: "browser-token"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var result contact.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.True(t, result.Success)
	receipt, err := result.Receipt()
	require.NoError(t, err)
	require.Equal(t, 11, receipt.ID)
	require.Contains(t, string(result.Data), `"accept_privacy":true`)

	require.Equal(t, "browser-token", b.lastCSRF.Load())
	require.NotEmpty(t, b.lastReqID.Load())

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	require.EqualValues(t, http.StatusCreated, entries[0].ContextMap()["status"])
	require.Equal(t, b.lastReqID.Load(), entries[0].ContextMap()["request_id"])
}

func TestSubmitContactBackendRejection(t *testing.T) {
	t.Parallel()

	router := newRouter(t, newBackend(t))
	rec := do(t, router, http.MethodPost, "/contact", `{"name":"Ana","email":"bad","acceptPrivacy":true}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"success":false,"error":"Invalid email","status":400}`, rec.Body.String())
}

func TestSubmitContactInvalidBody(t *testing.T) {
	t.Parallel()

	rec := do(t, newRouter(t, newBackend(t)), http.MethodPost, "/contact", `{"name":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "invalid_payload")
}

func TestForwardCSRFFallsBackToHeader(t *testing.T) {
	t.Parallel()

	b := newBackend(t)
	router := newRouter(t, b)

	req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(`{"email":"x@example.com"}`))
	req.Header.Set(gateway.HeaderCSRFToken, "header-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "header-token", b.lastCSRF.Load())
}
