// Package gateway wraps outbound calls to the storefront backend API.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"

	"github.com/gustavop-dev/rainy-project/internal/credentials"
	"github.com/gustavop-dev/rainy-project/internal/platform/observability"
	"github.com/gustavop-dev/rainy-project/internal/platform/requestctx"
)

const (
	// HeaderCSRFToken carries the anti-forgery token on every request.
	HeaderCSRFToken = "X-CSRFToken"
	// HeaderRequestID correlates gateway logs with backend logs.
	HeaderRequestID = "X-Request-ID"

	defaultAPIPrefix  = "/api/"
	defaultCookieName = "csrftoken"
	instrumentation   = "github.com/gustavop-dev/rainy-project/internal/gateway"
	maxErrorBody      = 1 << 16
)

// HTTPClient matches the subset of http.Client used by Client.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// ResponseFormat selects how a response body is interpreted.
type ResponseFormat int

const (
	// FormatStructured expects JSON.
	FormatStructured ResponseFormat = iota
	// FormatBlob returns the raw bytes, used for downloads.
	FormatBlob
)

// Response is the payload and status of a successful call.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
	Format ResponseFormat
}

// Decode unmarshals a structured body into v. An empty body leaves v untouched.
func (r *Response) Decode(v any) error {
	if r == nil || len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("gateway: decode response: %w", err)
	}
	return nil
}

// FetchOption customises a single request.
type FetchOption func(*requestOptions)

type requestOptions struct {
	format ResponseFormat
}

// AsBlob requests the raw response bytes instead of structured data.
func AsBlob() FetchOption {
	return func(o *requestOptions) {
		o.format = FormatBlob
	}
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client. When it is an *http.Client with a cookie jar,
// that jar becomes the CSRF source unless WithCSRFSource is also given.
func WithHTTPClient(client HTTPClient) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// WithLogger sets the fallback logger used when the context carries none.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCSRFSource sets where anti-forgery tokens are read from.
func WithCSRFSource(source CSRFSource) Option {
	return func(c *Client) {
		c.csrf = source
		c.csrfSet = true
	}
}

// WithTokenStore sets the persisted bearer-token store consulted by UploadFile.
func WithTokenStore(store credentials.Reader) Option {
	return func(c *Client) {
		c.tokens = store
	}
}

// WithAPIPrefix overrides the path prefix the backend API is mounted at.
func WithAPIPrefix(prefix string) Option {
	return func(c *Client) {
		c.prefix = prefix
	}
}

// WithCSRFCookieName overrides the name of the cookie holding the CSRF token.
func WithCSRFCookieName(name string) Option {
	return func(c *Client) {
		if strings.TrimSpace(name) != "" {
			c.cookieName = strings.TrimSpace(name)
		}
	}
}

// WithTimeout bounds each request of the default HTTP client. It has no effect
// together with WithHTTPClient.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithMeter sets the meter used to record request counts.
func WithMeter(meter metric.Meter) Option {
	return func(c *Client) {
		if meter != nil {
			c.meter = meter
		}
	}
}

// Client issues requests against the backend API.
type Client struct {
	base       *url.URL
	client     HTTPClient
	logger     *zap.Logger
	csrf       CSRFSource
	csrfSet    bool
	tokens     credentials.Reader
	prefix     string
	cookieName string
	timeout    time.Duration
	meter      metric.Meter
	requests   metric.Int64Counter
}

// New constructs a Client for the backend at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("gateway: base URL is required")
	}
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("gateway: parse base URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("gateway: base URL %q must be absolute", baseURL)
	}

	c := &Client{
		logger:     zap.NewNop(),
		prefix:     defaultAPIPrefix,
		cookieName: defaultCookieName,
		meter:      otel.GetMeterProvider().Meter(instrumentation),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.client == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("gateway: cookie jar: %w", err)
		}
		c.client = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Jar:       jar,
			Timeout:   c.timeout,
		}
	}
	if !c.csrfSet {
		if hc, ok := c.client.(*http.Client); ok && hc.Jar != nil {
			c.csrf = JarSource{Jar: hc.Jar, Name: c.cookieName}
		}
	}

	parsed.Path = strings.TrimRight(parsed.Path, "/") + normalizePrefix(c.prefix)
	parsed.RawQuery = ""
	parsed.Fragment = ""
	c.base = parsed

	c.requests, err = c.meter.Int64Counter("gateway.requests",
		metric.WithDescription("Outbound backend API requests by method and status class"))
	if err != nil {
		return nil, fmt.Errorf("gateway: create request counter: %w", err)
	}
	return c, nil
}

// BaseURL returns the resolved API root, prefix included.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Fetch issues a GET for path.
func (c *Client) Fetch(ctx context.Context, path string, opts ...FetchOption) (*Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil, opts...)
}

// Create issues a POST with body encoded as JSON.
func (c *Client) Create(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, http.MethodPost, path, body)
}

// Update issues a PUT with body encoded as JSON.
func (c *Client) Update(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, http.MethodPut, path, body)
}

// Remove issues a DELETE for path.
func (c *Client) Remove(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, http.MethodDelete, path, nil)
}

// UploadFile posts form as multipart data. The Content-Type, boundary included, comes
// from the encoder; callers never set it. A stored bearer token is attached when present.
func (c *Client) UploadFile(ctx context.Context, path string, form Form) (*Response, error) {
	body, contentType, err := form.encode()
	if err != nil {
		return nil, c.fail(ctx, &Error{Kind: KindTransport, Method: http.MethodPost, Path: path, Err: err})
	}

	header := http.Header{}
	header.Set("Content-Type", contentType)
	if token := c.bearerToken(ctx); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	return c.send(ctx, http.MethodPost, path, body, header, requestOptions{})
}

// Do dispatches method to path. Only GET, POST, PUT and DELETE are supported; any other
// verb fails before a request is built.
func (c *Client) Do(ctx context.Context, method, path string, body any, opts ...FetchOption) (*Response, error) {
	var options requestOptions
	for _, opt := range opts {
		opt(&options)
	}

	verb := strings.ToUpper(strings.TrimSpace(method))
	switch verb {
	case http.MethodGet, http.MethodDelete:
		return c.send(ctx, verb, path, nil, nil, options)
	case http.MethodPost, http.MethodPut:
		var buf bytes.Buffer
		if body != nil {
			enc := json.NewEncoder(&buf)
			enc.SetEscapeHTML(false)
			if err := enc.Encode(body); err != nil {
				return nil, c.fail(ctx, &Error{Kind: KindTransport, Method: verb, Path: path, Err: fmt.Errorf("gateway: encode payload: %w", err)})
			}
		}
		header := http.Header{}
		header.Set("Content-Type", "application/json")
		return c.send(ctx, verb, path, &buf, header, options)
	default:
		return nil, c.fail(ctx, &Error{
			Kind:   KindUnsupportedMethod,
			Method: method,
			Path:   path,
			Err:    ErrUnsupportedMethod,
		})
	}
}

func (c *Client) send(ctx context.Context, method, path string, body io.Reader, header http.Header, options requestOptions) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	target, err := c.resolve(path)
	if err != nil {
		return nil, c.fail(ctx, &Error{Kind: KindTransport, Method: method, Path: path, Err: err})
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, c.fail(ctx, &Error{Kind: KindTransport, Method: method, Path: path, Err: fmt.Errorf("gateway: build request: %w", err)})
	}
	for k, values := range header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	if options.format == FormatBlob {
		req.Header.Set("Accept", "*/*")
	} else {
		req.Header.Set("Accept", "application/json")
	}
	req.Header.Set(HeaderCSRFToken, c.csrfToken(ctx, target))
	req.Header.Set(HeaderRequestID, c.requestID(ctx))

	resp, err := c.client.Do(req)
	if err != nil {
		c.record(ctx, method, 0)
		return nil, c.fail(ctx, &Error{Kind: KindTransport, Method: method, Path: path, Err: err})
	}
	defer resp.Body.Close()
	c.record(ctx, method, resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, c.fail(ctx, &Error{
			Kind:    KindResponse,
			Method:  method,
			Path:    path,
			Status:  resp.StatusCode,
			Message: serverMessage(data),
			Body:    data,
		})
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.fail(ctx, &Error{Kind: KindTransport, Method: method, Path: path, Err: fmt.Errorf("gateway: read body: %w", err)})
	}
	return &Response{
		Status: resp.StatusCode,
		Header: resp.Header.Clone(),
		Body:   data,
		Format: options.format,
	}, nil
}

// fail logs err according to its kind and returns it unchanged.
func (c *Client) fail(ctx context.Context, err *Error) error {
	logger := requestctx.LoggerOr(ctx, c.logger).With(
		zap.String("method", observability.SanitizeMethod(err.Method)),
		zap.String("path", observability.SanitizePath(err.Path)),
	)
	switch err.Kind {
	case KindResponse:
		logger.Warn("gateway request failed",
			zap.Int("status", err.Status),
			zap.String("body", observability.SanitizeBody(err.Body)),
		)
	case KindUnsupportedMethod:
		logger.Error("gateway method not supported")
	default:
		logger.Error("gateway request failed without response", zap.Error(err.Err))
	}
	return err
}

// resolve joins path onto the API base. Absolute URLs are accepted only for the
// backend's own scheme and host, so headers and tokens never leave it.
func (c *Client) resolve(path string) (*url.URL, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("gateway: parse path %q: %w", path, err)
	}
	if ref.IsAbs() || ref.Host != "" {
		if !strings.EqualFold(ref.Host, c.base.Host) || (ref.Scheme != "" && !strings.EqualFold(ref.Scheme, c.base.Scheme)) {
			return nil, fmt.Errorf("%w: %s", ErrForeignHost, observability.SanitizePath(ref.Host))
		}
		return c.base.ResolveReference(ref), nil
	}
	ref, err = url.Parse(strings.TrimPrefix(path, "/"))
	if err != nil {
		return nil, fmt.Errorf("gateway: parse path %q: %w", path, err)
	}
	return c.base.ResolveReference(ref), nil
}

func (c *Client) bearerToken(ctx context.Context) string {
	if c.tokens == nil {
		return ""
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		requestctx.LoggerOr(ctx, c.logger).Warn("gateway token store unavailable", zap.Error(err))
		return ""
	}
	return strings.TrimSpace(token)
}

func (c *Client) requestID(ctx context.Context) string {
	if id := requestctx.RequestID(ctx); id != "" {
		return id
	}
	return ulid.Make().String()
}

func (c *Client) record(ctx context.Context, method string, status int) {
	class := "error"
	if status > 0 {
		class = strconv.Itoa(status/100) + "xx"
	}
	c.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("status_class", class),
	))
}

func normalizePrefix(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return "/"
	}
	return "/" + prefix + "/"
}
