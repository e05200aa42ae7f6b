package gateway

import (
	"context"
	"net/http"
	"net/url"

	"github.com/gustavop-dev/rainy-project/internal/platform/requestctx"
)

// CSRFSource resolves the anti-forgery token for a request to target.
type CSRFSource interface {
	CSRFToken(ctx context.Context, target *url.URL) string
}

// CSRFSourceFunc adapts a function to CSRFSource.
type CSRFSourceFunc func(ctx context.Context, target *url.URL) string

// CSRFToken implements CSRFSource.
func (f CSRFSourceFunc) CSRFToken(ctx context.Context, target *url.URL) string {
	return f(ctx, target)
}

// JarSource reads the token from a cookie jar, as a browser would read document.cookie.
type JarSource struct {
	Jar  http.CookieJar
	Name string
}

// CSRFToken implements CSRFSource.
func (s JarSource) CSRFToken(_ context.Context, target *url.URL) string {
	if s.Jar == nil || target == nil {
		return ""
	}
	for _, c := range s.Jar.Cookies(target) {
		if c.Name == s.Name {
			return c.Value
		}
	}
	return ""
}

// csrfToken prefers a token attached to the context over the configured source.
func (c *Client) csrfToken(ctx context.Context, target *url.URL) string {
	if token, ok := requestctx.CSRFToken(ctx); ok {
		return token
	}
	if c.csrf == nil {
		return ""
	}
	return c.csrf.CSRFToken(ctx, target)
}
