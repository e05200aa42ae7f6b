// Package format renders catalog values for display.
package format

import (
	"bytes"
	"fmt"
	"html/template"
	"math"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))
	policy   = newDescriptionPolicy()
)

// Price formats a decimal amount for the given ISO currency.
// Example: Price(150000, "COP") => "COP $150,000"
func Price(amount float64, currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	switch currency {
	case "COP":
		return "COP $" + thousandSep(int64(math.Round(amount)))
	case "JPY":
		return "¥" + thousandSep(int64(math.Round(amount)))
	case "USD":
		return withCents("$", amount)
	case "EUR":
		return withCents("€", amount)
	default:
		if currency == "" {
			return withCents("", amount)
		}
		return withCents(currency+" ", amount)
	}
}

func withCents(symbol string, amount float64) string {
	minor := int64(math.Round(amount * 100))
	neg := minor < 0
	if neg {
		minor = -minor
	}
	out := symbol + thousandSep(minor/100) + fmt.Sprintf(".%02d", minor%100)
	if neg {
		return "-" + out
	}
	return out
}

func thousandSep(n int64) string {
	s := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, c := range s {
		if i != 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// Description renders product markdown to sanitized HTML.
func Description(md string) template.HTML {
	if strings.TrimSpace(md) == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(policy.SanitizeBytes(buf.Bytes()))
}

func newDescriptionPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("loading").OnElements("img")
	p.RequireNoFollowOnLinks(true)
	return p
}
