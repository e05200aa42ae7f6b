package observability

import "unicode"

const defaultStringLimit = 256

// sanitizeString trims unwanted characters and limits string length to avoid log injection.
func sanitizeString(value string, limit int) string {
	if limit <= 0 {
		limit = defaultStringLimit
	}

	cleaned := make([]rune, 0, len(value))
	for _, r := range value {
		if unicode.IsControl(r) && r != '\t' {
			continue
		}
		cleaned = append(cleaned, r)
	}
	if len(cleaned) > limit {
		cleaned = cleaned[:limit]
	}
	return string(cleaned)
}

// SanitizePath removes control characters and enforces length constraints on request paths.
func SanitizePath(path string) string {
	if path == "" {
		return "/"
	}
	return sanitizeString(path, 180)
}

// SanitizeMethod removes control characters in HTTP methods.
func SanitizeMethod(method string) string {
	return sanitizeString(method, 10)
}

// SanitizeBody flattens a response body excerpt to a single bounded line.
func SanitizeBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	return sanitizeString(string(body), 512)
}
