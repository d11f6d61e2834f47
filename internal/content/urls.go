package content

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	dataImageHeader = regexp.MustCompile(`^data:image/(png|jpeg|jpg|gif|webp);base64$`)
	base64Payload   = regexp.MustCompile(`^[A-Za-z0-9+/]+={0,2}$`)
)

// schemeOf returns the lower-cased scheme of raw after removing the control
// and whitespace characters browsers ignore while parsing URLs. ok is false
// when raw is not a parseable URL.
func schemeOf(raw string) (scheme string, ok bool) {
	cleaned := strings.Map(func(r rune) rune {
		if r <= 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, raw)
	u, err := url.Parse(cleaned)
	if err != nil {
		return "", false
	}
	return strings.ToLower(u.Scheme), true
}

// IsSafeLinkURL accepts http, https, mailto and relative URLs.
func IsSafeLinkURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	scheme, ok := schemeOf(raw)
	if !ok {
		return false
	}
	switch scheme {
	case "", "http", "https", "mailto":
		return true
	default:
		return false
	}
}

// IsSafeImageURL accepts http, https and relative URLs, and base64 data URIs
// of raster image types. SVG data URIs are rejected since they can carry script.
func IsSafeImageURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	if isDataURI(raw) {
		return IsDataImage(raw)
	}
	return isHTTPOrRelative(raw)
}

// IsSafeVideoURL accepts http, https and relative URLs.
func IsSafeVideoURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" || isDataURI(raw) {
		return false
	}
	return isHTTPOrRelative(raw)
}

// IsDataImage reports whether raw is a base64 data URI of a raster image.
func IsDataImage(raw string) bool {
	idx := strings.IndexByte(raw, ',')
	if idx < 0 {
		return false
	}
	header := strings.ToLower(strings.TrimSpace(raw[:idx]))
	if !dataImageHeader.MatchString(header) {
		return false
	}
	return base64Payload.MatchString(raw[idx+1:])
}

func isDataURI(raw string) bool {
	scheme, ok := schemeOf(raw)
	return ok && scheme == "data"
}

func isHTTPOrRelative(raw string) bool {
	scheme, ok := schemeOf(raw)
	if !ok {
		return false
	}
	return scheme == "" || scheme == "http" || scheme == "https"
}
