// Package url provides origin handling for the icon cache.
package url

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// DefaultTouchIconPath is the file an origin may serve at its root instead of
// declaring a touch icon with a <link> element.
const DefaultTouchIconPath = "/apple-touch-icon.png"

// ErrInvalidOrigin is returned when an input cannot be reduced to an origin.
var ErrInvalidOrigin = errors.New("invalid origin")

// Normalize adds an https:// prefix to bare hosts such as example.com or
// localhost:8080. Inputs that carry a scheme of any case, and inputs that do
// not look like a host, are returned trimmed but otherwise unchanged.
func Normalize(input string) string {
	input = strings.TrimSpace(input)
	if input == "" || hasScheme(input) {
		return input
	}

	if (strings.Contains(input, ".") || strings.HasPrefix(input, "localhost")) && !strings.Contains(input, " ") {
		return "https://" + input
	}

	return input
}

// hasScheme reports whether input starts with "scheme:". A host followed by
// a port (example.com:8080) is not a scheme.
func hasScheme(input string) bool {
	if strings.Contains(input, "://") {
		return true
	}
	parsed, err := url.Parse(input)
	if err != nil || parsed.Scheme == "" {
		return false
	}
	rest := input[len(parsed.Scheme)+1:]
	return rest == "" || rest[0] < '0' || rest[0] > '9'
}

// Origin reduces a URL to its canonical scheme://host[:port] form.
// Scheme and host are lowercased and default ports are dropped.
func Origin(rawURL string) (string, error) {
	parsed, err := url.Parse(Normalize(rawURL))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidOrigin, err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidOrigin, parsed.Scheme)
	}

	host := strings.TrimSuffix(strings.ToLower(parsed.Hostname()), ".")
	if host == "" {
		return "", fmt.Errorf("%w: missing host in %q", ErrInvalidOrigin, rawURL)
	}

	port := parsed.Port()
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}

	if port != "" {
		return scheme + "://" + net.JoinHostPort(host, port), nil
	}
	if strings.Contains(host, ":") {
		// IPv6 literal
		return scheme + "://[" + host + "]", nil
	}
	return scheme + "://" + host, nil
}

// Host returns the lowercased host of a URL or origin, without port.
func Host(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimSuffix(strings.ToLower(parsed.Hostname()), ".")
}

// DomainIs reports whether host equals domain or is a subdomain of it.
// Comparison is case-insensitive and ignores a trailing dot.
func DomainIs(host, domain string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	domain = strings.TrimSuffix(strings.ToLower(domain), ".")
	if host == "" || domain == "" {
		return false
	}
	if host == domain {
		return true
	}
	return strings.HasSuffix(host, "."+domain)
}

// SameSlot reports whether two origins share one cache slot: either host is a
// domain suffix of the other, so www.example.com and example.com match.
func SameSlot(a, b string) bool {
	hostA, hostB := Host(a), Host(b)
	return DomainIs(hostA, hostB) || DomainIs(hostB, hostA)
}

// DefaultTouchIconURL returns origin with its path replaced by
// apple-touch-icon.png and no query or fragment.
func DefaultTouchIconURL(origin string) (string, error) {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidOrigin, origin)
	}
	parsed.Path = DefaultTouchIconPath
	parsed.RawPath = ""
	parsed.RawQuery = ""
	parsed.ForceQuery = false
	parsed.Fragment = ""
	parsed.RawFragment = ""
	parsed.User = nil
	return parsed.String(), nil
}
