package identity

import (
	"net/url"
	"strings"
)

// SafeCallbackURL applies the same-origin redirect policy to an untrusted
// callback-URL parameter: relative paths are resolved against the app's base
// origin, absolute URLs are allowed only when their origin matches the base,
// and anything else collapses to the base origin.
func SafeCallbackURL(baseURL, target string) string {
	base, err := url.Parse(baseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return baseURL
	}
	origin := base.Scheme + "://" + base.Host

	target = strings.TrimSpace(target)
	if target == "" {
		return origin
	}

	// Protocol-relative URLs ("//evil.com/x") parse as absolute without a
	// scheme; reject them before the relative-path shortcut below.
	if strings.HasPrefix(target, "//") {
		return origin
	}
	if strings.HasPrefix(target, "/") {
		return origin + target
	}

	parsed, err := url.Parse(target)
	if err != nil {
		return origin
	}
	if parsed.Scheme == base.Scheme && parsed.Host == base.Host {
		return target
	}
	return origin
}
