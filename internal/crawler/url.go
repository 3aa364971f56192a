package crawler

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var errNoHost = errors.New("url has no host")

// NormalizeURL standardizes a URL to avoid duplicates.
// It lowercases the scheme and host, removes default ports, turns an empty
// path into "/" and drops the fragment. The query string is left untouched.
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	return normalize(u).String(), nil
}

// ResolveURL resolves href against base and normalizes the result.
func ResolveURL(base, href string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", fmt.Errorf("parse href: %w", err)
	}
	if base == "" {
		return normalize(ref).String(), nil
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base: %w", err)
	}
	return normalize(b.ResolveReference(ref)).String(), nil
}

func normalize(u *url.URL) *url.URL {
	out := *u
	out.Scheme = strings.ToLower(out.Scheme)
	out.Host = strings.ToLower(out.Host)
	if out.Scheme == "http" && strings.HasSuffix(out.Host, ":80") {
		out.Host = strings.TrimSuffix(out.Host, ":80")
	}
	if out.Scheme == "https" && strings.HasSuffix(out.Host, ":443") {
		out.Host = strings.TrimSuffix(out.Host, ":443")
	}
	if out.Host != "" && out.Opaque == "" && out.Path == "" {
		out.Path = "/"
		out.RawPath = ""
	}
	out.Fragment = ""
	out.RawFragment = ""
	return &out
}

// HostURL returns scheme://host for rawURL.
func HostURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if u.Host == "" {
		return "", errNoHost
	}
	u = normalize(u)
	return u.Scheme + "://" + u.Host, nil
}

// InScope reports whether rawURL starts with prefix at a host boundary.
// A prefix of https://example.com matches https://example.com/docs but not
// https://example.com.evil.org.
func InScope(prefix, rawURL string) bool {
	if prefix == "" || !strings.HasPrefix(rawURL, prefix) {
		return false
	}
	rest := rawURL[len(prefix):]
	if rest == "" {
		return true
	}
	switch rest[0] {
	case '/', '?', '#':
		return true
	default:
		return strings.HasSuffix(prefix, "/")
	}
}

// DomainSafe converts the host of rawURL into a filesystem-friendly token.
func DomainSafe(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ReplaceAll(strings.ToLower(u.Hostname()), ".", "_")
}

// FirstPathSegment returns the first non-empty path segment of rawURL, or "main".
func FirstPathSegment(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "main"
	}
	for _, part := range strings.Split(u.Path, "/") {
		if part != "" {
			return part
		}
	}
	return "main"
}
