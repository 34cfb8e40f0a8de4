package util

import (
	"errors"
	"fmt"
	"net/netip"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// ErrNoHost is returned when a URL has no host component.
var ErrNoHost = errors.New("url has no host")

var schemePrefixRe = regexp.MustCompile(`^[a-zA-Z]+://`)

// NormalizeDomain reduces raw to scheme://host[:port]. Inputs without a
// scheme are treated as http. Path, query and fragment are discarded.
// Normalizing an already normalized value returns it unchanged.
func NormalizeDomain(raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("normalize %q: %w", raw, ErrNoHost)
	}
	if !schemePrefixRe.MatchString(raw) {
		raw = "http://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("normalize %q: %w", raw, err)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("normalize %q: %w", raw, ErrNoHost)
	}
	return parsed.Scheme + "://" + parsed.Host, nil
}

// ETLDPlusOne returns the registrable domain (eTLD+1) for the URL host
// according to the public suffix list. Hosts the list cannot classify,
// such as IP addresses or single labels, are returned lower-cased as is.
func ETLDPlusOne(u *url.URL) string {
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return ""
	}
	if _, err := netip.ParseAddr(strings.Trim(host, "[]")); err == nil {
		return host
	}
	etld1, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return etld1
}

// SameBaseDomain reports whether two URLs share a registrable domain.
func SameBaseDomain(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}
	return ETLDPlusOne(ua) == ETLDPlusOne(ub)
}

// CaseOnlyDifference reports whether two normalized domains differ only in
// letter case.
func CaseOnlyDifference(a, b string) bool {
	return a != b && strings.EqualFold(a, b)
}
