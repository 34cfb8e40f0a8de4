// Package htmlscan detects client-side redirects in HTML landing pages.
package htmlscan

import (
	"bytes"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Via labels for client-side redirects.
const (
	ViaMetaRefresh = "meta-refresh"
	ViaJS          = "js"
)

var (
	refreshURLRe = regexp.MustCompile(`(?i)^\s*\d*\s*[;,]?\s*url\s*=\s*['"]?([^'"]+)['"]?\s*$`)
	jsRedirectRe = regexp.MustCompile(`(?i)(?:window\.|document\.)?location(?:\.href)?\s*=\s*['"]([^'"#]+)['"]`)
)

// ShouldFetchBody checks if content-type indicates HTML.
func ShouldFetchBody(ct string) bool {
	return strings.Contains(strings.ToLower(ct), "text/html")
}

// DetectRedirect inspects an HTML body for a meta refresh or a JavaScript
// location assignment and resolves the target against base.
func DetectRedirect(body []byte, base *url.URL) (next *url.URL, via string, ok bool) {
	if doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body)); err == nil {
		doc.Find("meta[http-equiv]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			equiv, _ := s.Attr("http-equiv")
			if !strings.EqualFold(strings.TrimSpace(equiv), "refresh") {
				return true
			}
			content, _ := s.Attr("content")
			m := refreshURLRe.FindStringSubmatch(content)
			if m == nil {
				return true
			}
			if u, err := url.Parse(strings.TrimSpace(m[1])); err == nil {
				next, via, ok = base.ResolveReference(u), ViaMetaRefresh, true
				return false
			}
			return true
		})
		if ok {
			return next, via, ok
		}
	}
	if m := jsRedirectRe.FindSubmatch(body); m != nil {
		if u, err := url.Parse(string(m[1])); err == nil {
			return base.ResolveReference(u), ViaJS, true
		}
	}
	return nil, "", false
}

// ReadAndDetect reads from r up to limit bytes and performs DetectRedirect.
func ReadAndDetect(r io.Reader, limit int64, base *url.URL) (next *url.URL, via string, body []byte, ok bool) {
	body, _ = io.ReadAll(io.LimitReader(r, limit))
	next, via, ok = DetectRedirect(body, base)
	return next, via, body, ok
}
