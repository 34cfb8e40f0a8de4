package trace

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/selimozcann/mainurlhunter/internal/detect"
	"github.com/selimozcann/mainurlhunter/internal/htmlscan"
	"github.com/selimozcann/mainurlhunter/internal/model"
)

// Via labels for HTTP redirects.
const ViaLocation = "http-location"

const bodyScanLimit = 512 * 1024

// Options control a single trace.
type Options struct {
	// MaxChain bounds the number of hops, client-side hops included.
	MaxChain int
	// ClientSide follows meta refresh and JavaScript location redirects on
	// HTML landing pages.
	ClientSide bool
}

// Tracer performs manual redirect tracing.
type Tracer struct {
	Client *http.Client
}

// New creates a new Tracer.
func New(c *http.Client) *Tracer { return &Tracer{Client: c} }

// Trace follows redirects starting from target and records every hop. A
// transport error ends the trace with Error set; the hops collected so far
// are kept.
func (t *Tracer) Trace(ctx context.Context, target string, opts Options) model.Trace {
	if opts.MaxChain <= 0 {
		opts.MaxChain = 15
	}
	res := model.Trace{Target: target, StartedAt: time.Now()}

	current := target
	via := ViaLocation
	seen := make(map[string]struct{})

	for i := 0; ; i++ {
		if i >= opts.MaxChain {
			res.Findings = append(res.Findings, model.Finding{Type: detect.TypeChainTooLong, Severity: detect.SeverityInfo, AtHop: i, Detail: current})
			break
		}
		key := t.visitKey(current)
		if _, ok := seen[key]; ok {
			res.Findings = append(res.Findings, model.Finding{Type: detect.TypeChainLoop, Severity: detect.SeverityInfo, AtHop: i, Detail: current})
			break
		}
		seen[key] = struct{}{}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, current, nil)
		if err != nil {
			res.Error = err.Error()
			break
		}
		start := time.Now()
		resp, err := t.Client.Do(req)
		if err != nil {
			res.Error = err.Error()
			break
		}
		hop := model.Hop{Index: i, URL: current, Method: req.Method, Status: resp.StatusCode, Via: via, TimeMs: time.Since(start).Milliseconds()}
		u := resp.Request.URL

		var next *url.URL
		via = ViaLocation
		if resp.StatusCode >= 300 && resp.StatusCode < 400 {
			if loc := resp.Header.Get("Location"); loc != "" {
				if parsed, perr := url.Parse(loc); perr == nil {
					next = u.ResolveReference(parsed)
				}
			}
			hop.Size = drain(resp)
		} else if opts.ClientSide && htmlscan.ShouldFetchBody(resp.Header.Get("Content-Type")) {
			n, v, body, ok := htmlscan.ReadAndDetect(resp.Body, bodyScanLimit, u)
			_ = resp.Body.Close()
			hop.Size = int64(len(body))
			if ok {
				next, via = n, v
			}
		} else {
			hop.Size = drain(resp)
		}

		if next == nil {
			hop.Final = true
			res.Chain = append(res.Chain, hop)
			break
		}
		res.Chain = append(res.Chain, hop)

		if f := detect.HTTPSDowngrade(u, next, i+1); f != nil {
			res.Findings = append(res.Findings, *f)
		}
		if f := detect.PublicToInternal(u, next, i+1); f != nil {
			res.Findings = append(res.Findings, *f)
		}
		current = next.String()
	}
	res.DurationMs = time.Since(res.StartedAt).Milliseconds()
	return res
}

// visitKey identifies a request by its URL and the cookies the jar would
// send with it. A challenge page that sets a cookie and redirects to itself
// is revisited once with the new cookie instead of being taken for a loop.
func (t *Tracer) visitKey(raw string) string {
	if t.Client.Jar == nil {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	cookies := t.Client.Jar.Cookies(u)
	if len(cookies) == 0 {
		return raw
	}
	pairs := make([]string, len(cookies))
	for i, c := range cookies {
		pairs[i] = c.Name + "=" + c.Value
	}
	sort.Strings(pairs)
	return raw + " " + strings.Join(pairs, "; ")
}

// drain discards up to bodyScanLimit bytes so the connection can be reused,
// closes the body and returns the number of bytes seen.
func drain(resp *http.Response) int64 {
	n, _ := io.Copy(io.Discard, io.LimitReader(resp.Body, bodyScanLimit))
	_ = resp.Body.Close()
	if resp.ContentLength > n {
		return resp.ContentLength
	}
	return n
}
