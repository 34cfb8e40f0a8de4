package trace_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/selimozcann/mainurlhunter/internal/detect"
	"github.com/selimozcann/mainurlhunter/internal/httpclient"
	"github.com/selimozcann/mainurlhunter/internal/model"
	"github.com/selimozcann/mainurlhunter/internal/trace"
)

func setupServer() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/302", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusFound)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/meta", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<meta http-equiv="refresh" content="0;url=/final">`))
	})
	mux.HandleFunc("/js", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<script>window.location='/final'</script>"))
	})
	mux.HandleFunc("/loop", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop", http.StatusFound)
	})
	mux.HandleFunc("/challenge", func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("clearance"); err == nil {
			http.Redirect(w, r, "/final", http.StatusFound)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "clearance", Value: "ok", Path: "/"})
		http.Redirect(w, r, "/challenge", http.StatusFound)
	})
	mux.HandleFunc("/stubborn", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "attempt", Value: "same", Path: "/"})
		http.Redirect(w, r, "/stubborn", http.StatusFound)
	})
	mux.HandleFunc("/nolocation", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusFound)
	})
	mux.HandleFunc("/hop/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, r.URL.Path+"x", http.StatusMovedPermanently)
	})
	return httptest.NewServer(mux)
}

func newTracer() *trace.Tracer {
	return trace.New(httpclient.New(httpclient.Config{Timeout: 5 * time.Second}))
}

func hasFinding(res model.Trace, typ string) bool {
	for _, f := range res.Findings {
		if f.Type == typ {
			return true
		}
	}
	return false
}

func TestTraceBasic(t *testing.T) {
	srv := setupServer()
	defer srv.Close()

	res := newTracer().Trace(context.Background(), srv.URL+"/302", trace.Options{MaxChain: 5})
	require.Empty(t, res.Error)
	require.Len(t, res.Chain, 2)
	assert.Equal(t, http.StatusFound, res.Chain[0].Status)
	assert.Equal(t, http.StatusOK, res.Chain[1].Status)
	assert.True(t, res.Chain[1].Final)
	assert.Equal(t, srv.URL+"/final", res.FinalURL())
}

func TestClientSideRedirects(t *testing.T) {
	srv := setupServer()
	defer srv.Close()
	tr := newTracer()

	off := tr.Trace(context.Background(), srv.URL+"/meta", trace.Options{MaxChain: 5})
	assert.Len(t, off.Chain, 1, "client-side redirects are ignored unless enabled")

	meta := tr.Trace(context.Background(), srv.URL+"/meta", trace.Options{MaxChain: 5, ClientSide: true})
	require.Len(t, meta.Chain, 2)
	assert.Equal(t, "meta-refresh", meta.Chain[1].Via)
	assert.Equal(t, srv.URL+"/final", meta.FinalURL())

	js := tr.Trace(context.Background(), srv.URL+"/js", trace.Options{MaxChain: 5, ClientSide: true})
	require.Len(t, js.Chain, 2)
	assert.Equal(t, "js", js.Chain[1].Via)
}

func TestLoopAndLength(t *testing.T) {
	srv := setupServer()
	defer srv.Close()
	tr := newTracer()

	loop := tr.Trace(context.Background(), srv.URL+"/loop", trace.Options{MaxChain: 5})
	assert.True(t, hasFinding(loop, detect.TypeChainLoop))

	long := tr.Trace(context.Background(), srv.URL+"/hop/", trace.Options{MaxChain: 3})
	assert.Len(t, long.Chain, 3)
	assert.True(t, hasFinding(long, detect.TypeChainTooLong))
}

func TestCookieChallengeIsNotALoop(t *testing.T) {
	srv := setupServer()
	defer srv.Close()
	tr := newTracer()

	res := tr.Trace(context.Background(), srv.URL+"/challenge", trace.Options{MaxChain: 5})
	require.Empty(t, res.Error)
	require.Len(t, res.Chain, 3)
	assert.False(t, hasFinding(res, detect.TypeChainLoop))
	assert.True(t, res.Chain[2].Final)
	assert.Equal(t, srv.URL+"/final", res.FinalURL())

	// The same cookie value on every hop leaves nothing new to retry with.
	stubborn := tr.Trace(context.Background(), srv.URL+"/stubborn", trace.Options{MaxChain: 5})
	assert.True(t, hasFinding(stubborn, detect.TypeChainLoop))
	assert.Len(t, stubborn.Chain, 2)
}

func TestRedirectWithoutLocationIsFinal(t *testing.T) {
	srv := setupServer()
	defer srv.Close()

	res := newTracer().Trace(context.Background(), srv.URL+"/nolocation", trace.Options{MaxChain: 5})
	require.Len(t, res.Chain, 1)
	assert.True(t, res.Chain[0].Final)
}

func TestPublicToInternalFinding(t *testing.T) {
	// A fake public front that hands out a loopback Location.
	internal := setupServer()
	defer internal.Close()
	client := httpclient.New(httpclient.Config{Timeout: 5 * time.Second})
	client.Transport = rewriteHost{redirect: internal.URL + "/final"}

	res := trace.New(client).Trace(context.Background(), "http://public.example.com/", trace.Options{MaxChain: 5})
	assert.True(t, hasFinding(res, detect.TypePublicToInternal))
}

func TestTransportError(t *testing.T) {
	srv := setupServer()
	url := srv.URL
	srv.Close()

	res := newTracer().Trace(context.Background(), url+"/302", trace.Options{MaxChain: 5})
	assert.NotEmpty(t, res.Error)
	assert.Empty(t, res.Chain)
}

// rewriteHost answers requests for public.example.com with a redirect and
// forwards everything else to the test server.
type rewriteHost struct {
	redirect string
}

func (r rewriteHost) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Hostname() == "public.example.com" {
		rec := httptest.NewRecorder()
		http.Redirect(rec, req, r.redirect, http.StatusFound)
		resp := rec.Result()
		resp.Request = req
		return resp, nil
	}
	return http.DefaultTransport.RoundTrip(req)
}
