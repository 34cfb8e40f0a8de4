package resolver_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/selimozcann/mainurlhunter/internal/httpclient"
	"github.com/selimozcann/mainurlhunter/internal/logger"
	"github.com/selimozcann/mainurlhunter/internal/model"
	"github.com/selimozcann/mainurlhunter/internal/resolver"
	"github.com/selimozcann/mainurlhunter/internal/trace"
)

func newResolver(timeout time.Duration) *resolver.Resolver {
	client := httpclient.New(httpclient.Config{Timeout: timeout})
	return resolver.New(trace.New(client), trace.Options{MaxChain: 10}, logger.NewNop())
}

func TestResolveFollowsToNewDomain(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("home"))
	}))
	defer target.Close()
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target.URL+"/tr/anasayfa/", http.StatusMovedPermanently)
	}))
	defer origin.Close()

	res, err := newResolver(5*time.Second).Resolve(context.Background(), origin.URL)
	require.NoError(t, err)
	assert.Equal(t, target.URL+"/tr/anasayfa", res.FinalURL)
	assert.Equal(t, target.URL, res.Domain)
	assert.Len(t, res.Trace.Chain, 2)
}

func TestResolveSameDomain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			http.Redirect(w, r, "/home/", http.StatusFound)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	res, err := newResolver(5*time.Second).Resolve(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, srv.URL, res.Domain)
}

func TestResolveTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	res, err := newResolver(100*time.Millisecond).Resolve(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, resolver.ErrUnresolved))
	assert.True(t, model.IsKind(err, model.KindResolution))
	assert.Empty(t, res.Domain)
	assert.NotEmpty(t, res.Trace.Error)
}

func TestResolveUnsettledChain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, r.URL.Path+"x", http.StatusFound)
	}))
	defer srv.Close()

	res, err := newResolver(5*time.Second).Resolve(context.Background(), srv.URL+"/")
	require.Error(t, err)
	assert.True(t, errors.Is(err, resolver.ErrUnresolved))
	assert.True(t, errors.Is(err, resolver.ErrUnsettled))
	assert.True(t, model.IsKind(err, model.KindResolution))
	assert.Empty(t, res.Domain)
	assert.Len(t, res.Trace.Chain, 10)
}
