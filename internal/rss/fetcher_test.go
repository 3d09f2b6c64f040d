package rss_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bryan-buckman/feedsync/internal/rss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchThroughProxy(t *testing.T) {
	var gotURL, gotCache string
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.Query().Get("url")
		gotCache = r.URL.Query().Get("disableCache")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"contents": "<rss/>",
			"status":   map[string]any{"url": gotURL, "http_code": 200},
		})
	}))
	defer proxy.Close()

	body, err := rss.NewFetcher(proxy.URL).Fetch(context.Background(), "https://example.com/a.rss?x=1")
	require.NoError(t, err)

	assert.Equal(t, "<rss/>", body)
	assert.Equal(t, "https://example.com/a.rss?x=1", gotURL)
	assert.Equal(t, "true", gotCache)
}

func TestFetchDirect(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("raw feed"))
	}))
	defer origin.Close()

	body, err := rss.NewFetcher("").Fetch(context.Background(), origin.URL)
	require.NoError(t, err)
	assert.Equal(t, "raw feed", body)
}

func TestFetchNetworkErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		status  int
	}{
		{
			name: "proxy error status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			status: http.StatusInternalServerError,
		},
		{
			name: "origin error status reported by proxy",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"contents":null,"status":{"http_code":404}}`))
			},
			status: http.StatusNotFound,
		},
		{
			name: "malformed envelope",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`<html>`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proxy := httptest.NewServer(tt.handler)
			defer proxy.Close()

			_, err := rss.NewFetcher(proxy.URL).Fetch(context.Background(), "https://example.com/a.rss")

			var nerr *rss.NetworkError
			require.True(t, errors.As(err, &nerr), "got %v", err)
			assert.Equal(t, tt.status, nerr.Status)
		})
	}
}

func TestFetchUnreachable(t *testing.T) {
	proxy := httptest.NewServer(http.NotFoundHandler())
	proxy.Close()

	_, err := rss.NewFetcher(proxy.URL).Fetch(context.Background(), "https://example.com/a.rss")

	var nerr *rss.NetworkError
	assert.True(t, errors.As(err, &nerr))
}
