// Package rss fetches, parses and periodically refreshes feeds.
package rss

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// DefaultProxyURL is the CORS proxy feeds are fetched through.
const DefaultProxyURL = "https://api.allorigins.win/get"

// maxBodySize caps how much of a response is read.
const maxBodySize = 10 << 20

// Source retrieves the raw content of a feed URL.
type Source interface {
	Fetch(ctx context.Context, feedURL string) (string, error)
}

// Fetcher retrieves feed content through the proxy. With an empty proxy URL
// it fetches feeds directly. No timeout is applied to requests; ctx is the
// only way to abandon one.
type Fetcher struct {
	client   *http.Client
	proxyURL string
}

// NewFetcher creates a fetcher using proxyURL.
func NewFetcher(proxyURL string) *Fetcher {
	return &Fetcher{client: &http.Client{}, proxyURL: proxyURL}
}

// proxyResponse is the JSON envelope returned by the proxy.
type proxyResponse struct {
	Contents string `json:"contents"`
	Status   struct {
		URL      string `json:"url"`
		HTTPCode int    `json:"http_code"`
	} `json:"status"`
}

// Fetch returns the feed body as text. Failures are *NetworkError.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string) (string, error) {
	target := feedURL
	if f.proxyURL != "" {
		target = f.requestURL(feedURL)
	}

	body, err := f.get(ctx, target)
	if err != nil {
		return "", err
	}
	if f.proxyURL == "" {
		return string(body), nil
	}

	var resp proxyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &NetworkError{URL: feedURL, Err: fmt.Errorf("decode proxy response: %w", err)}
	}
	if code := resp.Status.HTTPCode; code != 0 && (code < 200 || code >= 300) {
		return "", &NetworkError{URL: feedURL, Status: code}
	}
	return resp.Contents, nil
}

func (f *Fetcher) requestURL(feedURL string) string {
	q := url.Values{}
	q.Set("url", feedURL)
	q.Set("disableCache", "true")
	return f.proxyURL + "?" + q.Encode()
}

func (f *Fetcher) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &NetworkError{URL: target, Err: err}
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &NetworkError{URL: target, Status: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &NetworkError{URL: target, Err: fmt.Errorf("read body: %w", err)}
	}
	return body, nil
}
