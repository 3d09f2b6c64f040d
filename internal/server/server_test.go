package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/bryan-buckman/feedsync/internal/app"
	"github.com/bryan-buckman/feedsync/internal/i18n"
	"github.com/bryan-buckman/feedsync/internal/loop"
	"github.com/bryan-buckman/feedsync/internal/rss"
	"github.com/bryan-buckman/feedsync/internal/server"
	"github.com/bryan-buckman/feedsync/internal/state"
	"github.com/bryan-buckman/feedsync/internal/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const feedA = "https://example.com/a.rss"

type staticSource struct {
	mu        sync.Mutex
	responses map[string]string
}

func (s *staticSource) Fetch(_ context.Context, feedURL string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	body, ok := s.responses[feedURL]
	if !ok {
		return "", &rss.NetworkError{URL: feedURL, Status: http.StatusNotFound}
	}
	return body, nil
}

func rssDoc(title string, items ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<rss version="2.0"><channel><title>%s</title><description>About %s</description>`, title, title)
	for _, it := range items {
		fmt.Fprintf(&b, `<item><title>%s</title><link>https://example.com/%s</link><description>%s body</description></item>`, it, it, it)
	}
	b.WriteString(`</channel></rss>`)
	return b.String()
}

type fixture struct {
	handler http.Handler
	store   *state.Store
	src     *staticSource
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	catalog, err := i18n.Load("en")
	require.NoError(t, err)

	s := state.New()
	page := view.NewPage(view.LabelsFrom(catalog))
	view.NewRenderer(page, catalog).Attach(s)

	l := loop.New(16)
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)
	t.Cleanup(cancel)

	src := &staticSource{responses: map[string]string{feedA: rssDoc("Example", "one", "two")}}
	srv, err := server.New(app.New(s, l, src), rss.NewPoller(s, l, src), s, page)
	require.NoError(t, err)
	return &fixture{handler: srv.Handler(), store: s, src: src}
}

func (f *fixture) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodePage(t *testing.T, rec *httptest.ResponseRecorder) view.Snapshot {
	t.Helper()
	var snap view.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	return snap
}

func (f *fixture) subscribe(t *testing.T, link string) *httptest.ResponseRecorder {
	t.Helper()
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/input", map[string]string{"name": "link", "value": link}).Code)
	return f.do(t, http.MethodPost, "/api/submit", nil)
}

func TestHomeRendersLabels(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), ">Add</button>")
}

func TestInputReportsValidation(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/input", map[string]string{"name": "link", "value": "not a url"})
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decodePage(t, rec)
	assert.Equal(t, "Must be valid url", snap.Form.Feedback)
	assert.True(t, snap.Form.SubmitDisabled)
	assert.True(t, snap.Form.InputInvalid)
}

func TestInputRejectsBadJSON(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/input", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitAndDuplicate(t *testing.T) {
	f := newFixture(t)

	rec := f.subscribe(t, feedA)
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decodePage(t, rec)
	assert.Len(t, snap.Feeds, 1)
	assert.Len(t, snap.Posts, 2)
	assert.Equal(t, "RSS has been loaded", snap.Form.ProcessSuccess)

	rec = f.subscribe(t, feedA)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "RSS already exists", decodePage(t, rec).Form.Feedback)
	assert.Len(t, f.store.Feeds(), 1)
}

func TestSubmitNetworkFailure(t *testing.T) {
	f := newFixture(t)

	rec := f.subscribe(t, "https://missing.example/rss")
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decodePage(t, rec)
	assert.NotEmpty(t, snap.Form.ProcessError)
	assert.Empty(t, snap.Feeds)
}

func TestPreviewLifecycle(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusOK, f.subscribe(t, feedA).Code)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/api/posts/nope/preview", nil).Code)

	post := f.store.Posts()[0]
	rec := f.do(t, http.MethodPost, "/api/posts/"+post.ID+"/preview", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decodePage(t, rec)
	assert.True(t, snap.Modal.Open)
	assert.Equal(t, post.Title, snap.Modal.Title)
	assert.False(t, snap.Posts[0].Bold)
	assert.True(t, f.store.Posts()[0].Read)

	rec = f.do(t, http.MethodDelete, "/api/preview", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodePage(t, rec).Modal.Open)
}

func TestRefresh(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusOK, f.subscribe(t, feedA).Code)

	f.src.mu.Lock()
	f.src.responses[feedA] = rssDoc("Example", "three", "one", "two")
	f.src.mu.Unlock()

	rec := f.do(t, http.MethodPost, "/api/refresh", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var res rss.CycleResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, rss.CycleResult{Feeds: 1, Failed: 0, Added: 1}, res)
	assert.Equal(t, "three", f.store.Posts()[0].Title)
}

func TestImportAndExportOPML(t *testing.T) {
	f := newFixture(t)

	doc := `<?xml version="1.0"?>
<opml version="2.0"><head><title>x</title></head><body>
  <outline text="Folder">
    <outline text="A" type="rss" xmlUrl="` + feedA + `"/>
    <outline text="Bad" type="rss" xmlUrl="nonsense"/>
  </outline>
</body></opml>`

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("opml", "subs.opml")
	require.NoError(t, err)
	_, err = part.Write([]byte(doc))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/import-opml", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Imported int                `json:"imported"`
		Total    int                `json:"total"`
		Results  []app.ImportResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, 1, out.Imported)
	assert.Equal(t, 2, out.Total)
	require.Len(t, out.Results, 2)
	assert.Equal(t, "invalidURL", out.Results[1].Error)

	rec = f.do(t, http.MethodGet, "/api/export-opml", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `xmlUrl="`+feedA+`"`)
}

func TestImportWithoutFile(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/import-opml", nil).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusOK, f.subscribe(t, feedA).Code)

	rec := f.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "feedsync_")
}
