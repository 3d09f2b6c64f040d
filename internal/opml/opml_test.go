package opml_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/bryan-buckman/feedsync/internal/model"
	"github.com/bryan-buckman/feedsync/internal/opml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const nested = `<?xml version="1.0" encoding="UTF-8"?>
<opml version="2.0">
  <head><title>Subscriptions</title></head>
  <body>
    <outline text="Top" type="rss" xmlUrl="https://top.example/rss"/>
    <outline text="Tech">
      <outline text="Go" title="Go Blog" type="rss" xmlUrl="https://go.dev/blog/feed.atom"/>
      <outline text="Deep">
        <outline text="Inner" type="rss" xmlUrl="https://inner.example/rss"/>
      </outline>
    </outline>
    <outline text="Empty folder"/>
  </body>
</opml>`

func TestParseFlattensFolders(t *testing.T) {
	entries, err := opml.Parse(strings.NewReader(nested))
	require.NoError(t, err)

	assert.Equal(t, []opml.FeedEntry{
		{Title: "Top", URL: "https://top.example/rss"},
		{Title: "Go Blog", URL: "https://go.dev/blog/feed.atom"},
		{Title: "Inner", URL: "https://inner.example/rss"},
	}, entries)
	assert.Equal(t, []string{
		"https://top.example/rss",
		"https://go.dev/blog/feed.atom",
		"https://inner.example/rss",
	}, opml.URLs(entries))
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := opml.Parse(strings.NewReader("not xml at all"))
	assert.Error(t, err)
}

func TestExportRoundTrip(t *testing.T) {
	feeds := []model.Feed{
		{Link: "https://a.example/rss", Title: "A", Description: "first"},
		{Link: "https://b.example/rss", Title: "B & co"},
	}

	data, err := opml.Export("feedsync", feeds)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("<?xml")))

	entries, err := opml.Parse(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, []opml.FeedEntry{
		{Title: "A", URL: "https://a.example/rss"},
		{Title: "B & co", URL: "https://b.example/rss"},
	}, entries)
}
