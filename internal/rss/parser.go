package rss

import (
	"errors"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
)

// ParsedFeed is the typed result of parsing feed content.
type ParsedFeed struct {
	Title       string
	Description string
	Items       []ParsedItem
}

// ParsedItem is one entry of a parsed feed.
type ParsedItem struct {
	Title       string
	Description string
	Link        string
}

var textPolicy = bluemonday.StrictPolicy()

// Parse turns raw RSS or Atom content into a ParsedFeed. Failures are
// *ParseError.
func Parse(raw string) (*ParsedFeed, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, &ParseError{Err: errors.New("empty content")}
	}
	// gofeed parsers keep per-document state, so each call gets its own.
	feed, err := gofeed.NewParser().ParseString(raw)
	if err != nil {
		return nil, &ParseError{Err: err}
	}

	out := &ParsedFeed{
		Title:       plainText(feed.Title),
		Description: plainText(feed.Description),
		Items:       make([]ParsedItem, 0, len(feed.Items)),
	}
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		desc := item.Description
		if desc == "" {
			desc = item.Content
		}
		out.Items = append(out.Items, ParsedItem{
			Title:       plainText(item.Title),
			Description: plainText(desc),
			Link:        strings.TrimSpace(item.Link),
		})
	}
	return out, nil
}

// plainText strips markup and decodes entities so the text can be
// escaped once by whatever displays it.
func plainText(s string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}
