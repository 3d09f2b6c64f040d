package rss_test

import (
	"fmt"
	"strings"
)

// rssDoc builds an RSS 2.0 document with one item per title.
func rssDoc(title string, items ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>%s</title><description>%s description</description><link>https://example.com</link>`, title, title)
	for _, it := range items {
		fmt.Fprintf(&b, `<item><title>%s</title><link>https://example.com/%s</link><description>About %s</description></item>`,
			it, strings.ReplaceAll(it, " ", "-"), it)
	}
	b.WriteString(`</channel></rss>`)
	return b.String()
}
