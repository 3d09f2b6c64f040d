// Package i18n loads translation tables and resolves message keys.
package i18n

import (
	"embed"
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed locales/*.toml
var localesFS embed.FS

// Message keys used by the renderer.
const (
	KeyNetworkProblems = "networkProblems"
	KeyInvalidRSS      = "invalidRSS"
	KeyLoaded          = "sucessRSSLoad"
	KeyRSSExists       = "RSSExists"
	KeyFeeds           = "feeds"
	KeyPosts           = "posts"
	KeyPreview         = "preview"
	KeyInvalidURL      = "invalidURL"
	KeyRequired        = "required"
	KeyAdd             = "add"
	KeyClose           = "close"
	KeyReadMore        = "readMore"
)

// Translator resolves message keys to display text.
type Translator interface {
	T(key string) string
}

// Catalog is a Translator backed by one locale table.
type Catalog struct {
	lang     string
	messages map[string]string
}

// Load reads the embedded table for lang.
func Load(lang string) (*Catalog, error) {
	data, err := localesFS.ReadFile("locales/" + lang + ".toml")
	if err != nil {
		return nil, fmt.Errorf("unknown language %q (available: %s)", lang, strings.Join(Languages(), ", "))
	}
	messages := map[string]string{}
	if err := toml.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("parse locale %s: %w", lang, err)
	}
	return &Catalog{lang: lang, messages: messages}, nil
}

// Languages lists the embedded locales.
func Languages() []string {
	entries, _ := localesFS.ReadDir("locales")
	langs := make([]string, 0, len(entries))
	for _, e := range entries {
		langs = append(langs, strings.TrimSuffix(e.Name(), ".toml"))
	}
	sort.Strings(langs)
	return langs
}

// Lang returns the catalog language.
func (c *Catalog) Lang() string { return c.lang }

// T returns the message for key, or the key itself when it is missing.
func (c *Catalog) T(key string) string {
	if msg, ok := c.messages[key]; ok {
		return msg
	}
	return key
}
