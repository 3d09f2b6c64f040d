// Package validate checks the subscription form against the known feeds.
package validate

import (
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/bryan-buckman/feedsync/internal/i18n"
	"github.com/bryan-buckman/feedsync/internal/model"
)

// rule is one check on a field; the first failing rule wins.
type rule struct {
	tag string // validator tag, or "" for a custom check
	key string
	fn  func(value string, feedLinks []string) bool
}

var linkRules = []rule{
	{tag: "required", key: i18n.KeyRequired},
	{tag: "http_url", key: i18n.KeyInvalidURL},
	{key: i18n.KeyRSSExists, fn: notRegistered},
}

// Validator applies field rules using go-playground/validator.
type Validator struct {
	validate *validator.Validate
	rules    map[string][]rule
}

// New creates a validator for the subscription form.
func New() *Validator {
	return &Validator{
		validate: validator.New(),
		rules:    map[string][]rule{model.FieldLink: linkRules},
	}
}

// Validate returns the errors of every known field, keyed by field name.
// An empty result means the form is valid. A missing field is validated as
// an empty string.
func (v *Validator) Validate(fields map[string]string, feedLinks []string) model.FieldErrors {
	errs := model.FieldErrors{}
	for name, rules := range v.rules {
		value := strings.TrimSpace(fields[name])
		for _, r := range rules {
			if v.passes(r, value, feedLinks) {
				continue
			}
			errs[name] = model.ValidationError{Field: name, Key: r.key}
			break
		}
	}
	return errs
}

func (v *Validator) passes(r rule, value string, feedLinks []string) bool {
	if r.tag != "" {
		return v.validate.Var(value, r.tag) == nil
	}
	return r.fn(value, feedLinks)
}

func notRegistered(value string, feedLinks []string) bool {
	normalized := Normalize(value)
	for _, link := range feedLinks {
		if Normalize(link) == normalized {
			return false
		}
	}
	return true
}

var defaultPorts = map[string]string{"http": "80", "https": "443"}

// Normalize canonicalizes a feed URL so that trivially different spellings
// of the same feed compare equal. Unparseable input is returned trimmed.
func Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if port := u.Port(); port != "" && port != defaultPorts[u.Scheme] {
		host = host + ":" + port
	}
	u.Host = host
	u.Fragment = ""
	u.RawFragment = ""
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	if u.RawQuery != "" {
		u.RawQuery = u.Query().Encode()
	}
	return u.String()
}
