// Package model defines shared data structures.
package model

import (
	"fmt"
	"sort"
	"strings"
)

// ProcessState is the lifecycle stage of the subscription form.
type ProcessState string

// Process states of the subscription form.
const (
	StateFilling       ProcessState = "filling"
	StateSending       ProcessState = "sending"
	StateFinished      ProcessState = "finished"
	StateFailed        ProcessState = "failed"
	StateFailedNetwork ProcessState = "failedNetwork"
)

// FieldLink is the name of the feed URL field.
const FieldLink = "link"

// Feed represents a registered RSS source.
type Feed struct {
	Link        string `json:"link"` // normalized, unique
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Post represents a single item discovered in a feed.
type Post struct {
	ID          string `json:"id"` // assigned locally at ingestion
	Title       string `json:"title"`
	Link        string `json:"link"`
	Description string `json:"description"`
	Read        bool   `json:"read"`
}

// ValidationError is a field-level validation failure. Key is a
// translation key, not display text.
type ValidationError struct {
	Field string `json:"field"`
	Key   string `json:"key"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Key)
}

// FieldErrors holds validation errors keyed by field name. An empty
// value means the form is valid.
type FieldErrors map[string]ValidationError

// Error implements error so a non-empty FieldErrors can be returned directly.
func (fe FieldErrors) Error() string {
	names := make([]string, 0, len(fe))
	for name := range fe {
		names = append(names, name)
	}
	sort.Strings(names)
	msgs := make([]string, 0, len(names))
	for _, name := range names {
		msgs = append(msgs, fe[name].Error())
	}
	return "validation failed: " + strings.Join(msgs, ", ")
}

// Form is the subscription form state.
type Form struct {
	ProcessState ProcessState      `json:"processState"`
	Fields       map[string]string `json:"fields"` // missing key means null
	Valid        bool              `json:"valid"`
	Errors       FieldErrors       `json:"errors"`
}

// State is the whole application state tree.
type State struct {
	Form      Form   `json:"form"`
	Feeds     []Feed `json:"feeds"`
	Posts     []Post `json:"posts"` // newest first
	ModalItem *Post  `json:"modalItem"`
}

// NewState returns the initial state tree.
func NewState() State {
	return State{
		Form: Form{
			ProcessState: StateFilling,
			Fields:       map[string]string{},
			Valid:        true,
			Errors:       FieldErrors{},
		},
		Feeds: []Feed{},
		Posts: []Post{},
	}
}

// Clone returns a deep copy of the form.
func (f Form) Clone() Form {
	out := f
	out.Fields = make(map[string]string, len(f.Fields))
	for k, v := range f.Fields {
		out.Fields[k] = v
	}
	out.Errors = f.Errors.Clone()
	return out
}

// Clone returns a copy of the error set.
func (fe FieldErrors) Clone() FieldErrors {
	out := make(FieldErrors, len(fe))
	for k, v := range fe {
		out[k] = v
	}
	return out
}

// Clone returns a deep copy of the state tree.
func (s State) Clone() State {
	out := State{
		Form:  s.Form.Clone(),
		Feeds: append([]Feed{}, s.Feeds...),
		Posts: append([]Post{}, s.Posts...),
	}
	if s.ModalItem != nil {
		item := *s.ModalItem
		out.ModalItem = &item
	}
	return out
}

// FeedLinks returns the links of the given feeds.
func FeedLinks(feeds []Feed) []string {
	links := make([]string, len(feeds))
	for i, f := range feeds {
		links[i] = f.Link
	}
	return links
}
