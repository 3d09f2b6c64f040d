// Package state owns the application state tree and notifies subscribers
// of every mutation.
package state

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/bryan-buckman/feedsync/internal/model"
)

// Paths accepted by Store.Set.
const (
	PathProcessState = "form.processState"
	PathValid        = "form.valid"
	PathErrors       = "form.errors"
	PathFields       = "form.fields"
	PathFeeds        = "feeds"
	PathPosts        = "posts"
	PathModalItem    = "modalItem"
)

// FieldPath returns the path of a named form field.
func FieldPath(name string) string {
	return PathFields + "." + name
}

// ErrWriteDuringNotify is returned when a subscriber writes to the store
// while it is being notified.
var ErrWriteDuringNotify = errors.New("state: write during notification")

// StructuralError reports a write that does not fit the state tree.
type StructuralError struct {
	Path   string
	Reason string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("state: cannot write %q: %s", e.Path, e.Reason)
}

// Handler receives one event per write.
type Handler func(Event)

// Store holds the state tree. Writes must come from a single goroutine
// (the scheduler loop); reads are safe from anywhere.
type Store struct {
	mu        sync.RWMutex
	state     model.State
	handlers  []Handler
	notifying bool
}

// New creates a store holding the initial state tree.
func New() *Store {
	return &Store{state: model.NewState()}
}

// Subscribe registers h for every subsequent write.
func (s *Store) Subscribe(h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, h)
}

// Set writes value at path and notifies every subscriber before returning.
// Structurally equal values are still notified.
func (s *Store) Set(path string, value any) error {
	s.mu.Lock()
	if s.notifying {
		s.mu.Unlock()
		return ErrWriteDuringNotify
	}
	ev, err := s.apply(path, value)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	handlers := append([]Handler(nil), s.handlers...)
	s.notifying = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.notifying = false
		s.mu.Unlock()
	}()
	for _, h := range handlers {
		h(ev)
	}
	return nil
}

// apply writes value into the tree and builds the event. Callers hold mu.
func (s *Store) apply(path string, value any) (Event, error) {
	switch path {
	case PathProcessState:
		v, ok := value.(model.ProcessState)
		if !ok {
			return Event{}, typeError(path, value)
		}
		s.state.Form.ProcessState = v
		return Event{Kind: ProcessStateChanged, Path: path, Value: v}, nil

	case PathValid:
		v, ok := value.(bool)
		if !ok {
			return Event{}, typeError(path, value)
		}
		s.state.Form.Valid = v
		return Event{Kind: ValidityChanged, Path: path, Value: v}, nil

	case PathErrors:
		v, ok := value.(model.FieldErrors)
		if !ok {
			return Event{}, typeError(path, value)
		}
		s.state.Form.Errors = v.Clone()
		return Event{Kind: ErrorsChanged, Path: path, Value: v.Clone()}, nil

	case PathFeeds:
		v, ok := value.([]model.Feed)
		if !ok {
			return Event{}, typeError(path, value)
		}
		s.state.Feeds = append([]model.Feed{}, v...)
		return Event{Kind: FeedsChanged, Path: path, Value: append([]model.Feed{}, v...)}, nil

	case PathPosts:
		v, ok := value.([]model.Post)
		if !ok {
			return Event{}, typeError(path, value)
		}
		s.state.Posts = append([]model.Post{}, v...)
		return Event{Kind: PostsChanged, Path: path, Value: append([]model.Post{}, v...)}, nil

	case PathModalItem:
		var item *model.Post
		switch v := value.(type) {
		case nil:
		case *model.Post:
			if v != nil {
				cp := *v
				item = &cp
			}
		case model.Post:
			item = &v
		default:
			return Event{}, typeError(path, value)
		}
		s.state.ModalItem = item
		var evItem *model.Post
		if item != nil {
			cp := *item
			evItem = &cp
		}
		return Event{Kind: ModalChanged, Path: path, Value: evItem}, nil
	}

	if name, ok := strings.CutPrefix(path, PathFields+"."); ok && name != "" && !strings.Contains(name, ".") {
		switch v := value.(type) {
		case nil:
			delete(s.state.Form.Fields, name)
		case string:
			s.state.Form.Fields[name] = v
		default:
			return Event{}, typeError(path, value)
		}
		return Event{Kind: FieldChanged, Path: path, Field: name, Value: value}, nil
	}

	return Event{}, &StructuralError{Path: path, Reason: missingParent(path)}
}

func typeError(path string, value any) error {
	return &StructuralError{Path: path, Reason: fmt.Sprintf("unexpected value type %T", value)}
}

func missingParent(path string) string {
	parent, _, found := cutLast(path)
	if !found {
		return "unknown path"
	}
	switch parent {
	case "form", PathFields:
		return "unknown path"
	}
	return fmt.Sprintf("parent %q does not exist", parent)
}

func cutLast(path string) (string, string, bool) {
	i := strings.LastIndex(path, ".")
	if i < 0 {
		return "", path, false
	}
	return path[:i], path[i+1:], true
}

// Snapshot returns a deep copy of the whole tree.
func (s *Store) Snapshot() model.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Form returns a copy of the form state.
func (s *Store) Form() model.Form {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Form.Clone()
}

// Field returns the value of a form field and whether it is set.
func (s *Store) Field(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.state.Form.Fields[name]
	return v, ok
}

// Feeds returns a copy of the feed collection.
func (s *Store) Feeds() []model.Feed {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Feed{}, s.state.Feeds...)
}

// Posts returns a copy of the post collection, newest first.
func (s *Store) Posts() []model.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Post{}, s.state.Posts...)
}

// ModalItem returns a copy of the previewed post, or nil.
func (s *Store) ModalItem() *model.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.ModalItem == nil {
		return nil
	}
	item := *s.state.ModalItem
	return &item
}
