package database

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/bryan-buckman/feedsync/internal/model"
	"github.com/bryan-buckman/feedsync/internal/state"
)

// Persister mirrors feed and post writes into a Store. It only reads
// events, so it can subscribe next to the renderer.
type Persister struct {
	db Store
}

// NewPersister creates a persister writing to db.
func NewPersister(db Store) *Persister {
	return &Persister{db: db}
}

// Handle saves the collection carried by feed and post events. Failures
// are logged; the in-memory state stays authoritative.
func (p *Persister) Handle(ev state.Event) {
	var err error
	switch ev.Kind {
	case state.FeedsChanged:
		err = p.db.SaveFeeds(ev.Value.([]model.Feed))
	case state.PostsChanged:
		err = p.db.SavePosts(ev.Value.([]model.Post))
	default:
		return
	}
	if err != nil {
		log.WithField("path", ev.Path).Errorf("Persist %s: %v", p.db.DatabaseType(), err)
	}
}

// Restore writes the persisted feeds and posts into s. It must run before
// the scheduler loop starts.
func Restore(s *state.Store, db Store) error {
	feeds, err := db.GetFeeds()
	if err != nil {
		return fmt.Errorf("load feeds: %w", err)
	}
	posts, err := db.GetPosts()
	if err != nil {
		return fmt.Errorf("load posts: %w", err)
	}
	if len(feeds) > 0 {
		if err := s.Set(state.PathFeeds, feeds); err != nil {
			return err
		}
	}
	if len(posts) > 0 {
		if err := s.Set(state.PathPosts, posts); err != nil {
			return err
		}
	}
	log.Infof("Restored %d feeds and %d posts from %s", len(feeds), len(posts), db.DatabaseType())
	return nil
}
