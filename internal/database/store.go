// Package database persists feeds and posts between runs.
package database

import (
	"strings"

	"github.com/bryan-buckman/feedsync/internal/model"
)

// Store defines the interface for database operations.
// Both SQLite and PostgreSQL implementations satisfy this interface.
type Store interface {
	Close() error

	// DatabaseType returns the name of the database backend ("SQLite" or "PostgreSQL").
	DatabaseType() string

	// Feed operations. Feeds are returned in insertion order; saving is
	// idempotent and never modifies a stored feed.
	GetFeeds() ([]model.Feed, error)
	SaveFeeds(feeds []model.Feed) error

	// Post operations. Posts are returned newest first; saving upserts
	// every post and its read flag.
	GetPosts() ([]model.Post, error)
	SavePosts(posts []model.Post) error
}

// Open picks the backend from the DSN: postgres:// and postgresql:// URLs
// use PostgreSQL, anything else is an SQLite path.
func Open(dsn string) (Store, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return NewPostgres(dsn)
	}
	return New(dsn)
}
