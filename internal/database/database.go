package database

import (
	"database/sql"
	"fmt"

	"github.com/bryan-buckman/feedsync/internal/model"
	_ "modernc.org/sqlite"
)

// DB wraps the SQLite connection.
type DB struct {
	conn *sql.DB
}

// Ensure DB implements Store interface.
var _ Store = (*DB)(nil)

// New opens or creates an SQLite database at the given path.
func New(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite allows a single writer.
	conn.SetMaxOpenConns(1)
	// Enable WAL mode for better concurrency.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}
	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// DatabaseType returns the database backend name.
func (db *DB) DatabaseType() string {
	return "SQLite"
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS feeds (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		link TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS posts (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		link TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		is_read INTEGER NOT NULL DEFAULT 0,
		seq INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_posts_seq ON posts(seq DESC);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// --- Feed Methods ---

// GetFeeds returns all feeds in insertion order.
func (db *DB) GetFeeds() ([]model.Feed, error) {
	rows, err := db.conn.Query("SELECT link, title, description FROM feeds ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFeeds(rows)
}

// SaveFeeds inserts the feeds that are not stored yet.
func (db *DB) SaveFeeds(feeds []model.Feed) error {
	return withTx(db.conn, `
		INSERT INTO feeds (link, title, description) VALUES (?, ?, ?)
		ON CONFLICT(link) DO NOTHING`,
		func(stmt *sql.Stmt) error {
			for _, f := range feeds {
				if _, err := stmt.Exec(f.Link, f.Title, f.Description); err != nil {
					return err
				}
			}
			return nil
		})
}

// --- Post Methods ---

// GetPosts returns all posts, newest first.
func (db *DB) GetPosts() ([]model.Post, error) {
	rows, err := db.conn.Query("SELECT id, title, link, description, is_read FROM posts ORDER BY seq DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPosts(rows)
}

// SavePosts upserts the posts. The seq of a post counts from the oldest,
// so it does not change when newer posts are prepended.
func (db *DB) SavePosts(posts []model.Post) error {
	return withTx(db.conn, `
		INSERT INTO posts (id, title, link, description, is_read, seq) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET is_read = excluded.is_read, seq = excluded.seq`,
		func(stmt *sql.Stmt) error {
			for i, p := range posts {
				if _, err := stmt.Exec(p.ID, p.Title, p.Link, p.Description, p.Read, len(posts)-i); err != nil {
					return err
				}
			}
			return nil
		})
}

// --- Helpers ---

func withTx(conn *sql.DB, query string, fn func(stmt *sql.Stmt) error) error {
	tx, err := conn.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(query)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	if err := fn(stmt); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func scanFeeds(rows *sql.Rows) ([]model.Feed, error) {
	feeds := []model.Feed{}
	for rows.Next() {
		var f model.Feed
		if err := rows.Scan(&f.Link, &f.Title, &f.Description); err != nil {
			return nil, err
		}
		feeds = append(feeds, f)
	}
	return feeds, rows.Err()
}

func scanPosts(rows *sql.Rows) ([]model.Post, error) {
	posts := []model.Post{}
	for rows.Next() {
		var p model.Post
		if err := rows.Scan(&p.ID, &p.Title, &p.Link, &p.Description, &p.Read); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}
