package command

import (
	"fmt"

	"github.com/bryan-buckman/feedsync/internal/config"
	"github.com/bryan-buckman/feedsync/internal/database"
	"github.com/bryan-buckman/feedsync/internal/state"
)

// openState opens the database and loads its feeds and posts into a new
// store. Writes to the store are persisted from then on.
func openState(cfg *config.Config) (*state.Store, database.Store, error) {
	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	s := state.New()
	if err := database.Restore(s, db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("restore state: %w", err)
	}
	s.Subscribe(database.NewPersister(db).Handle)
	return s, db, nil
}
