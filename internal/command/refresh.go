package command

import (
	"context"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/bryan-buckman/feedsync/internal/loop"
	"github.com/bryan-buckman/feedsync/internal/rss"
)

func refreshCmd() *cli.Command {
	return &cli.Command{
		Name:  "refresh",
		Usage: "Run one refresh cycle against the stored feeds",
		Description: `Fetches every stored feed once and saves the new posts.

Useful from cron when the web view is not running.`,
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			store, db, err := openState(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			runCtx, cancel := context.WithCancel(ctx.Context)
			defer cancel()
			l := loop.New(8)
			go l.Run(runCtx)

			res, err := rss.NewPoller(store, l, rss.NewFetcher(cfg.ProxyURL)).RunCycle(runCtx)
			if err != nil {
				return err
			}
			log.Infof("Refreshed %d feeds: %d new posts, %d failed", res.Feeds, res.Added, res.Failed)
			return nil
		},
	}
}
