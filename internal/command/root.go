// Package command defines the feedsync command line.
package command

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func RootApp() *cli.App {
	return &cli.App{
		Name:  "feedsync",
		Usage: "A small RSS aggregator with a live web view",
		Description: `feedsync keeps a list of RSS feeds, validates new subscriptions,
and polls every subscribed feed for new posts on a fixed interval.

Feeds and posts are stored in SQLite by default, or in PostgreSQL when
the database flag is a postgres:// URL.

Flags can generally be set via environment variables, e.g.:

--database => FEEDSYNC_DATABASE=feedsync.db
--addr => FEEDSYNC_ADDR=:8080
`,
		Flags: globalFlags(),
		Before: func(ctx *cli.Context) error {
			return setupLogging(ctx.String("log-level"), ctx.String("log-format"))
		},
		Commands: []*cli.Command{
			serveCmd(),
			refreshCmd(),
			exportCmd(),
		},
		Action: func(ctx *cli.Context) error {
			// Show help if no command is specified
			return ctx.App.Run([]string{"", "help"})
		},
	}
}

// Execute runs the root app with the process arguments.
func Execute() {
	if err := RootApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
