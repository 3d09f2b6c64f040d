package command

import (
	"github.com/urfave/cli/v2"

	"github.com/bryan-buckman/feedsync/internal/database"
	"github.com/bryan-buckman/feedsync/internal/opml"
)

func exportCmd() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Print the stored feeds as OPML",
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			db, err := database.Open(cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			feeds, err := db.GetFeeds()
			if err != nil {
				return err
			}
			data, err := opml.Export("feedsync feeds", feeds)
			if err != nil {
				return err
			}
			_, err = ctx.App.Writer.Write(data)
			return err
		},
	}
}
