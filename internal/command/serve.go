package command

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/bryan-buckman/feedsync/internal/app"
	"github.com/bryan-buckman/feedsync/internal/config"
	"github.com/bryan-buckman/feedsync/internal/i18n"
	"github.com/bryan-buckman/feedsync/internal/loop"
	"github.com/bryan-buckman/feedsync/internal/rss"
	"github.com/bryan-buckman/feedsync/internal/server"
	"github.com/bryan-buckman/feedsync/internal/view"
)

func serveCmd() *cli.Command {
	def := config.Default()
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the web view and poll feeds",
		Description: `Starts the HTTP server and the feed poller.

Every subscribed feed is fetched again once the previous refresh cycle
has finished and the refresh interval has passed. New posts show up at
the top of the list.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Aliases: []string{"a"},
				Value:   def.Addr,
				Usage:   "HTTP listen address",
				EnvVars: []string{"FEEDSYNC_ADDR"},
			},
			&cli.DurationFlag{
				Name:    "interval",
				Aliases: []string{"i"},
				Value:   def.RefreshInterval.Duration,
				Usage:   "Delay between refresh cycles",
				EnvVars: []string{"FEEDSYNC_REFRESH_INTERVAL"},
			},
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			sigCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(sigCtx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	catalog, err := i18n.Load(cfg.Language)
	if err != nil {
		return err
	}

	store, db, err := openState(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Infof("Using %s database", db.DatabaseType())

	page := view.NewPage(view.LabelsFrom(catalog))
	view.NewRenderer(page, catalog).Attach(store)

	l := loop.New(64)
	source := rss.NewFetcher(cfg.ProxyURL)
	poller := rss.NewPoller(store, l, source, rss.WithInterval(cfg.RefreshInterval.Duration))
	srv, err := server.New(app.New(store, l, source), poller, store, page)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return l.Run(gctx) })
	g.Go(func() error { return poller.Run(gctx) })
	g.Go(func() error { return srv.Start(gctx, cfg.Addr) })

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		log.Info("Gracefully shut down")
		return nil
	}
	return err
}
