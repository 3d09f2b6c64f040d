package command

import (
	"github.com/urfave/cli/v2"

	"github.com/bryan-buckman/feedsync/internal/config"
)

func globalFlags() []cli.Flag {
	def := config.Default()
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "TOML config file",
			EnvVars: []string{"FEEDSYNC_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "database",
			Aliases: []string{"d"},
			Value:   def.Database,
			Usage:   "SQLite database file location or postgres:// URL",
			EnvVars: []string{"FEEDSYNC_DATABASE"},
		},
		&cli.StringFlag{
			Name:    "proxy",
			Value:   def.ProxyURL,
			Usage:   "CORS proxy used to fetch feeds, empty to fetch directly",
			EnvVars: []string{"FEEDSYNC_PROXY"},
		},
		&cli.StringFlag{
			Name:    "lang",
			Value:   def.Language,
			Usage:   "UI language",
			EnvVars: []string{"FEEDSYNC_LANG"},
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   def.LogLevel,
			Usage:   "Log level (debug, info, warn, error)",
			EnvVars: []string{"FEEDSYNC_LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   def.LogFormat,
			Usage:   "Log format (text or json)",
			EnvVars: []string{"FEEDSYNC_LOG_FORMAT"},
		},
	}
}

// loadConfig reads the config file and lets explicitly set flags win.
func loadConfig(ctx *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadConfig(ctx.String("config"))
	if err != nil {
		return nil, err
	}
	if ctx.IsSet("database") {
		cfg.Database = ctx.String("database")
	}
	if ctx.IsSet("proxy") {
		cfg.ProxyURL = ctx.String("proxy")
	}
	if ctx.IsSet("lang") {
		cfg.Language = ctx.String("lang")
	}
	if ctx.IsSet("addr") {
		cfg.Addr = ctx.String("addr")
	}
	if ctx.IsSet("interval") {
		cfg.RefreshInterval = config.Duration{Duration: ctx.Duration("interval")}
	}
	return cfg, cfg.Validate()
}
