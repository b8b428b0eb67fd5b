// meowbot runs the MeowVPN Telegram front-end.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/pflag"

	"github.com/m3rciful/meowbot/core/bootstrap"
	"github.com/m3rciful/meowbot/core/buildinfo"
	corecmd "github.com/m3rciful/meowbot/core/cmd"
	"github.com/m3rciful/meowbot/core/storage"
	"github.com/m3rciful/meowbot/internal/bot"
	"github.com/m3rciful/meowbot/internal/config"
)

// dbWait is how long startup waits for postgres to accept connections.
const dbWait = 30 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Printf("meowbot: %v", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("meowbot", pflag.ContinueOnError)
	configPath := flags.StringP("config", "c", "", "path to the YAML config (default $CONFIG_PATH or config.yaml)")
	showVersion := flags.Bool("version", false, "print build information and exit")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if *showVersion {
		fmt.Printf("meowbot %s (%s) %s\n", buildinfo.Version, buildinfo.Commit, buildinfo.Date)
		return nil
	}

	return corecmd.Run(corecmd.Options{
		ConfigPath:        *configPath,
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return config.Load(path)
		},
		Bootstrap: func(c corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			cfg, ok := c.(*config.Config)
			if !ok {
				return nil, fmt.Errorf("unexpected config type %T", c)
			}
			return bootstrapApp(context.Background(), cfg)
		},
	})
}

func bootstrapApp(ctx context.Context, cfg *config.Config) (*bot.App, error) {
	opts := bootstrap.Options{Config: cfg.CoreConfig()}
	if cfg.NeedsRedis() {
		opts.Redis = &cfg.Redis
	}
	if cfg.NeedsPostgres() {
		opts.Postgres = &cfg.Postgres
		opts.ConnectPostgres = func(ctx context.Context, pc storage.PostgresConfig) (*sqlx.DB, error) {
			if err := storage.WaitForPostgres(ctx, pc.DSN(), dbWait); err != nil {
				return nil, err
			}
			return storage.ConnectPostgres(ctx, pc)
		}
	}
	infra, err := bootstrap.Run(ctx, opts)
	if err != nil {
		return nil, err
	}
	app, err := bot.New(cfg, infra)
	if err != nil {
		_ = infra.Close()
		return nil, err
	}
	return app, nil
}
