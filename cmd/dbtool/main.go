package main

import (
	"database/sql"
	"event-location-service/internal/adapters/cache"
	"event-location-service/internal/config"
	"event-location-service/internal/platform/db"
	"event-location-service/internal/platform/obs"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	config.LoadDotEnv()

	logger, err := obs.Init(config.Get("LOG_LEVEL", "info"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	app := &cli.App{
		Name:  "dbtool",
		Usage: "Manage the place search cache.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Postgres connection string; SQLite is used when empty",
				EnvVars: []string{"DATABASE_URL"},
			},
			&cli.StringFlag{
				Name:    "db-path",
				Usage:   "SQLite database file",
				Value:   config.Get("DB_PATH", "data/app.db"),
				EnvVars: []string{"DB_PATH"},
			},
		},
		Commands: []*cli.Command{
			initCommand(),
			purgeCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Error("dbtool failed", zap.Error(err))
		os.Exit(1)
	}
}

func initCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Create the search cache schema.",
		Action: func(c *cli.Context) error {
			conn, dialect, err := open(c)
			if err != nil {
				return err
			}
			defer conn.Close()

			obs.Logger().Info("Initializing database schema...", zap.String("dialect", string(dialect)))
			if err := cache.InitSchema(c.Context, conn, dialect); err != nil {
				return fmt.Errorf("schema initialization failed: %w", err)
			}
			obs.Logger().Info("Schema ready.")
			return nil
		},
	}
}

func purgeCommand() *cli.Command {
	return &cli.Command{
		Name:  "purge",
		Usage: "Delete cached searches older than --max-age.",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "max-age",
				Usage: "age after which cached searches are removed",
				Value: 30 * 24 * time.Hour,
			},
		},
		Action: func(c *cli.Context) error {
			conn, dialect, err := open(c)
			if err != nil {
				return err
			}
			defer conn.Close()

			cutoff := time.Now().Add(-c.Duration("max-age"))
			n, err := cache.Purge(c.Context, conn, dialect, cutoff)
			if err != nil {
				return err
			}
			obs.Logger().Info("Purge complete.", zap.Int64("queries_removed", n), zap.Time("cutoff", cutoff))
			return nil
		},
	}
}

func open(c *cli.Context) (*sql.DB, cache.Dialect, error) {
	if url := strings.TrimSpace(c.String("database-url")); url != "" {
		conn, err := db.Open(url)
		return conn, cache.DialectPostgres, err
	}
	conn, err := db.OpenSQLite(c.String("db-path"))
	return conn, cache.DialectSQLite, err
}
