package main

import (
	"database/sql"
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	appmigrations "github.com/cavalieriphilip-stack/agenda-citas-web-sub000/migrations"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/pkg/logging"
)

// Usage:
//
//	migrate              apply all pending migrations
//	migrate down [n]     roll back n steps (default 1)
//	migrate force <v>    mark version v as clean
//	migrate version      print the current version
func main() {
	_ = godotenv.Load()
	logger := logging.New(envOr("LOG_LEVEL", "info"))

	databaseURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if databaseURL == "" {
		fatal(logger, "DATABASE_URL is required", nil)
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		fatal(logger, "open db", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		fatal(logger, "ping db", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		fatal(logger, "db driver", err)
	}
	srcDriver, err := iofs.New(appmigrations.FS, ".")
	if err != nil {
		fatal(logger, "source driver", err)
	}
	m, err := migrate.NewWithInstance("iofs", srcDriver, "postgres", dbDriver)
	if err != nil {
		fatal(logger, "create migrator", err)
	}
	defer func() { _, _ = m.Close() }()

	if err := run(m, os.Args[1:], logger); err != nil {
		fatal(logger, "migration failed", err)
	}
}

type migrator interface {
	Up() error
	Steps(n int) error
	Force(version int) error
	Version() (uint, bool, error)
}

func run(m migrator, args []string, logger *logging.Logger) error {
	cmd := "up"
	if len(args) > 0 {
		cmd = args[0]
	}
	switch cmd {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return err
		}
		logger.Info("migrations complete")
	case "down":
		steps := 1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n <= 0 {
				return errors.New("down expects a positive step count")
			}
			steps = n
		}
		if err := m.Steps(-steps); err != nil {
			return err
		}
		logger.Info("rolled back", "steps", steps)
	case "force":
		if len(args) < 2 {
			return errors.New("force expects a version")
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			return errors.New("invalid version: " + args[1])
		}
		if err := m.Force(version); err != nil {
			return err
		}
		logger.Info("forced version", "version", version)
	case "version":
		version, dirty, err := m.Version()
		if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
			return err
		}
		logger.Info("schema version", "version", version, "dirty", dirty)
	default:
		return errors.New("unknown command: " + cmd)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func fatal(logger *logging.Logger, msg string, err error) {
	if err != nil {
		logger.Error(msg, "error", err)
	} else {
		logger.Error(msg)
	}
	os.Exit(1)
}
