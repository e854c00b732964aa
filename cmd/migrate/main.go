package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"quicksell/internal/config"
	"quicksell/internal/database"
	"quicksell/internal/logger"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

const usage = "usage: migrate <up|down [N]|goto V|force V|version>"

// command is a parsed migrate invocation. N is the step count for down and
// the target version for goto and force.
type command struct {
	name string
	n    int
}

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(os.Args[1:]); err != nil {
		logger.Get().Fatalf("Migration error: %v", err)
	}
}

func parseArgs(args []string) (command, error) {
	if len(args) == 0 {
		return command{}, errors.New(usage)
	}
	cmd := command{name: args[0]}

	switch cmd.name {
	case "up", "version":
		return cmd, nil
	case "down":
		cmd.n = 1
		if len(args) > 1 {
			steps, err := strconv.Atoi(args[1])
			if err != nil || steps < 1 {
				return command{}, fmt.Errorf("invalid step count %q", args[1])
			}
			cmd.n = steps
		}
		return cmd, nil
	case "goto", "force":
		if len(args) < 2 {
			return command{}, fmt.Errorf("usage: migrate %s <version>", cmd.name)
		}
		version, err := strconv.Atoi(args[1])
		if err != nil || version < 0 {
			return command{}, fmt.Errorf("invalid version %q", args[1])
		}
		cmd.n = version
		return cmd, nil
	default:
		return command{}, fmt.Errorf("unknown command: %s (%s)", cmd.name, usage)
	}
}

func run(args []string) error {
	cmd, err := parseArgs(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	m, err := migrate.New(database.MigrationsSource, database.NewConfig(cfg).URL())
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil {
			logger.Get().Warnf("migrate source close error: %v", srcErr)
		}
		if dbErr != nil {
			logger.Get().Warnf("migrate database close error: %v", dbErr)
		}
	}()

	return apply(m, cmd)
}

func apply(m *migrate.Migrate, cmd command) error {
	log := logger.Get()

	switch cmd.name {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migration up failed: %w", err)
		}
		log.Info("Migrations applied successfully")

	case "down":
		if err := m.Steps(-cmd.n); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migration down failed: %w", err)
		}
		log.Infof("Rolled back %d migration(s)", cmd.n)

	case "goto":
		if err := m.Migrate(uint(cmd.n)); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migration to version %d failed: %w", cmd.n, err)
		}
		log.Infof("Migrated to version %d", cmd.n)

	case "force":
		if err := m.Force(cmd.n); err != nil {
			return fmt.Errorf("force failed: %w", err)
		}
		log.Infof("Forced version %d", cmd.n)

	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			log.Info("No migrations applied")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to get version: %w", err)
		}
		log.Infof("Version: %d, Dirty: %v", version, dirty)
	}

	return nil
}
