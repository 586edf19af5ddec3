package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"gym-app/internal/config"
	"gym-app/internal/database"
	"gym-app/pkg/logger"
)

func main() {
	var (
		up      = flag.Bool("up", false, "Применить все доступные миграции (по умолчанию)")
		down    = flag.Bool("down", false, "Откатить последнюю миграцию")
		steps   = flag.Int("steps", 0, "Применить/откатить N миграций (положительное число - вверх, отрицательное - вниз)")
		version = flag.Bool("version", false, "Показать текущую версию миграции")
		force   = flag.Int("force", -1, "Принудительно установить версию (после прерванной миграции)")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Использование: %s [опции]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Опции:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nПримеры:\n")
		fmt.Fprintf(os.Stderr, "  %s              # Применить все миграции\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -down        # Откатить последнюю миграцию\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -steps -1    # Откатить 1 миграцию\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -force 3     # Установить версию 3\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -version     # Показать текущую версию\n", os.Args[0])
	}
	flag.Parse()

	log, err := logger.New("info")
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync(log)

	if err := run(log, *up, *down, *steps, *version, *force); err != nil {
		log.Error("migration failed", map[string]any{"err": err})
		logger.Sync(log)
		os.Exit(1)
	}
}

func run(log logger.Logger, up, down bool, steps int, version bool, force int) error {
	actions := 0
	for _, set := range []bool{up, down, steps != 0, version, force >= 0} {
		if set {
			actions++
		}
	}
	if actions > 1 {
		return errors.New("only one action can be specified at a time")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	migrator, err := database.NewMigratorFromDSN(cfg.Database.URL(), log)
	if err != nil {
		return err
	}
	defer func() {
		if err := migrator.Close(); err != nil {
			log.Warn("close migrator", map[string]any{"err": err})
		}
	}()

	switch {
	case version:
		return printVersion(log, migrator)
	case force >= 0:
		return migrator.Force(force)
	case down:
		return noChangeOK(log, migrator.Down())
	case steps != 0:
		return noChangeOK(log, migrator.Steps(steps))
	default:
		return noChangeOK(log, migrator.Up())
	}
}

func noChangeOK(log logger.Logger, err error) error {
	if errors.Is(err, database.ErrNoChange) {
		log.Info("no migrations to apply", nil)
		return nil
	}
	return err
}

func printVersion(log logger.Logger, migrator *database.Migrator) error {
	version, dirty, err := migrator.Version()
	if err != nil {
		return err
	}
	if dirty {
		return fmt.Errorf("version %d: %w", version, database.ErrDirtyState)
	}
	log.Info("current migration version", map[string]any{"version": version})
	return nil
}
