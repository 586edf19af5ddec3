// Сервер Gym App.
//
//	@title						Gym App API
//	@version					1.0
//	@description				Планы, роли, назначения тренеров и расписание зала.
//	@BasePath					/api/v1
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
package main

import (
	"errors"
	"fmt"
	"os"

	"gym-app/internal/config"
	"gym-app/internal/database"
	"gym-app/internal/mailer"
	"gym-app/internal/metrics"
	pgrepo "gym-app/internal/repository/postgres"
	"gym-app/internal/server"
	"gym-app/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync(log)

	log.Info("starting gym app", map[string]any{
		"env":  cfg.AppEnv,
		"addr": cfg.Server.Address(),
		"db":   fmt.Sprintf("%s@%s:%s/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName),
	})

	if cfg.AutoMigrate {
		if err := migrate(cfg, log); err != nil {
			return err
		}
	}

	db, err := database.NewConnection(&cfg.Database, cfg.AppEnv, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("close database", map[string]any{"err": err})
		}
	}()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	srv, err := server.NewServer(cfg, log, server.Deps{
		Repos:   pgrepo.NewRepositories(db.DB),
		UoW:     pgrepo.NewUnitOfWork(db.DB),
		DB:      db,
		Mailer:  mailer.New(&cfg.Email, log),
		Metrics: m,
	})
	if err != nil {
		return err
	}
	return srv.Start()
}

// migrate применяет миграции через отдельное подключение.
func migrate(cfg *config.Config, log logger.Logger) error {
	migrator, err := database.NewMigratorFromDSN(cfg.Database.URL(), log)
	if err != nil {
		return err
	}
	defer func() {
		if err := migrator.Close(); err != nil {
			log.Warn("close migrator", map[string]any{"err": err})
		}
	}()

	if err := migrator.UpOrNoChange(); err != nil {
		if errors.Is(err, database.ErrDirtyState) {
			return fmt.Errorf("%w: run cmd/migrate -force <version>", err)
		}
		return err
	}
	return nil
}
