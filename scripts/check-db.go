//go:build ignore

// check-db проверяет подключение к базе данных и наличие таблиц приложения.
//
//	go run scripts/check-db.go
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"gym-app/internal/config"
	"gym-app/internal/database"
	"gym-app/pkg/logger"
)

var expectedTables = []string{
	"users",
	"auth_tokens",
	"planes",
	"clientes",
	"entrenador_cliente_asignaciones",
	"gym_clases",
	"clases_programadas",
	"reservas",
}

func fileExists(filename string) bool {
	_, err := os.Stat(filename)
	return err == nil
}

func main() {
	log, err := logger.New("info")
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	if err := run(log); err != nil {
		log.Error("database check failed", map[string]any{"err": err})
		logger.Sync(log)
		os.Exit(1)
	}
	logger.Sync(log)
}

func run(log logger.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Хост "postgres" резолвится только внутри docker-compose.
	isInDocker := os.Getenv("container") != "" || fileExists("/.dockerenv")
	if cfg.Database.Host == "postgres" && !isInDocker {
		log.Warn("DB_HOST=postgres outside docker, using localhost", nil)
		cfg.Database.Host = "localhost"
	}

	log.Info("connecting", map[string]any{
		"host":    cfg.Database.Host,
		"port":    cfg.Database.Port,
		"user":    cfg.Database.User,
		"db":      cfg.Database.DBName,
		"sslmode": cfg.Database.SSLMode,
	})

	db, err := database.NewConnection(&cfg.Database, cfg.AppEnv, log)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.Ping(ctx); err != nil {
		return err
	}

	var present []string
	err = db.WithContext(ctx).
		Raw(`SELECT table_name FROM information_schema.tables WHERE table_schema = current_schema() AND table_name IN ?`, expectedTables).
		Scan(&present).Error
	if err != nil {
		return fmt.Errorf("list tables: %w", err)
	}

	found := make(map[string]bool, len(present))
	for _, name := range present {
		found[name] = true
	}
	var missing []string
	for _, name := range expectedTables {
		if !found[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing tables %v: run cmd/migrate", missing)
	}

	log.Info("database is ready", map[string]any{"tables": len(expectedTables)})
	return nil
}
