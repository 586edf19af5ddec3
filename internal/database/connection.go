package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"gym-app/internal/config"
	"gym-app/pkg/logger"
)

// Значения пула соединений по умолчанию.
const (
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 5 * time.Minute
	defaultConnMaxIdleTime = 10 * time.Minute
)

// DB представляет подключение к базе данных.
type DB struct {
	*gorm.DB
	log logger.Logger
}

// NewConnection открывает подключение к PostgreSQL и настраивает пул.
// В development GORM логирует все SQL-запросы.
//
//	db, err := database.NewConnection(&cfg.Database, cfg.AppEnv, log)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
func NewConnection(cfg *config.DatabaseConfig, appEnv string, log logger.Logger) (*DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is nil")
	}
	return Open(cfg.DSN(), cfg, appEnv, log)
}

// Open подключается по готовому DSN. Параметры пула берутся из cfg, если он задан.
func Open(dsn string, cfg *config.DatabaseConfig, appEnv string, log logger.Logger) (*DB, error) {
	gormLogger := gormlogger.Default.LogMode(gormlogger.Warn)
	if appEnv == "development" {
		gormLogger = gormlogger.Default.LogMode(gormlogger.Info)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}

	var pool config.DatabaseConfig
	if cfg != nil {
		pool = *cfg
	}
	sqlDB.SetMaxOpenConns(orDefault(pool.MaxOpenConns, defaultMaxOpenConns))
	sqlDB.SetMaxIdleConns(orDefault(pool.MaxIdleConns, defaultMaxIdleConns))
	sqlDB.SetConnMaxLifetime(orDefault(pool.ConnMaxLifetime, defaultConnMaxLifetime))
	sqlDB.SetConnMaxIdleTime(orDefault(pool.ConnMaxIdleTime, defaultConnMaxIdleTime))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Info("database connected", map[string]any{"max_open_conns": pool.MaxOpenConns})
	return &DB{DB: db, log: log}, nil
}

func orDefault[T int | time.Duration](v, def T) T {
	if v == 0 {
		return def
	}
	return v
}

// Close закрывает пул соединений.
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	db.log.Info("database connection closed", nil)
	return nil
}

// Ping проверяет доступность базы данных. Используется health-check'ом.
func (db *DB) Ping(ctx context.Context) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}
