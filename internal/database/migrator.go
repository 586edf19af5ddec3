package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq" // PostgreSQL driver

	"gym-app/internal/database/migrations"
	"gym-app/pkg/logger"
)

var (
	// ErrNoChange возвращается, когда нет миграций для применения.
	ErrNoChange = errors.New("no change")

	// ErrDirtyState означает, что миграция была прервана и требует ручного вмешательства.
	ErrDirtyState = errors.New("database is in dirty state")
)

// Migrator управляет версиями схемы через golang-migrate и встроенные SQL-файлы.
type Migrator struct {
	m   *migrate.Migrate
	log logger.Logger
}

// NewMigratorFromDSN создаёт мигратор с собственным подключением через lib/pq.
// Close мигратора закрывает это подключение.
func NewMigratorFromDSN(dsn string, log logger.Logger) (*Migrator, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create postgres driver: %w", err)
	}

	source, err := iofs.New(migrations.Migrations, ".")
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open migrations source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}
	return &Migrator{m: m, log: log}, nil
}

// Close освобождает источник и подключение мигратора.
func (m *Migrator) Close() error {
	sourceErr, dbErr := m.m.Close()
	if sourceErr != nil {
		return fmt.Errorf("close migrations source: %w", sourceErr)
	}
	if dbErr != nil {
		return fmt.Errorf("close migrations database: %w", dbErr)
	}
	return nil
}

func mapMigrateErr(op string, err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		return ErrNoChange
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Up применяет все доступные миграции.
func (m *Migrator) Up() error {
	if err := m.m.Up(); err != nil {
		return mapMigrateErr("migrate up", err)
	}
	m.log.Info("migrations applied", nil)
	return nil
}

// Down откатывает последнюю применённую миграцию.
func (m *Migrator) Down() error {
	if err := m.m.Steps(-1); err != nil {
		return mapMigrateErr("migrate down", err)
	}
	m.log.Info("last migration rolled back", nil)
	return nil
}

// Steps применяет (n > 0) или откатывает (n < 0) n миграций.
func (m *Migrator) Steps(n int) error {
	if err := m.m.Steps(n); err != nil {
		return mapMigrateErr(fmt.Sprintf("migrate %d steps", n), err)
	}
	m.log.Info("migration steps applied", map[string]any{"steps": n})
	return nil
}

// Version возвращает текущую версию схемы. Без миграций версия 0.
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get migration version: %w", err)
	}
	return version, dirty, nil
}

// Force выставляет версию без применения миграций. Только для ручного
// восстановления после ErrDirtyState.
func (m *Migrator) Force(version int) error {
	if err := m.m.Force(version); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}
	m.log.Warn("migration version forced", map[string]any{"version": version})
	return nil
}

// CheckDirty возвращает ErrDirtyState, если последняя миграция была прервана.
func (m *Migrator) CheckDirty() error {
	_, dirty, err := m.Version()
	if err != nil {
		return err
	}
	if dirty {
		return ErrDirtyState
	}
	return nil
}

// UpOrNoChange применяет миграции, считая отсутствие изменений успехом.
func (m *Migrator) UpOrNoChange() error {
	if err := m.CheckDirty(); err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, ErrNoChange) {
		return err
	}
	return nil
}
