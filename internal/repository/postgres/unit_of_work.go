package postgres

import (
	"context"

	"gorm.io/gorm"

	repo "gym-app/internal/repository/interfaces"
)

// NewRepositories собирает набор репозиториев поверх одного *gorm.DB
// (подключения или транзакции).
func NewRepositories(db *gorm.DB) repo.Repositories {
	return repo.Repositories{
		Users:        NewUserRepository(db),
		AuthTokens:   NewAuthTokenRepository(db),
		Plans:        NewPlanRepository(db),
		Clients:      NewClientRepository(db),
		Assignments:  NewAssignmentRepository(db),
		Schedule:     NewScheduleRepository(db),
		Reservations: NewReservationRepository(db),
	}
}

// UnitOfWork реализует repo.UnitOfWork на транзакциях GORM.
type UnitOfWork struct {
	db *gorm.DB
}

var _ repo.UnitOfWork = (*UnitOfWork)(nil)

// NewUnitOfWork создаёт UnitOfWork.
func NewUnitOfWork(db *gorm.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

// Do открывает транзакцию, выполняет fn и фиксирует её. Любая ошибка fn
// (или паника) откатывает транзакцию. Отмена ctx прерывает транзакцию.
func (u *UnitOfWork) Do(ctx context.Context, fn func(r repo.Repositories) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}
