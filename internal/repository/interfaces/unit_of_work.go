package interfaces

import "context"

// Repositories — набор репозиториев, привязанных к одному подключению или транзакции.
type Repositories struct {
	Users        UserRepository
	AuthTokens   AuthTokenRepository
	Plans        PlanRepository
	Clients      ClientRepository
	Assignments  AssignmentRepository
	Schedule     ScheduleRepository
	Reservations ReservationRepository
}

// UnitOfWork выполняет fn в одной транзакции.
//
// Репозитории, переданные в fn, работают внутри транзакции. Если fn возвращает ошибку,
// все изменения откатываются и ошибка возвращается без изменений.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(r Repositories) error) error
}
