package interfaces

import (
	"context"
	"time"

	"gym-app/internal/domain/schedule"
)

// ScheduleRepository — каталог занятий и расписание.
type ScheduleRepository interface {
	ListClasses(ctx context.Context) ([]*schedule.GymClass, error)
	GetClass(ctx context.Context, id int64) (*schedule.GymClass, error)
	CreateClass(ctx context.Context, class *schedule.GymClass) error

	CreateScheduled(ctx context.Context, s *schedule.ScheduledClass) error

	// GetScheduled возвращает занятие с количеством активных резерваций.
	GetScheduled(ctx context.Context, id int64) (*schedule.ScheduledClass, error)

	// GetScheduledForUpdate то же, что GetScheduled, но блокирует строку занятия.
	GetScheduledForUpdate(ctx context.Context, id int64) (*schedule.ScheduledClass, error)

	// ListUpcoming возвращает запланированные занятия, начинающиеся после from.
	ListUpcoming(ctx context.Context, from time.Time) ([]*schedule.ScheduledClass, error)

	UpdateScheduledStatus(ctx context.Context, id int64, status schedule.ScheduledStatus) error
}

// ReservationDetail — резервация вместе с данными занятия.
type ReservationDetail struct {
	schedule.Reservation
	ClassName   string
	TrainerName string
	StartsAt    time.Time
}

// ReservationRepository — записи клиентов на занятия.
type ReservationRepository interface {
	// Create создаёт резервацию. Возвращает ErrReservationExists, если у пользователя
	// уже есть активная запись на это занятие.
	Create(ctx context.Context, r *schedule.Reservation) error

	GetByID(ctx context.Context, id int64) (*schedule.Reservation, error)

	UpdateStatus(ctx context.Context, id int64, status schedule.ReservationStatus) error

	// CountActiveByUserID возвращает количество активных резерваций пользователя.
	CountActiveByUserID(ctx context.Context, userID int64) (int64, error)

	// CancelActiveByScheduledID отменяет все активные резервации занятия.
	CancelActiveByScheduledID(ctx context.Context, scheduledID int64) (int64, error)

	ListByUserID(ctx context.Context, userID int64) ([]ReservationDetail, error)
}
