// Package schedule реализует расписание занятий и резервации клиентов.
package schedule

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gym-app/internal/apperr"
	domain "gym-app/internal/domain/schedule"
	"gym-app/internal/domain/user"
	repo "gym-app/internal/repository/interfaces"
	"gym-app/pkg/logger"
)

// Recorder принимает изменения статусов резерваций для метрик.
type Recorder interface {
	ReservationChanged(status string, n int64)
}

// Service описывает операции с расписанием и резервациями.
type Service interface {
	ListClasses(ctx context.Context) ([]*domain.GymClass, error)
	CreateClass(ctx context.Context, in ClassInput) (*domain.GymClass, error)

	// ScheduleClass ставит занятие в расписание. Длительность и вместимость
	// по умолчанию берутся из каталога.
	ScheduleClass(ctx context.Context, in ScheduleInput) (*domain.ScheduledClass, error)
	ListUpcoming(ctx context.Context) ([]*domain.ScheduledClass, error)
	// CancelScheduled отменяет занятие вместе с активными резервациями.
	CancelScheduled(ctx context.Context, id int64) error

	// Reserve записывает клиента на занятие.
	Reserve(ctx context.Context, userID, scheduledID int64) (*domain.Reservation, error)
	// CancelReservation отменяет собственную резервацию пользователя.
	CancelReservation(ctx context.Context, userID, reservationID int64) error
	ListReservations(ctx context.Context, userID int64) ([]repo.ReservationDetail, error)
	// MarkAttendance отмечает посещение: activa → completada.
	MarkAttendance(ctx context.Context, reservationID int64) error
}

// ClassInput — новое занятие в каталоге.
type ClassInput struct {
	Name            string
	Description     string
	DurationMinutes int
	Capacity        int
	Level           string
}

// ScheduleInput — экземпляр занятия в расписании.
type ScheduleInput struct {
	ClassID         int64
	TrainerID       int64
	StartsAt        time.Time
	DurationMinutes int
	Capacity        int
}

type service struct {
	repos repo.Repositories
	uow   repo.UnitOfWork
	log   logger.Logger
	rec   Recorder
	now   func() time.Time
}

// NewService создаёт сервис расписания. rec может быть nil.
func NewService(repos repo.Repositories, uow repo.UnitOfWork, log logger.Logger, rec Recorder) Service {
	if rec == nil {
		rec = nopRecorder{}
	}
	return &service{
		repos: repos,
		uow:   uow,
		log:   log,
		rec:   rec,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

type nopRecorder struct{}

func (nopRecorder) ReservationChanged(string, int64) {}

func (s *service) ListClasses(ctx context.Context) ([]*domain.GymClass, error) {
	return s.repos.Schedule.ListClasses(ctx)
}

func (s *service) CreateClass(ctx context.Context, in ClassInput) (*domain.GymClass, error) {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return nil, apperr.Field("nombre", "is required")
	case in.DurationMinutes <= 0:
		return nil, apperr.Field("duracion_minutos", "must be positive")
	case in.Capacity <= 0:
		return nil, apperr.Field("capacidad_maxima", "must be positive")
	}
	c := &domain.GymClass{
		Name:            strings.TrimSpace(in.Name),
		Description:     in.Description,
		DurationMinutes: in.DurationMinutes,
		Capacity:        in.Capacity,
		Level:           in.Level,
		Active:          true,
	}
	if err := s.repos.Schedule.CreateClass(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *service) ScheduleClass(ctx context.Context, in ScheduleInput) (*domain.ScheduledClass, error) {
	if !in.StartsAt.After(s.now()) {
		return nil, apperr.Field("fecha_hora", "must be in the future")
	}
	if in.DurationMinutes < 0 || in.Capacity < 0 {
		return nil, apperr.Field("capacidad_maxima", "must not be negative")
	}

	class, err := s.repos.Schedule.GetClass(ctx, in.ClassID)
	if err != nil {
		return nil, fmt.Errorf("class %d: %w", in.ClassID, err)
	}
	if !class.Active {
		return nil, apperr.InvalidState("class %d is not active", in.ClassID)
	}
	trainer, err := s.repos.Users.GetByID(ctx, in.TrainerID)
	if err != nil {
		return nil, fmt.Errorf("trainer %d: %w", in.TrainerID, err)
	}
	if trainer.Role != user.RoleEntrenador {
		return nil, apperr.InvalidState("user %d is not a trainer", in.TrainerID)
	}

	sc := &domain.ScheduledClass{
		ClassID:         class.ID,
		TrainerID:       trainer.ID,
		StartsAt:        in.StartsAt.UTC(),
		DurationMinutes: in.DurationMinutes,
		Capacity:        in.Capacity,
		Status:          domain.ScheduledPlanned,
		ClassName:       class.Name,
		TrainerName:     trainer.Name,
	}
	if sc.DurationMinutes == 0 {
		sc.DurationMinutes = class.DurationMinutes
	}
	if sc.Capacity == 0 {
		sc.Capacity = class.Capacity
	}
	if err := s.repos.Schedule.CreateScheduled(ctx, sc); err != nil {
		return nil, err
	}

	s.log.Info("class scheduled", map[string]any{
		"scheduled_id": sc.ID, "class_id": sc.ClassID, "trainer_id": sc.TrainerID,
	})
	return sc, nil
}

func (s *service) ListUpcoming(ctx context.Context) ([]*domain.ScheduledClass, error) {
	return s.repos.Schedule.ListUpcoming(ctx, s.now())
}

func (s *service) CancelScheduled(ctx context.Context, id int64) error {
	var cancelled int64
	err := s.uow.Do(ctx, func(r repo.Repositories) error {
		sc, err := r.Schedule.GetScheduledForUpdate(ctx, id)
		if err != nil {
			return fmt.Errorf("scheduled class %d: %w", id, err)
		}
		if sc.Status == domain.ScheduledCancelled {
			return apperr.InvalidState("scheduled class %d is already cancelled", id)
		}
		if err := r.Schedule.UpdateScheduledStatus(ctx, id, domain.ScheduledCancelled); err != nil {
			return err
		}
		cancelled, err = r.Reservations.CancelActiveByScheduledID(ctx, id)
		return err
	})
	if err != nil {
		return err
	}

	s.rec.ReservationChanged(string(domain.ReservationCancelled), cancelled)
	s.log.Info("scheduled class cancelled", map[string]any{"scheduled_id": id, "reservations_cancelled": cancelled})
	return nil
}

// Reserve проверяет роль, лимит плана и свободные места под блокировкой
// строки занятия, чтобы параллельные записи не превысили вместимость.
func (s *service) Reserve(ctx context.Context, userID, scheduledID int64) (*domain.Reservation, error) {
	var res *domain.Reservation
	err := s.uow.Do(ctx, func(r repo.Repositories) error {
		u, err := r.Users.GetByIDForUpdate(ctx, userID)
		if err != nil {
			return fmt.Errorf("user %d: %w", userID, err)
		}
		if u.Role != user.RoleCliente {
			return apperr.InvalidState("only clients can reserve classes")
		}
		client, err := r.Clients.GetByUserID(ctx, userID)
		if err != nil {
			return fmt.Errorf("client profile of user %d: %w", userID, err)
		}
		plan, err := r.Plans.GetByID(ctx, client.PlanID)
		if err != nil {
			return fmt.Errorf("plan %d: %w", client.PlanID, err)
		}
		if plan.ClassLimit != nil {
			active, err := r.Reservations.CountActiveByUserID(ctx, userID)
			if err != nil {
				return err
			}
			if active >= int64(*plan.ClassLimit) {
				return apperr.Forbidden("plan %q allows %d active reservations", plan.Name, *plan.ClassLimit)
			}
		}

		sc, err := r.Schedule.GetScheduledForUpdate(ctx, scheduledID)
		if err != nil {
			return fmt.Errorf("scheduled class %d: %w", scheduledID, err)
		}
		if !sc.Bookable(s.now()) {
			return apperr.InvalidState("scheduled class %d is not open for reservations", scheduledID)
		}
		if sc.FreeSlots() == 0 {
			return apperr.Conflict("scheduled class %d is full", scheduledID)
		}

		res = &domain.Reservation{
			ClientID:         client.ID,
			UserID:           userID,
			ScheduledClassID: scheduledID,
			Status:           domain.ReservationActive,
		}
		return r.Reservations.Create(ctx, res)
	})
	if err != nil {
		return nil, err
	}

	s.rec.ReservationChanged(string(domain.ReservationActive), 1)
	s.log.Info("class reserved", map[string]any{"reservation_id": res.ID, "user_id": userID, "scheduled_id": scheduledID})
	return res, nil
}

func (s *service) CancelReservation(ctx context.Context, userID, reservationID int64) error {
	err := s.transition(ctx, reservationID, func(res *domain.Reservation) error {
		if res.UserID != userID {
			return apperr.Forbidden("reservation %d belongs to another user", reservationID)
		}
		return nil
	}, domain.ReservationCancelled)
	if err != nil {
		return err
	}
	s.log.Info("reservation cancelled", map[string]any{"reservation_id": reservationID, "user_id": userID})
	return nil
}

func (s *service) MarkAttendance(ctx context.Context, reservationID int64) error {
	return s.transition(ctx, reservationID, nil, domain.ReservationCompleted)
}

// transition переводит активную резервацию в новый статус.
func (s *service) transition(ctx context.Context, id int64, check func(*domain.Reservation) error, to domain.ReservationStatus) error {
	err := s.uow.Do(ctx, func(r repo.Repositories) error {
		res, err := r.Reservations.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("reservation %d: %w", id, err)
		}
		if check != nil {
			if err := check(res); err != nil {
				return err
			}
		}
		if res.Status != domain.ReservationActive {
			return apperr.InvalidState("reservation %d is %s", id, res.Status)
		}
		return r.Reservations.UpdateStatus(ctx, id, to)
	})
	if err != nil {
		return err
	}
	s.rec.ReservationChanged(string(to), 1)
	return nil
}

func (s *service) ListReservations(ctx context.Context, userID int64) ([]repo.ReservationDetail, error) {
	return s.repos.Reservations.ListByUserID(ctx, userID)
}
