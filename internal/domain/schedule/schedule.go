// Package schedule описывает расписание занятий и резервации.
package schedule

import "time"

// GymClass — вид занятия из каталога зала (йога, спиннинг и т.п.).
type GymClass struct {
	ID              int64
	Name            string
	Description     string
	DurationMinutes int
	Capacity        int
	Level           string
	Active          bool
}

// ScheduledStatus — статус конкретного занятия в расписании.
type ScheduledStatus string

const (
	ScheduledPlanned   ScheduledStatus = "programada"
	ScheduledCancelled ScheduledStatus = "cancelada"
)

// ScheduledClass — экземпляр занятия в расписании.
type ScheduledClass struct {
	ID              int64
	ClassID         int64
	TrainerID       int64
	StartsAt        time.Time
	DurationMinutes int
	Capacity        int
	Status          ScheduledStatus

	// Заполняются при чтении.
	ClassName   string
	TrainerName string
	Reserved    int
}

// FreeSlots возвращает количество свободных мест.
func (s *ScheduledClass) FreeSlots() int {
	free := s.Capacity - s.Reserved
	if free < 0 {
		return 0
	}
	return free
}

// EndsAt возвращает время окончания занятия.
func (s *ScheduledClass) EndsAt() time.Time {
	return s.StartsAt.Add(time.Duration(s.DurationMinutes) * time.Minute)
}

// Bookable сообщает, можно ли записаться на занятие в момент now.
func (s *ScheduledClass) Bookable(now time.Time) bool {
	return s.Status == ScheduledPlanned && s.StartsAt.After(now)
}

// ReservationStatus — статус резервации.
type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "activa"
	ReservationCancelled ReservationStatus = "cancelada"
	ReservationCompleted ReservationStatus = "completada"
)

// Reservation — запись клиента на занятие.
type Reservation struct {
	ID               int64
	ClientID         int64 // id профиля клиента; 0, если профиль удалён
	UserID           int64
	ScheduledClassID int64
	Status           ReservationStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
