package schedule

import (
	"time"

	domain "gym-app/internal/domain/schedule"
	repo "gym-app/internal/repository/interfaces"
)

// ClassRequest — новое занятие в каталоге.
type ClassRequest struct {
	Name            string `json:"nombre" binding:"required,max=100"`
	Description     string `json:"descripcion"`
	DurationMinutes int    `json:"duracion_minutos" binding:"required,gt=0"`
	Capacity        int    `json:"capacidad_maxima" binding:"required,gt=0"`
	Level           string `json:"nivel" binding:"omitempty,oneof=principiante intermedio avanzado"`
}

// ClassResponse — занятие каталога.
type ClassResponse struct {
	ID              int64  `json:"id"`
	Name            string `json:"nombre"`
	Description     string `json:"descripcion"`
	DurationMinutes int    `json:"duracion_minutos"`
	Capacity        int    `json:"capacidad_maxima"`
	Level           string `json:"nivel,omitempty"`
}

// ScheduleRequest — занятие в расписании. Нулевые длительность и вместимость
// берутся из каталога.
type ScheduleRequest struct {
	ClassID         int64     `json:"clase_id" binding:"required,gt=0"`
	TrainerID       int64     `json:"entrenador_id" binding:"required,gt=0"`
	StartsAt        time.Time `json:"fecha_hora" binding:"required"`
	DurationMinutes int       `json:"duracion_minutos" binding:"gte=0"`
	Capacity        int       `json:"capacidad_maxima" binding:"gte=0"`
}

// ScheduledResponse — занятие в расписании со свободными местами.
type ScheduledResponse struct {
	ID              int64     `json:"id"`
	ClassID         int64     `json:"clase_id"`
	ClassName       string    `json:"clase_nombre"`
	TrainerID       int64     `json:"entrenador_id"`
	TrainerName     string    `json:"entrenador_nombre"`
	StartsAt        time.Time `json:"fecha_hora"`
	EndsAt          time.Time `json:"fecha_fin"`
	DurationMinutes int       `json:"duracion_minutos"`
	Capacity        int       `json:"capacidad_maxima"`
	FreeSlots       int       `json:"plazas_libres"`
	Status          string    `json:"estado"`
}

// ReserveRequest — запись на занятие.
type ReserveRequest struct {
	ScheduledClassID int64 `json:"clase_programada_id" binding:"required,gt=0"`
}

// ReservationResponse — резервация пользователя.
type ReservationResponse struct {
	ID               int64     `json:"id"`
	ScheduledClassID int64     `json:"clase_programada_id"`
	Status           string    `json:"estado"`
	ClassName        string    `json:"clase_nombre,omitempty"`
	TrainerName      string    `json:"entrenador_nombre,omitempty"`
	StartsAt         time.Time `json:"fecha_hora,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

func toClassResponse(c *domain.GymClass) ClassResponse {
	return ClassResponse{
		ID:              c.ID,
		Name:            c.Name,
		Description:     c.Description,
		DurationMinutes: c.DurationMinutes,
		Capacity:        c.Capacity,
		Level:           c.Level,
	}
}

func toScheduledResponse(s *domain.ScheduledClass) ScheduledResponse {
	return ScheduledResponse{
		ID:              s.ID,
		ClassID:         s.ClassID,
		ClassName:       s.ClassName,
		TrainerID:       s.TrainerID,
		TrainerName:     s.TrainerName,
		StartsAt:        s.StartsAt,
		EndsAt:          s.EndsAt(),
		DurationMinutes: s.DurationMinutes,
		Capacity:        s.Capacity,
		FreeSlots:       s.FreeSlots(),
		Status:          string(s.Status),
	}
}

func toReservationResponse(d repo.ReservationDetail) ReservationResponse {
	return ReservationResponse{
		ID:               d.ID,
		ScheduledClassID: d.ScheduledClassID,
		Status:           string(d.Status),
		ClassName:        d.ClassName,
		TrainerName:      d.TrainerName,
		StartsAt:         d.StartsAt,
		CreatedAt:        d.CreatedAt,
	}
}
