package postgres

import (
	"context"
	"database/sql"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gym-app/internal/domain/schedule"
	repo "gym-app/internal/repository/interfaces"
)

type pgGymClass struct {
	ID              int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Name            string `gorm:"column:nombre;type:varchar(100);not null"`
	Description     string `gorm:"column:descripcion;type:text"`
	DurationMinutes int    `gorm:"column:duracion_minutos;not null"`
	Capacity        int    `gorm:"column:capacidad_maxima;not null"`
	Level           string `gorm:"column:nivel;type:varchar(20)"`
	Active          bool   `gorm:"column:activa;not null"`
}

func (pgGymClass) TableName() string {
	return "gym_clases"
}

func (m *pgGymClass) toDomain() *schedule.GymClass {
	return &schedule.GymClass{
		ID:              m.ID,
		Name:            m.Name,
		Description:     m.Description,
		DurationMinutes: m.DurationMinutes,
		Capacity:        m.Capacity,
		Level:           m.Level,
		Active:          m.Active,
	}
}

type pgScheduledClass struct {
	ID              int64     `gorm:"column:id;primaryKey;autoIncrement"`
	ClassID         int64     `gorm:"column:id_clase;not null"`
	TrainerID       int64     `gorm:"column:id_entrenador;not null"`
	StartsAt        time.Time `gorm:"column:fecha_hora;type:timestamptz;not null"`
	DurationMinutes int       `gorm:"column:duracion_minutos;not null"`
	Capacity        int       `gorm:"column:capacidad;not null"`
	Status          string    `gorm:"column:estado;type:varchar(20);not null"`
}

func (pgScheduledClass) TableName() string {
	return "clases_programadas"
}

// scheduledRow — занятие вместе с названием, тренером и числом активных резерваций.
type scheduledRow struct {
	pgScheduledClass
	ClassName   string
	TrainerName string
	Reserved    int
}

func (m *scheduledRow) toDomain() *schedule.ScheduledClass {
	return &schedule.ScheduledClass{
		ID:              m.ID,
		ClassID:         m.ClassID,
		TrainerID:       m.TrainerID,
		StartsAt:        m.StartsAt,
		DurationMinutes: m.DurationMinutes,
		Capacity:        m.Capacity,
		Status:          schedule.ScheduledStatus(m.Status),
		ClassName:       m.ClassName,
		TrainerName:     m.TrainerName,
		Reserved:        m.Reserved,
	}
}

// ScheduleRepository реализует repo.ScheduleRepository.
type ScheduleRepository struct {
	db *gorm.DB
}

var _ repo.ScheduleRepository = (*ScheduleRepository)(nil)

// NewScheduleRepository создаёт репозиторий расписания.
func NewScheduleRepository(db *gorm.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

func (r *ScheduleRepository) ListClasses(ctx context.Context) ([]*schedule.GymClass, error) {
	var models []pgGymClass
	if err := r.db.WithContext(ctx).Where("activa = ?", true).Order("nombre").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*schedule.GymClass, 0, len(models))
	for i := range models {
		out = append(out, models[i].toDomain())
	}
	return out, nil
}

func (r *ScheduleRepository) GetClass(ctx context.Context, id int64) (*schedule.GymClass, error) {
	var model pgGymClass
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.toDomain(), nil
}

func (r *ScheduleRepository) CreateClass(ctx context.Context, c *schedule.GymClass) error {
	model := &pgGymClass{
		Name:            c.Name,
		Description:     c.Description,
		DurationMinutes: c.DurationMinutes,
		Capacity:        c.Capacity,
		Level:           c.Level,
		Active:          c.Active,
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	c.ID = model.ID
	return nil
}

func (r *ScheduleRepository) CreateScheduled(ctx context.Context, s *schedule.ScheduledClass) error {
	model := &pgScheduledClass{
		ClassID:         s.ClassID,
		TrainerID:       s.TrainerID,
		StartsAt:        s.StartsAt,
		DurationMinutes: s.DurationMinutes,
		Capacity:        s.Capacity,
		Status:          string(s.Status),
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isForeignKeyViolation(err) {
			return repo.ErrReferenceViolation
		}
		return err
	}
	s.ID = model.ID
	return nil
}

func (r *ScheduleRepository) scheduledQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("clases_programadas AS cp").
		Select(`cp.*, g.nombre AS class_name, t.name AS trainer_name,
			(SELECT COUNT(*) FROM reservas res
			  WHERE res.id_clase_programada = cp.id AND res.estado = ?) AS reserved`,
			string(schedule.ReservationActive)).
		Joins("JOIN gym_clases g ON g.id = cp.id_clase").
		Joins("JOIN users t ON t.id = cp.id_entrenador")
}

func (r *ScheduleRepository) GetScheduled(ctx context.Context, id int64) (*schedule.ScheduledClass, error) {
	var row scheduledRow
	if err := r.scheduledQuery(ctx).Where("cp.id = ?", id).Take(&row).Error; err != nil {
		return nil, notFound(err)
	}
	return row.toDomain(), nil
}

// GetScheduledForUpdate блокирует строку занятия, чтобы резервации одного занятия
// выполнялись последовательно и не превышали вместимость.
func (r *ScheduleRepository) GetScheduledForUpdate(ctx context.Context, id int64) (*schedule.ScheduledClass, error) {
	var locked pgScheduledClass
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Take(&locked).Error
	if err != nil {
		return nil, notFound(err)
	}
	return r.GetScheduled(ctx, id)
}

func (r *ScheduleRepository) ListUpcoming(ctx context.Context, from time.Time) ([]*schedule.ScheduledClass, error) {
	var rows []scheduledRow
	err := r.scheduledQuery(ctx).
		Where("cp.estado = ? AND cp.fecha_hora > ?", string(schedule.ScheduledPlanned), from).
		Order("cp.fecha_hora").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]*schedule.ScheduledClass, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

func (r *ScheduleRepository) UpdateScheduledStatus(ctx context.Context, id int64, status schedule.ScheduledStatus) error {
	result := r.db.WithContext(ctx).
		Model(&pgScheduledClass{}).
		Where("id = ?", id).
		Update("estado", string(status))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

type pgReservation struct {
	ID               int64         `gorm:"column:id;primaryKey;autoIncrement"`
	ClientID         sql.NullInt64 `gorm:"column:id_cliente"`
	UserID           int64         `gorm:"column:id_usuario;not null"`
	ScheduledClassID int64         `gorm:"column:id_clase_programada;not null"`
	Status           string        `gorm:"column:estado;type:varchar(20);not null"`
	CreatedAt        time.Time     `gorm:"column:created_at;type:timestamptz;not null"`
	UpdatedAt        time.Time     `gorm:"column:updated_at;type:timestamptz;not null"`
}

func (pgReservation) TableName() string {
	return "reservas"
}

func (m *pgReservation) toDomain() *schedule.Reservation {
	return &schedule.Reservation{
		ID:               m.ID,
		ClientID:         m.ClientID.Int64,
		UserID:           m.UserID,
		ScheduledClassID: m.ScheduledClassID,
		Status:           schedule.ReservationStatus(m.Status),
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// ReservationRepository реализует repo.ReservationRepository.
type ReservationRepository struct {
	db *gorm.DB
}

var _ repo.ReservationRepository = (*ReservationRepository)(nil)

// NewReservationRepository создаёт репозиторий резерваций.
func NewReservationRepository(db *gorm.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

func (r *ReservationRepository) Create(ctx context.Context, res *schedule.Reservation) error {
	if res.Status == "" {
		res.Status = schedule.ReservationActive
	}
	now := time.Now().UTC()
	model := &pgReservation{
		ClientID:         sql.NullInt64{Int64: res.ClientID, Valid: res.ClientID != 0},
		UserID:           res.UserID,
		ScheduledClassID: res.ScheduledClassID,
		Status:           string(res.Status),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		switch {
		case isUniqueViolation(err, constraintReservaActiva):
			return repo.ErrReservationExists
		case isForeignKeyViolation(err):
			return repo.ErrReferenceViolation
		}
		return err
	}
	res.ID = model.ID
	res.CreatedAt, res.UpdatedAt = now, now
	return nil
}

func (r *ReservationRepository) GetByID(ctx context.Context, id int64) (*schedule.Reservation, error) {
	var model pgReservation
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.toDomain(), nil
}

func (r *ReservationRepository) UpdateStatus(ctx context.Context, id int64, status schedule.ReservationStatus) error {
	result := r.db.WithContext(ctx).
		Model(&pgReservation{}).
		Where("id = ?", id).
		Updates(map[string]any{"estado": string(status), "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *ReservationRepository) CountActiveByUserID(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&pgReservation{}).
		Where("id_usuario = ? AND estado = ?", userID, string(schedule.ReservationActive)).
		Count(&n).Error
	return n, err
}

func (r *ReservationRepository) CancelActiveByScheduledID(ctx context.Context, scheduledID int64) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&pgReservation{}).
		Where("id_clase_programada = ? AND estado = ?", scheduledID, string(schedule.ReservationActive)).
		Updates(map[string]any{
			"estado":     string(schedule.ReservationCancelled),
			"updated_at": time.Now().UTC(),
		})
	return result.RowsAffected, result.Error
}

type reservationDetailRow struct {
	pgReservation
	ClassName   string
	TrainerName string
	StartsAt    time.Time
}

func (r *ReservationRepository) ListByUserID(ctx context.Context, userID int64) ([]repo.ReservationDetail, error) {
	var rows []reservationDetailRow
	err := r.db.WithContext(ctx).
		Table("reservas AS res").
		Select(`res.*, g.nombre AS class_name, t.name AS trainer_name, cp.fecha_hora AS starts_at`).
		Joins("JOIN clases_programadas cp ON cp.id = res.id_clase_programada").
		Joins("JOIN gym_clases g ON g.id = cp.id_clase").
		Joins("JOIN users t ON t.id = cp.id_entrenador").
		Where("res.id_usuario = ?", userID).
		Order("cp.fecha_hora DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]repo.ReservationDetail, 0, len(rows))
	for i := range rows {
		out = append(out, repo.ReservationDetail{
			Reservation: *rows[i].toDomain(),
			ClassName:   rows[i].ClassName,
			TrainerName: rows[i].TrainerName,
			StartsAt:    rows[i].StartsAt,
		})
	}
	return out, nil
}
