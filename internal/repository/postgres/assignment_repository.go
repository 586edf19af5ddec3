package postgres

import (
	"context"
	"database/sql"
	"time"

	"gorm.io/gorm"

	"gym-app/internal/domain/membership"
	repo "gym-app/internal/repository/interfaces"
)

// pgAssignment — ORM-модель таблицы entrenador_cliente_asignaciones.
// id_cliente обнуляется (ON DELETE SET NULL) при удалении профиля клиента,
// id_usuario_cliente остаётся для истории.
type pgAssignment struct {
	ID           int64         `gorm:"column:id;primaryKey;autoIncrement"`
	TrainerID    int64         `gorm:"column:id_entrenador;not null"`
	ClientID     sql.NullInt64 `gorm:"column:id_cliente"`
	ClientUserID int64         `gorm:"column:id_usuario_cliente;not null"`
	AssignedAt   time.Time     `gorm:"column:fecha_asignacion;type:timestamptz;not null"`
	Status       string        `gorm:"column:estado;type:varchar(20);not null"`
	Notes        string        `gorm:"column:notas;type:text"`
}

func (pgAssignment) TableName() string {
	return "entrenador_cliente_asignaciones"
}

func (m *pgAssignment) toDomain() *membership.TrainerAssignment {
	return &membership.TrainerAssignment{
		ID:           m.ID,
		TrainerID:    m.TrainerID,
		ClientID:     m.ClientID.Int64,
		ClientUserID: m.ClientUserID,
		AssignedAt:   m.AssignedAt,
		Status:       membership.AssignmentStatus(m.Status),
		Notes:        m.Notes,
	}
}

// AssignmentRepository реализует repo.AssignmentRepository.
type AssignmentRepository struct {
	db *gorm.DB
}

var _ repo.AssignmentRepository = (*AssignmentRepository)(nil)

// NewAssignmentRepository создаёт репозиторий назначений тренеров.
func NewAssignmentRepository(db *gorm.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// Create вставляет назначение. Частичный уникальный индекс
// uq_asignaciones_cliente_activa разрешает гонку двух одновременных назначений.
func (r *AssignmentRepository) Create(ctx context.Context, a *membership.TrainerAssignment) error {
	if a.Status == "" {
		a.Status = membership.AssignmentActive
	}
	model := &pgAssignment{
		TrainerID:    a.TrainerID,
		ClientID:     sql.NullInt64{Int64: a.ClientID, Valid: a.ClientID != 0},
		ClientUserID: a.ClientUserID,
		AssignedAt:   a.AssignedAt,
		Status:       string(a.Status),
		Notes:        a.Notes,
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		switch {
		case isUniqueViolation(err, constraintAsignacionActiva):
			return repo.ErrActiveAssignmentExists
		case isForeignKeyViolation(err):
			return repo.ErrReferenceViolation
		}
		return err
	}
	a.ID = model.ID
	return nil
}

func (r *AssignmentRepository) GetByID(ctx context.Context, id int64) (*membership.TrainerAssignment, error) {
	var model pgAssignment
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.toDomain(), nil
}

func (r *AssignmentRepository) GetActiveByClientUserID(ctx context.Context, clientUserID int64) (*membership.TrainerAssignment, error) {
	var model pgAssignment
	err := r.db.WithContext(ctx).
		Where("id_usuario_cliente = ? AND estado = ?", clientUserID, string(membership.AssignmentActive)).
		Take(&model).Error
	if err != nil {
		return nil, notFound(err)
	}
	return model.toDomain(), nil
}

func (r *AssignmentRepository) deactivate(ctx context.Context, query string, args ...any) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&pgAssignment{}).
		Where("estado = ?", string(membership.AssignmentActive)).
		Where(query, args...).
		Update("estado", string(membership.AssignmentInactive))
	return result.RowsAffected, result.Error
}

func (r *AssignmentRepository) Deactivate(ctx context.Context, id int64) error {
	n, err := r.deactivate(ctx, "id = ?", id)
	if err != nil {
		return err
	}
	if n == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *AssignmentRepository) DeactivateByClientUserID(ctx context.Context, clientUserID int64) (int64, error) {
	return r.deactivate(ctx, "id_usuario_cliente = ?", clientUserID)
}

func (r *AssignmentRepository) DeactivateByTrainerID(ctx context.Context, trainerID int64) (int64, error) {
	return r.deactivate(ctx, "id_entrenador = ?", trainerID)
}

type activeAssignmentRow struct {
	AssignmentID  int64
	TrainerID     int64
	TrainerName   string
	AssignedAt    time.Time
	Notes         string
	UserID        int64
	ClientID      int64
	Name          string
	Email         string
	PlanID        int64
	PlanName      string
	TrainerAccess bool
}

func (r *AssignmentRepository) ListActive(ctx context.Context) ([]repo.ActiveAssignment, error) {
	var rows []activeAssignmentRow
	err := r.db.WithContext(ctx).
		Table("entrenador_cliente_asignaciones AS a").
		Select(`a.id AS assignment_id, a.id_entrenador AS trainer_id, t.name AS trainer_name,
			a.fecha_asignacion AS assigned_at, a.notas AS notes,
			c.id_usuario AS user_id, c.id AS client_id, u.name, u.email,
			p.id AS plan_id, p.nombre AS plan_name, p.acceso_entrenador AS trainer_access`).
		Joins("JOIN users t ON t.id = a.id_entrenador").
		Joins("JOIN clientes c ON c.id = a.id_cliente").
		Joins("JOIN users u ON u.id = c.id_usuario").
		Joins("JOIN planes p ON p.id = c.plan_id").
		Where("a.estado = ?", string(membership.AssignmentActive)).
		Order("t.name, a.id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]repo.ActiveAssignment, 0, len(rows))
	for _, row := range rows {
		out = append(out, repo.ActiveAssignment{
			AssignmentID: row.AssignmentID,
			TrainerID:    row.TrainerID,
			TrainerName:  row.TrainerName,
			AssignedAt:   row.AssignedAt,
			Notes:        row.Notes,
			Client: repo.ClientSummary{
				UserID:        row.UserID,
				ClientID:      row.ClientID,
				Name:          row.Name,
				Email:         row.Email,
				PlanID:        row.PlanID,
				PlanName:      row.PlanName,
				TrainerAccess: row.TrainerAccess,
			},
		})
	}
	return out, nil
}

func (r *AssignmentRepository) ListUnassignedClients(ctx context.Context) ([]repo.ClientSummary, error) {
	var out []repo.ClientSummary
	err := r.db.WithContext(ctx).
		Table("clientes AS c").
		Select(`c.id_usuario AS user_id, c.id AS client_id, u.name, u.email,
			p.id AS plan_id, p.nombre AS plan_name, p.acceso_entrenador AS trainer_access`).
		Joins("JOIN users u ON u.id = c.id_usuario").
		Joins("JOIN planes p ON p.id = c.plan_id").
		Where("c.estado = ? AND p.acceso_entrenador", string(membership.ClientActive)).
		Where(`NOT EXISTS (SELECT 1 FROM entrenador_cliente_asignaciones a
			WHERE a.id_usuario_cliente = c.id_usuario AND a.estado = ?)`, string(membership.AssignmentActive)).
		Order("u.name").
		Scan(&out).Error
	return out, err
}
