package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"gym-app/internal/domain/membership"
	repo "gym-app/internal/repository/interfaces"
)

// pgClient — ORM-модель таблицы clientes.
type pgClient struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	UserID     int64     `gorm:"column:id_usuario;not null"`
	DNI        string    `gorm:"column:dni;type:varchar(9);not null"`
	Phone      string    `gorm:"column:numero_telefono;type:varchar(20);not null"`
	PlanID     int64     `gorm:"column:plan_id;not null"`
	BirthDate  time.Time `gorm:"column:fecha_nacimiento;type:date;not null"`
	Gender     string    `gorm:"column:genero;type:varchar(20);not null"`
	CardNumber string    `gorm:"column:num_tarjeta;type:varchar(19);not null"`
	CardExpiry string    `gorm:"column:fecha_tarjeta;type:varchar(7);not null"`
	EnrolledAt time.Time `gorm:"column:fecha_inscripcion;type:timestamptz;not null"`
	Status     string    `gorm:"column:estado;type:varchar(20);not null"`
}

func (pgClient) TableName() string {
	return "clientes"
}

func (m *pgClient) toDomain() *membership.Client {
	return &membership.Client{
		ID:         m.ID,
		UserID:     m.UserID,
		DNI:        m.DNI,
		Phone:      m.Phone,
		PlanID:     m.PlanID,
		BirthDate:  m.BirthDate,
		Gender:     m.Gender,
		CardNumber: m.CardNumber,
		CardExpiry: m.CardExpiry,
		EnrolledAt: m.EnrolledAt,
		Status:     membership.ClientStatus(m.Status),
	}
}

func clientFromDomain(c *membership.Client) *pgClient {
	return &pgClient{
		ID:         c.ID,
		UserID:     c.UserID,
		DNI:        c.DNI,
		Phone:      c.Phone,
		PlanID:     c.PlanID,
		BirthDate:  c.BirthDate,
		Gender:     c.Gender,
		CardNumber: c.CardNumber,
		CardExpiry: c.CardExpiry,
		EnrolledAt: c.EnrolledAt,
		Status:     string(c.Status),
	}
}

// ClientRepository реализует repo.ClientRepository.
type ClientRepository struct {
	db *gorm.DB
}

var _ repo.ClientRepository = (*ClientRepository)(nil)

// NewClientRepository создаёт репозиторий профилей клиентов.
func NewClientRepository(db *gorm.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

func mapClientWriteError(err error) error {
	switch {
	case isUniqueViolation(err, constraintClientesDNI):
		return repo.ErrDNIExists
	case isUniqueViolation(err, constraintClientesUsuario):
		return repo.ErrClientExists
	case isForeignKeyViolation(err):
		return repo.ErrReferenceViolation
	}
	return err
}

func (r *ClientRepository) Create(ctx context.Context, c *membership.Client) error {
	model := clientFromDomain(c)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return mapClientWriteError(err)
	}
	c.ID = model.ID
	return nil
}

func (r *ClientRepository) GetByUserID(ctx context.Context, userID int64) (*membership.Client, error) {
	var model pgClient
	if err := r.db.WithContext(ctx).Where("id_usuario = ?", userID).Take(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.toDomain(), nil
}

func (r *ClientRepository) Update(ctx context.Context, c *membership.Client) error {
	result := r.db.WithContext(ctx).
		Model(&pgClient{}).
		Where("id = ?", c.ID).
		Updates(map[string]any{
			"dni":              c.DNI,
			"numero_telefono":  c.Phone,
			"plan_id":          c.PlanID,
			"fecha_nacimiento": c.BirthDate,
			"genero":           c.Gender,
			"num_tarjeta":      c.CardNumber,
			"fecha_tarjeta":    c.CardExpiry,
			"estado":           string(c.Status),
		})
	if result.Error != nil {
		return mapClientWriteError(result.Error)
	}
	if result.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *ClientRepository) DeleteByUserID(ctx context.Context, userID int64) error {
	result := r.db.WithContext(ctx).Where("id_usuario = ?", userID).Delete(&pgClient{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *ClientRepository) ExistsByDNI(ctx context.Context, dni string, excludeUserID int64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&pgClient{}).
		Where("dni = ? AND id_usuario <> ?", dni, excludeUserID).
		Count(&n).Error
	return n > 0, err
}

func (r *ClientRepository) List(ctx context.Context) ([]*membership.Client, error) {
	var models []pgClient
	if err := r.db.WithContext(ctx).Order("id").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*membership.Client, 0, len(models))
	for i := range models {
		out = append(out, models[i].toDomain())
	}
	return out, nil
}

func (r *ClientRepository) CountActive(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&pgClient{}).
		Where("estado = ?", string(membership.ClientActive)).
		Count(&n).Error
	return n, err
}
