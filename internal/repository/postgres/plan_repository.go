package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"gym-app/internal/domain/membership"
	repo "gym-app/internal/repository/interfaces"
)

// pgPlan — ORM-модель таблицы planes.
type pgPlan struct {
	ID                 int64          `gorm:"column:id;primaryKey;autoIncrement"`
	Name               string         `gorm:"column:nombre;type:varchar(100);not null"`
	Description        string         `gorm:"column:descripcion;type:text"`
	MonthlyPrice       float64        `gorm:"column:precio_mensual;type:numeric(10,2);not null"`
	AnnualPrice        *float64       `gorm:"column:precio_anual;type:numeric(10,2)"`
	DurationMonths     int            `gorm:"column:duracion_meses;not null"`
	Features           datatypes.JSON `gorm:"column:caracteristicas;type:jsonb"`
	ClassLimit         *int           `gorm:"column:limite_clases"`
	NutritionistAccess bool           `gorm:"column:acceso_nutricionista;not null"`
	TrainerAccess      bool           `gorm:"column:acceso_entrenador;not null"`
	PremiumAreasAccess bool           `gorm:"column:acceso_areas_premium;not null"`
	Popular            bool           `gorm:"column:popular;not null"`
	Active             bool           `gorm:"column:activo;not null"`
	ThemeColor         string         `gorm:"column:color_tema;type:varchar(20)"`
	DisplayOrder       int            `gorm:"column:orden_display;not null"`
	CreatedAt          time.Time      `gorm:"column:created_at;type:timestamptz;not null"`
	UpdatedAt          time.Time      `gorm:"column:updated_at;type:timestamptz;not null"`
}

func (pgPlan) TableName() string {
	return "planes"
}

func (m *pgPlan) toDomain() (*membership.Plan, error) {
	var features []string
	if len(m.Features) > 0 {
		if err := json.Unmarshal(m.Features, &features); err != nil {
			return nil, fmt.Errorf("plan %d: decode caracteristicas: %w", m.ID, err)
		}
	}
	return &membership.Plan{
		ID:                 m.ID,
		Name:               m.Name,
		Description:        m.Description,
		MonthlyPrice:       m.MonthlyPrice,
		AnnualPrice:        m.AnnualPrice,
		DurationMonths:     m.DurationMonths,
		Features:           features,
		ClassLimit:         m.ClassLimit,
		NutritionistAccess: m.NutritionistAccess,
		TrainerAccess:      m.TrainerAccess,
		PremiumAreasAccess: m.PremiumAreasAccess,
		Popular:            m.Popular,
		Active:             m.Active,
		ThemeColor:         m.ThemeColor,
		DisplayOrder:       m.DisplayOrder,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}, nil
}

func planFromDomain(p *membership.Plan) (*pgPlan, error) {
	features := p.Features
	if features == nil {
		features = []string{}
	}
	raw, err := json.Marshal(features)
	if err != nil {
		return nil, err
	}
	return &pgPlan{
		ID:                 p.ID,
		Name:               p.Name,
		Description:        p.Description,
		MonthlyPrice:       p.MonthlyPrice,
		AnnualPrice:        p.AnnualPrice,
		DurationMonths:     p.DurationMonths,
		Features:           datatypes.JSON(raw),
		ClassLimit:         p.ClassLimit,
		NutritionistAccess: p.NutritionistAccess,
		TrainerAccess:      p.TrainerAccess,
		PremiumAreasAccess: p.PremiumAreasAccess,
		Popular:            p.Popular,
		Active:             p.Active,
		ThemeColor:         p.ThemeColor,
		DisplayOrder:       p.DisplayOrder,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}, nil
}

// PlanRepository реализует repo.PlanRepository.
type PlanRepository struct {
	db *gorm.DB
}

var _ repo.PlanRepository = (*PlanRepository)(nil)

// NewPlanRepository создаёт репозиторий тарифных планов.
func NewPlanRepository(db *gorm.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

func (r *PlanRepository) GetByID(ctx context.Context, id int64) (*membership.Plan, error) {
	var model pgPlan
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.toDomain()
}

func (r *PlanRepository) List(ctx context.Context, activeOnly bool) ([]*membership.Plan, error) {
	q := r.db.WithContext(ctx).Order("orden_display, id")
	if activeOnly {
		q = q.Where("activo = ?", true)
	}

	var models []pgPlan
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}
	plans := make([]*membership.Plan, 0, len(models))
	for i := range models {
		p, err := models[i].toDomain()
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, nil
}

func (r *PlanRepository) Create(ctx context.Context, p *membership.Plan) error {
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	model, err := planFromDomain(p)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	p.ID = model.ID
	return nil
}

func (r *PlanRepository) Update(ctx context.Context, p *membership.Plan) error {
	p.UpdatedAt = time.Now().UTC()
	model, err := planFromDomain(p)
	if err != nil {
		return err
	}
	result := r.db.WithContext(ctx).
		Model(&pgPlan{}).
		Where("id = ?", p.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
