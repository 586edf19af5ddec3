// Package plan содержит операции с каталогом тарифных планов.
package plan

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gym-app/internal/apperr"
	"gym-app/internal/domain/membership"
	repo "gym-app/internal/repository/interfaces"
	"gym-app/pkg/logger"
)

// Service описывает операции с планами.
type Service interface {
	// ListActive возвращает активные планы в порядке отображения.
	ListActive(ctx context.Context) ([]*membership.Plan, error)
	// GetActive возвращает активный план. Неактивный план считается отсутствующим.
	GetActive(ctx context.Context, id int64) (*membership.Plan, error)

	ListAll(ctx context.Context) ([]*membership.Plan, error)
	Create(ctx context.Context, in Input) (*membership.Plan, error)
	Update(ctx context.Context, id int64, in Input) (*membership.Plan, error)
}

// Input — данные плана, задаваемые администратором.
type Input struct {
	Name               string
	Description        string
	MonthlyPrice       float64
	AnnualPrice        *float64
	DurationMonths     int
	Features           []string
	ClassLimit         *int
	NutritionistAccess bool
	TrainerAccess      bool
	PremiumAreasAccess bool
	Popular            bool
	Active             bool
	ThemeColor         string
	DisplayOrder       int
}

func (in *Input) validate() error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return apperr.Field("nombre", "is required")
	case in.MonthlyPrice < 0:
		return apperr.Field("precio_mensual", "must not be negative")
	case in.AnnualPrice != nil && *in.AnnualPrice < 0:
		return apperr.Field("precio_anual", "must not be negative")
	case in.DurationMonths < 1:
		return apperr.Field("duracion_meses", "must be at least 1")
	case in.ClassLimit != nil && *in.ClassLimit < 0:
		return apperr.Field("limite_clases", "must not be negative")
	}
	return nil
}

func (in *Input) apply(p *membership.Plan) {
	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	p.MonthlyPrice = in.MonthlyPrice
	p.AnnualPrice = in.AnnualPrice
	p.DurationMonths = in.DurationMonths
	p.Features = append([]string(nil), in.Features...)
	p.ClassLimit = in.ClassLimit
	p.NutritionistAccess = in.NutritionistAccess
	p.TrainerAccess = in.TrainerAccess
	p.PremiumAreasAccess = in.PremiumAreasAccess
	p.Popular = in.Popular
	p.Active = in.Active
	p.ThemeColor = in.ThemeColor
	p.DisplayOrder = in.DisplayOrder
}

type service struct {
	plans repo.PlanRepository
	log   logger.Logger
}

// NewService создаёт сервис планов.
func NewService(plans repo.PlanRepository, log logger.Logger) Service {
	return &service{plans: plans, log: log}
}

func (s *service) ListActive(ctx context.Context) ([]*membership.Plan, error) {
	return s.plans.List(ctx, true)
}

func (s *service) GetActive(ctx context.Context, id int64) (*membership.Plan, error) {
	p, err := s.plans.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("plan %d: %w", id, err)
	}
	if !p.Active {
		return nil, apperr.NotFound("plan %d is not active", id)
	}
	return p, nil
}

func (s *service) ListAll(ctx context.Context) ([]*membership.Plan, error) {
	return s.plans.List(ctx, false)
}

// Create добавляет план в каталог.
func (s *service) Create(ctx context.Context, in Input) (*membership.Plan, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	p := &membership.Plan{CreatedAt: now, UpdatedAt: now}
	in.apply(p)
	if err := s.plans.Create(ctx, p); err != nil {
		return nil, err
	}
	s.log.Info("plan created", map[string]any{"plan_id": p.ID, "name": p.Name})
	return p, nil
}

// Update перезаписывает план целиком. Деактивация плана не затрагивает
// уже оформленных клиентов.
func (s *service) Update(ctx context.Context, id int64, in Input) (*membership.Plan, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	p, err := s.plans.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("plan %d: %w", id, err)
	}
	in.apply(p)
	p.UpdatedAt = time.Now().UTC()
	if err := s.plans.Update(ctx, p); err != nil {
		return nil, err
	}
	s.log.Info("plan updated", map[string]any{"plan_id": p.ID, "active": p.Active})
	return p, nil
}
