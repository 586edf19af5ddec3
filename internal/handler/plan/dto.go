package plan

import (
	"time"

	"gym-app/internal/domain/membership"
	planuc "gym-app/internal/usecase/plan"
)

// PlanResponse описывает тарифный план.
type PlanResponse struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"nombre"`
	Description        string    `json:"descripcion"`
	MonthlyPrice       float64   `json:"precio_mensual"`
	AnnualPrice        *float64  `json:"precio_anual"`
	DurationMonths     int       `json:"duracion_meses"`
	Features           []string  `json:"caracteristicas"`
	ClassLimit         *int      `json:"limite_clases"`
	NutritionistAccess bool      `json:"acceso_nutricionista"`
	TrainerAccess      bool      `json:"acceso_entrenador"`
	PremiumAreasAccess bool      `json:"acceso_areas_premium"`
	Popular            bool      `json:"popular"`
	Active             bool      `json:"activo"`
	ThemeColor         string    `json:"color_tema,omitempty"`
	DisplayOrder       int       `json:"orden_display"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// PlanRequest — тело запроса создания и изменения плана.
type PlanRequest struct {
	Name               string   `json:"nombre" binding:"required,max=100"`
	Description        string   `json:"descripcion"`
	MonthlyPrice       float64  `json:"precio_mensual" binding:"gte=0"`
	AnnualPrice        *float64 `json:"precio_anual" binding:"omitempty,gte=0"`
	DurationMonths     int      `json:"duracion_meses" binding:"required,gte=1"`
	Features           []string `json:"caracteristicas"`
	ClassLimit         *int     `json:"limite_clases" binding:"omitempty,gte=0"`
	NutritionistAccess bool     `json:"acceso_nutricionista"`
	TrainerAccess      bool     `json:"acceso_entrenador"`
	PremiumAreasAccess bool     `json:"acceso_areas_premium"`
	Popular            bool     `json:"popular"`
	Active             *bool    `json:"activo"`
	ThemeColor         string   `json:"color_tema"`
	DisplayOrder       int      `json:"orden_display"`
}

func (r *PlanRequest) toInput() planuc.Input {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return planuc.Input{
		Name:               r.Name,
		Description:        r.Description,
		MonthlyPrice:       r.MonthlyPrice,
		AnnualPrice:        r.AnnualPrice,
		DurationMonths:     r.DurationMonths,
		Features:           r.Features,
		ClassLimit:         r.ClassLimit,
		NutritionistAccess: r.NutritionistAccess,
		TrainerAccess:      r.TrainerAccess,
		PremiumAreasAccess: r.PremiumAreasAccess,
		Popular:            r.Popular,
		Active:             active,
		ThemeColor:         r.ThemeColor,
		DisplayOrder:       r.DisplayOrder,
	}
}

func toPlanResponse(p *membership.Plan) PlanResponse {
	features := p.Features
	if features == nil {
		features = []string{}
	}
	return PlanResponse{
		ID:                 p.ID,
		Name:               p.Name,
		Description:        p.Description,
		MonthlyPrice:       p.MonthlyPrice,
		AnnualPrice:        p.AnnualPrice,
		DurationMonths:     p.DurationMonths,
		Features:           features,
		ClassLimit:         p.ClassLimit,
		NutritionistAccess: p.NutritionistAccess,
		TrainerAccess:      p.TrainerAccess,
		PremiumAreasAccess: p.PremiumAreasAccess,
		Popular:            p.Popular,
		Active:             p.Active,
		ThemeColor:         p.ThemeColor,
		DisplayOrder:       p.DisplayOrder,
		UpdatedAt:          p.UpdatedAt,
	}
}

func toPlanResponses(plans []*membership.Plan) []PlanResponse {
	out := make([]PlanResponse, 0, len(plans))
	for _, p := range plans {
		out = append(out, toPlanResponse(p))
	}
	return out
}
