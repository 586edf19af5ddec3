package user

import (
	"strings"
	"time"

	"gym-app/internal/apperr"
	"gym-app/internal/domain/membership"
	"gym-app/internal/usecase/entitlement"
)

const dateLayout = "2006-01-02"

// UserResponse описывает пользователя в ответах API.
type UserResponse struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Role          string    `json:"role"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
}

// ClientResponse описывает профиль клиента. Номер карты всегда маскирован, CVV не отдаётся.
type ClientResponse struct {
	ID            int64     `json:"id"`
	DNI           string    `json:"dni"`
	Phone         string    `json:"numero_telefono"`
	PlanID        int64     `json:"plan_id"`
	PlanName      string    `json:"plan_nombre,omitempty"`
	TrainerAccess bool      `json:"acceso_entrenador"`
	BirthDate     string    `json:"fecha_nacimiento"`
	Gender        string    `json:"genero"`
	CardNumber    string    `json:"num_tarjeta"`
	CardExpiry    string    `json:"fecha_tarjeta"`
	EnrolledAt    time.Time `json:"fecha_inscripcion"`
	Status        string    `json:"estado"`
}

// AssignmentResponse описывает назначение тренера.
type AssignmentResponse struct {
	ID         int64     `json:"id"`
	TrainerID  int64     `json:"entrenador_id"`
	ClientID   int64     `json:"cliente_usuario_id"`
	AssignedAt time.Time `json:"fecha_asignacion"`
	Status     string    `json:"estado"`
	Notes      string    `json:"notas,omitempty"`
}

// UserViewResponse — пользователь с профилем клиента и тренером.
type UserViewResponse struct {
	UserResponse
	Client     *ClientResponse     `json:"cliente"`
	Assignment *AssignmentResponse `json:"entrenador_asignado,omitempty"`
}

// ClientDetailsRequest — персональные и платёжные данные клиента.
type ClientDetailsRequest struct {
	DNI        string `json:"dni" binding:"required,dni"`
	Phone      string `json:"numero_telefono" binding:"required,max=20"`
	BirthDate  string `json:"fecha_nacimiento" binding:"required"`
	Gender     string `json:"genero" binding:"required"`
	CardNumber string `json:"num_tarjeta" binding:"required"`
	CardExpiry string `json:"fecha_tarjeta" binding:"required"`
	CVV        string `json:"cvv" binding:"required"`
}

// ToDomain разбирает дату рождения и возвращает доменную структуру.
func (r *ClientDetailsRequest) ToDomain() (membership.ClientDetails, error) {
	birth, err := time.Parse(dateLayout, strings.TrimSpace(r.BirthDate))
	if err != nil {
		return membership.ClientDetails{}, apperr.Field("fecha_nacimiento", "must be a date in YYYY-MM-DD format")
	}
	return membership.ClientDetails{
		DNI:        r.DNI,
		Phone:      r.Phone,
		BirthDate:  birth,
		Gender:     r.Gender,
		CardNumber: r.CardNumber,
		CardExpiry: r.CardExpiry,
		CVV:        r.CVV,
	}, nil
}

// ContractPlanRequest — тело запроса оформления плана.
type ContractPlanRequest struct {
	PlanID int64 `json:"plan_id" binding:"required,gt=0"`
	ClientDetailsRequest
}

// ProfileUpdateRequest описывает тело запроса обновления собственного профиля.
type ProfileUpdateRequest struct {
	Name  *string `json:"name,omitempty" binding:"omitempty,min=1,max=100"`
	Email *string `json:"email,omitempty" binding:"omitempty,email"`
}

// TrainerResponse — тренер в публичном списке.
type TrainerResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// StatsResponse — счётчики зала.
type StatsResponse struct {
	Members  int64 `json:"miembros"`
	Trainers int64 `json:"entrenadores"`
}

// NewUserViewResponse маппит представление пользователя в DTO.
func NewUserViewResponse(v *entitlement.UserView) UserViewResponse {
	resp := UserViewResponse{
		UserResponse: UserResponse{
			ID:            v.User.ID,
			Name:          v.User.Name,
			Email:         v.User.Email,
			Role:          string(v.User.Role),
			EmailVerified: v.User.IsEmailVerified,
			CreatedAt:     v.User.CreatedAt,
		},
	}
	if c := v.Client; c != nil {
		resp.Client = &ClientResponse{
			ID:         c.ID,
			DNI:        c.DNI,
			Phone:      c.Phone,
			PlanID:     c.PlanID,
			BirthDate:  c.BirthDate.Format(dateLayout),
			Gender:     c.Gender,
			CardNumber: c.CardNumber,
			CardExpiry: c.CardExpiry,
			EnrolledAt: c.EnrolledAt,
			Status:     string(c.Status),
		}
		if v.Plan != nil {
			resp.Client.PlanName = v.Plan.Name
			resp.Client.TrainerAccess = v.Plan.TrainerAccess
		}
	}
	if v.Assignment != nil {
		a := NewAssignmentResponse(v.Assignment)
		resp.Assignment = &a
	}
	return resp
}

// NewAssignmentResponse маппит назначение тренера в DTO.
func NewAssignmentResponse(a *membership.TrainerAssignment) AssignmentResponse {
	return AssignmentResponse{
		ID:         a.ID,
		TrainerID:  a.TrainerID,
		ClientID:   a.ClientUserID,
		AssignedAt: a.AssignedAt,
		Status:     string(a.Status),
		Notes:      a.Notes,
	}
}
