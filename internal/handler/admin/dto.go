package admin

import (
	userhandler "gym-app/internal/handler/user"
)

// UpdateUserRequest — административное изменение пользователя.
// Поля клиента передаются плоско, как в форме администратора.
type UpdateUserRequest struct {
	Name         *string `json:"name" binding:"omitempty,min=1,max=100"`
	Email        *string `json:"email" binding:"omitempty,email"`
	Role         string  `json:"role" binding:"required,oneof=usuario cliente entrenador admin"`
	CreateClient bool    `json:"crear_cliente"`
	PlanID       *int64  `json:"plan_id" binding:"omitempty,gt=0"`

	DNI        string `json:"dni" binding:"omitempty,dni"`
	Phone      string `json:"numero_telefono"`
	BirthDate  string `json:"fecha_nacimiento"`
	Gender     string `json:"genero"`
	CardNumber string `json:"num_tarjeta"`
	CardExpiry string `json:"fecha_tarjeta"`
	CVV        string `json:"cvv"`
}

// clientDetails возвращает данные клиента, если в запросе указан DNI.
func (r *UpdateUserRequest) clientDetails() *userhandler.ClientDetailsRequest {
	if r.DNI == "" {
		return nil
	}
	return &userhandler.ClientDetailsRequest{
		DNI:        r.DNI,
		Phone:      r.Phone,
		BirthDate:  r.BirthDate,
		Gender:     r.Gender,
		CardNumber: r.CardNumber,
		CardExpiry: r.CardExpiry,
		CVV:        r.CVV,
	}
}
