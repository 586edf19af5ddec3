package auth

import userhandler "gym-app/internal/handler/user"

// RegisterRequest описывает тело запроса регистрации пользователя.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// RegisterResponse — ответ на регистрацию. Токены выдаются только после подтверждения email.
type RegisterResponse struct {
	Message string                   `json:"message"`
	User    userhandler.UserResponse `json:"user"`
}

// LoginRequest описывает тело запроса логина.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenPair описывает пару access/refresh токенов.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// LoginResponse — ответ при успешной аутентификации.
// Содержит пользователя с профилем клиента и пару токенов.
type LoginResponse struct {
	User   userhandler.UserViewResponse `json:"user"`
	Tokens TokenPair                    `json:"tokens"`
}

// RefreshRequest описывает тело запроса обновления токенов.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// VerifyEmailRequest — токен из письма подтверждения.
type VerifyEmailRequest struct {
	Token string `json:"token" binding:"required"`
}

// ChangePasswordRequest — смена пароля аутентифицированным пользователем.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6"`
}

// SendResetEmailRequest — запрос письма для сброса пароля.
type SendResetEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest — новый пароль по токену из письма.
type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

// MessageResponse — ответ без данных.
type MessageResponse struct {
	Message string `json:"message"`
}
