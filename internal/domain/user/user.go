package user

import (
	"time"
)

// Role описывает роль пользователя в системе.
type Role string

const (
	RoleUsuario    Role = "usuario"    // зарегистрированный пользователь без абонемента
	RoleCliente    Role = "cliente"    // клиент зала с оформленным планом
	RoleEntrenador Role = "entrenador" // тренер
	RoleAdmin      Role = "admin"      // администратор
)

// Valid сообщает, является ли роль одной из известных.
func (r Role) Valid() bool {
	switch r {
	case RoleUsuario, RoleCliente, RoleEntrenador, RoleAdmin:
		return true
	}
	return false
}

// IsStaff возвращает true для ролей персонала (тренер и администратор).
func (r Role) IsStaff() bool {
	return r == RoleEntrenador || r == RoleAdmin
}

// User представляет доменную модель пользователя зала.
//
// Роль меняется только через сервис управления правами (entitlement),
// напрямую из транспорта её не выставляют.
type User struct {
	ID              int64  // Идентификатор (BIGSERIAL в БД)
	Name            string // Отображаемое имя
	Email           string // Email (уникальный логин)
	PasswordHash    string // Хэш пароля
	IsEmailVerified bool   // Подтверждён ли email
	Role            Role   // Текущая роль

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUser — фабрика для создания нового пользователя на доменном уровне.
// Нормализация входных данных и хеширование пароля выполняются в usecase‑слое.
func NewUser(name, email, passwordHash string) *User {
	now := time.Now().UTC()
	return &User{
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         RoleUsuario,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Touch обновляет время последнего изменения сущности.
func (u *User) Touch(at time.Time) {
	u.UpdatedAt = at
}

// TokenPurpose — назначение одноразового токена.
type TokenPurpose string

const (
	PurposeEmailVerification TokenPurpose = "email_verification"
	PurposePasswordReset     TokenPurpose = "password_reset"
)

// AuthToken — одноразовый токен из письма (подтверждение email или сброс пароля).
// В БД хранится только хэш токена.
type AuthToken struct {
	ID        int64
	UserID    int64
	TokenHash string
	Purpose   TokenPurpose
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired сообщает, истёк ли токен к моменту now.
func (t *AuthToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
