package user

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"gym-app/internal/apperr"
	domain "gym-app/internal/domain/user"
	repo "gym-app/internal/repository/interfaces"
)

// Service описывает usecase-слой для работы с пользователем:
// профиль, список тренеров и общая статистика зала.
type Service interface {
	// GetProfile возвращает профиль текущего пользователя (по его ID).
	GetProfile(ctx context.Context, userID int64) (*domain.User, error)

	// UpdateProfile обновляет имя и email пользователя. Роль здесь не меняется.
	UpdateProfile(ctx context.Context, userID int64, input ProfileUpdateInput) (*domain.User, error)

	// ListTrainers возвращает пользователей с ролью entrenador.
	ListTrainers(ctx context.Context) ([]*domain.User, error)

	// Stats возвращает количество активных клиентов и тренеров.
	Stats(ctx context.Context) (*Stats, error)
}

// ProfileUpdateInput описывает допустимые изменения в профиле пользователя.
// Все поля опциональны.
type ProfileUpdateInput struct {
	Name  *string
	Email *string
}

// Stats — счётчики для главной страницы.
type Stats struct {
	Members  int64
	Trainers int64
}

type service struct {
	users   repo.UserRepository
	clients repo.ClientRepository
}

// NewService создаёт новый сервис пользователей.
func NewService(users repo.UserRepository, clients repo.ClientRepository) Service {
	return &service{users: users, clients: clients}
}

// GetProfile возвращает профиль пользователя.
func (s *service) GetProfile(ctx context.Context, userID int64) (*domain.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user %d: %w", userID, err)
	}
	return u, nil
}

// UpdateProfile обновляет профиль пользователя.
func (s *service) UpdateProfile(ctx context.Context, userID int64, input ProfileUpdateInput) (*domain.User, error) {
	u, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperr.Field("name", "must not be empty")
		}
		u.Name = name
	}
	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, apperr.Field("email", "must be a valid email address")
		}
		u.Email = email
	}
	u.Touch(time.Now().UTC())

	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// ListTrainers возвращает тренеров зала.
func (s *service) ListTrainers(ctx context.Context) ([]*domain.User, error) {
	return s.users.ListByRole(ctx, domain.RoleEntrenador)
}

// Stats считает активных клиентов и тренеров.
func (s *service) Stats(ctx context.Context) (*Stats, error) {
	members, err := s.clients.CountActive(ctx)
	if err != nil {
		return nil, err
	}
	trainers, err := s.users.CountByRole(ctx, domain.RoleEntrenador)
	if err != nil {
		return nil, err
	}
	return &Stats{Members: members, Trainers: trainers}, nil
}
