package interfaces

import (
	"context"
	"time"

	"gym-app/internal/domain/membership"
)

// PlanRepository — каталог тарифных планов.
type PlanRepository interface {
	GetByID(ctx context.Context, id int64) (*membership.Plan, error)

	// List возвращает планы в порядке отображения. activeOnly отбрасывает неактивные.
	List(ctx context.Context, activeOnly bool) ([]*membership.Plan, error)

	Create(ctx context.Context, plan *membership.Plan) error
	Update(ctx context.Context, plan *membership.Plan) error
}

// ClientRepository — профили клиентов (таблица clientes).
type ClientRepository interface {
	// Create создаёт профиль и заполняет client.ID.
	// Возвращает ErrDNIExists или ErrClientExists при нарушении уникальности.
	Create(ctx context.Context, client *membership.Client) error

	GetByUserID(ctx context.Context, userID int64) (*membership.Client, error)

	// Update сохраняет персональные данные, план и статус профиля.
	Update(ctx context.Context, client *membership.Client) error

	DeleteByUserID(ctx context.Context, userID int64) error

	// ExistsByDNI проверяет, занят ли DNI профилем другого пользователя.
	ExistsByDNI(ctx context.Context, dni string, excludeUserID int64) (bool, error)

	List(ctx context.Context) ([]*membership.Client, error)

	// CountActive возвращает количество профилей со статусом activo.
	CountActive(ctx context.Context) (int64, error)
}

// ClientSummary — клиент в обзоре назначений.
type ClientSummary struct {
	UserID        int64
	ClientID      int64
	Name          string
	Email         string
	PlanID        int64
	PlanName      string
	TrainerAccess bool
}

// ActiveAssignment — активное назначение вместе с данными тренера и клиента.
type ActiveAssignment struct {
	AssignmentID int64
	TrainerID    int64
	TrainerName  string
	AssignedAt   time.Time
	Notes        string
	Client       ClientSummary
}

// AssignmentRepository — назначения тренеров клиентам.
type AssignmentRepository interface {
	// Create создаёт активное назначение и заполняет a.ID.
	// Возвращает ErrActiveAssignmentExists, если у клиента уже есть активное назначение.
	Create(ctx context.Context, a *membership.TrainerAssignment) error

	GetByID(ctx context.Context, id int64) (*membership.TrainerAssignment, error)

	// GetActiveByClientUserID возвращает активное назначение клиента или ErrNotFound.
	GetActiveByClientUserID(ctx context.Context, clientUserID int64) (*membership.TrainerAssignment, error)

	// Deactivate переводит активное назначение в inactiva.
	// Возвращает ErrNotFound, если активного назначения с таким id нет.
	Deactivate(ctx context.Context, id int64) error

	// DeactivateByClientUserID деактивирует все активные назначения клиента
	// и возвращает их количество.
	DeactivateByClientUserID(ctx context.Context, clientUserID int64) (int64, error)

	// DeactivateByTrainerID деактивирует все активные назначения тренера.
	DeactivateByTrainerID(ctx context.Context, trainerID int64) (int64, error)

	ListActive(ctx context.Context) ([]ActiveAssignment, error)

	// ListUnassignedClients возвращает клиентов с доступом к тренеру и без активного назначения.
	ListUnassignedClients(ctx context.Context) ([]ClientSummary, error)
}
