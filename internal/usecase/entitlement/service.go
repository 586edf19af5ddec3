// Package entitlement управляет ролью пользователя и зависимыми от неё записями:
// профилем клиента и назначениями тренеров.
//
// Все изменения выполняются в одной транзакции и начинаются с блокировки строки
// пользователя, поэтому конкурентные операции над одним пользователем выполняются
// последовательно. Инварианты после каждой успешной операции:
//   - профиль клиента существует тогда и только тогда, когда роль пользователя cliente;
//   - у клиента не больше одного активного назначения тренера;
//   - активное назначение есть только у клиента, чей план даёт доступ к тренеру.
package entitlement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gym-app/internal/apperr"
	"gym-app/internal/domain/membership"
	"gym-app/internal/domain/user"
	repo "gym-app/internal/repository/interfaces"
	"gym-app/pkg/logger"
)

// Recorder принимает события для метрик.
type Recorder interface {
	RoleChanged(from, to string)
	EntitlementFailed(operation, kind string)
	AssignmentsDeactivated(reason string, n int64)
}

// Причины деактивации назначений.
const (
	ReasonPlanChange  = "plan_change"
	ReasonClientLeft  = "client_left"
	ReasonTrainerLeft = "trainer_left"
	ReasonUnassigned  = "unassigned"
)

// UserView — пользователь вместе с профилем клиента, планом и активным назначением.
// Client, Plan и Assignment равны nil, если их нет.
type UserView struct {
	User       *user.User
	Client     *membership.Client
	Plan       *membership.Plan
	Assignment *membership.TrainerAssignment
}

// UpdateUserRoleInput — административное изменение пользователя.
type UpdateUserRoleInput struct {
	Name  *string
	Email *string
	Role  user.Role

	// CreateClient должен быть выставлен при переходе usuario → cliente.
	CreateClient bool
	// PlanID — план для нового клиента или новый план существующего.
	PlanID *int64
	// Client — персональные данные. Обязательны при создании профиля,
	// при смене плана необязательны.
	Client *membership.ClientDetails
}

// AssignedClient — клиент тренера в обзоре назначений.
type AssignedClient struct {
	AssignmentID int64
	AssignedAt   time.Time
	Notes        string
	repo.ClientSummary
}

// TrainerClients — тренер и его активные клиенты.
type TrainerClients struct {
	TrainerID int64
	Name      string
	Email     string
	Clients   []AssignedClient
}

// AssignmentOverview — все тренеры с клиентами и клиенты без тренера.
type AssignmentOverview struct {
	Trainers   []TrainerClients
	Unassigned []repo.ClientSummary
}

// Service описывает операции управления правами пользователя.
type Service interface {
	// ContractPlan переводит usuario в cliente с указанным планом.
	ContractPlan(ctx context.Context, userID, planID int64, details membership.ClientDetails) (*UserView, error)

	// UpdateUserRole применяет административное изменение роли и связанных данных.
	UpdateUserRole(ctx context.Context, userID int64, in UpdateUserRoleInput) (*UserView, error)

	// AssignTrainer создаёт активное назначение тренера клиенту (по id пользователя клиента).
	AssignTrainer(ctx context.Context, trainerID, clientUserID int64, notes string) (*membership.TrainerAssignment, error)

	// UnassignTrainer деактивирует назначение.
	UnassignTrainer(ctx context.Context, assignmentID int64) (*membership.TrainerAssignment, error)

	GetUserView(ctx context.Context, userID int64) (*UserView, error)
	ListUserViews(ctx context.Context) ([]*UserView, error)
	AssignmentOverview(ctx context.Context) (*AssignmentOverview, error)
}

type service struct {
	repos repo.Repositories
	uow   repo.UnitOfWork
	log   logger.Logger
	rec   Recorder
	now   func() time.Time
}

// NewService создаёт сервис. rec может быть nil.
func NewService(repos repo.Repositories, uow repo.UnitOfWork, log logger.Logger, rec Recorder) Service {
	if rec == nil {
		rec = nopRecorder{}
	}
	return &service{
		repos: repos,
		uow:   uow,
		log:   log,
		rec:   rec,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

type nopRecorder struct{}

func (nopRecorder) RoleChanged(string, string)           {}
func (nopRecorder) EntitlementFailed(string, string)     {}
func (nopRecorder) AssignmentsDeactivated(string, int64) {}

// observe учитывает отказ операции. Внутренние ошибки дополнительно пишутся в лог.
func (s *service) observe(op string, err error, fields map[string]any) {
	if err == nil {
		return
	}
	kind := apperr.KindOf(err)
	s.rec.EntitlementFailed(op, string(kind))
	if kind == apperr.KindInternal {
		fields["op"] = op
		fields["err"] = err
		s.log.Error("entitlement operation failed", fields)
	}
}

func lockUser(ctx context.Context, r repo.Repositories, id int64) (*user.User, error) {
	u, err := r.Users.GetByIDForUpdate(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("user %d: %w", id, err)
	}
	return u, nil
}

// activePlan возвращает план, если он существует и активен.
func activePlan(ctx context.Context, r repo.Repositories, id int64) (*membership.Plan, error) {
	p, err := r.Plans.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("plan %d: %w", id, err)
	}
	if !p.Active {
		return nil, apperr.NotFound("plan %d is not active", id)
	}
	return p, nil
}

func ensureDNIFree(ctx context.Context, r repo.Repositories, dni string, userID int64) error {
	taken, err := r.Clients.ExistsByDNI(ctx, dni, userID)
	if err != nil {
		return err
	}
	if taken {
		return repo.ErrDNIExists
	}
	return nil
}

func prepareDetails(d membership.ClientDetails) (membership.ClientDetails, error) {
	d.Normalize()
	if err := d.Validate(); err != nil {
		return d, err
	}
	return d, nil
}

// ContractPlan оформляет план для пользователя с ролью usuario.
func (s *service) ContractPlan(ctx context.Context, userID, planID int64, details membership.ClientDetails) (view *UserView, err error) {
	defer func() {
		s.observe("contract_plan", err, map[string]any{"user_id": userID, "plan_id": planID})
	}()

	details, err = prepareDetails(details)
	if err != nil {
		return nil, err
	}

	err = s.uow.Do(ctx, func(r repo.Repositories) error {
		u, err := lockUser(ctx, r, userID)
		if err != nil {
			return err
		}
		if u.Role != user.RoleUsuario {
			return apperr.InvalidState("user %d has role %s, only %s can contract a plan", userID, u.Role, user.RoleUsuario)
		}
		if _, err := activePlan(ctx, r, planID); err != nil {
			return err
		}
		return s.enroll(ctx, r, u, planID, details)
	})
	if err != nil {
		return nil, err
	}

	s.rec.RoleChanged(string(user.RoleUsuario), string(user.RoleCliente))
	s.log.Info("plan contracted", map[string]any{"user_id": userID, "plan_id": planID})
	return s.GetUserView(ctx, userID)
}

// enroll создаёт профиль клиента и переводит пользователя в cliente.
// Уникальность DNI проверяется заранее, но окончательно её гарантирует ограничение БД.
func (s *service) enroll(ctx context.Context, r repo.Repositories, u *user.User, planID int64, d membership.ClientDetails) error {
	if err := ensureDNIFree(ctx, r, d.DNI, u.ID); err != nil {
		return err
	}
	client := membership.NewClient(u.ID, planID, d, s.now())
	if err := r.Clients.Create(ctx, client); err != nil {
		return err
	}
	u.Role = user.RoleCliente
	u.Touch(s.now())
	return r.Users.Update(ctx, u)
}

// UpdateUserRole применяет переход роли по таблице user.TransitionFor.
func (s *service) UpdateUserRole(ctx context.Context, userID int64, in UpdateUserRoleInput) (view *UserView, err error) {
	defer func() {
		s.observe("update_user_role", err, map[string]any{"user_id": userID, "role": string(in.Role)})
	}()

	if !in.Role.Valid() {
		return nil, apperr.Field("role", "must be one of usuario, cliente, entrenador, admin")
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return nil, apperr.Field("name", "must not be empty")
	}
	if in.Email != nil && strings.TrimSpace(*in.Email) == "" {
		return nil, apperr.Field("email", "must not be empty")
	}

	var (
		from        user.Role
		reason      string
		deactivated int64
	)
	err = s.uow.Do(ctx, func(r repo.Repositories) error {
		u, err := lockUser(ctx, r, userID)
		if err != nil {
			return err
		}
		from = u.Role

		kind, ok := user.TransitionFor(u.Role, in.Role)
		if !ok {
			return apperr.InvalidState("role change %s -> %s is not allowed", u.Role, in.Role)
		}

		if in.Name != nil {
			u.Name = strings.TrimSpace(*in.Name)
		}
		if in.Email != nil {
			u.Email = strings.ToLower(strings.TrimSpace(*in.Email))
		}

		switch kind {
		case user.TransitionEnrollClient:
			return s.enrollFromAdmin(ctx, r, u, in)
		case user.TransitionChangePlan:
			reason = ReasonPlanChange
			if deactivated, err = s.changePlan(ctx, r, u, in); err != nil {
				return err
			}
		case user.TransitionLeaveClient:
			reason = ReasonClientLeft
			if deactivated, err = s.leaveClient(ctx, r, u); err != nil {
				return err
			}
		case user.TransitionStaff:
			if u.Role == user.RoleEntrenador {
				reason = ReasonTrainerLeft
				if deactivated, err = r.Assignments.DeactivateByTrainerID(ctx, u.ID); err != nil {
					return err
				}
			}
		}

		u.Role = in.Role
		u.Touch(s.now())
		return r.Users.Update(ctx, u)
	})
	if err != nil {
		return nil, err
	}

	if from != in.Role {
		s.rec.RoleChanged(string(from), string(in.Role))
	}
	if deactivated > 0 {
		s.rec.AssignmentsDeactivated(reason, deactivated)
	}
	s.log.Info("user role updated", map[string]any{
		"user_id": userID, "from": string(from), "to": string(in.Role), "deactivated_assignments": deactivated,
	})
	return s.GetUserView(ctx, userID)
}

func (s *service) enrollFromAdmin(ctx context.Context, r repo.Repositories, u *user.User, in UpdateUserRoleInput) error {
	if !in.CreateClient {
		return apperr.Field("crear_cliente", "must be set to turn a user into a client")
	}
	if in.PlanID == nil {
		return apperr.Field("plan_id", "is required")
	}
	if in.Client == nil {
		return apperr.Field("dni", "is required")
	}
	details, err := prepareDetails(*in.Client)
	if err != nil {
		return err
	}
	if _, err := activePlan(ctx, r, *in.PlanID); err != nil {
		return err
	}
	return s.enroll(ctx, r, u, *in.PlanID, details)
}

// changePlan обновляет профиль клиента и перепроверяет доступ к тренеру
// по плану, прочитанному после обновления. Возвращает число деактивированных назначений.
func (s *service) changePlan(ctx context.Context, r repo.Repositories, u *user.User, in UpdateUserRoleInput) (int64, error) {
	client, err := r.Clients.GetByUserID(ctx, u.ID)
	if err != nil {
		return 0, fmt.Errorf("client profile of user %d: %w", u.ID, err)
	}

	if in.Client != nil {
		details, err := prepareDetails(*in.Client)
		if err != nil {
			return 0, err
		}
		if err := ensureDNIFree(ctx, r, details.DNI, u.ID); err != nil {
			return 0, err
		}
		client.ApplyDetails(details)
	}
	if in.PlanID != nil && *in.PlanID != client.PlanID {
		if _, err := activePlan(ctx, r, *in.PlanID); err != nil {
			return 0, err
		}
		client.PlanID = *in.PlanID
	}
	if err := r.Clients.Update(ctx, client); err != nil {
		return 0, err
	}

	plan, err := r.Plans.GetByID(ctx, client.PlanID)
	if err != nil {
		return 0, fmt.Errorf("plan %d: %w", client.PlanID, err)
	}
	if plan.TrainerAccess {
		return 0, nil
	}
	return r.Assignments.DeactivateByClientUserID(ctx, u.ID)
}

// leaveClient снимает статус клиента: проверяет резервации, деактивирует
// назначения тренеров и только затем удаляет профиль.
func (s *service) leaveClient(ctx context.Context, r repo.Repositories, u *user.User) (int64, error) {
	active, err := r.Reservations.CountActiveByUserID(ctx, u.ID)
	if err != nil {
		return 0, err
	}
	if active > 0 {
		return 0, apperr.InvalidState("client %d has %d active reservations", u.ID, active)
	}

	n, err := r.Assignments.DeactivateByClientUserID(ctx, u.ID)
	if err != nil {
		return 0, err
	}
	if err := r.Clients.DeleteByUserID(ctx, u.ID); err != nil && !errors.Is(err, repo.ErrNotFound) {
		return 0, err
	}
	return n, nil
}

// AssignTrainer назначает тренера клиенту.
func (s *service) AssignTrainer(ctx context.Context, trainerID, clientUserID int64, notes string) (a *membership.TrainerAssignment, err error) {
	defer func() {
		s.observe("assign_trainer", err, map[string]any{"trainer_id": trainerID, "client_user_id": clientUserID})
	}()

	err = s.uow.Do(ctx, func(r repo.Repositories) error {
		cu, err := lockUser(ctx, r, clientUserID)
		if err != nil {
			return err
		}
		trainer, err := r.Users.GetByID(ctx, trainerID)
		if err != nil {
			return fmt.Errorf("trainer %d: %w", trainerID, err)
		}
		if trainer.Role != user.RoleEntrenador {
			return apperr.InvalidState("user %d is not a trainer", trainerID)
		}
		if cu.Role != user.RoleCliente {
			return apperr.InvalidState("user %d is not a client", clientUserID)
		}

		client, err := r.Clients.GetByUserID(ctx, clientUserID)
		if err != nil {
			return fmt.Errorf("client profile of user %d: %w", clientUserID, err)
		}
		plan, err := r.Plans.GetByID(ctx, client.PlanID)
		if err != nil {
			return fmt.Errorf("plan %d: %w", client.PlanID, err)
		}
		if !plan.TrainerAccess {
			return apperr.Forbidden("plan %q does not include a personal trainer", plan.Name)
		}

		if _, err := r.Assignments.GetActiveByClientUserID(ctx, clientUserID); err == nil {
			return repo.ErrActiveAssignmentExists
		} else if !errors.Is(err, repo.ErrNotFound) {
			return err
		}

		a = &membership.TrainerAssignment{
			TrainerID:    trainerID,
			ClientID:     client.ID,
			ClientUserID: clientUserID,
			AssignedAt:   s.now(),
			Status:       membership.AssignmentActive,
			Notes:        strings.TrimSpace(notes),
		}
		return r.Assignments.Create(ctx, a)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("trainer assigned", map[string]any{
		"assignment_id": a.ID, "trainer_id": trainerID, "client_user_id": clientUserID,
	})
	return a, nil
}

// UnassignTrainer переводит активное назначение в inactiva.
func (s *service) UnassignTrainer(ctx context.Context, assignmentID int64) (a *membership.TrainerAssignment, err error) {
	defer func() {
		s.observe("unassign_trainer", err, map[string]any{"assignment_id": assignmentID})
	}()

	err = s.uow.Do(ctx, func(r repo.Repositories) error {
		a, err = r.Assignments.GetByID(ctx, assignmentID)
		if err != nil {
			return fmt.Errorf("assignment %d: %w", assignmentID, err)
		}
		if !a.IsActive() {
			return apperr.InvalidState("assignment %d is already inactive", assignmentID)
		}
		if err := r.Assignments.Deactivate(ctx, assignmentID); err != nil {
			return err
		}
		a.Status = membership.AssignmentInactive
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.rec.AssignmentsDeactivated(ReasonUnassigned, 1)
	s.log.Info("trainer unassigned", map[string]any{"assignment_id": assignmentID})
	return a, nil
}
