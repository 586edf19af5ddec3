package entitlement_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gym-app/internal/apperr"
	"gym-app/internal/domain/membership"
	"gym-app/internal/domain/schedule"
	"gym-app/internal/domain/user"
	"gym-app/internal/repository/memory"
	"gym-app/internal/usecase/entitlement"
	"gym-app/pkg/logger"
)

const (
	planPremium  = int64(1) // с тренером
	planBasic    = int64(2)
	planStandard = int64(3)
	planRetired  = int64(4) // неактивный, с тренером
	planElite    = int64(5) // с тренером

	clientID  = int64(42)
	trainerID = int64(5)
)

type fakeRecorder struct {
	roles       map[string]int
	failures    map[string]int
	deactivated map[string]int64
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{
		roles:       map[string]int{},
		failures:    map[string]int{},
		deactivated: map[string]int64{},
	}
}

func (r *fakeRecorder) RoleChanged(from, to string) { r.roles[from+"->"+to]++ }
func (r *fakeRecorder) EntitlementFailed(op, kind string) {
	r.failures[op+":"+kind]++
}
func (r *fakeRecorder) AssignmentsDeactivated(reason string, n int64) {
	r.deactivated[reason] += n
}

type fixture struct {
	store *memory.Store
	svc   entitlement.Service
	rec   *fakeRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	repos := store.Repositories()

	plans := []membership.Plan{
		{ID: planPremium, Name: "Premium", MonthlyPrice: 59.99, TrainerAccess: true, Active: true},
		{ID: planBasic, Name: "Básico", MonthlyPrice: 29.99, Active: true},
		{ID: planStandard, Name: "Estándar", MonthlyPrice: 39.99, Active: true},
		{ID: planRetired, Name: "Legacy", MonthlyPrice: 49.99, TrainerAccess: true},
		{ID: planElite, Name: "Elite", MonthlyPrice: 79.99, TrainerAccess: true, Active: true},
	}
	for i := range plans {
		require.NoError(t, repos.Plans.Create(ctx, &plans[i]))
	}

	addUser(t, store, clientID, "Ana", user.RoleUsuario)
	addUser(t, store, trainerID, "Carlos", user.RoleEntrenador)

	rec := newFakeRecorder()
	return &fixture{
		store: store,
		svc:   entitlement.NewService(repos, store, logger.Nop(), rec),
		rec:   rec,
	}
}

func addUser(t *testing.T, store *memory.Store, id int64, name string, role user.Role) *user.User {
	t.Helper()
	u := user.NewUser(name, fmt.Sprintf("%s%d@gym.test", name, id), "hash")
	u.ID = id
	u.Role = role
	require.NoError(t, store.Repositories().Users.Create(context.Background(), u))
	return u
}

// dniFor строит корректный DNI из числа.
func dniFor(n int) string {
	const letters = "TRWAGMYFPDXBNJZSQVHLCKE"
	return fmt.Sprintf("%08d%c", n, letters[n%23])
}

func details(n int) membership.ClientDetails {
	return membership.ClientDetails{
		DNI:        dniFor(n),
		Phone:      "+34 600 000 000",
		BirthDate:  time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC),
		Gender:     "femenino",
		CardNumber: "4111 1111 1111 1111",
		CardExpiry: "12/30",
		CVV:        "123",
	}
}

func ptr[T any](v T) *T { return &v }

// enrolledClient оформляет клиенту план и назначает ему тренера.
func (f *fixture) enrolledClient(t *testing.T, planID int64) *membership.TrainerAssignment {
	t.Helper()
	ctx := context.Background()
	_, err := f.svc.ContractPlan(ctx, clientID, planID, details(12345678))
	require.NoError(t, err)
	a, err := f.svc.AssignTrainer(ctx, trainerID, clientID, "fuerza")
	require.NoError(t, err)
	return a
}

// requireInvariants проверяет согласованность роли, профиля и назначений.
func (f *fixture) requireInvariants(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	repos := f.store.Repositories()

	users, err := repos.Users.List(ctx)
	require.NoError(t, err)
	for _, u := range users {
		_, err := repos.Clients.GetByUserID(ctx, u.ID)
		hasProfile := err == nil
		require.Equal(t, u.Role == user.RoleCliente, hasProfile, "user %d role %s", u.ID, u.Role)
	}

	active, err := repos.Assignments.ListActive(ctx)
	require.NoError(t, err)
	seen := map[int64]bool{}
	for _, a := range active {
		require.False(t, seen[a.Client.UserID], "client %d has two active assignments", a.Client.UserID)
		seen[a.Client.UserID] = true
		require.True(t, a.Client.TrainerAccess, "client %d plan has no trainer access", a.Client.UserID)
	}
}

func TestContractPlan_UsuarioBecomesCliente(t *testing.T) {
	f := newFixture(t)

	view, err := f.svc.ContractPlan(context.Background(), clientID, planBasic, details(12345678))
	require.NoError(t, err)

	require.Equal(t, user.RoleCliente, view.User.Role)
	require.NotNil(t, view.Client)
	require.Equal(t, planBasic, view.Client.PlanID)
	require.Equal(t, "12345678Z", view.Client.DNI)
	require.Equal(t, "************1111", view.Client.CardNumber)
	require.Equal(t, membership.ClientActive, view.Client.Status)
	require.NotNil(t, view.Plan)
	require.Equal(t, "Básico", view.Plan.Name)
	require.Nil(t, view.Assignment)
	require.Equal(t, 1, f.rec.roles["usuario->cliente"])
	f.requireInvariants(t)
}

func TestContractPlan_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("already client", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.ContractPlan(ctx, clientID, planBasic, details(12345678))
		require.NoError(t, err)

		_, err = f.svc.ContractPlan(ctx, clientID, planPremium, details(12345678))
		require.ErrorIs(t, err, apperr.ErrInvalidState)
		require.Equal(t, 1, f.rec.failures["contract_plan:invalid_state"])
	})

	t.Run("staff cannot contract", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.ContractPlan(ctx, trainerID, planBasic, details(12345678))
		require.ErrorIs(t, err, apperr.ErrInvalidState)
	})

	t.Run("unknown user", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.ContractPlan(ctx, 999, planBasic, details(12345678))
		require.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("unknown plan", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.ContractPlan(ctx, clientID, 999, details(12345678))
		require.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("inactive plan", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.ContractPlan(ctx, clientID, planRetired, details(12345678))
		require.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("invalid details", func(t *testing.T) {
		f := newFixture(t)
		d := details(12345678)
		d.DNI = "12345678A"

		_, err := f.svc.ContractPlan(ctx, clientID, planBasic, d)
		require.ErrorIs(t, err, apperr.ErrValidation)

		var fe *apperr.FieldError
		require.ErrorAs(t, err, &fe)
		require.Equal(t, "dni", fe.Field)
	})

	t.Run("duplicate dni rolls back", func(t *testing.T) {
		f := newFixture(t)
		addUser(t, f.store, 43, "Bea", user.RoleUsuario)
		_, err := f.svc.ContractPlan(ctx, 43, planBasic, details(12345678))
		require.NoError(t, err)

		_, err = f.svc.ContractPlan(ctx, clientID, planBasic, details(12345678))
		require.ErrorIs(t, err, apperr.ErrConflict)

		u, err := f.store.Repositories().Users.GetByID(ctx, clientID)
		require.NoError(t, err)
		require.Equal(t, user.RoleUsuario, u.Role)
		f.requireInvariants(t)
	})
}

func TestUpdateUserRole_PlanChangeDeactivatesAssignment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.enrolledClient(t, planPremium)

	view, err := f.svc.UpdateUserRole(ctx, clientID, entitlement.UpdateUserRoleInput{
		Role:   user.RoleCliente,
		PlanID: ptr(planStandard),
	})
	require.NoError(t, err)
	require.Equal(t, user.RoleCliente, view.User.Role)
	require.Equal(t, planStandard, view.Client.PlanID)
	require.Nil(t, view.Assignment)

	stored, err := f.store.Repositories().Assignments.GetByID(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, membership.AssignmentInactive, stored.Status)
	require.Equal(t, int64(1), f.rec.deactivated[entitlement.ReasonPlanChange])
	f.requireInvariants(t)
}

func TestUpdateUserRole_PlanChangeKeepsAssignmentWithAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.enrolledClient(t, planPremium)

	view, err := f.svc.UpdateUserRole(ctx, clientID, entitlement.UpdateUserRoleInput{
		Role:   user.RoleCliente,
		PlanID: ptr(planElite),
	})
	require.NoError(t, err)
	require.NotNil(t, view.Assignment)
	require.Equal(t, a.ID, view.Assignment.ID)
	require.Zero(t, f.rec.deactivated[entitlement.ReasonPlanChange])
	f.requireInvariants(t)
}

func TestUpdateUserRole_PlanChangeUpdatesDetails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.ContractPlan(ctx, clientID, planBasic, details(12345678))
	require.NoError(t, err)

	d := details(87654321)
	d.Phone = "+34 611 111 111"
	view, err := f.svc.UpdateUserRole(ctx, clientID, entitlement.UpdateUserRoleInput{
		Name:   ptr("Ana María"),
		Email:  ptr("  ANA@Gym.Test "),
		Role:   user.RoleCliente,
		Client: &d,
	})
	require.NoError(t, err)
	require.Equal(t, "Ana María", view.User.Name)
	require.Equal(t, "ana@gym.test", view.User.Email)
	require.Equal(t, "87654321X", view.Client.DNI)
	require.Equal(t, "+34 611 111 111", view.Client.Phone)
	require.Equal(t, planBasic, view.Client.PlanID)
}

func TestUpdateUserRole_DowngradeBlockedByReservations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.enrolledClient(t, planPremium)

	repos := f.store.Repositories()
	class := &schedule.GymClass{Name: "Yoga", DurationMinutes: 60, Capacity: 10, Active: true}
	require.NoError(t, repos.Schedule.CreateClass(ctx, class))
	sc := &schedule.ScheduledClass{
		ClassID:         class.ID,
		TrainerID:       trainerID,
		StartsAt:        time.Now().Add(48 * time.Hour),
		DurationMinutes: 60,
		Capacity:        10,
		Status:          schedule.ScheduledPlanned,
	}
	require.NoError(t, repos.Schedule.CreateScheduled(ctx, sc))
	res := &schedule.Reservation{UserID: clientID, ScheduledClassID: sc.ID}
	require.NoError(t, repos.Reservations.Create(ctx, res))

	_, err := f.svc.UpdateUserRole(ctx, clientID, entitlement.UpdateUserRoleInput{Role: user.RoleUsuario})
	require.ErrorIs(t, err, apperr.ErrInvalidState)

	view, err := f.svc.GetUserView(ctx, clientID)
	require.NoError(t, err)
	require.Equal(t, user.RoleCliente, view.User.Role)
	require.NotNil(t, view.Client)
	require.NotNil(t, view.Assignment)

	require.NoError(t, repos.Reservations.UpdateStatus(ctx, res.ID, schedule.ReservationCancelled))
	_, err = f.svc.UpdateUserRole(ctx, clientID, entitlement.UpdateUserRoleInput{Role: user.RoleUsuario})
	require.NoError(t, err)
}

func TestUpdateUserRole_DowngradeKeepsAssignmentHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.enrolledClient(t, planPremium)

	view, err := f.svc.UpdateUserRole(ctx, clientID, entitlement.UpdateUserRoleInput{Role: user.RoleUsuario})
	require.NoError(t, err)
	require.Equal(t, user.RoleUsuario, view.User.Role)
	require.Nil(t, view.Client)

	stored, err := f.store.Repositories().Assignments.GetByID(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, membership.AssignmentInactive, stored.Status)
	require.Zero(t, stored.ClientID)
	require.Equal(t, clientID, stored.ClientUserID)
	require.Equal(t, int64(1), f.rec.deactivated[entitlement.ReasonClientLeft])
	require.Equal(t, 1, f.rec.roles["cliente->usuario"])
	f.requireInvariants(t)

	// Повторное оформление после выхода.
	_, err = f.svc.ContractPlan(ctx, clientID, planPremium, details(12345678))
	require.NoError(t, err)
	_, err = f.svc.AssignTrainer(ctx, trainerID, clientID, "")
	require.NoError(t, err)
	f.requireInvariants(t)
}

func TestUpdateUserRole_ClientToStaff(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.enrolledClient(t, planPremium)

	view, err := f.svc.UpdateUserRole(ctx, clientID, entitlement.UpdateUserRoleInput{Role: user.RoleEntrenador})
	require.NoError(t, err)
	require.Equal(t, user.RoleEntrenador, view.User.Role)
	require.Nil(t, view.Client)
	f.requireInvariants(t)
}

func TestUpdateUserRole_EnrollFromAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("requires flag", func(t *testing.T) {
		f := newFixture(t)
		d := details(12345678)
		_, err := f.svc.UpdateUserRole(ctx, clientID, entitlement.UpdateUserRoleInput{
			Role:   user.RoleCliente,
			PlanID: ptr(planBasic),
			Client: &d,
		})
		require.ErrorIs(t, err, apperr.ErrValidation)
		f.requireInvariants(t)
	})

	t.Run("requires plan", func(t *testing.T) {
		f := newFixture(t)
		d := details(12345678)
		_, err := f.svc.UpdateUserRole(ctx, clientID, entitlement.UpdateUserRoleInput{
			Role:         user.RoleCliente,
			CreateClient: true,
			Client:       &d,
		})
		var fe *apperr.FieldError
		require.ErrorAs(t, err, &fe)
		require.Equal(t, "plan_id", fe.Field)
	})

	t.Run("creates profile", func(t *testing.T) {
		f := newFixture(t)
		d := details(11111111)
		view, err := f.svc.UpdateUserRole(ctx, clientID, entitlement.UpdateUserRoleInput{
			Role:         user.RoleCliente,
			CreateClient: true,
			PlanID:       ptr(planPremium),
			Client:       &d,
		})
		require.NoError(t, err)
		require.Equal(t, user.RoleCliente, view.User.Role)
		require.Equal(t, "11111111H", view.Client.DNI)
		require.Equal(t, planPremium, view.Plan.ID)
		f.requireInvariants(t)
	})
}

func TestUpdateUserRole_Rejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.UpdateUserRole(ctx, clientID, entitlement.UpdateUserRoleInput{Role: "superuser"})
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.UpdateUserRole(ctx, clientID, entitlement.UpdateUserRoleInput{Role: user.RoleUsuario, Name: ptr("  ")})
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.UpdateUserRole(ctx, 999, entitlement.UpdateUserRoleInput{Role: user.RoleUsuario})
	require.ErrorIs(t, err, apperr.ErrNotFound)

	// entrenador → cliente недоступен напрямую.
	_, err = f.svc.UpdateUserRole(ctx, trainerID, entitlement.UpdateUserRoleInput{
		Role:         user.RoleCliente,
		CreateClient: true,
		PlanID:       ptr(planBasic),
	})
	require.ErrorIs(t, err, apperr.ErrInvalidState)
	require.Equal(t, 1, f.rec.failures["update_user_role:invalid_state"])
}

func TestUpdateUserRole_EmailConflict(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.UpdateUserRole(context.Background(), clientID, entitlement.UpdateUserRoleInput{
		Role:  user.RoleUsuario,
		Email: ptr("Carlos5@gym.test"),
	})
	require.ErrorIs(t, err, apperr.ErrConflict)
}

func TestUpdateUserRole_TrainerDemotionDeactivatesAssignments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.enrolledClient(t, planPremium)

	view, err := f.svc.UpdateUserRole(ctx, trainerID, entitlement.UpdateUserRoleInput{Role: user.RoleUsuario})
	require.NoError(t, err)
	require.Equal(t, user.RoleUsuario, view.User.Role)

	stored, err := f.store.Repositories().Assignments.GetByID(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, membership.AssignmentInactive, stored.Status)
	require.Equal(t, int64(1), f.rec.deactivated[entitlement.ReasonTrainerLeft])
}

func TestUpdateUserRole_SameRoleKeepsData(t *testing.T) {
	f := newFixture(t)
	view, err := f.svc.UpdateUserRole(context.Background(), trainerID, entitlement.UpdateUserRoleInput{
		Role: user.RoleEntrenador,
		Name: ptr("Carlos Ruiz"),
	})
	require.NoError(t, err)
	require.Equal(t, "Carlos Ruiz", view.User.Name)
	require.Empty(t, f.rec.roles)
}

func TestAssignTrainer_SecondAssignmentConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.enrolledClient(t, planPremium)
	require.Equal(t, membership.AssignmentActive, first.Status)
	require.Equal(t, "fuerza", first.Notes)

	addUser(t, f.store, 6, "Lucía", user.RoleEntrenador)
	_, err := f.svc.AssignTrainer(ctx, trainerID, clientID, "")
	require.ErrorIs(t, err, apperr.ErrConflict)
	_, err = f.svc.AssignTrainer(ctx, 6, clientID, "")
	require.ErrorIs(t, err, apperr.ErrConflict)
	require.Equal(t, 2, f.rec.failures["assign_trainer:conflict"])
	f.requireInvariants(t)
}

func TestAssignTrainer_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("plan without trainer", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.ContractPlan(ctx, clientID, planBasic, details(12345678))
		require.NoError(t, err)

		_, err = f.svc.AssignTrainer(ctx, trainerID, clientID, "")
		require.ErrorIs(t, err, apperr.ErrForbidden)
	})

	t.Run("not a client", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.AssignTrainer(ctx, trainerID, clientID, "")
		require.ErrorIs(t, err, apperr.ErrInvalidState)
	})

	t.Run("not a trainer", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.ContractPlan(ctx, clientID, planPremium, details(12345678))
		require.NoError(t, err)
		addUser(t, f.store, 7, "Admin", user.RoleAdmin)

		_, err = f.svc.AssignTrainer(ctx, 7, clientID, "")
		require.ErrorIs(t, err, apperr.ErrInvalidState)
	})

	t.Run("missing users", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.AssignTrainer(ctx, trainerID, 999, "")
		require.ErrorIs(t, err, apperr.ErrNotFound)

		_, err = f.svc.ContractPlan(ctx, clientID, planPremium, details(12345678))
		require.NoError(t, err)
		_, err = f.svc.AssignTrainer(ctx, 999, clientID, "")
		require.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestUnassignTrainer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.enrolledClient(t, planPremium)

	got, err := f.svc.UnassignTrainer(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, membership.AssignmentInactive, got.Status)
	require.Equal(t, int64(1), f.rec.deactivated[entitlement.ReasonUnassigned])

	_, err = f.svc.UnassignTrainer(ctx, a.ID)
	require.ErrorIs(t, err, apperr.ErrInvalidState)

	_, err = f.svc.UnassignTrainer(ctx, 999)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	// После снятия можно назначить снова; старая запись остаётся.
	again, err := f.svc.AssignTrainer(ctx, trainerID, clientID, "")
	require.NoError(t, err)
	require.NotEqual(t, a.ID, again.ID)
	old, err := f.store.Repositories().Assignments.GetByID(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, membership.AssignmentInactive, old.Status)
}

func TestAssignmentOverview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.enrolledClient(t, planPremium)

	addUser(t, f.store, 6, "Lucía", user.RoleEntrenador)
	addUser(t, f.store, 43, "Bea", user.RoleUsuario)
	_, err := f.svc.ContractPlan(ctx, 43, planElite, details(11111111))
	require.NoError(t, err)
	addUser(t, f.store, 44, "Dani", user.RoleUsuario)
	_, err = f.svc.ContractPlan(ctx, 44, planBasic, details(87654321))
	require.NoError(t, err)

	ov, err := f.svc.AssignmentOverview(ctx)
	require.NoError(t, err)
	require.Len(t, ov.Trainers, 2)

	byID := map[int64]entitlement.TrainerClients{}
	for _, tc := range ov.Trainers {
		byID[tc.TrainerID] = tc
	}
	require.Len(t, byID[trainerID].Clients, 1)
	require.Equal(t, clientID, byID[trainerID].Clients[0].UserID)
	require.Equal(t, "Premium", byID[trainerID].Clients[0].PlanName)
	require.Empty(t, byID[6].Clients)

	// Клиент без доступа к тренеру не считается свободным.
	require.Len(t, ov.Unassigned, 1)
	require.Equal(t, int64(43), ov.Unassigned[0].UserID)
}

func TestListUserViews(t *testing.T) {
	f := newFixture(t)
	f.enrolledClient(t, planPremium)

	views, err := f.svc.ListUserViews(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 2)
	for _, v := range views {
		if v.User.ID == clientID {
			require.NotNil(t, v.Client)
			require.Equal(t, "Premium", v.Plan.Name)
		} else {
			require.Nil(t, v.Client)
		}
	}
}
