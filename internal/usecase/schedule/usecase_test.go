package schedule_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gym-app/internal/apperr"
	"gym-app/internal/domain/membership"
	domain "gym-app/internal/domain/schedule"
	"gym-app/internal/domain/user"
	"gym-app/internal/repository/memory"
	"gym-app/internal/usecase/schedule"
	"gym-app/pkg/logger"
)

type fakeRecorder struct {
	changes map[string]int64
}

func (r *fakeRecorder) ReservationChanged(status string, n int64) { r.changes[status] += n }

type env struct {
	svc     schedule.Service
	store   *memory.Store
	rec     *fakeRecorder
	trainer *user.User
	class   *domain.GymClass
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := memory.NewStore()
	rec := &fakeRecorder{changes: map[string]int64{}}
	svc := schedule.NewService(store.Repositories(), store, logger.Nop(), rec)

	trainer := addUser(t, store, "Carlos", user.RoleEntrenador)
	class, err := svc.CreateClass(context.Background(), schedule.ClassInput{
		Name: "Spinning", DurationMinutes: 45, Capacity: 2, Level: "intermedio",
	})
	require.NoError(t, err)

	return &env{svc: svc, store: store, rec: rec, trainer: trainer, class: class}
}

func addUser(t *testing.T, store *memory.Store, name string, role user.Role) *user.User {
	t.Helper()
	u := user.NewUser(name, name+"@gym.test", "hash")
	u.Role = role
	require.NoError(t, store.Repositories().Users.Create(context.Background(), u))
	return u
}

// addClient создаёт пользователя-клиента с планом, ограниченным limit занятиями (nil — без лимита).
func (e *env) addClient(t *testing.T, name, dni string, limit *int) *user.User {
	t.Helper()
	ctx := context.Background()
	repos := e.store.Repositories()
	u := addUser(t, e.store, name, user.RoleCliente)
	p := &membership.Plan{Name: "Plan " + name, Active: true, ClassLimit: limit}
	require.NoError(t, repos.Plans.Create(ctx, p))
	require.NoError(t, repos.Clients.Create(ctx, &membership.Client{
		UserID: u.ID, DNI: dni, PlanID: p.ID, Status: membership.ClientActive,
	}))
	return u
}

func (e *env) schedule(t *testing.T, in time.Duration) *domain.ScheduledClass {
	t.Helper()
	sc, err := e.svc.ScheduleClass(context.Background(), schedule.ScheduleInput{
		ClassID:   e.class.ID,
		TrainerID: e.trainer.ID,
		StartsAt:  time.Now().Add(in),
	})
	require.NoError(t, err)
	return sc
}

func TestScheduleClass_DefaultsAndValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	sc := e.schedule(t, 24*time.Hour)
	require.Equal(t, 45, sc.DurationMinutes)
	require.Equal(t, 2, sc.Capacity)
	require.Equal(t, domain.ScheduledPlanned, sc.Status)

	_, err := e.svc.ScheduleClass(ctx, schedule.ScheduleInput{
		ClassID: e.class.ID, TrainerID: e.trainer.ID, StartsAt: time.Now().Add(-time.Hour),
	})
	require.ErrorIs(t, err, apperr.ErrValidation)

	admin := addUser(t, e.store, "Admin", user.RoleAdmin)
	_, err = e.svc.ScheduleClass(ctx, schedule.ScheduleInput{
		ClassID: e.class.ID, TrainerID: admin.ID, StartsAt: time.Now().Add(time.Hour),
	})
	require.ErrorIs(t, err, apperr.ErrInvalidState)

	_, err = e.svc.ScheduleClass(ctx, schedule.ScheduleInput{
		ClassID: 999, TrainerID: e.trainer.ID, StartsAt: time.Now().Add(time.Hour),
	})
	require.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = e.svc.CreateClass(ctx, schedule.ClassInput{Name: "", DurationMinutes: 30, Capacity: 5})
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestReserve(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sc := e.schedule(t, 24*time.Hour)

	ana := e.addClient(t, "Ana", "12345678Z", nil)
	bea := e.addClient(t, "Bea", "11111111H", nil)
	dani := e.addClient(t, "Dani", "87654321X", nil)

	res, err := e.svc.Reserve(ctx, ana.ID, sc.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ReservationActive, res.Status)

	_, err = e.svc.Reserve(ctx, ana.ID, sc.ID)
	require.ErrorIs(t, err, apperr.ErrConflict)

	_, err = e.svc.Reserve(ctx, bea.ID, sc.ID)
	require.NoError(t, err)

	_, err = e.svc.Reserve(ctx, dani.ID, sc.ID)
	require.ErrorIs(t, err, apperr.ErrConflict, "class is full")

	upcoming, err := e.svc.ListUpcoming(ctx)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	require.Equal(t, 0, upcoming[0].FreeSlots())
	require.Equal(t, "Spinning", upcoming[0].ClassName)

	list, err := e.svc.ListReservations(ctx, ana.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "Carlos", list[0].TrainerName)
	require.Equal(t, int64(2), e.rec.changes["activa"])
}

func TestReserve_Rejections(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sc := e.schedule(t, 24*time.Hour)

	visitor := addUser(t, e.store, "Visitante", user.RoleUsuario)
	_, err := e.svc.Reserve(ctx, visitor.ID, sc.ID)
	require.ErrorIs(t, err, apperr.ErrInvalidState)

	ana := e.addClient(t, "Ana", "12345678Z", nil)
	_, err = e.svc.Reserve(ctx, ana.ID, 999)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	require.NoError(t, e.svc.CancelScheduled(ctx, sc.ID))
	_, err = e.svc.Reserve(ctx, ana.ID, sc.ID)
	require.ErrorIs(t, err, apperr.ErrInvalidState)
}

func TestReserve_PlanClassLimit(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	one := 1
	ana := e.addClient(t, "Ana", "12345678Z", &one)

	first := e.schedule(t, 24*time.Hour)
	second := e.schedule(t, 48*time.Hour)

	_, err := e.svc.Reserve(ctx, ana.ID, first.ID)
	require.NoError(t, err)
	_, err = e.svc.Reserve(ctx, ana.ID, second.ID)
	require.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestCancelScheduled_CancelsReservations(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sc := e.schedule(t, 24*time.Hour)
	ana := e.addClient(t, "Ana", "12345678Z", nil)

	res, err := e.svc.Reserve(ctx, ana.ID, sc.ID)
	require.NoError(t, err)

	require.NoError(t, e.svc.CancelScheduled(ctx, sc.ID))
	require.ErrorIs(t, e.svc.CancelScheduled(ctx, sc.ID), apperr.ErrInvalidState)

	got, err := e.store.Repositories().Reservations.GetByID(ctx, res.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ReservationCancelled, got.Status)
	require.Equal(t, int64(1), e.rec.changes["cancelada"])

	upcoming, err := e.svc.ListUpcoming(ctx)
	require.NoError(t, err)
	require.Empty(t, upcoming)
}

func TestCancelReservationAndAttendance(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sc := e.schedule(t, 24*time.Hour)
	ana := e.addClient(t, "Ana", "12345678Z", nil)
	bea := e.addClient(t, "Bea", "11111111H", nil)

	res, err := e.svc.Reserve(ctx, ana.ID, sc.ID)
	require.NoError(t, err)

	require.ErrorIs(t, e.svc.CancelReservation(ctx, bea.ID, res.ID), apperr.ErrForbidden)
	require.ErrorIs(t, e.svc.CancelReservation(ctx, ana.ID, 999), apperr.ErrNotFound)
	require.NoError(t, e.svc.CancelReservation(ctx, ana.ID, res.ID))
	require.ErrorIs(t, e.svc.CancelReservation(ctx, ana.ID, res.ID), apperr.ErrInvalidState)

	// После отмены можно записаться снова.
	again, err := e.svc.Reserve(ctx, ana.ID, sc.ID)
	require.NoError(t, err)
	require.NoError(t, e.svc.MarkAttendance(ctx, again.ID))
	require.ErrorIs(t, e.svc.MarkAttendance(ctx, again.ID), apperr.ErrInvalidState)

	got, err := e.store.Repositories().Reservations.GetByID(ctx, again.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ReservationCompleted, got.Status)
	require.Equal(t, int64(1), e.rec.changes["completada"])
}
