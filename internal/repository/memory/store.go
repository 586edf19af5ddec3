// Package memory реализует репозитории в памяти процесса.
//
// Store поддерживает транзакции: Do работает с копией состояния и
// публикует её только при успешном завершении fn. Правила уникальности
// совпадают с ограничениями схемы Postgres.
package memory

import (
	"context"
	"fmt"
	"sync"

	"gym-app/internal/apperr"
	"gym-app/internal/domain/membership"
	"gym-app/internal/domain/schedule"
	"gym-app/internal/domain/user"
	repo "gym-app/internal/repository/interfaces"
)

var errDuplicateKey = fmt.Errorf("duplicate primary key: %w", apperr.ErrConflict)

type state struct {
	seq map[string]int64

	users        map[int64]user.User
	tokens       map[int64]user.AuthToken
	plans        map[int64]membership.Plan
	clients      map[int64]membership.Client
	assignments  map[int64]membership.TrainerAssignment
	classes      map[int64]schedule.GymClass
	scheduled    map[int64]schedule.ScheduledClass
	reservations map[int64]schedule.Reservation
}

func newState() *state {
	return &state{
		seq:          map[string]int64{},
		users:        map[int64]user.User{},
		tokens:       map[int64]user.AuthToken{},
		plans:        map[int64]membership.Plan{},
		clients:      map[int64]membership.Client{},
		assignments:  map[int64]membership.TrainerAssignment{},
		classes:      map[int64]schedule.GymClass{},
		scheduled:    map[int64]schedule.ScheduledClass{},
		reservations: map[int64]schedule.Reservation{},
	}
}

func (s *state) next(table string) int64 {
	s.seq[table]++
	return s.seq[table]
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.seq {
		c.seq[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.tokens {
		c.tokens[k] = v
	}
	for k, v := range s.plans {
		v.Features = append([]string(nil), v.Features...)
		c.plans[k] = v
	}
	for k, v := range s.clients {
		c.clients[k] = v
	}
	for k, v := range s.assignments {
		c.assignments[k] = v
	}
	for k, v := range s.classes {
		c.classes[k] = v
	}
	for k, v := range s.scheduled {
		c.scheduled[k] = v
	}
	for k, v := range s.reservations {
		c.reservations[k] = v
	}
	return c
}

// db — доступ к состоянию. У транзакционного db mu == nil: блокировку держит Do.
type db struct {
	mu *sync.Mutex
	st *state
}

func (d *db) lock() func() {
	if d.mu == nil {
		return func() {}
	}
	d.mu.Lock()
	return d.mu.Unlock
}

// Store — хранилище в памяти. Безопасно для конкурентного использования.
type Store struct {
	mu   sync.Mutex
	live *db
}

var _ repo.UnitOfWork = (*Store)(nil)

// NewStore создаёт пустое хранилище.
func NewStore() *Store {
	s := &Store{}
	s.live = &db{mu: &s.mu, st: newState()}
	return s
}

// Repositories возвращает репозитории, работающие вне транзакции.
func (s *Store) Repositories() repo.Repositories {
	return repositories(s.live)
}

// Do выполняет fn над копией состояния и фиксирует её, если fn вернула nil.
// Транзакции сериализуются.
func (s *Store) Do(ctx context.Context, fn func(r repo.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &db{st: s.live.st.clone()}
	if err := fn(repositories(tx)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.live.st = tx.st
	return nil
}

func repositories(d *db) repo.Repositories {
	return repo.Repositories{
		Users:        &UserRepository{db: d},
		AuthTokens:   &AuthTokenRepository{db: d},
		Plans:        &PlanRepository{db: d},
		Clients:      &ClientRepository{db: d},
		Assignments:  &AssignmentRepository{db: d},
		Schedule:     &ScheduleRepository{db: d},
		Reservations: &ReservationRepository{db: d},
	}
}
