package entitlement

import (
	"context"
	"errors"
	"fmt"

	"gym-app/internal/domain/membership"
	"gym-app/internal/domain/user"
	repo "gym-app/internal/repository/interfaces"
)

// GetUserView собирает пользователя вместе с профилем клиента, планом и тренером.
func (s *service) GetUserView(ctx context.Context, userID int64) (*UserView, error) {
	u, err := s.repos.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user %d: %w", userID, err)
	}
	view := &UserView{User: u}
	if u.Role != user.RoleCliente {
		return view, nil
	}

	client, err := s.repos.Clients.GetByUserID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return view, nil
	}
	if err != nil {
		return nil, err
	}
	view.Client = client

	plan, err := s.repos.Plans.GetByID(ctx, client.PlanID)
	if err != nil {
		return nil, fmt.Errorf("plan %d: %w", client.PlanID, err)
	}
	view.Plan = plan

	a, err := s.repos.Assignments.GetActiveByClientUserID(ctx, userID)
	switch {
	case err == nil:
		view.Assignment = a
	case !errors.Is(err, repo.ErrNotFound):
		return nil, err
	}
	return view, nil
}

// ListUserViews возвращает всех пользователей с их профилями клиентов.
func (s *service) ListUserViews(ctx context.Context) ([]*UserView, error) {
	users, err := s.repos.Users.List(ctx)
	if err != nil {
		return nil, err
	}
	clients, err := s.repos.Clients.List(ctx)
	if err != nil {
		return nil, err
	}
	plans, err := s.repos.Plans.List(ctx, false)
	if err != nil {
		return nil, err
	}

	byUser := make(map[int64]*membership.Client, len(clients))
	for _, c := range clients {
		byUser[c.UserID] = c
	}
	byID := make(map[int64]*membership.Plan, len(plans))
	for _, p := range plans {
		byID[p.ID] = p
	}

	views := make([]*UserView, 0, len(users))
	for _, u := range users {
		v := &UserView{User: u}
		if c, ok := byUser[u.ID]; ok {
			v.Client = c
			v.Plan = byID[c.PlanID]
		}
		views = append(views, v)
	}
	return views, nil
}

// AssignmentOverview группирует активные назначения по тренерам.
// Тренеры без клиентов тоже попадают в список.
func (s *service) AssignmentOverview(ctx context.Context) (*AssignmentOverview, error) {
	trainers, err := s.repos.Users.ListByRole(ctx, user.RoleEntrenador)
	if err != nil {
		return nil, err
	}
	active, err := s.repos.Assignments.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	unassigned, err := s.repos.Assignments.ListUnassignedClients(ctx)
	if err != nil {
		return nil, err
	}

	clients := make(map[int64][]AssignedClient, len(trainers))
	for _, a := range active {
		clients[a.TrainerID] = append(clients[a.TrainerID], AssignedClient{
			AssignmentID:  a.AssignmentID,
			AssignedAt:    a.AssignedAt,
			Notes:         a.Notes,
			ClientSummary: a.Client,
		})
	}

	out := &AssignmentOverview{
		Trainers:   make([]TrainerClients, 0, len(trainers)),
		Unassigned: unassigned,
	}
	for _, t := range trainers {
		out.Trainers = append(out.Trainers, TrainerClients{
			TrainerID: t.ID,
			Name:      t.Name,
			Email:     t.Email,
			Clients:   clients[t.ID],
		})
	}
	return out, nil
}
