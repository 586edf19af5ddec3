package memory

import (
	"context"
	"sort"

	"gym-app/internal/domain/membership"
	repo "gym-app/internal/repository/interfaces"
)

// PlanRepository реализует repo.PlanRepository в памяти.
type PlanRepository struct {
	db *db
}

var _ repo.PlanRepository = (*PlanRepository)(nil)

func clonePlan(p membership.Plan) *membership.Plan {
	p.Features = append([]string(nil), p.Features...)
	return &p
}

func (r *PlanRepository) GetByID(_ context.Context, id int64) (*membership.Plan, error) {
	defer r.db.lock()()
	p, ok := r.db.st.plans[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return clonePlan(p), nil
}

func (r *PlanRepository) List(_ context.Context, activeOnly bool) ([]*membership.Plan, error) {
	defer r.db.lock()()
	var out []*membership.Plan
	for _, p := range r.db.st.plans {
		if activeOnly && !p.Active {
			continue
		}
		out = append(out, clonePlan(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayOrder != out[j].DisplayOrder {
			return out[i].DisplayOrder < out[j].DisplayOrder
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *PlanRepository) Create(_ context.Context, p *membership.Plan) error {
	defer r.db.lock()()
	if p.ID == 0 {
		p.ID = r.db.st.next("planes")
	} else if p.ID > r.db.st.seq["planes"] {
		r.db.st.seq["planes"] = p.ID
	}
	r.db.st.plans[p.ID] = *clonePlan(*p)
	return nil
}

func (r *PlanRepository) Update(_ context.Context, p *membership.Plan) error {
	defer r.db.lock()()
	if _, ok := r.db.st.plans[p.ID]; !ok {
		return repo.ErrNotFound
	}
	r.db.st.plans[p.ID] = *clonePlan(*p)
	return nil
}

// ClientRepository реализует repo.ClientRepository в памяти.
type ClientRepository struct {
	db *db
}

var _ repo.ClientRepository = (*ClientRepository)(nil)

func (r *ClientRepository) dniTaken(dni string, exceptUserID int64) bool {
	for _, c := range r.db.st.clients {
		if c.DNI == dni && c.UserID != exceptUserID {
			return true
		}
	}
	return false
}

func (r *ClientRepository) Create(_ context.Context, c *membership.Client) error {
	defer r.db.lock()()
	if _, ok := r.db.st.users[c.UserID]; !ok {
		return repo.ErrReferenceViolation
	}
	if _, ok := r.db.st.plans[c.PlanID]; !ok {
		return repo.ErrReferenceViolation
	}
	for _, existing := range r.db.st.clients {
		if existing.UserID == c.UserID {
			return repo.ErrClientExists
		}
	}
	if r.dniTaken(c.DNI, 0) {
		return repo.ErrDNIExists
	}
	c.ID = r.db.st.next("clientes")
	r.db.st.clients[c.ID] = *c
	return nil
}

func (r *ClientRepository) GetByUserID(_ context.Context, userID int64) (*membership.Client, error) {
	defer r.db.lock()()
	for _, c := range r.db.st.clients {
		if c.UserID == userID {
			return &c, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (r *ClientRepository) Update(_ context.Context, c *membership.Client) error {
	defer r.db.lock()()
	if _, ok := r.db.st.clients[c.ID]; !ok {
		return repo.ErrNotFound
	}
	if _, ok := r.db.st.plans[c.PlanID]; !ok {
		return repo.ErrReferenceViolation
	}
	if r.dniTaken(c.DNI, c.UserID) {
		return repo.ErrDNIExists
	}
	r.db.st.clients[c.ID] = *c
	return nil
}

func (r *ClientRepository) DeleteByUserID(_ context.Context, userID int64) error {
	defer r.db.lock()()
	for id, c := range r.db.st.clients {
		if c.UserID != userID {
			continue
		}
		// ON DELETE SET NULL для истории назначений и резерваций.
		for aid, a := range r.db.st.assignments {
			if a.ClientID == id {
				a.ClientID = 0
				r.db.st.assignments[aid] = a
			}
		}
		for rid, res := range r.db.st.reservations {
			if res.ClientID == id {
				res.ClientID = 0
				r.db.st.reservations[rid] = res
			}
		}
		delete(r.db.st.clients, id)
		return nil
	}
	return repo.ErrNotFound
}

func (r *ClientRepository) ExistsByDNI(_ context.Context, dni string, excludeUserID int64) (bool, error) {
	defer r.db.lock()()
	return r.dniTaken(dni, excludeUserID), nil
}

func (r *ClientRepository) List(_ context.Context) ([]*membership.Client, error) {
	defer r.db.lock()()
	out := make([]*membership.Client, 0, len(r.db.st.clients))
	for _, c := range r.db.st.clients {
		c := c
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *ClientRepository) CountActive(_ context.Context) (int64, error) {
	defer r.db.lock()()
	var n int64
	for _, c := range r.db.st.clients {
		if c.Status == membership.ClientActive {
			n++
		}
	}
	return n, nil
}

// AssignmentRepository реализует repo.AssignmentRepository в памяти.
type AssignmentRepository struct {
	db *db
}

var _ repo.AssignmentRepository = (*AssignmentRepository)(nil)

func (r *AssignmentRepository) Create(_ context.Context, a *membership.TrainerAssignment) error {
	defer r.db.lock()()
	if _, ok := r.db.st.users[a.TrainerID]; !ok {
		return repo.ErrReferenceViolation
	}
	if _, ok := r.db.st.clients[a.ClientID]; !ok {
		return repo.ErrReferenceViolation
	}
	if a.Status == "" {
		a.Status = membership.AssignmentActive
	}
	if a.Status == membership.AssignmentActive {
		for _, existing := range r.db.st.assignments {
			if existing.ClientUserID == a.ClientUserID && existing.IsActive() {
				return repo.ErrActiveAssignmentExists
			}
		}
	}
	a.ID = r.db.st.next("asignaciones")
	r.db.st.assignments[a.ID] = *a
	return nil
}

func (r *AssignmentRepository) GetByID(_ context.Context, id int64) (*membership.TrainerAssignment, error) {
	defer r.db.lock()()
	a, ok := r.db.st.assignments[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &a, nil
}

func (r *AssignmentRepository) GetActiveByClientUserID(_ context.Context, clientUserID int64) (*membership.TrainerAssignment, error) {
	defer r.db.lock()()
	for _, a := range r.db.st.assignments {
		if a.ClientUserID == clientUserID && a.IsActive() {
			return &a, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (r *AssignmentRepository) Deactivate(_ context.Context, id int64) error {
	defer r.db.lock()()
	a, ok := r.db.st.assignments[id]
	if !ok || !a.IsActive() {
		return repo.ErrNotFound
	}
	a.Status = membership.AssignmentInactive
	r.db.st.assignments[id] = a
	return nil
}

func (r *AssignmentRepository) deactivateWhere(match func(membership.TrainerAssignment) bool) int64 {
	var n int64
	for id, a := range r.db.st.assignments {
		if a.IsActive() && match(a) {
			a.Status = membership.AssignmentInactive
			r.db.st.assignments[id] = a
			n++
		}
	}
	return n
}

func (r *AssignmentRepository) DeactivateByClientUserID(_ context.Context, clientUserID int64) (int64, error) {
	defer r.db.lock()()
	return r.deactivateWhere(func(a membership.TrainerAssignment) bool {
		return a.ClientUserID == clientUserID
	}), nil
}

func (r *AssignmentRepository) DeactivateByTrainerID(_ context.Context, trainerID int64) (int64, error) {
	defer r.db.lock()()
	return r.deactivateWhere(func(a membership.TrainerAssignment) bool {
		return a.TrainerID == trainerID
	}), nil
}

func (r *AssignmentRepository) summary(c membership.Client) repo.ClientSummary {
	u := r.db.st.users[c.UserID]
	p := r.db.st.plans[c.PlanID]
	return repo.ClientSummary{
		UserID:        c.UserID,
		ClientID:      c.ID,
		Name:          u.Name,
		Email:         u.Email,
		PlanID:        c.PlanID,
		PlanName:      p.Name,
		TrainerAccess: p.TrainerAccess,
	}
}

func (r *AssignmentRepository) ListActive(_ context.Context) ([]repo.ActiveAssignment, error) {
	defer r.db.lock()()
	var out []repo.ActiveAssignment
	for _, a := range r.db.st.assignments {
		if !a.IsActive() {
			continue
		}
		c, ok := r.db.st.clients[a.ClientID]
		if !ok {
			continue
		}
		out = append(out, repo.ActiveAssignment{
			AssignmentID: a.ID,
			TrainerID:    a.TrainerID,
			TrainerName:  r.db.st.users[a.TrainerID].Name,
			AssignedAt:   a.AssignedAt,
			Notes:        a.Notes,
			Client:       r.summary(c),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TrainerName != out[j].TrainerName {
			return out[i].TrainerName < out[j].TrainerName
		}
		return out[i].AssignmentID < out[j].AssignmentID
	})
	return out, nil
}

func (r *AssignmentRepository) ListUnassignedClients(_ context.Context) ([]repo.ClientSummary, error) {
	defer r.db.lock()()
	assigned := map[int64]bool{}
	for _, a := range r.db.st.assignments {
		if a.IsActive() {
			assigned[a.ClientUserID] = true
		}
	}
	var out []repo.ClientSummary
	for _, c := range r.db.st.clients {
		if assigned[c.UserID] || c.Status != membership.ClientActive {
			continue
		}
		if !r.db.st.plans[c.PlanID].TrainerAccess {
			continue
		}
		out = append(out, r.summary(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
