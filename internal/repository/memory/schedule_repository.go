package memory

import (
	"context"
	"sort"
	"time"

	"gym-app/internal/domain/schedule"
	repo "gym-app/internal/repository/interfaces"
)

// ScheduleRepository реализует repo.ScheduleRepository в памяти.
type ScheduleRepository struct {
	db *db
}

var _ repo.ScheduleRepository = (*ScheduleRepository)(nil)

func (r *ScheduleRepository) ListClasses(_ context.Context) ([]*schedule.GymClass, error) {
	defer r.db.lock()()
	var out []*schedule.GymClass
	for _, c := range r.db.st.classes {
		if c.Active {
			c := c
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *ScheduleRepository) GetClass(_ context.Context, id int64) (*schedule.GymClass, error) {
	defer r.db.lock()()
	c, ok := r.db.st.classes[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &c, nil
}

func (r *ScheduleRepository) CreateClass(_ context.Context, c *schedule.GymClass) error {
	defer r.db.lock()()
	c.ID = r.db.st.next("gym_clases")
	r.db.st.classes[c.ID] = *c
	return nil
}

func (r *ScheduleRepository) CreateScheduled(_ context.Context, s *schedule.ScheduledClass) error {
	defer r.db.lock()()
	if _, ok := r.db.st.classes[s.ClassID]; !ok {
		return repo.ErrReferenceViolation
	}
	if _, ok := r.db.st.users[s.TrainerID]; !ok {
		return repo.ErrReferenceViolation
	}
	s.ID = r.db.st.next("clases_programadas")
	r.db.st.scheduled[s.ID] = *s
	return nil
}

func (r *ScheduleRepository) enrich(s schedule.ScheduledClass) *schedule.ScheduledClass {
	s.ClassName = r.db.st.classes[s.ClassID].Name
	s.TrainerName = r.db.st.users[s.TrainerID].Name
	s.Reserved = 0
	for _, res := range r.db.st.reservations {
		if res.ScheduledClassID == s.ID && res.Status == schedule.ReservationActive {
			s.Reserved++
		}
	}
	return &s
}

func (r *ScheduleRepository) GetScheduled(_ context.Context, id int64) (*schedule.ScheduledClass, error) {
	defer r.db.lock()()
	s, ok := r.db.st.scheduled[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return r.enrich(s), nil
}

func (r *ScheduleRepository) GetScheduledForUpdate(ctx context.Context, id int64) (*schedule.ScheduledClass, error) {
	return r.GetScheduled(ctx, id)
}

func (r *ScheduleRepository) ListUpcoming(_ context.Context, from time.Time) ([]*schedule.ScheduledClass, error) {
	defer r.db.lock()()
	var out []*schedule.ScheduledClass
	for _, s := range r.db.st.scheduled {
		if s.Status == schedule.ScheduledPlanned && s.StartsAt.After(from) {
			out = append(out, r.enrich(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

func (r *ScheduleRepository) UpdateScheduledStatus(_ context.Context, id int64, status schedule.ScheduledStatus) error {
	defer r.db.lock()()
	s, ok := r.db.st.scheduled[id]
	if !ok {
		return repo.ErrNotFound
	}
	s.Status = status
	r.db.st.scheduled[id] = s
	return nil
}

// ReservationRepository реализует repo.ReservationRepository в памяти.
type ReservationRepository struct {
	db *db
}

var _ repo.ReservationRepository = (*ReservationRepository)(nil)

func (r *ReservationRepository) Create(_ context.Context, res *schedule.Reservation) error {
	defer r.db.lock()()
	if _, ok := r.db.st.scheduled[res.ScheduledClassID]; !ok {
		return repo.ErrReferenceViolation
	}
	if res.Status == "" {
		res.Status = schedule.ReservationActive
	}
	for _, existing := range r.db.st.reservations {
		if existing.UserID == res.UserID &&
			existing.ScheduledClassID == res.ScheduledClassID &&
			existing.Status == schedule.ReservationActive {
			return repo.ErrReservationExists
		}
	}
	now := time.Now().UTC()
	res.ID = r.db.st.next("reservas")
	res.CreatedAt, res.UpdatedAt = now, now
	r.db.st.reservations[res.ID] = *res
	return nil
}

func (r *ReservationRepository) GetByID(_ context.Context, id int64) (*schedule.Reservation, error) {
	defer r.db.lock()()
	res, ok := r.db.st.reservations[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &res, nil
}

func (r *ReservationRepository) UpdateStatus(_ context.Context, id int64, status schedule.ReservationStatus) error {
	defer r.db.lock()()
	res, ok := r.db.st.reservations[id]
	if !ok {
		return repo.ErrNotFound
	}
	res.Status = status
	res.UpdatedAt = time.Now().UTC()
	r.db.st.reservations[id] = res
	return nil
}

func (r *ReservationRepository) CountActiveByUserID(_ context.Context, userID int64) (int64, error) {
	defer r.db.lock()()
	var n int64
	for _, res := range r.db.st.reservations {
		if res.UserID == userID && res.Status == schedule.ReservationActive {
			n++
		}
	}
	return n, nil
}

func (r *ReservationRepository) CancelActiveByScheduledID(_ context.Context, scheduledID int64) (int64, error) {
	defer r.db.lock()()
	var n int64
	for id, res := range r.db.st.reservations {
		if res.ScheduledClassID == scheduledID && res.Status == schedule.ReservationActive {
			res.Status = schedule.ReservationCancelled
			r.db.st.reservations[id] = res
			n++
		}
	}
	return n, nil
}

func (r *ReservationRepository) ListByUserID(_ context.Context, userID int64) ([]repo.ReservationDetail, error) {
	defer r.db.lock()()
	var out []repo.ReservationDetail
	for _, res := range r.db.st.reservations {
		if res.UserID != userID {
			continue
		}
		s := r.db.st.scheduled[res.ScheduledClassID]
		out = append(out, repo.ReservationDetail{
			Reservation: res,
			ClassName:   r.db.st.classes[s.ClassID].Name,
			TrainerName: r.db.st.users[s.TrainerID].Name,
			StartsAt:    s.StartsAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.After(out[j].StartsAt) })
	return out, nil
}
