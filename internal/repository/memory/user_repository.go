package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	domain "gym-app/internal/domain/user"
	repo "gym-app/internal/repository/interfaces"
)

// UserRepository реализует repo.UserRepository в памяти.
type UserRepository struct {
	db *db
}

var _ repo.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) emailTaken(email string, exceptID int64) bool {
	for _, u := range r.db.st.users {
		if u.ID != exceptID && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func (r *UserRepository) Create(_ context.Context, u *domain.User) error {
	defer r.db.lock()()
	if r.emailTaken(u.Email, 0) {
		return repo.ErrEmailExists
	}
	if u.ID == 0 {
		u.ID = r.db.st.next("users")
	} else if _, ok := r.db.st.users[u.ID]; ok {
		return errDuplicateKey
	} else if u.ID > r.db.st.seq["users"] {
		r.db.st.seq["users"] = u.ID
	}
	r.db.st.users[u.ID] = *u
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id int64) (*domain.User, error) {
	defer r.db.lock()()
	u, ok := r.db.st.users[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &u, nil
}

func (r *UserRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.User, error) {
	return r.GetByID(ctx, id)
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	defer r.db.lock()()
	for _, u := range r.db.st.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (r *UserRepository) Update(_ context.Context, u *domain.User) error {
	defer r.db.lock()()
	cur, ok := r.db.st.users[u.ID]
	if !ok {
		return repo.ErrNotFound
	}
	if r.emailTaken(u.Email, u.ID) {
		return repo.ErrEmailExists
	}
	cur.Name = u.Name
	cur.Email = u.Email
	cur.Role = u.Role
	cur.IsEmailVerified = u.IsEmailVerified
	cur.UpdatedAt = time.Now().UTC()
	r.db.st.users[u.ID] = cur
	u.UpdatedAt = cur.UpdatedAt
	return nil
}

func (r *UserRepository) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	defer r.db.lock()()
	cur, ok := r.db.st.users[id]
	if !ok {
		return repo.ErrNotFound
	}
	cur.PasswordHash = passwordHash
	cur.UpdatedAt = time.Now().UTC()
	r.db.st.users[id] = cur
	return nil
}

func (r *UserRepository) List(_ context.Context) ([]*domain.User, error) {
	defer r.db.lock()()
	out := make([]*domain.User, 0, len(r.db.st.users))
	for _, u := range r.db.st.users {
		u := u
		out = append(out, &u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *UserRepository) ListByRole(_ context.Context, role domain.Role) ([]*domain.User, error) {
	defer r.db.lock()()
	var out []*domain.User
	for _, u := range r.db.st.users {
		if u.Role == role {
			u := u
			out = append(out, &u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *UserRepository) CountByRole(_ context.Context, role domain.Role) (int64, error) {
	defer r.db.lock()()
	var n int64
	for _, u := range r.db.st.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

// AuthTokenRepository реализует repo.AuthTokenRepository в памяти.
type AuthTokenRepository struct {
	db *db
}

var _ repo.AuthTokenRepository = (*AuthTokenRepository)(nil)

func (r *AuthTokenRepository) Create(_ context.Context, t *domain.AuthToken) error {
	defer r.db.lock()()
	if _, ok := r.db.st.users[t.UserID]; !ok {
		return repo.ErrReferenceViolation
	}
	t.ID = r.db.st.next("auth_tokens")
	r.db.st.tokens[t.ID] = *t
	return nil
}

func (r *AuthTokenRepository) GetByHash(_ context.Context, hash string, purpose domain.TokenPurpose) (*domain.AuthToken, error) {
	defer r.db.lock()()
	for _, t := range r.db.st.tokens {
		if t.TokenHash == hash && t.Purpose == purpose {
			return &t, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (r *AuthTokenRepository) Delete(_ context.Context, id int64) error {
	defer r.db.lock()()
	delete(r.db.st.tokens, id)
	return nil
}

func (r *AuthTokenRepository) DeleteByUser(_ context.Context, userID int64, purpose domain.TokenPurpose) error {
	defer r.db.lock()()
	for id, t := range r.db.st.tokens {
		if t.UserID == userID && t.Purpose == purpose {
			delete(r.db.st.tokens, id)
		}
	}
	return nil
}
