package postgres

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "gym-app/internal/domain/user"
	repo "gym-app/internal/repository/interfaces"
)

// pgUser представляет собой ORM-модель для таблицы users.
type pgUser struct {
	ID            int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Name          string    `gorm:"column:name;type:varchar(100);not null"`
	Email         string    `gorm:"column:email;type:varchar(255);not null"`
	PasswordHash  string    `gorm:"column:password_hash;type:varchar(255);not null"`
	EmailVerified bool      `gorm:"column:email_verified;not null"`
	Role          string    `gorm:"column:role;type:varchar(20);not null"`
	CreatedAt     time.Time `gorm:"column:created_at;type:timestamptz;not null"`
	UpdatedAt     time.Time `gorm:"column:updated_at;type:timestamptz;not null"`
}

func (pgUser) TableName() string {
	return "users"
}

func (m *pgUser) toDomain() *domain.User {
	return &domain.User{
		ID:              m.ID,
		Name:            m.Name,
		Email:           m.Email,
		PasswordHash:    m.PasswordHash,
		IsEmailVerified: m.EmailVerified,
		Role:            domain.Role(m.Role),
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func userFromDomain(u *domain.User) *pgUser {
	return &pgUser{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		PasswordHash:  u.PasswordHash,
		EmailVerified: u.IsEmailVerified,
		Role:          string(u.Role),
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

// UserRepository реализует repo.UserRepository с использованием GORM и Postgres.
type UserRepository struct {
	db *gorm.DB
}

// Убедимся на этапе компиляции, что структура реализует интерфейс.
var _ repo.UserRepository = (*UserRepository)(nil)

// NewUserRepository создает новый репозиторий пользователей.
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create создает нового пользователя в БД.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	model := userFromDomain(user)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err, constraintUsersEmail) {
			return repo.ErrEmailExists
		}
		return err
	}
	user.ID = model.ID
	return nil
}

func (r *UserRepository) one(q *gorm.DB) (*domain.User, error) {
	var model pgUser
	if err := q.Take(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.toDomain(), nil
}

// GetByID возвращает пользователя по идентификатору.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.one(r.db.WithContext(ctx).Where("id = ?", id))
}

// GetByIDForUpdate читает пользователя с SELECT ... FOR UPDATE.
func (r *UserRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.User, error) {
	return r.one(r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id))
}

// GetByEmail возвращает пользователя по email без учёта регистра.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.one(r.db.WithContext(ctx).Where("email = ?", strings.ToLower(email)))
}

// Update обновляет данные пользователя.
// Не обновляет защищенные поля: id, created_at, password_hash.
func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&pgUser{}).
		Where("id = ?", user.ID).
		Updates(map[string]any{
			"name":           user.Name,
			"email":          user.Email,
			"role":           string(user.Role),
			"email_verified": user.IsEmailVerified,
			"updated_at":     now,
		})
	if result.Error != nil {
		if isUniqueViolation(result.Error, constraintUsersEmail) {
			return repo.ErrEmailExists
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	user.UpdatedAt = now
	return nil
}

// UpdatePassword заменяет хэш пароля.
func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	result := r.db.WithContext(ctx).
		Model(&pgUser{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"password_hash": passwordHash,
			"updated_at":    time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *UserRepository) many(q *gorm.DB) ([]*domain.User, error) {
	var models []pgUser
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}
	users := make([]*domain.User, 0, len(models))
	for i := range models {
		users = append(users, models[i].toDomain())
	}
	return users, nil
}

// List возвращает всех пользователей, новые первыми.
func (r *UserRepository) List(ctx context.Context) ([]*domain.User, error) {
	return r.many(r.db.WithContext(ctx).Order("created_at DESC, id DESC"))
}

// ListByRole возвращает пользователей с указанной ролью.
func (r *UserRepository) ListByRole(ctx context.Context, role domain.Role) ([]*domain.User, error) {
	return r.many(r.db.WithContext(ctx).Where("role = ?", string(role)).Order("name"))
}

// CountByRole возвращает количество пользователей с указанной ролью.
func (r *UserRepository) CountByRole(ctx context.Context, role domain.Role) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&pgUser{}).Where("role = ?", string(role)).Count(&n).Error
	return n, err
}
