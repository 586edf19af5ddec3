package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	domain "gym-app/internal/domain/user"
	repo "gym-app/internal/repository/interfaces"
)

// pgAuthToken — ORM-модель таблицы auth_tokens.
type pgAuthToken struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	UserID    int64     `gorm:"column:user_id;not null"`
	TokenHash string    `gorm:"column:token_hash;type:char(64);not null"`
	Purpose   string    `gorm:"column:purpose;type:varchar(32);not null"`
	ExpiresAt time.Time `gorm:"column:expires_at;type:timestamptz;not null"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz;not null"`
}

func (pgAuthToken) TableName() string {
	return "auth_tokens"
}

func (m *pgAuthToken) toDomain() *domain.AuthToken {
	return &domain.AuthToken{
		ID:        m.ID,
		UserID:    m.UserID,
		TokenHash: m.TokenHash,
		Purpose:   domain.TokenPurpose(m.Purpose),
		ExpiresAt: m.ExpiresAt,
		CreatedAt: m.CreatedAt,
	}
}

// AuthTokenRepository реализует repo.AuthTokenRepository.
type AuthTokenRepository struct {
	db *gorm.DB
}

var _ repo.AuthTokenRepository = (*AuthTokenRepository)(nil)

// NewAuthTokenRepository создаёт репозиторий одноразовых токенов.
func NewAuthTokenRepository(db *gorm.DB) *AuthTokenRepository {
	return &AuthTokenRepository{db: db}
}

func (r *AuthTokenRepository) Create(ctx context.Context, t *domain.AuthToken) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	model := &pgAuthToken{
		UserID:    t.UserID,
		TokenHash: t.TokenHash,
		Purpose:   string(t.Purpose),
		ExpiresAt: t.ExpiresAt,
		CreatedAt: t.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isForeignKeyViolation(err) {
			return repo.ErrReferenceViolation
		}
		return err
	}
	t.ID = model.ID
	return nil
}

func (r *AuthTokenRepository) GetByHash(ctx context.Context, tokenHash string, purpose domain.TokenPurpose) (*domain.AuthToken, error) {
	var model pgAuthToken
	err := r.db.WithContext(ctx).
		Where("token_hash = ? AND purpose = ?", tokenHash, string(purpose)).
		Take(&model).Error
	if err != nil {
		return nil, notFound(err)
	}
	return model.toDomain(), nil
}

func (r *AuthTokenRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&pgAuthToken{}, id).Error
}

func (r *AuthTokenRepository) DeleteByUser(ctx context.Context, userID int64, purpose domain.TokenPurpose) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND purpose = ?", userID, string(purpose)).
		Delete(&pgAuthToken{}).Error
}
