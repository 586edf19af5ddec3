package interfaces

import (
	"context"

	domain "gym-app/internal/domain/user"
)

// UserRepository определяет контракт для работы с пользователями на уровне хранилища.
//
// Интерфейс оперирует доменной моделью User и не раскрывает деталей реализации (GORM, SQL и т.п.).
type UserRepository interface {
	// Create создает нового пользователя и заполняет user.ID.
	// Возвращает ErrEmailExists, если email уже используется.
	Create(ctx context.Context, user *domain.User) error

	// GetByID возвращает пользователя по идентификатору.
	// Возвращает (nil, ErrNotFound), если пользователь не найден.
	GetByID(ctx context.Context, id int64) (*domain.User, error)

	// GetByIDForUpdate читает пользователя с блокировкой строки до конца транзакции.
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.User, error)

	// GetByEmail возвращает пользователя по email.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// Update обновляет имя, email, роль и флаг подтверждения email.
	// Не трогает id, created_at и password_hash.
	Update(ctx context.Context, user *domain.User) error

	// UpdatePassword заменяет хэш пароля.
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error

	// List возвращает всех пользователей, новые первыми.
	List(ctx context.Context) ([]*domain.User, error)

	// ListByRole возвращает пользователей с указанной ролью, упорядоченных по имени.
	ListByRole(ctx context.Context, role domain.Role) ([]*domain.User, error)

	// CountByRole возвращает количество пользователей с указанной ролью.
	CountByRole(ctx context.Context, role domain.Role) (int64, error)
}

// AuthTokenRepository хранит одноразовые токены из писем.
type AuthTokenRepository interface {
	Create(ctx context.Context, token *domain.AuthToken) error

	// GetByHash ищет токен по хэшу и назначению. Возвращает ErrNotFound, если токена нет.
	GetByHash(ctx context.Context, tokenHash string, purpose domain.TokenPurpose) (*domain.AuthToken, error)

	Delete(ctx context.Context, id int64) error

	// DeleteByUser удаляет все токены пользователя с указанным назначением.
	DeleteByUser(ctx context.Context, userID int64, purpose domain.TokenPurpose) error
}
