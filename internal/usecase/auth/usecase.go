package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"gym-app/internal/apperr"
	"gym-app/internal/config"
	domain "gym-app/internal/domain/user"
	repo "gym-app/internal/repository/interfaces"
	"gym-app/internal/usecase/entitlement"
	jwtsvc "gym-app/pkg/jwt"
	"gym-app/pkg/logger"
	"gym-app/pkg/mailer"
	"gym-app/pkg/password"
	"gym-app/pkg/verification"
)

// Service описывает usecase-слой, связанный с аутентификацией:
// регистрацию, подтверждение email, логин и восстановление пароля.
type Service interface {
	// Register регистрирует пользователя с ролью usuario и отправляет ссылку подтверждения email.
	// Ошибка отправки письма не отменяет регистрацию.
	Register(ctx context.Context, name, email, password string) (*domain.User, error)

	// VerifyEmail подтверждает email по токену из письма.
	VerifyEmail(ctx context.Context, token string) (*domain.User, error)

	// Login выполняет вход по email/паролю, проверяя, что email подтверждён.
	Login(ctx context.Context, email, password string) (*Session, error)

	// Refresh выдаёт новую пару токенов по действительному refresh-токену.
	Refresh(ctx context.Context, refreshToken string) (*Session, error)

	// ChangePassword меняет пароль после проверки текущего.
	ChangePassword(ctx context.Context, userID int64, current, next string) error

	// SendPasswordReset отправляет ссылку для сброса пароля.
	// Для неизвестного email ничего не делает и не возвращает ошибку.
	SendPasswordReset(ctx context.Context, email string) error

	// ResetPassword устанавливает новый пароль по токену из письма.
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// Session — результат входа: пользователь с профилем и пара токенов.
type Session struct {
	View         *entitlement.UserView
	AccessToken  string
	RefreshToken string
}

// Views отдаёт пользователя вместе с профилем клиента.
type Views interface {
	GetUserView(ctx context.Context, userID int64) (*entitlement.UserView, error)
}

// Ошибки бизнес-логики usecase-слоя.
var (
	ErrInvalidCredentials  = fmt.Errorf("invalid email or password: %w", apperr.ErrUnauthorized)
	ErrInvalidRefreshToken = fmt.Errorf("invalid refresh token: %w", apperr.ErrUnauthorized)
	ErrEmailNotVerified    = fmt.Errorf("email not verified: %w", apperr.ErrForbidden)
	ErrTokenInvalid        = fmt.Errorf("token is invalid or expired: %w", apperr.ErrValidation)
)

// mailTimeout ограничивает фоновую отправку письма.
const mailTimeout = 30 * time.Second

type service struct {
	repos  repo.Repositories
	uow    repo.UnitOfWork
	views  Views
	jwt    jwtsvc.Service
	sender mailer.EmailSender
	log    logger.Logger
	cfg    config.AuthConfig
	now    func() time.Time
}

// NewService создаёт новый auth usecase-сервис.
func NewService(
	repos repo.Repositories,
	uow repo.UnitOfWork,
	views Views,
	jwt jwtsvc.Service,
	sender mailer.EmailSender,
	log logger.Logger,
	cfg config.AuthConfig,
) Service {
	return &service{
		repos:  repos,
		uow:    uow,
		views:  views,
		jwt:    jwt,
		sender: sender,
		log:    log,
		cfg:    cfg,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validatePassword(field, pw string) error {
	if len(pw) < password.MinLength {
		return apperr.Field(field, fmt.Sprintf("must be at least %d characters", password.MinLength))
	}
	return nil
}

// Register регистрирует нового пользователя и отправляет ссылку подтверждения.
func (s *service) Register(ctx context.Context, name, email, rawPassword string) (*domain.User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)

	if name == "" {
		return nil, apperr.Field("name", "is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperr.Field("email", "must be a valid email address")
	}
	if err := validatePassword("password", rawPassword); err != nil {
		return nil, err
	}

	hashed, err := password.Hash(rawPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := domain.NewUser(name, email, hashed)
	token, hash := verification.NewToken()

	err = s.uow.Do(ctx, func(r repo.Repositories) error {
		if err := r.Users.Create(ctx, u); err != nil {
			return err
		}
		return r.AuthTokens.Create(ctx, &domain.AuthToken{
			UserID:    u.ID,
			TokenHash: hash,
			Purpose:   domain.PurposeEmailVerification,
			ExpiresAt: s.now().Add(s.cfg.VerificationTTL),
			CreatedAt: s.now(),
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("user registered", map[string]any{"user_id": u.ID})

	link := s.link("/verify-email", token)
	s.dispatch(ctx, "verification", u, func(ctx context.Context) error {
		return s.sender.SendEmailVerification(ctx, u.Email, u.Name, link)
	})
	return u, nil
}

func (s *service) link(path, token string) string {
	return s.cfg.FrontendURL + path + "?token=" + token
}

// dispatch отправляет письмо в фоне. Отмена запроса не прерывает отправку.
func (s *service) dispatch(ctx context.Context, kind string, u *domain.User, send func(ctx context.Context) error) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(ctx, mailTimeout)
		defer cancel()
		if err := send(ctx); err != nil {
			s.log.Error("failed to send email", map[string]any{
				"kind": kind, "user_id": u.ID, "err": err,
			})
		}
	}()
}

// consumeToken находит действующий токен. Просроченный токен удаляется.
func (s *service) consumeToken(ctx context.Context, r repo.Repositories, raw string, purpose domain.TokenPurpose) (*domain.AuthToken, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, apperr.Field("token", "is required")
	}
	t, err := r.AuthTokens.GetByHash(ctx, verification.HashToken(raw), purpose)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrTokenInvalid
	}
	if err != nil {
		return nil, err
	}
	if t.Expired(s.now()) {
		if err := r.AuthTokens.Delete(ctx, t.ID); err != nil {
			return nil, err
		}
		return nil, errExpired
	}
	return t, nil
}

// errExpired — токен просрочен и уже удалён. Транзакция при этом фиксируется.
var errExpired = errors.New("token expired")

func (s *service) withToken(ctx context.Context, raw string, purpose domain.TokenPurpose, fn func(r repo.Repositories, t *domain.AuthToken) error) error {
	var expired bool
	err := s.uow.Do(ctx, func(r repo.Repositories) error {
		t, err := s.consumeToken(ctx, r, raw, purpose)
		if errors.Is(err, errExpired) {
			expired = true
			return nil
		}
		if err != nil {
			return err
		}
		return fn(r, t)
	})
	if err != nil {
		return err
	}
	if expired {
		return ErrTokenInvalid
	}
	return nil
}

// VerifyEmail подтверждает email по токену.
func (s *service) VerifyEmail(ctx context.Context, token string) (*domain.User, error) {
	var u *domain.User
	err := s.withToken(ctx, token, domain.PurposeEmailVerification, func(r repo.Repositories, t *domain.AuthToken) error {
		var err error
		u, err = r.Users.GetByIDForUpdate(ctx, t.UserID)
		if err != nil {
			return err
		}
		if err := r.AuthTokens.DeleteByUser(ctx, u.ID, domain.PurposeEmailVerification); err != nil {
			return err
		}
		if u.IsEmailVerified {
			return nil
		}
		u.IsEmailVerified = true
		u.Touch(s.now())
		return r.Users.Update(ctx, u)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("email verified", map[string]any{"user_id": u.ID})
	return u, nil
}

// Login выполняет вход по email/паролю.
func (s *service) Login(ctx context.Context, email, rawPassword string) (*Session, error) {
	if strings.TrimSpace(email) == "" || rawPassword == "" {
		return nil, apperr.Field("email", "email and password are required")
	}

	u, err := s.repos.Users.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := password.Compare(u.PasswordHash, rawPassword); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !u.IsEmailVerified {
		return nil, ErrEmailNotVerified
	}

	return s.session(ctx, u)
}

// Refresh обновляет пару access/refresh токенов.
func (s *service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, ErrInvalidRefreshToken
	}

	claims, err := s.jwt.ParseRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	u, err := s.repos.Users.GetByID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrInvalidRefreshToken
	}
	if err != nil {
		return nil, err
	}
	if !u.IsEmailVerified {
		return nil, ErrEmailNotVerified
	}

	return s.session(ctx, u)
}

// session выдаёт токены с актуальной ролью пользователя.
func (s *service) session(ctx context.Context, u *domain.User) (*Session, error) {
	access, err := s.jwt.GenerateAccessToken(u)
	if err != nil {
		return nil, err
	}
	refresh, _, err := s.jwt.GenerateRefreshToken(u)
	if err != nil {
		return nil, err
	}
	view, err := s.views.GetUserView(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	return &Session{View: view, AccessToken: access, RefreshToken: refresh}, nil
}

// ChangePassword меняет пароль пользователя.
func (s *service) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	if current == "" {
		return apperr.Field("current_password", "is required")
	}
	if err := validatePassword("new_password", next); err != nil {
		return err
	}

	u, err := s.repos.Users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("user %d: %w", userID, err)
	}
	if err := password.Compare(u.PasswordHash, current); err != nil {
		return apperr.Field("current_password", "is incorrect")
	}

	hashed, err := password.Hash(next)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.repos.Users.UpdatePassword(ctx, userID, hashed); err != nil {
		return err
	}

	s.log.Info("password changed", map[string]any{"user_id": userID})
	return nil
}

// SendPasswordReset создаёт токен сброса и отправляет письмо.
// Предыдущие токены сброса пользователя удаляются.
func (s *service) SendPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return apperr.Field("email", "is required")
	}

	u, err := s.repos.Users.GetByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		s.log.Debug("password reset requested for unknown email", nil)
		return nil
	}
	if err != nil {
		return err
	}

	token, hash := verification.NewToken()
	err = s.uow.Do(ctx, func(r repo.Repositories) error {
		if err := r.AuthTokens.DeleteByUser(ctx, u.ID, domain.PurposePasswordReset); err != nil {
			return err
		}
		return r.AuthTokens.Create(ctx, &domain.AuthToken{
			UserID:    u.ID,
			TokenHash: hash,
			Purpose:   domain.PurposePasswordReset,
			ExpiresAt: s.now().Add(s.cfg.ResetTTL),
			CreatedAt: s.now(),
		})
	})
	if err != nil {
		return err
	}

	link := s.link("/reset-password", token)
	s.dispatch(ctx, "password_reset", u, func(ctx context.Context) error {
		return s.sender.SendPasswordReset(ctx, u.Email, u.Name, link)
	})
	return nil
}

// ResetPassword устанавливает новый пароль по токену сброса.
func (s *service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := validatePassword("new_password", newPassword); err != nil {
		return err
	}
	hashed, err := password.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	var userID int64
	err = s.withToken(ctx, token, domain.PurposePasswordReset, func(r repo.Repositories, t *domain.AuthToken) error {
		userID = t.UserID
		if err := r.Users.UpdatePassword(ctx, t.UserID, hashed); err != nil {
			return err
		}
		return r.AuthTokens.DeleteByUser(ctx, t.UserID, domain.PurposePasswordReset)
	})
	if err != nil {
		return err
	}

	s.log.Info("password reset", map[string]any{"user_id": userID})
	return nil
}
