package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gym-app/internal/apperr"
	"gym-app/internal/config"
	domain "gym-app/internal/domain/user"
	"gym-app/internal/repository/memory"
	"gym-app/internal/usecase/entitlement"
	jwtsvc "gym-app/pkg/jwt"
	"gym-app/pkg/logger"
)

type sentMail struct {
	kind  string
	email string
	link  string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeSender) record(kind, email, link string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{kind: kind, email: email, link: link})
	return f.err
}

func (f *fakeSender) SendEmailVerification(_ context.Context, email, _, link string) error {
	return f.record("verify", email, link)
}

func (f *fakeSender) SendPasswordReset(_ context.Context, email, _, link string) error {
	return f.record("reset", email, link)
}

func (f *fakeSender) last(kind string) (sentMail, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sent) - 1; i >= 0; i-- {
		if f.sent[i].kind == kind {
			return f.sent[i], true
		}
	}
	return sentMail{}, false
}

type testEnv struct {
	svc    *service
	store  *memory.Store
	sender *fakeSender
	jwt    jwtsvc.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()
	repos := store.Repositories()
	jwt := jwtsvc.NewService(&config.JWTConfig{
		AccessSecret:  "access",
		RefreshSecret: "refresh",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		Issuer:        "gym-app-test",
	})
	sender := &fakeSender{}
	views := entitlement.NewService(repos, store, logger.Nop(), nil)
	svc := NewService(repos, store, views, jwt, sender, logger.Nop(), config.AuthConfig{
		VerificationTTL: 24 * time.Hour,
		ResetTTL:        time.Hour,
		FrontendURL:     "http://front.test",
	}).(*service)
	return &testEnv{svc: svc, store: store, sender: sender, jwt: jwt}
}

func waitForMail(t *testing.T, s *fakeSender, kind string) sentMail {
	t.Helper()
	var m sentMail
	require.Eventually(t, func() bool {
		var ok bool
		m, ok = s.last(kind)
		return ok
	}, time.Second, 10*time.Millisecond)
	return m
}

func tokenFromLink(t *testing.T, link string) string {
	t.Helper()
	_, token, ok := strings.Cut(link, "?token=")
	require.True(t, ok, link)
	return token
}

// registerVerified регистрирует пользователя и подтверждает его email.
func (e *testEnv) registerVerified(t *testing.T, email, pw string) *domain.User {
	t.Helper()
	ctx := context.Background()
	u, err := e.svc.Register(ctx, "Ana", email, pw)
	require.NoError(t, err)
	m := waitForMail(t, e.sender, "verify")
	_, err = e.svc.VerifyEmail(ctx, tokenFromLink(t, m.link))
	require.NoError(t, err)
	return u
}

func TestRegister_CreatesUsuarioAndSendsLink(t *testing.T) {
	e := newTestEnv(t)

	u, err := e.svc.Register(context.Background(), " Ana ", "Ana@Gym.Test", "secret1")
	require.NoError(t, err)
	require.NotZero(t, u.ID)
	require.Equal(t, "Ana", u.Name)
	require.Equal(t, "ana@gym.test", u.Email)
	require.Equal(t, domain.RoleUsuario, u.Role)
	require.False(t, u.IsEmailVerified)
	require.NotEqual(t, "secret1", u.PasswordHash)

	m := waitForMail(t, e.sender, "verify")
	require.Equal(t, "ana@gym.test", m.email)
	require.True(t, strings.HasPrefix(m.link, "http://front.test/verify-email?token="))
}

func TestRegister_Validation(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	_, err := e.svc.Register(ctx, "", "ana@gym.test", "secret1")
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = e.svc.Register(ctx, "Ana", "not-an-email", "secret1")
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = e.svc.Register(ctx, "Ana", "ana@gym.test", "12345")
	var fe *apperr.FieldError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, "password", fe.Field)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	_, err := e.svc.Register(ctx, "Ana", "ana@gym.test", "secret1")
	require.NoError(t, err)
	_, err = e.svc.Register(ctx, "Otra", "ANA@gym.test", "secret1")
	require.ErrorIs(t, err, apperr.ErrConflict)
}

func TestRegister_MailFailureDoesNotFail(t *testing.T) {
	e := newTestEnv(t)
	e.sender.err = errors.New("smtp down")

	u, err := e.svc.Register(context.Background(), "Ana", "ana@gym.test", "secret1")
	require.NoError(t, err)
	require.NotZero(t, u.ID)
	waitForMail(t, e.sender, "verify")
}

func TestLogin_RequiresVerifiedEmail(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	_, err := e.svc.Register(ctx, "Ana", "ana@gym.test", "secret1")
	require.NoError(t, err)

	_, err = e.svc.Login(ctx, "ana@gym.test", "secret1")
	require.ErrorIs(t, err, ErrEmailNotVerified)
	require.ErrorIs(t, err, apperr.ErrForbidden)

	m := waitForMail(t, e.sender, "verify")
	u, err := e.svc.VerifyEmail(ctx, tokenFromLink(t, m.link))
	require.NoError(t, err)
	require.True(t, u.IsEmailVerified)

	sess, err := e.svc.Login(ctx, "ANA@gym.test", "secret1")
	require.NoError(t, err)
	require.NotEmpty(t, sess.AccessToken)
	require.NotEmpty(t, sess.RefreshToken)
	require.Equal(t, domain.RoleUsuario, sess.View.User.Role)
	require.Nil(t, sess.View.Client)

	claims, err := e.jwt.ParseAccessToken(sess.AccessToken)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	require.Equal(t, u.ID, id)
	require.Equal(t, "usuario", claims.Role)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.registerVerified(t, "ana@gym.test", "secret1")

	_, err := e.svc.Login(ctx, "ana@gym.test", "wrong-password")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = e.svc.Login(ctx, "nobody@gym.test", "secret1")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	require.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestVerifyEmail_InvalidAndReusedToken(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	_, err := e.svc.VerifyEmail(ctx, "")
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = e.svc.VerifyEmail(ctx, "unknown")
	require.ErrorIs(t, err, ErrTokenInvalid)

	_, err = e.svc.Register(ctx, "Ana", "ana@gym.test", "secret1")
	require.NoError(t, err)
	token := tokenFromLink(t, waitForMail(t, e.sender, "verify").link)

	_, err = e.svc.VerifyEmail(ctx, token)
	require.NoError(t, err)
	_, err = e.svc.VerifyEmail(ctx, token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyEmail_ExpiredTokenIsDeleted(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	_, err := e.svc.Register(ctx, "Ana", "ana@gym.test", "secret1")
	require.NoError(t, err)
	token := tokenFromLink(t, waitForMail(t, e.sender, "verify").link)

	e.svc.now = func() time.Time { return time.Now().UTC().Add(25 * time.Hour) }
	_, err = e.svc.VerifyEmail(ctx, token)
	require.ErrorIs(t, err, ErrTokenInvalid)

	e.svc.now = func() time.Time { return time.Now().UTC() }
	_, err = e.svc.VerifyEmail(ctx, token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestRefresh(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.registerVerified(t, "ana@gym.test", "secret1")

	sess, err := e.svc.Login(ctx, "ana@gym.test", "secret1")
	require.NoError(t, err)

	next, err := e.svc.Refresh(ctx, sess.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, next.AccessToken)

	_, err = e.svc.Refresh(ctx, sess.AccessToken)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)

	_, err = e.svc.Refresh(ctx, "")
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestChangePassword(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	u := e.registerVerified(t, "ana@gym.test", "secret1")

	err := e.svc.ChangePassword(ctx, u.ID, "wrong", "secret2")
	var fe *apperr.FieldError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, "current_password", fe.Field)

	require.ErrorIs(t, e.svc.ChangePassword(ctx, u.ID, "secret1", "123"), apperr.ErrValidation)
	require.ErrorIs(t, e.svc.ChangePassword(ctx, 999, "secret1", "secret2"), apperr.ErrNotFound)

	require.NoError(t, e.svc.ChangePassword(ctx, u.ID, "secret1", "secret2"))
	_, err = e.svc.Login(ctx, "ana@gym.test", "secret1")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = e.svc.Login(ctx, "ana@gym.test", "secret2")
	require.NoError(t, err)
}

func TestPasswordReset(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.registerVerified(t, "ana@gym.test", "secret1")

	require.NoError(t, e.svc.SendPasswordReset(ctx, "nobody@gym.test"))
	require.NoError(t, e.svc.SendPasswordReset(ctx, "Ana@gym.test"))

	m := waitForMail(t, e.sender, "reset")
	require.Equal(t, "ana@gym.test", m.email)
	require.True(t, strings.HasPrefix(m.link, "http://front.test/reset-password?token="))
	token := tokenFromLink(t, m.link)

	require.ErrorIs(t, e.svc.ResetPassword(ctx, token, "123"), apperr.ErrValidation)
	require.ErrorIs(t, e.svc.ResetPassword(ctx, "bogus", "secret9"), ErrTokenInvalid)

	require.NoError(t, e.svc.ResetPassword(ctx, token, "secret9"))
	require.ErrorIs(t, e.svc.ResetPassword(ctx, token, "secret8"), ErrTokenInvalid)

	_, err := e.svc.Login(ctx, "ana@gym.test", "secret9")
	require.NoError(t, err)
}

func TestPasswordReset_NewRequestReplacesToken(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.registerVerified(t, "ana@gym.test", "secret1")

	require.NoError(t, e.svc.SendPasswordReset(ctx, "ana@gym.test"))
	first := tokenFromLink(t, waitForMail(t, e.sender, "reset").link)

	require.NoError(t, e.svc.SendPasswordReset(ctx, "ana@gym.test"))
	var second string
	require.Eventually(t, func() bool {
		m, _ := e.sender.last("reset")
		second = tokenFromLink(t, m.link)
		return second != first
	}, time.Second, 10*time.Millisecond)

	require.ErrorIs(t, e.svc.ResetPassword(ctx, first, "secret9"), ErrTokenInvalid)
	require.NoError(t, e.svc.ResetPassword(ctx, second, "secret9"))
}
