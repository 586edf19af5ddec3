package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"gym-app/internal/config"
	"gym-app/internal/domain/membership"
	"gym-app/internal/domain/user"
	"gym-app/internal/metrics"
	"gym-app/internal/repository/memory"
	"gym-app/pkg/logger"
	"gym-app/pkg/password"
)

// captureSender запоминает последнюю ссылку из письма.
type captureSender struct {
	mu   sync.Mutex
	link string
}

func (s *captureSender) SendEmailVerification(_ context.Context, _, _, link string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.link = link
	return nil
}

func (s *captureSender) SendPasswordReset(ctx context.Context, email, name, link string) error {
	return s.SendEmailVerification(ctx, email, name, link)
}

func (s *captureSender) lastLink() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.link
}

type testEnv struct {
	router  *gin.Engine
	mail    *captureSender
	store   *memory.Store
	metrics *metrics.Metrics

	admin, trainer, ana *user.User
	premium             *membership.Plan
}

func testConfig() *config.Config {
	return &config.Config{
		AppEnv: "test",
		JWT: config.JWTConfig{
			AccessSecret:  "test-access",
			RefreshSecret: "test-refresh",
			AccessTTL:     time.Minute,
			RefreshTTL:    time.Hour,
			Issuer:        "gym-app-test",
		},
		CORS: config.CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE"},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
		},
		Auth: config.AuthConfig{
			VerificationTTL: time.Hour,
			ResetTTL:        time.Hour,
			FrontendURL:     "http://localhost:3000",
		},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	m := metrics.New()
	mail := &captureSender{}
	srv, err := NewServer(testConfig(), logger.Nop(), Deps{
		Repos:   store.Repositories(),
		UoW:     store,
		Mailer:  mail,
		Metrics: m,
	})
	require.NoError(t, err)

	e := &testEnv{router: srv.Router(), mail: mail, store: store, metrics: m}
	e.admin = e.addUser(t, "Admin", "admin@gym.test", user.RoleAdmin)
	e.trainer = e.addUser(t, "Carlos", "carlos@gym.test", user.RoleEntrenador)
	e.ana = e.addUser(t, "Ana", "ana@gym.test", user.RoleUsuario)

	e.premium = &membership.Plan{Name: "Premium", MonthlyPrice: 49.99, DurationMonths: 1, TrainerAccess: true, Active: true}
	require.NoError(t, store.Repositories().Plans.Create(context.Background(), e.premium))
	return e
}

func (e *testEnv) addUser(t *testing.T, name, email string, role user.Role) *user.User {
	t.Helper()
	hash, err := password.Hash("secret1")
	require.NoError(t, err)
	u := user.NewUser(name, email, hash)
	u.Role = role
	u.IsEmailVerified = true
	require.NoError(t, e.store.Repositories().Users.Create(context.Background(), u))
	return u
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) login(t *testing.T, email string) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": email, "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Tokens struct {
			AccessToken string `json:"access_token"`
		} `json:"tokens"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Tokens.AccessToken)
	return resp.Tokens.AccessToken
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp.Error.Code
}

func contractBody(planID int64) gin.H {
	return gin.H{
		"plan_id":          planID,
		"dni":              "12345678z",
		"numero_telefono":  "600123123",
		"fecha_nacimiento": "1990-04-12",
		"genero":           "F",
		"num_tarjeta":      "4111111111111111",
		"fecha_tarjeta":    "12/29",
		"cvv":              "123",
	}
}

func TestServer_Health(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	// БД не подключена.
	w = e.do(t, http.MethodGet, "/health/db", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = e.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "gym_http_requests_total")
}

func TestServer_ContractPlanAndAssign(t *testing.T) {
	e := newTestEnv(t)
	anaToken := e.login(t, "ana@gym.test")

	w := e.do(t, http.MethodPost, "/api/v1/users/me/plan", anaToken, contractBody(e.premium.ID))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Contains(t, w.Body.String(), `"role":"cliente"`)
	require.Contains(t, w.Body.String(), `"plan_nombre":"Premium"`)

	// Повторное оформление недопустимо: пользователь уже клиент.
	w = e.do(t, http.MethodPost, "/api/v1/users/me/plan", anaToken, contractBody(e.premium.ID))
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "invalid_state", errorCode(t, w))

	adminToken := e.login(t, "admin@gym.test")
	assign := gin.H{"entrenador_id": e.trainer.ID, "cliente_id": e.ana.ID, "notas": "fuerza"}

	w = e.do(t, http.MethodPost, "/api/v1/admin/assignments", adminToken, assign)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = e.do(t, http.MethodPost, "/api/v1/admin/assignments", adminToken, assign)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "conflict", errorCode(t, w))

	trainerToken := e.login(t, "carlos@gym.test")
	w = e.do(t, http.MethodGet, "/api/v1/assignments", trainerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"notas":"fuerza"`)

	w = e.do(t, http.MethodGet, "/api/v1/users/me", anaToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"entrenador_asignado"`)
}

func TestServer_AdminDowngradeClient(t *testing.T) {
	e := newTestEnv(t)
	anaToken := e.login(t, "ana@gym.test")
	w := e.do(t, http.MethodPost, "/api/v1/users/me/plan", anaToken, contractBody(e.premium.ID))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	adminToken := e.login(t, "admin@gym.test")
	w = e.do(t, http.MethodPost, "/api/v1/admin/assignments", adminToken,
		gin.H{"entrenador_id": e.trainer.ID, "cliente_id": e.ana.ID})
	require.Equal(t, http.StatusCreated, w.Code)

	path := "/api/v1/admin/users/" + strconv.FormatInt(e.ana.ID, 10)
	w = e.do(t, http.MethodPut, path, adminToken, gin.H{"role": "usuario"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Contains(t, w.Body.String(), `"role":"usuario"`)
	require.Contains(t, w.Body.String(), `"cliente":null`)

	_, err := e.store.Repositories().Clients.GetByUserID(context.Background(), e.ana.ID)
	require.Error(t, err)
	active, err := e.store.Repositories().Assignments.ListActive(context.Background())
	require.NoError(t, err)
	require.Empty(t, active)

	w = e.do(t, http.MethodGet, "/metrics", "", nil)
	require.Contains(t, w.Body.String(), `gym_role_transitions_total{from="cliente",to="usuario"} 1`)
	require.Contains(t, w.Body.String(), `gym_trainer_assignments_deactivated_total{reason="client_left"} 1`)
}

func TestServer_AccessControl(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodGet, "/api/v1/admin/users", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	anaToken := e.login(t, "ana@gym.test")
	w = e.do(t, http.MethodGet, "/api/v1/admin/users", anaToken, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodGet, "/api/v1/assignments", anaToken, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodGet, "/api/v1/admin/users/abc", e.login(t, "admin@gym.test"), nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "invalid_id", errorCode(t, w))
}

func TestServer_ValidationErrors(t *testing.T) {
	e := newTestEnv(t)
	anaToken := e.login(t, "ana@gym.test")

	body := contractBody(e.premium.ID)
	body["dni"] = "12345678A"
	w := e.do(t, http.MethodPost, "/api/v1/users/me/plan", anaToken, body)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "invalid_request", errorCode(t, w))

	w = e.do(t, http.MethodPost, "/api/v1/users/me/plan", anaToken, contractBody(999))
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "not_found", errorCode(t, w))

	w = e.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "ana@gym.test", "password": "wrong"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestServer_RegisterVerifyLogin(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"name": "Lucía", "email": "lucia@gym.test", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = e.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "lucia@gym.test", "password": "secret1"})
	require.Equal(t, http.StatusForbidden, w.Code, "email is not verified yet")

	require.Eventually(t, func() bool { return e.mail.lastLink() != "" }, time.Second, 10*time.Millisecond)
	_, token, ok := strings.Cut(e.mail.lastLink(), "token=")
	require.True(t, ok)

	w = e.do(t, http.MethodPost, "/api/v1/auth/verify-email", "", gin.H{"token": token})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	access := e.login(t, "lucia@gym.test")
	w = e.do(t, http.MethodGet, "/api/v1/users/me", access, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"email_verified":true`)
}
