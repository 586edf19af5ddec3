package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "gym-app/docs" // регистрирует спецификацию swagger
	"gym-app/internal/config"
	"gym-app/internal/domain/user"
	adminhandler "gym-app/internal/handler/admin"
	assignmenthandler "gym-app/internal/handler/assignment"
	authhandler "gym-app/internal/handler/auth"
	"gym-app/internal/handler/health"
	"gym-app/internal/handler/middleware"
	planhandler "gym-app/internal/handler/plan"
	schedulehandler "gym-app/internal/handler/schedule"
	userhandler "gym-app/internal/handler/user"
	"gym-app/internal/handler/validation"
	"gym-app/internal/metrics"
	repo "gym-app/internal/repository/interfaces"
	authuc "gym-app/internal/usecase/auth"
	"gym-app/internal/usecase/entitlement"
	planuc "gym-app/internal/usecase/plan"
	scheduleuc "gym-app/internal/usecase/schedule"
	useruc "gym-app/internal/usecase/user"
	jwtsvc "gym-app/pkg/jwt"
	"gym-app/pkg/logger"
	"gym-app/pkg/mailer"
)

// Deps — внешние зависимости сервера.
type Deps struct {
	Repos   repo.Repositories
	UoW     repo.UnitOfWork
	DB      health.Pinger      // nil, если БД не используется
	Mailer  mailer.EmailSender
	Metrics *metrics.Metrics   // nil, если метрики отключены
}

// Server представляет HTTP сервер приложения
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	cfg        *config.Config
	log        logger.Logger
	deps       Deps

	jwtService        jwtsvc.Service
	authHandler       *authhandler.Handler
	userHandler       *userhandler.Handler
	adminHandler      *adminhandler.Handler
	planHandler       *planhandler.Handler
	assignmentHandler *assignmenthandler.Handler
	scheduleHandler   *schedulehandler.Handler
}

// NewServer создает новый экземпляр сервера
func NewServer(cfg *config.Config, log logger.Logger, deps Deps) (*Server, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := validation.Register(); err != nil {
		return nil, fmt.Errorf("register validators: %w", err)
	}

	s := &Server{
		router: gin.New(),
		cfg:    cfg,
		log:    log,
		deps:   deps,
	}

	var entRec entitlement.Recorder
	var schedRec scheduleuc.Recorder
	if deps.Metrics != nil {
		entRec, schedRec = deps.Metrics, deps.Metrics
	}

	ent := entitlement.NewService(deps.Repos, deps.UoW, log, entRec)
	users := useruc.NewService(deps.Repos.Users, deps.Repos.Clients)
	plans := planuc.NewService(deps.Repos.Plans, log)
	sched := scheduleuc.NewService(deps.Repos, deps.UoW, log, schedRec)

	s.jwtService = jwtsvc.NewService(&cfg.JWT)
	auth := authuc.NewService(deps.Repos, deps.UoW, ent, s.jwtService, deps.Mailer, log, cfg.Auth)

	s.authHandler = authhandler.NewHandler(auth, log)
	s.userHandler = userhandler.NewHandler(users, ent, log)
	s.adminHandler = adminhandler.NewHandler(ent, log)
	s.planHandler = planhandler.NewHandler(plans, log)
	s.assignmentHandler = assignmenthandler.NewHandler(ent, log)
	s.scheduleHandler = schedulehandler.NewHandler(sched, log)

	s.setupMiddleware()
	s.setupRoutes()

	return s, nil
}

// setupMiddleware настраивает middleware для роутера
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.LoggerStructured(s.log))
	if s.deps.Metrics != nil {
		s.router.Use(middleware.Metrics(s.deps.Metrics))
	}
	// Recovery внутри логгера и метрик: запрос с паникой учитывается как 500
	s.router.Use(middleware.Recovery(s.log))
	s.router.Use(middleware.CORS(&s.cfg.CORS))
}

// setupRoutes настраивает маршруты приложения
func (s *Server) setupRoutes() {
	s.setupServiceRoutes()

	v1 := s.router.Group("/api/v1")
	v1.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Gym App API v1",
			"version": "1.0.0",
		})
	})

	authRequired := middleware.Auth(s.jwtService, s.log)
	s.setupAuthRoutes(v1, authRequired)
	s.setupUserRoutes(v1, authRequired)
	s.setupPlanRoutes(v1)
	s.setupAdminRoutes(v1, authRequired)
	s.setupScheduleRoutes(v1, authRequired)
}

// setupServiceRoutes настраивает health-check, метрики и документацию.
func (s *Server) setupServiceRoutes() {
	healthHandler := health.NewHandler(s.deps.DB, s.cfg.AppEnv)
	s.router.GET("/health", healthHandler.Health)
	s.router.GET("/health/db", healthHandler.HealthDB)

	if s.deps.Metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.deps.Metrics.Handler()))
	}
	if !s.cfg.IsProduction() {
		s.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
}

func (s *Server) setupAuthRoutes(v1 *gin.RouterGroup, authRequired gin.HandlerFunc) {
	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/register", s.authHandler.Register)
		authGroup.POST("/verify-email", s.authHandler.VerifyEmail)
		authGroup.POST("/login", s.authHandler.Login)
		authGroup.POST("/refresh", s.authHandler.Refresh)
		authGroup.POST("/send-reset-email", s.authHandler.SendResetEmail)
		authGroup.POST("/reset-password", s.authHandler.ResetPassword)
		authGroup.POST("/change-password", authRequired, s.authHandler.ChangePassword)
	}
}

func (s *Server) setupUserRoutes(v1 *gin.RouterGroup, authRequired gin.HandlerFunc) {
	v1.GET("/stats", s.userHandler.Stats)
	v1.GET("/trainers", s.userHandler.ListTrainers)

	userGroup := v1.Group("/users", authRequired)
	{
		userGroup.GET("/me", s.userHandler.GetMe)
		userGroup.PUT("/me", s.userHandler.UpdateMe)
		// POST /api/v1/users/me/plan — оформить план, пользователь становится клиентом.
		userGroup.POST("/me/plan", s.userHandler.ContractPlan)
	}
}

func (s *Server) setupPlanRoutes(v1 *gin.RouterGroup) {
	v1.GET("/plans", s.planHandler.ListActive)
	v1.GET("/plans/:id", s.planHandler.Get)
}

func (s *Server) setupAdminRoutes(v1 *gin.RouterGroup, authRequired gin.HandlerFunc) {
	admin := v1.Group("/admin", authRequired, middleware.RequireRole(string(user.RoleAdmin)))
	{
		admin.GET("/users", s.adminHandler.ListUsers)
		admin.GET("/users/:id", s.adminHandler.GetUser)
		admin.PUT("/users/:id", s.adminHandler.UpdateUser)

		admin.GET("/plans", s.planHandler.ListAll)
		admin.POST("/plans", s.planHandler.Create)
		admin.PUT("/plans/:id", s.planHandler.Update)

		admin.POST("/assignments", s.assignmentHandler.Assign)
		admin.DELETE("/assignments/:id", s.assignmentHandler.Unassign)
	}

	// Обзор назначений доступен и тренерам.
	v1.GET("/assignments", authRequired,
		middleware.RequireRole(string(user.RoleAdmin), string(user.RoleEntrenador)),
		s.assignmentHandler.Overview)
}

func (s *Server) setupScheduleRoutes(v1 *gin.RouterGroup, authRequired gin.HandlerFunc) {
	adminOnly := middleware.RequireRole(string(user.RoleAdmin))

	v1.GET("/classes", s.scheduleHandler.ListClasses)
	v1.POST("/classes", authRequired, adminOnly, s.scheduleHandler.CreateClass)

	v1.GET("/schedule", s.scheduleHandler.ListUpcoming)
	v1.POST("/schedule", authRequired, adminOnly, s.scheduleHandler.ScheduleClass)
	v1.DELETE("/schedule/:id", authRequired, adminOnly, s.scheduleHandler.CancelScheduled)

	reservations := v1.Group("/reservations", authRequired)
	{
		reservations.POST("", middleware.RequireRole(string(user.RoleCliente)), s.scheduleHandler.Reserve)
		reservations.GET("/me", s.scheduleHandler.ListMyReservations)
		reservations.DELETE("/:id", s.scheduleHandler.CancelReservation)
		reservations.POST("/:id/attendance",
			middleware.RequireRole(string(user.RoleEntrenador), string(user.RoleAdmin)),
			s.scheduleHandler.MarkAttendance)
	}
}

// Start запускает HTTP сервер и блокируется до сигнала остановки или ошибки.
func (s *Server) Start() error {
	address := s.cfg.Server.Address()

	s.httpServer = &http.Server{
		Addr:           address,
		Handler:        s.router,
		ReadTimeout:    s.cfg.Server.ReadTimeout,
		WriteTimeout:   s.cfg.Server.WriteTimeout,
		IdleTimeout:    s.cfg.Server.IdleTimeout,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErr := make(chan error, 1)
	go func() {
		s.log.Info("http server started", map[string]any{"addr": address})
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("listen and serve: %w", err)
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case sig := <-quit:
		s.log.Info("shutdown signal received", map[string]any{"signal": sig.String()})
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	s.log.Info("http server stopped", nil)
	return nil
}

// Router возвращает роутер (для тестирования)
func (s *Server) Router() *gin.Engine {
	return s.router
}
