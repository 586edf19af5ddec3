package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gym-app/internal/handler/middleware"
	"gym-app/internal/handler/response"
	userhandler "gym-app/internal/handler/user"
	authuc "gym-app/internal/usecase/auth"
	"gym-app/pkg/logger"
)

// Handler обрабатывает HTTP-запросы, связанные с аутентификацией.
type Handler struct {
	auth authuc.Service
	log  logger.Logger
}

// NewHandler создаёт новый AuthHandler.
func NewHandler(auth authuc.Service, log logger.Logger) *Handler {
	return &Handler{auth: auth, log: log}
}

func toLoginResponse(s *authuc.Session) LoginResponse {
	return LoginResponse{
		User: userhandler.NewUserViewResponse(s.View),
		Tokens: TokenPair{
			AccessToken:  s.AccessToken,
			RefreshToken: s.RefreshToken,
		},
	}
}

// Register обрабатывает регистрацию пользователя.
//
//	@Summary	Регистрация
//	@Tags		auth
//	@Accept		json
//	@Produce	json
//	@Param		body	body		RegisterRequest	true	"Данные пользователя"
//	@Success	201		{object}	RegisterResponse
//	@Failure	409		{object}	response.ErrorBody
//	@Router		/auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	u, err := h.auth.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, RegisterResponse{
		Message: "Регистрация прошла успешно. Проверьте почту, чтобы подтвердить email",
		User: userhandler.UserResponse{
			ID:            u.ID,
			Name:          u.Name,
			Email:         u.Email,
			Role:          string(u.Role),
			EmailVerified: u.IsEmailVerified,
			CreatedAt:     u.CreatedAt,
		},
	})
}

// VerifyEmail подтверждает email по токену из письма.
//
//	@Summary	Подтверждение email
//	@Tags		auth
//	@Accept		json
//	@Produce	json
//	@Param		body	body		VerifyEmailRequest	true	"Токен"
//	@Success	200		{object}	MessageResponse
//	@Router		/auth/verify-email [post]
func (h *Handler) VerifyEmail(c *gin.Context) {
	var req VerifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	if _, err := h.auth.VerifyEmail(c.Request.Context(), req.Token); err != nil {
		response.FromError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Email подтверждён"})
}

// Login обрабатывает вход пользователя по email/паролю.
//
//	@Summary	Вход
//	@Tags		auth
//	@Accept		json
//	@Produce	json
//	@Param		body	body		LoginRequest	true	"Email и пароль"
//	@Success	200		{object}	LoginResponse
//	@Failure	401		{object}	response.ErrorBody
//	@Failure	403		{object}	response.ErrorBody
//	@Router		/auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	s, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, toLoginResponse(s))
}

// Refresh обрабатывает обновление пары токенов по refresh-токену.
func (h *Handler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	s, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, toLoginResponse(s))
}

// ChangePassword меняет пароль текущего пользователя.
func (h *Handler) ChangePassword(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized", "Требуется аутентификация", nil)
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	if err := h.auth.ChangePassword(c.Request.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		response.FromError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Пароль изменён"})
}

// SendResetEmail отправляет письмо для сброса пароля.
// Ответ не зависит от того, зарегистрирован ли email.
func (h *Handler) SendResetEmail(c *gin.Context) {
	var req SendResetEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	if err := h.auth.SendPasswordReset(c.Request.Context(), req.Email); err != nil {
		response.FromError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Если email зарегистрирован, на него отправлена ссылка для сброса пароля"})
}

// ResetPassword устанавливает новый пароль по токену.
func (h *Handler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	if err := h.auth.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		response.FromError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Пароль обновлён"})
}
