package user

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gym-app/internal/handler/middleware"
	"gym-app/internal/handler/response"
	"gym-app/internal/usecase/entitlement"
	useruc "gym-app/internal/usecase/user"
	"gym-app/pkg/logger"
)

// Handler обрабатывает HTTP-запросы, связанные с профилем пользователя.
type Handler struct {
	users       useruc.Service
	entitlement entitlement.Service
	log         logger.Logger
}

// NewHandler создаёт новый UserHandler.
func NewHandler(users useruc.Service, ent entitlement.Service, log logger.Logger) *Handler {
	return &Handler{users: users, entitlement: ent, log: log}
}

func currentUserID(c *gin.Context) (int64, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized", "Требуется аутентификация", nil)
	}
	return id, ok
}

// GetMe возвращает профиль текущего пользователя.
//
//	@Summary	Профиль текущего пользователя
//	@Tags		users
//	@Security	BearerAuth
//	@Produce	json
//	@Success	200	{object}	UserViewResponse
//	@Router		/users/me [get]
func (h *Handler) GetMe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	view, err := h.entitlement.GetUserView(c.Request.Context(), userID)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, NewUserViewResponse(view))
}

// UpdateMe обновляет имя и email текущего пользователя.
//
//	@Summary	Обновить профиль
//	@Tags		users
//	@Security	BearerAuth
//	@Accept		json
//	@Produce	json
//	@Param		body	body		ProfileUpdateRequest	true	"Изменения"
//	@Success	200		{object}	UserViewResponse
//	@Router		/users/me [put]
func (h *Handler) UpdateMe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req ProfileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	if _, err := h.users.UpdateProfile(ctx, userID, useruc.ProfileUpdateInput{Name: req.Name, Email: req.Email}); err != nil {
		response.FromError(c, h.log, err)
		return
	}
	view, err := h.entitlement.GetUserView(ctx, userID)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, NewUserViewResponse(view))
}

// ContractPlan оформляет план для текущего пользователя.
//
//	@Summary	Оформить план
//	@Tags		membership
//	@Security	BearerAuth
//	@Accept		json
//	@Produce	json
//	@Param		body	body		ContractPlanRequest	true	"План и данные клиента"
//	@Success	201		{object}	UserViewResponse
//	@Failure	409		{object}	response.ErrorBody
//	@Router		/users/me/plan [post]
func (h *Handler) ContractPlan(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req ContractPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	details, err := req.ToDomain()
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	view, err := h.entitlement.ContractPlan(c.Request.Context(), userID, req.PlanID, details)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, NewUserViewResponse(view))
}

// ListTrainers возвращает список тренеров.
func (h *Handler) ListTrainers(c *gin.Context) {
	trainers, err := h.users.ListTrainers(c.Request.Context())
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	out := make([]TrainerResponse, 0, len(trainers))
	for _, t := range trainers {
		out = append(out, TrainerResponse{ID: t.ID, Name: t.Name, Email: t.Email})
	}
	c.JSON(http.StatusOK, out)
}

// Stats возвращает количество клиентов и тренеров.
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.users.Stats(c.Request.Context())
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, StatsResponse{Members: stats.Members, Trainers: stats.Trainers})
}
