// Package admin содержит административные эндпоинты управления пользователями.
package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gym-app/internal/domain/user"
	"gym-app/internal/handler/response"
	userhandler "gym-app/internal/handler/user"
	"gym-app/internal/usecase/entitlement"
	"gym-app/pkg/logger"
)

// Handler обрабатывает административные запросы к пользователям.
type Handler struct {
	entitlement entitlement.Service
	log         logger.Logger
}

// NewHandler создаёт AdminHandler.
func NewHandler(ent entitlement.Service, log logger.Logger) *Handler {
	return &Handler{entitlement: ent, log: log}
}

// ListUsers возвращает всех пользователей с профилями клиентов.
//
//	@Summary	Список пользователей
//	@Tags		admin
//	@Security	BearerAuth
//	@Produce	json
//	@Success	200	{array}	userhandler.UserViewResponse
//	@Router		/admin/users [get]
func (h *Handler) ListUsers(c *gin.Context) {
	views, err := h.entitlement.ListUserViews(c.Request.Context())
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	out := make([]userhandler.UserViewResponse, 0, len(views))
	for _, v := range views {
		out = append(out, userhandler.NewUserViewResponse(v))
	}
	c.JSON(http.StatusOK, out)
}

// GetUser возвращает пользователя по id.
func (h *Handler) GetUser(c *gin.Context) {
	id, ok := response.ParamID(c, "id")
	if !ok {
		return
	}

	view, err := h.entitlement.GetUserView(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, userhandler.NewUserViewResponse(view))
}

// UpdateUser меняет данные и роль пользователя.
//
//	@Summary	Изменить пользователя и роль
//	@Tags		admin
//	@Security	BearerAuth
//	@Accept		json
//	@Produce	json
//	@Param		id		path		int					true	"ID пользователя"
//	@Param		body	body		UpdateUserRequest	true	"Изменения"
//	@Success	200		{object}	userhandler.UserViewResponse
//	@Failure	409		{object}	response.ErrorBody
//	@Router		/admin/users/{id} [put]
func (h *Handler) UpdateUser(c *gin.Context) {
	id, ok := response.ParamID(c, "id")
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	in := entitlement.UpdateUserRoleInput{
		Name:         req.Name,
		Email:        req.Email,
		Role:         user.Role(req.Role),
		CreateClient: req.CreateClient,
		PlanID:       req.PlanID,
	}
	if d := req.clientDetails(); d != nil {
		details, err := d.ToDomain()
		if err != nil {
			response.FromError(c, h.log, err)
			return
		}
		in.Client = &details
	}

	view, err := h.entitlement.UpdateUserRole(c.Request.Context(), id, in)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, userhandler.NewUserViewResponse(view))
}
