// Package plan содержит эндпоинты каталога планов: публичные и административные.
package plan

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gym-app/internal/handler/response"
	planuc "gym-app/internal/usecase/plan"
	"gym-app/pkg/logger"
)

// Handler обрабатывает запросы к каталогу планов.
type Handler struct {
	plans planuc.Service
	log   logger.Logger
}

// NewHandler создаёт PlanHandler.
func NewHandler(plans planuc.Service, log logger.Logger) *Handler {
	return &Handler{plans: plans, log: log}
}

// ListActive возвращает активные планы.
//
//	@Summary	Активные планы
//	@Tags		plans
//	@Produce	json
//	@Success	200	{array}	PlanResponse
//	@Router		/plans [get]
func (h *Handler) ListActive(c *gin.Context) {
	plans, err := h.plans.ListActive(c.Request.Context())
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toPlanResponses(plans))
}

// Get возвращает активный план по id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := response.ParamID(c, "id")
	if !ok {
		return
	}
	p, err := h.plans.GetActive(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toPlanResponse(p))
}

// ListAll возвращает все планы, включая неактивные.
func (h *Handler) ListAll(c *gin.Context) {
	plans, err := h.plans.ListAll(c.Request.Context())
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toPlanResponses(plans))
}

// Create добавляет план.
func (h *Handler) Create(c *gin.Context) {
	var req PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	p, err := h.plans.Create(c.Request.Context(), req.toInput())
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, toPlanResponse(p))
}

// Update перезаписывает план.
func (h *Handler) Update(c *gin.Context) {
	id, ok := response.ParamID(c, "id")
	if !ok {
		return
	}
	var req PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	p, err := h.plans.Update(c.Request.Context(), id, req.toInput())
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toPlanResponse(p))
}
