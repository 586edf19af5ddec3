// Package assignment содержит эндпоинты назначения тренеров клиентам.
package assignment

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gym-app/internal/handler/response"
	userhandler "gym-app/internal/handler/user"
	repo "gym-app/internal/repository/interfaces"
	"gym-app/internal/usecase/entitlement"
	"gym-app/pkg/logger"
)

// AssignRequest — тело запроса назначения тренера.
type AssignRequest struct {
	TrainerID    int64  `json:"entrenador_id" binding:"required,gt=0"`
	ClientUserID int64  `json:"cliente_id" binding:"required,gt=0"`
	Notes        string `json:"notas" binding:"max=500"`
}

// ClientResponse — клиент в обзоре назначений.
type ClientResponse struct {
	UserID        int64  `json:"usuario_id"`
	ClientID      int64  `json:"cliente_id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	PlanID        int64  `json:"plan_id"`
	PlanName      string `json:"plan_nombre"`
	TrainerAccess bool   `json:"acceso_entrenador"`
}

// AssignedClientResponse — клиент тренера с данными назначения.
type AssignedClientResponse struct {
	AssignmentID int64     `json:"asignacion_id"`
	AssignedAt   time.Time `json:"fecha_asignacion"`
	Notes        string    `json:"notas,omitempty"`
	ClientResponse
}

// TrainerResponse — тренер и его активные клиенты.
type TrainerResponse struct {
	ID      int64                    `json:"id"`
	Name    string                   `json:"name"`
	Email   string                   `json:"email"`
	Clients []AssignedClientResponse `json:"clientes"`
}

// OverviewResponse — обзор назначений.
type OverviewResponse struct {
	Trainers   []TrainerResponse `json:"entrenadores"`
	Unassigned []ClientResponse  `json:"clientes_sin_entrenador"`
}

func toClientResponse(s repo.ClientSummary) ClientResponse {
	return ClientResponse{
		UserID:        s.UserID,
		ClientID:      s.ClientID,
		Name:          s.Name,
		Email:         s.Email,
		PlanID:        s.PlanID,
		PlanName:      s.PlanName,
		TrainerAccess: s.TrainerAccess,
	}
}

// Handler обрабатывает запросы назначения тренеров.
type Handler struct {
	entitlement entitlement.Service
	log         logger.Logger
}

// NewHandler создаёт AssignmentHandler.
func NewHandler(ent entitlement.Service, log logger.Logger) *Handler {
	return &Handler{entitlement: ent, log: log}
}

// Overview возвращает тренеров с клиентами и клиентов без тренера.
//
//	@Summary	Обзор назначений
//	@Tags		assignments
//	@Security	BearerAuth
//	@Produce	json
//	@Success	200	{object}	OverviewResponse
//	@Router		/assignments [get]
func (h *Handler) Overview(c *gin.Context) {
	ov, err := h.entitlement.AssignmentOverview(c.Request.Context())
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	resp := OverviewResponse{
		Trainers:   make([]TrainerResponse, 0, len(ov.Trainers)),
		Unassigned: make([]ClientResponse, 0, len(ov.Unassigned)),
	}
	for _, t := range ov.Trainers {
		tr := TrainerResponse{ID: t.TrainerID, Name: t.Name, Email: t.Email, Clients: []AssignedClientResponse{}}
		for _, cl := range t.Clients {
			tr.Clients = append(tr.Clients, AssignedClientResponse{
				AssignmentID:   cl.AssignmentID,
				AssignedAt:     cl.AssignedAt,
				Notes:          cl.Notes,
				ClientResponse: toClientResponse(cl.ClientSummary),
			})
		}
		resp.Trainers = append(resp.Trainers, tr)
	}
	for _, u := range ov.Unassigned {
		resp.Unassigned = append(resp.Unassigned, toClientResponse(u))
	}
	c.JSON(http.StatusOK, resp)
}

// Assign назначает тренера клиенту.
//
//	@Summary	Назначить тренера
//	@Tags		assignments
//	@Security	BearerAuth
//	@Accept		json
//	@Produce	json
//	@Param		body	body		AssignRequest	true	"Тренер и клиент"
//	@Success	201		{object}	userhandler.AssignmentResponse
//	@Failure	403		{object}	response.ErrorBody
//	@Failure	409		{object}	response.ErrorBody
//	@Router		/admin/assignments [post]
func (h *Handler) Assign(c *gin.Context) {
	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	a, err := h.entitlement.AssignTrainer(c.Request.Context(), req.TrainerID, req.ClientUserID, req.Notes)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, userhandler.NewAssignmentResponse(a))
}

// Unassign деактивирует назначение.
func (h *Handler) Unassign(c *gin.Context) {
	id, ok := response.ParamID(c, "id")
	if !ok {
		return
	}

	a, err := h.entitlement.UnassignTrainer(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, userhandler.NewAssignmentResponse(a))
}
