// Package schedule содержит эндпоинты расписания и резерваций.
package schedule

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gym-app/internal/handler/middleware"
	"gym-app/internal/handler/response"
	repo "gym-app/internal/repository/interfaces"
	scheduleuc "gym-app/internal/usecase/schedule"
	"gym-app/pkg/logger"
)

// Handler обрабатывает запросы расписания и резерваций.
type Handler struct {
	schedule scheduleuc.Service
	log      logger.Logger
}

// NewHandler создаёт ScheduleHandler.
func NewHandler(schedule scheduleuc.Service, log logger.Logger) *Handler {
	return &Handler{schedule: schedule, log: log}
}

// ListClasses возвращает каталог занятий.
func (h *Handler) ListClasses(c *gin.Context) {
	classes, err := h.schedule.ListClasses(c.Request.Context())
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	out := make([]ClassResponse, 0, len(classes))
	for _, cl := range classes {
		out = append(out, toClassResponse(cl))
	}
	c.JSON(http.StatusOK, out)
}

// CreateClass добавляет занятие в каталог.
func (h *Handler) CreateClass(c *gin.Context) {
	var req ClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	cl, err := h.schedule.CreateClass(c.Request.Context(), scheduleuc.ClassInput{
		Name:            req.Name,
		Description:     req.Description,
		DurationMinutes: req.DurationMinutes,
		Capacity:        req.Capacity,
		Level:           req.Level,
	})
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, toClassResponse(cl))
}

// ListUpcoming возвращает будущие занятия.
//
//	@Summary	Расписание
//	@Tags		schedule
//	@Produce	json
//	@Success	200	{array}	ScheduledResponse
//	@Router		/schedule [get]
func (h *Handler) ListUpcoming(c *gin.Context) {
	list, err := h.schedule.ListUpcoming(c.Request.Context())
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	out := make([]ScheduledResponse, 0, len(list))
	for _, s := range list {
		out = append(out, toScheduledResponse(s))
	}
	c.JSON(http.StatusOK, out)
}

// ScheduleClass ставит занятие в расписание.
func (h *Handler) ScheduleClass(c *gin.Context) {
	var req ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	sc, err := h.schedule.ScheduleClass(c.Request.Context(), scheduleuc.ScheduleInput{
		ClassID:         req.ClassID,
		TrainerID:       req.TrainerID,
		StartsAt:        req.StartsAt,
		DurationMinutes: req.DurationMinutes,
		Capacity:        req.Capacity,
	})
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, toScheduledResponse(sc))
}

// CancelScheduled отменяет занятие.
func (h *Handler) CancelScheduled(c *gin.Context) {
	id, ok := response.ParamID(c, "id")
	if !ok {
		return
	}
	if err := h.schedule.CancelScheduled(c.Request.Context(), id); err != nil {
		response.FromError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Reserve записывает текущего пользователя на занятие.
//
//	@Summary	Записаться на занятие
//	@Tags		reservations
//	@Security	BearerAuth
//	@Accept		json
//	@Produce	json
//	@Param		body	body		ReserveRequest	true	"Занятие"
//	@Success	201		{object}	ReservationResponse
//	@Failure	409		{object}	response.ErrorBody
//	@Router		/reservations [post]
func (h *Handler) Reserve(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized", "Требуется аутентификация", nil)
		return
	}
	var req ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	res, err := h.schedule.Reserve(c.Request.Context(), userID, req.ScheduledClassID)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, toReservationResponse(repo.ReservationDetail{Reservation: *res}))
}

// ListMyReservations возвращает резервации текущего пользователя.
func (h *Handler) ListMyReservations(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized", "Требуется аутентификация", nil)
		return
	}
	list, err := h.schedule.ListReservations(c.Request.Context(), userID)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	out := make([]ReservationResponse, 0, len(list))
	for _, d := range list {
		out = append(out, toReservationResponse(d))
	}
	c.JSON(http.StatusOK, out)
}

// CancelReservation отменяет резервацию текущего пользователя.
func (h *Handler) CancelReservation(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized", "Требуется аутентификация", nil)
		return
	}
	id, ok := response.ParamID(c, "id")
	if !ok {
		return
	}
	if err := h.schedule.CancelReservation(c.Request.Context(), userID, id); err != nil {
		response.FromError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MarkAttendance отмечает посещение занятия.
func (h *Handler) MarkAttendance(c *gin.Context) {
	id, ok := response.ParamID(c, "id")
	if !ok {
		return
	}
	if err := h.schedule.MarkAttendance(c.Request.Context(), id); err != nil {
		response.FromError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
