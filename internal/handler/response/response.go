package response

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"gym-app/internal/apperr"
	"gym-app/pkg/logger"
)

// ErrorBody описывает стандартный формат ошибки API.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// Error отправляет JSON-ответ с ошибкой в едином формате.
func Error(c *gin.Context, status int, code, message string, details interface{}) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// FieldDetails — details ответа для ошибки конкретного поля.
type FieldDetails struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

var statuses = map[apperr.Kind]struct {
	status  int
	message string
}{
	apperr.KindValidation:   {http.StatusBadRequest, "Некорректные данные"},
	apperr.KindUnauthorized: {http.StatusUnauthorized, "Требуется аутентификация"},
	apperr.KindForbidden:    {http.StatusForbidden, "Операция запрещена"},
	apperr.KindNotFound:     {http.StatusNotFound, "Ресурс не найден"},
	apperr.KindInvalidState: {http.StatusConflict, "Операция недопустима в текущем состоянии"},
	apperr.KindConflict:     {http.StatusConflict, "Конфликт с существующими данными"},
	apperr.KindInternal:     {http.StatusInternalServerError, "Внутренняя ошибка сервера"},
}

// FromError отправляет ответ по категории ошибки usecase-слоя.
// Текст внутренних ошибок клиенту не отдаётся, только пишется в лог.
func FromError(c *gin.Context, log logger.Logger, err error) {
	kind := apperr.KindOf(err)
	st, ok := statuses[kind]
	if !ok {
		kind, st = apperr.KindInternal, statuses[apperr.KindInternal]
	}

	if kind == apperr.KindInternal {
		log.Error("request failed", map[string]any{
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"err":    err,
		})
		Error(c, st.status, string(kind), st.message, nil)
		return
	}

	var details interface{} = err.Error()
	var fe *apperr.FieldError
	if errors.As(err, &fe) {
		details = FieldDetails{Field: fe.Field, Reason: fe.Message}
	}
	Error(c, st.status, string(kind), st.message, details)
}

// BadRequest отправляет ответ о некорректном теле запроса.
func BadRequest(c *gin.Context, err error) {
	Error(c, http.StatusBadRequest, "invalid_request", "Некорректное тело запроса", err.Error())
}

// ParamID разбирает положительный числовой параметр пути.
// При ошибке отправляет 400 и возвращает false.
func ParamID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		Error(c, http.StatusBadRequest, "invalid_id", "Некорректный идентификатор", name)
		return 0, false
	}
	return id, true
}
