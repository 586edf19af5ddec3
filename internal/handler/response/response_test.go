package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"gym-app/internal/apperr"
	"gym-app/pkg/logger"
)

type body struct {
	Error struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

func run(t *testing.T, handler gin.HandlerFunc) (*httptest.ResponseRecorder, body) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	handler(c)

	var b body
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b), w.Body.String())
	return w, b
}

func TestFromError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{apperr.NotFound("plan %d", 9), http.StatusNotFound, "not_found"},
		{apperr.InvalidState("user is already a client"), http.StatusConflict, "invalid_state"},
		{apperr.Conflict("trainer already assigned"), http.StatusConflict, "conflict"},
		{apperr.Forbidden("plan lacks trainer access"), http.StatusForbidden, "forbidden"},
		{fmt.Errorf("login: %w", apperr.ErrUnauthorized), http.StatusUnauthorized, "unauthorized"},
		{apperr.Field("dni", "invalid"), http.StatusBadRequest, "validation_error"},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			w, b := run(t, func(c *gin.Context) { FromError(c, logger.Nop(), tc.err) })
			require.Equal(t, tc.status, w.Code)
			require.Equal(t, tc.code, b.Error.Code)
			require.NotEmpty(t, b.Error.Message)
		})
	}
}

func TestFromError_FieldDetails(t *testing.T) {
	_, b := run(t, func(c *gin.Context) { FromError(c, logger.Nop(), apperr.Field("dni", "invalid checksum")) })
	require.JSONEq(t, `{"field":"dni","reason":"invalid checksum"}`, string(b.Error.Details))
}

func TestFromError_HidesInternalErrors(t *testing.T) {
	w, b := run(t, func(c *gin.Context) { FromError(c, logger.Nop(), errors.New("pq: connection reset")) })
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, "internal_error", b.Error.Code)
	require.NotContains(t, w.Body.String(), "connection reset")
}

func TestParamID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	for _, raw := range []string{"abc", "0", "-4"} {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Params = gin.Params{{Key: "id", Value: raw}}
		_, ok := ParamID(c, "id")
		require.False(t, ok, raw)
		require.Equal(t, http.StatusBadRequest, w.Code)
	}

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Params = gin.Params{{Key: "id", Value: "15"}}
	id, ok := ParamID(c, "id")
	require.True(t, ok)
	require.Equal(t, int64(15), id)
}
