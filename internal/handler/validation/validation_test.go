package validation

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/require"
)

type dniRequest struct {
	DNI string `binding:"required,dni"`
}

func TestRegister_DNI(t *testing.T) {
	require.NoError(t, Register())
	require.NoError(t, Register())

	require.NoError(t, binding.Validator.ValidateStruct(&dniRequest{DNI: "12345678Z"}))
	require.NoError(t, binding.Validator.ValidateStruct(&dniRequest{DNI: "12345678z"}))
	require.Error(t, binding.Validator.ValidateStruct(&dniRequest{DNI: "12345678A"}))
	require.Error(t, binding.Validator.ValidateStruct(&dniRequest{DNI: "1234"}))
}
