// Package validation регистрирует собственные правила для binding-тегов gin.
package validation

import (
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"gym-app/internal/domain/membership"
)

var once sync.Once

// Register добавляет правило dni (регистр букв не важен) в валидатор gin. Повторные вызовы ничего не делают.
func Register() error {
	var err error
	once.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		err = v.RegisterValidation("dni", func(fl validator.FieldLevel) bool {
			return membership.ValidDNI(strings.ToUpper(strings.TrimSpace(fl.Field().String())))
		})
	})
	return err
}
