package interfaces

import (
	"fmt"

	"gym-app/internal/apperr"
)

// Ошибки хранилища. Каждая оборачивает категорию из apperr, поэтому usecase-слой
// может передавать их наверх без перекладывания.
var (
	// ErrNotFound возвращается, когда сущность не найдена в хранилище.
	ErrNotFound = fmt.Errorf("entity %w", apperr.ErrNotFound)

	// ErrEmailExists возвращается, когда пользователь с таким email уже существует.
	ErrEmailExists = fmt.Errorf("email already exists: %w", apperr.ErrConflict)

	// ErrDNIExists возвращается при нарушении уникальности DNI клиента.
	ErrDNIExists = fmt.Errorf("dni already exists: %w", apperr.ErrConflict)

	// ErrClientExists возвращается, если у пользователя уже есть профиль клиента.
	ErrClientExists = fmt.Errorf("client profile already exists: %w", apperr.ErrConflict)

	// ErrActiveAssignmentExists возвращается, если у клиента уже есть активное назначение тренера.
	ErrActiveAssignmentExists = fmt.Errorf("client already has an active trainer: %w", apperr.ErrConflict)

	// ErrReservationExists возвращается при повторной активной записи на то же занятие.
	ErrReservationExists = fmt.Errorf("reservation already exists: %w", apperr.ErrConflict)

	// ErrReferenceViolation возвращается при нарушении внешнего ключа.
	ErrReferenceViolation = fmt.Errorf("referenced entity does not exist: %w", apperr.ErrNotFound)
)
