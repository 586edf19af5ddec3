package postgres

import (
	"errors"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	repo "gym-app/internal/repository/interfaces"
)

// Имена ограничений из миграций.
const (
	constraintUsersEmail       = "uq_users_email"
	constraintClientesDNI      = "uq_clientes_dni"
	constraintClientesUsuario  = "uq_clientes_id_usuario"
	constraintAsignacionActiva = "uq_asignaciones_cliente_activa"
	constraintReservaActiva    = "uq_reservas_usuario_clase_activa"
)

// isUniqueViolation проверяет, является ли ошибка нарушением уникального ограничения PostgreSQL.
// Если заданы имена ограничений, совпасть должно одно из них.
func isUniqueViolation(err error, constraintNames ...string) bool {
	return hasCode(err, pgerrcode.UniqueViolation, constraintNames...)
}

// isForeignKeyViolation проверяет нарушение внешнего ключа (23503).
func isForeignKeyViolation(err error) bool {
	return hasCode(err, pgerrcode.ForeignKeyViolation)
}

func hasCode(err error, code string, constraintNames ...string) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != code {
		return false
	}
	if len(constraintNames) == 0 {
		return true
	}
	for _, name := range constraintNames {
		if name != "" && strings.EqualFold(pgErr.ConstraintName, name) {
			return true
		}
	}
	return false
}

// notFound переводит gorm.ErrRecordNotFound в repo.ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repo.ErrNotFound
	}
	return err
}
