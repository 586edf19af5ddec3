// Package verification генерирует одноразовые токены для ссылок в письмах.
//
// Пользователь получает сам токен, в БД хранится только его SHA-256 хэш.
package verification

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

// NewToken возвращает новый токен и его хэш для хранения.
func NewToken() (token, hash string) {
	token = uuid.NewString()
	return token, HashToken(token)
}

// HashToken вычисляет хэш токена для поиска в хранилище.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
