// Package membership содержит доменные модели абонементов: планы, профили клиентов
// и назначения тренеров.
package membership

import (
	"strings"
	"time"
	"unicode"

	"gym-app/internal/apperr"
)

// Plan — тарифный план зала.
type Plan struct {
	ID                 int64
	Name               string
	Description        string
	MonthlyPrice       float64
	AnnualPrice        *float64
	DurationMonths     int
	Features           []string
	ClassLimit         *int // nil — без ограничения
	NutritionistAccess bool
	TrainerAccess      bool // acceso_entrenador_personal
	PremiumAreasAccess bool
	Popular            bool
	Active             bool
	ThemeColor         string
	DisplayOrder       int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ClientStatus — статус профиля клиента.
type ClientStatus string

const (
	ClientActive   ClientStatus = "activo"
	ClientInactive ClientStatus = "inactivo"
)

// Client — профиль клиента (таблица clientes).
// Существует тогда и только тогда, когда роль владельца — cliente.
type Client struct {
	ID         int64
	UserID     int64
	DNI        string
	Phone      string
	PlanID     int64
	BirthDate  time.Time
	Gender     string
	CardNumber string // маскированный номер, хранятся только последние 4 цифры
	CardExpiry string // MM/YY
	EnrolledAt time.Time
	Status     ClientStatus
}

// ClientDetails — персональные и платёжные данные, необходимые для оформления плана.
type ClientDetails struct {
	DNI        string
	Phone      string
	BirthDate  time.Time
	Gender     string
	CardNumber string
	CardExpiry string
	CVV        string
}

// Normalize приводит поля к каноничному виду.
func (d *ClientDetails) Normalize() {
	d.DNI = strings.ToUpper(strings.TrimSpace(d.DNI))
	d.Phone = strings.TrimSpace(d.Phone)
	d.Gender = strings.TrimSpace(d.Gender)
	d.CardNumber = strings.ReplaceAll(strings.TrimSpace(d.CardNumber), " ", "")
	d.CardExpiry = strings.TrimSpace(d.CardExpiry)
	d.CVV = strings.TrimSpace(d.CVV)
}

// Validate проверяет, что все обязательные поля заполнены и корректны.
// Возвращает *apperr.FieldError для первого некорректного поля.
func (d *ClientDetails) Validate() error {
	switch {
	case d.DNI == "":
		return apperr.Field("dni", "is required")
	case !ValidDNI(d.DNI):
		return apperr.Field("dni", "has invalid format")
	case d.Phone == "":
		return apperr.Field("numero_telefono", "is required")
	case d.BirthDate.IsZero():
		return apperr.Field("fecha_nacimiento", "is required")
	case d.BirthDate.After(time.Now()):
		return apperr.Field("fecha_nacimiento", "must be in the past")
	case d.Gender == "":
		return apperr.Field("genero", "is required")
	case d.CardNumber == "":
		return apperr.Field("num_tarjeta", "is required")
	case !allDigits(d.CardNumber) || len(d.CardNumber) < 12 || len(d.CardNumber) > 19:
		return apperr.Field("num_tarjeta", "must contain 12-19 digits")
	case d.CardExpiry == "":
		return apperr.Field("fecha_tarjeta", "is required")
	case d.CVV == "":
		return apperr.Field("cvv", "is required")
	case !allDigits(d.CVV) || len(d.CVV) < 3 || len(d.CVV) > 4:
		return apperr.Field("cvv", "must contain 3 or 4 digits")
	}
	return nil
}

// NewClient создаёт активный профиль клиента из проверенных данных.
// CVV не сохраняется, номер карты маскируется.
func NewClient(userID, planID int64, d ClientDetails, now time.Time) *Client {
	return &Client{
		UserID:     userID,
		DNI:        d.DNI,
		Phone:      d.Phone,
		PlanID:     planID,
		BirthDate:  d.BirthDate,
		Gender:     d.Gender,
		CardNumber: MaskCardNumber(d.CardNumber),
		CardExpiry: d.CardExpiry,
		EnrolledAt: now,
		Status:     ClientActive,
	}
}

// ApplyDetails обновляет персональные данные существующего профиля.
func (c *Client) ApplyDetails(d ClientDetails) {
	c.DNI = d.DNI
	c.Phone = d.Phone
	c.BirthDate = d.BirthDate
	c.Gender = d.Gender
	c.CardNumber = MaskCardNumber(d.CardNumber)
	c.CardExpiry = d.CardExpiry
}

const dniLetters = "TRWAGMYFPDXBNJZSQVHLCKE"

// ValidDNI проверяет DNI: 8 цифр и контрольная буква.
func ValidDNI(dni string) bool {
	if len(dni) != 9 {
		return false
	}
	digits, letter := dni[:8], dni[8]
	if !allDigits(digits) {
		return false
	}
	n := 0
	for _, r := range digits {
		n = n*10 + int(r-'0')
	}
	return dniLetters[n%23] == letter
}

// MaskCardNumber оставляет только последние 4 цифры номера карты.
func MaskCardNumber(number string) string {
	if len(number) <= 4 {
		return number
	}
	return strings.Repeat("*", len(number)-4) + number[len(number)-4:]
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// AssignmentStatus — статус назначения тренера.
type AssignmentStatus string

const (
	AssignmentActive   AssignmentStatus = "activa"
	AssignmentInactive AssignmentStatus = "inactiva"
)

// TrainerAssignment — связь тренера и клиента. Не удаляется, только деактивируется.
type TrainerAssignment struct {
	ID           int64
	TrainerID    int64 // id пользователя с ролью entrenador
	ClientID     int64 // id профиля клиента; 0, если профиль уже удалён
	ClientUserID int64 // id пользователя-клиента, сохраняется для истории
	AssignedAt   time.Time
	Status       AssignmentStatus
	Notes        string
}

// IsActive сообщает, активно ли назначение.
func (a *TrainerAssignment) IsActive() bool {
	return a.Status == AssignmentActive
}
