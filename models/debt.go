// abonent-crm/models/debt.go

package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// DebtStatus - производный статус месячной задолженности.
// Значение всегда пересчитывается из сумм и срока оплаты (см. internal/ledger),
// напрямую извне не выставляется.
type DebtStatus string

const (
	DebtPending DebtStatus = "pending"
	DebtPaid    DebtStatus = "paid"
	DebtPartial DebtStatus = "partial"
	DebtOverdue DebtStatus = "overdue"
)

// MonthlyDebtRecord is one billing obligation for one client for one calendar
// month. The (ClientID, Period) pair is unique: exactly one receivable per
// client per month.
type MonthlyDebtRecord struct {
	gorm.Model
	ClientID uint `json:"clientId" gorm:"not null;index;uniqueIndex:idx_debt_client_period"`

	Year   int    `json:"year" gorm:"not null"`
	Month  int    `json:"month" gorm:"not null"` // 1-12
	Period string `json:"period" gorm:"not null;uniqueIndex:idx_debt_client_period"`

	AmountDue  float64 `json:"amountDue" gorm:"type:numeric(12,2);not null"`
	AmountPaid float64 `json:"amountPaid" gorm:"type:numeric(12,2);not null;default:0"`

	// DueDate - контрольная дата сбора за период.
	DueDate time.Time `json:"dueDate"`
	// PaymentDate заполняется только при полном погашении.
	PaymentDate *time.Time `json:"paymentDate"`

	// Денормализованный статус на момент последней записи. Отчеты и сводки
	// ему не доверяют и всегда пересчитывают статус от текущего времени.
	Status DebtStatus `json:"status" gorm:"not null;default:pending"`
}

// FormatPeriod serializes a year/month pair as "YYYY-MM". Zero-padding keeps
// the string ISO-ordered, so plain string comparison sorts periods correctly.
func FormatPeriod(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// PeriodOf returns the "YYYY-MM" period containing t.
func PeriodOf(t time.Time) string {
	return FormatPeriod(t.Year(), int(t.Month()))
}
