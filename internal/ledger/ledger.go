// abonent-crm/internal/ledger/ledger.go

// Package ledger - расчет статусов и сводок по месячным задолженностям.
// DeriveStatus - единственная точка, где вычисляется статус записи; ни один
// другой путь в коде статус напрямую не выставляет.
package ledger

import (
	"time"

	"abonent-crm/internal/store"
	"abonent-crm/models"
)

// DeriveStatus computes a debt record's status from its amounts, due date and
// the current time. Pure and deterministic; precedence is fixed:
// paid, then partial, then overdue, then pending. A pending record becomes
// overdue simply because time passed - no write is involved, so callers must
// re-derive on every read.
func DeriveStatus(amountDue, amountPaid float64, dueDate, now time.Time) models.DebtStatus {
	switch {
	case amountPaid >= amountDue:
		return models.DebtPaid
	case amountPaid > 0:
		return models.DebtPartial
	case now.After(dueDate):
		return models.DebtOverdue
	default:
		return models.DebtPending
	}
}

// Refresh пересчитывает денормализованное поле Status записи на момент now.
func Refresh(r *models.MonthlyDebtRecord, now time.Time) {
	r.Status = DeriveStatus(r.AmountDue, r.AmountPaid, r.DueDate, now)
}

// Ledger выполняет операции над задолженностями через внедренное хранилище.
type Ledger struct {
	debts store.DebtStore
}

func NewLedger(debts store.DebtStore) *Ledger {
	return &Ledger{debts: debts}
}

// PostPayment зачисляет платеж на запись задолженности.
// Переплата сверх AmountDue молча срезается - кредит на следующий период
// не переносится (подтвержденное поведение учетной политики, не баг).
// Отрицательная сумма отклоняется с ErrInvalidAmount до любых изменений.
func (l *Ledger) PostPayment(debtID uint, amount float64, paymentDate time.Time) (*models.MonthlyDebtRecord, error) {
	if amount < 0 {
		return nil, models.ErrInvalidAmount
	}

	rec, err := l.debts.Get(debtID)
	if err != nil {
		return nil, err
	}

	// Работаем с копией: запись в хранилище либо проходит целиком,
	// либо исходное состояние остается нетронутым.
	updated := *rec
	updated.AmountPaid = min(rec.AmountPaid+amount, rec.AmountDue)
	if updated.AmountPaid >= updated.AmountDue {
		d := paymentDate
		updated.PaymentDate = &d
	}
	Refresh(&updated, paymentDate)

	if err := l.debts.Update(&updated); err != nil {
		return nil, err
	}
	return &updated, nil
}
