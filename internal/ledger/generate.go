package ledger

import (
	"fmt"
	"time"

	"github.com/Knetic/govaluate"

	"abonent-crm/models"
)

// MonthlyAmount вычисляет фактическую месячную сумму по тарифу.
// Если у тарифа задана формула (например "base * 0.9" для скидки),
// она вычисляется с переменной base = MonthlyCost.
func MonthlyAmount(t *models.Tariff) (float64, error) {
	if t.Formula == "" {
		return t.MonthlyCost, nil
	}

	expression, err := govaluate.NewEvaluableExpression(t.Formula)
	if err != nil {
		return 0, fmt.Errorf("ошибка в формуле тарифа %q: %w", t.Name, err)
	}
	result, err := expression.Evaluate(map[string]interface{}{"base": t.MonthlyCost})
	if err != nil {
		return 0, fmt.Errorf("не удалось вычислить формулу тарифа %q: %w", t.Name, err)
	}
	amount, ok := result.(float64)
	if !ok {
		return 0, fmt.Errorf("формула тарифа %q вернула не число", t.Name)
	}
	if amount < 0 {
		amount = 0
	}
	return amount, nil
}

// NewRecord builds a normalized debt record. Dirty creation-time input
// (negative amounts from an import sheet or manual entry) is coerced to
// zero, paid is clamped to due, and the status is derived - records never
// enter the store with a caller-supplied status.
func NewRecord(clientID uint, year, month int, amountDue, amountPaid float64, dueDate, now time.Time) models.MonthlyDebtRecord {
	if amountDue < 0 {
		amountDue = 0
	}
	if amountPaid < 0 {
		amountPaid = 0
	}
	if amountPaid > amountDue {
		amountPaid = amountDue
	}
	rec := models.MonthlyDebtRecord{
		ClientID:   clientID,
		Year:       year,
		Month:      month,
		Period:     models.FormatPeriod(year, month),
		AmountDue:  amountDue,
		AmountPaid: amountPaid,
		DueDate:    dueDate,
	}
	Refresh(&rec, now)
	return rec
}

// GenerateForClient создает недостающие записи задолженности абонента за
// периоды [fromYear-fromMonth .. toYear-toMonth] по его тарифу.
// Существующие периоды пропускаются (одна запись на абонента и месяц),
// повторный запуск за тот же диапазон ничего не дублирует.
// Возвращает количество созданных записей.
func (l *Ledger) GenerateForClient(client *models.Client, tariff *models.Tariff, fromYear, fromMonth, toYear, toMonth int, now time.Time) (int, error) {
	amount, err := MonthlyAmount(tariff)
	if err != nil {
		return 0, err
	}

	existing, err := l.debts.ListByClient(client.ID)
	if err != nil {
		return 0, err
	}
	have := make(map[string]bool, len(existing))
	for _, r := range existing {
		have[r.Period] = true
	}

	day := tariff.CollectionDay
	if day < 1 || day > 28 {
		day = 10
	}

	var batch []models.MonthlyDebtRecord
	for y, m := fromYear, fromMonth; y < toYear || (y == toYear && m <= toMonth); {
		if period := models.FormatPeriod(y, m); !have[period] {
			dueDate := time.Date(y, time.Month(m), day, 0, 0, 0, 0, time.UTC)
			batch = append(batch, NewRecord(client.ID, y, m, amount, 0, dueDate, now))
		}
		m++
		if m > 12 {
			m = 1
			y++
		}
	}

	if len(batch) == 0 {
		return 0, nil
	}
	if err := l.debts.BulkCreate(batch); err != nil {
		return 0, err
	}
	return len(batch), nil
}
