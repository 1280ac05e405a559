package ledger

import (
	"time"

	"abonent-crm/models"
)

// DebtSummary - сводка по задолженностям одного абонента.
// Считается на лету при каждом чтении и нигде не кэшируется.
type DebtSummary struct {
	TotalDebt   float64    `json:"totalDebt"`
	TotalPaid   float64    `json:"totalPaid"`
	Balance     float64    `json:"balance"`
	MonthsOwed  int        `json:"monthsOwed"`
	MonthsPaid  int        `json:"monthsPaid"`
	OldestDebt  string     `json:"oldestDebt,omitempty"`
	LastPayment *time.Time `json:"lastPayment,omitempty"`
}

// Summarize folds one client's debt records into a summary. Pure function:
// no store access, no mutation of the input. Statuses are re-derived against
// now, so a record past its due date counts as owed even if its stored
// status still says pending. An empty input yields a zero summary.
func Summarize(records []models.MonthlyDebtRecord, now time.Time) DebtSummary {
	var s DebtSummary
	for _, r := range records {
		s.TotalDebt += r.AmountDue
		s.TotalPaid += r.AmountPaid

		status := DeriveStatus(r.AmountDue, r.AmountPaid, r.DueDate, now)
		if status == models.DebtPaid {
			s.MonthsPaid++
			if r.PaymentDate != nil && (s.LastPayment == nil || r.PaymentDate.After(*s.LastPayment)) {
				d := *r.PaymentDate
				s.LastPayment = &d
			}
			continue
		}

		s.MonthsOwed++
		// Период "YYYY-MM" упорядочен лексикографически.
		if s.OldestDebt == "" || r.Period < s.OldestDebt {
			s.OldestDebt = r.Period
		}
	}
	s.Balance = s.TotalDebt - s.TotalPaid
	return s
}
