package ledger

import (
	"time"

	"abonent-crm/models"
)

// MatrixCell - одна ячейка "абонент × месяц". Отсутствие записи за месяц
// (HasRecord == false) - самостоятельное состояние, отличное от pending:
// период просто не выставлялся к оплате.
type MatrixCell struct {
	HasRecord  bool              `json:"hasRecord"`
	DebtID     uint              `json:"debtId,omitempty"`
	Status     models.DebtStatus `json:"status,omitempty"`
	AmountDue  float64           `json:"amountDue,omitempty"`
	AmountPaid float64           `json:"amountPaid,omitempty"`
}

// MatrixRow - строка матрицы задолженностей: абонент и его 12 месяцев года.
type MatrixRow struct {
	ClientID      uint                `json:"clientId"`
	AccountNumber string              `json:"accountNumber"`
	ClientName    string              `json:"clientName"`
	ClientStatus  models.ClientStatus `json:"clientStatus"`
	Months        [12]MatrixCell      `json:"months"` // индекс 0 - январь
}

// BuildMatrix projects clients and their debt records for one year onto a
// client × month grid. Pure projection: it never creates missing records,
// and statuses are derived against now at read time.
func BuildMatrix(clients []models.Client, year int, records []models.MonthlyDebtRecord, now time.Time) []MatrixRow {
	type key struct {
		clientID uint
		month    int
	}
	index := make(map[key]*models.MonthlyDebtRecord, len(records))
	for i := range records {
		r := &records[i]
		if r.Year != year || r.Month < 1 || r.Month > 12 {
			continue
		}
		index[key{r.ClientID, r.Month}] = r
	}

	rows := make([]MatrixRow, 0, len(clients))
	for _, c := range clients {
		row := MatrixRow{
			ClientID:      c.ID,
			AccountNumber: c.AccountNumber,
			ClientName:    c.FullName(),
			ClientStatus:  c.Status,
		}
		for m := 1; m <= 12; m++ {
			r, ok := index[key{c.ID, m}]
			if !ok {
				continue // ячейка остается "нет записи"
			}
			row.Months[m-1] = MatrixCell{
				HasRecord:  true,
				DebtID:     r.ID,
				Status:     DeriveStatus(r.AmountDue, r.AmountPaid, r.DueDate, now),
				AmountDue:  r.AmountDue,
				AmountPaid: r.AmountPaid,
			}
		}
		rows = append(rows, row)
	}
	return rows
}
