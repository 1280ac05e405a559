// abonent-crm/internal/importer/importer.go

// Package importer разбирает загруженный Excel-лист в нормализованные строки
// (абонент + расширенные данные + месячные задолженности) и применяет их к
// хранилищам. Данные в таблицах грязные: отрицательные суммы приводятся к
// нулю, битые строки собираются в отчет об ошибках и не валят весь импорт.
package importer

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"abonent-crm/internal/ledger"
	"abonent-crm/internal/store"
	"abonent-crm/models"
)

// Фиксированные колонки листа импорта. Дальше идут колонки периодов
// с заголовками вида "2024-01".
const (
	colAccount = iota
	colLastName
	colFirstName
	colMiddleName
	colPhone
	colAddress
	colStatus
	colContractNumber
	colPassport
	colFixedCount
)

var periodHeaderRe = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// DebtEntry - одна задолженность из строки импорта.
type DebtEntry struct {
	Year       int
	Month      int
	AmountDue  float64
	AmountPaid float64
	IsPaid     bool // отметка "оплачено" без указания суммы
}

// ImportRow - нормализованная строка листа.
type ImportRow struct {
	Client models.Client
	Detail models.ClientDetail
	Debts  []DebtEntry
}

// RowError - строка, которую не удалось разобрать. Импорт продолжается.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ParseResult - результат разбора листа.
type ParseResult struct {
	BatchID   string      `json:"batchId"`
	Rows      []ImportRow `json:"-"`
	RowErrors []RowError  `json:"rowErrors"`
}

// ParseWorkbook читает первый лист книги и возвращает нормализованные строки.
func ParseWorkbook(r io.Reader) (*ParseResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть файл: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать лист %q: %w", sheet, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("лист %q пуст", sheet)
	}

	// Колонки периодов определяем по заголовкам "YYYY-MM".
	type periodCol struct {
		idx   int
		year  int
		month int
	}
	var periodCols []periodCol
	for i, header := range rows[0] {
		if i < colFixedCount {
			continue
		}
		h := strings.TrimSpace(header)
		if !periodHeaderRe.MatchString(h) {
			continue
		}
		y, _ := strconv.Atoi(h[:4])
		m, _ := strconv.Atoi(h[5:])
		periodCols = append(periodCols, periodCol{idx: i, year: y, month: m})
	}

	result := &ParseResult{BatchID: uuid.NewString()}

	for rowNum, row := range rows[1:] {
		line := rowNum + 2 // номер строки в файле, с учетом заголовка

		account := strings.TrimSpace(cell(row, colAccount))
		lastName := strings.TrimSpace(cell(row, colLastName))
		if account == "" && lastName == "" {
			continue // пустая строка
		}
		if account == "" || lastName == "" {
			result.RowErrors = append(result.RowErrors, RowError{
				Row: line, Message: "не заполнены лицевой счет или фамилия"})
			continue
		}

		status := models.StatusActive
		if raw := strings.TrimSpace(cell(row, colStatus)); raw != "" {
			parsed, err := models.ParseClientStatus(raw)
			if err != nil {
				result.RowErrors = append(result.RowErrors, RowError{
					Row: line, Message: fmt.Sprintf("неизвестный статус %q", raw)})
				continue
			}
			status = parsed
		}

		ir := ImportRow{
			Client: models.Client{
				AccountNumber: account,
				LastName:      lastName,
				FirstName:     strings.TrimSpace(cell(row, colFirstName)),
				MiddleName:    strings.TrimSpace(cell(row, colMiddleName)),
				Phone:         strings.TrimSpace(cell(row, colPhone)),
				Address:       strings.TrimSpace(cell(row, colAddress)),
				Status:        status,
			},
			Detail: models.ClientDetail{
				ContractNumber: strings.TrimSpace(cell(row, colContractNumber)),
				PassportNumber: strings.TrimSpace(cell(row, colPassport)),
			},
		}

		for _, pc := range periodCols {
			raw := strings.TrimSpace(cell(row, pc.idx))
			if raw == "" {
				continue // месяц не выставлялся - записи нет
			}
			entry, err := parseDebtCell(raw)
			if err != nil {
				result.RowErrors = append(result.RowErrors, RowError{
					Row:     line,
					Message: fmt.Sprintf("период %s: %v", models.FormatPeriod(pc.year, pc.month), err)})
				continue
			}
			entry.Year = pc.year
			entry.Month = pc.month
			ir.Debts = append(ir.Debts, entry)
		}

		result.Rows = append(result.Rows, ir)
	}

	return result, nil
}

func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return row[idx]
}

// parseDebtCell разбирает ячейку периода. Форматы:
//
//	"1500"          - начислено 1500, не оплачено
//	"1500/500"      - начислено 1500, оплачено 500
//	"1500 оплачено" - начислено и полностью оплачено
func parseDebtCell(raw string) (DebtEntry, error) {
	var entry DebtEntry

	s := strings.ToLower(strings.TrimSpace(raw))
	if strings.HasSuffix(s, "оплачено") {
		entry.IsPaid = true
		s = strings.TrimSpace(strings.TrimSuffix(s, "оплачено"))
	}

	duePart, paidPart, hasPaid := strings.Cut(s, "/")
	due, err := parseAmount(duePart)
	if err != nil {
		return entry, fmt.Errorf("не удалось разобрать сумму %q", raw)
	}
	entry.AmountDue = due
	if hasPaid {
		paid, err := parseAmount(paidPart)
		if err != nil {
			return entry, fmt.Errorf("не удалось разобрать сумму %q", raw)
		}
		entry.AmountPaid = paid
	}
	return entry, nil
}

func parseAmount(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	s = strings.ReplaceAll(s, " ", "")
	return strconv.ParseFloat(s, 64)
}

// ApplyStats - итог применения импорта.
type ApplyStats struct {
	ClientsCreated int `json:"clientsCreated"`
	ClientsUpdated int `json:"clientsUpdated"`
	DebtsCreated   int `json:"debtsCreated"`
	RowsFailed     int `json:"rowsFailed"`
}

// Importer применяет разобранные строки к хранилищам.
type Importer struct {
	clients store.ClientStore
	debts   store.DebtStore
}

func NewImporter(clients store.ClientStore, debts store.DebtStore) *Importer {
	return &Importer{clients: clients, debts: debts}
}

// Apply создает или обновляет абонентов и заводит их задолженности.
// Существующие периоды не трогаются. Срок оплаты созданных записей -
// collectionDay числа месяца периода.
func (im *Importer) Apply(result *ParseResult, collectionDay int, actor string, now time.Time) (*ApplyStats, error) {
	if collectionDay < 1 || collectionDay > 28 {
		collectionDay = 10
	}
	stats := &ApplyStats{RowsFailed: len(result.RowErrors)}

	for _, row := range result.Rows {
		client, err := im.clients.FindByAccount(row.Client.AccountNumber)
		switch {
		case err == nil:
			// Обновляем только контактные поля; статус при импорте не меняем -
			// смена статуса идет исключительно через машину состояний.
			client.LastName = row.Client.LastName
			client.FirstName = row.Client.FirstName
			client.MiddleName = row.Client.MiddleName
			client.Phone = row.Client.Phone
			client.Address = row.Client.Address
			if err := im.clients.Update(client); err != nil {
				return stats, err
			}
			stats.ClientsUpdated++
		case err == models.ErrNotFound:
			client = &row.Client
			client.SeedHistory(actor, "создан при импорте "+result.BatchID, now)
			client.Detail = &row.Detail
			if err := im.clients.Create(client); err != nil {
				return stats, err
			}
			stats.ClientsCreated++
		default:
			return stats, err
		}

		created, err := im.applyDebts(client.ID, row.Debts, collectionDay, now)
		if err != nil {
			return stats, err
		}
		stats.DebtsCreated += created
	}

	return stats, nil
}

func (im *Importer) applyDebts(clientID uint, entries []DebtEntry, collectionDay int, now time.Time) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	existing, err := im.debts.ListByClient(clientID)
	if err != nil {
		return 0, err
	}
	have := make(map[string]bool, len(existing))
	for _, r := range existing {
		have[r.Period] = true
	}

	var batch []models.MonthlyDebtRecord
	for _, e := range entries {
		if have[models.FormatPeriod(e.Year, e.Month)] {
			continue
		}
		paid := e.AmountPaid
		if e.IsPaid {
			paid = e.AmountDue
		}
		dueDate := time.Date(e.Year, time.Month(e.Month), collectionDay, 0, 0, 0, 0, time.UTC)
		batch = append(batch, ledger.NewRecord(clientID, e.Year, e.Month, e.AmountDue, paid, dueDate, now))
	}
	if len(batch) == 0 {
		return 0, nil
	}
	if err := im.debts.BulkCreate(batch); err != nil {
		return 0, err
	}
	return len(batch), nil
}
