package importer

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"abonent-crm/internal/store"
	"abonent-crm/models"
)

// fakeClientStore / fakeDebtStore - хранилища в памяти для тестов импорта.
type fakeClientStore struct {
	clients map[uint]models.Client
	nextID  uint
}

func newFakeClientStore() *fakeClientStore {
	return &fakeClientStore{clients: make(map[uint]models.Client)}
}

func (f *fakeClientStore) Get(id uint) (*models.Client, error) {
	c, ok := f.clients[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &c, nil
}

func (f *fakeClientStore) FindByAccount(accountNumber string) (*models.Client, error) {
	for _, c := range f.clients {
		if c.AccountNumber == accountNumber {
			return &c, nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakeClientStore) List(filter store.ClientFilter) ([]models.Client, int64, error) {
	var out []models.Client
	for _, c := range f.clients {
		out = append(out, c)
	}
	return out, int64(len(out)), nil
}

func (f *fakeClientStore) Create(c *models.Client) error {
	f.nextID++
	c.ID = f.nextID
	f.clients[c.ID] = *c
	return nil
}

func (f *fakeClientStore) Update(c *models.Client) error {
	f.clients[c.ID] = *c
	return nil
}

func (f *fakeClientStore) Delete(id uint) error {
	delete(f.clients, id)
	return nil
}

type fakeDebtStore struct {
	records []models.MonthlyDebtRecord
	nextID  uint
}

func (f *fakeDebtStore) Get(id uint) (*models.MonthlyDebtRecord, error) {
	for _, r := range f.records {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakeDebtStore) ListByClient(clientID uint) ([]models.MonthlyDebtRecord, error) {
	var out []models.MonthlyDebtRecord
	for _, r := range f.records {
		if r.ClientID == clientID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeDebtStore) ListByYear(year int) ([]models.MonthlyDebtRecord, error) { return nil, nil }

func (f *fakeDebtStore) Create(r *models.MonthlyDebtRecord) error {
	f.nextID++
	r.ID = f.nextID
	f.records = append(f.records, *r)
	return nil
}

func (f *fakeDebtStore) Update(r *models.MonthlyDebtRecord) error       { return nil }
func (f *fakeDebtStore) Delete(id uint) error                           { return nil }
func (f *fakeDebtStore) DeleteByClient(clientID uint) error             { return nil }
func (f *fakeDebtStore) BulkCreate(rs []models.MonthlyDebtRecord) error {
	for i := range rs {
		if err := f.Create(&rs[i]); err != nil {
			return err
		}
	}
	return nil
}

// buildSheet собирает xlsx-книгу из строк для теста.
func buildSheet(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		for j, val := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cell, val))
		}
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

var header = []interface{}{
	"Лицевой счет", "Фамилия", "Имя", "Отчество", "Телефон", "Адрес",
	"Статус", "Номер договора", "Паспорт", "2024-01", "2024-02",
}

func TestParseWorkbook(t *testing.T) {
	buf := buildSheet(t, [][]interface{}{
		header,
		{"A-001", "Иванов", "Петр", "", "+7 777 111 2233", "ул. Абая 1",
			"active", "Д-55", "N123456", "1500", "1500/500"},
		{"A-002", "Сидоров", "Олег", "", "", "",
			"", "", "", "1500 оплачено", ""},
		{"A-003", "", "", "", "", "", "", "", "", "", ""},          // нет фамилии
		{"A-004", "Петров", "", "", "", "", "frozen", "", "", "", ""}, // битый статус
	})

	result, err := ParseWorkbook(buf)
	require.NoError(t, err)
	require.NotEmpty(t, result.BatchID)

	require.Len(t, result.Rows, 2)
	require.Len(t, result.RowErrors, 2)

	first := result.Rows[0]
	assert.Equal(t, "A-001", first.Client.AccountNumber)
	assert.Equal(t, models.StatusActive, first.Client.Status)
	assert.Equal(t, "Д-55", first.Detail.ContractNumber)
	require.Len(t, first.Debts, 2)
	assert.Equal(t, DebtEntry{Year: 2024, Month: 1, AmountDue: 1500}, first.Debts[0])
	assert.Equal(t, DebtEntry{Year: 2024, Month: 2, AmountDue: 1500, AmountPaid: 500}, first.Debts[1])

	second := result.Rows[1]
	// Пустой статус по умолчанию active, отметка "оплачено" дает IsPaid.
	assert.Equal(t, models.StatusActive, second.Client.Status)
	require.Len(t, second.Debts, 1)
	assert.True(t, second.Debts[0].IsPaid)
	assert.Equal(t, 1500.0, second.Debts[0].AmountDue)
}

func TestParseDebtCell(t *testing.T) {
	tests := []struct {
		raw     string
		want    DebtEntry
		wantErr bool
	}{
		{"1500", DebtEntry{AmountDue: 1500}, false},
		{"1500/500", DebtEntry{AmountDue: 1500, AmountPaid: 500}, false},
		{"1500 оплачено", DebtEntry{AmountDue: 1500, IsPaid: true}, false},
		{"1 500,50", DebtEntry{AmountDue: 1500.5}, false},
		{"долг", DebtEntry{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseDebtCell(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApply(t *testing.T) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("создание абонента с задолженностями", func(t *testing.T) {
		clients := newFakeClientStore()
		debts := &fakeDebtStore{}
		im := NewImporter(clients, debts)

		result := &ParseResult{
			BatchID: "batch-1",
			Rows: []ImportRow{{
				Client: models.Client{AccountNumber: "A-001", LastName: "Иванов", Status: models.StatusActive},
				Detail: models.ClientDetail{ContractNumber: "Д-55"},
				Debts: []DebtEntry{
					{Year: 2024, Month: 1, AmountDue: 1500},
					{Year: 2024, Month: 2, AmountDue: 1500, IsPaid: true},
				},
			}},
		}

		stats, err := im.Apply(result, 10, "admin-1", now)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.ClientsCreated)
		assert.Equal(t, 2, stats.DebtsCreated)

		created, err := clients.FindByAccount("A-001")
		require.NoError(t, err)
		// У созданного абонента сразу есть первая запись истории.
		require.Len(t, created.StatusHistory, 1)
		assert.Equal(t, created.Status, created.StatusHistory[0].ToStatus)

		recs, err := debts.ListByClient(created.ID)
		require.NoError(t, err)
		require.Len(t, recs, 2)
		for _, r := range recs {
			if r.Period == "2024-02" {
				// Отметка "оплачено" означает полную оплату.
				assert.Equal(t, r.AmountDue, r.AmountPaid)
				assert.Equal(t, models.DebtPaid, r.Status)
			}
		}
	})

	t.Run("отрицательные суммы приводятся к нулю", func(t *testing.T) {
		clients := newFakeClientStore()
		debts := &fakeDebtStore{}
		im := NewImporter(clients, debts)

		result := &ParseResult{Rows: []ImportRow{{
			Client: models.Client{AccountNumber: "A-002", LastName: "Сидоров", Status: models.StatusActive},
			Debts:  []DebtEntry{{Year: 2024, Month: 1, AmountDue: -300, AmountPaid: -100}},
		}}}

		_, err := im.Apply(result, 10, "admin-1", now)
		require.NoError(t, err)

		created, _ := clients.FindByAccount("A-002")
		recs, _ := debts.ListByClient(created.ID)
		require.Len(t, recs, 1)
		assert.Zero(t, recs[0].AmountDue)
		assert.Zero(t, recs[0].AmountPaid)
	})

	t.Run("повторный импорт обновляет контакты и не дублирует периоды", func(t *testing.T) {
		clients := newFakeClientStore()
		debts := &fakeDebtStore{}
		im := NewImporter(clients, debts)

		row := ImportRow{
			Client: models.Client{AccountNumber: "A-003", LastName: "Петров", Status: models.StatusActive},
			Debts:  []DebtEntry{{Year: 2024, Month: 1, AmountDue: 1500}},
		}
		_, err := im.Apply(&ParseResult{Rows: []ImportRow{row}}, 10, "admin-1", now)
		require.NoError(t, err)

		row.Client.Phone = "+7 777 000 0000"
		row.Client.Status = models.StatusDebt // статус при импорте не перетирается
		stats, err := im.Apply(&ParseResult{Rows: []ImportRow{row}}, 10, "admin-1", now)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.ClientsUpdated)
		assert.Zero(t, stats.DebtsCreated)

		updated, _ := clients.FindByAccount("A-003")
		assert.Equal(t, "+7 777 000 0000", updated.Phone)
		assert.Equal(t, models.StatusActive, updated.Status)
	})
}
