package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"abonent-crm/internal/ledger"
	"abonent-crm/internal/store"
	"abonent-crm/models"
)

// fakeClientStore - хранилище абонентов в памяти для тестов.
type fakeClientStore struct {
	clients      map[uint]models.Client
	nextID       uint
	failOnUpdate bool
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
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
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
	if f.failOnUpdate {
		return assert.AnError
	}
	if _, ok := f.clients[c.ID]; !ok {
		return models.ErrNotFound
	}
	f.clients[c.ID] = *c
	return nil
}

func (f *fakeClientStore) Delete(id uint) error {
	if _, ok := f.clients[id]; !ok {
		return models.ErrNotFound
	}
	delete(f.clients, id)
	return nil
}

// fakeDebtStore - хранилище задолженностей в памяти для тестов.
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

func (f *fakeDebtStore) Update(r *models.MonthlyDebtRecord) error {
	for i := range f.records {
		if f.records[i].ID == r.ID {
			f.records[i] = *r
			return nil
		}
	}
	return models.ErrNotFound
}

func (f *fakeDebtStore) Delete(id uint) error                           { return nil }
func (f *fakeDebtStore) DeleteByClient(clientID uint) error             { return nil }
func (f *fakeDebtStore) BulkCreate(rs []models.MonthlyDebtRecord) error { return nil }

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func seedClient(t *testing.T, clients *fakeClientStore, st models.ClientStatus) *models.Client {
	t.Helper()
	c := &models.Client{
		AccountNumber: "A-001",
		LastName:      "Иванов",
		FirstName:     "Петр",
		Status:        st,
	}
	c.SeedHistory("test", "создан", date(2024, 1, 1))
	require.NoError(t, clients.Create(c))
	return c
}

func TestTransitionInvalidStatus(t *testing.T) {
	clients := newFakeClientStore()
	engine := NewEngine(clients, &fakeDebtStore{})
	c := seedClient(t, clients, models.StatusActive)

	err := engine.Transition(c, models.ClientStatus("frozen"), "", "admin-1", date(2024, 2, 1))
	assert.ErrorIs(t, err, models.ErrInvalidStatus)

	// Ничего не изменилось и не сохранилось.
	assert.Equal(t, models.StatusActive, c.Status)
	assert.Len(t, c.StatusHistory, 1)
	stored, _ := clients.Get(c.ID)
	assert.Len(t, stored.StatusHistory, 1)
}

func TestTransitionAppendsHistory(t *testing.T) {
	clients := newFakeClientStore()
	engine := NewEngine(clients, &fakeDebtStore{})
	c := seedClient(t, clients, models.StatusActive)

	require.NoError(t, engine.Transition(c, models.StatusDebt, "ручная отметка", "admin-1", date(2024, 1, 20)))
	require.NoError(t, engine.Transition(c, models.StatusSuspended, "не платит", "admin-1", date(2024, 2, 1)))

	// История строго растет, последняя запись совпадает с текущим статусом.
	require.Len(t, c.StatusHistory, 3)
	last := c.StatusHistory[len(c.StatusHistory)-1]
	assert.Equal(t, c.Status, last.ToStatus)
	assert.Equal(t, models.StatusDebt, last.FromStatus)
	assert.Equal(t, "admin-1", last.Actor)

	stored, _ := clients.Get(c.ID)
	assert.Equal(t, models.StatusSuspended, stored.Status)
	assert.Len(t, stored.StatusHistory, 3)
}

// Повторный перевод в текущий статус разрешен: так фиксируется
// обновление причины.
func TestTransitionIdempotentReapply(t *testing.T) {
	clients := newFakeClientStore()
	engine := NewEngine(clients, &fakeDebtStore{})
	c := seedClient(t, clients, models.StatusDebt)

	require.NoError(t, engine.Transition(c, models.StatusDebt, "уточнение причины", "admin-1", date(2024, 2, 1)))

	require.Len(t, c.StatusHistory, 2)
	last := c.StatusHistory[1]
	assert.Equal(t, models.StatusDebt, last.FromStatus)
	assert.Equal(t, models.StatusDebt, last.ToStatus)
	assert.Equal(t, "уточнение причины", last.Reason)
	assert.Equal(t, models.StatusDebt, c.Status)
}

func TestTransitionPauseLifecycle(t *testing.T) {
	clients := newFakeClientStore()
	engine := NewEngine(clients, &fakeDebtStore{})
	c := seedClient(t, clients, models.StatusActive)

	pausedAt := date(2024, 3, 1)
	require.NoError(t, engine.Transition(c, models.StatusPaused, "отпуск", "admin-1", pausedAt))
	require.NotNil(t, c.PauseStartDate)
	assert.Equal(t, pausedAt, *c.PauseStartDate)
	assert.Equal(t, "отпуск", c.PauseReason)

	// Любой уход из паузы снимает дату начала.
	require.NoError(t, engine.Transition(c, models.StatusActive, "вернулся", "admin-1", date(2024, 3, 15)))
	assert.Nil(t, c.PauseStartDate)
	assert.Empty(t, c.PauseReason)
}

func TestTransitionTerminateArchivesAndPreservesDebts(t *testing.T) {
	clients := newFakeClientStore()
	paidDate := date(2024, 1, 15)
	debts := &fakeDebtStore{records: []models.MonthlyDebtRecord{
		{Model: gorm.Model{ID: 10}, ClientID: 1, Year: 2024, Month: 1, Period: "2024-01",
			AmountDue: 1500, AmountPaid: 1500, DueDate: date(2024, 1, 10), PaymentDate: &paidDate},
		{Model: gorm.Model{ID: 11}, ClientID: 1, Year: 2024, Month: 2, Period: "2024-02",
			AmountDue: 1500, AmountPaid: 500, DueDate: date(2024, 2, 10)},
		{Model: gorm.Model{ID: 12}, ClientID: 1, Year: 2024, Month: 3, Period: "2024-03",
			AmountDue: 1500, AmountPaid: 0, DueDate: date(2024, 3, 10)},
	}}
	engine := NewEngine(clients, debts)
	c := seedClient(t, clients, models.StatusActive)

	now := date(2024, 4, 1)
	require.NoError(t, engine.Transition(c, models.StatusTerminated, "переезд", "admin-1", now))

	assert.True(t, c.IsArchived)
	require.NotNil(t, c.ArchivedDate)
	assert.Equal(t, now, *c.ArchivedDate)

	// Сохраняются только непогашенные периоды; сами записи из хранилища
	// не удаляются.
	require.Len(t, c.PreservedDebts, 2)
	periods := []string{c.PreservedDebts[0].Period, c.PreservedDebts[1].Period}
	assert.ElementsMatch(t, []string{"2024-02", "2024-03"}, periods)
	remaining, _ := debts.ListByClient(1)
	assert.Len(t, remaining, 3)
}

func TestTransitionTerminateFromPausedArchives(t *testing.T) {
	clients := newFakeClientStore()
	engine := NewEngine(clients, &fakeDebtStore{})
	c := seedClient(t, clients, models.StatusPaused)
	start := date(2024, 2, 1)
	c.PauseStartDate = &start
	require.NoError(t, clients.Update(c))

	require.NoError(t, engine.Transition(c, models.StatusTerminated, "долгая пауза", "admin-1", date(2024, 4, 1)))
	assert.True(t, c.IsArchived)
	assert.Nil(t, c.PauseStartDate, "расторжение - тоже уход из паузы")
}

func TestTransitionStoreFailureLeavesClientUntouched(t *testing.T) {
	clients := newFakeClientStore()
	engine := NewEngine(clients, &fakeDebtStore{})
	c := seedClient(t, clients, models.StatusActive)
	clients.failOnUpdate = true

	err := engine.Transition(c, models.StatusPaused, "отпуск", "admin-1", date(2024, 3, 1))
	require.Error(t, err)

	// Ошибка записи не оставляет частичных изменений в памяти.
	assert.Equal(t, models.StatusActive, c.Status)
	assert.Len(t, c.StatusHistory, 1)
	assert.Nil(t, c.PauseStartDate)
}

func TestSweepAutomaticTerminations(t *testing.T) {
	now := date(2024, 4, 1)

	mkPaused := func(clients *fakeClientStore, account string, pausedDaysAgo int) uint {
		c := &models.Client{AccountNumber: account, LastName: "Тест", Status: models.StatusPaused}
		c.SeedHistory("test", "создан", date(2024, 1, 1))
		start := now.AddDate(0, 0, -pausedDaysAgo)
		c.PauseStartDate = &start
		_ = clients.Create(c)
		return c.ID
	}

	t.Run("просроченная пауза расторгается, свежая нет", func(t *testing.T) {
		clients := newFakeClientStore()
		engine := NewEngine(clients, &fakeDebtStore{})
		oldID := mkPaused(clients, "A-001", 31)
		freshID := mkPaused(clients, "A-002", 10)

		count, err := engine.SweepAutomaticTerminations(30, now)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		old, _ := clients.Get(oldID)
		assert.Equal(t, models.StatusTerminated, old.Status)
		assert.True(t, old.IsArchived)
		last := old.StatusHistory[len(old.StatusHistory)-1]
		assert.Equal(t, AutoTerminateReason, last.Reason)
		assert.Equal(t, SystemActor, last.Actor)

		fresh, _ := clients.Get(freshID)
		assert.Equal(t, models.StatusPaused, fresh.Status)
	})

	t.Run("ровно на пороге - расторгается", func(t *testing.T) {
		clients := newFakeClientStore()
		engine := NewEngine(clients, &fakeDebtStore{})
		id := mkPaused(clients, "A-003", 30)

		count, err := engine.SweepAutomaticTerminations(30, now)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
		c, _ := clients.Get(id)
		assert.Equal(t, models.StatusTerminated, c.Status)
	})

	t.Run("повторный запуск ничего не задваивает", func(t *testing.T) {
		clients := newFakeClientStore()
		engine := NewEngine(clients, &fakeDebtStore{})
		id := mkPaused(clients, "A-004", 40)

		count, err := engine.SweepAutomaticTerminations(30, now)
		require.NoError(t, err)
		require.Equal(t, 1, count)

		count, err = engine.SweepAutomaticTerminations(30, now)
		require.NoError(t, err)
		assert.Zero(t, count)

		c, _ := clients.Get(id)
		historyLen := len(c.StatusHistory)
		assert.Equal(t, 2, historyLen, "одна запись о создании и одна о расторжении")
	})

	t.Run("нулевой порог заменяется порогом по умолчанию", func(t *testing.T) {
		clients := newFakeClientStore()
		engine := NewEngine(clients, &fakeDebtStore{})
		mkPaused(clients, "A-005", DefaultPauseThresholdDays+1)
		mkPaused(clients, "A-006", DefaultPauseThresholdDays-5)

		count, err := engine.SweepAutomaticTerminations(0, now)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}

// Сквозной сценарий работы коллектора: начисление, просрочка, оплата,
// ручная смена статуса, сводка.
func TestCollectionsScenario(t *testing.T) {
	clients := newFakeClientStore()
	debts := &fakeDebtStore{}
	engine := NewEngine(clients, debts)
	l := ledger.NewLedger(debts)

	c := seedClient(t, clients, models.StatusActive)

	rec := ledger.NewRecord(c.ID, 2024, 1, 80, 0, date(2024, 1, 10), date(2024, 1, 1))
	require.NoError(t, debts.Create(&rec))

	// Срок прошел, оплаты нет - просрочка.
	assert.Equal(t, models.DebtOverdue,
		ledger.DeriveStatus(rec.AmountDue, rec.AmountPaid, rec.DueDate, date(2024, 1, 15)))

	paid, err := l.PostPayment(rec.ID, 80, date(2024, 1, 16))
	require.NoError(t, err)
	assert.Equal(t, models.DebtPaid, paid.Status)
	require.NotNil(t, paid.PaymentDate)
	assert.Equal(t, date(2024, 1, 16), *paid.PaymentDate)

	require.NoError(t, engine.Transition(c, models.StatusDebt, "ручная отметка", "admin-1", date(2024, 1, 20)))
	assert.Equal(t, models.StatusDebt, c.Status)
	assert.Equal(t, models.StatusDebt, c.StatusHistory[len(c.StatusHistory)-1].ToStatus)

	records, err := debts.ListByClient(c.ID)
	require.NoError(t, err)
	s := ledger.Summarize(records, date(2024, 2, 1))
	assert.Zero(t, s.MonthsOwed)
	assert.Equal(t, 1, s.MonthsPaid)
	assert.Zero(t, s.Balance)
}
