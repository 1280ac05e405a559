// abonent-crm/internal/store/store.go

// Package store определяет интерфейсы хранилищ абонентов и задолженностей
// и их реализацию поверх GORM. Ядро (status, ledger) получает хранилища
// через конструкторы - никаких обращений к глобальному соединению из ядра.
package store

import (
	"abonent-crm/models"
)

// ClientFilter - условия выборки абонентов.
type ClientFilter struct {
	Status   models.ClientStatus // пустое значение - без фильтра по статусу
	Search   string              // поиск по ФИО, лицевому счету, адресу, телефону
	Archived *bool
	Offset   int
	Limit    int // 0 - без ограничения
}

// ClientStore is the repository surface the status engine and handlers
// operate through. Implemented by the GORM store and by in-memory fakes
// in tests.
type ClientStore interface {
	Get(id uint) (*models.Client, error)
	// FindByAccount ищет абонента по лицевому счету (импорт сверяет строки
	// листа с существующими записями именно по нему).
	FindByAccount(accountNumber string) (*models.Client, error)
	List(f ClientFilter) ([]models.Client, int64, error)
	Create(c *models.Client) error
	Update(c *models.Client) error
	Delete(id uint) error
}

// DebtStore is the repository surface for monthly debt records.
type DebtStore interface {
	Get(id uint) (*models.MonthlyDebtRecord, error)
	ListByClient(clientID uint) ([]models.MonthlyDebtRecord, error)
	ListByYear(year int) ([]models.MonthlyDebtRecord, error)
	Create(r *models.MonthlyDebtRecord) error
	Update(r *models.MonthlyDebtRecord) error
	Delete(id uint) error
	// DeleteByClient - административная массовая очистка задолженностей абонента.
	DeleteByClient(clientID uint) error
	BulkCreate(rs []models.MonthlyDebtRecord) error
}
