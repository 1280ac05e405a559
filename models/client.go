// abonent-crm/models/client.go

package models

import (
	"time"

	"gorm.io/gorm"
)

// ClientStatus - закрытый перечислимый тип статуса абонента.
// Строковые значения хранятся в БД и не подлежат изменению.
type ClientStatus string

const (
	StatusActive     ClientStatus = "active"
	StatusDebt       ClientStatus = "debt"
	StatusPaused     ClientStatus = "paused"
	StatusSuspended  ClientStatus = "suspended"
	StatusTerminated ClientStatus = "terminated"
)

// IsValid reports whether s is one of the five recognized client statuses.
func (s ClientStatus) IsValid() bool {
	switch s {
	case StatusActive, StatusDebt, StatusPaused, StatusSuspended, StatusTerminated:
		return true
	}
	return false
}

// ParseClientStatus validates a raw string coming from an external input
// (API payload, import row) before it enters the core.
func ParseClientStatus(raw string) (ClientStatus, error) {
	s := ClientStatus(raw)
	if !s.IsValid() {
		return "", ErrInvalidStatus
	}
	return s, nil
}

// StatusHistoryEntry - одна запись в истории смены статусов.
// История только дополняется, записи никогда не изменяются и не переупорядочиваются.
type StatusHistoryEntry struct {
	FromStatus ClientStatus `json:"fromStatus"`
	ToStatus   ClientStatus `json:"toStatus"`
	Timestamp  time.Time    `json:"timestamp"`
	Reason     string       `json:"reason"`
	Actor      string       `json:"actor"`
}

// PreservedDebt - снимок задолженности, сохраняемый при расторжении договора.
// Копия записи MonthlyDebtRecord на момент перехода в terminated, для аудита.
type PreservedDebt struct {
	DebtID     uint       `json:"debtId"`
	Period     string     `json:"period"`
	AmountDue  float64    `json:"amountDue"`
	AmountPaid float64    `json:"amountPaid"`
	DueDate    time.Time  `json:"dueDate"`
	Status     DebtStatus `json:"status"`
}

// Client represents a subscriber account in the database.
type Client struct {
	gorm.Model
	AccountNumber string `json:"accountNumber" gorm:"unique;not null"`

	// --- BASIC INFO ---
	LastName       string     `json:"lastName" gorm:"not null"`
	FirstName      string     `json:"firstName" gorm:"not null"`
	MiddleName     string     `json:"middleName"`
	Phone          string     `json:"phone"`
	Email          string     `json:"email"`
	Address        string     `json:"address"`
	District       string     `json:"district"`
	TariffID       *uint      `json:"tariffId"`
	ConnectionDate *time.Time `json:"connectionDate"`
	Comments       string     `json:"comments"`

	// --- LIFECYCLE ---
	// Status меняется только через status.Engine.Transition, напрямую поле не трогаем.
	Status         ClientStatus         `json:"status" gorm:"not null;default:active"`
	StatusHistory  []StatusHistoryEntry `json:"statusHistory" gorm:"serializer:json;type:jsonb"`
	PauseStartDate *time.Time           `json:"pauseStartDate"`
	PauseReason    string               `json:"pauseReason"`
	IsArchived     bool                 `json:"isArchived" gorm:"default:false"`
	ArchivedDate   *time.Time           `json:"archivedDate"`
	PreservedDebts []PreservedDebt      `json:"preservedDebts" gorm:"serializer:json;type:jsonb"`

	// --- GORM RELATIONSHIPS ---
	Tariff *Tariff       `gorm:"foreignKey:TariffID" json:"tariff,omitempty"`
	Detail *ClientDetail `gorm:"foreignKey:ClientID" json:"detail,omitempty"`
}

// FullName возвращает ФИО абонента одной строкой.
func (c *Client) FullName() string {
	name := c.LastName + " " + c.FirstName
	if c.MiddleName != "" {
		name += " " + c.MiddleName
	}
	return name
}

// SeedHistory дописывает начальную запись истории для только что созданного
// абонента (fromStatus == toStatus), чтобы последняя запись истории всегда
// совпадала с текущим статусом.
func (c *Client) SeedHistory(actor, reason string, now time.Time) {
	c.StatusHistory = append(c.StatusHistory, StatusHistoryEntry{
		FromStatus: c.Status,
		ToStatus:   c.Status,
		Timestamp:  now,
		Reason:     reason,
		Actor:      actor,
	})
}

// ClientDetail holds the extended (contract/passport) part of a client record,
// filled by hand or from the extended columns of an import sheet.
type ClientDetail struct {
	gorm.Model
	ClientID uint `json:"clientId" gorm:"unique;not null"`

	ContractNumber      string     `json:"contractNumber"`
	ContractDate        *time.Time `json:"contractDate"`
	PassportNumber      string     `json:"passportNumber"`
	PassportIssueInfo   string     `json:"passportIssueInfo"`
	RegistrationAddress string     `json:"registrationAddress"`
	EquipmentModel      string     `json:"equipmentModel"`
	EquipmentSerial     string     `json:"equipmentSerial"`
	Notes               string     `json:"notes"`
}
