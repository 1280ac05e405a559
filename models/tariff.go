package models

import "gorm.io/gorm"

// Tariff represents a service plan and its monthly cost.
type Tariff struct {
	gorm.Model
	Name        string  `json:"name" gorm:"unique;not null"`
	SpeedMbps   int     `json:"speedMbps"`
	MonthlyCost float64 `json:"monthlyCost" gorm:"type:numeric(12,2);not null"`

	// CollectionDay - день месяца, на который назначается срок оплаты
	// сгенерированных периодов (1-28).
	CollectionDay int `json:"collectionDay" gorm:"default:10"`

	// Formula - необязательное выражение для расчета фактической месячной
	// суммы, например "base * 0.9" для скидки. Переменная base - MonthlyCost.
	Formula string `json:"formula"`
}
