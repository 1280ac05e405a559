// abonent-crm/internal/handlers/debt_handler.go
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"abonent-crm/config"
	"abonent-crm/internal/ledger"
	"abonent-crm/internal/store"
	"abonent-crm/models"
)

// ListClientDebtsHandler возвращает задолженности абонента. Статусы
// пересчитываются на момент запроса: запись pending после срока оплаты
// вернется как overdue без каких-либо записей в БД.
func ListClientDebtsHandler(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	records, err := debtStore().ListByClient(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	now := time.Now()
	for i := range records {
		ledger.Refresh(&records[i], now)
	}
	c.JSON(http.StatusOK, gin.H{
		"debts":   records,
		"summary": ledger.Summarize(records, now),
	})
}

// DebtInput - ручное создание записи задолженности.
type DebtInput struct {
	ClientID   uint    `json:"clientId" binding:"required"`
	Year       int     `json:"year" binding:"required"`
	Month      int     `json:"month" binding:"required"`
	AmountDue  float64 `json:"amountDue"`
	AmountPaid float64 `json:"amountPaid"`
	DueDate    string  `json:"dueDate"`
}

// CreateDebtHandler создает запись задолженности за один период.
// Суммы нормализуются, статус выводится - задать его извне нельзя.
func CreateDebtHandler(c *gin.Context) {
	var input DebtInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.Month < 1 || input.Month > 12 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Месяц должен быть от 1 до 12"})
		return
	}

	if _, err := clientStore().Get(input.ClientID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Абонент не найден"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		}
		return
	}

	// Один период - одна запись.
	existing, err := debtStore().ListByClient(input.ClientID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	period := models.FormatPeriod(input.Year, input.Month)
	for _, r := range existing {
		if r.Period == period {
			c.JSON(http.StatusConflict, gin.H{"error": "Период " + period + " уже выставлен"})
			return
		}
	}

	now := time.Now()
	dueDate := time.Date(input.Year, time.Month(input.Month), 10, 0, 0, 0, 0, time.UTC)
	if input.DueDate != "" {
		d, err := time.Parse("2006-01-02", input.DueDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат даты. Ожидается YYYY-MM-DD."})
			return
		}
		dueDate = d
	}

	rec := ledger.NewRecord(input.ClientID, input.Year, input.Month, input.AmountDue, input.AmountPaid, dueDate, now)
	if err := debtStore().Create(&rec); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create debt record"})
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// DebtUpdateInput - изменяемые поля существующей записи.
type DebtUpdateInput struct {
	AmountDue *float64 `json:"amountDue"`
	DueDate   string   `json:"dueDate"`
}

// UpdateDebtHandler меняет начисление или срок оплаты. После любого
// изменения статус пересчитывается заново.
func UpdateDebtHandler(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	rec, err := debtStore().Get(id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Запись не найдена"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		}
		return
	}

	var input DebtUpdateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if input.AmountDue != nil {
		due := *input.AmountDue
		if due < 0 {
			due = 0
		}
		rec.AmountDue = due
		if rec.AmountPaid > rec.AmountDue {
			rec.AmountPaid = rec.AmountDue
		}
	}
	if input.DueDate != "" {
		d, err := time.Parse("2006-01-02", input.DueDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат даты. Ожидается YYYY-MM-DD."})
			return
		}
		rec.DueDate = d
	}

	ledger.Refresh(rec, time.Now())
	if err := debtStore().Update(rec); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update debt record"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// DeleteDebtHandler удаляет одну запись задолженности.
func DeleteDebtHandler(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := debtStore().Delete(id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Запись не найдена"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete debt record"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Запись удалена"})
}

// BulkClearDebtsHandler - административная очистка всех задолженностей
// абонента.
func BulkClearDebtsHandler(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := debtStore().DeleteByClient(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear debt records"})
		return
	}
	slog.Info("Задолженности абонента очищены", "client_id", id, "actor", currentActor(c))
	c.JSON(http.StatusOK, gin.H{"message": "Задолженности очищены"})
}

// GenerateInput - диапазон периодов для генерации начислений.
type GenerateInput struct {
	ClientID  uint `json:"clientId"` // 0 - все активные абоненты
	FromYear  int  `json:"fromYear" binding:"required"`
	FromMonth int  `json:"fromMonth" binding:"required"`
	ToYear    int  `json:"toYear" binding:"required"`
	ToMonth   int  `json:"toMonth" binding:"required"`
}

// GenerateDebtsHandler создает недостающие начисления за диапазон периодов
// по тарифу абонента. Абоненты без тарифа пропускаются.
func GenerateDebtsHandler(c *gin.Context) {
	var input GenerateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.FromMonth < 1 || input.FromMonth > 12 || input.ToMonth < 1 || input.ToMonth > 12 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Месяц должен быть от 1 до 12"})
		return
	}
	if input.FromYear > input.ToYear ||
		(input.FromYear == input.ToYear && input.FromMonth > input.ToMonth) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Начало диапазона позже его конца"})
		return
	}

	var targets []models.Client
	if input.ClientID != 0 {
		client, err := clientStore().Get(input.ClientID)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Абонент не найден"})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			}
			return
		}
		targets = []models.Client{*client}
	} else {
		active, _, err := clientStore().List(store.ClientFilter{Status: models.StatusActive})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}
		targets = active
	}

	// Тарифы берем одним запросом, чтобы не ходить в БД на каждого абонента.
	var tariffs []models.Tariff
	if err := config.DB.Find(&tariffs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	tariffByID := make(map[uint]*models.Tariff, len(tariffs))
	for i := range tariffs {
		tariffByID[tariffs[i].ID] = &tariffs[i]
	}

	l := debtLedger()
	now := time.Now()
	created := 0
	skipped := 0
	for i := range targets {
		client := &targets[i]
		if client.TariffID == nil {
			skipped++
			continue
		}
		tariff, ok := tariffByID[*client.TariffID]
		if !ok {
			skipped++
			continue
		}
		n, err := l.GenerateForClient(client, tariff,
			input.FromYear, input.FromMonth, input.ToYear, input.ToMonth, now)
		if err != nil {
			slog.Error("Не удалось сгенерировать начисления",
				"client_id", client.ID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Generation failed"})
			return
		}
		created += n
	}

	c.JSON(http.StatusOK, gin.H{"created": created, "skippedNoTariff": skipped})
}
