// abonent-crm/internal/handlers/report_handler.go
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"abonent-crm/config"
	"abonent-crm/internal/ledger"
	"abonent-crm/internal/store"
	"abonent-crm/models"
)

// ClientSummaryHandler возвращает сводку по задолженностям абонента.
// Сводка считается на лету и не кэшируется.
func ClientSummaryHandler(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if _, err := clientStore().Get(id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Абонент не найден"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		}
		return
	}

	records, err := debtStore().ListByClient(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	c.JSON(http.StatusOK, ledger.Summarize(records, time.Now()))
}

// MatrixHandler строит матрицу "абонент × месяц" за год. Месяцы без записи
// возвращаются как отдельное состояние "нет записи", а не как pending.
func MatrixHandler(c *gin.Context) {
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil || year < 2000 || year > 2100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Не указан корректный год"})
		return
	}

	filter := store.ClientFilter{Search: c.Query("search")}
	if raw := c.Query("status"); raw != "" {
		st, err := models.ParseClientStatus(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неизвестный статус: " + raw})
			return
		}
		filter.Status = st
	}

	clients, _, err := clientStore().List(filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	records, err := debtStore().ListByYear(year)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"year": year,
		"rows": ledger.BuildMatrix(clients, year, records, time.Now()),
	})
}

// DashboardHandler возвращает агрегаты для главной панели:
// количество абонентов по статусам, число должников и общий баланс.
func DashboardHandler(c *gin.Context) {
	var statusCounts []struct {
		Status string `json:"status"`
		Count  int64  `json:"count"`
	}
	if err := config.DB.Model(&models.Client{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&statusCounts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	var totals struct {
		TotalDue  float64
		TotalPaid float64
	}
	if err := config.DB.Model(&models.MonthlyDebtRecord{}).
		Select("COALESCE(SUM(amount_due),0) as total_due, COALESCE(SUM(amount_paid),0) as total_paid").
		Scan(&totals).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	var debtorCount int64
	if err := config.DB.Model(&models.MonthlyDebtRecord{}).
		Where("amount_paid < amount_due").
		Distinct("client_id").
		Count(&debtorCount).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"clientsByStatus": statusCounts,
		"totalDue":        totals.TotalDue,
		"totalPaid":       totals.TotalPaid,
		"balance":         totals.TotalDue - totals.TotalPaid,
		"debtors":         debtorCount,
	})
}

// DebtorListItem - строка экспортного списка должников.
type DebtorListItem struct {
	AccountNumber string  `json:"accountNumber"`
	FullName      string  `json:"fullName"`
	Address       string  `json:"address"`
	Phone         string  `json:"phone"`
	Status        string  `json:"status"`
	Balance       float64 `json:"balance"`
	OldestPeriod  string  `json:"oldestPeriod"`
}

// ExportDebtorsHandler - обработчик для экспорта списка должников в Excel.
func ExportDebtorsHandler(c *gin.Context) {
	var items []DebtorListItem

	query := config.DB.Table("clients cl").
		Select(`
			cl.account_number,
			(cl.last_name || ' ' || cl.first_name || ' ' || COALESCE(cl.middle_name, '')) as full_name,
			cl.address,
			cl.phone,
			cl.status,
			SUM(d.amount_due - d.amount_paid) as balance,
			MIN(d.period) as oldest_period
		`).
		Joins("JOIN monthly_debt_records d ON d.client_id = cl.id AND d.deleted_at IS NULL").
		Where("cl.deleted_at IS NULL").
		Where("d.amount_paid < d.amount_due").
		Group("cl.id, cl.account_number, cl.last_name, cl.first_name, cl.middle_name, cl.address, cl.phone, cl.status").
		Order("balance DESC")

	if err := query.Scan(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch data for export"})
		return
	}

	f := excelize.NewFile()
	sheetName := "Должники"
	index, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{"Лицевой счет", "ФИО", "Адрес", "Телефон", "Статус", "Долг", "Самый старый период"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
	}

	for i, item := range items {
		row := i + 2
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), item.AccountNumber)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), item.FullName)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), item.Address)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), item.Phone)
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), item.Status)
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), item.Balance)
		f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), item.OldestPeriod)
	}

	fileName := fmt.Sprintf("debtors_%s.xlsx", time.Now().Format("20060102_150405"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename="+fileName)
	if err := f.Write(c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write Excel file"})
	}
}
