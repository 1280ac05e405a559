// abonent-crm/internal/handlers/tariff_handler.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"abonent-crm/config"
	"abonent-crm/internal/ledger"
	"abonent-crm/models"
)

// ListTariffsHandler возвращает все тарифы.
func ListTariffsHandler(c *gin.Context) {
	var tariffs []models.Tariff
	if err := config.DB.Order("monthly_cost").Find(&tariffs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tariffs"})
		return
	}
	c.JSON(http.StatusOK, tariffs)
}

// CreateTariffHandler создает тариф. Формула, если задана, проверяется
// сразу, а не в момент генерации начислений.
func CreateTariffHandler(c *gin.Context) {
	var tariff models.Tariff
	if err := c.ShouldBindJSON(&tariff); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if tariff.Name == "" || tariff.MonthlyCost < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Не заполнено название или отрицательная стоимость"})
		return
	}
	if _, err := ledger.MonthlyAmount(&tariff); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := config.DB.Create(&tariff).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create tariff"})
		return
	}
	c.JSON(http.StatusCreated, tariff)
}

// UpdateTariffHandler обновляет тариф.
func UpdateTariffHandler(c *gin.Context) {
	id := c.Param("id")
	var tariff models.Tariff
	if err := config.DB.First(&tariff, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Тариф не найден"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		}
		return
	}

	var input models.Tariff
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := ledger.MonthlyAmount(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tariff.Name = input.Name
	tariff.SpeedMbps = input.SpeedMbps
	tariff.MonthlyCost = input.MonthlyCost
	tariff.CollectionDay = input.CollectionDay
	tariff.Formula = input.Formula

	if err := config.DB.Save(&tariff).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update tariff"})
		return
	}
	c.JSON(http.StatusOK, tariff)
}

// DeleteTariffHandler удаляет тариф (мягкое удаление).
func DeleteTariffHandler(c *gin.Context) {
	id := c.Param("id")
	if err := config.DB.Delete(&models.Tariff{}, id).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete tariff"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Тариф удален"})
}
