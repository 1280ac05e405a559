// abonent-crm/internal/handlers/import_handler.go
package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"abonent-crm/internal/importer"
)

// ImportClientsHandler принимает Excel-файл с абонентами и их
// задолженностями. Битые строки не валят импорт - они возвращаются
// в отчете rowErrors.
func ImportClientsHandler(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Файл не передан"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось открыть файл"})
		return
	}
	defer file.Close()

	result, err := importer.ParseWorkbook(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	collectionDay, _ := strconv.Atoi(c.Query("collectionDay"))

	im := importer.NewImporter(clientStore(), debtStore())
	stats, err := im.Apply(result, collectionDay, currentActor(c), time.Now())
	if err != nil {
		slog.Error("Импорт прерван ошибкой хранилища", "batch_id", result.BatchID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Импорт прерван: " + err.Error(),
			"batchId": result.BatchID,
			"stats":   stats,
		})
		return
	}

	slog.Info("Импорт завершен",
		"batch_id", result.BatchID,
		"clients_created", stats.ClientsCreated,
		"clients_updated", stats.ClientsUpdated,
		"debts_created", stats.DebtsCreated,
		"rows_failed", stats.RowsFailed)

	c.JSON(http.StatusOK, gin.H{
		"batchId":   result.BatchID,
		"stats":     stats,
		"rowErrors": result.RowErrors,
	})
}
