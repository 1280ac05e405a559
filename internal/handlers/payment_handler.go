// abonent-crm/internal/handlers/payment_handler.go
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/divan/num2words"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"abonent-crm/models"
)

// PaymentInput - структура для приема платежа от клиента.
// Используем string для PaymentDate, чтобы избежать ошибки автоматического парсинга.
type PaymentInput struct {
	Amount      float64 `json:"amount"`
	PaymentDate string  `json:"paymentDate"`
}

// PaymentReceipt - ответ на проведенный платеж: обновленная запись и
// данные для квитанции.
type PaymentReceipt struct {
	ReceiptNumber string                    `json:"receiptNumber"`
	Amount        float64                   `json:"amount"`
	AmountInWords string                    `json:"amountInWords"`
	PaymentDate   time.Time                 `json:"paymentDate"`
	Debt          *models.MonthlyDebtRecord `json:"debt"`
}

// PostPaymentHandler зачисляет платеж на запись задолженности.
// Отрицательная сумма отклоняется; переплата сверх начисленного срезается
// на уровне ядра и кредитом не становится.
func PostPaymentHandler(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var input PaymentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	paymentDate := time.Now()
	if input.PaymentDate != "" {
		d, err := time.Parse("2006-01-02", input.PaymentDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат даты. Ожидается YYYY-MM-DD."})
			return
		}
		paymentDate = d
	}

	rec, err := debtLedger().PostPayment(id, input.Amount, paymentDate)
	switch {
	case errors.Is(err, models.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Сумма платежа не может быть отрицательной"})
		return
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Запись не найдена"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to post payment"})
		return
	}

	slog.Info("Платеж проведен",
		"debt_id", rec.ID, "client_id", rec.ClientID,
		"amount", input.Amount, "status", rec.Status, "actor", currentActor(c))

	c.JSON(http.StatusOK, PaymentReceipt{
		ReceiptNumber: uuid.NewString(),
		Amount:        input.Amount,
		AmountInWords: num2words.Convert(int(input.Amount)),
		PaymentDate:   paymentDate,
		Debt:          rec,
	})
}
