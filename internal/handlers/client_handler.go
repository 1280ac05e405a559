// abonent-crm/internal/handlers/client_handler.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"abonent-crm/config"
	"abonent-crm/internal/ledger"
	"abonent-crm/internal/status"
	"abonent-crm/internal/store"
	"abonent-crm/models"
)

// Хранилища и ядро собираются на каждый запрос поверх общего соединения.
// Сами компоненты ядра глобального состояния не держат.
func clientStore() store.ClientStore { return store.NewClientStore(config.DB) }
func debtStore() store.DebtStore     { return store.NewDebtStore(config.DB) }
func statusEngine() *status.Engine   { return status.NewEngine(clientStore(), debtStore()) }
func debtLedger() *ledger.Ledger     { return ledger.NewLedger(debtStore()) }

// currentActor возвращает логин сотрудника из контекста запроса.
func currentActor(c *gin.Context) string {
	if login := c.GetString("login"); login != "" {
		return login
	}
	return "unknown"
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректный ID"})
		return 0, false
	}
	return uint(id), true
}

// ClientInput - поля абонента, принимаемые от клиента API.
// Статус принимается только при создании; дальше он меняется исключительно
// через /clients/:id/transition.
type ClientInput struct {
	AccountNumber  string `json:"accountNumber"`
	LastName       string `json:"lastName"`
	FirstName      string `json:"firstName"`
	MiddleName     string `json:"middleName"`
	Phone          string `json:"phone"`
	Email          string `json:"email"`
	Address        string `json:"address"`
	District       string `json:"district"`
	TariffID       *uint  `json:"tariffId"`
	ConnectionDate string `json:"connectionDate"`
	Comments       string `json:"comments"`
	Status         string `json:"status"`
}

// ListClientsHandler возвращает список абонентов с фильтрами и пагинацией.
func ListClientsHandler(c *gin.Context) {
	page, pageSize := pageParams(c)
	filter := store.ClientFilter{
		Search: c.Query("search"),
		Offset: (page - 1) * pageSize,
		Limit:  pageSize,
	}

	if raw := c.Query("status"); raw != "" {
		st, err := models.ParseClientStatus(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неизвестный статус: " + raw})
			return
		}
		filter.Status = st
	}
	if raw := c.Query("archived"); raw != "" {
		archived := raw == "true"
		filter.Archived = &archived
	}

	clients, totalRows, err := clientStore().List(filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch clients"})
		return
	}
	c.JSON(http.StatusOK, CreatePaginatedResponse(c, clients, totalRows))
}

// GetClientHandler возвращает абонента вместе со сводкой по задолженностям.
func GetClientHandler(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	client, err := clientStore().Get(id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Абонент не найден"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		}
		return
	}

	records, err := debtStore().ListByClient(client.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"client":  client,
		"summary": ledger.Summarize(records, time.Now()),
	})
}

// CreateClientHandler создает абонента. Начальный статус валидируется,
// в историю сразу пишется первая запись.
func CreateClientHandler(c *gin.Context) {
	var input ClientInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.AccountNumber == "" || input.LastName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Не заполнены лицевой счет или фамилия"})
		return
	}

	st := models.StatusActive
	if input.Status != "" {
		parsed, err := models.ParseClientStatus(input.Status)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неизвестный статус: " + input.Status})
			return
		}
		st = parsed
	}

	client := models.Client{
		AccountNumber: input.AccountNumber,
		LastName:      input.LastName,
		FirstName:     input.FirstName,
		MiddleName:    input.MiddleName,
		Phone:         input.Phone,
		Email:         input.Email,
		Address:       input.Address,
		District:      input.District,
		TariffID:      input.TariffID,
		Comments:      input.Comments,
		Status:        st,
	}
	if input.ConnectionDate != "" {
		d, err := time.Parse("2006-01-02", input.ConnectionDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат даты. Ожидается YYYY-MM-DD."})
			return
		}
		client.ConnectionDate = &d
	}
	client.SeedHistory(currentActor(c), "создан вручную", time.Now())

	if err := clientStore().Create(&client); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create client"})
		return
	}
	c.JSON(http.StatusCreated, client)
}

// UpdateClientHandler обновляет контактные поля абонента.
// Поле status в этом обработчике игнорируется.
func UpdateClientHandler(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	client, err := clientStore().Get(id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Абонент не найден"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		}
		return
	}

	var input ClientInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	client.LastName = input.LastName
	client.FirstName = input.FirstName
	client.MiddleName = input.MiddleName
	client.Phone = input.Phone
	client.Email = input.Email
	client.Address = input.Address
	client.District = input.District
	client.Comments = input.Comments
	if input.TariffID != nil {
		client.TariffID = input.TariffID
	}
	if input.ConnectionDate != "" {
		d, err := time.Parse("2006-01-02", input.ConnectionDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат даты. Ожидается YYYY-MM-DD."})
			return
		}
		client.ConnectionDate = &d
	}

	if err := clientStore().Update(client); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update client"})
		return
	}
	c.JSON(http.StatusOK, client)
}

// DeleteClientHandler удаляет абонента. Абонент с сохраненными при
// расторжении задолженностями не удаляется - это аудиторский след.
func DeleteClientHandler(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	client, err := clientStore().Get(id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Абонент не найден"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		}
		return
	}
	if len(client.PreservedDebts) > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Абонент с сохраненными задолженностями не может быть удален"})
		return
	}

	if err := clientStore().Delete(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete client"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Абонент удален"})
}

// TransitionInput - запрос на смену статуса абонента.
type TransitionInput struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

// TransitionClientHandler переводит абонента в новый статус через машину
// состояний. Повторный перевод в текущий статус разрешен и фиксируется
// в истории.
func TransitionClientHandler(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var input TransitionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	client, err := clientStore().Get(id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Абонент не найден"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		}
		return
	}

	err = statusEngine().Transition(client, models.ClientStatus(input.Status), input.Reason, currentActor(c), time.Now())
	switch {
	case errors.Is(err, models.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неизвестный статус: " + input.Status})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to change status"})
	default:
		c.JSON(http.StatusOK, client)
	}
}

// GetClientHistoryHandler возвращает историю смен статусов абонента.
func GetClientHistoryHandler(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	client, err := clientStore().Get(id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Абонент не найден"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		}
		return
	}
	c.JSON(http.StatusOK, client.StatusHistory)
}

// SweepHandler вручную запускает проверку просроченных пауз.
func SweepHandler(c *gin.Context) {
	thresholdDays, _ := strconv.Atoi(c.Query("thresholdDays"))

	count, err := statusEngine().SweepAutomaticTerminations(thresholdDays, time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Sweep failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"terminated": count})
}
