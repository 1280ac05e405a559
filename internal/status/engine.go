// abonent-crm/internal/status/engine.go

// Package status - машина состояний жизненного цикла абонента.
// Все смены статуса проходят через Engine.Transition: проверка целевого
// статуса, запись в историю, побочные эффекты (пауза, расторжение) и
// сохранение через внедренное хранилище.
package status

import (
	"log/slog"
	"time"

	"abonent-crm/internal/ledger"
	"abonent-crm/internal/store"
	"abonent-crm/models"
)

// SystemActor - идентификатор действий, выполненных системой
// (автоматическое расторжение), а не сотрудником.
const SystemActor = "system"

// DefaultPauseThresholdDays - срок паузы, после которого договор
// расторгается автоматически.
const DefaultPauseThresholdDays = 30

// AutoTerminateReason записывается в историю при автоматическом расторжении.
const AutoTerminateReason = "automatic: pause exceeded threshold"

// Engine применяет переходы статусов и ведет историю.
type Engine struct {
	clients store.ClientStore
	debts   store.DebtStore
}

func NewEngine(clients store.ClientStore, debts store.DebtStore) *Engine {
	return &Engine{clients: clients, debts: debts}
}

// Transition переводит абонента в статус to, дописывает запись в историю и
// применяет побочные эффекты целевого статуса. Переход в текущий статус
// разрешен и тоже попадает в историю - так сохраняется след обновления
// причины. При любой ошибке абонент остается в исходном состоянии:
// изменения готовятся на копии и применяются только после успешной записи
// в хранилище.
func (e *Engine) Transition(client *models.Client, to models.ClientStatus, reason, actor string, now time.Time) error {
	if !to.IsValid() {
		return models.ErrInvalidStatus
	}

	from := client.Status

	// Снимок непогашенных задолженностей собираем до каких-либо изменений:
	// чтение из хранилища может не удаться.
	var preserved []models.PreservedDebt
	terminating := to == models.StatusTerminated &&
		(from == models.StatusActive || from == models.StatusPaused)
	if terminating {
		records, err := e.debts.ListByClient(client.ID)
		if err != nil {
			return err
		}
		for _, r := range records {
			st := ledger.DeriveStatus(r.AmountDue, r.AmountPaid, r.DueDate, now)
			if st == models.DebtPaid {
				continue
			}
			preserved = append(preserved, models.PreservedDebt{
				DebtID:     r.ID,
				Period:     r.Period,
				AmountDue:  r.AmountDue,
				AmountPaid: r.AmountPaid,
				DueDate:    r.DueDate,
				Status:     st,
			})
		}
	}

	updated := *client
	updated.StatusHistory = append(append([]models.StatusHistoryEntry{}, client.StatusHistory...),
		models.StatusHistoryEntry{
			FromStatus: from,
			ToStatus:   to,
			Timestamp:  now,
			Reason:     reason,
			Actor:      actor,
		})
	updated.Status = to

	switch to {
	case models.StatusPaused:
		start := now
		updated.PauseStartDate = &start
		updated.PauseReason = reason
	case models.StatusTerminated:
		if terminating {
			archived := now
			updated.IsArchived = true
			updated.ArchivedDate = &archived
			// Копируем, не удаляем: записи остаются в хранилище задолженностей.
			updated.PreservedDebts = append(append([]models.PreservedDebt{}, client.PreservedDebts...), preserved...)
		}
	}

	// Любой уход из паузы снимает дату начала паузы.
	if from == models.StatusPaused && to != models.StatusPaused {
		updated.PauseStartDate = nil
		updated.PauseReason = ""
	}

	if err := e.clients.Update(&updated); err != nil {
		return err
	}

	*client = updated
	return nil
}

// SweepAutomaticTerminations расторгает договоры абонентов, стоящих на паузе
// дольше thresholdDays (0 - порог по умолчанию). Возвращает количество
// переведенных в terminated. Запуск безопасно повторять по расписанию:
// выборка фильтрует по status == paused, поэтому уже расторгнутые абоненты
// повторно не обрабатываются и история не задваивается.
func (e *Engine) SweepAutomaticTerminations(thresholdDays int, now time.Time) (int, error) {
	paused, _, err := e.clients.List(store.ClientFilter{Status: models.StatusPaused})
	if err != nil {
		return 0, err
	}
	return e.SweepClients(paused, thresholdDays, now)
}

// SweepClients - то же, но по заранее полученному списку абонентов.
func (e *Engine) SweepClients(clients []models.Client, thresholdDays int, now time.Time) (int, error) {
	if thresholdDays <= 0 {
		thresholdDays = DefaultPauseThresholdDays
	}
	cutoff := now.AddDate(0, 0, -thresholdDays)

	count := 0
	for i := range clients {
		c := &clients[i]
		if c.Status != models.StatusPaused || c.PauseStartDate == nil {
			continue
		}
		if c.PauseStartDate.After(cutoff) {
			continue
		}
		if err := e.Transition(c, models.StatusTerminated, AutoTerminateReason, SystemActor, now); err != nil {
			// Не прерываем обход: остальных абонентов подберет следующий запуск.
			slog.Error("Не удалось автоматически расторгнуть договор",
				"client_id", c.ID, "error", err)
			continue
		}
		count++
	}
	return count, nil
}
