// abonent-crm/main.go
package main

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"abonent-crm/config"
	"abonent-crm/internal/routes"
	"abonent-crm/internal/status"
	"abonent-crm/internal/store"
)

func main() {
	// .env нужен только при локальной разработке, на сервере переменные
	// приходят из окружения.
	if err := godotenv.Load(); err != nil {
		slog.Warn("Файл .env не найден, используем переменные окружения")
	}

	config.ConnectDB()
	config.MigrateDB()
	config.ConnectRedis()
	config.LoadJWTKey()

	go runSweepScheduler()

	r := gin.Default()
	routes.SetupRoutes(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	slog.Info("Запуск сервера", "port", port)
	if err := r.Run(":" + port); err != nil {
		slog.Error("Сервер остановлен с ошибкой", "error", err)
		os.Exit(1)
	}
}

// runSweepScheduler раз в сутки расторгает договоры абонентов, стоящих на
// паузе дольше порога. Блокировка в Redis гарантирует, что при нескольких
// экземплярах приложения проверку выполняет только один.
func runSweepScheduler() {
	thresholdDays, _ := strconv.Atoi(os.Getenv("SWEEP_THRESHOLD_DAYS"))

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		if config.AcquireLock("sweep:auto-terminate", time.Hour) {
			engine := status.NewEngine(
				store.NewClientStore(config.DB),
				store.NewDebtStore(config.DB),
			)
			count, err := engine.SweepAutomaticTerminations(thresholdDays, time.Now())
			if err != nil {
				slog.Error("Проверка просроченных пауз не удалась", "error", err)
			} else if count > 0 {
				slog.Info("Автоматически расторгнуты договоры", "count", count)
			}
		}
		<-ticker.C
	}
}
