// abonent-crm/config/redis.go
package config

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

var RDB *redis.Client
var Ctx = context.Background()

func ConnectRedis() {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		slog.Warn("Переменная окружения REDIS_ADDR не установлена, кэширование будет отключено.")
		return
	}

	RDB = redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	// Проверяем соединение
	if _, err := RDB.Ping(Ctx).Result(); err != nil {
		slog.Error("Не удалось подключиться к Redis", "error", err)
		RDB = nil // Обнуляем клиент, чтобы приложение не пыталось его использовать
		return
	}

	slog.Info("Успешное подключение к Redis!")
}

// AcquireLock ставит короткоживущую блокировку через SET NX, чтобы фоновые
// задачи (ночная проверка пауз) выполнялись только одним экземпляром
// приложения. Без Redis считаем, что экземпляр единственный.
func AcquireLock(key string, ttl time.Duration) bool {
	if RDB == nil {
		return true
	}
	ok, err := RDB.SetNX(Ctx, key, "1", ttl).Result()
	if err != nil {
		slog.Warn("Не удалось взять блокировку в Redis", "key", key, "error", err)
		return false
	}
	return ok
}
