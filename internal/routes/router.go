// abonent-crm/internal/routes/router.go
package routes

import (
	"abonent-crm/internal/handlers"
	"abonent-crm/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupRoutes инициализирует все маршруты приложения.
func SetupRoutes(r *gin.Engine) {
	// --- Публичные маршруты ---
	// Вход не требует аутентификации.
	r.POST("/login", handlers.LoginHandler)

	// --- Защищенная группа маршрутов ---
	// Все маршруты в этой группе требуют валидный JWT.
	authRequired := r.Group("/")
	authRequired.Use(middleware.AuthMiddleware())
	{
		RegisterAPIRoutes(authRequired)
	}
}
