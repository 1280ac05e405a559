// abonent-crm/internal/routes/api_routes.go
package routes

import (
	"abonent-crm/internal/handlers"
	"abonent-crm/internal/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterAPIRoutes регистрирует все маршруты API, требующие аутентификации.
func RegisterAPIRoutes(api *gin.RouterGroup) {
	apiGroup := api.Group("/api")
	{
		// --- АБОНЕНТЫ ---
		clients := apiGroup.Group("/clients")
		{
			clients.GET("", handlers.ListClientsHandler)
			clients.POST("", handlers.CreateClientHandler)
			clients.GET("/:id", handlers.GetClientHandler)
			clients.PUT("/:id", handlers.UpdateClientHandler)
			clients.DELETE("/:id", middleware.RoleMiddleware("admin"), handlers.DeleteClientHandler)

			// Смена статуса идет только через машину состояний.
			clients.POST("/:id/transition", handlers.TransitionClientHandler)
			clients.GET("/:id/history", handlers.GetClientHistoryHandler)

			clients.GET("/:id/debts", handlers.ListClientDebtsHandler)
			clients.DELETE("/:id/debts", middleware.RoleMiddleware("admin"), handlers.BulkClearDebtsHandler)
			clients.GET("/:id/summary", handlers.ClientSummaryHandler)
		}

		// --- ЗАДОЛЖЕННОСТИ ---
		debts := apiGroup.Group("/debts")
		{
			debts.POST("", handlers.CreateDebtHandler)
			debts.PUT("/:id", handlers.UpdateDebtHandler)
			debts.DELETE("/:id", middleware.RoleMiddleware("admin"), handlers.DeleteDebtHandler)
			debts.POST("/:id/pay", handlers.PostPaymentHandler)
			debts.POST("/generate", middleware.RoleMiddleware("admin"), handlers.GenerateDebtsHandler)
		}

		// --- ТАРИФЫ ---
		tariffs := apiGroup.Group("/tariffs")
		{
			tariffs.GET("", handlers.ListTariffsHandler)
			tariffs.POST("", middleware.RoleMiddleware("admin"), handlers.CreateTariffHandler)
			tariffs.PUT("/:id", middleware.RoleMiddleware("admin"), handlers.UpdateTariffHandler)
			tariffs.DELETE("/:id", middleware.RoleMiddleware("admin"), handlers.DeleteTariffHandler)
		}

		// --- ОТЧЕТЫ ---
		reports := apiGroup.Group("/reports")
		{
			reports.GET("/dashboard", handlers.DashboardHandler)
			reports.GET("/matrix", handlers.MatrixHandler)
			reports.GET("/debtors/export", handlers.ExportDebtorsHandler)
		}

		// --- ИМПОРТ ---
		apiGroup.POST("/import", middleware.RoleMiddleware("admin"), handlers.ImportClientsHandler)

		// --- АДМИНИСТРИРОВАНИЕ ---
		apiGroup.POST("/admin/sweep", middleware.RoleMiddleware("admin"), handlers.SweepHandler)
	}
}
