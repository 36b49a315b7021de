package routes

import (
	"database/sql"

	"github.com/LovationAdmin/crm-api/handlers"
	"github.com/LovationAdmin/crm-api/services"

	"github.com/gin-gonic/gin"
)

// SetupAuthRoutes sets up public authentication routes.
func SetupAuthRoutes(rg *gin.RouterGroup, db *sql.DB, jwtSecret string) {
	h := &handlers.AuthHandler{DB: db, JWTSecret: jwtSecret}

	rg.POST("/auth/signup", h.Signup)
	rg.POST("/auth/login", h.Login)
}

// SetupUserRoutes sets up the caller's profile and 2FA routes.
func SetupUserRoutes(rg *gin.RouterGroup, db *sql.DB, users *services.UserService) {
	h := &handlers.UserHandler{DB: db, Users: users}

	rg.GET("/me", h.Me)
	rg.GET("/users", h.ListUsers)
	rg.POST("/me/2fa/setup", h.SetupTOTP)
	rg.POST("/me/2fa/verify", h.VerifyTOTP)
	rg.POST("/me/2fa/disable", h.DisableTOTP)
}

func SetupCalendarRoutes(rg *gin.RouterGroup, calendar *services.CalendarService, ws *handlers.WSHandler) {
	h := &handlers.CalendarHandler{Calendar: calendar, WS: ws}

	rg.GET("/events", h.List)
	rg.POST("/events", h.Create)
	rg.GET("/events/occurrences", h.Occurrences)
	rg.GET("/events/export.ics", h.ExportICS)
	rg.GET("/events/:id", h.Get)
	rg.PUT("/events/:id", h.Update)
	rg.DELETE("/events/:id", h.Delete)
}

func SetupTaskRoutes(rg *gin.RouterGroup, h *handlers.TaskHandler) {
	rg.GET("/tasks", h.List)
	rg.POST("/tasks", h.Create)
	rg.GET("/tasks/:id", h.Get)
	rg.PUT("/tasks/:id", h.Update)
	rg.DELETE("/tasks/:id", h.Delete)
	rg.GET("/tasks/:id/grants", h.Grants)
	rg.POST("/tasks/:id/share", h.Share)
	rg.DELETE("/tasks/:id/share/:userId", h.Revoke)
}

func SetupFinancialRoutes(rg *gin.RouterGroup, finance *services.FinancialService) {
	h := &handlers.FinancialHandler{Finance: finance}

	rg.GET("/financial/analytics/overview", h.Overview)
	rg.GET("/financial/analytics/client-profitability/:clientId", h.ClientProfitability)

	rg.GET("/clients", h.ListClients)
	rg.POST("/clients", h.CreateClient)
	rg.GET("/clients/:id", h.GetClient)
	rg.GET("/vendors", h.ListVendors)
	rg.POST("/vendors", h.CreateVendor)

	rg.GET("/financial/budgets", h.ListBudgets)
	rg.POST("/financial/budgets", h.CreateBudget)
	rg.GET("/financial/budgets/:id", h.GetBudget)

	rg.GET("/financial/payments", h.ListPayments)
	rg.POST("/financial/payments", h.CreatePayment)
	rg.PUT("/financial/payments/:id/status", h.UpdatePaymentStatus)

	rg.GET("/financial/expenses", h.ListExpenses)
	rg.POST("/financial/expenses", h.CreateExpense)
	rg.PUT("/financial/expenses/:id/status", h.UpdateExpenseStatus)
	rg.DELETE("/financial/expenses/:id", h.DeleteExpense)
}

func SetupReportRoutes(rg *gin.RouterGroup, reports *services.ReportService) {
	h := &handlers.ReportHandler{Reports: reports}

	rg.GET("/reports/jobs", h.ListJobs)
	rg.GET("/reports/jobs/:jobId", h.GetJob)
	rg.GET("/reports/export/:jobId/:format", h.Export)
	rg.POST("/reports/:type", h.Generate)
}

func SetupInsightRoutes(rg *gin.RouterGroup, insights *services.InsightService) {
	h := &handlers.InsightHandler{Insights: insights}

	rg.POST("/insights/financial", h.Financial)
}

func SetupCollaborationRoutes(rg *gin.RouterGroup, chat *services.ChatService, journal *services.JournalService, ws *handlers.WSHandler) {
	ch := &handlers.ChatHandler{Chat: chat, WS: ws}
	jh := &handlers.JournalHandler{Journal: journal}

	rg.GET("/chat/messages", ch.List)
	rg.POST("/chat/messages", ch.Post)
	rg.GET("/ws", ws.HandleWS)

	rg.GET("/journal", jh.List)
	rg.POST("/journal", jh.Create)
	rg.DELETE("/journal/:id", jh.Delete)
}
