package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ignatzorin/escrow-backend/internal/config"
	"github.com/ignatzorin/escrow-backend/internal/http/handlers"
	"github.com/ignatzorin/escrow-backend/internal/http/middleware"
	"github.com/ignatzorin/escrow-backend/internal/models"
	"github.com/ignatzorin/escrow-backend/internal/service"
)

// Handlers объединяет все HTTP хэндлеры приложения.
type Handlers struct {
	Auth         *handlers.AuthHandler
	Contract     *handlers.ContractHandler
	Payment      *handlers.PaymentHandler
	Dispute      *handlers.DisputeHandler
	Chat         *handlers.ChatHandler
	Kyc          *handlers.KycHandler
	Admin        *handlers.AdminHandler
	Notification *handlers.NotificationHandler
	Media        *handlers.MediaHandler
	Contact      *handlers.ContactHandler
	Health       *handlers.HealthHandler
	WS           *handlers.WSHandler
}

// SetupRouter собирает все маршруты приложения.
func SetupRouter(cfg *config.Config, h Handlers, tokenManager *service.TokenManager) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middleware.MetricsMiddleware())

	r.GET("/health", h.Health.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")

	// Аутентификация с ужесточённым rate limit.
	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(5, cfg.RateLimitPeriod))
	{
		authGroup.POST("/register", h.Auth.Register)
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/refresh", h.Auth.Refresh)
		authGroup.POST("/logout", h.Auth.Logout)
		authGroup.POST("/password-reset", h.Auth.RequestPasswordReset)
		authGroup.POST("/password-reset/confirm", h.Auth.ConfirmPasswordReset)
	}

	protectedAuth := api.Group("/auth")
	protectedAuth.Use(middleware.AuthMiddleware(tokenManager))
	{
		protectedAuth.GET("/me", h.Auth.Me)
		protectedAuth.POST("/deactivate", h.Auth.Deactivate)
		protectedAuth.POST("/verify-email", h.Auth.ConfirmEmail)
		protectedAuth.POST("/resend-code", h.Auth.ResendCode)
	}

	// Публичные маршруты
	api.GET("/ws", h.WS.Handle)
	api.POST("/contact", middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod), h.Contact.Send)
	api.POST("/payments/success", h.Payment.PaymentSuccess)

	// Защищённые маршруты
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.POST("/contracts", h.Contract.Create)
		protected.GET("/contracts", h.Contract.List)
		protected.GET("/contracts/:id", middleware.UUIDValidator("id"), h.Contract.Get)
		protected.GET("/contracts/:id/progress", middleware.UUIDValidator("id"), h.Contract.Progress)
		protected.POST("/contracts/:id/invite", middleware.UUIDValidator("id"), h.Contract.SendInvite)
		protected.POST("/contracts/:id/invite/respond", middleware.UUIDValidator("id"), h.Contract.RespondInvite)
		protected.POST("/contracts/:id/cancel", middleware.UUIDValidator("id"), h.Contract.Cancel)
		protected.POST("/contracts/:id/milestones/:milestoneId/submit", middleware.UUIDValidator("id"), middleware.UUIDValidator("milestoneId"), h.Contract.SubmitMilestone)
		protected.POST("/contracts/:id/milestones/:milestoneId/review", middleware.UUIDValidator("id"), middleware.UUIDValidator("milestoneId"), h.Contract.ReviewMilestone)

		protected.POST("/contracts/:id/fund", middleware.UUIDValidator("id"), h.Payment.Fund)
		protected.POST("/contracts/:id/activate", middleware.UUIDValidator("id"), h.Payment.Activate)
		protected.POST("/contracts/:id/refund", middleware.UUIDValidator("id"), h.Payment.CancelWithRefund)
		protected.POST("/contracts/:id/milestones/:milestoneId/release", middleware.UUIDValidator("id"), middleware.UUIDValidator("milestoneId"), h.Payment.Release)
		protected.GET("/contracts/:id/payment", middleware.UUIDValidator("id"), h.Payment.GetPayment)
		protected.GET("/contracts/:id/transactions", middleware.UUIDValidator("id"), h.Payment.ListTransactions)
		protected.POST("/payments/onboarding", h.Payment.StartOnboarding)
		protected.POST("/payments/onboarding/complete", h.Payment.CompleteOnboarding)

		protected.POST("/contracts/:id/disputes", middleware.UUIDValidator("id"), h.Dispute.Raise)
		protected.GET("/disputes", h.Dispute.ListMine)
		protected.GET("/disputes/:id", middleware.UUIDValidator("id"), h.Dispute.Get)
		protected.GET("/disputes/:id/chat", middleware.UUIDValidator("id"), h.Chat.GetByDispute)

		protected.GET("/chats/:id/messages", middleware.UUIDValidator("id"), h.Chat.ListMessages)
		protected.POST("/chats/:id/messages", middleware.UUIDValidator("id"), h.Chat.Send)
		protected.POST("/chats/:id/read", middleware.UUIDValidator("id"), h.Chat.MarkRead)
		protected.GET("/chats/:id/unread", middleware.UUIDValidator("id"), h.Chat.UnreadCount)

		protected.GET("/kyc", h.Kyc.Get)
		protected.POST("/kyc/documents", h.Kyc.UploadDocument)
		protected.GET("/kyc/history", h.Kyc.History)

		protected.GET("/notifications", h.Notification.List)
		protected.GET("/notifications/unread", h.Notification.UnreadCount)
		protected.POST("/notifications/:id/read", middleware.UUIDValidator("id"), h.Notification.MarkRead)
		protected.POST("/notifications/read-all", h.Notification.MarkAllRead)
		protected.POST("/notifications/device", h.Notification.RegisterDevice)
		protected.DELETE("/notifications/device", h.Notification.UnregisterDevice)

		protected.POST("/media/presign", h.Media.PresignUpload)
	}

	// Администрирование
	api.POST("/admin/login", middleware.RateLimitMiddleware(5, cfg.RateLimitPeriod), h.Admin.Login)

	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware(tokenManager))
	admin.Use(middleware.RequireRoles(models.AdminRoleSuperAdmin, models.AdminRoleAdmin, models.AdminRoleModerator))
	{
		admin.GET("/disputes", h.Dispute.ListAll)
		admin.POST("/disputes/:id/progress", middleware.UUIDValidator("id"), h.Dispute.Progress)
		admin.POST("/disputes/:id/resolve", middleware.UUIDValidator("id"), h.Dispute.Resolve)
		admin.POST("/disputes/:id/reject", middleware.UUIDValidator("id"), h.Dispute.Reject)

		admin.GET("/kyc", h.Kyc.ListByStatus)
		admin.POST("/kyc/status", h.Kyc.SetStatus)

		admin.GET("/customers", h.Admin.ListCustomers)
		admin.POST("/customers/:id/moderate", middleware.UUIDValidator("id"), h.Admin.ModerateCustomer)

		admin.GET("/admins", h.Admin.List)
		admin.POST("/admins", h.Admin.Create)
		admin.POST("/admins/:id/status", middleware.UUIDValidator("id"), h.Admin.SetStatus)
	}

	return r
}
