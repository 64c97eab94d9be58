package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"delguur.mn/app/internal/http/handlers"
	"delguur.mn/app/internal/http/handlers/admin"
	"delguur.mn/app/internal/http/middleware"
	"delguur.mn/app/internal/modules/orders"
	"delguur.mn/app/internal/modules/payments"
)

type Config struct {
	// bcrypt hashes of the API keys presented by the SMS gateway and by
	// operator tooling.
	WebhookKeyHash string
	AdminKeyHash   string

	// Allowed difference between order total and transferred amount
	// before a match goes to manual review.
	AmountTolerance decimal.Decimal
}

func NewRouter(logger *slog.Logger, db *gorm.DB, cfg Config) *gin.Engine {
	r := gin.New()
	// ErrorHandler must wrap Recovery: a recovered panic is recorded as a
	// gin error, and only the handler's post-Next pass renders it as JSON.
	r.Use(
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.ErrorHandler(logger),
		middleware.Recovery(logger),
	)

	ordersRepo := orders.NewRepo(db)
	reconciler := payments.NewReconciler(db, ordersRepo)
	reconciler.SetLogger(logger)
	reconciler.SetAmountTolerance(cfg.AmountTolerance)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	smsHandler := handlers.NewSMSWebhookHandler(logger, reconciler)
	webhooks := r.Group("/webhooks", middleware.RequireKey(cfg.WebhookKeyHash))
	webhooks.POST("/sms", smsHandler.Handle)

	logsHandler := admin.NewPaymentLogsHandler(logger, reconciler)
	adm := r.Group("/admin", middleware.RequireKey(cfg.AdminKeyHash))
	adm.GET("/payment-logs", logsHandler.List)
	adm.GET("/payment-logs/:id", logsHandler.Get)
	adm.POST("/payment-logs/:id/match", logsHandler.Match)

	return r
}
