package server

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/aveline/ticketing/config"
	"github.com/aveline/ticketing/internal/gateway"
	"github.com/aveline/ticketing/internal/handlers"
	"github.com/aveline/ticketing/internal/inventory"
	"github.com/aveline/ticketing/internal/issuance"
	"github.com/aveline/ticketing/internal/middleware"
	"github.com/aveline/ticketing/internal/models"
	"github.com/aveline/ticketing/internal/notifier"
	"github.com/aveline/ticketing/internal/reconcile"
	"github.com/aveline/ticketing/internal/refunds"
	"github.com/aveline/ticketing/internal/token"
	"github.com/aveline/ticketing/internal/validation"
)

func Start() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	db, err := config.InitDatabase(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %v", err)
	}

	services, err := BuildServices(cfg, db, logger)
	if err != nil {
		return fmt.Errorf("failed to build services: %v", err)
	}

	r := gin.Default()

	SetupRoutes(r, db, services)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	logger.Info("server listening", zap.String("port", port))
	return r.Run(":" + port)
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// BuildServices wires the domain services together. Kept separate from
// Start so tests can assemble the same graph against their own database.
func BuildServices(cfg *config.Config, db *gorm.DB, logger *zap.Logger) (*middleware.Services, error) {
	codec, err := token.NewCodec(cfg.QRTokenSecret)
	if err != nil {
		return nil, err
	}

	var mail notifier.Notifier
	if cfg.SMTPHost != "" {
		mail = notifier.NewMailer(notifier.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		}, logger)
	} else {
		mail = notifier.NewLogNotifier(logger)
	}

	ledger := inventory.NewLedger()
	checkout := gateway.NewCheckoutClient(cfg.PaymentAPIKey, cfg.PaymentAPIBaseURL)

	return &middleware.Services{
		Config:     cfg,
		Issuance:   issuance.NewService(db, ledger, checkout, cfg.FrontendURL, logger),
		Validation: validation.NewService(db, codec, logger),
		Reconciler: reconcile.NewReconciler(db, codec, mail, logger),
		Refunds:    refunds.NewService(db, ledger, logger),
		Checkout:   checkout,
	}, nil
}

func SetupRoutes(r *gin.Engine, db *gorm.DB, services *middleware.Services) {
	r.Use(middleware.DatabaseMiddleware(db))
	r.Use(middleware.ServicesMiddleware(services))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	public := r.Group("/v1")
	{
		public.POST("/register", handlers.Register)
		public.POST("/login", handlers.Login)

		public.POST("/webhooks/payment", handlers.HandlePaymentWebhook)

		public.POST("/donations", handlers.CreateDonation)
		public.POST("/contact", handlers.CreateContactMessage)

		eventPublic := public.Group("/events")
		{
			eventPublic.GET("", handlers.ListEvents)
			eventPublic.GET("/:id", handlers.GetEvent)
		}

		formationPublic := public.Group("/formations")
		{
			formationPublic.GET("", handlers.ListFormations)
			formationPublic.GET("/:id", handlers.GetFormation)
		}

		public.GET("/categories", handlers.ListCategories)
		public.GET("/locations", handlers.ListLocations)
	}

	protected := r.Group("/v1")
	protected.Use(middleware.JWTAuthMiddleware())
	{
		ticketProtected := protected.Group("/tickets")
		{
			ticketProtected.POST("", handlers.CreateTicket)
			ticketProtected.GET("/:id", handlers.GetTicket)
			ticketProtected.GET("/:id/qr", handlers.GetTicketQR)
		}

		protected.POST("/refund-requests", handlers.CreateRefundRequest)

		validatorOnly := protected.Group("")
		validatorOnly.Use(middleware.RequireRole(models.RoleValidator, models.RoleAdmin))
		{
			validatorOnly.POST("/tickets/validate", handlers.ValidateTicket)
			validatorOnly.GET("/events/:id/tickets", handlers.ListTicketsByEvent)
			validatorOnly.GET("/events/:id/tickets/stats", handlers.EventTicketStats)
		}

		adminOnly := protected.Group("")
		adminOnly.Use(middleware.RequireRole(models.RoleAdmin))
		{
			adminOnly.POST("/tickets/check", handlers.CheckTicket)

			adminOnly.POST("/events", handlers.CreateEvent)
			adminOnly.PUT("/events/:id", handlers.UpdateEvent)
			adminOnly.DELETE("/events/:id", handlers.DeleteEvent)

			adminOnly.POST("/formations", handlers.CreateFormation)
			adminOnly.PUT("/formations/:id", handlers.UpdateFormation)
			adminOnly.DELETE("/formations/:id", handlers.DeleteFormation)

			adminOnly.POST("/categories", handlers.CreateCategory)
			adminOnly.DELETE("/categories/:id", handlers.DeleteCategory)

			adminOnly.POST("/locations", handlers.CreateLocation)
			adminOnly.DELETE("/locations/:id", handlers.DeleteLocation)

			adminOnly.GET("/refund-requests", handlers.ListRefundRequests)
			adminOnly.PUT("/refund-requests/:id", handlers.ProcessRefundRequest)

			adminOnly.GET("/donations", handlers.ListDonations)
			adminOnly.GET("/contact", handlers.ListContactMessages)
		}
	}
}
