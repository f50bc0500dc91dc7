package cmd

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"craft-platform/config"
	"craft-platform/handlers"
	"craft-platform/internal/countdown"
	"craft-platform/internal/errreport"
	"craft-platform/internal/gateway/momo"
	"craft-platform/models"
	"craft-platform/monitoring"
	"craft-platform/security"
	"craft-platform/services"
	"craft-platform/utils"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	pubnub "github.com/pubnub/go"
)

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	// Initialize Redis
	redisClient := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	defer redisClient.Close()

	// Initialize PubNub for operator notifications
	var pn *pubnub.PubNub
	if cfg.PubNubPublishKey != "" && cfg.PubNubSubscribeKey != "" {
		pnConfig := pubnub.NewConfig()
		pnConfig.PublishKey = cfg.PubNubPublishKey
		pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
		pnConfig.SecretKey = cfg.PubNubSecretKey
		pn = pubnub.NewPubNub(pnConfig)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reporter := errreport.New(app, pn, cfg.ErrorReportChannel)

	// The online gateway stays nil unless explicitly enabled.
	var gateway *momo.Gateway
	if cfg.OnlinePaymentsEnabled {
		var err error
		gateway, err = momo.New(ctx, &cfg.Momo)
		if err != nil {
			return err
		}
	}

	// Initialize services
	sessionService := services.NewSessionService(redisClient, cfg.SessionTTL, cfg.DialogTTL)
	registrationService := services.NewRegistrationService(app, sessionService, reporter)
	notificationService := services.NewNotificationService(app)
	paymentService := services.NewPaymentService(cfg, sessionService, registrationService, reporter, pn, gateway)
	donationService := services.NewDonationService(app, notificationService, reporter, cfg.Currency)

	if gateway != nil {
		txChannel := make(chan *momo.Transaction, 1)
		gateway.SetTransactionChannel(txChannel)
		go func() {
			for {
				select {
				case txn := <-txChannel:
					slog.Info("gateway transaction received", "reference", txn.Reference, "status", txn.Status)
					if _, err := paymentService.SettleTransaction(ctx, txn); err != nil {
						slog.Error("settle gateway transaction", "reference", txn.Reference, "error", err)
					}
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	// Redirect countdowns live in memory; the registry drops entries that
	// were never claimed.
	registry := countdown.NewRegistry(cfg.RedirectSessionTTL)
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				registry.Sweep()
				monitoring.SetRedirectCountdowns(registry.Len())
			case <-ctx.Done():
				return
			}
		}
	}()

	// Periodic repair for counter drift left by failed increments.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n, err := registrationService.ReconcileCounters(ctx); err != nil {
					slog.Warn("registration counter reconciliation failed", "error", err)
				} else if n > 0 {
					slog.Info("registration counters reconciled", "events", n)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	// Initialize handlers
	eventHandler := handlers.NewEventHandler(app, registrationService)
	registrationHandler := handlers.NewRegistrationHandler(registrationService)
	paymentHandler := handlers.NewPaymentHandler(paymentService, gateway, cfg.Momo.HMACKey)
	confirmationHandler := handlers.NewConfirmationHandler(cfg, registrationService, sessionService, notificationService, registry)
	donationHandler := handlers.NewDonationHandler(donationService)
	adminHandler := handlers.NewAdminHandler(app, registrationService, notificationService)

	rateLimiter := security.NewRateLimiter(redisClient, cfg.PublicRateLimit, cfg.RateLimitWindow)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	// Ops sidecar: Prometheus metrics and health on a separate port
	var opsServer *monitoring.OpsServer
	if cfg.EnableMetrics {
		opsServer = monitoring.NewOpsServer(cfg.MetricsPort, redisClient)
		opsServer.Start()
		go monitoring.NewMonitor(redisClient).Run(ctx)
	}

	// Setup graceful shutdown
	go handleShutdown(cancel, opsServer)

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		public := e.Router.Group("/api/v1")
		public.BindFunc(rateLimiter.PublicLimit())

		// Event catalogue
		public.GET("/events", eventHandler.List)
		public.GET("/events/{eventId}", eventHandler.Get)
		public.GET("/events/{eventId}/registration-form", registrationHandler.Form)

		// Registration workflow
		public.POST("/events/{eventId}/register", registrationHandler.Register)
		public.GET("/events/{eventId}/payment/methods", paymentHandler.Methods)
		public.POST("/events/{eventId}/payment/manual/start", paymentHandler.StartManual)
		public.POST("/events/{eventId}/payment/manual/advance", paymentHandler.AdvanceManual)
		public.POST("/events/{eventId}/payment/manual/back", paymentHandler.BackManual)
		public.POST("/events/{eventId}/payment/online/charge", paymentHandler.StartOnline)

		// Confirmation and community redirect
		public.GET("/events/{eventId}/confirmation", confirmationHandler.Show)
		public.GET("/events/{eventId}/confirmation/redirect", confirmationHandler.RedirectState)
		public.POST("/events/{eventId}/confirmation/join", confirmationHandler.Join)
		public.POST("/events/{eventId}/confirmation/cancel-redirect", confirmationHandler.CancelRedirect)

		// Donations
		public.POST("/donations", donationHandler.Create)
		public.GET("/donations/{donationId}/status", donationHandler.Status)

		// Gateway webhook authenticates with its own secret, not the rate
		// limiter
		e.Router.POST("/api/v1/payment/gateway/webhook", paymentHandler.GatewayWebhook)

		// Admin endpoints
		admin := e.Router.Group("/api/v1/admin")
		admin.Bind(apis.RequireAuth("_superusers", "admins"))
		admin.GET("/dashboard", adminHandler.Dashboard)
		admin.GET("/submissions", adminHandler.ListSubmissions)
		admin.POST("/submissions/{submissionId}/review", adminHandler.ReviewSubmission)
		admin.GET("/donations", adminHandler.ListDonations)
		admin.POST("/donations/{donationId}/review", adminHandler.ReviewDonation)

		// Health check
		e.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return e.JSON(503, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return e.JSON(200, map[string]string{"status": "healthy"})
		})

		log.Println("Server routes registered")

		setupRecordHooks(app, notificationService, registrationService)

		return e.Next()
	})

	// Start server
	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
	return nil
}

// setupRecordHooks keeps record writes made through the PocketBase UI
// consistent with the workflow endpoints.
func setupRecordHooks(app *pocketbase.PocketBase, notifier *services.NotificationService, registrations *services.RegistrationService) {
	// Reject nonsensical early-bird configuration before it reaches the
	// public catalogue.
	app.OnRecordCreateRequest("events").BindFunc(func(e *core.RecordRequestEvent) error {
		if e.Record.GetBool("has_early_bird") && e.Record.GetFloat("early_bird_price") >= e.Record.GetFloat("price") {
			return apis.NewBadRequestError("Early-bird price must be below the regular price.", nil)
		}
		return e.Next()
	})

	// Reviews done directly in the UI should still email the respondent,
	// same as the review endpoint.
	app.OnRecordUpdateRequest("form_submissions").BindFunc(func(e *core.RecordRequestEvent) error {
		if err := e.Next(); err != nil {
			return err
		}

		original := e.Record.Original()
		if original == nil || original.GetString("status") != models.StatusPending {
			return nil
		}
		if e.Record.GetString("status") != models.StatusApproved {
			return nil
		}

		var responses map[string]string
		if err := e.Record.UnmarshalJSONField("responses", &responses); err != nil {
			return nil
		}
		name, email := services.RespondentIdentity(responses)
		if email == "" {
			return nil
		}

		ev, err := registrations.Event(e.Record.GetString("event"))
		if err != nil {
			return nil
		}

		cc := &models.ConfirmationContext{
			SubmissionID: e.Record.Id,
			EventID:      ev.ID,
			Name:         name,
			Email:        email,
			Status:       models.StatusApproved,
		}
		if err := notifier.SendRegistrationEmail(e.Request.Context(), ev, cc); err != nil {
			slog.Warn("approval email from record hook failed", "submission_id", e.Record.Id, "error", err)
		}
		return nil
	})
}

func handleShutdown(cancel context.CancelFunc, opsServer *monitoring.OpsServer) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down background workers")
	cancel()

	if opsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := opsServer.Shutdown(shutdownCtx); err != nil {
			slog.Warn("ops server shutdown", "error", err)
		}
	}
}
