package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docstack/backend/internal/config"
	"github.com/docstack/backend/internal/handler"
	appMiddleware "github.com/docstack/backend/internal/middleware"
	"github.com/docstack/backend/internal/repository"
	"github.com/docstack/backend/internal/service"
	"github.com/docstack/backend/pkg/billing"
	"github.com/docstack/backend/pkg/mailer"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/gorilla/sessions"
	"github.com/joho/godotenv"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"
)

const version = "1.0.0"

func main() {
	// Load .env file if present (for local development)
	_ = godotenv.Load()

	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Config error: %v", err)
	}

	ctx := context.Background()

	// Initialize database
	db, err := repository.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Database error: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := repository.RunMigrations(ctx, db); err != nil {
		log.Fatalf("❌ Migration error: %v", err)
	}
	log.Println("✅ Database connected & migrated")

	// OAuth providers. gothic needs a session store for the auth handshake.
	gothic.Store = sessions.NewCookieStore([]byte(cfg.SessionSecret))
	if cfg.GoogleClientID != "" {
		callback := fmt.Sprintf("%s/api/auth/google/callback", cfg.AppURL)
		goth.UseProviders(google.New(cfg.GoogleClientID, cfg.GoogleClientSecret, callback, "email", "profile"))
		log.Println("✅ Google OAuth configured")
	} else {
		log.Println("⚠️  GOOGLE_CLIENT_ID not set, OAuth sign-in disabled")
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	docRepo := repository.NewDocumentRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	authRepo := repository.NewAuthRepository(db)

	// Services
	mail := mailer.NewResendMailer(cfg.ResendAPIKey, cfg.EmailFrom)
	authSvc := service.NewAuthService(cfg.JWTSecret, cfg.AppURL, userRepo, authRepo, mail)

	entitlementSvc := service.NewEntitlementService(userRepo, subRepo, paymentRepo, docRepo)
	billingSvc := service.NewBillingService(
		userRepo, subRepo, paymentRepo, activityRepo,
		billing.NewClient(cfg.BillingSecretKey),
		billing.NewVerifier(cfg.WebhookSecret),
		service.BillingConfig{
			AppURL:              cfg.AppURL,
			PriceIDStarter:      cfg.PriceIDStarter,
			PriceIDProfessional: cfg.PriceIDProfessional,
			PriceIDPayPerUse:    cfg.PriceIDPayPerUse,
			CreditPriceCents:    cfg.CreditPriceCents,
		},
	)
	docSvc := service.NewDocumentService(docRepo, activityRepo, entitlementSvc)
	templateSvc := service.NewTemplateService(templateRepo, entitlementSvc)

	// Session janitor: expired rows are harmless (tokens carry their own
	// expiry) but there is no reason to keep them around.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			if err := authRepo.DeleteExpiredSessions(ctx); err != nil {
				log.Printf("session cleanup failed: %v", err)
			}
		}
	}()

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc, cfg.AppURL)
	billingHandler := handler.NewBillingHandler(billingSvc)
	docHandler := handler.NewDocumentHandler(docSvc)
	templateHandler := handler.NewTemplateHandler(templateSvc)
	userHandler := handler.NewUserHandler(&handler.EntitlementView{
		Entitlements: entitlementSvc,
		Users:        userRepo,
		Payments:     paymentRepo,
		Activity:     activityRepo,
	})
	healthHandler := handler.NewHealthHandler(db, version)
	plansHandler := handler.NewPlansHandler()

	// Build router
	r := chi.NewRouter()

	// Global middleware
	r.Use(appMiddleware.Recovery)
	r.Use(appMiddleware.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Billing-Signature"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Global rate limiter (20 req/sec per IP, burst of 40)
	globalRL := appMiddleware.NewRateLimiter(20, 40)
	r.Use(globalRL.Middleware())

	// Health check and public routes (no auth)
	r.Get("/health", healthHandler.Check)
	r.Get("/api/plans", plansHandler.List)
	r.Post("/api/billing/webhook", billingHandler.Webhook) // Signed by the billing provider
	r.Get("/api/templates/public", templateHandler.ListPublic)

	// Auth routes
	r.Group(func(r chi.Router) {
		r.Use(appMiddleware.StrictRateLimiter())
		r.Post("/api/auth/magic-link", authHandler.RequestMagicLink)
		r.Get("/api/auth/verify", authHandler.VerifyMagicLink)
		r.Get("/api/auth/{provider}", authHandler.OAuthBegin)
		r.Get("/api/auth/{provider}/callback", authHandler.OAuthCallback)
	})

	// Protected API routes
	r.Group(func(r chi.Router) {
		r.Use(appMiddleware.Auth(authSvc))

		// Auth
		r.Post("/api/auth/logout", authHandler.Logout)
		r.Get("/api/auth/me", authHandler.Me)

		// Account
		r.Get("/api/user/plan", userHandler.Plan)
		r.Get("/api/user/usage", userHandler.Usage)
		r.Get("/api/user/credits", userHandler.Credits)
		r.Get("/api/user/payments", userHandler.Payments)
		r.Get("/api/user/activity", userHandler.Activity)

		// Billing
		r.Post("/api/billing/checkout", billingHandler.CreateCheckout)

		// Documents
		r.Get("/api/documents", docHandler.List)
		r.Post("/api/documents", docHandler.Create)
		r.Get("/api/documents/{id}/history", docHandler.History)
		r.Get("/api/documents/{id}", docHandler.Get)
		r.Put("/api/documents/{id}", docHandler.Update)
		r.Delete("/api/documents/{id}", docHandler.Delete)

		// Templates
		r.Get("/api/templates", templateHandler.ListMine)
		r.Post("/api/templates", templateHandler.Create)
		r.Get("/api/templates/{id}", templateHandler.Get)
	})

	// Start server
	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Println("🛑 Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("🚀 DocStack Backend listening at http://%s", addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("❌ Server error: %v", err)
	}
}
