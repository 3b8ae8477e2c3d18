package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/dtstore/storefront/internal/config"
	"github.com/dtstore/storefront/internal/db"
	"github.com/dtstore/storefront/internal/es"
	"github.com/dtstore/storefront/internal/handlers"
	carthandlers "github.com/dtstore/storefront/internal/handlers/cart"
	"github.com/dtstore/storefront/internal/handlers/checkout"
	"github.com/dtstore/storefront/internal/handlers/webhook"
	"github.com/dtstore/storefront/internal/logging"
	"github.com/dtstore/storefront/internal/mykafka"
	"github.com/dtstore/storefront/internal/orders"
	"github.com/dtstore/storefront/internal/payment"
	"github.com/dtstore/storefront/internal/service"
	httpserver "github.com/dtstore/storefront/internal/transport/http"

	cartstore "github.com/dtstore/storefront/internal/cart"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	config.MustNonEmpty(cfg.JWT_SECRET, "JWT_SECRET")
	config.MustNonEmpty(cfg.REFRESH_SECRET, "REFRESH_SECRET")
	config.MustNonEmpty(cfg.STRIPE_SECRET_KEY, "STRIPE_SECRET_KEY")
	config.MustNonEmpty(cfg.STRIPE_WEBHOOK_SECRET, "STRIPE_WEBHOOK_SECRET")

	logger := logging.New(cfg.LOG_LEVEL)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	database, err := db.Open(ctx, cfg.DatabaseDSN())
	cancel()
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if err := db.Migrate(database); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	prod := mykafka.NewProducer(cfg.KAFKA_ADDRESS)
	if !prod.Enabled() {
		logger.Warn("kafka disabled, events will be dropped")
	}

	esClient, err := es.NewClient(cfg)
	if err != nil {
		// search degrades, the shop keeps selling
		logger.Warn("elasticsearch unavailable", "error", err)
		esClient = nil
	}

	stripeClient := payment.NewStripeClient(cfg.STRIPE_SECRET_KEY, 0)

	jwtSecret := []byte(cfg.JWT_SECRET)
	refreshSecret := []byte(cfg.REFRESH_SECRET)

	cartStore := cartstore.NewStore(database)
	orderRepo := orders.NewRepo(database)

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), logging.RequestLogger(logger))

	deps := httpserver.Deps{
		DB:                database,
		AuthHandler:       &handlers.AuthHandler{DB: database, JWTSecret: jwtSecret, RefreshSecret: refreshSecret, Producer: prod},
		ProductHandler:    &handlers.ProductHandler{DB: database, Producer: prod, ES: esClient, Index: es.ProductIndex},
		CategoryHandler:   &handlers.CategoryHandler{DB: database},
		SearchHandler:     &handlers.SearchHandler{ES: esClient, Index: es.ProductIndex},
		NewsletterHandler: &handlers.NewsletterHandler{DB: database},
		OrderHandler:      &handlers.OrderHandler{Orders: orderRepo},
		CartHandler:       &carthandlers.CartHandler{Store: cartStore, Producer: prod},
		CheckoutHandler: &checkout.Handler{
			Cart:     cartStore,
			Orders:   orderRepo,
			Payments: stripeClient,
			Producer: prod,
			BaseURL:  cfg.APP_BASE_URL,
		},
		WebhookHandler: &webhook.Handler{
			Orders:   orderRepo,
			Cart:     cartStore,
			Producer: prod,
			Secret:   cfg.STRIPE_WEBHOOK_SECRET,
		},
		ServiceHandler: &service.TokenService{DB: database, RefreshSecret: refreshSecret, JWTSecret: jwtSecret},
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":" + cfg.PORT,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := database.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	}

	if err := prod.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	logger.Info("shutdown complete")
}
