package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"giftdrive-storefront/internal/backend"
	"giftdrive-storefront/internal/config"
	"giftdrive-storefront/internal/db"
	"giftdrive-storefront/internal/events"
	"giftdrive-storefront/internal/httpserver"
	"giftdrive-storefront/internal/logging"
	"giftdrive-storefront/internal/payment"
	checkoutrepo "giftdrive-storefront/internal/repository/checkout"
	cartsvc "giftdrive-storefront/internal/service/cart"
	checkoutsvc "giftdrive-storefront/internal/service/checkout"
	needsvc "giftdrive-storefront/internal/service/need"
	"go.uber.org/zap"
)

type eventPublisher interface {
	PublishCheckoutConfirmed(ctx context.Context, ev events.CheckoutConfirmed) error
	Close() error
}

func main() {
	cfg := config.FromEnv()
	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	dbpool, err := db.Connect(ctx, cfg.DBConnString, logger)
	if err != nil {
		logger.Fatal("connect to db", zap.Error(err))
	}
	defer dbpool.Close()

	api, err := backend.New(backend.Config{BaseURL: cfg.BackendBaseURL, Timeout: cfg.BackendTimeout}, logger)
	if err != nil {
		logger.Fatal("init backend client", zap.Error(err))
	}

	var publisher eventPublisher = events.NopPublisher{}
	if cfg.RabbitMQURL != "" {
		p, err := events.Dial(cfg.RabbitMQURL, logger)
		if err != nil {
			logger.Fatal("connect to rabbitmq", zap.Error(err))
		}
		publisher = p
	} else {
		logger.Warn("RABBITMQ_URL not set, checkout events are not published")
	}
	defer func() { _ = publisher.Close() }()

	provider := payment.NewStripeConfirmer(cfg.StripeSecretKey, cfg.StripeReturnURL)
	if provider == nil {
		logger.Warn("STRIPE_SECRET_KEY not set, payment confirmation is unavailable")
	}

	sessions := cartsvc.NewRegistry(api, cfg.CartSessionTTL, logger)
	go sessions.RunSweeper(ctx, cfg.CartSessionTTL/2)

	checkoutService := checkoutsvc.New(
		checkoutrepo.NewPostgres(dbpool),
		api,
		payment.NewBridge(provider, logger),
		publisher,
		logger,
	)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		Sessions:    sessions,
		Needs:       needsvc.NewRefresher(api, logger),
		Checkout:    checkoutService,
		CORSOrigins: cfg.CORSAllowedOrigins,
	})
	if err != nil {
		logger.Fatal("init server", zap.Error(err))
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		logger.Error("server error", zap.Error(err))
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	} else {
		logger.Info("server stopped")
	}
}
