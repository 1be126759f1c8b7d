package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/auth"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/config"
	grpchealth "github.com/Mohamed-Hasan-MB/ecommerce-app/internal/grpc"
	h "github.com/Mohamed-Hasan-MB/ecommerce-app/internal/http"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/publisher"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/service"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/pkg/logger"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/pkg/metrics"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/pkg/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const serviceName = "ecommerce-app"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if cfg.UsesDevSecret() {
		log.Warn("JWT_SECRET not set, using the development secret")
	}

	ctx := context.Background()
	shutdownTracing, err := telemetry.Init(ctx, log, telemetry.Config{ServiceName: serviceName, Stdout: cfg.OtelStdout})
	if err != nil {
		log.Fatal("failed to init tracing", "error", err)
	}

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to open stores", "storage", cfg.Storage, "error", err)
	}

	m := metrics.New()
	tokens := auth.NewManager(cfg.JWTSecret, cfg.TokenTTL)

	authSvc := service.NewAuthService(st.users, tokens, log)
	catalogSvc := service.NewCatalogService(st.products, log)
	cartSvc := service.NewCartService(st.carts, st.products, st.cache, log)
	checkoutSvc := service.NewCheckoutService(cartSvc, st.products, st.orders, st.locker, cfg.CheckoutLockTTL, m, log)
	orderSvc := service.NewOrderService(st.orders, log)

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if err := authSvc.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			log.Fatal("failed to bootstrap admin user", "error", err)
		}
	}

	router := h.NewRouter(h.RouterConfig{
		RequestTimeout: cfg.RequestTimeout,
		AuthRateLimit:  cfg.AuthRateLimit,
	}, h.Services{
		Auth:     authSvc,
		Catalog:  catalogSvc,
		Carts:    cartSvc,
		Checkout: checkoutSvc,
		Orders:   orderSvc,
		Sessions: tokens,
	}, log, m)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           otelhttp.NewHandler(router, "http.server"),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	var writer publisher.MessageWriter = publisher.LogWriter{Log: log.With("component", "event_log")}
	if len(cfg.KafkaBrokers) > 0 {
		writer = publisher.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic)
		log.Info("publishing order events to kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}
	poller := publisher.NewOutboxPoller(st.outbox, writer, log, publisher.Options{Recorder: m})

	health := grpchealth.NewHealthReporter(st.checks, 10*time.Second, log)
	grpcServer := health.NewServer()
	lis, err := net.Listen("tcp", ":"+cfg.GRPCHealthPort)
	if err != nil {
		log.Fatal("failed to listen for grpc health", "port", cfg.GRPCHealthPort, "error", err)
	}

	bgCtx, stopBackground := context.WithCancel(ctx)
	pollerDone := make(chan struct{})
	go func() {
		defer close(pollerDone)
		poller.Run(bgCtx)
	}()
	go health.Run(bgCtx)

	go func() {
		log.Info("grpc health server listening", "port", cfg.GRPCHealthPort)
		if err := grpcServer.Serve(lis); err != nil {
			log.Error("grpc health server stopped", "error", err)
		}
	}()

	go func() {
		log.Info("http server starting", "port", cfg.HTTPPort, "storage", cfg.Storage)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server error", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	stopBackground()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http server forced to shutdown", "error", err)
	}
	grpcServer.GracefulStop()
	<-pollerDone

	if err := writer.Close(); err != nil {
		log.Warn("failed to close event writer", "error", err)
	}
	st.close(shutdownCtx, log)
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn("failed to flush traces", "error", err)
	}
	log.Info("server exited")
}
