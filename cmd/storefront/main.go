package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/gustavop-dev/rainy-project/internal/catalog"
	"github.com/gustavop-dev/rainy-project/internal/contact"
	"github.com/gustavop-dev/rainy-project/internal/credentials"
	"github.com/gustavop-dev/rainy-project/internal/gateway"
	"github.com/gustavop-dev/rainy-project/internal/platform/config"
	"github.com/gustavop-dev/rainy-project/internal/platform/observability"
	"github.com/gustavop-dev/rainy-project/internal/storefront"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	baseLogger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()
	logger := baseLogger.Named("storefront")

	gatewayOpts := []gateway.Option{
		gateway.WithTimeout(cfg.API.Timeout),
		gateway.WithLogger(logger.Named("gateway")),
		gateway.WithAPIPrefix(cfg.API.Prefix),
		gateway.WithCSRFCookieName(cfg.API.CSRFCookieName),
	}
	if store, err := credentials.NewFileStore(cfg.Credentials.File); err != nil {
		logger.Warn("credentials store disabled", zap.Error(err))
	} else {
		gatewayOpts = append(gatewayOpts, gateway.WithTokenStore(store))
	}

	client, err := gateway.New(cfg.API.BaseURL, gatewayOpts...)
	if err != nil {
		logger.Fatal("failed to initialise gateway", zap.Error(err))
	}

	store := catalog.New(client,
		catalog.WithLogger(logger.Named("catalog")),
		catalog.WithDimensionKeys(cfg.Catalog.DimensionImageKeys...),
		catalog.WithDevMode(cfg.DevMode()),
	)
	contactService := contact.NewService(client, contact.WithLogger(logger.Named("contact")))

	router := storefront.NewRouter(
		storefront.NewHandlers(store, contactService, cfg.Storefront.Currency),
		storefront.WithRouterLogger(logger.Named("http")),
		storefront.WithCSRFCookieName(cfg.API.CSRFCookieName),
	)

	server := &http.Server{
		Addr:              cfg.Storefront.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Storefront.ReadTimeout,
		WriteTimeout:      cfg.Storefront.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.With(zap.String("addr", server.Addr), zap.String("api", client.BaseURL()))
	go func() {
		serverLogger.Info("rainy storefront listening", zap.Bool("dev_mode", cfg.DevMode()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
