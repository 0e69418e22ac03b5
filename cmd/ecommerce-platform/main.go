package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/ecommerce-platform/internal/auth"
	"github.com/vasiliy-maslov/ecommerce-platform/internal/config"
	"github.com/vasiliy-maslov/ecommerce-platform/internal/db"
	apphttp "github.com/vasiliy-maslov/ecommerce-platform/internal/handler/http"
	"github.com/vasiliy-maslov/ecommerce-platform/internal/order"
	"github.com/vasiliy-maslov/ecommerce-platform/internal/product"
	"github.com/vasiliy-maslov/ecommerce-platform/internal/report"
	"github.com/vasiliy-maslov/ecommerce-platform/internal/user"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Logger = log.With().Str("service", "ecommerce-platform").Logger()

	log.Info().Msg("Starting ecommerce-platform...")

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	database, err := db.New(cfg.Postgres)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}

	userRepo := user.NewRepository(database.Pool)
	userSvc := user.NewService(userRepo)

	tokenRepo := auth.NewRepository(database.Pool)
	authSvc := auth.NewService(tokenRepo, userRepo, cfg.App.TokenTTL)

	productRepo := product.NewPostgresRepository(database.Pool)
	productSvc := product.NewService(productRepo)

	orderRepo := order.NewPostgresRepository(database.Pool)
	orderSvc := order.NewService(orderRepo, productRepo)

	reportRepo := report.NewPostgresRepository(database.SQL, product.LowStockThreshold)
	reportSvc := report.NewService(reportRepo)

	if cfg.App.AdminEmail != "" && cfg.App.AdminPassword != "" {
		bootCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := userSvc.EnsureAdmin(bootCtx, cfg.App.AdminEmail, cfg.App.AdminPassword)
		cancel()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to ensure bootstrap admin")
		}
	}

	router := apphttp.NewRouter(cfg.App.CORSOrigin, authSvc, apphttp.Handlers{
		Auth:     apphttp.NewAuthHandler(userSvc, authSvc),
		Users:    apphttp.NewUserHandler(userSvc),
		Products: apphttp.NewProductHandler(productSvc),
		Orders:   apphttp.NewOrderHandler(orderSvc),
		Reports:  apphttp.NewReportHandler(reportSvc, productSvc),
	})

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	<-stopCh

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server shutdown failed")
	}

	database.Close()

	log.Info().Msg("Server stopped gracefully.")
}
