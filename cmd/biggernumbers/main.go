package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Shawarmaa/BiggerNumbers/internal/config"
	apphttp "github.com/Shawarmaa/BiggerNumbers/internal/http"
	applog "github.com/Shawarmaa/BiggerNumbers/internal/log"
	"github.com/Shawarmaa/BiggerNumbers/internal/plaid"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(cfg.LogLevel),
		Component: applog.ComponentApp,
	})
	applog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", applog.FieldError, err.Error())
		os.Exit(1)
	}

	upstream, err := plaid.New(plaid.Config{
		Environment:  plaid.Environment(cfg.PlaidEnv),
		ClientID:     cfg.PlaidClientID,
		Secret:       cfg.PlaidSecret,
		ClientName:   cfg.PlaidClientName,
		Products:     cfg.PlaidProducts,
		CountryCodes: cfg.PlaidCountryCodes,
		Language:     cfg.PlaidLanguage,
		Timeout:      cfg.PlaidTimeout,
	}, logger)
	if err != nil {
		logger.Error("failed to initialize plaid client", applog.FieldError, err.Error(), applog.FieldEnv, cfg.PlaidEnv)
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, upstream, apphttp.Options{
		LookbackDays:   cfg.LookbackDays,
		CacheTTL:       cfg.CacheTTL,
		CacheSize:      cfg.CacheSize,
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         logger,
	})

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 60 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("shutdown signal received", applog.FieldOperation, applog.OpShutdown, "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", applog.FieldError, err.Error())
		}
		cancel()
	}()

	logger.Info("starting server",
		applog.FieldOperation, applog.OpStartup,
		"port", cfg.Port,
		applog.FieldEnv, cfg.PlaidEnv,
		applog.FieldWindowDays, cfg.LookbackDays)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", applog.FieldError, err.Error(), "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("server stopped gracefully")
}
