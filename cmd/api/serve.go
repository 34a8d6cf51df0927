package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"almeone-contact-api/config"
	"almeone-contact-api/docs"
	v1 "almeone-contact-api/internal/delivery/http/v1"
	"almeone-contact-api/internal/usecase"
	"almeone-contact-api/pkg/captcha"
	"almeone-contact-api/pkg/logger"
	"almeone-contact-api/pkg/ratelimit"
	"almeone-contact-api/pkg/validation"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the contact API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx)
		},
	}
}

func runServer(ctx context.Context) error {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Setup Logger
	logger.InitWithLevel(cfg.LogLevel)
	log := logger.Log
	log.Info("Starting contact API",
		"port", cfg.Port,
		"environment", cfg.AppEnv,
		"email_provider", cfg.Email.Provider,
		"rate_limit_store", cfg.RateLimit.Store,
	)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// 3. Setup Rate Limit Store
	store, closeStore, err := newRateLimitStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	limiter := ratelimit.New(store, ratelimit.Config{
		Limit:  cfg.RateLimit.Max,
		Window: cfg.RateLimit.Window,
	}, log)

	// 4. Setup Email Dispatcher
	dispatcher, err := newDispatcher(cfg, log)
	if err != nil {
		return err
	}

	// 5. Setup UseCases
	verifier := captcha.NewVerifier(captcha.Config{
		Secret:    cfg.Captcha.Secret,
		VerifyURL: cfg.Captcha.VerifyURL,
		Strict:    cfg.Captcha.Strict,
	}, nil, log)
	contactUC := usecase.NewContactUsecase(validation.NewContactValidator(), limiter, verifier, dispatcher, log)
	healthUC := usecase.NewHealthUsecase(cfg.Version, cfg.AppEnv)

	// 6. Setup Router
	docs.SwaggerInfo.Version = cfg.Version
	router := v1.NewRouter(v1.RouterDeps{
		ContactUC: contactUC,
		HealthUC:  healthUC,
		Config:    cfg,
		Gatherer:  newMetricsRegistry(cfg),
		Logger:    log,
	})

	// 7. Start Server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Graceful Shutdown
	select {
	case err := <-serveErr:
		if err != nil {
			log.Error("Listen failed", "error", err)
			return err
		}
	case <-ctx.Done():
	}
	log.Info("Shutting down server...")

	// In-flight submissions may still be waiting on the email provider.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Email.Timeout+5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
		return err
	}

	log.Info("Server exiting")
	return nil
}
