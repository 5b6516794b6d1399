package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/globalan/gan-forms-cloud-functions/internal/account"
	"github.com/globalan/gan-forms-cloud-functions/internal/bootstrap"
	"github.com/globalan/gan-forms-cloud-functions/internal/config"
	"github.com/globalan/gan-forms-cloud-functions/internal/httpapi"
	"github.com/globalan/gan-forms-cloud-functions/internal/trigger"
	sharedauth "github.com/globalan/gan-forms-cloud-functions/pkg/auth"
	"github.com/globalan/gan-forms-cloud-functions/pkg/logging"
	"github.com/globalan/gan-forms-cloud-functions/pkg/metrics"
	sharedserver "github.com/globalan/gan-forms-cloud-functions/pkg/server"
)

const serviceName = "account-service"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Errorf("config error: %w", err))
	}

	logger := logging.NewLogger(serviceName)

	if err := metrics.Register(nil); err != nil {
		panic(fmt.Errorf("metrics registration: %w", err))
	}

	adapters, err := bootstrap.Init(ctx, cfg, logger)
	if err != nil {
		panic(fmt.Errorf("adapter init error: %w", err))
	}
	defer func() {
		if err := bootstrap.Close(); err != nil {
			logger.Error("adapter shutdown", slog.Any("error", err))
		}
	}()

	accountService, err := account.NewService(adapters.Identities, adapters.Profiles, adapters.Reconciliations, account.Options{
		RequiredRole: cfg.Auth.RequiredRole,
		Logger:       logger,
	})
	if err != nil {
		panic(fmt.Errorf("account service init error: %w", err))
	}
	if cfg.Auth.RequiredRole != "" {
		logger.Info("account operations restricted to role", slog.String("role", cfg.Auth.RequiredRole))
	} else {
		logger.Info("account operations open to any authenticated caller")
	}

	verifier, err := sharedauth.NewVerifier(sharedauth.Config{
		Mode:     cfg.Auth.Mode,
		JWKSURL:  cfg.Auth.JWKSURL,
		Audience: cfg.Auth.Audience,
		Issuer:   cfg.Auth.Issuer,
		Firebase: adapters.TokenVerifier,
	})
	if err != nil {
		panic(fmt.Errorf("auth verifier error: %w", err))
	}

	cleanup := trigger.NewHandler(adapters.Profiles, logger)

	var verifyPush func(http.Handler) http.Handler
	if cfg.PubSub.PushAudience != "" {
		verifyPush, err = sharedauth.PushMiddleware(sharedauth.PushConfig{
			Audience:            cfg.PubSub.PushAudience,
			ServiceAccountEmail: cfg.PubSub.PushServiceAccount,
		}, httpapi.Deny(logger))
		if err != nil {
			panic(fmt.Errorf("push verifier error: %w", err))
		}
	}

	router := sharedserver.NewRouter(serviceName, func(r chi.Router) {
		r.Handle("/metrics", promhttp.Handler())
		httpapi.RegisterGreetingRoutes(r, logger)
		if !httpapi.RegisterEventRoutes(r, cleanup, verifyPush, logger) {
			logger.Info("identity deletion push endpoint disabled; set PUSH_AUDIENCE to enable it")
		}

		r.Group(func(r chi.Router) {
			r.Use(sharedauth.Middleware(verifier, httpapi.Deny(logger)))

			httpapi.RegisterRoutes(r, accountService, logger)
		})
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sharedserver.Run(gctx, srv, logger)
	})
	g.Go(func() error {
		return cleanup.Run(gctx, adapters.Subscriber)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("service stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
