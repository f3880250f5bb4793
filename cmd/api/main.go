package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"registra.org/internal/audit"
	"registra.org/internal/auth"
	"registra.org/internal/config"
	"registra.org/internal/httpapi"
	"registra.org/internal/obs"
	"registra.org/internal/registry"
	"registra.org/internal/status"
	"registra.org/internal/store/pg"
)

var version = "dev"

func main() {
	log := obs.Logger()

	cfg, err := config.Load("")
	if err != nil {
		log.WithError(err).Fatal("load config")
	}
	if cfg.DatabaseDSN == "" {
		log.Fatal("REGISTRA_DATABASE_DSN is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("REGISTRA_JWT_SECRET is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := pg.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		log.WithError(err).Fatal("connect database")
	}
	defer store.Close()

	stamper, err := audit.NewStamper(cfg.StampZone)
	if err != nil {
		log.WithError(err).Fatal("build stamper")
	}
	catalog, err := status.NewCatalog(store)
	if err != nil {
		log.WithError(err).Fatal("build status catalog")
	}
	issuer, err := auth.NewIssuer(cfg.JWTSecret, store,
		auth.WithIssuerName(cfg.TokenIssuer),
		auth.WithTokenTTL(cfg.TokenTTL))
	if err != nil {
		log.WithError(err).Fatal("build token issuer")
	}
	resolver, err := auth.NewResolver(store)
	if err != nil {
		log.WithError(err).Fatal("build resolver")
	}
	aggregator, err := auth.NewAggregator(store)
	if err != nil {
		log.WithError(err).Fatal("build aggregator")
	}
	gate, err := auth.NewGate(store)
	if err != nil {
		log.WithError(err).Fatal("build permission gate")
	}
	svc, err := registry.NewService(store, catalog, stamper)
	if err != nil {
		log.WithError(err).Fatal("build registry service")
	}

	api := httpapi.New(httpapi.Deps{
		Issuer:        issuer,
		Resolver:      resolver,
		Aggregator:    aggregator,
		Gate:          gate,
		Registry:      svc,
		Statuses:      catalog,
		ReadyProbe:    store.Ping,
		Version:       version,
		RatePerSecond: cfg.RatePerSecond,
		RateBurst:     cfg.RateBurst,
		MaxBodyBytes:  cfg.MaxBodyBytes,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown")
	}
}
