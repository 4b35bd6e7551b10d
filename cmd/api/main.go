package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"punchout-catalog/internal/buyerdir"
	"punchout-catalog/internal/catalog"
	"punchout-catalog/internal/config"
	"punchout-catalog/internal/db"
	"punchout-catalog/internal/httpserver"
	"punchout-catalog/internal/logger"
	"punchout-catalog/internal/registry"
	sessionrepo "punchout-catalog/internal/repository/session"
	cartsvc "punchout-catalog/internal/service/cart"
	"punchout-catalog/internal/service/punchout"
	sessionsvc "punchout-catalog/internal/service/session"
	transfersvc "punchout-catalog/internal/service/transfer"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	zlog := logger.New(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output)
	defer zlog.Sync()

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.Database.DSN)
	if err != nil {
		zlog.Fatal("connect to db", zap.Error(err))
	}
	defer dbpool.Close()

	reg, err := registry.Load(cfg.Registry.Path)
	if err != nil {
		zlog.Fatal("load buyer registry", zap.Error(err))
	}
	zlog.Info("buyer registry loaded", zap.Strings("buyers", reg.Identities()))

	var verifier sessionsvc.Verifier
	if cfg.Directory.Mode == "static" {
		verifier = buyerdir.NewStatic(reg, cfg.Session.TTL)
		zlog.Warn("static token verification enabled; development use only")
	} else {
		verifier = buyerdir.NewClient(cfg.Directory.BaseURL, cfg.Directory.Timeout, cfg.Directory.RetryDelay, zlog)
	}

	var resolver cartsvc.ProductResolver
	if cfg.Catalog.BaseURL != "" {
		resolver = catalog.NewClient(cfg.Catalog.BaseURL, cfg.Catalog.Timeout)
	}

	repo := sessionrepo.NewPostgres(dbpool)
	sessions := sessionsvc.New(repo, verifier, reg, cfg.Session.TTL, zlog)
	carts := cartsvc.New(sessions, repo, resolver, zlog)
	transfers := transfersvc.New(reg, cfg.Transfer.SupplierIdentity, cfg.Transfer.Currency, zlog)
	controller := punchout.New(sessions, carts, transfers, repo, zlog)

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	if cfg.Session.SweepEnabled {
		go controller.RunExpirySweep(sweepCtx, cfg.Session.SweepInterval)
	}

	srv := httpserver.New(cfg.HTTP.Addr, zlog, dbpool, controller, cfg.HTTP.CORSAllowOrigins)

	serverErr := make(chan error, 1)
	go func() {
		zlog.Info("starting http server", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		zlog.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		zlog.Error("server error", zap.Error(err))
	}
	stopSweep()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("graceful shutdown failed", zap.Error(err))
	} else {
		zlog.Info("server stopped")
	}
}
