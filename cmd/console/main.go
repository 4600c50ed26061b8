// Package main provides the investigation console entry point.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/docal-console/internal/api"
	"github.com/docal-console/internal/config"
	"github.com/docal-console/internal/investigate"
	"github.com/docal-console/internal/logging"
	"github.com/docal-console/internal/notify"
	"github.com/docal-console/internal/proxy"
	"github.com/docal-console/internal/retry"
	"github.com/docal-console/internal/rpc"
	"github.com/docal-console/internal/storage"
	"github.com/docal-console/internal/types"
	"github.com/docal-console/internal/wallet"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.GetGlobalLogger().WithError(err).Fatal("Failed to load configuration")
	}

	logging.InitGlobalLogger(
		logging.ParseLogLevel(cfg.Logging.Level),
		logging.ParseLogFormat(cfg.Logging.Format),
	)
	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"proxy":  cfg.Proxy.BaseURL,
		"rpc":    cfg.RPC.URL,
		"public": cfg.PublicURL,
	}).Info("Investigation console starting")

	// The wallet is optional: without one the console serves read-only
	// views and refuses submissions.
	signer, err := wallet.FromConfig(&cfg.Wallet)
	caller := ""
	switch {
	case err == nil:
		caller = signer.Address()
		logger.WithField("caller", caller).Info("Wallet loaded")
	case errors.Is(err, wallet.ErrNoWallet):
		logger.Warn("No wallet configured; submissions will be refused")
		signer = nil
	default:
		logger.WithError(err).Fatal("Failed to load wallet")
	}

	// Redis is optional as well; without it every subject load hits the
	// proxy.
	var cache *storage.SubjectCache
	if cfg.Redis.Enabled {
		redisCache, err := storage.NewRedisCache(&cfg.Redis)
		if err != nil {
			logger.WithError(err).Warn("Redis unavailable, running without cache")
		} else {
			defer redisCache.Close()
			cache = storage.NewSubjectCache(redisCache, cfg.Cache.TTL)
			logger.Info("Subject cache connected")
		}
	}

	proxyClient := proxy.NewClient(&cfg.Proxy)
	rpcClient := rpc.NewClient(&cfg.RPC)

	roster := investigate.NewRoster()
	gate := investigate.NewGate(proxyClient, caller)
	controller := investigate.NewController(investigate.ControllerConfig{
		Gateway:    proxyClient,
		Signer:     signer,
		Notifier:   notify.NewLogNotifier(logger),
		Roster:     roster,
		Logger:     logger,
		OnFirewall: gate.ForceClosed,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	warmUp(ctx, logger, proxyClient, roster, gate, caller)

	server := api.NewServer(&cfg.Server, api.ServerDeps{
		Controller: controller,
		Gate:       gate,
		Subjects:   proxyClient,
		Balances:   rpcClient,
		Cache:      cache,
		Caller:     caller,
		Logger:     logger,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.WithError(err).Fatal("Server failed")
		}
	case <-ctx.Done():
		logger.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Shutdown failed")
	}
	logger.Info("Console stopped")
}

// warmUp loads the initial subject table and schedule state, retrying while
// the proxy comes up. Failures are logged, not fatal: the console can start
// cold and the first request will fetch instead.
func warmUp(ctx context.Context, logger *logging.Logger, client *proxy.Client, roster *investigate.Roster, gate *investigate.Gate, caller string) {
	err := retry.WithBackoff(ctx, retry.DefaultConfig(), func(ctx context.Context, attempt int) error {
		rows, err := client.FetchSubjects(ctx)
		if err != nil {
			return err
		}
		roster.Replace(types.Sanitise(rows))
		return nil
	})
	if err != nil {
		logger.WithError(err).Warn("Subject warm-up failed; starting cold")
	} else {
		logger.WithField("subjects", roster.Len()).Info("Subject table loaded")
	}

	if caller == "" {
		return
	}
	if _, err := gate.Refresh(ctx); err != nil {
		logger.WithError(err).Warn("Schedule warm-up failed; gate stays closed until refreshed")
	}
}
