package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spooky-finn/liquidity-bridge/config"
	"github.com/spooky-finn/liquidity-bridge/httpapi"
	promclient "github.com/spooky-finn/liquidity-bridge/infrastructure/prometheus"
	"github.com/spooky-finn/liquidity-bridge/provider"
	"github.com/spooky-finn/liquidity-bridge/rpc"
	"github.com/spooky-finn/liquidity-bridge/usecase"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %s", err)
	}

	registry, err := cfg.MarketRegistry()
	if err != nil {
		log.Fatalf("failed to build market registry: %s", err)
	}

	metrics := promclient.NewMetrics()
	connManager := provider.NewConnectionManager(cfg, metrics)
	coordinator := usecase.NewSyncCoordinator(registry, connManager, metrics, usecase.SyncCoordinatorConfig{
		Interval:        cfg.Sync.Interval,
		FetchTimeout:    cfg.Sync.FetchTimeout,
		TrackedAmount:   cfg.Sync.TrackedAmount,
		HistoryCapacity: cfg.Sync.HistoryCapacity,
	})

	if err := coordinator.SelectMarket(cfg.Sync.DefaultMarket); err != nil {
		log.Fatalf("failed to select market %s: %s", cfg.Sync.DefaultMarket, err)
	}

	grpcServer := rpc.NewGRPCServer(rpc.NewServer(coordinator, &rpc.ValidationServiceConfig{
		AvailableMarkets: registry.Keys(),
	}))

	if !config.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}
	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           httpapi.NewRouter(httpapi.NewHandler(coordinator, metrics)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return coordinator.Run(ctx)
	})

	g.Go(func() error {
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			return err
		}
		log.Printf("grpc server listening on %s", cfg.Server.GRPCAddr)
		return grpcServer.Serve(lis)
	})

	g.Go(func() error {
		log.Printf("http server listening on %s", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		grpcServer.GracefulStop()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("liquidity bridge stopped: %s", err)
	}
	log.Println("liquidity bridge stopped")
}
