package rpc

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/spooky-finn/liquidity-bridge/config"
	"github.com/spooky-finn/liquidity-bridge/usecase"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

var logger = log.New(os.Stdout, "[rpc] ", log.LstdFlags)

type server struct {
	coordinator       usecase.MarketMonitor
	validationService *ValidationService
}

func NewServer(coordinator usecase.MarketMonitor, conf *ValidationServiceConfig) *server {
	return &server{
		coordinator:       coordinator,
		validationService: NewValidationService(conf),
	}
}

// NewGRPCServer builds a grpc.Server with the MarketMonitor service registered.
func NewGRPCServer(srv MarketMonitorServer, opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(logUnary))

	gs := grpc.NewServer(opts...)
	RegisterMarketMonitorServer(gs, srv)
	return gs
}

func logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)

	if err != nil {
		logger.Printf("%s failed: %s", info.FullMethod, status.Convert(err).Message())
	} else if config.DebugMode {
		logger.Printf("%s took %s", info.FullMethod, time.Since(start))
	}
	return resp, err
}
