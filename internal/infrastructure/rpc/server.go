package rpc

import (
	"context"
	"net"

	"github.com/erp/syncbridge/internal/infrastructure/logger"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

// ServerConfig holds inbound server tuning
type ServerConfig struct {
	Workers              int // stream worker goroutines, 0 uses one goroutine per stream
	MaxConcurrentStreams int // 0 leaves the gRPC default
}

// Server wraps a grpc.Server with the bridge's interceptor chain
type Server struct {
	grpc   *grpc.Server
	logger *zap.Logger
}

// NewServer creates a gRPC server with request logging and panic recovery.
// Recovery runs innermost so a recovered panic is still logged as codes.Internal.
func NewServer(cfg ServerConfig, log *zap.Logger, opts ...grpc.ServerOption) *Server {
	serverOpts := []grpc.ServerOption{
		// every request is decoded as JSON whatever content subtype the peer announces
		grpc.ForceServerCodec(jsonCodec{}),
		grpc.ChainUnaryInterceptor(
			logger.UnaryServerInterceptor(log),
			logger.RecoveryUnaryInterceptor(log),
		),
	}
	if cfg.Workers > 0 {
		serverOpts = append(serverOpts, grpc.NumStreamWorkers(uint32(cfg.Workers)))
	}
	if cfg.MaxConcurrentStreams > 0 {
		serverOpts = append(serverOpts, grpc.MaxConcurrentStreams(uint32(cfg.MaxConcurrentStreams)))
	}
	serverOpts = append(serverOpts, opts...)

	return &Server{
		grpc:   grpc.NewServer(serverOpts...),
		logger: log,
	}
}

// RegisterService implements grpc.ServiceRegistrar
func (s *Server) RegisterService(desc *grpc.ServiceDesc, impl any) {
	s.grpc.RegisterService(desc, impl)
}

// Serve accepts connections on lis until Stop or GracefulStop is called
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("gRPC server starting", zap.String("addr", lis.Addr().String()))
	return s.grpc.Serve(lis)
}

// ListenAndServe binds address with fallbacks and serves on it
func (s *Server) ListenAndServe(address string) error {
	lis, bound, err := Listen(address)
	if err != nil {
		return err
	}
	if bound != address {
		s.logger.Warn("gRPC listen address fell back",
			zap.String("requested", address),
			zap.String("bound", bound),
		)
	}
	return s.Serve(lis)
}

// Shutdown stops accepting calls and waits for in-flight ones until ctx is done,
// then closes remaining connections.
func (s *Server) Shutdown(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("gRPC graceful stop timed out, forcing stop")
		s.grpc.Stop()
		<-done
	}
}
