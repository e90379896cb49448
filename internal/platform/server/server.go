package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName は gRPC ヘルスチェックで公開するサービス名です。
const ServiceName = "staffing.ledger.v1.AssignmentLedger"

const (
	defaultProbeInterval   = 10 * time.Second
	defaultShutdownTimeout = 15 * time.Second
	readHeaderTimeout      = 5 * time.Second
)

// Options はサーバー構築時の設定です。
type Options struct {
	GRPCAddr string
	HTTPAddr string
	// Handler は HTTP API のハンドラです。
	Handler http.Handler
	// Readiness はデータストアの疎通確認です。結果は gRPC ヘルスステータスへ反映されます。
	Readiness       func(ctx context.Context) error
	ProbeInterval   time.Duration
	ShutdownTimeout time.Duration
	Logger          *zap.Logger
	GRPCOptions     []grpc.ServerOption
}

// Server は HTTP API と gRPC ヘルスサービスのライフサイクルを管理します。
type Server struct {
	grpcAddr        string
	grpcServer      *grpc.Server
	health          *health.Server
	httpServer      *http.Server
	readiness       func(ctx context.Context) error
	probeInterval   time.Duration
	shutdownTimeout time.Duration
	logger          *zap.Logger
}

// New はサーバーを構築します。ヘルスステータスは最初の疎通確認まで NOT_SERVING です。
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	probeInterval := opts.ProbeInterval
	if probeInterval <= 0 {
		probeInterval = defaultProbeInterval
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}

	srv := grpc.NewServer(opts.GRPCOptions...)
	healthSrv := health.NewServer()
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	healthSrv.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(srv, healthSrv)

	s := &Server{
		grpcAddr:        opts.GRPCAddr,
		grpcServer:      srv,
		health:          healthSrv,
		readiness:       opts.Readiness,
		probeInterval:   probeInterval,
		shutdownTimeout: shutdownTimeout,
		logger:          logger,
	}
	if opts.Handler != nil && opts.HTTPAddr != "" {
		s.httpServer = &http.Server{
			Addr:              opts.HTTPAddr,
			Handler:           opts.Handler,
			ReadHeaderTimeout: readHeaderTimeout,
		}
	}
	return s
}

// Run は各サーバーを起動し、コンテキストがキャンセルされると停止します。
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.grpcAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.grpcAddr, err)
	}

	var httpLis net.Listener
	if s.httpServer != nil {
		httpLis, err = net.Listen("tcp", s.httpServer.Addr)
		if err != nil {
			_ = lis.Close()
			return fmt.Errorf("listen on %s: %w", s.httpServer.Addr, err)
		}
	}

	return s.serve(ctx, lis, httpLis)
}

func (s *Server) serve(ctx context.Context, grpcLis, httpLis net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("gRPC server listening", zap.String("addr", grpcLis.Addr().String()))
		if err := s.grpcServer.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("serve gRPC: %w", err)
		}
		return nil
	})

	if httpLis != nil {
		g.Go(func() error {
			s.logger.Info("HTTP server listening", zap.String("addr", httpLis.Addr().String()))
			if err := s.httpServer.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve HTTP: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		s.watchReadiness(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.shutdown()
		return nil
	})

	return g.Wait()
}

// watchReadiness は疎通確認を定期的に実行し、ヘルスステータスを更新します。
func (s *Server) watchReadiness(ctx context.Context) {
	s.probe(ctx)

	ticker := time.NewTicker(s.probeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.probe(ctx)
		}
	}
}

func (s *Server) probe(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	if s.readiness != nil {
		if err := s.readiness(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("readiness probe failed", zap.Error(err))
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

func (s *Server) shutdown() {
	s.health.Shutdown()

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Warn("HTTP server shutdown", zap.Error(err))
		}
	}

	s.grpcServer.GracefulStop()
	s.logger.Info("servers stopped")
}

// GracefulStop はサーバーを安全に停止します。
func (s *Server) GracefulStop() {
	s.shutdown()
}
