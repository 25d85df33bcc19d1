package grpc

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"

	v1 "github.com/flightlab-io/flightlab/api/v1"
	"github.com/flightlab-io/flightlab/internal/master/service"
	grpcmw "github.com/flightlab-io/flightlab/internal/pkg/middleware/grpc"
	"github.com/flightlab-io/flightlab/pkg/log"
	"github.com/flightlab-io/flightlab/pkg/options"
)

// Server exposes the ControlService to clients.
type Server struct {
	server  *grpc.Server
	svc     *service.ControlService
	options *options.GrpcOptions
	log     log.Logger
}

func NewServer(opts *options.GrpcOptions, svc *service.ControlService, l log.Logger) *Server {
	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(grpcmw.UnaryServerLogging(l)),
		grpc.ChainStreamInterceptor(grpcmw.StreamServerLogging(l)),
		// Half-open client connections must not keep watch streams alive.
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    30 * time.Second,
			Timeout: 10 * time.Second,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             10 * time.Second,
			PermitWithoutStream: true,
		}),
	)
	v1.RegisterControlServiceServer(s, svc)

	return &Server{
		server:  s,
		svc:     svc,
		options: opts,
		log:     l,
	}
}

func (s *Server) Start(ctx context.Context) error {
	lis, err := net.Listen(s.options.Network, s.options.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, lis)
}

// Serve accepts connections on lis until ctx is done. The ControlService is
// stopped before the graceful stop so open watch streams return.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	s.log.Info("Starting gRPC Server", "addr", lis.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(lis); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.svc.Stop()
		s.server.GracefulStop()
		return nil
	}
}
