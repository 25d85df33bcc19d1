package grpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/flightlab-io/flightlab/pkg/log"
)

// UnaryServerLogging logs every unary call with its peer, code and latency,
// and puts a request-scoped logger into the handler's context.
func UnaryServerLogging(l log.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		rl := l.WithValues("method", info.FullMethod, "peer", peerAddr(ctx))

		resp, err := handler(log.NewContext(ctx, rl), req)

		kv := []any{"code", status.Code(err).String(), "latency", time.Since(start)}
		if err != nil {
			rl.Error(err, "RPC failed", kv...)
		} else {
			rl.Debug("RPC handled", kv...)
		}
		return resp, err
	}
}

// StreamServerLogging logs when a stream opens and closes.
func StreamServerLogging(l log.Logger) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		rl := l.WithValues("method", info.FullMethod, "peer", peerAddr(ss.Context()))
		rl.Info("Stream opened")

		err := handler(srv, &loggedStream{ServerStream: ss, ctx: log.NewContext(ss.Context(), rl)})

		kv := []any{"code", status.Code(err).String(), "duration", time.Since(start)}
		if err != nil && status.Code(err) != codes.Canceled {
			rl.Error(err, "Stream ended with error", kv...)
		} else {
			rl.Info("Stream closed", kv...)
		}
		return err
	}
}

type loggedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *loggedStream) Context() context.Context { return s.ctx }

func peerAddr(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return "unknown"
}
