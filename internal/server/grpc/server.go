// Package grpc exposes the server over gRPC: the blog posts service, the
// standard health service, server reflection, and interceptors that
// authenticate callers and translate service errors into gRPC statuses.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/gophblog/internal/logging"
	"github.com/dmitrijs2005/gophblog/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Authenticator verifies an access token.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (auth.Claim, error)
}

type GRPCServer struct {
	address       string
	authenticator Authenticator
	posts         PostService
	logger        logging.Logger
	health        *health.Server

	// publicPrefixes are method prefixes that skip the access token check.
	publicPrefixes []string
}

func NewGRPCServer(a string, l logging.Logger, authenticator Authenticator, posts PostService) *GRPCServer {
	return &GRPCServer{
		address:        a,
		authenticator:  authenticator,
		posts:          posts,
		logger:         l.With("module", "grpc_server"),
		health:         health.NewServer(),
		publicPrefixes: []string{
			"/grpc.health.v1.Health/",
			"/grpc.reflection.",
			methodListPublished,
		},
	}
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(s.errorInterceptor, s.accessTokenInterceptor),
		grpc.ChainStreamInterceptor(s.streamAccessTokenInterceptor),
	)

	srv.RegisterService(&postsServiceDesc, s)
	healthpb.RegisterHealthServer(srv, s.health)
	reflection.Register(srv)
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(postsServiceName, healthpb.HealthCheckResponse_SERVING)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
