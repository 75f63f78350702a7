package grpc

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/gophblog/internal/common"
	"github.com/dmitrijs2005/gophblog/internal/server/apperr"
	"github.com/dmitrijs2005/gophblog/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func (s *GRPCServer) isPublic(method string) bool {
	for _, p := range s.publicPrefixes {
		if strings.HasPrefix(method, p) {
			return true
		}
	}
	return false
}

// authenticate reads the access_token metadata and stores the verified
// claim in the returned context.
func (s *GRPCServer) authenticate(ctx context.Context) (context.Context, error) {
	var accessToken string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(common.AccessTokenHeaderName); len(values) > 0 {
			accessToken = values[0]
		}
	}
	if accessToken == "" {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	claim, err := s.authenticator.Authenticate(ctx, accessToken)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, "authentication required")
	}

	return auth.WithClaim(ctx, claim), nil
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	if !s.isPublic(info.FullMethod) {
		var err error
		if ctx, err = s.authenticate(ctx); err != nil {
			return nil, err
		}
	}
	return handler(ctx, req)
}

type authStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (a *authStream) Context() context.Context { return a.ctx }

func (s *GRPCServer) streamAccessTokenInterceptor(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	if s.isPublic(info.FullMethod) {
		return handler(srv, ss)
	}
	ctx, err := s.authenticate(ss.Context())
	if err != nil {
		return err
	}
	return handler(srv, &authStream{ServerStream: ss, ctx: ctx})
}

// errorInterceptor converts service errors into statuses. Typed failures
// keep their kind; transient storage errors become Unavailable; anything
// else is logged and hidden behind a generic Internal.
func (s *GRPCServer) errorInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	resp, err := handler(ctx, req)
	if err == nil {
		return resp, nil
	}
	return nil, s.toStatus(ctx, info.FullMethod, err)
}

func (s *GRPCServer) toStatus(ctx context.Context, method string, err error) error {
	if ae, ok := apperr.As(err); ok {
		return ae.GRPCStatus().Err()
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	if errors.Is(err, common.ErrTransient) {
		s.logger.Warn(ctx, "transient failure", "method", method, "error", err)
		return status.Error(codes.Unavailable, "service temporarily unavailable")
	}
	s.logger.Error(ctx, "unhandled error", "method", method, "error", err)
	return status.Error(codes.Internal, "internal error")
}
