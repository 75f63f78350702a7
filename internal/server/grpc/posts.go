package grpc

import (
	"context"
	"encoding/json"

	"github.com/dmitrijs2005/gophblog/internal/server/apperr"
	"github.com/dmitrijs2005/gophblog/internal/server/auth"
	"github.com/dmitrijs2005/gophblog/internal/server/models"
	"github.com/dmitrijs2005/gophblog/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// PostService is the part of services.PostService served over gRPC.
type PostService interface {
	Create(ctx context.Context, in services.CreatePostInput) (*models.Post, error)
	FindPublished(ctx context.Context) ([]models.Post, error)
	FindByAuthor(ctx context.Context, authorID int64) ([]models.Post, error)
	Update(ctx context.Context, id, actingUserID int64, in services.UpdatePostInput) (*models.Post, error)
	Delete(ctx context.Context, id, actingUserID int64) error
}

// Posts travel as google.protobuf.Struct with the same field names as the
// HTTP JSON bodies, so no generated message types are needed.
const (
	postsServiceName = "gophblog.v1.Posts"

	methodListPublished = "/" + postsServiceName + "/ListPublished"
	methodListMine      = "/" + postsServiceName + "/ListMine"
	methodCreatePost    = "/" + postsServiceName + "/CreatePost"
	methodUpdatePost    = "/" + postsServiceName + "/UpdatePost"
	methodDeletePost    = "/" + postsServiceName + "/DeletePost"
)

type postsServer interface {
	ListPublished(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ListMine(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	CreatePost(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdatePost(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeletePost(context.Context, *structpb.Struct) (*emptypb.Empty, error)
}

var _ postsServer = (*GRPCServer)(nil)

var postsServiceDesc = grpc.ServiceDesc{
	ServiceName: postsServiceName,
	HandlerType: (*postsServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(methodListPublished, "ListPublished", newEmpty, func(s postsServer, ctx context.Context, in proto.Message) (proto.Message, error) {
			return s.ListPublished(ctx, in.(*emptypb.Empty))
		}),
		unaryMethod(methodListMine, "ListMine", newEmpty, func(s postsServer, ctx context.Context, in proto.Message) (proto.Message, error) {
			return s.ListMine(ctx, in.(*emptypb.Empty))
		}),
		unaryMethod(methodCreatePost, "CreatePost", newStruct, func(s postsServer, ctx context.Context, in proto.Message) (proto.Message, error) {
			return s.CreatePost(ctx, in.(*structpb.Struct))
		}),
		unaryMethod(methodUpdatePost, "UpdatePost", newStruct, func(s postsServer, ctx context.Context, in proto.Message) (proto.Message, error) {
			return s.UpdatePost(ctx, in.(*structpb.Struct))
		}),
		unaryMethod(methodDeletePost, "DeletePost", newStruct, func(s postsServer, ctx context.Context, in proto.Message) (proto.Message, error) {
			return s.DeletePost(ctx, in.(*structpb.Struct))
		}),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gophblog/v1/posts",
}

func newEmpty() proto.Message  { return new(emptypb.Empty) }
func newStruct() proto.Message { return new(structpb.Struct) }

// unaryMethod builds a MethodDesc that decodes the request, then runs call
// through the server's interceptor chain.
func unaryMethod(fullMethod, name string, newReq func() proto.Message,
	call func(postsServer, context.Context, proto.Message) (proto.Message, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := newReq()
			if err := dec(in); err != nil {
				return nil, err
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(postsServer), ctx, req.(proto.Message))
			}
			if interceptor == nil {
				return handler(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			return interceptor(ctx, in, info, handler)
		},
	}
}

type postIDRequest struct {
	ID int64 `json:"id"`
}

type updatePostRequest struct {
	ID int64 `json:"id"`
	services.UpdatePostInput
}

func malformedRequest() error {
	return apperr.Validation(apperr.FieldError{Field: "request", Message: "malformed request"})
}

func invalidID() error {
	return apperr.Validation(apperr.FieldError{Field: "id", Message: "must be a positive integer"})
}

// decodeStruct maps a Struct onto dst using dst's JSON field names.
func decodeStruct(in *structpb.Struct, dst any) error {
	b, err := protojson.Marshal(in)
	if err != nil {
		return malformedRequest()
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return malformedRequest()
	}
	return nil
}

// encodeStruct renders v as a Struct using its JSON field names.
func encodeStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, err
	}
	return out, nil
}

func encodePosts(posts []models.Post) (*structpb.Struct, error) {
	if posts == nil {
		posts = []models.Post{}
	}
	return encodeStruct(map[string]any{"posts": posts})
}

// claimFrom returns the identity stored by the access token interceptor.
func claimFrom(ctx context.Context) (auth.Claim, error) {
	c, ok := auth.ClaimFromContext(ctx)
	if !ok {
		return auth.Claim{}, apperr.Unauthenticated(nil)
	}
	return c, nil
}

func (s *GRPCServer) ListPublished(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	posts, err := s.posts.FindPublished(ctx)
	if err != nil {
		return nil, err
	}
	return encodePosts(posts)
}

func (s *GRPCServer) ListMine(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	c, err := claimFrom(ctx)
	if err != nil {
		return nil, err
	}
	posts, err := s.posts.FindByAuthor(ctx, c.UserID)
	if err != nil {
		return nil, err
	}
	return encodePosts(posts)
}

func (s *GRPCServer) CreatePost(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	c, err := claimFrom(ctx)
	if err != nil {
		return nil, err
	}

	var in services.CreatePostInput
	if err := decodeStruct(req, &in); err != nil {
		return nil, err
	}
	in.AuthorID = c.UserID

	post, err := s.posts.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	return encodeStruct(post)
}

func (s *GRPCServer) UpdatePost(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	c, err := claimFrom(ctx)
	if err != nil {
		return nil, err
	}

	var in updatePostRequest
	if err := decodeStruct(req, &in); err != nil {
		return nil, err
	}
	if in.ID <= 0 {
		return nil, invalidID()
	}

	post, err := s.posts.Update(ctx, in.ID, c.UserID, in.UpdatePostInput)
	if err != nil {
		return nil, err
	}
	return encodeStruct(post)
}

func (s *GRPCServer) DeletePost(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	c, err := claimFrom(ctx)
	if err != nil {
		return nil, err
	}

	var in postIDRequest
	if err := decodeStruct(req, &in); err != nil {
		return nil, err
	}
	if in.ID <= 0 {
		return nil, invalidID()
	}

	if err := s.posts.Delete(ctx, in.ID, c.UserID); err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "post deleted over gRPC", "post_id", in.ID, "user_id", c.UserID)
	return &emptypb.Empty{}, nil
}
