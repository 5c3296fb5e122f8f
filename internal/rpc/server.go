package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/dishankoza/svcsync/internal/discovery"
	"github.com/dishankoza/svcsync/internal/dispatch"
	"github.com/dishankoza/svcsync/internal/hlc"
	"github.com/dishankoza/svcsync/internal/registry"
)

type server struct {
	registry   *registry.Reconciler
	dispatcher *dispatch.Dispatcher
	clock      *hlc.Clock
	log        *zap.Logger
}

// NewServer returns a grpc.Server with the registry service and reflection
// registered and a zap logging interceptor installed.
func NewServer(r *registry.Reconciler, d *dispatch.Dispatcher, clock *hlc.Clock, log *zap.Logger, opts ...grpc.ServerOption) *grpc.Server {
	if log == nil {
		log = zap.NewNop()
	}
	opts = append(opts, grpc.ChainUnaryInterceptor(loggingInterceptor(log)))
	s := grpc.NewServer(opts...)
	RegisterRegistryServer(s, &server{registry: r, dispatcher: d, clock: clock, log: log})
	reflection.Register(s)
	return s
}

func (s *server) Lookup(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, dispatch.ErrEmptyName.Error())
	}
	svc, err := s.registry.Lookup(ctx, req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(svc)
}

func (s *server) Touch(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	res, err := s.dispatcher.Touch(ctx, req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(res)
}

func (s *server) Now(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error) {
	return wrapperspb.String(s.clock.Now().Encode()), nil
}

func (s *server) Observe(_ context.Context, req *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	remote, err := hlc.ParseTimestamp(req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	merged, err := s.clock.Observe(remote)
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.String(merged.Encode()), nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, discovery.ErrUnknownService):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, dispatch.ErrEmptyName), errors.Is(err, hlc.ErrMalformedTimestamp),
		errors.Is(err, hlc.ErrCounterRange):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func fromStruct(s *structpb.Struct, v any) error {
	data, err := protojson.Marshal(s)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func loggingInterceptor(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		log.Debug("grpc request",
			zap.String("method", info.FullMethod),
			zap.Stringer("code", status.Code(err)),
			zap.Duration("elapsed", time.Since(start)))
		return resp, err
	}
}
