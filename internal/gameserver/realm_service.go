package gameserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/fiefdom/internal/game/action"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "fiefdom.realm.v1.RealmService"

const resolveMethod = "/" + ServiceName + "/ResolveAction"

// Resolver resolves one action; satisfied by *action.Engine.
type Resolver interface {
	Resolve(ctx context.Context, roomID, playerID string, raw any) action.Outcome
}

// RealmServer is the server API for the realm service.
type RealmServer interface {
	// ResolveAction takes {room, player, action} where action is a kind
	// string or an object {type, ...payload}, and returns the Outcome.
	ResolveAction(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// RealmService serves ResolveAction over gRPC.
type RealmService struct {
	engine  Resolver
	timeout time.Duration
	logger  *zap.Logger
}

// NewRealmService creates a RealmService.
//
// Precondition: engine must be non-nil; timeout > 0.
func NewRealmService(engine Resolver, timeout time.Duration, logger *zap.Logger) *RealmService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RealmService{engine: engine, timeout: timeout, logger: logger}
}

// ResolveAction validates the envelope and runs the action under the
// configured timeout. Game-level failures are returned in the outcome, not
// as gRPC errors.
func (s *RealmService) ResolveAction(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.AsMap()
	roomID, _ := fields["room"].(string)
	playerID, _ := fields["player"].(string)
	if roomID == "" || playerID == "" {
		return nil, status.Error(codes.InvalidArgument, "room and player are required")
	}
	raw, ok := fields["action"]
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "action is required")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	out := s.engine.Resolve(ctx, roomID, playerID, raw)

	resp, err := outcomeStruct(out)
	if err != nil {
		s.logger.Error("encoding outcome", zap.Error(err))
		return nil, status.Error(codes.Internal, "encoding outcome")
	}
	return resp, nil
}

// outcomeStruct converts an Outcome to a Struct through its JSON form.
func outcomeStruct(out action.Outcome) (*structpb.Struct, error) {
	data, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

func resolveHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RealmServer).ResolveAction(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: resolveMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RealmServer).ResolveAction(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// RealmServiceDesc describes the realm service for grpc.Server registration.
var RealmServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RealmServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ResolveAction", Handler: resolveHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "fiefdom/realm/v1/realm.proto",
}

// RegisterRealmServer registers srv on s.
func RegisterRealmServer(s grpc.ServiceRegistrar, srv RealmServer) {
	s.RegisterService(&RealmServiceDesc, srv)
}

// RealmClient calls the realm service.
type RealmClient struct {
	cc grpc.ClientConnInterface
}

// NewRealmClient wraps a client connection.
func NewRealmClient(cc grpc.ClientConnInterface) *RealmClient {
	return &RealmClient{cc: cc}
}

// ResolveAction sends one action and decodes the outcome.
func (c *RealmClient) ResolveAction(ctx context.Context, roomID, playerID string, act any, opts ...grpc.CallOption) (action.Outcome, error) {
	req, err := structpb.NewStruct(map[string]any{"room": roomID, "player": playerID, "action": act})
	if err != nil {
		return action.Outcome{}, fmt.Errorf("encoding request: %w", err)
	}
	resp := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, resolveMethod, req, resp, opts...); err != nil {
		return action.Outcome{}, err
	}
	data, err := resp.MarshalJSON()
	if err != nil {
		return action.Outcome{}, fmt.Errorf("decoding outcome: %w", err)
	}
	var out action.Outcome
	if err := json.Unmarshal(data, &out); err != nil {
		return action.Outcome{}, fmt.Errorf("decoding outcome: %w", err)
	}
	return out, nil
}
