package gameserver

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/fiefdom/internal/game/action"
	"github.com/cory-johannsen/fiefdom/internal/game/chance"
	"github.com/cory-johannsen/fiefdom/internal/game/records"
	"github.com/cory-johannsen/fiefdom/internal/game/world"
	"github.com/cory-johannsen/fiefdom/internal/storage"
	"github.com/cory-johannsen/fiefdom/internal/storage/memory"
)

type stubResolver struct {
	mu       sync.Mutex
	calls    []any
	deadline bool
	out      action.Outcome
}

func (s *stubResolver) Resolve(ctx context.Context, roomID, playerID string, raw any) action.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, s.deadline = ctx.Deadline()
	s.calls = append(s.calls, raw)
	return s.out
}

// startRealmServer serves engine on a loopback listener and returns a client.
func startRealmServer(t *testing.T, engine Resolver) *RealmClient {
	t.Helper()
	svc := NewRealmService(engine, 2*time.Second, zaptest.NewLogger(t))

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := grpc.NewServer()
	RegisterRealmServer(srv, svc)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient(lis.Addr().String(),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewRealmClient(conn)
}

func TestRealmService_ForwardsAction(t *testing.T) {
	stub := &stubResolver{out: action.Outcome{Success: true, Data: &action.LocalResult{Success: true, Message: "ok"}}}
	client := startRealmServer(t, stub)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := client.ResolveAction(ctx, "r1", "alice", map[string]any{"type": "BUY", "resource": "wood", "quantity": 2})
	require.NoError(t, err)
	assert.True(t, out.Success)
	require.NotNil(t, out.Data)
	assert.Equal(t, "ok", out.Data.Message)

	require.Len(t, stub.calls, 1)
	raw, ok := stub.calls[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "BUY", raw["type"])
	assert.EqualValues(t, 2, raw["quantity"])
	assert.True(t, stub.deadline, "resolve must run under a deadline")
}

func TestRealmService_MissingFields(t *testing.T) {
	client := startRealmServer(t, &stubResolver{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.ResolveAction(ctx, "", "alice", "REST")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	svc := NewRealmService(&stubResolver{}, time.Second, nil)
	req, err := structpb.NewStruct(map[string]any{"room": "r1", "player": "alice"})
	require.NoError(t, err)
	_, err = svc.ResolveAction(ctx, req)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestRealmService_ResolvesAgainstEngine(t *testing.T) {
	store := memory.New()
	require.NoError(t, storage.Save(context.Background(), store, records.World("r1"), world.New()))
	engine, err := action.NewEngine(action.Deps{
		Store:  store,
		Roller: chance.NewRoller(chance.NewSequenceSource(chance.Never), nil),
	}, action.Options{})
	require.NoError(t, err)
	client := startRealmServer(t, engine)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := client.ResolveAction(ctx, "r1", "alice", "REST")
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, "You are already rested", out.Error)

	out, err = client.ResolveAction(ctx, "r1", "alice", "DANCE")
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, "Unknown action", out.Error)
}
