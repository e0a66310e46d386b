package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingGates struct{ DefaultGates }

func (blockingGates) CanJoin(ctx context.Context, _ Conn, _ Action) Decision {
	<-ctx.Done()
	return DecisionPermitted
}

type denyPeers struct{ DefaultGates }

func (denyPeers) CanPeer(context.Context, Conn, Action) Decision {
	return DecisionDeclined
}

func await(t *testing.T, f *Future[Decision]) Decision {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return AwaitDecision(ctx, f)
}

func TestDefaultGates(t *testing.T) {
	s := newTestStore(t, Config{})
	ctx := context.Background()
	c := Conn{SocketID: "s1", UserID: "u1"}

	assert.Equal(t, DecisionPermitted, await(t, s.CanJoin(ctx, c, Action{Room: "r1"})))
	assert.Equal(t, DecisionPermitted, await(t, s.CanChat(ctx, c, Action{Room: "r1", Message: "hi"})))
	assert.Equal(t, DecisionDeclined, await(t, s.CanChat(ctx, c, Action{Room: "r1", Message: " \n\t"})))
	assert.Equal(t, DecisionPermitted, await(t, s.CanPeer(ctx, c, Action{Target: "u2"})))
}

func TestGatePolicy_Replaced(t *testing.T) {
	s := newTestStore(t, Config{}, WithGatePolicy(denyPeers{}))
	ctx := context.Background()

	d := await(t, s.CanPeer(ctx, Conn{UserID: "u1"}, Action{Target: "u2"}))
	assert.Equal(t, DecisionDeclined, d)
	assert.False(t, d.Permitted())
	assert.Equal(t, "declined", d.String())
}

func TestGatePolicy_TimesOut(t *testing.T) {
	s := newTestStore(t, Config{}, WithGatePolicy(blockingGates{}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	d := AwaitDecision(ctx, s.CanJoin(ctx, Conn{UserID: "u1"}, Action{Room: "r1"}))
	assert.Equal(t, DecisionTimedOut, d)
	assert.False(t, d.Permitted())
	assert.Equal(t, "timed_out", d.String())
}

func TestDecision_ZeroValueIsTimedOut(t *testing.T) {
	var d Decision
	assert.Equal(t, DecisionTimedOut, d)
	assert.True(t, DecisionPermitted.Permitted())
	assert.Equal(t, "permitted", DecisionPermitted.String())
}

func TestFuture(t *testing.T) {
	release := make(chan struct{})
	f := Async(func() int {
		<-release
		return 42
	})

	select {
	case <-f.Done():
		t.Fatal("future resolved before its function returned")
	default:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	_, err := f.Await(ctx)
	cancel()
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)

	v, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}
