package chat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aequiternus/rtcs.io-storage/internal/app/store"
	"github.com/Aequiternus/rtcs.io-storage/internal/app/user"
	"github.com/Aequiternus/rtcs.io-storage/internal/pkg/errs"
	"github.com/Aequiternus/rtcs.io-storage/internal/pkg/metrics"
)

// stallingJoins holds every join decision until release is closed.
type stallingJoins struct {
	store.DefaultGates
	release chan struct{}
}

func (g stallingJoins) CanJoin(context.Context, store.Conn, store.Action) store.Decision {
	<-g.release
	return store.DecisionPermitted
}

type declineAll struct{}

func (declineAll) CanJoin(context.Context, store.Conn, store.Action) store.Decision {
	return store.DecisionDeclined
}
func (declineAll) CanChat(context.Context, store.Conn, store.Action) store.Decision {
	return store.DecisionDeclined
}
func (declineAll) CanPeer(context.Context, store.Conn, store.Action) store.Decision {
	return store.DecisionDeclined
}

type hubEnv struct {
	hub   *Hub
	store *store.Store
	gw    *metrics.Gateway
	srv   *httptest.Server
}

func newHubEnv(t *testing.T, policy store.GatePolicy) *hubEnv {
	t.Helper()

	st := store.New(store.Config{}, store.WithGatePolicy(policy))
	gw := metrics.NewGateway()
	hub := NewHub(st, gw, WithDecisionTimeout(50*time.Millisecond))

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		id := r.URL.Query().Get("user")
		hub.Serve(conn, Grant{User: user.User{ID: id, Public: user.Profile{Name: id}}})
	}))

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = hub.Shutdown(ctx)
		srv.Close()
		st.Close()
	})

	return &hubEnv{hub: hub, store: st, gw: gw, srv: srv}
}

func (e *hubEnv) dial(t *testing.T, userID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/?user=" + userID
	conn, res, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	_ = res.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readType(t *testing.T, conn *websocket.Conn, typ MessageType) Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var env Envelope
		require.NoError(t, conn.ReadJSON(&env))
		if env.Type == typ {
			return env
		}
	}
}

func TestHub_DecisionTimeout(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	e := newHubEnv(t, stallingJoins{release: release})
	conn := e.dial(t, "u1")
	readType(t, conn, TypeInit)

	require.NoError(t, conn.WriteJSON(Frame{Type: TypeJoin, Room: "r1"}))
	env := readType(t, conn, TypeError)
	require.NotNil(t, env.Error)
	assert.Equal(t, errs.ErrDecisionTimeout, env.Error.Code)

	_, member := e.store.GetUserRooms("u1")
	assert.False(t, member)
	assert.Equal(t, float64(1), testutil.ToFloat64(e.gw.Decisions.WithLabelValues("join", "timed_out")))
}

func TestHub_DeclinedActions(t *testing.T) {
	e := newHubEnv(t, declineAll{})
	conn := e.dial(t, "u1")
	readType(t, conn, TypeInit)

	require.NoError(t, conn.WriteJSON(Frame{Type: TypeJoin, Room: "r1"}))
	assert.Equal(t, errs.ErrJoinDeclined, readType(t, conn, TypeError).Error.Code)

	require.NoError(t, conn.WriteJSON(Frame{Type: TypePeer, Target: "u1", Message: "x"}))
	assert.Equal(t, errs.ErrPeerDeclined, readType(t, conn, TypeError).Error.Code)

	assert.Equal(t, float64(1), testutil.ToFloat64(e.gw.Frames.WithLabelValues("join")))
}

func TestHub_MultipleSocketsShareMembership(t *testing.T) {
	e := newHubEnv(t, store.DefaultGates{})

	first := e.dial(t, "u1")
	readType(t, first, TypeInit)
	second := e.dial(t, "u1")
	readType(t, second, TypeInit)

	require.Eventually(t, func() bool {
		return len(e.store.GetSockets("u1")) == 2
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, first.WriteJSON(Frame{Type: TypeJoin, Room: "r1"}))
	readType(t, first, TypeJoin)

	joined := readType(t, second, TypeUserJoined)
	assert.Equal(t, "u1", joined.User)

	require.NoError(t, second.Close())
	require.Eventually(t, func() bool {
		return len(e.store.GetSockets("u1")) == 1
	}, time.Second, 5*time.Millisecond)

	rooms, ok := e.store.GetUserRooms("u1")
	require.True(t, ok, "membership survives while another socket is open")
	assert.Equal(t, []string{"r1"}, rooms)
}

func TestHub_Shutdown(t *testing.T) {
	e := newHubEnv(t, store.DefaultGates{})
	conn := e.dial(t, "u1")
	readType(t, conn, TypeInit)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, e.hub.Shutdown(ctx))

	assert.Zero(t, e.hub.Len())
	assert.Empty(t, e.store.GetSockets("u1"))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)

	late, res, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(e.srv.URL, "http")+"/?user=u2", nil)
	require.NoError(t, err)
	_ = res.Body.Close()
	defer late.Close()

	require.NoError(t, late.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err = late.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestStoreError(t *testing.T) {
	assert.Equal(t, errs.ErrIdentifierExhausted, StoreError(store.ErrIdentifierExhausted).Code)
	assert.Equal(t, errs.ErrUnknown, StoreError(store.ErrClosed).Code)
}

func TestHub_LeaveUnknownRoomLeavesNoTimer(t *testing.T) {
	e := newHubEnv(t, store.DefaultGates{})
	conn := e.dial(t, "u1")
	readType(t, conn, TypeInit)

	for _, room := range []string{"a", "b", "c"} {
		require.NoError(t, conn.WriteJSON(Frame{Type: TypeLeave, Room: room}))
		assert.Equal(t, errs.ErrNotInRoom, readType(t, conn, TypeError).Error.Code)
	}

	st := e.store.Stats()
	assert.Zero(t, st.PendingEvictions)
	assert.Zero(t, st.Rooms)
}

func TestHub_ReconnectKeepsRooms(t *testing.T) {
	e := newHubEnv(t, store.DefaultGates{})

	old := e.dial(t, "u1")
	readType(t, old, TypeInit)
	require.NoError(t, old.WriteJSON(Frame{Type: TypeJoin, Room: "r1"}))
	readType(t, old, TypeJoin)

	fresh := e.dial(t, "u1")
	readType(t, fresh, TypeInit)
	require.Eventually(t, func() bool {
		return len(e.store.GetSockets("u1")) == 2
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, old.Close())
	require.Eventually(t, func() bool {
		return len(e.store.GetSockets("u1")) == 1
	}, time.Second, 5*time.Millisecond)

	rooms, ok := e.store.GetUserRooms("u1")
	require.True(t, ok)
	assert.Equal(t, []string{"r1"}, rooms)
}
