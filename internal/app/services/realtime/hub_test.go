package realtime

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/R3E-Network/sira_platform/internal/app/domain/roles"
	"github.com/R3E-Network/sira_platform/internal/app/domain/user"
	"github.com/R3E-Network/sira_platform/pkg/logger"
)

func testAuth(_ context.Context, token string) (user.User, error) {
	if token != "good" {
		return user.User{}, errors.New("bad token")
	}
	return user.User{ID: 1, Username: "alice", Role: roles.Supervisor}, nil
}

func startServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, testAuth)
	}))
}

func dial(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func readMsg(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var m Message
	require.NoError(t, conn.ReadJSON(&m))
	return m
}

func TestDefaultRooms(t *testing.T) {
	assert.Equal(t, []string{RoomAllUsers, RoomMovements}, DefaultRooms(roles.Operator))
	assert.Equal(t, []string{RoomAllUsers, RoomSecurityAlerts, RoomCases}, DefaultRooms(roles.SecurityLead))
	assert.Equal(t, []string{RoomAllUsers, RoomSecurityAlerts, RoomCases, RoomSupervisors, RoomMovements}, DefaultRooms(roles.Admin))

	assert.True(t, CanJoin(roles.Operator, "custom"))
	assert.False(t, CanJoin(roles.Operator, RoomSupervisors))
}

func TestHubSessionLifecycle(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	hub := NewHub(nil, logger.Discard())
	srv := startServer(t, hub)
	conn := dial(t, srv, "good")

	welcome := readMsg(t, conn)
	assert.Equal(t, TypeSystem, welcome.Type)
	assert.Equal(t, "connected", welcome.Action)
	assert.Equal(t, "Welcome alice! Real-time notifications active.", welcome.Message)
	assert.Equal(t, int64(1), welcome.UserID)
	assert.Equal(t, []int64{1}, hub.ConnectedUsers())
	assert.True(t, hub.InRoom(1, RoomSupervisors))

	require.NoError(t, conn.WriteJSON(map[string]string{"action": "ping", "timestamp": "t-1"}))
	pong := readMsg(t, conn)
	assert.Equal(t, TypePong, pong.Type)
	assert.Equal(t, "t-1", pong.Timestamp)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	assert.Equal(t, Message{Type: TypeError, Message: "Invalid JSON format"}, readMsg(t, conn))

	require.NoError(t, conn.WriteJSON(map[string]string{"action": "subscribe", "room": "berth-7"}))
	assert.Equal(t, Message{Type: "subscribed", Room: "berth-7"}, readMsg(t, conn))

	hub.SendToRoom(context.Background(), "berth-7", Message{Type: TypeMovement, Action: "updated"})
	got := readMsg(t, conn)
	assert.Equal(t, TypeMovement, got.Type)

	hub.SendToUser(context.Background(), 1, Message{Type: TypeAlert, Action: "created"})
	assert.Equal(t, TypeAlert, readMsg(t, conn).Type)

	require.NoError(t, conn.WriteJSON(map[string]string{"action": "unsubscribe", "room": "berth-7"}))
	assert.Equal(t, Message{Type: "unsubscribed", Room: "berth-7"}, readMsg(t, conn))
	assert.False(t, hub.InRoom(1, "berth-7"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, hub.Stop(ctx))

	// The server closes the socket on shutdown.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
	conn.Close()
	srv.Close()
	assert.Empty(t, hub.ConnectedUsers())
}

func TestHubRejectsInvalidToken(t *testing.T) {
	hub := NewHub(nil, logger.Discard())
	srv := startServer(t, hub)
	defer srv.Close()

	conn := dial(t, srv, "bad")
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, CloseInvalidToken), "got %v", err)
	assert.Empty(t, hub.ConnectedUsers())
}

type fakeBridge struct {
	mu        sync.Mutex
	published []Delivery
	fail      bool
	closed    bool
}

func (b *fakeBridge) Publish(_ context.Context, d Delivery) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail {
		return errors.New("redis down")
	}
	b.published = append(b.published, d)
	return nil
}

func (b *fakeBridge) Run(ctx context.Context, _ func(Delivery)) error {
	<-ctx.Done()
	return ctx.Err()
}

func (b *fakeBridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func TestHubRoutesThroughBridge(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	bridge := &fakeBridge{}
	hub := NewHub([]string{"*"}, logger.Discard())
	hub.AttachBridge(bridge)
	require.NoError(t, hub.Start(context.Background()))
	assert.Contains(t, hub.Descriptor().Capabilities, "redis-fanout")

	hub.SendToUser(context.Background(), 5, Message{Type: TypeAlert})
	hub.Broadcast(context.Background(), Message{Type: TypeSystem})

	bridge.mu.Lock()
	require.Len(t, bridge.published, 2)
	assert.Equal(t, int64(5), bridge.published[0].UserID)
	assert.True(t, bridge.published[1].All)
	bridge.fail = true
	bridge.mu.Unlock()

	// Falls back to local delivery without error.
	hub.SendToRoom(context.Background(), RoomCases, Message{Type: TypeCase})

	require.NoError(t, hub.Stop(context.Background()))
	assert.True(t, bridge.closed)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://sira.example"})
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.True(t, check(r))
	r.Header.Set("Origin", "https://sira.example")
	assert.True(t, check(r))
	r.Header.Set("Origin", "https://evil.example")
	assert.False(t, check(r))
}
