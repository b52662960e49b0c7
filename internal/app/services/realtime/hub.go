package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/R3E-Network/sira_platform/internal/app/core/service"
	"github.com/R3E-Network/sira_platform/internal/app/domain/user"
	"github.com/R3E-Network/sira_platform/internal/app/metrics"
	"github.com/R3E-Network/sira_platform/pkg/logger"
)

// Authenticator resolves the token passed on the connect URL.
type Authenticator func(ctx context.Context, token string) (user.User, error)

// Bridge fans deliveries out across instances.
type Bridge interface {
	Publish(ctx context.Context, d Delivery) error
	Run(ctx context.Context, deliver func(Delivery)) error
	Close() error
}

// Hub tracks connections per user and room membership per user.
type Hub struct {
	mu     sync.RWMutex
	conns  map[int64]map[*Client]struct{}
	rooms  map[string]map[int64]struct{}
	closed bool

	upgrader websocket.Upgrader
	bridge   Bridge
	log      *logger.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewHub creates a hub. allowedOrigins empty or containing "*" accepts any
// origin.
func NewHub(allowedOrigins []string, log *logger.Logger) *Hub {
	if log == nil {
		log = logger.NewDefault("realtime")
	}
	h := &Hub{
		conns: make(map[int64]map[*Client]struct{}),
		rooms: make(map[string]map[int64]struct{}),
		log:   log,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(set) == 0 {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// AttachBridge routes every delivery through b. Call before Start.
func (h *Hub) AttachBridge(b Bridge) {
	h.bridge = b
}

// Descriptor advertises the hub.
func (h *Hub) Descriptor() service.Descriptor {
	d := service.Descriptor{Name: "realtime", Domain: "notifications", Layer: service.LayerRealtime, Capabilities: []string{"websocket"}}
	if h.bridge != nil {
		d = d.WithCapabilities("redis-fanout")
	}
	return d
}

func (h *Hub) Name() string { return "realtime-hub" }

// Start runs the bridge subscription when one is attached.
func (h *Hub) Start(ctx context.Context) error {
	if h.bridge == nil {
		return nil
	}
	runCtx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		if err := h.bridge.Run(runCtx, h.deliver); err != nil && runCtx.Err() == nil {
			h.log.WithError(err).Error("realtime bridge stopped")
		}
	}()
	h.log.Info("realtime bridge subscribed")
	return nil
}

// Stop disconnects every client and waits for their goroutines.
func (h *Hub) Stop(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	var all []*Client
	for _, set := range h.conns {
		for c := range set {
			all = append(all, c)
		}
	}
	h.mu.Unlock()

	for _, c := range all {
		h.unregister(c)
	}
	if h.cancel != nil {
		h.cancel()
	}
	if h.bridge != nil {
		if err := h.bridge.Close(); err != nil {
			h.log.WithError(err).Warn("close realtime bridge")
		}
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ServeWS upgrades the request, authenticates the "token" query parameter
// and starts the client's pumps. Authentication failures close the socket
// with code 4001.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, authenticate Authenticator) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Debug("websocket upgrade failed")
		return
	}

	u, err := authenticate(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		deadline := time.Now().Add(writeWait)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(CloseInvalidToken, "Invalid or expired token"), deadline)
		conn.Close()
		return
	}

	c := newClient(h, conn, u)
	if !h.register(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), time.Now().Add(writeWait))
		conn.Close()
		return
	}
	h.wg.Add(2)
	go c.writePump()
	go c.readPump()

	c.deliver(Message{
		Type:    TypeSystem,
		Action:  "connected",
		Message: "Welcome " + u.Username + "! Real-time notifications active.",
		UserID:  u.ID,
		Role:    u.Role,
	})
	h.log.WithField("user_id", u.ID).Infof("websocket connected: %s", u.Username)
}

func (h *Hub) register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	set, ok := h.conns[c.user.ID]
	if !ok {
		set = make(map[*Client]struct{})
		h.conns[c.user.ID] = set
	}
	set[c] = struct{}{}
	for _, room := range DefaultRooms(c.user.Role) {
		h.joinLocked(c.user.ID, room)
	}
	metrics.SetWSConnections(h.countLocked())
	return true
}

func (h *Hub) countLocked() int {
	n := 0
	for _, set := range h.conns {
		n += len(set)
	}
	return n
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	set, ok := h.conns[c.user.ID]
	if ok {
		if _, present := set[c]; present {
			delete(set, c)
			if len(set) == 0 {
				delete(h.conns, c.user.ID)
				for room, members := range h.rooms {
					delete(members, c.user.ID)
					if len(members) == 0 {
						delete(h.rooms, room)
					}
				}
			}
		}
	}
	metrics.SetWSConnections(h.countLocked())
	h.mu.Unlock()
	c.close()
}

// Join adds userID to room.
func (h *Hub) Join(userID int64, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.joinLocked(userID, room)
}

func (h *Hub) joinLocked(userID int64, room string) {
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[int64]struct{})
		h.rooms[room] = members
	}
	members[userID] = struct{}{}
}

// Leave removes userID from room.
func (h *Hub) Leave(userID int64, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[room]; ok {
		delete(members, userID)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// InRoom reports whether userID is a member of room.
func (h *Hub) InRoom(userID int64, room string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[room][userID]
	return ok
}

// ConnectedUsers returns the ids of users with at least one connection.
func (h *Hub) ConnectedUsers() []int64 {
	h.mu.RLock()
	ids := make([]int64, 0, len(h.conns))
	for id := range h.conns {
		ids = append(ids, id)
	}
	h.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// IsConnected reports whether userID has a live connection on this instance.
func (h *Hub) IsConnected(userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID]) > 0
}

// SendToUser delivers msg to every connection of userID.
func (h *Hub) SendToUser(ctx context.Context, userID int64, msg Message) {
	h.dispatch(ctx, Delivery{UserID: userID, Message: msg})
}

// SendToRoom delivers msg to every member of room.
func (h *Hub) SendToRoom(ctx context.Context, room string, msg Message) {
	h.dispatch(ctx, Delivery{Room: room, Message: msg})
}

// Broadcast delivers msg to every connection.
func (h *Hub) Broadcast(ctx context.Context, msg Message) {
	h.dispatch(ctx, Delivery{All: true, Message: msg})
}

func (h *Hub) dispatch(ctx context.Context, d Delivery) {
	if h.bridge != nil {
		err := h.bridge.Publish(ctx, d)
		if err == nil {
			return
		}
		h.log.WithError(err).Warn("bridge publish failed, delivering locally")
	}
	h.deliver(d)
}

// deliver writes d to matching local connections. Clients whose buffers are
// full are dropped.
func (h *Hub) deliver(d Delivery) {
	payload, err := json.Marshal(d.Message)
	if err != nil {
		h.log.WithError(err).Error("encode realtime message")
		return
	}

	var slow []*Client
	h.mu.RLock()
	send := func(userID int64) {
		for c := range h.conns[userID] {
			select {
			case c.send <- payload:
			default:
				slow = append(slow, c)
			}
		}
	}
	switch {
	case d.All:
		for id := range h.conns {
			send(id)
		}
	case d.Room != "":
		for id := range h.rooms[d.Room] {
			send(id)
		}
	default:
		send(d.UserID)
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.WithField("user_id", c.user.ID).Warn("dropping slow websocket client")
		h.unregister(c)
	}
}
