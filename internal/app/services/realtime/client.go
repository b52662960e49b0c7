package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/R3E-Network/sira_platform/internal/app/domain/user"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Client is one WebSocket connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	user user.User
	send chan []byte
	once sync.Once
}

func newClient(h *Hub, conn *websocket.Conn, u user.User) *Client {
	return &Client{hub: h, conn: conn, user: u, send: make(chan []byte, sendBuffer)}
}

func (c *Client) close() {
	c.once.Do(func() { close(c.send) })
}

// deliver queues msg for this connection only.
func (c *Client) deliver(msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if _, live := c.hub.conns[c.user.ID][c]; !live {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

type clientAction struct {
	Action    string `json:"action"`
	Room      string `json:"room"`
	Timestamp any    `json:"timestamp"`
}

func (c *Client) readPump() {
	defer c.hub.wg.Done()
	defer c.hub.unregister(c)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.hub.log.WithError(err).Debug("websocket read")
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.handle(data)
	}
}

func (c *Client) handle(data []byte) {
	var act clientAction
	if err := json.Unmarshal(data, &act); err != nil {
		c.deliver(Message{Type: TypeError, Message: "Invalid JSON format"})
		return
	}
	switch act.Action {
	case "ping":
		ts, _ := act.Timestamp.(string)
		c.deliver(Message{Type: TypePong, Timestamp: ts})
	case "subscribe":
		if act.Room == "" {
			return
		}
		if !CanJoin(c.user.Role, act.Room) {
			c.deliver(Message{Type: TypeError, Message: "Not permitted to join room " + act.Room})
			return
		}
		c.hub.Join(c.user.ID, act.Room)
		c.deliver(Message{Type: "subscribed", Room: act.Room})
	case "unsubscribe":
		if act.Room == "" {
			return
		}
		c.hub.Leave(c.user.ID, act.Room)
		c.deliver(Message{Type: "unsubscribed", Room: act.Room})
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.hub.wg.Done()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
