package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/betfeed/betfeed/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10 // must be < pongWait
	maxInboundSize = 512                 // clients send nothing but pongs
	clientBuffer   = 256
)

// client is one connected WebSocket peer.
type client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID uuid.UUID // uuid.Nil when anonymous
}

// Hub fans trade-driven price updates out to every connected client.  The
// protocol is push-only: clients subscribe by connecting, nothing they send
// is interpreted.  Start the event loop with Run before serving upgrades.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}

	broadcast  chan []byte
	register   chan *client
	unregister chan *client

	jwtSecret []byte
	upgrader  websocket.Upgrader
}

// NewHub builds a Hub.  A nil jwtSecret makes every connection anonymous;
// an empty allowedOrigins list disables the origin check (dev mode).
func NewHub(jwtSecret []byte, allowedOrigins []string) *Hub {
	return &Hub{
		clients:    make(map[*client]struct{}),
		broadcast:  make(chan []byte, 512),
		register:   make(chan *client),
		unregister: make(chan *client),
		jwtSecret:  jwtSecret,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowedOrigins) == 0 {
					return true
				}
				origin := r.Header.Get("Origin")
				for _, allowed := range allowedOrigins {
					if allowed == "*" || allowed == origin {
						return true
					}
				}
				return false
			},
		},
	}
}

// Run owns the client set.  Call once, as a goroutine, before ServeWs.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Slow client: skip this message rather than block
					// the fan-out.  A dead connection is reaped by its
					// own pumps.
				}
			}
			h.mu.RUnlock()
		}
	}
}

// ConnectedCount reports how many clients are attached.
func (h *Hub) ConnectedCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWs upgrades the request and attaches the connection to the hub.  An
// optional ?token= JWT identifies the user; a missing or bad token degrades
// to an anonymous connection rather than failing the upgrade.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	userID := uuid.Nil
	if raw := r.URL.Query().Get("token"); raw != "" && len(h.jwtSecret) > 0 {
		userID = h.userFromToken(raw)
	}

	c := &client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, clientBuffer),
		userID: userID,
	}
	h.register <- c

	go c.writeLoop()
	go c.readLoop()
}

// userFromToken verifies the HMAC signature and pulls the user UUID from the
// sub claim.  Any failure yields uuid.Nil.
func (h *Hub) userFromToken(raw string) uuid.UUID {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return h.jwtSecret, nil
	})
	if err != nil || !tok.Valid {
		return uuid.Nil
	}
	sub, err := tok.Claims.GetSubject()
	if err != nil {
		return uuid.Nil
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func (c *client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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

// readLoop exists to service pongs and notice disconnects; inbound frames are
// discarded.
func (c *client) readLoop() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxInboundSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Debug("websocket closed unexpectedly", "user_id", c.userID, "error", err)
			}
			return
		}
	}
}

// BroadcastPriceUpdate pushes a market's post-trade prices to every client.
// Satisfies service.Broadcaster.
func (h *Hub) BroadcastPriceUpdate(marketID uuid.UUID, snap domain.PriceSnapshot, volume int64) {
	h.send(PriceUpdateMessage{
		Type:      MsgTypePriceUpdate,
		MarketID:  marketID,
		YesPrice:  snap.YesPrice,
		NoPrice:   snap.NoPrice,
		Volume:    volume,
		Timestamp: snap.CreatedAt,
	})
}

// BroadcastNewMarket announces a freshly created market to the feed.
// Satisfies service.MarketBroadcaster.
func (h *Hub) BroadcastNewMarket(m *domain.Market) {
	h.send(NewMarketMessage{
		Type:        MsgTypeNewMarket,
		MarketID:    m.ID,
		Description: m.Description,
		Icon:        m.Icon,
		Timestamp:   m.CreatedAt,
	})
}

func (h *Hub) send(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("websocket message marshal failed", "error", err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		slog.Warn("websocket broadcast queue full, message dropped")
	}
}
