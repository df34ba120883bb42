package push

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dropDatabas3/tollgate/internal/maintenance"
	"github.com/dropDatabas3/tollgate/internal/metrics"
	"github.com/dropDatabas3/tollgate/internal/observability/logger"
)

const (
	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	pingPeriod  = (pongWait * 9) / 10
	sendBuffer  = 16
	maxReadSize = 512
)

// HubOptions configura el Hub.
type HubOptions struct {
	// Welcome, si está, se envía a cada cliente apenas conecta.
	Welcome func() any
	// CheckOrigin se pasa tal cual al upgrader (nil => mismo origen).
	CheckOrigin func(r *http.Request) bool
}

// Hub es el canal push websocket. Implementa maintenance.ClientPush.
type Hub struct {
	opts     HubOptions
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

var _ maintenance.ClientPush = (*Hub)(nil)

func NewHub(opts HubOptions) *Hub {
	return &Hub{
		opts: opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     opts.CheckOrigin,
		},
		clients: make(map[*client]struct{}),
	}
}

// Len devuelve la cantidad de clientes conectados.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast serializa el payload una vez y lo encola para cada cliente.
// Un cliente con el buffer lleno se desconecta.
func (h *Hub) Broadcast(ctx context.Context, event string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	var slow []*client

	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- b:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		logger.From(ctx).Warn("push client too slow, dropping",
			logger.Component("push.hub"), logger.Event(event))
		h.remove(c)
	}
	return nil
}

// ServeHTTP hace el upgrade y atiende la conexión hasta que el cliente cierra.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := logger.From(r.Context()).With(logger.Component("push.hub"))

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade ya respondió con el error HTTP.
		log.Debug("websocket upgrade failed", logger.Err(err))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	if h.opts.Welcome != nil {
		if b, err := json.Marshal(h.opts.Welcome()); err == nil {
			c.send <- b
		}
	}
	h.add(c)
	log.Debug("push client connected", logger.Count(h.Len()))

	go h.writeLoop(c)
	h.readLoop(c)
}

// Close desconecta a todos los clientes.
func (h *Hub) Close() {
	h.mu.Lock()
	cs := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		cs = append(cs, c)
	}
	h.mu.Unlock()
	for _, c := range cs {
		h.remove(c)
	}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	metrics.PushClients.Set(float64(n))
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	if ok {
		c.close()
		metrics.PushClients.Set(float64(n))
	}
}

// readLoop descarta lo que manda el cliente; solo sirve para detectar el cierre
// y procesar pongs.
func (h *Hub) readLoop(c *client) {
	defer func() {
		h.remove(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxReadSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case b, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
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
