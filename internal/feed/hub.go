// Package feed streams the simulation to websocket clients, one JSON
// frame per tick.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/smartmower/mower/internal/core/event"
	"go.uber.org/zap"
)

// sendBuffer is the number of frames queued per client before it is
// dropped.
const sendBuffer = 256

const writeWait = 5 * time.Second

type TileChange struct {
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Status string `json:"status"`
}

type Move struct {
	Entity string `json:"entity"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
}

type Phase struct {
	Phase   string `json:"phase"`
	Episode int    `json:"episode"`
}

// Frame is everything that happened during one tick.
type Frame struct {
	Tick    uint64       `json:"tick"`
	Episode int          `json:"episode"`
	Step    int          `json:"step"`
	Tiles   []TileChange `json:"tiles,omitempty"`
	Moves   []Move       `json:"moves,omitempty"`
	Phases  []Phase      `json:"phases,omitempty"`
}

func (f *Frame) empty() bool {
	return f.Tick == 0 && len(f.Tiles) == 0 && len(f.Moves) == 0 && len(f.Phases) == 0
}

type client struct {
	ws   *websocket.Conn
	addr string
	send chan []byte
}

// Hub collects bus events into the current frame and fans finished
// frames out to the connected clients. Collecting and Flush run on the
// simulation goroutine; client pumps run on their own.
type Hub struct {
	frame Frame

	mu       sync.Mutex
	clients  map[*client]struct{}
	upgrader websocket.Upgrader
	log      *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log: log,
	}
}

// Attach subscribes the hub to the simulation's outward events.
func (h *Hub) Attach(bus *event.Bus) {
	event.Subscribe(bus, func(e event.TileStatusChanged) {
		h.frame.Tiles = append(h.frame.Tiles, TileChange{X: e.Pos.X, Y: e.Pos.Y, Status: e.New.String()})
	})
	event.Subscribe(bus, func(e event.EntityMoved) {
		h.frame.Moves = append(h.frame.Moves, Move{Entity: e.Entity, X: e.To.X, Y: e.To.Y})
	})
	event.Subscribe(bus, func(e event.EpisodeChanged) {
		h.frame.Phases = append(h.frame.Phases, Phase{Phase: e.Phase, Episode: e.Episode})
	})
	event.Subscribe(bus, func(e event.TickCompleted) {
		h.frame.Tick, h.frame.Episode, h.frame.Step = e.Tick, e.Episode, e.Step
	})
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Flush sends the collected frame to every client and starts a new one.
// A client whose queue is full is disconnected.
func (h *Hub) Flush() {
	f := h.frame
	h.frame = Frame{}
	if f.empty() {
		return
	}
	msg, err := json.Marshal(f)
	if err != nil {
		h.log.Error("encode feed frame", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.log.Warn("feed client too slow, dropping", zap.String("remote", c.addr))
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// ServeHTTP upgrades the request to a websocket and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("feed upgrade failed", zap.Error(err))
		return
	}
	c := &client{ws: ws, addr: ws.RemoteAddr().String(), send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.log.Info("feed client connected", zap.String("remote", c.addr))

	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// readPump discards client messages and notices disconnects.
func (h *Hub) readPump(c *client) {
	defer h.remove(c)
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Debug("feed read error", zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	defer c.ws.Close()
	for msg := range c.send {
		c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	// send closed: hub dropped us
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	c.ws.WriteMessage(websocket.CloseMessage, []byte{})
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

// Serve listens on addr until ctx is done. The websocket endpoint is /feed.
func (h *Hub) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/feed", h)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		h.log.Info("feed listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		h.Close()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
