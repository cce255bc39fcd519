// Package websocket serves the collaboration protocol over plain WebSocket
// connections. Every frame is a JSON object {"event": ..., "data": ...}.
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jackwatters45/gate-cs-ws/collab"
	"github.com/jackwatters45/gate-cs-ws/handlers/wire"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var (
	ErrConnClosed   = errors.New("connection closed")
	ErrSlowConsumer = errors.New("send buffer full")
)

type (
	Options struct {
		Origins         []string
		SendBuffer      int
		MaxMessageBytes int64
	}

	Frame struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data,omitempty"`
	}

	outFrame struct {
		Event string `json:"event"`
		Data  any    `json:"data,omitempty"`
	}

	Handler struct {
		engine   *collab.Engine
		opts     Options
		upgrader websocket.Upgrader
	}
)

func NewHandler(engine *collab.Engine, opts Options) *Handler {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 64
	}
	h := &Handler{engine: engine, opts: opts}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// checkOrigin admits requests without an Origin header, which only
// non-browser clients send.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || slices.Contains(h.opts.Origins, origin)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.WithError(err).Warn("Failed to upgrade websocket")
		return
	}

	c := newConn(ws, h.opts.SendBuffer)
	session := collab.NewSession(c)
	log := logrus.WithFields(logrus.Fields{
		"session_id": session.ID(),
		"remote":     r.RemoteAddr,
	})
	log.Info("A user connected")

	go c.writeLoop()
	h.readLoop(r.Context(), c, session, log)

	h.engine.Leave(session)
	c.close()
	log.Info("User disconnected")
}

// readLoop handles frames one at a time so a session's events are applied
// in the order they arrive.
func (h *Handler) readLoop(ctx context.Context, c *conn, session *collab.Session, log *logrus.Entry) {
	if h.opts.MaxMessageBytes > 0 {
		c.ws.SetReadLimit(h.opts.MaxMessageBytes)
	}
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Warn("Read failed")
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))

		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			log.WithError(err).Warn("Dropping malformed frame")
			continue
		}

		var payload any
		if len(frame.Data) > 0 {
			if err := json.Unmarshal(frame.Data, &payload); err != nil {
				log.WithError(err).Warn("Dropping malformed frame data")
				continue
			}
		}

		wire.Dispatch(ctx, h.engine, session, frame.Event, payload)
	}
}

// conn queues outbound frames for a single writer goroutine. Emit never
// blocks: a peer that cannot keep up is disconnected.
type conn struct {
	ws   *websocket.Conn
	send chan outFrame

	done      chan struct{}
	closeOnce sync.Once
}

func newConn(ws *websocket.Conn, buffer int) *conn {
	return &conn{
		ws:   ws,
		send: make(chan outFrame, buffer),
		done: make(chan struct{}),
	}
}

func (c *conn) Emit(event string, payload any) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}

	select {
	case c.send <- outFrame{Event: event, Data: payload}:
		return nil
	default:
		c.close()
		return ErrSlowConsumer
	}
}

func (c *conn) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(frame); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// close is safe to call from any goroutine; closing the socket also
// unblocks the read loop.
func (c *conn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}
