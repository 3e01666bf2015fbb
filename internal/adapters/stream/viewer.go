package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/okian/playview/pkg/logger"
	"github.com/okian/playview/pkg/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxCommandSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 64 << 10,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type viewer struct {
	id   string
	conn *websocket.Conn
	send chan outbound

	once sync.Once
}

// enqueue never blocks; a full viewer loses the message. Callers hold the
// hub lock, which orders it against close.
func (v *viewer) enqueue(out outbound) {
	select {
	case v.send <- out:
	default:
		metrics.RecordFrameDropped("viewer")
	}
}

func (v *viewer) close() {
	v.once.Do(func() { close(v.send) })
}

// ServeHTTP upgrades the request to a viewer websocket.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}

	v := &viewer{id: uuid.NewString(), conn: conn, send: make(chan outbound, h.buffer)}
	ctx := context.WithoutCancel(r.Context())
	if !h.register(v) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	h.logger.Info(ctx, "viewer connected", logger.String("viewer", v.id), logger.String("remote", r.RemoteAddr))
	h.refresh(ctx)

	go h.writePump(ctx, v)
	h.readPump(ctx, v)
}

func (h *Hub) readPump(ctx context.Context, v *viewer) {
	defer func() {
		h.unregister(v)
		_ = v.conn.Close()
		h.logger.Info(ctx, "viewer disconnected", logger.String("viewer", v.id))
	}()

	v.conn.SetReadLimit(maxCommandSize)
	_ = v.conn.SetReadDeadline(time.Now().Add(pongWait))
	v.conn.SetPongHandler(func(string) error {
		return v.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := v.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn(ctx, "viewer read failed", logger.String("viewer", v.id), logger.Error(err))
			}
			return
		}

		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			h.reply(v, "invalid command: "+err.Error())
			continue
		}
		if err := h.Handle(ctx, cmd); err != nil {
			h.reply(v, err.Error())
		}
	}
}

func (h *Hub) reply(v *viewer, msg string) {
	data, err := json.Marshal(Message{Type: TypeError, Error: msg})
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.viewers[v.id]; ok {
		v.enqueue(outbound{kind: websocket.TextMessage, data: data})
	}
}

func (h *Hub) writePump(ctx context.Context, v *viewer) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = v.conn.Close()
	}()

	for {
		select {
		case out, ok := <-v.send:
			_ = v.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = v.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := v.conn.WriteMessage(out.kind, out.data); err != nil {
				h.logger.Debug(ctx, "viewer write failed", logger.String("viewer", v.id), logger.Error(err))
				return
			}
		case <-ticker.C:
			_ = v.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := v.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
