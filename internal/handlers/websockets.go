package handlers

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"geotrace/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Send/receive timing configuration and message size limits.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMsgSize     = 1 << 12 // 4 KB
	feedBufferSize = 16
)

// Envelope used for WebSocket messages.
type wsEnvelope struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// upgrader accepts same-host pages and the configured CORS origins.
func (h *Handler) upgrader() *websocket.Upgrader {
	allowAll := false
	for _, o := range h.cfg.CORSOrigins {
		if o == "*" {
			allowAll = true
		}
	}
	return &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || allowAll {
				return true
			}
			if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
				return true
			}
			for _, o := range h.cfg.CORSOrigins {
				if o == origin {
					return true
				}
			}
			return false
		},
	}
}

// wsConnect streams every accepted record to the client until either side
// closes or the session lifetime elapses.
func (h *Handler) wsConnect(c *gin.Context) {
	records, cancel := h.services.Subscribe(feedBufferSize)
	defer cancel()

	conn, err := h.upgrader().Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Errorw("ws_upgrade_failed", "err", err)
		return
	}
	defer func() { _ = conn.Close() }()

	// Configure read limits and pong handler to extend read deadline.
	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Reader goroutine to handle control frames and detect disconnects.
	done := make(chan struct{})
	go h.startReader(conn, done)

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	// The dashboard reconnects when its session expires.
	var expired <-chan time.Time
	if h.cfg.SessionLifetime > 0 {
		timer := time.NewTimer(h.cfg.SessionLifetime)
		defer timer.Stop()
		expired = timer.C
	}

	for {
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case <-expired:
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session expired")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.log.Infow("ws_ping_failed", "err", err)
				return
			}
		case rec, ok := <-records:
			if !ok {
				return
			}
			if err := h.sendRecord(conn, rec); err != nil {
				h.log.Infow("ws_write_failed", "err", err)
				return
			}
		}
	}
}

// startReader drains incoming messages to handle control frames and detect closure.
func (h *Handler) startReader(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.log.Debugw("ws_read_closed", "err", err)
			return
		}
	}
}

func (h *Handler) sendRecord(conn *websocket.Conn, rec models.TelemetryRecord) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(wsEnvelope{Type: "record", Data: rec})
}
