package eventstream

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"reelfactory/internal/events"
	"reelfactory/internal/logging"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Frame is the wire form of one event.
type Frame struct {
	Seq   uint64         `json:"seq"`
	Time  time.Time      `json:"time"`
	Event events.Name    `json:"event"`
	JobID string         `json:"jobId,omitempty"`
	Data  events.Payload `json:"data"`
}

// Source supplies subscriptions.
type Source interface {
	Subscribe(filter events.Filter) *events.Subscription
}

// Relay upgrades requests and streams hub events to the connection.
type Relay struct {
	source   Source
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewRelay builds a Relay over source.
func NewRelay(source Source, logger *slog.Logger) *Relay {
	return &Relay{
		source: source,
		logger: logging.NewComponentLogger(logger, "eventstream"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Any origin; the optional bearer token guards the listener.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (r *Relay) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Warn("websocket upgrade failed", logging.Error(err))
		return
	}
	defer conn.Close()

	filter := events.Filter{JobID: strings.TrimSpace(req.URL.Query().Get("job"))}
	for _, name := range req.URL.Query()["event"] {
		if name = strings.TrimSpace(name); name != "" {
			filter.Names = append(filter.Names, events.Name(name))
		}
	}
	sub := r.source.Subscribe(filter)
	defer sub.Close()

	r.logger.Debug("observer connected",
		logging.String("remote", req.RemoteAddr),
		logging.JobID(filter.JobID),
	)

	closed := make(chan struct{})
	go r.readLoop(conn, closed)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			return
		case <-req.Context().Done():
			return
		case env, ok := <-sub.C:
			if !ok {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "event stream closed"))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(Frame{Seq: env.Seq, Time: env.Time, Event: env.Name, JobID: env.JobID, Data: env.Payload}); err != nil {
				r.logger.Debug("observer write failed", logging.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop drains control frames so pongs and close frames are processed.
func (r *Relay) readLoop(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				r.logger.Warn("websocket error", logging.Error(err))
			}
			return
		}
	}
}
