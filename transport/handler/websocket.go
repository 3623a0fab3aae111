package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"chat-broker/auth"
	"chat-broker/domain"
	"chat-broker/domain/event"
	"chat-broker/observability"
	"chat-broker/runtime"
	"chat-broker/sink"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// WebsocketHandler upgrades authenticated requests and runs the two pumps
// bridging the socket to the orchestrator.
type WebsocketHandler struct {
	log          *slog.Logger
	orchestrator *runtime.Orchestrator
	monitoring   *observability.Monitoring
	upgrader     websocket.Upgrader
	sinkBuffer   int
}

func NewWebsocketHandler(log *slog.Logger, orchestrator *runtime.Orchestrator,
	monitoring *observability.Monitoring, sinkBuffer int) *WebsocketHandler {
	return &WebsocketHandler{
		log:          log,
		orchestrator: orchestrator,
		monitoring:   monitoring,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		sinkBuffer: sinkBuffer,
	}
}

// ServeWS authenticates via the token query parameter (browsers cannot set
// headers on websocket dials), upgrades, and serves until the socket dies.
func (h *WebsocketHandler) ServeWS(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = c.GetHeader("Authorization")
	}
	claims, err := auth.ValidateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("Websocket upgrade failed", "error", err)
		return
	}

	identity := domain.IdentityID(claims.UserID)
	connID := domain.ConnectionID(uuid.NewString())
	socketSink := sink.NewSocketSink(h.sinkBuffer)

	state := h.orchestrator.Connect(identity, domain.Role(claims.Role), connID, socketSink)
	h.monitoring.ConnectionOpened()
	defer func() {
		h.orchestrator.Disconnect(state)
		h.monitoring.ConnectionClosed()
		_ = conn.Close()
	}()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	go h.writePump(ctx, conn, socketSink)
	h.readPump(ctx, conn, state, socketSink)
}

func (h *WebsocketHandler) readPump(ctx context.Context, conn *websocket.Conn,
	state *domain.Connection, socketSink *sink.SocketSink) {
	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Debug("Read error", "identity", state.Identity, "error", err)
			}
			return
		}
		var env runtime.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			h.log.Debug("Malformed envelope", "identity", state.Identity, "error", err)
			continue
		}
		h.orchestrator.HandleEvent(ctx, state, socketSink, env)
	}
}

func (h *WebsocketHandler) writePump(ctx context.Context, conn *websocket.Conn,
	socketSink *sink.SocketSink) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-socketSink.Outbound:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(toEnvelope(evt)); err != nil {
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

func toEnvelope(evt event.DomainEvent) runtime.Envelope {
	payload, err := json.Marshal(evt)
	if err != nil {
		payload = []byte("{}")
	}
	return runtime.Envelope{Type: evt.Type(), Payload: payload}
}
