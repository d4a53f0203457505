package http

import (
	"encoding/json"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-notify/internal/auth"
	"github.com/vovakirdan/wirechat-notify/internal/core"
)

// Outbound is the WebSocket envelope: same event name and domain object
// as an SSE record.
type Outbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// WSHandler is the WebSocket twin of the SSE stream for clients that
// prefer a socket. Delivery semantics are identical; heartbeats become
// pings. It is a plain net/http handler so websocket.Accept hijacks the
// raw ResponseWriter: gin's tracking writer breaks the upgrade, so /ws
// is mounted outside the gin router and authenticates on its own.
type WSHandler struct {
	registry  *core.Registry
	verifier  *auth.Verifier
	heartbeat time.Duration
	log       *zerolog.Logger
}

// NewWSHandler builds the /ws handler.
func NewWSHandler(registry *core.Registry, verifier *auth.Verifier, heartbeat time.Duration, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{registry: registry, verifier: verifier, heartbeat: heartbeat, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	identity, status, reason := resolveIdentity(h.verifier, r)
	if identity == nil {
		h.log.Debug().Str("reason", reason).Msg("ws auth rejected")
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(ErrorResponse{Error: reason})
		return
	}

	connID := uuid.NewString()
	log := h.log.With().
		Uint64("user_id", identity.UserID).
		Str("conn_id", connID).
		Logger()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	sub := h.registry.Subscribe(identity.UserID)
	defer h.registry.Detach(identity.UserID, sub)
	log.Info().Msg("ws stream subscribed")
	defer log.Info().Msg("ws stream closed")

	// The stream is write-only; CloseRead surfaces the peer closing
	// the socket as context cancellation.
	ctx := conn.CloseRead(r.Context())

	frames := make(chan streamFrame)
	go pumpEvents(ctx, sub, frames)

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "closing")
			return
		case <-ticker.C:
			if err := conn.Ping(ctx); err != nil {
				return
			}
		case frame, ok := <-frames:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "closing")
				return
			}
			if frame.missed > 0 {
				log.Warn().Uint64("missed", frame.missed).Msg("slow consumer, resuming from head")
				continue
			}
			payload, err := frame.event.Payload()
			if err != nil {
				log.Error().Err(err).Str("event", frame.event.Name()).Msg("serialize event")
				continue
			}
			if err := wsjson.Write(ctx, conn, Outbound{Event: frame.event.Name(), Data: payload}); err != nil {
				log.Warn().Err(err).Msg("write ws event")
				return
			}
		}
	}
}
