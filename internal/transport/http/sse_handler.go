package http

import (
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-notify/internal/core"
)

// keepAliveText is the comment body of the periodic heartbeat frame.
const keepAliveText = "keep-alive-text"

// SSEHandler serves the long-lived event stream: one subscription per
// connection, events serialized as named SSE records, heartbeat comments
// on idle. The stream has no timeout of its own; it ends when either
// side closes the transport.
type SSEHandler struct {
	registry  *core.Registry
	heartbeat time.Duration
	log       *zerolog.Logger
}

// NewSSEHandler builds the /events handler.
func NewSSEHandler(registry *core.Registry, heartbeat time.Duration, logger *zerolog.Logger) gin.HandlerFunc {
	h := &SSEHandler{registry: registry, heartbeat: heartbeat, log: logger}
	return h.handle
}

func (h *SSEHandler) handle(c *gin.Context) {
	identity := identityFrom(c)
	connID := uuid.NewString()

	log := h.log.With().
		Uint64("user_id", identity.UserID).
		Str("conn_id", connID).
		Logger()

	sub := h.registry.Subscribe(identity.UserID)
	defer h.registry.Detach(identity.UserID, sub)
	log.Info().Msg("sse stream subscribed")
	defer log.Info().Msg("sse stream closed")

	header := c.Writer.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	c.Writer.WriteHeader(stdhttp.StatusOK)
	c.Writer.Flush()

	ctx := c.Request.Context()
	frames := make(chan streamFrame)
	go pumpEvents(ctx, sub, frames)

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fmt.Fprintf(c.Writer, ": %s\n\n", keepAliveText)
			c.Writer.Flush()
		case frame, ok := <-frames:
			if !ok {
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
			fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", frame.event.Name(), payload)
			c.Writer.Flush()
		}
	}
}
