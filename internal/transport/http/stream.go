package http

import (
	"context"
	"errors"

	"github.com/vovakirdan/wirechat-notify/internal/core"
)

// streamFrame is one item flowing from a subscription to an encoder:
// either an event or a lag report (missed > 0).
type streamFrame struct {
	event  *core.Event
	missed uint64
}

// pumpEvents forwards subscriber receives into a channel the encoder can
// select on alongside its heartbeat ticker. A lag report is forwarded as
// a frame so the encoder can log it and keep going. The channel is
// closed when the subscription ends, whether by context cancellation or
// because the registry evicted the underlying channel.
func pumpEvents(ctx context.Context, sub *core.Subscriber, frames chan<- streamFrame) {
	defer close(frames)
	for {
		ev, err := sub.Recv(ctx)
		if err != nil {
			var lag *core.LagError
			if errors.As(err, &lag) {
				select {
				case frames <- streamFrame{missed: lag.Missed}:
					continue
				case <-ctx.Done():
					return
				}
			}
			return
		}

		select {
		case frames <- streamFrame{event: ev}:
		case <-ctx.Done():
			return
		}
	}
}
