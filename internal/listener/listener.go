package listener

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-notify/internal/core"
)

const (
	initialBackoff = 500 * time.Millisecond
	maxBackoff     = 30 * time.Second
)

// Sink receives decoded change notifications. In production this is
// core.Router; tests substitute a recorder.
type Sink interface {
	Publish(*core.ChangeNotification)
}

// Listener holds one logical subscription to the database's
// change-notification channel and feeds decoded payloads to the sink.
// It is the only component in the service that retries anything.
type Listener struct {
	databaseURL string
	channel     string
	sink        Sink
	log         *zerolog.Logger
}

// New builds a listener for the named Postgres notification channel.
func New(databaseURL, channel string, sink Sink, logger *zerolog.Logger) *Listener {
	return &Listener{
		databaseURL: databaseURL,
		channel:     channel,
		sink:        sink,
		log:         logger,
	}
}

// Run blocks until ctx is done, holding the LISTEN subscription open and
// re-establishing it with capped exponential backoff after any link
// failure. Notifications emitted while the link is down are lost; there
// is no buffering on the database side.
func (l *Listener) Run(ctx context.Context) error {
	backoff := initialBackoff
	for {
		err := l.listen(ctx, func() { backoff = initialBackoff })
		if ctx.Err() != nil {
			return ctx.Err()
		}

		l.log.Warn().Err(err).Dur("retry_in", backoff).Msg("database link lost, reconnecting")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = nextBackoff(backoff)
	}
}

// listen connects, subscribes, and pumps notifications until the link
// breaks or ctx is done. onReady fires once the subscription is live.
func (l *Listener) listen(ctx context.Context, onReady func()) error {
	conn, err := pgx.Connect(ctx, l.databaseURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = conn.Close(closeCtx)
	}()

	if _, err := conn.Exec(ctx, "listen "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen %s: %w", l.channel, err)
	}
	l.log.Info().Str("channel", l.channel).Msg("subscribed to change notifications")
	onReady()

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}
		l.handlePayload(notification.Payload)
	}
}

// handlePayload decodes one raw payload and forwards it. A payload that
// fails to decode is logged and discarded; it must never stop the loop.
func (l *Listener) handlePayload(payload string) {
	n, err := core.DecodeNotification([]byte(payload))
	if err != nil {
		l.log.Warn().Err(err).Str("payload", payload).Msg("discarding malformed notification")
		return
	}
	l.sink.Publish(n)
}

func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}
