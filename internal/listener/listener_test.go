package listener

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/wirechat-notify/internal/core"
)

type recordingSink struct {
	notifications []*core.ChangeNotification
}

func (r *recordingSink) Publish(n *core.ChangeNotification) {
	r.notifications = append(r.notifications, n)
}

func newTestListener(sink Sink) *Listener {
	logger := zerolog.Nop()
	return New("postgres://localhost/ignored", "chat_events", sink, &logger)
}

func TestHandlePayloadForwardsDecodedNotification(t *testing.T) {
	sink := &recordingSink{}
	l := newTestListener(sink)

	l.handlePayload(`{
		"type": "NewMessage",
		"recipients": [2],
		"data": {"id": 1, "chatId": 10, "senderId": 1, "content": "hello", "files": [], "createdAt": "2026-08-30T12:00:00Z"}
	}`)

	require.Len(t, sink.notifications, 1)
	n := sink.notifications[0]
	assert.Equal(t, core.EventNewMessage, n.Event.Kind)
	assert.Equal(t, "hello", n.Event.Message.Content)
	assert.Equal(t, []uint64{2}, n.Recipients)
}

func TestHandlePayloadSurvivesMalformedInput(t *testing.T) {
	sink := &recordingSink{}
	l := newTestListener(sink)

	// A bad payload is dropped; the one after it still goes through.
	l.handlePayload(`{"type": "NewChat", "recipients": [1], "data": "oops"}`)
	l.handlePayload(`definitely not json`)
	l.handlePayload(`{
		"type": "NewChat",
		"recipients": [1],
		"data": {"id": 10, "wsId": 1, "name": "test", "type": "group", "members": [1, 2], "createdAt": "2026-08-30T12:00:00Z"}
	}`)

	require.Len(t, sink.notifications, 1)
	assert.Equal(t, core.EventNewChat, sink.notifications[0].Event.Kind)
}

func TestNextBackoffDoublesAndCaps(t *testing.T) {
	d := initialBackoff
	for i := 0; i < 20; i++ {
		next := nextBackoff(d)
		assert.GreaterOrEqual(t, next, d)
		assert.LessOrEqual(t, next, maxBackoff)
		d = next
	}
	assert.Equal(t, maxBackoff, d)
	assert.Equal(t, time.Second, nextBackoff(500*time.Millisecond))
}
