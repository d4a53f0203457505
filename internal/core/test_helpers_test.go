package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newMessageEvent(id int64, content string) *Event {
	return &Event{
		Kind: EventNewMessage,
		Message: &Message{
			ID:        id,
			ChatID:    10,
			SenderID:  1,
			Content:   content,
			Files:     []string{},
			CreatedAt: time.Now().UTC(),
		},
	}
}

func mustRecv(t *testing.T, sub *Subscriber) *Event {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ev, err := sub.Recv(ctx)
	if err != nil {
		t.Fatalf("recv failed: %v", err)
	}
	return ev
}

func mustRecvNothing(t *testing.T, sub *Subscriber) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	ev, err := sub.Recv(ctx)
	if err == nil {
		t.Fatalf("expected no event, got %+v", ev)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got: %v", err)
	}
}
