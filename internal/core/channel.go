package core

import (
	"context"
	"sync"
)

// DefaultCapacity is how many events a channel ring retains per user.
const DefaultCapacity = 256

// Channel is the per-user broadcast primitive: a fixed-size ring buffer
// with a monotonic write cursor. Every subscriber holds its own read
// cursor, so each live subscriber sees every event published after it
// attached. Publishing never blocks; a subscriber that falls more than
// the ring capacity behind loses the oldest unread items and is told so
// through a LagError.
type Channel struct {
	mu     sync.Mutex
	buf    []*Event
	head   uint64 // next write position
	subs   map[*Subscriber]struct{}
	closed bool
}

// NewChannel builds a broadcast channel with the given ring capacity.
func NewChannel(capacity int) *Channel {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Channel{
		buf:  make([]*Event, capacity),
		subs: make(map[*Subscriber]struct{}),
	}
}

// Publish appends the event and wakes all subscribers. Events published
// while the channel has zero subscribers are dropped outright: a later
// subscriber starts at the current head and must never see them.
func (c *Channel) Publish(ev *Event) {
	c.mu.Lock()
	if c.closed || len(c.subs) == 0 {
		c.mu.Unlock()
		return
	}
	c.buf[c.head%uint64(len(c.buf))] = ev
	c.head++
	for s := range c.subs {
		select {
		case s.wake <- struct{}{}:
		default:
		}
	}
	c.mu.Unlock()
}

// Subscribe attaches a fresh cursor at the current head, so the new
// subscriber receives only events published from now on. Returns false
// if the channel has been closed (evicted); the caller should fetch a
// live channel and retry.
func (c *Channel) Subscribe() (*Subscriber, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, false
	}
	s := &Subscriber{
		ch:     c,
		cursor: c.head,
		wake:   make(chan struct{}, 1),
	}
	c.subs[s] = struct{}{}
	return s, true
}

// SubscriberCount reports how many cursors are currently attached.
func (c *Channel) SubscriberCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

// closeIfIdle closes the channel only when no subscriber is attached,
// check and close under one mutex acquisition, and reports whether the
// channel is now dead. The registry evicts with this so a subscriber
// attaching between its idle check and the close can never land on a
// closed channel.
func (c *Channel) closeIfIdle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	if len(c.subs) > 0 {
		return false
	}
	c.closed = true
	return true
}

// close marks the channel dead and wakes everyone so pending Recv calls
// drain and return ErrChannelClosed.
func (c *Channel) close() {
	c.mu.Lock()
	c.closed = true
	for s := range c.subs {
		select {
		case s.wake <- struct{}{}:
		default:
		}
	}
	c.mu.Unlock()
}

// Subscriber is one read cursor into a channel. One user may hold any
// number of concurrent subscribers, each delivered independently.
type Subscriber struct {
	ch     *Channel
	cursor uint64
	wake   chan struct{}
}

// Recv blocks until the next event is available, the subscriber is found
// to have lagged, or ctx is done. On lag the cursor snaps to the oldest
// retained event and a LagError reports how many were missed; the next
// Recv resumes from there. The publisher is never blocked either way.
func (s *Subscriber) Recv(ctx context.Context) (*Event, error) {
	for {
		s.ch.mu.Lock()
		if s.ch.head > s.cursor {
			capacity := uint64(len(s.ch.buf))
			if s.ch.head-s.cursor > capacity {
				missed := s.ch.head - capacity - s.cursor
				s.cursor = s.ch.head - capacity
				s.ch.mu.Unlock()
				return nil, &LagError{Missed: missed}
			}
			ev := s.ch.buf[s.cursor%capacity]
			s.cursor++
			s.ch.mu.Unlock()
			return ev, nil
		}
		closed := s.ch.closed
		s.ch.mu.Unlock()
		if closed {
			return nil, ErrChannelClosed
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.wake:
		}
	}
}

// Unsubscribe detaches the cursor and reports how many subscribers
// remain, so the registry can apply its eviction policy.
func (s *Subscriber) Unsubscribe() int {
	s.ch.mu.Lock()
	delete(s.ch.subs, s)
	n := len(s.ch.subs)
	s.ch.mu.Unlock()
	return n
}
