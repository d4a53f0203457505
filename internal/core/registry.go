package core

import (
	"hash/fnv"
	"sync"
)

const shardCount = 32

// Registry maps user ids to their broadcast channel. It is lock-striped:
// traffic for unrelated users never contends on a shared mutex, and
// get-or-insert for one id is atomic within its shard.
type Registry struct {
	shards   [shardCount]registryShard
	capacity int
	// evictIdle controls whether a user's entry is removed once its
	// last subscriber detaches. Off means entries live for the
	// process lifetime.
	evictIdle bool
}

type registryShard struct {
	mu    sync.RWMutex
	users map[uint64]*Channel
}

// NewRegistry builds a registry whose channels hold capacity events.
// evictIdle selects the entry lifetime policy (see Detach).
func NewRegistry(capacity int, evictIdle bool) *Registry {
	r := &Registry{capacity: capacity, evictIdle: evictIdle}
	for i := range r.shards {
		r.shards[i].users = make(map[uint64]*Channel)
	}
	return r
}

func (r *Registry) shard(userID uint64) *registryShard {
	h := fnv.New32a()
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(userID >> (8 * i))
	}
	_, _ = h.Write(b[:])
	return &r.shards[h.Sum32()%shardCount]
}

// GetOrCreate returns the user's channel, creating it if absent.
// Concurrent calls for the same id observe the same channel.
func (r *Registry) GetOrCreate(userID uint64) *Channel {
	s := r.shard(userID)

	s.mu.RLock()
	ch, ok := s.users[userID]
	s.mu.RUnlock()
	if ok {
		return ch
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.users[userID]; ok {
		return ch
	}
	ch = NewChannel(r.capacity)
	s.users[userID] = ch
	return ch
}

// Subscribe attaches a fresh cursor to the user's channel, starting at
// the current head: no historical backlog is ever delivered. It retries
// if it lost a race against eviction of the same entry.
func (r *Registry) Subscribe(userID uint64) *Subscriber {
	for {
		if sub, ok := r.GetOrCreate(userID).Subscribe(); ok {
			return sub
		}
	}
}

// Detach releases sub and applies the eviction policy: with evictIdle
// set, a channel left with zero subscribers is closed and removed,
// bounding registry growth at the cost of its buffered events.
func (r *Registry) Detach(userID uint64, sub *Subscriber) {
	remaining := sub.Unsubscribe()
	if !r.evictIdle || remaining > 0 {
		return
	}

	s := r.shard(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.users[userID]
	if !ok || !ch.closeIfIdle() {
		return
	}
	delete(s.users, userID)
}

// Publish enqueues the event for the user, best-effort. Absent entry or
// zero current subscribers means the event is dropped, not queued.
func (r *Registry) Publish(userID uint64, ev *Event) {
	s := r.shard(userID)
	s.mu.RLock()
	ch, ok := s.users[userID]
	s.mu.RUnlock()
	if ok {
		ch.Publish(ev)
	}
}

// Subscribers reports the number of live cursors for the user.
func (r *Registry) Subscribers(userID uint64) int {
	s := r.shard(userID)
	s.mu.RLock()
	ch, ok := s.users[userID]
	s.mu.RUnlock()
	if !ok {
		return 0
	}
	return ch.SubscriberCount()
}
