// ABOUTME: TTL-based echo-loop guard for the conversational relay.
// ABOUTME: Remembers digests of relayed payloads to break exact recirculation.

package guard

import (
	"container/list"
	"hash/fnv"
	"sync"
	"time"
)

// entry stores the timestamp and eviction-list element for a remembered digest.
type entry struct {
	seenAt  time.Time
	element *list.Element
}

// Guard detects exact recirculation in the relay loop: if the same peer
// payload comes back within the TTL, the relay skips the completion round-trip
// instead of feeding the loop. Digests are FNV-64a of the payload bytes, kept
// in insertion order for O(1) eviction when the guard is at capacity.
//
// Guard is safe for concurrent use, though the relay worker is in practice
// its only caller.
type Guard struct {
	mu      sync.Mutex
	seen    map[uint64]*entry
	order   *list.List // digests in insertion order, oldest at front
	ttl     time.Duration
	maxSize int
	done    chan struct{}
	closed  bool
}

// New creates a Guard with the given TTL and maximum number of remembered
// digests. A background goroutine periodically drops expired entries.
func New(ttl time.Duration, maxSize int) *Guard {
	g := &Guard{
		seen:    make(map[uint64]*entry),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		done:    make(chan struct{}),
	}
	go g.sweep()
	return g
}

// CheckAndMark atomically reports whether payload was relayed within the TTL,
// remembering it if not. Returns true for a recirculated payload (the caller
// should skip it), false for a fresh one that is now remembered.
func (g *Guard) CheckAndMark(payload []byte) bool {
	key := digest(payload)

	g.mu.Lock()
	defer g.mu.Unlock()

	if e, ok := g.seen[key]; ok && time.Since(e.seenAt) < g.ttl {
		return true
	}
	g.rememberLocked(key)
	return false
}

// rememberLocked records a digest, evicting the oldest entry at capacity.
// Must be called with mu held.
func (g *Guard) rememberLocked(key uint64) {
	now := time.Now()

	if e, ok := g.seen[key]; ok {
		e.seenAt = now
		g.order.MoveToBack(e.element)
		return
	}

	if len(g.seen) >= g.maxSize {
		g.evictOldestLocked()
	}

	elem := g.order.PushBack(key)
	g.seen[key] = &entry{seenAt: now, element: elem}
}

// evictOldestLocked removes the oldest digest. Must be called with mu held.
func (g *Guard) evictOldestLocked() {
	front := g.order.Front()
	if front == nil {
		return
	}
	key, _ := front.Value.(uint64)
	g.order.Remove(front)
	delete(g.seen, key)
}

// sweep periodically removes expired digests until Close.
func (g *Guard) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.dropExpired()
		case <-g.done:
			return
		}
	}
}

// dropExpired removes every digest older than the TTL.
func (g *Guard) dropExpired() {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	for key, e := range g.seen {
		if now.Sub(e.seenAt) > g.ttl {
			g.order.Remove(e.element)
			delete(g.seen, key)
		}
	}
}

// Len returns the number of remembered digests.
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.seen)
}

// Close stops the background sweeper. Safe to call more than once.
func (g *Guard) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.closed {
		close(g.done)
		g.closed = true
	}
}

// digest hashes payload bytes to the guard's key space.
func digest(payload []byte) uint64 {
	h := fnv.New64a()
	_, _ = h.Write(payload)
	return h.Sum64()
}
