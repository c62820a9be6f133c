package events

import (
	"sync"
	"sync/atomic"
	"time"
)

const defaultBuffer = 64

// Envelope wraps a payload with hub-assigned ordering metadata.
type Envelope struct {
	Seq     uint64    `json:"seq"`
	Time    time.Time `json:"time"`
	Name    Name      `json:"event"`
	JobID   string    `json:"jobId"`
	Payload Payload   `json:"data"`
}

// Filter narrows a subscription. Zero values match everything.
type Filter struct {
	JobID string
	Names []Name
}

func (f Filter) matches(name Name, jobID string) bool {
	if f.JobID != "" && f.JobID != jobID {
		return false
	}
	if len(f.Names) == 0 {
		return true
	}
	for _, candidate := range f.Names {
		if candidate == name {
			return true
		}
	}
	return false
}

// Emitter is the fire-and-forget sink the orchestrator publishes into.
type Emitter interface {
	Publish(Payload)
}

// Hub fans published payloads out to subscribers without queueing.
type Hub struct {
	mu     sync.Mutex
	subs   map[uint64]*Subscription
	nextID uint64
	seq    uint64
	buffer int
	closed bool

	dropped atomic.Uint64
	onDrop  func(*Subscription)
	now     func() time.Time
}

// NewHub creates a hub whose subscriptions buffer up to buffer envelopes.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Hub{
		subs:   make(map[uint64]*Subscription),
		buffer: buffer,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// OnDrop registers a callback invoked whenever a subscriber misses an event.
// It runs with the hub locked and must not publish or subscribe.
func (h *Hub) OnDrop(fn func(*Subscription)) {
	h.mu.Lock()
	h.onDrop = fn
	h.mu.Unlock()
}

// Publish delivers payload to every matching subscriber that has buffer room.
// It never blocks.
func (h *Hub) Publish(payload Payload) {
	if h == nil || payload == nil {
		return
	}
	name := payload.EventName()
	jobID := payload.EventJobID()

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.seq++
	env := Envelope{Seq: h.seq, Time: h.now(), Name: name, JobID: jobID, Payload: payload}
	for _, sub := range h.subs {
		if !sub.filter.matches(name, jobID) {
			continue
		}
		select {
		case sub.ch <- env:
		default:
			h.dropped.Add(1)
			sub.dropped.Add(1)
			if h.onDrop != nil {
				h.onDrop(sub)
			}
		}
	}
}

// Subscribe registers a new subscription. Callers must Close it when done.
func (h *Hub) Subscribe(filter Filter) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	sub := &Subscription{
		id:     h.nextID,
		hub:    h,
		filter: filter,
		ch:     make(chan Envelope, h.buffer),
	}
	sub.C = sub.ch
	if h.closed {
		sub.once.Do(func() { close(sub.ch) })
		return sub
	}
	h.subs[sub.id] = sub
	return sub
}

// Subscribers returns the number of open subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Dropped returns the total number of deliveries skipped because a
// subscriber buffer was full.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// Close ends every subscription. Later publishes are discarded.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subs {
		delete(h.subs, id)
		sub.once.Do(func() { close(sub.ch) })
	}
}

// Subscription is a handle on a stream of envelopes. C is closed after Close
// or when the hub shuts down.
type Subscription struct {
	C <-chan Envelope

	id      uint64
	hub     *Hub
	filter  Filter
	ch      chan Envelope
	once    sync.Once
	dropped atomic.Uint64
}

// Close releases the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	if s == nil {
		return
	}
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	delete(s.hub.subs, s.id)
	s.once.Do(func() { close(s.ch) })
}

// Dropped returns how many events this subscriber missed.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}
