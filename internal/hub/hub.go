// Package hub fans out drop events to live subscribers, partitioned by
// session key (the drop slug).
package hub

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"drop-live/internal/events"
	"drop-live/internal/observability"
)

// Transport is one open connection to a subscriber.
type Transport interface {
	// Send writes one serialized event.
	Send(msg []byte) error
	// Sendable reports whether the transport can currently accept writes.
	Sendable() bool
	// Close releases the connection. Safe to call more than once.
	Close() error
}

// DefaultQueueSize is the number of events buffered per subscriber.
const DefaultQueueSize = 64

// Subscription is the handle of a registered transport.
// Events reach the transport through a bounded queue drained by its own writer.
type Subscription struct {
	id        uint64
	key       string
	transport Transport

	queue    chan []byte
	done     chan struct{}
	stopOnce sync.Once
}

// Key returns the session key the subscription is registered under.
func (s *Subscription) Key() string {
	return s.key
}

// enqueue hands msg to the writer without blocking. It reports false when the
// queue is full or the subscription has stopped.
func (s *Subscription) enqueue(msg []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.queue <- msg:
		return true
	default:
		return false
	}
}

func (s *Subscription) stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

// room is the subscriber set of one session key, guarded independently.
type room struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	closed bool // set when the last subscriber left; the room is being removed
}

// Hub is the live subscriber registry.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]*room

	nextID atomic.Uint64
	total  atomic.Int64

	queueSize int
	ws        WSConfig
	logger    zerolog.Logger
}

// New creates an empty hub.
func New(logger zerolog.Logger, opts ...Option) *Hub {
	h := &Hub{
		rooms:     make(map[string]*room),
		queueSize: DefaultQueueSize,
		ws:        DefaultWSConfig(),
		logger:    logger.With().Str("component", "hub").Logger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Option configures Hub.
type Option func(*Hub)

// WithWSConfig sets websocket transport settings.
func WithWSConfig(cfg WSConfig) Option {
	return func(h *Hub) {
		h.ws = cfg
	}
}

// WithQueueSize sets how many events are buffered per subscriber before new
// ones are dropped.
func WithQueueSize(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.queueSize = n
		}
	}
}

// roomFor returns the live room for key, creating it if needed.
func (h *Hub) roomFor(key string) *room {
	h.mu.RLock()
	r, ok := h.rooms[key]
	h.mu.RUnlock()
	if ok {
		r.mu.RLock()
		closed := r.closed
		r.mu.RUnlock()
		if !closed {
			return r
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if r, ok := h.rooms[key]; ok {
		r.mu.RLock()
		closed := r.closed
		r.mu.RUnlock()
		if !closed {
			return r
		}
	}
	r = &room{subs: make(map[uint64]*Subscription)}
	h.rooms[key] = r
	return r
}

// Subscribe registers t under key and sends it a CONNECTED acknowledgement.
// The acknowledgement is queued before the subscription becomes visible to
// Publish, so it is always the first event the transport receives.
func (h *Hub) Subscribe(key string, t Transport) *Subscription {
	sub := &Subscription{
		id:        h.nextID.Add(1),
		key:       key,
		transport: t,
		queue:     make(chan []byte, h.queueSize),
		done:      make(chan struct{}),
	}
	h.send(sub, events.Connected{SessionKey: key})
	go h.writeLoop(sub)

	for {
		r := h.roomFor(key)
		r.mu.Lock()
		if r.closed {
			// Lost a race with the last Unsubscribe; pick up the replacement room.
			r.mu.Unlock()
			continue
		}
		r.subs[sub.id] = sub
		r.mu.Unlock()
		break
	}

	observability.SetSubscribers(h.total.Add(1))
	return sub
}

// writeLoop delivers queued events to the transport until the subscription stops.
func (h *Hub) writeLoop(sub *Subscription) {
	for {
		select {
		case <-sub.done:
			return
		case msg := <-sub.queue:
			if !sub.transport.Sendable() {
				continue
			}
			if err := sub.transport.Send(msg); err != nil {
				h.logger.Debug().Err(err).Str("session_key", sub.key).Msg("send failed")
			}
		}
	}
}

// Unsubscribe removes the handle. An emptied room is dropped from the registry.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	sub.stop()

	h.mu.RLock()
	r, ok := h.rooms[sub.key]
	h.mu.RUnlock()
	if !ok {
		return
	}

	r.mu.Lock()
	if _, ok := r.subs[sub.id]; !ok {
		r.mu.Unlock()
		return
	}
	delete(r.subs, sub.id)
	empty := len(r.subs) == 0
	if empty {
		r.closed = true
	}
	r.mu.Unlock()

	observability.SetSubscribers(h.total.Add(-1))

	if empty {
		h.mu.Lock()
		if h.rooms[sub.key] == r {
			delete(h.rooms, sub.key)
		}
		h.mu.Unlock()
	}
}

// Publish queues ev for every subscriber of key and returns how many accepted it.
// It never blocks on a transport. Unsendable transports are skipped and a
// subscriber whose queue is full misses the event.
func (h *Hub) Publish(key string, ev events.Event) int {
	msg, err := events.Encode(ev)
	if err != nil {
		h.logger.Error().Err(err).Str("session_key", key).Msg("encode event")
		return 0
	}

	h.mu.RLock()
	r, ok := h.rooms[key]
	h.mu.RUnlock()
	if !ok {
		return 0
	}

	r.mu.RLock()
	targets := make([]*Subscription, 0, len(r.subs))
	for _, sub := range r.subs {
		targets = append(targets, sub)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, sub := range targets {
		if !sub.transport.Sendable() {
			continue
		}
		if !sub.enqueue(msg) {
			observability.RecordEventDropped(string(ev.Type()))
			h.logger.Debug().Str("session_key", key).Str("type", string(ev.Type())).Msg("subscriber queue full, event dropped")
			continue
		}
		delivered++
	}

	observability.RecordEventPublished(string(ev.Type()))
	return delivered
}

// HandleInbound processes a payload received from a subscriber.
// PING is answered with PONG; anything else is ignored.
func (h *Hub) HandleInbound(sub *Subscription, raw []byte) {
	if events.IsPing(raw) {
		h.send(sub, events.Pong{})
	}
}

// CountFor returns the number of subscribers registered under key.
func (h *Hub) CountFor(key string) int {
	h.mu.RLock()
	r, ok := h.rooms[key]
	h.mu.RUnlock()
	if !ok {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// TotalCount returns the number of subscribers across all keys.
func (h *Hub) TotalCount() int {
	return int(h.total.Load())
}

func (h *Hub) send(sub *Subscription, ev events.Event) {
	if !sub.transport.Sendable() {
		return
	}
	msg, err := events.Encode(ev)
	if err != nil {
		h.logger.Error().Err(err).Msg("encode event")
		return
	}
	if !sub.enqueue(msg) {
		observability.RecordEventDropped(string(ev.Type()))
	}
}
