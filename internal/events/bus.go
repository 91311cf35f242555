package events

import (
	"context"
	"sync"
	"sync/atomic"

	"fmcd/internal/metrics"
	"fmcd/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultCapacity is the broadcast channel's default buffer size.
const DefaultCapacity = 1000

// Handler is the small dispatch interface every event-bus sink
// implements. IsCritical decides whether Publish awaits the handler or
// spawns it.
type Handler interface {
	Name() string
	IsCritical() bool
	Handle(ctx context.Context, event FmcdEvent) error
}

// BroadcastMessage is what a Subscription receives: the event plus how
// many earlier events this subscriber missed because it fell behind.
type BroadcastMessage struct {
	Event   FmcdEvent
	Dropped uint64
}

// Subscription is a receiver bound to the bus's broadcast channel. A
// subscriber that falls behind by more than the bus's capacity does not
// block the publisher: its oldest queued messages are discarded to make
// room for new ones, and each message queued after a discard carries the
// number discarded in its Dropped field.
type Subscription struct {
	id      uint64
	ch      chan BroadcastMessage
	dropped atomic.Uint64
	bus     *Bus
}

// Recv blocks until a message is available, ctx is done, or the
// subscription is closed.
func (s *Subscription) Recv(ctx context.Context) (BroadcastMessage, bool) {
	select {
	case msg, ok := <-s.ch:
		return msg, ok
	case <-ctx.Done():
		return BroadcastMessage{}, false
	}
}

// Chan exposes the raw channel for callers (e.g. an SSE handler) that want
// to select over it directly alongside other sources.
func (s *Subscription) Chan() <-chan BroadcastMessage {
	return s.ch
}

// Close unregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.bus.unsubscribe(s.id)
}

// Bus is the in-process event spine: handler fan-out plus broadcast
// subscription, backed by a single mutex for the subscriber map and a
// separate RWMutex for the handler list, which is only ever written at
// registration time during startup.
type Bus struct {
	capacity int

	handlersMu sync.RWMutex
	handlers   []Handler

	subsMu    sync.Mutex
	subs      map[uint64]*Subscription
	nextSubID uint64

	metrics *metrics.Metrics
}

// NewBus constructs a Bus with the given broadcast capacity (0 selects
// DefaultCapacity) and wires it to the process-wide metrics registry.
func NewBus(capacity int) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Bus{
		capacity: capacity,
		subs:     make(map[uint64]*Subscription),
		metrics:  metrics.Get(),
	}
}

// RegisterHandler adds h to the fan-out list. Intended to be called only
// during startup wiring, before Publish is ever called concurrently.
func (b *Bus) RegisterHandler(h Handler) {
	b.handlersMu.Lock()
	defer b.handlersMu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Subscribe returns a new broadcast receiver.
func (b *Bus) Subscribe() *Subscription {
	b.subsMu.Lock()
	defer b.subsMu.Unlock()

	b.nextSubID++
	sub := &Subscription{id: b.nextSubID, ch: make(chan BroadcastMessage, b.capacity), bus: b}
	b.subs[sub.id] = sub
	return sub
}

func (b *Bus) unsubscribe(id uint64) {
	b.subsMu.Lock()
	defer b.subsMu.Unlock()
	if sub, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(sub.ch)
	}
}

// Publish performs three steps: push to every subscriber's channel (a full
// channel discards its oldest message, counted in Dropped), run every
// handler (critical awaited, non-critical spawned), and return only once
// every critical handler has returned. A failing handler is logged but
// never aborts publication for the others, and never fails Publish itself
// (handler delivery is at-least-once, not transactional).
func (b *Bus) Publish(ctx context.Context, event FmcdEvent) {
	b.metrics.EventBusEventsTotal.WithLabelValues(event.EventType()).Inc()

	b.broadcastTo(event)

	b.handlersMu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.handlersMu.RUnlock()

	var critical []Handler
	for _, h := range handlers {
		if h.IsCritical() {
			critical = append(critical, h)
		} else {
			h := h
			go b.runHandler(ctx, h, event)
		}
	}

	if len(critical) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, h := range critical {
		h := h
		g.Go(func() error {
			b.runHandler(gctx, h, event)
			return nil
		})
	}
	_ = g.Wait()
}

func (b *Bus) runHandler(ctx context.Context, h Handler, event FmcdEvent) {
	if err := h.Handle(ctx, event); err != nil {
		logger.Warn("event handler failed",
			zap.String("handler", h.Name()),
			zap.String("event_type", event.EventType()),
			zap.Error(err))
	}
}

func (b *Bus) broadcastTo(event FmcdEvent) {
	b.subsMu.Lock()
	defer b.subsMu.Unlock()

	for _, sub := range b.subs {
		msg := BroadcastMessage{Event: event, Dropped: sub.dropped.Swap(0)}
		select {
		case sub.ch <- msg:
			continue
		default:
		}
		// Full: evict the oldest queued message so the newest is kept, and
		// carry the evicted message's own count forward.
		select {
		case old := <-sub.ch:
			msg.Dropped += old.Dropped + 1
		default:
		}
		select {
		case sub.ch <- msg:
		default:
			sub.dropped.Add(msg.Dropped + 1)
		}
	}
}
