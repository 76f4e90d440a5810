package events

import (
	"sync"
	"sync/atomic"
)

const defaultBufSize = 256

// Subscription is one consumer's view of the bus.
type Subscription struct {
	C <-chan Event

	ch      chan Event
	topic   string // "" for all-topic subscriptions
	bus     *EventBus
	dropped atomic.Int64
	once    sync.Once
}

// Dropped returns how many events were discarded because C was full.
func (s *Subscription) Dropped() int64 {
	return s.dropped.Load()
}

// Close detaches the subscription and closes C. Safe to call more than once
// and after the bus itself was closed.
func (s *Subscription) Close() {
	s.once.Do(func() { s.bus.remove(s) })
}

// EventBus is a channel-based pub-sub event bus. Task lifecycle events and
// agent notices flow through it to the chat relay, the TUI and the history
// journal.
type EventBus struct {
	mu      sync.RWMutex
	subs    map[string][]*Subscription // topic -> subscribers
	allSubs []*Subscription            // subscribers to all topics
	closed  bool
}

// NewEventBus creates a new event bus.
func NewEventBus() *EventBus {
	return &EventBus{
		subs: make(map[string][]*Subscription),
	}
}

// Subscribe creates a subscription to a specific topic.
// bufSize determines the channel buffer size (defaults to 256 if <= 0).
func (b *EventBus) Subscribe(topic string, bufSize int) *Subscription {
	return b.add(topic, bufSize)
}

// SubscribeAll creates a subscription that receives events from every topic.
func (b *EventBus) SubscribeAll(bufSize int) *Subscription {
	return b.add("", bufSize)
}

func (b *EventBus) add(topic string, bufSize int) *Subscription {
	if bufSize <= 0 {
		bufSize = defaultBufSize
	}

	ch := make(chan Event, bufSize)
	sub := &Subscription{C: ch, ch: ch, topic: topic, bus: b}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		sub.once.Do(func() { close(ch) })
		return sub
	}

	if topic == "" {
		b.allSubs = append(b.allSubs, sub)
	} else {
		b.subs[topic] = append(b.subs[topic], sub)
	}
	return sub
}

func (b *EventBus) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		// Close already closed the channel.
		return
	}

	list := b.allSubs
	if sub.topic != "" {
		list = b.subs[sub.topic]
	}
	for i, s := range list {
		if s == sub {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if sub.topic == "" {
		b.allSubs = list
	} else {
		b.subs[sub.topic] = list
	}
	close(sub.ch)
}

// Publish sends an event to all subscribers of the given topic and to every
// all-topic subscriber. Non-blocking: a full subscriber misses the event and
// its drop counter goes up. Publishers hold the agent's control baton, so a
// slow consumer must never stall them.
func (b *EventBus) Publish(topic string, event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, sub := range b.subs[topic] {
		sub.deliver(event)
	}
	for _, sub := range b.allSubs {
		sub.deliver(event)
	}
}

func (s *Subscription) deliver(event Event) {
	select {
	case s.ch <- event:
	default:
		s.dropped.Add(1)
	}
}

// Close closes the event bus and all subscriber channels.
// Safe to call multiple times.
func (b *EventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for _, list := range b.subs {
		for _, sub := range list {
			close(sub.ch)
		}
	}
	for _, sub := range b.allSubs {
		close(sub.ch)
	}
}
