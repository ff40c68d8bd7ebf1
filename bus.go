// File: lixenwraith/layerconf/bus.go
package layerconf

import (
	"sync"
	"sync/atomic"
	"time"
)

// Topics published by the Service.
const (
	// TopicLoaded announces a module's first successful load, payload *UpdateEvent
	TopicLoaded = "config.loaded"
	// TopicUpdated announces a successful reload, payload *UpdateEvent
	TopicUpdated = "config.updated"
)

const (
	DefaultMaxSubscribers = 100 // Prevent resource exhaustion
	subscriberBuffer      = 16
)

// Publisher is the notification sink the Service announces loads and reloads to.
type Publisher interface {
	Publish(topic string, payload any)
}

// UpdateEvent is the payload of TopicLoaded and TopicUpdated.
type UpdateEvent struct {
	Key      string
	Value    any
	OldValue any // nil on first load
	Version  uint64
	// ChangedPaths lists dot paths whose value differs from the previous snapshot
	ChangedPaths []string
	UpdatedAt    time.Time
}

// Event is delivered to Bus subscribers.
type Event struct {
	Topic   string
	Payload any
}

// Bus is an in-process Publisher with channel subscribers. Delivery never
// blocks the publisher: a subscriber whose buffer is full misses the event.
type Bus struct {
	mu             sync.RWMutex
	subscribers    map[string]map[int64]chan Event
	nextID         atomic.Int64
	maxSubscribers int
	closed         bool
	dropped        atomic.Int64
}

// NewBus creates a Bus with DefaultMaxSubscribers.
func NewBus() *Bus {
	return &Bus{
		subscribers:    make(map[string]map[int64]chan Event),
		maxSubscribers: DefaultMaxSubscribers,
	}
}

// Subscribe returns a channel receiving events of topic and a function that
// cancels the subscription and closes the channel. When the subscriber limit
// is reached or the bus is closed, the returned channel is already closed.
func (b *Bus) Subscribe(topic string) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed || b.countLocked() >= b.maxSubscribers {
		ch := make(chan Event)
		close(ch)
		return ch, func() {}
	}

	ch := make(chan Event, subscriberBuffer)
	id := b.nextID.Add(1)
	if b.subscribers[topic] == nil {
		b.subscribers[topic] = make(map[int64]chan Event)
	}
	b.subscribers[topic][id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() { b.unsubscribe(topic, id) })
	}
}

func (b *Bus) unsubscribe(topic string, id int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subscribers[topic][id]; ok {
		delete(b.subscribers[topic], id)
		close(ch)
	}
}

// Publish delivers payload to every subscriber of topic without blocking.
func (b *Bus) Publish(topic string, payload any) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers[topic] {
		select {
		case ch <- Event{Topic: topic, Payload: payload}:
		default:
			b.dropped.Add(1)
		}
	}
}

// Dropped returns how many deliveries were skipped because a subscriber was full.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}

// SubscriberCount returns the number of active subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.countLocked()
}

func (b *Bus) countLocked() int {
	n := 0
	for _, subs := range b.subscribers {
		n += len(subs)
	}
	return n
}

// Close closes every subscriber channel; later subscriptions receive closed channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for topic, subs := range b.subscribers {
		for id, ch := range subs {
			close(ch)
			delete(subs, id)
		}
		delete(b.subscribers, topic)
	}
}
