// Package bustest provides an in-memory bus.Bus for tests.
package bustest

import (
	"sync"

	"walletdash/internal/bus"
)

// Bus records publishes and subscription counts and delivers injected
// messages to the handler when the topic is subscribed.
type Bus struct {
	mu         sync.Mutex
	connected  bool
	refs       map[string]int
	published  []bus.Message
	handler    bus.Handler
	publishErr error
	onPublish  func(bus.Message)
}

func New() *Bus {
	return &Bus{connected: true, refs: make(map[string]int)}
}

func (b *Bus) SetHandler(h bus.Handler) {
	b.mu.Lock()
	b.handler = h
	b.mu.Unlock()
}

// OnPublish installs a responder invoked after each successful publish,
// outside the bus lock. It may call Deliver.
func (b *Bus) OnPublish(fn func(bus.Message)) {
	b.mu.Lock()
	b.onPublish = fn
	b.mu.Unlock()
}

func (b *Bus) FailPublish(err error) {
	b.mu.Lock()
	b.publishErr = err
	b.mu.Unlock()
}

func (b *Bus) SetConnected(v bool) {
	b.mu.Lock()
	b.connected = v
	b.mu.Unlock()
}

func (b *Bus) Publish(topic string, payload []byte) error {
	b.mu.Lock()
	if !b.connected {
		b.mu.Unlock()
		return bus.ErrNotConnected
	}
	if b.publishErr != nil {
		err := b.publishErr
		b.mu.Unlock()
		return err
	}
	msg := bus.Message{Topic: topic, Payload: append([]byte(nil), payload...)}
	b.published = append(b.published, msg)
	hook := b.onPublish
	b.mu.Unlock()

	if hook != nil {
		hook(msg)
	}
	return nil
}

func (b *Bus) Subscribe(topic string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.connected {
		return bus.ErrNotConnected
	}
	b.refs[topic]++
	return nil
}

func (b *Bus) Unsubscribe(topic string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.refs[topic] <= 1 {
		delete(b.refs, topic)
		return nil
	}
	b.refs[topic]--
	return nil
}

func (b *Bus) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

// Deliver hands msg to the handler if its topic is subscribed and reports
// whether it was delivered.
func (b *Bus) Deliver(topic string, payload []byte) bool {
	b.mu.Lock()
	h := b.handler
	subscribed := b.refs[topic] > 0
	b.mu.Unlock()

	if h == nil || !subscribed {
		return false
	}
	h(bus.Message{Topic: topic, Payload: payload})
	return true
}

// Refs returns the subscription count for topic.
func (b *Bus) Refs(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refs[topic]
}

func (b *Bus) Published() []bus.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]bus.Message(nil), b.published...)
}

// PublishedTo returns the messages published on topic.
func (b *Bus) PublishedTo(topic string) []bus.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []bus.Message
	for _, m := range b.published {
		if m.Topic == topic {
			out = append(out, m)
		}
	}
	return out
}

func (b *Bus) Reset() {
	b.mu.Lock()
	b.published = nil
	b.mu.Unlock()
}
