// Package bus defines the transport contract the dashboard core depends on.
// Topics are MQTT-style, '/'-separated strings; adapters translate them to
// whatever the broker speaks.
package bus

import "errors"

// ErrNotConnected is returned by Publish and Subscribe while the connection is down.
var ErrNotConnected = errors.New("bus: not connected")

// Message is one inbound (topic, payload) event.
type Message struct {
	Topic   string
	Payload []byte
}

// Handler consumes inbound messages. Adapters call it from a single goroutine
// in arrival order.
type Handler func(Message)

type State int

const (
	StateDisconnected State = iota
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "disconnected"
	}
}

// Bus is a persistent publish/subscribe connection.
//
// Subscriptions are reference counted: every Subscribe must be balanced by an
// Unsubscribe, and the broker subscription is dropped only when the count for
// a topic returns to zero.
type Bus interface {
	Publish(topic string, payload []byte) error
	Subscribe(topic string) error
	Unsubscribe(topic string) error
	Connected() bool
}
