package nats

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"walletdash/internal/bus"
	"walletdash/pkg/logger"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

const DefaultBufferSize = 256

type Options struct {
	URL           string
	User          string
	Password      string
	Name          string
	ReconnectWait time.Duration
	BufferSize    int
}

// Bus is the bus.Bus adapter over a single NATS connection. All
// subscriptions deliver into one channel so inbound messages are consumed
// by a single goroutine in arrival order.
type Bus struct {
	nc     *nats.Conn
	msgs   chan *nats.Msg
	states chan bus.State
	log    zerolog.Logger

	mu   sync.Mutex
	subs map[string]*subscription
}

type subscription struct {
	sub  *nats.Subscription
	refs int
}

// Connect dials the broker and keeps reconnecting forever. Connection state
// changes are queued on States; the first one is StateConnected.
func Connect(opts Options, log zerolog.Logger) (*Bus, error) {
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	if opts.ReconnectWait <= 0 {
		opts.ReconnectWait = 2 * time.Second
	}
	if opts.Name == "" {
		opts.Name = "walletdash"
	}

	b := &Bus{
		msgs:   make(chan *nats.Msg, opts.BufferSize),
		states: make(chan bus.State, 16),
		log:    logger.Component(log, "nats"),
		subs:   make(map[string]*subscription),
	}

	natsOpts := []nats.Option{
		nats.Name(opts.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(opts.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			b.log.Warn().Err(err).Msg("disconnected from broker")
			b.emit(bus.StateDisconnected)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			b.log.Info().Str("url", nc.ConnectedUrlRedacted()).Msg("reconnected to broker")
			b.emit(bus.StateConnected)
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			b.log.Info().Msg("broker connection closed")
			b.emit(bus.StateClosed)
		}),
	}
	if opts.User != "" {
		natsOpts = append(natsOpts, nats.UserInfo(opts.User, opts.Password))
	}

	nc, err := nats.Connect(opts.URL, natsOpts...)
	if err != nil {
		return nil, fmt.Errorf("nats: connect %s: %w", opts.URL, err)
	}
	b.nc = nc
	b.log.Info().Str("url", nc.ConnectedUrlRedacted()).Msg("connected to broker")
	b.emit(bus.StateConnected)
	return b, nil
}

// Messages is the shared inbound channel.
func (b *Bus) Messages() <-chan *nats.Msg {
	return b.msgs
}

// States reports connection transitions in the order they happened.
func (b *Bus) States() <-chan bus.State {
	return b.states
}

func (b *Bus) emit(s bus.State) {
	select {
	case b.states <- s:
	default:
		b.log.Warn().Str("state", s.String()).Msg("state queue full, dropping transition")
	}
}

func (b *Bus) Connected() bool {
	return b.nc != nil && b.nc.IsConnected()
}

func (b *Bus) Publish(topic string, payload []byte) error {
	if !b.Connected() {
		return bus.ErrNotConnected
	}
	if err := b.nc.Publish(SubjectFor(topic), payload); err != nil {
		if errors.Is(err, nats.ErrConnectionClosed) || errors.Is(err, nats.ErrConnectionReconnecting) {
			return bus.ErrNotConnected
		}
		return err
	}
	return nil
}

// Subscribe adds a reference to topic. Only the first reference creates a
// broker subscription; NATS replays it on reconnect.
func (b *Bus) Subscribe(topic string) error {
	if b.nc == nil || b.nc.IsClosed() {
		return bus.ErrNotConnected
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if s, ok := b.subs[topic]; ok {
		s.refs++
		return nil
	}
	sub, err := b.nc.ChanSubscribe(SubjectFor(topic), b.msgs)
	if err != nil {
		return fmt.Errorf("nats: subscribe %s: %w", topic, err)
	}
	b.subs[topic] = &subscription{sub: sub, refs: 1}
	return nil
}

func (b *Bus) Unsubscribe(topic string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.subs[topic]
	if !ok {
		return nil
	}
	s.refs--
	if s.refs > 0 {
		return nil
	}
	delete(b.subs, topic)
	if err := s.sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		return fmt.Errorf("nats: unsubscribe %s: %w", topic, err)
	}
	return nil
}

// Refs returns the reference count held for topic.
func (b *Bus) Refs(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.subs[topic]; ok {
		return s.refs
	}
	return 0
}

// Close flushes pending publishes and closes the connection.
func (b *Bus) Close() {
	if b.nc == nil {
		return
	}
	if err := b.nc.Drain(); err != nil {
		b.nc.Close()
	}
}

// SubjectFor maps a '/'-separated topic to a NATS subject, translating the
// MQTT wildcards '+' and '#'.
func SubjectFor(topic string) string {
	parts := strings.Split(strings.Trim(topic, "/"), "/")
	for i, p := range parts {
		switch p {
		case "+":
			parts[i] = "*"
		case "#":
			parts[i] = ">"
		}
	}
	return strings.Join(parts, ".")
}

// TopicFor is the inverse of SubjectFor for concrete subjects.
func TopicFor(subject string) string {
	return strings.ReplaceAll(subject, ".", "/")
}
