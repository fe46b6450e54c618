// Package correlation turns the fire-and-forget bus into request/response
// calls: each call registers a one-shot waiter on a response topic, publishes
// the request and settles exactly once on match, deadline, cancellation,
// transport failure or disconnect.
package correlation

import (
	"context"
	"sync"
	"time"

	"walletdash/internal/bus"
	"walletdash/internal/metrics"
	"walletdash/internal/router"
	"walletdash/pkg/apperror"
	"walletdash/pkg/logger"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const DefaultTimeout = 5 * time.Second

// Request describes one correlated exchange. Match is mandatory: the bus is
// shared by every session, so it must select this requester's response only.
type Request struct {
	RequestTopic  string
	Payload       []byte
	ResponseTopic string
	Match         router.Predicate
	Timeout       time.Duration
}

type outcome struct {
	env   *router.Envelope
	err   error
	label string
}

type waiter struct {
	id      string
	topic   string
	match   router.Predicate
	started time.Time
	done    chan outcome
	settled bool // guarded by Engine.mu
}

type Engine struct {
	bus            bus.Bus
	log            zerolog.Logger
	defaultTimeout time.Duration

	mu      sync.Mutex
	waiters map[string][]*waiter
}

func New(b bus.Bus, defaultTimeout time.Duration, log zerolog.Logger) *Engine {
	if defaultTimeout <= 0 {
		defaultTimeout = DefaultTimeout
	}
	return &Engine{
		bus:            b,
		log:            logger.Component(log, "correlation"),
		defaultTimeout: defaultTimeout,
		waiters:        make(map[string][]*waiter),
	}
}

// RequestResponse publishes req and blocks until its response arrives or the
// waiter is settled some other way. A matched response whose status flag is
// false is returned together with an application error.
func (e *Engine) RequestResponse(ctx context.Context, req Request) (*router.Envelope, error) {
	if req.Match == nil {
		return nil, apperror.Validation("correlation predicate is required")
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = e.defaultTimeout
	}

	w := &waiter{
		id:      uuid.NewString(),
		topic:   req.ResponseTopic,
		match:   req.Match,
		started: time.Now(),
		done:    make(chan outcome, 1),
	}

	if err := e.bus.Subscribe(req.ResponseTopic); err != nil {
		metrics.ObserveCorrelation("transport", 0)
		return nil, apperror.Transport(err)
	}
	e.register(w)

	// The waiter is registered before publishing so a fast response cannot
	// slip past it.
	var o outcome
	if err := e.bus.Publish(req.RequestTopic, req.Payload); err != nil {
		e.settle(w, outcome{err: apperror.Transport(err), label: "transport"})
		o = <-w.done
	} else {
		o = e.await(ctx, w, timeout)
	}

	if o.err != nil {
		return nil, o.err
	}
	return o.env, o.env.Failure()
}

func (e *Engine) await(ctx context.Context, w *waiter, timeout time.Duration) outcome {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case o := <-w.done:
		return o
	case <-timer.C:
		e.settle(w, outcome{err: apperror.Timeout(w.topic), label: "timeout"})
	case <-ctx.Done():
		e.settle(w, outcome{err: apperror.Canceled(ctx.Err()), label: "canceled"})
	}
	// Either our settle won or a match raced it; exactly one outcome is sent.
	return <-w.done
}

// Offer hands an inbound message to the waiters registered on its topic, in
// registration order. It reports whether a waiter consumed the message.
func (e *Engine) Offer(msg bus.Message) bool {
	e.mu.Lock()
	candidates := append([]*waiter(nil), e.waiters[msg.Topic]...)
	e.mu.Unlock()

	if len(candidates) == 0 {
		return false
	}

	env, err := router.Decode(msg.Payload)
	if err != nil {
		e.log.Warn().Err(err).Str("topic", msg.Topic).Msg("dropping undecodable response")
		return false
	}

	for _, w := range candidates {
		if !w.match(env) {
			continue
		}
		if e.settle(w, outcome{env: env, label: "matched"}) {
			return true
		}
	}
	return false
}

// FailAll settles every outstanding waiter with err.
func (e *Engine) FailAll(err error) int {
	e.mu.Lock()
	var all []*waiter
	for _, ws := range e.waiters {
		all = append(all, ws...)
	}
	e.mu.Unlock()

	n := 0
	for _, w := range all {
		if e.settle(w, outcome{err: err, label: "disconnected"}) {
			n++
		}
	}
	if n > 0 {
		e.log.Warn().Int("waiters", n).Err(err).Msg("force-settled outstanding requests")
	}
	return n
}

// Pending returns the number of live waiters.
func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.countLocked()
}

func (e *Engine) register(w *waiter) {
	e.mu.Lock()
	e.waiters[w.topic] = append(e.waiters[w.topic], w)
	n := e.countLocked()
	e.mu.Unlock()

	metrics.SetPending(n)
	e.log.Debug().Str("waiter", w.id).Str("topic", w.topic).Msg("waiter registered")
}

// settle removes w, releases its subscription and delivers o. Only the first
// call for a waiter has any effect.
func (e *Engine) settle(w *waiter, o outcome) bool {
	e.mu.Lock()
	if w.settled {
		e.mu.Unlock()
		return false
	}
	w.settled = true
	ws := e.waiters[w.topic]
	for i, cur := range ws {
		if cur == w {
			ws = append(ws[:i:i], ws[i+1:]...)
			break
		}
	}
	if len(ws) == 0 {
		delete(e.waiters, w.topic)
	} else {
		e.waiters[w.topic] = ws
	}
	n := e.countLocked()
	e.mu.Unlock()

	if err := e.bus.Unsubscribe(w.topic); err != nil {
		e.log.Debug().Err(err).Str("topic", w.topic).Msg("unsubscribe after settle failed")
	}

	metrics.SetPending(n)
	metrics.ObserveCorrelation(o.label, time.Since(w.started).Seconds())
	e.log.Debug().Str("waiter", w.id).Str("outcome", o.label).Msg("waiter settled")

	w.done <- o
	return true
}

func (e *Engine) countLocked() int {
	n := 0
	for _, ws := range e.waiters {
		n += len(ws)
	}
	return n
}
