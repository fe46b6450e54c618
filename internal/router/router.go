// Package router classifies inbound bus messages and decodes their payloads.
package router

import (
	"errors"

	"walletdash/internal/bus"
	"walletdash/internal/topic"
)

// ErrUnknownTopic is returned for messages outside the topic grammar.
var ErrUnknownTopic = errors.New("router: unknown topic")

// Event is a classified, decoded inbound message.
type Event struct {
	Topic    string
	Route    topic.Route
	Envelope *Envelope
}

func (e Event) Category() topic.Category { return e.Route.Category }

type Router struct {
	topics topic.Topics
}

func New(t topic.Topics) *Router {
	return &Router{topics: t}
}

// Route classifies and decodes msg. An application failure still returns the
// populated Event together with the error so callers can log it.
func (r *Router) Route(msg bus.Message) (Event, error) {
	route := r.topics.Classify(msg.Topic)
	if route.Category == topic.CategoryUnknown {
		return Event{Topic: msg.Topic}, ErrUnknownTopic
	}

	env, err := Decode(msg.Payload)
	if err != nil {
		return Event{Topic: msg.Topic, Route: route}, err
	}

	ev := Event{Topic: msg.Topic, Route: route, Envelope: env}
	return ev, env.Failure()
}
