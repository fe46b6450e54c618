package nats

import (
	"testing"

	"walletdash/internal/bus"

	"github.com/stretchr/testify/assert"
)

func TestSubjectFor(t *testing.T) {
	tests := map[string]string{
		"B/F/account/identity/request":     "B.F.account.identity.request",
		"/B/F/owo/transfer/send/response/": "B.F.owo.transfer.send.response",
		"B/F/+/live-history":               "B.F.*.live-history",
		"B/F/#":                            "B.F.>",
	}
	for in, want := range tests {
		assert.Equal(t, want, SubjectFor(in), in)
	}
}

func TestTopicFor_RoundTrip(t *testing.T) {
	topic := "B/F/dopay/transfer/receive"
	assert.Equal(t, topic, TopicFor(SubjectFor(topic)))
}

func TestBus_NotConnected(t *testing.T) {
	b := &Bus{subs: make(map[string]*subscription)}

	assert.False(t, b.Connected())
	assert.ErrorIs(t, b.Publish("B/F/shop/buy/request", []byte(`{}`)), bus.ErrNotConnected)
	assert.ErrorIs(t, b.Subscribe("B/F/shop/buy/response"), bus.ErrNotConnected)
	assert.NoError(t, b.Unsubscribe("B/F/shop/buy/response"))
	assert.Equal(t, 0, b.Refs("B/F/shop/buy/response"))
}
