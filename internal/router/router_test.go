package router

import (
	"errors"
	"testing"

	"walletdash/internal/bus"
	"walletdash/internal/topic"
	"walletdash/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	env, err := Decode([]byte(`{"status":true,"data":{"current_balance":100}}`))
	require.NoError(t, err)
	assert.True(t, env.Status)
	assert.Equal(t, int64(100), env.Get("data.current_balance").Int())
	assert.NoError(t, env.Failure())
}

func TestDecode_Garbage(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `{status:true`},
		{"array", `[1,2]`},
		{"missing status", `{"data":{}}`},
		{"string status", `{"status":"ok"}`},
		{"empty", ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.payload))
			assert.True(t, apperror.Is(err, apperror.CodeDecode), "got %v", err)
		})
	}
}

func TestEnvelope_Failure(t *testing.T) {
	env, err := Decode([]byte(`{"status":false,"message":"Saldo tidak mencukupi"}`))
	require.NoError(t, err)

	ferr := env.Failure()
	require.Error(t, ferr)
	assert.True(t, apperror.Is(ferr, apperror.CodeApplication))
	assert.Contains(t, ferr.Error(), "Saldo tidak mencukupi")
}

func TestEnvelope_DecodeData(t *testing.T) {
	env, err := Decode([]byte(`{"status":true,"data":{"id":"p1","price":5000}}`))
	require.NoError(t, err)

	var v struct {
		ID    string `json:"id"`
		Price int64  `json:"price"`
	}
	require.NoError(t, env.DecodeData(&v))
	assert.Equal(t, "p1", v.ID)
	assert.Equal(t, int64(5000), v.Price)

	empty, err := Decode([]byte(`{"status":true}`))
	require.NoError(t, err)
	assert.True(t, apperror.Is(empty.DecodeData(&v), apperror.CodeDecode))
}

func TestMatchField(t *testing.T) {
	match := MatchField("sender_email", "me@bankit.com")

	nested, _ := Decode([]byte(`{"status":true,"data":{"sender_email":"ME@bankit.com"}}`))
	top, _ := Decode([]byte(`{"status":false,"sender_email":"me@bankit.com","message":"x"}`))
	other, _ := Decode([]byte(`{"status":true,"data":{"sender_email":"you@bankit.com"}}`))
	none, _ := Decode([]byte(`{"status":true,"data":{}}`))

	assert.True(t, match(nested))
	assert.True(t, match(top))
	assert.False(t, match(other))
	assert.False(t, match(none))
}

func TestRouter_Route(t *testing.T) {
	r := New(topic.New("B/F"))

	ev, err := r.Route(bus.Message{
		Topic:   "B/F/bankit/owo/live-history",
		Payload: []byte(`{"status":true,"data":{"current_balance":80}}`),
	})
	require.NoError(t, err)
	assert.Equal(t, topic.CategoryLiveHistoryPush, ev.Category())
	assert.Equal(t, topic.Owo, ev.Route.Provider)
	assert.Equal(t, int64(80), ev.Envelope.Get("data.current_balance").Int())
}

func TestRouter_Route_Errors(t *testing.T) {
	r := New(topic.New("B/F"))

	_, err := r.Route(bus.Message{Topic: "B/F/nope", Payload: []byte(`{"status":true}`)})
	assert.True(t, errors.Is(err, ErrUnknownTopic))

	_, err = r.Route(bus.Message{Topic: "B/F/shopit/buy/response", Payload: []byte(`garbage`)})
	assert.True(t, apperror.Is(err, apperror.CodeDecode))

	ev, err := r.Route(bus.Message{Topic: "B/F/shopit/buy/response", Payload: []byte(`{"status":false,"message":"stok habis"}`)})
	assert.True(t, apperror.Is(err, apperror.CodeApplication))
	assert.Equal(t, topic.CategoryPurchaseResponse, ev.Category())
	require.NotNil(t, ev.Envelope)
}
