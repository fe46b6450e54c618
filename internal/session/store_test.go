package session

import (
	"errors"
	"testing"

	"walletdash/internal/bus"
	"walletdash/internal/router"
	"walletdash/internal/topic"
	"walletdash/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tp = topic.New("B/F")

func event(t *testing.T, topicName, payload string) router.Event {
	t.Helper()
	ev, err := router.New(tp).Route(bus.Message{Topic: topicName, Payload: []byte(payload)})
	if err != nil && !apperror.Is(err, apperror.CodeApplication) {
		t.Fatalf("route %s: %v", topicName, err)
	}
	return ev
}

func walletSnapshot(t *testing.T, method string, balance string) router.Event {
	return event(t, tp.WalletIdentityResponse(),
		`{"status":true,"data":{"id":"w-`+method+`","wallet_name":"`+method+`","payment_method":"`+method+`","balance":`+balance+`}}`)
}

func historySnapshot(t *testing.T, balance string) router.Event {
	return event(t, tp.WalletHistoryResponse(),
		`{"status":true,"data":{"current_balance":`+balance+`,"transactions":[{"id":"t1","transaction_type":"TRANSFER","amount":20,"type":"debit"}]}}`)
}

func livePush(t *testing.T, p topic.Provider, balance string) router.Event {
	return event(t, tp.LiveHistory(p), `{"status":true,"data":{"current_balance":`+balance+`}}`)
}

func TestStore_Identity(t *testing.T) {
	s := NewStore(zerolog.Nop())

	_, err := s.Apply(event(t, tp.AccountIdentityResponse(),
		`{"status":true,"data":{"id":"u1","name":"Kelompok F","email":"insys-B-F@bankit.com"}}`))
	require.NoError(t, err)

	st := s.State()
	require.NotNil(t, st.Identity)
	assert.Equal(t, "insys-B-F@bankit.com", st.Identity.Email)
}

func TestStore_WalletSnapshotRequestsHistory(t *testing.T) {
	s := NewStore(zerolog.Nop())
	s.BeginSelection(topic.Owo)

	eff, err := s.Apply(walletSnapshot(t, "OWO", "100"))
	require.NoError(t, err)
	assert.Equal(t, topic.Owo, eff.RequestHistory)

	st := s.State()
	require.NotNil(t, st.Wallet)
	assert.Equal(t, "owo", st.Wallet.PaymentMethod)
	assert.Equal(t, int64(100), st.Wallet.Balance)
	assert.Empty(t, st.History)
}

func TestStore_WalletSnapshotIdempotent(t *testing.T) {
	s := NewStore(zerolog.Nop())
	s.BeginSelection(topic.Owo)

	_, err := s.Apply(walletSnapshot(t, "owo", "100"))
	require.NoError(t, err)
	_, err = s.Apply(historySnapshot(t, "100"))
	require.NoError(t, err)
	first := s.State()

	_, err = s.Apply(walletSnapshot(t, "owo", "100"))
	require.NoError(t, err)
	_, err = s.Apply(historySnapshot(t, "100"))
	require.NoError(t, err)
	second := s.State()

	assert.Equal(t, first.Wallet, second.Wallet)
	assert.Len(t, second.History, 1, "history is replaced, never appended")
}

func TestStore_HistoryPatchesBalance(t *testing.T) {
	s := NewStore(zerolog.Nop())
	s.BeginSelection(topic.Dopay)
	_, _ = s.Apply(walletSnapshot(t, "dopay", "100"))

	eff, err := s.Apply(historySnapshot(t, "75"))
	require.NoError(t, err)
	assert.Equal(t, Effect{}, eff)

	st := s.State()
	assert.Equal(t, int64(75), st.Wallet.Balance)
	require.Len(t, st.History, 1)
	assert.Equal(t, "debit", st.History[0].Direction)
}

func TestStore_LastWriteWinsByArrival(t *testing.T) {
	s := NewStore(zerolog.Nop())
	s.BeginSelection(topic.Owo)

	_, err := s.Apply(walletSnapshot(t, "owo", "100"))
	require.NoError(t, err)
	eff, err := s.Apply(livePush(t, topic.Owo, "80"))
	require.NoError(t, err)

	assert.Equal(t, int64(80), s.State().Wallet.Balance)
	assert.Equal(t, topic.Owo, eff.RequestHistory)
	assert.Equal(t, "Balance updated", eff.Notice)

	_, err = s.Apply(historySnapshot(t, "95"))
	require.NoError(t, err)
	assert.Equal(t, int64(95), s.State().Wallet.Balance)
}

func TestStore_LiveReceiveNotice(t *testing.T) {
	s := NewStore(zerolog.Nop())
	s.BeginSelection(topic.Owo)
	_, _ = s.Apply(walletSnapshot(t, "owo", "100"))

	eff, err := s.Apply(event(t, tp.TransferReceive(topic.Owo),
		`{"status":true,"data":{"current_balance":150,"message":"Anda menerima Rp 50"}}`))
	require.NoError(t, err)
	assert.Equal(t, "Anda menerima Rp 50", eff.Notice)
	assert.Equal(t, int64(150), s.State().Wallet.Balance)
}

func TestStore_LivePushForOtherWalletIgnored(t *testing.T) {
	s := NewStore(zerolog.Nop())
	s.BeginSelection(topic.Owo)
	_, _ = s.Apply(walletSnapshot(t, "owo", "100"))

	_, err := s.Apply(livePush(t, topic.Dopay, "5"))
	assert.True(t, errors.Is(err, ErrStale))
	assert.Equal(t, int64(100), s.State().Wallet.Balance)
}

func TestStore_LivePushWithoutBalanceRejected(t *testing.T) {
	s := NewStore(zerolog.Nop())
	s.BeginSelection(topic.Owo)
	_, _ = s.Apply(walletSnapshot(t, "owo", "100"))

	_, err := s.Apply(event(t, tp.LiveHistory(topic.Owo), `{"status":true,"data":{}}`))
	assert.Error(t, err)
	assert.Equal(t, int64(100), s.State().Wallet.Balance)
}

func TestStore_RapidReselectionDropsLateResponse(t *testing.T) {
	s := NewStore(zerolog.Nop())

	s.BeginSelection(topic.Owo)
	s.BeginSelection(topic.Dopay)

	_, err := s.Apply(walletSnapshot(t, "owo", "100"))
	assert.True(t, errors.Is(err, ErrStale))
	assert.Nil(t, s.State().Wallet)

	_, err = s.Apply(walletSnapshot(t, "dopay", "40"))
	require.NoError(t, err)

	st := s.State()
	assert.Equal(t, topic.Dopay, st.Selected)
	assert.Equal(t, "dopay", st.Wallet.PaymentMethod)
	assert.Equal(t, int64(40), st.Wallet.Balance)
}

func TestStore_BeginSelectionClearsWalletAndHistory(t *testing.T) {
	s := NewStore(zerolog.Nop())
	s.BeginSelection(topic.Owo)
	_, _ = s.Apply(walletSnapshot(t, "owo", "100"))
	_, _ = s.Apply(historySnapshot(t, "100"))

	s.BeginSelection(topic.Ringaja)

	st := s.State()
	assert.Nil(t, st.Wallet)
	assert.Empty(t, st.History)
	assert.Equal(t, topic.Ringaja, st.Selected)
}

func TestStore_HistoryGuards(t *testing.T) {
	s := NewStore(zerolog.Nop())

	_, err := s.Apply(historySnapshot(t, "10"))
	assert.True(t, errors.Is(err, ErrStale), "no selection yet")

	s.BeginSelection(topic.Owo)
	_, err = s.Apply(event(t, tp.WalletHistoryResponse(),
		`{"status":true,"data":{"payment_method":"dopay","current_balance":1,"transactions":[]}}`))
	assert.True(t, errors.Is(err, ErrStale), "history for another wallet")
}

func TestStore_CatalogReplaced(t *testing.T) {
	s := NewStore(zerolog.Nop())

	_, err := s.Apply(event(t, tp.CatalogResponse(),
		`{"status":true,"data":[{"id":"p1","name":"Kopi","price":15000,"quantity":3},{"id":"p2","name":"Teh","price":8000,"quantity":0}]}`))
	require.NoError(t, err)
	assert.Len(t, s.State().Products, 2)

	_, err = s.Apply(event(t, tp.CatalogResponse(), `{"status":true,"data":[{"id":"p3","name":"Roti","price":9000,"quantity":1}]}`))
	require.NoError(t, err)

	products := s.State().Products
	require.Len(t, products, 1)
	assert.Equal(t, "p3", products[0].ID)
}

func TestStore_ApplicationFailureDoesNotMutate(t *testing.T) {
	s := NewStore(zerolog.Nop())
	s.BeginSelection(topic.Owo)

	_, err := s.Apply(event(t, tp.WalletIdentityResponse(), `{"status":false,"message":"wallet not found"}`))
	assert.True(t, apperror.Is(err, apperror.CodeApplication))
	assert.Nil(t, s.State().Wallet)
}

func TestStore_ActionOutcomesAreNotApplied(t *testing.T) {
	s := NewStore(zerolog.Nop())
	before := s.State()

	eff, err := s.Apply(event(t, tp.BuyResponse(), `{"status":true,"data":{"buyer_email":"x@y.z"}}`))
	require.NoError(t, err)
	assert.Equal(t, Effect{}, eff)
	assert.Equal(t, before, s.State())
}

func TestStore_StateIsACopy(t *testing.T) {
	s := NewStore(zerolog.Nop())
	s.BeginSelection(topic.Owo)
	_, _ = s.Apply(walletSnapshot(t, "owo", "100"))

	st := s.State()
	st.Wallet.Balance = 0

	assert.Equal(t, int64(100), s.State().Wallet.Balance)
}

func TestStore_OnChange(t *testing.T) {
	s := NewStore(zerolog.Nop())

	var seen []State
	s.OnChange(func(st State) { seen = append(seen, st) })

	s.SetConnected(true)
	s.BeginSelection(topic.Owo)

	require.Len(t, seen, 2)
	assert.True(t, seen[0].Connected)
	assert.Equal(t, topic.Owo, seen[1].Selected)
}

func TestStore_HistoryForPreviousSelectionDropped(t *testing.T) {
	s := NewStore(zerolog.Nop())

	s.BeginSelection(topic.Owo)
	_, err := s.Apply(walletSnapshot(t, "owo", "9999"))
	require.NoError(t, err)
	require.True(t, s.TrackHistoryRequest(topic.Owo))

	s.BeginSelection(topic.Dopay)
	_, err = s.Apply(walletSnapshot(t, "dopay", "2"))
	require.NoError(t, err)
	require.True(t, s.TrackHistoryRequest(topic.Dopay))

	// The owo reply carries no wallet and arrives after the switch.
	_, err = s.Apply(historySnapshot(t, "9999"))
	assert.True(t, errors.Is(err, ErrStale))
	st := s.State()
	assert.Equal(t, int64(2), st.Wallet.Balance)
	assert.Empty(t, st.History)

	_, err = s.Apply(historySnapshot(t, "3"))
	require.NoError(t, err)
	st = s.State()
	assert.Equal(t, int64(3), st.Wallet.Balance)
	assert.Len(t, st.History, 1)
}

func TestStore_HistoryDroppedWhileWalletPending(t *testing.T) {
	s := NewStore(zerolog.Nop())
	s.BeginSelection(topic.Ringaja)

	_, err := s.Apply(historySnapshot(t, "10"))
	assert.True(t, errors.Is(err, ErrStale))
	assert.Empty(t, s.State().History)
}

func TestStore_TrackHistoryRequest(t *testing.T) {
	s := NewStore(zerolog.Nop())
	assert.False(t, s.TrackHistoryRequest(topic.Owo), "nothing selected")

	s.BeginSelection(topic.Owo)
	assert.False(t, s.TrackHistoryRequest(topic.Dopay), "not the selected wallet")
	assert.True(t, s.TrackHistoryRequest(topic.Owo))

	// A failed publish gives the ticket back, so the next reply is unattributed.
	s.UntrackHistoryRequest()
	s.BeginSelection(topic.Dopay)
	_, _ = s.Apply(walletSnapshot(t, "dopay", "5"))
	_, err := s.Apply(historySnapshot(t, "6"))
	require.NoError(t, err)
}

func TestStore_RejectedHistoryReplyConsumesTicket(t *testing.T) {
	s := NewStore(zerolog.Nop())
	s.BeginSelection(topic.Owo)
	_, _ = s.Apply(walletSnapshot(t, "owo", "100"))
	require.True(t, s.TrackHistoryRequest(topic.Owo))

	s.BeginSelection(topic.Dopay)
	_, _ = s.Apply(walletSnapshot(t, "dopay", "50"))
	require.True(t, s.TrackHistoryRequest(topic.Dopay))

	s.DiscardHistoryReply() // owo reply came back with status false

	_, err := s.Apply(historySnapshot(t, "40"))
	require.NoError(t, err)
	assert.Equal(t, int64(40), s.State().Wallet.Balance)
}

func TestStore_DisconnectForgetsTrackedRequests(t *testing.T) {
	s := NewStore(zerolog.Nop())
	s.BeginSelection(topic.Owo)
	require.True(t, s.TrackHistoryRequest(topic.Owo))
	s.BeginSelection(topic.Dopay)
	_, _ = s.Apply(walletSnapshot(t, "dopay", "50"))

	s.SetConnected(false)
	s.SetConnected(true)

	_, err := s.Apply(historySnapshot(t, "45"))
	require.NoError(t, err)
	assert.Equal(t, int64(45), s.State().Wallet.Balance)
}

func TestStore_FractionalAmountNamed(t *testing.T) {
	s := NewStore(zerolog.Nop())
	s.BeginSelection(topic.Owo)

	_, err := s.Apply(event(t, tp.WalletIdentityResponse(),
		`{"status":true,"data":{"id":"w1","payment_method":"owo","balance":1500.5}}`))

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFractionalAmount))
	assert.Contains(t, err.Error(), "balance=1500.5")
	assert.Nil(t, s.State().Wallet)
}
