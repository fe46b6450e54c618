// Package session holds the process-wide dashboard state. Every inbound event
// and every selection change goes through one of the Store's entry points;
// readers get copies.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"walletdash/internal/model"
	"walletdash/internal/router"
	"walletdash/internal/topic"
	"walletdash/pkg/logger"

	"github.com/rs/zerolog"
)

// ErrStale marks an event dropped because it belongs to a wallet that is no
// longer selected.
var ErrStale = errors.New("session: stale event")

// ErrFractionalAmount marks a snapshot rejected because a money field was not
// a whole number of currency units.
var ErrFractionalAmount = errors.New("session: amount is not a whole number of currency units")

// State is a point-in-time copy of the session.
type State struct {
	Connected bool                `json:"connected"`
	Identity  *model.Identity     `json:"user"`
	Selected  topic.Provider      `json:"selected_wallet"`
	Wallet    *model.Wallet       `json:"wallet"`
	Products  []model.Product     `json:"products"`
	History   []model.Transaction `json:"transaction_history"`
}

// Effect is follow-up work the store asks the caller to perform after a
// mutation.
type Effect struct {
	RequestHistory topic.Provider
	Notice         string
}

type Store struct {
	log zerolog.Logger

	mu        sync.RWMutex
	state     State
	listeners []func(State)

	// epoch is bumped by every BeginSelection. historyTickets holds the epoch
	// of each outstanding history request, oldest first; history responses
	// carry no wallet, so they are attributed to requests in arrival order.
	epoch          uint64
	historyTickets []uint64
}

func NewStore(log zerolog.Logger) *Store {
	return &Store{
		log: logger.Component(log, "session"),
		state: State{
			Products: []model.Product{},
			History:  []model.Transaction{},
		},
	}
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// OnChange registers fn to receive the state after every mutation.
func (s *Store) OnChange(fn func(State)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *Store) SetConnected(up bool) {
	s.mutate(func(st *State) {
		st.Connected = up
		if !up {
			// Replies in flight are lost with the connection.
			s.historyTickets = nil
		}
	})
}

// TrackHistoryRequest records a history request for p about to be published.
// It returns false when p is no longer the selected wallet; the request
// should then not be sent.
func (s *Store) TrackHistoryRequest(p topic.Provider) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p == "" || s.state.Selected != p {
		return false
	}
	s.historyTickets = append(s.historyTickets, s.epoch)
	return true
}

// UntrackHistoryRequest forgets the newest tracked request after its publish failed.
func (s *Store) UntrackHistoryRequest() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.historyTickets); n > 0 {
		s.historyTickets = s.historyTickets[:n-1]
	}
}

// DiscardHistoryReply consumes the oldest tracked request for a history
// reply that was rejected remotely and never reaches Apply.
func (s *Store) DiscardHistoryReply() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.popTicketLocked()
}

// popTicketLocked reports whether a ticket was outstanding and whether it
// belongs to the current selection.
func (s *Store) popTicketLocked() (tracked, current bool) {
	if len(s.historyTickets) == 0 {
		return false, false
	}
	t := s.historyTickets[0]
	s.historyTickets = s.historyTickets[1:]
	return true, t == s.epoch
}

// BeginSelection records p as the selected wallet and clears the wallet and
// history so nothing from the previous wallet is shown under the new name.
func (s *Store) BeginSelection(p topic.Provider) {
	s.mutate(func(st *State) {
		s.epoch++
		st.Selected = p
		st.Wallet = nil
		st.History = []model.Transaction{}
	})
}

// Apply reconciles one decoded event into the state.
func (s *Store) Apply(ev router.Event) (Effect, error) {
	if ev.Envelope == nil {
		return Effect{}, fmt.Errorf("session: event on %s has no payload", ev.Topic)
	}
	if err := ev.Envelope.Failure(); err != nil {
		return Effect{}, err
	}

	switch ev.Category() {
	case topic.CategoryIdentityResponse:
		return s.applyIdentity(ev)
	case topic.CategoryWalletResponse:
		return s.applyWallet(ev)
	case topic.CategoryHistoryResponse:
		return s.applyHistory(ev)
	case topic.CategoryCatalogResponse:
		return s.applyCatalog(ev)
	case topic.CategoryLiveReceive, topic.CategoryLiveHistoryPush:
		return s.applyLivePush(ev)
	case topic.CategoryTransferResponse, topic.CategoryPurchaseResponse:
		// Outcomes belong to whoever issued the request.
		return Effect{}, nil
	default:
		return Effect{}, fmt.Errorf("session: no policy for %s", ev.Category())
	}
}

func (s *Store) applyIdentity(ev router.Event) (Effect, error) {
	var id model.Identity
	if err := decodeData(ev, &id); err != nil {
		return Effect{}, err
	}
	s.mutate(func(st *State) { st.Identity = &id })
	return Effect{}, nil
}

func (s *Store) applyWallet(ev router.Event) (Effect, error) {
	var w model.Wallet
	if err := decodeData(ev, &w); err != nil {
		return Effect{}, err
	}
	p, err := topic.ParseProvider(w.PaymentMethod)
	if err != nil {
		return Effect{}, err
	}
	w.PaymentMethod = string(p)

	applied := false
	s.mutate(func(st *State) {
		if st.Selected != p {
			return
		}
		st.Wallet = &w
		st.History = []model.Transaction{}
		applied = true
	})
	if !applied {
		return Effect{}, fmt.Errorf("%w: wallet snapshot for %s", ErrStale, p)
	}
	return Effect{RequestHistory: p}, nil
}

func (s *Store) applyHistory(ev router.Event) (Effect, error) {
	// Every history reply answers the oldest tracked request, even one that
	// fails to decode or is rejected below.
	s.mu.Lock()
	tracked, current := s.popTicketLocked()
	s.mu.Unlock()

	var h model.WalletHistory
	if err := decodeData(ev, &h); err != nil {
		return Effect{}, err
	}
	if tracked && !current {
		return Effect{}, fmt.Errorf("%w: history requested for a previous selection", ErrStale)
	}
	if h.Transactions == nil {
		h.Transactions = []model.Transaction{}
	}
	method := topic.Provider(strings.ToLower(h.PaymentMethod))

	applied := false
	s.mutate(func(st *State) {
		if st.Selected == "" || st.Wallet == nil || (method != "" && method != st.Selected) {
			return
		}
		st.History = h.Transactions
		st.Wallet.Balance = h.CurrentBalance
		applied = true
	})
	if !applied {
		return Effect{}, fmt.Errorf("%w: history snapshot", ErrStale)
	}
	return Effect{}, nil
}

func (s *Store) applyCatalog(ev router.Event) (Effect, error) {
	var products []model.Product
	if err := decodeData(ev, &products); err != nil {
		return Effect{}, err
	}
	if products == nil {
		products = []model.Product{}
	}
	s.mutate(func(st *State) { st.Products = products })
	return Effect{}, nil
}

// applyLivePush patches only the balance; the list is refreshed by a history
// request because pushes may overtake snapshots.
func (s *Store) applyLivePush(ev router.Event) (Effect, error) {
	if !ev.Envelope.Get("data.current_balance").Exists() {
		return Effect{}, fmt.Errorf("session: push on %s without current_balance", ev.Topic)
	}
	var push model.BalancePush
	if err := decodeData(ev, &push); err != nil {
		return Effect{}, err
	}

	p := ev.Route.Provider
	applied := false
	s.mutate(func(st *State) {
		if st.Wallet == nil || st.Wallet.PaymentMethod != string(p) {
			return
		}
		st.Wallet.Balance = push.CurrentBalance
		applied = true
	})
	if !applied {
		return Effect{}, fmt.Errorf("%w: push for %s", ErrStale, p)
	}

	notice := push.Message
	if notice == "" {
		if ev.Category() == topic.CategoryLiveReceive {
			notice = "Transfer received"
		} else {
			notice = "Balance updated"
		}
	}
	return Effect{RequestHistory: p, Notice: notice}, nil
}

// mutate applies fn under the write lock and notifies listeners afterwards.
func (s *Store) mutate(fn func(*State)) {
	s.mu.Lock()
	fn(&s.state)
	snapshot := s.state.clone()
	listeners := append(([]func(State))(nil), s.listeners...)
	s.mu.Unlock()

	for _, l := range listeners {
		l(snapshot)
	}
}

func (st State) clone() State {
	out := st
	if st.Identity != nil {
		id := *st.Identity
		out.Identity = &id
	}
	if st.Wallet != nil {
		w := *st.Wallet
		out.Wallet = &w
	}
	out.Products = append([]model.Product{}, st.Products...)
	out.History = append([]model.Transaction{}, st.History...)
	return out
}

// decodeData unmarshals the event's data, naming fractional money values as
// the cause when they are what broke decoding.
func decodeData(ev router.Event, v any) error {
	err := ev.Envelope.DecodeData(v)
	var typeErr *json.UnmarshalTypeError
	if err != nil && errors.As(err, &typeErr) && typeErr.Type != nil &&
		typeErr.Type.Kind() == reflect.Int64 && strings.HasPrefix(typeErr.Value, "number") {
		return fmt.Errorf("%w: %s=%s on %s", ErrFractionalAmount, typeErr.Field, strings.TrimPrefix(typeErr.Value, "number "), ev.Topic)
	}
	return err
}
