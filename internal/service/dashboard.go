package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"walletdash/internal/bus"
	"walletdash/internal/correlation"
	"walletdash/internal/metrics"
	"walletdash/internal/model"
	"walletdash/internal/repository"
	"walletdash/internal/router"
	"walletdash/internal/session"
	"walletdash/internal/topic"
	"walletdash/pkg/apperror"
	"walletdash/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

const DefaultMinTransfer = 1000

type Options struct {
	Email          string
	MinTransfer    int64
	RequestTimeout time.Duration
}

// Dashboard composes routing, correlation and the session store into the
// operations the rendering layer calls.
type Dashboard struct {
	bus       bus.Bus
	engine    *correlation.Engine
	store     *session.Store
	router    *router.Router
	topics    topic.Topics
	selection repository.SelectionStore
	validate  *validator.Validate
	log       zerolog.Logger

	email       string
	minTransfer int64
	timeout     time.Duration

	mu             sync.Mutex
	baseSubscribed bool
	noticeFns      []func(Notice)
}

func NewDashboard(
	b bus.Bus,
	engine *correlation.Engine,
	store *session.Store,
	topics topic.Topics,
	selection repository.SelectionStore,
	opts Options,
	log zerolog.Logger,
) *Dashboard {
	if opts.MinTransfer <= 0 {
		opts.MinTransfer = DefaultMinTransfer
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = correlation.DefaultTimeout
	}
	return &Dashboard{
		bus:         b,
		engine:      engine,
		store:       store,
		router:      router.New(topics),
		topics:      topics,
		selection:   selection,
		validate:    newValidator(),
		log:         logger.Component(log, "dashboard"),
		email:       opts.Email,
		minTransfer: opts.MinTransfer,
		timeout:     opts.RequestTimeout,
	}
}

func (d *Dashboard) State() session.State {
	return d.store.State()
}

// OnNotice registers fn for user notifications.
func (d *Dashboard) OnNotice(fn func(Notice)) {
	d.mu.Lock()
	d.noticeFns = append(d.noticeFns, fn)
	d.mu.Unlock()
}

// ── Connection lifecycle ─────────────────────────────────────────────────────

func (d *Dashboard) HandleState(ctx context.Context, s bus.State) {
	metrics.SetConnected(s == bus.StateConnected)
	switch s {
	case bus.StateConnected:
		if err := d.OnConnected(ctx); err != nil {
			d.log.Error().Err(err).Msg("initial requests failed")
		}
	default:
		d.store.SetConnected(false)
		d.engine.FailAll(apperror.Disconnected())
		d.log.Warn().Str("state", s.String()).Msg("bus connection lost")
	}
}

// OnConnected subscribes the base topics once, requests the identity and
// catalog snapshots and restores the wallet selection.
func (d *Dashboard) OnConnected(ctx context.Context) error {
	d.store.SetConnected(true)

	if err := d.subscribeBase(); err != nil {
		return err
	}
	if err := d.RefreshIdentity(ctx); err != nil {
		return err
	}
	if err := d.RefreshCatalog(ctx); err != nil {
		return err
	}

	method, err := d.selection.Load(ctx)
	if err != nil {
		d.log.Warn().Err(err).Msg("could not load stored wallet selection")
	}
	if method == "" {
		method = string(d.store.State().Selected)
	}
	if method == "" {
		return nil
	}
	return d.SelectWallet(ctx, method)
}

func (d *Dashboard) subscribeBase() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.baseSubscribed {
		return nil
	}
	topics := d.topics.BaseSubscriptions()
	for i, t := range topics {
		if err := d.bus.Subscribe(t); err != nil {
			for _, done := range topics[:i] {
				_ = d.bus.Unsubscribe(done)
			}
			return apperror.Transport(err)
		}
	}
	d.baseSubscribed = true
	d.log.Info().Int("topics", len(topics)).Msg("subscribed to base topics")
	return nil
}

// ── Inbound ──────────────────────────────────────────────────────────────────

// HandleMessage is the single entry point for inbound messages. Correlated
// waiters get the first look; everything else is routed into the store.
func (d *Dashboard) HandleMessage(msg bus.Message) {
	category := d.topics.Classify(msg.Topic).Category.String()

	if d.engine.Offer(msg) {
		metrics.RecordInbound(category, "correlated")
		return
	}

	ev, err := d.router.Route(msg)
	if err != nil && ev.Category() == topic.CategoryHistoryResponse {
		// The reply still answers a tracked history request.
		d.store.DiscardHistoryReply()
	}
	switch {
	case errors.Is(err, router.ErrUnknownTopic):
		metrics.RecordInbound(category, "unknown")
		d.log.Warn().Str("topic", msg.Topic).Msg("dropping message on unknown topic")
		return
	case apperror.Is(err, apperror.CodeDecode):
		metrics.RecordInbound(category, "decode_error")
		d.log.Warn().Err(err).Str("topic", msg.Topic).Msg("dropping malformed message")
		return
	case apperror.Is(err, apperror.CodeApplication):
		metrics.RecordInbound(category, "remote_failure")
		d.log.Warn().Str("topic", msg.Topic).Str("reason", ev.Envelope.Message).Msg("remote service reported failure")
		return
	case err != nil:
		metrics.RecordInbound(category, "error")
		d.log.Error().Err(err).Str("topic", msg.Topic).Msg("routing failed")
		return
	}

	eff, err := d.store.Apply(ev)
	switch {
	case errors.Is(err, session.ErrStale):
		metrics.RecordInbound(category, "stale")
		d.log.Debug().Err(err).Str("topic", msg.Topic).Msg("ignoring stale event")
		return
	case errors.Is(err, session.ErrFractionalAmount):
		metrics.RecordInbound(category, "rejected")
		d.log.Warn().Err(err).Str("topic", msg.Topic).Msg("event rejected: non-integer amount")
		return
	case err != nil:
		metrics.RecordInbound(category, "rejected")
		d.log.Warn().Err(err).Str("topic", msg.Topic).Msg("event rejected by session store")
		return
	}
	metrics.RecordInbound(category, "applied")
	d.execute(eff)
}

func (d *Dashboard) execute(eff session.Effect) {
	if eff.RequestHistory != "" {
		if err := d.requestHistory(eff.RequestHistory); err != nil {
			d.log.Warn().Err(err).Str("wallet", string(eff.RequestHistory)).Msg("history request failed")
		}
	}
	if eff.Notice != "" {
		d.notify(Notice{Level: "info", Message: eff.Notice})
	}
}

func (d *Dashboard) notify(n Notice) {
	d.mu.Lock()
	fns := append(([]func(Notice))(nil), d.noticeFns...)
	d.mu.Unlock()
	for _, fn := range fns {
		fn(n)
	}
}

// ── Fire-and-forget requests ─────────────────────────────────────────────────

// SelectWallet records the selection, clears the previous wallet's data and
// asks for the new wallet. The response arrives on the shared wallet topic.
func (d *Dashboard) SelectWallet(ctx context.Context, method string) error {
	p, err := topic.ParseProvider(method)
	if err != nil {
		return apperror.Validation(err.Error())
	}

	if err := d.selection.Save(ctx, string(p)); err != nil {
		d.log.Warn().Err(apperror.Persistence(err)).Str("wallet", string(p)).Msg("could not persist wallet selection")
	}
	d.store.BeginSelection(p)

	if err := d.requestWallet(p); err != nil {
		return err
	}
	d.log.Info().Str("wallet", string(p)).Msg("wallet selected, requesting data")
	return nil
}

func (d *Dashboard) RefetchWallet(ctx context.Context) error {
	p := d.store.State().Selected
	if p == "" {
		return apperror.NoWalletSelected()
	}
	return d.SelectWallet(ctx, string(p))
}

func (d *Dashboard) RefetchHistory(ctx context.Context) error {
	p := d.store.State().Selected
	if p == "" {
		return apperror.NoWalletSelected()
	}
	return d.requestHistory(p)
}

func (d *Dashboard) RefreshIdentity(ctx context.Context) error {
	return d.publish(d.topics.AccountIdentityRequest(), model.IdentityRequest{Email: d.email})
}

func (d *Dashboard) RefreshCatalog(ctx context.Context) error {
	return d.publish(d.topics.CatalogRequest(), model.CatalogRequest{})
}

func (d *Dashboard) requestWallet(p topic.Provider) error {
	return d.publish(d.topics.WalletIdentityRequest(), model.WalletRequest{Email: d.email, PaymentMethod: string(p)})
}

// requestHistory asks for p's history if p is still the selected wallet. The
// request is tracked so a reply landing after a switch is not applied to the
// new wallet.
func (d *Dashboard) requestHistory(p topic.Provider) error {
	if !d.store.TrackHistoryRequest(p) {
		d.log.Debug().Str("wallet", string(p)).Msg("selection changed, skipping history request")
		return nil
	}
	if err := d.publish(d.topics.WalletHistoryRequest(), model.WalletRequest{Email: d.email, PaymentMethod: string(p)}); err != nil {
		d.store.UntrackHistoryRequest()
		return err
	}
	return nil
}

func (d *Dashboard) publish(t string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode request for %s: %w", t, err)
	}
	if err := d.bus.Publish(t, payload); err != nil {
		return apperror.Transport(err)
	}
	return nil
}

// ── Correlated actions ───────────────────────────────────────────────────────

// TransferBalance sends balance from the selected wallet and waits for the
// sender-scoped response. It always returns a settled result.
func (d *Dashboard) TransferBalance(ctx context.Context, in TransferInput) model.ActionResult {
	if err := validateInput(d.validate, in); err != nil {
		return failure(err)
	}
	receiver, err := topic.ParseProvider(in.ReceiverPaymentMethod)
	if err != nil {
		return failure(apperror.Validation("Choose a destination wallet"))
	}

	st := d.store.State()
	if st.Wallet == nil {
		return failure(apperror.NoWalletSelected())
	}
	if in.Amount < d.minTransfer {
		return failure(apperror.Validation(fmt.Sprintf("Minimum transfer is %d", d.minTransfer)))
	}
	if in.Amount > st.Wallet.Balance {
		return failure(apperror.Validation("Insufficient balance"))
	}

	sender := topic.Provider(st.Wallet.PaymentMethod)
	payload, err := json.Marshal(model.TransferRequest{
		SenderEmail:           d.email,
		ReceiverEmail:         in.ReceiverEmail,
		ReceiverPaymentMethod: string(receiver),
		Amount:                in.Amount,
	})
	if err != nil {
		return failure(err)
	}

	env, err := d.engine.RequestResponse(ctx, correlation.Request{
		RequestTopic:  d.topics.TransferSendRequest(sender),
		Payload:       payload,
		ResponseTopic: d.topics.TransferSendResponse(sender),
		Match:         router.MatchField("sender_email", d.email),
		Timeout:       d.timeout,
	})
	if err != nil {
		d.log.Warn().Err(err).Str("wallet", string(sender)).Int64("amount", in.Amount).Msg("transfer failed")
		return failure(err)
	}

	d.log.Info().Str("wallet", string(sender)).Str("receiver_wallet", string(receiver)).Int64("amount", in.Amount).Msg("transfer confirmed")
	d.refreshAfterAction(sender, false)
	return success(env, "Transfer successful")
}

// PurchaseProduct buys from the catalog with the selected wallet. Stock and
// affordability are checked against the last snapshots before publishing.
func (d *Dashboard) PurchaseProduct(ctx context.Context, in PurchaseInput) model.ActionResult {
	if err := validateInput(d.validate, in); err != nil {
		return failure(err)
	}

	st := d.store.State()
	if st.Wallet == nil {
		return failure(apperror.NoWalletSelected())
	}

	var product *model.Product
	for i := range st.Products {
		if st.Products[i].ID == in.ProductID {
			product = &st.Products[i]
			break
		}
	}
	switch {
	case product == nil:
		return failure(apperror.Validation("Product not found in catalog"))
	case product.Quantity <= 0:
		return failure(apperror.Validation("Product is out of stock"))
	case in.Quantity > product.Quantity:
		return failure(apperror.Validation(fmt.Sprintf("Only %d in stock", product.Quantity)))
	case product.Price*in.Quantity > st.Wallet.Balance:
		return failure(apperror.Validation("Insufficient balance"))
	}

	wallet := topic.Provider(st.Wallet.PaymentMethod)
	payload, err := json.Marshal(model.PurchaseRequest{
		BuyerEmail:    d.email,
		PaymentMethod: string(wallet),
		ProductID:     product.ID,
		Quantity:      in.Quantity,
	})
	if err != nil {
		return failure(err)
	}

	env, err := d.engine.RequestResponse(ctx, correlation.Request{
		RequestTopic:  d.topics.BuyRequest(),
		Payload:       payload,
		ResponseTopic: d.topics.BuyResponse(),
		Match:         router.MatchField("buyer_email", d.email),
		Timeout:       d.timeout,
	})
	if err != nil {
		d.log.Warn().Err(err).Str("product_id", product.ID).Int64("quantity", in.Quantity).Msg("purchase failed")
		return failure(err)
	}

	d.log.Info().Str("product_id", product.ID).Int64("quantity", in.Quantity).Msg("purchase confirmed")
	d.refreshAfterAction(wallet, true)
	return success(env, fmt.Sprintf("Purchased %dx %s", in.Quantity, product.Name))
}

// refreshAfterAction re-requests the wallet snapshot (which in turn pulls the
// history) and, after purchases, the catalog for updated stock.
func (d *Dashboard) refreshAfterAction(p topic.Provider, catalog bool) {
	if err := d.requestWallet(p); err != nil {
		d.log.Warn().Err(err).Msg("wallet refresh after action failed")
	}
	if !catalog {
		return
	}
	if err := d.publish(d.topics.CatalogRequest(), model.CatalogRequest{}); err != nil {
		d.log.Warn().Err(err).Msg("catalog refresh after purchase failed")
	}
}

func success(env *router.Envelope, fallback string) model.ActionResult {
	msg := env.Message
	if msg == "" {
		msg = fallback
	}
	return model.ActionResult{Success: true, Message: msg}
}

func failure(err error) model.ActionResult {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		return model.ActionResult{Success: false, Message: err.Error()}
	}
	msg := appErr.Message
	if appErr.Code == apperror.CodeTimeout {
		msg = "no response"
	}
	return model.ActionResult{Success: false, Message: msg, Code: appErr.Code}
}
