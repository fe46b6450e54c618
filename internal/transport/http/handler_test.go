package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"walletdash/internal/model"
	"walletdash/internal/service"
	"walletdash/internal/session"
	"walletdash/internal/topic"
	"walletdash/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockDashboard struct {
	state       session.State
	selectErr   error
	refetchErr  error
	selected    string
	transferIn  service.TransferInput
	transferRes model.ActionResult
	purchaseIn  service.PurchaseInput
	purchaseRes model.ActionResult
}

func (m *mockDashboard) State() session.State { return m.state }
func (m *mockDashboard) SelectWallet(ctx context.Context, method string) error {
	m.selected = method
	return m.selectErr
}
func (m *mockDashboard) RefetchWallet(ctx context.Context) error   { return m.refetchErr }
func (m *mockDashboard) RefetchHistory(ctx context.Context) error  { return m.refetchErr }
func (m *mockDashboard) RefreshCatalog(ctx context.Context) error  { return nil }
func (m *mockDashboard) RefreshIdentity(ctx context.Context) error { return nil }
func (m *mockDashboard) TransferBalance(ctx context.Context, in service.TransferInput) model.ActionResult {
	m.transferIn = in
	return m.transferRes
}
func (m *mockDashboard) PurchaseProduct(ctx context.Context, in service.PurchaseInput) model.ActionResult {
	m.purchaseIn = in
	return m.purchaseRes
}

func newMux(svc service.DashboardService) *http.ServeMux {
	mux := http.NewServeMux()
	NewHandler(svc, nil, zerolog.Nop()).Register(mux)
	return mux
}

func do(mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	svc := &mockDashboard{}
	mux := newMux(svc)

	assert.Equal(t, http.StatusServiceUnavailable, do(mux, http.MethodGet, "/health", "").Code)

	svc.state.Connected = true
	rec := do(mux, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestState(t *testing.T) {
	svc := &mockDashboard{state: session.State{
		Connected: true,
		Selected:  topic.Owo,
		Wallet:    &model.Wallet{ID: "w1", PaymentMethod: "owo", Balance: 42},
	}}

	rec := do(newMux(svc), http.MethodGet, "/state", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got session.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, topic.Owo, got.Selected)
	assert.Equal(t, int64(42), got.Wallet.Balance)
}

func TestSelectWallet(t *testing.T) {
	svc := &mockDashboard{}
	mux := newMux(svc)

	rec := do(mux, http.MethodPost, "/wallet/select", `{"payment_method":"ringaja"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "ringaja", svc.selected)

	assert.Equal(t, http.StatusBadRequest, do(mux, http.MethodPost, "/wallet/select", `{`).Code)

	svc.selectErr = apperror.Validation("unknown payment method")
	rec = do(mux, http.MethodPost, "/wallet/select", `{"payment_method":"gopay"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), apperror.CodeValidation)
}

func TestRefresh_NoWallet(t *testing.T) {
	svc := &mockDashboard{refetchErr: apperror.NoWalletSelected()}
	mux := newMux(svc)

	assert.Equal(t, http.StatusConflict, do(mux, http.MethodPost, "/wallet/refresh", "").Code)
	assert.Equal(t, http.StatusConflict, do(mux, http.MethodPost, "/history/refresh", "").Code)
}

func TestTransfer(t *testing.T) {
	tests := []struct {
		name   string
		result model.ActionResult
		status int
	}{
		{"success", model.ActionResult{Success: true, Message: "Transfer berhasil"}, http.StatusOK},
		{"timeout", model.ActionResult{Message: "no response", Code: apperror.CodeTimeout}, http.StatusGatewayTimeout},
		{"rejected", model.ActionResult{Message: "Saldo kurang", Code: apperror.CodeApplication}, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockDashboard{transferRes: tt.result}
			rec := do(newMux(svc), http.MethodPost, "/transfer",
				`{"receiver_email":"a@b.co","receiver_payment_method":"dopay","amount":5000}`)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, service.TransferInput{ReceiverEmail: "a@b.co", ReceiverPaymentMethod: "dopay", Amount: 5000}, svc.transferIn)

			var got model.ActionResult
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tt.result, got)
		})
	}
}

func TestPurchase(t *testing.T) {
	svc := &mockDashboard{purchaseRes: model.ActionResult{Success: true, Message: "Purchased 1x Kopi"}}
	rec := do(newMux(svc), http.MethodPost, "/purchase", `{"product_id":"p1","quantity":1}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.PurchaseInput{ProductID: "p1", Quantity: 1}, svc.purchaseIn)

	assert.Equal(t, http.StatusBadRequest, do(newMux(svc), http.MethodPost, "/purchase", `nope`).Code)
}

func TestMetricsRoute(t *testing.T) {
	rec := do(newMux(&mockDashboard{}), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
