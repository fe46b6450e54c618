package service

import (
	"context"

	"walletdash/internal/bus"
	"walletdash/internal/model"
	"walletdash/internal/session"
)

// DashboardService is the contract the rendering layer depends on: read
// access to the session plus the user actions. All transports (HTTP,
// WebSocket, workers) depend on this interface, not on the concrete type.
type DashboardService interface {
	State() session.State
	SelectWallet(ctx context.Context, method string) error
	RefetchWallet(ctx context.Context) error
	RefetchHistory(ctx context.Context) error
	RefreshCatalog(ctx context.Context) error
	RefreshIdentity(ctx context.Context) error
	TransferBalance(ctx context.Context, in TransferInput) model.ActionResult
	PurchaseProduct(ctx context.Context, in PurchaseInput) model.ActionResult
}

// InboundHandler receives everything the transport adapter produces.
type InboundHandler interface {
	HandleMessage(msg bus.Message)
	HandleState(ctx context.Context, s bus.State)
}

type TransferInput struct {
	ReceiverEmail         string `json:"receiver_email" validate:"required,email"`
	ReceiverPaymentMethod string `json:"receiver_payment_method" validate:"required"`
	Amount                int64  `json:"amount" validate:"gt=0"`
}

type PurchaseInput struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int64  `json:"quantity" validate:"gte=1"`
}

// Notice is a user-facing notification (the dashboard's toast).
type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}
