package model

type IdentityRequest struct {
	Email string `json:"email"`
}

type WalletRequest struct {
	Email         string `json:"email"`
	PaymentMethod string `json:"payment_method"`
}

type CatalogRequest struct{}

type TransferRequest struct {
	SenderEmail           string `json:"sender_email"`
	ReceiverEmail         string `json:"receiver_email"`
	ReceiverPaymentMethod string `json:"receiver_payment_method"`
	Amount                int64  `json:"amount"`
}

type PurchaseRequest struct {
	BuyerEmail    string `json:"buyer_email"`
	PaymentMethod string `json:"payment_method"`
	ProductID     string `json:"product_id"`
	Quantity      int64  `json:"quantity"`
}

// ActionResult is the settled outcome of a transfer or purchase. It is always
// returned, never an error, so the rendering layer can show it directly.
type ActionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}
