package model

// Identity is the account owner returned by the account-identity response.
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Wallet is the selected e-wallet. PaymentMethod is the lowercased provider
// used to build wallet-scoped topics.
type Wallet struct {
	ID            string `json:"id"`
	WalletName    string `json:"wallet_name"`
	PaymentMethod string `json:"payment_method"`
	Balance       int64  `json:"balance"`
}

const (
	DirectionCredit = "credit"
	DirectionDebit  = "debit"
)

type Transaction struct {
	ID              string `json:"id"`
	TransactionType string `json:"transaction_type"`
	Description     string `json:"description"`
	Amount          int64  `json:"amount"`
	BalanceChange   int64  `json:"balance_change,omitempty"`
	Direction       string `json:"type"`
	CreatedAt       string `json:"created_at"`
}

type Product struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"image_url"`
	Price    int64  `json:"price"`
	Quantity int64  `json:"quantity"`
}

// WalletHistory is the data of a wallet-history response.
type WalletHistory struct {
	PaymentMethod  string        `json:"payment_method,omitempty"`
	CurrentBalance int64         `json:"current_balance"`
	Transactions   []Transaction `json:"transactions"`
}

// BalancePush is the data of a live-history or transfer/receive push.
type BalancePush struct {
	CurrentBalance int64  `json:"current_balance"`
	Message        string `json:"message,omitempty"`
}
