package topic

import "strings"

// Category is the kind of inbound message a topic carries.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryIdentityResponse
	CategoryWalletResponse
	CategoryHistoryResponse
	CategoryCatalogResponse
	CategoryTransferResponse
	CategoryPurchaseResponse
	CategoryLiveReceive
	CategoryLiveHistoryPush
)

var categoryNames = map[Category]string{
	CategoryUnknown:          "unknown",
	CategoryIdentityResponse: "identity-response",
	CategoryWalletResponse:   "wallet-response",
	CategoryHistoryResponse:  "history-response",
	CategoryCatalogResponse:  "catalog-response",
	CategoryTransferResponse: "transfer-response",
	CategoryPurchaseResponse: "purchase-response",
	CategoryLiveReceive:      "live-receive",
	CategoryLiveHistoryPush:  "live-history-push",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "unknown"
}

// Route is the result of classifying a topic. Provider is set only for
// wallet-scoped topics.
type Route struct {
	Category Category
	Provider Provider
}

var fixedRoutes = map[string]Category{
	"bankit/account-identity/response": CategoryIdentityResponse,
	"bankit/wallet-identity/response":  CategoryWalletResponse,
	"bankit/wallet-history/response":   CategoryHistoryResponse,
	"shopit/product-catalog/response":  CategoryCatalogResponse,
	"shopit/buy/response":              CategoryPurchaseResponse,
}

var providerRoutes = map[string]Category{
	"transfer/send/response": CategoryTransferResponse,
	"transfer/receive":       CategoryLiveReceive,
	"live-history":           CategoryLiveHistoryPush,
}

// Classify parses topic. It has no side effects; anything outside the
// grammar is CategoryUnknown.
func (t Topics) Classify(topic string) Route {
	rest, ok := strings.CutPrefix(topic, t.Prefix+"/")
	if !ok {
		return Route{}
	}
	if c, ok := fixedRoutes[rest]; ok {
		return Route{Category: c}
	}

	domain, rest, ok := strings.Cut(rest, "/")
	if !ok || domain != domainBank {
		return Route{}
	}
	segment, action, ok := strings.Cut(rest, "/")
	if !ok {
		return Route{}
	}
	p, err := ParseProvider(segment)
	if err != nil || string(p) != segment {
		return Route{}
	}
	if c, ok := providerRoutes[action]; ok {
		return Route{Category: c, Provider: p}
	}
	return Route{}
}
