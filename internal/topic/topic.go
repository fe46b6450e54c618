// Package topic is the closed grammar of bus topics: a session prefix, a
// domain segment (bankit or shopit), an optional provider segment and an
// action suffix. Every topic string the dashboard uses is built here.
package topic

import (
	"fmt"
	"strings"
)

// Provider is a supported e-wallet payment method.
type Provider string

const (
	Dopay   Provider = "dopay"
	Owo     Provider = "owo"
	Ringaja Provider = "ringaja"
)

// Providers lists every supported payment method in display order.
var Providers = []Provider{Dopay, Owo, Ringaja}

// ParseProvider lowercases s and checks it against the supported set.
func ParseProvider(s string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Providers {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown payment method %q", s)
}

func (p Provider) String() string { return string(p) }

const (
	domainBank = "bankit"
	domainShop = "shopit"
)

// Topics builds topic strings under a fixed session prefix.
type Topics struct {
	Prefix string
}

func New(prefix string) Topics {
	return Topics{Prefix: strings.Trim(prefix, "/")}
}

func (t Topics) join(parts ...string) string {
	return t.Prefix + "/" + strings.Join(parts, "/")
}

func (t Topics) AccountIdentityRequest() string {
	return t.join(domainBank, "account-identity", "request")
}

func (t Topics) AccountIdentityResponse() string {
	return t.join(domainBank, "account-identity", "response")
}

func (t Topics) WalletIdentityRequest() string {
	return t.join(domainBank, "wallet-identity", "request")
}

func (t Topics) WalletIdentityResponse() string {
	return t.join(domainBank, "wallet-identity", "response")
}

func (t Topics) WalletHistoryRequest() string {
	return t.join(domainBank, "wallet-history", "request")
}

func (t Topics) WalletHistoryResponse() string {
	return t.join(domainBank, "wallet-history", "response")
}

func (t Topics) TransferSendRequest(p Provider) string {
	return t.join(domainBank, string(p), "transfer", "send", "request")
}

func (t Topics) TransferSendResponse(p Provider) string {
	return t.join(domainBank, string(p), "transfer", "send", "response")
}

func (t Topics) TransferReceive(p Provider) string {
	return t.join(domainBank, string(p), "transfer", "receive")
}

func (t Topics) LiveHistory(p Provider) string {
	return t.join(domainBank, string(p), "live-history")
}

func (t Topics) CatalogRequest() string {
	return t.join(domainShop, "product-catalog", "request")
}

func (t Topics) CatalogResponse() string {
	return t.join(domainShop, "product-catalog", "response")
}

func (t Topics) BuyRequest() string {
	return t.join(domainShop, "buy", "request")
}

func (t Topics) BuyResponse() string {
	return t.join(domainShop, "buy", "response")
}

// BaseSubscriptions returns every topic the dashboard listens on for the
// lifetime of a connection.
func (t Topics) BaseSubscriptions() []string {
	topics := []string{
		t.AccountIdentityResponse(),
		t.WalletIdentityResponse(),
		t.WalletHistoryResponse(),
		t.CatalogResponse(),
		t.BuyResponse(),
	}
	for _, p := range Providers {
		topics = append(topics,
			t.TransferSendResponse(p),
			t.TransferReceive(p),
			t.LiveHistory(p),
		)
	}
	return topics
}
