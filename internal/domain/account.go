package domain

import "github.com/shopspring/decimal"

// Account identifies an exchange account. The bot works against a single
// account per session, selected once and cached.
type Account struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Currency string `json:"currency"`
}

// Balance is the per-symbol funds snapshot returned by the exchange.
// Amounts come over the wire as strings and are kept as decimals.
type Balance struct {
	Symbol    string          `json:"symbol"`
	Available decimal.Decimal `json:"available"`
	Total     decimal.Decimal `json:"total"`
	OnHold    decimal.Decimal `json:"on_hold"`
}

// Position is an open position as reported by the exchange.
type Position struct {
	ID         string          `json:"id"`
	Instrument string          `json:"instrument"`
	Qty        decimal.Decimal `json:"qty"`
	AvgPrice   decimal.Decimal `json:"avgPrice"`
	Side       Side            `json:"side"`
	Category   string          `json:"category"`
}
