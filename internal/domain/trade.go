package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TradeEvent records one executed rule: what fired, at which price, and the
// order the exchange acknowledged.
type TradeEvent struct {
	// Rule name of the rule that fired.
	Rule string
	// Side of the placed order.
	Side Side
	// Pair traded pair.
	Pair Pair
	// Amount committed: quote cost for buys, base quantity for sells.
	Amount decimal.Decimal
	// Price last-trade price at decision time.
	Price decimal.Decimal
	// AveragePrice cost basis the rule was evaluated against.
	AveragePrice decimal.Decimal
	// OrderID exchange order identifier.
	OrderID string
	// IntentID correlation id linking decision logs to the order.
	IntentID string
}

// String returns a human-readable string representation.
func (t *TradeEvent) String() string {
	return fmt.Sprintf("%s %s %s amount: %s price: %s order: %s",
		t.Pair.String(), t.Rule, t.Side, t.Amount.String(), t.Price.String(), t.OrderID)
}
