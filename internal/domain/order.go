package domain

import "github.com/shopspring/decimal"

// Side of an order or execution, as the exchange spells it.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderTypeMarket is the only order type the bot places.
const OrderTypeMarket = "market"

// Ticker is the public ticker payload. All numeric fields arrive as strings.
type Ticker struct {
	Pair string          `json:"pair"`
	High decimal.Decimal `json:"high"`
	Low  decimal.Decimal `json:"low"`
	Vol  decimal.Decimal `json:"vol"`
	Last decimal.Decimal `json:"last"`
	Buy  decimal.Decimal `json:"buy"`
	Sell decimal.Decimal `json:"sell"`
	Open decimal.Decimal `json:"open"`
	Date int64           `json:"date"`
}

// Execution is a single fill of an order.
type Execution struct {
	ID         string          `json:"id"`
	Instrument string          `json:"instrument"`
	Side       Side            `json:"side"`
	Price      decimal.Decimal `json:"price"`
	Qty        decimal.Decimal `json:"qty"`
	FeeRate    decimal.Decimal `json:"fee_rate"`
	ExecutedAt int64           `json:"executed_at"`
}

// Order is a historical order with zero or more executions.
type Order struct {
	ID         string          `json:"id"`
	Instrument string          `json:"instrument"`
	Side       Side            `json:"side"`
	Type       string          `json:"type"`
	Status     string          `json:"status"`
	Qty        decimal.Decimal `json:"qty"`
	Executions []Execution     `json:"executions"`
}

// OrderList is the paged envelope the order-history endpoint returns.
type OrderList struct {
	Items []Order `json:"items"`
}

// OrderRequest is the body of an order placement. Market buys are specified
// by total cost in quote currency, market sells by base quantity.
type OrderRequest struct {
	Side       Side             `json:"side"`
	Type       string           `json:"type"`
	Cost       *decimal.Decimal `json:"cost,omitempty"`
	Qty        *decimal.Decimal `json:"qty,omitempty"`
	LimitPrice *decimal.Decimal `json:"limitPrice,omitempty"`
}

// PlacedOrder is the placement acknowledgement.
type PlacedOrder struct {
	OrderID string `json:"orderId"`
}

// Orderbook is the public order book snapshot.
type Orderbook struct {
	Asks      [][]decimal.Decimal `json:"asks"`
	Bids      [][]decimal.Decimal `json:"bids"`
	Timestamp int64               `json:"timestamp"`
}
