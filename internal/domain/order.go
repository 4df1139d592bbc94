package domain

import "time"

// OrderSide indicates whether this is a buy or sell.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderStatus tracks the lifecycle of a placed order.
type OrderStatus string

const (
	OrderStatusFilled   OrderStatus = "filled"
	OrderStatusPending  OrderStatus = "pending"
	OrderStatusRejected OrderStatus = "rejected"
)

// Balance is the available amount of one currency on one venue. It is fetched
// immediately before sizing a trade and never cached across cycles.
type Balance struct {
	Venue    string
	Currency string
	Free     float64
}

// TradeIntent is the single-leg market order the executor hands to a venue.
// It is fire-and-forget: there is no rollback on partial failure, and the
// counter-leg is left for manual completion.
type TradeIntent struct {
	Venue      string
	Side       OrderSide
	Instrument Instrument
	Amount     float64 // base-currency units
}

// OrderResult wraps a venue's response to a market order.
type OrderResult struct {
	OrderID     string
	Status      OrderStatus
	FilledQty   float64
	FilledPrice float64
	PlacedAt    time.Time
}

// OrderRecord is the persisted outcome of one executed leg, including the
// opportunity that triggered it.
type OrderRecord struct {
	ID            string
	OpportunityID string
	Venue         string
	Side          OrderSide
	Instrument    Instrument
	Amount        float64
	VenueOrderID  string
	Status        OrderStatus
	Error         string
	CreatedAt     time.Time
}
