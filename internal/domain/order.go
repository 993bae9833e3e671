package domain

import "time"

// OrderSide indicates whether this is a buy or sell.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderStatus mirrors the exchange's order lifecycle states. The exchange
// owns these values; the bot only observes them.
type OrderStatus string

const (
	OrderStatusPending OrderStatus = "pending"
	OrderStatusOpen    OrderStatus = "open"
	OrderStatusActive  OrderStatus = "active"
	OrderStatusDone    OrderStatus = "done"
)

// DoneReason explains why an order reached the done status. It is only
// meaningful when Status == OrderStatusDone.
type DoneReason string

const (
	DoneReasonFilled    DoneReason = "filled"
	DoneReasonCancelled DoneReason = "canceled"
)

// OrderRequest describes a limit order to be submitted. It is immutable once
// submitted; price is quoted to 2 decimal places and size to 8 on the wire.
type OrderRequest struct {
	Side      OrderSide
	Price     float64
	Size      float64
	ProductID string
	// ClientOID is a bot-generated UUID attached to the submission so a
	// retried POST cannot double-execute on the exchange side.
	ClientOID string
}

// Order is the exchange's view of an order as returned by order queries.
type Order struct {
	ID            string
	ClientOID     string
	ProductID     string
	Side          OrderSide
	Price         float64
	Size          float64
	Status        OrderStatus
	DoneReason    DoneReason
	ExecutedValue float64
	FillFees      float64
	FilledSize    float64
	CreatedAt     time.Time
	DoneAt        *time.Time
}

// Done reports whether the order has reached a terminal exchange status.
func (o Order) Done() bool {
	return o.Status == OrderStatusDone
}

// Filled reports whether the order terminated by being filled.
func (o Order) Filled() bool {
	return o.Status == OrderStatusDone && o.DoneReason == DoneReasonFilled
}
