package domain

import "time"

// CycleStatus tracks one buy-then-sell trading cycle through its phases.
type CycleStatus string

const (
	// CycleStatusBuying means a buy order has been submitted and is being
	// polled for a fill.
	CycleStatusBuying CycleStatus = "buying"
	// CycleStatusHolding means the buy filled and the position is held.
	CycleStatusHolding CycleStatus = "holding"
	// CycleStatusSelling means a sell order has been submitted.
	CycleStatusSelling CycleStatus = "selling"
	// CycleStatusCompleted means the sell filled and profit was realized.
	CycleStatusCompleted CycleStatus = "completed"
	// CycleStatusAbandoned means an order timed out and was cancelled
	// cleanly; no position was opened or the position is still held.
	CycleStatusAbandoned CycleStatus = "abandoned"
	// CycleStatusFailed means the cycle ended on a fatal condition
	// (unexpected fill reason, unprofitable close, cancel mismatch).
	CycleStatusFailed CycleStatus = "failed"
)

// Cycle is the journal record of one position cycle.
type Cycle struct {
	ID        string
	ProductID string
	Status    CycleStatus

	BuyOrderID  string
	BuyPrice    float64
	Size        float64
	SellOrderID string
	SellPrice   float64

	AcquiredPrice float64
	AcquiredCost  float64
	Proceeds      float64 // sell executed value minus sell fees
	Profit        float64
	SplitAmount   float64
	SplitCurrency string

	FailReason  string
	StartedAt   time.Time
	CompletedAt *time.Time
}
