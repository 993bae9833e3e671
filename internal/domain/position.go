package domain

// Position is the shared record describing whether the bot currently holds
// the traded asset. It is owned by exactly one in-flight trading cycle and
// passed by pointer into the buy and sell phases; AcquiredPrice and
// AcquiredCost are written once at buy-fill time and read once at sell-fill
// time. Callers running cycles concurrently must wrap access in their own
// mutual exclusion.
type Position struct {
	// Exists is true from a confirmed buy fill until the confirmed sell fill.
	Exists bool
	// AcquiredPrice is the effective fill price of the buy
	// (executed value / filled size). Meaningful only while Exists.
	AcquiredPrice float64
	// AcquiredCost is the executed value plus fees paid on the buy; it is
	// consumed when computing sell profit. Meaningful only while Exists.
	AcquiredCost float64
}

// Reset clears the record for the next cycle.
func (p *Position) Reset() {
	p.Exists = false
	p.AcquiredPrice = 0
	p.AcquiredCost = 0
}
