package trader

import (
	"context"
	"log/slog"
	"time"

	"github.com/Mikesteam1234/crypfinder/internal/domain"
)

// pollOutcome classifies how a poll loop ended.
type pollOutcome int

const (
	// pollFilled means the order settled with its full size executed.
	pollFilled pollOutcome = iota
	// pollClosed means the order settled for some other reason, e.g. it was
	// cancelled out from under us.
	pollClosed
	// pollExhausted means the attempt budget was spent without the order
	// reaching a settled status.
	pollExhausted
)

// pollOrder checks an order's status up to the configured number of times,
// waiting the configured interval before every check. keepPolling is
// consulted each iteration so a phase can stop as soon as its goal state is
// already reached. A transport error aborts the loop immediately.
func (t *Trader) pollOrder(ctx context.Context, orderID string, keepPolling func() bool) (domain.Order, pollOutcome, error) {
	var last domain.Order
	for attempt := 1; attempt <= t.cfg.PollAttempts && keepPolling(); attempt++ {
		select {
		case <-ctx.Done():
			return last, pollExhausted, ctx.Err()
		case <-time.After(t.cfg.PollInterval):
		}

		current, err := t.exchange.GetOrder(ctx, orderID)
		if err != nil {
			return last, pollExhausted, err
		}
		last = current

		t.logger.Debug("order status",
			slog.String("order_id", orderID),
			slog.Int("attempt", attempt),
			slog.String("status", string(current.Status)),
		)

		if current.Done() {
			if current.Filled() {
				return current, pollFilled, nil
			}
			return current, pollClosed, nil
		}
	}
	return last, pollExhausted, nil
}
