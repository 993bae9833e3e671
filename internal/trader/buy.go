package trader

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Mikesteam1234/crypfinder/internal/domain"
)

// BuyPosition opens a position with a single limit buy sized off the
// available quote balance. The fee rate is carved out of the balance up
// front so the order never overdraws once taker fees land, and the limit
// price sits slightly above market so the order crosses the book and fills
// immediately under normal conditions.
//
// On a fill the shared position record is written exactly once. If the
// order does not settle within the poll budget it is cancelled exactly once
// and the phase ends without error, leaving no position.
func (t *Trader) BuyPosition(ctx context.Context, cycle *domain.Cycle, balance, currentPrice float64) error {
	spendable := balance * (1 - t.cfg.TakerFeeRate)
	buyPrice := currentPrice * (1 + t.cfg.PriceDelta)
	size := spendable / buyPrice

	if err := t.checkOrderBudget(ctx); err != nil {
		return err
	}

	order, err := t.exchange.PlaceOrder(ctx, domain.OrderRequest{
		Side:      domain.OrderSideBuy,
		Price:     buyPrice,
		Size:      size,
		ProductID: t.cfg.ProductID,
		ClientOID: uuid.New().String(),
	})
	if err != nil {
		return fmt.Errorf("trader: place buy order: %w", err)
	}

	t.logger.Info("buy order placed",
		slog.String("order_id", order.ID),
		slog.Float64("price", buyPrice),
		slog.Float64("size", size),
	)

	cycle.BuyOrderID = order.ID
	cycle.BuyPrice = buyPrice
	cycle.Size = size
	t.journalOrder(ctx, cycle.ID, order)
	t.journalUpdate(ctx, cycle)

	final, outcome, err := t.pollOrder(ctx, order.ID, func() bool { return !t.position.Exists })
	if err != nil {
		return fmt.Errorf("trader: poll buy order: %w", err)
	}

	switch outcome {
	case pollFilled:
		t.position.Exists = true
		t.position.AcquiredPrice = final.ExecutedValue / final.FilledSize
		t.position.AcquiredCost = final.ExecutedValue + final.FillFees
		t.heldSize = final.FilledSize

		cycle.Status = domain.CycleStatusHolding
		cycle.AcquiredPrice = t.position.AcquiredPrice
		cycle.AcquiredCost = t.position.AcquiredCost
		cycle.Size = final.FilledSize
		t.journalOrderResult(ctx, final)
		t.journalUpdate(ctx, cycle)

		t.logger.Info("position opened",
			slog.String("order_id", final.ID),
			slog.Float64("acquired_price", t.position.AcquiredPrice),
			slog.Float64("acquired_cost", t.position.AcquiredCost),
			slog.Float64("size", final.FilledSize),
		)
		return nil

	case pollClosed:
		t.journalOrderResult(ctx, final)
		return fmt.Errorf("trader: buy order %s done with reason %q: %w",
			final.ID, final.DoneReason, domain.ErrUnexpectedFillReason)

	default:
		if err := t.cancelOrder(ctx, order.ID); err != nil {
			return err
		}
		t.logger.Info("buy order timed out", slog.String("order_id", order.ID))
		return nil
	}
}
